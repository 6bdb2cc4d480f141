package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/online-cinema/internal/mocks"
	"github.com/iliyamo/online-cinema/internal/utils"
)

const (
	testEmail    = "a@x.com"
	testPassword = "Str0ng!pw"
	testBaseURL  = "http://localhost:8000"
)

type testEnv struct {
	svc        *AuthService
	users      *mocks.UserStore
	activation *mocks.TokenStore
	reset      *mocks.TokenStore
	refresh    *mocks.TokenStore
	sender     *mocks.EmailRecorder
	codec      *utils.Codec
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	codec, err := utils.NewCodec("access-secret", "refresh-secret", "HS256", 60, 7)
	require.NoError(t, err)

	activation := mocks.NewTokenStore(24 * time.Hour)
	reset := mocks.NewTokenStore(24 * time.Hour)
	refresh := mocks.NewTokenStore(7 * 24 * time.Hour)
	users := mocks.NewUserStore(activation)
	sender := mocks.NewEmailRecorder()

	svc := NewAuthService(users, mocks.NewGroupStore(), activation, reset, refresh,
		codec, sender, bcrypt.MinCost, testBaseURL)

	return &testEnv{
		svc:        svc,
		users:      users,
		activation: activation,
		reset:      reset,
		refresh:    refresh,
		sender:     sender,
		codec:      codec,
	}
}

// register + activate a user so login-based tests can start from ACTIVE.
func (e *testEnv) registerActive(t *testing.T) uint64 {
	t.Helper()
	ctx := context.Background()
	u, err := e.svc.Register(ctx, testEmail, testPassword)
	require.NoError(t, err)
	rec, err := e.activation.LatestValidForUser(ctx, u.ID)
	require.NoError(t, err)
	require.NoError(t, e.svc.Activate(ctx, testEmail, rec.Token))
	return u.ID
}

func TestRegisterCreatesInactiveUserWithActivationToken(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	u, err := e.svc.Register(ctx, "A@X.com", testPassword)
	require.NoError(t, err)
	assert.Equal(t, testEmail, u.Email) // normalized to lowercase
	assert.False(t, u.IsActive)
	assert.Equal(t, "USER", u.GroupName)

	assert.Equal(t, 1, e.activation.CountForUser(u.ID))

	// The activation email carries the token in the link.
	rec, err := e.activation.LatestValidForUser(ctx, u.ID)
	require.NoError(t, err)
	sent, ok := e.sender.Last()
	require.True(t, ok)
	assert.Equal(t, "activation", sent.Kind)
	assert.Equal(t, testEmail, sent.To)
	assert.Contains(t, sent.Link, rec.Token)
	assert.True(t, strings.HasPrefix(sent.Link, testBaseURL+"/v1/auth/activate"))
}

func TestRegisterDuplicateEmail(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	_, err := e.svc.Register(ctx, testEmail, testPassword)
	require.NoError(t, err)

	_, err = e.svc.Register(ctx, "A@x.COM", testPassword)
	assert.True(t, errors.Is(err, ErrUserExists))
}

func TestRegisterWeakPassword(t *testing.T) {
	e := newTestEnv(t)

	_, err := e.svc.Register(context.Background(), testEmail, "weakpass")
	assert.True(t, errors.Is(err, utils.ErrWeakPassword))
	assert.Equal(t, 0, e.activation.Count())
}

func TestRegisterMissingGroupSeed(t *testing.T) {
	e := newTestEnv(t)
	e.svc = NewAuthService(e.users, mocks.NewEmptyGroupStore(), e.activation, e.reset, e.refresh,
		e.codec, e.sender, bcrypt.MinCost, testBaseURL)

	_, err := e.svc.Register(context.Background(), testEmail, testPassword)
	assert.True(t, errors.Is(err, ErrConfiguration))
}

func TestRegisterSucceedsWhenEmailDispatchFails(t *testing.T) {
	e := newTestEnv(t)
	e.sender.Fail = true

	u, err := e.svc.Register(context.Background(), testEmail, testPassword)
	require.NoError(t, err)
	// The user and its token committed despite the failed dispatch; the
	// user can always use resend-activation.
	assert.Equal(t, 1, e.activation.CountForUser(u.ID))
}

func TestActivateFullScenario(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	u, err := e.svc.Register(ctx, testEmail, testPassword)
	require.NoError(t, err)

	// Wrong token string.
	err = e.svc.Activate(ctx, testEmail, "zzz")
	assert.True(t, errors.Is(err, ErrInvalidToken))

	// Unknown user.
	err = e.svc.Activate(ctx, "nobody@x.com", "zzz")
	assert.True(t, errors.Is(err, ErrUserNotFound))

	// Correct token: user becomes active and the token is consumed.
	rec, err := e.activation.LatestValidForUser(ctx, u.ID)
	require.NoError(t, err)
	require.NoError(t, e.svc.Activate(ctx, testEmail, rec.Token))

	got, err := e.users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)
	assert.Equal(t, 0, e.activation.CountForUser(u.ID))
	assert.Len(t, e.sender.ByKind("activation_complete"), 1)

	// Consumed token cannot be replayed.
	err = e.svc.Activate(ctx, testEmail, rec.Token)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestActivateTokenOwnershipMismatch(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	_, err := e.svc.Register(ctx, testEmail, testPassword)
	require.NoError(t, err)
	other, err := e.svc.Register(ctx, "b@x.com", testPassword)
	require.NoError(t, err)

	otherRec, err := e.activation.LatestValidForUser(ctx, other.ID)
	require.NoError(t, err)

	// b's token presented for a's account.
	err = e.svc.Activate(ctx, testEmail, otherRec.Token)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestActivateExpiredToken(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	u, err := e.svc.Register(ctx, testEmail, testPassword)
	require.NoError(t, err)
	rec, err := e.activation.LatestValidForUser(ctx, u.ID)
	require.NoError(t, err)

	e.activation.Expire(rec.Token)
	err = e.svc.Activate(ctx, testEmail, rec.Token)
	assert.True(t, errors.Is(err, ErrTokenExpired))
}

// Re-activating an already active account with a still-valid token is a
// deliberate no-op success, not an error.
func TestReactivationIsNoOpSuccess(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	uid := e.registerActive(t)

	// A second valid token for the now-active user (e.g. an old resend).
	second, err := e.activation.Create(ctx, uid)
	require.NoError(t, err)

	assert.NoError(t, e.svc.Activate(ctx, testEmail, second.Token))
	got, err := e.users.GetByID(ctx, uid)
	require.NoError(t, err)
	assert.True(t, got.IsActive)
}

func TestResendActivationReusesValidToken(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	u, err := e.svc.Register(ctx, testEmail, testPassword)
	require.NoError(t, err)
	first, err := e.activation.LatestValidForUser(ctx, u.ID)
	require.NoError(t, err)

	// Two resends inside the validity window deliver the same token string.
	require.NoError(t, e.svc.ResendActivation(ctx, testEmail))
	require.NoError(t, e.svc.ResendActivation(ctx, testEmail))

	sends := e.sender.ByKind("activation")
	require.Len(t, sends, 3) // register + 2 resends
	assert.Contains(t, sends[1].Link, first.Token)
	assert.Contains(t, sends[2].Link, first.Token)
	assert.Equal(t, 1, e.activation.CountForUser(u.ID))
}

func TestResendActivationMintsFreshTokenAfterExpiry(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	u, err := e.svc.Register(ctx, testEmail, testPassword)
	require.NoError(t, err)
	first, err := e.activation.LatestValidForUser(ctx, u.ID)
	require.NoError(t, err)

	e.activation.Expire(first.Token)
	require.NoError(t, e.svc.ResendActivation(ctx, testEmail))

	fresh, err := e.activation.LatestValidForUser(ctx, u.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.Token, fresh.Token)
	// Stale row was cleared before minting.
	assert.Equal(t, 1, e.activation.CountForUser(u.ID))
}

func TestResendActivationLeaksNothing(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	// Unknown user: silent no-op.
	assert.NoError(t, e.svc.ResendActivation(ctx, "nobody@x.com"))
	_, ok := e.sender.Last()
	assert.False(t, ok)

	// Already active user: silent no-op as well.
	e.registerActive(t)
	before := len(e.sender.ByKind("activation"))
	assert.NoError(t, e.svc.ResendActivation(ctx, testEmail))
	assert.Len(t, e.sender.ByKind("activation"), before)
}

func TestLoginInactiveUser(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	_, err := e.svc.Register(ctx, testEmail, testPassword)
	require.NoError(t, err)

	_, err = e.svc.Login(ctx, testEmail, testPassword)
	assert.True(t, errors.Is(err, ErrUserNotActive))
	assert.False(t, errors.Is(err, ErrInvalidCredentials))
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.registerActive(t)

	_, unknownErr := e.svc.Login(ctx, "nobody@x.com", testPassword)
	_, wrongPwErr := e.svc.Login(ctx, testEmail, "Wr0ng!pass")

	assert.True(t, errors.Is(unknownErr, ErrInvalidCredentials))
	assert.True(t, errors.Is(wrongPwErr, ErrInvalidCredentials))
	assert.Equal(t, unknownErr, wrongPwErr)
}

func TestLoginRefreshRoundTrip(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	uid := e.registerActive(t)

	pair, err := e.svc.Login(ctx, testEmail, testPassword)
	require.NoError(t, err)
	require.NotEmpty(t, pair.Access.Token)
	require.NotEmpty(t, pair.Refresh.Token)

	// The signed refresh token is persisted literally as the allow-list row.
	ok, err := e.refresh.IsValid(ctx, pair.Refresh.Token)
	require.NoError(t, err)
	assert.True(t, ok)

	access, err := e.svc.Refresh(ctx, pair.Refresh.Token)
	require.NoError(t, err)

	got, err := e.codec.DecodeAccessToken(access.Token)
	require.NoError(t, err)
	assert.Equal(t, uid, got)

	// Refresh does not rotate: the original refresh token stays usable.
	_, err = e.svc.Refresh(ctx, pair.Refresh.Token)
	assert.NoError(t, err)
}

func TestConcurrentLoginsKeepIndependentSessions(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	uid := e.registerActive(t)

	a, err := e.svc.Login(ctx, testEmail, testPassword)
	require.NoError(t, err)
	b, err := e.svc.Login(ctx, testEmail, testPassword)
	require.NoError(t, err)

	assert.Equal(t, 2, e.refresh.CountForUser(uid))

	// Logging out one device leaves the other session live.
	require.NoError(t, e.svc.Logout(ctx, a.Refresh.Token))
	_, err = e.svc.Refresh(ctx, a.Refresh.Token)
	assert.True(t, errors.Is(err, ErrTokenNotFound))
	_, err = e.svc.Refresh(ctx, b.Refresh.Token)
	assert.NoError(t, err)
}

func TestRefreshRejectsRevokedAndGarbageTokens(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.registerActive(t)

	pair, err := e.svc.Login(ctx, testEmail, testPassword)
	require.NoError(t, err)

	// Revoked: the signature is still valid but the row is gone.
	require.NoError(t, e.svc.Logout(ctx, pair.Refresh.Token))
	_, err = e.svc.Refresh(ctx, pair.Refresh.Token)
	assert.True(t, errors.Is(err, ErrTokenNotFound))

	// Garbage input never reaches the store.
	_, err = e.svc.Refresh(ctx, "not-a-token")
	assert.True(t, errors.Is(err, ErrInvalidToken))

	// An access token is not accepted by the refresh decoder.
	_, err = e.svc.Refresh(ctx, pair.Access.Token)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestLogoutIsIdempotentAndLogoutAllClearsEverySession(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	uid := e.registerActive(t)

	pair, err := e.svc.Login(ctx, testEmail, testPassword)
	require.NoError(t, err)
	_, err = e.svc.Login(ctx, testEmail, testPassword)
	require.NoError(t, err)

	assert.NoError(t, e.svc.Logout(ctx, pair.Refresh.Token))
	assert.NoError(t, e.svc.Logout(ctx, pair.Refresh.Token)) // second call: still no error

	require.NoError(t, e.svc.LogoutAll(ctx, uid))
	assert.Equal(t, 0, e.refresh.CountForUser(uid))
}

func TestPasswordResetScenario(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	uid := e.registerActive(t)

	// Unknown email: generic success, no token minted.
	require.NoError(t, e.svc.SendPasswordResetEmail(ctx, "nobody@x.com"))
	assert.Equal(t, 0, e.reset.Count())

	// Known email: token created and mailed.
	require.NoError(t, e.svc.SendPasswordResetEmail(ctx, testEmail))
	rec, err := e.reset.LatestValidForUser(ctx, uid)
	require.NoError(t, err)
	sends := e.sender.ByKind("password_reset")
	require.Len(t, sends, 1)
	assert.Contains(t, sends[0].Link, rec.Token)

	// A second request replaces the outstanding token.
	require.NoError(t, e.svc.SendPasswordResetEmail(ctx, testEmail))
	assert.Equal(t, 1, e.reset.CountForUser(uid))
	rec, err = e.reset.LatestValidForUser(ctx, uid)
	require.NoError(t, err)

	// Weak new password: rejected, token survives for a retry.
	err = e.svc.ResetPasswordByToken(ctx, testEmail, rec.Token, "weakpass")
	assert.True(t, errors.Is(err, utils.ErrWeakPassword))
	assert.Equal(t, 1, e.reset.CountForUser(uid))

	// Strong new password: applied, token consumed, completion email sent.
	require.NoError(t, e.svc.ResetPasswordByToken(ctx, testEmail, rec.Token, "N3w!passwd"))
	assert.Equal(t, 0, e.reset.CountForUser(uid))
	assert.Len(t, e.sender.ByKind("password_reset_complete"), 1)

	_, err = e.svc.Login(ctx, testEmail, testPassword)
	assert.True(t, errors.Is(err, ErrInvalidCredentials))
	_, err = e.svc.Login(ctx, testEmail, "N3w!passwd")
	assert.NoError(t, err)

	// The consumed token cannot be replayed.
	err = e.svc.ResetPasswordByToken(ctx, testEmail, rec.Token, "N3w!passwd2")
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestResetPasswordByTokenValidationChain(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	uid := e.registerActive(t)

	require.NoError(t, e.svc.SendPasswordResetEmail(ctx, testEmail))
	rec, err := e.reset.LatestValidForUser(ctx, uid)
	require.NoError(t, err)

	err = e.svc.ResetPasswordByToken(ctx, "nobody@x.com", rec.Token, "N3w!passwd")
	assert.True(t, errors.Is(err, ErrUserNotFound))

	err = e.svc.ResetPasswordByToken(ctx, testEmail, "zzz", "N3w!passwd")
	assert.True(t, errors.Is(err, ErrInvalidToken))

	e.reset.Expire(rec.Token)
	err = e.svc.ResetPasswordByToken(ctx, testEmail, rec.Token, "N3w!passwd")
	assert.True(t, errors.Is(err, ErrTokenExpired))
}

func TestChangePassword(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	uid := e.registerActive(t)

	err := e.svc.ChangePassword(ctx, uid, "Wr0ng!old", "N3w!passwd")
	assert.True(t, errors.Is(err, ErrInvalidCredentials))

	err = e.svc.ChangePassword(ctx, uid, testPassword, testPassword)
	assert.True(t, errors.Is(err, ErrSamePassword))

	err = e.svc.ChangePassword(ctx, uid, testPassword, "weakpass")
	assert.True(t, errors.Is(err, utils.ErrWeakPassword))

	err = e.svc.ChangePassword(ctx, uid, testPassword, "N3w!passwd")
	require.NoError(t, err)
	_, err = e.svc.Login(ctx, testEmail, "N3w!passwd")
	assert.NoError(t, err)
}

// Changing the password keeps existing sessions alive; revocation is an
// explicit LogoutAll.
func TestChangePasswordKeepsRefreshTokens(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	uid := e.registerActive(t)

	pair, err := e.svc.Login(ctx, testEmail, testPassword)
	require.NoError(t, err)

	require.NoError(t, e.svc.ChangePassword(ctx, uid, testPassword, "N3w!passwd"))

	_, err = e.svc.Refresh(ctx, pair.Refresh.Token)
	assert.NoError(t, err)
}

func TestChangePasswordUnknownUser(t *testing.T) {
	e := newTestEnv(t)

	err := e.svc.ChangePassword(context.Background(), 999, testPassword, "N3w!passwd")
	assert.True(t, errors.Is(err, ErrUserNotFound))
}

// The expiry boundary is strict: one second in the past is expired, one
// second in the future is still valid.
func TestActivationExpiryBoundary(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	u, err := e.svc.Register(ctx, testEmail, testPassword)
	require.NoError(t, err)
	_, err = e.activation.DeleteForUser(ctx, u.ID)
	require.NoError(t, err)

	require.NoError(t, e.activation.Store(ctx, u.ID, "about-to-expire", time.Now().UTC().Add(time.Second)))
	require.NoError(t, e.svc.Activate(ctx, testEmail, "about-to-expire"))

	require.NoError(t, e.activation.Store(ctx, u.ID, "just-expired", time.Now().UTC().Add(-time.Second)))
	err = e.svc.Activate(ctx, testEmail, "just-expired")
	assert.True(t, errors.Is(err, ErrTokenExpired))
}
