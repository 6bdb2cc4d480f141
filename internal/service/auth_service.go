package service

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/url"
	"time"

	"github.com/iliyamo/online-cinema/internal/notifier"
	"github.com/iliyamo/online-cinema/internal/repository"
	"github.com/iliyamo/online-cinema/internal/utils"
)

// TokenPair is the result of a successful login: a short-lived signed
// access token and a long-lived signed refresh token.
type TokenPair struct {
	Access  utils.SignedToken
	Refresh utils.SignedToken
}

// AuthService drives the account state machine
// (unregistered -> pending activation -> active) and the token lifecycle
// around it.  It consumes the user directory, the three row-token stores,
// the signed-token codec and, optionally, an email sender.  Every mutation
// happens before the corresponding notification is dispatched, and a
// failed dispatch is logged, never surfaced to the caller.
type AuthService struct {
	users            UserStore
	groups           GroupStore
	activationTokens TokenStore
	resetTokens      TokenStore
	refreshTokens    TokenStore
	codec            *utils.Codec
	sender           notifier.EmailSender // nil disables email dispatch
	bcryptCost       int
	baseURL          string
}

func NewAuthService(
	users UserStore,
	groups GroupStore,
	activationTokens, resetTokens, refreshTokens TokenStore,
	codec *utils.Codec,
	sender notifier.EmailSender,
	bcryptCost int,
	baseURL string,
) *AuthService {
	return &AuthService{
		users:            users,
		groups:           groups,
		activationTokens: activationTokens,
		resetTokens:      resetTokens,
		refreshTokens:    refreshTokens,
		codec:            codec,
		sender:           sender,
		bcryptCost:       bcryptCost,
		baseURL:          baseURL,
	}
}

// Register creates an inactive user in the default USER group together with
// its activation token (one transaction: no user row without a path to
// activation) and emails the activation link.
func (s *AuthService) Register(ctx context.Context, email, password string) (repository.User, error) {
	email = repository.NormalizeEmail(email)

	if err := utils.ValidatePasswordStrength(password); err != nil {
		return repository.User{}, err
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return repository.User{}, ErrUserExists
	} else if !errors.Is(err, sql.ErrNoRows) {
		return repository.User{}, err
	}

	group, err := s.groups.GetByName(ctx, repository.GroupUser)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return repository.User{}, ErrConfiguration
		}
		return repository.User{}, err
	}

	hash, err := utils.HashPassword(password, s.bcryptCost)
	if err != nil {
		return repository.User{}, err
	}

	token, err := utils.RandomToken(32)
	if err != nil {
		return repository.User{}, err
	}
	tokenExpiry := time.Now().UTC().Add(s.activationTokens.TTL())

	id, err := s.users.CreateWithActivation(ctx, email, hash, group.ID, token, tokenExpiry)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return repository.User{}, ErrUserExists
		}
		return repository.User{}, err
	}

	if s.sender != nil {
		link := s.link("/v1/auth/activate", url.Values{"email": {email}, "token": {token}})
		if err := s.sender.SendActivationEmail(ctx, email, link); err != nil {
			log.Printf("auth: send activation email to %s failed: %v", email, err)
		}
	}

	return repository.User{
		ID:        id,
		Email:     email,
		GroupID:   group.ID,
		GroupName: group.Name,
		IsActive:  false,
	}, nil
}

// Activate marks the account active and consumes the activation token.  The
// token must exist, belong to the presented user and be unexpired.
// Activating an already active user with a still-valid token is accepted as
// a no-op success; the token is consumed either way.
func (s *AuthService) Activate(ctx context.Context, email, token string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	}

	rec, err := s.activationTokens.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrInvalidToken
		}
		return err
	}
	if rec.UserID != user.ID {
		return ErrInvalidToken
	}
	if !rec.ExpiresAt.After(time.Now().UTC()) {
		return ErrTokenExpired
	}

	if err := s.users.Activate(ctx, user.ID); err != nil {
		return err
	}
	if _, err := s.activationTokens.DeleteByToken(ctx, token); err != nil {
		return err
	}

	if s.sender != nil {
		link := s.link("/v1/auth/login", nil)
		if err := s.sender.SendActivationCompleteEmail(ctx, email, link); err != nil {
			log.Printf("auth: send activation complete email to %s failed: %v", email, err)
		}
	}
	return nil
}

// ResendActivation re-sends the activation link.  It silently no-ops when
// the user does not exist or is already active, so the endpoint leaks
// nothing about account existence.  An unexpired token is reused rather
// than invalidated (the user may already have it open in their inbox);
// only when none remains are stale rows cleared and a fresh token minted.
func (s *AuthService) ResendActivation(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return err
	}
	if user.IsActive {
		return nil
	}

	hasValid, err := s.activationTokens.ExistsValidForUser(ctx, user.ID)
	if err != nil {
		return err
	}

	var rec repository.TokenRecord
	if hasValid {
		rec, err = s.activationTokens.LatestValidForUser(ctx, user.ID)
	} else {
		if _, err := s.activationTokens.DeleteForUser(ctx, user.ID); err != nil {
			return err
		}
		rec, err = s.activationTokens.Create(ctx, user.ID)
	}
	if err != nil {
		return err
	}

	if s.sender != nil {
		link := s.link("/v1/auth/activate", url.Values{"email": {user.Email}, "token": {rec.Token}})
		if err := s.sender.SendActivationEmail(ctx, user.Email, link); err != nil {
			log.Printf("auth: resend activation email to %s failed: %v", user.Email, err)
		}
	}
	return nil
}

// Login verifies credentials and mints a signed token pair.  The signed
// refresh token is additionally persisted as an allow-list row so that
// logout can revoke it before its cryptographic expiry.  Unknown email and
// wrong password collapse into the same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (TokenPair, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TokenPair{}, ErrInvalidCredentials
		}
		return TokenPair{}, err
	}
	if !utils.VerifyPassword(user.PasswordHash, password) {
		return TokenPair{}, ErrInvalidCredentials
	}
	if !user.IsActive {
		return TokenPair{}, ErrUserNotActive
	}

	access, err := s.codec.NewAccessToken(user.ID, user.GroupName)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.codec.NewRefreshToken(user.ID)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.refreshTokens.Store(ctx, user.ID, refresh.Token, refresh.Exp); err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

// Refresh exchanges a signed refresh token for a new access token.  The
// signature and expiry are verified first; the literal token string must
// then match a live allow-list row; a revoked row means the token was
// logged out even if it is still cryptographically valid.  The refresh
// token itself is not rotated.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (utils.SignedToken, error) {
	userID, err := s.codec.DecodeRefreshToken(refreshToken)
	if err != nil {
		if errors.Is(err, utils.ErrTokenExpired) {
			return utils.SignedToken{}, ErrTokenExpired
		}
		return utils.SignedToken{}, ErrInvalidToken
	}

	ok, err := s.refreshTokens.IsValid(ctx, refreshToken)
	if err != nil {
		return utils.SignedToken{}, err
	}
	if !ok {
		return utils.SignedToken{}, ErrTokenNotFound
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return utils.SignedToken{}, ErrTokenNotFound
		}
		return utils.SignedToken{}, err
	}
	return s.codec.NewAccessToken(user.ID, user.GroupName)
}

// Logout deletes the refresh token row for one session.  Deleting an
// absent row is not an error; logout is idempotent.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	_, err := s.refreshTokens.DeleteByToken(ctx, refreshToken)
	return err
}

// LogoutAll deletes every refresh token row of the user (all-device sign-out).
func (s *AuthService) LogoutAll(ctx context.Context, userID uint64) error {
	_, err := s.refreshTokens.DeleteForUser(ctx, userID)
	return err
}

// SendPasswordResetEmail mints a password reset token and emails the reset
// link.  Unknown emails silently no-op (same non-leak policy as
// ResendActivation).  Stale reset tokens are cleared first so at most one
// is live per user.
func (s *AuthService) SendPasswordResetEmail(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return err
	}

	if _, err := s.resetTokens.DeleteForUser(ctx, user.ID); err != nil {
		return err
	}
	rec, err := s.resetTokens.Create(ctx, user.ID)
	if err != nil {
		return err
	}

	if s.sender != nil {
		link := s.link("/v1/auth/password-reset/complete", url.Values{"email": {user.Email}, "token": {rec.Token}})
		if err := s.sender.SendPasswordResetEmail(ctx, user.Email, link); err != nil {
			log.Printf("auth: send password reset email to %s failed: %v", user.Email, err)
		}
	}
	return nil
}

// ResetPasswordByToken sets a new password after validating the reset
// token (same chain as Activate) and the strength of the new password.
// Strength is checked before any mutation, so a weak password leaves the
// token consumable for a retry.
func (s *AuthService) ResetPasswordByToken(ctx context.Context, email, token, newPassword string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	}

	rec, err := s.resetTokens.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrInvalidToken
		}
		return err
	}
	if rec.UserID != user.ID {
		return ErrInvalidToken
	}
	if !rec.ExpiresAt.After(time.Now().UTC()) {
		return ErrTokenExpired
	}

	if err := utils.ValidatePasswordStrength(newPassword); err != nil {
		return err
	}

	hash, err := utils.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	if err := s.users.SetPassword(ctx, user.ID, hash); err != nil {
		return err
	}
	if _, err := s.resetTokens.DeleteForUser(ctx, user.ID); err != nil {
		return err
	}

	if s.sender != nil {
		link := s.link("/v1/auth/login", nil)
		if err := s.sender.SendPasswordResetCompleteEmail(ctx, user.Email, link); err != nil {
			log.Printf("auth: send password reset complete email to %s failed: %v", user.Email, err)
		}
	}
	return nil
}

// ChangePassword updates the password of an authenticated user after
// verifying the old one.  Existing refresh tokens stay valid; all-device
// revocation remains an explicit LogoutAll call.
func (s *AuthService) ChangePassword(ctx context.Context, userID uint64, oldPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	}
	if !utils.VerifyPassword(user.PasswordHash, oldPassword) {
		return ErrInvalidCredentials
	}
	if oldPassword == newPassword {
		return ErrSamePassword
	}
	if err := utils.ValidatePasswordStrength(newPassword); err != nil {
		return err
	}

	hash, err := utils.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	return s.users.SetPassword(ctx, userID, hash)
}

// link builds an absolute URL under the configured base URL.
func (s *AuthService) link(path string, params url.Values) string {
	u := s.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}
