// Package mocks provides in-memory implementations of the service store
// interfaces and the email sender for unit tests.  They reproduce the
// contracts of the MySQL repositories: absent rows surface as
// sql.ErrNoRows and validity means expires_at strictly in the future.
package mocks

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/iliyamo/online-cinema/internal/repository"
	"github.com/iliyamo/online-cinema/internal/utils"
)

// TokenStore is an in-memory token table.
type TokenStore struct {
	mu     sync.Mutex
	ttl    time.Duration
	nextID uint64
	recs   []repository.TokenRecord

	// FailDeleteExpired makes DeleteExpired return an error, for testing
	// the reaper's failure policy.
	FailDeleteExpired bool
}

func NewTokenStore(ttl time.Duration) *TokenStore {
	return &TokenStore{ttl: ttl, nextID: 1}
}

func (s *TokenStore) TTL() time.Duration { return s.ttl }

func (s *TokenStore) Create(ctx context.Context, userID uint64) (repository.TokenRecord, error) {
	token, err := utils.RandomToken(32)
	if err != nil {
		return repository.TokenRecord{}, err
	}
	exp := time.Now().UTC().Add(s.ttl)
	if err := s.Store(ctx, userID, token, exp); err != nil {
		return repository.TokenRecord{}, err
	}
	return s.GetByToken(ctx, token)
}

func (s *TokenStore) Store(ctx context.Context, userID uint64, token string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.recs {
		if r.Token == token {
			return errors.New("duplicate token")
		}
	}
	s.recs = append(s.recs, repository.TokenRecord{
		ID:        s.nextID,
		UserID:    userID,
		Token:     token,
		ExpiresAt: expiresAt,
	})
	s.nextID++
	return nil
}

func (s *TokenStore) GetByToken(ctx context.Context, token string) (repository.TokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.recs {
		if r.Token == token {
			return r, nil
		}
	}
	return repository.TokenRecord{}, sql.ErrNoRows
}

func (s *TokenStore) IsValid(ctx context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	for _, r := range s.recs {
		if r.Token == token && r.ExpiresAt.After(now) {
			return true, nil
		}
	}
	return false, nil
}

func (s *TokenStore) LatestValidForUser(ctx context.Context, userID uint64) (repository.TokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	var best repository.TokenRecord
	found := false
	for _, r := range s.recs {
		if r.UserID == userID && r.ExpiresAt.After(now) {
			if !found || r.ExpiresAt.After(best.ExpiresAt) {
				best = r
				found = true
			}
		}
	}
	if !found {
		return repository.TokenRecord{}, sql.ErrNoRows
	}
	return best, nil
}

func (s *TokenStore) ExistsValidForUser(ctx context.Context, userID uint64) (bool, error) {
	_, err := s.LatestValidForUser(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (s *TokenStore) DeleteByToken(ctx context.Context, token string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []repository.TokenRecord
	var n int64
	for _, r := range s.recs {
		if r.Token == token {
			n++
			continue
		}
		kept = append(kept, r)
	}
	s.recs = kept
	return n, nil
}

func (s *TokenStore) DeleteForUser(ctx context.Context, userID uint64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []repository.TokenRecord
	var n int64
	for _, r := range s.recs {
		if r.UserID == userID {
			n++
			continue
		}
		kept = append(kept, r)
	}
	s.recs = kept
	return n, nil
}

func (s *TokenStore) DeleteExpired(ctx context.Context) (int64, error) {
	if s.FailDeleteExpired {
		return 0, errors.New("delete expired failed")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	var kept []repository.TokenRecord
	var n int64
	for _, r := range s.recs {
		if r.ExpiresAt.Before(now) {
			n++
			continue
		}
		kept = append(kept, r)
	}
	s.recs = kept
	return n, nil
}

// Expire shifts a token's expiry into the past (test hook).
func (s *TokenStore) Expire(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.recs {
		if r.Token == token {
			s.recs[i].ExpiresAt = time.Now().UTC().Add(-time.Minute)
		}
	}
}

// CountForUser reports how many rows (valid or not) a user owns.
func (s *TokenStore) CountForUser(userID uint64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.recs {
		if r.UserID == userID {
			n++
		}
	}
	return n
}

// Count reports the total number of rows.
func (s *TokenStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.recs)
}

// UserStore is an in-memory user directory.  Activation writes done by
// CreateWithActivation land in the linked activation TokenStore, mirroring
// the transactional behavior of the MySQL repository.
type UserStore struct {
	mu         sync.Mutex
	nextID     uint64
	users      map[uint64]repository.User
	Activation *TokenStore
}

func NewUserStore(activation *TokenStore) *UserStore {
	return &UserStore{nextID: 1, users: map[uint64]repository.User{}, Activation: activation}
}

func (s *UserStore) CreateWithActivation(ctx context.Context, email, passwordHash string, groupID uint64, token string, tokenExpiry time.Time) (uint64, error) {
	s.mu.Lock()
	email = repository.NormalizeEmail(email)
	for _, u := range s.users {
		if u.Email == email {
			s.mu.Unlock()
			return 0, repository.ErrEmailExists
		}
	}
	id := s.nextID
	s.nextID++
	s.users[id] = repository.User{
		ID:           id,
		Email:        email,
		PasswordHash: passwordHash,
		GroupID:      groupID,
		GroupName:    repository.GroupUser,
		IsActive:     false,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	s.mu.Unlock()
	return id, s.Activation.Store(ctx, id, token, tokenExpiry)
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (repository.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = repository.NormalizeEmail(email)
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return repository.User{}, sql.ErrNoRows
}

func (s *UserStore) GetByID(ctx context.Context, id uint64) (repository.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return repository.User{}, sql.ErrNoRows
	}
	return u, nil
}

func (s *UserStore) Activate(ctx context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.IsActive = true
	s.users[id] = u
	return nil
}

func (s *UserStore) SetPassword(ctx context.Context, id uint64, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.PasswordHash = passwordHash
	s.users[id] = u
	return nil
}

// GroupStore is an in-memory group table, seeded like the migration.
type GroupStore struct {
	groups map[string]repository.Group
}

// NewGroupStore returns a store seeded with USER/MODERATOR/ADMIN.
func NewGroupStore() *GroupStore {
	return &GroupStore{groups: map[string]repository.Group{
		repository.GroupUser:      {ID: 1, Name: repository.GroupUser},
		repository.GroupModerator: {ID: 2, Name: repository.GroupModerator},
		repository.GroupAdmin:     {ID: 3, Name: repository.GroupAdmin},
	}}
}

// NewEmptyGroupStore returns a store with no seed data, for testing the
// missing-seed failure mode.
func NewEmptyGroupStore() *GroupStore {
	return &GroupStore{groups: map[string]repository.Group{}}
}

func (s *GroupStore) GetByName(ctx context.Context, name string) (repository.Group, error) {
	g, ok := s.groups[name]
	if !ok {
		return repository.Group{}, sql.ErrNoRows
	}
	return g, nil
}

// SentEmail records one call into the EmailRecorder.
type SentEmail struct {
	Kind string // activation | activation_complete | password_reset | password_reset_complete | generic
	To   string
	Link string
}

// EmailRecorder implements notifier.EmailSender and captures every send.
type EmailRecorder struct {
	mu   sync.Mutex
	Sent []SentEmail

	// Fail makes every send return an error, for testing that dispatch
	// failures never surface to callers.
	Fail bool
}

func NewEmailRecorder() *EmailRecorder { return &EmailRecorder{} }

func (r *EmailRecorder) record(kind, to, link string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail {
		return errors.New("email delivery failed")
	}
	r.Sent = append(r.Sent, SentEmail{Kind: kind, To: to, Link: link})
	return nil
}

func (r *EmailRecorder) SendActivationEmail(ctx context.Context, email, link string) error {
	return r.record("activation", email, link)
}

func (r *EmailRecorder) SendActivationCompleteEmail(ctx context.Context, email, link string) error {
	return r.record("activation_complete", email, link)
}

func (r *EmailRecorder) SendPasswordResetEmail(ctx context.Context, email, link string) error {
	return r.record("password_reset", email, link)
}

func (r *EmailRecorder) SendPasswordResetCompleteEmail(ctx context.Context, email, link string) error {
	return r.record("password_reset_complete", email, link)
}

func (r *EmailRecorder) SendEmail(ctx context.Context, recipient, subject, htmlContent string) error {
	return r.record("generic", recipient, subject)
}

// Last returns the most recent sent email, or false when none was sent.
func (r *EmailRecorder) Last() (SentEmail, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Sent) == 0 {
		return SentEmail{}, false
	}
	return r.Sent[len(r.Sent)-1], true
}

// ByKind returns all sends of one kind.
func (r *EmailRecorder) ByKind(kind string) []SentEmail {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []SentEmail
	for _, e := range r.Sent {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}
