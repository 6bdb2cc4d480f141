package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/online-cinema/internal/utils"
)

// TokenRecord mirrors a row of one of the token tables.  All three tables
// (activation_tokens, password_reset_tokens, refresh_tokens) share the same
// shape: an opaque unique token string, the owning user and an expiry.
type TokenRecord struct {
	ID        uint64
	UserID    uint64
	Token     string
	ExpiresAt time.Time
}

// opaqueTokenBytes is the random size of minted tokens: 32 bytes -> 64 hex
// characters, matching the token column width.
const opaqueTokenBytes = 32

// TokenRepo persists row tokens for one table.  The same implementation
// backs the activation, password reset and refresh stores; only the table
// name and default TTL differ.  Validity everywhere means the row exists
// and expires_at is strictly in the future.
type TokenRepo struct {
	DB    *sql.DB
	table string
	ttl   time.Duration
}

// NewActivationTokenRepo returns the store for activation tokens (24h TTL).
func NewActivationTokenRepo(db *sql.DB) *TokenRepo {
	return &TokenRepo{DB: db, table: "activation_tokens", ttl: 24 * time.Hour}
}

// NewPasswordResetTokenRepo returns the store for password reset tokens (24h TTL).
func NewPasswordResetTokenRepo(db *sql.DB) *TokenRepo {
	return &TokenRepo{DB: db, table: "password_reset_tokens", ttl: 24 * time.Hour}
}

// NewRefreshTokenRepo returns the store for refresh token rows.  Refresh
// rows live for the configured login duration.
func NewRefreshTokenRepo(db *sql.DB, loginTimeDays int) *TokenRepo {
	return &TokenRepo{DB: db, table: "refresh_tokens", ttl: time.Duration(loginTimeDays) * 24 * time.Hour}
}

// TTL reports the default lifetime applied by Create.
func (r *TokenRepo) TTL() time.Duration { return r.ttl }

// Create mints a cryptographically random opaque token for the user, sets
// the default expiry and persists the row.  The token column carries a
// unique constraint; a collision surfaces as a database error, which with
// 32 random bytes is not worth engineering around.
func (r *TokenRepo) Create(ctx context.Context, userID uint64) (TokenRecord, error) {
	token, err := utils.RandomToken(opaqueTokenBytes)
	if err != nil {
		return TokenRecord{}, err
	}
	exp := time.Now().UTC().Add(r.ttl)
	if err := r.Store(ctx, userID, token, exp); err != nil {
		return TokenRecord{}, err
	}
	return TokenRecord{UserID: userID, Token: token, ExpiresAt: exp}, nil
}

// Store persists an externally supplied token string with an explicit
// expiry.  The refresh store uses it to keep the literal signed refresh
// token as a revocable allow-list row.
func (r *TokenRepo) Store(ctx context.Context, userID uint64, token string, expiresAt time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO "+r.table+" (user_id, token, expires_at) VALUES (?,?,?)",
		userID, token, expiresAt)
	return err
}

// GetByToken fetches a row by its token string.  sql.ErrNoRows is returned
// when no such token exists.
func (r *TokenRepo) GetByToken(ctx context.Context, token string) (TokenRecord, error) {
	var t TokenRecord
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, user_id, token, expires_at FROM "+r.table+" WHERE token=? LIMIT 1",
		token).Scan(&t.ID, &t.UserID, &t.Token, &t.ExpiresAt)
	return t, err
}

// IsValid reports whether a token exists and is unexpired.  Pure read; it
// does not consume the token.
func (r *TokenRepo) IsValid(ctx context.Context, token string) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM "+r.table+" WHERE token=? AND expires_at>?",
		token, time.Now().UTC()).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// LatestValidForUser returns the unexpired token with the furthest expiry
// for a user, or sql.ErrNoRows.  The resend flow reuses this row instead of
// invalidating a token the user may already have in their inbox.
func (r *TokenRepo) LatestValidForUser(ctx context.Context, userID uint64) (TokenRecord, error) {
	var t TokenRecord
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, user_id, token, expires_at FROM "+r.table+
			" WHERE user_id=? AND expires_at>? ORDER BY expires_at DESC LIMIT 1",
		userID, time.Now().UTC()).Scan(&t.ID, &t.UserID, &t.Token, &t.ExpiresAt)
	return t, err
}

// ExistsValidForUser reports whether the user has at least one unexpired
// token.  The resend flow uses it to decide between reusing the outstanding
// token and minting a fresh one.
func (r *TokenRepo) ExistsValidForUser(ctx context.Context, userID uint64) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM "+r.table+" WHERE user_id=? AND expires_at>?",
		userID, time.Now().UTC()).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteByToken removes a single row by token string and returns the number
// of deleted rows.  Deleting an absent token is not an error, which makes
// logout idempotent.
func (r *TokenRepo) DeleteByToken(ctx context.Context, token string) (int64, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM "+r.table+" WHERE token=?", token)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteForUser removes all of the user's tokens of this kind and returns
// the count.  Used by logout-all and to clear stale activation/reset tokens
// before minting a fresh one.
func (r *TokenRepo) DeleteForUser(ctx context.Context, userID uint64) (int64, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM "+r.table+" WHERE user_id=?", userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteExpired bulk-purges rows past their expiry and returns the count.
// The cleanup task calls this on every tick; expired rows are already
// unusable, so a missed run only costs storage.
func (r *TokenRepo) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM "+r.table+" WHERE expires_at<?", time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
