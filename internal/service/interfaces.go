package service

import (
	"context"
	"time"

	"github.com/iliyamo/online-cinema/internal/repository"
)

// UserStore is the user directory the auth service depends on.  The MySQL
// implementation lives in the repository package; tests substitute an
// in-memory fake.  Absent rows surface as sql.ErrNoRows.
type UserStore interface {
	CreateWithActivation(ctx context.Context, email, passwordHash string, groupID uint64, token string, tokenExpiry time.Time) (uint64, error)
	GetByEmail(ctx context.Context, email string) (repository.User, error)
	GetByID(ctx context.Context, id uint64) (repository.User, error)
	Activate(ctx context.Context, id uint64) error
	SetPassword(ctx context.Context, id uint64, passwordHash string) error
}

// GroupStore resolves the seeded user groups.
type GroupStore interface {
	GetByName(ctx context.Context, name string) (repository.Group, error)
}

// TokenStore is the persistence contract shared by the activation,
// password reset and refresh token stores.
type TokenStore interface {
	TTL() time.Duration
	Create(ctx context.Context, userID uint64) (repository.TokenRecord, error)
	Store(ctx context.Context, userID uint64, token string, expiresAt time.Time) error
	GetByToken(ctx context.Context, token string) (repository.TokenRecord, error)
	IsValid(ctx context.Context, token string) (bool, error)
	LatestValidForUser(ctx context.Context, userID uint64) (repository.TokenRecord, error)
	ExistsValidForUser(ctx context.Context, userID uint64) (bool, error)
	DeleteByToken(ctx context.Context, token string) (int64, error)
	DeleteForUser(ctx context.Context, userID uint64) (int64, error)
	DeleteExpired(ctx context.Context) (int64, error)
}
