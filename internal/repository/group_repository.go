package repository

import (
	"context"
	"database/sql"
)

// Group names are fixed seed data created at bootstrap (see migrations).
const (
	GroupUser      = "USER"
	GroupModerator = "MODERATOR"
	GroupAdmin     = "ADMIN"
)

// Group mirrors the 'user_groups' table.
type Group struct {
	ID   uint64
	Name string
}

type GroupRepo struct{ DB *sql.DB }

func NewGroupRepo(db *sql.DB) *GroupRepo { return &GroupRepo{DB: db} }

// GetByName fetches a group by its seeded name.  sql.ErrNoRows means the
// seed is missing, which callers treat as a fatal misconfiguration.
func (r *GroupRepo) GetByName(ctx context.Context, name string) (Group, error) {
	var g Group
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, name FROM user_groups WHERE name=? LIMIT 1", name).Scan(&g.ID, &g.Name)
	return g, err
}
