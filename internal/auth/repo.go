package auth

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/hydrobill/hydrobill/internal/platform/db"
	"github.com/hydrobill/hydrobill/internal/staff"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*staff.Staff, error)
	CreateSession(ctx context.Context, id string, staffID int64, expiresAt time.Time, ip, ua string) error
	DeleteSession(ctx context.Context, id string) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	db    db.DBTX
	staff staff.Repository
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(conn db.DBTX) *PGRepository {
	return &PGRepository{db: conn, staff: staff.NewRepository(conn)}
}

// FindByEmail fetches a staff account by email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*staff.Staff, error) {
	return r.staff.GetByEmail(ctx, email)
}

// CreateSession records a login in staff_sessions for auditing.
func (r *PGRepository) CreateSession(ctx context.Context, id string, staffID int64, expiresAt time.Time, ip, ua string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO staff_sessions (id, staff_id, created_at, expires_at, ip, user_agent)
		VALUES ($1, $2, NOW(), $3, $4, $5)`,
		id, staffID,
		pgtype.Timestamptz{Time: expiresAt.UTC(), Valid: true},
		pgtype.Text{String: ip, Valid: ip != ""},
		pgtype.Text{String: ua, Valid: ua != ""},
	)
	return err
}

// DeleteSession removes a session record.
func (r *PGRepository) DeleteSession(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM staff_sessions WHERE id = $1`, id)
	return err
}

var _ Repository = (*PGRepository)(nil)
