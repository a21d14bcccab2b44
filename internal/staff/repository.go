package staff

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/hydrobill/hydrobill/internal/platform/db"
	"github.com/hydrobill/hydrobill/internal/platform/httpx"
	"github.com/hydrobill/hydrobill/internal/shared"
)

type Repository interface {
	List(ctx context.Context, req ListStaffRequest) ([]Staff, error)
	Get(ctx context.Context, id int64) (*Staff, error)
	GetByEmail(ctx context.Context, email string) (*Staff, error)
	Create(ctx context.Context, s Staff) (int64, error)
	Update(ctx context.Context, s Staff) error
	SetProfilePicture(ctx context.Context, id int64, key string) (previous string, err error)
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	db db.DBTX
}

func NewRepository(conn db.DBTX) Repository {
	return &repository{db: conn}
}

const staffColumns = `id, name, email, password_hash, role, is_active, COALESCE(profile_picture, ''), created_at, updated_at`

func scanStaff(row pgx.Row) (*Staff, error) {
	var s Staff
	var role string
	if err := row.Scan(&s.ID, &s.Name, &s.Email, &s.PasswordHash, &role, &s.IsActive, &s.ProfilePicture, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.Role = shared.Role(role)
	return &s, nil
}

func (r *repository) List(ctx context.Context, req ListStaffRequest) ([]Staff, error) {
	var conditions []string
	var args []any
	if req.Role != "" {
		args = append(args, req.Role)
		conditions = append(conditions, fmt.Sprintf("role = $%d", len(args)))
	}
	if req.Search != "" {
		args = append(args, db.ContainsPattern(req.Search))
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d ESCAPE '\\' OR email ILIKE $%d ESCAPE '\\')", len(args), len(args)))
	}
	query := `SELECT ` + staffColumns + ` FROM staff`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY name"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Staff
	for rows.Next() {
		s, err := scanStaff(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (*Staff, error) {
	s, err := scanStaff(r.db.QueryRow(ctx, `SELECT `+staffColumns+` FROM staff WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("staff %d: %w", id, httpx.ErrNotFound)
	}
	return s, err
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*Staff, error) {
	s, err := scanStaff(r.db.QueryRow(ctx, `SELECT `+staffColumns+` FROM staff WHERE lower(email) = lower($1)`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("staff %s: %w", email, httpx.ErrNotFound)
	}
	return s, err
}

func (r *repository) Create(ctx context.Context, s Staff) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO staff (name, email, password_hash, role, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id`,
		s.Name, s.Email, s.PasswordHash, string(s.Role), s.IsActive,
	).Scan(&id)
	if db.IsUniqueViolation(err) {
		return 0, fmt.Errorf("email already registered: %w", httpx.ErrConflict)
	}
	return id, err
}

func (r *repository) Update(ctx context.Context, s Staff) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE staff SET name = $2, email = $3, password_hash = $4, role = $5, is_active = $6, updated_at = NOW()
		WHERE id = $1`,
		s.ID, s.Name, s.Email, s.PasswordHash, string(s.Role), s.IsActive,
	)
	if db.IsUniqueViolation(err) {
		return fmt.Errorf("email already registered: %w", httpx.ErrConflict)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("staff %d: %w", s.ID, httpx.ErrNotFound)
	}
	return nil
}

func (r *repository) SetProfilePicture(ctx context.Context, id int64, key string) (string, error) {
	var previous string
	err := r.db.QueryRow(ctx, `
		UPDATE staff s SET profile_picture = $2, updated_at = NOW()
		FROM (SELECT id, COALESCE(profile_picture, '') AS old FROM staff WHERE id = $1 FOR UPDATE) prev
		WHERE s.id = prev.id
		RETURNING prev.old`, id, key).Scan(&previous)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("staff %d: %w", id, httpx.ErrNotFound)
	}
	return previous, err
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM staff WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("staff %d: %w", id, httpx.ErrNotFound)
	}
	return nil
}
