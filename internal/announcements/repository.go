package announcements

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/hydrobill/hydrobill/internal/platform/db"
	"github.com/hydrobill/hydrobill/internal/platform/httpx"
)

type Repository interface {
	List(ctx context.Context, status string) ([]Announcement, error)
	Get(ctx context.Context, id int64) (*Announcement, error)
	Create(ctx context.Context, a Announcement) (int64, error)
	Update(ctx context.Context, a Announcement) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	db db.DBTX
}

func NewRepository(conn db.DBTX) Repository {
	return &repository{db: conn}
}

const announcementColumns = `id, title, body, status, published_at, COALESCE(created_by, 0), created_at, updated_at`

func scanAnnouncement(row pgx.Row) (*Announcement, error) {
	var a Announcement
	if err := row.Scan(&a.ID, &a.Title, &a.Body, &a.Status, &a.PublishedAt, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *repository) List(ctx context.Context, status string) ([]Announcement, error) {
	query := `SELECT ` + announcementColumns + ` FROM announcements`
	var args []any
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY COALESCE(published_at, created_at) DESC, id DESC`
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Announcement
	for rows.Next() {
		a, err := scanAnnouncement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (*Announcement, error) {
	a, err := scanAnnouncement(r.db.QueryRow(ctx, `SELECT `+announcementColumns+` FROM announcements WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("announcement %d: %w", id, httpx.ErrNotFound)
	}
	return a, err
}

func (r *repository) Create(ctx context.Context, a Announcement) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO announcements (title, body, status, published_at, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id`,
		a.Title, a.Body, a.Status, a.PublishedAt, a.CreatedBy,
	).Scan(&id)
	return id, err
}

func (r *repository) Update(ctx context.Context, a Announcement) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE announcements SET title = $2, body = $3, status = $4, published_at = $5, updated_at = NOW()
		WHERE id = $1`,
		a.ID, a.Title, a.Body, a.Status, a.PublishedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("announcement %d: %w", a.ID, httpx.ErrNotFound)
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM announcements WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("announcement %d: %w", id, httpx.ErrNotFound)
	}
	return nil
}
