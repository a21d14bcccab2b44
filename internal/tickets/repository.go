package tickets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hydrobill/hydrobill/internal/platform/db"
	"github.com/hydrobill/hydrobill/internal/platform/httpx"
)

type Repository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, repo Repository, tx db.DBTX) error) error
	Create(ctx context.Context, t Ticket) (int64, error)
	Get(ctx context.Context, id int64) (*Ticket, error)
	// Lock takes the row lock that serialises concurrent updates of one ticket.
	Lock(ctx context.Context, id int64) error
	List(ctx context.Context, req ListTicketsRequest) ([]Ticket, error)
	Delete(ctx context.Context, id int64) error
	NextSeq(ctx context.Context, ticketID int64) (int, error)
	AddRemark(ctx context.Context, r Remark) error
	SetStatus(ctx context.Context, id int64, status, remarks string) error
	History(ctx context.Context, ticketID int64) ([]Remark, error)
}

type repository struct {
	db   db.DBTX
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository, db.DBTX) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool}, tx)
	})
}

func (r *repository) Create(ctx context.Context, t Ticket) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO tickets (subject, description, status, remarks, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, '', $4, NOW(), NOW())
		RETURNING id`,
		t.Subject, t.Description, t.Status, t.CreatedBy,
	).Scan(&id)
	return id, err
}

const ticketSelect = `SELECT t.id, t.subject, t.description, t.status, t.remarks, COALESCE(t.created_by, 0),
		COALESCE(s.name, ''), t.created_at, t.updated_at
	FROM tickets t
	LEFT JOIN staff s ON s.id = t.created_by`

func scanTicket(row pgx.Row) (*Ticket, error) {
	var t Ticket
	err := row.Scan(&t.ID, &t.Subject, &t.Description, &t.Status, &t.Remarks, &t.CreatedBy,
		&t.CreatorName, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Ticket, error) {
	t, err := scanTicket(r.db.QueryRow(ctx, ticketSelect+` WHERE t.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("ticket %d: %w", id, httpx.ErrNotFound)
	}
	return t, err
}

func (r *repository) Lock(ctx context.Context, id int64) error {
	var locked int64
	err := r.db.QueryRow(ctx, `SELECT id FROM tickets WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("ticket %d: %w", id, httpx.ErrNotFound)
	}
	return err
}

func (r *repository) List(ctx context.Context, req ListTicketsRequest) ([]Ticket, error) {
	var conditions []string
	var args []any
	if req.Status != "" {
		args = append(args, req.Status)
		conditions = append(conditions, fmt.Sprintf("t.status = $%d", len(args)))
	}
	if req.Search != "" {
		args = append(args, db.ContainsPattern(req.Search))
		n := len(args)
		conditions = append(conditions, fmt.Sprintf("(t.subject ILIKE $%d ESCAPE '\\' OR t.description ILIKE $%d ESCAPE '\\')", n, n))
	}
	query := ticketSelect
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY t.updated_at DESC, t.id DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM tickets WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("ticket %d: %w", id, httpx.ErrNotFound)
	}
	return nil
}

func (r *repository) NextSeq(ctx context.Context, ticketID int64) (int, error) {
	var seq int
	err := r.db.QueryRow(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM ticket_remarks WHERE ticket_id = $1`, ticketID).Scan(&seq)
	return seq, err
}

func (r *repository) AddRemark(ctx context.Context, rm Remark) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO ticket_remarks (ticket_id, seq, remarks, user_name, created_at)
		VALUES ($1, $2, $3, $4, NOW())`,
		rm.TicketID, rm.Seq, rm.Remarks, rm.UserName)
	if db.IsUniqueViolation(err) {
		return fmt.Errorf("ticket %d remark %d: %w", rm.TicketID, rm.Seq, httpx.ErrConflict)
	}
	return err
}

func (r *repository) SetStatus(ctx context.Context, id int64, status, remarks string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE tickets SET status = $2, remarks = $3, updated_at = NOW() WHERE id = $1`, id, status, remarks)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("ticket %d: %w", id, httpx.ErrNotFound)
	}
	return nil
}

func (r *repository) History(ctx context.Context, ticketID int64) ([]Remark, error) {
	rows, err := r.db.Query(ctx, `
		SELECT ticket_id, seq, remarks, user_name, created_at
		FROM ticket_remarks WHERE ticket_id = $1 ORDER BY seq`, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Remark
	for rows.Next() {
		var rm Remark
		if err := rows.Scan(&rm.TicketID, &rm.Seq, &rm.Remarks, &rm.UserName, &rm.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rm)
	}
	return out, rows.Err()
}
