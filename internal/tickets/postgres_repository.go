package tickets

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// db is the subset of *pgxpool.Pool the repository uses.
type db interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresRepository reads tickets and writes conversation summaries.
type PostgresRepository struct {
	db db
}

// NewPostgresRepository wraps a pgx pool.
func NewPostgresRepository(pool db) *PostgresRepository {
	if pool == nil {
		panic("tickets: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// GetTicket loads a ticket together with its requester's role.
func (r *PostgresRepository) GetTicket(ctx context.Context, id string) (*Ticket, error) {
	query := `
		SELECT t.id, t.requester_id, COALESCE(u.role, ''), COALESCE(t.assigned_to, ''),
		       t.status, t.subject, t.created_at, t.updated_at
		FROM tickets t
		LEFT JOIN users u ON u.id = t.requester_id
		WHERE t.id = $1
	`
	var t Ticket
	var status string
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&t.ID,
		&t.RequesterID,
		&t.RequesterRole,
		&t.AssignedTo,
		&status,
		&t.Subject,
		&t.CreatedAt,
		&t.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTicketNotFound
		}
		return nil, fmt.Errorf("tickets: select ticket: %w", err)
	}
	t.Status = Status(status)
	return &t, nil
}

// SaveSummary refreshes the ticket subject and upserts the conversation summary
// in one transaction.
func (r *PostgresRepository) SaveSummary(ctx context.Context, rec SummaryRecord) error {
	if rec.TicketID == "" {
		return ErrMissingTicketID
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("tickets: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE tickets SET subject = $2, updated_at = $3 WHERE id = $1
	`, rec.TicketID, rec.Subject, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("tickets: update subject: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTicketNotFound
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO ticket_summaries (ticket_id, subject, body, payload, role, confidence, escalation_reason, priority, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (ticket_id) DO UPDATE SET
			subject = EXCLUDED.subject,
			body = EXCLUDED.body,
			payload = EXCLUDED.payload,
			role = EXCLUDED.role,
			confidence = EXCLUDED.confidence,
			escalation_reason = EXCLUDED.escalation_reason,
			priority = EXCLUDED.priority,
			updated_at = EXCLUDED.updated_at
	`, rec.TicketID, rec.Subject, rec.Body, rec.Payload, rec.Role, rec.Confidence, rec.EscalationReason, rec.Priority, rec.UpdatedAt); err != nil {
		return fmt.Errorf("tickets: upsert summary: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("tickets: commit summary: %w", err)
	}
	return nil
}

// Ping checks connectivity for the health endpoint.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	var one int
	if err := r.db.QueryRow(ctx, `SELECT 1`).Scan(&one); err != nil {
		return fmt.Errorf("tickets: ping: %w", err)
	}
	return nil
}
