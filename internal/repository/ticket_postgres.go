package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sme-router/internal/domain"
)

// pgTicketRepository persists tickets in Postgres for deployments that have
// outgrown flat files.
type pgTicketRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresTicketRepository instantiates the Postgres-backed repository.
func NewPostgresTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &pgTicketRepository{pool: pool}
}

const ticketColumns = `id, requester_id, channel_id, thread_ref, description, category,
    expertise_tags, urgency_score, user_priority, priority, status, claimed_by,
    hunt_wave, wave_deadline, notified_expert_ids, created_at, last_activity_at`

func (r *pgTicketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (id, requester_id, channel_id, thread_ref, description, category,
            expertise_tags, urgency_score, user_priority, priority, status, claimed_by,
            hunt_wave, wave_deadline, notified_expert_ids, created_at, last_activity_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`
	_, err := r.pool.Exec(ctx, query,
		ticket.ID,
		ticket.RequesterID,
		ticket.ChannelID,
		ticket.ThreadRef,
		ticket.Description,
		ticket.Category,
		ticket.ExpertiseTags,
		ticket.UrgencyScore,
		ticket.UserPriority,
		ticket.Priority,
		ticket.Status,
		nullable(ticket.ClaimedBy),
		ticket.HuntWave,
		ticket.WaveDeadline,
		ticket.NotifiedExpertIDs,
		ticket.CreatedAt,
		ticket.LastActivityAt,
	)
	return err
}

func (r *pgTicketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET status=$1, claimed_by=$2, hunt_wave=$3, wave_deadline=$4,
            notified_expert_ids=$5, last_activity_at=$6
        WHERE id=$7`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.Status,
		nullable(ticket.ClaimedBy),
		ticket.HuntWave,
		ticket.WaveDeadline,
		ticket.NotifiedExpertIDs,
		ticket.LastActivityAt,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("ticket %s: %w", ticket.ID, ErrNotFound)
	}
	return nil
}

func (r *pgTicketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("ticket %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return ticket, nil
}

func (r *pgTicketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	var (
		conditions []string
		args       []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.RequesterID != nil {
		conditions = append(conditions, "requester_id="+arg(*filter.RequesterID))
	}
	if filter.ClaimedBy != nil {
		conditions = append(conditions, "claimed_by="+arg(*filter.ClaimedBy))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		conditions = append(conditions, "status = ANY("+arg(statuses)+")")
	}
	if filter.CreatedFrom != nil {
		conditions = append(conditions, "created_at >= "+arg(*filter.CreatedFrom))
	}
	if filter.CreatedTo != nil {
		conditions = append(conditions, "created_at <= "+arg(*filter.CreatedTo))
	}

	query := `SELECT ` + ticketColumns + ` FROM tickets`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at"
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET " + arg(filter.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, *ticket)
	}
	return tickets, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner) (*domain.Ticket, error) {
	var (
		ticket    domain.Ticket
		claimedBy *string
		deadline  *time.Time
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.RequesterID,
		&ticket.ChannelID,
		&ticket.ThreadRef,
		&ticket.Description,
		&ticket.Category,
		&ticket.ExpertiseTags,
		&ticket.UrgencyScore,
		&ticket.UserPriority,
		&ticket.Priority,
		&ticket.Status,
		&claimedBy,
		&ticket.HuntWave,
		&deadline,
		&ticket.NotifiedExpertIDs,
		&ticket.CreatedAt,
		&ticket.LastActivityAt,
	); err != nil {
		return nil, err
	}
	if claimedBy != nil {
		ticket.ClaimedBy = *claimedBy
	}
	ticket.WaveDeadline = deadline
	return &ticket, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
