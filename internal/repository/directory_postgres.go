package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sme-router/internal/domain"
)

// pgDirectoryRepository persists the expert roster and requester tiers in
// Postgres.
type pgDirectoryRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresDirectoryRepository instantiates the Postgres-backed repository.
func NewPostgresDirectoryRepository(pool *pgxpool.Pool) DirectoryRepository {
	return &pgDirectoryRepository{pool: pool}
}

func (r *pgDirectoryRepository) GetExpert(ctx context.Context, id string) (*domain.Expert, error) {
	const query = `
        SELECT id, name, expertise_tags, skill_ratings, available, current_load, max_concurrent
        FROM experts WHERE id=$1`
	expert, err := scanExpert(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("expert %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return expert, nil
}

func (r *pgDirectoryRepository) PutExpert(ctx context.Context, expert *domain.Expert) error {
	ratings, err := json.Marshal(expert.SkillRatings)
	if err != nil {
		return fmt.Errorf("marshal skill ratings: %w", err)
	}
	const query = `
        INSERT INTO experts (id, name, expertise_tags, skill_ratings, available, current_load, max_concurrent)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        ON CONFLICT (id) DO UPDATE SET
            name=EXCLUDED.name, expertise_tags=EXCLUDED.expertise_tags,
            skill_ratings=EXCLUDED.skill_ratings, available=EXCLUDED.available,
            current_load=EXCLUDED.current_load, max_concurrent=EXCLUDED.max_concurrent`
	_, err = r.pool.Exec(ctx, query,
		expert.ID,
		expert.Name,
		domain.NormalizeTags(expert.ExpertiseTags),
		ratings,
		expert.Available,
		expert.CurrentLoad,
		expert.MaxConcurrent,
	)
	return err
}

func (r *pgDirectoryRepository) ListExperts(ctx context.Context) ([]domain.Expert, error) {
	const query = `
        SELECT id, name, expertise_tags, skill_ratings, available, current_load, max_concurrent
        FROM experts ORDER BY id`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var experts []domain.Expert
	for rows.Next() {
		expert, err := scanExpert(rows)
		if err != nil {
			return nil, err
		}
		experts = append(experts, *expert)
	}
	return experts, rows.Err()
}

func (r *pgDirectoryRepository) GetUserPriority(ctx context.Context, userID string) (*domain.UserPriority, error) {
	const query = `SELECT user_id, level, tags FROM user_priorities WHERE user_id=$1`
	var priority domain.UserPriority
	err := r.pool.QueryRow(ctx, query, userID).Scan(&priority.UserID, &priority.Level, &priority.Tags)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user priority %s: %w", userID, ErrNotFound)
		}
		return nil, err
	}
	return &priority, nil
}

func (r *pgDirectoryRepository) PutUserPriority(ctx context.Context, priority *domain.UserPriority) error {
	const query = `
        INSERT INTO user_priorities (user_id, level, tags)
        VALUES ($1,$2,$3)
        ON CONFLICT (user_id) DO UPDATE SET level=EXCLUDED.level, tags=EXCLUDED.tags`
	_, err := r.pool.Exec(ctx, query, priority.UserID, priority.Level, priority.Tags)
	return err
}

func (r *pgDirectoryRepository) ListUserPriorities(ctx context.Context) ([]domain.UserPriority, error) {
	const query = `SELECT user_id, level, tags FROM user_priorities ORDER BY user_id`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var priorities []domain.UserPriority
	for rows.Next() {
		var priority domain.UserPriority
		if err := rows.Scan(&priority.UserID, &priority.Level, &priority.Tags); err != nil {
			return nil, err
		}
		priorities = append(priorities, priority)
	}
	return priorities, rows.Err()
}

func scanExpert(row rowScanner) (*domain.Expert, error) {
	var (
		expert  domain.Expert
		ratings []byte
	)
	if err := row.Scan(
		&expert.ID,
		&expert.Name,
		&expert.ExpertiseTags,
		&ratings,
		&expert.Available,
		&expert.CurrentLoad,
		&expert.MaxConcurrent,
	); err != nil {
		return nil, err
	}
	if len(ratings) > 0 {
		if err := json.Unmarshal(ratings, &expert.SkillRatings); err != nil {
			return nil, fmt.Errorf("unmarshal skill ratings for %s: %w", expert.ID, err)
		}
	}
	return &expert, nil
}
