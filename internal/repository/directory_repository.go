package repository

import (
	"context"

	"github.com/spec-kit/sme-router/internal/domain"
)

// DirectoryRepository persists the expert roster and requester priority
// tiers. Experts and priorities are stored as whole-collection snapshots
// keyed by stable id; no business logic lives here.
type DirectoryRepository interface {
	GetExpert(ctx context.Context, id string) (*domain.Expert, error)
	PutExpert(ctx context.Context, expert *domain.Expert) error
	ListExperts(ctx context.Context) ([]domain.Expert, error)

	GetUserPriority(ctx context.Context, userID string) (*domain.UserPriority, error)
	PutUserPriority(ctx context.Context, priority *domain.UserPriority) error
	ListUserPriorities(ctx context.Context) ([]domain.UserPriority, error)
}
