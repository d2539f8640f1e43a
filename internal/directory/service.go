// Package directory fronts the expert roster and requester tiers. All
// expert-load mutation funnels through here so two tickets assigning the
// same expert in the same instant cannot overbook them.
package directory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/sme-router/internal/domain"
	"github.com/spec-kit/sme-router/internal/repository"
	apperrors "github.com/spec-kit/sme-router/pkg/util"
)

// ErrAtCapacity reports a reservation against an expert already at their
// concurrent maximum.
var ErrAtCapacity = errors.New("expert at capacity")

// Service wraps the directory repository with per-expert mutual exclusion.
type Service struct {
	repo   repository.DirectoryRepository
	logger *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService creates the directory service.
func NewService(repo repository.DirectoryRepository, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
		locks:  make(map[string]*sync.Mutex),
	}
}

// lockFor returns the mutex guarding one expert's load.
func (s *Service) lockFor(expertID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[expertID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[expertID] = lock
	}
	return lock
}

// Snapshot returns the current expert roster.
func (s *Service) Snapshot(ctx context.Context) ([]domain.Expert, error) {
	experts, err := s.repo.ListExperts(ctx)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable("list experts", err)
	}
	return experts, nil
}

// Expert returns one expert by id, nil when unknown.
func (s *Service) Expert(ctx context.Context, id string) (*domain.Expert, error) {
	expert, err := s.repo.GetExpert(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, apperrors.NewStoreUnavailable("get expert", err)
	}
	return expert, nil
}

// Reserve increments an expert's load after re-checking capacity under the
// expert's lock, and persists before returning. Callers holding a ticket
// lock must acquire it before calling here; the lock order is always
// ticket then expert.
func (s *Service) Reserve(ctx context.Context, expertID string) error {
	lock := s.lockFor(expertID)
	lock.Lock()
	defer lock.Unlock()

	expert, err := s.repo.GetExpert(ctx, expertID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("expert %s: %w", expertID, repository.ErrNotFound)
		}
		return apperrors.NewStoreUnavailable("get expert", err)
	}
	if !expert.Available || expert.AtCapacity() {
		return ErrAtCapacity
	}
	expert.CurrentLoad++
	if err := s.repo.PutExpert(ctx, expert); err != nil {
		return apperrors.NewStoreUnavailable("put expert", err)
	}
	s.logger.Debug("expert reserved",
		zap.String("expert_id", expertID),
		zap.Int("current_load", expert.CurrentLoad))
	return nil
}

// Release decrements an expert's load, flooring at zero.
func (s *Service) Release(ctx context.Context, expertID string) error {
	lock := s.lockFor(expertID)
	lock.Lock()
	defer lock.Unlock()

	expert, err := s.repo.GetExpert(ctx, expertID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return apperrors.NewStoreUnavailable("get expert", err)
	}
	if expert.CurrentLoad > 0 {
		expert.CurrentLoad--
	}
	if err := s.repo.PutExpert(ctx, expert); err != nil {
		return apperrors.NewStoreUnavailable("put expert", err)
	}
	return nil
}

// SetAvailability flips an expert's availability flag.
func (s *Service) SetAvailability(ctx context.Context, expertID string, available bool) (*domain.Expert, error) {
	lock := s.lockFor(expertID)
	lock.Lock()
	defer lock.Unlock()

	expert, err := s.repo.GetExpert(ctx, expertID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("expert", map[string]any{"expert_id": expertID})
		}
		return nil, apperrors.NewStoreUnavailable("get expert", err)
	}
	expert.Available = available
	if err := s.repo.PutExpert(ctx, expert); err != nil {
		return nil, apperrors.NewStoreUnavailable("put expert", err)
	}
	return expert, nil
}

// UpsertExpert validates and stores an expert record.
func (s *Service) UpsertExpert(ctx context.Context, expert *domain.Expert) error {
	if expert.ID == "" {
		return apperrors.NewValidationError("expert id is required", nil)
	}
	if expert.MaxConcurrent <= 0 {
		return apperrors.NewValidationError("max_concurrent must be positive",
			map[string]any{"expert_id": expert.ID})
	}
	if expert.CurrentLoad < 0 || expert.CurrentLoad > expert.MaxConcurrent {
		return apperrors.NewValidationError("current_load must be between 0 and max_concurrent",
			map[string]any{"expert_id": expert.ID})
	}

	lock := s.lockFor(expert.ID)
	lock.Lock()
	defer lock.Unlock()
	if err := s.repo.PutExpert(ctx, expert); err != nil {
		return apperrors.NewStoreUnavailable("put expert", err)
	}
	return nil
}

// PriorityFor resolves the requester's tier, defaulting to REGULAR for
// unknown users.
func (s *Service) PriorityFor(ctx context.Context, userID string) domain.PriorityLevel {
	priority, err := s.repo.GetUserPriority(ctx, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("user priority lookup failed", zap.String("user_id", userID), zap.Error(err))
		}
		return domain.PriorityRegular
	}
	return priority.Level
}

// UserPriority returns the stored tier record for a requester, nil when the
// requester has no explicit tier.
func (s *Service) UserPriority(ctx context.Context, userID string) (*domain.UserPriority, error) {
	priority, err := s.repo.GetUserPriority(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, apperrors.NewStoreUnavailable("get user priority", err)
	}
	return priority, nil
}

// SetUserPriority assigns a requester's support tier.
func (s *Service) SetUserPriority(ctx context.Context, priority *domain.UserPriority) error {
	if priority.UserID == "" {
		return apperrors.NewValidationError("user_id is required", nil)
	}
	if err := s.repo.PutUserPriority(ctx, priority); err != nil {
		return apperrors.NewStoreUnavailable("put user priority", err)
	}
	return nil
}
