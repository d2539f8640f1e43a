package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/spec-kit/sme-router/internal/domain"
	"github.com/spec-kit/sme-router/internal/storage"
)

const (
	expertsKey        = "experts.json"
	userPrioritiesKey = "user_priorities.json"
)

// fileDirectoryRepository keeps the expert roster and requester tiers as
// whole-collection JSON snapshots, matching the flat files operators edit
// out-of-band. Each put rewrites the snapshot under a single writer lock.
type fileDirectoryRepository struct {
	store storage.Store
	mu    sync.Mutex
}

// NewFileDirectoryRepository instantiates the flat-file directory repository.
func NewFileDirectoryRepository(store storage.Store) DirectoryRepository {
	return &fileDirectoryRepository{store: store}
}

func (r *fileDirectoryRepository) loadExperts() (map[string]domain.Expert, error) {
	data, err := r.store.Read(expertsKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return map[string]domain.Expert{}, nil
		}
		return nil, fmt.Errorf("read experts: %w", err)
	}
	var experts []domain.Expert
	if err := json.Unmarshal(data, &experts); err != nil {
		return nil, fmt.Errorf("unmarshal experts: %w", err)
	}
	byID := make(map[string]domain.Expert, len(experts))
	for _, e := range experts {
		e.ExpertiseTags = domain.NormalizeTags(e.ExpertiseTags)
		byID[e.ID] = e
	}
	return byID, nil
}

func (r *fileDirectoryRepository) saveExperts(byID map[string]domain.Expert) error {
	experts := make([]domain.Expert, 0, len(byID))
	for _, e := range byID {
		experts = append(experts, e)
	}
	sort.Slice(experts, func(i, j int) bool { return experts[i].ID < experts[j].ID })
	data, err := json.MarshalIndent(experts, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal experts: %w", err)
	}
	if err := r.store.Write(expertsKey, data); err != nil {
		return fmt.Errorf("write experts: %w", err)
	}
	return nil
}

func (r *fileDirectoryRepository) GetExpert(ctx context.Context, id string) (*domain.Expert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byID, err := r.loadExperts()
	if err != nil {
		return nil, err
	}
	expert, ok := byID[id]
	if !ok {
		return nil, fmt.Errorf("expert %s: %w", id, ErrNotFound)
	}
	return &expert, nil
}

func (r *fileDirectoryRepository) PutExpert(ctx context.Context, expert *domain.Expert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	byID, err := r.loadExperts()
	if err != nil {
		return err
	}
	clone := *expert
	clone.ExpertiseTags = domain.NormalizeTags(clone.ExpertiseTags)
	byID[expert.ID] = clone
	return r.saveExperts(byID)
}

func (r *fileDirectoryRepository) ListExperts(ctx context.Context) ([]domain.Expert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byID, err := r.loadExperts()
	if err != nil {
		return nil, err
	}
	experts := make([]domain.Expert, 0, len(byID))
	for _, e := range byID {
		experts = append(experts, e)
	}
	sort.Slice(experts, func(i, j int) bool { return experts[i].ID < experts[j].ID })
	return experts, nil
}

func (r *fileDirectoryRepository) loadUserPriorities() (map[string]domain.UserPriority, error) {
	data, err := r.store.Read(userPrioritiesKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return map[string]domain.UserPriority{}, nil
		}
		return nil, fmt.Errorf("read user priorities: %w", err)
	}
	var priorities []domain.UserPriority
	if err := json.Unmarshal(data, &priorities); err != nil {
		return nil, fmt.Errorf("unmarshal user priorities: %w", err)
	}
	byID := make(map[string]domain.UserPriority, len(priorities))
	for _, p := range priorities {
		byID[p.UserID] = p
	}
	return byID, nil
}

func (r *fileDirectoryRepository) GetUserPriority(ctx context.Context, userID string) (*domain.UserPriority, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byID, err := r.loadUserPriorities()
	if err != nil {
		return nil, err
	}
	priority, ok := byID[userID]
	if !ok {
		return nil, fmt.Errorf("user priority %s: %w", userID, ErrNotFound)
	}
	return &priority, nil
}

func (r *fileDirectoryRepository) PutUserPriority(ctx context.Context, priority *domain.UserPriority) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	byID, err := r.loadUserPriorities()
	if err != nil {
		return err
	}
	byID[priority.UserID] = *priority

	priorities := make([]domain.UserPriority, 0, len(byID))
	for _, p := range byID {
		priorities = append(priorities, p)
	}
	sort.Slice(priorities, func(i, j int) bool { return priorities[i].UserID < priorities[j].UserID })
	data, err := json.MarshalIndent(priorities, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal user priorities: %w", err)
	}
	if err := r.store.Write(userPrioritiesKey, data); err != nil {
		return fmt.Errorf("write user priorities: %w", err)
	}
	return nil
}

func (r *fileDirectoryRepository) ListUserPriorities(ctx context.Context) ([]domain.UserPriority, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byID, err := r.loadUserPriorities()
	if err != nil {
		return nil, err
	}
	priorities := make([]domain.UserPriority, 0, len(byID))
	for _, p := range byID {
		priorities = append(priorities, p)
	}
	sort.Slice(priorities, func(i, j int) bool { return priorities[i].UserID < priorities[j].UserID })
	return priorities, nil
}
