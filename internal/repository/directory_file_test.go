package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/sme-router/internal/domain"
	"github.com/spec-kit/sme-router/internal/storage"
)

func newDirectoryRepo(t *testing.T) DirectoryRepository {
	t.Helper()
	store, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)
	return NewFileDirectoryRepository(store)
}

func TestExpertPutAndGet(t *testing.T) {
	repo := newDirectoryRepo(t)
	ctx := context.Background()

	expert := &domain.Expert{
		ID:            "E1",
		Name:          "Dana",
		ExpertiseTags: []string{"VPN", "Networking"},
		SkillRatings:  map[string]int{"vpn": 5},
		Available:     true,
		MaxConcurrent: 3,
	}
	require.NoError(t, repo.PutExpert(ctx, expert))

	got, err := repo.GetExpert(ctx, "E1")
	require.NoError(t, err)
	assert.Equal(t, "Dana", got.Name)
	// Tags are normalized on write.
	assert.Equal(t, []string{"vpn", "networking"}, got.ExpertiseTags)
}

func TestExpertGetMissing(t *testing.T) {
	repo := newDirectoryRepo(t)
	_, err := repo.GetExpert(context.Background(), "E-missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExpertListIsSortedAndStable(t *testing.T) {
	repo := newDirectoryRepo(t)
	ctx := context.Background()

	for _, id := range []string{"E3", "E1", "E2"} {
		require.NoError(t, repo.PutExpert(ctx, &domain.Expert{
			ID: id, Name: id, Available: true, MaxConcurrent: 3,
		}))
	}

	experts, err := repo.ListExperts(ctx)
	require.NoError(t, err)
	require.Len(t, experts, 3)
	assert.Equal(t, "E1", experts[0].ID)
	assert.Equal(t, "E2", experts[1].ID)
	assert.Equal(t, "E3", experts[2].ID)
}

func TestExpertPutReplacesExisting(t *testing.T) {
	repo := newDirectoryRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.PutExpert(ctx, &domain.Expert{ID: "E1", Name: "v1", Available: true, MaxConcurrent: 3}))
	require.NoError(t, repo.PutExpert(ctx, &domain.Expert{ID: "E1", Name: "v2", Available: false, MaxConcurrent: 5}))

	got, err := repo.GetExpert(ctx, "E1")
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Name)
	assert.False(t, got.Available)
	assert.Equal(t, 5, got.MaxConcurrent)

	experts, err := repo.ListExperts(ctx)
	require.NoError(t, err)
	assert.Len(t, experts, 1)
}

func TestUserPriorityRoundTrip(t *testing.T) {
	repo := newDirectoryRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.PutUserPriority(ctx, &domain.UserPriority{
		UserID: "U-ceo",
		Level:  domain.PriorityVIP,
	}))

	got, err := repo.GetUserPriority(ctx, "U-ceo")
	require.NoError(t, err)
	assert.Equal(t, domain.PriorityVIP, got.Level)

	_, err = repo.GetUserPriority(ctx, "U-nobody")
	assert.ErrorIs(t, err, ErrNotFound)

	all, err := repo.ListUserPriorities(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
