package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/sme-router/internal/domain"
	"github.com/spec-kit/sme-router/internal/storage"
)

func newTicketRepo(t *testing.T) TicketRepository {
	t.Helper()
	store, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)
	return NewFileTicketRepository(store)
}

func sampleTicket(id string, status domain.TicketStatus) *domain.Ticket {
	now := time.Now().UTC().Truncate(time.Second)
	return &domain.Ticket{
		ID:             id,
		RequesterID:    "U-1",
		Description:    "vpn drops every few minutes",
		Category:       domain.CategoryTechnicalIssue,
		ExpertiseTags:  []string{"vpn"},
		UrgencyScore:   60,
		UserPriority:   domain.PriorityRegular,
		Priority:       domain.TicketPriorityMedium,
		Status:         status,
		CreatedAt:      now,
		LastActivityAt: now,
	}
}

func TestTicketCreateAndGet(t *testing.T) {
	repo := newTicketRepo(t)
	ctx := context.Background()

	ticket := sampleTicket("TCK-aaa", domain.TicketStatusOpen)
	require.NoError(t, repo.Create(ctx, ticket))

	got, err := repo.GetByID(ctx, "TCK-aaa")
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, got.ID)
	assert.Equal(t, ticket.Description, got.Description)
	assert.Equal(t, ticket.Status, got.Status)
	assert.Equal(t, ticket.ExpertiseTags, got.ExpertiseTags)
}

func TestTicketCreateDuplicateFails(t *testing.T) {
	repo := newTicketRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, sampleTicket("TCK-aaa", domain.TicketStatusOpen)))
	assert.Error(t, repo.Create(ctx, sampleTicket("TCK-aaa", domain.TicketStatusOpen)))
}

func TestTicketUpdatePersistsHuntState(t *testing.T) {
	repo := newTicketRepo(t)
	ctx := context.Background()

	ticket := sampleTicket("TCK-aaa", domain.TicketStatusOpen)
	require.NoError(t, repo.Create(ctx, ticket))

	require.NoError(t, ticket.Transition(domain.TicketStatusHunting))
	deadline := time.Now().UTC().Add(5 * time.Minute).Truncate(time.Second)
	ticket.MarkNotified([]string{"E1", "E2"}, deadline)
	require.NoError(t, repo.Update(ctx, ticket))

	got, err := repo.GetByID(ctx, "TCK-aaa")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusHunting, got.Status)
	assert.Equal(t, 1, got.HuntWave)
	assert.Equal(t, []string{"E1", "E2"}, got.NotifiedExpertIDs)
	require.NotNil(t, got.WaveDeadline)
	assert.True(t, got.WaveDeadline.Equal(deadline))
}

func TestTicketUpdateMissingFails(t *testing.T) {
	repo := newTicketRepo(t)
	err := repo.Update(context.Background(), sampleTicket("TCK-missing", domain.TicketStatusOpen))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTicketGetMissing(t *testing.T) {
	repo := newTicketRepo(t)
	_, err := repo.GetByID(context.Background(), "TCK-missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTicketListWithFilter(t *testing.T) {
	repo := newTicketRepo(t)
	ctx := context.Background()

	open := sampleTicket("TCK-aaa", domain.TicketStatusOpen)
	hunting := sampleTicket("TCK-bbb", domain.TicketStatusHunting)
	claimed := sampleTicket("TCK-ccc", domain.TicketStatusClaimed)
	claimed.ClaimedBy = "E9"
	for _, ticket := range []*domain.Ticket{open, hunting, claimed} {
		require.NoError(t, repo.Create(ctx, ticket))
	}

	got, err := repo.ListWithFilter(ctx, TicketFilter{
		Statuses: []domain.TicketStatus{domain.TicketStatusHunting},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "TCK-bbb", got[0].ID)

	claimedBy := "E9"
	got, err = repo.ListWithFilter(ctx, TicketFilter{ClaimedBy: &claimedBy})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "TCK-ccc", got[0].ID)

	got, err = repo.ListWithFilter(ctx, TicketFilter{})
	require.NoError(t, err)
	assert.Len(t, got, 3)
}
