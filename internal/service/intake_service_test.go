package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/sme-router/internal/classify"
	"github.com/spec-kit/sme-router/internal/config"
	"github.com/spec-kit/sme-router/internal/directory"
	"github.com/spec-kit/sme-router/internal/domain"
	"github.com/spec-kit/sme-router/internal/events"
	"github.com/spec-kit/sme-router/internal/hunt"
	"github.com/spec-kit/sme-router/internal/notify"
	"github.com/spec-kit/sme-router/internal/repository"
	"github.com/spec-kit/sme-router/internal/storage"
)

type stubClassifier struct {
	result *classify.Classification
}

func (s *stubClassifier) Classify(context.Context, string, string) (*classify.Classification, error) {
	return s.result, nil
}

type intakeFixture struct {
	intake  *IntakeService
	tickets repository.TicketRepository
	dir     *directory.Service
}

func newIntakeFixture(t *testing.T, classification *classify.Classification) *intakeFixture {
	t.Helper()
	store, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)

	tickets := repository.NewFileTicketRepository(store)
	dir := directory.NewService(repository.NewFileDirectoryRepository(store), zap.NewNop())
	huntCfg := config.HuntConfig{
		WaveTimeoutSeconds:   3600,
		MaxWaves:             6,
		HighUrgencyThreshold: 70,
		EscalateThreshold:    40,
		VIPWaveWidth:         3,
	}
	engine := hunt.NewEngine(hunt.ConfigFrom(huntCfg, config.ChatConfig{
		BotName:         "Atlas Support",
		FallbackChannel: "support-requests",
	}), hunt.Dependencies{
		Tickets:    tickets,
		Directory:  dir,
		Notifier:   notify.NewLogNotifier(zap.NewNop()),
		Dispatcher: events.NewInMemoryDispatcher(zap.NewNop()),
		Logger:     zap.NewNop(),
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = engine.Shutdown(ctx)
	})

	// One matching expert keeps started hunts alive in HUNTING.
	require.NoError(t, dir.UpsertExpert(context.Background(), &domain.Expert{
		ID: "E1", Name: "Dana", ExpertiseTags: []string{"vpn"}, Available: true, MaxConcurrent: 3,
	}))

	intake := NewIntakeService(IntakeServiceDependencies{
		Tickets:    tickets,
		Directory:  dir,
		Classifier: &stubClassifier{result: classification},
		Engine:     engine,
		Dispatcher: events.NewInMemoryDispatcher(zap.NewNop()),
		Hunt:       huntCfg,
		Logger:     zap.NewNop(),
	})
	return &intakeFixture{intake: intake, tickets: tickets, dir: dir}
}

func TestSubmitRequestUrgentStartsHunt(t *testing.T) {
	f := newIntakeFixture(t, &classify.Classification{
		UrgencyScore:  80,
		ExpertiseTags: []string{"vpn"},
		Category:      domain.CategoryTechnicalIssue,
		DraftReply:    "On it.",
	})

	out, err := f.intake.SubmitRequest(context.Background(), SubmitRequestInput{
		RequesterID: "U-1",
		Text:        "vpn is completely down",
	})
	require.NoError(t, err)
	assert.Equal(t, "On it.", out.DraftReply)
	assert.Equal(t, domain.TicketPriorityHigh, out.Ticket.Priority)

	stored, err := f.tickets.GetByID(context.Background(), out.Ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusHunting, stored.Status)
}

func TestSubmitRequestLowUrgencyStaysOpen(t *testing.T) {
	f := newIntakeFixture(t, &classify.Classification{
		UrgencyScore: 15,
		Category:     domain.CategoryFeedback,
		DraftReply:   "Thanks for the feedback!",
	})

	out, err := f.intake.SubmitRequest(context.Background(), SubmitRequestInput{
		RequesterID: "U-1",
		Text:        "love the new dashboard",
	})
	require.NoError(t, err)

	stored, err := f.tickets.GetByID(context.Background(), out.Ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, stored.Status)
	assert.Equal(t, domain.TicketPriorityLow, stored.Priority)
}

func TestSubmitRequestUrgentCategoryAlwaysHunts(t *testing.T) {
	f := newIntakeFixture(t, &classify.Classification{
		UrgencyScore:  20,
		ExpertiseTags: []string{"vpn"},
		Category:      domain.CategoryUrgentIssue,
	})

	out, err := f.intake.SubmitRequest(context.Background(), SubmitRequestInput{
		RequesterID: "U-1",
		Text:        "prod door badge system offline",
	})
	require.NoError(t, err)

	stored, err := f.tickets.GetByID(context.Background(), out.Ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusHunting, stored.Status)
}

func TestSubmitRequestDegradedEscalatesImmediately(t *testing.T) {
	f := newIntakeFixture(t, &classify.Classification{
		UrgencyScore: 85,
		Category:     domain.CategoryOther,
		Degraded:     true,
	})

	out, err := f.intake.SubmitRequest(context.Background(), SubmitRequestInput{
		RequesterID: "U-1",
		Text:        "something is wrong",
	})
	require.NoError(t, err)
	assert.True(t, out.Degraded)

	// Degraded classifications carry no expertise tags, so the hunt has
	// nobody to page and lands in the fallback channel right away.
	require.Eventually(t, func() bool {
		stored, err := f.tickets.GetByID(context.Background(), out.Ticket.ID)
		return err == nil && stored.Status == domain.TicketStatusExpired
	}, 3*time.Second, 5*time.Millisecond)
}

func TestSubmitRequestVIPGetsPriorityBump(t *testing.T) {
	f := newIntakeFixture(t, &classify.Classification{
		UrgencyScore:  50,
		ExpertiseTags: []string{"vpn"},
		Category:      domain.CategoryTechnicalIssue,
	})
	require.NoError(t, f.dir.SetUserPriority(context.Background(), &domain.UserPriority{
		UserID: "U-ceo",
		Level:  domain.PriorityVIP,
	}))

	out, err := f.intake.SubmitRequest(context.Background(), SubmitRequestInput{
		RequesterID: "U-ceo",
		Text:        "vpn slow before board meeting",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PriorityVIP, out.Ticket.UserPriority)
	assert.Equal(t, domain.TicketPriorityHigh, out.Ticket.Priority)
}

func TestSubmitRequestRejectsEmptyText(t *testing.T) {
	f := newIntakeFixture(t, &classify.Classification{})

	_, err := f.intake.SubmitRequest(context.Background(), SubmitRequestInput{
		RequesterID: "U-1",
		Text:        "   ",
	})
	require.Error(t, err)
}
