package hunt

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/sme-router/internal/directory"
	"github.com/spec-kit/sme-router/internal/domain"
	"github.com/spec-kit/sme-router/internal/events"
	"github.com/spec-kit/sme-router/internal/notify"
	"github.com/spec-kit/sme-router/internal/repository"
	"github.com/spec-kit/sme-router/internal/storage"
)

type recordingNotifier struct {
	mu       sync.Mutex
	messages []recordedMessage
}

type recordedMessage struct {
	recipient string
	ticketID  string
	message   string
	outcome   notify.Outcome
}

func (n *recordingNotifier) Notify(_ context.Context, recipient, ticketID, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, recordedMessage{recipient: recipient, ticketID: ticketID, message: message})
	return nil
}

func (n *recordingNotifier) AnnounceOutcome(_ context.Context, ticketID string, outcome notify.Outcome, recipients []string, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, recipient := range recipients {
		n.messages = append(n.messages, recordedMessage{recipient: recipient, ticketID: ticketID, message: message, outcome: outcome})
	}
	return nil
}

func (n *recordingNotifier) countFor(recipient string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	count := 0
	for _, m := range n.messages {
		if m.recipient == recipient {
			count++
		}
	}
	return count
}

func (n *recordingNotifier) outcomeCountFor(recipient string, outcome notify.Outcome) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	count := 0
	for _, m := range n.messages {
		if m.recipient == recipient && m.outcome == outcome {
			count++
		}
	}
	return count
}

func (n *recordingNotifier) pagedFor(recipient, ticketID string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, m := range n.messages {
		if m.recipient == recipient && m.ticketID == ticketID {
			return true
		}
	}
	return false
}

func (n *recordingNotifier) received(recipient, substring string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, m := range n.messages {
		if m.recipient == recipient && strings.Contains(m.message, substring) {
			return true
		}
	}
	return false
}

type fixture struct {
	engine   *Engine
	tickets  repository.TicketRepository
	dir      *directory.Service
	notifier *recordingNotifier
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	store, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)

	tickets := repository.NewFileTicketRepository(store)
	dir := directory.NewService(repository.NewFileDirectoryRepository(store), zap.NewNop())
	notifier := &recordingNotifier{}

	engine := NewEngine(cfg, Dependencies{
		Tickets:    tickets,
		Directory:  dir,
		Notifier:   notifier,
		Dispatcher: events.NewInMemoryDispatcher(zap.NewNop()),
		Logger:     zap.NewNop(),
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = engine.Shutdown(ctx)
	})
	return &fixture{engine: engine, tickets: tickets, dir: dir, notifier: notifier}
}

func testConfig() Config {
	return Config{
		WaveTimeout:          40 * time.Millisecond,
		MaxWaves:             6,
		Rebroadcast:          false,
		HighUrgencyThreshold: 70,
		VIPWaveWidth:         3,
		FallbackChannel:      "support-requests",
		BotName:              "Atlas Support",
	}
}

func (f *fixture) seedExpert(t *testing.T, id string, tags []string, maxConcurrent int) {
	t.Helper()
	err := f.dir.UpsertExpert(context.Background(), &domain.Expert{
		ID:            id,
		Name:          "Expert " + id,
		ExpertiseTags: tags,
		SkillRatings:  map[string]int{},
		Available:     true,
		MaxConcurrent: maxConcurrent,
	})
	require.NoError(t, err)
}

func (f *fixture) newTicket(t *testing.T, tags []string, level domain.PriorityLevel) *domain.Ticket {
	t.Helper()
	now := time.Now().UTC()
	ticket := &domain.Ticket{
		ID:             domain.NewTicketID(),
		RequesterID:    "U-requester",
		Description:    "vpn will not connect",
		Category:       domain.CategoryTechnicalIssue,
		ExpertiseTags:  tags,
		UrgencyScore:   50,
		UserPriority:   level,
		Priority:       domain.DerivePriority(50, level),
		Status:         domain.TicketStatusOpen,
		CreatedAt:      now,
		LastActivityAt: now,
	}
	require.NoError(t, f.tickets.Create(context.Background(), ticket))
	return ticket
}

func (f *fixture) waitForStatus(t *testing.T, ticketID string, status domain.TicketStatus) *domain.Ticket {
	t.Helper()
	var got *domain.Ticket
	require.Eventually(t, func() bool {
		ticket, err := f.tickets.GetByID(context.Background(), ticketID)
		if err != nil {
			return false
		}
		got = ticket
		return ticket.Status == status
	}, 3*time.Second, 5*time.Millisecond)
	return got
}

func (f *fixture) waitForPage(t *testing.T, expertID string) {
	t.Helper()
	require.Eventually(t, func() bool {
		return f.notifier.countFor(expertID) > 0
	}, 3*time.Second, 5*time.Millisecond)
}

func TestClaimRaceAcceptsExactlyOne(t *testing.T) {
	f := newFixture(t, testConfig())
	experts := []string{"E1", "E2", "E3"}
	for _, id := range experts {
		f.seedExpert(t, id, []string{"vpn"}, 3)
	}

	// VIP width pages all three in the first wave.
	ticket := f.newTicket(t, []string{"vpn"}, domain.PriorityVIP)
	require.NoError(t, f.engine.StartHunt(context.Background(), ticket))
	for _, id := range experts {
		f.waitForPage(t, id)
	}

	type claimOutcome struct {
		result domain.ClaimResult
		err    error
	}
	results := make(chan claimOutcome, len(experts))
	var wg sync.WaitGroup
	for _, id := range experts {
		wg.Add(1)
		go func(expertID string) {
			defer wg.Done()
			result, err := f.engine.Claim(context.Background(), ticket.ID, expertID)
			results <- claimOutcome{result: result, err: err}
		}(id)
	}
	wg.Wait()
	close(results)

	accepted := 0
	for outcome := range results {
		require.NoError(t, outcome.err)
		if outcome.result == domain.ClaimAccepted {
			accepted++
		} else {
			require.Equal(t, domain.ClaimAlreadyClaimed, outcome.result)
		}
	}
	require.Equal(t, 1, accepted)

	stored := f.waitForStatus(t, ticket.ID, domain.TicketStatusClaimed)
	require.NotEmpty(t, stored.ClaimedBy)

	winner, err := f.dir.Expert(context.Background(), stored.ClaimedBy)
	require.NoError(t, err)
	require.Equal(t, 1, winner.CurrentLoad)
	for _, id := range experts {
		if id == stored.ClaimedBy {
			continue
		}
		loser, err := f.dir.Expert(context.Background(), id)
		require.NoError(t, err)
		require.Zero(t, loser.CurrentLoad)
	}

	// The hunt task announces the outcome after the claim lands: every paged
	// loser is stood down exactly once and the requester hears who took it.
	require.Eventually(t, func() bool {
		for _, id := range experts {
			if id == stored.ClaimedBy {
				continue
			}
			if f.notifier.outcomeCountFor(id, notify.OutcomeClaimed) != 1 {
				return false
			}
		}
		return f.notifier.received("U-requester", "picked up your request")
	}, 3*time.Second, 5*time.Millisecond)
	require.Zero(t, f.notifier.outcomeCountFor(stored.ClaimedBy, notify.OutcomeClaimed))
}

func TestHuntExpiresAfterWaveBudget(t *testing.T) {
	cfg := testConfig()
	cfg.MaxWaves = 2
	f := newFixture(t, cfg)
	f.seedExpert(t, "E1", []string{"vpn"}, 3)

	ticket := f.newTicket(t, []string{"vpn"}, domain.PriorityRegular)
	require.NoError(t, f.engine.StartHunt(context.Background(), ticket))

	stored := f.waitForStatus(t, ticket.ID, domain.TicketStatusExpired)
	require.GreaterOrEqual(t, stored.HuntWave, 1)

	// Exactly one fallback broadcast regardless of how the hunt exhausted.
	require.Eventually(t, func() bool {
		return f.notifier.countFor("support-requests") > 0
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, 1, f.notifier.countFor("support-requests"))
}

func TestNoCandidatesEscalatesWithoutPaging(t *testing.T) {
	f := newFixture(t, testConfig())
	f.seedExpert(t, "E1", []string{"vpn"}, 3)

	ticket := f.newTicket(t, []string{"mainframe"}, domain.PriorityRegular)
	require.NoError(t, f.engine.StartHunt(context.Background(), ticket))

	f.waitForStatus(t, ticket.ID, domain.TicketStatusExpired)
	require.Equal(t, 1, f.notifier.countFor("support-requests"))
	require.Zero(t, f.notifier.countFor("E1"))
}

func TestCancelStopsPaging(t *testing.T) {
	f := newFixture(t, testConfig())
	f.seedExpert(t, "E1", []string{"vpn"}, 3)
	f.seedExpert(t, "E2", []string{"vpn"}, 3)

	ticket := f.newTicket(t, []string{"vpn"}, domain.PriorityRegular)
	require.NoError(t, f.engine.StartHunt(context.Background(), ticket))
	f.waitForPage(t, "E1")

	require.NoError(t, f.engine.Cancel(context.Background(), ticket.ID, "requester withdrew"))
	f.waitForStatus(t, ticket.ID, domain.TicketStatusCancelled)

	// A wave already in flight may still land, so settle before taking the
	// baseline and then verify paging has stopped for good.
	time.Sleep(2 * testConfig().WaveTimeout)
	pagesAtCancel := f.notifier.countFor("E1") + f.notifier.countFor("E2")
	time.Sleep(4 * testConfig().WaveTimeout)
	require.Equal(t, pagesAtCancel, f.notifier.countFor("E1")+f.notifier.countFor("E2"))

	// Cancelled tickets stay cancelled.
	result, err := f.engine.Claim(context.Background(), ticket.ID, "E1")
	require.NoError(t, err)
	require.Equal(t, domain.ClaimNotEligible, result)
}

func TestClaimByUnpagedExpertRejected(t *testing.T) {
	f := newFixture(t, testConfig())
	f.seedExpert(t, "E1", []string{"vpn"}, 3)
	f.seedExpert(t, "E2", []string{"vpn"}, 3)

	// Regular priority pages one expert per wave; E2 is not paged yet.
	ticket := f.newTicket(t, []string{"vpn"}, domain.PriorityRegular)
	require.NoError(t, f.engine.StartHunt(context.Background(), ticket))
	f.waitForPage(t, "E1")

	result, err := f.engine.Claim(context.Background(), ticket.ID, "E2")
	require.NoError(t, err)
	require.Equal(t, domain.ClaimNotEligible, result)

	result, err = f.engine.Claim(context.Background(), ticket.ID, "E1")
	require.NoError(t, err)
	require.Equal(t, domain.ClaimAccepted, result)
}

func TestClaimUnknownTicket(t *testing.T) {
	f := newFixture(t, testConfig())
	result, err := f.engine.Claim(context.Background(), "TCK-missing", "E1")
	require.NoError(t, err)
	require.Equal(t, domain.ClaimUnknownTicket, result)
}

func TestResolveReleasesExpertLoad(t *testing.T) {
	f := newFixture(t, testConfig())
	f.seedExpert(t, "E1", []string{"vpn"}, 3)

	ticket := f.newTicket(t, []string{"vpn"}, domain.PriorityRegular)
	require.NoError(t, f.engine.StartHunt(context.Background(), ticket))
	f.waitForPage(t, "E1")

	result, err := f.engine.Claim(context.Background(), ticket.ID, "E1")
	require.NoError(t, err)
	require.Equal(t, domain.ClaimAccepted, result)

	require.NoError(t, f.engine.Resolve(context.Background(), ticket.ID))
	stored := f.waitForStatus(t, ticket.ID, domain.TicketStatusResolved)
	require.Equal(t, "E1", stored.ClaimedBy)

	expert, err := f.dir.Expert(context.Background(), "E1")
	require.NoError(t, err)
	require.Zero(t, expert.CurrentLoad)
}

func TestClaimAtCapacityRejectedAcrossTickets(t *testing.T) {
	f := newFixture(t, testConfig())
	f.seedExpert(t, "E1", []string{"vpn"}, 1)

	first := f.newTicket(t, []string{"vpn"}, domain.PriorityRegular)
	require.NoError(t, f.engine.StartHunt(context.Background(), first))
	f.waitForPage(t, "E1")
	result, err := f.engine.Claim(context.Background(), first.ID, "E1")
	require.NoError(t, err)
	require.Equal(t, domain.ClaimAccepted, result)

	// VIP hunts page at-capacity experts as a last resort, but the claim
	// itself still enforces the concurrency cap.
	second := f.newTicket(t, []string{"vpn"}, domain.PriorityVIP)
	require.NoError(t, f.engine.StartHunt(context.Background(), second))
	require.Eventually(t, func() bool {
		return f.notifier.countFor("E1") >= 2
	}, 3*time.Second, 5*time.Millisecond)

	result, err = f.engine.Claim(context.Background(), second.ID, "E1")
	require.NoError(t, err)
	require.Equal(t, domain.ClaimNotEligible, result)

	expert, err := f.dir.Expert(context.Background(), "E1")
	require.NoError(t, err)
	require.Equal(t, 1, expert.CurrentLoad)
}

func TestResumeContinuesInterruptedHunt(t *testing.T) {
	f := newFixture(t, testConfig())
	f.seedExpert(t, "E1", []string{"vpn"}, 3)
	f.seedExpert(t, "E2", []string{"vpn"}, 3)

	// Simulate a ticket left mid-hunt by a previous process: wave 1 went to
	// E1 and its deadline has passed.
	ticket := f.newTicket(t, []string{"vpn"}, domain.PriorityRegular)
	require.NoError(t, ticket.Transition(domain.TicketStatusHunting))
	deadline := time.Now().UTC().Add(-time.Minute)
	ticket.MarkNotified([]string{"E1"}, deadline)
	require.NoError(t, f.tickets.Update(context.Background(), ticket))

	require.NoError(t, f.engine.Resume(context.Background()))

	// The resumed hunt escalates past E1 to the next candidate.
	f.waitForPage(t, "E2")

	result, err := f.engine.Claim(context.Background(), ticket.ID, "E2")
	require.NoError(t, err)
	require.Equal(t, domain.ClaimAccepted, result)
	f.waitForStatus(t, ticket.ID, domain.TicketStatusClaimed)
}

func TestClaimDuringHuntStartupGetsValidResult(t *testing.T) {
	f := newFixture(t, testConfig())
	f.seedExpert(t, "E1", []string{"vpn"}, 3)

	type claimOutcome struct {
		result domain.ClaimResult
		err    error
	}

	// Hammer the claim path while the hunt is being registered. Whatever the
	// interleaving, a claim on a known ticket resolves to a result, never a
	// panic from a half-registered hunt.
	for i := 0; i < 25; i++ {
		ticket := f.newTicket(t, []string{"vpn"}, domain.PriorityRegular)

		startErr := make(chan error, 1)
		go func() {
			startErr <- f.engine.StartHunt(context.Background(), ticket)
		}()

		const claimers = 8
		results := make(chan claimOutcome, claimers)
		for j := 0; j < claimers; j++ {
			go func() {
				result, err := f.engine.Claim(context.Background(), ticket.ID, "E1")
				results <- claimOutcome{result: result, err: err}
			}()
		}

		require.NoError(t, <-startErr)
		for j := 0; j < claimers; j++ {
			outcome := <-results
			require.NoError(t, outcome.err)
			switch outcome.result {
			case domain.ClaimAccepted, domain.ClaimAlreadyClaimed, domain.ClaimNotEligible:
			default:
				t.Fatalf("unexpected claim result %q", outcome.result)
			}
		}
	}
}

func TestConcurrentClaimsNeverOverbookExpert(t *testing.T) {
	cfg := testConfig()
	cfg.WaveTimeout = time.Hour
	f := newFixture(t, cfg)
	f.seedExpert(t, "E1", []string{"vpn"}, 1)

	tickets := make([]*domain.Ticket, 4)
	for i := range tickets {
		tickets[i] = f.newTicket(t, []string{"vpn"}, domain.PriorityRegular)
		require.NoError(t, f.engine.StartHunt(context.Background(), tickets[i]))
	}
	for _, ticket := range tickets {
		ticketID := ticket.ID
		require.Eventually(t, func() bool {
			return f.notifier.pagedFor("E1", ticketID)
		}, 3*time.Second, 5*time.Millisecond)
	}

	type claimOutcome struct {
		result domain.ClaimResult
		err    error
	}
	results := make(chan claimOutcome, len(tickets))
	var wg sync.WaitGroup
	for _, ticket := range tickets {
		wg.Add(1)
		go func(ticketID string) {
			defer wg.Done()
			result, err := f.engine.Claim(context.Background(), ticketID, "E1")
			results <- claimOutcome{result: result, err: err}
		}(ticket.ID)
	}
	wg.Wait()
	close(results)

	accepted := 0
	for outcome := range results {
		require.NoError(t, outcome.err)
		if outcome.result == domain.ClaimAccepted {
			accepted++
		} else {
			require.Equal(t, domain.ClaimNotEligible, outcome.result)
		}
	}
	require.Equal(t, 1, accepted)

	expert, err := f.dir.Expert(context.Background(), "E1")
	require.NoError(t, err)
	require.Equal(t, 1, expert.CurrentLoad)
}

func TestRebroadcastPagesRosterOnceMore(t *testing.T) {
	cfg := testConfig()
	cfg.Rebroadcast = true
	cfg.MaxWaves = 6
	f := newFixture(t, cfg)
	f.seedExpert(t, "E1", []string{"vpn"}, 3)

	ticket := f.newTicket(t, []string{"vpn"}, domain.PriorityRegular)
	require.NoError(t, f.engine.StartHunt(context.Background(), ticket))

	f.waitForStatus(t, ticket.ID, domain.TicketStatusExpired)
	// First wave plus exactly one rebroadcast.
	require.Equal(t, 2, f.notifier.countFor("E1"))
	require.Equal(t, 1, f.notifier.countFor("support-requests"))
}
