// Package hunt runs one hunt per ticket: ranked candidates are paged in
// waves until an expert claims the ticket, the wave budget runs out, or the
// hunt is cancelled. Each hunt is a single goroutine owning its ticket's
// state machine; only claim resolution crosses task boundaries and is
// serialized by a per-ticket lock.
package hunt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/sme-router/internal/config"
	"github.com/spec-kit/sme-router/internal/directory"
	"github.com/spec-kit/sme-router/internal/domain"
	"github.com/spec-kit/sme-router/internal/events"
	"github.com/spec-kit/sme-router/internal/notify"
	"github.com/spec-kit/sme-router/internal/observability"
	"github.com/spec-kit/sme-router/internal/repository"
	apperrors "github.com/spec-kit/sme-router/pkg/util"
)

// Config governs wave paging, escalation and fallback behavior.
type Config struct {
	WaveTimeout          time.Duration
	MaxWaves             int
	Rebroadcast          bool
	HighUrgencyThreshold int
	VIPWaveWidth         int
	FallbackChannel      string
	BotName              string
}

// ConfigFrom derives the engine config from the service configuration.
func ConfigFrom(hc config.HuntConfig, cc config.ChatConfig) Config {
	return Config{
		WaveTimeout:          hc.WaveTimeout(),
		MaxWaves:             hc.MaxWaves,
		Rebroadcast:          hc.Rebroadcast,
		HighUrgencyThreshold: hc.HighUrgencyThreshold,
		VIPWaveWidth:         hc.VIPWaveWidth,
		FallbackChannel:      cc.FallbackChannel,
		BotName:              cc.BotName,
	}
}

// Dependencies bundles engine collaborators.
type Dependencies struct {
	Tickets    repository.TicketRepository
	Directory  *directory.Service
	Notifier   notify.Notifier
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// huntState is the engine-internal state of one running hunt. It exists only
// while the hunt goroutine runs; everything it mirrors lives on the ticket.
type huntState struct {
	ticketID string
	// ticket is the authoritative in-memory copy while the hunt runs. All
	// reads and writes of it happen under mu; the repository holds the
	// durable mirror.
	ticket    *domain.Ticket
	mu        *sync.Mutex
	claimedCh chan string
	cancelCh  chan string
}

// Engine orchestrates hunts.
type Engine struct {
	cfg        Config
	tickets    repository.TicketRepository
	directory  *directory.Service
	notifier   notify.Notifier
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger

	mu          sync.Mutex
	hunts       map[string]*huntState
	ticketLocks map[string]*sync.Mutex

	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup
}

// NewEngine creates the hunt engine.
func NewEngine(cfg Config, deps Dependencies) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		cfg:         cfg,
		tickets:     deps.Tickets,
		directory:   deps.Directory,
		notifier:    deps.Notifier,
		dispatcher:  deps.Dispatcher,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		hunts:       make(map[string]*huntState),
		ticketLocks: make(map[string]*sync.Mutex),
		baseCtx:     ctx,
		stop:        cancel,
	}
}

// lockForTicket returns the mutex serializing state changes for one ticket.
// Lock order across the engine is always ticket lock before expert lock.
func (e *Engine) lockForTicket(ticketID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.ticketLocks[ticketID]
	if !ok {
		lock = &sync.Mutex{}
		e.ticketLocks[ticketID] = lock
	}
	return lock
}

func (e *Engine) activeHunt(ticketID string) *huntState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hunts[ticketID]
}

func (e *Engine) removeHunt(ticketID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.hunts, ticketID)
}

// StartHunt transitions the ticket to HUNTING and launches its hunt task.
// Idempotent for tickets that already have a running hunt.
func (e *Engine) StartHunt(ctx context.Context, ticket *domain.Ticket) error {
	lock := e.lockForTicket(ticket.ID)
	lock.Lock()

	if e.activeHunt(ticket.ID) != nil {
		lock.Unlock()
		return nil
	}

	err := ticket.Transition(domain.TicketStatusHunting)
	if err == nil {
		err = e.tickets.Update(ctx, ticket)
	}
	if err != nil {
		lock.Unlock()
		return apperrors.NewStoreUnavailable("start hunt", err)
	}

	// The hunt task owns its own copy; callers keep theirs for response
	// rendering without racing the run loop.
	owned := *ticket
	owned.NotifiedExpertIDs = append([]string(nil), ticket.NotifiedExpertIDs...)
	state := &huntState{
		ticketID:  ticket.ID,
		ticket:    &owned,
		mu:        lock,
		claimedCh: make(chan string, 1),
		cancelCh:  make(chan string, 1),
	}

	// Claim and Cancel dereference the active hunt's ticket the moment it
	// appears in the map, so the state is published only fully formed.
	e.mu.Lock()
	e.hunts[ticket.ID] = state
	e.mu.Unlock()
	lock.Unlock()

	e.publish(events.Event{
		Type:     events.EventHuntStarted,
		TicketID: ticket.ID,
	})

	e.wg.Add(1)
	go e.run(state, state.ticket)
	return nil
}

// Claim resolves an expert's attempt to take a ticket. At most one claim per
// ticket is ever accepted; losers see ALREADY_CLAIMED, un-paged or
// at-capacity experts see NOT_ELIGIBLE, and claims against expired or
// cancelled tickets can never resurrect them.
func (e *Engine) Claim(ctx context.Context, ticketID, expertID string) (domain.ClaimResult, error) {
	lock := e.lockForTicket(ticketID)
	lock.Lock()
	defer lock.Unlock()

	var ticket *domain.Ticket
	if state := e.activeHunt(ticketID); state != nil {
		ticket = state.ticket
	} else {
		loaded, err := e.tickets.GetByID(ctx, ticketID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.ClaimUnknownTicket, nil
			}
			return "", apperrors.NewStoreUnavailable("get ticket", err)
		}
		ticket = loaded
	}

	switch ticket.Status {
	case domain.TicketStatusClaimed, domain.TicketStatusResolved:
		return e.rejectClaim(ticket, expertID, domain.ClaimAlreadyClaimed), nil
	case domain.TicketStatusHunting:
		// fall through to validation
	default:
		return e.rejectClaim(ticket, expertID, domain.ClaimNotEligible), nil
	}

	if !ticket.Notified(expertID) {
		return e.rejectClaim(ticket, expertID, domain.ClaimNotEligible), nil
	}

	// Reserve persists the load increment before the claim is recorded, so
	// an expert can never end up over capacity even if we crash in between.
	if err := e.directory.Reserve(ctx, expertID); err != nil {
		if errors.Is(err, directory.ErrAtCapacity) || errors.Is(err, repository.ErrNotFound) {
			return e.rejectClaim(ticket, expertID, domain.ClaimNotEligible), nil
		}
		return "", err
	}

	ticket.ClaimedBy = expertID
	if err := ticket.Transition(domain.TicketStatusClaimed); err != nil {
		_ = e.directory.Release(ctx, expertID)
		return "", apperrors.NewInternalError(err)
	}
	if err := e.tickets.Update(ctx, ticket); err != nil {
		_ = e.directory.Release(ctx, expertID)
		return "", apperrors.NewStoreUnavailable("update ticket", err)
	}

	e.publish(events.Event{
		Type:     events.EventTicketClaimed,
		TicketID: ticket.ID,
		Payload:  events.TicketClaimedPayload{ExpertID: expertID, Wave: ticket.HuntWave},
	})
	e.metrics.RecordHuntOutcome(string(domain.TicketStatusClaimed))

	if state := e.activeHunt(ticketID); state != nil {
		select {
		case state.claimedCh <- expertID:
		default:
		}
	}
	return domain.ClaimAccepted, nil
}

func (e *Engine) rejectClaim(ticket *domain.Ticket, expertID string, result domain.ClaimResult) domain.ClaimResult {
	e.publish(events.Event{
		Type:     events.EventClaimRejected,
		TicketID: ticket.ID,
		Payload:  events.ClaimRejectedPayload{ExpertID: expertID, Result: result},
	})
	return result
}

// Cancel drives a ticket to the CANCELLED terminal, interrupting its hunt.
// No pages go out after cancellation is observed; pages already in flight
// from the current wave are not recalled.
func (e *Engine) Cancel(ctx context.Context, ticketID, reason string) error {
	lock := e.lockForTicket(ticketID)
	lock.Lock()
	defer lock.Unlock()

	var ticket *domain.Ticket
	if state := e.activeHunt(ticketID); state != nil {
		ticket = state.ticket
	} else {
		loaded, err := e.tickets.GetByID(ctx, ticketID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
			}
			return apperrors.NewStoreUnavailable("get ticket", err)
		}
		ticket = loaded
	}
	if ticket.Status.IsTerminal() || ticket.Status == domain.TicketStatusClaimed {
		return apperrors.NewConflict("ticket can no longer be cancelled",
			map[string]any{"ticket_id": ticketID, "status": ticket.Status})
	}

	if err := ticket.Transition(domain.TicketStatusCancelled); err != nil {
		return apperrors.NewInternalError(err)
	}
	if err := e.tickets.Update(ctx, ticket); err != nil {
		return apperrors.NewStoreUnavailable("update ticket", err)
	}

	e.publish(events.Event{
		Type:     events.EventTicketCancelled,
		TicketID: ticket.ID,
		Payload:  events.TicketCancelledPayload{Reason: reason},
	})
	e.metrics.RecordHuntOutcome(string(domain.TicketStatusCancelled))

	if state := e.activeHunt(ticketID); state != nil {
		select {
		case state.cancelCh <- reason:
		default:
		}
	}
	return nil
}

// Resolve accepts the external "issue resolved" event for a claimed ticket
// and releases the expert's load.
func (e *Engine) Resolve(ctx context.Context, ticketID string) error {
	lock := e.lockForTicket(ticketID)
	lock.Lock()
	defer lock.Unlock()

	ticket, err := e.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return apperrors.NewStoreUnavailable("get ticket", err)
	}
	if ticket.Status != domain.TicketStatusClaimed {
		return apperrors.NewConflict("only claimed tickets can be resolved",
			map[string]any{"ticket_id": ticketID, "status": ticket.Status})
	}

	expertID := ticket.ClaimedBy
	if err := ticket.Transition(domain.TicketStatusResolved); err != nil {
		return apperrors.NewInternalError(err)
	}
	if err := e.tickets.Update(ctx, ticket); err != nil {
		return apperrors.NewStoreUnavailable("update ticket", err)
	}
	if err := e.directory.Release(ctx, expertID); err != nil {
		e.logger.Error("release expert load", zap.String("expert_id", expertID), zap.Error(err))
	}

	e.publish(events.Event{
		Type:     events.EventTicketResolved,
		TicketID: ticket.ID,
		Payload:  events.TicketResolvedPayload{ExpertID: expertID},
	})
	e.metrics.RecordHuntOutcome(string(domain.TicketStatusResolved))
	return nil
}

// Resume relaunches hunts for tickets left in HUNTING by a previous run.
// Hunts whose wave deadline already passed re-enter escalation immediately.
func (e *Engine) Resume(ctx context.Context) error {
	tickets, err := e.tickets.ListWithFilter(ctx, repository.TicketFilter{
		Statuses: []domain.TicketStatus{domain.TicketStatusHunting},
	})
	if err != nil {
		return apperrors.NewStoreUnavailable("list hunting tickets", err)
	}

	for i := range tickets {
		ticket := tickets[i]
		lock := e.lockForTicket(ticket.ID)
		e.mu.Lock()
		if _, exists := e.hunts[ticket.ID]; exists {
			e.mu.Unlock()
			continue
		}
		state := &huntState{
			ticketID:  ticket.ID,
			ticket:    &ticket,
			mu:        lock,
			claimedCh: make(chan string, 1),
			cancelCh:  make(chan string, 1),
		}
		e.hunts[ticket.ID] = state
		e.mu.Unlock()

		e.logger.Info("resuming hunt",
			zap.String("ticket_id", ticket.ID),
			zap.Int("hunt_wave", ticket.HuntWave))
		e.wg.Add(1)
		go e.run(state, &ticket)
	}
	if len(tickets) > 0 {
		e.logger.Info("hunts resumed", zap.Int("count", len(tickets)))
	}
	return nil
}

// Shutdown stops all hunt tasks and waits for them to exit. In-progress
// hunts stay in HUNTING and are resumed on the next start.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.stop()
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("hunt engine shutdown: %w", ctx.Err())
	}
}

func (e *Engine) publish(event events.Event) {
	if e.dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Timestamp = time.Now().UTC()
	_ = e.dispatcher.Publish(e.baseCtx, event)
}
