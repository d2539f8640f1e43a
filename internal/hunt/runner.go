package hunt

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/sme-router/internal/domain"
	"github.com/spec-kit/sme-router/internal/events"
	"github.com/spec-kit/sme-router/internal/matcher"
	"github.com/spec-kit/sme-router/internal/notify"
)

// run is the hunt task for one ticket. It is the only goroutine that pages
// experts for the ticket; status transitions it performs happen under the
// ticket lock shared with Claim and Cancel.
func (e *Engine) run(h *huntState, ticket *domain.Ticket) {
	defer e.wg.Done()
	defer e.removeHunt(h.ticketID)

	log := e.logger.With(zap.String("ticket_id", ticket.ID))

	candidates, err := e.directory.Snapshot(e.baseCtx)
	if err != nil {
		log.Error("expert snapshot failed, aborting hunt", zap.Error(err))
		e.notifyRequester(ticket, "We hit a problem while looking for an expert. Please try again shortly.")
		return
	}
	ranked := matcher.Rank(ticket.ExpertiseTags, candidates, ticket.UserPriority)
	if len(ranked) == 0 {
		log.Info("no eligible experts, escalating to fallback channel")
		e.expire(h, ticket, "no eligible experts")
		return
	}

	// A prior run may have left a wave in flight. Honor its deadline before
	// paging anyone new.
	if ticket.HuntWave > 0 && ticket.WaveDeadline != nil {
		if remaining := time.Until(*ticket.WaveDeadline); remaining > 0 {
			if done := e.wait(h, ticket, remaining); done {
				return
			}
		}
	}

	rebroadcast := false
	for {
		if ticket.HuntWave >= e.cfg.MaxWaves {
			e.expire(h, ticket, "wave budget exhausted")
			return
		}

		batch := nextUnnotified(ranked, ticket, e.waveWidth(ticket))
		if len(batch) == 0 {
			// Every candidate has been paged once. A single rebroadcast
			// re-pages the full ranked list before giving up.
			if e.cfg.Rebroadcast && !rebroadcast {
				rebroadcast = true
				batch = ranked
			} else {
				e.expire(h, ticket, "no expert claimed")
				return
			}
		}

		deadline := time.Now().UTC().Add(e.cfg.WaveTimeout)
		h.mu.Lock()
		if ticket.Status != domain.TicketStatusHunting {
			h.mu.Unlock()
			e.drainOutcome(h, ticket)
			return
		}
		ticket.MarkNotified(batch, deadline)
		err := e.tickets.Update(e.baseCtx, ticket)
		h.mu.Unlock()
		if err != nil {
			log.Error("persist wave state failed, aborting hunt", zap.Error(err))
			e.notifyRequester(ticket, "We hit a problem while looking for an expert. Please try again shortly.")
			return
		}

		for _, expertID := range batch {
			if err := e.notifier.Notify(e.baseCtx, expertID, ticket.ID, e.pageMessage(ticket)); err != nil {
				log.Warn("page failed", zap.String("expert_id", expertID), zap.Error(err))
			}
		}
		e.publish(events.Event{
			Type:     events.EventWaveSent,
			TicketID: ticket.ID,
			Payload:  events.WaveSentPayload{Wave: ticket.HuntWave, ExpertIDs: batch, Deadline: deadline},
		})
		log.Info("wave sent",
			zap.Int("wave", ticket.HuntWave),
			zap.Strings("expert_ids", batch))

		if done := e.wait(h, ticket, e.cfg.WaveTimeout); done {
			return
		}
	}
}

// wait blocks until the current wave times out or the hunt ends. It returns
// true when the hunt is over and the run loop should exit.
func (e *Engine) wait(h *huntState, ticket *domain.Ticket, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case expertID := <-h.claimedCh:
		e.announceClaim(ticket, expertID)
		return true
	case <-h.cancelCh:
		return true
	case <-timer.C:
		return false
	case <-e.baseCtx.Done():
		// Shutdown. The ticket stays HUNTING and is resumed next start.
		return true
	}
}

// expire marks the ticket EXPIRED and broadcasts it to the fallback channel
// exactly once.
func (e *Engine) expire(h *huntState, ticket *domain.Ticket, reason string) {
	h.mu.Lock()
	if ticket.Status != domain.TicketStatusHunting {
		h.mu.Unlock()
		e.drainOutcome(h, ticket)
		return
	}
	if err := ticket.Transition(domain.TicketStatusExpired); err != nil {
		h.mu.Unlock()
		e.logger.Error("expire transition", zap.String("ticket_id", ticket.ID), zap.Error(err))
		return
	}
	err := e.tickets.Update(e.baseCtx, ticket)
	h.mu.Unlock()
	if err != nil {
		e.logger.Error("persist expiry failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
		e.notifyRequester(ticket, "We hit a problem while looking for an expert. Please try again shortly.")
		return
	}

	e.publish(events.Event{
		Type:     events.EventTicketExpired,
		TicketID: ticket.ID,
		Payload:  events.TicketExpiredPayload{WavesIssued: ticket.HuntWave, Reason: reason},
	})
	e.metrics.RecordHuntOutcome(string(domain.TicketStatusExpired))

	if err := e.notifier.Notify(e.baseCtx, e.cfg.FallbackChannel, ticket.ID,
		e.fallbackMessage(ticket, reason)); err != nil {
		e.logger.Error("fallback broadcast failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
	}
	e.publish(events.Event{
		Type:     events.EventFallbackBroadcast,
		TicketID: ticket.ID,
		Payload:  events.FallbackBroadcastPayload{Channel: e.cfg.FallbackChannel},
	})
	e.notifyRequester(ticket,
		"We couldn't reach an expert directly, so your request was escalated to the support channel. Someone will pick it up there.")
}

// drainOutcome consumes a claim signal that raced with a wave timeout so the
// winner still gets announced.
func (e *Engine) drainOutcome(h *huntState, ticket *domain.Ticket) {
	select {
	case expertID := <-h.claimedCh:
		e.announceClaim(ticket, expertID)
	default:
	}
}

// announceClaim tells the requester who took the ticket and stands down the
// experts who were paged but lost the race.
func (e *Engine) announceClaim(ticket *domain.Ticket, expertID string) {
	expertName := expertID
	if expert, err := e.directory.Expert(e.baseCtx, expertID); err == nil && expert != nil {
		expertName = expert.Name
	}
	e.notifyRequester(ticket, fmt.Sprintf("%s has picked up your request and will follow up in this thread.", expertName))

	var losers []string
	for _, id := range ticket.NotifiedExpertIDs {
		if id != expertID {
			losers = append(losers, id)
		}
	}
	if len(losers) == 0 {
		return
	}
	msg := fmt.Sprintf("Ticket %s is already being handled by %s. Thanks for responding.", ticket.ID, expertName)
	if err := e.notifier.AnnounceOutcome(e.baseCtx, ticket.ID, notify.OutcomeClaimed, losers, msg); err != nil {
		e.logger.Warn("stand-down announce failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
	}
}

func (e *Engine) notifyRequester(ticket *domain.Ticket, message string) {
	if err := e.notifier.Notify(e.baseCtx, ticket.RequesterID, ticket.ID, message); err != nil {
		e.logger.Warn("requester notification failed",
			zap.String("ticket_id", ticket.ID), zap.Error(err))
	}
}

// waveWidth widens waves for VIP requesters and high-urgency tickets so they
// page several experts at once instead of one at a time.
func (e *Engine) waveWidth(ticket *domain.Ticket) int {
	if ticket.UserPriority == domain.PriorityVIP || ticket.UrgencyScore >= e.cfg.HighUrgencyThreshold {
		if e.cfg.VIPWaveWidth > 1 {
			return e.cfg.VIPWaveWidth
		}
	}
	return 1
}

// nextUnnotified picks the next batch of ranked experts that have not been
// paged for this ticket yet, preserving rank order.
func nextUnnotified(ranked []string, ticket *domain.Ticket, width int) []string {
	if width < 1 {
		width = 1
	}
	var batch []string
	for _, id := range ranked {
		if ticket.Notified(id) {
			continue
		}
		batch = append(batch, id)
		if len(batch) == width {
			break
		}
	}
	return batch
}

func (e *Engine) pageMessage(t *domain.Ticket) string {
	tags := strings.Join(t.ExpertiseTags, ", ")
	if tags == "" {
		tags = "general"
	}
	return fmt.Sprintf("%s: ticket %s needs help with %s (priority %s). Reply `/claim %s` to take it.",
		e.cfg.BotName, t.ID, tags, t.Priority, t.ID)
}

func (e *Engine) fallbackMessage(t *domain.Ticket, reason string) string {
	return fmt.Sprintf("%s: ticket %s from %s needs attention (%s). %s",
		e.cfg.BotName, t.ID, t.RequesterID, reason, t.Description)
}
