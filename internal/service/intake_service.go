package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/sme-router/internal/classify"
	"github.com/spec-kit/sme-router/internal/config"
	"github.com/spec-kit/sme-router/internal/directory"
	"github.com/spec-kit/sme-router/internal/domain"
	"github.com/spec-kit/sme-router/internal/events"
	"github.com/spec-kit/sme-router/internal/hunt"
	"github.com/spec-kit/sme-router/internal/repository"
	apperrors "github.com/spec-kit/sme-router/pkg/util"
)

// SubmitRequestInput is a raw support request as it arrives from chat.
type SubmitRequestInput struct {
	RequesterID string
	ChannelID   string
	ThreadRef   string
	Text        string
}

// SubmitRequestOutput carries the created ticket and the draft first reply
// shown to the requester while the hunt runs.
type SubmitRequestOutput struct {
	Ticket     *domain.Ticket
	DraftReply string
	Degraded   bool
}

// IntakeServiceDependencies bundles intake collaborators.
type IntakeServiceDependencies struct {
	Tickets    repository.TicketRepository
	Directory  *directory.Service
	Classifier classify.Classifier
	Engine     *hunt.Engine
	Dispatcher events.Dispatcher
	Hunt       config.HuntConfig
	Logger     *zap.Logger
}

// IntakeService classifies incoming requests, records them as tickets, and
// decides whether a hunt starts immediately.
type IntakeService struct {
	tickets    repository.TicketRepository
	directory  *directory.Service
	classifier classify.Classifier
	engine     *hunt.Engine
	dispatcher events.Dispatcher
	huntCfg    config.HuntConfig
	logger     *zap.Logger
}

// NewIntakeService creates the intake service.
func NewIntakeService(deps IntakeServiceDependencies) *IntakeService {
	return &IntakeService{
		tickets:    deps.Tickets,
		directory:  deps.Directory,
		classifier: deps.Classifier,
		engine:     deps.Engine,
		dispatcher: deps.Dispatcher,
		huntCfg:    deps.Hunt,
		logger:     deps.Logger,
	}
}

// SubmitRequest runs the intake pipeline: classify, derive priority, persist
// the ticket, and kick off a hunt when the request is urgent enough.
func (s *IntakeService) SubmitRequest(ctx context.Context, input SubmitRequestInput) (*SubmitRequestOutput, error) {
	if strings.TrimSpace(input.Text) == "" {
		return nil, apperrors.NewValidationError("request text is required", nil)
	}
	if strings.TrimSpace(input.RequesterID) == "" {
		return nil, apperrors.NewValidationError("requester_id is required", nil)
	}

	classification, err := s.classifier.Classify(ctx, input.Text, input.RequesterID)
	if err != nil {
		// Only reachable without the degrading wrapper installed.
		return nil, apperrors.NewClassificationUnavailable(err)
	}

	level := s.directory.PriorityFor(ctx, input.RequesterID)
	now := time.Now().UTC()
	ticket := &domain.Ticket{
		ID:             domain.NewTicketID(),
		RequesterID:    input.RequesterID,
		ChannelID:      input.ChannelID,
		ThreadRef:      input.ThreadRef,
		Description:    strings.TrimSpace(input.Text),
		Category:       classification.Category,
		ExpertiseTags:  classification.ExpertiseTags,
		UrgencyScore:   classification.UrgencyScore,
		UserPriority:   level,
		Priority:       domain.DerivePriority(classification.UrgencyScore, level),
		Status:         domain.TicketStatusOpen,
		CreatedAt:      now,
		LastActivityAt: now,
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.NewStoreUnavailable("create ticket", err)
	}

	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTicketCreated,
		TicketID:  ticket.ID,
		Timestamp: now,
		Payload: events.TicketCreatedPayload{
			RequesterID:  ticket.RequesterID,
			Category:     ticket.Category,
			UrgencyScore: ticket.UrgencyScore,
			UserPriority: ticket.UserPriority,
			Priority:     ticket.Priority,
			Tags:         ticket.ExpertiseTags,
		},
	})

	s.logger.Info("request recorded",
		zap.String("ticket_id", ticket.ID),
		zap.String("requester_id", ticket.RequesterID),
		zap.String("category", string(ticket.Category)),
		zap.Int("urgency_score", ticket.UrgencyScore))

	if s.shouldHunt(ticket, classification) {
		if err := s.engine.StartHunt(ctx, ticket); err != nil {
			// The ticket exists; report it with the draft reply and let an
			// operator start the hunt manually.
			s.logger.Error("hunt start failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
		}
	}

	return &SubmitRequestOutput{
		Ticket:     ticket,
		DraftReply: classification.DraftReply,
		Degraded:   classification.Degraded,
	}, nil
}

// shouldHunt decides whether a new ticket goes straight to expert paging.
// Degraded classifications always hunt: with no signal about the request we
// put a human on it rather than let it idle.
func (s *IntakeService) shouldHunt(ticket *domain.Ticket, c *classify.Classification) bool {
	if c.Degraded {
		return true
	}
	if ticket.Category == domain.CategoryUrgentIssue {
		return true
	}
	return ticket.UrgencyScore >= s.huntCfg.EscalateThreshold
}
