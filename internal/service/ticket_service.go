package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/sme-router/internal/domain"
	"github.com/spec-kit/sme-router/internal/hunt"
	"github.com/spec-kit/sme-router/internal/repository"
	apperrors "github.com/spec-kit/sme-router/pkg/util"
)

// TicketServiceDependencies bundles ticket service collaborators.
type TicketServiceDependencies struct {
	Tickets repository.TicketRepository
	Engine  *hunt.Engine
	Logger  *zap.Logger
}

// TicketService exposes ticket queries and the hunt operations experts and
// operators invoke: claim, resolve, cancel, and manual hunt start.
type TicketService struct {
	tickets repository.TicketRepository
	engine  *hunt.Engine
	logger  *zap.Logger
}

// NewTicketService creates the ticket service.
func NewTicketService(deps TicketServiceDependencies) *TicketService {
	return &TicketService{
		tickets: deps.Tickets,
		engine:  deps.Engine,
		logger:  deps.Logger,
	}
}

// Get returns one ticket by ID.
func (s *TicketService) Get(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
		}
		return nil, apperrors.NewStoreUnavailable("get ticket", err)
	}
	return ticket, nil
}

// List returns tickets matching the filter.
func (s *TicketService) List(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	tickets, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable("list tickets", err)
	}
	return tickets, nil
}

// Claim races the expert against everyone else paged for the ticket. The
// returned result always carries a human-readable message; losing the race
// is a normal outcome, not an error.
func (s *TicketService) Claim(ctx context.Context, ticketID, expertID string) (domain.ClaimResult, string, error) {
	if expertID == "" {
		return "", "", apperrors.NewValidationError("expert_id is required", nil)
	}
	result, err := s.engine.Claim(ctx, ticketID, expertID)
	if err != nil {
		return "", "", err
	}
	s.logger.Info("claim processed",
		zap.String("ticket_id", ticketID),
		zap.String("expert_id", expertID),
		zap.String("result", string(result)))
	return result, result.Message(ticketID), nil
}

// Resolve marks a claimed ticket resolved and frees the expert's slot.
func (s *TicketService) Resolve(ctx context.Context, ticketID string) error {
	return s.engine.Resolve(ctx, ticketID)
}

// Cancel withdraws a ticket from hunting.
func (s *TicketService) Cancel(ctx context.Context, ticketID, reason string) error {
	return s.engine.Cancel(ctx, ticketID, reason)
}

// StartHunt manually starts a hunt for an OPEN ticket, used when intake
// decided the request was not urgent enough to page anyone automatically.
func (s *TicketService) StartHunt(ctx context.Context, ticketID string) error {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return apperrors.NewStoreUnavailable("get ticket", err)
	}
	if ticket.Status != domain.TicketStatusOpen {
		return apperrors.NewConflict("hunt can only start for open tickets",
			map[string]any{"ticket_id": ticketID, "status": ticket.Status})
	}
	return s.engine.StartHunt(ctx, ticket)
}
