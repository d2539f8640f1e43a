package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sme-router/internal/api/dto"
	"github.com/spec-kit/sme-router/internal/domain"
	"github.com/spec-kit/sme-router/internal/repository"
	"github.com/spec-kit/sme-router/internal/service"
	apperrors "github.com/spec-kit/sme-router/pkg/util"
)

// TicketsHandler manages ticket queries and hunt operations.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	filter := parseTicketQuery(c)
	tickets, err := h.service.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Claim POST /tickets/:id/claim. Losing the race returns 200 with the race
// outcome in the body; the expert reads the message, not a status code.
func (h *TicketsHandler) Claim(c *fiber.Ctx) error {
	var req dto.ClaimRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	result, message, err := h.service.Claim(c.UserContext(), c.Params("id"), req.ExpertID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ClaimResponse{Result: result, Message: message}})
}

// Resolve POST /tickets/:id/resolve.
func (h *TicketsHandler) Resolve(c *fiber.Ctx) error {
	if err := h.service.Resolve(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	ticket, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// Cancel POST /tickets/:id/cancel.
func (h *TicketsHandler) Cancel(c *fiber.Ctx) error {
	var req dto.CancelRequest
	_ = c.BodyParser(&req)
	if err := h.service.Cancel(c.UserContext(), c.Params("id"), req.Reason); err != nil {
		return err
	}
	ticket, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// StartHunt POST /tickets/:id/hunt.
func (h *TicketsHandler) StartHunt(c *fiber.Ctx) error {
	if err := h.service.StartHunt(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	ticket, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"data": ticketSummary(ticket)})
}

func parseTicketQuery(c *fiber.Ctx) repository.TicketFilter {
	filter := repository.TicketFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.ToUpper(strings.TrimSpace(part))))
		}
	}
	if requester := c.Query("requester_id"); requester != "" {
		filter.RequesterID = &requester
	}
	if claimedBy := c.Query("claimed_by"); claimedBy != "" {
		filter.ClaimedBy = &claimedBy
	}
	if from := parseTime(c.Query("created_from")); from != nil {
		filter.CreatedFrom = from
	}
	if to := parseTime(c.Query("created_to")); to != nil {
		filter.CreatedTo = to
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func ticketSummary(ticket *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		ID:            ticket.ID,
		RequesterID:   ticket.RequesterID,
		Category:      ticket.Category,
		ExpertiseTags: ticket.ExpertiseTags,
		UrgencyScore:  ticket.UrgencyScore,
		Priority:      ticket.Priority,
		Status:        ticket.Status,
		ClaimedBy:     ticket.ClaimedBy,
		CreatedAt:     ticket.CreatedAt,
	}
}

func ticketDetail(ticket *domain.Ticket) dto.TicketDetailResponse {
	return dto.TicketDetailResponse{
		TicketSummary:     ticketSummary(ticket),
		ChannelID:         ticket.ChannelID,
		ThreadRef:         ticket.ThreadRef,
		Description:       ticket.Description,
		UserPriority:      string(ticket.UserPriority),
		HuntWave:          ticket.HuntWave,
		WaveDeadline:      ticket.WaveDeadline,
		NotifiedExpertIDs: ticket.NotifiedExpertIDs,
		LastActivityAt:    ticket.LastActivityAt,
	}
}
