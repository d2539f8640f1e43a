package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sme-router/internal/api/dto"
	"github.com/spec-kit/sme-router/internal/service"
	apperrors "github.com/spec-kit/sme-router/pkg/util"
)

// RequestsHandler accepts raw support requests from the chat bridge.
type RequestsHandler struct {
	intake *service.IntakeService
}

// NewRequestsHandler constructs handler.
func NewRequestsHandler(intake *service.IntakeService) *RequestsHandler {
	return &RequestsHandler{intake: intake}
}

// Submit POST /requests.
func (h *RequestsHandler) Submit(c *fiber.Ctx) error {
	var req dto.SubmitRequestRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.RequesterID == "" || req.Text == "" {
		return apperrors.NewValidationError("requester_id and text required", nil)
	}

	out, err := h.intake.SubmitRequest(c.UserContext(), service.SubmitRequestInput{
		RequesterID: req.RequesterID,
		ChannelID:   req.ChannelID,
		ThreadRef:   req.ThreadRef,
		Text:        req.Text,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.SubmitRequestResponse{
		Ticket:     ticketSummary(out.Ticket),
		DraftReply: out.DraftReply,
		Degraded:   out.Degraded,
	}})
}
