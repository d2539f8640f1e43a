package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sme-router/internal/api/dto"
	"github.com/spec-kit/sme-router/internal/directory"
	"github.com/spec-kit/sme-router/internal/domain"
	apperrors "github.com/spec-kit/sme-router/pkg/util"
)

// ExpertsHandler administers the expert roster and requester tiers.
type ExpertsHandler struct {
	directory *directory.Service
}

// NewExpertsHandler constructs handler.
func NewExpertsHandler(dir *directory.Service) *ExpertsHandler {
	return &ExpertsHandler{directory: dir}
}

// ListExperts GET /experts.
func (h *ExpertsHandler) ListExperts(c *fiber.Ctx) error {
	experts, err := h.directory.Snapshot(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.ExpertResponse, 0, len(experts))
	for i := range experts {
		items = append(items, expertResponse(&experts[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetExpert GET /experts/:id.
func (h *ExpertsHandler) GetExpert(c *fiber.Ctx) error {
	expert, err := h.directory.Expert(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	if expert == nil {
		return apperrors.NewNotFound("expert", map[string]any{"expert_id": c.Params("id")})
	}
	return c.JSON(fiber.Map{"data": expertResponse(expert)})
}

// UpsertExpert PUT /experts/:id.
func (h *ExpertsHandler) UpsertExpert(c *fiber.Ctx) error {
	var req dto.UpsertExpertRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	available := true
	if req.Available != nil {
		available = *req.Available
	}
	expert := &domain.Expert{
		ID:            c.Params("id"),
		Name:          req.Name,
		ExpertiseTags: domain.NormalizeTags(req.ExpertiseTags),
		SkillRatings:  req.SkillRatings,
		Available:     available,
		MaxConcurrent: req.MaxConcurrent,
	}
	if existing, err := h.directory.Expert(c.UserContext(), expert.ID); err == nil && existing != nil {
		expert.CurrentLoad = existing.CurrentLoad
	}
	if err := h.directory.UpsertExpert(c.UserContext(), expert); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": expertResponse(expert)})
}

// SetAvailability PATCH /experts/:id/availability.
func (h *ExpertsHandler) SetAvailability(c *fiber.Ctx) error {
	var req dto.SetAvailabilityRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	expert, err := h.directory.SetAvailability(c.UserContext(), c.Params("id"), req.Available)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": expertResponse(expert)})
}

// GetUserPriority GET /users/:id/priority.
func (h *ExpertsHandler) GetUserPriority(c *fiber.Ctx) error {
	priority, err := h.directory.UserPriority(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	if priority == nil {
		priority = &domain.UserPriority{UserID: c.Params("id"), Level: domain.PriorityRegular}
	}
	return c.JSON(fiber.Map{"data": dto.UserPriorityResponse{
		UserID: priority.UserID,
		Level:  string(priority.Level),
		Tags:   priority.Tags,
	}})
}

// SetUserPriority PUT /users/:id/priority.
func (h *ExpertsHandler) SetUserPriority(c *fiber.Ctx) error {
	var req dto.SetUserPriorityRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	priority := &domain.UserPriority{
		UserID: c.Params("id"),
		Level:  domain.ParsePriorityLevel(req.Level),
		Tags:   req.Tags,
	}
	if err := h.directory.SetUserPriority(c.UserContext(), priority); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.UserPriorityResponse{
		UserID: priority.UserID,
		Level:  string(priority.Level),
		Tags:   priority.Tags,
	}})
}

func expertResponse(expert *domain.Expert) dto.ExpertResponse {
	return dto.ExpertResponse{
		ID:            expert.ID,
		Name:          expert.Name,
		ExpertiseTags: expert.ExpertiseTags,
		SkillRatings:  expert.SkillRatings,
		Available:     expert.Available,
		CurrentLoad:   expert.CurrentLoad,
		MaxConcurrent: expert.MaxConcurrent,
	}
}
