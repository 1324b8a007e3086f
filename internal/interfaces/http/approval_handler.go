package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/inkhouse/bookstock/internal/application/approval"
	"github.com/inkhouse/bookstock/internal/application/dto"
	"github.com/inkhouse/bookstock/internal/domain"
	"github.com/inkhouse/bookstock/internal/domain/entity"
	"github.com/inkhouse/bookstock/internal/domain/repository"
)

// ApprovalHandler serves the risk-scored approval gate.
type ApprovalHandler struct {
	gate      *approval.Gate
	approvals repository.ApprovalRepository
}

// NewApprovalHandler builds the handler.
func NewApprovalHandler(gate *approval.Gate, approvals repository.ApprovalRepository) *ApprovalHandler {
	return &ApprovalHandler{gate: gate, approvals: approvals}
}

// Request handles POST /api/approvals: assess the candidate, auto-approve or
// park it pending a manual decision.
func (h *ApprovalHandler) Request(c *fiber.Ctx) error {
	var in dto.RequestApprovalRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid body")
	}
	req, err := h.gate.Request(c.Context(), in.ToCandidate(), in.RequestedBy)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromApproval(req))
}

// Decide handles POST /api/approvals/:id/decide.
func (h *ApprovalHandler) Decide(c *fiber.Ctx) error {
	var in dto.DecideApprovalRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid body")
	}
	req, err := h.gate.Decide(c.Context(), c.Params("id"), entity.ApprovalDecision(in.Decision), in.Actor, in.Notes)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.FromApproval(req))
}

// Escalate handles POST /api/approvals/:id/escalate.
func (h *ApprovalHandler) Escalate(c *fiber.Ctx) error {
	var in dto.EscalateApprovalRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid body")
	}
	req, err := h.gate.Escalate(c.Context(), c.Params("id"), in.Actor, in.Notes)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.FromApproval(req))
}

// GetByID handles GET /api/approvals/:id.
func (h *ApprovalHandler) GetByID(c *fiber.Ctx) error {
	req, err := h.approvals.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	if req == nil {
		return writeError(c, domain.ErrNotFound)
	}
	return c.JSON(dto.FromApproval(req))
}

// ListPending handles GET /api/approvals (undecided requests, oldest first).
func (h *ApprovalHandler) ListPending(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return badRequest(c, "invalid paging")
	}
	page.DefaultPage()

	list, err := h.approvals.ListPending(c.Context(), page.Limit, page.Offset)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"approvals": dto.FromApprovals(list),
		"page":      dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	})
}
