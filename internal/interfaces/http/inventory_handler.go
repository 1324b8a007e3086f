package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/inkhouse/bookstock/internal/application/dto"
	"github.com/inkhouse/bookstock/internal/domain/repository"
)

// InventoryHandler serves the derived stock projection (read-only; stock only
// changes through the movement ledger).
type InventoryHandler struct {
	projections repository.ProjectionRepository
}

// NewInventoryHandler builds the handler.
func NewInventoryHandler(projections repository.ProjectionRepository) *InventoryHandler {
	return &InventoryHandler{projections: projections}
}

// List handles GET /api/inventory with optional title_id/warehouse_id filters.
func (h *InventoryHandler) List(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return badRequest(c, "invalid paging")
	}
	page.DefaultPage()

	list, err := h.projections.List(c.Context(), c.Query("title_id"), c.Query("warehouse_id"), page.Limit, page.Offset)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"inventory": dto.FromProjections(list),
		"page":      dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	})
}

// Get handles GET /api/inventory/:title_id/:warehouse_id. Keys with no
// movements yet report zero stock.
func (h *InventoryHandler) Get(c *fiber.Ctx) error {
	proj, err := h.projections.Get(c.Context(), c.Params("title_id"), c.Params("warehouse_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.FromProjection(proj))
}
