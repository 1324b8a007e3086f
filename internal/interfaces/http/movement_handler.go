package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/inkhouse/bookstock/internal/application/dto"
	"github.com/inkhouse/bookstock/internal/application/movement"
	"github.com/inkhouse/bookstock/internal/domain"
	"github.com/inkhouse/bookstock/internal/domain/repository"
)

// MovementHandler serves the movement ledger endpoints.
type MovementHandler struct {
	coordinator *movement.Coordinator
	batch       *movement.BatchProcessor
	reversal    *movement.Reversal
	movements   repository.MovementRepository
}

// NewMovementHandler builds the handler.
func NewMovementHandler(coordinator *movement.Coordinator, batch *movement.BatchProcessor, reversal *movement.Reversal, movements repository.MovementRepository) *MovementHandler {
	return &MovementHandler{coordinator: coordinator, batch: batch, reversal: reversal, movements: movements}
}

// Submit handles POST /api/movements.
func (h *MovementHandler) Submit(c *fiber.Ctx) error {
	var in dto.SubmitMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid body")
	}
	result, err := h.coordinator.Submit(c.Context(), in.ToRequest())
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromResult(result))
}

// SubmitBatch handles POST /api/movements/batch.
func (h *MovementHandler) SubmitBatch(c *fiber.Ctx) error {
	var in dto.BatchMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid body")
	}
	if len(in.Items) == 0 {
		return badRequest(c, "items must not be empty")
	}
	requests := make([]movement.Request, 0, len(in.Items))
	for _, item := range in.Items {
		requests = append(requests, item.ToRequest())
	}
	result, err := h.batch.Submit(c.Context(), requests, in.Options())
	if err != nil {
		return writeError(c, err)
	}
	// Per-item failures are entries in the result, not an HTTP error.
	status := fiber.StatusCreated
	if result.FailureCount > 0 {
		status = fiber.StatusMultiStatus
	}
	return c.Status(status).JSON(result)
}

// Reverse handles POST /api/movements/:id/reverse.
func (h *MovementHandler) Reverse(c *fiber.Ctx) error {
	id := c.Params("id")
	var in dto.ReverseMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid body")
	}

	if in.Preview {
		res, err := h.reversal.Preview(c.Context(), id, in.Reason)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(reversalResponse(res))
	}

	createCompensating := true
	if in.CreateCompensating != nil {
		createCompensating = *in.CreateCompensating
	}
	res, err := h.reversal.Reverse(c.Context(), id, in.Reason, in.ApprovedBy, createCompensating)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(reversalResponse(res))
}

func reversalResponse(res *movement.ReversalResult) dto.ReversalResponse {
	out := dto.ReversalResponse{
		Original:    dto.FromMovement(res.Original),
		Projections: dto.FromProjections(res.Projections),
	}
	if res.Compensating != nil {
		comp := dto.FromMovement(res.Compensating)
		out.Compensating = &comp
	}
	if res.Planned != nil {
		p := res.Planned
		planned := dto.SubmitMovementRequest{
			TitleID:                p.TitleID,
			WarehouseID:            p.WarehouseID,
			SourceWarehouseID:      p.SourceWarehouseID,
			DestinationWarehouseID: p.DestinationWarehouseID,
			Type:                   string(p.Type),
			Quantity:               p.Quantity,
			RRP:                    p.RRP,
			UnitCost:               p.UnitCost,
			TradeDiscount:          p.TradeDiscount,
			Notes:                  p.Notes,
		}
		out.Planned = &planned
	}
	return out
}

// GetByID handles GET /api/movements/:id.
func (h *MovementHandler) GetByID(c *fiber.Ctx) error {
	record, err := h.movements.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	if record == nil {
		return writeError(c, domain.ErrNotFound)
	}
	return c.JSON(dto.FromMovement(record))
}

// List handles GET /api/movements. Requires title_id or warehouse_id; optional
// from/to (RFC 3339) plus paging.
func (h *MovementHandler) List(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return badRequest(c, "invalid paging")
	}
	page.DefaultPage()

	from, err := parseTimeQuery(c, "from")
	if err != nil {
		return badRequest(c, "invalid from timestamp")
	}
	to, err := parseTimeQuery(c, "to")
	if err != nil {
		return badRequest(c, "invalid to timestamp")
	}

	titleID := c.Query("title_id")
	warehouseID := c.Query("warehouse_id")

	switch {
	case titleID != "":
		list, err := h.movements.ListByTitle(c.Context(), titleID, from, to, page.Limit, page.Offset)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(fiber.Map{"movements": dto.FromMovements(list), "page": dto.PageResponse{Limit: page.Limit, Offset: page.Offset}})
	case warehouseID != "":
		list, err := h.movements.ListByWarehouse(c.Context(), warehouseID, from, to, page.Limit, page.Offset)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(fiber.Map{"movements": dto.FromMovements(list), "page": dto.PageResponse{Limit: page.Limit, Offset: page.Offset}})
	default:
		return badRequest(c, "title_id or warehouse_id is required")
	}
}

func parseTimeQuery(c *fiber.Ctx, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
