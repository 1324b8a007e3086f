package http

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/inkhouse/bookstock/internal/application/approval"
	"github.com/inkhouse/bookstock/internal/application/movement"
	"github.com/inkhouse/bookstock/internal/domain/repository"
)

// RouterDeps dependencies for the router.
type RouterDeps struct {
	Coordinator *movement.Coordinator
	Batch       *movement.BatchProcessor
	Reversal    *movement.Reversal
	Gate        *approval.Gate

	Movements   repository.MovementRepository
	Projections repository.ProjectionRepository
	Approvals   repository.ApprovalRepository

	// MetricsHandler serves GET /metrics; nil disables the endpoint.
	MetricsHandler http.Handler
}

// Router registers the API routes.
func Router(app *fiber.App, deps RouterDeps) {
	if deps.MetricsHandler != nil {
		app.Get("/metrics", adaptor.HTTPHandler(deps.MetricsHandler))
	}

	api := app.Group("/api")

	movements := api.Group("/movements")
	movementHandler := NewMovementHandler(deps.Coordinator, deps.Batch, deps.Reversal, deps.Movements)
	movements.Post("/", movementHandler.Submit)
	movements.Post("/batch", movementHandler.SubmitBatch)
	movements.Post("/:id/reverse", movementHandler.Reverse)
	movements.Get("/", movementHandler.List)
	movements.Get("/:id", movementHandler.GetByID)

	inventory := api.Group("/inventory")
	inventoryHandler := NewInventoryHandler(deps.Projections)
	inventory.Get("/", inventoryHandler.List)
	inventory.Get("/:title_id/:warehouse_id", inventoryHandler.Get)

	approvals := api.Group("/approvals")
	approvalHandler := NewApprovalHandler(deps.Gate, deps.Approvals)
	approvals.Post("/", approvalHandler.Request)
	approvals.Get("/", approvalHandler.ListPending)
	approvals.Get("/:id", approvalHandler.GetByID)
	approvals.Post("/:id/decide", approvalHandler.Decide)
	approvals.Post("/:id/escalate", approvalHandler.Escalate)
}
