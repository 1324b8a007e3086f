package http_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkhouse/bookstock/internal/application/approval"
	"github.com/inkhouse/bookstock/internal/application/movement"
	"github.com/inkhouse/bookstock/internal/domain/entity"
	"github.com/inkhouse/bookstock/internal/infrastructure/memory"
	apphttp "github.com/inkhouse/bookstock/internal/interfaces/http"
	"github.com/inkhouse/bookstock/pkg/logger"
)

type testEnv struct {
	app   *fiber.App
	store *memory.Store
	title entity.Title
	wh    entity.Warehouse
	wh2   entity.Warehouse
}

func buildTestApp(t *testing.T) *testEnv {
	t.Helper()
	store := memory.New()
	env := &testEnv{
		store: store,
		title: store.AddTitle(entity.Title{ISBN: "978-3-16-148410-0", Name: "Field Notes"}),
		wh:    store.AddWarehouse(entity.Warehouse{Code: "UK-MAIN", Name: "Main", Channel: entity.WarehouseChannelMixed}),
		wh2:   store.AddWarehouse(entity.Warehouse{Code: "US-EAST", Name: "US", Channel: entity.WarehouseChannelMixed}),
	}

	log := logger.Nop()
	validator := movement.NewValidator(store.Titles(), store.Warehouses(), store.Projections(), store.Movements(), 0)
	coordinator := movement.NewCoordinator(store, validator, nil, nil, log, nil)
	batch := movement.NewBatchProcessor(coordinator, validator, 0, log, nil)
	reversal := movement.NewReversal(store.Movements(), coordinator, log)

	cfg := approval.DefaultConfig()
	cfg.BusinessHoursStart = 0
	cfg.BusinessHoursEnd = 24
	gate := approval.NewGate(store.Approvals(), store.Movements(), coordinator, cfg, log, nil)

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		Coordinator: coordinator,
		Batch:       batch,
		Reversal:    reversal,
		Gate:        gate,
		Movements:   store.Movements(),
		Projections: store.Projections(),
		Approvals:   store.Approvals(),
	})
	env.app = app
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]any
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded), "body: %s", raw)
	}
	return resp, decoded
}

func (e *testEnv) submitMovement(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	resp, decoded := e.do(t, http.MethodPost, "/api/movements/", body)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	return decoded
}

func TestSubmitMovementEndpoint(t *testing.T) {
	env := buildTestApp(t)

	decoded := env.submitMovement(t, map[string]any{
		"title_id":     env.title.ID,
		"warehouse_id": env.wh.ID,
		"type":         "PRINT_RECEIVED",
		"quantity":     100,
		"created_by":   "editor",
	})

	mov := decoded["movement"].(map[string]any)
	assert.Equal(t, "PRINT_RECEIVED", mov["type"])
	assert.Equal(t, float64(100), mov["quantity"])

	projections := decoded["projections"].([]any)
	require.Len(t, projections, 1)
	assert.Equal(t, float64(100), projections[0].(map[string]any)["current_stock"])
}

func TestSubmitMovementValidationFailure(t *testing.T) {
	env := buildTestApp(t)

	resp, decoded := env.do(t, http.MethodPost, "/api/movements/", map[string]any{
		"title_id":     env.title.ID,
		"warehouse_id": env.wh.ID,
		"type":         "ONLINE_SALES",
		"quantity":     0,
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION", decoded["code"])
	assert.NotEmpty(t, decoded["fields"])
}

func TestGetAndListMovementEndpoints(t *testing.T) {
	env := buildTestApp(t)
	created := env.submitMovement(t, map[string]any{
		"title_id":     env.title.ID,
		"warehouse_id": env.wh.ID,
		"type":         "PRINT_RECEIVED",
		"quantity":     10,
	})
	id := created["movement"].(map[string]any)["id"].(string)

	resp, decoded := env.do(t, http.MethodGet, "/api/movements/"+id, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, id, decoded["id"])

	resp, _ = env.do(t, http.MethodGet, "/api/movements/33333333-3333-3333-3333-333333333333", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, decoded = env.do(t, http.MethodGet, "/api/movements/?title_id="+env.title.ID, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, decoded["movements"].([]any), 1)

	resp, _ = env.do(t, http.MethodGet, "/api/movements/", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestBatchEndpoint(t *testing.T) {
	env := buildTestApp(t)

	item := func(typ string, qty int64) map[string]any {
		return map[string]any{
			"title_id":     env.title.ID,
			"warehouse_id": env.wh.ID,
			"type":         typ,
			"quantity":     qty,
		}
	}
	resp, decoded := env.do(t, http.MethodPost, "/api/movements/batch", map[string]any{
		"items":             []any{item("PRINT_RECEIVED", 10), item("BOGUS", 5), item("PRINT_RECEIVED", 20)},
		"continue_on_error": true,
	})
	assert.Equal(t, fiber.StatusMultiStatus, resp.StatusCode)
	assert.Equal(t, float64(3), decoded["total_requested"])
	assert.Equal(t, float64(2), decoded["success_count"])
	assert.Equal(t, float64(1), decoded["failure_count"])
}

func TestReverseEndpoint(t *testing.T) {
	env := buildTestApp(t)
	env.submitMovement(t, map[string]any{
		"title_id":     env.title.ID,
		"warehouse_id": env.wh.ID,
		"type":         "PRINT_RECEIVED",
		"quantity":     100,
	})
	sale := env.submitMovement(t, map[string]any{
		"title_id":     env.title.ID,
		"warehouse_id": env.wh.ID,
		"type":         "ONLINE_SALES",
		"quantity":     30,
	})
	saleID := sale["movement"].(map[string]any)["id"].(string)

	resp, decoded := env.do(t, http.MethodPost, fmt.Sprintf("/api/movements/%s/reverse", saleID), map[string]any{
		"reason":      "customer return",
		"approved_by": "supervisor",
	})
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	comp := decoded["compensating"].(map[string]any)
	assert.Equal(t, float64(30), comp["quantity"])

	resp, decoded = env.do(t, http.MethodGet,
		fmt.Sprintf("/api/inventory/%s/%s", env.title.ID, env.wh.ID), nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(100), decoded["current_stock"])
}

func TestInsufficientStockMapsToConflict(t *testing.T) {
	env := buildTestApp(t)
	env.submitMovement(t, map[string]any{
		"title_id":     env.title.ID,
		"warehouse_id": env.wh.ID,
		"type":         "PRINT_RECEIVED",
		"quantity":     100,
	})

	resp, decoded := env.do(t, http.MethodPost, "/api/movements/", map[string]any{
		"title_id":     env.title.ID,
		"warehouse_id": env.wh.ID,
		"type":         "ONLINE_SALES",
		"quantity":     150,
	})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Equal(t, "INSUFFICIENT_STOCK", decoded["code"])
	assert.Contains(t, decoded["message"], "available 100, requested 150")
}

func TestApprovalEndpoints(t *testing.T) {
	env := buildTestApp(t)

	resp, decoded := env.do(t, http.MethodPost, "/api/approvals/", map[string]any{
		"title_id":     env.title.ID,
		"warehouse_id": env.wh.ID,
		"type":         "PRINT_RECEIVED",
		"quantity":     5000,
		"requested_by": "editor",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, "PENDING", decoded["status"])
	id := decoded["id"].(string)

	resp, decoded = env.do(t, http.MethodGet, "/api/approvals/", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, decoded["approvals"].([]any), 1)

	resp, decoded = env.do(t, http.MethodPost, "/api/approvals/"+id+"/decide", map[string]any{
		"decision": "APPROVE",
		"actor":    "manager",
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "APPROVED", decoded["status"])
	assert.NotEmpty(t, decoded["movement_id"])

	resp, decoded = env.do(t, http.MethodGet, "/api/approvals/"+id, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "APPROVED", decoded["status"])
}
