package approval_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkhouse/bookstock/internal/application/approval"
	"github.com/inkhouse/bookstock/internal/application/movement"
	"github.com/inkhouse/bookstock/internal/domain"
	"github.com/inkhouse/bookstock/internal/domain/entity"
	"github.com/inkhouse/bookstock/internal/infrastructure/memory"
	"github.com/inkhouse/bookstock/pkg/logger"
)

type gateFixture struct {
	store *memory.Store
	title entity.Title
	wh    entity.Warehouse
	gate  *approval.Gate
}

func newGateFixture(t *testing.T) *gateFixture {
	t.Helper()
	store := memory.New()
	f := &gateFixture{
		store: store,
		title: store.AddTitle(entity.Title{ISBN: "978-0-14-118280-3", Name: "Collected Essays"}),
		wh:    store.AddWarehouse(entity.Warehouse{Code: "UK-MAIN", Name: "Main warehouse", Channel: entity.WarehouseChannelMixed}),
	}
	validator := movement.NewValidator(store.Titles(), store.Warehouses(), store.Projections(), store.Movements(), 0)
	coordinator := movement.NewCoordinator(store, validator, nil, nil, logger.Nop(), nil)

	cfg := approval.DefaultConfig()
	// Disable the wall-clock check so results do not depend on when the
	// suite runs.
	cfg.BusinessHoursStart = 0
	cfg.BusinessHoursEnd = 24
	cfg.AutoApproveTypes = append(cfg.AutoApproveTypes, entity.MovementTypeFreeCopies)

	f.gate = approval.NewGate(store.Approvals(), store.Movements(), coordinator, cfg, logger.Nop(), nil)
	return f
}

func (f *gateFixture) seedStock(t *testing.T, qty int64) {
	t.Helper()
	validator := movement.NewValidator(f.store.Titles(), f.store.Warehouses(), f.store.Projections(), f.store.Movements(), 0)
	coordinator := movement.NewCoordinator(f.store, validator, nil, nil, logger.Nop(), nil)
	_, err := coordinator.Submit(context.Background(), movement.Request{
		TitleID:     f.title.ID,
		WarehouseID: f.wh.ID,
		Type:        entity.MovementTypePrintReceived,
		Quantity:    qty,
		CreatedBy:   "seed",
	})
	require.NoError(t, err)
}

func (f *gateFixture) candidate(typ entity.MovementType, qty int64) entity.MovementCandidate {
	return entity.MovementCandidate{
		TitleID:     f.title.ID,
		WarehouseID: f.wh.ID,
		Type:        typ,
		Quantity:    qty,
	}
}

func (f *gateFixture) stock(t *testing.T) int64 {
	t.Helper()
	proj, err := f.store.Projections().Get(context.Background(), f.title.ID, f.wh.ID)
	require.NoError(t, err)
	return proj.CurrentStock
}

func TestGateAutoApprovesLowRisk(t *testing.T) {
	f := newGateFixture(t)

	req, err := f.gate.Request(context.Background(), f.candidate(entity.MovementTypePrintReceived, 10), "editor")
	require.NoError(t, err)
	assert.Equal(t, entity.ApprovalStatusApproved, req.Status)
	assert.False(t, req.RequiresManualApproval)
	assert.Equal(t, entity.SystemApprover, req.DecidedBy)
	assert.NotEmpty(t, req.MovementID)
	assert.Equal(t, int64(10), f.stock(t))
}

func TestGateHighRiskStaysPendingThenApprovesOnce(t *testing.T) {
	f := newGateFixture(t)

	rrp := decimal.NewFromInt(25)
	c := f.candidate(entity.MovementTypePrintReceived, 5000)
	c.RRP = &rrp

	req, err := f.gate.Request(context.Background(), c, "editor")
	require.NoError(t, err)
	assert.Equal(t, entity.ApprovalStatusPending, req.Status)
	assert.True(t, req.RequiresManualApproval)
	assert.GreaterOrEqual(t, req.RiskScore, 55)
	assert.Equal(t, int64(0), f.stock(t))

	decided, err := f.gate.Decide(context.Background(), req.ID, entity.DecisionApprove, "manager", "print run confirmed")
	require.NoError(t, err)
	assert.Equal(t, entity.ApprovalStatusApproved, decided.Status)
	assert.Equal(t, "manager", decided.DecidedBy)
	assert.NotEmpty(t, decided.MovementID)
	assert.Equal(t, int64(5000), f.stock(t))

	// Second APPROVE on the same id is a tolerated no-op.
	again, err := f.gate.Decide(context.Background(), req.ID, entity.DecisionApprove, "manager", "retry")
	require.NoError(t, err)
	assert.Equal(t, entity.ApprovalStatusApproved, again.Status)
	assert.Equal(t, decided.MovementID, again.MovementID)
	assert.Equal(t, int64(5000), f.stock(t))
}

func TestGateRejectCommitsNothing(t *testing.T) {
	f := newGateFixture(t)

	req, err := f.gate.Request(context.Background(), f.candidate(entity.MovementTypePrintReceived, 5000), "editor")
	require.NoError(t, err)
	require.Equal(t, entity.ApprovalStatusPending, req.Status)

	rejected, err := f.gate.Decide(context.Background(), req.ID, entity.DecisionReject, "manager", "not ordered")
	require.NoError(t, err)
	assert.Equal(t, entity.ApprovalStatusRejected, rejected.Status)
	assert.Empty(t, rejected.MovementID)
	assert.Equal(t, int64(0), f.stock(t))
}

func TestGateUnknownDecision(t *testing.T) {
	f := newGateFixture(t)
	req, err := f.gate.Request(context.Background(), f.candidate(entity.MovementTypePrintReceived, 5000), "editor")
	require.NoError(t, err)

	_, err = f.gate.Decide(context.Background(), req.ID, "MAYBE", "manager", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestGateDecideUnknownID(t *testing.T) {
	f := newGateFixture(t)
	_, err := f.gate.Decide(context.Background(), "22222222-2222-2222-2222-222222222222", entity.DecisionApprove, "manager", "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGateSensitiveTypeScoresRisk(t *testing.T) {
	f := newGateFixture(t)
	f.seedStock(t, 100)

	c := entity.MovementCandidate{
		TitleID:     f.title.ID,
		WarehouseID: f.wh.ID,
		Type:        entity.MovementTypeStockAdjustment,
		Quantity:    -5,
		Notes:       "stocktake variance correction",
	}
	req, err := f.gate.Request(context.Background(), c, "editor")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, req.RiskScore, 20)
	found := false
	for _, factor := range req.RiskFactors {
		if strings.Contains(factor, "requires review") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestGateValueFactorFires(t *testing.T) {
	f := newGateFixture(t)

	cost := decimal.NewFromInt(40)
	c := f.candidate(entity.MovementTypePrintReceived, 500)
	c.UnitCost = &cost // 500 * 40 = 20000 > 10000

	req, err := f.gate.Request(context.Background(), c, "editor")
	require.NoError(t, err)
	found := false
	for _, factor := range req.RiskFactors {
		if strings.Contains(factor, "monetary value") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestGateEscalationLadderEndsExpired(t *testing.T) {
	f := newGateFixture(t)
	req, err := f.gate.Request(context.Background(), f.candidate(entity.MovementTypePrintReceived, 5000), "editor")
	require.NoError(t, err)

	for i, level := range []string{"supervisor", "manager", "director"} {
		esc, err := f.gate.Escalate(context.Background(), req.ID, "system", "deadline passed")
		require.NoError(t, err)
		assert.Equal(t, entity.ApprovalStatusEscalated, esc.Status)
		assert.Equal(t, i, esc.EscalationLevel)
		assert.Equal(t, level, esc.EscalatedTo)
	}

	expired, err := f.gate.Escalate(context.Background(), req.ID, "system", "deadline passed")
	require.NoError(t, err)
	assert.Equal(t, entity.ApprovalStatusExpired, expired.Status)

	// Terminal: further escalation is a no-op.
	still, err := f.gate.Escalate(context.Background(), req.ID, "system", "again")
	require.NoError(t, err)
	assert.Equal(t, entity.ApprovalStatusExpired, still.Status)
}

func TestGateSweepEscalatesTimedOutRequests(t *testing.T) {
	f := newGateFixture(t)
	req, err := f.gate.Request(context.Background(), f.candidate(entity.MovementTypePrintReceived, 5000), "editor")
	require.NoError(t, err)

	// Before the deadline nothing is touched.
	n, err := f.gate.Sweep(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = f.gate.Sweep(context.Background(), time.Now().Add(25*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	swept, err := f.store.Approvals().GetByID(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ApprovalStatusEscalated, swept.Status)
	assert.Equal(t, "supervisor", swept.EscalatedTo)
}

func TestGateEscalatedRequestCanStillBeApproved(t *testing.T) {
	f := newGateFixture(t)
	req, err := f.gate.Request(context.Background(), f.candidate(entity.MovementTypePrintReceived, 5000), "editor")
	require.NoError(t, err)

	_, err = f.gate.Escalate(context.Background(), req.ID, "system", "deadline passed")
	require.NoError(t, err)

	decided, err := f.gate.Decide(context.Background(), req.ID, entity.DecisionApprove, "director", "confirmed with printer")
	require.NoError(t, err)
	assert.Equal(t, entity.ApprovalStatusApproved, decided.Status)
	assert.Equal(t, int64(5000), f.stock(t))
}
