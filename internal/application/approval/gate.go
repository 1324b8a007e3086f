package approval

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/inkhouse/bookstock/internal/application/movement"
	"github.com/inkhouse/bookstock/internal/domain"
	"github.com/inkhouse/bookstock/internal/domain/entity"
	"github.com/inkhouse/bookstock/internal/domain/repository"
	"github.com/inkhouse/bookstock/pkg/logger"
	"github.com/inkhouse/bookstock/pkg/metrics"
)

// Risk weights per failed check. The total is compared against
// Config.MaxAutoRisk; at or below it the gate auto-approves as "system".
const (
	riskQuantity         = 30
	riskValue            = 25
	riskSensitiveType    = 20
	riskOutsideHours     = 10
	riskFrequentAdjusted = 15
)

// Config tunes the risk assessment and the escalation ladder.
type Config struct {
	MaxAutoRisk       int
	QuantityThreshold int64
	ValueThreshold    decimal.Decimal
	// AutoApproveTypes is the movement-type allow-list; anything outside it
	// scores riskSensitiveType.
	AutoApproveTypes []entity.MovementType
	// Levels is the ordered, non-wrapping escalation ladder. Escalating past
	// the last level expires the request.
	Levels       []string
	LevelTimeout time.Duration
	// Business hours in Location; movements submitted outside score
	// riskOutsideHours.
	BusinessHoursStart int
	BusinessHoursEnd   int
	Location           *time.Location
	// AdjustmentWindow/AdjustmentLimit: more than AdjustmentLimit stock
	// adjustments for the same key within the window scores
	// riskFrequentAdjusted.
	AdjustmentWindow time.Duration
	AdjustmentLimit  int
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MaxAutoRisk:       25,
		QuantityThreshold: 1000,
		ValueThreshold:    decimal.NewFromInt(10_000),
		AutoApproveTypes: []entity.MovementType{
			entity.MovementTypePrintReceived,
			entity.MovementTypeReprint,
			entity.MovementTypeOnlineSales,
			entity.MovementTypeUKTradeSales,
			entity.MovementTypeUSTradeSales,
			entity.MovementTypeROWTradeSale,
			entity.MovementTypeDirectSales,
		},
		Levels:             []string{"supervisor", "manager", "director"},
		LevelTimeout:       24 * time.Hour,
		BusinessHoursStart: 8,
		BusinessHoursEnd:   18,
		Location:           time.UTC,
		AdjustmentWindow:   24 * time.Hour,
		AdjustmentLimit:    3,
	}
}

// Gate is the optional pre-commit approval state machine. It decides whether
// a candidate proceeds to the transaction coordinator; it never touches the
// inventory projection directly.
type Gate struct {
	approvals   repository.ApprovalRepository
	movements   repository.MovementRepository
	coordinator *movement.Coordinator
	cfg         Config
	log         *logger.Logger
	metrics     *metrics.Metrics

	now func() time.Time
}

// NewGate builds the gate. metrics may be nil.
func NewGate(approvals repository.ApprovalRepository, movements repository.MovementRepository, coordinator *movement.Coordinator, cfg Config, log *logger.Logger, m *metrics.Metrics) *Gate {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Gate{
		approvals:   approvals,
		movements:   movements,
		coordinator: coordinator,
		cfg:         cfg,
		log:         log,
		metrics:     m,
		now:         time.Now,
	}
}

// Request runs the risk assessment on a candidate. Low-risk candidates are
// auto-approved and committed immediately with approver "system"; the rest
// stay PENDING for a manual decision.
func (g *Gate) Request(ctx context.Context, candidate entity.MovementCandidate, requestedBy string) (*entity.ApprovalRequest, error) {
	now := g.now()
	score, factors, err := g.assess(ctx, candidate, now)
	if err != nil {
		return nil, err
	}

	req := &entity.ApprovalRequest{
		ID:                     uuid.New().String(),
		Candidate:              candidate,
		Status:                 entity.ApprovalStatusPending,
		RiskScore:              score,
		RiskFactors:            factors,
		RequiresManualApproval: score > g.cfg.MaxAutoRisk,
		EscalationLevel:        -1,
		RequestedBy:            requestedBy,
		RequestedAt:            now,
		DeadlineAt:             now.Add(g.cfg.LevelTimeout),
	}
	if err := g.approvals.Create(ctx, req); err != nil {
		return nil, err
	}

	if !req.RequiresManualApproval {
		if err := g.approve(ctx, req, entity.SystemApprover, "auto-approved: risk within limit"); err != nil {
			// Left PENDING; the coordinator error goes back unchanged.
			return nil, err
		}
		g.metrics.ApprovalResolved("auto")
	}
	g.log.Info().
		Str("approval_id", req.ID).
		Int("risk_score", score).
		Bool("manual", req.RequiresManualApproval).
		Msg("approval requested")
	return req, nil
}

// Decide applies a manual APPROVE or REJECT. Valid only while the request is
// undecided (PENDING or ESCALATED); on an already-resolved record it is a
// tolerated no-op returning the record unchanged so retries stay safe.
func (g *Gate) Decide(ctx context.Context, id string, decision entity.ApprovalDecision, actor, notes string) (*entity.ApprovalRequest, error) {
	req, err := g.approvals.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, domain.ErrNotFound
	}
	if req.Resolved() {
		return req, nil
	}

	switch decision {
	case entity.DecisionApprove:
		if err := g.approve(ctx, req, actor, notes); err != nil {
			return nil, err
		}
		g.metrics.ApprovalResolved("manual")
		return req, nil
	case entity.DecisionReject:
		g.resolve(req, entity.ApprovalStatusRejected, actor, notes)
		if err := g.approvals.Update(ctx, req); err != nil {
			return nil, err
		}
		g.metrics.ApprovalResolved("rejected")
		return req, nil
	default:
		return nil, fmt.Errorf("%w: unknown decision %q", domain.ErrInvalidInput, decision)
	}
}

// Escalate advances the request one level up the ladder. Valid from PENDING
// or ESCALATED; past the last level the request expires.
func (g *Gate) Escalate(ctx context.Context, id, actor, notes string) (*entity.ApprovalRequest, error) {
	req, err := g.approvals.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, domain.ErrNotFound
	}
	if req.Resolved() {
		return req, nil
	}
	g.escalate(req, actor, notes)
	if err := g.approvals.Update(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// Sweep expires or escalates requests whose deadline passed. Invoked
// periodically by an external caller; returns how many requests it touched.
func (g *Gate) Sweep(ctx context.Context, now time.Time) (int, error) {
	timedOut, err := g.approvals.ListTimedOut(ctx, now, 100)
	if err != nil {
		return 0, err
	}
	for _, req := range timedOut {
		g.escalate(req, entity.SystemApprover, "deadline passed")
		if err := g.approvals.Update(ctx, req); err != nil {
			return 0, err
		}
		g.log.Info().
			Str("approval_id", req.ID).
			Str("status", string(req.Status)).
			Str("escalated_to", req.EscalatedTo).
			Msg("approval swept")
	}
	return len(timedOut), nil
}

// approve commits the candidate through the coordinator, then marks the
// request APPROVED. Coordinator failures propagate unchanged and leave the
// request undecided.
func (g *Gate) approve(ctx context.Context, req *entity.ApprovalRequest, actor, notes string) error {
	result, err := g.coordinator.Submit(ctx, candidateToRequest(req.Candidate, actor))
	if err != nil {
		return err
	}
	g.resolve(req, entity.ApprovalStatusApproved, actor, notes)
	req.MovementID = result.Record.ID
	return g.approvals.Update(ctx, req)
}

func (g *Gate) resolve(req *entity.ApprovalRequest, status entity.ApprovalStatus, actor, notes string) {
	now := g.now()
	req.Status = status
	req.DecidedBy = actor
	req.DecisionNotes = notes
	req.DecidedAt = &now
}

func (g *Gate) escalate(req *entity.ApprovalRequest, actor, notes string) {
	next := req.EscalationLevel + 1
	if next >= len(g.cfg.Levels) {
		g.resolve(req, entity.ApprovalStatusExpired, actor, notes)
		return
	}
	req.Status = entity.ApprovalStatusEscalated
	req.EscalationLevel = next
	req.EscalatedTo = g.cfg.Levels[next]
	req.DeadlineAt = g.now().Add(g.cfg.LevelTimeout)
}

// assess runs the weighted checks and returns the total with the factors
// that fired.
func (g *Gate) assess(ctx context.Context, c entity.MovementCandidate, now time.Time) (int, []string, error) {
	var score int
	var factors []string

	qty := c.Quantity
	if qty < 0 {
		qty = -qty
	}
	if qty > g.cfg.QuantityThreshold {
		score += riskQuantity
		factors = append(factors, fmt.Sprintf("quantity %d exceeds threshold %d", qty, g.cfg.QuantityThreshold))
	}

	if price := candidatePrice(c); price != nil {
		value := price.Mul(decimal.NewFromInt(qty))
		if value.GreaterThan(g.cfg.ValueThreshold) {
			score += riskValue
			factors = append(factors, fmt.Sprintf("monetary value %s exceeds threshold %s", value, g.cfg.ValueThreshold))
		}
	}

	if !typeAllowed(c.Type, g.cfg.AutoApproveTypes) {
		score += riskSensitiveType
		factors = append(factors, fmt.Sprintf("movement type %s requires review", c.Type))
	}

	local := now.In(g.cfg.Location)
	if wd := local.Weekday(); wd == time.Saturday || wd == time.Sunday ||
		local.Hour() < g.cfg.BusinessHoursStart || local.Hour() >= g.cfg.BusinessHoursEnd {
		score += riskOutsideHours
		factors = append(factors, "submitted outside business hours")
	}

	warehouseID := c.WarehouseID
	if c.Type.Kind() == entity.ImpactTransfer {
		warehouseID = c.SourceWarehouseID
	}
	count, err := g.movements.CountAdjustmentsSince(ctx, c.TitleID, warehouseID, now.Add(-g.cfg.AdjustmentWindow))
	if err != nil {
		return 0, nil, fmt.Errorf("count recent adjustments: %w", err)
	}
	if count >= g.cfg.AdjustmentLimit {
		score += riskFrequentAdjusted
		factors = append(factors, fmt.Sprintf("%d stock adjustments for this key within %s", count, g.cfg.AdjustmentWindow))
	}

	return score, factors, nil
}

func candidatePrice(c entity.MovementCandidate) *decimal.Decimal {
	if c.UnitCost != nil {
		return c.UnitCost
	}
	return c.RRP
}

func typeAllowed(t entity.MovementType, allowed []entity.MovementType) bool {
	for _, a := range allowed {
		if a == t {
			return true
		}
	}
	return false
}

func candidateToRequest(c entity.MovementCandidate, createdBy string) movement.Request {
	return movement.Request{
		TitleID:                c.TitleID,
		WarehouseID:            c.WarehouseID,
		SourceWarehouseID:      c.SourceWarehouseID,
		DestinationWarehouseID: c.DestinationWarehouseID,
		Type:                   c.Type,
		Quantity:               c.Quantity,
		MovementDate:           c.MovementDate,
		RRP:                    c.RRP,
		UnitCost:               c.UnitCost,
		TradeDiscount:          c.TradeDiscount,
		ReferenceNumber:        c.ReferenceNumber,
		Notes:                  c.Notes,
		CreatedBy:              createdBy,
	}
}
