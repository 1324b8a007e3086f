package movement

import (
	"context"
	"fmt"

	"github.com/inkhouse/bookstock/internal/domain"
	"github.com/inkhouse/bookstock/internal/domain/entity"
	"github.com/inkhouse/bookstock/internal/domain/repository"
	"github.com/inkhouse/bookstock/pkg/logger"
)

// ReversalResult pairs the original ledger record with its compensating
// entry. Compensating is nil for previews and when the caller asked not to
// create one.
type ReversalResult struct {
	Original     *entity.MovementRecord
	Compensating *entity.MovementRecord
	Projections  []*entity.InventoryProjection
	// Planned is the inverse that would be committed; set by Preview.
	Planned *Request
}

// Reversal creates compensating entries for committed movements. History is
// never mutated: the original record stays untouched and remains queryable
// next to its inverse. The inverse is committed through the coordinator and
// carries no special privilege: a compensating entry that would violate
// sufficiency is rejected like any other movement.
type Reversal struct {
	movements   repository.MovementRepository
	coordinator *Coordinator
	log         *logger.Logger
}

// NewReversal builds the engine. movements must be pool-bound (reads happen
// outside the compensating transaction).
func NewReversal(movements repository.MovementRepository, coordinator *Coordinator, log *logger.Logger) *Reversal {
	return &Reversal{movements: movements, coordinator: coordinator, log: log}
}

// Preview computes the compensating request without committing anything.
func (r *Reversal) Preview(ctx context.Context, movementID, reason string) (*ReversalResult, error) {
	original, inverse, err := r.load(ctx, movementID, reason)
	if err != nil {
		return nil, err
	}
	return &ReversalResult{Original: original, Planned: &inverse}, nil
}

// Reverse commits a compensating entry for the movement. With
// createCompensating false it only verifies the original and returns it.
func (r *Reversal) Reverse(ctx context.Context, movementID, reason, approvedBy string, createCompensating bool) (*ReversalResult, error) {
	original, inverse, err := r.load(ctx, movementID, reason)
	if err != nil {
		return nil, err
	}
	if !createCompensating {
		return &ReversalResult{Original: original}, nil
	}
	inverse.CreatedBy = approvedBy

	result, err := r.coordinator.Submit(ctx, inverse)
	if err != nil {
		return nil, err
	}
	r.log.Info().
		Str("original_id", original.ID).
		Str("compensating_id", result.Record.ID).
		Str("approved_by", approvedBy).
		Msg("movement reversed")
	return &ReversalResult{
		Original:     original,
		Compensating: result.Record,
		Projections:  result.Projections,
	}, nil
}

func (r *Reversal) load(ctx context.Context, movementID, reason string) (*entity.MovementRecord, Request, error) {
	original, err := r.movements.GetByID(ctx, movementID)
	if err != nil {
		return nil, Request{}, fmt.Errorf("load original movement: %w", err)
	}
	if original == nil {
		return nil, Request{}, domain.ErrNotFound
	}
	return original, r.inverseOf(original, reason), nil
}

// inverseOf builds the compensating request: quantity negated, applied as-is;
// transfers swap source and destination. The original id lands in Notes.
func (r *Reversal) inverseOf(original *entity.MovementRecord, reason string) Request {
	notes := fmt.Sprintf("Reversal of %s", original.ID)
	if reason != "" {
		notes = fmt.Sprintf("%s: %s", notes, reason)
	}
	req := Request{
		TitleID:       original.TitleID,
		WarehouseID:   original.WarehouseID,
		Type:          original.Type,
		Quantity:      -original.Quantity,
		RRP:           original.RRP,
		UnitCost:      original.UnitCost,
		TradeDiscount: original.TradeDiscount,
		Notes:         notes,
		compensating:  true,
	}
	if original.Type.Kind() == entity.ImpactTransfer {
		// Swapping the pair reverses both legs; the quantity stays positive.
		req.Quantity = original.Quantity
		req.SourceWarehouseID = *original.DestinationWarehouseID
		req.DestinationWarehouseID = *original.SourceWarehouseID
		req.WarehouseID = req.DestinationWarehouseID
	}
	return req
}
