package movement

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/inkhouse/bookstock/internal/domain"
	"github.com/inkhouse/bookstock/internal/domain/entity"
	"github.com/inkhouse/bookstock/internal/domain/repository"
	"github.com/inkhouse/bookstock/pkg/logger"
	"github.com/inkhouse/bookstock/pkg/metrics"
)

// Coordinator atomically appends one ledger record and updates one or two
// projection rows. Sufficiency is re-checked inside the transaction under row
// locking; the validator's pre-check alone is not race-safe against concurrent
// writers on the same key.
type Coordinator struct {
	txRunner  TxRunner
	validator *Validator
	notifier  Notifier
	auditor   Auditor
	log       *logger.Logger
	metrics   *metrics.Metrics
}

// NewCoordinator builds the coordinator. Notifier, auditor and metrics may be
// nil; the log must not be.
func NewCoordinator(txRunner TxRunner, validator *Validator, notifier Notifier, auditor Auditor, log *logger.Logger, m *metrics.Metrics) *Coordinator {
	return &Coordinator{
		txRunner:  txRunner,
		validator: validator,
		notifier:  notifier,
		auditor:   auditor,
		log:       log,
		metrics:   m,
	}
}

// Submit validates and commits one movement. Any failure aborts the whole
// unit with zero visible partial state.
func (c *Coordinator) Submit(ctx context.Context, req Request) (*Result, error) {
	vres, err := c.validator.Validate(ctx, req)
	if err != nil {
		return nil, err
	}
	if !vres.Valid {
		return nil, vres.err()
	}
	for _, w := range vres.Warnings {
		c.log.Warn().Str("title_id", req.TitleID).Str("type", string(req.Type)).Msg(w)
	}

	result, err := c.commit(ctx, req)
	if err != nil {
		c.metrics.MovementFailed(string(req.Type))
		return nil, err
	}
	c.metrics.MovementCommitted(string(req.Type))

	// Post-commit collaborators: failures are logged, never surfaced, and
	// never roll back the commit.
	if c.notifier != nil {
		c.notifier.MovementCommitted(ctx, result.Record)
	}
	if c.auditor != nil {
		c.auditor.Record(ctx, "movement.committed", req.CreatedBy, map[string]any{
			"movement_id": result.Record.ID,
			"title_id":    result.Record.TitleID,
			"type":        string(result.Record.Type),
			"quantity":    result.Record.Quantity,
		})
	}
	return result, nil
}

func (c *Coordinator) commit(ctx context.Context, req Request) (*Result, error) {
	record := c.buildRecord(req)
	result := &Result{Record: record}

	err := c.txRunner.Run(ctx, func(movements repository.MovementRepository, projections repository.ProjectionRepository) error {
		var err error
		if req.Type.Kind() == entity.ImpactTransfer {
			result.Projections, err = c.applyTransfer(ctx, projections, record)
		} else {
			result.Projections, err = c.applySingle(ctx, projections, record)
		}
		if err != nil {
			return err
		}
		return movements.Create(ctx, record)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Coordinator) buildRecord(req Request) *entity.MovementRecord {
	now := time.Now()
	record := &entity.MovementRecord{
		ID:              uuid.New().String(),
		TitleID:         req.TitleID,
		WarehouseID:     req.primaryWarehouseID(),
		Type:            req.Type,
		Quantity:        req.signedQuantity(),
		MovementDate:    req.MovementDate,
		RRP:             req.RRP,
		UnitCost:        req.UnitCost,
		TradeDiscount:   req.TradeDiscount,
		PrinterID:       req.PrinterID,
		BatchNumber:     req.BatchNumber,
		LotID:           req.LotID,
		ReferenceNumber: req.ReferenceNumber,
		Notes:           req.Notes,
		CreatedBy:       req.CreatedBy,
		CreatedAt:       now,
	}
	if record.MovementDate.IsZero() {
		record.MovementDate = now
	}
	if req.Type.Kind() == entity.ImpactTransfer {
		src, dst := req.SourceWarehouseID, req.DestinationWarehouseID
		record.SourceWarehouseID = &src
		record.DestinationWarehouseID = &dst
	}
	return record
}

// applySingle handles inbound, outbound and adjustment records: lock the row,
// re-check the floor, increment, upsert.
func (c *Coordinator) applySingle(ctx context.Context, projections repository.ProjectionRepository, record *entity.MovementRecord) ([]*entity.InventoryProjection, error) {
	proj, err := projections.GetForUpdate(ctx, record.TitleID, record.WarehouseID)
	if err != nil {
		return nil, err
	}
	impact := record.Quantity
	if record.Type.Kind() == entity.ImpactAdjustment {
		if proj.CurrentStock+impact < 0 {
			return nil, domain.ErrNegativeStock
		}
	}
	if impact < 0 && proj.Available() < -impact {
		return nil, &domain.InsufficientStockError{
			TitleID:     record.TitleID,
			WarehouseID: record.WarehouseID,
			Available:   proj.Available(),
			Requested:   -impact,
		}
	}
	proj.CurrentStock += impact
	touch(proj, record.MovementDate)
	if err := projections.Upsert(ctx, proj); err != nil {
		return nil, err
	}
	return []*entity.InventoryProjection{proj}, nil
}

// applyTransfer moves the quantity between two projection rows inside the
// same transaction. Both rows are locked before the source balance is
// re-verified, closing the race window between validation and commit.
func (c *Coordinator) applyTransfer(ctx context.Context, projections repository.ProjectionRepository, record *entity.MovementRecord) ([]*entity.InventoryProjection, error) {
	src, dst := *record.SourceWarehouseID, *record.DestinationWarehouseID
	if src == dst {
		return nil, domain.ErrSameWarehouseTransfer
	}
	qty := record.Quantity

	// Lock the pair in key order so opposing transfers cannot deadlock.
	var source, dest *entity.InventoryProjection
	ids := [2]string{src, dst}
	if dst < src {
		ids = [2]string{dst, src}
	}
	for _, id := range ids {
		proj, err := projections.GetForUpdate(ctx, record.TitleID, id)
		if err != nil {
			return nil, err
		}
		if id == src {
			source = proj
		} else {
			dest = proj
		}
	}
	if source.Available() < qty {
		return nil, &domain.InsufficientStockError{
			TitleID:     record.TitleID,
			WarehouseID: src,
			Available:   source.Available(),
			Requested:   qty,
		}
	}

	source.CurrentStock -= qty
	dest.CurrentStock += qty
	touch(source, record.MovementDate)
	touch(dest, record.MovementDate)
	if err := projections.Upsert(ctx, source); err != nil {
		return nil, err
	}
	if err := projections.Upsert(ctx, dest); err != nil {
		return nil, err
	}
	return []*entity.InventoryProjection{source, dest}, nil
}

func touch(proj *entity.InventoryProjection, movementDate time.Time) {
	d := movementDate
	if proj.LastMovementDate == nil || proj.LastMovementDate.Before(d) {
		proj.LastMovementDate = &d
	}
	proj.UpdatedAt = time.Now()
}
