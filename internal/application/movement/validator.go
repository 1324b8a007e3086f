package movement

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/inkhouse/bookstock/internal/domain"
	"github.com/inkhouse/bookstock/internal/domain/entity"
	"github.com/inkhouse/bookstock/internal/domain/repository"
)

// Minimum note length for STOCK_ADJUSTMENT requests.
const minAdjustmentNoteLen = 10

// DefaultLargeQuantity is the warning threshold for unusually large movements.
const DefaultLargeQuantity = 10_000

// ValidationResult is the read-only outcome of the pre-commit checks.
// Errors block the commit; warnings do not.
type ValidationResult struct {
	Valid    bool                `json:"valid"`
	Errors   []domain.FieldError `json:"errors"`
	Warnings []string            `json:"warnings"`

	// cause is the typed domain failure behind the field report, when one
	// rule maps to a dedicated error. Surfaced by err().
	cause error
}

func (r *ValidationResult) addError(field, message string) {
	r.Valid = false
	r.Errors = append(r.Errors, domain.FieldError{Field: field, Message: message})
}

func (r *ValidationResult) addWarning(message string) {
	r.Warnings = append(r.Warnings, message)
}

// err converts an invalid result into the error the coordinator surfaces:
// the typed cause when one rule identified it (insufficient stock,
// same-warehouse transfer), otherwise a field-level ValidationError.
func (r *ValidationResult) err() error {
	if r.Valid {
		return nil
	}
	if r.cause != nil {
		return r.cause
	}
	return &domain.ValidationError{Fields: r.Errors}
}

// Validator runs the pre-commit business rules. Read-only and idempotent: the
// same request always yields the same result and no side effects. The
// sufficiency check here is advisory; the coordinator re-checks inside the
// transaction under row locking.
type Validator struct {
	titles        repository.TitleRepository
	warehouses    repository.WarehouseRepository
	projections   repository.ProjectionRepository
	movements     repository.MovementRepository
	largeQuantity int64
}

// NewValidator wires the lookup ports. largeQuantity <= 0 falls back to the
// default threshold.
func NewValidator(
	titles repository.TitleRepository,
	warehouses repository.WarehouseRepository,
	projections repository.ProjectionRepository,
	movements repository.MovementRepository,
	largeQuantity int64,
) *Validator {
	if largeQuantity <= 0 {
		largeQuantity = DefaultLargeQuantity
	}
	return &Validator{
		titles:        titles,
		warehouses:    warehouses,
		projections:   projections,
		movements:     movements,
		largeQuantity: largeQuantity,
	}
}

// Validate checks one request. The returned error is infrastructural only
// (store failures); business failures land in the result.
func (v *Validator) Validate(ctx context.Context, req Request) (*ValidationResult, error) {
	res := &ValidationResult{Valid: true}

	if !req.Type.Valid() {
		res.addError("type", fmt.Sprintf("unknown movement type %q", req.Type))
		return res, nil
	}

	title, err := v.titles.GetByID(ctx, req.TitleID)
	if err != nil {
		return nil, fmt.Errorf("look up title: %w", err)
	}
	if title == nil {
		res.addError("title_id", "title not found")
	}

	isTransfer := req.Type.Kind() == entity.ImpactTransfer
	var warehouse *entity.Warehouse
	if isTransfer {
		if req.SourceWarehouseID == "" || req.DestinationWarehouseID == "" {
			res.addError("source_warehouse_id", "transfer requires source and destination warehouses")
		} else if req.SourceWarehouseID == req.DestinationWarehouseID {
			res.addError("destination_warehouse_id", "transfer source and destination must differ")
			res.cause = domain.ErrSameWarehouseTransfer
		} else {
			src, err := v.warehouses.GetByID(ctx, req.SourceWarehouseID)
			if err != nil {
				return nil, fmt.Errorf("look up source warehouse: %w", err)
			}
			dst, err := v.warehouses.GetByID(ctx, req.DestinationWarehouseID)
			if err != nil {
				return nil, fmt.Errorf("look up destination warehouse: %w", err)
			}
			if src == nil {
				res.addError("source_warehouse_id", "source warehouse not found")
			}
			if dst == nil {
				res.addError("destination_warehouse_id", "destination warehouse not found")
			}
		}
	} else {
		warehouse, err = v.warehouses.GetByID(ctx, req.WarehouseID)
		if err != nil {
			return nil, fmt.Errorf("look up warehouse: %w", err)
		}
		if warehouse == nil {
			res.addError("warehouse_id", "warehouse not found")
		}
	}

	if req.Quantity == 0 {
		res.addError("quantity", "quantity must be nonzero")
	}
	if !req.compensating {
		switch req.Type.Kind() {
		case entity.ImpactInbound:
			if req.Quantity <= 0 {
				res.addError("quantity", "inbound movements require a positive quantity")
			}
		case entity.ImpactOutbound, entity.ImpactTransfer:
			if req.Quantity < 0 {
				res.addError("quantity", "quantity magnitude must be positive")
			}
		}
		if req.Type == entity.MovementTypeStockAdjustment && len(strings.TrimSpace(req.Notes)) < minAdjustmentNoteLen {
			res.addError("notes", fmt.Sprintf("stock adjustments require a note of at least %d characters", minAdjustmentNoteLen))
		}
	}

	if !req.AllowFutureDate && req.MovementDate.After(time.Now()) {
		res.addError("movement_date", "movement date must not be in the future")
	}

	// Sufficiency pre-check: projected available stock must not go negative on
	// any net-decreasing leg. Skipped once the request is already invalid so
	// lookups with missing references do not mask the real error.
	if res.Valid {
		if err := v.checkSufficiency(ctx, req, res); err != nil {
			return nil, err
		}
	}

	if res.Valid {
		if err := v.collectWarnings(ctx, req, warehouse, res); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (v *Validator) checkSufficiency(ctx context.Context, req Request, res *ValidationResult) error {
	type leg struct {
		warehouseID string
		decrease    int64
	}
	var legs []leg
	signed := req.signedQuantity()
	switch {
	case req.Type.Kind() == entity.ImpactTransfer:
		legs = append(legs, leg{req.SourceWarehouseID, signed})
	case signed < 0:
		legs = append(legs, leg{req.primaryWarehouseID(), -signed})
	}
	for _, l := range legs {
		proj, err := v.projections.Get(ctx, req.TitleID, l.warehouseID)
		if err != nil {
			return fmt.Errorf("look up projection: %w", err)
		}
		if proj.Available() < l.decrease {
			stockErr := &domain.InsufficientStockError{
				TitleID:     req.TitleID,
				WarehouseID: l.warehouseID,
				Available:   proj.Available(),
				Requested:   l.decrease,
			}
			res.addError("quantity", stockErr.Error())
			if res.cause == nil {
				res.cause = stockErr
			}
		}
	}
	return nil
}

func (v *Validator) collectWarnings(ctx context.Context, req Request, warehouse *entity.Warehouse, res *ValidationResult) error {
	if req.ReferenceNumber != "" {
		exists, err := v.movements.ReferenceExists(ctx, req.ReferenceNumber)
		if err != nil {
			return fmt.Errorf("check reference number: %w", err)
		}
		if exists {
			res.addWarning(fmt.Sprintf("reference number %q already used by an earlier movement", req.ReferenceNumber))
		}
	}
	if q := req.Quantity; q > v.largeQuantity || -q > v.largeQuantity {
		res.addWarning(fmt.Sprintf("unusually large quantity %d (threshold %d)", q, v.largeQuantity))
	}
	if warehouse != nil && warehouse.Channel != "" && warehouse.Channel != entity.WarehouseChannelMixed {
		switch req.Type {
		case entity.MovementTypeOnlineSales:
			if warehouse.Channel != entity.WarehouseChannelOnline {
				res.addWarning(fmt.Sprintf("online sale recorded against %s-channel warehouse %s", warehouse.Channel, warehouse.Code))
			}
		case entity.MovementTypeUKTradeSales, entity.MovementTypeUSTradeSales, entity.MovementTypeROWTradeSale:
			if warehouse.Channel != entity.WarehouseChannelTrade {
				res.addWarning(fmt.Sprintf("trade sale recorded against %s-channel warehouse %s", warehouse.Channel, warehouse.Code))
			}
		}
	}
	return nil
}
