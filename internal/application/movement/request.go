package movement

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/inkhouse/bookstock/internal/domain/entity"
)

// Request is one movement to validate and commit.
// For WAREHOUSE_TRANSFER set SourceWarehouseID and DestinationWarehouseID;
// WarehouseID is ignored and recorded as the destination.
type Request struct {
	TitleID                string
	WarehouseID            string
	SourceWarehouseID      string
	DestinationWarehouseID string
	Type                   entity.MovementType
	Quantity               int64
	MovementDate           time.Time
	AllowFutureDate        bool

	// Caller-supplied financial snapshot; never derived internally.
	RRP           *decimal.Decimal
	UnitCost      *decimal.Decimal
	TradeDiscount *decimal.Decimal

	PrinterID       string
	BatchNumber     string
	LotID           string
	ReferenceNumber string
	Notes           string
	CreatedBy       string

	// Set by the reversal engine: the signed quantity is applied as-is and
	// the per-type sign rules are waived. Sufficiency still applies.
	compensating bool
}

// signedQuantity is the value stored on the ledger entry.
func (r Request) signedQuantity() int64 {
	if r.compensating {
		return r.Quantity
	}
	return r.Type.SignedQuantity(r.Quantity)
}

// primaryWarehouseID is the warehouse recorded on the ledger entry.
func (r Request) primaryWarehouseID() string {
	if r.Type.Kind() == entity.ImpactTransfer {
		return r.DestinationWarehouseID
	}
	return r.WarehouseID
}

// Result is the outcome of one committed movement: the ledger record plus the
// updated projection rows (two for transfers).
type Result struct {
	Record      *entity.MovementRecord
	Projections []*entity.InventoryProjection
}
