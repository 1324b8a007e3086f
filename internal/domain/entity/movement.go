package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementType is the closed set of stock-affecting event types.
type MovementType string

const (
	MovementTypePrintReceived MovementType = "PRINT_RECEIVED"
	MovementTypeReprint       MovementType = "REPRINT"

	MovementTypeOnlineSales  MovementType = "ONLINE_SALES"
	MovementTypeUKTradeSales MovementType = "UK_TRADE_SALES"
	MovementTypeUSTradeSales MovementType = "US_TRADE_SALES"
	MovementTypeROWTradeSale MovementType = "ROW_TRADE_SALES"
	MovementTypeDirectSales  MovementType = "DIRECT_SALES"
	MovementTypePulped       MovementType = "PULPED"
	MovementTypeDamaged      MovementType = "DAMAGED"
	MovementTypeFreeCopies   MovementType = "FREE_COPIES"

	MovementTypeStockAdjustment   MovementType = "STOCK_ADJUSTMENT"
	MovementTypeWarehouseTransfer MovementType = "WAREHOUSE_TRANSFER"
)

// ImpactKind partitions movement types by their effect on stock.
type ImpactKind int

const (
	ImpactInbound ImpactKind = iota // positive quantity, increases stock
	ImpactOutbound                  // magnitude given, decreases stock
	ImpactAdjustment                // signed delta applied as-is
	ImpactTransfer                  // two-sided: -qty at source, +qty at destination
)

var movementKinds = map[MovementType]ImpactKind{
	MovementTypePrintReceived:     ImpactInbound,
	MovementTypeReprint:           ImpactInbound,
	MovementTypeOnlineSales:       ImpactOutbound,
	MovementTypeUKTradeSales:      ImpactOutbound,
	MovementTypeUSTradeSales:      ImpactOutbound,
	MovementTypeROWTradeSale:      ImpactOutbound,
	MovementTypeDirectSales:       ImpactOutbound,
	MovementTypePulped:            ImpactOutbound,
	MovementTypeDamaged:           ImpactOutbound,
	MovementTypeFreeCopies:        ImpactOutbound,
	MovementTypeStockAdjustment:   ImpactAdjustment,
	MovementTypeWarehouseTransfer: ImpactTransfer,
}

// Valid reports whether t is a known movement type.
func (t MovementType) Valid() bool {
	_, ok := movementKinds[t]
	return ok
}

// Kind returns the precomputed impact class for the type.
func (t MovementType) Kind() ImpactKind {
	return movementKinds[t]
}

// SignedQuantity normalizes a requested quantity to the signed value stored on
// the ledger: inbound positive, outbound negative, adjustment as-is, transfer
// positive (legs are derived from the warehouse pair).
func (t MovementType) SignedQuantity(qty int64) int64 {
	switch t.Kind() {
	case ImpactInbound, ImpactTransfer:
		return abs(qty)
	case ImpactOutbound:
		return -abs(qty)
	default:
		return qty
	}
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// MovementRecord is one immutable ledger entry. Corrections never mutate it;
// they are new compensating records referencing the original in Notes.
type MovementRecord struct {
	ID           string
	TitleID      string
	WarehouseID  string // primary warehouse; destination for transfers
	Type         MovementType
	Quantity     int64 // signed
	MovementDate time.Time

	// Financial snapshot at time of movement, caller-supplied.
	RRP           *decimal.Decimal
	UnitCost      *decimal.Decimal
	TradeDiscount *decimal.Decimal

	// Transfer pair; set only for WAREHOUSE_TRANSFER.
	SourceWarehouseID      *string
	DestinationWarehouseID *string

	// Provenance.
	PrinterID       string
	BatchNumber     string
	LotID           string
	ReferenceNumber string
	Notes           string
	CreatedBy       string

	CreatedAt time.Time
}

// ImpactOn returns the signed stock impact of the record on one warehouse.
// Transfer legs count on both sides with opposite sign; records that do not
// touch the warehouse contribute zero.
func (m *MovementRecord) ImpactOn(warehouseID string) int64 {
	if m.Type.Kind() == ImpactTransfer {
		var impact int64
		if m.SourceWarehouseID != nil && *m.SourceWarehouseID == warehouseID {
			impact -= m.Quantity
		}
		if m.DestinationWarehouseID != nil && *m.DestinationWarehouseID == warehouseID {
			impact += m.Quantity
		}
		return impact
	}
	if m.WarehouseID == warehouseID {
		return m.Quantity
	}
	return 0
}
