package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/inkhouse/bookstock/internal/application/movement"
	"github.com/inkhouse/bookstock/internal/domain/entity"
)

// SubmitMovementRequest body for POST /api/movements.
// For WAREHOUSE_TRANSFER set source_warehouse_id and destination_warehouse_id;
// every other type uses warehouse_id.
type SubmitMovementRequest struct {
	TitleID                string           `json:"title_id"`
	WarehouseID            string           `json:"warehouse_id,omitempty"`
	SourceWarehouseID      string           `json:"source_warehouse_id,omitempty"`
	DestinationWarehouseID string           `json:"destination_warehouse_id,omitempty"`
	Type                   string           `json:"type"`
	Quantity               int64            `json:"quantity"`
	MovementDate           *time.Time       `json:"movement_date,omitempty"`
	AllowFutureDate        bool             `json:"allow_future_date,omitempty"`
	RRP                    *decimal.Decimal `json:"rrp,omitempty"`
	UnitCost               *decimal.Decimal `json:"unit_cost,omitempty"`
	TradeDiscount          *decimal.Decimal `json:"trade_discount,omitempty"`
	PrinterID              string           `json:"printer_id,omitempty"`
	BatchNumber            string           `json:"batch_number,omitempty"`
	LotID                  string           `json:"lot_id,omitempty"`
	ReferenceNumber        string           `json:"reference_number,omitempty"`
	Notes                  string           `json:"notes,omitempty"`
	CreatedBy              string           `json:"created_by,omitempty"`
}

// ToRequest converts the body into an application request.
func (in SubmitMovementRequest) ToRequest() movement.Request {
	req := movement.Request{
		TitleID:                in.TitleID,
		WarehouseID:            in.WarehouseID,
		SourceWarehouseID:      in.SourceWarehouseID,
		DestinationWarehouseID: in.DestinationWarehouseID,
		Type:                   entity.MovementType(in.Type),
		Quantity:               in.Quantity,
		AllowFutureDate:        in.AllowFutureDate,
		RRP:                    in.RRP,
		UnitCost:               in.UnitCost,
		TradeDiscount:          in.TradeDiscount,
		PrinterID:              in.PrinterID,
		BatchNumber:            in.BatchNumber,
		LotID:                  in.LotID,
		ReferenceNumber:        in.ReferenceNumber,
		Notes:                  in.Notes,
		CreatedBy:              in.CreatedBy,
	}
	if in.MovementDate != nil {
		req.MovementDate = *in.MovementDate
	}
	return req
}

// BatchMovementRequest body for POST /api/movements/batch.
type BatchMovementRequest struct {
	Items           []SubmitMovementRequest `json:"items"`
	ValidateFirst   *bool                   `json:"validate_first,omitempty"`
	ContinueOnError bool                    `json:"continue_on_error,omitempty"`
	DryRun          bool                    `json:"dry_run,omitempty"`
	BatchSize       int                     `json:"batch_size,omitempty"`
}

// Options maps the body to batch options; validate_first defaults to true.
func (in BatchMovementRequest) Options() movement.BatchOptions {
	opts := movement.DefaultBatchOptions()
	if in.ValidateFirst != nil {
		opts.ValidateFirst = *in.ValidateFirst
	}
	opts.ContinueOnError = in.ContinueOnError
	opts.DryRun = in.DryRun
	if in.BatchSize > 0 {
		opts.BatchSize = in.BatchSize
	}
	return opts
}

// ReverseMovementRequest body for POST /api/movements/:id/reverse.
type ReverseMovementRequest struct {
	Reason     string `json:"reason"`
	ApprovedBy string `json:"approved_by"`
	// CreateCompensating defaults to true; false verifies only.
	CreateCompensating *bool `json:"create_compensating,omitempty"`
	// Preview computes the inverse without committing it.
	Preview bool `json:"preview,omitempty"`
}

// MovementResponse one ledger record on the wire.
type MovementResponse struct {
	ID                     string           `json:"id"`
	TitleID                string           `json:"title_id"`
	WarehouseID            string           `json:"warehouse_id"`
	Type                   string           `json:"type"`
	Quantity               int64            `json:"quantity"`
	MovementDate           time.Time        `json:"movement_date"`
	RRP                    *decimal.Decimal `json:"rrp,omitempty"`
	UnitCost               *decimal.Decimal `json:"unit_cost,omitempty"`
	TradeDiscount          *decimal.Decimal `json:"trade_discount,omitempty"`
	SourceWarehouseID      *string          `json:"source_warehouse_id,omitempty"`
	DestinationWarehouseID *string          `json:"destination_warehouse_id,omitempty"`
	PrinterID              string           `json:"printer_id,omitempty"`
	BatchNumber            string           `json:"batch_number,omitempty"`
	LotID                  string           `json:"lot_id,omitempty"`
	ReferenceNumber        string           `json:"reference_number,omitempty"`
	Notes                  string           `json:"notes,omitempty"`
	CreatedBy              string           `json:"created_by,omitempty"`
	CreatedAt              time.Time        `json:"created_at"`
}

// FromMovement maps a ledger record to its response.
func FromMovement(m *entity.MovementRecord) MovementResponse {
	return MovementResponse{
		ID:                     m.ID,
		TitleID:                m.TitleID,
		WarehouseID:            m.WarehouseID,
		Type:                   string(m.Type),
		Quantity:               m.Quantity,
		MovementDate:           m.MovementDate,
		RRP:                    m.RRP,
		UnitCost:               m.UnitCost,
		TradeDiscount:          m.TradeDiscount,
		SourceWarehouseID:      m.SourceWarehouseID,
		DestinationWarehouseID: m.DestinationWarehouseID,
		PrinterID:              m.PrinterID,
		BatchNumber:            m.BatchNumber,
		LotID:                  m.LotID,
		ReferenceNumber:        m.ReferenceNumber,
		Notes:                  m.Notes,
		CreatedBy:              m.CreatedBy,
		CreatedAt:              m.CreatedAt,
	}
}

// FromMovements maps a list of records.
func FromMovements(records []*entity.MovementRecord) []MovementResponse {
	out := make([]MovementResponse, 0, len(records))
	for _, m := range records {
		out = append(out, FromMovement(m))
	}
	return out
}

// ProjectionResponse one stock projection on the wire.
type ProjectionResponse struct {
	TitleID          string     `json:"title_id"`
	WarehouseID      string     `json:"warehouse_id"`
	CurrentStock     int64      `json:"current_stock"`
	ReservedStock    int64      `json:"reserved_stock"`
	AvailableStock   int64      `json:"available_stock"`
	LastMovementDate *time.Time `json:"last_movement_date,omitempty"`
	LastStockCheck   *time.Time `json:"last_stock_check,omitempty"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// FromProjection maps a projection to its response.
func FromProjection(p *entity.InventoryProjection) ProjectionResponse {
	return ProjectionResponse{
		TitleID:          p.TitleID,
		WarehouseID:      p.WarehouseID,
		CurrentStock:     p.CurrentStock,
		ReservedStock:    p.ReservedStock,
		AvailableStock:   p.Available(),
		LastMovementDate: p.LastMovementDate,
		LastStockCheck:   p.LastStockCheck,
		UpdatedAt:        p.UpdatedAt,
	}
}

// FromProjections maps a list of projections.
func FromProjections(projections []*entity.InventoryProjection) []ProjectionResponse {
	out := make([]ProjectionResponse, 0, len(projections))
	for _, p := range projections {
		out = append(out, FromProjection(p))
	}
	return out
}

// SubmitMovementResponse body for a committed movement.
type SubmitMovementResponse struct {
	Movement    MovementResponse     `json:"movement"`
	Projections []ProjectionResponse `json:"projections"`
}

// FromResult maps a commit result.
func FromResult(res *movement.Result) SubmitMovementResponse {
	return SubmitMovementResponse{
		Movement:    FromMovement(res.Record),
		Projections: FromProjections(res.Projections),
	}
}

// ReversalResponse body for POST /api/movements/:id/reverse.
type ReversalResponse struct {
	Original     MovementResponse     `json:"original"`
	Compensating *MovementResponse    `json:"compensating,omitempty"`
	Projections  []ProjectionResponse `json:"projections,omitempty"`
	// Planned echoes the inverse computed by a preview.
	Planned *SubmitMovementRequest `json:"planned,omitempty"`
}
