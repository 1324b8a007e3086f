package entity

import "time"

// InventoryProjection is the mutable current-state aggregate for one
// (title, warehouse) key, derived from the movement ledger. CurrentStock must
// equal the replay-sum of signed impacts of all records for the key.
type InventoryProjection struct {
	TitleID          string
	WarehouseID      string
	CurrentStock     int64
	ReservedStock    int64
	LastMovementDate *time.Time
	LastStockCheck   *time.Time
	UpdatedAt        time.Time
}

// Available is the stock that net-decreasing movements may consume.
func (p *InventoryProjection) Available() int64 {
	return p.CurrentStock - p.ReservedStock
}
