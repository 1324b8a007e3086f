package entity

import "time"

// Warehouse sales channels. Used only for the channel-compatibility warning.
const (
	WarehouseChannelTrade  = "TRADE"
	WarehouseChannelOnline = "ONLINE"
	WarehouseChannelMixed  = "MIXED"
)

// Warehouse is a read-only lookup of a physical or virtual warehouse.
type Warehouse struct {
	ID        string
	Code      string
	Name      string
	Channel   string
	Active    bool
	CreatedAt time.Time
}
