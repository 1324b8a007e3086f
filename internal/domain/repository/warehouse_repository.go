package repository

import (
	"context"

	"github.com/inkhouse/bookstock/internal/domain/entity"
)

// WarehouseRepository is the read-only lookup port for warehouses. Returns
// (nil, nil) when the warehouse does not exist.
type WarehouseRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Warehouse, error)
}
