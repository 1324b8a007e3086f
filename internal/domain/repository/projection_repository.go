package repository

import (
	"context"

	"github.com/inkhouse/bookstock/internal/domain/entity"
)

// ProjectionRepository is the persistence port for the current-state stock
// aggregate. Get and GetForUpdate return a zero-stock projection when the key
// has no row yet; the row is created lazily by the first Upsert.
type ProjectionRepository interface {
	Get(ctx context.Context, titleID, warehouseID string) (*entity.InventoryProjection, error)
	// GetForUpdate locks the row for the duration of the surrounding
	// transaction. Only meaningful on tx-bound repositories.
	GetForUpdate(ctx context.Context, titleID, warehouseID string) (*entity.InventoryProjection, error)
	Upsert(ctx context.Context, projection *entity.InventoryProjection) error
	List(ctx context.Context, titleID, warehouseID string, limit, offset int) ([]*entity.InventoryProjection, error)
}
