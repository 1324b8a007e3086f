package repository

import (
	"context"
	"time"

	"github.com/inkhouse/bookstock/internal/domain/entity"
)

// MovementRepository is the persistence port for the append-only movement
// ledger. Records are write-once; there is no update or delete.
type MovementRepository interface {
	Create(ctx context.Context, record *entity.MovementRecord) error
	GetByID(ctx context.Context, id string) (*entity.MovementRecord, error)
	ListByTitle(ctx context.Context, titleID string, from, to *time.Time, limit, offset int) ([]*entity.MovementRecord, error)
	ListByWarehouse(ctx context.Context, warehouseID string, from, to *time.Time, limit, offset int) ([]*entity.MovementRecord, error)
	// CountAdjustmentsSince counts STOCK_ADJUSTMENT records for a key after a
	// cutoff; feeds the recent-adjustment-frequency risk check.
	CountAdjustmentsSince(ctx context.Context, titleID, warehouseID string, since time.Time) (int, error)
	// ReferenceExists reports whether any record already carries the reference
	// number; feeds the duplicate-reference warning.
	ReferenceExists(ctx context.Context, referenceNumber string) (bool, error)
}
