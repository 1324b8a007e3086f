package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/inkhouse/bookstock/internal/domain/entity"
	"github.com/inkhouse/bookstock/internal/domain/repository"
)

var _ repository.ProjectionRepository = (*ProjectionRepo)(nil)

const projectionColumns = `title_id, warehouse_id, current_stock, reserved_stock,
	last_movement_date, last_stock_check, updated_at`

// ProjectionRepo persists the stock aggregate on PostgreSQL (usable with pool
// or tx).
type ProjectionRepo struct {
	q Querier
}

// NewProjectionRepository builds the adapter. Pass pool or tx (Querier).
func NewProjectionRepository(q Querier) *ProjectionRepo {
	return &ProjectionRepo{q: q}
}

// Get reads the projection for a key; a zero-stock projection when absent.
func (r *ProjectionRepo) Get(ctx context.Context, titleID, warehouseID string) (*entity.InventoryProjection, error) {
	query := `SELECT ` + projectionColumns + ` FROM inventory_projections WHERE title_id = $1 AND warehouse_id = $2`
	return r.get(ctx, query, titleID, warehouseID)
}

// GetForUpdate reads the projection and locks the row (SELECT FOR UPDATE) so
// the sufficiency re-check and increment are race-safe within the
// surrounding transaction. An absent row cannot be locked, so the zero row is
// materialized first; two concurrent first movements for the same key then
// serialize on it instead of both reading stock 0.
func (r *ProjectionRepo) GetForUpdate(ctx context.Context, titleID, warehouseID string) (*entity.InventoryProjection, error) {
	seed := `
		INSERT INTO inventory_projections (title_id, warehouse_id, current_stock, reserved_stock, updated_at)
		VALUES ($1, $2, 0, 0, now())
		ON CONFLICT (title_id, warehouse_id) DO NOTHING`
	if _, err := r.q.Exec(ctx, seed, titleID, warehouseID); err != nil {
		return nil, fmt.Errorf("seed projection row: %w", err)
	}
	query := `SELECT ` + projectionColumns + ` FROM inventory_projections WHERE title_id = $1 AND warehouse_id = $2 FOR UPDATE`
	return r.get(ctx, query, titleID, warehouseID)
}

func (r *ProjectionRepo) get(ctx context.Context, query, titleID, warehouseID string) (*entity.InventoryProjection, error) {
	var p entity.InventoryProjection
	err := r.q.QueryRow(ctx, query, titleID, warehouseID).Scan(
		&p.TitleID, &p.WarehouseID, &p.CurrentStock, &p.ReservedStock,
		&p.LastMovementDate, &p.LastStockCheck, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &entity.InventoryProjection{TitleID: titleID, WarehouseID: warehouseID}, nil
		}
		return nil, fmt.Errorf("get projection: %w", err)
	}
	return &p, nil
}

// Upsert inserts or updates the projection row for its key.
func (r *ProjectionRepo) Upsert(ctx context.Context, p *entity.InventoryProjection) error {
	query := `
		INSERT INTO inventory_projections (title_id, warehouse_id, current_stock, reserved_stock, last_movement_date, last_stock_check, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (title_id, warehouse_id)
		DO UPDATE SET current_stock = EXCLUDED.current_stock,
			reserved_stock = EXCLUDED.reserved_stock,
			last_movement_date = EXCLUDED.last_movement_date,
			last_stock_check = EXCLUDED.last_stock_check,
			updated_at = now()`
	_, err := r.q.Exec(ctx, query,
		p.TitleID, p.WarehouseID, p.CurrentStock, p.ReservedStock,
		p.LastMovementDate, p.LastStockCheck,
	)
	if err != nil {
		return fmt.Errorf("upsert projection: %w", err)
	}
	return nil
}

// List returns projections filtered by optional title and warehouse.
func (r *ProjectionRepo) List(ctx context.Context, titleID, warehouseID string, limit, offset int) ([]*entity.InventoryProjection, error) {
	query := `SELECT ` + projectionColumns + ` FROM inventory_projections WHERE 1=1`
	args := []any{}
	pos := 1
	if titleID != "" {
		query += fmt.Sprintf(" AND title_id = $%d", pos)
		args = append(args, titleID)
		pos++
	}
	if warehouseID != "" {
		query += fmt.Sprintf(" AND warehouse_id = $%d", pos)
		args = append(args, warehouseID)
		pos++
	}
	query += fmt.Sprintf(" ORDER BY title_id, warehouse_id LIMIT $%d OFFSET $%d", pos, pos+1)
	args = append(args, limit, offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list projections: %w", err)
	}
	defer rows.Close()
	var list []*entity.InventoryProjection
	for rows.Next() {
		var p entity.InventoryProjection
		if err := rows.Scan(&p.TitleID, &p.WarehouseID, &p.CurrentStock, &p.ReservedStock,
			&p.LastMovementDate, &p.LastStockCheck, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan projection: %w", err)
		}
		list = append(list, &p)
	}
	return list, rows.Err()
}
