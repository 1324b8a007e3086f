package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/inkhouse/bookstock/internal/domain/entity"
	"github.com/inkhouse/bookstock/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

const movementColumns = `id, title_id, warehouse_id, type, quantity, movement_date,
	rrp, unit_cost, trade_discount, source_warehouse_id, destination_warehouse_id,
	printer_id, batch_number, lot_id, reference_number, notes, created_by, created_at`

// MovementRepo persists ledger records on PostgreSQL (usable with pool or tx).
type MovementRepo struct {
	q Querier
}

// NewMovementRepository builds the adapter. Pass pool or tx (Querier).
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

// Create appends one immutable movement record.
func (r *MovementRepo) Create(ctx context.Context, m *entity.MovementRecord) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	query := `
		INSERT INTO movement_records (` + movementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`
	_, err := r.q.Exec(ctx, query,
		m.ID, m.TitleID, m.WarehouseID, string(m.Type), m.Quantity, m.MovementDate,
		m.RRP, m.UnitCost, m.TradeDiscount, m.SourceWarehouseID, m.DestinationWarehouseID,
		nullable(m.PrinterID), nullable(m.BatchNumber), nullable(m.LotID),
		nullable(m.ReferenceNumber), nullable(m.Notes), nullable(m.CreatedBy), m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create movement record: %w", err)
	}
	return nil
}

// GetByID fetches one record; (nil, nil) when absent.
func (r *MovementRepo) GetByID(ctx context.Context, id string) (*entity.MovementRecord, error) {
	query := `SELECT ` + movementColumns + ` FROM movement_records WHERE id = $1`
	m, err := scanMovement(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get movement record: %w", err)
	}
	return m, nil
}

// ListByTitle lists a title's records within an optional date range, newest
// first.
func (r *MovementRepo) ListByTitle(ctx context.Context, titleID string, from, to *time.Time, limit, offset int) ([]*entity.MovementRecord, error) {
	return r.list(ctx, "title_id", titleID, from, to, limit, offset)
}

// ListByWarehouse lists a warehouse's records within an optional date range,
// newest first. Transfer records are matched on either leg.
func (r *MovementRepo) ListByWarehouse(ctx context.Context, warehouseID string, from, to *time.Time, limit, offset int) ([]*entity.MovementRecord, error) {
	query := `
		SELECT ` + movementColumns + `
		FROM movement_records
		WHERE (warehouse_id = $1 OR source_warehouse_id = $1 OR destination_warehouse_id = $1)`
	args := []any{warehouseID}
	pos := 2
	if from != nil {
		query += fmt.Sprintf(" AND movement_date >= $%d", pos)
		args = append(args, *from)
		pos++
	}
	if to != nil {
		query += fmt.Sprintf(" AND movement_date <= $%d", pos)
		args = append(args, *to)
		pos++
	}
	query += fmt.Sprintf(" ORDER BY movement_date DESC, created_at DESC LIMIT $%d OFFSET $%d", pos, pos+1)
	args = append(args, limit, offset)
	return r.queryList(ctx, query, args...)
}

func (r *MovementRepo) list(ctx context.Context, column, value string, from, to *time.Time, limit, offset int) ([]*entity.MovementRecord, error) {
	query := `SELECT ` + movementColumns + ` FROM movement_records WHERE ` + column + ` = $1`
	args := []any{value}
	pos := 2
	if from != nil {
		query += fmt.Sprintf(" AND movement_date >= $%d", pos)
		args = append(args, *from)
		pos++
	}
	if to != nil {
		query += fmt.Sprintf(" AND movement_date <= $%d", pos)
		args = append(args, *to)
		pos++
	}
	query += fmt.Sprintf(" ORDER BY movement_date DESC, created_at DESC LIMIT $%d OFFSET $%d", pos, pos+1)
	args = append(args, limit, offset)
	return r.queryList(ctx, query, args...)
}

func (r *MovementRepo) queryList(ctx context.Context, query string, args ...any) ([]*entity.MovementRecord, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list movement records: %w", err)
	}
	defer rows.Close()
	var list []*entity.MovementRecord
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movement record: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// CountAdjustmentsSince counts stock adjustments for a key after the cutoff.
func (r *MovementRepo) CountAdjustmentsSince(ctx context.Context, titleID, warehouseID string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM movement_records
		WHERE title_id = $1 AND warehouse_id = $2 AND type = $3 AND created_at >= $4`
	var count int
	err := r.q.QueryRow(ctx, query, titleID, warehouseID, string(entity.MovementTypeStockAdjustment), since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count adjustments: %w", err)
	}
	return count, nil
}

// ReferenceExists reports whether any record carries the reference number.
func (r *MovementRepo) ReferenceExists(ctx context.Context, referenceNumber string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM movement_records WHERE reference_number = $1)`
	var exists bool
	if err := r.q.QueryRow(ctx, query, referenceNumber).Scan(&exists); err != nil {
		return false, fmt.Errorf("check reference number: %w", err)
	}
	return exists, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMovement(row rowScanner) (*entity.MovementRecord, error) {
	var m entity.MovementRecord
	var typ string
	var printerID, batchNumber, lotID, referenceNumber, notes, createdBy *string
	err := row.Scan(
		&m.ID, &m.TitleID, &m.WarehouseID, &typ, &m.Quantity, &m.MovementDate,
		&m.RRP, &m.UnitCost, &m.TradeDiscount, &m.SourceWarehouseID, &m.DestinationWarehouseID,
		&printerID, &batchNumber, &lotID, &referenceNumber, &notes, &createdBy, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.Type = entity.MovementType(typ)
	m.PrinterID = deref(printerID)
	m.BatchNumber = deref(batchNumber)
	m.LotID = deref(lotID)
	m.ReferenceNumber = deref(referenceNumber)
	m.Notes = deref(notes)
	m.CreatedBy = deref(createdBy)
	return &m, nil
}
