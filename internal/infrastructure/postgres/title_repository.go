package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/inkhouse/bookstock/internal/domain/entity"
	"github.com/inkhouse/bookstock/internal/domain/repository"
)

var _ repository.TitleRepository = (*TitleRepo)(nil)

// TitleRepo read-only lookup of titles on PostgreSQL. Title CRUD belongs to
// an external collaborator; the movement engine only reads.
type TitleRepo struct {
	q Querier
}

// NewTitleRepository builds the adapter. Pass pool or tx (Querier).
func NewTitleRepository(q Querier) *TitleRepo {
	return &TitleRepo{q: q}
}

// GetByID fetches one title; (nil, nil) when absent.
func (r *TitleRepo) GetByID(ctx context.Context, id string) (*entity.Title, error) {
	query := `SELECT id, isbn, name, rrp, active, created_at FROM titles WHERE id = $1`
	var t entity.Title
	err := r.q.QueryRow(ctx, query, id).Scan(&t.ID, &t.ISBN, &t.Name, &t.RRP, &t.Active, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get title: %w", err)
	}
	return &t, nil
}
