package repository

import (
	"context"

	"github.com/inkhouse/bookstock/internal/domain/entity"
)

// TitleRepository is the read-only lookup port for titles. Returns (nil, nil)
// when the title does not exist.
type TitleRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Title, error)
}
