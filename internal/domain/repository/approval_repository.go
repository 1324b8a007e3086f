package repository

import (
	"context"
	"time"

	"github.com/inkhouse/bookstock/internal/domain/entity"
)

// ApprovalRepository is the persistence port for approval requests.
type ApprovalRepository interface {
	Create(ctx context.Context, request *entity.ApprovalRequest) error
	GetByID(ctx context.Context, id string) (*entity.ApprovalRequest, error)
	Update(ctx context.Context, request *entity.ApprovalRequest) error
	ListPending(ctx context.Context, limit, offset int) ([]*entity.ApprovalRequest, error)
	// ListTimedOut returns PENDING or ESCALATED requests whose deadline passed.
	ListTimedOut(ctx context.Context, now time.Time, limit int) ([]*entity.ApprovalRequest, error)
}
