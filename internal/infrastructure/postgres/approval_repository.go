package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/inkhouse/bookstock/internal/domain"
	"github.com/inkhouse/bookstock/internal/domain/entity"
	"github.com/inkhouse/bookstock/internal/domain/repository"
)

var _ repository.ApprovalRepository = (*ApprovalRepo)(nil)

const approvalColumns = `id, candidate, status, risk_score, risk_factors, requires_manual,
	escalation_level, escalated_to, requested_by, requested_at, deadline_at,
	decided_by, decision_notes, decided_at, movement_id`

// ApprovalRepo persists approval requests on PostgreSQL. The movement
// candidate is stored as JSONB so the committed movement is exactly what was
// assessed.
type ApprovalRepo struct {
	q Querier
}

// NewApprovalRepository builds the adapter. Pass pool or tx (Querier).
func NewApprovalRepository(q Querier) *ApprovalRepo {
	return &ApprovalRepo{q: q}
}

// Create persists a new approval request.
func (r *ApprovalRepo) Create(ctx context.Context, a *entity.ApprovalRequest) error {
	candidate, err := json.Marshal(a.Candidate)
	if err != nil {
		return fmt.Errorf("marshal candidate: %w", err)
	}
	query := `
		INSERT INTO approval_requests (` + approvalColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err = r.q.Exec(ctx, query,
		a.ID, candidate, string(a.Status), a.RiskScore, a.RiskFactors, a.RequiresManualApproval,
		a.EscalationLevel, nullable(a.EscalatedTo), nullable(a.RequestedBy), a.RequestedAt, a.DeadlineAt,
		nullable(a.DecidedBy), nullable(a.DecisionNotes), a.DecidedAt, nullable(a.MovementID),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("create approval request: %w", err)
	}
	return nil
}

// GetByID fetches one approval request; (nil, nil) when absent.
func (r *ApprovalRepo) GetByID(ctx context.Context, id string) (*entity.ApprovalRequest, error) {
	query := `SELECT ` + approvalColumns + ` FROM approval_requests WHERE id = $1`
	a, err := scanApproval(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get approval request: %w", err)
	}
	return a, nil
}

// Update rewrites the mutable state of an approval request.
func (r *ApprovalRepo) Update(ctx context.Context, a *entity.ApprovalRequest) error {
	query := `
		UPDATE approval_requests
		SET status = $2, escalation_level = $3, escalated_to = $4, deadline_at = $5,
			decided_by = $6, decision_notes = $7, decided_at = $8, movement_id = $9
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query,
		a.ID, string(a.Status), a.EscalationLevel, nullable(a.EscalatedTo), a.DeadlineAt,
		nullable(a.DecidedBy), nullable(a.DecisionNotes), a.DecidedAt, nullable(a.MovementID),
	)
	if err != nil {
		return fmt.Errorf("update approval request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListPending returns undecided requests, oldest first.
func (r *ApprovalRepo) ListPending(ctx context.Context, limit, offset int) ([]*entity.ApprovalRequest, error) {
	query := `
		SELECT ` + approvalColumns + ` FROM approval_requests
		WHERE status IN ($1, $2)
		ORDER BY requested_at LIMIT $3 OFFSET $4`
	return r.queryList(ctx, query,
		string(entity.ApprovalStatusPending), string(entity.ApprovalStatusEscalated), limit, offset)
}

// ListTimedOut returns undecided requests whose deadline passed.
func (r *ApprovalRepo) ListTimedOut(ctx context.Context, now time.Time, limit int) ([]*entity.ApprovalRequest, error) {
	query := `
		SELECT ` + approvalColumns + ` FROM approval_requests
		WHERE status IN ($1, $2) AND deadline_at <= $3
		ORDER BY deadline_at LIMIT $4`
	return r.queryList(ctx, query,
		string(entity.ApprovalStatusPending), string(entity.ApprovalStatusEscalated), now, limit)
}

func (r *ApprovalRepo) queryList(ctx context.Context, query string, args ...any) ([]*entity.ApprovalRequest, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list approval requests: %w", err)
	}
	defer rows.Close()
	var list []*entity.ApprovalRequest
	for rows.Next() {
		a, err := scanApproval(rows)
		if err != nil {
			return nil, fmt.Errorf("scan approval request: %w", err)
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

func scanApproval(row rowScanner) (*entity.ApprovalRequest, error) {
	var a entity.ApprovalRequest
	var candidate []byte
	var status string
	var escalatedTo, requestedBy, decidedBy, decisionNotes, movementID *string
	err := row.Scan(
		&a.ID, &candidate, &status, &a.RiskScore, &a.RiskFactors, &a.RequiresManualApproval,
		&a.EscalationLevel, &escalatedTo, &requestedBy, &a.RequestedAt, &a.DeadlineAt,
		&decidedBy, &decisionNotes, &a.DecidedAt, &movementID,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(candidate, &a.Candidate); err != nil {
		return nil, fmt.Errorf("unmarshal candidate: %w", err)
	}
	a.Status = entity.ApprovalStatus(status)
	a.EscalatedTo = deref(escalatedTo)
	a.RequestedBy = deref(requestedBy)
	a.DecidedBy = deref(decidedBy)
	a.DecisionNotes = deref(decisionNotes)
	a.MovementID = deref(movementID)
	return &a, nil
}
