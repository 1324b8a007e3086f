package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/inkhouse/bookstock/internal/domain/entity"
)

// RequestApprovalRequest body for POST /api/approvals.
type RequestApprovalRequest struct {
	TitleID                string           `json:"title_id"`
	WarehouseID            string           `json:"warehouse_id,omitempty"`
	SourceWarehouseID      string           `json:"source_warehouse_id,omitempty"`
	DestinationWarehouseID string           `json:"destination_warehouse_id,omitempty"`
	Type                   string           `json:"type"`
	Quantity               int64            `json:"quantity"`
	MovementDate           *time.Time       `json:"movement_date,omitempty"`
	RRP                    *decimal.Decimal `json:"rrp,omitempty"`
	UnitCost               *decimal.Decimal `json:"unit_cost,omitempty"`
	TradeDiscount          *decimal.Decimal `json:"trade_discount,omitempty"`
	ReferenceNumber        string           `json:"reference_number,omitempty"`
	Notes                  string           `json:"notes,omitempty"`
	RequestedBy            string           `json:"requested_by"`
}

// ToCandidate converts the body into the snapshotted movement candidate.
func (in RequestApprovalRequest) ToCandidate() entity.MovementCandidate {
	c := entity.MovementCandidate{
		TitleID:                in.TitleID,
		WarehouseID:            in.WarehouseID,
		SourceWarehouseID:      in.SourceWarehouseID,
		DestinationWarehouseID: in.DestinationWarehouseID,
		Type:                   entity.MovementType(in.Type),
		Quantity:               in.Quantity,
		RRP:                    in.RRP,
		UnitCost:               in.UnitCost,
		TradeDiscount:          in.TradeDiscount,
		ReferenceNumber:        in.ReferenceNumber,
		Notes:                  in.Notes,
	}
	if in.MovementDate != nil {
		c.MovementDate = *in.MovementDate
	}
	return c
}

// DecideApprovalRequest body for POST /api/approvals/:id/decide.
type DecideApprovalRequest struct {
	Decision string `json:"decision"` // APPROVE or REJECT
	Actor    string `json:"actor"`
	Notes    string `json:"notes,omitempty"`
}

// EscalateApprovalRequest body for POST /api/approvals/:id/escalate.
type EscalateApprovalRequest struct {
	Actor string `json:"actor"`
	Notes string `json:"notes,omitempty"`
}

// ApprovalResponse one approval request on the wire.
type ApprovalResponse struct {
	ID                     string                   `json:"id"`
	Candidate              entity.MovementCandidate `json:"candidate"`
	Status                 string                   `json:"status"`
	RiskScore              int                      `json:"risk_score"`
	RiskFactors            []string                 `json:"risk_factors,omitempty"`
	RequiresManualApproval bool                     `json:"requires_manual_approval"`
	EscalationLevel        int                      `json:"escalation_level"`
	EscalatedTo            string                   `json:"escalated_to,omitempty"`
	RequestedBy            string                   `json:"requested_by,omitempty"`
	RequestedAt            time.Time                `json:"requested_at"`
	DeadlineAt             time.Time                `json:"deadline_at"`
	DecidedBy              string                   `json:"decided_by,omitempty"`
	DecisionNotes          string                   `json:"decision_notes,omitempty"`
	DecidedAt              *time.Time               `json:"decided_at,omitempty"`
	MovementID             string                   `json:"movement_id,omitempty"`
}

// FromApproval maps an approval request to its response.
func FromApproval(a *entity.ApprovalRequest) ApprovalResponse {
	return ApprovalResponse{
		ID:                     a.ID,
		Candidate:              a.Candidate,
		Status:                 string(a.Status),
		RiskScore:              a.RiskScore,
		RiskFactors:            a.RiskFactors,
		RequiresManualApproval: a.RequiresManualApproval,
		EscalationLevel:        a.EscalationLevel,
		EscalatedTo:            a.EscalatedTo,
		RequestedBy:            a.RequestedBy,
		RequestedAt:            a.RequestedAt,
		DeadlineAt:             a.DeadlineAt,
		DecidedBy:              a.DecidedBy,
		DecisionNotes:          a.DecisionNotes,
		DecidedAt:              a.DecidedAt,
		MovementID:             a.MovementID,
	}
}

// FromApprovals maps a list of approval requests.
func FromApprovals(list []*entity.ApprovalRequest) []ApprovalResponse {
	out := make([]ApprovalResponse, 0, len(list))
	for _, a := range list {
		out = append(out, FromApproval(a))
	}
	return out
}
