package ledger

import "github.com/shopspring/decimal"

type PostEntryRequest struct {
	EmployeeID     string          `json:"employee_id" binding:"required,uuid"`
	LeaveType      string          `json:"leave_type" binding:"required,max=30"`
	Year           int             `json:"year" binding:"required,min=2000,max=2100"`
	Type           string          `json:"type" binding:"required,oneof=OPENING ACCRUAL ADJUSTMENT ENCASH"`
	Days           decimal.Decimal `json:"days"`
	Note           string          `json:"note" binding:"max=500"`
	IdempotencyKey string          `json:"idempotency_key" binding:"max=200"`
}

type CarryForwardRequest struct {
	EmployeeID string `json:"employee_id" binding:"required,uuid"`
	LeaveType  string `json:"leave_type" binding:"required,max=30"`
	FromYear   int    `json:"from_year" binding:"required,min=2000,max=2099"`
}

type ReverseEntryRequest struct {
	Note string `json:"note" binding:"required,max=500"`
}

type EntryResponse struct {
	ID            string          `json:"id"`
	EmployeeID    string          `json:"employee_id"`
	LeaveType     string          `json:"leave_type"`
	Year          int             `json:"year"`
	Type          string          `json:"type"`
	Days          decimal.Decimal `json:"days"`
	ApplicationID *string         `json:"application_id,omitempty"`
	ReversesID    *string         `json:"reverses_id,omitempty"`
	Note          string          `json:"note,omitempty"`
	CreatedBy     string          `json:"created_by"`
	CreatedAt     string          `json:"created_at"`
}

type BalanceResponse struct {
	EmployeeID     string          `json:"employee_id"`
	LeaveType      string          `json:"leave_type"`
	Year           int             `json:"year"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	Accrued        decimal.Decimal `json:"accrued"`
	Used           decimal.Decimal `json:"used"`
	Pending        decimal.Decimal `json:"pending"`
	CarryForward   decimal.Decimal `json:"carry_forward"`
	Encashed       decimal.Decimal `json:"encashed"`
	Available      decimal.Decimal `json:"available"`
	EntryCount     int             `json:"entry_count"`
	RecomputedAt   *string         `json:"recomputed_at,omitempty"`
}

type CarryForwardResponse struct {
	Carried decimal.Decimal `json:"carried"`
	From    BalanceResponse `json:"from"`
	To      BalanceResponse `json:"to"`
}
