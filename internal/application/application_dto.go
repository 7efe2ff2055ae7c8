package application

import (
	"time"

	"github.com/shopspring/decimal"
)

type CreateApplicationRequest struct {
	Type         string           `json:"application_type" binding:"required"`
	Title        string           `json:"title" binding:"max=200"`
	Body         string           `json:"body" binding:"max=20000"`
	TemplateID   string           `json:"template_id" binding:"omitempty,uuid"`
	Variables    map[string]any   `json:"variables"`
	Reason       string           `json:"reason" binding:"max=2000"`
	Priority     string           `json:"priority" binding:"omitempty,oneof=low normal high urgent"`
	FromDate     string           `json:"from_date" binding:"required,datetime=2006-01-02"`
	ToDate       string           `json:"to_date" binding:"required,datetime=2006-01-02"`
	NumberOfDays *decimal.Decimal `json:"number_of_days"`
	Approvers    []string         `json:"approvers" binding:"omitempty,max=10,dive,uuid"`
	Details      Details          `json:"details"`
}

type AdvanceStageRequest struct {
	Action      string   `json:"action" binding:"required,oneof=approve reject comment"`
	Message     string   `json:"message" binding:"max=2000"`
	Reason      string   `json:"reason" binding:"max=2000"`
	Attachments []string `json:"attachments" binding:"omitempty,max=10,dive,max=500"`
}

type AddCommentRequest struct {
	Message     string   `json:"message" binding:"required,max=2000"`
	Attachments []string `json:"attachments" binding:"omitempty,max=10,dive,max=500"`
	ReplyTo     *string  `json:"reply_to" binding:"omitempty,uuid"`
}

type CancelRequest struct {
	Reason string `json:"reason" binding:"max=2000"`
}

// ListFilter is bound from the query string of GET /applications.
type ListFilter struct {
	Type          string `form:"type" binding:"omitempty,oneof=leave adjustment business_trip business_trip_report refund resignation home_office data_update"`
	Status        string `form:"status" binding:"omitempty,oneof=draft in_review pending approved rejected cancelled"`
	Priority      string `form:"priority" binding:"omitempty,oneof=low normal high urgent"`
	From          string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To            string `form:"to" binding:"omitempty,datetime=2006-01-02"`
	ApplicantID   string `form:"applicant_id" binding:"omitempty,uuid"`
	ApproverID    string `form:"approver_id" binding:"omitempty,uuid"`
	DepartmentID  string `form:"department_id" binding:"omitempty,uuid"`
	DesignationID string `form:"designation_id" binding:"omitempty,uuid"`
	Search        string `form:"q" binding:"max=200"`
	Page          int    `form:"page" binding:"omitempty,min=1"`
	Limit         int    `form:"limit" binding:"omitempty,min=1"`
}

type StageResponse struct {
	Index           int        `json:"index"`
	ApproverID      string     `json:"approver_id"`
	Role            string     `json:"role"`
	Status          string     `json:"status"`
	Comments        []Comment  `json:"comments"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	RejectedAt      *time.Time `json:"rejected_at,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	DueDate         *time.Time `json:"due_date,omitempty"`
	DelegatedTo     *string    `json:"delegated_to,omitempty"`
	EscalatedTo     *string    `json:"escalated_to,omitempty"`
}

type ApplicationResponse struct {
	ID                   string          `json:"id"`
	OrgID                string          `json:"org_id"`
	Type                 string          `json:"application_type"`
	ApplicantID          string          `json:"applicant_id"`
	DepartmentID         *string         `json:"department_id,omitempty"`
	DesignationID        *string         `json:"designation_id,omitempty"`
	Title                string          `json:"title"`
	Body                 string          `json:"body"`
	TemplateID           *string         `json:"template_id,omitempty"`
	Reason               string          `json:"reason,omitempty"`
	Priority             string          `json:"priority"`
	Details              Details         `json:"details"`
	NumberOfDays         decimal.Decimal `json:"number_of_days"`
	FromDate             string          `json:"from_date"`
	ToDate               string          `json:"to_date"`
	Approvers            []StageResponse `json:"approvers"`
	CurrentApproverIndex int             `json:"current_approver_index"`
	CurrentStatus        string          `json:"current_status"`
	IsCancelled          bool            `json:"is_cancelled"`
	FinalDecisionDate    *time.Time      `json:"final_decision_date,omitempty"`
	CancelledBy          *string         `json:"cancelled_by,omitempty"`
	CancelReason         string          `json:"cancel_reason,omitempty"`
	Version              int             `json:"version"`
	History              []HistoryEntry  `json:"history,omitempty"`
	StatusTimeline       []TimelineEntry `json:"application_status_timeline,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// ApplicationSummary is the list row; stages and details are left out.
type ApplicationSummary struct {
	ID                   string          `json:"id"`
	Type                 string          `json:"application_type"`
	ApplicantID          string          `json:"applicant_id"`
	Title                string          `json:"title"`
	Priority             string          `json:"priority"`
	NumberOfDays         decimal.Decimal `json:"number_of_days"`
	FromDate             string          `json:"from_date"`
	ToDate               string          `json:"to_date"`
	CurrentApproverIndex int             `json:"current_approver_index"`
	CurrentApproverID    string          `json:"current_approver_id,omitempty"`
	StageCount           int             `json:"stage_count"`
	CurrentStatus        string          `json:"current_status"`
	CreatedAt            time.Time       `json:"created_at"`
}

type ListResult struct {
	Items []ApplicationSummary
	Total int64
	Page  int
	Limit int
}
