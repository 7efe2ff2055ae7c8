package application

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Type string

const (
	TypeLeave              Type = "leave"
	TypeAdjustment         Type = "adjustment"
	TypeBusinessTrip       Type = "business_trip"
	TypeBusinessTripReport Type = "business_trip_report"
	TypeRefund             Type = "refund"
	TypeResignation        Type = "resignation"
	TypeHomeOffice         Type = "home_office"
	TypeDataUpdate         Type = "data_update"
)

func (t Type) Valid() bool {
	switch t {
	case TypeLeave, TypeAdjustment, TypeBusinessTrip, TypeBusinessTripReport,
		TypeRefund, TypeResignation, TypeHomeOffice, TypeDataUpdate:
		return true
	}
	return false
}

type Status string

const (
	StatusDraft     Status = "draft"
	StatusInReview  Status = "in_review"
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

// Terminal statuses accept no further stage mutation.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusCancelled
}

type StageStatus string

const (
	StagePending   StageStatus = "pending"
	StageApproved  StageStatus = "approved"
	StageRejected  StageStatus = "rejected"
	StageCommented StageStatus = "commented"
	StageSkipped   StageStatus = "skipped"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

const (
	CommentRoleApplicant = "applicant"
	CommentRoleApprover  = "approver"
)

type Comment struct {
	ID          string    `json:"id"`
	SenderID    string    `json:"sender_id"`
	Role        string    `json:"role"`
	Message     string    `json:"message"`
	Attachments []string  `json:"attachments,omitempty"`
	ReplyTo     *string   `json:"reply_to,omitempty"`
	Resolved    bool      `json:"resolved"`
	CreatedAt   time.Time `json:"created_at"`
}

// Stage is one approver slot. DelegatedTo and EscalatedTo are recorded but
// play no part in authorization.
type Stage struct {
	ApproverID      string      `json:"approver_id"`
	Role            string      `json:"role"`
	Status          StageStatus `json:"status"`
	Comments        []Comment   `json:"comments"`
	ApprovedAt      *time.Time  `json:"approved_at,omitempty"`
	RejectedAt      *time.Time  `json:"rejected_at,omitempty"`
	RejectionReason string      `json:"rejection_reason,omitempty"`
	DueDate         *time.Time  `json:"due_date,omitempty"`
	DelegatedTo     *string     `json:"delegated_to,omitempty"`
	EscalatedTo     *string     `json:"escalated_to,omitempty"`
}

// Stages is persisted as a jsonb array so the conditional update can address
// the current stage by index.
type Stages []Stage

func (s Stages) Value() (driver.Value, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s)
}

func (s *Stages) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*s = nil
		return nil
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	}
	return fmt.Errorf("stages: unsupported scan type %T", src)
}

// Clone deep-copies the stages so a transition can be computed without
// touching the loaded aggregate.
func (s Stages) Clone() Stages {
	if s == nil {
		return nil
	}
	out := make(Stages, len(s))
	for i, st := range s {
		st.Comments = append([]Comment(nil), st.Comments...)
		out[i] = st
	}
	return out
}

type Application struct {
	ID                   uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OrgID                uuid.UUID       `gorm:"type:uuid;not null;index"`
	Type                 Type            `gorm:"column:application_type;type:varchar(30);not null"`
	ApplicantID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	DepartmentID         *uuid.UUID      `gorm:"type:uuid"`
	DesignationID        *uuid.UUID      `gorm:"type:uuid"`
	Title                string          `gorm:"not null"`
	Body                 string          `gorm:"type:text;not null"`
	TemplateID           *uuid.UUID      `gorm:"type:uuid"`
	Reason               string          `gorm:"type:text"`
	Priority             Priority        `gorm:"type:varchar(10);not null;default:normal"`
	Details              Details         `gorm:"type:jsonb;not null"`
	NumberOfDays         decimal.Decimal `gorm:"type:numeric(6,2);not null"`
	FromDate             time.Time       `gorm:"type:date;not null"`
	ToDate               time.Time       `gorm:"type:date;not null"`
	Approvers            Stages          `gorm:"type:jsonb;not null"`
	CurrentApproverIndex int             `gorm:"not null;default:0"`
	CurrentStatus        Status          `gorm:"type:varchar(20);not null"`
	IsCancelled          bool            `gorm:"not null;default:false"`
	FinalDecisionDate    *time.Time
	CancelledBy          *uuid.UUID `gorm:"type:uuid"`
	CancelReason         string     `gorm:"type:text"`
	Version              int        `gorm:"not null;default:1"`
	CreatedAt            time.Time
	UpdatedAt            time.Time
	DeletedAt            gorm.DeletedAt `gorm:"index"`
}

func (Application) TableName() string { return "applications" }

func (a *Application) CurrentStage() (Stage, bool) {
	if a.CurrentApproverIndex < 0 || a.CurrentApproverIndex >= len(a.Approvers) {
		return Stage{}, false
	}
	return a.Approvers[a.CurrentApproverIndex], true
}

// Decided reports whether the application left the approval flow.
func (a *Application) Decided() bool {
	return a.IsCancelled || a.CurrentStatus.Terminal()
}

// StageOf returns the first stage index at or after from that belongs to
// approverID, or -1.
func (a *Application) StageOf(approverID string, from int) int {
	for i := from; i < len(a.Approvers); i++ {
		if a.Approvers[i].ApproverID == approverID {
			return i
		}
	}
	return -1
}

// HoldsLeave reports whether creation put days on hold in the ledger.
func (a *Application) HoldsLeave() bool {
	return a.Type == TypeLeave && a.NumberOfDays.IsPositive()
}

// LeaveType is the ledger leave type the application draws on, if any.
func (a *Application) LeaveType() string {
	switch {
	case a.Details.Leave != nil:
		return a.Details.Leave.LeaveType
	case a.Details.Adjustment != nil:
		return a.Details.Adjustment.LeaveType
	}
	return ""
}
