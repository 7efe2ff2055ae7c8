package policy

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Tier is one approval step of a leave policy.
type Tier struct {
	Role       string `json:"role"`
	EmployeeID string `json:"employee_id"`
}

// Tiers is stored as an ordered jsonb array.
type Tiers []Tier

func (t Tiers) Value() (driver.Value, error) {
	if t == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(t)
}

func (t *Tiers) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*t = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("policy tiers: unsupported scan type %T", src)
	}
	return json.Unmarshal(raw, t)
}

type LeavePolicy struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrgID         uuid.UUID `gorm:"type:uuid;not null;index:idx_leave_policy_lookup"`
	LeaveType     string    `gorm:"type:varchar(30);not null;index:idx_leave_policy_lookup"`
	Year          int       `gorm:"not null;index:idx_leave_policy_lookup"`
	Active        bool      `gorm:"not null;default:true"`
	ApprovalTiers Tiers     `gorm:"type:jsonb;not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (LeavePolicy) TableName() string { return "leave_policies" }

// Stage is a resolved approver in chain order.
type Stage struct {
	ApproverID string
	Role       string
}
