package leavetype

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LeaveType holds the eligibility rules of one leave category for an
// organisation. Zero values switch a rule off.
type LeaveType struct {
	ID                   uuid.UUID        `gorm:"type:uuid;primaryKey"`
	OrgID                uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:uq_leave_type_code"`
	Code                 string           `gorm:"type:varchar(30);not null;uniqueIndex:uq_leave_type_code"`
	Name                 string           `gorm:"not null"`
	NoticeDays           int              `gorm:"not null;default:0"`
	IncrementDays        decimal.Decimal  `gorm:"type:numeric(4,2);not null;default:1"`
	DocsRequiredOverDays decimal.Decimal  `gorm:"type:numeric(6,2);not null;default:0"`
	AllowDuringProbation bool             `gorm:"not null;default:true"`
	MinTenureDays        int              `gorm:"not null;default:0"`
	MaxConsecutiveDays   decimal.Decimal  `gorm:"type:numeric(6,2);not null;default:0"`
	AllowNegative        bool             `gorm:"not null;default:false"`
	MaxCarryForward      *decimal.Decimal `gorm:"type:numeric(6,2)"`
	Active               bool             `gorm:"not null;default:true"`
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (LeaveType) TableName() string { return "leave_types" }
