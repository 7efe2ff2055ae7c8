package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EntryType string

const (
	TypeOpening         EntryType = "OPENING"
	TypeCarryForwardIn  EntryType = "CARRY_FORWARD_IN"
	TypeCarryForwardOut EntryType = "CARRY_FORWARD_OUT"
	TypeAccrual         EntryType = "ACCRUAL"
	TypePendingAdd      EntryType = "PENDING_ADD"
	TypePendingRemove   EntryType = "PENDING_REMOVE"
	TypeConsume         EntryType = "CONSUME"
	TypeAdjustment      EntryType = "ADJUSTMENT"
	TypeEncash          EntryType = "ENCASH"
	TypeReverse         EntryType = "REVERSE"
)

func (t EntryType) Valid() bool {
	switch t {
	case TypeOpening, TypeCarryForwardIn, TypeCarryForwardOut, TypeAccrual,
		TypePendingAdd, TypePendingRemove, TypeConsume, TypeAdjustment,
		TypeEncash, TypeReverse:
		return true
	}
	return false
}

// Workflow reports whether entries of this type are owned by the application
// workflow and must not be posted, or reversed, by hand.
func (t EntryType) Workflow() bool {
	return t == TypePendingAdd || t == TypePendingRemove || t == TypeConsume
}

// Key identifies one balance: an employee's leave type in one accounting year.
type Key struct {
	EmployeeID uuid.UUID
	LeaveType  string
	Year       int
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%s:%d", k.EmployeeID, k.LeaveType, k.Year)
}

// Entry is an immutable ledger row. Days is signed relative to the balance
// field the type feeds: PENDING_ADD is +n on pending, PENDING_REMOVE is -n on
// pending, CONSUME is +n on used, CARRY_FORWARD_OUT is -n on carry forward.
type Entry struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	EmployeeID     uuid.UUID       `gorm:"type:uuid;not null;index:idx_leave_ledger_key"`
	LeaveType      string          `gorm:"type:varchar(30);not null;index:idx_leave_ledger_key"`
	Year           int             `gorm:"not null;index:idx_leave_ledger_key"`
	Type           EntryType       `gorm:"type:varchar(30);not null"`
	Days           decimal.Decimal `gorm:"type:numeric(8,2);not null"`
	ApplicationID  *uuid.UUID      `gorm:"type:uuid;index"`
	ReversesID     *uuid.UUID      `gorm:"type:uuid"`
	Note           string          `gorm:"type:text"`
	CreatedBy      uuid.UUID       `gorm:"type:uuid;not null"`
	IdempotencyKey string          `gorm:"type:varchar(200);not null;uniqueIndex:uq_leave_ledger_idempotency"`
	CreatedAt      time.Time
}

func (Entry) TableName() string { return "leave_ledger" }

func (e Entry) Key() Key {
	return Key{EmployeeID: e.EmployeeID, LeaveType: e.LeaveType, Year: e.Year}
}

// Snapshot is the persisted projection of one Key. It is always replaced
// wholesale by a recompute and never edited in place.
type Snapshot struct {
	EmployeeID     uuid.UUID       `gorm:"type:uuid;primaryKey"`
	LeaveType      string          `gorm:"type:varchar(30);primaryKey"`
	Year           int             `gorm:"primaryKey"`
	OpeningBalance decimal.Decimal `gorm:"type:numeric(8,2);not null"`
	Accrued        decimal.Decimal `gorm:"type:numeric(8,2);not null"`
	Used           decimal.Decimal `gorm:"type:numeric(8,2);not null"`
	Pending        decimal.Decimal `gorm:"type:numeric(8,2);not null"`
	CarryForward   decimal.Decimal `gorm:"type:numeric(8,2);not null"`
	Encashed       decimal.Decimal `gorm:"type:numeric(8,2);not null"`
	Available      decimal.Decimal `gorm:"type:numeric(8,2);not null"`
	EntryCount     int             `gorm:"not null"`
	RecomputedAt   time.Time       `gorm:"not null"`
}

func (Snapshot) TableName() string { return "employee_leave_balances" }

func (s Snapshot) Key() Key {
	return Key{EmployeeID: s.EmployeeID, LeaveType: s.LeaveType, Year: s.Year}
}
