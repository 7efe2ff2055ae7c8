package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Balance is the fold of every entry for one Key.
type Balance struct {
	Opening      decimal.Decimal
	Accrued      decimal.Decimal
	Used         decimal.Decimal
	Pending      decimal.Decimal
	CarryForward decimal.Decimal
	Encashed     decimal.Decimal
	Entries      int
}

// Available is opening + accrued + carryForward - used - encashed - pending.
func (b Balance) Available() decimal.Decimal {
	return b.Opening.
		Add(b.Accrued).
		Add(b.CarryForward).
		Sub(b.Used).
		Sub(b.Encashed).
		Sub(b.Pending)
}

// Fold sums signed day counts by entry type. It is a pure function of its
// input, so folding the same entries twice gives the same Balance. A REVERSE
// entry lands on the field of the entry it reverses; reversals whose target
// is not in the slice are ignored.
func Fold(entries []Entry) Balance {
	typeByID := make(map[uuid.UUID]EntryType, len(entries))
	for _, e := range entries {
		typeByID[e.ID] = e.Type
	}

	var b Balance
	for _, e := range entries {
		t := e.Type
		if t == TypeReverse {
			if e.ReversesID == nil {
				continue
			}
			target, ok := typeByID[*e.ReversesID]
			if !ok || target == TypeReverse {
				continue
			}
			t = target
		}
		b.apply(t, e.Days)
		b.Entries++
	}
	return b
}

func (b *Balance) apply(t EntryType, days decimal.Decimal) {
	switch t {
	case TypeOpening:
		b.Opening = b.Opening.Add(days)
	case TypeAccrual, TypeAdjustment:
		b.Accrued = b.Accrued.Add(days)
	case TypeCarryForwardIn, TypeCarryForwardOut:
		b.CarryForward = b.CarryForward.Add(days)
	case TypePendingAdd, TypePendingRemove:
		b.Pending = b.Pending.Add(days)
	case TypeConsume:
		b.Used = b.Used.Add(days)
	case TypeEncash:
		b.Encashed = b.Encashed.Add(days)
	}
}

func (b Balance) Snapshot(key Key, at time.Time) Snapshot {
	return Snapshot{
		EmployeeID:     key.EmployeeID,
		LeaveType:      key.LeaveType,
		Year:           key.Year,
		OpeningBalance: b.Opening,
		Accrued:        b.Accrued,
		Used:           b.Used,
		Pending:        b.Pending,
		CarryForward:   b.CarryForward,
		Encashed:       b.Encashed,
		Available:      b.Available(),
		EntryCount:     b.Entries,
		RecomputedAt:   at,
	}
}

// SignedDays applies the sign convention of t to a positive magnitude.
// ADJUSTMENT keeps the caller's sign since it can earn or deduct.
func SignedDays(t EntryType, days decimal.Decimal) decimal.Decimal {
	switch t {
	case TypeAdjustment, TypeReverse:
		return days
	case TypeCarryForwardOut, TypePendingRemove:
		return days.Abs().Neg()
	default:
		return days.Abs()
	}
}
