package leavetype

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ApplyInput describes one leave request as the eligibility rules see it.
type ApplyInput struct {
	From        time.Time
	To          time.Time
	Units       decimal.Decimal
	HasDocs     bool
	IsProbation bool
	TenureDays  int
	Today       time.Time
}

type Verdict struct {
	OK           bool   `json:"ok"`
	Reason       string `json:"reason,omitempty"`
	RequiresDocs bool   `json:"requires_docs"`
}

func deny(reason string) Verdict {
	return Verdict{Reason: reason}
}

// CanApply evaluates the rules in a fixed order and reports the first one
// that fails.
func (lt LeaveType) CanApply(in ApplyInput) Verdict {
	if !lt.Active {
		return deny(fmt.Sprintf("leave type %s is not active", lt.Code))
	}
	if in.IsProbation && !lt.AllowDuringProbation {
		return deny("leave is not available during probation")
	}
	if lt.MinTenureDays > 0 && in.TenureDays < lt.MinTenureDays {
		return deny(fmt.Sprintf("requires at least %d days of tenure", lt.MinTenureDays))
	}
	if lt.NoticeDays > 0 {
		noticeGiven := int(dateOnly(in.From).Sub(dateOnly(in.Today)).Hours() / 24)
		if noticeGiven < lt.NoticeDays {
			return deny(fmt.Sprintf("requires %d days notice", lt.NoticeDays))
		}
	}
	if lt.IncrementDays.IsPositive() && !in.Units.Div(lt.IncrementDays).IsInteger() {
		return deny(fmt.Sprintf("days must be a multiple of %s", lt.IncrementDays.String()))
	}
	if lt.MaxConsecutiveDays.IsPositive() && in.Units.GreaterThan(lt.MaxConsecutiveDays) {
		return deny(fmt.Sprintf("at most %s consecutive days allowed", lt.MaxConsecutiveDays.String()))
	}
	if lt.DocsRequiredOverDays.IsPositive() && in.Units.GreaterThan(lt.DocsRequiredOverDays) && !in.HasDocs {
		return Verdict{Reason: "documentation required", RequiresDocs: true}
	}
	return Verdict{OK: true}
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
