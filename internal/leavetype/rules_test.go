package leavetype_test

import (
	"context"
	"testing"
	"time"

	"hrm-server/internal/leavetype"
	leavetypeerrors "hrm-server/internal/leavetype/errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func annual() leavetype.LeaveType {
	return leavetype.LeaveType{
		Code:                 "ANNUAL",
		NoticeDays:           3,
		IncrementDays:        decimal.NewFromFloat(0.5),
		DocsRequiredOverDays: decimal.Zero,
		AllowDuringProbation: false,
		MinTenureDays:        30,
		MaxConsecutiveDays:   decimal.NewFromInt(10),
		Active:               true,
	}
}

func TestLeaveType_CanApply(t *testing.T) {
	today := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	base := leavetype.ApplyInput{
		From:       today.AddDate(0, 0, 7),
		To:         today.AddDate(0, 0, 8),
		Units:      decimal.NewFromInt(2),
		TenureDays: 400,
		Today:      today,
	}

	tests := []struct {
		name         string
		mutateType   func(lt *leavetype.LeaveType)
		mutateInput  func(in *leavetype.ApplyInput)
		ok           bool
		reason       string
		requiresDocs bool
	}{
		{name: "eligible", ok: true},
		{
			name:        "half day increment allowed",
			mutateInput: func(in *leavetype.ApplyInput) { in.Units = decimal.NewFromFloat(1.5) },
			ok:          true,
		},
		{
			name:        "probation blocked",
			mutateInput: func(in *leavetype.ApplyInput) { in.IsProbation = true },
			reason:      "leave is not available during probation",
		},
		{
			name:        "tenure too short",
			mutateInput: func(in *leavetype.ApplyInput) { in.TenureDays = 10 },
			reason:      "requires at least 30 days of tenure",
		},
		{
			name:        "notice too short",
			mutateInput: func(in *leavetype.ApplyInput) { in.From = today.AddDate(0, 0, 2) },
			reason:      "requires 3 days notice",
		},
		{
			name:        "notice counted in whole days",
			mutateInput: func(in *leavetype.ApplyInput) { in.From = time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC) },
			ok:          true,
		},
		{
			name:       "whole day increment",
			mutateType: func(lt *leavetype.LeaveType) { lt.IncrementDays = decimal.NewFromInt(1) },
			mutateInput: func(in *leavetype.ApplyInput) {
				in.Units = decimal.NewFromFloat(1.5)
			},
			reason: "days must be a multiple of 1",
		},
		{
			name:        "too many consecutive days",
			mutateInput: func(in *leavetype.ApplyInput) { in.Units = decimal.NewFromInt(11) },
			reason:      "at most 10 consecutive days allowed",
		},
		{
			name:         "documentation required",
			mutateType:   func(lt *leavetype.LeaveType) { lt.DocsRequiredOverDays = decimal.NewFromInt(1) },
			reason:       "documentation required",
			requiresDocs: true,
		},
		{
			name:        "documentation supplied",
			mutateType:  func(lt *leavetype.LeaveType) { lt.DocsRequiredOverDays = decimal.NewFromInt(1) },
			mutateInput: func(in *leavetype.ApplyInput) { in.HasDocs = true },
			ok:          true,
		},
		{
			name:       "inactive type",
			mutateType: func(lt *leavetype.LeaveType) { lt.Active = false },
			reason:     "leave type ANNUAL is not active",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lt := annual()
			in := base
			if tt.mutateType != nil {
				tt.mutateType(&lt)
			}
			if tt.mutateInput != nil {
				tt.mutateInput(&in)
			}

			v := lt.CanApply(in)

			assert.Equal(t, tt.ok, v.OK)
			assert.Equal(t, tt.reason, v.Reason)
			assert.Equal(t, tt.requiresDocs, v.RequiresDocs)
		})
	}
}

type fakeRepository struct {
	findByCodeFn func(ctx context.Context, orgID, code string) (*leavetype.LeaveType, error)
}

func (f *fakeRepository) FindByCode(ctx context.Context, orgID, code string) (*leavetype.LeaveType, error) {
	if f.findByCodeFn != nil {
		return f.findByCodeFn(ctx, orgID, code)
	}
	return nil, leavetypeerrors.ErrLeaveTypeNotFound
}

func TestRules_MaxCarryForward(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New().String()

	t.Run("limited", func(t *testing.T) {
		max := decimal.NewFromInt(5)
		r := leavetype.NewRules(&fakeRepository{
			findByCodeFn: func(ctx context.Context, org, code string) (*leavetype.LeaveType, error) {
				lt := annual()
				lt.MaxCarryForward = &max
				return &lt, nil
			},
		})

		got, limited, err := r.MaxCarryForward(ctx, orgID, "ANNUAL")

		require.NoError(t, err)
		assert.True(t, limited)
		assert.True(t, got.Equal(max))
	})

	t.Run("unlimited", func(t *testing.T) {
		r := leavetype.NewRules(&fakeRepository{
			findByCodeFn: func(ctx context.Context, org, code string) (*leavetype.LeaveType, error) {
				lt := annual()
				return &lt, nil
			},
		})

		_, limited, err := r.MaxCarryForward(ctx, orgID, "ANNUAL")

		require.NoError(t, err)
		assert.False(t, limited)
	})

	t.Run("negative unknown type", func(t *testing.T) {
		_, _, err := leavetype.NewRules(&fakeRepository{}).MaxCarryForward(ctx, orgID, "NOPE")
		assert.ErrorIs(t, err, leavetypeerrors.ErrLeaveTypeNotFound)
	})

	t.Run("negative invalid org", func(t *testing.T) {
		_, _, err := leavetype.NewRules(&fakeRepository{}).MaxCarryForward(ctx, "org", "ANNUAL")
		assert.ErrorIs(t, err, leavetypeerrors.ErrInvalidOrgID)
	})
}

func TestRules_CanApply(t *testing.T) {
	r := leavetype.NewRules(&fakeRepository{
		findByCodeFn: func(ctx context.Context, org, code string) (*leavetype.LeaveType, error) {
			lt := annual()
			return &lt, nil
		},
	})
	today := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	v, lt, err := r.CanApply(context.Background(), uuid.New().String(), "ANNUAL", leavetype.ApplyInput{
		From:        today.AddDate(0, 0, 10),
		To:          today.AddDate(0, 0, 10),
		Units:       decimal.NewFromInt(1),
		IsProbation: true,
		TenureDays:  400,
		Today:       today,
	})

	require.NoError(t, err)
	assert.Equal(t, "ANNUAL", lt.Code)
	assert.False(t, v.OK)
	assert.Equal(t, "leave is not available during probation", v.Reason)
}
