package leavetype

import (
	"context"

	leavetypeerrors "hrm-server/internal/leavetype/errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Rules interface {
	Get(ctx context.Context, orgID, code string) (*LeaveType, error)
	CanApply(ctx context.Context, orgID, code string, in ApplyInput) (Verdict, *LeaveType, error)
	MaxCarryForward(ctx context.Context, orgID, code string) (decimal.Decimal, bool, error)
}

type rules struct {
	repo   Repository
	logger *zap.Logger
}

func NewRules(repo Repository, logger ...*zap.Logger) Rules {
	l := zap.L().Named("leavetype.rules")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("leavetype.rules")
	}
	return &rules{repo: repo, logger: l}
}

func (r *rules) Get(ctx context.Context, orgID, code string) (*LeaveType, error) {
	if _, err := uuid.Parse(orgID); err != nil {
		return nil, leavetypeerrors.ErrInvalidOrgID
	}
	return r.repo.FindByCode(ctx, orgID, code)
}

func (r *rules) CanApply(ctx context.Context, orgID, code string, in ApplyInput) (Verdict, *LeaveType, error) {
	lt, err := r.Get(ctx, orgID, code)
	if err != nil {
		return Verdict{}, nil, err
	}
	v := lt.CanApply(in)
	if !v.OK {
		r.logger.Debug("leave rule denied",
			zap.String("org_id", orgID),
			zap.String("leave_type", code),
			zap.String("reason", v.Reason),
			zap.Bool("requires_docs", v.RequiresDocs),
		)
	}
	return v, lt, nil
}

// MaxCarryForward satisfies ledger.CarryForwardLimiter.
func (r *rules) MaxCarryForward(ctx context.Context, orgID, code string) (decimal.Decimal, bool, error) {
	lt, err := r.Get(ctx, orgID, code)
	if err != nil {
		return decimal.Zero, false, err
	}
	if lt.MaxCarryForward == nil {
		return decimal.Zero, false, nil
	}
	return *lt.MaxCarryForward, true, nil
}
