package leavetype

import (
	"context"
	"errors"

	leavetypeerrors "hrm-server/internal/leavetype/errors"
	"hrm-server/internal/tenant"

	"gorm.io/gorm"
)

type Repository interface {
	FindByCode(ctx context.Context, orgID, code string) (*LeaveType, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindByCode(ctx context.Context, orgID, code string) (*LeaveType, error) {
	var lt LeaveType
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(orgID)).
		First(&lt, "code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, leavetypeerrors.ErrLeaveTypeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &lt, nil
}
