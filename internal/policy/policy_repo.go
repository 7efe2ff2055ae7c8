package policy

import (
	"context"
	"errors"

	"hrm-server/internal/tenant"

	"gorm.io/gorm"
)

type Store interface {
	// GetActivePolicy returns nil, nil when no active policy exists.
	GetActivePolicy(ctx context.Context, orgID, leaveType string, year int) (*LeavePolicy, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Store {
	return &repository{db: db}
}

func (r *repository) GetActivePolicy(ctx context.Context, orgID, leaveType string, year int) (*LeavePolicy, error) {
	var p LeavePolicy
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(orgID)).
		Where("leave_type = ? AND year = ? AND active = ?", leaveType, year, true).
		Order("updated_at DESC").
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
