package apptemplate

import (
	"context"
	"errors"

	apptemplateerrors "hrm-server/internal/apptemplate/errors"
	"hrm-server/internal/tenant"

	"gorm.io/gorm"
)

type Repository interface {
	FindByID(ctx context.Context, orgID, id string) (*ApplicationTemplate, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindByID(ctx context.Context, orgID, id string) (*ApplicationTemplate, error) {
	var t ApplicationTemplate
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(orgID)).
		First(&t, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apptemplateerrors.ErrTemplateNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}
