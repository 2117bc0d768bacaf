package persistence

import (
	"context"
	"errors"

	"github.com/erp/eca/internal/domain/eca"
	"github.com/erp/eca/internal/domain/shared"
	"github.com/erp/eca/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormTenantResolver resolves organizations from the organizations table
type GormTenantResolver struct {
	db *gorm.DB
}

// NewGormTenantResolver creates a new GormTenantResolver
func NewGormTenantResolver(db *gorm.DB) *GormTenantResolver {
	return &GormTenantResolver{db: db}
}

// Resolve returns the organization if it exists, is not deleted and is
// active. A lookup error is reported as a storage error, never as success.
func (r *GormTenantResolver) Resolve(ctx context.Context, orgID uuid.UUID) (*eca.Tenant, error) {
	if orgID == uuid.Nil {
		return nil, shared.ErrTenantNotFound
	}
	var model models.OrganizationModel
	err := r.db.WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL", orgID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrTenantNotFound
		}
		return nil, shared.NewStorageError("resolve organization", err)
	}
	tenant := model.ToDomain()
	if !tenant.IsActive() {
		return nil, shared.ErrTenantNotFound
	}
	return tenant, nil
}

// CreateOrganization inserts an active organization, used by ecactl and tests
func (r *GormTenantResolver) CreateOrganization(ctx context.Context, tenant *eca.Tenant) error {
	model := &models.OrganizationModel{
		ID:        tenant.ID,
		Name:      tenant.Name,
		Status:    tenant.Status,
		Settings:  models.JSONMap(tenant.Settings.Clone()),
		CreatedAt: tenant.CreatedAt,
		UpdatedAt: tenant.UpdatedAt,
	}
	if model.ID == uuid.Nil {
		model.ID = uuid.New()
		tenant.ID = model.ID
	}
	if model.Status == "" {
		model.Status = eca.TenantStatusActive
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return shared.NewStorageError("create organization", err)
	}
	return nil
}

var _ eca.TenantResolver = (*GormTenantResolver)(nil)
