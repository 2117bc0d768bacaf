package models

import (
	"time"

	"github.com/erp/eca/internal/domain/eca"
	"github.com/google/uuid"
)

// OrganizationModel is the persistence model for tenants
type OrganizationModel struct {
	ID        uuid.UUID        `gorm:"type:uuid;primary_key"`
	Name      string           `gorm:"type:varchar(200);not null"`
	Status    eca.TenantStatus `gorm:"type:varchar(20);not null;default:'active'"`
	Settings  JSONMap          `gorm:"type:jsonb"`
	CreatedAt time.Time        `gorm:"not null"`
	UpdatedAt time.Time        `gorm:"not null"`
	DeletedAt *time.Time       `gorm:"index"`
}

// TableName returns the table name for GORM
func (OrganizationModel) TableName() string {
	return "organizations"
}

// ToDomain converts the persistence model to a domain tenant
func (m *OrganizationModel) ToDomain() *eca.Tenant {
	return &eca.Tenant{
		ID:        m.ID,
		Name:      m.Name,
		Status:    m.Status,
		Settings:  eca.Attributes(m.Settings).Clone(),
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
