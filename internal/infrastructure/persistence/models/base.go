package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/erp/eca/internal/domain/shared"
	"github.com/google/uuid"
)

// BaseModel provides common persistence fields for organization-scoped rows.
// It maps to the domain's BaseEntity.
type BaseModel struct {
	ID             uuid.UUID  `gorm:"type:uuid;primary_key"`
	OrganizationID uuid.UUID  `gorm:"type:uuid;not null;index"`
	CreatedAt      time.Time  `gorm:"not null"`
	UpdatedAt      time.Time  `gorm:"not null"`
	DeletedAt      *time.Time `gorm:"index"`
}

// ToDomain converts BaseModel to domain BaseEntity
func (m *BaseModel) ToDomain() shared.BaseEntity {
	return shared.BaseEntity{
		ID:             m.ID,
		OrganizationID: m.OrganizationID,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
		DeletedAt:      m.DeletedAt,
	}
}

// FromDomainBaseEntity populates BaseModel from domain BaseEntity
func (m *BaseModel) FromDomainBaseEntity(e shared.BaseEntity) {
	m.ID = e.ID
	m.OrganizationID = e.OrganizationID
	m.CreatedAt = e.CreatedAt
	m.UpdatedAt = e.UpdatedAt
	m.DeletedAt = e.DeletedAt
}

// JSONMap is a jsonb column decoded into a map
type JSONMap map[string]any

// Value implements driver.Valuer
func (j JSONMap) Value() (driver.Value, error) {
	if j == nil {
		return "{}", nil
	}
	b, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (j *JSONMap) Scan(value any) error {
	var b []byte
	switch v := value.(type) {
	case nil:
		*j = JSONMap{}
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into JSONMap", value)
	}
	if len(b) == 0 {
		*j = JSONMap{}
		return nil
	}
	m := make(map[string]any)
	if err := json.Unmarshal(b, &m); err != nil {
		return errors.Join(errors.New("invalid jsonb value"), err)
	}
	*j = m
	return nil
}

// GormDataType tells gorm the column type for migrations
func (JSONMap) GormDataType() string {
	return "jsonb"
}
