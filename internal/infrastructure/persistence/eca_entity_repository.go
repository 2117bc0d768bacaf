package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/eca/internal/domain/eca"
	"github.com/erp/eca/internal/domain/shared"
	"github.com/erp/eca/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormEntityRepository implements eca.EntityRepository using GORM.
// The natural key is enforced by the partial unique index
// uq_eca_entities_natural_key on live rows.
type GormEntityRepository struct {
	db *gorm.DB
}

// NewGormEntityRepository creates a new GormEntityRepository
func NewGormEntityRepository(db *gorm.DB) *GormEntityRepository {
	return &GormEntityRepository{db: db}
}

// UpsertEntity inserts the entity or merges attrs into the live row with the
// same natural key in a single statement
func (r *GormEntityRepository) UpsertEntity(ctx context.Context, orgID uuid.UUID, entityType eca.EntityType, externalID string, attrs eca.Attributes) (*eca.BusinessEntity, error) {
	candidate, err := eca.NewBusinessEntity(orgID, entityType, externalID, attrs)
	if err != nil {
		return nil, err
	}
	model := models.EntityModelFromDomain(candidate)

	err = r.db.WithContext(ctx).
		Clauses(
			clause.OnConflict{
				Columns: []clause.Column{
					{Name: "organization_id"},
					{Name: "entity_type"},
					{Name: "external_id"},
				},
				TargetWhere: clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: "deleted_at IS NULL"}}},
				DoUpdates: clause.Set{
					{Column: clause.Column{Name: "attributes"}, Value: gorm.Expr("eca_entities.attributes || EXCLUDED.attributes")},
					{Column: clause.Column{Name: "updated_at"}, Value: gorm.Expr("EXCLUDED.updated_at")},
				},
			},
			clause.Returning{},
		).
		Create(model).Error
	if err != nil {
		return nil, shared.NewStorageError("upsert entity", err)
	}
	return model.ToDomain(), nil
}

// FindEntityByExternalID returns nil, nil when no live entity matches
func (r *GormEntityRepository) FindEntityByExternalID(ctx context.Context, orgID uuid.UUID, entityType eca.EntityType, externalID string) (*eca.BusinessEntity, error) {
	var model models.EntityModel
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND entity_type = ? AND external_id = ? AND deleted_at IS NULL", orgID, entityType, externalID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, shared.NewStorageError("find entity", err)
	}
	return model.ToDomain(), nil
}

// SoftDeleteEntity stamps deleted_at, which frees the natural key
func (r *GormEntityRepository) SoftDeleteEntity(ctx context.Context, orgID, id uuid.UUID) error {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&models.EntityModel{}).
		Where("id = ? AND organization_id = ? AND deleted_at IS NULL", id, orgID).
		Updates(map[string]any{
			"deleted_at": now,
			"updated_at": now,
		})
	if result.Error != nil {
		return shared.NewStorageError("delete entity", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ eca.EntityRepository = (*GormEntityRepository)(nil)
