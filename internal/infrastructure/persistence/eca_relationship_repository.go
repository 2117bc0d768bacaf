package persistence

import (
	"context"

	"github.com/erp/eca/internal/domain/eca"
	"github.com/erp/eca/internal/domain/shared"
	"github.com/erp/eca/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// These predicates must match the partial unique indexes created by the
// eca_relationships migration, otherwise ON CONFLICT cannot infer them.
const (
	singleEdgePredicate = "deleted_at IS NULL AND relationship_type = 'primary_location'"
	multiEdgePredicate  = "deleted_at IS NULL AND relationship_type <> 'primary_location'"
)

// GormRelationshipRepository implements eca.RelationshipRepository using GORM
type GormRelationshipRepository struct {
	db *gorm.DB
}

// NewGormRelationshipRepository creates a new GormRelationshipRepository
func NewGormRelationshipRepository(db *gorm.DB) *GormRelationshipRepository {
	return &GormRelationshipRepository{db: db}
}

// CreateRelationship upserts the edge. Single-valued types conflict on
// (source, type) and re-point the target; multi-valued types conflict on
// (source, target, type).
func (r *GormRelationshipRepository) CreateRelationship(ctx context.Context, orgID uuid.UUID, relType eca.RelationshipType, sourceID, targetID uuid.UUID, attrs eca.Attributes) (*eca.BusinessRelationship, error) {
	candidate, err := eca.NewBusinessRelationship(orgID, relType, sourceID, targetID, attrs)
	if err != nil {
		return nil, err
	}
	model := models.RelationshipModelFromDomain(candidate)

	conflict := clause.OnConflict{
		DoUpdates: clause.Set{
			{Column: clause.Column{Name: "attributes"}, Value: gorm.Expr("eca_relationships.attributes || EXCLUDED.attributes")},
			{Column: clause.Column{Name: "updated_at"}, Value: gorm.Expr("EXCLUDED.updated_at")},
		},
	}
	if relType.Multiplicity() == eca.MultiplicitySingle {
		conflict.Columns = []clause.Column{{Name: "organization_id"}, {Name: "source_id"}, {Name: "relationship_type"}}
		conflict.TargetWhere = clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: singleEdgePredicate}}}
		conflict.DoUpdates = append(conflict.DoUpdates, clause.Assignment{
			Column: clause.Column{Name: "target_id"},
			Value:  gorm.Expr("EXCLUDED.target_id"),
		})
	} else {
		conflict.Columns = []clause.Column{{Name: "organization_id"}, {Name: "source_id"}, {Name: "target_id"}, {Name: "relationship_type"}}
		conflict.TargetWhere = clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: multiEdgePredicate}}}
	}

	if err := r.db.WithContext(ctx).Clauses(conflict, clause.Returning{}).Create(model).Error; err != nil {
		return nil, shared.NewStorageError("upsert relationship", err)
	}
	return model.ToDomain(), nil
}

// FindRelationships returns live edges matching the filter, oldest first
func (r *GormRelationshipRepository) FindRelationships(ctx context.Context, filter eca.RelationshipFilter) ([]eca.BusinessRelationship, error) {
	query := r.db.WithContext(ctx).
		Where("organization_id = ? AND deleted_at IS NULL", filter.OrganizationID)
	if filter.SourceID != uuid.Nil {
		query = query.Where("source_id = ?", filter.SourceID)
	}
	if filter.TargetID != uuid.Nil {
		query = query.Where("target_id = ?", filter.TargetID)
	}
	if filter.RelationshipType != "" {
		query = query.Where("relationship_type = ?", filter.RelationshipType)
	}

	var rows []models.RelationshipModel
	if err := query.Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, shared.NewStorageError("find relationships", err)
	}
	out := make([]eca.BusinessRelationship, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain())
	}
	return out, nil
}

var _ eca.RelationshipRepository = (*GormRelationshipRepository)(nil)
