package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/erp/eca/internal/domain/eca"
	"github.com/erp/eca/internal/domain/shared"
	"github.com/erp/eca/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTransactionRepository implements eca.TransactionRepository using GORM
type GormTransactionRepository struct {
	db *gorm.DB
}

// NewGormTransactionRepository creates a new GormTransactionRepository
func NewGormTransactionRepository(db *gorm.DB) *GormTransactionRepository {
	return &GormTransactionRepository{db: db}
}

// CreateTransaction inserts tx. If a live transaction already holds the
// natural key the insert is skipped and the stored row is returned.
func (r *GormTransactionRepository) CreateTransaction(ctx context.Context, tx *eca.BusinessTransaction) (*eca.BusinessTransaction, bool, error) {
	model := models.TransactionModelFromDomain(tx)
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "organization_id"},
				{Name: "transaction_type"},
				{Name: "external_id"},
			},
			TargetWhere: clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: "deleted_at IS NULL"}}},
			DoNothing:   true,
		}).
		Create(model)
	if result.Error != nil {
		return nil, false, shared.NewStorageError("create transaction", result.Error)
	}
	if result.RowsAffected > 0 {
		return model.ToDomain(), true, nil
	}

	existing, err := r.FindTransactionByExternalID(ctx, tx.OrganizationID, tx.TransactionType, tx.ExternalIDValue())
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		// the conflicting row was deleted between the insert and the read
		return nil, false, shared.ErrConcurrencyConflict
	}
	return existing, false, nil
}

// FindTransactionByExternalID returns nil, nil when absent
func (r *GormTransactionRepository) FindTransactionByExternalID(ctx context.Context, orgID uuid.UUID, txType eca.TransactionType, externalID string) (*eca.BusinessTransaction, error) {
	var model models.TransactionModel
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND transaction_type = ? AND external_id = ? AND deleted_at IS NULL", orgID, txType, externalID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, shared.NewStorageError("find transaction", err)
	}
	return model.ToDomain(), nil
}

// FindTransactionByID returns nil, nil when absent or owned by another organization
func (r *GormTransactionRepository) FindTransactionByID(ctx context.Context, orgID, id uuid.UUID) (*eca.BusinessTransaction, error) {
	var model models.TransactionModel
	err := r.db.WithContext(ctx).
		Where("id = ? AND organization_id = ? AND deleted_at IS NULL", id, orgID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, shared.NewStorageError("find transaction", err)
	}
	return model.ToDomain(), nil
}

// CompareAndSetStatus is a conditional UPDATE on the current status.
// attrs are merged into the stored attributes with jsonb concatenation.
func (r *GormTransactionRepository) CompareAndSetStatus(ctx context.Context, orgID, id uuid.UUID, from, to eca.BusinessState, attrs eca.Attributes) (bool, error) {
	if attrs == nil {
		attrs = eca.Attributes{}
	}
	patch, err := json.Marshal(attrs)
	if err != nil {
		return false, shared.NewStorageError("encode transaction attributes", err)
	}

	result := r.db.WithContext(ctx).
		Model(&models.TransactionModel{}).
		Where("id = ? AND organization_id = ? AND status = ? AND deleted_at IS NULL", id, orgID, from).
		Updates(map[string]any{
			"status":     to,
			"attributes": gorm.Expr("attributes || ?::jsonb", string(patch)),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return false, shared.NewStorageError("update transaction status", result.Error)
	}
	return result.RowsAffected == 1, nil
}

var _ eca.TransactionRepository = (*GormTransactionRepository)(nil)
