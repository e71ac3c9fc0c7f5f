package repository

import (
	"context"
	"errors"
	"fmt"

	"invoice-reconciliation-backend/internal/errs"
	"invoice-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type IdempotencyRepository struct {
	db *gorm.DB
}

func NewIdempotencyRepository(db *gorm.DB) *IdempotencyRepository {
	return &IdempotencyRepository{db: db}
}

// Find returns the record for (tenant, key), or nil when the key has never
// been seen.
func (r *IdempotencyRepository) Find(ctx context.Context, tenantID uuid.UUID, key string) (*models.IdempotencyRecord, error) {
	var record models.IdempotencyRecord
	err := r.db.WithContext(ctx).
		First(&record, "tenant_id = ? AND key = ?", tenantID, key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, translate(err)
	}
	return &record, nil
}

// Insert atomically claims (tenant, key). The unique constraint decides
// concurrent races: the loser gets ErrRaceLost and must fall back to Find.
func (r *IdempotencyRepository) Insert(ctx context.Context, record *models.IdempotencyRecord) error {
	err := r.db.WithContext(ctx).Create(record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errs.ErrRaceLost
		}
		return translate(err)
	}
	return nil
}

// Resolve stores the response and flips the record to resolved. It only
// touches in-progress records; resolved records stay immutable.
func (r *IdempotencyRepository) Resolve(ctx context.Context, id uuid.UUID, code int, body datatypes.JSON) error {
	result := r.db.WithContext(ctx).
		Model(&models.IdempotencyRecord{}).
		Where("id = ? AND status = ?", id, models.IdempotencyStatusInProgress).
		Updates(map[string]interface{}{
			"status":        models.IdempotencyStatusResolved,
			"response_code": code,
			"response_body": body,
		})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("idempotency record %s is not in progress", id)
	}
	return nil
}

// Release drops an in-progress record after a transient processing failure
// so the client can retry the key. Resolved records are never released.
func (r *IdempotencyRepository) Release(ctx context.Context, id uuid.UUID) error {
	err := r.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, models.IdempotencyStatusInProgress).
		Delete(&models.IdempotencyRecord{}).Error
	return translate(err)
}
