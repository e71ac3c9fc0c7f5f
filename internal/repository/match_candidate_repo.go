package repository

import (
	"context"
	"errors"

	"invoice-reconciliation-backend/internal/errs"
	"invoice-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MatchCandidateRepository struct {
	db *gorm.DB
}

func NewMatchCandidateRepository(db *gorm.DB) *MatchCandidateRepository {
	return &MatchCandidateRepository{db: db}
}

// Pair identifies one scored (invoice, transaction) combination.
type Pair struct {
	InvoiceID     uuid.UUID
	TransactionID uuid.UUID
}

func (r *MatchCandidateRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.MatchCandidate, error) {
	var candidate models.MatchCandidate
	err := r.db.WithContext(ctx).
		First(&candidate, "tenant_id = ? AND id = ?", tenantID, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrNotFound
		}
		return nil, translate(err)
	}
	return &candidate, nil
}

func (r *MatchCandidateRepository) List(ctx context.Context, tenantID uuid.UUID, status string, invoiceID *uuid.UUID) ([]models.MatchCandidate, error) {
	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if invoiceID != nil {
		query = query.Where("invoice_id = ?", *invoiceID)
	}

	var candidates []models.MatchCandidate
	err := query.Order("score DESC, created_at ASC").Find(&candidates).Error
	return candidates, translate(err)
}

// ExistingPairs returns every (invoice, transaction) pair that already has
// a candidate in any status, so reconciliation never re-scores them.
func (r *MatchCandidateRepository) ExistingPairs(ctx context.Context, tenantID uuid.UUID) (map[Pair]struct{}, error) {
	var rows []models.MatchCandidate
	err := r.db.WithContext(ctx).
		Select("invoice_id", "transaction_id").
		Where("tenant_id = ?", tenantID).
		Find(&rows).Error
	if err != nil {
		return nil, translate(err)
	}

	pairs := make(map[Pair]struct{}, len(rows))
	for _, row := range rows {
		pairs[Pair{InvoiceID: row.InvoiceID, TransactionID: row.TransactionID}] = struct{}{}
	}
	return pairs, nil
}
