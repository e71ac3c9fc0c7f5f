package repository

import (
	"context"
	"errors"

	"invoice-reconciliation-backend/internal/errs"
	"invoice-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BankTransactionRepository struct {
	db *gorm.DB
}

func NewBankTransactionRepository(db *gorm.DB) *BankTransactionRepository {
	return &BankTransactionRepository{db: db}
}

func (r *BankTransactionRepository) List(ctx context.Context, tenantID uuid.UUID) ([]models.BankTransaction, error) {
	var txs []models.BankTransaction
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at ASC, id ASC").
		Find(&txs).Error
	return txs, translate(err)
}

// ListUnmatched returns unmatched transactions in insertion order, which
// the ranker relies on for deterministic tie-breaking.
func (r *BankTransactionRepository) ListUnmatched(ctx context.Context, tenantID uuid.UUID) ([]models.BankTransaction, error) {
	var txs []models.BankTransaction
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND status = ?", tenantID, models.TransactionStatusUnmatched).
		Order("created_at ASC, id ASC").
		Find(&txs).Error
	return txs, translate(err)
}

func (r *BankTransactionRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.BankTransaction, error) {
	var tx models.BankTransaction
	err := r.db.WithContext(ctx).
		First(&tx, "tenant_id = ? AND id = ?", tenantID, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrNotFound
		}
		return nil, translate(err)
	}
	return &tx, nil
}

// BatchCreate inserts all rows in one transaction; either every row lands
// or none do.
func (r *BankTransactionRepository) BatchCreate(ctx context.Context, txs []*models.BankTransaction) error {
	if len(txs) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(txs).Error
	})
	return translate(err)
}
