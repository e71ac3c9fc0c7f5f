package repository

import (
	"context"
	"errors"
	"time"

	"invoice-reconciliation-backend/internal/errs"
	"invoice-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type InvoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// InvoiceFilter holds the optional listing filters.
type InvoiceFilter struct {
	Status    string
	VendorID  *uuid.UUID
	DateFrom  *time.Time
	DateTo    *time.Time
	AmountMin *decimal.Decimal
	AmountMax *decimal.Decimal
}

func (r *InvoiceRepository) Create(ctx context.Context, invoice *models.Invoice) error {
	return translate(r.db.WithContext(ctx).Create(invoice).Error)
}

func (r *InvoiceRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.WithContext(ctx).
		First(&invoice, "tenant_id = ? AND id = ?", tenantID, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrNotFound
		}
		return nil, translate(err)
	}
	return &invoice, nil
}

func (r *InvoiceRepository) List(ctx context.Context, tenantID uuid.UUID, filter InvoiceFilter) ([]models.Invoice, error) {
	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.VendorID != nil {
		query = query.Where("vendor_id = ?", *filter.VendorID)
	}
	if filter.DateFrom != nil {
		query = query.Where("invoice_date >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		query = query.Where("invoice_date <= ?", *filter.DateTo)
	}
	if filter.AmountMin != nil {
		query = query.Where("amount >= ?", *filter.AmountMin)
	}
	if filter.AmountMax != nil {
		query = query.Where("amount <= ?", *filter.AmountMax)
	}

	var invoices []models.Invoice
	err := query.Order("id ASC").Find(&invoices).Error
	return invoices, translate(err)
}

// ListUnmatched returns unmatched invoices in stable id order so repeated
// reconciliation runs walk invoices identically.
func (r *InvoiceRepository) ListUnmatched(ctx context.Context, tenantID uuid.UUID) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND status = ?", tenantID, models.InvoiceStatusUnmatched).
		Order("id ASC").
		Find(&invoices).Error
	return invoices, translate(err)
}
