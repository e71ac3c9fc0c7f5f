package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	InvoiceStatusUnmatched = "unmatched"
	InvoiceStatusMatched   = "matched"
)

type Invoice struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID      uuid.UUID       `gorm:"type:uuid;index;not null" json:"tenant_id"`
	VendorID      *uuid.UUID      `gorm:"type:uuid;index" json:"vendor_id,omitempty"`
	InvoiceNumber string          `json:"invoice_number,omitempty"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	Currency      string          `gorm:"size:3;not null" json:"currency"`
	InvoiceDate   *time.Time      `json:"invoice_date,omitempty"`
	Description   string          `json:"description,omitempty"`
	Status        string          `gorm:"index;not null" json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
}
