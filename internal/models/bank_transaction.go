package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	TransactionStatusUnmatched = "unmatched"
	TransactionStatusMatched   = "matched"
)

type BankTransaction struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID   uuid.UUID       `gorm:"type:uuid;index;not null" json:"tenant_id"`
	ExternalID string          `json:"external_id,omitempty"`
	PostedAt   time.Time       `gorm:"not null" json:"posted_at"`
	Amount     decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	Currency   string          `gorm:"size:3;not null" json:"currency"`
	Memo       string          `gorm:"not null" json:"memo"`
	Status     string          `gorm:"index;not null" json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
}
