package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	CandidateStatusPending   = "pending"
	CandidateStatusConfirmed = "confirmed"
	CandidateStatusRejected  = "rejected"
)

// MatchCandidate links one invoice to one transaction of the same tenant.
// At most one candidate row ever exists per (invoice, transaction) pair.
type MatchCandidate struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID      uuid.UUID      `gorm:"type:uuid;index;not null;uniqueIndex:ux_candidate_pair" json:"tenant_id"`
	InvoiceID     uuid.UUID      `gorm:"type:uuid;index;not null;uniqueIndex:ux_candidate_pair" json:"invoice_id"`
	TransactionID uuid.UUID      `gorm:"type:uuid;index;not null;uniqueIndex:ux_candidate_pair" json:"transaction_id"`
	Score         float64        `gorm:"not null" json:"score"`
	Breakdown     datatypes.JSON `json:"breakdown,omitempty"`
	Status        string         `gorm:"index;not null" json:"status"`
	CreatedAt     time.Time      `json:"created_at"`
}
