package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	AuditActionConfirmed      = "confirmed"
	AuditActionRejected       = "rejected"
	AuditActionSiblingCascade = "sibling_cascade"
)

type MatchAuditLog struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID    uuid.UUID `gorm:"type:uuid;index;not null" json:"tenant_id"`
	CandidateID uuid.UUID `gorm:"type:uuid;index;not null" json:"candidate_id"`
	Action      string    `gorm:"not null" json:"action"`
	Reason      string    `json:"reason,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
