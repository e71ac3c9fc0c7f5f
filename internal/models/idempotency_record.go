package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	IdempotencyStatusInProgress = "in_progress"
	IdempotencyStatusResolved   = "resolved"
)

// IdempotencyRecord guards one logical bulk-import request. The unique
// index on (tenant_id, key) is what decides concurrent insert races.
// Once resolved, fingerprint and stored response never change.
type IdempotencyRecord struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID     uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:ux_idempotency_tenant_key" json:"tenant_id"`
	Key          string         `gorm:"not null;uniqueIndex:ux_idempotency_tenant_key" json:"key"`
	Fingerprint  string         `gorm:"size:64;not null" json:"fingerprint"`
	Status       string         `gorm:"index;not null" json:"status"`
	ResponseCode int            `json:"response_code,omitempty"`
	ResponseBody datatypes.JSON `json:"response_body,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}
