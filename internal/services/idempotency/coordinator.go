// Package idempotency guards the bulk-import endpoint against duplicate
// and concurrent submissions of the same logical request.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"invoice-reconciliation-backend/internal/errs"
	"invoice-reconciliation-backend/internal/models"
	"invoice-reconciliation-backend/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// OutcomeKind enumerates the three ways an admission can resolve. Every
// call site must handle all of them.
type OutcomeKind int

const (
	// Proceed: this request won the key and must run the import exactly
	// once, then call Complete (or Abort on transient failure).
	Proceed OutcomeKind = iota
	// Replay: the key was already resolved with the same payload; the
	// stored response is returned verbatim and nothing is re-processed.
	Replay
	// Conflict: the key was reused with a different payload; the batch
	// is never processed.
	Conflict
)

// StoredResponse is the cached transport-level response for a resolved key.
type StoredResponse struct {
	Code int
	Body []byte
}

// Handle references the in-progress record owned by a Proceed outcome.
type Handle struct {
	record *models.IdempotencyRecord
}

// Outcome is the three-way admission result.
type Outcome struct {
	Kind   OutcomeKind
	Handle *Handle
	Stored *StoredResponse
}

type Coordinator struct {
	records *repository.IdempotencyRepository
	log     *zap.Logger

	// Losers of the insert race poll the winner's record at this cadence.
	pollInterval time.Duration
	maxPolls     int
}

func NewCoordinator(records *repository.IdempotencyRepository, log *zap.Logger) *Coordinator {
	return &Coordinator{
		records:      records,
		log:          log,
		pollInterval: 100 * time.Millisecond,
		maxPolls:     50,
	}
}

// Fingerprint digests the canonicalized payload. Canonicalization is a
// decode/re-encode round trip, which sorts object keys and strips
// insignificant whitespace, so byte-level formatting differences do not
// defeat replay detection.
func Fingerprint(payload []byte) (string, error) {
	var decoded interface{}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return "", &errs.ValidationError{Rows: []errs.RowError{
			{Row: 0, Field: "body", Reason: "request body is not valid JSON"},
		}}
	}
	canonical, err := json.Marshal(decoded)
	if err != nil {
		return "", fmt.Errorf("canonicalize payload: %w", err)
	}
	digest := sha256.Sum256(canonical)
	return hex.EncodeToString(digest[:]), nil
}

// Admit decides fresh/duplicate/conflict for (tenant, key, payload). The
// atomic insert of the in-progress record is the single source of truth
// for who won a concurrent race; losers wait for the winner to resolve
// and then replay or conflict, never processing the payload themselves.
func (c *Coordinator) Admit(ctx context.Context, tenantID uuid.UUID, key string, payload []byte) (Outcome, error) {
	fingerprint, err := Fingerprint(payload)
	if err != nil {
		return Outcome{}, err
	}

	for attempt := 0; ; attempt++ {
		record, err := c.records.Find(ctx, tenantID, key)
		if err != nil {
			return Outcome{}, err
		}

		if record == nil {
			record = &models.IdempotencyRecord{
				ID:          uuid.New(),
				TenantID:    tenantID,
				Key:         key,
				Fingerprint: fingerprint,
				Status:      models.IdempotencyStatusInProgress,
				CreatedAt:   time.Now().UTC(),
			}
			err := c.records.Insert(ctx, record)
			if err == nil {
				return Outcome{Kind: Proceed, Handle: &Handle{record: record}}, nil
			}
			if !errors.Is(err, errs.ErrRaceLost) {
				return Outcome{}, err
			}
			// Lost the insert race; re-read the winner's record.
			c.log.Debug("idempotency insert race lost",
				zap.String("tenant_id", tenantID.String()),
				zap.String("key", key))
			continue
		}

		// Fingerprints are only compared against a resolved record. While
		// the winner is in progress it may still abort, which releases the
		// key; a mismatched payload waiting here gets Proceed after an
		// abort instead of a spurious Conflict.
		if record.Status == models.IdempotencyStatusResolved {
			if record.Fingerprint != fingerprint {
				return Outcome{Kind: Conflict}, nil
			}
			return Outcome{Kind: Replay, Stored: &StoredResponse{
				Code: record.ResponseCode,
				Body: []byte(record.ResponseBody),
			}}, nil
		}

		// The winner is still in progress. Wait for it to resolve.
		if attempt >= c.maxPolls {
			return Outcome{}, fmt.Errorf("%w: request for key %q still in progress", errs.ErrStoreUnavailable, key)
		}
		select {
		case <-ctx.Done():
			return Outcome{}, ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
}

// Complete persists the response for the handle's key, transitioning the
// record to resolved. Validation failures are completed too, so retries
// replay the failure verbatim.
func (c *Coordinator) Complete(ctx context.Context, handle *Handle, code int, body []byte) error {
	return c.records.Resolve(ctx, handle.record.ID, code, datatypes.JSON(body))
}

// Abort releases the key after a transient processing failure so the
// client can retry. It must not be used for validation failures.
func (c *Coordinator) Abort(ctx context.Context, handle *Handle) error {
	return c.records.Release(ctx, handle.record.ID)
}
