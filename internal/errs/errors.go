// Package errs defines the error taxonomy shared by services and handlers.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound covers unknown tenant/invoice/transaction/candidate
	// references, including references that exist under another tenant.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyResolved is returned by confirm/reject on a candidate
	// that is no longer pending.
	ErrAlreadyResolved = errors.New("candidate already resolved")

	// ErrConflict covers idempotency-key reuse with a different payload
	// and entity deletes blocked by a confirmed match.
	ErrConflict = errors.New("conflict")

	// ErrRaceLost is internal: the atomic idempotency insert was beaten
	// by a concurrent request. Callers fall back to lookup-and-replay;
	// it never reaches the transport layer.
	ErrRaceLost = errors.New("lost idempotency insert race")

	// ErrStoreUnavailable marks transient persistence failures the
	// caller may retry a bounded number of times.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// RowError describes one invalid row in an import batch.
type RowError struct {
	Row    int    `json:"row"`
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError aggregates every invalid row of a batch; the batch
// fails as a whole.
type ValidationError struct {
	Rows []RowError
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %d row(s)", len(e.Rows))
}
