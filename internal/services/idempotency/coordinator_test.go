package idempotency

import (
	"context"
	"sync"
	"testing"
	"time"

	"invoice-reconciliation-backend/internal/models"
	"invoice-reconciliation-backend/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestCoordinator(t *testing.T) *Coordinator {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1) // sqlite is a single-writer store
	require.NoError(t, db.AutoMigrate(&models.IdempotencyRecord{}))

	c := NewCoordinator(repository.NewIdempotencyRepository(db), zap.NewNop())
	c.pollInterval = 20 * time.Millisecond
	return c
}

func TestAdmitFreshThenReplay(t *testing.T) {
	c := newTestCoordinator(t)
	ctx := context.Background()
	tenantID := uuid.New()
	payload := []byte(`[{"amount":"10.00","currency":"USD"}]`)

	outcome, err := c.Admit(ctx, tenantID, "key-1", payload)
	require.NoError(t, err)
	require.Equal(t, Proceed, outcome.Kind)
	require.NotNil(t, outcome.Handle)

	stored := []byte(`{"count":1,"message":"Import successful"}`)
	require.NoError(t, c.Complete(ctx, outcome.Handle, 201, stored))

	replayed, err := c.Admit(ctx, tenantID, "key-1", payload)
	require.NoError(t, err)
	assert.Equal(t, Replay, replayed.Kind)
	assert.Equal(t, 201, replayed.Stored.Code)
	assert.JSONEq(t, string(stored), string(replayed.Stored.Body))
}

func TestAdmitConflictOnDifferentPayload(t *testing.T) {
	c := newTestCoordinator(t)
	ctx := context.Background()
	tenantID := uuid.New()

	outcome, err := c.Admit(ctx, tenantID, "key-1", []byte(`[{"amount":"10.00"}]`))
	require.NoError(t, err)
	require.Equal(t, Proceed, outcome.Kind)
	require.NoError(t, c.Complete(ctx, outcome.Handle, 201, []byte(`{"count":1}`)))

	conflicting, err := c.Admit(ctx, tenantID, "key-1", []byte(`[{"amount":"99.00"}]`))
	require.NoError(t, err)
	assert.Equal(t, Conflict, conflicting.Kind)
}

func TestFingerprintIgnoresKeyOrderAndWhitespace(t *testing.T) {
	a, err := Fingerprint([]byte(`{"a":1,"b":"x"}`))
	require.NoError(t, err)
	b, err := Fingerprint([]byte(`{ "b": "x",   "a": 1 }`))
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := Fingerprint([]byte(`{"a":2,"b":"x"}`))
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestFingerprintRejectsMalformedJSON(t *testing.T) {
	_, err := Fingerprint([]byte(`{"a":`))
	assert.Error(t, err)
}

func TestSameKeyDifferentTenantsDoNotCollide(t *testing.T) {
	c := newTestCoordinator(t)
	ctx := context.Background()
	payload := []byte(`[{"amount":"10.00"}]`)

	first, err := c.Admit(ctx, uuid.New(), "shared-key", payload)
	require.NoError(t, err)
	second, err := c.Admit(ctx, uuid.New(), "shared-key", payload)
	require.NoError(t, err)

	assert.Equal(t, Proceed, first.Kind)
	assert.Equal(t, Proceed, second.Kind)
}

func TestLoserWaitsForWinnerThenReplays(t *testing.T) {
	c := newTestCoordinator(t)
	ctx := context.Background()
	tenantID := uuid.New()
	payload := []byte(`[{"amount":"10.00"}]`)
	stored := []byte(`{"count":1}`)

	winner, err := c.Admit(ctx, tenantID, "key-1", payload)
	require.NoError(t, err)
	require.Equal(t, Proceed, winner.Kind)

	// Resolve the winner while the loser is polling.
	go func() {
		time.Sleep(60 * time.Millisecond)
		_ = c.Complete(ctx, winner.Handle, 201, stored)
	}()

	loser, err := c.Admit(ctx, tenantID, "key-1", payload)
	require.NoError(t, err)
	assert.Equal(t, Replay, loser.Kind)
	assert.JSONEq(t, string(stored), string(loser.Stored.Body))
}

func TestConcurrentAdmitsExactlyOneProceeds(t *testing.T) {
	c := newTestCoordinator(t)
	tenantID := uuid.New()
	payload := []byte(`[{"amount":"10.00"}]`)
	stored := []byte(`{"count":1}`)

	var wg sync.WaitGroup
	outcomes := make([]Outcome, 2)
	errs := make([]error, 2)

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ctx := context.Background()
			out, err := c.Admit(ctx, tenantID, "key-race", payload)
			if err == nil && out.Kind == Proceed {
				err = c.Complete(ctx, out.Handle, 201, stored)
			}
			outcomes[i] = out
			errs[i] = err
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	proceeds, replays := 0, 0
	for _, out := range outcomes {
		switch out.Kind {
		case Proceed:
			proceeds++
		case Replay:
			replays++
			assert.JSONEq(t, string(stored), string(out.Stored.Body))
		}
	}
	assert.Equal(t, 1, proceeds)
	assert.Equal(t, 1, replays)
}

func TestMismatchedPayloadWaitsWhileWinnerInProgress(t *testing.T) {
	c := newTestCoordinator(t)
	ctx := context.Background()
	tenantID := uuid.New()

	winner, err := c.Admit(ctx, tenantID, "key-1", []byte(`[{"amount":"10.00"}]`))
	require.NoError(t, err)
	require.Equal(t, Proceed, winner.Kind)

	// The winner aborts while the second request is polling. The second
	// payload differs, but the key was never resolved with the first one,
	// so the retry must win the released key rather than conflict.
	go func() {
		time.Sleep(60 * time.Millisecond)
		_ = c.Abort(ctx, winner.Handle)
	}()

	second, err := c.Admit(ctx, tenantID, "key-1", []byte(`[{"amount":"99.00"}]`))
	require.NoError(t, err)
	assert.Equal(t, Proceed, second.Kind)
}

func TestMismatchedPayloadConflictsOnlyAfterResolution(t *testing.T) {
	c := newTestCoordinator(t)
	ctx := context.Background()
	tenantID := uuid.New()
	stored := []byte(`{"count":1}`)

	winner, err := c.Admit(ctx, tenantID, "key-1", []byte(`[{"amount":"10.00"}]`))
	require.NoError(t, err)
	require.Equal(t, Proceed, winner.Kind)

	go func() {
		time.Sleep(60 * time.Millisecond)
		_ = c.Complete(ctx, winner.Handle, 201, stored)
	}()

	second, err := c.Admit(ctx, tenantID, "key-1", []byte(`[{"amount":"99.00"}]`))
	require.NoError(t, err)
	assert.Equal(t, Conflict, second.Kind)
}

func TestAbortReleasesKeyForRetry(t *testing.T) {
	c := newTestCoordinator(t)
	ctx := context.Background()
	tenantID := uuid.New()
	payload := []byte(`[{"amount":"10.00"}]`)

	outcome, err := c.Admit(ctx, tenantID, "key-1", payload)
	require.NoError(t, err)
	require.Equal(t, Proceed, outcome.Kind)
	require.NoError(t, c.Abort(ctx, outcome.Handle))

	retried, err := c.Admit(ctx, tenantID, "key-1", payload)
	require.NoError(t, err)
	assert.Equal(t, Proceed, retried.Kind)
}

func TestResolvedRecordIsImmutable(t *testing.T) {
	c := newTestCoordinator(t)
	ctx := context.Background()
	tenantID := uuid.New()
	payload := []byte(`[{"amount":"10.00"}]`)

	outcome, err := c.Admit(ctx, tenantID, "key-1", payload)
	require.NoError(t, err)
	require.NoError(t, c.Complete(ctx, outcome.Handle, 201, []byte(`{"count":1}`)))

	// A second complete on the same handle must not overwrite the record.
	err = c.Complete(ctx, outcome.Handle, 500, []byte(`{"oops":true}`))
	assert.Error(t, err)

	replayed, err := c.Admit(ctx, tenantID, "key-1", payload)
	require.NoError(t, err)
	require.Equal(t, Replay, replayed.Kind)
	assert.Equal(t, 201, replayed.Stored.Code)
}
