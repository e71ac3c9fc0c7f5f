package reconciliation

import (
	"context"
	"testing"
	"time"

	"invoice-reconciliation-backend/internal/errs"
	"invoice-reconciliation-backend/internal/models"
	"invoice-reconciliation-backend/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1) // sqlite is a single-writer store
	require.NoError(t, db.AutoMigrate(
		&models.Invoice{},
		&models.BankTransaction{},
		&models.MatchCandidate{},
		&models.MatchAuditLog{},
	))

	svc := NewService(db,
		repository.NewInvoiceRepository(db),
		repository.NewBankTransactionRepository(db),
		repository.NewMatchCandidateRepository(db),
		zap.NewNop(),
	)
	return svc, db
}

func seedInvoice(t *testing.T, db *gorm.DB, tenantID uuid.UUID, amount, desc string, date time.Time) *models.Invoice {
	inv := &models.Invoice{
		ID:          uuid.New(),
		TenantID:    tenantID,
		Amount:      decimal.RequireFromString(amount),
		Currency:    "USD",
		InvoiceDate: &date,
		Description: desc,
		Status:      models.InvoiceStatusUnmatched,
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, db.Create(inv).Error)
	return inv
}

func seedTransaction(t *testing.T, db *gorm.DB, tenantID uuid.UUID, amount, memo string, posted time.Time) *models.BankTransaction {
	tx := &models.BankTransaction{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Amount:    decimal.RequireFromString(amount),
		Currency:  "USD",
		PostedAt:  posted,
		Memo:      memo,
		Status:    models.TransactionStatusUnmatched,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, db.Create(tx).Error)
	return tx
}

func TestReconcileCreatesPendingCandidates(t *testing.T) {
	svc, db := newTestService(t)
	tenantID := uuid.New()
	base := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	seedInvoice(t, db, tenantID, "100.00", "Acme Corp Invoice #42", base)
	match := seedTransaction(t, db, tenantID, "100.00", "ACME CORP INV42", base.AddDate(0, 0, 2))
	seedTransaction(t, db, tenantID, "999.00", "unrelated wire", base.AddDate(0, 0, 30))

	created, err := svc.Reconcile(context.Background(), tenantID)
	require.NoError(t, err)
	require.Len(t, created, 1)

	candidate := created[0]
	assert.Equal(t, match.ID, candidate.TransactionID)
	assert.Equal(t, models.CandidateStatusPending, candidate.Status)
	assert.Greater(t, candidate.Score, 0.9)
	assert.NotEmpty(t, candidate.Breakdown)
}

func TestReconcileRespectsTenantIsolation(t *testing.T) {
	svc, db := newTestService(t)
	tenantA := uuid.New()
	tenantB := uuid.New()
	base := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	seedInvoice(t, db, tenantA, "100.00", "acme corp", base)
	seedTransaction(t, db, tenantB, "100.00", "acme corp", base)

	created, err := svc.Reconcile(context.Background(), tenantA)
	require.NoError(t, err)
	assert.Empty(t, created)
}

func TestReconcileRerunCreatesNoDuplicates(t *testing.T) {
	svc, db := newTestService(t)
	tenantID := uuid.New()
	base := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	seedInvoice(t, db, tenantID, "100.00", "acme corp", base)
	seedTransaction(t, db, tenantID, "100.00", "acme corp", base)

	first, err := svc.Reconcile(context.Background(), tenantID)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := svc.Reconcile(context.Background(), tenantID)
	require.NoError(t, err)
	assert.Empty(t, second)

	var count int64
	require.NoError(t, db.Model(&models.MatchCandidate{}).Where("tenant_id = ?", tenantID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestConfirmCascadesAtomically(t *testing.T) {
	svc, db := newTestService(t)
	tenantID := uuid.New()
	base := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	invA := seedInvoice(t, db, tenantID, "100.00", "acme corp", base)
	invB := seedInvoice(t, db, tenantID, "100.00", "acme corp", base)
	tx1 := seedTransaction(t, db, tenantID, "100.00", "acme corp", base)
	tx2 := seedTransaction(t, db, tenantID, "100.00", "acme corp", base)

	created, err := svc.Reconcile(context.Background(), tenantID)
	require.NoError(t, err)
	require.Len(t, created, 4)

	var target models.MatchCandidate
	require.NoError(t, db.First(&target, "invoice_id = ? AND transaction_id = ?", invA.ID, tx1.ID).Error)

	confirmed, err := svc.Confirm(context.Background(), tenantID, target.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CandidateStatusConfirmed, confirmed.Status)

	// Invoice and transaction flip to matched.
	var gotInvoice models.Invoice
	require.NoError(t, db.First(&gotInvoice, "id = ?", invA.ID).Error)
	assert.Equal(t, models.InvoiceStatusMatched, gotInvoice.Status)
	var gotTx models.BankTransaction
	require.NoError(t, db.First(&gotTx, "id = ?", tx1.ID).Error)
	assert.Equal(t, models.TransactionStatusMatched, gotTx.Status)

	// Siblings sharing either side are rejected; the untouched pair stays pending.
	assertCandidateStatus(t, db, invA.ID, tx2.ID, models.CandidateStatusRejected)
	assertCandidateStatus(t, db, invB.ID, tx1.ID, models.CandidateStatusRejected)
	assertCandidateStatus(t, db, invB.ID, tx2.ID, models.CandidateStatusPending)

	// Re-running reconciliation never touches matched entities or
	// resolved pairs.
	rerun, err := svc.Reconcile(context.Background(), tenantID)
	require.NoError(t, err)
	assert.Empty(t, rerun)
}

func assertCandidateStatus(t *testing.T, db *gorm.DB, invoiceID, txID uuid.UUID, want string) {
	t.Helper()
	var candidate models.MatchCandidate
	require.NoError(t, db.First(&candidate, "invoice_id = ? AND transaction_id = ?", invoiceID, txID).Error)
	assert.Equal(t, want, candidate.Status)
}

func TestConfirmUnknownCandidate(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Confirm(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestConfirmWrongTenantIsNotFound(t *testing.T) {
	svc, db := newTestService(t)
	tenantID := uuid.New()
	base := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	seedInvoice(t, db, tenantID, "100.00", "acme corp", base)
	seedTransaction(t, db, tenantID, "100.00", "acme corp", base)
	created, err := svc.Reconcile(context.Background(), tenantID)
	require.NoError(t, err)
	require.Len(t, created, 1)

	_, err = svc.Confirm(context.Background(), uuid.New(), created[0].ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestConfirmTwiceIsAlreadyResolved(t *testing.T) {
	svc, db := newTestService(t)
	tenantID := uuid.New()
	base := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	seedInvoice(t, db, tenantID, "100.00", "acme corp", base)
	seedTransaction(t, db, tenantID, "100.00", "acme corp", base)
	created, err := svc.Reconcile(context.Background(), tenantID)
	require.NoError(t, err)
	require.Len(t, created, 1)

	_, err = svc.Confirm(context.Background(), tenantID, created[0].ID)
	require.NoError(t, err)
	_, err = svc.Confirm(context.Background(), tenantID, created[0].ID)
	assert.ErrorIs(t, err, errs.ErrAlreadyResolved)
}

func TestConfirmLosesRaceWhenInvoiceAlreadyMatched(t *testing.T) {
	svc, db := newTestService(t)
	tenantID := uuid.New()
	base := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	inv := seedInvoice(t, db, tenantID, "100.00", "acme corp", base)
	tx := seedTransaction(t, db, tenantID, "100.00", "acme corp", base)
	created, err := svc.Reconcile(context.Background(), tenantID)
	require.NoError(t, err)
	require.Len(t, created, 1)

	// Another instance matched the invoice between this instance's read
	// and write. The conditional flip must see zero affected rows and
	// roll the whole confirm back.
	require.NoError(t, db.Model(&models.Invoice{}).
		Where("id = ?", inv.ID).
		Update("status", models.InvoiceStatusMatched).Error)

	_, err = svc.Confirm(context.Background(), tenantID, created[0].ID)
	assert.ErrorIs(t, err, errs.ErrAlreadyResolved)

	assertCandidateStatus(t, db, inv.ID, tx.ID, models.CandidateStatusPending)
	var gotTx models.BankTransaction
	require.NoError(t, db.First(&gotTx, "id = ?", tx.ID).Error)
	assert.Equal(t, models.TransactionStatusUnmatched, gotTx.Status)
}

func TestRejectLosesRaceWhenCandidateAlreadyResolved(t *testing.T) {
	svc, db := newTestService(t)
	tenantID := uuid.New()
	base := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	inv := seedInvoice(t, db, tenantID, "100.00", "acme corp", base)
	tx := seedTransaction(t, db, tenantID, "100.00", "acme corp", base)
	created, err := svc.Reconcile(context.Background(), tenantID)
	require.NoError(t, err)
	require.Len(t, created, 1)

	require.NoError(t, db.Model(&models.MatchCandidate{}).
		Where("id = ?", created[0].ID).
		Update("status", models.CandidateStatusConfirmed).Error)

	_, err = svc.Reject(context.Background(), tenantID, created[0].ID)
	assert.ErrorIs(t, err, errs.ErrAlreadyResolved)
	assertCandidateStatus(t, db, inv.ID, tx.ID, models.CandidateStatusConfirmed)
}

func TestRejectIsTerminal(t *testing.T) {
	svc, db := newTestService(t)
	tenantID := uuid.New()
	base := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	seedInvoice(t, db, tenantID, "100.00", "acme corp", base)
	seedTransaction(t, db, tenantID, "100.00", "acme corp", base)
	created, err := svc.Reconcile(context.Background(), tenantID)
	require.NoError(t, err)
	require.Len(t, created, 1)

	rejected, err := svc.Reject(context.Background(), tenantID, created[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.CandidateStatusRejected, rejected.Status)

	_, err = svc.Confirm(context.Background(), tenantID, created[0].ID)
	assert.ErrorIs(t, err, errs.ErrAlreadyResolved)

	// Rejected pairs are never re-scored.
	rerun, err := svc.Reconcile(context.Background(), tenantID)
	require.NoError(t, err)
	assert.Empty(t, rerun)
}

func TestDeleteInvoiceBlockedByConfirmedMatch(t *testing.T) {
	svc, db := newTestService(t)
	tenantID := uuid.New()
	base := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	inv := seedInvoice(t, db, tenantID, "100.00", "acme corp", base)
	seedTransaction(t, db, tenantID, "100.00", "acme corp", base)
	created, err := svc.Reconcile(context.Background(), tenantID)
	require.NoError(t, err)
	require.Len(t, created, 1)
	_, err = svc.Confirm(context.Background(), tenantID, created[0].ID)
	require.NoError(t, err)

	err = svc.DeleteInvoice(context.Background(), tenantID, inv.ID)
	assert.ErrorIs(t, err, errs.ErrConflict)
}

func TestDeleteInvoiceWithOnlyPendingCandidates(t *testing.T) {
	svc, db := newTestService(t)
	tenantID := uuid.New()
	base := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	inv := seedInvoice(t, db, tenantID, "100.00", "acme corp", base)
	seedTransaction(t, db, tenantID, "100.00", "acme corp", base)
	created, err := svc.Reconcile(context.Background(), tenantID)
	require.NoError(t, err)
	require.Len(t, created, 1)

	require.NoError(t, svc.DeleteInvoice(context.Background(), tenantID, inv.ID))

	err = db.First(&models.Invoice{}, "id = ?", inv.ID).Error
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
