// Package reconciliation orchestrates scoring runs and candidate
// lifecycle transitions.
package reconciliation

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"invoice-reconciliation-backend/internal/errs"
	"invoice-reconciliation-backend/internal/models"
	"invoice-reconciliation-backend/internal/repository"
	"invoice-reconciliation-backend/internal/services/matching"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db           *gorm.DB
	invoices     *repository.InvoiceRepository
	transactions *repository.BankTransactionRepository
	candidates   *repository.MatchCandidateRepository
	log          *zap.Logger
}

func NewService(
	db *gorm.DB,
	invoices *repository.InvoiceRepository,
	transactions *repository.BankTransactionRepository,
	candidates *repository.MatchCandidateRepository,
	log *zap.Logger,
) *Service {
	return &Service{
		db:           db,
		invoices:     invoices,
		transactions: transactions,
		candidates:   candidates,
		log:          log,
	}
}

// Reconcile runs the ranker over every unmatched invoice of the tenant
// and persists one pending candidate per surviving pair. Invoices are
// walked in stable id order and pairs that already have a candidate in
// any status are skipped, so re-running against an unchanged dataset
// creates nothing new. The whole run commits as one store transaction.
func (s *Service) Reconcile(ctx context.Context, tenantID uuid.UUID) ([]models.MatchCandidate, error) {
	invoices, err := s.invoices.ListUnmatched(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	transactions, err := s.transactions.ListUnmatched(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	existing, err := s.candidates.ExistingPairs(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	txRefs := make([]*models.BankTransaction, len(transactions))
	for i := range transactions {
		txRefs[i] = &transactions[i]
	}

	var created []models.MatchCandidate
	now := time.Now().UTC()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range invoices {
			invoice := &invoices[i]
			ranked := matching.Rank(invoice, txRefs)

			batch := make([]models.MatchCandidate, 0, len(ranked))
			for _, match := range ranked {
				pair := repository.Pair{InvoiceID: invoice.ID, TransactionID: match.Transaction.ID}
				if _, seen := existing[pair]; seen {
					continue
				}

				breakdown, err := json.Marshal(match.Breakdown)
				if err != nil {
					return err
				}
				batch = append(batch, models.MatchCandidate{
					ID:            uuid.New(),
					TenantID:      tenantID,
					InvoiceID:     invoice.ID,
					TransactionID: match.Transaction.ID,
					Score:         match.Breakdown.Total,
					Breakdown:     breakdown,
					Status:        models.CandidateStatusPending,
					CreatedAt:     now,
				})
			}

			if len(batch) == 0 {
				continue
			}
			if err := tx.Create(&batch).Error; err != nil {
				return err
			}
			created = append(created, batch...)
		}
		return nil
	})
	if err != nil {
		return nil, storeErr(err)
	}

	s.log.Info("reconciliation run finished",
		zap.String("tenant_id", tenantID.String()),
		zap.Int("invoices", len(invoices)),
		zap.Int("candidates_created", len(created)))

	return created, nil
}

// Confirm resolves one pending candidate. The candidate flips to
// confirmed, its invoice and transaction flip to matched and every other
// pending candidate touching either side is rejected — all inside a
// single store transaction, so the cascade is all-or-nothing.
func (s *Service) Confirm(ctx context.Context, tenantID, candidateID uuid.UUID) (*models.MatchCandidate, error) {
	var confirmed models.MatchCandidate

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var candidate models.MatchCandidate
		if err := tx.First(&candidate, "tenant_id = ? AND id = ?", tenantID, candidateID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.ErrNotFound
			}
			return err
		}
		if candidate.Status != models.CandidateStatusPending {
			return errs.ErrAlreadyResolved
		}

		// Every flip is conditional on the current status and checked via
		// RowsAffected. The read above is unlocked, so a concurrent confirm
		// on another service instance may have resolved the candidate or
		// matched either entity between the read and these writes; zero
		// affected rows means we lost that race.
		result := tx.Model(&models.MatchCandidate{}).
			Where("id = ? AND status = ?", candidate.ID, models.CandidateStatusPending).
			Update("status", models.CandidateStatusConfirmed)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errs.ErrAlreadyResolved
		}

		result = tx.Model(&models.Invoice{}).
			Where("tenant_id = ? AND id = ? AND status = ?", tenantID, candidate.InvoiceID, models.InvoiceStatusUnmatched).
			Update("status", models.InvoiceStatusMatched)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errs.ErrAlreadyResolved
		}

		result = tx.Model(&models.BankTransaction{}).
			Where("tenant_id = ? AND id = ? AND status = ?", tenantID, candidate.TransactionID, models.TransactionStatusUnmatched).
			Update("status", models.TransactionStatusMatched)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errs.ErrAlreadyResolved
		}

		// Cascade: siblings sharing the invoice or the transaction die.
		if err := tx.Model(&models.MatchCandidate{}).
			Where("tenant_id = ? AND status = ? AND id <> ? AND (invoice_id = ? OR transaction_id = ?)",
				tenantID, models.CandidateStatusPending, candidate.ID,
				candidate.InvoiceID, candidate.TransactionID).
			Update("status", models.CandidateStatusRejected).Error; err != nil {
			return err
		}

		audit := models.MatchAuditLog{
			ID:          uuid.New(),
			TenantID:    tenantID,
			CandidateID: candidate.ID,
			Action:      models.AuditActionConfirmed,
			CreatedAt:   time.Now().UTC(),
		}
		if err := tx.Create(&audit).Error; err != nil {
			return err
		}

		candidate.Status = models.CandidateStatusConfirmed
		confirmed = candidate
		return nil
	})
	if err != nil {
		return nil, storeErr(err)
	}

	s.log.Info("candidate confirmed",
		zap.String("tenant_id", tenantID.String()),
		zap.String("candidate_id", candidateID.String()))

	return &confirmed, nil
}

// Reject resolves one pending candidate to rejected. Rejection is
// terminal; a rejected candidate is never reconsidered.
func (s *Service) Reject(ctx context.Context, tenantID, candidateID uuid.UUID) (*models.MatchCandidate, error) {
	var rejected models.MatchCandidate

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var candidate models.MatchCandidate
		if err := tx.First(&candidate, "tenant_id = ? AND id = ?", tenantID, candidateID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.ErrNotFound
			}
			return err
		}
		if candidate.Status != models.CandidateStatusPending {
			return errs.ErrAlreadyResolved
		}

		// Conditional for the same reason as Confirm: the read above is
		// unlocked and a concurrent resolution must not be overwritten.
		result := tx.Model(&models.MatchCandidate{}).
			Where("id = ? AND status = ?", candidate.ID, models.CandidateStatusPending).
			Update("status", models.CandidateStatusRejected)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errs.ErrAlreadyResolved
		}

		audit := models.MatchAuditLog{
			ID:          uuid.New(),
			TenantID:    tenantID,
			CandidateID: candidate.ID,
			Action:      models.AuditActionRejected,
			CreatedAt:   time.Now().UTC(),
		}
		if err := tx.Create(&audit).Error; err != nil {
			return err
		}

		candidate.Status = models.CandidateStatusRejected
		rejected = candidate
		return nil
	})
	if err != nil {
		return nil, storeErr(err)
	}

	return &rejected, nil
}

// DeleteInvoice removes an invoice unless a confirmed candidate still
// references it (reject-first policy). Guard and delete run in one store
// transaction so a confirm committing in between cannot orphan its match.
func (s *Service) DeleteInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var invoice models.Invoice
		if err := tx.First(&invoice, "tenant_id = ? AND id = ?", tenantID, invoiceID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.ErrNotFound
			}
			return err
		}

		var confirmed int64
		if err := tx.Model(&models.MatchCandidate{}).
			Where("tenant_id = ? AND invoice_id = ? AND status = ?",
				tenantID, invoiceID, models.CandidateStatusConfirmed).
			Count(&confirmed).Error; err != nil {
			return err
		}
		if confirmed > 0 {
			return errs.ErrConflict
		}

		return tx.Where("tenant_id = ? AND id = ?", tenantID, invoiceID).
			Delete(&models.Invoice{}).Error
	})
	return storeErr(err)
}

// storeErr keeps taxonomy errors intact and degrades everything else to
// a transient store failure.
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, errs.ErrNotFound),
		errors.Is(err, errs.ErrAlreadyResolved),
		errors.Is(err, errs.ErrConflict),
		errors.Is(err, errs.ErrStoreUnavailable):
		return err
	default:
		return errors.Join(errs.ErrStoreUnavailable, err)
	}
}
