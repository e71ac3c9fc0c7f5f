// Package importer validates and persists bank transaction batches. It is
// only ever invoked on the idempotency coordinator's Proceed path.
package importer

import (
	"context"
	"time"

	"invoice-reconciliation-backend/internal/errs"
	"invoice-reconciliation-backend/internal/models"
	"invoice-reconciliation-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TransactionRow is one row of an import batch. Amounts arrive as strings
// so precision survives the wire.
type TransactionRow struct {
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
	PostedAt   string `json:"posted_at"`
	Memo       string `json:"memo"`
	ExternalID string `json:"external_id,omitempty"`
}

// Result summarizes a successful import; it becomes the stored response
// for the batch's idempotency key.
type Result struct {
	Message        string      `json:"message"`
	Count          int         `json:"count"`
	TransactionIDs []uuid.UUID `json:"transaction_ids"`
}

type Pipeline struct {
	transactions *repository.BankTransactionRepository
	log          *zap.Logger
}

func NewPipeline(transactions *repository.BankTransactionRepository, log *zap.Logger) *Pipeline {
	return &Pipeline{transactions: transactions, log: log}
}

// Import validates every row, then persists the whole batch in one store
// transaction. Any invalid row fails the batch atomically with a
// ValidationError listing every offending row.
func (p *Pipeline) Import(ctx context.Context, tenantID uuid.UUID, rows []TransactionRow) (*Result, error) {
	if len(rows) == 0 {
		return nil, &errs.ValidationError{Rows: []errs.RowError{
			{Row: 0, Field: "transactions", Reason: "batch is empty"},
		}}
	}

	var rowErrors []errs.RowError
	txs := make([]*models.BankTransaction, 0, len(rows))
	now := time.Now().UTC()

	for i, row := range rows {
		amount, err := decimal.NewFromString(row.Amount)
		if err != nil {
			rowErrors = append(rowErrors, errs.RowError{Row: i, Field: "amount", Reason: "not a valid decimal"})
		}
		if !knownCurrency(row.Currency) {
			rowErrors = append(rowErrors, errs.RowError{Row: i, Field: "currency", Reason: "unknown currency code"})
		}
		postedAt, err := parsePostedAt(row.PostedAt)
		if err != nil {
			rowErrors = append(rowErrors, errs.RowError{Row: i, Field: "posted_at", Reason: "not a valid date"})
		}
		if row.Memo == "" {
			rowErrors = append(rowErrors, errs.RowError{Row: i, Field: "memo", Reason: "memo is required"})
		}
		if len(rowErrors) > 0 {
			continue
		}

		txs = append(txs, &models.BankTransaction{
			ID:         uuid.New(),
			TenantID:   tenantID,
			ExternalID: row.ExternalID,
			PostedAt:   postedAt,
			Amount:     amount,
			Currency:   row.Currency,
			Memo:       row.Memo,
			Status:     models.TransactionStatusUnmatched,
			CreatedAt:  now,
		})
	}

	if len(rowErrors) > 0 {
		return nil, &errs.ValidationError{Rows: rowErrors}
	}

	if err := p.transactions.BatchCreate(ctx, txs); err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(txs))
	for i, tx := range txs {
		ids[i] = tx.ID
	}

	p.log.Info("imported transaction batch",
		zap.String("tenant_id", tenantID.String()),
		zap.Int("count", len(txs)))

	return &Result{
		Message:        "Import successful",
		Count:          len(txs),
		TransactionIDs: ids,
	}, nil
}

// parsePostedAt accepts RFC 3339 timestamps and bare dates.
func parsePostedAt(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	return time.Parse("2006-01-02", value)
}
