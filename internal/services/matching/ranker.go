package matching

import (
	"sort"

	"invoice-reconciliation-backend/internal/models"
)

// scoreThreshold is a strict lower bound: candidates scoring exactly the
// threshold are dropped.
const scoreThreshold = 0.3

// RankedMatch pairs one transaction with its score breakdown.
type RankedMatch struct {
	Transaction *models.BankTransaction
	Breakdown   Breakdown
}

// Rank scores the invoice against every unmatched same-tenant transaction,
// drops everything at or below the threshold and sorts the rest descending
// by score. Ties keep the transactions' insertion order, so callers must
// pass transactions ordered by creation. An empty result is not an error.
func Rank(invoice *models.Invoice, transactions []*models.BankTransaction) []RankedMatch {
	matches := make([]RankedMatch, 0, len(transactions))

	for _, tx := range transactions {
		if tx.TenantID != invoice.TenantID || tx.Status != models.TransactionStatusUnmatched {
			continue
		}
		breakdown := Score(invoice, tx)
		if breakdown.Total <= scoreThreshold {
			continue
		}
		matches = append(matches, RankedMatch{Transaction: tx, Breakdown: breakdown})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Breakdown.Total > matches[j].Breakdown.Total
	})

	return matches
}
