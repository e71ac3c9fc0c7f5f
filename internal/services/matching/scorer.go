// Package matching implements the pure reconciliation scoring engine.
package matching

import (
	"math"
	"strings"
	"time"

	"invoice-reconciliation-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/texttheater/golang-levenshtein/levenshtein"
)

const (
	amountWeight = 0.6
	dateWeight   = 0.2
	textWeight   = 0.2

	closeDateWindow = 3 * 24 * time.Hour
	nearDateWindow  = 7 * 24 * time.Hour
)

// amountTolerance is the sub-cent band treated as an exact amount match.
var amountTolerance = decimal.New(1, -2)

// Breakdown carries the weighted contribution of each scoring term. It is
// persisted per candidate and drives the explanation fallback.
type Breakdown struct {
	AmountTerm float64 `json:"amount_term"`
	DateTerm   float64 `json:"date_term"`
	TextTerm   float64 `json:"text_term"`
	Total      float64 `json:"total"`
}

// Score computes the similarity between one invoice and one transaction.
// It is a total function: no I/O, no randomness, identical inputs always
// produce the identical breakdown.
func Score(invoice *models.Invoice, tx *models.BankTransaction) Breakdown {
	b := Breakdown{
		AmountTerm: amountWeight * amountTerm(invoice, tx),
		DateTerm:   dateWeight * dateTerm(invoice.InvoiceDate, tx.PostedAt),
		TextTerm:   textWeight * textTerm(invoice.Description, tx.Memo),
	}

	total := b.AmountTerm + b.DateTerm + b.TextTerm
	total = math.Round(total*1000) / 1000
	b.Total = math.Min(math.Max(total, 0), 1)
	return b
}

// amountTerm is binary: sub-cent delta with byte-equal currencies counts,
// anything else scores zero. No partial credit on amounts.
func amountTerm(invoice *models.Invoice, tx *models.BankTransaction) float64 {
	if invoice.Currency != tx.Currency {
		return 0
	}
	if invoice.Amount.Sub(tx.Amount).Abs().LessThan(amountTolerance) {
		return 1
	}
	return 0
}

func dateTerm(invoiceDate *time.Time, postedAt time.Time) float64 {
	if invoiceDate == nil {
		return 0
	}
	delta := postedAt.Sub(*invoiceDate)
	if delta < 0 {
		delta = -delta
	}
	switch {
	case delta <= closeDateWindow:
		return 1
	case delta <= nearDateWindow:
		return 0.5
	default:
		return 0
	}
}

func textTerm(description, memo string) float64 {
	a := normalizeText(description)
	b := normalizeText(memo)
	if a == "" || b == "" {
		return 0
	}
	return levenshtein.RatioForStrings([]rune(a), []rune(b), levenshtein.DefaultOptions)
}

// normalizeText lowercases and collapses all runs of whitespace.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
