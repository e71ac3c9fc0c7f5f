// Package explain produces human-readable match explanations. The AI
// endpoint is best-effort: any failure falls back to deterministic text
// derived from the persisted score breakdown.
package explain

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"invoice-reconciliation-backend/internal/models"
	"invoice-reconciliation-backend/internal/services/matching"

	"go.uber.org/zap"
)

type Service struct {
	baseURL string
	client  *http.Client
	log     *zap.Logger
}

func NewService(baseURL string, log *zap.Logger) *Service {
	return &Service{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     log,
	}
}

// Explain asks the AI endpoint for a one-paragraph explanation of the
// candidate pair. On any error or timeout the deterministic fallback is
// returned instead; Explain itself never fails.
func (s *Service) Explain(ctx context.Context, invoice *models.Invoice, tx *models.BankTransaction, candidate *models.MatchCandidate) string {
	breakdown := decodeBreakdown(candidate)

	if s.baseURL == "" {
		return Fallback(breakdown)
	}

	prompt := fmt.Sprintf(
		"Explain concisely why this bank transaction matches this invoice. Invoice: %s %s, date %s, description %q. Transaction: %s %s, date %s, memo %q.",
		invoice.Amount.StringFixed(2), invoice.Currency, formatDate(invoice.InvoiceDate), invoice.Description,
		tx.Amount.StringFixed(2), tx.Currency, tx.PostedAt.Format("2006-01-02"), tx.Memo,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+url.PathEscape(prompt), nil)
	if err != nil {
		return Fallback(breakdown)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Warn("explanation endpoint unreachable", zap.Error(err))
		return Fallback(breakdown)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Fallback(breakdown)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil || len(strings.TrimSpace(string(body))) == 0 {
		return Fallback(breakdown)
	}
	return strings.TrimSpace(string(body))
}

// Fallback templates an explanation from the score breakdown alone.
func Fallback(b matching.Breakdown) string {
	var drivers []string
	if b.AmountTerm > 0 {
		drivers = append(drivers, "exact amount")
	}
	if b.DateTerm >= 0.2 {
		drivers = append(drivers, "date proximity")
	} else if b.DateTerm > 0 {
		drivers = append(drivers, "near-date proximity")
	}
	if b.TextTerm >= 0.1 {
		drivers = append(drivers, "memo text similarity")
	}

	if len(drivers) == 0 {
		return fmt.Sprintf("Weak match (score %.2f): no single term dominated.", b.Total)
	}
	return fmt.Sprintf("Matched primarily on %s (score %.2f).", humanJoin(drivers), b.Total)
}

func decodeBreakdown(candidate *models.MatchCandidate) matching.Breakdown {
	var b matching.Breakdown
	if len(candidate.Breakdown) > 0 {
		if err := json.Unmarshal(candidate.Breakdown, &b); err == nil {
			return b
		}
	}
	b.Total = candidate.Score
	return b
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "unknown"
	}
	return t.Format("2006-01-02")
}

func humanJoin(parts []string) string {
	switch len(parts) {
	case 1:
		return parts[0]
	case 2:
		return parts[0] + " and " + parts[1]
	default:
		return strings.Join(parts[:len(parts)-1], ", ") + " and " + parts[len(parts)-1]
	}
}
