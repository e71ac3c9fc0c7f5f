package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"invoice-reconciliation-backend/internal/errs"
	"invoice-reconciliation-backend/internal/repository"
	"invoice-reconciliation-backend/internal/services/idempotency"
	"invoice-reconciliation-backend/internal/services/importer"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type TransactionHandler struct {
	tenants      *repository.TenantRepository
	transactions *repository.BankTransactionRepository
	coordinator  *idempotency.Coordinator
	pipeline     *importer.Pipeline
	log          *zap.Logger
}

func NewTransactionHandler(
	tenants *repository.TenantRepository,
	transactions *repository.BankTransactionRepository,
	coordinator *idempotency.Coordinator,
	pipeline *importer.Pipeline,
	log *zap.Logger,
) *TransactionHandler {
	return &TransactionHandler{
		tenants:      tenants,
		transactions: transactions,
		coordinator:  coordinator,
		pipeline:     pipeline,
		log:          log,
	}
}

// Import is the idempotent bulk-import endpoint. The raw body bytes and
// the Idempotency-Key header go to the coordinator unmodified; the
// pipeline only runs on the Proceed path.
func (h *TransactionHandler) Import(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Param("tenantId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tenant ID"})
		return
	}
	if _, err := h.tenants.GetByID(c.Request.Context(), tenantID); err != nil {
		writeError(c, err)
		return
	}

	key := c.GetHeader("Idempotency-Key")
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Idempotency-Key header is required"})
		return
	}

	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unable to read request body"})
		return
	}

	outcome, err := h.coordinator.Admit(c.Request.Context(), tenantID, key, payload)
	if err != nil {
		writeError(c, err)
		return
	}

	switch outcome.Kind {
	case idempotency.Replay:
		c.Data(outcome.Stored.Code, "application/json", outcome.Stored.Body)
		return
	case idempotency.Conflict:
		c.JSON(http.StatusConflict, gin.H{"error": "idempotency key reused with a different payload"})
		return
	}

	// Proceed: this request owns the key.
	var rows []importer.TransactionRow
	if err := json.Unmarshal(payload, &rows); err != nil {
		h.completeAndSend(c, outcome.Handle, http.StatusUnprocessableEntity, gin.H{
			"error": "body must be a JSON array of transactions",
		})
		return
	}

	result, err := h.pipeline.Import(c.Request.Context(), tenantID, rows)
	if err != nil {
		var verr *errs.ValidationError
		if errors.As(err, &verr) {
			// Validation failures are cached: retries replay them verbatim.
			h.completeAndSend(c, outcome.Handle, http.StatusUnprocessableEntity, gin.H{
				"error":   "validation failed",
				"details": verr.Rows,
			})
			return
		}
		// Transient failure: release the key so the client can retry.
		if abortErr := h.coordinator.Abort(c.Request.Context(), outcome.Handle); abortErr != nil {
			h.log.Error("failed to release idempotency key", zap.Error(abortErr))
		}
		writeError(c, err)
		return
	}

	h.completeAndSend(c, outcome.Handle, http.StatusCreated, result)
}

// completeAndSend stores the response for the key and then sends the
// exact stored bytes, so replays are byte-identical.
func (h *TransactionHandler) completeAndSend(c *gin.Context, handle *idempotency.Handle, code int, body interface{}) {
	raw, err := json.Marshal(body)
	if err != nil {
		writeError(c, err)
		return
	}
	if err := h.coordinator.Complete(c.Request.Context(), handle, code, raw); err != nil {
		writeError(c, err)
		return
	}
	c.Data(code, "application/json", raw)
}

func (h *TransactionHandler) List(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Param("tenantId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tenant ID"})
		return
	}
	txs, err := h.transactions.List(c.Request.Context(), tenantID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, txs)
}
