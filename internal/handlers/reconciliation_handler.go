package handler

import (
	"net/http"

	"invoice-reconciliation-backend/internal/repository"
	"invoice-reconciliation-backend/internal/services/explain"
	"invoice-reconciliation-backend/internal/services/reconciliation"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ReconciliationHandler struct {
	tenants      *repository.TenantRepository
	invoices     *repository.InvoiceRepository
	transactions *repository.BankTransactionRepository
	candidates   *repository.MatchCandidateRepository
	service      *reconciliation.Service
	explainer    *explain.Service
}

func NewReconciliationHandler(
	tenants *repository.TenantRepository,
	invoices *repository.InvoiceRepository,
	transactions *repository.BankTransactionRepository,
	candidates *repository.MatchCandidateRepository,
	service *reconciliation.Service,
	explainer *explain.Service,
) *ReconciliationHandler {
	return &ReconciliationHandler{
		tenants:      tenants,
		invoices:     invoices,
		transactions: transactions,
		candidates:   candidates,
		service:      service,
		explainer:    explainer,
	}
}

func (h *ReconciliationHandler) Reconcile(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Param("tenantId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tenant ID"})
		return
	}
	if _, err := h.tenants.GetByID(c.Request.Context(), tenantID); err != nil {
		writeError(c, err)
		return
	}

	created, err := h.service.Reconcile(c.Request.Context(), tenantID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, created)
}

func (h *ReconciliationHandler) ListCandidates(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Param("tenantId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tenant ID"})
		return
	}

	var invoiceID *uuid.UUID
	if v := c.Query("invoice_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice ID"})
			return
		}
		invoiceID = &id
	}

	candidates, err := h.candidates.List(c.Request.Context(), tenantID, c.Query("status"), invoiceID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, candidates)
}

func (h *ReconciliationHandler) Confirm(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Param("tenantId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tenant ID"})
		return
	}
	candidateID, err := uuid.Parse(c.Param("candidateId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid candidate ID"})
		return
	}

	candidate, err := h.service.Confirm(c.Request.Context(), tenantID, candidateID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, candidate)
}

func (h *ReconciliationHandler) Reject(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Param("tenantId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tenant ID"})
		return
	}
	candidateID, err := uuid.Parse(c.Param("candidateId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid candidate ID"})
		return
	}

	candidate, err := h.service.Reject(c.Request.Context(), tenantID, candidateID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, candidate)
}

func (h *ReconciliationHandler) Explain(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Param("tenantId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tenant ID"})
		return
	}
	candidateID, err := uuid.Parse(c.Param("candidateId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid candidate ID"})
		return
	}

	candidate, err := h.candidates.GetByID(c.Request.Context(), tenantID, candidateID)
	if err != nil {
		writeError(c, err)
		return
	}
	invoice, err := h.invoices.GetByID(c.Request.Context(), tenantID, candidate.InvoiceID)
	if err != nil {
		writeError(c, err)
		return
	}
	tx, err := h.transactions.GetByID(c.Request.Context(), tenantID, candidate.TransactionID)
	if err != nil {
		writeError(c, err)
		return
	}

	explanation := h.explainer.Explain(c.Request.Context(), invoice, tx, candidate)
	c.JSON(http.StatusOK, gin.H{"explanation": explanation})
}
