package handler

import (
	"net/http"
	"time"

	"invoice-reconciliation-backend/internal/models"
	"invoice-reconciliation-backend/internal/repository"
	"invoice-reconciliation-backend/internal/services/reconciliation"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type InvoiceHandler struct {
	tenants  *repository.TenantRepository
	invoices *repository.InvoiceRepository
	recon    *reconciliation.Service
}

func NewInvoiceHandler(
	tenants *repository.TenantRepository,
	invoices *repository.InvoiceRepository,
	recon *reconciliation.Service,
) *InvoiceHandler {
	return &InvoiceHandler{tenants: tenants, invoices: invoices, recon: recon}
}

func (h *InvoiceHandler) Create(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Param("tenantId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tenant ID"})
		return
	}
	if _, err := h.tenants.GetByID(c.Request.Context(), tenantID); err != nil {
		writeError(c, err)
		return
	}

	var payload struct {
		Amount        string     `json:"amount" binding:"required"`
		Currency      string     `json:"currency"`
		InvoiceDate   *time.Time `json:"invoice_date"`
		Description   string     `json:"description"`
		InvoiceNumber string     `json:"invoice_number"`
		VendorID      *uuid.UUID `json:"vendor_id"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	amount, err := decimal.NewFromString(payload.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount is not a valid decimal"})
		return
	}
	currency := payload.Currency
	if currency == "" {
		currency = "USD"
	}

	invoice := &models.Invoice{
		ID:            uuid.New(),
		TenantID:      tenantID,
		VendorID:      payload.VendorID,
		InvoiceNumber: payload.InvoiceNumber,
		Amount:        amount,
		Currency:      currency,
		InvoiceDate:   payload.InvoiceDate,
		Description:   payload.Description,
		Status:        models.InvoiceStatusUnmatched,
		CreatedAt:     time.Now().UTC(),
	}
	if err := h.invoices.Create(c.Request.Context(), invoice); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, invoice)
}

func (h *InvoiceHandler) List(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Param("tenantId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tenant ID"})
		return
	}

	filter := repository.InvoiceFilter{Status: c.Query("status")}
	if v := c.Query("vendor_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid vendor ID"})
			return
		}
		filter.VendorID = &id
	}
	if v := c.Query("date_from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date_from"})
			return
		}
		filter.DateFrom = &t
	}
	if v := c.Query("date_to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date_to"})
			return
		}
		filter.DateTo = &t
	}
	if v := c.Query("amount_min"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount_min"})
			return
		}
		filter.AmountMin = &d
	}
	if v := c.Query("amount_max"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount_max"})
			return
		}
		filter.AmountMax = &d
	}

	invoices, err := h.invoices.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoices)
}

func (h *InvoiceHandler) Get(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Param("tenantId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tenant ID"})
		return
	}
	invoiceID, err := uuid.Parse(c.Param("invoiceId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice ID"})
		return
	}

	invoice, err := h.invoices.GetByID(c.Request.Context(), tenantID, invoiceID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

// Delete refuses while a confirmed match references the invoice.
func (h *InvoiceHandler) Delete(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Param("tenantId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tenant ID"})
		return
	}
	invoiceID, err := uuid.Parse(c.Param("invoiceId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice ID"})
		return
	}

	if err := h.recon.DeleteInvoice(c.Request.Context(), tenantID, invoiceID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "invoice deleted"})
}
