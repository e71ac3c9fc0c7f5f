package handler

import (
	"net/http"
	"time"

	"invoice-reconciliation-backend/internal/models"
	"invoice-reconciliation-backend/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type TenantHandler struct {
	tenants *repository.TenantRepository
	vendors *repository.VendorRepository
}

func NewTenantHandler(tenants *repository.TenantRepository, vendors *repository.VendorRepository) *TenantHandler {
	return &TenantHandler{tenants: tenants, vendors: vendors}
}

func (h *TenantHandler) Create(c *gin.Context) {
	var payload struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	tenant := &models.Tenant{
		ID:        uuid.New(),
		Name:      payload.Name,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.tenants.Create(c.Request.Context(), tenant); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tenant)
}

func (h *TenantHandler) List(c *gin.Context) {
	tenants, err := h.tenants.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tenants)
}

func (h *TenantHandler) Get(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Param("tenantId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tenant ID"})
		return
	}
	tenant, err := h.tenants.GetByID(c.Request.Context(), tenantID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tenant)
}

func (h *TenantHandler) CreateVendor(c *gin.Context) {
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
		Name string `json:"name" binding:"required"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	vendor := &models.Vendor{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Name:      payload.Name,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.vendors.Create(c.Request.Context(), vendor); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, vendor)
}

func (h *TenantHandler) ListVendors(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Param("tenantId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tenant ID"})
		return
	}
	vendors, err := h.vendors.List(c.Request.Context(), tenantID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, vendors)
}
