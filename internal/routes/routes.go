package routes

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"invoice-reconciliation-backend/internal/config"
	handler "invoice-reconciliation-backend/internal/handlers"
	"invoice-reconciliation-backend/internal/repository"
	"invoice-reconciliation-backend/internal/services/explain"
	"invoice-reconciliation-backend/internal/services/idempotency"
	"invoice-reconciliation-backend/internal/services/importer"
	"invoice-reconciliation-backend/internal/services/reconciliation"
)

func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config, log *zap.Logger) {
	tenantRepo := repository.NewTenantRepository(db)
	vendorRepo := repository.NewVendorRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	transactionRepo := repository.NewBankTransactionRepository(db)
	candidateRepo := repository.NewMatchCandidateRepository(db)
	idempotencyRepo := repository.NewIdempotencyRepository(db)

	reconService := reconciliation.NewService(db, invoiceRepo, transactionRepo, candidateRepo, log)
	coordinator := idempotency.NewCoordinator(idempotencyRepo, log)
	pipeline := importer.NewPipeline(transactionRepo, log)
	explainer := explain.NewService(cfg.AIAPIURL, log)

	tenantHandler := handler.NewTenantHandler(tenantRepo, vendorRepo)
	invoiceHandler := handler.NewInvoiceHandler(tenantRepo, invoiceRepo, reconService)
	transactionHandler := handler.NewTransactionHandler(tenantRepo, transactionRepo, coordinator, pipeline, log)
	reconHandler := handler.NewReconciliationHandler(tenantRepo, invoiceRepo, transactionRepo, candidateRepo, reconService, explainer)

	api := r.Group("/api")

	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api.POST("/tenants", tenantHandler.Create)
	api.GET("/tenants", tenantHandler.List)

	tenant := api.Group("/tenants/:tenantId")
	{
		tenant.GET("", tenantHandler.Get)

		tenant.POST("/vendors", tenantHandler.CreateVendor)
		tenant.GET("/vendors", tenantHandler.ListVendors)

		tenant.POST("/invoices", invoiceHandler.Create)
		tenant.GET("/invoices", invoiceHandler.List)
		tenant.GET("/invoices/:invoiceId", invoiceHandler.Get)
		tenant.DELETE("/invoices/:invoiceId", invoiceHandler.Delete)

		tenant.POST("/transactions/import", transactionHandler.Import)
		tenant.GET("/transactions", transactionHandler.List)

		tenant.POST("/reconcile", reconHandler.Reconcile)
		tenant.GET("/matches", reconHandler.ListCandidates)
		tenant.POST("/matches/:candidateId/confirm", reconHandler.Confirm)
		tenant.POST("/matches/:candidateId/reject", reconHandler.Reject)
		tenant.GET("/matches/:candidateId/explain", reconHandler.Explain)
	}
}
