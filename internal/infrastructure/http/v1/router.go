// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"tradecore/internal/domain/derivation"
	"tradecore/internal/infrastructure/http/v1/handlers"
	"tradecore/internal/infrastructure/http/v1/middleware"
	"tradecore/internal/infrastructure/storage/postgres"
	"tradecore/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Pool is the database connection pool (for health checks)
	Pool *postgres.Pool

	// Logger for request logging
	Logger *logger.Logger

	// TokenValidator for JWT validation
	TokenValidator middleware.TokenValidator

	// DerivationService runs the derivation operations
	DerivationService *derivation.Service

	// Invoices and PurchaseOrders provide read access to derived documents
	Invoices       derivation.InvoiceRepository
	PurchaseOrders derivation.PurchaseOrderRepository

	// Audit exposes the derivation audit trail; nil disables the endpoint
	Audit *postgres.AuditService
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth required)
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	baseHandler := handlers.NewBaseHandler()
	derivationHandler := handlers.NewDerivationHandler(
		baseHandler, cfg.DerivationService, cfg.Invoices, cfg.PurchaseOrders)

	// API v1
	api := router.Group("/api/v1")
	// The actor from the token feeds the created_by audit reference;
	// derivations without a token run anonymously.
	api.Use(middleware.OptionalAuth(cfg.TokenValidator))
	{
		derive := api.Group("/derive")
		derive.POST("/invoice", derivationHandler.DeriveInvoice)
		derive.POST("/purchase-orders", derivationHandler.DerivePurchaseOrders)

		invoices := api.Group("/invoices")
		invoices.GET("/:id", derivationHandler.GetInvoice)
		invoices.GET("/by-number/:number", derivationHandler.GetInvoiceByNumber)

		orders := api.Group("/purchase-orders")
		orders.GET("/:id", derivationHandler.GetPurchaseOrder)
		orders.GET("/by-number/:number", derivationHandler.GetPurchaseOrderByNumber)

		if cfg.Audit != nil {
			auditHandler := handlers.NewAuditHandler(baseHandler, cfg.Audit)
			api.GET("/audit/documents/:id", auditHandler.DocumentHistory)
		}
	}

	return router
}
