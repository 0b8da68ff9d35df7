package router

import (
	"time"

	"retailpos/internal/config"
	"retailpos/internal/handler"
	"retailpos/internal/infra"
	"retailpos/internal/middleware"
	"retailpos/internal/repository"
	"retailpos/internal/service"
	"retailpos/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Services is the core the HTTP layer drives.
type Services struct {
	Sales     service.SaleService
	Reversal  service.ReversalService
	Credit    service.CreditService
	Inventory service.InventoryService
	Purchases service.PurchaseService
}

// NewServices wires repositories into services.
// Dependency graph: Service ← Repository ← DB; Redis backs the lock and the job queue.
func NewServices(db *gorm.DB, locker service.Locker, dispatcher *worker.Dispatcher) Services {
	// ── Repositories ─────────────────────────────────────────────────────────
	tx := repository.NewTransactor(db)
	businessRepo := repository.NewBusinessRepository(db)
	productRepo := repository.NewProductRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	movementRepo := repository.NewMovementRepository(db)
	creditRepo := repository.NewCreditRepository(db)
	purchaseRepo := repository.NewPurchaseRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	inventorySvc := service.NewInventoryService(tx, productRepo, movementRepo, businessRepo, dispatcher)
	return Services{
		Sales:     service.NewSaleService(tx, saleRepo, productRepo, customerRepo, movementRepo, businessRepo, inventorySvc, dispatcher),
		Reversal:  service.NewReversalService(tx, saleRepo, productRepo, customerRepo, movementRepo, creditRepo, inventorySvc),
		Credit:    service.NewCreditService(tx, customerRepo, saleRepo, creditRepo, locker),
		Inventory: inventorySvc,
		Purchases: service.NewPurchaseService(tx, purchaseRepo, productRepo, inventorySvc),
	}
}

// New returns a configured Gin engine.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, svcs Services, mailCB *infra.CircuitBreaker) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// Public
	r.GET("/health", handler.Health(db, rdb, mailCB))

	Register(r, cfg.JWTSecret, svcs)

	// Swagger UI, only enabled outside production
	if !cfg.IsProduction() {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}

// Register mounts the authenticated /v1 API on r.
func Register(r gin.IRouter, jwtSecret string, svcs Services) {
	salesH := handler.NewSalesHandler(svcs.Sales, svcs.Reversal)
	creditH := handler.NewCreditHandler(svcs.Credit)
	inventoryH := handler.NewInventoryHandler(svcs.Inventory)
	purchasesH := handler.NewPurchasesHandler(svcs.Purchases)

	can := middleware.RequireCapability
	v1 := r.Group("/v1", middleware.JWTAuth(jwtSecret))
	{
		sales := v1.Group("/sales")
		{
			sales.POST("", can(middleware.CapProcessSale), salesH.ProcessSale)
			sales.GET("", can(middleware.CapViewSales), salesH.ListSales)
			sales.GET("/:id", can(middleware.CapViewSales), salesH.GetSale)
			sales.POST("/:id/void", can(middleware.CapVoidSale), salesH.VoidSale)
			sales.POST("/:id/refund", can(middleware.CapRefundSale), salesH.RefundSale)
		}

		v1.POST("/credit/payments", can(middleware.CapReceivePayment), creditH.ReceivePayment)
		customers := v1.Group("/customers")
		{
			customers.GET("/:id/statement", can(middleware.CapViewCredit), creditH.Statement)
			customers.POST("/:id/sync-debt", can(middleware.CapSyncDebt), creditH.SyncDebt)
		}

		inv := v1.Group("/inventory")
		{
			inv.POST("/adjustments", can(middleware.CapAdjustInventory), inventoryH.AdjustInventory)
			inv.GET("/movements", can(middleware.CapViewInventory), inventoryH.ListMovements)
		}
		v1.POST("/products/:id/rebuild-stock", can(middleware.CapAdjustInventory), inventoryH.RebuildStock)

		purchases := v1.Group("/purchases", can(middleware.CapManagePurchases))
		{
			purchases.POST("", purchasesH.Create)
			purchases.GET("/:id", purchasesH.Get)
			purchases.POST("/:id/receive", purchasesH.Receive)
			purchases.POST("/:id/cancel", purchasesH.Cancel)
		}
	}
}
