// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/your-org/erp-backend/internal/config"
	"github.com/your-org/erp-backend/internal/infrastructure/database/redis"
	"github.com/your-org/erp-backend/internal/interfaces/http/handlers"
	"gorm.io/gorm"
)

// SetupRoutes wires every route group onto the API router group
func SetupRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	SetupMasterDataRoutes(rg, db, redisClient, cfg)
	SetupInventoryRoutes(rg, db, redisClient, cfg)
	SetupPurchasingRoutes(rg, db, redisClient, cfg)
	SetupProductionRoutes(rg, db, redisClient, cfg)
	SetupSalesRoutes(rg, db, redisClient, cfg)
	SetupReportingRoutes(rg, db, redisClient, cfg)
}

// SetupMasterDataRoutes sets up item, customer, supplier and company routes
func SetupMasterDataRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	itemHandler := handlers.NewItemHandler(db, cfg)
	customerHandler := handlers.NewCustomerHandler(db, cfg)
	supplierHandler := handlers.NewSupplierHandler(db, cfg)
	companyHandler := handlers.NewCompanyHandler(db, cfg)

	items := rg.Group("/items")
	{
		items.GET("", itemHandler.GetItems)
		items.POST("", itemHandler.CreateItem)
		items.GET("/:id", itemHandler.GetItem)
		items.GET("/code/:code", itemHandler.GetItemByCode)
		items.PUT("/:id", itemHandler.UpdateItem)
		items.DELETE("/:id", itemHandler.DeleteItem)
	}

	customers := rg.Group("/customers")
	{
		customers.GET("", customerHandler.GetCustomers)
		customers.POST("", customerHandler.CreateCustomer)
		customers.GET("/:id", customerHandler.GetCustomer)
		customers.PUT("/:id", customerHandler.UpdateCustomer)
		customers.DELETE("/:id", customerHandler.DeleteCustomer)
	}

	suppliers := rg.Group("/suppliers")
	{
		suppliers.GET("", supplierHandler.GetSuppliers)
		suppliers.POST("", supplierHandler.CreateSupplier)
		suppliers.GET("/:id", supplierHandler.GetSupplier)
		suppliers.PUT("/:id", supplierHandler.UpdateSupplier)
		suppliers.DELETE("/:id", supplierHandler.DeleteSupplier)
	}

	company := rg.Group("/company")
	{
		company.GET("", companyHandler.GetCompany)
		company.PUT("", companyHandler.UpsertCompany)
	}
}

// SetupInventoryRoutes sets up inventory lot and ledger routes
func SetupInventoryRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	inventoryHandler := handlers.NewInventoryHandler(db, cfg)

	inventory := rg.Group("/inventory")
	{
		inventory.GET("/lots", inventoryHandler.GetLots)
		inventory.GET("/lots/:id", inventoryHandler.GetLot)
		inventory.POST("/lots/:id/adjust", inventoryHandler.AdjustLot)
		inventory.GET("/transactions", inventoryHandler.GetTransactions)
		inventory.GET("/availability/:id", inventoryHandler.GetAvailability)
	}
}

// SetupPurchasingRoutes sets up purchase request and purchase order routes
func SetupPurchasingRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	requestHandler := handlers.NewPurchaseRequestHandler(db, cfg)
	orderHandler := handlers.NewPurchaseOrderHandler(db, cfg)

	purchasing := rg.Group("/purchasing")
	{
		requests := purchasing.Group("/requests")
		{
			requests.GET("", requestHandler.GetRequests)
			requests.POST("", requestHandler.CreateRequest)
			requests.POST("/convert", requestHandler.ConvertRequests)
			requests.GET("/:id", requestHandler.GetRequest)
			requests.POST("/:id/cancel", requestHandler.CancelRequest)
		}

		orders := purchasing.Group("/orders")
		{
			orders.GET("", orderHandler.GetOrders)
			orders.POST("", orderHandler.CreateOrder)
			orders.GET("/:id", orderHandler.GetOrder)
			orders.POST("/:id/receive", orderHandler.ReceiveItem)
			orders.POST("/:id/cancel", orderHandler.CancelOrder)
		}
	}
}

// SetupProductionRoutes sets up BOM, work order and kit routes
func SetupProductionRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	bomHandler := handlers.NewBOMHandler(db, cfg)
	workOrderHandler := handlers.NewWorkOrderHandler(db, cfg)
	kitHandler := handlers.NewKitHandler(db, cfg)

	boms := rg.Group("/boms")
	{
		boms.GET("", bomHandler.GetBOMs)
		boms.POST("", bomHandler.CreateBOM)
		boms.GET("/:id", bomHandler.GetBOM)
		boms.PUT("/:id", bomHandler.UpdateBOM)
		boms.DELETE("/:id", bomHandler.DeactivateBOM)
	}

	workOrders := rg.Group("/work-orders")
	{
		workOrders.GET("", workOrderHandler.GetWorkOrders)
		workOrders.POST("", workOrderHandler.CreateWorkOrder)
		workOrders.POST("/manual", workOrderHandler.CreateManualWorkOrder)
		workOrders.GET("/:id", workOrderHandler.GetWorkOrder)
		workOrders.GET("/:id/tree", workOrderHandler.GetWorkOrderTree)
		workOrders.POST("/:id/check-ready", workOrderHandler.CheckWorkOrderReady)
		workOrders.POST("/:id/allocate", workOrderHandler.AllocateWorkOrder)
		workOrders.POST("/:id/start", workOrderHandler.StartWorkOrder)
		workOrders.POST("/:id/complete", workOrderHandler.CompleteWorkOrder)
		workOrders.POST("/:id/cancel", workOrderHandler.CancelWorkOrder)
	}

	kits := rg.Group("/kits")
	{
		kits.GET("", kitHandler.GetKits)
		kits.POST("", kitHandler.CreateKit)
		kits.GET("/:id", kitHandler.GetKit)
		kits.POST("/:id/reserve", kitHandler.ReserveKit)
		kits.POST("/:id/complete", kitHandler.CompleteKitBuild)
		kits.POST("/:id/cancel", kitHandler.CancelKit)
	}
}

// SetupSalesRoutes sets up sale and quotation routes
func SetupSalesRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	salesHandler := handlers.NewSalesHandler(db, cfg)
	quotationHandler := handlers.NewQuotationHandler(db, cfg)

	sales := rg.Group("/sales")
	{
		sales.GET("", salesHandler.GetSales)
		sales.POST("", salesHandler.CreateSale)
		sales.GET("/:id", salesHandler.GetSale)
		sales.POST("/:id/confirm", salesHandler.ConfirmSale)
		sales.POST("/:id/reserve", salesHandler.ReserveSaleLot)
		sales.POST("/:id/release", salesHandler.ReleaseSaleLot)
		sales.POST("/:id/ship", salesHandler.ShipSale)
		sales.POST("/:id/cancel", salesHandler.CancelSale)
	}

	quotations := rg.Group("/quotations")
	{
		quotations.GET("", quotationHandler.GetQuotations)
		quotations.POST("", quotationHandler.CreateQuotation)
		quotations.GET("/:id", quotationHandler.GetQuotation)
		quotations.PUT("/:id/status", quotationHandler.UpdateQuotationStatus)
		quotations.POST("/:id/convert", quotationHandler.ConvertQuotation)
	}
}

// SetupReportingRoutes sets up dashboard and spreadsheet export routes
func SetupReportingRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	dashboardHandler := handlers.NewDashboardHandler(db, redisClient, cfg)
	reportHandler := handlers.NewReportHandler(db, cfg)

	dashboard := rg.Group("/dashboard")
	{
		dashboard.GET("/summary", dashboardHandler.GetSummary)
	}

	reports := rg.Group("/reports")
	{
		reports.GET("/inventory", reportHandler.ExportInventory)
		reports.GET("/work-orders", reportHandler.ExportWorkOrders)
		reports.GET("/purchasing", reportHandler.ExportPurchasing)
	}
}
