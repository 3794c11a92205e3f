package main

import (
	"log"

	"github.com/gin-gonic/gin"

	"salesdesk-system/config"
	"salesdesk-system/internal/auth"
	"salesdesk-system/internal/commissions"
	"salesdesk-system/internal/database"
	"salesdesk-system/internal/employees"
	"salesdesk-system/internal/middleware"
	"salesdesk-system/internal/orders"
	"salesdesk-system/internal/payments"
	"salesdesk-system/internal/products"
	"salesdesk-system/internal/reports"
	"salesdesk-system/internal/sales"
)

func main() {
	cfg := config.LoadConfig()

	db, err := database.NewConnection(cfg.DB.DSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	redisClient := config.NewRedisClient(cfg.Redis)

	if cfg.Gateway.SecretKey == "" {
		log.Println("Warning: TOSS_SECRET_KEY is not set, card payment confirmation will fail")
	}
	gateway := payments.NewTossClient(cfg.Gateway.BaseURL, cfg.Gateway.SecretKey)

	orderService := orders.NewService(db)

	authHandler := auth.NewHandler(db, cfg.Auth.JWTSecret)
	orderHandler := orders.NewHandler(orderService)
	paymentHandler := payments.NewHandler(db, redisClient, gateway, cfg.Gateway.ClientKey)
	commissionHandler := commissions.NewHandler(db, redisClient)
	reportHandler := reports.NewHandler(db)
	saleHandler := sales.NewHandler(db)
	employeeHandler := employees.NewHandler(db, cfg.Auth.ServiceKey)
	productHandler := products.NewHandler(db)

	r := gin.Default()

	r.Use(middleware.CORS())
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	// --- Public API Group ---
	// The checkout surface the buyer's browser talks to. Rate limited; the
	// admin group is not.
	public := r.Group("/api/v1")
	public.Use(middleware.RateLimit("30-M"))
	{
		public.POST("/auth/login", authHandler.Login)
		public.POST("/auth/register", authHandler.Register)

		public.GET("/catalog/products/:id", productHandler.GetCatalogProduct)
		public.POST("/orders", orderHandler.CreateOrder)
		public.GET("/orders/:id", orderHandler.GetOrder)

		public.GET("/payment-config", paymentHandler.CheckoutConfig)
		public.POST("/payment-confirm", paymentHandler.ConfirmPayment)
		public.GET("/payment-fail", paymentHandler.PaymentFail)
	}

	// --- Protected API Group ---
	protected := r.Group("/api/v1")
	protected.Use(middleware.JWTAuth([]byte(cfg.Auth.JWTSecret)))
	{
		protected.GET("/dashboard", reportHandler.GetDashboard)
		protected.GET("/statistics", reportHandler.GetStatistics)
		protected.GET("/employees/:id/dashboard", reportHandler.GetEmployeeDashboard)

		salesGroup := protected.Group("/sales")
		{
			salesGroup.POST("", saleHandler.CreateSale)
			salesGroup.GET("", saleHandler.ListSales)
			salesGroup.PUT("/:id", saleHandler.UpdateSale)
			salesGroup.DELETE("/:id", saleHandler.DeleteSale)
		}

		productsGroup := protected.Group("/products")
		{
			productsGroup.POST("", productHandler.CreateProduct)
			productsGroup.GET("", productHandler.ListProducts)
			productsGroup.GET("/:id", productHandler.GetProduct)
			productsGroup.PUT("/:id", productHandler.UpdateProduct)
		}

		employeesGroup := protected.Group("/employees")
		{
			employeesGroup.POST("", employeeHandler.CreateEmployee)
			employeesGroup.GET("", employeeHandler.ListEmployees)
			employeesGroup.GET("/:id", employeeHandler.GetEmployee)
			employeesGroup.PUT("/:id", employeeHandler.UpdateEmployee)
		}

		// Admin-only surface: reconciliation and payroll.
		admin := protected.Group("")
		admin.Use(middleware.RequireAdmin())
		{
			admin.GET("/admin/orders", orderHandler.ListOrders)
			admin.POST("/admin/orders/:id/confirm", orderHandler.ConfirmBankTransfer)
			admin.POST("/admin/orders/:id/cancel", orderHandler.CancelOrder)

			admin.GET("/commissions", commissionHandler.GetMonthlyReport)
			admin.POST("/commissions/toggle", commissionHandler.TogglePaid)
			admin.POST("/commissions/pay-all", commissionHandler.PayAll)

			admin.POST("/employees/:id/reset-credential", employeeHandler.ResetCredential)
		}
	}

	log.Println("Server listening on :8080")
	if err := r.Run(":8080"); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
