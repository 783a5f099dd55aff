package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Gunjankadam/Vendofy-sub001/config"
	"github.com/Gunjankadam/Vendofy-sub001/database"
	"github.com/Gunjankadam/Vendofy-sub001/handlers"
	"github.com/Gunjankadam/Vendofy-sub001/hierarchy"
	"github.com/Gunjankadam/Vendofy-sub001/ledger"
	"github.com/Gunjankadam/Vendofy-sub001/logging"
	"github.com/Gunjankadam/Vendofy-sub001/middleware"
	"github.com/Gunjankadam/Vendofy-sub001/poller"
	"github.com/Gunjankadam/Vendofy-sub001/rollup"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ .env file not found, using system environment")
	} else {
		fmt.Println("✅ .env file loaded and applied")
	}
	cfg := config.Load()

	if err := logging.InitLogger(cfg.Env == "release"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логгера: %v", err)
	}

	if err := database.InitDB(cfg); err != nil {
		log.Fatalf("❌ Ошибка подключения к БД: %v", err)
	}
	defer database.CloseDB()

	// Ядро: справочник иерархии и журнал заказов живут в памяти,
	// БД — для восстановления после рестарта
	dir := hierarchy.NewDirectory()
	if err := dir.LoadFromDB(); err != nil {
		log.Fatalf("❌ Не удалось загрузить иерархию: %v", err)
	}

	ldg := ledger.NewLedger(dir, cfg.Currency)
	if err := ldg.LoadFromDB(); err != nil {
		log.Fatalf("❌ Не удалось загрузить заказы: %v", err)
	}

	engine := rollup.NewEngine(ldg, dir)
	hub := poller.NewHub(ldg, engine, cfg.PollInterval)

	handlers.Init(cfg, dir, ldg, engine, hub)

	if cfg.Env == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.SetTrustedProxies(cfg.TrustedProxies)
	r.Use(middleware.SetupCORS(cfg))
	r.Use(middleware.SecurityMonitor())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware(cfg))
	{
		api.GET("/health", handlers.HealthHandler)

		auth := api.Group("/auth")
		{
			auth.POST("/login", middleware.RateLimit(handlers.LoginLimiter), handlers.LoginHandler)
			auth.POST("/register", handlers.RegisterHandler)
			auth.POST("/refresh", handlers.RefreshHandler)
		}

		orders := api.Group("/orders")
		{
			orders.POST("", handlers.CreateOrderHandler)
			orders.GET("", handlers.ListOrdersHandler)
			orders.GET("/:id", handlers.GetOrderHandler)
			orders.POST("/transit", handlers.MarkForTransitHandler)
			orders.POST("/send-to-admin", handlers.SendToAdminHandler)
			orders.POST("/received", handlers.MarkReceivedBulkHandler)
			orders.POST("/:id/received", handlers.MarkReceivedHandler)
			orders.POST("/:id/payment", handlers.RecordPaymentHandler)
			orders.PUT("/:id/delivery-date", handlers.ReviseDeliveryDateHandler)
		}

		profile := api.Group("/profile")
		{
			profile.GET("", handlers.GetProfileHandler)
			profile.PUT("", handlers.UpdateProfileHandler)
			profile.PUT("/password", handlers.ChangePasswordHandler)
		}

		api.GET("/revenue", handlers.GetRevenueOrdersHandler)
		api.GET("/stats/users", handlers.GetUserStatsHandler)
		api.GET("/stats/system", handlers.SystemStatsHandler)

		sync := api.Group("/sync")
		{
			sync.POST("/subscribe", handlers.SubscribeHandler)
			sync.GET("/events", handlers.SyncEventsHandler)
			sync.POST("/unsubscribe", handlers.UnsubscribeHandler)
		}

		nodes := api.Group("/nodes")
		{
			nodes.POST("", handlers.CreateNodeHandler)
			nodes.GET("", handlers.ListNodesHandler)
			nodes.POST("/:id/deactivate", handlers.DeactivateNodeHandler)
			nodes.PUT("/:id/parent", handlers.ReassignParentHandler)
		}

		admin := api.Group("/admin")
		admin.Use(middleware.AdminMiddleware(cfg))
		{
			admin.GET("/notifications", handlers.AdminNotificationsHandler)
			admin.GET("/audit", handlers.OrderAuditHandler)
		}
	}

	fmt.Println("==========================================")
	fmt.Println("🚀 Vendofy Order Backend")
	fmt.Printf("🌐 Порт: %s\n", cfg.Port)
	fmt.Printf("💱 Валюта: %s\n", cfg.Currency)
	fmt.Printf("🔄 Интервал синхронизации: %v\n", cfg.PollInterval)
	fmt.Println("==========================================")

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Ошибка запуска сервера: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Остановка сервера...")
	hub.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("⚠️ Сервер остановлен с ошибкой: %v", err)
	}
	log.Println("✅ Сервер остановлен")
}
