package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Figuelia98/wdd430-group-project/cache"
	"github.com/Figuelia98/wdd430-group-project/database"
	"github.com/Figuelia98/wdd430-group-project/handlers"
	"github.com/Figuelia98/wdd430-group-project/kafka"
	"github.com/Figuelia98/wdd430-group-project/middleware"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const serviceName = "handcrafted-haven"

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	shutdownTracing, err := middleware.InitTracing(serviceName)
	if err != nil {
		logger.Warn("Failed to initialize tracing", zap.Error(err))
	} else {
		defer shutdownTracing()
	}

	db, err := database.InitDB(logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.InitRedis(logger)
	if err != nil {
		logger.Warn("Failed to connect to Redis, running without cache", zap.Error(err))
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	producer, err := kafka.InitProducer(logger)
	if err != nil {
		logger.Warn("Failed to connect to Kafka, order events disabled", zap.Error(err))
		producer = nil
	} else {
		defer producer.Close()
	}

	if consumer, err := kafka.InitConsumer(logger); err != nil {
		logger.Warn("Failed to start Kafka consumer, notifications disabled", zap.Error(err))
	} else {
		defer consumer.Close()
		go func() {
			if err := kafka.StartConsumer(consumer, logger); err != nil {
				logger.Error("Kafka consumer stopped", zap.Error(err))
			}
		}()
	}

	authHandler := handlers.NewAuthHandler(db, logger)
	productHandler := handlers.NewProductHandler(db, redisClient, logger)
	categoryHandler := handlers.NewCategoryHandler(db, logger)
	orderHandler := handlers.NewOrderHandler(db, producer, redisClient, logger)
	sellerOrderHandler := handlers.NewSellerOrderHandler(db, producer, logger)
	reviewHandler := handlers.NewReviewHandler(db, redisClient, logger)
	sellerHandler := handlers.NewSellerHandler(db, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(middleware.LoggerMiddleware(logger))
	router.Use(middleware.MetricsMiddleware())

	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", middleware.PrometheusHandler())

	api := router.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", middleware.RequireAuth(db, logger), authHandler.Me)
		}

		products := api.Group("/products")
		{
			products.GET("", productHandler.GetProducts)
			products.GET("/slug/:slug", productHandler.GetProductBySlug)
			products.GET("/:id", productHandler.GetProduct)
			products.GET("/:id/reviews", reviewHandler.GetReviews)
			products.POST("", middleware.RequireSeller(db, logger), productHandler.CreateProduct)
			products.PUT("/:id", middleware.RequireSeller(db, logger), productHandler.UpdateProduct)
			products.DELETE("/:id", middleware.RequireSeller(db, logger), productHandler.DeleteProduct)
			products.POST("/:id/reviews", middleware.RequireAuth(db, logger), reviewHandler.CreateReview)
		}

		categories := api.Group("/categories")
		{
			categories.GET("", categoryHandler.GetCategories)
			categories.POST("", middleware.RequireSeller(db, logger), categoryHandler.CreateCategory)
		}

		orders := api.Group("/orders", middleware.RequireAuth(db, logger))
		{
			orders.POST("", orderHandler.CreateOrder)
			orders.GET("", orderHandler.GetOrders)
			orders.GET("/:id", orderHandler.GetOrder)
		}

		api.GET("/sellers/:id", sellerHandler.GetSeller)

		seller := api.Group("/seller", middleware.RequireSeller(db, logger))
		{
			seller.GET("/profile", sellerHandler.GetProfile)
			seller.PUT("/profile", sellerHandler.UpdateProfile)
			seller.GET("/orders", sellerOrderHandler.GetSellerOrders)
			seller.GET("/orders/:id", sellerOrderHandler.GetSellerOrder)
			seller.PATCH("/orders/:id", sellerOrderHandler.UpdateSellerOrder)
		}
	}

	addr := getEnv("HTTP_ADDR", ":8080")
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		logger.Info("Server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	logger.Info("Server exited")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
