package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mvega/pos-checkout-service/config"
	"github.com/mvega/pos-checkout-service/internal/billing"
	"github.com/mvega/pos-checkout-service/internal/cart"
	carthandler "github.com/mvega/pos-checkout-service/internal/cart/handler"
	cartusecase "github.com/mvega/pos-checkout-service/internal/cart/usecase"
	categoryhandler "github.com/mvega/pos-checkout-service/internal/category/handler"
	categoryrepository "github.com/mvega/pos-checkout-service/internal/category/repository"
	categoryusecase "github.com/mvega/pos-checkout-service/internal/category/usecase"
	producthandler "github.com/mvega/pos-checkout-service/internal/product/handler"
	productlistener "github.com/mvega/pos-checkout-service/internal/product/listener"
	productrepository "github.com/mvega/pos-checkout-service/internal/product/repository"
	productusecase "github.com/mvega/pos-checkout-service/internal/product/usecase"
	salehandler "github.com/mvega/pos-checkout-service/internal/sale/handler"
	salerepository "github.com/mvega/pos-checkout-service/internal/sale/repository"
	saleusecase "github.com/mvega/pos-checkout-service/internal/sale/usecase"
	supplierhandler "github.com/mvega/pos-checkout-service/internal/supplier/handler"
	supplierrepository "github.com/mvega/pos-checkout-service/internal/supplier/repository"
	supplierusecase "github.com/mvega/pos-checkout-service/internal/supplier/usecase"
	"github.com/mvega/pos-checkout-service/pkg/broker"
	"github.com/mvega/pos-checkout-service/pkg/cache"
	"github.com/mvega/pos-checkout-service/pkg/database/postgres"
	"github.com/mvega/pos-checkout-service/pkg/httputil"
	"github.com/mvega/pos-checkout-service/pkg/logger"
	"github.com/mvega/pos-checkout-service/pkg/metrics"
	"github.com/mvega/pos-checkout-service/pkg/search"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment")
	}

	cfg := config.LoadEnv()

	appLogger := logger.NewZapLogger(&logger.ZapLoggerConfig{
		IsDevelopment:     cfg.Server.AppEnv == "dev",
		Encoding:          cfg.Logger.Encoding,
		Level:             cfg.Logger.Level,
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	})
	defer appLogger.Sync()
	appLogger.Info("starting pos-checkout-service", zap.String("env", cfg.Server.AppEnv))

	db, err := postgres.NewPostgres(&postgres.Config{
		Host:            cfg.Postgres.Host,
		Port:            cfg.Postgres.Port,
		User:            cfg.Postgres.User,
		Password:        cfg.Postgres.Password,
		DBName:          cfg.Postgres.DBName,
		SSLMode:         cfg.Postgres.SSLMode,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Second,
		ConnMaxIdleTime: time.Duration(cfg.Postgres.ConnMaxIdleTime) * time.Second,
	})
	if err != nil {
		appLogger.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedisClient(&cache.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		appLogger.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()

	esClient, err := search.NewClient(&search.Config{
		Addresses: cfg.Elastic.Addresses,
		Username:  cfg.Elastic.Username,
		Password:  cfg.Elastic.Password,
	})
	if err != nil {
		// Search degrades to the database; the service still runs.
		appLogger.Warn("elasticsearch unavailable, product search falls back to postgres", zap.Error(err))
		esClient = nil
	}

	saleProducer := broker.NewProducer(&broker.Config{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.SalesTopic,
	})
	defer saleProducer.Close()

	restockConsumer := broker.NewConsumer(&broker.Config{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.RestockTopic,
		GroupID: cfg.Kafka.GroupID,
	})
	defer restockConsumer.Close()

	serverMetrics := metrics.NewServerMetrics("checkout")

	productRepo := productrepository.NewPGRepository(db)
	categoryRepo := categoryrepository.NewPGRepository(db)
	supplierRepo := supplierrepository.NewPGRepository(db)
	saleRepo := salerepository.NewPGRepository(db)
	sessionStore := cart.NewSessionStore()

	productUC := productusecase.NewProductUseCase(productRepo, redisClient, esClient, appLogger)
	categoryUC := categoryusecase.NewCategoryUseCase(categoryRepo, appLogger)
	supplierUC := supplierusecase.NewSupplierUseCase(supplierRepo, appLogger)
	cartUC := cartusecase.NewCartUseCase(sessionStore, appLogger)

	billingClient := billing.NewHTTPClient(&cfg.Billing, appLogger)
	saleUC := saleusecase.NewSaleUseCase(
		sessionStore,
		productRepo,
		saleRepo,
		billingClient,
		redisClient,
		saleProducer,
		&cfg.Billing,
		appLogger,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	restockListener := productlistener.NewRestockListener(restockConsumer, productUC, appLogger)
	go restockListener.Start(ctx)

	mux := http.NewServeMux()
	producthandler.NewProductHandler(productUC, appLogger).Register(mux)
	categoryhandler.NewCategoryHandler(categoryUC, appLogger).Register(mux)
	supplierhandler.NewSupplierHandler(supplierUC, appLogger).Register(mux)
	carthandler.NewCartHandler(cartUC, appLogger).Register(mux)
	salehandler.NewSaleHandler(saleUC, serverMetrics, appLogger).Register(mux)

	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	srv := &http.Server{
		Addr:         cfg.Server.HTTPPort,
		Handler:      instrument(serverMetrics, mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		appLogger.Info("http server listening", zap.String("addr", cfg.Server.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func instrument(m *metrics.ServerMetrics, mux *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		mux.ServeHTTP(sw, r)

		// Label by registered pattern, not raw path: path segments carry
		// IDs, which would mint an unbounded set of label values.
		_, pattern := mux.Handler(r)
		if pattern == "" {
			pattern = "unmatched"
		}
		m.Requests.WithLabelValues(pattern, http.StatusText(sw.status)).Inc()
		m.LatencyMS.WithLabelValues(pattern).Observe(float64(time.Since(start).Milliseconds()))
	})
}
