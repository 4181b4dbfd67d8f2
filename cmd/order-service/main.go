package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orderflow/orderflow/pkg/config"
	"github.com/orderflow/orderflow/pkg/logging"
	"github.com/orderflow/orderflow/pkg/metrics"
	"github.com/orderflow/orderflow/pkg/outbox"
	"github.com/orderflow/orderflow/pkg/shutdown"
	"github.com/orderflow/orderflow/pkg/tracing"

	"github.com/orderflow/orderflow/internal/order/application"
	orderhttp "github.com/orderflow/orderflow/internal/order/infrastructure/http"
	orderkafka "github.com/orderflow/orderflow/internal/order/infrastructure/kafka"
	orderpg "github.com/orderflow/orderflow/internal/order/infrastructure/postgres"
	productclient "github.com/orderflow/orderflow/internal/order/infrastructure/product"
)

func main() {
	log := logging.New("order-service")
	cfg := config.LoadOrderService()

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	tp, err := tracing.Init(ctx, "order-service", cfg.OTLPURL, log)
	if err != nil {
		log.Error("otel init failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	pool, err := pgxpool.New(ctx, cfg.PGURL)
	if err != nil {
		log.Error("pg connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	repo := orderpg.NewRepository(log, pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		log.Error("schema setup failed", "err", err)
		os.Exit(1)
	}

	writer := orderkafka.NewWriter([]string{cfg.KafkaAddr})
	defer writer.Close()

	store := orderpg.NewOutboxStore(log, pool)
	dispatch := outbox.NewDispatcher(log, writer, cfg.OutboxTopic)
	relay := outbox.NewRelay(log, store, dispatch, "order-service-relay")

	products := productclient.NewClient(log, cfg.ProductServiceURL)
	coord := application.NewCoordinator(log, repo, products)
	handler := orderhttp.NewHandler(log, coord)

	srvMetrics := metrics.NewServerMetrics("order_service")
	r := chi.NewRouter()
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(srvMetrics.Middleware)
	r.Handle("/metrics", metrics.Handler())
	r.Mount("/", handler.Routes())

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := relay.Run(ctx); err != nil {
			log.Error("relay stopped with error", "err", err)
		}
	}()

	go func() {
		log.Info("http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	log.Info("order-service shutdown complete")
}
