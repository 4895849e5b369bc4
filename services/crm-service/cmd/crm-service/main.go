package main

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/alecrj/sbay-crm/libs/config"
	"github.com/alecrj/sbay-crm/libs/db"
	"github.com/alecrj/sbay-crm/libs/httpx"
	"github.com/alecrj/sbay-crm/libs/kafkax"
	otelx "github.com/alecrj/sbay-crm/libs/otel"
	"github.com/alecrj/sbay-crm/libs/outbox"
	"github.com/alecrj/sbay-crm/libs/runtime"
	"github.com/alecrj/sbay-crm/services/crm-service/internal/handlers"
	"github.com/alecrj/sbay-crm/services/crm-service/internal/importer"
	"github.com/alecrj/sbay-crm/services/crm-service/internal/storage"
)

func main() {
	service := config.String("SERVICE_NAME", "crm-service")
	port, err := config.Port("PORT", "8081")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	leadsRepo := storage.NewLeadsRepository(pool)
	propertiesRepo := storage.NewPropertiesRepository(pool)
	leadImporter := importer.New(leadsRepo, logger)

	outboxRepo := outbox.NewRepository(pool)
	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	leadHandler := handlers.NewLeadHandler(leadsRepo, outboxRepo, logger)
	propertyHandler := handlers.NewPropertyHandler(propertiesRepo, logger)
	importHandler := handlers.NewImportHandler(leadImporter, logger)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)
	mux.HandleFunc("/api/leads/import", importHandler.ImportLeads)
	mux.HandleFunc("/api/leads", leadHandler.Leads)
	mux.HandleFunc("/api/leads/", leadHandler.Leads)
	mux.HandleFunc("/api/properties", propertyHandler.Properties)
	mux.HandleFunc("/api/properties/", propertyHandler.Properties)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(8<<20),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "crm")

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
