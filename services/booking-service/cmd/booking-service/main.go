package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/alecrj/sbay-crm/libs/config"
	"github.com/alecrj/sbay-crm/libs/db"
	"github.com/alecrj/sbay-crm/libs/httpx"
	"github.com/alecrj/sbay-crm/libs/kafkax"
	"github.com/alecrj/sbay-crm/libs/lock"
	otelx "github.com/alecrj/sbay-crm/libs/otel"
	"github.com/alecrj/sbay-crm/libs/outbox"
	"github.com/alecrj/sbay-crm/libs/runtime"
	"github.com/alecrj/sbay-crm/services/booking-service/internal/availability"
	"github.com/alecrj/sbay-crm/services/booking-service/internal/handlers"
	"github.com/alecrj/sbay-crm/services/booking-service/internal/storage"
)

func main() {
	service := config.String("SERVICE_NAME", "booking-service")
	port, err := config.Port("PORT", "8082")
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

	var rdb *redis.Client
	var locker *lock.Locker
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: addr})
		defer rdb.Close()
		locker = lock.New(rdb, "booking")
	} else {
		logger.Warn("redis not configured; booking lease lock disabled")
	}

	calendarRepo := storage.NewCalendarRepository(pool)
	appointmentRepo := storage.NewAppointmentRepository(pool)
	availabilityStore := storage.NewAvailabilityStore(calendarRepo, appointmentRepo)
	evaluator := availability.NewEvaluator(availabilityStore, logger)

	outboxRepo := outbox.NewRepository(pool)
	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	appointmentHandler := handlers.NewAppointmentHandler(appointmentRepo, outboxRepo, evaluator, locker, logger)
	availabilityHandler := handlers.NewAvailabilityHandler(evaluator)
	calendarHandler := handlers.NewCalendarHandler(calendarRepo, logger)

	readyChecks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
		{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	}
	if rdb != nil {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "redis", Check: lock.ReadyCheck(rdb)})
	}
	mux := runtime.NewBaseMuxWithReady(readyChecks...)
	mux.HandleFunc("/api/appointments", appointmentHandler.Appointments)
	mux.HandleFunc("/api/appointments/", appointmentHandler.Appointments)
	mux.HandleFunc("/api/calendar/events", appointmentHandler.CalendarEvents)
	mux.HandleFunc("/api/availability/slots", availabilityHandler.Slots)
	mux.HandleFunc("/api/availability/check", availabilityHandler.Check)
	mux.HandleFunc("/api/calendar", calendarHandler.Calendar)
	mux.HandleFunc("/api/calendar/hours", calendarHandler.Hours)
	mux.HandleFunc("/api/calendar/blocked-dates", calendarHandler.BlockedDates)
	mux.HandleFunc("/api/calendar/blocked-dates/", calendarHandler.BlockedDates)

	limitPerMinute := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	var rateLimitMW httpx.Middleware
	if rdb != nil {
		limiter := httpx.NewRedisRateLimiter(rdb, limitPerMinute, time.Minute, service)
		rateLimitMW = limiter.Middleware(logger, config.Bool("RATE_LIMIT_FAIL_OPEN", true))
		logger.Info("rate limiting enabled (redis)", "per_minute", limitPerMinute)
	} else {
		rateLimitMW = httpx.NewRateLimiter(limitPerMinute, time.Minute).Middleware()
		logger.Info("rate limiting enabled (in-memory)", "per_minute", limitPerMinute)
	}

	httpHandler := httpx.Chain(mux,
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins:   parseList(config.String("CORS_ALLOWED_ORIGINS", "")),
			AllowedMethods:   parseList(config.String("CORS_ALLOWED_METHODS", "GET,POST,PUT,PATCH,DELETE,OPTIONS")),
			AllowedHeaders:   parseList(config.String("CORS_ALLOWED_HEADERS", "Authorization,Content-Type,X-Request-Id")),
			AllowCredentials: config.Bool("CORS_ALLOW_CREDENTIALS", false),
			MaxAge:           config.Duration("CORS_MAX_AGE", 10*time.Minute),
		}),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(1<<20),
		httpx.WithTimeout(config.Duration("REQUEST_TIMEOUT", 15*time.Second)),
		rateLimitMW,
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")

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

func parseList(raw string) []string {
	items := strings.Split(raw, ",")
	out := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
