package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/alecrj/sbay-crm/libs/config"
	"github.com/alecrj/sbay-crm/libs/db"
	"github.com/alecrj/sbay-crm/libs/httpx"
	"github.com/alecrj/sbay-crm/libs/kafkax"
	otelx "github.com/alecrj/sbay-crm/libs/otel"
	"github.com/alecrj/sbay-crm/libs/runtime"
	"github.com/alecrj/sbay-crm/services/notification-service/internal/consumer"
	"github.com/alecrj/sbay-crm/services/notification-service/internal/email"
	"github.com/alecrj/sbay-crm/services/notification-service/internal/handlers"
	"github.com/alecrj/sbay-crm/services/notification-service/internal/inbox"
	"github.com/alecrj/sbay-crm/services/notification-service/internal/queue"
	"github.com/alecrj/sbay-crm/services/notification-service/internal/reminder"
)

type appointmentEvent struct {
	AppointmentID string    `json:"appointment_id"`
	LeadID        string    `json:"lead_id"`
	Title         string    `json:"title"`
	StartTime     time.Time `json:"start_time"`
	Location      string    `json:"location"`
	Attendees     []string  `json:"attendees"`
}

func (e appointmentEvent) toAppointment() reminder.Appointment {
	return reminder.Appointment{
		ID:        e.AppointmentID,
		Title:     e.Title,
		StartTime: e.StartTime,
		Location:  e.Location,
		Attendees: e.Attendees,
		LeadID:    e.LeadID,
	}
}

func main() {
	service := config.String("SERVICE_NAME", "notification-service")
	port, err := config.Port("PORT", "8084")
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

	queueRepo := queue.NewRepository(pool)
	scheduler := reminder.New(queueRepo, config.String("ADMIN_EMAIL", ""), logger)

	sender := email.NewSMTPSender(
		config.String("SMTP_HOST", "localhost"),
		config.String("SMTP_PORT", "1025"),
		config.String("SMTP_FROM", ""),
	)
	drainer := queue.NewDrainer(queueRepo, sender, logger,
		config.Int("DRAIN_BATCH_SIZE", 50),
		config.Duration("DRAIN_ITEM_DELAY", 100*time.Millisecond),
	)

	inboxRepo := inbox.NewRepository(pool)
	startConsumer := func(topic string, handler consumer.Handler) {
		if strings.TrimSpace(topic) == "" {
			return
		}
		eventConsumer := consumer.New(logger, inboxRepo, consumer.Config{
			Brokers: config.String("KAFKA_BROKERS", ""),
			GroupID: config.String("KAFKA_GROUP_ID", "notification-service"),
			Topic:   topic,
		}, handler)
		go eventConsumer.Run(ctx)
	}

	startConsumer("booking.appointment.booked.v1", func(ctx context.Context, msg kafka.Message) error {
		var evt appointmentEvent
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			logger.Error("invalid event payload", "err", err, "topic", msg.Topic)
			return nil
		}
		return scheduler.Schedule(ctx, evt.toAppointment())
	})
	startConsumer("booking.appointment.rescheduled.v1", func(ctx context.Context, msg kafka.Message) error {
		var evt appointmentEvent
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			logger.Error("invalid event payload", "err", err, "topic", msg.Topic)
			return nil
		}
		return scheduler.Reschedule(ctx, evt.toAppointment())
	})
	startConsumer("booking.appointment.cancelled.v1", func(ctx context.Context, msg kafka.Message) error {
		var evt appointmentEvent
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			logger.Error("invalid event payload", "err", err, "topic", msg.Topic)
			return nil
		}
		return scheduler.Cancel(ctx, evt.toAppointment())
	})
	startConsumer("crm.lead.created.v1", func(ctx context.Context, msg kafka.Message) error {
		var evt struct {
			LeadID string `json:"lead_id"`
			Name   string `json:"name"`
			Source string `json:"source"`
		}
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			logger.Error("invalid event payload", "err", err, "topic", msg.Topic)
			return nil
		}
		return scheduler.LeadAlert(ctx, evt.LeadID, evt.Name, evt.Source)
	})

	cronHandler := handlers.NewCronHandler(drainer, logger)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)
	// Cron endpoints reject everything unless CRON_SECRET is set and matches.
	cronSecret := config.String("CRON_SECRET", "")
	mux.Handle("/api/cron/process-reminders", httpx.Chain(
		http.HandlerFunc(cronHandler.ProcessReminders),
		httpx.WithCronSecret(cronSecret),
	))

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "notification")

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
