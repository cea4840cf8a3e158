package main

import (
	"context"
	"net/http"
	"time"

	"github.com/lashstudio/studio-backend/libs/config"
	"github.com/lashstudio/studio-backend/libs/db"
	"github.com/lashstudio/studio-backend/libs/httpx"
	"github.com/lashstudio/studio-backend/libs/kafkax"
	"github.com/lashstudio/studio-backend/libs/notify"
	otelx "github.com/lashstudio/studio-backend/libs/otel"
	"github.com/lashstudio/studio-backend/libs/outbox"
	"github.com/lashstudio/studio-backend/libs/runtime"
	"github.com/lashstudio/studio-backend/libs/store"
	"github.com/lashstudio/studio-backend/services/notification-service/internal/email"
	"github.com/lashstudio/studio-backend/services/notification-service/internal/storage"
	"github.com/lashstudio/studio-backend/services/notification-service/internal/sweep"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		panic(err)
	}
	service := config.String("SERVICE_NAME", "notification-service")
	port, err := config.Port("PORT", "8085")
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
	if err := store.Migrate(ctx, pool); err != nil {
		logger.Error("schema migration failed", "err", err)
		panic(err)
	}

	brokers := config.String("KAFKA_BROKERS", "")
	outboxRepo := outbox.NewRepository(pool)
	publisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   brokers,
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go publisher.Run(ctx)

	deliveries := storage.NewRepository(pool)
	factory := sweep.NewTransportFactory(sweep.Fallback{
		SMTP: email.Config{
			Host:     config.String("SMTP_HOST", ""),
			Port:     config.String("SMTP_PORT", "587"),
			From:     config.String("SMTP_FROM", "noreply@lashstudio.com"),
			Username: config.String("SMTP_USERNAME", ""),
			Password: config.String("SMTP_PASSWORD", ""),
		},
		SMSProvider:     config.String("SMS_PROVIDER", ""),
		TwilioSID:       config.String("TWILIO_ACCOUNT_SID", ""),
		TwilioToken:     config.String("TWILIO_AUTH_TOKEN", ""),
		TwilioFrom:      config.String("TWILIO_FROM_NUMBER", ""),
		SMSWebhookURL:   config.String("SMS_WEBHOOK_URL", ""),
		SMSWebhookToken: config.String("SMS_WEBHOOK_TOKEN", ""),
	}, logger)

	dispatcher := notify.NewDispatcher(
		store.NewAppointmentRepository(pool).WithLogger(logger),
		store.NewSettingsRepository(pool),
		factory,
		sweep.NewRecorder(pool, deliveries, outboxRepo),
		logger,
	)
	worker := sweep.NewWorker(dispatcher, logger, sweep.WorkerConfig{
		Interval:   config.Duration("SWEEP_INTERVAL", 15*time.Minute),
		RunOnStart: config.Bool("SWEEP_ON_START", true),
	})
	go worker.Run(ctx)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)
	mux.Handle("POST /api/v1/sweep", worker.TriggerHandler())
	mux.HandleFunc("GET /api/v1/deliveries/{appointment_id}", func(w http.ResponseWriter, r *http.Request) {
		items, err := deliveries.ListForAppointment(r.Context(), r.PathValue("appointment_id"))
		if err != nil {
			logger.Error("list deliveries failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "internal error")
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "deliveries": items})
	})

	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	handler = otelhttp.NewHandler(handler, "notification")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	runtime.Serve(ctx, srv, logger)
}
