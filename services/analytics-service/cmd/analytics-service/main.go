package main

import (
	"context"
	"net/http"
	"time"

	"github.com/lashstudio/studio-backend/libs/config"
	"github.com/lashstudio/studio-backend/libs/db"
	"github.com/lashstudio/studio-backend/libs/httpx"
	"github.com/lashstudio/studio-backend/libs/kafkax"
	otelx "github.com/lashstudio/studio-backend/libs/otel"
	"github.com/lashstudio/studio-backend/libs/outbox"
	"github.com/lashstudio/studio-backend/libs/runtime"
	"github.com/lashstudio/studio-backend/libs/store"
	"github.com/lashstudio/studio-backend/services/analytics-service/internal/consumer"
	"github.com/lashstudio/studio-backend/services/analytics-service/internal/daily"
	"github.com/lashstudio/studio-backend/services/analytics-service/internal/inbox"
	"github.com/lashstudio/studio-backend/services/analytics-service/internal/metrics"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		panic(err)
	}
	service := config.String("SERVICE_NAME", "analytics-service")
	port, err := config.Port("PORT", "8086")
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
	runAt, err := daily.ParseClock(config.String("ANALYTICS_RUN_AT", "01:00"))
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

	analyticsRepo := store.NewAnalyticsRepository(pool)
	inboxRepo := inbox.NewRepository(pool)
	brokers := config.String("KAFKA_BROKERS", "")
	groupID := config.String("KAFKA_GROUP_ID", "analytics-service")

	consumers := []struct {
		topic   string
		handler consumer.Handler
	}{
		{outbox.TopicNotificationSent, metrics.NotificationHandler(analyticsRepo, logger)},
		{outbox.TopicNotificationFailed, metrics.NotificationHandler(analyticsRepo, logger)},
		{outbox.TopicAppointmentBooked, metrics.BookingHandler(analyticsRepo, logger)},
	}
	for _, c := range consumers {
		ec := consumer.New(logger, inboxRepo, consumer.Config{
			Brokers: brokers,
			GroupID: groupID,
			Topic:   c.topic,
		}, c.handler)
		go ec.Run(ctx)
	}

	job := daily.NewJob(store.NewAppointmentRepository(pool), analyticsRepo, logger, runAt)
	go job.Run(ctx)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)
	mux.Handle("POST /api/v1/daily", job.RerunHandler())

	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	handler = otelhttp.NewHandler(handler, "analytics")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	runtime.Serve(ctx, srv, logger)
}
