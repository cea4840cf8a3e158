package main

import (
	"context"
	"net/http"
	"strings"
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
	"github.com/lashstudio/studio-backend/services/studio-service/internal/booking"
	"github.com/lashstudio/studio-backend/services/studio-service/internal/handlers"
	"github.com/lashstudio/studio-backend/services/studio-service/internal/media"
	"github.com/lashstudio/studio-backend/services/studio-service/internal/payments"
	"github.com/lashstudio/studio-backend/services/studio-service/internal/promo"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		panic(err)
	}
	service := config.String("SERVICE_NAME", "studio-service")
	port, err := config.Port("PORT", "8080")
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
	jwtSecret, err := config.RequiredString("JWT_SECRET")
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

	users := store.NewUserRepository(pool)
	appts := store.NewAppointmentRepository(pool)
	promos := store.NewPromoRepository(pool)
	outboxRepo := outbox.NewRepository(pool)

	brokers := config.String("KAFKA_BROKERS", "")
	publisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   brokers,
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go publisher.Run(ctx)

	var mediaStore handlers.MediaStore
	if bucket := config.String("MEDIA_BUCKET", ""); bucket != "" {
		gcs, err := media.NewGCSStore(ctx, bucket)
		if err != nil {
			logger.Error("media store init failed; uploads disabled", "err", err)
		} else {
			defer gcs.Close()
			mediaStore = gcs
		}
	}

	settings := store.NewSettingsRepository(pool)
	stripeSecretKey := config.String("STRIPE_SECRET_KEY", "")
	api := handlers.New(handlers.Deps{
		Users:        users,
		Services:     store.NewServiceRepository(pool),
		Appointments: appts,
		Bookings:     booking.NewService(appts, promos, outboxRepo),
		Promos:       promo.NewEvaluator(promos),
		Settings:     settings,
		Content:      store.NewContentRepository(pool),
		Media:        mediaStore,
		Payments:     payments.Stripe{},
		Scheduler:    notify.NewScheduler(users, appts, logger),
	}, handlers.Config{
		JWTSecret:           jwtSecret,
		TokenTTL:            config.Duration("JWT_TTL", 24*time.Hour),
		StripeSecretKey:     stripeSecretKey,
		StripeWebhookSecret: config.String("STRIPE_WEBHOOK_SECRET", ""),
	}, logger)

	if config.Bool("PAYMENT_RECONCILE_ENABLED", true) {
		reconciler := payments.NewReconciler(appts, payments.Stripe{}, func(ctx context.Context) (string, error) {
			in, _, err := settings.Integrations(ctx)
			if err != nil {
				return "", err
			}
			if strings.TrimSpace(in.Stripe.SecretKey) != "" {
				return in.Stripe.SecretKey, nil
			}
			return stripeSecretKey, nil
		}, pool, logger, payments.ReconcilerConfig{
			Interval:        config.Duration("PAYMENT_RECONCILE_INTERVAL", 5*time.Minute),
			AdvisoryLockKey: int64(config.Int("PAYMENT_RECONCILE_LOCK_KEY", 4242001)),
		})
		go reconciler.Run(ctx)
	}

	checks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
		{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	}
	rateLimit := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	var limiter httpx.Limiter = httpx.NewMemoryLimiter(rateLimit, time.Minute)
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr, Password: config.String("REDIS_PASSWORD", "")})
		defer rdb.Close()
		limiter = httpx.NewRedisLimiter(rdb, rateLimit, time.Minute, service)
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}

	mux := runtime.NewBaseMuxWithReady(checks...)
	api.Register(mux)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithCORS(httpx.DefaultCORSPolicy(config.List("CORS_ALLOWED_ORIGINS", ""))),
		httpx.RateLimit(limiter, logger, true),
		httpx.WithTimeout(30*time.Second),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "studio")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	runtime.Serve(ctx, srv, logger)
}
