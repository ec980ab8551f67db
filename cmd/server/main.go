package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/hotel-reservation/internal/bootstrap"
	"github.com/iliyamo/hotel-reservation/internal/config"
	"github.com/iliyamo/hotel-reservation/internal/database"
	"github.com/iliyamo/hotel-reservation/internal/handler"
	"github.com/iliyamo/hotel-reservation/internal/logging"
	"github.com/iliyamo/hotel-reservation/internal/middleware"
	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/notify"
	"github.com/iliyamo/hotel-reservation/internal/queue"
	"github.com/iliyamo/hotel-reservation/internal/repository"
	"github.com/iliyamo/hotel-reservation/internal/reservation"
	"github.com/iliyamo/hotel-reservation/internal/router"
	"github.com/iliyamo/hotel-reservation/internal/scheduler"
)

func main() {
	config.LoadDotEnv()
	cfg := config.Load()
	resCfg := config.LoadReservationConfig()
	notifyCfg := config.LoadNotifyConfig()

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	defer db.Close()
	if cfg.DBMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			logger.Fatal("migrate database", zap.Error(err))
		}
		logger.Info("schema applied")
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	hotels := repository.NewHotelRepo(db)
	bookings := repository.NewBookingRepo(db)

	bootCfg := config.LoadBootstrapConfig()
	if err := bootstrap.Admin(ctx, users, bootCfg, cfg.BcryptCost, logger.Named("bootstrap")); err != nil {
		logger.Fatal("bootstrap admin", zap.Error(err))
	}
	if bootCfg.SeedHotels {
		if _, err := bootstrap.Hotels(ctx, hotels, logger.Named("bootstrap")); err != nil {
			logger.Fatal("seed hotels", zap.Error(err))
		}
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		logger.Warn("redis unavailable: rate limiting and catalog cache disabled")
	} else {
		defer rdb.Close()
	}

	// Notifications: through RabbitMQ when configured, else mailed from
	// the in-process dispatcher.
	mailer := notify.NewMailer(notify.MailerConfig{
		Host:     notifyCfg.SMTPHost,
		Port:     notifyCfg.SMTPPort,
		User:     notifyCfg.SMTPUser,
		Password: notifyCfg.SMTPPassword,
		From:     notifyCfg.MailFrom,
	}, users, logger.Named("mailer"))

	var sender notify.Sender = mailer
	if notifyCfg.AMQPURL != "" {
		publisher := notify.NewAMQPPublisher(notifyCfg.AMQPURL, notifyCfg.Queue, logger.Named("publisher"))
		defer publisher.Close()
		sender = publisher

		consumer := queue.NewConsumer(notifyCfg.AMQPURL, notifyCfg.Queue, mailer, logger.Named("consumer"))
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("consumer stopped", zap.Error(err))
			}
		}()
	}
	dispatcher := notify.NewDispatcher(sender, logger.Named("notify"), notify.Options{
		Buffer:      notifyCfg.Buffer,
		Workers:     notifyCfg.Workers,
		MaxAttempts: notifyCfg.MaxAttempts,
		SendTimeout: notifyCfg.SendTimeout,
	})

	initial := model.BookingConfirmed
	if resCfg.RequirePayment {
		initial = model.BookingPending
	}
	coord := reservation.NewCoordinator(bookings, hotels, dispatcher, logger.Named("reservation"), reservation.Options{
		InitialStatus:  initial,
		MaxRetries:     resCfg.MaxRetries,
		RetryBaseDelay: resCfg.RetryBaseDelay,
	})

	if resCfg.RequirePayment {
		expiry := scheduler.New(coord, resCfg.ExpiryInterval, resCfg.PendingTTL, logger.Named("scheduler"))
		go expiry.Start(ctx)
	}

	cacheCfg := config.LoadCacheConfig()
	limit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, logger.Named("ratelimit"))
	cache := middleware.NewRedisCache(cacheCfg, rdb, logger.Named("cache"))

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(middleware.Recovery(logger), middleware.RequestLogger(logger.Named("http")))

	checks := map[string]func(context.Context) error{"mysql": db.PingContext}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	router.RegisterRoutes(e, handler.Ready(checks))
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens, logger.Named("auth")), cfg.JWTSecret, limit)
	router.RegisterHotels(e, handler.NewHotelHandler(hotels, coord, logger.Named("hotels")), cfg.JWTSecret, limit, cache)
	router.RegisterBookings(e,
		handler.NewBookingHandler(coord, middleware.NewCachePurger(rdb, cacheCfg.Prefix), logger.Named("bookings")),
		cfg.JWTSecret, limit)

	addr := ":" + cfg.Port
	go func() {
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
	if err := dispatcher.Close(shutdownCtx); err != nil {
		logger.Warn("notifications not drained", zap.Error(err))
	}
}
