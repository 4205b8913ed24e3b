package main

import (
	"context"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"mais/app/echoServer"
	availabilityctrl "mais/app/echoServer/controller/availability"
	checkoutctrl "mais/app/echoServer/controller/checkout"
	webhookctrl "mais/app/echoServer/controller/webhook"
	"mais/app/echoServer/validation"
	"mais/cache"
	"mais/config"
	"mais/events"
	availabilityrepo "mais/repository/availability"
	calendarrepo "mais/repository/calendar"
	catalogrepo "mais/repository/catalog"
	paymenteventrepo "mais/repository/paymentevent"
	paymentsrepo "mais/repository/payments"
	reservationrepo "mais/repository/reservation"
	tenantrepo "mais/repository/tenant"
	availabilitysvc "mais/service/availability"
	checkoutsvc "mais/service/checkout"
	"mais/service/idempotency"
	paymentsvc "mais/service/payment"
	reservationsvc "mais/service/reservation"
	"mais/util/database"
	"mais/util/logger"
	"mais/util/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	ctx := context.Background()

	if err := logger.Init(cfg.LogLevel, cfg.Env); err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.L()
	defer log.Sync() //nolint:errcheck

	metrics.Register()

	// DB: *sql.DB over pgx
	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("db connect failed", zap.Error(err))
	}
	defer db.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer rdb.Close()

	var pub events.Publisher = events.Nop{}
	if cfg.AMQPURL != "" {
		p, err := events.NewAMQP(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			log.Fatal("amqp connect failed", zap.Error(err))
		}
		defer p.Close()
		pub = p
	}

	var oracle calendarrepo.Oracle = calendarrepo.NopOracle{}
	if cfg.CalendarBaseURL != "" {
		oracle = calendarrepo.NewHTTP(cfg.CalendarBaseURL)
	}

	// repos
	tr := tenantrepo.New(db)
	rr := reservationrepo.New(db, time.Duration(cfg.LockWaitMS)*time.Millisecond)
	avr := availabilityrepo.New(db)
	ctr := catalogrepo.New(db)
	per := paymenteventrepo.New(db)
	pr := paymentsrepo.NewHTTP(cfg.ProviderBaseURL, cfg.ProviderAPIKey, cfg.ProviderWebhookSecret)

	// services
	cc := cache.NewRedis(rdb)
	ledger := idempotency.NewRedis(rdb)
	avs := availabilitysvc.New(avr, oracle, cc)
	rs := reservationsvc.New(rr)
	cs := checkoutsvc.New(avs, ctr, pr, ledger, cc,
		time.Duration(cfg.IdempotencyTTLHrs)*time.Hour)
	ps := paymentsvc.New(tr, per, rs, pr, cc, pub)

	// controllers
	checkoutC := &checkoutctrl.Controller{Svc: cs, Log: log}
	availC := &availabilityctrl.Controller{Svc: avs, Log: log}
	webhookC := &webhookctrl.Controller{Svc: ps, Log: log}

	// echo
	e := echo.New()
	e.HideBanner = true
	echoServer.RegisterMiddlewares(e)
	e.Validator = validation.New()

	echoServer.Register(e, echoServer.C{
		Checkout:     checkoutC,
		Availability: availC,
		Webhook:      webhookC,
		Tenants:      tr,
	})

	log.Info("starting server", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
	e.Logger.Fatal(e.Start(":" + cfg.Port))
}
