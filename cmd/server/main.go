package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/subosito/gotenv"

	"github.com/Spok95/labstock/internal/bot"
	"github.com/Spok95/labstock/internal/clock"
	"github.com/Spok95/labstock/internal/config"
	"github.com/Spok95/labstock/internal/domain/boms"
	"github.com/Spok95/labstock/internal/domain/catalog"
	"github.com/Spok95/labstock/internal/domain/inventory"
	"github.com/Spok95/labstock/internal/domain/lots"
	"github.com/Spok95/labstock/internal/domain/receipts"
	"github.com/Spok95/labstock/internal/domain/requests"
	"github.com/Spok95/labstock/internal/domain/users"
	"github.com/Spok95/labstock/internal/infra/db"
	"github.com/Spok95/labstock/internal/infra/events"
	httpx "github.com/Spok95/labstock/internal/infra/http"
	"github.com/Spok95/labstock/internal/infra/logger"
	"github.com/Spok95/labstock/internal/infra/mail"
	"github.com/Spok95/labstock/internal/infra/metrics"
	"github.com/Spok95/labstock/internal/infra/telegram"
	"github.com/Spok95/labstock/internal/notify"
	"github.com/Spok95/labstock/internal/purchasing"
	"github.com/Spok95/labstock/internal/quality"
	"github.com/Spok95/labstock/internal/render"
	"github.com/Spok95/labstock/internal/replenish"
	"github.com/Spok95/labstock/migrations"
)

func main() {
	_ = gotenv.Load()

	path := os.Getenv("APP_CONFIG")
	if path == "" {
		path = "config/example.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.App.Env)

	loc, err := time.LoadLocation(cfg.App.Timezone)
	if err != nil {
		log.Error("bad timezone", "tz", cfg.App.Timezone, "err", err)
		return
	}
	clk := clock.NewSystem(loc)

	if err := migrations.Up(cfg.Postgres.DSN); err != nil {
		log.Error("migrations failed", "err", err)
		return
	}
	log.Info("migrations applied")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Error("db connect failed", "err", err)
		return
	}
	defer pool.Close()
	log.Info("db connected")

	m := metrics.New(prometheus.DefaultRegisterer)

	requestsRepo := requests.NewRepo(pool)
	receiptsRepo := receipts.NewRepo(pool)
	inventoryRepo := inventory.NewRepo(pool)
	lotsRepo := lots.NewRepo(pool)
	catalogRepo := catalog.NewRepo(pool)
	usersRepo := users.NewRepo(pool)
	bomsRepo := boms.NewRepo(pool)

	for _, name := range []string{cfg.Stock.QuarantineLocation, cfg.Stock.ApprovedLocation, cfg.Stock.RejectedLocation} {
		if name == "" {
			continue
		}
		if _, err := catalogRepo.EnsureLocation(ctx, name); err != nil {
			log.Error("ensure location failed", "location", name, "err", err)
			return
		}
	}

	var pub events.Publisher = events.Nop{}
	if cfg.RabbitMQ.URL != "" {
		rb, err := events.NewRabbit(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			log.Error("rabbitmq connect failed", "err", err)
			return
		}
		defer rb.Close()
		pub = rb
		log.Info("rabbitmq connected", "exchange", cfg.RabbitMQ.Exchange)
	}

	var (
		chat notify.Chat
		tg   *telegram.Chat
	)
	if cfg.Telegram.Token != "" {
		tg, err = telegram.New(cfg.Telegram.Token, log)
		if err != nil {
			log.Error("telegram init failed", "err", err)
			return
		}
		chat = tg
	}

	rnd, err := render.New()
	if err != nil {
		log.Error("render init failed", "err", err)
		return
	}

	ncfg := notify.DefaultConfig()
	ncfg.PurchasingChatID = cfg.Telegram.PurchasingChatID
	ncfg.QualityChatID = cfg.Telegram.QualityChatID
	if len(cfg.Purchasing.SystemUsers) > 0 {
		ncfg.SystemUsers = cfg.Purchasing.SystemUsers
	}
	mailer := mail.New(mail.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	})
	notifier := notify.New(mailer, chat, usersRepo, rnd, ncfg, log, m)

	purchasingSvc := purchasing.NewService(requestsRepo, notifier, pub, clk, log, m, purchasing.Settings{
		DuplicateWindowDays: cfg.Purchasing.DuplicateWindowDays,
		DefaultLeadDays:     cfg.Purchasing.DefaultLeadDays,
	})

	qualitySvc := quality.NewService(quality.Deps{
		Receipts: receiptsRepo,
		Stock:    inventoryRepo,
		Lots:     lotsRepo,
		Requests: requestsRepo,
		Catalog:  catalogRepo,
		Users:    usersRepo,
		Notifier: notifier,
		Events:   pub,
	}, clk, log, m, quality.Settings{
		Locations: inventory.Locations{
			Quarantine: cfg.Stock.QuarantineLocation,
			Approved:   cfg.Stock.ApprovedLocation,
			Rejected:   cfg.Stock.RejectedLocation,
		},
		ControlledGroups: cfg.Stock.ControlledGroups,
	})

	scanner := replenish.NewScanner(inventoryRepo, requestsRepo, purchasingSvc, pub, clk, log, m, replenish.Settings{
		DuplicateWindowDays: cfg.Purchasing.DuplicateWindowDays,
		DefaultLeadDays:     cfg.Purchasing.DefaultLeadDays,
	})
	production := replenish.NewProductionCheck(bomsRepo, inventoryRepo, catalogRepo, requestsRepo, purchasingSvc, clk, log, replenish.Settings{
		DuplicateWindowDays: cfg.Purchasing.DuplicateWindowDays,
		DefaultLeadDays:     cfg.Purchasing.DefaultLeadDays,
	})
	lookups := purchasing.NewLookups(inventoryRepo, receiptsRepo, requestsRepo)

	if cfg.Scheduler.Enabled {
		hh, mm, err := replenish.ParseDailyAt(cfg.Scheduler.DailyAt)
		if err != nil {
			log.Error("scheduler config", "err", err)
			return
		}
		go replenish.Daily(ctx, scanner, clk, hh, mm, log)
	}

	if tg != nil && cfg.Telegram.Bot {
		desk := bot.NewDesk(purchasingSvc, qualitySvc, requestsRepo, receiptsRepo, log)
		b := bot.New(tg.API(), log, usersRepo, desk)
		go func() {
			if err := b.Run(ctx, cfg.Telegram.PollTimeout); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("bot stopped", "err", err)
			}
		}()
		log.Info("telegram bot started")
	}

	api := httpx.NewAPI(log, purchasingSvc, qualitySvc, scanner, production, lookups)
	srv := httpx.New(cfg.HTTP.Addr, cfg.Metrics.Enabled, api)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", "err", err)
		}
	}()
	log.Info("HTTP server started", "addr", cfg.HTTP.Addr)

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("graceful shutdown complete")
}
