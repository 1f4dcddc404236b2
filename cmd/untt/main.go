package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/prostoMif/UnTT-v1.0/core/bootstrap"
	"github.com/prostoMif/UnTT-v1.0/core/cmd"
	coreconfig "github.com/prostoMif/UnTT-v1.0/core/config"
	"github.com/prostoMif/UnTT-v1.0/internal/bot"
	"github.com/prostoMif/UnTT-v1.0/internal/clock"
	"github.com/prostoMif/UnTT-v1.0/internal/entitlement"
	"github.com/prostoMif/UnTT-v1.0/internal/flow"
	"github.com/prostoMif/UnTT-v1.0/internal/payment"
	"github.com/prostoMif/UnTT-v1.0/internal/remind"
	"github.com/prostoMif/UnTT-v1.0/internal/session"
	"github.com/prostoMif/UnTT-v1.0/internal/stats"
	"github.com/prostoMif/UnTT-v1.0/internal/storage"
	"github.com/prostoMif/UnTT-v1.0/internal/timers"
	"github.com/prostoMif/UnTT-v1.0/internal/users"
)

func main() {
	_ = godotenv.Load()

	err := cmd.Run(cmd.Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (cmd.ConfigCarrier, error) {
			return bot.LoadConfig(path)
		},
		Bootstrap: buildApp,
	})
	if err != nil {
		log.Printf("fatal: %v", err)
		os.Exit(1)
	}
}

func buildApp(carrier cmd.ConfigCarrier) (cmd.TelegramApp, error) {
	cfg, ok := carrier.(*bot.AppConfig)
	if !ok {
		return nil, fmt.Errorf("unexpected config type %T", carrier)
	}

	res, err := bootstrap.Run(bootstrap.Options{
		Config:   cfg.CoreConfig(),
		Database: cfg.Database,
	})
	if err != nil {
		return nil, err
	}

	store := storage.NewPostgres(res.DB)
	repo := users.NewRepo(store)
	clk := clock.New(cfg.Location())
	recorder := stats.NewRecorder(store, clk, cfg.DayBoundaryHour)
	engine := entitlement.NewEngine(cfg.Trial.FreeDays)

	sessions, err := buildSessions(cfg.CoreConfig())
	if err != nil {
		return nil, err
	}

	gateway := payment.NewClient(cfg.Payment.ShopID, cfg.Payment.SecretKey)
	notifier := bot.NewNotifier()

	svc := flow.New(flow.Config{
		SosRequiresPremium: cfg.Trial.SosRequiresPremium,
		PaymentAmountRub:   cfg.Payment.AmountRub,
		PaymentReturnURL:   cfg.Payment.ReturnURL,
		PaymentMonths:      cfg.Payment.PeriodMonths,
	}, clk, repo, engine, sessions, timers.NewManager(), recorder, gateway, notifier)

	var reminder *remind.Scheduler
	if cfg.Reminders.Enabled {
		interval := time.Duration(cfg.Reminders.IntervalMins) * time.Minute
		reminder = remind.New(clk, repo, notifier, cfg.Reminders.ExpiryDays, interval)
	}

	return bot.NewApp(cfg, svc, sessions, notifier, reminder), nil
}

func buildSessions(cfg *coreconfig.Config) (session.Manager, error) {
	switch cfg.Sessions.Backend {
	case coreconfig.SessionsRedis:
		client := redis.NewClient(&redis.Options{
			Addr: cfg.Sessions.RedisAddr,
			DB:   cfg.Sessions.RedisDB,
		})
		return session.NewRedisManager(client), nil
	case coreconfig.SessionsMemory, "":
		return session.NewMemoryManager(), nil
	default:
		return nil, fmt.Errorf("invalid sessions.backend %q; allowed: memory, redis", cfg.Sessions.Backend)
	}
}
