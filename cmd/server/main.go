package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/camilaepierce/BakerBelongingsBackend-sub001/internal/adapter/handler"
	"github.com/camilaepierce/BakerBelongingsBackend-sub001/internal/adapter/notifier"
	"github.com/camilaepierce/BakerBelongingsBackend-sub001/internal/adapter/roster"
	"github.com/camilaepierce/BakerBelongingsBackend-sub001/internal/adapter/storage"
	"github.com/camilaepierce/BakerBelongingsBackend-sub001/internal/config"
	"github.com/camilaepierce/BakerBelongingsBackend-sub001/internal/core/service"
	"github.com/camilaepierce/BakerBelongingsBackend-sub001/internal/kafka"
	"github.com/camilaepierce/BakerBelongingsBackend-sub001/internal/port"
)

func main() {
	godotenv.Load()
	cfg := config.Load()
	logger := newLogger(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Catalog storage
	var catalog port.Catalog
	var closeCatalog func()
	switch cfg.CatalogDriver {
	case "postgres":
		pool, err := storage.ConnectPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("failed to connect postgres: %v", err)
		}
		catalog = storage.NewCatalogFromPGXPool(pool, storage.WithItemsTable(cfg.ItemsTable))
		closeCatalog = pool.Close
	case "sqlx":
		db, err := storage.ConnectSQLX(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("failed to connect postgres over sqlx: %v", err)
		}
		catalog = storage.NewCatalogFromSQLX(db, storage.WithItemsTable(cfg.ItemsTable))
		closeCatalog = func() { db.Close() }
	default:
		db, err := storage.ConnectMySQL(ctx, cfg.MySQLDSN)
		if err != nil {
			log.Fatalf("failed to connect mysql: %v", err)
		}
		catalog = storage.NewCatalogFromMySQL(db, storage.WithItemsTable(cfg.ItemsTable))
		closeCatalog = func() { db.Close() }
	}
	logger.Info("connected to catalog", "driver", cfg.CatalogDriver)

	// Roster
	csvRoster, err := roster.LoadCSVRoster(cfg.RosterPath)
	if err != nil {
		log.Fatalf("failed to load roster: %v", err)
	}
	logger.Info("roster loaded", "path", cfg.RosterPath, "kerbs", csvRoster.Len())

	// Reminder cooldown ledger
	var ledger port.ReminderLedger
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			PoolSize: 100,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("failed to connect redis: %v", err)
		}
		ledger = storage.NewRedisLedger(rdb)
		logger.Info("connected to redis", "addr", cfg.RedisAddr)
	} else {
		ledger = storage.NewMemoryLedger()
	}

	// Event bus
	var bus port.EventPublisher
	var producer *kafka.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = kafka.NewProducer(cfg.KafkaBrokers, 1024, logger)
		producer.Start()
		bus = kafka.NewBus(producer, cfg.ServiceName)
		logger.Info("kafka producer started", "brokers", strings.Join(cfg.KafkaBrokers, ","))
	}

	// Loan service
	table := service.NewReservationTable()
	loanOpts := []service.Option{
		service.WithLoanPeriod(time.Duration(cfg.LoanDays) * 24 * time.Hour),
		service.WithLogger(logger),
	}
	if bus != nil {
		loanOpts = append(loanOpts, service.WithEventPublisher(bus))
	}
	loans := service.NewReservationService(table, catalog, csvRoster, loanOpts...)

	restored, err := loans.RestoreFromCatalog(ctx)
	if err != nil {
		log.Fatalf("failed to restore loans from catalog: %v", err)
	}
	logger.Info("loan state restored", "active", restored)

	// Reminder sink
	var sink port.NotificationSink
	switch cfg.Notifier {
	case "smtp":
		sink = notifier.NewSMTPNotifier(cfg.SMTPAddr, cfg.SMTPFrom, cfg.MailDomain)
	case "kafka":
		if bus != nil {
			sink = notifier.NewKafkaNotifier(bus)
		} else {
			logger.Warn("kafka notifier requested without brokers, using log sink")
			sink = notifier.NewLogNotifier(logger)
		}
	default:
		sink = notifier.NewLogNotifier(logger)
	}

	// Overdue sweeper
	sweepOpts := []service.SweeperOption{service.WithSweeperLogger(logger)}
	if cfg.ReminderCooldown > 0 {
		sweepOpts = append(sweepOpts, service.WithReminderCooldown(ledger, cfg.ReminderCooldown))
	}
	if bus != nil {
		sweepOpts = append(sweepOpts, service.WithSweeperEvents(bus))
	}
	sweeper := service.NewSweeper(table, sink, sweepOpts...)
	sweeperDone := make(chan struct{})
	go func() {
		defer close(sweeperDone)
		sweeper.Run(ctx, cfg.SweepInterval)
	}()
	logger.Info("sweeper started", "interval", cfg.SweepInterval.String())

	// HTTP server
	router := handler.NewRouter()
	handler.NewHTTPHandler(loans, sweeper, csvRoster).Register(router)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("http server error", "error", err.Error())
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	logger.Info("http server stopped")

	// The sweeper publishes through the producer, so it must drain before
	// the producer closes.
	cancel()
	<-sweeperDone
	logger.Info("sweeper stopped")

	if producer != nil {
		producer.Close()
		producer.WaitClosed()
		logger.Info("kafka producer flushed")
	}

	if rdb != nil {
		rdb.Close()
	}
	closeCatalog()
	logger.Info("connections closed")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
