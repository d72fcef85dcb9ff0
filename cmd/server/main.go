package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ndvu2901/factory-sim/internal/adapter/external"
	"github.com/ndvu2901/factory-sim/internal/adapter/handler"
	"github.com/ndvu2901/factory-sim/internal/adapter/storage"
	"github.com/ndvu2901/factory-sim/internal/config"
	"github.com/ndvu2901/factory-sim/internal/core/service"
)

func main() {
	log := zap.Must(zap.NewProduction())
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("load config", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// MySQL
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal("open mysql", zap.Error(err))
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		log.Fatal("ping mysql", zap.Error(err))
	}
	log.Info("connected to mysql")

	// Redis
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, PoolSize: 100})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal("ping redis", zap.Error(err))
	}
	log.Info("connected to redis")

	// Adapters
	store := storage.NewMySQLAdapter(db)
	queue := storage.NewRedisQueue(rdb)
	if moved, err := queue.RecoverInFlight(ctx); err != nil {
		log.Fatal("recover in-flight jobs", zap.Error(err))
	} else if moved > 0 {
		log.Info("requeued in-flight jobs", zap.Int("count", moved))
	}

	bank := external.NewBankClient(cfg.BankURL, cfg.ExternalTimeout)
	logistics := external.NewLogisticsClient(cfg.LogisticsURL, cfg.ExternalTimeout)
	materials := external.NewSupplierClient(cfg.MaterialsURL, cfg.ExternalTimeout)
	machines := external.NewSupplierClient(cfg.MachinesURL, cfg.ExternalTimeout)

	// Clock, restored from the last snapshot so a restart keeps the same
	// notion of now.
	clock := service.NewClock(cfg.MinutesPerSimDay, cfg.MaxSimDays)
	if snap, err := store.LoadSnapshot(ctx); err != nil {
		log.Fatal("load clock snapshot", zap.Error(err))
	} else if snap != nil {
		clock.Restore(*snap)
		log.Info("clock restored", zap.Bool("running", snap.Running), zap.Int("day", snap.Day))
	}

	// Services
	ledger := service.NewLedger(store)
	orders := service.NewOrderService(store, ledger, clock, logistics, queue, cfg.OrderExpiryDays, log)
	treasury := service.NewTreasury()
	day := service.NewDayService(clock, ledger, bank, queue, treasury, service.DayConfig{
		TargetStock:     cfg.TargetStock,
		DailyProduction: cfg.DailyProduction,
		MinMachines:     cfg.MinMachines,
		MaterialsItem:   cfg.MaterialsItem,
	}, log)

	dispatcher := service.NewDispatcher(queue, cfg.MaxJobAttempts, cfg.DispatcherBatchSize, cfg.DispatcherReceiveWait, log)
	service.NewSagaHandlers(bank, materials, machines, queue, treasury, log).RegisterAll(dispatcher)

	// Background loops
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		dispatcher.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		dayLoop(ctx, cfg, clock, store, day, orders, log)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		sweepLoop(ctx, cfg.SweepInterval, clock, orders, log)
	}()

	// HTTP server
	mux := http.NewServeMux()
	handler.NewHTTPHandler(orders, ledger, clock, day, store, log).Register(mux)
	httpServer := &http.Server{Addr: cfg.HTTPAddr, Handler: mux}

	go func() {
		log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			log.Error("http server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	log.Info("http server stopped")

	cancel()
	wg.Wait()
	log.Info("background loops stopped")

	if err := store.SaveSnapshot(shutdownCtx, clock.Snapshot()); err != nil {
		log.Error("save clock snapshot", zap.Error(err))
	}

	rdb.Close()
	db.Close()
	log.Info("connections closed")
}

// dayLoop advances the integer day once per wall-clock day-length while the
// simulation runs, persists the snapshot, and kicks the day sequence.
func dayLoop(
	ctx context.Context,
	cfg config.Config,
	clock *service.Clock,
	store *storage.MySQLAdapter,
	day *service.DayService,
	orders *service.OrderService,
	log *zap.Logger,
) {
	ticker := time.NewTicker(cfg.DayLength())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if !clock.Running() {
			continue
		}
		if err := clock.AdvanceDay(); err != nil {
			log.Warn("advance day", zap.Error(err))
			continue
		}
		if err := store.SaveSnapshot(ctx, clock.Snapshot()); err != nil {
			log.Error("save clock snapshot", zap.Error(err))
		}
		if _, err := orders.ProcessExpirySweep(ctx, clock.CurrentPreciseTime(3)); err != nil {
			log.Error("expiry sweep", zap.Error(err))
		}
		day.RunDay(ctx)
	}
}

// sweepLoop expires overdue orders on a fine-grained cadence so expiry does
// not have to wait for a day boundary.
func sweepLoop(ctx context.Context, interval time.Duration, clock *service.Clock, orders *service.OrderService, log *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if !clock.Running() {
			continue
		}
		if _, err := orders.ProcessExpirySweep(ctx, clock.CurrentPreciseTime(3)); err != nil {
			log.Error("expiry sweep", zap.Error(err))
		}
	}
}
