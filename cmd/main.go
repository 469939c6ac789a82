package main

import (
	"context"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/YeongJV/Laundry-Locker-Service-System/handler"
	"github.com/YeongJV/Laundry-Locker-Service-System/internal/auth"
	"github.com/YeongJV/Laundry-Locker-Service-System/internal/codegen"
	"github.com/YeongJV/Laundry-Locker-Service-System/internal/config"
	"github.com/YeongJV/Laundry-Locker-Service-System/internal/engine"
	"github.com/YeongJV/Laundry-Locker-Service-System/internal/fee"
	"github.com/YeongJV/Laundry-Locker-Service-System/internal/locker"
	"github.com/YeongJV/Laundry-Locker-Service-System/internal/logger"
	"github.com/YeongJV/Laundry-Locker-Service-System/internal/notify"
	"github.com/YeongJV/Laundry-Locker-Service-System/internal/reservation"
	"github.com/YeongJV/Laundry-Locker-Service-System/internal/storage"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log := logger.New()
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("configuration error", zap.Error(err))
	}

	gate, err := auth.NewSharedSecret(cfg.AdminSecretHash, cfg.AdminPassword)
	if err != nil {
		log.Fatal("admin gate init failed", zap.Error(err))
	}

	var producer notify.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = notify.NewKafkaProducer(cfg.KafkaBrokers)
		log.Info("using kafka notification producer", zap.Strings("brokers", cfg.KafkaBrokers))
	} else {
		producer = notify.NewConsoleProducer(log)
	}
	dispatcher := notify.NewDispatcher(producer, cfg.NotifyTopic,
		cfg.NotifyWorkers, cfg.NotifyBatch, 500*time.Millisecond, log)

	store := storage.NewFileStorage(cfg.DataFile, cfg.PoolSize, log)
	registry := locker.NewRegistry(cfg.PoolSize)
	ledger := reservation.NewLedger(nil)
	fees := fee.NewPolicy(cfg.ServiceFees, cfg.HourlyRate)
	codes := codegen.New(rand.New(rand.NewSource(time.Now().UnixNano())))

	eng := engine.New(registry, ledger, store, fees, codes, gate, dispatcher, log)
	if err := eng.Bootstrap(); err != nil {
		log.Fatal("engine bootstrap failed", zap.Error(err))
	}

	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			log.Info("metrics listener started", zap.String("addr", cfg.MetricsAddr))
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				log.Error("metrics listener stopped", zap.Error(err))
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		handler.New(eng, os.Stdin, os.Stdout).Run()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	dispatcher.Shutdown(shutdownCtx)
}
