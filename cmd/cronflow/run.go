package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli"
	"go.uber.org/zap"

	"github.com/vnykmshr/cronflow/pkg/config"
	"github.com/vnykmshr/cronflow/pkg/logger"
	"github.com/vnykmshr/cronflow/pkg/metrics"
	"github.com/vnykmshr/cronflow/pkg/scheduling/history"
	"github.com/vnykmshr/cronflow/pkg/scheduling/scheduler"
)

func runCommand(ctx *cli.Context) error {
	path := ctx.Args().First()
	if path == "" {
		return errors.New("run: config path required")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if addr := ctx.String("metrics-addr"); addr != "" {
		cfg.Metrics.Addr = addr
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer log.Sync()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(sigCtx, cfg, log)
}

// serve runs the configured tasks until ctx is done.
func serve(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	mc, err := cfg.ManagerConfig()
	if err != nil {
		return err
	}

	recorder, closeRecorder, err := newRecorder(cfg.History)
	if err != nil {
		return err
	}
	defer closeRecorder()

	opts := []scheduler.Option{
		scheduler.WithLogger(log),
		scheduler.WithRecorder(recorder),
	}

	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		opts = append(opts, scheduler.WithMetrics(metrics.NewRegistry(reg), cfg.Metrics.Name))

		srv := metricsServer(cfg.Metrics.Addr, reg)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server failed", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		log.Info("serving metrics", zap.String("addr", cfg.Metrics.Addr))
	}

	m, err := scheduler.New(mc, opts...)
	if err != nil {
		return err
	}

	regs, err := registrations(cfg.Tasks, log)
	if err != nil {
		return err
	}
	if err := m.RegisterAll(regs); err != nil {
		return err
	}
	if err := m.Start(); err != nil {
		return err
	}

	<-ctx.Done()
	log.Info("shutting down")
	return m.Stop(cfg.Scheduler.GracefulStopTimeout)
}

func registrations(tasks []config.TaskConfig, log *zap.Logger) ([]scheduler.Registration, error) {
	regs := make([]scheduler.Registration, 0, len(tasks))
	for _, t := range tasks {
		build, err := lookupAction(t.Action)
		if err != nil {
			return nil, fmt.Errorf("task %s: %w", t.Name, err)
		}
		cb, err := build(t, log)
		if err != nil {
			return nil, fmt.Errorf("task %s: %w", t.Name, err)
		}
		regs = append(regs, scheduler.Registration{
			Name:     t.Name,
			Trigger:  t.TriggerSpec(),
			Callback: cb,
		})
	}
	return regs, nil
}

func newRecorder(cfg config.HistoryConfig) (history.Recorder, func(), error) {
	if cfg.RedisAddr == "" {
		return history.NewMemoryRecorder(cfg.Capacity), func() {}, nil
	}

	rec, err := history.NewRedisRecorder(history.RedisConfig{
		Redis:  redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}),
		Stream: cfg.Stream,
		MaxLen: cfg.MaxLen,
	})
	if err != nil {
		return nil, nil, err
	}
	return rec, func() { _ = rec.Close() }, nil
}

func metricsServer(addr string, gatherer prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
}
