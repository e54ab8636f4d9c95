package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	automationhandler "regengine/internal/automation/handler"
	automationmetrics "regengine/internal/automation/metrics"
	automationservice "regengine/internal/automation/service"
	"regengine/internal/automation/store"
	"regengine/internal/deadline"
	deadlinehandler "regengine/internal/deadline/handler"
	deadlinemetrics "regengine/internal/deadline/metrics"
	deadlineservice "regengine/internal/deadline/service"
	"regengine/internal/platform/config"
	"regengine/internal/platform/httpserver"
	"regengine/internal/platform/logger"
	platformmetrics "regengine/internal/platform/metrics"
	httptransport "regengine/internal/transport/http"
	"regengine/pkg/platform/audit/publisher"
	auditmemory "regengine/pkg/platform/audit/store/memory"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal service packages.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "regengine:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	policy, err := cfg.Policy()
	if err != nil {
		return fmt.Errorf("load policy: %w", err)
	}
	classifier, err := deadline.NewClassifier(policy)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	pubOpts := []publisher.Option{publisher.WithLogger(log)}
	if cfg.AuditBuffer > 0 {
		pubOpts = append(pubOpts, publisher.WithAsyncBuffer(cfg.AuditBuffer))
	}
	auditPublisher := publisher.NewPublisher(auditmemory.NewInMemoryStore(), pubOpts...)
	defer auditPublisher.Close()

	recorder := automationservice.New(store.NewInMemory(),
		automationservice.WithLogger(log),
		automationservice.WithMetrics(automationmetrics.New(reg)),
		automationservice.WithAuditPublisher(auditPublisher),
	)
	deadlines := deadlineservice.New(classifier,
		deadlineservice.WithLogger(log),
		deadlineservice.WithMetrics(deadlinemetrics.New(reg)),
		deadlineservice.WithAuditPublisher(auditPublisher),
		deadlineservice.WithStepRecorder(recorder),
	)

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:   log,
		Metrics:  platformmetrics.New(reg),
		Gatherer: reg,
		Handlers: []httptransport.Registrar{
			automationhandler.New(recorder, log),
			deadlinehandler.New(deadlines, log),
		},
	})
	srv := httpserver.New(cfg.Addr, router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting regengine",
			"addr", cfg.Addr,
			"risk_fraction", policy.RiskFraction,
			"audit_buffer", cfg.AuditBuffer,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})
	return g.Wait()
}
