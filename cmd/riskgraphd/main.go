// Command riskgraphd runs the periodic risk recalculation sweep: on a cron
// schedule it recalculates every known tenant's risk scores and publishes
// RISK_UPDATE events, while serving Prometheus metrics over HTTP.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/R3E-Network/riskgraph/internal/app/cache"
	"github.com/R3E-Network/riskgraph/internal/app/graphbuilder"
	"github.com/R3E-Network/riskgraph/internal/app/observer"
	"github.com/R3E-Network/riskgraph/internal/app/risk"
	"github.com/R3E-Network/riskgraph/internal/app/storage/memory"
	"github.com/R3E-Network/riskgraph/pkg/config"
	"github.com/R3E-Network/riskgraph/pkg/logger"
	"github.com/R3E-Network/riskgraph/pkg/metrics"
)

func main() {
	metricsAddr := flag.String("metrics-addr", ":9090", "HTTP listen address for the Prometheus metrics endpoint")
	cronSpec := flag.String("cron", "", "cron schedule for the risk recalculation sweep (overrides config)")
	tenantsFlag := flag.String("tenants", "", "comma-separated tenant ids to recalculate (required; the persistent store's tenant catalog is out of scope for this module)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if trimmed := strings.TrimSpace(*cronSpec); trimmed != "" {
		cfg.Scheduler.CronSpec = trimmed
	}

	tenants := splitNonEmpty(*tenantsFlag)
	if len(tenants) == 0 {
		log.Fatal("at least one --tenants id is required")
	}

	appLog := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		FilePrefix: cfg.Logging.FilePrefix,
	})

	store := memory.New()
	riskCache := cache.New(appLog)
	defer riskCache.Shutdown()

	builder := graphbuilder.New(store, riskCache, appLog)
	bus := observer.New(appLog)

	logEvent := func(_ context.Context, event observer.Event) error {
		appLog.WithField("event_kind", string(event.Kind)).
			WithField("tenant_id", event.TenantID).
			Info("risk event")
		return nil
	}

	aggregators := make(map[string]*risk.Aggregator, len(tenants))
	for _, tenantID := range tenants {
		unsubscribe := bus.Subscribe(tenantID, logEvent)
		defer unsubscribe()
		aggregators[tenantID] = risk.New(tenantID, builder, store, bus, appLog)
	}

	sched := cron.New(cron.WithSeconds())
	_, err = sched.AddFunc(cfg.Scheduler.CronSpec, func() {
		runSweep(context.Background(), aggregators, appLog)
	})
	if err != nil {
		appLog.WithError(err).Fatal("invalid cron schedule")
	}
	sched.Start()
	defer sched.Stop()

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	server := &http.Server{Addr: *metricsAddr, Handler: mux}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.WithError(err).Fatal("metrics server failed")
		}
	}()
	appLog.WithField("addr", *metricsAddr).Info("riskgraphd started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLog.WithError(err).Error("metrics server shutdown")
	}
}

func runSweep(ctx context.Context, aggregators map[string]*risk.Aggregator, log *logger.Logger) {
	for tenantID, agg := range aggregators {
		if _, err := agg.CalculateAllRisks(ctx); err != nil {
			log.WithField("tenant_id", tenantID).WithError(err).Error("risk recalculation sweep failed")
		}
	}
}

func splitNonEmpty(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
