// Command worker delivers scheduled messages from the dispatch queue and
// serves the HTTP API (failure callback, unsubscribe, administration).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ignite/outreach-engine/internal/api"
	"github.com/ignite/outreach-engine/internal/app"
	"github.com/ignite/outreach-engine/internal/config"
	"github.com/ignite/outreach-engine/internal/pkg/logger"
	"github.com/ignite/outreach-engine/internal/queue"
	"github.com/ignite/outreach-engine/internal/repository/postgres"
	"github.com/ignite/outreach-engine/internal/service/allocation"
	"github.com/ignite/outreach-engine/internal/service/campaign"
	"github.com/ignite/outreach-engine/internal/service/contact"
	"github.com/ignite/outreach-engine/internal/service/delivery"
	"github.com/ignite/outreach-engine/internal/service/schedule"
	"github.com/ignite/outreach-engine/internal/service/suppression"
	"github.com/ignite/outreach-engine/internal/worker"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (optional)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		logger.Error("worker exited with error", "component", "worker", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	app.SetupLogging(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := app.OpenDB(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	rdb, err := app.OpenRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer rdb.Close()

	loc, err := time.LoadLocation(cfg.Schedule.Timezone)
	if err != nil {
		return err
	}

	tokens, err := suppression.NewTokens(cfg.Unsubscribe.Secret, cfg.Unsubscribe.TTL())
	if err != nil {
		return err
	}
	mailer, err := app.NewMailer(ctx, cfg.Delivery)
	if err != nil {
		return err
	}
	alerter := app.NewAlerter(cfg.Alerts)

	suppressions := suppression.NewService(postgres.NewSuppressionRepo(db), tokens)
	contacts := contact.NewService(postgres.NewContactRepo(db))
	deliveries := delivery.NewService(postgres.NewDeliveryRepo(db), mailer, tokens, contacts, cfg.Delivery.AppURL)

	q := queue.New(rdb, cfg.Queue.Prefix,
		queue.WithVisibilityTimeout(cfg.Queue.VisibilityTimeout()),
		queue.WithRetryBackoff(cfg.Queue.RetryBackoff()),
		queue.WithFailureNotifier(queue.NewHTTPFailureNotifier(nil, cfg.Queue.CallbackSecret)),
	)
	deliveryWorker := worker.NewDeliveryWorker(deliveries, cfg.Delivery.SenderRatePerMinute, cfg.Delivery.SenderBurst)
	consumer := queue.NewConsumer(q, deliveryWorker.Handle, cfg.Queue.Concurrency, cfg.Queue.PollInterval())
	recovery := worker.NewQueueRecoveryWorker(q, cfg.Queue.RecoveryInterval())

	planner := schedule.NewService(
		allocation.NewEngine(postgres.NewAllocationSource(db)),
		queue.NewDispatcher(q, loc),
		cfg.PlannerConfig(),
	)
	srv := api.NewServer(cfg, api.Deps{
		Unsubscriber: suppressions,
		Suppressions: suppressions,
		Campaigns:    campaign.NewService(postgres.NewCampaignRepo(db)),
		Previewer:    planner,
		Alerter:      alerter,
		Health:       api.NewHealthChecker(db, rdb),
	})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		consumer.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		recovery.Start(ctx)
	}()

	serverErr := make(chan error, 1)
	go func() {
		addr := cfg.Server.Addr()
		logger.Info("http server listening", "component", "worker", "addr", addr, "provider", mailer.Name())
		if err := srv.ListenAndServe(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err = <-serverErr:
		logger.Error("http server failed", "component", "worker", "error", err)
		stop()
	}

	logger.Info("shutting down", "component", "worker")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		logger.Warn("http shutdown", "component", "worker", "error", serr)
	}
	consumer.Stop()
	wg.Wait()
	logger.Info("worker stopped", "component", "worker")
	return err
}
