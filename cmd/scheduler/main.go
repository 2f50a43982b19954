// Command scheduler runs the daily allocation and scheduling pass, either
// on its cron schedule or once from the command line. When enabled, the
// court register feed runs on its own cron ahead of the scheduling pass.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/outreach-engine/internal/app"
	"github.com/ignite/outreach-engine/internal/config"
	"github.com/ignite/outreach-engine/internal/pkg/distlock"
	"github.com/ignite/outreach-engine/internal/pkg/httpretry"
	"github.com/ignite/outreach-engine/internal/pkg/logger"
	"github.com/ignite/outreach-engine/internal/queue"
	"github.com/ignite/outreach-engine/internal/repository/memory"
	"github.com/ignite/outreach-engine/internal/repository/postgres"
	"github.com/ignite/outreach-engine/internal/service/allocation"
	"github.com/ignite/outreach-engine/internal/service/ingest"
	"github.com/ignite/outreach-engine/internal/service/schedule"
	"github.com/ignite/outreach-engine/internal/storage"
	"github.com/ignite/outreach-engine/internal/worker"
)

const (
	lockKey       = "outreach:daily-schedule"
	ingestLockKey = "outreach:registry-ingest"
	ingestJobName = "registry ingestion"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (optional)")
	once := flag.Bool("once", false, "run one scheduling pass and exit")
	dryRun := flag.Bool("dry-run", false, "print the allocation plan and send times without dispatching")
	fixture := flag.String("fixture", "", "load data from a YAML fixture instead of Postgres")
	ingestOnce := flag.Bool("ingest", false, "ingest yesterday's court register bulletin and exit")
	flag.Parse()

	if err := run(*configPath, *once, *dryRun, *ingestOnce, *fixture); err != nil {
		logger.Error("scheduler exited with error", "component", "scheduler", "error", err)
		os.Exit(1)
	}
}

func run(configPath string, once, dryRun, ingestOnce bool, fixture string) error {
	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	app.SetupLogging(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		src allocation.Source
		db  *sql.DB
	)
	if fixture != "" {
		store, err := memory.LoadFixture(fixture)
		if err != nil {
			return err
		}
		src = store
		logger.Info("using fixture data", "component", "scheduler", "path", fixture)
	} else {
		if db, err = app.OpenDB(ctx, cfg.Database); err != nil {
			return err
		}
		defer db.Close()
		src = postgres.NewAllocationSource(db)
	}
	engine := allocation.NewEngine(src)

	if ingestOnce {
		if db == nil {
			return errors.New("-ingest needs Postgres, not a fixture")
		}
		ingester, err := newIngester(cfg, db)
		if err != nil {
			return err
		}
		res, err := ingester.IngestYesterday(ctx)
		if err != nil {
			return err
		}
		return printJSON(res)
	}

	if dryRun {
		preview, err := schedule.NewService(engine, nil, cfg.PlannerConfig()).Preview(ctx, cfg.Allocation)
		if err != nil {
			return err
		}
		return printJSON(preview)
	}

	rdb, err := app.OpenRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer rdb.Close()

	sched, err := newScheduler(ctx, cfg, engine, rdb, db)
	if err != nil {
		return err
	}

	if once {
		report, err := sched.RunOnce(ctx, "manual")
		if report != nil {
			if perr := printJSON(report); perr != nil {
				return perr
			}
		}
		return err
	}

	if cfg.Ingest.Enabled {
		if db == nil {
			logger.Warn("registry ingestion disabled in fixture mode", "component", "scheduler")
		} else {
			ingester, err := newIngester(cfg, db)
			if err != nil {
				return err
			}
			job := func(ctx context.Context) error {
				_, err := ingester.IngestYesterday(ctx)
				return err
			}
			lock := distlock.NewLock(rdb, db, ingestLockKey, cfg.Schedule.LockTTL())
			if err := sched.AddJob(ingestJobName, cfg.Ingest.Cron, lock, job); err != nil {
				return err
			}
		}
	}

	sched.Start()
	logger.Info("next scheduling run", "component", "scheduler", "at", sched.Next())
	<-ctx.Done()

	logger.Info("shutting down", "component", "scheduler")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	sched.Stop(shutdownCtx)
	return nil
}

func newScheduler(ctx context.Context, cfg *config.Config, engine *allocation.Engine, rdb *redis.Client, db *sql.DB) (*worker.DailyScheduler, error) {
	loc, err := time.LoadLocation(cfg.Schedule.Timezone)
	if err != nil {
		return nil, err
	}
	q := queue.New(rdb, cfg.Queue.Prefix)
	svc := schedule.NewService(engine, queue.NewDispatcher(q, loc), cfg.PlannerConfig())

	archive, err := storage.Open(ctx, cfg.Archive)
	if err != nil {
		logger.Warn("run archive disabled", "component", "scheduler", "error", err)
		archive = nil
	}

	return worker.NewDailyScheduler(svc, worker.SchedulerOptions{
		Spec:     cfg.Schedule.Cron,
		Location: loc,
		Lock:     distlock.NewLock(rdb, db, lockKey, cfg.Schedule.LockTTL()),
		Archive:  archive,
		Alerter:  app.NewAlerter(cfg.Alerts),
		Timeout:  cfg.Schedule.LockTTL(),
	})
}

func newIngester(cfg *config.Config, db *sql.DB) (*ingest.Service, error) {
	opts, err := cfg.IngestOptions()
	if err != nil {
		return nil, err
	}
	client := httpretry.NewRetryClient(&http.Client{Timeout: cfg.Ingest.Timeout()}, cfg.Ingest.MaxRetries)
	registry := ingest.NewKRSClient(cfg.Ingest.BaseURL, client)
	return ingest.NewService(registry, postgres.NewRecipientRepo(db), opts), nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
