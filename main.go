package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"amazon_rank_sync/internal/amazon"
	"amazon_rank_sync/internal/app"
	"amazon_rank_sync/internal/config"
	"amazon_rank_sync/internal/history"
	"amazon_rank_sync/internal/notifications"
	"amazon_rank_sync/internal/processing"
	"amazon_rank_sync/internal/sheets"

	"github.com/robfig/cron"
	"github.com/rs/zerolog/log"
)

// job holds everything a run needs; it is built once and reused by the
// scheduler.
type job struct {
	cfg      *app.Config
	res      config.ResilienceConfig
	auth     processing.Authenticator
	service  sheets.Service
	fetcher  *amazon.Client
	history  *history.Store
	notifier *notifications.Client

	// runs never overlap; a tick that finds one in progress is skipped
	running sync.Mutex
}

func main() {
	once := flag.Bool("once", false, "run a single sync and exit, ignoring CRON_SCHEDULE")
	flag.Parse()

	app.SetupEnvironment()
	log.Debug().Msg("Starting application")

	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	j, err := newJob(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize")
	}
	defer j.close()

	if *once || cfg.Schedule == nil {
		if _, err := j.run(ctx); err != nil {
			// deferred cleanup is skipped by os.Exit
			j.close()
			stop()
			os.Exit(1)
		}
		return
	}

	c := cron.NewWithLocation(sheets.JST)
	c.Schedule(cfg.Schedule, cron.FuncJob(func() {
		j.run(ctx)
	}))
	c.Start()
	log.Info().Str("schedule", cfg.CronSchedule).Msg("Amazon rank sync scheduled")

	<-ctx.Done()
	c.Stop()
	// wait for a run in progress to observe the cancellation
	j.running.Lock()
	j.running.Unlock()
	log.Info().Msg("Shutting down")
}

func newJob(ctx context.Context, cfg *app.Config) (*job, error) {
	res := config.DefaultResilienceConfig

	auth, service, err := app.InitializeBackend(ctx, cfg, res)
	if err != nil {
		return nil, err
	}

	j := &job{
		cfg:      cfg,
		res:      res,
		auth:     auth,
		service:  service,
		fetcher:  amazon.NewClient(cfg.AmazonBaseURL, res.RankFetchTimeout),
		notifier: app.InitializeNotificationClient(cfg.Notifications),
	}

	if cfg.HistoryDB != "" {
		store, err := history.Open(cfg.HistoryDB)
		if err != nil {
			return nil, err
		}
		j.history = store
	}
	return j, nil
}

func (j *job) close() {
	if j.history != nil {
		if err := j.history.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close run history")
		}
		j.history = nil
	}
}

func (j *job) run(ctx context.Context) (*processing.Report, error) {
	if !j.running.TryLock() {
		log.Warn().Msg("Previous run still in progress, skipping")
		return nil, nil
	}
	defer j.running.Unlock()

	opts := j.cfg.RunOptions(time.Now())
	log.Info().
		Str("sheet", opts.SheetTitle).
		Str("column", opts.IdentifierColumn).
		Int("start_row", opts.StartRow).
		Int("max_rows", opts.MaxRows).
		Msg("Starting Amazon rank sync")

	report, err := processing.NewRunner(j.auth, j.service, j.fetcher, opts, j.res).Run(ctx)

	// bookkeeping outlives a cancelled run
	bg := context.WithoutCancel(ctx)
	j.record(bg, report)
	j.notifier.NotifyRun(bg, summarize(report))

	return report, err
}

func (j *job) record(ctx context.Context, report *processing.Report) {
	if j.history == nil {
		return
	}
	if err := j.history.Record(ctx, historyEntry(report)); err != nil {
		log.Warn().Err(err).Str("run_id", report.RunID).Msg("Failed to record run history")
	}
}

func statusCounts(report *processing.Report) map[string]int {
	counts := make(map[string]int)
	for status, n := range report.StatusCounts() {
		counts[string(status)] = n
	}
	return counts
}

func historyEntry(report *processing.Report) history.Entry {
	e := history.Entry{
		RunID:      report.RunID,
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
		State:      report.State.String(),
		Sheet:      report.Sheet.Title,
		Column:     report.Column.Letter,
		RowsRead:   report.RowsRead,
		Skipped:    report.Skipped,
		Written:    report.Written,
		Statuses:   statusCounts(report),
	}
	if report.Err != nil {
		e.FailedAt = report.FailedAt.String()
		e.Error = report.Err.Error()
	}
	return e
}

func summarize(report *processing.Report) notifications.RunSummary {
	s := notifications.RunSummary{
		RunID:    report.RunID,
		Sheet:    report.Sheet.Title,
		Column:   report.Column.Letter,
		Written:  report.Written,
		Skipped:  report.Skipped,
		Statuses: statusCounts(report),
		Elapsed:  report.FinishedAt.Sub(report.StartedAt),
		Err:      report.Err,
	}
	if report.Err != nil {
		s.FailedAt = report.FailedAt.String()
	}
	return s
}
