// Package processing runs one rank sync: resolve the sheet and today's
// column, fetch a rank for every identifier row and commit all results in a
// single batched write.
package processing

import (
	"context"
	"fmt"
	"time"

	"amazon_rank_sync/internal/amazon"
	"amazon_rank_sync/internal/asin"
	"amazon_rank_sync/internal/config"
	"amazon_rank_sync/internal/retry"
	"amazon_rank_sync/internal/sheets"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Authenticator obtains the spreadsheet API credential before a run.
type Authenticator interface {
	Authenticate(ctx context.Context) error
}

// RankFetcher fetches one rank. value is empty unless status is OK.
type RankFetcher interface {
	FetchRank(ctx context.Context, asin string) (string, amazon.Status)
}

type Options struct {
	SheetTitle       string
	CreateSheet      bool
	IdentifierColumn string
	StartRow         int
	MaxRows          int
	MaxAttempts      int
}

// DefaultOptions mirrors the sheet layout the job was built for: identifiers
// in column B from row 2, headers in row 1.
var DefaultOptions = Options{
	IdentifierColumn: "B",
	StartRow:         2,
	MaxRows:          200,
	MaxAttempts:      2,
}

// RowResult is the outcome for one row that had an identifier.
type RowResult struct {
	Row      int
	ASIN     string
	Status   amazon.Status
	Value    string
	Attempts int
}

// Report describes a finished run.
type Report struct {
	RunID      string
	State      State
	FailedAt   State
	Sheet      sheets.Sheet
	Column     sheets.Column
	RowsRead   int
	Skipped    int
	Results    []RowResult
	Written    int
	StartedAt  time.Time
	FinishedAt time.Time
	Err        error
}

// StatusCounts tallies row results by status.
func (r *Report) StatusCounts() map[amazon.Status]int {
	counts := make(map[amazon.Status]int)
	for _, res := range r.Results {
		counts[res.Status]++
	}
	return counts
}

type Runner struct {
	Auth       Authenticator
	Service    sheets.Service
	Fetcher    RankFetcher
	Options    Options
	Resilience config.ResilienceConfig

	// Sleep and Now are replaced in tests.
	Sleep retry.Sleeper
	Now   func() time.Time

	limiter *rate.Limiter
}

func NewRunner(auth Authenticator, service sheets.Service, fetcher RankFetcher, opts Options, res config.ResilienceConfig) *Runner {
	return &Runner{
		Auth:       auth,
		Service:    service,
		Fetcher:    fetcher,
		Options:    opts,
		Resilience: res,
		Sleep:      retry.Sleep,
		Now:        time.Now,
		limiter:    rate.NewLimiter(rate.Every(res.Pacing.MinInterval), 1),
	}
}

// Run executes one sync. A failed run returns the error and a report in
// StateFailed; nothing is written to data cells unless the run reaches
// StateCommitted.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	report := &Report{
		RunID:     uuid.NewString(),
		State:     StateInit,
		StartedAt: r.Now(),
	}
	logger := log.With().Str("run_id", report.RunID).Logger()
	ctx = logger.WithContext(ctx)

	err := r.run(ctx, report)
	report.FinishedAt = r.Now()
	if err != nil {
		report.FailedAt = report.State
		report.State = StateFailed
		report.Err = err
		logger.Error().
			Err(err).
			Str("failed_at", report.FailedAt.String()).
			Msg("Rank sync run failed")
		return report, err
	}

	logger.Info().
		Str("sheet", report.Sheet.Title).
		Str("column", report.Column.Letter).
		Int("rows_read", report.RowsRead).
		Int("skipped", report.Skipped).
		Int("written", report.Written).
		Dur("elapsed", report.FinishedAt.Sub(report.StartedAt)).
		Msg("Rank sync run complete")
	return report, nil
}

func (r *Runner) advance(ctx context.Context, report *Report, next State) {
	zerolog.Ctx(ctx).Debug().
		Str("from", report.State.String()).
		Str("to", next.String()).
		Msg("Run state transition")
	report.State = next
}

func (r *Runner) run(ctx context.Context, report *Report) error {
	opts := r.Options

	if r.Auth != nil {
		authCtx, cancel := context.WithTimeout(ctx, r.Resilience.AuthTimeout)
		err := r.Auth.Authenticate(authCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("failed to authenticate: %w", err)
		}
	}
	r.advance(ctx, report, StateAuthResolved)

	ref, err := sheets.NewLocator(r.Service, r.Resilience.SheetRead).Resolve(ctx, opts.SheetTitle, opts.CreateSheet)
	if err != nil {
		return err
	}
	report.Sheet = ref.Sheet
	r.advance(ctx, report, StateSheetResolved)

	column, err := sheets.NewColumnResolver(r.Service, r.Resilience.SheetRead, r.Now).EnsureTodayColumn(ctx, ref)
	if err != nil {
		return err
	}
	report.Column = column
	r.advance(ctx, report, StateColumnResolved)

	endRow := opts.StartRow + opts.MaxRows - 1
	rng := ref.Range(fmt.Sprintf("%s%d", opts.IdentifierColumn, opts.StartRow), fmt.Sprintf("%s%d", opts.IdentifierColumn, endRow))
	rows, err := sheets.ReadRange(ctx, r.Service, r.Resilience.SheetRead, rng)
	if err != nil {
		return err
	}
	report.RowsRead = len(rows)
	r.advance(ctx, report, StateRowsRead)

	instructions, err := r.fetchRanks(ctx, report, rows, column)
	if err != nil {
		return err
	}
	r.advance(ctx, report, StateRanksFetched)

	writeCtx, cancel := context.WithTimeout(ctx, r.Resilience.SheetWriteTimeout)
	defer cancel()
	if err := sheets.NewWriter(r.Service).Commit(writeCtx, ref, instructions); err != nil {
		return err
	}
	report.Written = len(instructions)
	r.advance(ctx, report, StateCommitted)

	if len(instructions) == 0 {
		zerolog.Ctx(ctx).Info().Msg("Nothing to update, no identifier found")
	}
	r.advance(ctx, report, StateDone)
	return nil
}

// fetchRanks walks rows in sheet order and returns one instruction per row
// with an identifier.
func (r *Runner) fetchRanks(ctx context.Context, report *Report, rows [][]interface{}, column sheets.Column) ([]sheets.WriteInstruction, error) {
	logger := zerolog.Ctx(ctx)
	pacing := r.Resilience.Pacing
	var instructions []sheets.WriteInstruction

	for i, row := range rows {
		rowNo := r.Options.StartRow + i
		id, ok := asin.Extract(sheets.FirstCell(row))
		if !ok {
			report.Skipped++
			continue
		}

		result, err := r.fetchWithRetry(ctx, rowNo, id)
		if err != nil {
			return nil, err
		}
		report.Results = append(report.Results, result)

		write := result.Value
		if write == "" {
			write = result.Status.Sentinel()
		}
		instructions = append(instructions, sheets.WriteInstruction{Column: column.Letter, Row: rowNo, Value: write})

		logger.Info().
			Int("row", rowNo).
			Str("asin", id).
			Str("status", string(result.Status)).
			Int("attempts", result.Attempts).
			Str("write", write).
			Msg("Fetched rank")

		if err := r.Sleep(ctx, retry.Jitter(pacing.FetchDelayMin, pacing.FetchDelayMax)); err != nil {
			return nil, err
		}
	}
	return instructions, nil
}

// fetchWithRetry calls the fetcher up to MaxAttempts times, stopping at the
// first value, with a jittered pause between attempts.
func (r *Runner) fetchWithRetry(ctx context.Context, rowNo int, id string) (RowResult, error) {
	pacing := r.Resilience.Pacing
	maxAttempts := max(r.Options.MaxAttempts, 1)
	result := RowResult{Row: rowNo, ASIN: id, Status: amazon.StatusRankUnavailable}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return result, err
			}
		}

		fetchCtx, cancel := context.WithTimeout(ctx, r.Resilience.RankFetchTimeout)
		value, status := r.Fetcher.FetchRank(fetchCtx, id)
		cancel()

		result.Attempts = attempt
		result.Value = value
		result.Status = status
		if value != "" {
			return result, nil
		}

		zerolog.Ctx(ctx).Debug().
			Int("row", rowNo).
			Str("asin", id).
			Str("status", string(status)).
			Int("attempt", attempt).
			Msg("No rank obtained")

		if attempt < maxAttempts {
			if err := r.Sleep(ctx, retry.Jitter(pacing.RetryDelayMin, pacing.RetryDelayMax)); err != nil {
				return result, err
			}
		}
	}
	return result, nil
}
