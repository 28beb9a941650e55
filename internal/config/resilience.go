package config

import (
	"time"

	"amazon_rank_sync/internal/retry"
)

type ResilienceConfig struct {
	// SheetRead covers idempotent spreadsheet reads: sheet listing, header
	// row and identifier column.
	SheetRead retry.Config

	AuthTimeout       time.Duration
	SheetWriteTimeout time.Duration
	RankFetchTimeout  time.Duration

	Pacing PacingConfig
}

// PacingConfig bounds the request rate against the product site.
type PacingConfig struct {
	// RetryDelay is drawn between attempts for the same identifier.
	RetryDelayMin time.Duration
	RetryDelayMax time.Duration
	// FetchDelay is drawn after every identifier, whatever the outcome.
	FetchDelayMin time.Duration
	FetchDelayMax time.Duration
	// MinInterval is the hard floor between two product page requests.
	MinInterval time.Duration
}

var DefaultResilienceConfig = ResilienceConfig{
	SheetRead: retry.Config{
		MaxRetries: 3,
		BaseDelay:  2 * time.Second,
		MaxDelay:   30 * time.Second,
		Timeout:    30 * time.Second,
	},
	AuthTimeout:       10 * time.Second,
	SheetWriteTimeout: 30 * time.Second,
	RankFetchTimeout:  25 * time.Second,
	Pacing: PacingConfig{
		RetryDelayMin: 1200 * time.Millisecond,
		RetryDelayMax: 2800 * time.Millisecond,
		FetchDelayMin: 1200 * time.Millisecond,
		FetchDelayMax: 2800 * time.Millisecond,
		MinInterval:   time.Second,
	},
}
