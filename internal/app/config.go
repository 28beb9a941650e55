package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"amazon_rank_sync/internal/amazon"
	"amazon_rank_sync/internal/config"
	"amazon_rank_sync/internal/gsheets"
	"amazon_rank_sync/internal/lark"
	"amazon_rank_sync/internal/notifications"
	"amazon_rank_sync/internal/processing"
	"amazon_rank_sync/internal/sheets"

	"github.com/robfig/cron"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cast"
)

const (
	BackendLark   = "lark"
	BackendGoogle = "google"
)

var columnRe = regexp.MustCompile(`^[A-Z]{1,3}$`)

// scheduleParser reads standard five-field cron expressions (minute hour
// day-of-month month day-of-week) and descriptors such as @daily. The cron
// package default expects a leading seconds field.
var scheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseSchedule parses a CRON_SCHEDULE value.
func ParseSchedule(spec string) (cron.Schedule, error) {
	return scheduleParser.Parse(spec)
}

// Config is the sync job configuration read from the environment.
type Config struct {
	Backend               string
	LarkHost              string
	AppID                 string
	AppSecret             string
	SpreadsheetToken      string
	GoogleCredentialsFile string

	// SheetTitle is empty when the month sheet should be derived per run.
	SheetTitle  string
	CreateSheet bool

	IdentifierColumn string
	StartRow         int
	MaxRows          int
	MaxAttempts      int
	AmazonBaseURL    string

	CronSchedule  string
	Schedule      cron.Schedule // parsed CronSchedule, nil when unset
	HistoryDB     string
	Notifications notifications.Config
}

// WebhookConfig configures the echo bot server.
type WebhookConfig struct {
	LarkHost          string
	AppID             string
	AppSecret         string
	VerificationToken string
	Addr              string
}

// envReader collects every problem instead of stopping at the first.
type envReader struct {
	errs []error
}

func (r *envReader) required(key string) string {
	value := os.Getenv(key)
	if value == "" {
		r.errs = append(r.errs, fmt.Errorf("%s environment variable is required", key))
	}
	return value
}

func (r *envReader) positiveInt(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	n, err := cast.ToIntE(raw)
	if err != nil || n <= 0 {
		r.errs = append(r.errs, fmt.Errorf("%s must be a positive integer, got %q", key, raw))
		return def
	}
	return n
}

func (r *envReader) flag(key string, def bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	b, err := cast.ToBoolE(raw)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s must be a boolean, got %q", key, raw))
		return def
	}
	return b
}

func (r *envReader) err() error {
	return errors.Join(r.errs...)
}

// LoadConfig reads the sync job configuration. All invalid or missing
// variables are reported together.
func LoadConfig() (*Config, error) {
	r := &envReader{}
	defaults := processing.DefaultOptions

	cfg := &Config{
		Backend:               strings.ToLower(GetEnvWithDefault("SHEETS_BACKEND", BackendLark)),
		LarkHost:              GetEnvWithDefault("LARK_HOST", lark.DefaultHost),
		SpreadsheetToken:      r.required("FEISHU_SHEET_TOKEN"),
		GoogleCredentialsFile: GetEnvWithDefault("GOOGLE_CREDENTIALS_FILE", "credentials.json"),
		SheetTitle:            os.Getenv("FEISHU_SHEET_NAME"),
		CreateSheet:           r.flag("SHEET_CREATE_IF_MISSING", false),
		IdentifierColumn:      strings.ToUpper(GetEnvWithDefault("ASIN_COLUMN", defaults.IdentifierColumn)),
		StartRow:              r.positiveInt("DATA_START_ROW", defaults.StartRow),
		MaxRows:               r.positiveInt("MAX_ROWS", defaults.MaxRows),
		MaxAttempts:           r.positiveInt("RANK_MAX_ATTEMPTS", defaults.MaxAttempts),
		AmazonBaseURL:         GetEnvWithDefault("AMAZON_BASE_URL", amazon.DefaultBaseURL),
		CronSchedule:          os.Getenv("CRON_SCHEDULE"),
		HistoryDB:             os.Getenv("RUN_HISTORY_DB"),
		Notifications: notifications.Config{
			BaseURL:    GetEnvWithDefault("NTFY_URL", "https://ntfy.sh"),
			Topic:      GetEnvWithDefault("NTFY_TOPIC", "amazon-rank-sync"),
			Enabled:    r.flag("NTFY_ENABLED", false),
			Priority:   os.Getenv("NTFY_PRIORITY"),
			MaxRetries: 3,
			BaseDelay:  time.Second,
			MaxDelay:   10 * time.Second,
		},
	}

	switch cfg.Backend {
	case BackendLark:
		cfg.AppID = r.required("FEISHU_APP_ID")
		cfg.AppSecret = r.required("FEISHU_APP_SECRET")
	case BackendGoogle:
	default:
		r.errs = append(r.errs, fmt.Errorf("SHEETS_BACKEND must be %q or %q, got %q", BackendLark, BackendGoogle, cfg.Backend))
	}

	if !columnRe.MatchString(cfg.IdentifierColumn) {
		r.errs = append(r.errs, fmt.Errorf("ASIN_COLUMN must be a column letter, got %q", cfg.IdentifierColumn))
	}

	if cfg.CronSchedule != "" {
		sched, err := ParseSchedule(cfg.CronSchedule)
		if err != nil {
			r.errs = append(r.errs, fmt.Errorf("CRON_SCHEDULE must be a five-field cron expression or descriptor, got %q: %w", cfg.CronSchedule, err))
		}
		cfg.Schedule = sched
	}

	if err := r.err(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWebhookConfig reads the echo bot configuration.
func LoadWebhookConfig() (*WebhookConfig, error) {
	r := &envReader{}
	cfg := &WebhookConfig{
		LarkHost:          GetEnvWithDefault("LARK_HOST", lark.DefaultHost),
		AppID:             r.required("FEISHU_APP_ID"),
		AppSecret:         r.required("FEISHU_APP_SECRET"),
		VerificationToken: r.required("LARK_VERIFICATION_TOKEN"),
		Addr:              GetEnvWithDefault("WEBHOOK_ADDR", ":8080"),
	}
	if err := r.err(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// RunOptions turns the configuration into orchestrator options for a run
// starting at now. The month sheet title is derived when none is configured.
func (c *Config) RunOptions(now time.Time) processing.Options {
	title := c.SheetTitle
	if title == "" {
		title = sheets.MonthSheetTitle(now)
	}
	return processing.Options{
		SheetTitle:       title,
		CreateSheet:      c.CreateSheet,
		IdentifierColumn: c.IdentifierColumn,
		StartRow:         c.StartRow,
		MaxRows:          c.MaxRows,
		MaxAttempts:      c.MaxAttempts,
	}
}

// InitializeBackend creates the spreadsheet backend. The authenticator is
// nil for backends that authenticate per request.
func InitializeBackend(ctx context.Context, cfg *Config, res config.ResilienceConfig) (processing.Authenticator, sheets.Service, error) {
	log.Debug().Str("backend", cfg.Backend).Msg("Initializing spreadsheet backend")

	switch cfg.Backend {
	case BackendGoogle:
		client, err := gsheets.NewClient(ctx, cfg.GoogleCredentialsFile, cfg.SpreadsheetToken)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create sheets client: %w", err)
		}
		return nil, client, nil
	default:
		tokens := lark.NewTokenCache(cfg.LarkHost, cfg.AppID, cfg.AppSecret, res.AuthTimeout)
		return tokens, lark.NewClient(cfg.LarkHost, cfg.SpreadsheetToken, tokens, res.SheetWriteTimeout), nil
	}
}

// InitializeNotificationClient creates the run summary notification client.
func InitializeNotificationClient(cfg notifications.Config) *notifications.Client {
	log.Debug().
		Bool("enabled", cfg.Enabled).
		Str("base_url", cfg.BaseURL).
		Str("topic", cfg.Topic).
		Msg("Initializing notification client")

	if cfg.Enabled {
		log.Info().Str("topic", cfg.Topic).Msg("Notifications enabled")
	}
	return notifications.NewClient(cfg)
}
