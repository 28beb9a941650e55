package app

import (
	"strings"
	"testing"
	"time"

	"amazon_rank_sync/internal/sheets"
)

var configKeys = []string{
	"SHEETS_BACKEND", "LARK_HOST", "FEISHU_APP_ID", "FEISHU_APP_SECRET", "FEISHU_SHEET_TOKEN",
	"FEISHU_SHEET_NAME", "SHEET_CREATE_IF_MISSING", "GOOGLE_CREDENTIALS_FILE", "ASIN_COLUMN",
	"DATA_START_ROW", "MAX_ROWS", "RANK_MAX_ATTEMPTS", "AMAZON_BASE_URL", "CRON_SCHEDULE",
	"RUN_HISTORY_DB", "NTFY_ENABLED", "NTFY_URL", "NTFY_TOPIC", "NTFY_PRIORITY",
	"LARK_VERIFICATION_TOKEN", "WEBHOOK_ADDR",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("FEISHU_APP_ID", "cli_a")
	t.Setenv("FEISHU_APP_SECRET", "secret")
	t.Setenv("FEISHU_SHEET_TOKEN", "shtTOKEN")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.Backend != BackendLark {
		t.Errorf("Expected backend lark, got %s", cfg.Backend)
	}
	if cfg.LarkHost != "https://open.larksuite.com" {
		t.Errorf("Expected default Lark host, got %s", cfg.LarkHost)
	}
	if cfg.IdentifierColumn != "B" || cfg.StartRow != 2 || cfg.MaxRows != 200 || cfg.MaxAttempts != 2 {
		t.Errorf("Unexpected scan defaults %+v", cfg)
	}
	if cfg.AmazonBaseURL != "https://www.amazon.co.jp" {
		t.Errorf("Expected default product host, got %s", cfg.AmazonBaseURL)
	}
	if cfg.CreateSheet || cfg.Notifications.Enabled {
		t.Error("Expected sheet creation and notifications to default off")
	}
	if cfg.Notifications.Topic != "amazon-rank-sync" {
		t.Errorf("Expected default topic, got %s", cfg.Notifications.Topic)
	}
}

func TestLoadConfigAggregatesErrors(t *testing.T) {
	clearEnv(t)
	t.Setenv("MAX_ROWS", "lots")
	t.Setenv("ASIN_COLUMN", "b2")

	_, err := LoadConfig()
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	for _, want := range []string{"FEISHU_SHEET_TOKEN", "FEISHU_APP_ID", "FEISHU_APP_SECRET", "MAX_ROWS", "ASIN_COLUMN"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Expected error to mention %s, got %v", want, err)
		}
	}
}

func TestLoadConfigGoogleBackend(t *testing.T) {
	clearEnv(t)
	t.Setenv("SHEETS_BACKEND", "google")
	t.Setenv("FEISHU_SHEET_TOKEN", "1AbCdEf")
	t.Setenv("SHEET_CREATE_IF_MISSING", "true")
	t.Setenv("RANK_MAX_ATTEMPTS", "3")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("Expected no error without app credentials, got %v", err)
	}
	if !cfg.CreateSheet {
		t.Error("Expected CreateSheet true")
	}
	if cfg.MaxAttempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", cfg.MaxAttempts)
	}
	if cfg.GoogleCredentialsFile != "credentials.json" {
		t.Errorf("Expected default credentials file, got %s", cfg.GoogleCredentialsFile)
	}
}

func TestLoadConfigUnknownBackend(t *testing.T) {
	clearEnv(t)
	t.Setenv("SHEETS_BACKEND", "excel")
	t.Setenv("FEISHU_SHEET_TOKEN", "x")

	_, err := LoadConfig()
	if err == nil || !strings.Contains(err.Error(), "SHEETS_BACKEND") {
		t.Fatalf("Expected backend error, got %v", err)
	}
}

func TestRunOptionsDerivesMonthSheet(t *testing.T) {
	cfg := &Config{IdentifierColumn: "B", StartRow: 2, MaxRows: 200, MaxAttempts: 2}
	// 2024-01-31 20:00 UTC is already February in Japan
	now := time.Date(2024, 1, 31, 20, 0, 0, 0, time.UTC)

	if got := cfg.RunOptions(now).SheetTitle; got != "2月" {
		t.Errorf("Expected 2月, got %s", got)
	}

	cfg.SheetTitle = "ranks"
	if got := cfg.RunOptions(now).SheetTitle; got != "ranks" {
		t.Errorf("Expected configured title, got %s", got)
	}
	if got := sheets.MonthSheetTitle(now.Add(-12 * time.Hour)); got != "1月" {
		t.Errorf("Expected 1月, got %s", got)
	}
}

func TestLoadWebhookConfig(t *testing.T) {
	clearEnv(t)
	if _, err := LoadWebhookConfig(); err == nil || !strings.Contains(err.Error(), "LARK_VERIFICATION_TOKEN") {
		t.Fatalf("Expected missing token error, got %v", err)
	}

	t.Setenv("FEISHU_APP_ID", "cli_a")
	t.Setenv("FEISHU_APP_SECRET", "secret")
	t.Setenv("LARK_VERIFICATION_TOKEN", "vt")
	cfg, err := LoadWebhookConfig()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Errorf("Expected default address :8080, got %s", cfg.Addr)
	}
}

func TestParseScheduleStandardFields(t *testing.T) {
	sched, err := ParseSchedule("0 9 * * *")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	from := time.Date(2026, 10, 19, 0, 0, 0, 0, sheets.JST)
	first := sched.Next(from)
	second := sched.Next(first)
	third := sched.Next(second)

	if want := time.Date(2026, 10, 19, 9, 0, 0, 0, sheets.JST); !first.Equal(want) {
		t.Errorf("Expected first run %v, got %v", want, first)
	}
	if second.Sub(first) != 24*time.Hour || third.Sub(second) != 24*time.Hour {
		t.Errorf("Expected one run per day, got %v, %v, %v", first, second, third)
	}
}

func TestParseScheduleDescriptor(t *testing.T) {
	sched, err := ParseSchedule("@daily")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	from := time.Date(2026, 10, 19, 12, 0, 0, 0, sheets.JST)
	if want := time.Date(2026, 10, 20, 0, 0, 0, 0, sheets.JST); !sched.Next(from).Equal(want) {
		t.Errorf("Expected %v, got %v", want, sched.Next(from))
	}
}

func TestLoadConfigSchedule(t *testing.T) {
	clearEnv(t)
	t.Setenv("SHEETS_BACKEND", "google")
	t.Setenv("FEISHU_SHEET_TOKEN", "1AbCdEf")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.Schedule != nil {
		t.Error("Expected no schedule when CRON_SCHEDULE is unset")
	}

	t.Setenv("CRON_SCHEDULE", "0 9 * * *")
	cfg, err = LoadConfig()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.Schedule == nil {
		t.Fatal("Expected parsed schedule, got nil")
	}

	// a leading seconds field is not accepted
	t.Setenv("CRON_SCHEDULE", "0 0 9 * * *")
	t.Setenv("MAX_ROWS", "-1")
	_, err = LoadConfig()
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	for _, want := range []string{"CRON_SCHEDULE", "MAX_ROWS"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Expected error to mention %s, got %v", want, err)
		}
	}
}
