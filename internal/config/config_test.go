package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadUsesDefaultsAndYAMLOverrides(t *testing.T) {
	clearConfigEnv(t)

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	yaml := `
log:
  level: info
bot:
  token: test-token
  owner_id: 100
  main_chat_id: -1001
  reception_chat_id: -1002
  admin_log_chat_id: -1003
  allowed_chat_ids: [-1004]
warnings:
  validity: 168h
admission:
  wait_extension: 12h
scheduler:
  batch_size: 10
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Log.Level != "info" {
		t.Fatalf("unexpected log level: %s", cfg.Log.Level)
	}
	if cfg.Bot.Token != "test-token" || cfg.Bot.OwnerID != 100 {
		t.Fatalf("unexpected bot config: %+v", cfg.Bot)
	}
	if cfg.Bot.MainChatID != -1001 || cfg.Bot.ReceptionChatID != -1002 || cfg.Bot.AdminLogChatID != -1003 {
		t.Fatalf("unexpected chat ids: %+v", cfg.Bot)
	}
	if cfg.Warnings.Validity != 168*time.Hour {
		t.Fatalf("unexpected warnings validity: %s", cfg.Warnings.Validity)
	}
	if cfg.Admission.WaitExtension != 12*time.Hour {
		t.Fatalf("unexpected wait extension: %s", cfg.Admission.WaitExtension)
	}
	if cfg.Scheduler.BatchSize != 10 {
		t.Fatalf("unexpected batch size: %d", cfg.Scheduler.BatchSize)
	}

	// Untouched keys keep their defaults.
	if cfg.Warnings.BanThreshold != 3 {
		t.Fatalf("ban threshold default should stay 3, got %d", cfg.Warnings.BanThreshold)
	}
	if cfg.Admission.ReviewDelay != 3*time.Hour {
		t.Fatalf("review delay default should stay 3h, got %s", cfg.Admission.ReviewDelay)
	}
	if cfg.Scheduler.PollInterval != 5*time.Second {
		t.Fatalf("poll interval default should stay 5s, got %s", cfg.Scheduler.PollInterval)
	}
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load config with missing file: %v", err)
	}

	if cfg.Warnings.Validity != 30*24*time.Hour {
		t.Fatalf("unexpected default validity: %s", cfg.Warnings.Validity)
	}
	if cfg.Admission.InviteTTL != 24*time.Hour {
		t.Fatalf("unexpected default invite ttl: %s", cfg.Admission.InviteTTL)
	}
	if cfg.Scheduler.BatchSize != 30 {
		t.Fatalf("unexpected default batch size: %d", cfg.Scheduler.BatchSize)
	}
}

func TestLoadRejectsMissingBotTokenInProduction(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("APP_ENV", "prod")

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatalf("expected error when bot.token is empty in production")
	}
}

func TestEnvOverridesBeatYAML(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("BOT_MAIN_CHAT_ID", "-2005")
	t.Setenv("WARNINGS_VALIDITY", "240h")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Bot.MainChatID != -2005 {
		t.Fatalf("env override for main chat id ignored: %d", cfg.Bot.MainChatID)
	}
	if cfg.Warnings.Validity != 240*time.Hour {
		t.Fatalf("env override for validity ignored: %s", cfg.Warnings.Validity)
	}
}

func TestChatAllowed(t *testing.T) {
	bot := BotConfig{
		MainChatID:      -1001,
		ReceptionChatID: -1002,
		AdminLogChatID:  -1003,
		AllowedChatIDs:  []int64{-1004},
	}

	tests := []struct {
		name   string
		chatID int64
		want   bool
	}{
		{"main chat", -1001, true},
		{"reception chat", -1002, true},
		{"admin log chat", -1003, true},
		{"extra allowlisted", -1004, true},
		{"stranger chat", -9999, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := bot.ChatAllowed(tt.chatID); got != tt.want {
				t.Fatalf("ChatAllowed(%d) = %v, want %v", tt.chatID, got, tt.want)
			}
		})
	}

	open := BotConfig{}
	if !open.ChatAllowed(-9999) {
		t.Fatalf("empty allowlist must allow everything")
	}
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV",
		"LOG_LEVEL",
		"POSTGRES_DSN",
		"REDIS_ADDR",
		"REDIS_PASSWORD",
		"REDIS_DB",
		"BOT_TOKEN",
		"BOT_OWNER_ID",
		"BOT_MAIN_CHAT_ID",
		"BOT_RECEPTION_CHAT_ID",
		"BOT_ADMIN_LOG_CHAT_ID",
		"WARNINGS_VALIDITY",
		"WARNINGS_BAN_THRESHOLD",
		"ADMISSION_REVIEW_DELAY",
		"ADMISSION_WAIT_EXTENSION",
		"ADMISSION_INVITE_TTL",
		"SCHEDULER_POLL_INTERVAL",
		"SCHEDULER_BATCH_SIZE",
	} {
		t.Setenv(key, "")
	}
}
