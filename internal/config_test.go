package internal

import (
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/bluecheck/inquiries/internal/store"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Mail.Workers != 3 {
		t.Errorf("workers = %d, want 3", cfg.Mail.Workers)
	}
	if cfg.Notify.ResponseWindow != 2*time.Hour {
		t.Errorf("response window = %v", cfg.Notify.ResponseWindow)
	}
	if cfg.Mail.SMTP.Username != "" || cfg.Mail.SMTP.Password != "" {
		t.Error("defaults must not carry credentials")
	}
}

func TestStoreConfig_UnknownDriver(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Store.Driver = "mongo"
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown driver should fail validation")
	}
}

func TestStoreConfig_DynamoNeedsPrefix(t *testing.T) {
	cfg := StoreConfig{Driver: store.DriverDynamoDB}
	if err := cfg.Validate(); err == nil {
		t.Fatal("dynamodb without table prefix should fail")
	}
	cfg.DynamoDB.TablePrefix = "bluecheck"
	cfg.DynamoDB.Endpoint = "http://localhost:8000"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("dynamodb with prefix should pass: %v", err)
	}
}

func TestStoreConfig_SQLNeedsURL(t *testing.T) {
	cfg := StoreConfig{Driver: store.DriverPostgres}
	if err := cfg.Validate(); err == nil {
		t.Fatal("postgres without url should fail")
	}
}

func TestMailConfig_EnabledNeedsSMTP(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Mail.Enabled = true
	cfg.Mail.SMTP.Host = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("enabled mail without host should fail")
	}
	if !strings.Contains(err.Error(), "mail") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestMailConfig_UsernameNeedsPassword(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Mail.Enabled = true
	cfg.Mail.SMTP.Username = "alerts@example.com"
	if err := cfg.Validate(); err == nil {
		t.Fatal("username without password should fail")
	}
	cfg.Mail.SMTP.Password = "app-password"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("complete smtp config should pass: %v", err)
	}
}

func TestNotifyConfig_BadBusinessEmail(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Notify.BusinessEmail = "not-an-email"
	if err := cfg.Validate(); err == nil {
		t.Fatal("bad business email should fail")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("PORT", "9100")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("STORE_DRIVER", "dynamodb")
	t.Setenv("DYNAMO_ENDPOINT", "http://localhost:8000")
	t.Setenv("DYNAMO_CREATE_TABLES", "true")
	t.Setenv("SMTP_USERNAME", "alerts@example.com")
	t.Setenv("SMTP_PASSWORD", "secret")
	t.Setenv("EMAIL_ENABLED", "yes-please")
	t.Setenv("EMAIL_WORKERS", "5")
	t.Setenv("AWS_REGION", "us-west-2")

	cfg := NewDefaultConfig()
	cfg.ApplyEnv()

	if cfg.App.HTTP.Port != 9100 {
		t.Errorf("port = %d", cfg.App.HTTP.Port)
	}
	if cfg.App.LogLevel != slog.LevelDebug {
		t.Errorf("log level = %v", cfg.App.LogLevel)
	}
	if cfg.Store.Driver != store.DriverDynamoDB || !cfg.Store.DynamoDB.CreateTables {
		t.Errorf("store = %+v", cfg.Store)
	}
	if cfg.Mail.SMTP.Username != "alerts@example.com" || cfg.Mail.SMTP.Password != "secret" {
		t.Errorf("smtp credentials not applied: %+v", cfg.Mail.SMTP)
	}
	if cfg.Mail.Enabled {
		t.Error("unparseable EMAIL_ENABLED should keep the default")
	}
	if cfg.Mail.Workers != 5 || cfg.Store.DynamoDB.Region != "us-west-2" {
		t.Errorf("workers = %d, region = %q", cfg.Mail.Workers, cfg.Store.DynamoDB.Region)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate after env: %v", err)
	}
}
