package internal

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/bluecheck/inquiries/internal/store"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Store  StoreConfig       `yaml:"store"`
	Mail   MailConfig        `yaml:"mail"`
	Notify NotifyConfig      `yaml:"notify"`
	SSE    SSEConfig         `yaml:"sse"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if err := c.Mail.Validate(); err != nil {
		return fmt.Errorf("mail: %w", err)
	}
	return c.Notify.Validate()
}

// ApplyEnv overrides file values with the well-known deployment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(v)); err == nil {
			c.App.LogLevel = lvl
		}
	}
	c.App.HTTP.Port = getEnvAsInt("PORT", c.App.HTTP.Port)

	c.Store.Driver = getEnv("STORE_DRIVER", c.Store.Driver)
	c.Store.URL = getEnv("DATABASE_URL", c.Store.URL)
	c.Store.DynamoDB.Region = getEnv("AWS_REGION", c.Store.DynamoDB.Region)
	c.Store.DynamoDB.Endpoint = getEnv("DYNAMO_ENDPOINT", c.Store.DynamoDB.Endpoint)
	c.Store.DynamoDB.TablePrefix = getEnv("DYNAMO_TABLE_PREFIX", c.Store.DynamoDB.TablePrefix)
	c.Store.DynamoDB.CreateTables = getEnvAsBool("DYNAMO_CREATE_TABLES", c.Store.DynamoDB.CreateTables)

	c.Mail.Enabled = getEnvAsBool("EMAIL_ENABLED", c.Mail.Enabled)
	c.Mail.SMTP.Host = getEnv("SMTP_HOST", c.Mail.SMTP.Host)
	c.Mail.SMTP.Port = getEnvAsInt("SMTP_PORT", c.Mail.SMTP.Port)
	c.Mail.SMTP.Username = getEnv("SMTP_USERNAME", c.Mail.SMTP.Username)
	c.Mail.SMTP.Password = getEnv("SMTP_PASSWORD", c.Mail.SMTP.Password)
	c.Mail.From = getEnv("EMAIL_FROM", c.Mail.From)
	c.Mail.Workers = getEnvAsInt("EMAIL_WORKERS", c.Mail.Workers)

	c.Notify.BusinessEmail = getEnv("BUSINESS_EMAIL", c.Notify.BusinessEmail)
	c.Notify.SlackWebhookURL = getEnv("SLACK_WEBHOOK_URL", c.Notify.SlackWebhookURL)
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.ShutdownTimeout, validation.Min(time.Duration(0))),
	)
}

// StoreConfig selects and configures the persistence backend.
//
// Driver "dynamodb" is the document store used in production; "sqlite" and
// "postgres" go through gorm and read the DSN from URL.
type StoreConfig struct {
	Driver   string         `yaml:"driver"`
	URL      string         `yaml:"url"`
	DynamoDB DynamoDBConfig `yaml:"dynamodb"`
}

// Validate validates the store configuration.
func (c *StoreConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.Required,
			validation.In(store.DriverSQLite, store.DriverPostgres, store.DriverDynamoDB)),
		validation.Field(&c.URL, validation.When(c.Driver != store.DriverDynamoDB, validation.Required)),
	); err != nil {
		return err
	}
	if c.Driver == store.DriverDynamoDB {
		return c.DynamoDB.Validate()
	}
	return nil
}

// Options converts the config into store.Options.
func (c *StoreConfig) Options() store.Options {
	return store.Options{
		Driver: c.Driver,
		URL:    c.URL,
		DynamoDB: store.DynamoOptions{
			Region:       c.DynamoDB.Region,
			Endpoint:     c.DynamoDB.Endpoint,
			TablePrefix:  c.DynamoDB.TablePrefix,
			CreateTables: c.DynamoDB.CreateTables,
		},
	}
}

// DynamoDBConfig holds DynamoDB table settings. Endpoint is only set for
// DynamoDB Local; an empty endpoint uses the default AWS resolution chain.
type DynamoDBConfig struct {
	Region       string `yaml:"region"`
	Endpoint     string `yaml:"endpoint"`
	TablePrefix  string `yaml:"table_prefix"`
	CreateTables bool   `yaml:"create_tables"`
}

// Validate validates the DynamoDB configuration.
func (c *DynamoDBConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.TablePrefix, validation.Required),
		validation.Field(&c.Endpoint, is.URL),
	)
}

// MailConfig holds outbound email settings.
type MailConfig struct {
	Enabled      bool       `yaml:"enabled"`
	SMTP         SMTPConfig `yaml:"smtp"`
	From         string     `yaml:"from"`
	FromName     string     `yaml:"from_name"`
	Workers      int        `yaml:"workers"`
	QueueSize    int        `yaml:"queue_size"`
	TemplatesDir string     `yaml:"templates_dir"`
}

// Validate validates the mail configuration. SMTP settings are only
// required when delivery is enabled.
func (c *MailConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Workers, validation.Required, validation.Min(1), validation.Max(64)),
		validation.Field(&c.QueueSize, validation.Required, validation.Min(1)),
		validation.Field(&c.From, validation.When(c.Enabled, validation.Required), is.EmailFormat),
	); err != nil {
		return err
	}
	if !c.Enabled {
		return nil
	}
	return c.SMTP.Validate()
}

// SMTPConfig holds relay connection settings. Credentials are expected to
// arrive through ${ENV} expansion or SMTP_USERNAME / SMTP_PASSWORD.
type SMTPConfig struct {
	Host     string        `yaml:"host"`
	Port     int           `yaml:"port"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Validate validates the SMTP configuration.
func (c *SMTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Host, validation.Required),
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.Password, validation.When(c.Username != "", validation.Required)),
		validation.Field(&c.Timeout, validation.Required),
	)
}

// NotifyConfig holds who gets told about new inquiries and what the
// customer is promised.
type NotifyConfig struct {
	BusinessEmail   string        `yaml:"business_email"`
	BusinessName    string        `yaml:"business_name"`
	BusinessPhone   string        `yaml:"business_phone"`
	ResponseWindow  time.Duration `yaml:"response_window"`
	SlackWebhookURL string        `yaml:"slack_webhook_url"`
}

// Validate validates the notification configuration.
func (c *NotifyConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.BusinessEmail, validation.Required, is.EmailFormat),
		validation.Field(&c.BusinessName, validation.Required),
		validation.Field(&c.ResponseWindow, validation.Required),
		validation.Field(&c.SlackWebhookURL, is.URL),
	); err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	return nil
}

// SSEConfig holds live event settings.
type SSEConfig struct {
	StatsThrottle time.Duration `yaml:"stats_throttle"`
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port:            8001,
				ShutdownTimeout: 10 * time.Second,
			},
		},
		Store: StoreConfig{
			Driver: store.DriverSQLite,
			URL:    "./bluecheck.db",
			DynamoDB: DynamoDBConfig{
				TablePrefix: "bluecheck",
			},
		},
		Mail: MailConfig{
			SMTP: SMTPConfig{
				Host:    "smtp.gmail.com",
				Port:    587,
				Timeout: 15 * time.Second,
			},
			From:      "bluecheckinspections@gmail.com",
			FromName:  "BlueCheck Inspections",
			Workers:   3,
			QueueSize: 64,
		},
		Notify: NotifyConfig{
			BusinessEmail:  "bluecheckinspections@gmail.com",
			BusinessName:   "BlueCheck Inspections",
			BusinessPhone:  "0477 167 167",
			ResponseWindow: 2 * time.Hour,
		},
		SSE: SSEConfig{
			StatsThrottle: 2 * time.Second,
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
