package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the configuration file read when no override is given.
const DefaultPath = "config/reportbot.yaml"

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the report bot.
type Config struct {
	ProjectRoot string      `yaml:"project_root"`
	OutputDir   string      `yaml:"output_dir"`
	Database    Database    `yaml:"database"`
	Queries     Queries     `yaml:"queries"`
	Sheets      Sheets      `yaml:"sheets"`
	ImageHost   ImageHost   `yaml:"image_host"`
	ObjectStore ObjectStore `yaml:"object_store"`
	Webhooks    Webhooks    `yaml:"webhooks"`
	Quality     Quality     `yaml:"quality"`
	Notify      Notify      `yaml:"notify"`
	Render      Render      `yaml:"render"`
	Metrics     Metrics     `yaml:"metrics"`
	Logging     Logging     `yaml:"logging"`
}

// Database holds the connection settings of the reporting PostgreSQL
// database. URL takes precedence over the individual fields.
type Database struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// Queries holds the SQL statement texts run against the database.
type Queries struct {
	Country      string `yaml:"country"`
	Manager      string `yaml:"manager"`
	ProductLine  string `yaml:"product_line"`
	QualityCheck string `yaml:"quality_check"`
}

// Sheets configures the spreadsheet the product-line rows are published to
// and, optionally, the tab country targets are read from.
type Sheets struct {
	SpreadsheetID   string `yaml:"spreadsheet_id"`
	Tab             string `yaml:"tab"`
	TargetTab       string `yaml:"target_tab"`
	URL             string `yaml:"url"`
	CredentialsJSON string `yaml:"credentials_json"`
}

// ImageHost configures the Chevereto thumbnail host.
type ImageHost struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
}

// ObjectStore configures the S3-compatible bucket holding full-resolution
// images.
type ObjectStore struct {
	Endpoint      string `yaml:"endpoint"`
	AccessKey     string `yaml:"access_key"`
	SecretKey     string `yaml:"secret_key"`
	Bucket        string `yaml:"bucket"`
	Region        string `yaml:"region"`
	UseSSL        bool   `yaml:"use_ssl"`
	PublicBaseURL string `yaml:"public_base_url"`
	PresignExpiry string `yaml:"presign_expiry"`
}

// Webhooks holds the chat webhook URLs. SSO and CPI together form the main
// report channel.
type Webhooks struct {
	SSO     string `yaml:"sso"`
	CPI     string `yaml:"cpi"`
	Error   string `yaml:"error"`
	Logging string `yaml:"logging"`
}

// Quality configures the data quality gate.
type Quality struct {
	DBPath       string `yaml:"db_path"`
	MetricColumn string `yaml:"metric_column"`
}

// Notify tunes webhook delivery.
type Notify struct {
	Timeout  string `yaml:"timeout"`
	Interval string `yaml:"interval"` // minimum spacing between posts, "0s" disables
}

// Render tunes chart output.
type Render struct {
	DPI int `yaml:"dpi"`
}

// Metrics configures the optional Prometheus pushgateway.
type Metrics struct {
	PushgatewayURL string `yaml:"pushgateway_url"`
	Job            string `yaml:"job"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the optional .env file, then the YAML configuration file at the
// given path, applies defaults and finally environment variable overrides.
// A missing YAML file is not an error: the bot can run from environment
// variables alone.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, err
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	return cfg, nil
}

// loadDotEnv loads KEY=VALUE pairs into the process environment without
// overriding variables that are already set.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.ProjectRoot == "" {
		if wd, err := os.Getwd(); err == nil {
			cfg.ProjectRoot = wd
		}
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "output"
	}
	if cfg.Database.Port == "" {
		cfg.Database.Port = "5432"
	}
	if cfg.Sheets.Tab == "" {
		cfg.Sheets.Tab = "raw"
	}
	if cfg.Sheets.CredentialsJSON == "" {
		cfg.Sheets.CredentialsJSON = "token/credentials.json"
	}
	if cfg.ImageHost.URL == "" {
		cfg.ImageHost.URL = "https://img.cuongdq.cyou/api/1/upload"
	}
	if cfg.ObjectStore.Region == "" {
		cfg.ObjectStore.Region = "us-east-1"
	}
	if cfg.ObjectStore.PresignExpiry == "" {
		cfg.ObjectStore.PresignExpiry = "168h"
	}
	if cfg.Quality.DBPath == "" {
		cfg.Quality.DBPath = "quality_check.db"
	}
	if cfg.Quality.MetricColumn == "" {
		cfg.Quality.MetricColumn = "nmv"
	}
	if cfg.Notify.Timeout == "" {
		cfg.Notify.Timeout = "30s"
	}
	if cfg.Notify.Interval == "" {
		cfg.Notify.Interval = "5s"
	}
	if cfg.Render.DPI == 0 {
		cfg.Render.DPI = 150
	}
	if cfg.Metrics.Job == "" {
		cfg.Metrics.Job = "reportbot"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	overrides := []struct {
		name  string
		field *string
	}{
		{"PROJECT_ROOT", &cfg.ProjectRoot},
		{"OUTPUT_DIR", &cfg.OutputDir},

		{"DATABASE_URL", &cfg.Database.URL},
		{"DB_HOST", &cfg.Database.Host},
		{"DB_PORT", &cfg.Database.Port},
		{"DB_NAME", &cfg.Database.Name},
		{"DB_USER", &cfg.Database.User},
		{"DB_PASSWORD", &cfg.Database.Password},

		{"SQL_STATEMENT_COUNTRY", &cfg.Queries.Country},
		{"SQL_STATEMENT_MANAGER", &cfg.Queries.Manager},
		{"SQL_STATEMENT_PRDLINE", &cfg.Queries.ProductLine},
		{"SQL_QUALITY_CHECK", &cfg.Queries.QualityCheck},

		{"GOOGLE_SHEET_ID", &cfg.Sheets.SpreadsheetID},
		{"SHEET_URL", &cfg.Sheets.URL},
		{"SHEET_TARGET_TAB", &cfg.Sheets.TargetTab},
		{"CREDENTIALS_JSON", &cfg.Sheets.CredentialsJSON},

		{"IMAGE_HOST_URL", &cfg.ImageHost.URL},
		{"IMGBB_API_KEY", &cfg.ImageHost.APIKey},

		{"S3_ENDPOINT", &cfg.ObjectStore.Endpoint},
		{"S3_ACCESS_KEY", &cfg.ObjectStore.AccessKey},
		{"S3_SECRET_KEY", &cfg.ObjectStore.SecretKey},
		{"S3_BUCKET", &cfg.ObjectStore.Bucket},
		{"S3_REGION", &cfg.ObjectStore.Region},
		{"S3_PUBLIC_BASE_URL", &cfg.ObjectStore.PublicBaseURL},
		{"S3_PRESIGN_EXPIRY", &cfg.ObjectStore.PresignExpiry},

		{"WEBHOOK_URL_SSO", &cfg.Webhooks.SSO},
		{"WEBHOOK_URL_CPI", &cfg.Webhooks.CPI},
		{"WEBHOOK_URL_ERROR", &cfg.Webhooks.Error},
		{"WEBHOOK_URL_LOGGING", &cfg.Webhooks.Logging},

		{"QUALITY_CHECK_DB", &cfg.Quality.DBPath},
		{"QUALITY_METRIC_COLUMN", &cfg.Quality.MetricColumn},

		{"NOTIFY_TIMEOUT", &cfg.Notify.Timeout},
		{"NOTIFY_INTERVAL", &cfg.Notify.Interval},

		{"PUSHGATEWAY_URL", &cfg.Metrics.PushgatewayURL},

		{"LOG_LEVEL", &cfg.Logging.Level},
		{"LOG_FORMAT", &cfg.Logging.Format},
		{"LOG_FILE", &cfg.Logging.File},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.name); v != "" {
			*o.field = v
		}
	}

	if v := os.Getenv("S3_USE_SSL"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.ObjectStore.UseSSL = b
		}
	}
}

// ---------------------------------------------------------------------------
// Derived values
// ---------------------------------------------------------------------------

// ResolvePath resolves a configured path against the project root. Absolute
// paths are returned unchanged, relative paths are joined to root and an
// empty value falls back to root/fallback.
func ResolvePath(root, configured, fallback string) string {
	if configured == "" {
		return filepath.Join(root, fallback)
	}
	if filepath.IsAbs(configured) {
		return configured
	}
	return filepath.Join(root, configured)
}

// OutputPath is the absolute directory rendered images are written to.
func (c *Config) OutputPath() string {
	return ResolvePath(c.ProjectRoot, c.OutputDir, "output")
}

// CredentialsPath is the absolute path of the Google service account JSON.
func (c *Config) CredentialsPath() string {
	return ResolvePath(c.ProjectRoot, c.Sheets.CredentialsJSON, "token/credentials.json")
}

// QualityDBPath is the absolute path of the quality baseline database.
func (c *Config) QualityDBPath() string {
	return ResolvePath(c.ProjectRoot, c.Quality.DBPath, "quality_check.db")
}

// LogFilePath is the absolute path of the log file, or "" when file logging
// is disabled.
func (c *Config) LogFilePath() string {
	if c.Logging.File == "" {
		return ""
	}
	return ResolvePath(c.ProjectRoot, c.Logging.File, "")
}

// NotifyTimeout returns the per-request webhook timeout.
func (c *Config) NotifyTimeout() time.Duration {
	d, err := time.ParseDuration(c.Notify.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// NotifyInterval returns the minimum spacing between webhook posts. Zero
// disables pacing.
func (c *Config) NotifyInterval() time.Duration {
	d, err := time.ParseDuration(c.Notify.Interval)
	if err != nil || d < 0 {
		return 5 * time.Second
	}
	return d
}

// PresignExpiry returns the lifetime of presigned object URLs.
func (c *Config) PresignExpiry() time.Duration {
	d, err := time.ParseDuration(c.ObjectStore.PresignExpiry)
	if err != nil || d <= 0 {
		return 168 * time.Hour
	}
	return d
}

// MainWebhooks returns the non-empty webhook URLs of the main report channel.
func (c *Config) MainWebhooks() []string {
	var urls []string
	for _, u := range []string{c.Webhooks.SSO, c.Webhooks.CPI} {
		if strings.TrimSpace(u) != "" {
			urls = append(urls, u)
		}
	}
	return urls
}
