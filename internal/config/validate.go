package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	msg := fmt.Sprintf("%d validation errors:", len(e))
	for _, err := range e {
		msg += "\n  - " + err.Error()
	}
	return msg
}

// Fields returns the names of the offending settings.
func (e ValidationErrors) Fields() []string {
	out := make([]string, len(e))
	for i, v := range e {
		out[i] = v.Field
	}
	return out
}

// Validate checks the configuration for errors.
// Returns nil if valid, or ValidationErrors if invalid.
func (c *Config) Validate() error {
	var errs ValidationErrors

	required := func(field, value string) {
		if strings.TrimSpace(value) == "" {
			errs = append(errs, ValidationError{Field: field, Message: "required"})
		}
	}

	// Either DATABASE_URL or the individual connection fields.
	if c.Database.URL == "" {
		required("DB_HOST", c.Database.Host)
		required("DB_NAME", c.Database.Name)
		required("DB_USER", c.Database.User)
		required("DB_PASSWORD", c.Database.Password)
		if c.Database.Port != "" {
			if n, err := strconv.Atoi(c.Database.Port); err != nil || n <= 0 || n > 65535 {
				errs = append(errs, ValidationError{
					Field:   "DB_PORT",
					Message: fmt.Sprintf("must be a port number, got %q", c.Database.Port),
				})
			}
		}
	}

	required("SQL_STATEMENT_COUNTRY", c.Queries.Country)
	required("SQL_STATEMENT_MANAGER", c.Queries.Manager)
	required("SQL_STATEMENT_PRDLINE", c.Queries.ProductLine)
	required("SQL_QUALITY_CHECK", c.Queries.QualityCheck)

	required("GOOGLE_SHEET_ID", c.Sheets.SpreadsheetID)
	required("IMGBB_API_KEY", c.ImageHost.APIKey)

	required("S3_ENDPOINT", c.ObjectStore.Endpoint)
	required("S3_ACCESS_KEY", c.ObjectStore.AccessKey)
	required("S3_SECRET_KEY", c.ObjectStore.SecretKey)
	required("S3_BUCKET", c.ObjectStore.Bucket)
	if strings.Contains(c.ObjectStore.Endpoint, "://") {
		errs = append(errs, ValidationError{
			Field:   "S3_ENDPOINT",
			Message: fmt.Sprintf("must not include scheme, got %q", c.ObjectStore.Endpoint),
		})
	}

	required("WEBHOOK_URL_SSO", c.Webhooks.SSO)
	required("WEBHOOK_URL_CPI", c.Webhooks.CPI)
	required("WEBHOOK_URL_ERROR", c.Webhooks.Error)
	required("WEBHOOK_URL_LOGGING", c.Webhooks.Logging)

	durations := []struct {
		field     string
		value     string
		allowZero bool
	}{
		{"NOTIFY_TIMEOUT", c.Notify.Timeout, false},
		{"NOTIFY_INTERVAL", c.Notify.Interval, true},
		{"S3_PRESIGN_EXPIRY", c.ObjectStore.PresignExpiry, false},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		v, err := time.ParseDuration(d.value)
		switch {
		case err != nil:
			errs = append(errs, ValidationError{Field: d.field, Message: fmt.Sprintf("invalid duration: %v", err)})
		case v < 0 || (v == 0 && !d.allowZero):
			errs = append(errs, ValidationError{Field: d.field, Message: "must be positive"})
		}
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{
			Field:   "LOG_LEVEL",
			Message: fmt.Sprintf("must be one of debug, info, warn, error, got %q", c.Logging.Level),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
