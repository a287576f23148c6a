package config

import "strings"

// Setting is one named configuration value as shown by validate-config.
type Setting struct {
	Name     string
	Value    string
	Required bool
}

// IsSet reports whether the setting carries a value.
func (s Setting) IsSet() bool { return strings.TrimSpace(s.Value) != "" }

// Display returns the value with secrets masked.
func (s Setting) Display() string {
	if !s.IsSet() {
		return ""
	}
	if isSecret(s.Name) {
		return Mask(s.Value)
	}
	return s.Value
}

// Settings returns the configuration as an ordered list of named values.
func (c *Config) Settings() []Setting {
	dbRequired := c.Database.URL == ""
	return []Setting{
		{Name: "DATABASE_URL", Value: c.Database.URL},
		{Name: "DB_HOST", Value: c.Database.Host, Required: dbRequired},
		{Name: "DB_PORT", Value: c.Database.Port},
		{Name: "DB_NAME", Value: c.Database.Name, Required: dbRequired},
		{Name: "DB_USER", Value: c.Database.User, Required: dbRequired},
		{Name: "DB_PASSWORD", Value: c.Database.Password, Required: dbRequired},
		{Name: "SQL_QUALITY_CHECK", Value: c.Queries.QualityCheck, Required: true},
		{Name: "SQL_STATEMENT_COUNTRY", Value: c.Queries.Country, Required: true},
		{Name: "SQL_STATEMENT_MANAGER", Value: c.Queries.Manager, Required: true},
		{Name: "SQL_STATEMENT_PRDLINE", Value: c.Queries.ProductLine, Required: true},
		{Name: "GOOGLE_SHEET_ID", Value: c.Sheets.SpreadsheetID, Required: true},
		{Name: "SHEET_URL", Value: c.Sheets.URL},
		{Name: "CREDENTIALS_JSON", Value: c.CredentialsPath()},
		{Name: "IMAGE_HOST_URL", Value: c.ImageHost.URL},
		{Name: "IMGBB_API_KEY", Value: c.ImageHost.APIKey, Required: true},
		{Name: "S3_ENDPOINT", Value: c.ObjectStore.Endpoint, Required: true},
		{Name: "S3_ACCESS_KEY", Value: c.ObjectStore.AccessKey, Required: true},
		{Name: "S3_SECRET_KEY", Value: c.ObjectStore.SecretKey, Required: true},
		{Name: "S3_BUCKET", Value: c.ObjectStore.Bucket, Required: true},
		{Name: "WEBHOOK_URL_SSO", Value: c.Webhooks.SSO, Required: true},
		{Name: "WEBHOOK_URL_CPI", Value: c.Webhooks.CPI, Required: true},
		{Name: "WEBHOOK_URL_ERROR", Value: c.Webhooks.Error, Required: true},
		{Name: "WEBHOOK_URL_LOGGING", Value: c.Webhooks.Logging, Required: true},
		{Name: "QUALITY_CHECK_DB", Value: c.QualityDBPath()},
		{Name: "OUTPUT_DIR", Value: c.OutputPath()},
		{Name: "PUSHGATEWAY_URL", Value: c.Metrics.PushgatewayURL},
	}
}

func isSecret(name string) bool {
	for _, marker := range []string{"PASSWORD", "KEY", "WEBHOOK", "DATABASE_URL"} {
		if strings.Contains(name, marker) {
			return true
		}
	}
	return false
}

// Mask keeps the first 10 characters of long values and hides short ones.
func Mask(s string) string {
	if len(s) > 10 {
		return s[:10] + "..."
	}
	return "***"
}
