// Package extract runs the report queries against the PostgreSQL source of
// truth and returns their results as tables.
package extract

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // Registers the "pgx" database/sql driver.

	"reportbot/internal/domain"
)

// Config describes the source database connection.
type Config struct {
	URL          string // wins over the discrete fields when set
	Host         string
	Port         string
	Name         string
	User         string
	Password     string
	PingTimeout  time.Duration
	MaxOpenConns int
}

// DSN returns the connection string for the configured database.
func (c Config) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	port := c.Port
	if port == "" {
		port = "5432"
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, port),
		Path:   "/" + c.Name,
	}
	return u.String()
}

// Validate checks that enough of the connection is configured to dial.
func (c Config) Validate() error {
	if c.URL != "" {
		return nil
	}
	var missing []string
	for _, f := range []struct{ name, v string }{
		{"DB_HOST", c.Host}, {"DB_NAME", c.Name}, {"DB_USER", c.User}, {"DB_PASSWORD", c.Password},
	} {
		if f.v == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing database settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Open connects to the source database and verifies the connection with a
// bounded ping.
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.PingTimeout <= 0 {
		cfg.PingTimeout = 5 * time.Second
	}
	if cfg.MaxOpenConns < 1 {
		cfg.MaxOpenConns = 2
	}

	db, err := sql.Open("pgx", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping: %w", describe(err))
	}
	return db, nil
}

// PostgresExtractor runs report queries on an open database.
type PostgresExtractor struct {
	db *sql.DB
}

// NewPostgresExtractor wraps db.
func NewPostgresExtractor(db *sql.DB) *PostgresExtractor {
	return &PostgresExtractor{db: db}
}

// Close closes the underlying database.
func (e *PostgresExtractor) Close() error {
	return e.db.Close()
}

// Query runs query and returns every row as a table.
func (e *PostgresExtractor) Query(ctx context.Context, query string) (domain.Table, error) {
	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return domain.Table{}, fmt.Errorf("query: %w", describe(err))
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return domain.Table{}, fmt.Errorf("column types: %w", err)
	}
	table := domain.Table{Columns: make([]string, len(types))}
	for i, ct := range types {
		table.Columns[i] = ct.Name()
	}

	for rows.Next() {
		raw := make([]any, len(types))
		ptrs := make([]any, len(types))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return domain.Table{}, fmt.Errorf("scan: %w", err)
		}
		row := make([]any, len(types))
		for i, v := range raw {
			row[i] = convertValue(v, types[i].DatabaseTypeName())
		}
		table.Rows = append(table.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return domain.Table{}, fmt.Errorf("rows: %w", describe(err))
	}
	return table, nil
}

// Metric runs query and returns column of the first row as a number.
func (e *PostgresExtractor) Metric(ctx context.Context, query, column string) (float64, error) {
	table, err := e.Query(ctx, query)
	if err != nil {
		return 0, err
	}
	return MetricFromTable(table, column)
}

// MetricFromTable returns column of the first row of table as a number.
func MetricFromTable(table domain.Table, column string) (float64, error) {
	if table.Index(column) < 0 {
		return 0, fmt.Errorf("metric column %q not in result (columns: %s)", column, strings.Join(table.Columns, ", "))
	}
	if table.Len() == 0 {
		return 0, errors.New("metric query returned no rows")
	}
	v, ok := table.Float(0, column)
	if !ok {
		return 0, fmt.Errorf("metric column %q is not numeric: %q", column, table.String(0, column))
	}
	return v, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// convertValue normalises a driver value to string, float64, int64 or nil.
func convertValue(v any, dbType string) any {
	switch x := v.(type) {
	case nil:
		return nil
	case []byte:
		return convertValue(string(x), dbType)
	case string:
		if strings.EqualFold(dbType, "NUMERIC") {
			if f, err := strconv.ParseFloat(x, 64); err == nil {
				return f
			}
		}
		return x
	case int64, float64:
		return x
	case int32:
		return int64(x)
	case int16:
		return int64(x)
	case float32:
		return float64(x)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format(time.DateOnly)
		}
		return x.Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}

// describe adds the SQLSTATE to PostgreSQL server errors.
func describe(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("%s (SQLSTATE %s): %w", pgErr.Message, pgErr.Code, err)
	}
	return err
}
