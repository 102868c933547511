package service

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"obra-dashboard/internal/models"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// DataSourceConfig holds connection details
type DataSourceConfig struct {
	Driver string // "postgres" (lib/pq), "pgx", "sqlite"
	DSN    string
	Table  string
	Limit  int // 0 means no limit

	// Timeout bounds a whole Load, connect included. 0 means no timeout.
	Timeout time.Duration
}

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// SQLLoader reads the report from a database table, one RawRow per table
// row with the table's column names as keys.
type SQLLoader struct {
	config DataSourceConfig
}

// NewSQLLoader validates config and returns a loader. The connection is
// opened on every Load.
func NewSQLLoader(config DataSourceConfig) (*SQLLoader, error) {
	switch config.Driver {
	case "postgres", "pgx", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", config.Driver)
	}
	if config.DSN == "" {
		return nil, fmt.Errorf("sql dsn is required")
	}
	if !tableNamePattern.MatchString(config.Table) {
		return nil, fmt.Errorf("invalid table name %q", config.Table)
	}
	return &SQLLoader{config: config}, nil
}

func (p *SQLLoader) Describe() string {
	return "sql:" + p.config.Driver + ":" + p.config.Table
}

func (p *SQLLoader) Load(ctx context.Context) ([]models.RawRow, error) {
	if p.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.Timeout)
		defer cancel()
	}

	db, err := sql.Open(p.config.Driver, p.config.DSN)
	if err != nil {
		return nil, transportErr("open %s: %w", p.config.Driver, err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return nil, transportErr("ping %s: %w", p.config.Driver, err)
	}

	// Table name is checked against tableNamePattern in NewSQLLoader
	query := "SELECT * FROM " + p.config.Table
	if p.config.Limit > 0 {
		query += " LIMIT " + strconv.Itoa(p.config.Limit)
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, transportErr("query %s: %w", p.config.Table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, &LoadError{Kind: ParseError, Err: err}
	}

	var result []models.RawRow
	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, &LoadError{Kind: ParseError, Err: err}
		}

		row := make(models.RawRow, len(columns))
		for i, col := range columns {
			row[i] = models.Field{Key: col, Value: sqlValueString(values[i])}
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, transportErr("read rows: %w", err)
	}

	if len(result) == 0 {
		return nil, &LoadError{Kind: EmptySource, Err: ErrEmptySource}
	}
	return result, nil
}

func sqlValueString(val interface{}) string {
	switch v := val.(type) {
	case nil:
		return ""
	case []byte:
		return string(v)
	case string:
		return v
	case time.Time:
		if v.Hour() == 0 && v.Minute() == 0 && v.Second() == 0 && v.Nanosecond() == 0 {
			return v.Format("2006-01-02")
		}
		return v.Format(time.RFC3339)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}
