// Package sqldb reads query results through database/sql for MySQL and
// Snowflake.
package sqldb

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/snowflakedb/gosnowflake"
	"go.uber.org/zap"

	"github.com/ajitpratap0/concord/pkg/config"
	"github.com/ajitpratap0/concord/pkg/connector/base"
	"github.com/ajitpratap0/concord/pkg/connector/core"
	"github.com/ajitpratap0/concord/pkg/errors"
	"github.com/ajitpratap0/concord/pkg/table"
)

// Drivers accepted by the "driver" setting.
const (
	DriverMySQL     = "mysql"
	DriverSnowflake = "snowflake"
)

// SQLSource runs one query and returns its rows as a table.
type SQLSource struct {
	*base.BaseSource

	driver string
	dsn    string
	query  string

	db *sql.DB
}

// NewSQLSource creates a source for the driver named by the "driver"
// setting. The DSN comes from the "dsn" setting or is assembled from the
// individual connection settings.
func NewSQLSource(cfg *config.Config) (core.Source, error) {
	s := &SQLSource{BaseSource: base.NewBaseSource("sql", cfg)}
	settings := s.Settings()

	s.driver = strings.ToLower(settings.String("driver", DriverMySQL))
	dsn, err := BuildDSN(s.driver, settings)
	if err != nil {
		return nil, err
	}
	s.dsn = dsn

	s.query = settings.String("query", "")
	if s.query == "" {
		tableName := settings.String("table", "")
		if tableName == "" {
			return nil, errors.New(errors.ErrorTypeConfig, "either table or query setting is required")
		}
		s.query = "SELECT * FROM " + QuoteIdentifier(s.driver, tableName)
	}
	return s, nil
}

// BuildDSN returns the data source name for driver.
func BuildDSN(driver string, settings config.Settings) (string, error) {
	if dsn := settings.String("dsn", ""); dsn != "" {
		return dsn, nil
	}
	switch driver {
	case DriverMySQL:
		mc := mysql.NewConfig()
		mc.User = settings.String("user", "")
		mc.Passwd = settings.String("password", "")
		mc.Net = "tcp"
		mc.Addr = settings.String("host", "localhost:3306")
		mc.DBName = settings.String("database", "")
		mc.ParseTime = true
		return mc.FormatDSN(), nil
	case DriverSnowflake:
		sc := &gosnowflake.Config{
			Account:   settings.String("account", ""),
			User:      settings.String("user", ""),
			Password:  settings.String("password", ""),
			Database:  settings.String("database", ""),
			Schema:    settings.String("schema", ""),
			Warehouse: settings.String("warehouse", ""),
			Role:      settings.String("role", ""),
		}
		if sc.Account == "" {
			return "", errors.New(errors.ErrorTypeConfig, "snowflake requires the account or dsn setting")
		}
		dsn, err := gosnowflake.DSN(sc)
		if err != nil {
			return "", errors.Wrap(err, errors.ErrorTypeConfig, "invalid snowflake settings")
		}
		return dsn, nil
	default:
		return "", errors.Newf(errors.ErrorTypeConfig, "unsupported sql driver %q", driver).
			WithDetail("available", []string{DriverMySQL, DriverSnowflake})
	}
}

// QuoteIdentifier quotes a possibly dotted table name for driver.
func QuoteIdentifier(driver, name string) string {
	quote := `"`
	if driver == DriverMySQL {
		quote = "`"
	}
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = quote + strings.ReplaceAll(p, quote, quote+quote) + quote
	}
	return strings.Join(parts, ".")
}

// Open opens the database handle and checks connectivity.
func (s *SQLSource) Open(ctx context.Context) error {
	db, err := sql.Open(s.driver, s.dsn)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to open database")
	}
	db.SetMaxOpenConns(s.Settings().Int("max_connections", 4))
	db.SetConnMaxIdleTime(time.Minute)

	err = s.RetryPolicy().Execute(ctx, "sql.connect", func(ctx context.Context) error {
		if d := s.Config().Timeouts.Connection; d > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d)
			defer cancel()
		}
		if err := db.PingContext(ctx); err != nil {
			return errors.Wrap(err, errors.ErrorTypeConnection, "failed to ping database").
				WithDetail("driver", s.driver)
		}
		return nil
	}, nil)
	if err != nil {
		_ = db.Close()
		return err
	}
	s.db = db
	s.GetLogger().Info("sql source opened", zap.String("driver", s.driver))
	return s.MarkOpen()
}

// Read runs the query.
func (s *SQLSource) Read(ctx context.Context) (*table.Table, error) {
	if err := s.EnsureOpen(); err != nil {
		return nil, err
	}
	start := time.Now()

	var t *table.Table
	err := s.Tracer().Trace(ctx, "query", func(ctx context.Context) error {
		ctx, cancel := s.WithTimeout(ctx)
		defer cancel()

		rows, err := s.db.QueryContext(ctx, s.query)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeQuery, "failed to execute query")
		}
		defer rows.Close()

		t, err = ScanRows(rows, s.TableName(s.Settings().String("table", "")))
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.Finish(t, start), nil
}

// Rows is the subset of *sql.Rows read by ScanRows.
type Rows interface {
	Columns() ([]string, error)
	ColumnTypes() ([]*sql.ColumnType, error)
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// ScanRows reads every row into a table, converting text-encoded numbers
// using the database column types.
func ScanRows(rows Rows, name string) (*table.Table, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to read columns")
	}
	dbTypes := make([]string, len(columns))
	if types, err := rows.ColumnTypes(); err == nil {
		for i, ct := range types {
			dbTypes[i] = ct.DatabaseTypeName()
		}
	}

	b := table.NewBuilder(name, columns...)
	raw := make([]any, len(columns))
	dest := make([]any, len(columns))
	for i := range raw {
		dest[i] = &raw[i]
	}
	values := make([]any, len(columns))
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to scan row")
		}
		for i, v := range raw {
			values[i] = Value(v, dbTypes[i])
		}
		if err := b.AppendValues(values...); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to append row")
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeQuery, "query failed")
	}
	return b.Build(), nil
}

// Value converts a scanned value. Drivers hand numeric columns back as text
// or bytes, so those are parsed according to the database type name.
func Value(v any, dbType string) any {
	var text string
	switch t := v.(type) {
	case []byte:
		text = string(t)
	case string:
		text = t
	default:
		return v
	}
	switch kindOf(dbType) {
	case kindInt:
		if n, err := strconv.ParseInt(text, 10, 64); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			return f
		}
	case kindFloat:
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			return f
		}
	case kindBool:
		if b, err := strconv.ParseBool(text); err == nil {
			return b
		}
	}
	return text
}

type columnKind int

const (
	kindText columnKind = iota
	kindInt
	kindFloat
	kindBool
)

func kindOf(dbType string) columnKind {
	switch strings.ToUpper(dbType) {
	case "TINYINT", "SMALLINT", "MEDIUMINT", "INT", "INTEGER", "BIGINT", "YEAR",
		"UNSIGNED TINYINT", "UNSIGNED SMALLINT", "UNSIGNED MEDIUMINT", "UNSIGNED INT", "UNSIGNED BIGINT",
		"FIXED":
		return kindInt
	case "DECIMAL", "NUMERIC", "FLOAT", "DOUBLE", "REAL":
		return kindFloat
	case "BOOLEAN", "BOOL":
		return kindBool
	default:
		return kindText
	}
}

// Close closes the database handle.
func (s *SQLSource) Close(ctx context.Context) error {
	s.MarkClosed()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
