// Package postgresql reads the result of a query through a pgx pool.
package postgresql

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ajitpratap0/concord/pkg/config"
	"github.com/ajitpratap0/concord/pkg/connector/base"
	"github.com/ajitpratap0/concord/pkg/connector/core"
	"github.com/ajitpratap0/concord/pkg/errors"
	"github.com/ajitpratap0/concord/pkg/table"
)

// PostgreSQLSource runs one query and returns its rows as a table.
type PostgreSQLSource struct {
	*base.BaseSource

	connectionStr string
	query         string
	maxConns      int32

	pool *pgxpool.Pool
}

// NewPostgreSQLSource creates a PostgreSQL source. Either the "query" or the
// "table" setting is required; "columns" narrows a table read.
func NewPostgreSQLSource(cfg *config.Config) (core.Source, error) {
	s := &PostgreSQLSource{BaseSource: base.NewBaseSource("postgresql", cfg)}

	var err error
	if s.connectionStr, err = s.Settings().Require("connection_string"); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid postgresql settings")
	}
	s.query, err = BuildQuery(s.Settings().String("query", ""), s.Settings().String("table", ""), s.Settings().Strings("columns"))
	if err != nil {
		return nil, err
	}
	s.maxConns = int32(s.Settings().Int("max_connections", 4))
	return s, nil
}

// BuildQuery returns query when set, otherwise a SELECT over table with
// every identifier quoted.
func BuildQuery(query, tableName string, columns []string) (string, error) {
	if query != "" {
		return query, nil
	}
	if tableName == "" {
		return "", errors.New(errors.ErrorTypeConfig, "either table or query setting is required")
	}
	cols := "*"
	if len(columns) > 0 {
		quoted := make([]string, len(columns))
		for i, c := range columns {
			quoted[i] = pgx.Identifier{c}.Sanitize()
		}
		cols = strings.Join(quoted, ", ")
	}
	return "SELECT " + cols + " FROM " + pgx.Identifier(strings.Split(tableName, ".")).Sanitize(), nil
}

// Open creates the pool and checks connectivity.
func (s *PostgreSQLSource) Open(ctx context.Context) error {
	poolConfig, err := pgxpool.ParseConfig(s.connectionStr)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to parse connection string")
	}
	if s.maxConns > 0 {
		poolConfig.MaxConns = s.maxConns
	}
	if d := s.Config().Timeouts.Connection; d > 0 {
		poolConfig.ConnConfig.ConnectTimeout = d
	}
	poolConfig.MaxConnIdleTime = time.Minute

	err = s.RetryPolicy().Execute(ctx, "postgresql.connect", func(ctx context.Context) error {
		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeConnection, "failed to create connection pool")
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return errors.Wrap(err, errors.ErrorTypeConnection, "failed to ping postgresql")
		}
		s.pool = pool
		return nil
	}, nil)
	if err != nil {
		return err
	}

	s.GetLogger().Info("postgresql source opened",
		zap.String("database", poolConfig.ConnConfig.Database),
		zap.Int32("max_connections", poolConfig.MaxConns))
	return s.MarkOpen()
}

// Read runs the query.
func (s *PostgreSQLSource) Read(ctx context.Context) (*table.Table, error) {
	if err := s.EnsureOpen(); err != nil {
		return nil, err
	}
	start := time.Now()

	var t *table.Table
	err := s.Tracer().Trace(ctx, "query", func(ctx context.Context) error {
		ctx, cancel := s.WithTimeout(ctx)
		defer cancel()

		rows, err := s.pool.Query(ctx, s.query)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeQuery, "failed to execute query")
		}
		defer rows.Close()

		fields := rows.FieldDescriptions()
		columns := make([]string, len(fields))
		for i, f := range fields {
			columns[i] = f.Name
		}
		b := table.NewBuilder(s.TableName(s.Settings().String("table", "")), columns...)
		for rows.Next() {
			values, err := rows.Values()
			if err != nil {
				return errors.Wrap(err, errors.ErrorTypeData, "failed to decode row")
			}
			for i, v := range values {
				values[i] = Value(v)
			}
			if err := b.AppendValues(values...); err != nil {
				return errors.Wrap(err, errors.ErrorTypeData, "failed to append row")
			}
		}
		if err := rows.Err(); err != nil {
			return errors.Wrap(err, errors.ErrorTypeQuery, "query failed")
		}
		t = b.Build()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Finish(t, start), nil
}

// Value maps pgx decoded values that have no direct cell type. Exact
// numerics become int64 when integral and float64 otherwise; UUIDs become
// their text form.
func Value(v any) any {
	switch t := v.(type) {
	case pgtype.Numeric:
		if !t.Valid || t.NaN {
			return nil
		}
		if t.Exp >= 0 {
			if n, err := t.Int64Value(); err == nil && n.Valid {
				return n.Int64
			}
		}
		if f, err := t.Float64Value(); err == nil && f.Valid {
			return f.Float64
		}
		return nil
	case [16]byte:
		return uuid.UUID(t).String()
	default:
		return v
	}
}

// Close closes the pool.
func (s *PostgreSQLSource) Close(ctx context.Context) error {
	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}
	s.MarkClosed()
	return nil
}
