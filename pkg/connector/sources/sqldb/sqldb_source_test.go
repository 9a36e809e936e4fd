package sqldb

import (
	"database/sql"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/concord/pkg/config"
	"github.com/ajitpratap0/concord/pkg/errors"
)

func TestBuildDSN(t *testing.T) {
	dsn, err := BuildDSN(DriverMySQL, config.Settings{
		"user": "u", "password": "p", "host": "db:3306", "database": "trial",
	})
	require.NoError(t, err)
	assert.Contains(t, dsn, "u:p@tcp(db:3306)/trial?")
	assert.Contains(t, dsn, "parseTime=true")

	dsn, err = BuildDSN(DriverMySQL, config.Settings{"dsn": "raw"})
	require.NoError(t, err)
	assert.Equal(t, "raw", dsn)

	dsn, err = BuildDSN(DriverSnowflake, config.Settings{
		"account": "acme", "user": "u", "password": "p", "database": "TRIAL",
	})
	require.NoError(t, err)
	assert.Contains(t, dsn, "acme")
	assert.Contains(t, dsn, "TRIAL")

	_, err = BuildDSN(DriverSnowflake, config.Settings{})
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	_, err = BuildDSN("oracle", config.Settings{})
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestQuoteIdentifier(t *testing.T) {
	assert.Equal(t, "`trial`.`visits`", QuoteIdentifier(DriverMySQL, "trial.visits"))
	assert.Equal(t, `"VISITS"`, QuoteIdentifier(DriverSnowflake, "VISITS"))
	assert.Equal(t, `"a""b"`, QuoteIdentifier(DriverSnowflake, `a"b`))
}

func TestValue(t *testing.T) {
	assert.Equal(t, int64(42), Value([]byte("42"), "BIGINT"))
	assert.Equal(t, 1.5, Value("1.50", "FIXED"))
	assert.Equal(t, 2.25, Value([]byte("2.25"), "DECIMAL"))
	assert.Equal(t, true, Value("true", "BOOLEAN"))
	assert.Equal(t, "abc", Value([]byte("abc"), "VARCHAR"))
	assert.Equal(t, "n/a", Value("n/a", "INT"))
	assert.Nil(t, Value(nil, "INT"))
	assert.Equal(t, int64(7), Value(int64(7), ""))
}

type fakeRows struct {
	columns []string
	data    [][]any
	pos     int
	err     error
}

func (f *fakeRows) Columns() ([]string, error)              { return f.columns, nil }
func (f *fakeRows) ColumnTypes() ([]*sql.ColumnType, error) { return nil, stderrors.New("unsupported") }
func (f *fakeRows) Err() error                              { return f.err }

func (f *fakeRows) Next() bool {
	if f.pos >= len(f.data) {
		return false
	}
	f.pos++
	return true
}

func (f *fakeRows) Scan(dest ...any) error {
	for i, v := range f.data[f.pos-1] {
		*dest[i].(*any) = v
	}
	return nil
}

func TestScanRows(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.FixedZone("x", 3600))
	rows := &fakeRows{
		columns: []string{"id", "name", "seen"},
		data: [][]any{
			{int64(1), []byte("a"), at},
			{int64(2), nil, nil},
		},
	}
	tbl, err := ScanRows(rows, "people")
	require.NoError(t, err)
	assert.Equal(t, "people", tbl.Name())
	assert.Equal(t, map[string]any{"id": int64(1), "name": "a", "seen": at.UTC()}, tbl.Record(0))
	assert.Equal(t, map[string]any{"id": int64(2), "name": nil, "seen": nil}, tbl.Record(1))

	_, err = ScanRows(&fakeRows{columns: []string{"a"}, err: stderrors.New("boom")}, "x")
	assert.True(t, errors.IsType(err, errors.ErrorTypeQuery))
}

func TestNewSQLSourceRequiresQuery(t *testing.T) {
	cfg := config.NewConfig("run")
	cfg.Source.Settings["dsn"] = "u:p@tcp(localhost:3306)/db"
	_, err := NewSQLSource(cfg)
	assert.Error(t, err)

	cfg.Source.Settings["table"] = "visits"
	src, err := NewSQLSource(cfg)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM `visits`", src.(*SQLSource).query)
}
