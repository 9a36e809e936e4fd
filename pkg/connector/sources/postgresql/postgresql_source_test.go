package postgresql

import (
	"math/big"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/concord/pkg/config"
	"github.com/ajitpratap0/concord/pkg/errors"
)

func TestBuildQuery(t *testing.T) {
	q, err := BuildQuery("SELECT 1", "ignored", nil)
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", q)

	q, err = BuildQuery("", "clinical.visits", []string{"subject id", "dose"})
	require.NoError(t, err)
	assert.Equal(t, `SELECT "subject id", "dose" FROM "clinical"."visits"`, q)

	q, err = BuildQuery("", "visits", nil)
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "visits"`, q)

	_, err = BuildQuery("", "", nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestValue(t *testing.T) {
	assert.Equal(t, int64(1200), Value(pgtype.Numeric{Int: big.NewInt(12), Exp: 2, Valid: true}))
	assert.Equal(t, 1.25, Value(pgtype.Numeric{Int: big.NewInt(125), Exp: -2, Valid: true}))
	assert.Nil(t, Value(pgtype.Numeric{}))
	assert.Nil(t, Value(pgtype.Numeric{NaN: true, Valid: true}))
	assert.Equal(t, "00000000-0000-0000-0000-000000000001",
		Value([16]byte{15: 1}))
	assert.Equal(t, "x", Value("x"))
}

func TestNewSourceSettings(t *testing.T) {
	cfg := config.NewConfig("run")
	_, err := NewPostgreSQLSource(cfg)
	assert.Error(t, err)

	cfg.Source.Settings["connection_string"] = "postgres://localhost/db"
	_, err = NewPostgreSQLSource(cfg)
	assert.Error(t, err)

	cfg.Source.Settings["table"] = "visits"
	src, err := NewPostgreSQLSource(cfg)
	require.NoError(t, err)
	assert.Equal(t, "postgresql", src.Name())
}
