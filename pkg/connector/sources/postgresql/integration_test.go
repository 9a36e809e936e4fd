package postgresql

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/ajitpratap0/concord/pkg/config"
	"github.com/ajitpratap0/concord/pkg/consistency"
	"github.com/ajitpratap0/concord/pkg/testutil"
)

const urlEnv = "CONCORD_TEST_POSTGRES_URL"

type PostgreSQLIntegrationSuite struct {
	testutil.IntegrationSuite
	url string
}

func TestPostgreSQLIntegration(t *testing.T) {
	env := testutil.RequireEnv(t, urlEnv)
	suite.Run(t, &PostgreSQLIntegrationSuite{url: env[urlEnv]})
}

func (s *PostgreSQLIntegrationSuite) config(query string) *config.Config {
	cfg := config.NewConfig("integration")
	cfg.Source.Type = "postgresql"
	cfg.Source.Settings["connection_string"] = s.url
	cfg.Source.Settings["query"] = query
	cfg.Source.Settings["table_name"] = "visits"
	return cfg
}

func (s *PostgreSQLIntegrationSuite) TestReadAndCheck() {
	ctx := s.Context()
	src, err := NewPostgreSQLSource(s.config(`
		select * from (values
			(1::bigint, 'A', 10.5::numeric),
			(1::bigint, 'B', 10.5::numeric),
			(2::bigint, 'C', null)
		) as v(id, site, dose)`))
	s.Require().NoError(err)
	s.Require().NoError(src.Open(ctx))
	defer src.Close(ctx)

	tbl, err := src.Read(ctx)
	s.Require().NoError(err)
	s.Equal("visits", tbl.Name())
	s.Equal([]string{"id", "site", "dose"}, tbl.Columns())
	s.Equal(3, tbl.NumRows())

	keys, values, err := tbl.Pair("id", "site")
	s.Require().NoError(err)
	bad, err := consistency.FindInconsistentKeys(keys, values)
	s.Require().NoError(err)
	s.Equal([]any{int64(1)}, bad.Members())

	doses, err := tbl.Column("dose")
	s.Require().NoError(err)
	s.Equal([]any{10.5, 10.5, nil}, doses)
}

func (s *PostgreSQLIntegrationSuite) TestQueryError() {
	ctx := s.Context()
	src, err := NewPostgreSQLSource(s.config("select * from concord_missing_table"))
	s.Require().NoError(err)
	s.Require().NoError(src.Open(ctx))
	defer src.Close(ctx)

	_, err = src.Read(ctx)
	s.Error(err)
}
