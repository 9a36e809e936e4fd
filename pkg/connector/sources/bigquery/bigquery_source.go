// Package bigquery reads the result of a BigQuery SQL query.
package bigquery

import (
	"context"
	stderrors "errors"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"

	"github.com/ajitpratap0/concord/pkg/clients"
	"github.com/ajitpratap0/concord/pkg/config"
	"github.com/ajitpratap0/concord/pkg/connector/base"
	"github.com/ajitpratap0/concord/pkg/connector/core"
	"github.com/ajitpratap0/concord/pkg/errors"
	"github.com/ajitpratap0/concord/pkg/table"
)

// BigQuerySource runs one query job and reads every result row.
type BigQuerySource struct {
	*base.BaseSource

	projectID string
	query     string
	location  string
	auth      clients.GoogleAuth

	client *bigquery.Client
}

// NewBigQuerySource creates a BigQuery source.
func NewBigQuerySource(cfg *config.Config) (core.Source, error) {
	s := &BigQuerySource{BaseSource: base.NewBaseSource("bigquery", cfg)}
	settings := s.Settings()

	var err error
	if s.projectID, err = settings.Require("project_id"); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid bigquery settings")
	}
	s.query = settings.String("query", "")
	if s.query == "" {
		tableName := settings.String("table", "")
		if tableName == "" {
			return nil, errors.New(errors.ErrorTypeConfig, "either table or query setting is required")
		}
		s.query = "SELECT * FROM `" + tableName + "`"
	}
	s.location = settings.String("location", "")
	s.auth = clients.GoogleAuthFromEnv(clients.GoogleAuth{
		CredentialsFile: settings.String("credentials_file", ""),
		AccessToken:     settings.String("access_token", ""),
		Endpoint:        settings.String("endpoint", ""),
	})
	return s, nil
}

// Open creates the client.
func (s *BigQuerySource) Open(ctx context.Context) error {
	client, err := bigquery.NewClient(ctx, s.projectID, s.auth.Options()...)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to create BigQuery client")
	}
	if s.location != "" {
		client.Location = s.location
	}
	s.client = client
	s.GetLogger().Info("bigquery source opened", zap.String("project", s.projectID))
	return s.MarkOpen()
}

// Read runs the query job and drains its iterator.
func (s *BigQuerySource) Read(ctx context.Context) (*table.Table, error) {
	if err := s.EnsureOpen(); err != nil {
		return nil, err
	}
	start := time.Now()

	var t *table.Table
	err := s.Tracer().Trace(ctx, "query", func(ctx context.Context) error {
		ctx, cancel := s.WithTimeout(ctx)
		defer cancel()

		var it *bigquery.RowIterator
		err := s.RetryPolicy().Execute(ctx, "bigquery.query", func(ctx context.Context) error {
			var err error
			it, err = s.client.Query(s.query).Read(ctx)
			if err != nil {
				return errors.Wrap(err, classify(err), "failed to run query")
			}
			return nil
		}, nil)
		if err != nil {
			return err
		}

		t, err = readRows(it, s.TableName(s.Settings().String("table", "")))
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.Finish(t, start), nil
}

// classify marks server-side and rate limit failures as retryable.
func classify(err error) errors.ErrorType {
	var apiErr *googleapi.Error
	if stderrors.As(err, &apiErr) && (apiErr.Code >= 500 || apiErr.Code == 429) {
		return errors.ErrorTypeConnection
	}
	return errors.ErrorTypeQuery
}

func readRows(it *bigquery.RowIterator, name string) (*table.Table, error) {
	var b *table.Builder
	for {
		var row []bigquery.Value
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to read row")
		}
		if b == nil {
			b = table.NewBuilder(name, columnNames(it.Schema)...)
		}
		values := make([]any, len(row))
		for i, v := range row {
			values[i] = Value(v)
		}
		if err := b.AppendValues(values...); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to append row")
		}
	}
	if b == nil {
		b = table.NewBuilder(name, columnNames(it.Schema)...)
	}
	return b.Build(), nil
}

func columnNames(schema bigquery.Schema) []string {
	names := make([]string, len(schema))
	for i, f := range schema {
		names[i] = f.Name
	}
	return names
}

// Value converts BigQuery values with no direct cell type. NUMERIC and
// BIGNUMERIC become float64, records become maps and repeated fields lists.
func Value(v bigquery.Value) any {
	switch t := v.(type) {
	case *big.Rat:
		if t == nil {
			return nil
		}
		if t.IsInt() && t.Num().IsInt64() {
			return t.Num().Int64()
		}
		f, _ := t.Float64()
		return f
	case []bigquery.Value:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Value(e)
		}
		return out
	case map[string]bigquery.Value:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = Value(e)
		}
		return out
	default:
		return v
	}
}

// Close closes the client.
func (s *BigQuerySource) Close(ctx context.Context) error {
	s.MarkClosed()
	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	return err
}
