// Package mongodb reads a collection snapshot with a Find query.
package mongodb

import (
	"context"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/ajitpratap0/concord/pkg/config"
	"github.com/ajitpratap0/concord/pkg/connector/base"
	"github.com/ajitpratap0/concord/pkg/connector/core"
	"github.com/ajitpratap0/concord/pkg/errors"
	"github.com/ajitpratap0/concord/pkg/table"
)

// MongoDBSource reads the documents of one collection. Nested documents
// are flattened into dotted columns.
type MongoDBSource struct {
	*base.BaseSource

	uri        string
	database   string
	collection string
	filter     bson.D
	projection bson.D
	limit      int64

	client *mongo.Client
}

// NewMongoDBSource creates a MongoDB source.
func NewMongoDBSource(cfg *config.Config) (core.Source, error) {
	s := &MongoDBSource{BaseSource: base.NewBaseSource("mongodb", cfg)}
	settings := s.Settings()

	var err error
	if s.uri, err = settings.Require("connection_string"); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid mongodb settings")
	}
	if s.database, err = settings.Require("database"); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid mongodb settings")
	}
	if s.collection, err = settings.Require("collection"); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid mongodb settings")
	}

	s.filter = bson.D{}
	if f := settings.String("filter", ""); f != "" {
		if err := bson.UnmarshalExtJSON([]byte(f), false, &s.filter); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "filter must be a JSON document")
		}
	}
	s.projection = Projection(settings.Strings("fields"))
	s.limit = int64(settings.Int("limit", 0))
	return s, nil
}

// Projection includes only fields. An empty list selects whole documents.
func Projection(fields []string) bson.D {
	if len(fields) == 0 {
		return nil
	}
	p := make(bson.D, 0, len(fields)+1)
	hasID := false
	for _, f := range fields {
		p = append(p, bson.E{Key: f, Value: 1})
		hasID = hasID || f == "_id"
	}
	if !hasID {
		p = append(p, bson.E{Key: "_id", Value: 0})
	}
	return p
}

// Open connects and pings the primary.
func (s *MongoDBSource) Open(ctx context.Context) error {
	opts := options.Client().ApplyURI(s.uri)
	if d := s.Config().Timeouts.Connection; d > 0 {
		opts.SetConnectTimeout(d).SetServerSelectionTimeout(d)
	}

	err := s.RetryPolicy().Execute(ctx, "mongodb.connect", func(ctx context.Context) error {
		client, err := mongo.Connect(ctx, opts)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeConnection, "failed to connect to mongodb")
		}
		if err := client.Ping(ctx, nil); err != nil {
			_ = client.Disconnect(ctx)
			return errors.Wrap(err, errors.ErrorTypeConnection, "failed to ping mongodb")
		}
		s.client = client
		return nil
	}, nil)
	if err != nil {
		return err
	}
	s.GetLogger().Info("mongodb source opened",
		zap.String("database", s.database),
		zap.String("collection", s.collection))
	return s.MarkOpen()
}

// Read runs the find query.
func (s *MongoDBSource) Read(ctx context.Context) (*table.Table, error) {
	if err := s.EnsureOpen(); err != nil {
		return nil, err
	}
	start := time.Now()

	var t *table.Table
	err := s.Tracer().Trace(ctx, "find", func(ctx context.Context) error {
		ctx, cancel := s.WithTimeout(ctx)
		defer cancel()

		opts := options.Find()
		if s.projection != nil {
			opts.SetProjection(s.projection)
		}
		if s.limit > 0 {
			opts.SetLimit(s.limit)
		}
		cursor, err := s.client.Database(s.database).Collection(s.collection).Find(ctx, s.filter, opts)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeQuery, "find failed").
				WithDetail("collection", s.collection)
		}
		defer cursor.Close(ctx)

		b := table.NewBuilder(s.TableName(s.collection))
		for cursor.Next(ctx) {
			var doc bson.M
			if err := cursor.Decode(&doc); err != nil {
				return errors.Wrap(err, errors.ErrorTypeData, "failed to decode document")
			}
			b.Append(Document(doc))
		}
		if err := cursor.Err(); err != nil {
			return errors.Wrap(err, errors.ErrorTypeQuery, "cursor failed")
		}
		t = b.Build()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Finish(t, start), nil
}

// Document converts a decoded document into a flat record.
func Document(doc bson.M) map[string]any {
	return table.Flatten(convert(doc).(map[string]any))
}

func convert(v any) any {
	switch t := v.(type) {
	case bson.M:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = convert(e)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = convert(e.Value)
		}
		return out
	case bson.A:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = convert(e)
		}
		return out
	case primitive.ObjectID:
		return t.Hex()
	case primitive.DateTime:
		return t.Time().UTC()
	case primitive.Timestamp:
		return time.Unix(int64(t.T), 0).UTC()
	case primitive.Decimal128:
		if f, err := strconv.ParseFloat(t.String(), 64); err == nil {
			return f
		}
		return t.String()
	case primitive.Binary:
		return t.Data
	case primitive.Null, primitive.Undefined:
		return nil
	default:
		return v
	}
}

// Close disconnects the client.
func (s *MongoDBSource) Close(ctx context.Context) error {
	s.MarkClosed()
	if s.client == nil {
		return nil
	}
	err := s.client.Disconnect(ctx)
	s.client = nil
	return err
}
