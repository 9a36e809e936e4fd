// Package gcs stores objects in a Google Cloud Storage bucket.
package gcs

import (
	"context"
	"io"
	"sync"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/ajitpratap0/concord/pkg/clients"
	"github.com/ajitpratap0/concord/pkg/config"
	"github.com/ajitpratap0/concord/pkg/connector/base"
	"github.com/ajitpratap0/concord/pkg/connector/core"
	"github.com/ajitpratap0/concord/pkg/errors"
)

// GCSSink writes objects with the storage client's streaming writer.
type GCSSink struct {
	*base.BaseSink

	bucket          string
	credentialsFile string
	endpoint        string

	mu     sync.Mutex
	client *storage.Client
}

// NewGCSSink creates a GCS sink. An access token in
// GOOGLE_OAUTH_ACCESS_TOKEN wins over the credentials file, and without
// either the client falls back to application default credentials.
func NewGCSSink(cfg *config.Config) (core.Sink, error) {
	bs := base.NewBaseSink("gcs", cfg)
	sc := bs.SinkConfig()
	if sc.Bucket == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "sink.bucket is required for gcs")
	}
	return &GCSSink{
		BaseSink:        bs,
		bucket:          sc.Bucket,
		credentialsFile: sc.CredentialsFile,
		endpoint:        sc.Endpoint,
	}, nil
}

// ClientOptions returns the options used to build the storage client.
func (s *GCSSink) ClientOptions() []option.ClientOption {
	return clients.GoogleAuthFromEnv(clients.GoogleAuth{
		CredentialsFile: s.credentialsFile,
		Endpoint:        s.endpoint,
	}).Options()
}

func (s *GCSSink) storageClient(ctx context.Context) (*storage.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return s.client, nil
	}
	client, err := storage.NewClient(ctx, s.ClientOptions()...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to create GCS client")
	}
	s.client = client
	s.GetLogger().Debug("gcs client created", zap.String("bucket", s.bucket))
	return client, nil
}

// Put streams r to bucket/key and returns its gs:// URL.
func (s *GCSSink) Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	return s.Upload(ctx, key, r, func(ctx context.Context, r io.Reader) (string, error) {
		client, err := s.storageClient(ctx)
		if err != nil {
			return "", err
		}
		w := client.Bucket(s.bucket).Object(key).NewWriter(ctx)
		if contentType != "" {
			w.ContentType = contentType
		}
		if _, err := io.Copy(w, r); err != nil {
			_ = w.Close()
			return "", errors.Wrap(err, errors.ErrorTypeConnection, "failed to write GCS object").
				WithDetail("bucket", s.bucket).
				WithDetail("key", key)
		}
		if err := w.Close(); err != nil {
			return "", errors.Wrap(err, errors.ErrorTypeConnection, "failed to finalize GCS object").
				WithDetail("bucket", s.bucket).
				WithDetail("key", key)
		}
		return URL(s.bucket, key), nil
	})
}

// URL returns the gs:// location of key in bucket.
func URL(bucket, key string) string {
	return "gs://" + bucket + "/" + key
}

// Close releases the storage client.
func (s *GCSSink) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	return err
}
