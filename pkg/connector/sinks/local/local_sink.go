// Package local stores objects under a directory on the local filesystem.
package local

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/ajitpratap0/concord/pkg/config"
	"github.com/ajitpratap0/concord/pkg/connector/base"
	"github.com/ajitpratap0/concord/pkg/connector/core"
	"github.com/ajitpratap0/concord/pkg/errors"
)

// LocalSink writes each object to a temporary file and renames it into
// place, so readers never observe a partial file.
type LocalSink struct {
	*base.BaseSink

	root string
}

// NewLocalSink creates a sink rooted at sink.directory.
func NewLocalSink(cfg *config.Config) (core.Sink, error) {
	bs := base.NewBaseSink("local", cfg)
	root := bs.SinkConfig().Directory
	if root == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid sink directory")
	}
	return &LocalSink{BaseSink: bs, root: abs}, nil
}

// Put stores r at root/key and returns the absolute file path.
func (s *LocalSink) Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	return s.Upload(ctx, key, r, func(ctx context.Context, r io.Reader) (string, error) {
		path := filepath.Join(s.root, filepath.FromSlash(key))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", errors.Wrap(err, errors.ErrorTypeFile, "failed to create directory")
		}
		tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
		if err != nil {
			return "", errors.Wrap(err, errors.ErrorTypeFile, "failed to create temporary file")
		}
		defer os.Remove(tmp.Name())

		if _, err := io.Copy(tmp, contextReader{ctx: ctx, r: r}); err != nil {
			_ = tmp.Close()
			return "", errors.Wrap(err, errors.ErrorTypeFile, "failed to write object").WithDetail("path", path)
		}
		if err := tmp.Sync(); err != nil {
			_ = tmp.Close()
			return "", errors.Wrap(err, errors.ErrorTypeFile, "failed to sync object")
		}
		if err := tmp.Close(); err != nil {
			return "", errors.Wrap(err, errors.ErrorTypeFile, "failed to close object")
		}
		if err := os.Rename(tmp.Name(), path); err != nil {
			return "", errors.Wrap(err, errors.ErrorTypeFile, "failed to move object into place")
		}
		return path, nil
	})
}

// contextReader stops a copy once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// Close is a no-op.
func (s *LocalSink) Close(ctx context.Context) error {
	return nil
}
