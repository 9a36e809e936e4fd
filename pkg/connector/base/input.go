package base

import (
	"context"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/ajitpratap0/concord/pkg/compression"
	"github.com/ajitpratap0/concord/pkg/errors"
	"github.com/ajitpratap0/concord/pkg/logger"
	"github.com/ajitpratap0/concord/pkg/mmap"
)

// Input is an opened, decompressed input stream.
type Input struct {
	io.Reader
	// Location is the path or URL that was opened
	Location string
	// Name is the location with any compression suffix removed
	Name string

	closers []io.Closer
}

// Close closes the decompressor and the underlying stream.
func (in *Input) Close() error {
	var first error
	for i := len(in.closers) - 1; i >= 0; i-- {
		if err := in.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// IsURL reports whether location is fetched over HTTP.
func IsURL(location string) bool {
	l := strings.ToLower(location)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

func inputError(err error, path string) error {
	errType := errors.ErrorTypeFile
	if os.IsNotExist(err) {
		errType = errors.ErrorTypeNotFound
	}
	return errors.Wrap(err, errType, "failed to open input").WithDetail("path", path)
}

// OpenInput opens the "path" or "url" setting. The compression codec is
// taken from the "compression" setting or, when unset, from the file suffix.
// Uncompressed local files are memory-mapped unless the "mmap" setting is
// false, so the returned Reader also supports ReadAt and Seek.
func (bs *BaseSource) OpenInput(ctx context.Context) (*Input, error) {
	location := bs.Settings().String("url", "")
	if location == "" {
		location = bs.Settings().String("path", "")
	}
	if location == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "either path or url setting is required").
			WithDetail("connector", bs.name)
	}

	algo, name := compression.FromPath(location)
	if c := bs.Settings().String("compression", ""); c != "" {
		parsed, err := compression.ParseAlgorithm(c)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid compression setting")
		}
		algo = parsed
	}

	in := &Input{Location: location, Name: name}

	var raw io.ReadCloser
	if IsURL(location) {
		client := bs.HTTPClient()
		body, err := client.Fetch(ctx, location, nil)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		raw = body
		in.closers = append(in.closers, client)
	} else if algo == compression.None && bs.Settings().Bool("mmap", true) {
		f, err := mmap.Open(location)
		if err != nil {
			return nil, inputError(err, location)
		}
		in.Reader = f
		in.closers = append(in.closers, f)
		logger.FromContext(ctx, bs.logger).Debug("input mapped",
			zap.String("location", location),
			zap.Bool("mapped", f.Mapped()),
			zap.Int64("bytes", f.Size()))
		return in, nil
	} else {
		f, err := os.Open(location)
		if err != nil {
			return nil, inputError(err, location)
		}
		raw = f
	}
	in.closers = append(in.closers, raw)

	comp, err := compression.NewCompressor(&compression.Config{Algorithm: algo})
	if err != nil {
		_ = in.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "unsupported input compression")
	}
	r, err := comp.NewReader(raw)
	if err != nil {
		_ = in.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to open decompressor").
			WithDetail("compression", string(algo))
	}
	in.closers = append(in.closers, r)
	in.Reader = r

	logger.FromContext(ctx, bs.logger).Debug("input opened",
		zap.String("location", location),
		zap.String("compression", string(algo)))
	return in, nil
}
