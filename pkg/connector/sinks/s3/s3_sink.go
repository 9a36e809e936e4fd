// Package s3 stores objects in an Amazon S3 bucket or an S3 compatible store.
package s3

import (
	"context"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/ajitpratap0/concord/pkg/config"
	"github.com/ajitpratap0/concord/pkg/connector/base"
	"github.com/ajitpratap0/concord/pkg/connector/core"
	"github.com/ajitpratap0/concord/pkg/errors"
)

const defaultRegion = "us-east-1"

// S3Sink uploads objects with the multipart-capable upload manager.
type S3Sink struct {
	*base.BaseSink

	bucket   string
	region   string
	endpoint string

	mu       sync.Mutex
	uploader *manager.Uploader
}

// NewS3Sink creates an S3 sink. Credentials come from the default AWS
// chain: environment, shared config files or instance roles.
func NewS3Sink(cfg *config.Config) (core.Sink, error) {
	bs := base.NewBaseSink("s3", cfg)
	sc := bs.SinkConfig()
	if sc.Bucket == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "sink.bucket is required for s3")
	}
	region := sc.Region
	if region == "" {
		region = defaultRegion
	}
	return &S3Sink{BaseSink: bs, bucket: sc.Bucket, region: region, endpoint: sc.Endpoint}, nil
}

func (s *S3Sink) client(ctx context.Context) (*manager.Uploader, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.uploader != nil {
		return s.uploader, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(s.region))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to load AWS configuration")
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if s.endpoint != "" {
			o.BaseEndpoint = aws.String(s.endpoint)
			o.UsePathStyle = true
			o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		}
	})
	s.uploader = manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = manager.DefaultUploadPartSize
		u.Concurrency = manager.DefaultUploadConcurrency
	})
	s.GetLogger().Debug("s3 client created",
		zap.String("region", s.region),
		zap.String("endpoint", s.endpoint))
	return s.uploader, nil
}

// Put uploads r to bucket/key and returns its s3:// URL.
func (s *S3Sink) Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	return s.Upload(ctx, key, r, func(ctx context.Context, r io.Reader) (string, error) {
		uploader, err := s.client(ctx)
		if err != nil {
			return "", err
		}
		input := &s3.PutObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
			Body:   r,
		}
		if contentType != "" {
			input.ContentType = aws.String(contentType)
		}
		if _, err := uploader.Upload(ctx, input); err != nil {
			return "", errors.Wrap(err, errors.ErrorTypeConnection, "failed to upload to S3").
				WithDetail("bucket", s.bucket).
				WithDetail("key", key)
		}
		return URL(s.bucket, key), nil
	})
}

// URL returns the s3:// location of key in bucket.
func URL(bucket, key string) string {
	return "s3://" + bucket + "/" + key
}

// Close is a no-op; the SDK client holds no open resources.
func (s *S3Sink) Close(ctx context.Context) error {
	return nil
}
