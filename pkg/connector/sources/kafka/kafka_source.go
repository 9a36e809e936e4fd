// Package kafka reads a bounded snapshot of a topic. Every partition is
// consumed from its oldest offset up to the high-water mark captured at
// Open, so the read terminates even while producers keep writing. Offsets
// that are never delivered, such as transaction markers at the tail of a
// partition, end the read once the partition has been idle for the idle
// timeout.
package kafka

import (
	"bytes"
	"context"
	"crypto/tls"
	"sort"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/concord/pkg/config"
	"github.com/ajitpratap0/concord/pkg/connector/base"
	"github.com/ajitpratap0/concord/pkg/connector/core"
	"github.com/ajitpratap0/concord/pkg/errors"
	"github.com/ajitpratap0/concord/pkg/json"
	"github.com/ajitpratap0/concord/pkg/logger"
	"github.com/ajitpratap0/concord/pkg/table"
)

// Metadata columns added when include_metadata is set.
const (
	ColumnPartition = "_partition"
	ColumnOffset    = "_offset"
	ColumnKey       = "_key"
	ColumnTimestamp = "_timestamp"
)

// DefaultIdleTimeout is how long a partition may deliver nothing before its
// read is checked for completion.
// It must exceed Consumer.MaxWaitTime.
const DefaultIdleTimeout = time.Second

// PartitionRange is the half-open offset range [Oldest, Newest) of one
// partition.
type PartitionRange struct {
	Partition int32
	Oldest    int64
	Newest    int64
}

// Empty reports whether the range holds no messages.
func (r PartitionRange) Empty() bool {
	return r.Newest <= r.Oldest
}

// KafkaSource reads JSON messages of one topic.
type KafkaSource struct {
	*base.BaseSource

	brokers  []string
	topic    string
	metadata bool
	flatten  bool
	idle     time.Duration

	client sarama.Client
	ranges []PartitionRange
}

// NewKafkaSource creates a Kafka source.
func NewKafkaSource(cfg *config.Config) (core.Source, error) {
	s := &KafkaSource{BaseSource: base.NewBaseSource("kafka", cfg)}
	settings := s.Settings()

	s.brokers = settings.Strings("brokers")
	if len(s.brokers) == 0 {
		return nil, errors.New(errors.ErrorTypeConfig, "brokers setting is required")
	}
	var err error
	if s.topic, err = settings.Require("topic"); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid kafka settings")
	}
	s.metadata = settings.Bool("include_metadata", false)
	s.flatten = settings.Bool("flatten", false)
	s.idle = settings.Duration("idle_timeout", DefaultIdleTimeout)
	if s.idle <= 0 {
		return nil, errors.New(errors.ErrorTypeConfig, "idle_timeout must be positive")
	}
	return s, nil
}

// SaramaConfig builds the client configuration from the connector settings.
func SaramaConfig(settings config.Settings, timeout time.Duration) (*sarama.Config, error) {
	cfg := sarama.NewConfig()
	cfg.ClientID = "concord"
	cfg.Consumer.Return.Errors = true
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	if timeout > 0 {
		cfg.Net.DialTimeout = timeout
	}
	if v := settings.String("version", ""); v != "" {
		version, err := sarama.ParseKafkaVersion(v)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid kafka version")
		}
		cfg.Version = version
	}

	if settings.Bool("tls", false) {
		cfg.Net.TLS.Enable = true
		cfg.Net.TLS.Config = &tls.Config{
			InsecureSkipVerify: settings.Bool("insecure_skip_verify", false), //nolint:gosec
		}
	}

	if mechanism := strings.ToUpper(settings.String("sasl_mechanism", "")); mechanism != "" {
		cfg.Net.SASL.Enable = true
		cfg.Net.SASL.User = settings.String("sasl_username", "")
		cfg.Net.SASL.Password = settings.String("sasl_password", "")

		switch mechanism {
		case "PLAIN":
			cfg.Net.SASL.Mechanism = sarama.SASLTypePlaintext
		case "SCRAM-SHA-256":
			cfg.Net.SASL.Mechanism = sarama.SASLTypeSCRAMSHA256
		case "SCRAM-SHA-512":
			cfg.Net.SASL.Mechanism = sarama.SASLTypeSCRAMSHA512
		default:
			return nil, errors.Newf(errors.ErrorTypeConfig, "unsupported sasl mechanism %q", mechanism)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid kafka configuration")
	}
	return cfg, nil
}

// Open connects and captures the offset range of every partition.
func (s *KafkaSource) Open(ctx context.Context) error {
	cfg, err := SaramaConfig(s.Settings(), s.Config().Timeouts.Connection)
	if err != nil {
		return err
	}

	err = s.RetryPolicy().Execute(ctx, "kafka.connect", func(ctx context.Context) error {
		client, err := sarama.NewClient(s.brokers, cfg)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeConnection, "failed to connect to kafka")
		}
		s.client = client
		return nil
	}, nil)
	if err != nil {
		return err
	}

	s.ranges, err = Ranges(s.client, s.topic)
	if err != nil {
		_ = s.client.Close()
		s.client = nil
		return err
	}
	s.GetLogger().Info("kafka source opened",
		zap.String("topic", s.topic),
		zap.Int("partitions", len(s.ranges)),
		zap.Int64("messages", Total(s.ranges)))
	return s.MarkOpen()
}

// OffsetClient is the part of sarama.Client used to find offset ranges.
type OffsetClient interface {
	Partitions(topic string) ([]int32, error)
	GetOffset(topic string, partition int32, time int64) (int64, error)
}

// Ranges returns the current offset range of every partition of topic in
// partition order.
func Ranges(client OffsetClient, topic string) ([]PartitionRange, error) {
	partitions, err := client.Partitions(topic)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeNotFound, "failed to list partitions").
			WithDetail("topic", topic)
	}
	sort.Slice(partitions, func(i, j int) bool { return partitions[i] < partitions[j] })

	ranges := make([]PartitionRange, 0, len(partitions))
	for _, p := range partitions {
		oldest, err := client.GetOffset(topic, p, sarama.OffsetOldest)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to get oldest offset").
				WithDetail("partition", p)
		}
		newest, err := client.GetOffset(topic, p, sarama.OffsetNewest)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to get newest offset").
				WithDetail("partition", p)
		}
		ranges = append(ranges, PartitionRange{Partition: p, Oldest: oldest, Newest: newest})
	}
	return ranges, nil
}

// Total returns the number of messages covered by ranges.
func Total(ranges []PartitionRange) int64 {
	var n int64
	for _, r := range ranges {
		if !r.Empty() {
			n += r.Newest - r.Oldest
		}
	}
	return n
}

// Read consumes every partition concurrently and returns the messages in
// partition then offset order.
func (s *KafkaSource) Read(ctx context.Context) (*table.Table, error) {
	if err := s.EnsureOpen(); err != nil {
		return nil, err
	}
	start := time.Now()

	var t *table.Table
	err := s.Tracer().Trace(ctx, "consume", func(ctx context.Context) error {
		ctx, cancel := s.WithTimeout(ctx)
		defer cancel()

		consumer, err := sarama.NewConsumerFromClient(s.client)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeConnection, "failed to create consumer")
		}
		defer consumer.Close()

		t, err = Snapshot(ctx, consumer, s.topic, s.ranges, s.TableName(s.topic), s.idle, s.decode)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.Finish(t, start), nil
}

// Snapshot reads ranges from consumer and builds a table from the decoded
// records. decode returns nil to skip a message. A partition that delivers
// nothing for idle is finished once Caught reports so.
func Snapshot(ctx context.Context, consumer sarama.Consumer, topic string, ranges []PartitionRange, name string,
	idle time.Duration, decode func(*sarama.ConsumerMessage) (map[string]any, error)) (*table.Table, error) {
	results := make([][]map[string]any, len(ranges))
	g, ctx := errgroup.WithContext(ctx)
	for i, r := range ranges {
		if r.Empty() {
			continue
		}
		g.Go(func() error {
			return consumeRange(ctx, consumer, topic, r, idle, func(msg *sarama.ConsumerMessage) error {
				rec, err := decode(msg)
				if err != nil {
					return errors.Wrap(err, errors.ErrorTypeData, "failed to decode message").
						WithDetail("partition", msg.Partition).
						WithDetail("offset", msg.Offset)
				}
				if rec != nil {
					results[i] = append(results[i], rec)
				}
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	b := table.NewBuilder(name)
	for _, recs := range results {
		for _, rec := range recs {
			b.Append(rec)
		}
	}
	return b.Build(), nil
}

// Caught reports whether a partition read of r is complete when next is the
// offset after the last delivered message and hwm is the high-water mark the
// broker last reported. Once the broker reports r.Newest, anything still
// missing is not deliverable. Otherwise a read that delivered messages and
// reached the reported mark is complete.
func Caught(r PartitionRange, next, hwm int64) bool {
	if next >= r.Newest || hwm >= r.Newest {
		return true
	}
	return next > r.Oldest && next >= hwm
}

func consumeRange(ctx context.Context, consumer sarama.Consumer, topic string, r PartitionRange,
	idle time.Duration, fn func(*sarama.ConsumerMessage) error) error {
	pc, err := consumer.ConsumePartition(topic, r.Partition, r.Oldest)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to consume partition").
			WithDetail("partition", r.Partition)
	}
	defer pc.Close()

	next := r.Oldest
	idleTimer := time.NewTimer(idle)
	defer idleTimer.Stop()

	errs := pc.Errors()
	for {
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), errors.ErrorTypeTimeout, "snapshot interrupted").
				WithDetail("partition", r.Partition)
		case cerr, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			return errors.Wrap(cerr, errors.ErrorTypeConnection, "consumer error")
		case msg, ok := <-pc.Messages():
			if !ok {
				return errors.New(errors.ErrorTypeConnection, "partition consumer closed early").
					WithDetail("partition", r.Partition)
			}
			if err := fn(msg); err != nil {
				return err
			}
			next = msg.Offset + 1
			if next >= r.Newest {
				return nil
			}
			idleTimer.Reset(idle)
		case <-idleTimer.C:
			hwm := pc.HighWaterMarkOffset()
			if len(pc.Messages()) == 0 && Caught(r, next, hwm) {
				logger.FromContext(ctx, nil).Debug("partition idle, range complete",
					zap.Int32("partition", r.Partition),
					zap.Int64("next_offset", next),
					zap.Int64("high_water_mark", hwm),
					zap.Int64("newest", r.Newest))
				return nil
			}
			idleTimer.Reset(idle)
		}
	}
}

func (s *KafkaSource) decode(msg *sarama.ConsumerMessage) (map[string]any, error) {
	return DecodeMessage(msg, s.metadata, s.flatten)
}

// DecodeMessage parses a JSON object message. Tombstones decode to nil.
func DecodeMessage(msg *sarama.ConsumerMessage, metadata, flatten bool) (map[string]any, error) {
	if len(bytes.TrimSpace(msg.Value)) == 0 {
		return nil, nil
	}
	var rec map[string]any
	if err := json.NewDecoder(bytes.NewReader(msg.Value)).Decode(&rec); err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, errors.New(errors.ErrorTypeData, "message is not a json object")
	}
	if flatten {
		rec = table.Flatten(rec)
	}
	if metadata {
		rec[ColumnPartition] = msg.Partition
		rec[ColumnOffset] = msg.Offset
		rec[ColumnTimestamp] = msg.Timestamp
		if msg.Key != nil {
			rec[ColumnKey] = string(msg.Key)
		} else {
			rec[ColumnKey] = nil
		}
	}
	return rec, nil
}

// Close closes the client.
func (s *KafkaSource) Close(ctx context.Context) error {
	s.MarkClosed()
	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	return err
}
