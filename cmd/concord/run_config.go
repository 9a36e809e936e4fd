package main

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ajitpratap0/concord/pkg/config"
	"github.com/ajitpratap0/concord/pkg/connector/base"
	"github.com/ajitpratap0/concord/pkg/errors"
)

// binding ties a configuration key to a command flag.
type binding struct {
	key  string
	flag string
}

var sourceBindings = []binding{
	{"name", "name"},
	{"source.type", "source"},
	{"source.location", "path"},
	{"source.delimiter", "delimiter"},
	{"source.header", "header"},
	{"output.format", "format"},
	{"output.path", "output"},
	{"output.compression", "compression"},
	{"output.narrow_integers", "narrow"},
	{"sink.type", "sink"},
	{"sink.bucket", "bucket"},
	{"sink.prefix", "prefix"},
	{"timeouts.run", "timeout"},
}

var checkBindings = []binding{
	{"check.key_field", "key"},
	{"check.value_fields", "value"},
	{"check.missing_policy", "policy"},
	{"check.strategy", "strategy"},
	{"check.partitions", "partitions"},
	{"check.fail_on_inconsistent", "fail-on-inconsistent"},
	{"report.path", "report"},
	{"report.format", "report-format"},
	{"report.compression", "report-compression"},
}

// override copies one viper key into the configuration.
type override struct {
	key   string
	apply func(c *config.Config, v *viper.Viper, key string)
}

func str(set func(c *config.Config, s string)) func(*config.Config, *viper.Viper, string) {
	return func(c *config.Config, v *viper.Viper, key string) { set(c, v.GetString(key)) }
}

var overrides = []override{
	{"name", str(func(c *config.Config, s string) { c.Name = s })},
	{"source.type", str(func(c *config.Config, s string) { c.Source.Type = s })},
	{"source.location", str(func(c *config.Config, s string) {
		if base.IsURL(s) {
			c.Source.Settings["url"] = s
			return
		}
		c.Source.Settings["path"] = s
	})},
	{"source.delimiter", str(func(c *config.Config, s string) { c.Source.Delimiter = s })},
	{"source.header", func(c *config.Config, v *viper.Viper, k string) { c.Source.Header = v.GetBool(k) }},
	{"check.key_field", str(func(c *config.Config, s string) { c.Check.KeyField = s })},
	{"check.value_fields", func(c *config.Config, v *viper.Viper, k string) { c.Check.ValueFields = list(v.GetStringSlice(k)) }},
	{"check.missing_policy", str(func(c *config.Config, s string) { c.Check.MissingPolicy = s })},
	{"check.strategy", str(func(c *config.Config, s string) { c.Check.Strategy = s })},
	{"check.partitions", func(c *config.Config, v *viper.Viper, k string) { c.Check.Partitions = v.GetInt(k) }},
	{"check.fail_on_inconsistent", func(c *config.Config, v *viper.Viper, k string) { c.Check.FailOnInconsistent = v.GetBool(k) }},
	{"output.format", str(func(c *config.Config, s string) { c.Output.Format = s })},
	{"output.path", str(func(c *config.Config, s string) { c.Output.Path = s })},
	{"output.compression", str(func(c *config.Config, s string) { c.Output.Compression = s })},
	{"output.narrow_integers", func(c *config.Config, v *viper.Viper, k string) { c.Output.NarrowIntegers = v.GetBool(k) }},
	{"report.path", str(func(c *config.Config, s string) { c.Report.Path = s })},
	{"report.format", str(func(c *config.Config, s string) { c.Report.Format = s })},
	{"report.compression", str(func(c *config.Config, s string) { c.Report.Compression = s })},
	{"sink.type", str(func(c *config.Config, s string) { c.Sink.Type = s })},
	{"sink.bucket", str(func(c *config.Config, s string) { c.Sink.Bucket = s })},
	{"sink.prefix", str(func(c *config.Config, s string) { c.Sink.Prefix = s })},
	{"sink.region", str(func(c *config.Config, s string) { c.Sink.Region = s })},
	{"sink.directory", str(func(c *config.Config, s string) { c.Sink.Directory = s })},
	{"sink.endpoint", str(func(c *config.Config, s string) { c.Sink.Endpoint = s })},
	{"sink.credentials_file", str(func(c *config.Config, s string) { c.Sink.CredentialsFile = s })},
	{"observability.log_level", str(func(c *config.Config, s string) { c.Observability.LogLevel = s })},
	{"observability.log_encoding", str(func(c *config.Config, s string) { c.Observability.LogEncoding = s })},
	{"observability.metrics_addr", str(func(c *config.Config, s string) { c.Observability.MetricsAddr = s })},
	{"observability.enable_tracing", func(c *config.Config, v *viper.Viper, k string) { c.Observability.EnableTracing = v.GetBool(k) }},
	{"timeouts.run", func(c *config.Config, v *viper.Viper, k string) { c.Timeouts.Run = v.GetDuration(k) }},
}

// list flattens comma separated entries, as environment variables carry
// lists as a single string.
func list(in []string) []string {
	var out []string
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (a *app) bind(key string, f *pflag.Flag) {
	if f != nil {
		_ = a.v.BindPFlag(key, f)
	}
}

func (a *app) bindAll(cmd *cobra.Command, bindings ...[]binding) {
	for _, group := range bindings {
		for _, b := range group {
			a.bind(b.key, cmd.Flags().Lookup(b.flag))
		}
	}
}

// buildConfig layers defaults, the --config file, CONCORD_* variables and
// flags, in that order, and validates the result.
func (a *app) buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig("concord")
	if path := a.v.GetString("config"); path != "" {
		if err := config.Load(path, cfg); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to load configuration").
				WithDetail("path", path)
		}
		if cfg.Source.Settings == nil {
			cfg.Source.Settings = make(config.Settings)
		}
	}
	for _, o := range overrides {
		if a.v.IsSet(o.key) {
			o.apply(cfg, a.v, o.key)
		}
	}
	if f := cmd.Flags().Lookup("set"); f != nil {
		settings, err := cmd.Flags().GetStringToString("set")
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid --set value")
		}
		for k, v := range settings {
			cfg.Source.Settings[k] = v
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid configuration")
	}
	return cfg, nil
}

// addSourceFlags registers the flags shared by check and convert.
func addSourceFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("name", "", "Run name used in reports and sink keys")
	f.String("source", "", "Source type (csv, jsonl, columnar, postgresql, sql, mongodb, bigquery, kafka)")
	f.String("path", "", "Source file path or http(s) URL")
	f.StringToString("set", nil, "Source setting as key=value, repeatable")
	f.String("delimiter", "", "Field delimiter of delimited input")
	f.Bool("header", true, "Delimited input starts with a header row")
	f.String("format", "", "Output format (arrow, arrow_stream, parquet, avro)")
	f.String("output", "", "Output file path")
	f.String("compression", "", "Codec inside the output file")
	f.Bool("narrow", true, "Store integer columns in the smallest lossless type")
	f.String("sink", "", "Sink for output and report (local, s3, gcs)")
	f.String("bucket", "", "Bucket of the s3 or gcs sink")
	f.String("prefix", "", "Key prefix inside the sink")
	f.Duration("timeout", 0, "Bound the whole run, 0 for no limit")
}
