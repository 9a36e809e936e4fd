package main

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/concord/pkg/config"
	"github.com/ajitpratap0/concord/pkg/logger"
	"github.com/ajitpratap0/concord/pkg/metrics"
	"github.com/ajitpratap0/concord/pkg/observability"
)

// envPrefix namespaces environment overrides, e.g. CONCORD_CHECK_KEY_FIELD.
const envPrefix = "CONCORD"

type app struct {
	v      *viper.Viper
	stdout io.Writer
	stderr io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{v: viper.New(), stdout: stdout, stderr: stderr}
	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	a.v.AutomaticEnv()

	root := &cobra.Command{
		Use:   "concord",
		Short: "concord - key/value consistency checks for tabular data",
		Long: `concord loads a table from a file, database, warehouse or topic, reports
every key that maps to more than one value and stores the table as Arrow,
Parquet or Avro with integer columns narrowed to their smallest type.

Settings come from --config, then CONCORD_* environment variables, then flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.String("config", "", "Path to a YAML run configuration")
	pf.String("log-level", "", "Log level (debug, info, warn, error)")
	pf.String("log-encoding", "", "Log encoding (json, console)")
	pf.String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	pf.Bool("tracing", false, "Export trace spans to stderr")
	pf.String("cpuprofile", "", "Write a CPU profile of the run to this file")
	pf.String("memprofile", "", "Write a heap profile to this file after the run")
	a.bind("config", pf.Lookup("config"))
	a.bind("observability.log_level", pf.Lookup("log-level"))
	a.bind("observability.log_encoding", pf.Lookup("log-encoding"))
	a.bind("observability.metrics_addr", pf.Lookup("metrics-addr"))
	a.bind("observability.enable_tracing", pf.Lookup("tracing"))

	root.AddCommand(
		a.newCheckCmd(),
		a.newConvertCmd(),
		a.newInspectCmd(),
		a.newListCmd(),
		a.newVersionCmd(),
	)
	return root
}

// observe installs logging, metrics and tracing for a run and returns the
// function that tears them down.
func (a *app) observe(cfg *config.Config) (func(), error) {
	oc := cfg.Observability
	if err := logger.Init(logger.Config{
		Level:       oc.LogLevel,
		Encoding:    oc.LogEncoding,
		OutputPaths: []string{"stderr"},
	}); err != nil {
		return nil, err
	}
	log := logger.With(zap.String("component", "cli"), zap.String("run", cfg.Name))

	tc := observability.DefaultTracingConfig()
	tc.ServiceVersion = version
	tc.Enabled = oc.EnableTracing
	tc.SamplingRate = oc.TracingSampleRate
	tc.Writer = a.stderr
	shutdownTracing, err := observability.Init(tc)
	if err != nil {
		return nil, err
	}

	var srv *metrics.Server
	if oc.MetricsAddr != "" {
		if srv, err = metrics.Serve(oc.MetricsAddr, log); err != nil {
			_ = shutdownTracing(context.Background())
			return nil, err
		}
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if srv != nil {
			if err := srv.Shutdown(ctx); err != nil {
				log.Warn("failed to stop metrics server", zap.Error(err))
			}
		}
		if err := shutdownTracing(ctx); err != nil {
			log.Warn("failed to flush traces", zap.Error(err))
		}
	}, nil
}
