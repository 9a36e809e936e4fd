package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/concord/internal/pipeline"
	"github.com/ajitpratap0/concord/pkg/logger"
)

func (a *app) newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report keys that map to more than one value",
		Long: `Read a table, check the key field against every value field and write the
report. The table is also stored in a columnar format when --format is set.

Exit status is 2 when --fail-on-inconsistent is set and a key has several
values, 1 on any other error.

Example:
  concord check --source csv --path subjects.csv --key subject --value sex,smoker
  concord check --config run.yaml --policy value --fail-on-inconsistent`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.bindAll(cmd, sourceBindings, checkBindings)
			cfg, err := a.buildConfig(cmd)
			if err != nil {
				return err
			}
			stop, err := a.observe(cfg)
			if err != nil {
				return err
			}
			defer stop()
			stopProfile, err := profile(cmd)
			if err != nil {
				return err
			}
			defer stopProfile()

			p, err := pipeline.NewCheckPipeline(cfg, logger.Get())
			if err != nil {
				return err
			}
			res, runErr := p.Run(cmd.Context())
			if res != nil && res.Report != nil {
				if err := res.Report.Summary(a.stdout); err != nil {
					return err
				}
				printLocations(a, res)
			}
			return runErr
		},
	}
	addSourceFlags(cmd)
	f := cmd.Flags()
	f.String("key", "", "Key field")
	f.StringSlice("value", nil, "Value fields, comma separated or repeated")
	f.String("policy", "", "Missing value policy (skip, value)")
	f.String("strategy", "", "Check strategy (value_sets, first_seen)")
	f.Int("partitions", 1, "Partitions for concurrent value set collection, 0 for one per CPU")
	f.Bool("fail-on-inconsistent", false, "Exit with status 2 when a key has several values")
	f.String("report", "", "Report file path")
	f.String("report-format", "", "Report format (json, yaml)")
	f.String("report-compression", "", "Report compression (gzip, zstd, snappy, s2, lz4)")
	return cmd
}

func printLocations(a *app, res *pipeline.Result) {
	if res.OutputPath != "" {
		fmt.Fprintf(a.stdout, "output: %s\n", res.OutputPath)
	}
	if res.ReportPath != "" {
		fmt.Fprintf(a.stdout, "report: %s\n", res.ReportPath)
	}
	for _, loc := range res.Locations {
		fmt.Fprintf(a.stdout, "stored: %s\n", loc)
	}
}
