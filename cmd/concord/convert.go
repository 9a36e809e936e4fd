package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/concord/internal/pipeline"
	"github.com/ajitpratap0/concord/pkg/logger"
)

func (a *app) newConvertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Copy a table into Arrow, Parquet or Avro",
		Long: `Read a table from any source and write it in a columnar format, without
checking it.

Example:
  concord convert --source jsonl --path events.jsonl.gz --format arrow --output events.arrow`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.bindAll(cmd, sourceBindings)
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

			p, err := pipeline.NewConvertPipeline(cfg, logger.Get())
			if err != nil {
				return err
			}
			res, err := p.Run(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "%s: %d rows, %d columns\n", res.Table, res.Rows, res.Columns)
			if res.Output != nil {
				fmt.Fprintf(a.stdout, "%s: %d bytes in %d batches\n", res.Output.Format, res.Output.Bytes, res.Output.Batches)
			}
			printLocations(a, res)
			return nil
		},
	}
	addSourceFlags(cmd)
	return cmd
}
