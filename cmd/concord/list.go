package main

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/concord/pkg/compression"
	"github.com/ajitpratap0/concord/pkg/connector/core"
	"github.com/ajitpratap0/concord/pkg/connector/registry"
	"github.com/ajitpratap0/concord/pkg/formats/columnar"
)

func (a *app) newListCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sources, sinks, formats and compression codecs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)

			fmt.Fprintln(tw, "Sources:")
			listConnectors(tw, core.ConnectorTypeSource, registry.ListSources(), verbose)
			fmt.Fprintln(tw, "\nSinks:")
			listConnectors(tw, core.ConnectorTypeSink, registry.ListSinks(), verbose)

			fmt.Fprintln(tw, "\nFormats:")
			for _, f := range columnar.Formats() {
				info := columnar.GetFormatInfo(f)
				fmt.Fprintf(tw, "  %s\t%s (%s)\t%s\n", f, info.Name, info.FileExtension, strings.Join(info.Compressions, ", "))
			}

			fmt.Fprintln(tw, "\nCompression:")
			for _, alg := range []compression.Algorithm{compression.Gzip, compression.Zstd, compression.Snappy, compression.S2, compression.LZ4} {
				fmt.Fprintf(tw, "  %s\t%s\n", alg, alg.Extension())
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show connector settings")
	return cmd
}

func listConnectors(tw *tabwriter.Writer, t core.ConnectorType, names []string, verbose bool) {
	for _, name := range names {
		info, err := registry.GetConnectorInfo(t, name)
		if err != nil {
			fmt.Fprintf(tw, "  %s\t\n", name)
			continue
		}
		fmt.Fprintf(tw, "  %s\t%s\n", name, info.Description)
		if !verbose {
			continue
		}
		keys := make([]string, 0, len(info.Settings))
		for k := range info.Settings {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(tw, "    %s\t%s\n", k, info.Settings[k])
		}
	}
}
