package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/concord/pkg/compression"
	"github.com/ajitpratap0/concord/pkg/errors"
	"github.com/ajitpratap0/concord/pkg/formats/columnar"
	"github.com/ajitpratap0/concord/pkg/json"
	"github.com/ajitpratap0/concord/pkg/mmap"
	"github.com/ajitpratap0/concord/pkg/schema"
)

// inspection is the machine readable form of inspect output.
type inspection struct {
	Path    string          `json:"path"`
	Format  columnar.Format `json:"format"`
	Table   string          `json:"table"`
	Rows    int             `json:"rows"`
	Batches int             `json:"batches"`
	Columns []column        `json:"columns"`
}

type column struct {
	Name     string           `json:"name"`
	Storage  string           `json:"storage"`
	Type     schema.FieldType `json:"type"`
	Nullable bool             `json:"nullable"`
	Nulls    int              `json:"nulls"`
	Min      *int64           `json:"min,omitempty"`
	Max      *int64           `json:"max,omitempty"`
	// Narrowest is the smallest integer type that holds [Min, Max]
	Narrowest string `json:"narrowest,omitempty"`
}

func (a *app) newInspectCmd() *cobra.Command {
	var (
		format string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Show the schema, row count and integer widths of a columnar file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ins, err := inspectFile(args[0], format)
			if err != nil {
				return err
			}
			if asJSON {
				return json.MarshalToWriter(a.stdout, ins)
			}
			return ins.print(a.stdout)
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "File format, detected from the extension when empty")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func inspectFile(path, formatName string) (*inspection, error) {
	var (
		format columnar.Format
		err    error
	)
	if formatName != "" {
		format, err = columnar.ParseFormat(formatName)
	} else {
		format, err = columnar.DetectFormat(path)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "unknown file format")
	}

	r, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	res, err := columnar.Read(r, format, "")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to read file").WithDetail("path", path)
	}

	inferred := schema.Infer(res.Table)
	ins := &inspection{
		Path:    path,
		Format:  format,
		Table:   res.Table.Name(),
		Rows:    res.Table.NumRows(),
		Batches: res.Batches,
	}
	for _, fld := range inferred.Fields {
		c := column{
			Name:     fld.Name,
			Type:     fld.Type,
			Nullable: fld.Nullable,
			Nulls:    fld.NullCount,
		}
		if idx := res.Schema.FieldIndices(fld.Name); len(idx) > 0 {
			c.Storage = res.Schema.Field(idx[0]).Type.String()
		}
		if fld.Type == schema.TypeInt && fld.Count > fld.NullCount {
			lo, hi := fld.Min, fld.Max
			c.Min, c.Max = &lo, &hi
			c.Narrowest = schema.NarrowInt(lo, hi).String()
		}
		ins.Columns = append(ins.Columns, c)
	}
	return ins, nil
}

// openFile maps uncompressed files and decompresses the rest.
func openFile(path string) (io.ReadCloser, error) {
	alg, _ := compression.FromPath(path)
	if alg == compression.None {
		f, err := mmap.Open(path)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open file").WithDetail("path", path)
		}
		return f, nil
	}

	f, err := os.Open(path) //nolint:gosec // G304: path is a command argument
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open file").WithDetail("path", path)
	}
	comp, err := compression.NewCompressor(&compression.Config{Algorithm: alg})
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	r, err := comp.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to decompress file")
	}
	return readCloser{Reader: r, closers: []io.Closer{r, f}}, nil
}

type readCloser struct {
	io.Reader
	closers []io.Closer
}

func (rc readCloser) Close() error {
	var first error
	for _, c := range rc.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (ins *inspection) print(w io.Writer) error {
	fmt.Fprintf(w, "file:    %s\n", ins.Path)
	fmt.Fprintf(w, "format:  %s\n", ins.Format)
	fmt.Fprintf(w, "table:   %s\n", ins.Table)
	fmt.Fprintf(w, "rows:    %d\n", ins.Rows)
	fmt.Fprintf(w, "batches: %d\n\n", ins.Batches)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COLUMN\tSTORAGE\tTYPE\tNULLS\tRANGE\tNARROWEST")
	for _, c := range ins.Columns {
		rng, narrowest := "-", "-"
		if c.Min != nil {
			rng = fmt.Sprintf("[%d, %d]", *c.Min, *c.Max)
			narrowest = c.Narrowest
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n", c.Name, c.Storage, c.Type, c.Nulls, rng, narrowest)
	}
	return tw.Flush()
}
