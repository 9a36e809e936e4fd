package pipeline

import (
	"context"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ajitpratap0/concord/pkg/config"
	"github.com/ajitpratap0/concord/pkg/errors"
)

// ConvertPipeline copies a source table into a columnar file without
// checking it.
type ConvertPipeline struct {
	*runner
}

// NewConvertPipeline validates cfg and prepares a conversion. An output
// format and path are required.
func NewConvertPipeline(cfg *config.Config, log *zap.Logger, opts ...Option) (*ConvertPipeline, error) {
	r, err := newRunner("convert_pipeline", cfg, log, opts)
	if err != nil {
		return nil, err
	}
	if !cfg.Output.IsEnabled() {
		return nil, errors.New(errors.ErrorTypeConfig, "output.format and output.path are required for conversion")
	}
	return &ConvertPipeline{runner: r}, nil
}

// Run reads the source, writes the output file and stores it through the
// sink when one is configured.
func (p *ConvertPipeline) Run(ctx context.Context) (*Result, error) {
	ctx, cancel := p.begin(ctx)
	defer cancel()
	defer p.closeSink(ctx)

	start := p.now()
	p.logger.Info("starting conversion",
		zap.String("format", p.cfg.Output.Format),
		zap.String("path", p.cfg.Output.Path))

	t, err := p.load(ctx)
	if err != nil {
		return nil, err
	}
	res := &Result{
		RunID:      p.runID,
		Source:     p.cfg.Source.Type,
		Table:      t.Name(),
		Rows:       t.NumRows(),
		Columns:    t.NumColumns(),
		StartedAt:  start,
		OutputPath: p.cfg.Output.Path,
	}
	if res.Output, err = p.writeOutput(ctx, t); err != nil {
		return nil, err
	}
	res.Locations, err = p.store(ctx, start, []artifact{{
		name: filepath.Base(res.OutputPath),
		path: res.OutputPath,
	}})
	if err != nil {
		return nil, err
	}
	p.finish(res, start)
	return res, nil
}
