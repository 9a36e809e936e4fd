package pipeline

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/ajitpratap0/concord/pkg/compression"
	"github.com/ajitpratap0/concord/pkg/config"
	"github.com/ajitpratap0/concord/pkg/consistency"
	"github.com/ajitpratap0/concord/pkg/errors"
	"github.com/ajitpratap0/concord/pkg/metrics"
	"github.com/ajitpratap0/concord/pkg/report"
	"github.com/ajitpratap0/concord/pkg/table"
)

// Check strategies.
const (
	StrategyFirstSeen = "first_seen"
	StrategyValueSets = "value_sets"
)

// ErrInconsistent is the cause of the error returned when
// check.fail_on_inconsistent is set and a key maps to several values.
var ErrInconsistent = stderrors.New("inconsistent keys found")

// CheckPipeline reads a table, checks the key field against every value
// field and stores the table and the report.
type CheckPipeline struct {
	*runner

	policy       consistency.MissingPolicy
	strategy     string
	partitions   int
	reportFormat report.Format
	reportAlg    compression.Algorithm
}

// NewCheckPipeline validates cfg and prepares a check run.
func NewCheckPipeline(cfg *config.Config, log *zap.Logger, opts ...Option) (*CheckPipeline, error) {
	r, err := newRunner("check_pipeline", cfg, log, opts)
	if err != nil {
		return nil, err
	}
	if !cfg.Check.IsCheckEnabled() {
		return nil, errors.New(errors.ErrorTypeConfig, "check.key_field and check.value_fields are required")
	}
	p := &CheckPipeline{runner: r, partitions: cfg.Check.GetPartitions()}
	if p.policy, err = consistency.ParseMissingPolicy(cfg.Check.MissingPolicy); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid missing policy")
	}
	p.strategy = strings.ToLower(cfg.Check.Strategy)
	if p.strategy == "" {
		p.strategy = StrategyValueSets
	}
	if p.reportFormat, err = report.ParseFormat(cfg.Report.Format); err != nil {
		return nil, err
	}
	if p.reportAlg, err = compression.ParseAlgorithm(cfg.Report.Compression); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid report compression")
	}
	return p, nil
}

// Run executes the check. With check.fail_on_inconsistent set, an
// inconsistent table yields both the result and an error wrapping
// ErrInconsistent; everything is persisted before that error is returned.
func (p *CheckPipeline) Run(ctx context.Context) (*Result, error) {
	ctx, cancel := p.begin(ctx)
	defer cancel()
	defer p.closeSink(ctx)

	start := p.now()
	p.logger.Info("starting check",
		zap.String("key_field", p.cfg.Check.KeyField),
		zap.Strings("value_fields", p.cfg.Check.ValueFields),
		zap.String("strategy", p.strategy),
		zap.String("missing_policy", p.policy.String()),
		zap.Int("partitions", p.partitions))

	t, err := p.load(ctx)
	if err != nil {
		return nil, err
	}
	res := &Result{
		RunID:     p.runID,
		Source:    p.cfg.Source.Type,
		Table:     t.Name(),
		Rows:      t.NumRows(),
		Columns:   t.NumColumns(),
		StartedAt: start,
	}

	rep, err := p.check(ctx, t)
	if err != nil {
		return nil, err
	}
	res.Report = rep

	if res.Output, err = p.writeOutput(ctx, t); err != nil {
		return nil, err
	}
	var items []artifact
	if res.Output != nil {
		res.OutputPath = p.cfg.Output.Path
		items = append(items, artifact{name: filepath.Base(res.OutputPath), path: res.OutputPath})
	}

	rep.Duration = since(start, p.now).String()
	encoded, err := p.writeReport(ctx, rep)
	if err != nil {
		return nil, err
	}
	if p.cfg.Report.Path != "" {
		res.ReportPath = p.cfg.Report.Path
	}
	items = append(items, artifact{name: report.FileName(p.reportFormat, p.reportAlg), data: encoded})

	if res.Locations, err = p.store(ctx, start, items); err != nil {
		return nil, err
	}
	p.finish(res, start)

	if p.cfg.Check.FailOnInconsistent && res.Inconsistent() {
		return res, errors.Wrap(ErrInconsistent, errors.ErrorTypeData, "consistency check failed").
			WithDetail("keys", rep.InconsistentCount())
	}
	return res, nil
}

// check runs the configured strategy for every value field.
func (p *CheckPipeline) check(ctx context.Context, t *table.Table) (*report.Report, error) {
	rep := &report.Report{
		Name:       p.cfg.Name,
		RunID:      p.runID,
		Source:     p.cfg.Source.Type,
		Table:      t.Name(),
		KeyField:   p.cfg.Check.KeyField,
		Strategy:   p.strategy,
		Policy:     p.policy.String(),
		Rows:       t.NumRows(),
		Consistent: true,
		StartedAt:  p.now().UTC(),
	}
	err := p.tracer.Trace(ctx, "check", func(ctx context.Context) error {
		for _, field := range p.cfg.Check.ValueFields {
			f, err := p.checkField(ctx, t, field)
			if err != nil {
				return err
			}
			rep.Add(f)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rep, nil
}

func (p *CheckPipeline) checkField(ctx context.Context, t *table.Table, field string) (report.FieldReport, error) {
	log := p.logger.With(zap.String("field", field))
	keys, values, err := t.Pair(p.cfg.Check.KeyField, field)
	if err != nil {
		return report.FieldReport{}, err
	}
	metrics.RowsScanned.WithLabelValues(p.cfg.Source.Type).Add(float64(len(keys)))

	var f report.FieldReport
	switch p.strategy {
	case StrategyFirstSeen:
		timer := metrics.NewTimer("find_inconsistent_keys")
		bad, err := consistency.FindInconsistentKeys(keys, values,
			consistency.WithPolicy[any](p.policy),
			consistency.WithMissing(consistency.IsNil))
		timer.ObserveResult(err)
		if err != nil {
			return f, errors.Wrap(err, errors.ErrorTypeData, "consistency scan failed").
				WithDetail("field", field)
		}
		f = report.FromKeys(field, bad, consistency.NewSet(keys...).Len())
	default:
		timer := metrics.NewTimer("collect_value_sets")
		sets, err := consistency.CollectValueSetsParallel(ctx, keys, values, p.partitions,
			consistency.WithMissing(consistency.IsNil))
		timer.ObserveResult(err)
		if err != nil {
			return f, errors.Wrap(err, errors.ErrorTypeData, "value set collection failed").
				WithDetail("field", field)
		}
		f = report.FromValueSets(field, sets, p.policy, consistency.IsNil)
	}

	metrics.InconsistentKeys.WithLabelValues(p.cfg.Source.Type, field).Add(float64(len(f.InconsistentKeys)))
	log.Info("field checked",
		zap.Int("distinct_keys", f.DistinctKeys),
		zap.Int("inconsistent_keys", len(f.InconsistentKeys)))
	return f, nil
}

// writeReport encodes rep once, writes it to report.path when set and
// returns the encoded bytes for the sink.
func (p *CheckPipeline) writeReport(ctx context.Context, rep *report.Report) ([]byte, error) {
	var buf bytes.Buffer
	err := p.tracer.Trace(ctx, "report", func(ctx context.Context) error {
		n, err := report.Write(&buf, rep, p.reportFormat, p.reportAlg)
		if err != nil {
			return err
		}
		metrics.BytesWritten.WithLabelValues("report").Add(float64(n))
		if path := p.cfg.Report.Path; path != "" {
			_, err = writeFile(path, func(w io.Writer) (int, error) {
				return w.Write(buf.Bytes())
			})
			if err != nil {
				return errors.Wrap(err, errors.ErrorTypeFile, "failed to write report").
					WithDetail("path", path)
			}
			p.logger.Info("report written", zap.String("path", path), zap.Int64("bytes", n))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
