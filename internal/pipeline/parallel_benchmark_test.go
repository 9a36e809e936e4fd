package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ajitpratap0/concord/pkg/config"
	"github.com/ajitpratap0/concord/pkg/testutil"
)

func generatedConfig(t testing.TB, rows, keys, conflictEvery int) (*config.Config, []int) {
	path, bad := testutil.GenerateCSV(t, t.TempDir(), rows, keys, conflictEvery)
	cfg := config.NewConfig("generated")
	cfg.Source.Type = "csv"
	cfg.Source.Settings["path"] = path
	cfg.Check.KeyField = "key"
	cfg.Check.ValueFields = []string{"value"}
	return cfg, bad
}

func TestGeneratedConflictsFound(t *testing.T) {
	for _, partitions := range []int{1, 4} {
		cfg, bad := generatedConfig(t, 5000, 500, 7)
		cfg.Check.Partitions = partitions
		p, err := NewCheckPipeline(cfg, testutil.TestLogger(t))
		require.NoError(t, err)
		res, err := p.Run(context.Background())
		require.NoError(t, err)

		got := make(map[string]bool)
		for _, k := range res.Report.Fields[0].InconsistentKeys {
			got[k.Key] = true
		}
		assert.Len(t, got, len(bad))
		for _, k := range bad {
			assert.True(t, got[strconv.Itoa(k)], "key %d", k)
		}
	}
}

func BenchmarkCheckPipeline(b *testing.B) {
	for _, tc := range []struct {
		strategy   string
		partitions int
	}{
		{StrategyFirstSeen, 1},
		{StrategyValueSets, 1},
		{StrategyValueSets, 4},
	} {
		b.Run(fmt.Sprintf("%s_p%d", tc.strategy, tc.partitions), func(b *testing.B) {
			cfg, _ := generatedConfig(b, 100000, 5000, 13)
			cfg.Check.Strategy = tc.strategy
			cfg.Check.Partitions = tc.partitions

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				p, err := NewCheckPipeline(cfg, zap.NewNop())
				if err != nil {
					b.Fatal(err)
				}
				if _, err := p.Run(context.Background()); err != nil {
					b.Fatal(err)
				}
			}
			b.ReportMetric(float64(100000*b.N)/b.Elapsed().Seconds(), "rows/s")
		})
	}
}
