package pipeline

import (
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"github.com/ajitpratap0/concord/pkg/metrics"
)

// residentMemory samples the RSS of the current process and records it in
// the process memory gauge. It returns 0 when the platform does not expose
// the value.
func residentMemory(logger *zap.Logger) uint64 {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		logger.Debug("process handle unavailable", zap.Error(err))
		return 0
	}
	info, err := proc.MemoryInfo()
	if err != nil {
		logger.Debug("memory info unavailable", zap.Error(err))
		return 0
	}
	metrics.ProcessMemory.Set(float64(info.RSS))
	return info.RSS
}

// logStats writes the closing summary of a run.
func logStats(logger *zap.Logger, res *Result) {
	fields := []zap.Field{
		zap.String("table", res.Table),
		zap.Int("rows", res.Rows),
		zap.Int("columns", res.Columns),
		zap.Duration("duration", res.Duration),
		zap.Uint64("rss_bytes", res.ResidentMemory),
	}
	if res.Duration > 0 {
		fields = append(fields, zap.Float64("rows_per_sec", float64(res.Rows)/res.Duration.Seconds()))
	}
	if res.Report != nil {
		fields = append(fields,
			zap.Bool("consistent", res.Report.Consistent),
			zap.Int("inconsistent_keys", res.Report.InconsistentCount()))
	}
	if res.Output != nil {
		fields = append(fields,
			zap.String("format", string(res.Output.Format)),
			zap.Int64("output_bytes", res.Output.Bytes))
	}
	if len(res.Locations) > 0 {
		fields = append(fields, zap.Strings("locations", res.Locations))
	}
	logger.Info("run completed", fields...)
}

func since(start time.Time, now func() time.Time) time.Duration {
	return now().Sub(start)
}
