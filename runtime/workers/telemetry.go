package workers

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/process"

	"moonchat/observability"
)

// TelemetryWorker periodically logs process health (RSS, CPU) together
// with the pipeline counters. Local logging only, no remote reporting.
type TelemetryWorker struct {
	log      *slog.Logger
	interval time.Duration
	stats    *observability.PipelineStats
}

func NewTelemetryWorker(log *slog.Logger, interval time.Duration,
	stats *observability.PipelineStats) *TelemetryWorker {
	return &TelemetryWorker{log: log, interval: interval, stats: stats}
}

func (w *TelemetryWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			snapshot := w.stats.Snapshot()

			var rssMb uint64
			if memInfo, err := p.MemoryInfo(); err == nil {
				rssMb = memInfo.RSS / 1024 / 1024
			}
			cpuPercent, _ := p.CPUPercent()

			w.log.Info("Pipeline telemetry",
				"stored", snapshot.Stored,
				"delivered", snapshot.Delivered,
				"dropped", snapshot.Dropped,
				"rejected", snapshot.Rejected,
				"unavailable", snapshot.Unavailable,
				"resubscribes", snapshot.Resubscribes,
				"rss_mb", rssMb,
				"cpu_percent", cpuPercent,
				"goroutines", runtime.NumGoroutine())
		}
	}
}
