package services

import (
	"context"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"kknotes-backend-go/internal/store"
)

const metricsPath = "metrics/samples"

type MetricSample struct {
	CapturedAt        time.Time `json:"capturedAt"`
	ProcessRSSBytes   int64     `json:"processRssBytes"`
	SystemMemoryTotal int64     `json:"systemMemoryTotalBytes"`
	SystemMemoryUsed  int64     `json:"systemMemoryUsedBytes"`
	DiskTotalBytes    int64     `json:"diskTotalBytes"`
	DiskUsedBytes     int64     `json:"diskUsedBytes"`
	ProcessCpuLoad    float64   `json:"processCpuLoad"`
	SystemCpuLoad     float64   `json:"systemCpuLoad"`
	ChatClients       int       `json:"chatClients"`
}

// CaptureMetrics samples process and host usage. Missing readings are zero.
func CaptureMetrics(diskPath string) MetricSample {
	proc, _ := process.NewProcess(int32(os.Getpid()))
	sample := MetricSample{CapturedAt: time.Now().UTC()}
	if memStat, err := mem.VirtualMemory(); err == nil {
		sample.SystemMemoryTotal = int64(memStat.Total)
		sample.SystemMemoryUsed = int64(memStat.Total - memStat.Available)
	}
	diskStat, err := disk.Usage(diskPath)
	if err != nil {
		diskStat, err = disk.Usage("/")
	}
	if err == nil && diskStat != nil {
		sample.DiskTotalBytes = int64(diskStat.Total)
		sample.DiskUsedBytes = int64(diskStat.Used)
	}
	if proc != nil {
		if rss, _ := proc.MemoryInfo(); rss != nil {
			sample.ProcessRSSBytes = int64(rss.RSS)
		}
		cpuPerc, _ := proc.CPUPercent()
		sample.ProcessCpuLoad = cpuPerc / 100.0
	}
	if sysCPU, _ := cpu.Percent(0, false); len(sysCPU) > 0 {
		sample.SystemCpuLoad = sysCPU[0] / 100.0
	}
	return sample
}

// MetricsRecorder keeps a bounded sample history in the store.
type MetricsRecorder struct {
	Store     store.Store
	Retention int
}

func (r MetricsRecorder) Record(ctx context.Context, sample MetricSample) error {
	if _, err := r.Store.Push(ctx, metricsPath, sample); err != nil {
		return WrapError(err, "record metrics")
	}
	if r.Retention <= 0 {
		return nil
	}
	snap, err := r.Store.Get(ctx, metricsPath)
	if err != nil {
		return WrapError(err, "read metrics")
	}
	children := snap.Children()
	if len(children) <= r.Retention {
		return nil
	}
	expired := map[string]any{}
	for _, child := range children[:len(children)-r.Retention] {
		expired[child.Key] = nil
	}
	return WrapError(r.Store.Update(ctx, metricsPath, expired), "trim metrics")
}

// History returns up to limit samples, oldest first.
func (r MetricsRecorder) History(ctx context.Context, limit int) ([]MetricSample, error) {
	snap, err := r.Store.Query(ctx, metricsPath, store.Query{LimitToLast: limit})
	if err != nil {
		return nil, storeError("Could not load metrics", err)
	}
	items := make([]MetricSample, 0, limit)
	for _, child := range snap.Children() {
		var sample MetricSample
		if err := child.Decode(&sample); err != nil {
			continue
		}
		items = append(items, sample)
	}
	return items, nil
}
