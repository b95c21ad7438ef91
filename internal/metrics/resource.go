package metrics

import (
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v4/process"
)

// CollectProcessMetrics samples CPU, memory, thread, and FD usage for
// a running program's pid.
func CollectProcessMetrics(pid int) (*ResourceSample, error) {
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return nil, err
	}

	sample := &ResourceSample{
		Timestamp:       time.Now(),
		FileDescriptors: -1, // default for platforms without /proc
	}

	if cpu, err := proc.CPUPercent(); err == nil {
		sample.CPUPercent = cpu
	}
	if memInfo, err := proc.MemoryInfo(); err == nil {
		sample.MemoryRSSBytes = memInfo.RSS
		sample.MemoryVMSBytes = memInfo.VMS
	}
	if memPct, err := proc.MemoryPercent(); err == nil {
		sample.MemoryPercent = memPct
	}
	if threads, err := proc.NumThreads(); err == nil {
		sample.Threads = threads
	}
	if fds, err := proc.NumFDs(); err == nil {
		sample.FileDescriptors = int32(fds)
	}

	return sample, nil
}

// ResourceCollector periodically samples every active program's
// resource usage into a bounded ring buffer per program, and mirrors
// the latest sample onto Prometheus gauges.
type ResourceCollector struct {
	interval   time.Duration
	maxSamples int
	buffers    map[string]*TimeSeriesBuffer
	mu         sync.RWMutex
	logger     *slog.Logger

	cpuPercent      *prometheus.GaugeVec
	memoryBytes     *prometheus.GaugeVec
	memoryPercent   *prometheus.GaugeVec
	threads         *prometheus.GaugeVec
	fileDescriptors *prometheus.GaugeVec
	collectErrors   *prometheus.CounterVec
}

// NewResourceCollector creates a resource collector and registers its
// series on reg.
func NewResourceCollector(reg *prometheus.Registry, interval time.Duration, maxSamples int, logger *slog.Logger) *ResourceCollector {
	rc := &ResourceCollector{
		interval:   interval,
		maxSamples: maxSamples,
		buffers:    make(map[string]*TimeSeriesBuffer),
		logger:     logger.With("component", "resource_collector"),
		cpuPercent: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "procmond_program_cpu_percent",
			Help: "Program CPU usage percentage (per-core, can exceed 100)",
		}, []string{"program"}),
		memoryBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "procmond_program_memory_bytes",
			Help: "Program memory usage in bytes",
		}, []string{"program", "type"}), // type: rss, vms
		memoryPercent: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "procmond_program_memory_percent",
			Help: "Program memory usage as a percentage of total system memory",
		}, []string{"program"}),
		threads: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "procmond_program_threads",
			Help: "Number of threads in the program",
		}, []string{"program"}),
		fileDescriptors: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "procmond_program_file_descriptors",
			Help: "Number of open file descriptors (Linux only)",
		}, []string{"program"}),
		collectErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "procmond_resource_collection_errors_total",
			Help: "Total resource collection errors, by program",
		}, []string{"program"}),
	}

	reg.MustRegister(rc.cpuPercent, rc.memoryBytes, rc.memoryPercent, rc.threads, rc.fileDescriptors, rc.collectErrors)
	return rc
}

// Sample collects and records one resource sample for program's pid,
// buffering it for GetHistory and mirroring it to Prometheus.
func (rc *ResourceCollector) Sample(program string, pid int) {
	sample, err := CollectProcessMetrics(pid)
	if err != nil {
		rc.collectErrors.WithLabelValues(program).Inc()
		rc.logger.Debug("resource sample failed", "program", program, "pid", pid, "error", err)
		return
	}

	rc.addSample(program, *sample)

	rc.cpuPercent.WithLabelValues(program).Set(sample.CPUPercent)
	rc.memoryBytes.WithLabelValues(program, "rss").Set(float64(sample.MemoryRSSBytes))
	rc.memoryBytes.WithLabelValues(program, "vms").Set(float64(sample.MemoryVMSBytes))
	rc.memoryPercent.WithLabelValues(program).Set(float64(sample.MemoryPercent))
	rc.threads.WithLabelValues(program).Set(float64(sample.Threads))
	if sample.FileDescriptors >= 0 {
		rc.fileDescriptors.WithLabelValues(program).Set(float64(sample.FileDescriptors))
	}
}

func (rc *ResourceCollector) addSample(program string, sample ResourceSample) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if _, exists := rc.buffers[program]; !exists {
		rc.buffers[program] = NewTimeSeriesBuffer(rc.maxSamples)
	}
	rc.buffers[program].Add(sample)
}

// GetHistory returns buffered samples for program since the given time.
func (rc *ResourceCollector) GetHistory(program string, since time.Time, limit int) []ResourceSample {
	rc.mu.RLock()
	defer rc.mu.RUnlock()

	buffer, exists := rc.buffers[program]
	if !exists {
		return []ResourceSample{}
	}
	return buffer.GetRange(since, limit)
}

// GetLatest returns the most recent sample for program, if any.
func (rc *ResourceCollector) GetLatest(program string) (ResourceSample, bool) {
	rc.mu.RLock()
	defer rc.mu.RUnlock()

	buffer, exists := rc.buffers[program]
	if !exists {
		return ResourceSample{}, false
	}
	return buffer.Latest()
}

// RemoveBuffer drops the buffer for a program that has left the roster.
func (rc *ResourceCollector) RemoveBuffer(program string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	delete(rc.buffers, program)
}

// Interval returns the configured sampling interval.
func (rc *ResourceCollector) Interval() time.Duration {
	return rc.interval
}
