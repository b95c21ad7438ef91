// Package metrics exposes the supervisor's internal state as Prometheus
// series (spec.md §6.4): one instance per program, driven off the same
// supervisor.Observer events the audit trail consumes.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/shobhitka/procmond/internal/supervisor"
)

// Collector registers and updates the Prometheus series for one
// supervisor instance. It is safe for a single Controller to share
// across goroutines — Observer callbacks all arrive serialized off the
// Controller's own queue, but Collector's own fields are additionally
// guarded since Snapshot-driven callers may read concurrently.
type Collector struct {
	registry *prometheus.Registry

	programUp              *prometheus.GaugeVec
	programRestartsTotal   *prometheus.CounterVec
	programQuickRestarts   *prometheus.GaugeVec
	programLaunchFailures  *prometheus.CounterVec
	programLastExitCode    *prometheus.GaugeVec
	programTerminatesTotal *prometheus.CounterVec
	runlevelState          *prometheus.GaugeVec
	runlevelAbortsTotal    *prometheus.CounterVec
	runlevelRestartsTotal  prometheus.Counter
	buildInfo              *prometheus.GaugeVec

	mu          sync.Mutex
	knownStates map[string]supervisor.RunlevelState
}

// NewCollector builds a Collector and registers its series on reg. Pass
// a fresh prometheus.NewRegistry() for an isolated registry (tests,
// multiple instances in one process); metrics.Server serves that same
// registry at its /metrics path.
func NewCollector(reg *prometheus.Registry) *Collector {
	c := &Collector{
		registry: reg,
		programUp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "procmond_program_up",
			Help: "Program run state (1=active, 0=not active)",
		}, []string{"program"}),
		programRestartsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "procmond_program_restarts_total",
			Help: "Total number of times a program has been relaunched after exit",
		}, []string{"program"}),
		programQuickRestarts: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "procmond_program_quick_restart_count",
			Help: "Current consecutive quick-restart count used for flap detection",
		}, []string{"program"}),
		programLaunchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "procmond_program_launch_failures_total",
			Help: "Total number of failed launch attempts (e.g. exec not found)",
		}, []string{"program"}),
		programLastExitCode: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "procmond_program_last_exit_code",
			Help: "Exit code from the program's most recent exit",
		}, []string{"program"}),
		programTerminatesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "procmond_program_terminates_total",
			Help: "Total number of terminate-requests sent to a program",
		}, []string{"program"}),
		runlevelState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "procmond_runlevel_state",
			Help: "Current runlevel state (1=active) — starting, progressing, stable, aborting-shutdown, aborting-flapping",
		}, []string{"state"}),
		runlevelAbortsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "procmond_runlevel_aborts_total",
			Help: "Total number of runlevel aborts, by reason",
		}, []string{"reason"}),
		runlevelRestartsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "procmond_runlevel_restarts_total",
			Help: "Total number of whole-runlevel restarts (all-or-nothing relaunch after every program stopped together)",
		}),
		buildInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "procmond_build_info",
			Help: "Build information",
		}, []string{"version", "go_version"}),
		knownStates: make(map[string]supervisor.RunlevelState),
	}

	reg.MustRegister(
		c.programUp,
		c.programRestartsTotal,
		c.programQuickRestarts,
		c.programLaunchFailures,
		c.programLastExitCode,
		c.programTerminatesTotal,
		c.runlevelState,
		c.runlevelAbortsTotal,
		c.runlevelRestartsTotal,
		c.buildInfo,
	)

	return c
}

// SetBuildInfo records the running binary's version and Go toolchain.
func (c *Collector) SetBuildInfo(version, goVersion string) {
	c.buildInfo.WithLabelValues(version, goVersion).Set(1)
}

// --- supervisor.Observer ---------------------------------------------

func (c *Collector) OnLaunch(name string, pid int) {
	c.programUp.WithLabelValues(name).Set(1)
}

func (c *Collector) OnLaunchFailed(name string, err error) {
	c.programUp.WithLabelValues(name).Set(0)
	c.programLaunchFailures.WithLabelValues(name).Inc()
}

func (c *Collector) OnExit(name string, exit supervisor.ExitReport) {
	c.programUp.WithLabelValues(name).Set(0)
	c.programLastExitCode.WithLabelValues(name).Set(float64(exit.ExitCode))
}

func (c *Collector) OnTerminate(name string) {
	c.programTerminatesTotal.WithLabelValues(name).Inc()
}

func (c *Collector) OnRestart(name string, quickRestartCount int) {
	c.programRestartsTotal.WithLabelValues(name).Inc()
	c.programQuickRestarts.WithLabelValues(name).Set(float64(quickRestartCount))
}

func (c *Collector) OnRunlevelRestart() {
	c.runlevelRestartsTotal.Inc()
}

func (c *Collector) OnAbort(reason supervisor.AbortReason) {
	c.runlevelAbortsTotal.WithLabelValues(string(reason)).Inc()
}

func (c *Collector) OnRunlevelChange(state supervisor.RunlevelState) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, s := range []supervisor.RunlevelState{
		supervisor.RunlevelStarting,
		supervisor.RunlevelProgressing,
		supervisor.RunlevelStable,
		supervisor.RunlevelAbortingShutdown,
		supervisor.RunlevelAbortingFlapping,
	} {
		if s == state {
			c.runlevelState.WithLabelValues(string(s)).Set(1)
		} else {
			c.runlevelState.WithLabelValues(string(s)).Set(0)
		}
	}
	c.knownStates[string(state)] = state
}

var _ supervisor.Observer = (*Collector)(nil)
