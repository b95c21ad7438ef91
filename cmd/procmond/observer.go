package main

import "github.com/shobhitka/procmond/internal/supervisor"

// multiObserver fans a single Controller's lifecycle events out to
// every wrapped supervisor.Observer, so the audit trail and the metrics
// collector can both watch the same Controller — Config.Observer only
// takes one.
type multiObserver []supervisor.Observer

func (m multiObserver) OnLaunch(name string, pid int) {
	for _, o := range m {
		o.OnLaunch(name, pid)
	}
}

func (m multiObserver) OnLaunchFailed(name string, err error) {
	for _, o := range m {
		o.OnLaunchFailed(name, err)
	}
}

func (m multiObserver) OnExit(name string, exit supervisor.ExitReport) {
	for _, o := range m {
		o.OnExit(name, exit)
	}
}

func (m multiObserver) OnTerminate(name string) {
	for _, o := range m {
		o.OnTerminate(name)
	}
}

func (m multiObserver) OnRestart(name string, quickRestartCount int) {
	for _, o := range m {
		o.OnRestart(name, quickRestartCount)
	}
}

func (m multiObserver) OnRunlevelRestart() {
	for _, o := range m {
		o.OnRunlevelRestart()
	}
}

func (m multiObserver) OnAbort(reason supervisor.AbortReason) {
	for _, o := range m {
		o.OnAbort(reason)
	}
}

func (m multiObserver) OnRunlevelChange(state supervisor.RunlevelState) {
	for _, o := range m {
		o.OnRunlevelChange(state)
	}
}

var _ supervisor.Observer = multiObserver(nil)
