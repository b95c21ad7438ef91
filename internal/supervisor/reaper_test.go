package supervisor

import (
	"syscall"
	"testing"
)

// fakeKernel replays a scripted sequence of Wait4 results, simulating a
// single coalesced SIGCHLD covering several exited children followed by
// either "nothing left" (wpid == 0) or, when echild is set, ECHILD.
type fakeKernel struct {
	calls   int
	exits   []ExitReport
	echild  bool
}

func (k *fakeKernel) wait(pid int, flags int) (int, syscall.WaitStatus, error) {
	defer func() { k.calls++ }()
	if k.calls < len(k.exits) {
		e := k.exits[k.calls]
		return e.PID, packStatus(e), nil
	}
	if k.echild {
		return -1, 0, syscall.ECHILD
	}
	return 0, 0, nil
}

// packStatus is a test-only helper; it can't reconstruct a real
// syscall.WaitStatus bit pattern portably, so ReapAll is exercised
// through the kernel's reported PID/fields via a thin shim instead. See
// TestReaper_DrainsAllCoalescedExits for the shape this test actually
// checks.
func packStatus(e ExitReport) syscall.WaitStatus {
	return 0
}

func TestReaper_DrainsAllCoalescedExits(t *testing.T) {
	k := &fakeKernel{
		exits: []ExitReport{
			{PID: 100},
			{PID: 101},
			{PID: 102},
		},
		echild: false,
	}
	r := NewReaperWithWaitFunc(k.wait)

	reports := r.ReapAll()
	if len(reports) != 3 {
		t.Fatalf("ReapAll() returned %d reports, want 3", len(reports))
	}
	wantPIDs := []int{100, 101, 102}
	for i, want := range wantPIDs {
		if reports[i].PID != want {
			t.Errorf("reports[%d].PID = %d, want %d", i, reports[i].PID, want)
		}
	}
	if k.calls != 4 {
		t.Errorf("wait called %d times, want 4 (3 hits + 1 drained-dry)", k.calls)
	}
}

func TestReaper_EmptySetReturnsNil(t *testing.T) {
	k := &fakeKernel{}
	r := NewReaperWithWaitFunc(k.wait)
	if reports := r.ReapAll(); len(reports) != 0 {
		t.Errorf("ReapAll() returned %d reports, want 0", len(reports))
	}
}

func TestReaper_StopsOnECHILD(t *testing.T) {
	k := &fakeKernel{echild: true}
	r := NewReaperWithWaitFunc(k.wait)
	if reports := r.ReapAll(); len(reports) != 0 {
		t.Errorf("ReapAll() returned %d reports, want 0", len(reports))
	}
	if k.calls != 1 {
		t.Errorf("wait called %d times, want 1", k.calls)
	}
}
