package metrics

import "testing"

func TestDefaultIsASingletonAndUsable(t *testing.T) {
	a := Default()
	b := Default()
	if a != b {
		t.Fatal("Default() must return the same instance across calls")
	}

	a.RecordDrift("cDAI")
	a.RecordReorgRecovery("cDAI")
	a.AddCandidatesEmitted(2)
	a.ObserveScanDuration(0.5)
}
