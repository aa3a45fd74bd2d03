package opt

import "testing"

func TestConvergenceTrackerDisabled(t *testing.T) {
	tracker := NewConvergenceTracker(DisabledConvergenceConfig())

	for i := 0; i < 100; i++ {
		if tracker.Update(1.0) {
			t.Fatal("Disabled tracker should never report convergence")
		}
	}
	if tracker.updates != 0 {
		t.Errorf("Disabled tracker should not record costs, got %d", tracker.updates)
	}
}

func TestConvergenceTrackerPatience(t *testing.T) {
	tracker := NewConvergenceTracker(ConvergenceConfig{Enabled: true, Patience: 3, Threshold: 0.01})

	costs := []float64{100, 90, 80, 79.9, 79.85, 79.8}
	want := []bool{false, false, false, false, false, true}

	for i, c := range costs {
		if got := tracker.Update(c); got != want[i] {
			t.Errorf("Update(%g) at step %d = %v, expected %v", c, i, got, want[i])
		}
	}

	if tracker.bestCost != 79.8 {
		t.Errorf("Expected best cost 79.8, got %g", tracker.bestCost)
	}
	if tracker.staleCount != 3 {
		t.Errorf("Expected stale count 3, got %d", tracker.staleCount)
	}
}

func TestConvergenceTrackerImprovementResets(t *testing.T) {
	tracker := NewConvergenceTracker(ConvergenceConfig{Enabled: true, Patience: 2, Threshold: 0.1})

	tracker.Update(10)
	tracker.Update(9.9) // stale
	tracker.Update(5)   // significant, resets

	if tracker.staleCount != 0 {
		t.Errorf("Expected stale count reset to 0, got %d", tracker.staleCount)
	}
}

func TestConvergenceTrackerNegativeCosts(t *testing.T) {
	tracker := NewConvergenceTracker(ConvergenceConfig{Enabled: true, Patience: 1, Threshold: 0.1})

	tracker.Update(-10)
	// Going from -10 to -20 is a 100% improvement
	if tracker.Update(-20) {
		t.Error("Decreasing negative cost should count as improvement")
	}
	if tracker.staleCount != 0 {
		t.Errorf("Expected stale count 0, got %d", tracker.staleCount)
	}
}

func TestConvergenceTrackerBestCostSurvivesRegression(t *testing.T) {
	tracker := NewConvergenceTracker(ConvergenceConfig{Enabled: true, Patience: 10, Threshold: 0.01})

	for _, c := range []float64{5, 2, 4, 3} {
		tracker.Update(c)
	}

	if tracker.bestCost != 2 {
		t.Errorf("Expected best cost 2, got %g", tracker.bestCost)
	}
	if tracker.updates != 4 {
		t.Errorf("Expected 4 updates, got %d", tracker.updates)
	}
}
