package parking

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"smart-parking/models"

	"github.com/google/go-cmp/cmp"
)

func sessionFixtures(seed int64) (PathPlanner, IntensitySensor) {
	return NewSyntheticPlanner(rand.New(rand.NewSource(seed))),
		NewSimulatedSensor(rand.New(rand.NewSource(seed+1)), 0)
}

func vehicleBatch(class string) *models.DetectionBatch {
	return &models.DetectionBatch{
		Predictions: []models.Detection{{Class: class, Confidence: 90, X: 300, Y: 200, Width: 120, Height: 80}},
	}
}

func runFullSession(t *testing.T, s *SessionState, seed int64) {
	t.Helper()

	batch := lotBatch(3, func(i int) string {
		if i == 4 || i == 12 || i == 23 {
			return "empty"
		}
		return "occupied"
	})

	if err := s.ApplySlots(batch); err != nil {
		t.Fatalf("ApplySlots failed: %v", err)
	}
	if err := s.ApplyVehicle(vehicleBatch("sedan")); err != nil {
		t.Fatalf("ApplyVehicle failed: %v", err)
	}
	planner, sensor := sessionFixtures(seed)
	if err := s.ApplyAllocation(context.Background(), planner, sensor); err != nil {
		t.Fatalf("ApplyAllocation failed: %v", err)
	}
}

func TestSessionFullFlow(t *testing.T) {
	t.Parallel()

	s := NewSession()
	if s.ID == "" {
		t.Fatal("session has no ID")
	}
	runFullSession(t, s, 11)

	if s.Step != StepComplete {
		t.Fatalf("step = %s, want complete", s.Step)
	}
	if s.Allocated == nil || s.Allocated.Status != StatusEmpty {
		t.Fatalf("allocated slot missing or not empty: %+v", s.Allocated)
	}
	if s.Optimal == nil || s.Optimal.Score == nil {
		t.Fatal("optimal path missing or unscored")
	}
	for _, path := range s.Paths {
		if *s.Optimal.Score > *path.Score {
			t.Fatalf("optimal score %f exceeds path %d score %f", *s.Optimal.Score, path.ID, *path.Score)
		}
	}
}

func TestSessionResetThenRerunIsIdentical(t *testing.T) {
	t.Parallel()

	s := NewSession()
	runFullSession(t, s, 21)
	firstSlots := append([]Slot(nil), s.Slots...)
	firstAllocated := *s.Allocated

	s.Reset()
	if s.Slots != nil || s.Vehicle != nil || s.Allocated != nil || s.Paths != nil || s.Optimal != nil {
		t.Fatalf("reset left derived state behind: %+v", s)
	}
	if s.Step != StepLotDetection {
		t.Fatalf("reset step = %s, want lot_detection", s.Step)
	}

	runFullSession(t, s, 21)
	if diff := cmp.Diff(firstSlots, s.Slots); diff != "" {
		t.Fatalf("slots differ after reset (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(firstAllocated, *s.Allocated); diff != "" {
		t.Fatalf("allocation differs after reset (-first +second):\n%s", diff)
	}
}

func TestSessionAllocationFailureLeavesStateUntouched(t *testing.T) {
	t.Parallel()

	s := NewSession()
	if err := s.ApplySlots(lotBatch(1, func(int) string { return "occupied" })); err != nil {
		t.Fatalf("ApplySlots failed: %v", err)
	}
	if err := s.ApplyVehicle(vehicleBatch("truck")); err != nil {
		t.Fatalf("ApplyVehicle failed: %v", err)
	}

	planner, sensor := sessionFixtures(5)
	err := s.ApplyAllocation(context.Background(), planner, sensor)
	if !errors.Is(err, ErrNoEmptySlots) {
		t.Fatalf("expected ErrNoEmptySlots, got %v", err)
	}

	// Prior step data survives; nothing partial was committed.
	if s.Allocated != nil || s.Paths != nil || s.Optimal != nil {
		t.Fatal("failed allocation committed partial state")
	}
	if len(s.Slots) != 8 || s.Vehicle == nil {
		t.Fatal("failed allocation disturbed prior step data")
	}
	if s.Step != StepAllocation {
		t.Fatalf("step = %s, want allocation", s.Step)
	}
}

func TestSessionAllocationRequiresPriorSteps(t *testing.T) {
	t.Parallel()

	planner, sensor := sessionFixtures(5)

	s := NewSession()
	if err := s.ApplyAllocation(context.Background(), planner, sensor); err == nil {
		t.Fatal("expected error without slots")
	}

	if err := s.ApplySlots(lotBatch(1, allEmpty)); err != nil {
		t.Fatalf("ApplySlots failed: %v", err)
	}
	if err := s.ApplyAllocation(context.Background(), planner, sensor); err == nil {
		t.Fatal("expected error without vehicle")
	}
}

func TestSessionOverrideIntensityReselects(t *testing.T) {
	t.Parallel()

	s := NewSession()
	runFullSession(t, s, 31)

	// Push every path except the last to maximum congestion; the last one
	// must win the reselection.
	last := s.Paths[len(s.Paths)-1]
	for _, path := range s.Paths {
		value := 100
		if path.ID == last.ID {
			value = 0
		}
		if err := s.OverrideIntensity(path.ID, value); err != nil {
			t.Fatalf("OverrideIntensity failed: %v", err)
		}
	}

	if s.Optimal.ID != last.ID {
		t.Fatalf("optimal path = %d, want %d after overrides", s.Optimal.ID, last.ID)
	}
	if !s.Optimal.ManualIntensity {
		t.Fatal("override flag not recorded")
	}
}

func TestSessionRecord(t *testing.T) {
	t.Parallel()

	s := NewSession()
	if _, err := s.Record(); err == nil {
		t.Fatal("expected error for incomplete session")
	}

	runFullSession(t, s, 41)
	record, err := s.Record()
	if err != nil {
		t.Fatalf("Record returned error: %v", err)
	}
	if record.SessionID != s.ID {
		t.Errorf("record session ID = %q, want %q", record.SessionID, s.ID)
	}
	if record.SlotNumber != s.Allocated.Number {
		t.Errorf("record slot = %d, want %d", record.SlotNumber, s.Allocated.Number)
	}
	if record.EmptySlots != 3 || record.TotalSlots != 24 {
		t.Errorf("record counts = %d/%d, want 3/24", record.EmptySlots, record.TotalSlots)
	}
	if len(record.Paths) == 0 {
		t.Error("record has no path payload")
	}
}
