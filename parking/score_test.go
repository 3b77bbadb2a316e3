package parking

import (
	"math"
	"testing"
)

func intPtr(v int) *int { return &v }

func TestScorePathsRoutingWeights(t *testing.T) {
	t.Parallel()

	paths := []*Path{
		{ID: 1, Distance: 65, TJunctions: 1, Intensity: intPtr(20)},
		{ID: 2, Distance: 90, TJunctions: 3, Intensity: intPtr(60)},
	}

	if err := ScorePaths(paths); err != nil {
		t.Fatalf("ScorePaths returned error: %v", err)
	}

	// 65*0.1 + 1*0.6 + 20*0.3 and 90*0.1 + 3*0.6 + 60*0.3
	wantScores := []float64{13.1, 28.8}
	for i, want := range wantScores {
		if got := *paths[i].Score; math.Abs(got-want) > 1e-9 {
			t.Errorf("path %d score = %f, want %f", paths[i].ID, got, want)
		}
	}

	optimal, err := SelectOptimal(paths)
	if err != nil {
		t.Fatalf("SelectOptimal returned error: %v", err)
	}
	if optimal.ID != 1 {
		t.Fatalf("optimal path ID = %d, want 1 (lower score wins)", optimal.ID)
	}
}

func TestSelectOptimalTieKeepsFirst(t *testing.T) {
	t.Parallel()

	score := 10.0
	paths := []*Path{
		{ID: 1, Score: &score},
		{ID: 2, Score: &score},
	}
	optimal, err := SelectOptimal(paths)
	if err != nil {
		t.Fatalf("SelectOptimal returned error: %v", err)
	}
	if optimal.ID != 1 {
		t.Fatalf("tie-break selected path %d, want 1", optimal.ID)
	}
}

func TestSelectOptimalRequiresScores(t *testing.T) {
	t.Parallel()

	if _, err := SelectOptimal(nil); err != ErrNoPaths {
		t.Fatalf("expected ErrNoPaths, got %v", err)
	}
	if _, err := SelectOptimal([]*Path{{ID: 1}}); err == nil {
		t.Fatal("expected error for unscored path")
	}
}

func TestScorePathsRequiresIntensity(t *testing.T) {
	t.Parallel()

	paths := []*Path{{ID: 1, Distance: 65, TJunctions: 1}}
	if err := ScorePaths(paths); err == nil {
		t.Fatal("expected error when intensity is unset")
	}
}

func TestScoreTableComparisonProfile(t *testing.T) {
	t.Parallel()

	paths := []*Path{
		{ID: 1, Distance: 65, TJunctions: 1, Intensity: intPtr(20)},
	}

	table, err := ScoreTable(paths, ComparisonProfile)
	if err != nil {
		t.Fatalf("ScoreTable returned error: %v", err)
	}

	// 65*0.4 + 1*1.2 + 20*0.8
	if got, want := table[1], 43.2; math.Abs(got-want) > 1e-9 {
		t.Errorf("comparison score = %f, want %f", got, want)
	}
	// The display profile never touches the canonical score.
	if paths[0].Score != nil {
		t.Error("ScoreTable mutated the path score")
	}
}
