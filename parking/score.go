package parking

import (
	"errors"
	"fmt"
)

// ScoringProfile is a named weight set over the three path criteria. Lower
// scores are better.
type ScoringProfile struct {
	Name       string  `json:"name"`
	WDistance  float64 `json:"wDistance"`
	WJunctions float64 `json:"wJunctions"`
	WIntensity float64 `json:"wIntensity"`
}

// RoutingProfile is the canonical profile: it decides the optimal path.
// ComparisonProfile is recomputed purely for the side-by-side display and
// never influences selection.
var (
	RoutingProfile    = ScoringProfile{Name: "routing", WDistance: 0.1, WJunctions: 0.6, WIntensity: 0.3}
	ComparisonProfile = ScoringProfile{Name: "comparison", WDistance: 0.4, WJunctions: 1.2, WIntensity: 0.8}
)

var ErrNoPaths = errors.New("no paths to score")

// Score computes the weighted sum for one path. Intensity must be populated.
func (p ScoringProfile) Score(path *Path) (float64, error) {
	if path.Intensity == nil {
		return 0, fmt.Errorf("path %d has no vehicle intensity", path.ID)
	}
	return path.Distance*p.WDistance +
		float64(path.TJunctions)*p.WJunctions +
		float64(*path.Intensity)*p.WIntensity, nil
}

// ScorePaths attaches the canonical routing score to every path.
func ScorePaths(paths []*Path) error {
	if len(paths) == 0 {
		return ErrNoPaths
	}
	for _, path := range paths {
		score, err := RoutingProfile.Score(path)
		if err != nil {
			return err
		}
		s := score
		path.Score = &s
	}
	return nil
}

// ScoreTable recomputes scores under an alternate profile for display without
// mutating the paths.
func ScoreTable(paths []*Path, profile ScoringProfile) (map[int]float64, error) {
	table := make(map[int]float64, len(paths))
	for _, path := range paths {
		score, err := profile.Score(path)
		if err != nil {
			return nil, err
		}
		table[path.ID] = score
	}
	return table, nil
}

// SelectOptimal returns the path with the minimum canonical score. The first
// occurrence wins on ties.
func SelectOptimal(paths []*Path) (*Path, error) {
	if len(paths) == 0 {
		return nil, ErrNoPaths
	}

	var best *Path
	for _, path := range paths {
		if path.Score == nil {
			return nil, fmt.Errorf("path %d is unscored", path.ID)
		}
		if best == nil || *path.Score < *best.Score {
			best = path
		}
	}
	return best, nil
}
