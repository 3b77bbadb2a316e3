package parking

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// Placeholder route generation standing in for a real planner. Distances and
// junction counts are nominal values with bounded jitter.
const (
	baseDistance   = 65.0
	distanceStep   = 25.0
	distanceJitter = 20.0

	intensityMin  = 10
	intensitySpan = 80 // simulated intensity is uniform in [10, 90)

	// DefaultSenseDelay is how long the intensity simulator pretends to
	// sense traffic before answering.
	DefaultSenseDelay = 2 * time.Second
)

// ErrPathNotFound reports an intensity override against an unknown path ID.
var ErrPathNotFound = errors.New("path not found")

// PathPlanner produces candidate routes toward an allocated slot. The
// synthetic generator below is the only implementation; a real road-graph
// planner can be substituted without touching the scorer.
type PathPlanner interface {
	Plan(slot Slot) []*Path
}

// SyntheticPlanner generates placeholder path candidates from an injected
// randomness source, keeping generation reproducible under a fixed seed.
type SyntheticPlanner struct {
	rng *rand.Rand
}

func NewSyntheticPlanner(rng *rand.Rand) *SyntheticPlanner {
	return &SyntheticPlanner{rng: rng}
}

// Plan returns 4 candidates for slots in the first two rows, 3 otherwise.
// Candidate i gets distance 65+25i plus jitter in [0,20) and 1+i junctions
// plus either 0 or 1 extra.
func (p *SyntheticPlanner) Plan(slot Slot) []*Path {
	count := 3
	if slot.Row <= 1 {
		count = 4
	}

	paths := make([]*Path, count)
	for i := 0; i < count; i++ {
		paths[i] = &Path{
			ID:         i + 1,
			Name:       fmt.Sprintf("Route %d", i+1),
			Distance:   baseDistance + distanceStep*float64(i) + p.rng.Float64()*distanceJitter,
			TJunctions: 1 + i + p.rng.Intn(2),
		}
	}
	return paths
}

// IntensitySensor populates per-path vehicle intensity. The simulator stands
// in for real traffic sensing.
type IntensitySensor interface {
	Sense(ctx context.Context, paths []*Path) error
}

// SimulatedSensor fills intensity with uniform values in [10, 90) after a
// fixed delay. Paths with a manual override are left untouched.
type SimulatedSensor struct {
	rng   *rand.Rand
	delay time.Duration
}

func NewSimulatedSensor(rng *rand.Rand, delay time.Duration) *SimulatedSensor {
	return &SimulatedSensor{rng: rng, delay: delay}
}

func (s *SimulatedSensor) Sense(ctx context.Context, paths []*Path) error {
	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.delay):
		}
	}

	for _, path := range paths {
		if path.ManualIntensity {
			continue
		}
		value := intensityMin + s.rng.Intn(intensitySpan)
		path.Intensity = &value
	}
	return nil
}

// SetManualIntensity records a manual intensity reading for one path. A
// manual value always takes precedence over later simulation runs.
func SetManualIntensity(paths []*Path, pathID, value int) error {
	if value < 0 || value > 100 {
		return fmt.Errorf("intensity %d out of range [0, 100]", value)
	}
	for _, path := range paths {
		if path.ID == pathID {
			v := value
			path.Intensity = &v
			path.ManualIntensity = true
			return nil
		}
	}
	return fmt.Errorf("%w: %d", ErrPathNotFound, pathID)
}
