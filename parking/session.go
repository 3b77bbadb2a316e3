package parking

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"smart-parking/models"

	"github.com/google/uuid"
)

// Step tracks how far the session has progressed through the flow.
type Step int

const (
	StepLotDetection Step = iota
	StepVehicleDetection
	StepAllocation
	StepComplete
)

func (s Step) String() string {
	switch s {
	case StepLotDetection:
		return "lot_detection"
	case StepVehicleDetection:
		return "vehicle_detection"
	case StepAllocation:
		return "allocation"
	case StepComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// SessionState holds every derived entity for one vehicle being processed.
// One vehicle per session at a time; a failed step leaves the prior step's
// data untouched so the caller can retry from the same point.
type SessionState struct {
	ID        string            `json:"id"`
	Step      Step              `json:"step"`
	CreatedAt time.Time         `json:"createdAt"`
	Slots     []Slot            `json:"slots,omitempty"`
	Vehicle   *VehicleDetection `json:"vehicle,omitempty"`
	Allocated *Slot             `json:"allocatedSlot,omitempty"`
	Paths     []*Path           `json:"paths,omitempty"`
	Optimal   *Path             `json:"optimalPath,omitempty"`
	LastError string            `json:"lastError,omitempty"`
}

func NewSession() *SessionState {
	return &SessionState{
		ID:        uuid.NewString(),
		Step:      StepLotDetection,
		CreatedAt: time.Now(),
	}
}

// Reset clears all derived entities back to the initial state. The session
// keeps its identity.
func (s *SessionState) Reset() {
	s.Step = StepLotDetection
	s.Slots = nil
	s.Vehicle = nil
	s.Allocated = nil
	s.Paths = nil
	s.Optimal = nil
	s.LastError = ""
}

// SetError records the single human-readable failure message for display.
func (s *SessionState) SetError(msg string) {
	s.LastError = msg
}

// ApplySlots normalizes a slot detection batch into the session. Nothing is
// committed on failure.
func (s *SessionState) ApplySlots(batch *models.DetectionBatch) error {
	slots, err := NormalizeSlots(batch)
	if err != nil {
		return err
	}
	s.Slots = slots
	s.Step = StepVehicleDetection
	s.LastError = ""
	return nil
}

// ApplyVehicle classifies the vehicle detection batch into the session.
func (s *SessionState) ApplyVehicle(batch *models.DetectionBatch) error {
	vehicle, err := ClassifyVehicle(batch)
	if err != nil {
		return err
	}
	s.Vehicle = vehicle
	s.Step = StepAllocation
	s.LastError = ""
	return nil
}

// ApplyAllocation runs the allocation policy, generates path candidates,
// senses intensity and scores the routes. All results commit together; a
// failure anywhere leaves the session as it was.
func (s *SessionState) ApplyAllocation(ctx context.Context, planner PathPlanner, sensor IntensitySensor) error {
	if len(s.Slots) == 0 {
		return fmt.Errorf("slots not detected yet")
	}
	if s.Vehicle == nil {
		return fmt.Errorf("vehicle not classified yet")
	}

	slot, err := Allocate(s.Vehicle.Category, s.Slots)
	if err != nil {
		return err
	}

	paths := planner.Plan(slot)
	if err := sensor.Sense(ctx, paths); err != nil {
		return err
	}
	if err := ScorePaths(paths); err != nil {
		return err
	}
	optimal, err := SelectOptimal(paths)
	if err != nil {
		return err
	}

	s.Allocated = &slot
	s.Paths = paths
	s.Optimal = optimal
	s.Step = StepComplete
	s.LastError = ""
	return nil
}

// OverrideIntensity applies a manual intensity reading to one path, then
// rescores and reselects the optimal route.
func (s *SessionState) OverrideIntensity(pathID, value int) error {
	if len(s.Paths) == 0 {
		return ErrNoPaths
	}
	if err := SetManualIntensity(s.Paths, pathID, value); err != nil {
		return err
	}
	if err := ScorePaths(s.Paths); err != nil {
		return err
	}
	optimal, err := SelectOptimal(s.Paths)
	if err != nil {
		return err
	}
	s.Optimal = optimal
	return nil
}

// Record summarises a completed session for persistence and publishing.
func (s *SessionState) Record() (*models.AllocationRecord, error) {
	if s.Allocated == nil || s.Optimal == nil || s.Vehicle == nil {
		return nil, fmt.Errorf("session %s is not complete", s.ID)
	}

	pathsJSON, err := json.Marshal(s.Paths)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal paths: %w", err)
	}

	return &models.AllocationRecord{
		SessionID:       s.ID,
		Timestamp:       time.Now(),
		VehicleCategory: string(s.Vehicle.Category),
		VehicleLabel:    s.Vehicle.Label,
		VehicleConf:     s.Vehicle.Confidence,
		SlotNumber:      s.Allocated.Number,
		SlotRow:         s.Allocated.Row,
		SlotCol:         s.Allocated.Col,
		SlotDistance:    s.Allocated.DistanceFromEntrance,
		OptimalPathID:   s.Optimal.ID,
		OptimalScore:    *s.Optimal.Score,
		TotalSlots:      len(s.Slots),
		EmptySlots:      len(EmptySlots(s.Slots)),
		Paths:           pathsJSON,
	}, nil
}
