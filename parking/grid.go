package parking

import (
	"errors"
	"math"
	"sort"
	"strings"

	"smart-parking/models"
)

// The virtual grid is a fixed 8 columns wide regardless of the physical lot
// layout. Detections within rowBandPx of each other vertically are treated as
// the same row and ordered left to right.
const (
	GridWidth = 8
	rowBandPx = 50.0
)

// Fallback entrance reference when the detection service does not report the
// source image dimensions.
const (
	fallbackEntranceX = 640.0
	fallbackEntranceY = 480.0
)

// ErrNoSlotDetections means an empty detection batch reached the normalizer.
// Callers are expected to reject zero-prediction batches as a detection
// failure before this point; the guard here is the last line of defence.
var ErrNoSlotDetections = errors.New("no slot detections to normalize")

var emptyKeywords = []string{"empty", "parking spot", "available", "free"}

// NormalizeSlots converts raw slot detections into an ordered, addressable
// slot list. Slot numbers are a contiguous 1..N sequence in row-major spatial
// order; recomputing from the same batch always yields the same result.
func NormalizeSlots(batch *models.DetectionBatch) ([]Slot, error) {
	if batch == nil || len(batch.Predictions) == 0 {
		return nil, ErrNoSlotDetections
	}

	entranceX, entranceY := fallbackEntranceX, fallbackEntranceY
	if batch.Image != nil && batch.Image.Width > 0 && batch.Image.Height > 0 {
		entranceX = float64(batch.Image.Width) / 2
		entranceY = float64(batch.Image.Height)
	}

	ordered := make([]models.Detection, len(batch.Predictions))
	copy(ordered, batch.Predictions)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if math.Abs(a.Y-b.Y) < rowBandPx {
			return a.X < b.X
		}
		return a.Y < b.Y
	})

	totalRows := (len(ordered) + GridWidth - 1) / GridWidth

	slots := make([]Slot, len(ordered))
	for i, det := range ordered {
		row := i / GridWidth
		col := i % GridWidth

		onBoundaryRow := row == 0 || row == totalRows-1
		onBoundaryCol := col == 0 || col == GridWidth-1
		corner := onBoundaryRow && onBoundaryCol

		slots[i] = Slot{
			Number:               i + 1,
			Row:                  row,
			Col:                  col,
			Status:               slotStatus(det.Class),
			IsCorner:             corner,
			IsEdge:               corner || onBoundaryRow || onBoundaryCol,
			DistanceFromEntrance: math.Hypot(det.X-entranceX, det.Y-entranceY),
			Confidence:           det.Confidence,
			OriginalClass:        det.Class,
			X:                    det.X,
			Y:                    det.Y,
		}
	}

	return slots, nil
}

func slotStatus(class string) SlotStatus {
	lower := strings.ToLower(class)
	for _, keyword := range emptyKeywords {
		if strings.Contains(lower, keyword) {
			return StatusEmpty
		}
	}
	return StatusOccupied
}

// EmptySlots returns the empty slots in spatial order.
func EmptySlots(slots []Slot) []Slot {
	var empty []Slot
	for _, slot := range slots {
		if slot.Status == StatusEmpty {
			empty = append(empty, slot)
		}
	}
	return empty
}
