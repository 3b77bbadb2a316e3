package parking

import (
	"errors"
	"strings"

	"smart-parking/models"
)

// ErrNoVehicleDetections means the vehicle model reported zero predictions.
var ErrNoVehicleDetections = errors.New("no vehicle detections returned")

// Ordered mapping from label substrings to canonical categories. Iteration
// order is the tie-break when a label could match more than one key.
var categoryTable = []struct {
	key      string
	category VehicleCategory
}{
	{"car", CategoryCar},
	{"sedan", CategoryCar},
	{"hatchback", CategoryCar},
	{"suv", CategoryCar},
	{"truck", CategoryTruck},
	{"pickup", CategoryTruck},
	{"bus", CategoryBus},
	{"motorcycle", CategoryMotorcycle},
	{"motorbike", CategoryMotorcycle},
	{"bike", CategoryMotorcycle},
	{"scooter", CategoryMotorcycle},
	{"van", CategoryVan},
	{"minivan", CategoryVan},
}

// CanonicalCategory maps a raw detector label onto the closed category set.
// Unmatched labels default to car.
func CanonicalCategory(label string) VehicleCategory {
	lower := strings.ToLower(label)
	for _, entry := range categoryTable {
		if strings.Contains(lower, entry.key) {
			return entry.category
		}
	}
	return CategoryCar
}

// ClassifyVehicle picks the highest-confidence detection from the batch and
// maps it onto a canonical category. Exactly one vehicle per image.
func ClassifyVehicle(batch *models.DetectionBatch) (*VehicleDetection, error) {
	if batch == nil || len(batch.Predictions) == 0 {
		return nil, ErrNoVehicleDetections
	}

	best := batch.Predictions[0]
	for _, det := range batch.Predictions[1:] {
		if det.Confidence > best.Confidence {
			best = det
		}
	}

	return &VehicleDetection{
		Category:   CanonicalCategory(best.Class),
		Label:      best.Class,
		Confidence: best.Confidence,
		X:          best.X,
		Y:          best.Y,
		Width:      best.Width,
		Height:     best.Height,
	}, nil
}
