package models

import (
	"encoding/json"
	"time"
)

// Detection is one object instance reported by the detection service:
// pixel-space bounding box centre/size, confidence in [0,100] and the raw
// class label from the model vocabulary.
type Detection struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Confidence float64 `json:"confidence"`
	Class      string  `json:"class"`
}

// ImageInfo carries the source image dimensions when the detection service
// reports them.
type ImageInfo struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// DetectionBatch is the parsed response of one detection call.
type DetectionBatch struct {
	Predictions    []Detection `json:"predictions"`
	Image          *ImageInfo  `json:"image,omitempty"`
	AnnotatedImage string      `json:"annotatedImage,omitempty"` // base64, carried through untouched
}

// AllocationRecord is the persisted/published summary of one completed
// allocation: which vehicle got which slot and which route won.
type AllocationRecord struct {
	ID              int64           `json:"id"`
	SessionID       string          `json:"sessionId"`
	Timestamp       time.Time       `json:"timestamp"`
	VehicleCategory string          `json:"vehicleCategory"`
	VehicleLabel    string          `json:"vehicleLabel,omitempty"`
	VehicleConf     float64         `json:"vehicleConfidence"`
	SlotNumber      int             `json:"slotNumber"`
	SlotRow         int             `json:"slotRow"`
	SlotCol         int             `json:"slotCol"`
	SlotDistance    float64         `json:"slotDistance"`
	OptimalPathID   int             `json:"optimalPathId"`
	OptimalScore    float64         `json:"optimalScore"`
	TotalSlots      int             `json:"totalSlots"`
	EmptySlots      int             `json:"emptySlots"`
	Paths           json.RawMessage `json:"paths,omitempty"` // scored path list as JSON
}

// ToJSON serialises the record for event publishing.
func (r *AllocationRecord) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}
