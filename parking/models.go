package parking

// SlotStatus is the derived occupancy state of a parking slot.
type SlotStatus string

const (
	StatusEmpty    SlotStatus = "empty"
	StatusOccupied SlotStatus = "occupied"
)

// VehicleCategory is one of the closed set of canonical categories the
// allocation policy reasons about.
type VehicleCategory string

const (
	CategoryCar        VehicleCategory = "car"
	CategoryTruck      VehicleCategory = "truck"
	CategoryBus        VehicleCategory = "bus"
	CategoryMotorcycle VehicleCategory = "motorcycle"
	CategoryVan        VehicleCategory = "van"
)

// Slot is a normalized, addressable parking space derived from one detection
// plus its position among peers. Immutable once created: every derived field
// is a pure function of the detection batch.
type Slot struct {
	Number               int        `json:"slotNumber"` // 1-based, assigned in spatial sort order
	Row                  int        `json:"row"`
	Col                  int        `json:"col"`
	Status               SlotStatus `json:"status"`
	IsCorner             bool       `json:"isCorner"`
	IsEdge               bool       `json:"isEdge"`
	DistanceFromEntrance float64    `json:"distanceFromEntrance"` // pixel units
	Confidence           float64    `json:"confidence"`
	OriginalClass        string     `json:"originalClass"`
	X                    float64    `json:"x"`
	Y                    float64    `json:"y"`
}

// VehicleDetection is the highest-confidence detection from the vehicle
// model, mapped onto a canonical category.
type VehicleDetection struct {
	Category   VehicleCategory `json:"category"`
	Label      string          `json:"label"` // raw class label, unmodified
	Confidence float64         `json:"confidence"`
	X          float64         `json:"x"`
	Y          float64         `json:"y"`
	Width      float64         `json:"width"`
	Height     float64         `json:"height"`
}

// Path is a synthetic candidate route to the allocated slot. Intensity and
// Score are nil until sensing and scoring have run.
type Path struct {
	ID              int      `json:"id"`
	Name            string   `json:"name"`
	Distance        float64  `json:"distance"`   // length units
	TJunctions      int      `json:"tJunctions"` // non-negative
	Intensity       *int     `json:"vehicleIntensity,omitempty"` // 0..100
	Score           *float64 `json:"score,omitempty"`
	ManualIntensity bool     `json:"manualIntensity,omitempty"` // override wins over simulation once set
}
