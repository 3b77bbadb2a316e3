package parking

import "errors"

// ErrNoEmptySlots is the user-visible "no empty slots" condition. The session
// flow survives it; the caller may reset and retry.
var ErrNoEmptySlots = errors.New("no empty slots available")

// Allocate picks exactly one empty slot for the vehicle category:
//
//	car               -> nearest empty slot to the entrance
//	motorcycle        -> farthest empty slot from the entrance
//	truck, bus, van   -> farthest empty corner/edge slot, falling back to the
//	                     first empty slot in spatial order when none qualify
//
// Ties resolve to the first occurrence in spatial order.
func Allocate(category VehicleCategory, slots []Slot) (Slot, error) {
	empty := EmptySlots(slots)
	if len(empty) == 0 {
		return Slot{}, ErrNoEmptySlots
	}

	switch category {
	case CategoryMotorcycle:
		return farthest(empty), nil
	case CategoryTruck, CategoryBus, CategoryVan:
		var boundary []Slot
		for _, slot := range empty {
			if slot.IsCorner || slot.IsEdge {
				boundary = append(boundary, slot)
			}
		}
		if len(boundary) == 0 {
			return empty[0], nil
		}
		return farthest(boundary), nil
	default:
		// car, and any label the classifier defaulted
		return nearest(empty), nil
	}
}

func nearest(slots []Slot) Slot {
	best := slots[0]
	for _, slot := range slots[1:] {
		if slot.DistanceFromEntrance < best.DistanceFromEntrance {
			best = slot
		}
	}
	return best
}

func farthest(slots []Slot) Slot {
	best := slots[0]
	for _, slot := range slots[1:] {
		if slot.DistanceFromEntrance > best.DistanceFromEntrance {
			best = slot
		}
	}
	return best
}
