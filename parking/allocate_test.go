package parking

import (
	"errors"
	"testing"
)

func threeEmptySlots() []Slot {
	return []Slot{
		{Number: 1, Status: StatusEmpty, DistanceFromEntrance: 50},
		{Number: 2, Status: StatusEmpty, DistanceFromEntrance: 120},
		{Number: 3, Status: StatusEmpty, DistanceFromEntrance: 80},
	}
}

func TestAllocateCarPicksNearest(t *testing.T) {
	t.Parallel()

	slot, err := Allocate(CategoryCar, threeEmptySlots())
	if err != nil {
		t.Fatalf("Allocate returned error: %v", err)
	}
	if slot.DistanceFromEntrance != 50 {
		t.Fatalf("car allocated distance %f, want 50", slot.DistanceFromEntrance)
	}
}

func TestAllocateMotorcyclePicksFarthest(t *testing.T) {
	t.Parallel()

	slot, err := Allocate(CategoryMotorcycle, threeEmptySlots())
	if err != nil {
		t.Fatalf("Allocate returned error: %v", err)
	}
	if slot.DistanceFromEntrance != 120 {
		t.Fatalf("motorcycle allocated distance %f, want 120", slot.DistanceFromEntrance)
	}
}

func TestAllocateTruckPrefersFarthestBoundarySlot(t *testing.T) {
	t.Parallel()

	slots := []Slot{
		{Number: 1, Status: StatusEmpty, DistanceFromEntrance: 200},
		{Number: 2, Status: StatusEmpty, DistanceFromEntrance: 90, IsEdge: true},
		{Number: 3, Status: StatusEmpty, DistanceFromEntrance: 150, IsCorner: true, IsEdge: true},
	}

	for _, category := range []VehicleCategory{CategoryTruck, CategoryBus, CategoryVan} {
		slot, err := Allocate(category, slots)
		if err != nil {
			t.Fatalf("Allocate(%s) returned error: %v", category, err)
		}
		if slot.Number != 3 {
			t.Errorf("%s allocated slot %d, want 3 (farthest boundary)", category, slot.Number)
		}
	}
}

func TestAllocateTruckFallsBackToFirstEmpty(t *testing.T) {
	t.Parallel()

	// No corner/edge candidates: fall back to the first empty slot in
	// spatial order.
	slots := []Slot{
		{Number: 4, Status: StatusOccupied, DistanceFromEntrance: 10},
		{Number: 5, Status: StatusEmpty, DistanceFromEntrance: 90},
		{Number: 6, Status: StatusEmpty, DistanceFromEntrance: 150},
	}

	slot, err := Allocate(CategoryTruck, slots)
	if err != nil {
		t.Fatalf("Allocate returned error: %v", err)
	}
	if slot.Number != 5 {
		t.Fatalf("truck fallback allocated slot %d, want 5", slot.Number)
	}
}

func TestAllocateTieKeepsFirstOccurrence(t *testing.T) {
	t.Parallel()

	slots := []Slot{
		{Number: 1, Status: StatusEmpty, DistanceFromEntrance: 75},
		{Number: 2, Status: StatusEmpty, DistanceFromEntrance: 75},
	}

	car, err := Allocate(CategoryCar, slots)
	if err != nil {
		t.Fatalf("Allocate returned error: %v", err)
	}
	if car.Number != 1 {
		t.Errorf("car tie-break allocated slot %d, want 1", car.Number)
	}

	moto, err := Allocate(CategoryMotorcycle, slots)
	if err != nil {
		t.Fatalf("Allocate returned error: %v", err)
	}
	if moto.Number != 1 {
		t.Errorf("motorcycle tie-break allocated slot %d, want 1", moto.Number)
	}
}

func TestAllocateNoEmptySlots(t *testing.T) {
	t.Parallel()

	slots := []Slot{
		{Number: 1, Status: StatusOccupied},
		{Number: 2, Status: StatusOccupied},
	}
	if _, err := Allocate(CategoryCar, slots); !errors.Is(err, ErrNoEmptySlots) {
		t.Fatalf("expected ErrNoEmptySlots, got %v", err)
	}
	if _, err := Allocate(CategoryCar, nil); !errors.Is(err, ErrNoEmptySlots) {
		t.Fatalf("expected ErrNoEmptySlots for nil input, got %v", err)
	}
}
