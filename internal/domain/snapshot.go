package domain

// Snapshot is a read-only view of a workspace handed to the calculation core.
// Categories keep insertion (display) order; Materials and Products are keyed
// by category ID. Order is not significant to any calculation.
type Snapshot struct {
	Categories []Category
	Materials  map[string][]Material
	Products   map[string][]Product
}

// MaterialUnits returns the number of material units held by a category.
func (s Snapshot) MaterialUnits(categoryID string) int {
	units := 0
	for _, m := range s.Materials[categoryID] {
		units += m.Count
	}
	return units
}

// Totals returns the total material units (the allocation budget) and the
// total material cost X₀, both summed across every category.
func (s Snapshot) Totals() (units int, cost float64) {
	for _, c := range s.Categories {
		for _, m := range s.Materials[c.ID] {
			units += m.Count
			cost += m.Cost()
		}
	}
	return units, cost
}

// CurrentAllocation returns the literal material units per category,
// omitting categories that hold no units.
func (s Snapshot) CurrentAllocation() Allocation {
	alloc := make(Allocation)
	for _, c := range s.Categories {
		if units := s.MaterialUnits(c.ID); units > 0 {
			alloc[c.ID] = units
		}
	}
	return alloc
}
