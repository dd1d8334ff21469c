package domain

// Strategy selects the allocation objective.
type Strategy string

const (
	// StrategyExpected spreads units with quadratic rank weights (balanced EV maximisation).
	StrategyExpected Strategy = "expected"
	// StrategyRiskReward concentrates units on the top-scoring categories.
	StrategyRiskReward Strategy = "riskReward"
)

// String returns the string representation of Strategy.
func (s Strategy) String() string {
	return string(s)
}

// IsValid checks if the strategy is a known value.
func (s Strategy) IsValid() bool {
	return s == StrategyExpected || s == StrategyRiskReward
}

// Allocation maps category ID to the number of material units assigned.
type Allocation map[string]int

// Total returns the sum of all assigned units.
func (a Allocation) Total() int {
	total := 0
	for _, n := range a {
		total += n
	}
	return total
}

// Clone returns a copy of the allocation.
func (a Allocation) Clone() Allocation {
	out := make(Allocation, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}
