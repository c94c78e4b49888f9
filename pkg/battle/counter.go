package battle

// cycle is the counter ring: each unit beats the next two entries and loses
// to the previous two.
var cycle = [NumUnitTypes]UnitType{Knights, Archers, Mages, Spearmen, Shields}

// cyclePos is the inverse of cycle, computed once at init.
var cyclePos [NumUnitTypes]int

func init() {
	for i, u := range cycle {
		cyclePos[u] = i
	}
}

// Outcome is the result of a single fight between two picks.
type Outcome int

const (
	OutcomeDraw Outcome = iota
	OutcomeA
	OutcomeB
)

func (o Outcome) String() string {
	switch o {
	case OutcomeA:
		return "a"
	case OutcomeB:
		return "b"
	}
	return "draw"
}

// CycleOrder returns the counter ring starting at Knights.
func CycleOrder() []UnitType {
	out := make([]UnitType, NumUnitTypes)
	copy(out, cycle[:])
	return out
}

// Next returns the unit steps positions after u on the counter ring.
// Negative steps walk the ring backwards.
func Next(u UnitType, steps int) UnitType {
	p := ((cyclePos[u]+steps)%NumUnitTypes + NumUnitTypes) % NumUnitTypes
	return cycle[p]
}

// Beats reports whether a wins a fight against b.
func Beats(a, b UnitType) bool {
	d := (cyclePos[b] - cyclePos[a] + NumUnitTypes) % NumUnitTypes
	return d == 1 || d == 2
}

// Winner resolves a fight between a (side A) and b (side B).
// Identical picks are a draw: neither side scores.
func Winner(a, b UnitType) Outcome {
	switch {
	case a == b:
		return OutcomeDraw
	case Beats(a, b):
		return OutcomeA
	default:
		return OutcomeB
	}
}

// CountersOf returns the two unit types that beat u, in ring order.
func CountersOf(u UnitType) []UnitType {
	return []UnitType{Next(u, -2), Next(u, -1)}
}
