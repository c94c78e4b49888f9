package battle

import "fmt"

// Stock is the configuration form of an army: remaining count per unit type.
type Stock map[UnitType]int

// Total returns the number of units across all types.
func (s Stock) Total() int {
	n := 0
	for _, c := range s {
		n += c
	}
	return n
}

// UniformStock gives every unit type the same count.
func UniformStock(n int) Stock {
	s := make(Stock, NumUnitTypes)
	for _, u := range AllUnitTypes() {
		s[u] = n
	}
	return s
}

// Army is one side's remaining units for the current battle.
type Army struct {
	counts [NumUnitTypes]int
}

// NewArmy builds an army from a stock. Negative counts are rejected.
func NewArmy(s Stock) (*Army, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	a := &Army{}
	for u, c := range s {
		a.counts[u] = c
	}
	return a, nil
}

func (s Stock) validate() error {
	for u, c := range s {
		if !u.Valid() {
			return fmt.Errorf("%w: unknown unit %d", ErrInvalidConfig, int(u))
		}
		if c < 0 {
			return fmt.Errorf("%w: negative stock for %s", ErrInvalidConfig, u)
		}
	}
	return nil
}

// Count returns the remaining stock of u.
func (a *Army) Count(u UnitType) int {
	if !u.Valid() {
		return 0
	}
	return a.counts[u]
}

// HasStock reports whether at least one u remains.
func (a *Army) HasStock(u UnitType) bool {
	return a.Count(u) > 0
}

// Total returns the number of units left across all types.
func (a *Army) Total() int {
	n := 0
	for _, c := range a.counts {
		n += c
	}
	return n
}

// Depleted reports whether no unit of any type remains.
func (a *Army) Depleted() bool {
	return a.Total() == 0
}

// RemoveFromStock spends one u. Callers must check HasStock first.
func (a *Army) RemoveFromStock(u UnitType) error {
	if !a.HasStock(u) {
		return fmt.Errorf("remove %s: %w", u, ErrOutOfStock)
	}
	a.counts[u]--
	return nil
}

// Available returns the unit types with stock left, in declaration order.
func (a *Army) Available() []UnitType {
	var out []UnitType
	for _, u := range AllUnitTypes() {
		if a.counts[u] > 0 {
			out = append(out, u)
		}
	}
	return out
}

// RandomAvailableUnit samples uniformly among the unit types still in stock.
func (a *Army) RandomAvailableUnit(r Rand) (UnitType, error) {
	avail := a.Available()
	if len(avail) == 0 {
		return 0, ErrArmyDepleted
	}
	return avail[orDefault(r).Intn(len(avail))], nil
}

// AvailableCounters returns the in-stock unit types that beat u. An empty
// result means the caller has to fall back to something else.
func (a *Army) AvailableCounters(u UnitType) []UnitType {
	var out []UnitType
	for _, c := range CountersOf(u) {
		if a.HasStock(c) {
			out = append(out, c)
		}
	}
	return out
}

// Stock returns a snapshot of the remaining counts.
func (a *Army) Stock() Stock {
	s := make(Stock, NumUnitTypes)
	for _, u := range AllUnitTypes() {
		s[u] = a.counts[u]
	}
	return s
}

// Clone returns an independent copy.
func (a *Army) Clone() *Army {
	c := *a
	return &c
}
