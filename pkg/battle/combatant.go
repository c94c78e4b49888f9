package battle

// Combatant is one side's state for the lifetime of a battle.
type Combatant struct {
	Side    Side
	Army    *Army
	Score   int
	History []UnitType // one pick per completed round, round 1 first
}

// LastPick returns the most recent pick, if any round has been played.
func (c *Combatant) LastPick() (UnitType, bool) {
	if len(c.History) == 0 {
		return 0, false
	}
	return c.History[len(c.History)-1], true
}

// PickAt returns the pick made in the given 1-indexed round.
func (c *Combatant) PickAt(round int) (UnitType, bool) {
	if round < 1 || round > len(c.History) {
		return 0, false
	}
	return c.History[round-1], true
}

// PickCounts tallies how often each unit type has been played.
func (c *Combatant) PickCounts() map[UnitType]int {
	counts := make(map[UnitType]int, NumUnitTypes)
	for _, u := range c.History {
		counts[u]++
	}
	return counts
}

func (c *Combatant) clone() *Combatant {
	cp := &Combatant{Side: c.Side, Army: c.Army.Clone(), Score: c.Score}
	if c.History != nil {
		cp.History = make([]UnitType, len(c.History))
		copy(cp.History, c.History)
	}
	return cp
}
