package bot

import (
	"github.com/freeeve/commander-clash/api/pkg/battle"
)

// --- DrunkStrategy ---

// DrunkStrategy picks a random in-stock unit every round.
type DrunkStrategy struct{ baseStrategy }

func (d *DrunkStrategy) PickUnit(s *battle.State, side battle.Side) battle.UnitType {
	return randomInStock(s, side)
}

// --- DrunkResilientStrategy ---

// DrunkResilientStrategy is random but avoids repeating its previous pick
// while anything else is in stock.
type DrunkResilientStrategy struct{ baseStrategy }

func (d *DrunkResilientStrategy) PickUnit(s *battle.State, side battle.Side) battle.UnitType {
	self := s.Combatant(side)
	last, ok := self.LastPick()
	if !ok {
		return randomInStock(s, side)
	}
	var others []battle.UnitType
	for _, u := range self.Army.Available() {
		if u != last {
			others = append(others, u)
		}
	}
	return pickAmong(s, side, others)
}

// --- WalkStrategy ---

// WalkStrategy steps around the counter ring from its own previous pick:
// step 1 is clockwise, -1 counter-clockwise. Out-of-stock units are skipped.
type WalkStrategy struct {
	baseStrategy
	step int
}

func (w *WalkStrategy) PickUnit(s *battle.State, side battle.Side) battle.UnitType {
	self := s.Combatant(side)
	last, ok := self.LastPick()
	if !ok {
		return randomInStock(s, side)
	}
	for i := 1; i <= battle.NumUnitTypes; i++ {
		if u := battle.Next(last, i*w.step); self.Army.HasStock(u) {
			return u
		}
	}
	return randomInStock(s, side)
}

// --- SelfCounterStrategy ---

// SelfCounterStrategy expects to be countered and plays a counter to its own
// previous pick.
type SelfCounterStrategy struct{ baseStrategy }

func (sc *SelfCounterStrategy) PickUnit(s *battle.State, side battle.Side) battle.UnitType {
	last, ok := s.Combatant(side).LastPick()
	if !ok {
		return randomInStock(s, side)
	}
	return counterIfStocked(s, side, last)
}

// --- PlayerCounterStrategy ---

// PlayerCounterStrategy counters the opponent's previous-round pick.
type PlayerCounterStrategy struct{ baseStrategy }

func (p *PlayerCounterStrategy) PickUnit(s *battle.State, side battle.Side) battle.UnitType {
	last, ok := s.Combatant(side.Opponent()).LastPick()
	if !ok {
		return randomInStock(s, side)
	}
	return counterIfStocked(s, side, last)
}

// --- CommonHumanStrategy ---

// CommonHumanStrategy counters the opponent's most frequent pick so far.
// Ties between equally frequent picks are broken at random.
type CommonHumanStrategy struct{ baseStrategy }

func (c *CommonHumanStrategy) PickUnit(s *battle.State, side battle.Side) battle.UnitType {
	counts := s.Combatant(side.Opponent()).PickCounts()
	best := 0
	var favourites []battle.UnitType
	for _, u := range battle.AllUnitTypes() {
		n := counts[u]
		switch {
		case n == 0:
		case n > best:
			best = n
			favourites = []battle.UnitType{u}
		case n == best:
			favourites = append(favourites, u)
		}
	}
	if len(favourites) == 0 {
		return randomInStock(s, side)
	}
	return counterIfStocked(s, side, favourites[botIntn(len(favourites))])
}

// --- PlayerStockStrategy ---

// PlayerStockStrategy plays the in-stock unit that beats the most of the
// opponent's remaining units.
type PlayerStockStrategy struct{ baseStrategy }

func (p *PlayerStockStrategy) PickUnit(s *battle.State, side battle.Side) battle.UnitType {
	self := s.Combatant(side)
	opp := s.Combatant(side.Opponent())
	best := -1
	var candidates []battle.UnitType
	for _, u := range self.Army.Available() {
		beaten := 0
		for _, v := range battle.AllUnitTypes() {
			if battle.Beats(u, v) {
				beaten += opp.Army.Count(v)
			}
		}
		switch {
		case beaten > best:
			best = beaten
			candidates = []battle.UnitType{u}
		case beaten == best:
			candidates = append(candidates, u)
		}
	}
	return pickAmong(s, side, candidates)
}

// --- SmartHumanStrategy ---

// SmartHumanStrategy assumes the opponent will counter the AI's previous
// pick, and counters one of those counters.
type SmartHumanStrategy struct{ baseStrategy }

func (sh *SmartHumanStrategy) PickUnit(s *battle.State, side battle.Side) battle.UnitType {
	self := s.Combatant(side)
	last, ok := self.LastPick()
	if !ok {
		return randomInStock(s, side)
	}
	opp := s.Combatant(side.Opponent())
	var expected []battle.UnitType
	for _, c := range battle.CountersOf(last) {
		if opp.Army.HasStock(c) {
			expected = append(expected, c)
		}
	}
	if len(expected) == 0 {
		return randomInStock(s, side)
	}
	return counterIfStocked(s, side, expected[botIntn(len(expected))])
}
