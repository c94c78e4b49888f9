package bot

import (
	"github.com/freeeve/commander-clash/api/pkg/battle"
)

// ThrowbackStrategy plays two random units, then counters whatever the
// opponent played two rounds before the current one. The two-round lag is
// what makes it beatable by a player who varies their picks.
type ThrowbackStrategy struct {
	baseStrategy
	hasDoneFirstPick  bool
	hasDoneSecondPick bool
}

// NewThrowbackStrategy returns a Throwback AI with the default decision delay.
func NewThrowbackStrategy() *ThrowbackStrategy {
	return &ThrowbackStrategy{
		baseStrategy: baseStrategy{name: string(AIThrowback), delay: DefaultDecisionDelay},
	}
}

func (t *ThrowbackStrategy) PickUnit(s *battle.State, side battle.Side) battle.UnitType {
	if !t.hasDoneFirstPick {
		t.hasDoneFirstPick = true
		return randomInStock(s, side)
	}
	if !t.hasDoneSecondPick {
		t.hasDoneSecondPick = true
		return randomInStock(s, side)
	}

	opp := s.Combatant(side.Opponent())
	idx := s.Round - 3
	if idx < 0 || idx >= len(opp.History) {
		return randomInStock(s, side)
	}
	return counterIfStocked(s, side, opp.History[idx])
}
