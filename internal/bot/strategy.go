package bot

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/freeeve/commander-clash/api/pkg/battle"
)

// ErrUnknownStrategy is returned when an AI type tag has no implementation.
var ErrUnknownStrategy = errors.New("unknown ai strategy")

// DefaultDecisionDelay is how long the human side gets to pick before the
// engine falls back to a random unit.
const DefaultDecisionDelay = 10 * time.Second

// Strategy chooses the unit an AI-controlled side plays each round.
type Strategy interface {
	Name() string
	// DecisionDelay is the decision window granted to the human each round.
	DecisionDelay() time.Duration
	// PickUnit returns a unit in stock for side's army. The state must not
	// be modified.
	PickUnit(s *battle.State, side battle.Side) battle.UnitType
}

// AIType tags a strategy variant, as stored on a commander.
type AIType string

const (
	AIClockwise        AIType = "clockwise"
	AICounterClockwise AIType = "counter_clockwise"
	AIDrunk            AIType = "drunk"
	AIDrunkResilient   AIType = "drunk_resilient"
	AISelfCounter      AIType = "self_counter"
	AIPlayerCounter    AIType = "player_counter"
	AICommonHuman      AIType = "common_human"
	AIPlayerStock      AIType = "player_stock"
	AIThrowback        AIType = "throwback"
	AISmartHuman       AIType = "smart_human"
)

// AllAITypes returns every registered variant, roughly easiest first.
func AllAITypes() []AIType {
	return []AIType{
		AIDrunk, AIClockwise, AICounterClockwise, AIDrunkResilient, AISelfCounter,
		AIPlayerStock, AICommonHuman, AIPlayerCounter, AIThrowback, AISmartHuman,
	}
}

// StrategyForType returns a fresh strategy for an AI type tag. Strategies
// carry per-battle memory, so each battle needs its own instance.
func StrategyForType(t AIType) (Strategy, error) {
	norm := AIType(strings.ToLower(strings.TrimSpace(string(t))))
	base := baseStrategy{name: string(norm), delay: DefaultDecisionDelay}
	switch norm {
	case AIClockwise:
		return &WalkStrategy{baseStrategy: base, step: 1}, nil
	case AICounterClockwise:
		return &WalkStrategy{baseStrategy: base, step: -1}, nil
	case AIDrunk:
		return &DrunkStrategy{baseStrategy: base}, nil
	case AIDrunkResilient:
		return &DrunkResilientStrategy{baseStrategy: base}, nil
	case AISelfCounter:
		return &SelfCounterStrategy{baseStrategy: base}, nil
	case AIPlayerCounter:
		return &PlayerCounterStrategy{baseStrategy: base}, nil
	case AICommonHuman:
		return &CommonHumanStrategy{baseStrategy: base}, nil
	case AIPlayerStock:
		return &PlayerStockStrategy{baseStrategy: base}, nil
	case AIThrowback:
		return NewThrowbackStrategy(), nil
	case AISmartHuman:
		return &SmartHumanStrategy{baseStrategy: base}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, t)
}

// WithDecisionDelay overrides a strategy's decision window when it supports
// it. Strategies built by StrategyForType all do.
func WithDecisionDelay(s Strategy, d time.Duration) Strategy {
	if d <= 0 {
		return s
	}
	if ds, ok := s.(interface{ setDelay(time.Duration) }); ok {
		ds.setDelay(d)
	}
	return s
}

// baseStrategy carries the fields every variant shares.
type baseStrategy struct {
	name  string
	delay time.Duration
}

func (b *baseStrategy) Name() string                 { return b.name }
func (b *baseStrategy) DecisionDelay() time.Duration { return b.delay }
func (b *baseStrategy) setDelay(d time.Duration)     { b.delay = d }

// randomInStock picks any unit still available to side. A depleted army is
// checked by the engine before a pick is requested, so it cannot happen
// here; Knights is returned to keep the signature total.
func randomInStock(s *battle.State, side battle.Side) battle.UnitType {
	u, err := s.Combatant(side).Army.RandomAvailableUnit(Rand())
	if err != nil {
		return battle.Knights
	}
	return u
}

// pickAmong returns a random element of candidates, or a random in-stock
// unit when candidates is empty.
func pickAmong(s *battle.State, side battle.Side, candidates []battle.UnitType) battle.UnitType {
	if len(candidates) == 0 {
		return randomInStock(s, side)
	}
	return candidates[botIntn(len(candidates))]
}

// counterIfStocked picks a random in-stock counter to target, falling back
// to any in-stock unit.
func counterIfStocked(s *battle.State, side battle.Side, target battle.UnitType) battle.UnitType {
	return pickAmong(s, side, s.Combatant(side).Army.AvailableCounters(target))
}
