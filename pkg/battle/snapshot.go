package battle

import "fmt"

// Snapshot is the serialisable view of a battle used by caches and clients.
type Snapshot struct {
	Round      int        `json:"round"`
	MaxRounds  int        `json:"max_rounds"`
	Phase      Phase      `json:"phase"`
	HumanScore int        `json:"human_score"`
	AIScore    int        `json:"ai_score"`
	Balance    float64    `json:"balance"`
	HumanStock Stock      `json:"human_stock"`
	AIStock    Stock      `json:"ai_stock"`
	HumanPicks []UnitType `json:"human_picks"`
	AIPicks    []UnitType `json:"ai_picks"`
	Weights    []int      `json:"weights"`
	Result     *Result    `json:"result,omitempty"`
}

// Snapshot captures the current state. The returned value shares nothing
// with s.
func (s *State) Snapshot() Snapshot {
	c := s.Clone()
	snap := Snapshot{
		Round:      c.Round,
		MaxRounds:  c.MaxRounds,
		Phase:      c.Phase,
		HumanScore: c.Human.Score,
		AIScore:    c.AI.Score,
		Balance:    c.Balance(),
		HumanStock: c.Human.Army.Stock(),
		AIStock:    c.AI.Army.Stock(),
		HumanPicks: c.Human.History,
		AIPicks:    c.AI.History,
		Weights:    c.Scores,
		Result:     c.Result,
	}
	if snap.HumanPicks == nil {
		snap.HumanPicks = []UnitType{}
	}
	if snap.AIPicks == nil {
		snap.AIPicks = []UnitType{}
	}
	return snap
}

// Restore rebuilds a State from a snapshot. Remote players use it to run a
// strategy against the server's view of a battle. The tie policy is not part
// of the snapshot and comes back as TieGoesToAI.
func (snap Snapshot) Restore() (*State, error) {
	human, err := NewArmy(snap.HumanStock)
	if err != nil {
		return nil, fmt.Errorf("human army: %w", err)
	}
	ai, err := NewArmy(snap.AIStock)
	if err != nil {
		return nil, fmt.Errorf("ai army: %w", err)
	}
	if len(snap.HumanPicks) != len(snap.AIPicks) {
		return nil, fmt.Errorf("%w: %d human picks vs %d ai picks", ErrInvalidConfig, len(snap.HumanPicks), len(snap.AIPicks))
	}
	return &State{
		Round:     snap.Round,
		MaxRounds: snap.MaxRounds,
		Phase:     snap.Phase,
		Human:     &Combatant{Side: SideHuman, Army: human, Score: snap.HumanScore, History: append([]UnitType(nil), snap.HumanPicks...)},
		AI:        &Combatant{Side: SideAI, Army: ai, Score: snap.AIScore, History: append([]UnitType(nil), snap.AIPicks...)},
		Scores:    append(ScoreTable(nil), snap.Weights...),
		TiePolicy: TieGoesToAI,
		Result:    snap.Result,
	}, nil
}
