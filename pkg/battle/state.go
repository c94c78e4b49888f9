package battle

import "fmt"

// Phase is where a battle sits in its round state machine.
type Phase string

const (
	PhaseAwaitingPicks Phase = "awaiting_picks"
	PhaseResolving     Phase = "resolving"
	PhaseOver          Phase = "over"
)

// EndReason explains why a battle reached PhaseOver.
type EndReason string

const (
	EndRoundsComplete EndReason = "rounds_complete"
	EndArmyDepleted   EndReason = "army_depleted"
)

// TiePolicy decides who is recorded as the winner on an exact score tie.
// Under both policies the human side does not win a tie.
type TiePolicy string

const (
	TieGoesToAI TiePolicy = "ai"
	TieIsDraw   TiePolicy = "draw"
)

// Default battle settings.
const (
	DefaultMaxRounds               = 15
	DefaultRoundsPerScoreIncrement = 3
)

// Config holds the inputs needed to start a battle.
type Config struct {
	MaxRounds               int
	RoundsPerScoreIncrement int
	HumanStock              Stock
	AIStock                 Stock
	TiePolicy               TiePolicy
}

// DefaultConfig returns the standard 15-round battle with three of each unit
// per side.
func DefaultConfig() Config {
	return Config{
		MaxRounds:               DefaultMaxRounds,
		RoundsPerScoreIncrement: DefaultRoundsPerScoreIncrement,
		HumanStock:              UniformStock(3),
		AIStock:                 UniformStock(3),
		TiePolicy:               TieGoesToAI,
	}
}

// Validate checks the settings without building a state.
func (c Config) Validate() error {
	if c.MaxRounds < 1 {
		return fmt.Errorf("%w: max rounds must be at least 1, got %d", ErrInvalidConfig, c.MaxRounds)
	}
	if c.RoundsPerScoreIncrement < 1 {
		return fmt.Errorf("%w: rounds per score increment must be at least 1, got %d", ErrInvalidConfig, c.RoundsPerScoreIncrement)
	}
	switch c.TiePolicy {
	case "", TieGoesToAI, TieIsDraw:
	default:
		return fmt.Errorf("%w: unknown tie policy %q", ErrInvalidConfig, c.TiePolicy)
	}
	if err := c.HumanStock.validate(); err != nil {
		return fmt.Errorf("human army: %w", err)
	}
	if err := c.AIStock.validate(); err != nil {
		return fmt.Errorf("ai army: %w", err)
	}
	return nil
}

// RoundResult describes one resolved round.
type RoundResult struct {
	Round      int      `json:"round"`
	HumanPick  UnitType `json:"human_pick"`
	AIPick     UnitType `json:"ai_pick"`
	Winner     Side     `json:"winner,omitempty"` // SideNone on a draw
	Weight     int      `json:"weight"`
	HumanScore int      `json:"human_score"`
	AIScore    int      `json:"ai_score"`
}

// Result is the final outcome of a battle.
type Result struct {
	Winner       Side      `json:"winner,omitempty"` // SideNone only under TieIsDraw
	HumanScore   int       `json:"human_score"`
	AIScore      int       `json:"ai_score"`
	RoundsPlayed int       `json:"rounds_played"`
	Reason       EndReason `json:"reason"`
	Tied         bool      `json:"tied"`
}

// HumanWon reports whether the human side won outright.
func (r Result) HumanWon() bool {
	return r.Winner == SideHuman
}

// State is the full battle state. Strategies receive it read-only; only
// PlayRound and Finish mutate it.
type State struct {
	Round     int // 1-indexed round currently awaiting picks
	MaxRounds int
	Phase     Phase
	Human     *Combatant
	AI        *Combatant
	Scores    ScoreTable
	TiePolicy TiePolicy
	Result    *Result // set once Phase is PhaseOver
}

// NewState validates cfg and returns a battle awaiting picks for round 1.
func NewState(cfg Config) (*State, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	human, err := NewArmy(cfg.HumanStock)
	if err != nil {
		return nil, fmt.Errorf("human army: %w", err)
	}
	ai, err := NewArmy(cfg.AIStock)
	if err != nil {
		return nil, fmt.Errorf("ai army: %w", err)
	}
	tie := cfg.TiePolicy
	if tie == "" {
		tie = TieGoesToAI
	}
	return &State{
		Round:     1,
		MaxRounds: cfg.MaxRounds,
		Phase:     PhaseAwaitingPicks,
		Human:     &Combatant{Side: SideHuman, Army: human},
		AI:        &Combatant{Side: SideAI, Army: ai},
		Scores:    NewScoreTable(cfg.MaxRounds, cfg.RoundsPerScoreIncrement),
		TiePolicy: tie,
	}, nil
}

// Combatant returns the combatant playing side.
func (s *State) Combatant(side Side) *Combatant {
	switch side {
	case SideHuman:
		return s.Human
	case SideAI:
		return s.AI
	}
	return nil
}

// IsOver reports whether the battle has finished.
func (s *State) IsOver() bool {
	return s.Phase == PhaseOver
}

// RoundsPlayed returns the number of completed rounds.
func (s *State) RoundsPlayed() int {
	return len(s.Human.History)
}

// DepletedSide returns a side that cannot pick any more, or SideNone.
func (s *State) DepletedSide() Side {
	if s.Human.Army.Depleted() {
		return SideHuman
	}
	if s.AI.Army.Depleted() {
		return SideAI
	}
	return SideNone
}

// PlayRound resolves the current round with both picks and advances the
// state machine. Both picks must be in stock; an out-of-stock pick returns
// ErrOutOfStock and leaves the state untouched.
func (s *State) PlayRound(humanPick, aiPick UnitType) (RoundResult, error) {
	if s.IsOver() {
		return RoundResult{}, ErrBattleOver
	}
	if !s.Human.Army.HasStock(humanPick) {
		return RoundResult{}, fmt.Errorf("human pick %s: %w", humanPick, ErrOutOfStock)
	}
	if !s.AI.Army.HasStock(aiPick) {
		return RoundResult{}, fmt.Errorf("ai pick %s: %w", aiPick, ErrOutOfStock)
	}

	s.Phase = PhaseResolving
	// Both stocks were checked above, so these cannot fail.
	_ = s.Human.Army.RemoveFromStock(humanPick)
	_ = s.AI.Army.RemoveFromStock(aiPick)

	rr := RoundResult{
		Round:     s.Round,
		HumanPick: humanPick,
		AIPick:    aiPick,
		Weight:    s.Scores.WeightForRound(s.Round),
	}
	switch Winner(humanPick, aiPick) {
	case OutcomeA:
		rr.Winner = SideHuman
		s.Human.Score += rr.Weight
	case OutcomeB:
		rr.Winner = SideAI
		s.AI.Score += rr.Weight
	}
	s.Human.History = append(s.Human.History, humanPick)
	s.AI.History = append(s.AI.History, aiPick)
	rr.HumanScore = s.Human.Score
	rr.AIScore = s.AI.Score

	if s.Round+1 > s.MaxRounds {
		s.Finish(EndRoundsComplete)
	} else {
		s.Round++
		s.Phase = PhaseAwaitingPicks
	}
	return rr, nil
}

// Finish moves the battle to PhaseOver and computes the result. Calling it
// on a finished battle returns the existing result.
func (s *State) Finish(reason EndReason) *Result {
	if s.IsOver() {
		return s.Result
	}
	r := &Result{
		HumanScore:   s.Human.Score,
		AIScore:      s.AI.Score,
		RoundsPlayed: s.RoundsPlayed(),
		Reason:       reason,
	}
	switch {
	case s.Human.Score > s.AI.Score:
		r.Winner = SideHuman
	case s.AI.Score > s.Human.Score:
		r.Winner = SideAI
	default:
		r.Tied = true
		if s.TiePolicy == TieIsDraw {
			r.Winner = SideNone
		} else {
			r.Winner = SideAI
		}
	}
	s.Phase = PhaseOver
	s.Result = r
	return r
}

// Balance returns the human share of the combined score, 0.5 when neither
// side has scored yet.
func (s *State) Balance() float64 {
	total := s.Human.Score + s.AI.Score
	if total == 0 {
		return 0.5
	}
	return float64(s.Human.Score) / float64(total)
}

// Clone returns a deep copy, used to hand out snapshots.
func (s *State) Clone() *State {
	c := &State{
		Round:     s.Round,
		MaxRounds: s.MaxRounds,
		Phase:     s.Phase,
		Human:     s.Human.clone(),
		AI:        s.AI.clone(),
		TiePolicy: s.TiePolicy,
	}
	if s.Scores != nil {
		c.Scores = make(ScoreTable, len(s.Scores))
		copy(c.Scores, s.Scores)
	}
	if s.Result != nil {
		r := *s.Result
		c.Result = &r
	}
	return c
}
