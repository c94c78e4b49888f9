package bot

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/commander-clash/api/internal/model"
	"github.com/freeeve/commander-clash/api/internal/repository"
	"github.com/freeeve/commander-clash/api/pkg/battle"
)

// ArenaPlayerID is recorded as the player on arena battles.
const ArenaPlayerID = "arena"

// ArenaConfig configures a headless strategy-vs-strategy battle. The
// challenger plays the human side.
type ArenaConfig struct {
	Challenger  AIType
	Defender    AIType
	Battle      battle.Config
	CommanderID string // recorded on the battle row; empty for dry runs
	DryRun      bool   // skip DB writes
}

// ArenaResult describes the outcome of a completed arena battle.
type ArenaResult struct {
	BattleID   string
	Challenger AIType
	Defender   AIType
	Result     battle.Result
}

// RunMatch plays a full battle between two strategies, saving rounds to the
// repository unless cfg.DryRun is set. Pass a nil repo for dry runs.
func RunMatch(ctx context.Context, cfg ArenaConfig, battleRepo repository.BattleRepository) (*ArenaResult, error) {
	challenger, err := StrategyForType(cfg.Challenger)
	if err != nil {
		return nil, fmt.Errorf("challenger: %w", err)
	}
	defender, err := StrategyForType(cfg.Defender)
	if err != nil {
		return nil, fmt.Errorf("defender: %w", err)
	}

	st, err := battle.NewState(cfg.Battle)
	if err != nil {
		return nil, err
	}

	// Dry runs are never stored, so they get a local ID for logs and output.
	battleID := uuid.NewString()
	if !cfg.DryRun {
		b, err := battleRepo.Create(ctx, ArenaPlayerID, cfg.CommanderID, string(cfg.Defender), cfg.Battle.MaxRounds)
		if err != nil {
			return nil, fmt.Errorf("create arena battle: %w", err)
		}
		battleID = b.ID
	}

	for !st.IsOver() {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if st.DepletedSide() != battle.SideNone {
			st.Finish(battle.EndArmyDepleted)
			break
		}

		hp := challenger.PickUnit(st, battle.SideHuman)
		ap := defender.PickUnit(st, battle.SideAI)
		rr, err := st.PlayRound(hp, ap)
		if err != nil {
			return nil, fmt.Errorf("round %d: %w", st.Round, err)
		}

		if !cfg.DryRun {
			if err := battleRepo.SaveRound(ctx, RoundRecord(battleID, rr, false)); err != nil {
				return nil, fmt.Errorf("save round: %w", err)
			}
		}
	}

	res := *st.Result
	if !cfg.DryRun {
		if err := battleRepo.Finish(ctx, FinishedBattle(battleID, res)); err != nil {
			return nil, fmt.Errorf("finish arena battle: %w", err)
		}
	}
	log.Debug().Str("battleId", battleID).
		Str("challenger", string(cfg.Challenger)).Str("defender", string(cfg.Defender)).
		Str("winner", string(res.Winner)).Int("humanScore", res.HumanScore).Int("aiScore", res.AIScore).
		Msg("Arena battle finished")

	return &ArenaResult{
		BattleID:   battleID,
		Challenger: cfg.Challenger,
		Defender:   cfg.Defender,
		Result:     res,
	}, nil
}

// RoundRecord converts a resolved round into its persisted form.
func RoundRecord(battleID string, rr battle.RoundResult, fallback bool) model.Round {
	return model.Round{
		BattleID:      battleID,
		Round:         rr.Round,
		HumanPick:     rr.HumanPick.String(),
		AIPick:        rr.AIPick.String(),
		Winner:        string(rr.Winner),
		Weight:        rr.Weight,
		HumanScore:    rr.HumanScore,
		AIScore:       rr.AIScore,
		HumanFallback: fallback,
	}
}

// FinishedBattle converts a final result into the battle row update.
func FinishedBattle(battleID string, res battle.Result) model.Battle {
	return model.Battle{
		ID:           battleID,
		Status:       model.BattleFinished,
		Winner:       string(res.Winner),
		HumanScore:   res.HumanScore,
		AIScore:      res.AIScore,
		RoundsPlayed: res.RoundsPlayed,
		EndReason:    string(res.Reason),
	}
}

// Tally aggregates arena results per challenger/defender pairing.
type Tally struct {
	Battles        int
	ChallengerWins int
	DefenderWins   int
	Ties           int
	ScoreDiff      int // sum of challenger minus defender score
}

// Key identifies a pairing in a tally map.
func (r ArenaResult) Key() string {
	return string(r.Challenger) + " vs " + string(r.Defender)
}

// Add folds one result into the tally.
func (t *Tally) Add(r battle.Result) {
	t.Battles++
	switch {
	case r.Tied:
		t.Ties++
	case r.Winner == battle.SideHuman:
		t.ChallengerWins++
	default:
		t.DefenderWins++
	}
	t.ScoreDiff += r.HumanScore - r.AIScore
}

// String renders a one-line summary.
func (t Tally) String() string {
	if t.Battles == 0 {
		return "no battles"
	}
	avg := float64(t.ScoreDiff) / float64(t.Battles)
	return strconv.Itoa(t.ChallengerWins) + "W/" + strconv.Itoa(t.DefenderWins) + "L/" +
		strconv.Itoa(t.Ties) + "T avg diff " + strconv.FormatFloat(avg, 'f', 2, 64)
}
