package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/commander-clash/api/internal/model"
	"github.com/freeeve/commander-clash/api/internal/repository"
	"github.com/freeeve/commander-clash/api/pkg/battle"
)

// RecordResult applies a finished battle to commander progression. A human
// win counts as a win against the commander and unlocks the next commander
// in the roster; anything else, ties included, counts as a loss. Returns
// the newly unlocked commander, if any.
func RecordResult(ctx context.Context, commanders repository.CommanderRepository, commanderID string, res battle.Result) (*model.Commander, error) {
	if !res.HumanWon() {
		if err := commanders.RecordLoss(ctx, commanderID); err != nil {
			return nil, fmt.Errorf("record loss: %w", err)
		}
		return nil, nil
	}

	if err := commanders.RecordWin(ctx, commanderID); err != nil {
		return nil, fmt.Errorf("record win: %w", err)
	}
	unlocked, err := commanders.UnlockNext(ctx)
	if err != nil {
		return nil, fmt.Errorf("unlock next commander: %w", err)
	}
	if unlocked != nil {
		log.Info().Str("commanderId", unlocked.ID).Str("name", unlocked.Name).Msg("Commander unlocked")
	}
	return unlocked, nil
}
