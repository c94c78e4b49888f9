package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/freeeve/commander-clash/api/internal/model"
)

// CommanderRepository defines progression data operations.
type CommanderRepository interface {
	List(ctx context.Context) ([]model.Commander, error)
	FindByID(ctx context.Context, id string) (*model.Commander, error)
	RecordWin(ctx context.Context, id string) error
	RecordLoss(ctx context.Context, id string) error
	// UnlockNext unlocks the lowest-ordinal locked commander. Returns nil
	// when every commander is already unlocked.
	UnlockNext(ctx context.Context) (*model.Commander, error)
}

// BattleRepository defines battle and round history operations.
type BattleRepository interface {
	Create(ctx context.Context, playerID, commanderID, aiType string, maxRounds int) (*model.Battle, error)
	FindByID(ctx context.Context, id string) (*model.Battle, error)
	ListActive(ctx context.Context) ([]model.Battle, error)
	SaveRound(ctx context.Context, r model.Round) error
	ListRounds(ctx context.Context, battleID string) ([]model.Round, error)
	Finish(ctx context.Context, b model.Battle) error
}

// BattleCache defines live battle state operations (Redis).
type BattleCache interface {
	SetBattleState(ctx context.Context, battleID string, state json.RawMessage) error
	GetBattleState(ctx context.Context, battleID string) (json.RawMessage, error)
	SetDeadline(ctx context.Context, battleID string, deadline time.Time) error
	GetDeadline(ctx context.Context, battleID string) (time.Time, error)
	ClearDeadline(ctx context.Context, battleID string) error
	DeleteBattleData(ctx context.Context, battleID string) error
}
