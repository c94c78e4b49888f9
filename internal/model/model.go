package model

import "time"

// Battle statuses.
const (
	BattleActive   = "active"
	BattleFinished = "finished"
	BattleAborted  = "aborted"
)

// Commander is an AI opponent on the progression ladder. Ordinal orders
// commanders by difficulty, 0 being the easiest.
type Commander struct {
	ID        string    `json:"id"`
	Ordinal   int       `json:"ordinal"`
	Name      string    `json:"name"`
	AIType    string    `json:"ai_type"`
	Color     string    `json:"color"`
	Locked    bool      `json:"locked"`
	Wins      int       `json:"wins"`   // battles the player won against this commander
	Losses    int       `json:"losses"` // battles the player lost or drew
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Battle is one played (or in-progress) battle against a commander.
type Battle struct {
	ID           string     `json:"id"`
	PlayerID     string     `json:"player_id"`
	CommanderID  string     `json:"commander_id"`
	AIType       string     `json:"ai_type"`
	Status       string     `json:"status"` // active, finished, aborted
	Winner       string     `json:"winner,omitempty"`
	HumanScore   int        `json:"human_score"`
	AIScore      int        `json:"ai_score"`
	MaxRounds    int        `json:"max_rounds"`
	RoundsPlayed int        `json:"rounds_played"`
	EndReason    string     `json:"end_reason,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

// Round is a resolved round of a battle.
type Round struct {
	BattleID      string    `json:"battle_id"`
	Round         int       `json:"round"`
	HumanPick     string    `json:"human_pick"`
	AIPick        string    `json:"ai_pick"`
	Winner        string    `json:"winner,omitempty"` // empty on a draw
	Weight        int       `json:"weight"`
	HumanScore    int       `json:"human_score"`
	AIScore       int       `json:"ai_score"`
	HumanFallback bool      `json:"human_fallback"` // human pick was substituted at random
	CreatedAt     time.Time `json:"created_at"`
}
