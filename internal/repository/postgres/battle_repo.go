package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/freeeve/commander-clash/api/internal/model"
)

// BattleRepo handles battle and round history.
type BattleRepo struct {
	db *sql.DB
}

// NewBattleRepo creates a BattleRepo.
func NewBattleRepo(db *sql.DB) *BattleRepo {
	return &BattleRepo{db: db}
}

const battleColumns = `id, player_id, commander_id, ai_type, status, winner, human_score, ai_score,
	max_rounds, rounds_played, end_reason, started_at, finished_at`

func scanBattle(row interface{ Scan(...any) error }, b *model.Battle) error {
	var commanderID, winner, reason sql.NullString
	if err := row.Scan(&b.ID, &b.PlayerID, &commanderID, &b.AIType, &b.Status, &winner, &b.HumanScore, &b.AIScore,
		&b.MaxRounds, &b.RoundsPlayed, &reason, &b.StartedAt, &b.FinishedAt); err != nil {
		return err
	}
	b.CommanderID = commanderID.String
	b.Winner = winner.String
	b.EndReason = reason.String
	return nil
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Create inserts a new active battle. An empty commanderID is stored as NULL.
func (r *BattleRepo) Create(ctx context.Context, playerID, commanderID, aiType string, maxRounds int) (*model.Battle, error) {
	var b model.Battle
	err := scanBattle(r.db.QueryRowContext(ctx,
		`INSERT INTO battles (player_id, commander_id, ai_type, max_rounds)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+battleColumns,
		playerID, nullIfEmpty(commanderID), aiType, maxRounds), &b)
	if err != nil {
		return nil, fmt.Errorf("create battle: %w", err)
	}
	return &b, nil
}

// FindByID returns a battle, or nil if it does not exist.
func (r *BattleRepo) FindByID(ctx context.Context, id string) (*model.Battle, error) {
	var b model.Battle
	err := scanBattle(r.db.QueryRowContext(ctx, `SELECT `+battleColumns+` FROM battles WHERE id = $1`, id), &b)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find battle: %w", err)
	}
	return &b, nil
}

// ListActive returns battles that have not finished or been aborted.
func (r *BattleRepo) ListActive(ctx context.Context) ([]model.Battle, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+battleColumns+` FROM battles WHERE status = 'active' ORDER BY started_at`)
	if err != nil {
		return nil, fmt.Errorf("list active battles: %w", err)
	}
	defer rows.Close()

	var out []model.Battle
	for rows.Next() {
		var b model.Battle
		if err := scanBattle(rows, &b); err != nil {
			return nil, fmt.Errorf("scan battle: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// SaveRound records a resolved round and keeps the battle's running totals
// in step.
func (r *BattleRepo) SaveRound(ctx context.Context, rd model.Round) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO rounds (battle_id, round, human_pick, ai_pick, winner, weight, human_score, ai_score, human_fallback)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rd.BattleID, rd.Round, rd.HumanPick, rd.AIPick, nullIfEmpty(rd.Winner), rd.Weight,
		rd.HumanScore, rd.AIScore, rd.HumanFallback)
	if err != nil {
		return fmt.Errorf("insert round: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE battles SET human_score = $1, ai_score = $2, rounds_played = $3 WHERE id = $4`,
		rd.HumanScore, rd.AIScore, rd.Round, rd.BattleID)
	if err != nil {
		return fmt.Errorf("update battle totals: %w", err)
	}
	return tx.Commit()
}

// ListRounds returns a battle's rounds in play order.
func (r *BattleRepo) ListRounds(ctx context.Context, battleID string) ([]model.Round, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT battle_id, round, human_pick, ai_pick, winner, weight, human_score, ai_score, human_fallback, created_at
		 FROM rounds WHERE battle_id = $1 ORDER BY round`, battleID)
	if err != nil {
		return nil, fmt.Errorf("list rounds: %w", err)
	}
	defer rows.Close()

	var out []model.Round
	for rows.Next() {
		var rd model.Round
		var winner sql.NullString
		if err := rows.Scan(&rd.BattleID, &rd.Round, &rd.HumanPick, &rd.AIPick, &winner, &rd.Weight,
			&rd.HumanScore, &rd.AIScore, &rd.HumanFallback, &rd.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan round: %w", err)
		}
		rd.Winner = winner.String
		out = append(out, rd)
	}
	return out, rows.Err()
}

// Finish records a battle's final status. For aborted battles the scores
// already saved with the rounds are kept.
func (r *BattleRepo) Finish(ctx context.Context, b model.Battle) error {
	var err error
	if b.Status == model.BattleAborted {
		_, err = r.db.ExecContext(ctx,
			`UPDATE battles SET status = $1, finished_at = now() WHERE id = $2 AND status = 'active'`,
			b.Status, b.ID)
	} else {
		_, err = r.db.ExecContext(ctx,
			`UPDATE battles SET status = $1, winner = $2, human_score = $3, ai_score = $4,
			        rounds_played = $5, end_reason = $6, finished_at = now()
			 WHERE id = $7`,
			b.Status, nullIfEmpty(b.Winner), b.HumanScore, b.AIScore, b.RoundsPlayed, nullIfEmpty(b.EndReason), b.ID)
	}
	if err != nil {
		return fmt.Errorf("finish battle: %w", err)
	}
	return nil
}
