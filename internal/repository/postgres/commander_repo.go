package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/freeeve/commander-clash/api/internal/model"
)

// CommanderRepo handles the commander roster and its progression counters.
type CommanderRepo struct {
	db *sql.DB
}

// NewCommanderRepo creates a CommanderRepo.
func NewCommanderRepo(db *sql.DB) *CommanderRepo {
	return &CommanderRepo{db: db}
}

const commanderColumns = `id, ordinal, name, ai_type, color, locked, wins, losses, created_at, updated_at`

func scanCommander(row interface{ Scan(...any) error }, c *model.Commander) error {
	return row.Scan(&c.ID, &c.Ordinal, &c.Name, &c.AIType, &c.Color, &c.Locked, &c.Wins, &c.Losses, &c.CreatedAt, &c.UpdatedAt)
}

// List returns every commander, easiest first.
func (r *CommanderRepo) List(ctx context.Context) ([]model.Commander, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+commanderColumns+` FROM commanders ORDER BY ordinal`)
	if err != nil {
		return nil, fmt.Errorf("list commanders: %w", err)
	}
	defer rows.Close()

	var out []model.Commander
	for rows.Next() {
		var c model.Commander
		if err := scanCommander(rows, &c); err != nil {
			return nil, fmt.Errorf("scan commander: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// FindByID returns a commander, or nil if it does not exist.
func (r *CommanderRepo) FindByID(ctx context.Context, id string) (*model.Commander, error) {
	var c model.Commander
	err := scanCommander(r.db.QueryRowContext(ctx,
		`SELECT `+commanderColumns+` FROM commanders WHERE id = $1`, id), &c)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find commander: %w", err)
	}
	return &c, nil
}

// RecordWin increments the player's win count against a commander.
func (r *CommanderRepo) RecordWin(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE commanders SET wins = wins + 1, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("record win: %w", err)
	}
	return nil
}

// RecordLoss increments the player's loss count against a commander.
func (r *CommanderRepo) RecordLoss(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE commanders SET losses = losses + 1, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("record loss: %w", err)
	}
	return nil
}

// UnlockNext unlocks the easiest locked commander and returns it, or nil
// when the whole roster is already unlocked.
func (r *CommanderRepo) UnlockNext(ctx context.Context) (*model.Commander, error) {
	var c model.Commander
	err := scanCommander(r.db.QueryRowContext(ctx,
		`UPDATE commanders SET locked = FALSE, updated_at = now()
		 WHERE id = (SELECT id FROM commanders WHERE locked ORDER BY ordinal LIMIT 1 FOR UPDATE SKIP LOCKED)
		 RETURNING `+commanderColumns), &c)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("unlock next commander: %w", err)
	}
	return &c, nil
}
