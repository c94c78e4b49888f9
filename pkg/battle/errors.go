package battle

import "errors"

var (
	// ErrOutOfStock means a unit was played with no stock left. It is a
	// contract violation by the picker and ends the battle.
	ErrOutOfStock = errors.New("unit out of stock")

	// ErrArmyDepleted means a side has no units left to pick from.
	ErrArmyDepleted = errors.New("army depleted")

	// ErrInvalidConfig is returned by NewState for unusable battle settings.
	ErrInvalidConfig = errors.New("invalid battle config")

	// ErrBattleOver is returned when a round is played on a finished battle.
	ErrBattleOver = errors.New("battle is over")
)
