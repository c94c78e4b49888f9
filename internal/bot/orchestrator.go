package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/commander-clash/api/internal/model"
	"github.com/freeeve/commander-clash/api/pkg/battle"
)

var (
	// ErrNoCommander is returned when no unlocked commander matches the request.
	ErrNoCommander = errors.New("no playable commander")
	// ErrNoWindow is returned when a pick is attempted between windows.
	ErrNoWindow = errors.New("no open decision window")
)

// Orchestrator plays one battle against a running server as a remote human
// player, choosing each pick with a local strategy.
type Orchestrator struct {
	client   *Client
	strategy Strategy
	aiType   string        // commander to challenge; empty picks the hardest unlocked one
	timeout  time.Duration // max wait for any single server event
}

// NewOrchestrator creates a new Orchestrator.
func NewOrchestrator(client *Client, strategy Strategy, aiType string, timeout time.Duration) *Orchestrator {
	return &Orchestrator{
		client:   client,
		strategy: strategy,
		aiType:   aiType,
		timeout:  timeout,
	}
}

// Run logs in, starts a battle and plays it to the end.
func (o *Orchestrator) Run(ctx context.Context) (*battle.Result, error) {
	log.Info().Str("bot", o.client.Name()).Str("strategy", o.strategy.Name()).Msg("Starting remote battle")

	if err := o.client.Login(ctx); err != nil {
		return nil, fmt.Errorf("login %s: %w", o.client.Name(), err)
	}
	commanders, err := o.client.ListCommanders(ctx)
	if err != nil {
		return nil, fmt.Errorf("list commanders: %w", err)
	}
	cmd, err := ChooseCommander(commanders, o.aiType)
	if err != nil {
		return nil, err
	}

	if err := o.client.ConnectWS(ctx); err != nil {
		return nil, err
	}
	defer o.client.CloseWS()

	b, err := o.client.StartBattle(ctx, cmd.ID)
	if err != nil {
		return nil, fmt.Errorf("start battle: %w", err)
	}
	if err := o.client.SubscribeBattle(b.ID); err != nil {
		return nil, fmt.Errorf("ws subscribe: %w", err)
	}
	log.Info().Str("battleId", b.ID).Str("commander", cmd.Name).Str("aiType", cmd.AIType).Msg("Battle started")

	// Round 1's window opens before the subscription lands, so its
	// window_opened event is never seen here.
	picked, err := o.pick(ctx, b.ID)
	if err != nil {
		log.Warn().Err(err).Str("battleId", b.ID).Msg("Round 1 pick failed, server will fall back")
	}
	return o.playLoop(ctx, b.ID, picked)
}

// playLoop answers every window_opened event with a strategy pick until the
// battle ends. Windows for rounds up to picked were already answered; the
// server replays the open window on subscribe.
func (o *Orchestrator) playLoop(ctx context.Context, battleID string, picked int) (*battle.Result, error) {
	for {
		event, err := o.waitForEvent(ctx, EventWindowOpened, EventBattleEnded, EventBattleAborted)
		if err != nil {
			return nil, fmt.Errorf("wait for event: %w", err)
		}
		if event.BattleID != battleID {
			continue
		}

		switch event.Type {
		case EventBattleEnded:
			var data struct {
				Result battle.Result `json:"result"`
			}
			if err := json.Unmarshal(event.Data, &data); err != nil {
				return nil, fmt.Errorf("decode result: %w", err)
			}
			log.Info().Str("battleId", battleID).Str("winner", string(data.Result.Winner)).
				Int("humanScore", data.Result.HumanScore).Int("aiScore", data.Result.AIScore).
				Msg("Battle ended")
			return &data.Result, nil
		case EventBattleAborted:
			return nil, fmt.Errorf("battle %s aborted by server", battleID)
		}

		var window struct {
			Round int `json:"round"`
		}
		if err := json.Unmarshal(event.Data, &window); err == nil && window.Round > 0 && window.Round <= picked {
			continue
		}
		round, err := o.pick(ctx, battleID)
		if err != nil {
			log.Warn().Err(err).Str("battleId", battleID).Msg("Pick failed, server will fall back")
			continue
		}
		picked = round
	}
}

// pick submits a strategy pick for the open window and returns its round.
func (o *Orchestrator) pick(ctx context.Context, battleID string) (int, error) {
	view, err := o.client.GetBattle(ctx, battleID)
	if err != nil {
		return 0, err
	}
	if view.Live == nil {
		return 0, fmt.Errorf("battle %s has no live state", battleID)
	}
	if view.Deadline == nil {
		return 0, ErrNoWindow
	}
	st, err := view.Live.Restore()
	if err != nil {
		return 0, err
	}
	u := o.strategy.PickUnit(st, battle.SideHuman)
	if err := o.client.SubmitPick(ctx, battleID, u); err != nil {
		return 0, err
	}
	log.Debug().Str("battleId", battleID).Int("round", st.Round).Str("unit", u.String()).
		Time("deadline", *view.Deadline).Msg("Pick submitted")
	return st.Round, nil
}

// waitForEvent blocks until one of the given event types is received or context cancels.
func (o *Orchestrator) waitForEvent(ctx context.Context, eventTypes ...string) (WSEvent, error) {
	typeSet := make(map[string]bool)
	for _, t := range eventTypes {
		typeSet[t] = true
	}

	timeout := time.After(o.timeout)
	for {
		select {
		case <-ctx.Done():
			return WSEvent{}, ctx.Err()
		case <-timeout:
			return WSEvent{}, fmt.Errorf("timeout waiting for events %v", eventTypes)
		case event, ok := <-o.client.Events():
			if !ok {
				return WSEvent{}, fmt.Errorf("ws connection closed")
			}
			if typeSet[event.Type] {
				return event, nil
			}
			log.Debug().Str("type", event.Type).Msg("Ignoring event")
		}
	}
}

// ChooseCommander returns the unlocked commander with the given AI type, or
// the highest-ordinal unlocked one when aiType is empty.
func ChooseCommander(commanders []model.Commander, aiType string) (*model.Commander, error) {
	var best *model.Commander
	for i := range commanders {
		c := &commanders[i]
		if c.Locked {
			continue
		}
		if aiType != "" {
			if c.AIType == aiType {
				return c, nil
			}
			continue
		}
		if best == nil || c.Ordinal > best.Ordinal {
			best = c
		}
	}
	if best == nil {
		if aiType != "" {
			return nil, fmt.Errorf("%w: %q is locked or unknown", ErrNoCommander, aiType)
		}
		return nil, ErrNoCommander
	}
	return best, nil
}
