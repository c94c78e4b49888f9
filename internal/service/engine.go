package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/freeeve/commander-clash/api/internal/bot"
	"github.com/freeeve/commander-clash/api/pkg/battle"
)

// ErrEngineStarted is returned when Run is called twice on one engine.
var ErrEngineStarted = errors.New("battle engine already started")

// RoundEvent is published after every resolved round.
type RoundEvent struct {
	BattleID string `json:"battle_id"`
	battle.RoundResult
	HumanFallback bool    `json:"human_fallback"`
	Balance       float64 `json:"balance"`
}

// RoundObserver receives round events. It must not block for long: it runs
// on the battle goroutine between rounds.
type RoundObserver func(RoundEvent)

// WindowObserver is told when a decision window opens.
type WindowObserver func(round int, deadline time.Time)

// WindowCloseObserver is told when a decision window closes, before the round
// is resolved.
type WindowCloseObserver func(round int)

// ResultHandler receives the final result, exactly once per battle.
type ResultHandler func(battleID string, res battle.Result)

// EngineOptions tunes the round loop.
type EngineOptions struct {
	// DecisionWindow overrides the strategy's decision delay when positive.
	DecisionWindow time.Duration
	// ResolveOnPick closes the window as soon as a valid pick is accepted
	// instead of waiting out the full delay.
	ResolveOnPick bool
	// Rand drives the random fallback for missing human picks.
	Rand battle.Rand
}

// Engine runs one battle: it opens a decision window for the human each
// round, asks the strategy for the AI pick, resolves, and reports.
type Engine struct {
	id       string
	state    *battle.State
	strategy bot.Strategy
	opts     EngineOptions

	roundObservers  []RoundObserver
	windowObservers []WindowObserver
	closeObservers  []WindowCloseObserver
	onResult        ResultHandler
	resultOnce      sync.Once
	started         atomic.Bool

	mu         sync.Mutex
	windowOpen bool
	deadline   time.Time
	pending    *battle.UnitType
	picked     chan struct{}
	snapshot   battle.Snapshot
}

// NewEngine creates an engine for a new battle. The strategy must be fresh:
// strategies keep per-battle memory.
func NewEngine(id string, cfg battle.Config, strategy bot.Strategy, opts EngineOptions) (*Engine, error) {
	st, err := battle.NewState(cfg)
	if err != nil {
		return nil, err
	}
	if opts.Rand == nil {
		opts.Rand = battle.DefaultRand
	}
	return &Engine{
		id:       id,
		state:    st,
		strategy: strategy,
		opts:     opts,
		snapshot: st.Snapshot(),
	}, nil
}

// OnRound registers a round observer. Register observers before Run.
func (e *Engine) OnRound(fn RoundObserver) { e.roundObservers = append(e.roundObservers, fn) }

// OnWindowOpen registers a decision window observer. Register before Run.
func (e *Engine) OnWindowOpen(fn WindowObserver) { e.windowObservers = append(e.windowObservers, fn) }

// OnWindowClose registers a window close observer. Register before Run.
func (e *Engine) OnWindowClose(fn WindowCloseObserver) { e.closeObservers = append(e.closeObservers, fn) }

// OnResult sets the result handler. Set it before Run.
func (e *Engine) OnResult(fn ResultHandler) { e.onResult = fn }

// ID returns the battle ID.
func (e *Engine) ID() string { return e.id }

// Window returns the decision window applied each round.
func (e *Engine) Window() time.Duration {
	if e.opts.DecisionWindow > 0 {
		return e.opts.DecisionWindow
	}
	return e.strategy.DecisionDelay()
}

// Snapshot returns the state as of the last completed round. Safe to call
// from any goroutine.
func (e *Engine) Snapshot() battle.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot
}

// Deadline returns the deadline of the open decision window. ok is false
// between windows.
func (e *Engine) Deadline() (deadline time.Time, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.deadline, e.windowOpen
}

// SubmitHumanPick offers the human pick for the open decision window. It
// returns false, and changes nothing, outside a window, after a pick was
// already accepted in this window, or when u is not in the human's stock.
func (e *Engine) SubmitHumanPick(u battle.UnitType) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.windowOpen || e.pending != nil {
		return false
	}
	if !u.Valid() || !e.state.Human.Army.HasStock(u) {
		return false
	}
	e.pending = &u
	select {
	case e.picked <- struct{}{}:
	default:
	}
	return true
}

// Run plays the battle to the end. If ctx is cancelled it returns ctx's
// error without recording the in-flight round and without calling the
// result handler.
func (e *Engine) Run(ctx context.Context) (*battle.Result, error) {
	if !e.started.CompareAndSwap(false, true) {
		return nil, ErrEngineStarted
	}
	log.Info().Str("battleId", e.id).Str("ai", e.strategy.Name()).
		Int("maxRounds", e.state.MaxRounds).Dur("window", e.Window()).
		Msg("Battle started")

	for !e.state.IsOver() {
		if side := e.state.DepletedSide(); side != battle.SideNone {
			log.Info().Str("battleId", e.id).Str("side", string(side)).Int("round", e.state.Round).
				Msg("Army depleted, ending battle early")
			e.state.Finish(battle.EndArmyDepleted)
			break
		}

		humanPick, ok, err := e.collectHumanPick(ctx)
		if err != nil {
			log.Info().Str("battleId", e.id).Int("round", e.state.Round).Msg("Battle aborted during decision window")
			return nil, err
		}
		if !ok {
			humanPick, err = e.state.Human.Army.RandomAvailableUnit(e.opts.Rand)
			if err != nil {
				return nil, fmt.Errorf("battle %s fallback pick: %w", e.id, err)
			}
			log.Debug().Str("battleId", e.id).Int("round", e.state.Round).Str("unit", humanPick.String()).
				Msg("No human pick in window, substituting random unit")
			metrics().fallbackPicks.Add(ctx, 1)
		}

		aiPick := e.strategy.PickUnit(e.state, battle.SideAI)
		rr, err := e.state.PlayRound(humanPick, aiPick)
		if err != nil {
			log.Error().Err(err).Str("battleId", e.id).Int("round", e.state.Round).
				Str("humanPick", humanPick.String()).Str("aiPick", aiPick.String()).
				Msg("Round resolution failed")
			return nil, fmt.Errorf("battle %s round %d: %w", e.id, e.state.Round, err)
		}
		e.publish(ctx, rr, !ok)
	}

	res := *e.state.Result
	e.mu.Lock()
	e.snapshot = e.state.Snapshot()
	e.mu.Unlock()

	log.Info().Str("battleId", e.id).Str("winner", string(res.Winner)).
		Int("humanScore", res.HumanScore).Int("aiScore", res.AIScore).
		Int("rounds", res.RoundsPlayed).Str("reason", string(res.Reason)).
		Msg("Battle over")
	e.resultOnce.Do(func() {
		if e.onResult != nil {
			e.onResult(e.id, res)
		}
	})
	return &res, nil
}

// collectHumanPick opens the decision window for the current round and
// waits for it to close. ok is false when no valid pick arrived.
func (e *Engine) collectHumanPick(ctx context.Context) (pick battle.UnitType, ok bool, err error) {
	window := e.Window()
	round := e.state.Round
	deadline := time.Now().Add(window)

	picked := make(chan struct{}, 1)
	e.mu.Lock()
	e.windowOpen = true
	e.deadline = deadline
	e.pending = nil
	e.picked = picked
	e.mu.Unlock()

	for _, fn := range e.windowObservers {
		fn(round, deadline)
	}

	var early <-chan struct{}
	if e.opts.ResolveOnPick {
		early = picked
	}
	timer := time.NewTimer(window)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	case <-early:
	}

	e.mu.Lock()
	e.windowOpen = false
	e.deadline = time.Time{}
	pending := e.pending
	e.pending = nil
	e.mu.Unlock()

	for _, fn := range e.closeObservers {
		fn(round)
	}

	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	if pending == nil {
		return 0, false, nil
	}
	return *pending, true, nil
}

func (e *Engine) publish(ctx context.Context, rr battle.RoundResult, fallback bool) {
	e.mu.Lock()
	e.snapshot = e.state.Snapshot()
	balance := e.snapshot.Balance
	e.mu.Unlock()

	metrics().roundsResolved.Add(ctx, 1, metric.WithAttributes(attribute.String("winner", string(rr.Winner))))
	log.Debug().Str("battleId", e.id).Int("round", rr.Round).
		Str("humanPick", rr.HumanPick.String()).Str("aiPick", rr.AIPick.String()).
		Str("winner", string(rr.Winner)).Int("weight", rr.Weight).
		Msg("Round resolved")

	ev := RoundEvent{BattleID: e.id, RoundResult: rr, HumanFallback: fallback, Balance: balance}
	for _, fn := range e.roundObservers {
		fn(ev)
	}
}
