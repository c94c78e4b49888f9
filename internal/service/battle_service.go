package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/freeeve/commander-clash/api/internal/bot"
	"github.com/freeeve/commander-clash/api/internal/model"
	"github.com/freeeve/commander-clash/api/internal/repository"
	"github.com/freeeve/commander-clash/api/pkg/battle"
)

var (
	ErrBattleNotFound    = errors.New("battle not found")
	ErrCommanderNotFound = errors.New("commander not found")
	ErrCommanderLocked   = errors.New("commander is locked")
	ErrPickRejected      = errors.New("pick rejected: no open decision window or unit out of stock")
)

// persistTimeout bounds the side-effect writes made between rounds.
const persistTimeout = 5 * time.Second

type liveBattle struct {
	engine      *Engine
	playerID    string
	commanderID string
	cancel      context.CancelFunc
	done        chan struct{}
	opened      chan struct{} // closed when round 1's window opens
}

// BattleService starts battles against commanders, routes human picks to the
// running engine, and persists rounds, results and progression.
type BattleService struct {
	commanders  repository.CommanderRepository
	battles     repository.BattleRepository
	cache       repository.BattleCache
	broadcaster Broadcaster
	cfg         battle.Config
	opts        EngineOptions

	mu   sync.Mutex
	live map[string]*liveBattle
	wg   sync.WaitGroup
}

// NewBattleService creates a BattleService. cache and broadcaster may be nil.
func NewBattleService(
	commanders repository.CommanderRepository,
	battles repository.BattleRepository,
	cache repository.BattleCache,
	broadcaster Broadcaster,
	cfg battle.Config,
	opts EngineOptions,
) *BattleService {
	if broadcaster == nil {
		broadcaster = NoopBroadcaster{}
	}
	return &BattleService{
		commanders:  commanders,
		battles:     battles,
		cache:       cache,
		broadcaster: broadcaster,
		cfg:         cfg,
		opts:        opts,
		live:        make(map[string]*liveBattle),
	}
}

// ListCommanders returns the roster ordered by difficulty.
func (s *BattleService) ListCommanders(ctx context.Context) ([]model.Commander, error) {
	return s.commanders.List(ctx)
}

// StartBattle creates a battle against an unlocked commander and starts its
// round loop in the background.
func (s *BattleService) StartBattle(ctx context.Context, playerID, commanderID string) (*model.Battle, error) {
	c, err := s.commanders.FindByID(ctx, commanderID)
	if err != nil {
		return nil, fmt.Errorf("find commander: %w", err)
	}
	if c == nil {
		return nil, ErrCommanderNotFound
	}
	if c.Locked {
		return nil, ErrCommanderLocked
	}

	strategy, err := bot.StrategyForType(bot.AIType(c.AIType))
	if err != nil {
		return nil, err
	}
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}

	b, err := s.battles.Create(ctx, playerID, c.ID, c.AIType, s.cfg.MaxRounds)
	if err != nil {
		return nil, fmt.Errorf("create battle: %w", err)
	}

	engine, err := NewEngine(b.ID, s.cfg, strategy, s.opts)
	if err != nil {
		s.markAborted(b.ID, err)
		return nil, err
	}
	s.wire(engine, c.ID)

	runCtx, cancel := context.WithCancel(context.Background())
	lb := &liveBattle{
		engine:      engine,
		playerID:    playerID,
		commanderID: c.ID,
		cancel:      cancel,
		done:        make(chan struct{}),
		opened:      make(chan struct{}),
	}
	var openOnce sync.Once
	engine.OnWindowOpen(func(int, time.Time) {
		openOnce.Do(func() { close(lb.opened) })
	})
	s.mu.Lock()
	s.live[b.ID] = lb
	s.mu.Unlock()

	metrics().battlesStarted.Add(ctx, 1, metric.WithAttributes(attribute.String("ai_type", c.AIType)))
	log.Info().Str("battleId", b.ID).Str("playerId", playerID).Str("commander", c.Name).Msg("Battle created")

	s.wg.Add(1)
	go s.run(runCtx, lb)

	// Round 1's window_opened goes out before anyone can subscribe, so return
	// only once its deadline is readable through View.
	select {
	case <-lb.opened:
	case <-lb.done:
	case <-ctx.Done():
	}
	return b, nil
}

func (s *BattleService) run(ctx context.Context, lb *liveBattle) {
	defer s.wg.Done()
	defer close(lb.done)
	defer func() {
		s.mu.Lock()
		delete(s.live, lb.engine.ID())
		s.mu.Unlock()
	}()

	if _, err := lb.engine.Run(ctx); err != nil {
		s.markAborted(lb.engine.ID(), err)
	}
}

// wire connects engine events to persistence and broadcasting.
func (s *BattleService) wire(e *Engine, commanderID string) {
	id := e.ID()

	e.OnWindowOpen(func(round int, deadline time.Time) {
		if s.cache != nil {
			ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
			if err := s.cache.SetDeadline(ctx, id, deadline); err != nil {
				log.Warn().Err(err).Str("battleId", id).Msg("Failed to set decision deadline")
			}
			cancel()
		}
		s.broadcaster.BroadcastBattleEvent(id, EventWindowOpened, map[string]any{
			"round":    round,
			"deadline": deadline,
		})
	})

	e.OnWindowClose(func(round int) {
		if s.cache == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := s.cache.ClearDeadline(ctx, id); err != nil {
			log.Warn().Err(err).Str("battleId", id).Int("round", round).Msg("Failed to clear decision deadline")
		}
	})

	e.OnRound(func(ev RoundEvent) {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := s.battles.SaveRound(ctx, bot.RoundRecord(id, ev.RoundResult, ev.HumanFallback)); err != nil {
			log.Error().Err(err).Str("battleId", id).Int("round", ev.Round).Msg("Failed to save round")
		}
		if s.cache != nil {
			if raw, err := json.Marshal(e.Snapshot()); err == nil {
				if err := s.cache.SetBattleState(ctx, id, raw); err != nil {
					log.Warn().Err(err).Str("battleId", id).Msg("Failed to cache battle state")
				}
			}
		}
		s.broadcaster.BroadcastBattleEvent(id, EventRoundResolved, ev)
	})

	e.OnResult(func(battleID string, res battle.Result) {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := s.battles.Finish(ctx, bot.FinishedBattle(battleID, res)); err != nil {
			log.Error().Err(err).Str("battleId", battleID).Msg("Failed to record battle result")
		}
		unlocked, err := RecordResult(ctx, s.commanders, commanderID, res)
		if err != nil {
			log.Error().Err(err).Str("battleId", battleID).Str("commanderId", commanderID).Msg("Failed to record progression")
		}
		s.clearCache(ctx, battleID)
		metrics().battlesFinished.Add(ctx, 1, metric.WithAttributes(attribute.String("winner", string(res.Winner))))

		data := map[string]any{"result": res}
		if unlocked != nil {
			data["unlocked_commander_id"] = unlocked.ID
		}
		s.broadcaster.BroadcastBattleEvent(battleID, EventBattleEnded, data)
	})
}

func (s *BattleService) markAborted(battleID string, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	now := time.Now()
	if err := s.battles.Finish(ctx, model.Battle{
		ID:         battleID,
		Status:     model.BattleAborted,
		FinishedAt: &now,
	}); err != nil {
		log.Error().Err(err).Str("battleId", battleID).Msg("Failed to mark battle aborted")
	}
	s.clearCache(ctx, battleID)
	metrics().battlesAborted.Add(ctx, 1)
	log.Info().Err(cause).Str("battleId", battleID).Msg("Battle aborted")
	s.broadcaster.BroadcastBattleEvent(battleID, EventBattleAborted, map[string]any{})
}

func (s *BattleService) clearCache(ctx context.Context, battleID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteBattleData(ctx, battleID); err != nil {
		log.Warn().Err(err).Str("battleId", battleID).Msg("Failed to clear battle cache")
	}
}

func (s *BattleService) liveFor(playerID, battleID string) (*liveBattle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lb, ok := s.live[battleID]
	if !ok || lb.playerID != playerID {
		return nil, false
	}
	return lb, true
}

// Watching reports whether battleID is a running battle owned by playerID.
func (s *BattleService) Watching(playerID, battleID string) bool {
	_, ok := s.liveFor(playerID, battleID)
	return ok
}

// SubmitPick offers the player's pick for the current decision window.
func (s *BattleService) SubmitPick(playerID, battleID string, u battle.UnitType) error {
	lb, ok := s.liveFor(playerID, battleID)
	if !ok {
		return ErrBattleNotFound
	}
	if !lb.engine.SubmitHumanPick(u) {
		return ErrPickRejected
	}
	log.Debug().Str("battleId", battleID).Str("unit", u.String()).Msg("Human pick accepted")
	return nil
}

// Abort cancels a running battle and waits for its loop to stop.
func (s *BattleService) Abort(ctx context.Context, playerID, battleID string) error {
	lb, ok := s.liveFor(playerID, battleID)
	if !ok {
		return ErrBattleNotFound
	}
	lb.cancel()
	select {
	case <-lb.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LiveSnapshot returns the in-memory snapshot of a running battle.
func (s *BattleService) LiveSnapshot(playerID, battleID string) (battle.Snapshot, bool) {
	lb, ok := s.liveFor(playerID, battleID)
	if !ok {
		return battle.Snapshot{}, false
	}
	return lb.engine.Snapshot(), true
}

// GetBattle returns a battle owned by playerID.
func (s *BattleService) GetBattle(ctx context.Context, playerID, battleID string) (*model.Battle, error) {
	b, err := s.battles.FindByID(ctx, battleID)
	if err != nil {
		return nil, fmt.Errorf("find battle: %w", err)
	}
	if b == nil || b.PlayerID != playerID {
		return nil, ErrBattleNotFound
	}
	return b, nil
}

// BattleView is a battle record plus its latest cached snapshot, present
// while the battle is running. Deadline is set while a decision window is
// open.
type BattleView struct {
	*model.Battle
	Live     json.RawMessage `json:"live,omitempty"`
	Deadline *time.Time      `json:"deadline,omitempty"`
}

// View returns a battle owned by playerID with its live snapshot. The cached
// snapshot is preferred; the in-memory one covers a missing cache.
func (s *BattleService) View(ctx context.Context, playerID, battleID string) (*BattleView, error) {
	b, err := s.GetBattle(ctx, playerID, battleID)
	if err != nil {
		return nil, err
	}
	v := &BattleView{Battle: b}
	if b.Status != model.BattleActive {
		return v, nil
	}
	v.Deadline = s.openDeadline(ctx, playerID, battleID)
	if s.cache != nil {
		raw, err := s.cache.GetBattleState(ctx, battleID)
		if err != nil {
			log.Warn().Err(err).Str("battleId", battleID).Msg("Failed to read cached battle state")
		}
		if raw != nil {
			v.Live = raw
			return v, nil
		}
	}
	if snap, ok := s.LiveSnapshot(playerID, battleID); ok {
		if raw, err := json.Marshal(snap); err == nil {
			v.Live = raw
		}
	}
	return v, nil
}

// openDeadline reads the decision deadline from the cache, falling back to
// the running engine.
func (s *BattleService) openDeadline(ctx context.Context, playerID, battleID string) *time.Time {
	if s.cache != nil {
		d, err := s.cache.GetDeadline(ctx, battleID)
		if err != nil {
			log.Warn().Err(err).Str("battleId", battleID).Msg("Failed to read decision deadline")
		} else if !d.IsZero() {
			return &d
		}
	}
	if lb, ok := s.liveFor(playerID, battleID); ok {
		if d, open := lb.engine.Deadline(); open {
			return &d
		}
	}
	return nil
}

// ListRounds returns the recorded rounds of a battle owned by playerID.
func (s *BattleService) ListRounds(ctx context.Context, playerID, battleID string) ([]model.Round, error) {
	if _, err := s.GetBattle(ctx, playerID, battleID); err != nil {
		return nil, err
	}
	return s.battles.ListRounds(ctx, battleID)
}

// AbandonStaleBattles marks battles left active by a previous process as
// aborted. Engines live in memory, so those battles cannot resume.
func (s *BattleService) AbandonStaleBattles(ctx context.Context) error {
	active, err := s.battles.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active battles: %w", err)
	}
	stale := 0
	for _, b := range active {
		s.mu.Lock()
		_, running := s.live[b.ID]
		s.mu.Unlock()
		if running {
			continue
		}
		s.markAborted(b.ID, errors.New("server restarted"))
		stale++
	}
	if stale == 0 {
		log.Info().Msg("No stale battles to abandon")
	} else {
		log.Info().Int("count", stale).Msg("Abandoned stale battles after restart")
	}
	return nil
}

// Shutdown cancels every running battle and waits for their loops to exit.
func (s *BattleService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	for _, lb := range s.live {
		lb.cancel()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
