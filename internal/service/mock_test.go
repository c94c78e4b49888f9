package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/freeeve/commander-clash/api/internal/model"
)

type mockCommanderRepo struct {
	mu         sync.Mutex
	commanders map[string]*model.Commander
}

func newMockCommanderRepo(cs ...model.Commander) *mockCommanderRepo {
	m := &mockCommanderRepo{commanders: make(map[string]*model.Commander)}
	for i := range cs {
		c := cs[i]
		m.commanders[c.ID] = &c
	}
	return m
}

func (m *mockCommanderRepo) List(_ context.Context) ([]model.Commander, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Commander
	for _, c := range m.commanders {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ordinal < out[j].Ordinal })
	return out, nil
}

func (m *mockCommanderRepo) FindByID(_ context.Context, id string) (*model.Commander, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.commanders[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (m *mockCommanderRepo) RecordWin(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.commanders[id]; ok {
		c.Wins++
	}
	return nil
}

func (m *mockCommanderRepo) RecordLoss(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.commanders[id]; ok {
		c.Losses++
	}
	return nil
}

func (m *mockCommanderRepo) UnlockNext(_ context.Context) (*model.Commander, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var next *model.Commander
	for _, c := range m.commanders {
		if c.Locked && (next == nil || c.Ordinal < next.Ordinal) {
			next = c
		}
	}
	if next == nil {
		return nil, nil
	}
	next.Locked = false
	cp := *next
	return &cp, nil
}

func (m *mockCommanderRepo) get(id string) model.Commander {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.commanders[id]
}

type mockBattleRepo struct {
	mu      sync.Mutex
	battles map[string]*model.Battle
	rounds  map[string][]model.Round
}

func newMockBattleRepo() *mockBattleRepo {
	return &mockBattleRepo{
		battles: make(map[string]*model.Battle),
		rounds:  make(map[string][]model.Round),
	}
}

func (m *mockBattleRepo) Create(_ context.Context, playerID, commanderID, aiType string, maxRounds int) (*model.Battle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := &model.Battle{
		ID:          fmt.Sprintf("battle-%d", len(m.battles)+1),
		PlayerID:    playerID,
		CommanderID: commanderID,
		AIType:      aiType,
		Status:      model.BattleActive,
		MaxRounds:   maxRounds,
		StartedAt:   time.Now(),
	}
	m.battles[b.ID] = b
	cp := *b
	return &cp, nil
}

func (m *mockBattleRepo) FindByID(_ context.Context, id string) (*model.Battle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.battles[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (m *mockBattleRepo) ListActive(_ context.Context) ([]model.Battle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Battle
	for _, b := range m.battles {
		if b.Status == model.BattleActive {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (m *mockBattleRepo) SaveRound(_ context.Context, r model.Round) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rounds[r.BattleID] = append(m.rounds[r.BattleID], r)
	return nil
}

func (m *mockBattleRepo) ListRounds(_ context.Context, battleID string) ([]model.Round, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Round(nil), m.rounds[battleID]...), nil
}

func (m *mockBattleRepo) Finish(_ context.Context, upd model.Battle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.battles[upd.ID]
	if !ok {
		return fmt.Errorf("battle %s not found", upd.ID)
	}
	b.Status = upd.Status
	now := time.Now()
	b.FinishedAt = &now
	if upd.Status == model.BattleAborted {
		return nil
	}
	b.Winner = upd.Winner
	b.HumanScore = upd.HumanScore
	b.AIScore = upd.AIScore
	b.RoundsPlayed = upd.RoundsPlayed
	b.EndReason = upd.EndReason
	return nil
}

func (m *mockBattleRepo) get(id string) model.Battle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.battles[id]
}

type mockCache struct {
	mu        sync.Mutex
	states    map[string]json.RawMessage
	deadlines map[string]time.Time
	deleted   map[string]bool
}

func newMockCache() *mockCache {
	return &mockCache{
		states:    make(map[string]json.RawMessage),
		deadlines: make(map[string]time.Time),
		deleted:   make(map[string]bool),
	}
}

func (m *mockCache) SetBattleState(_ context.Context, id string, state json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[id] = state
	return nil
}

func (m *mockCache) GetBattleState(_ context.Context, id string) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[id], nil
}

func (m *mockCache) SetDeadline(_ context.Context, id string, deadline time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deadlines[id] = deadline
	return nil
}

func (m *mockCache) GetDeadline(_ context.Context, id string) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deadlines[id], nil
}

func (m *mockCache) ClearDeadline(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.deadlines, id)
	return nil
}

func (m *mockCache) DeleteBattleData(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, id)
	delete(m.deadlines, id)
	m.deleted[id] = true
	return nil
}

func (m *mockCache) wasDeleted(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleted[id]
}

type recordedEvent struct {
	battleID  string
	eventType string
	data      any
}

type mockBroadcaster struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (m *mockBroadcaster) BroadcastBattleEvent(battleID, eventType string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, recordedEvent{battleID, eventType, data})
}

func (m *mockBroadcaster) count(eventType string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.events {
		if e.eventType == eventType {
			n++
		}
	}
	return n
}
