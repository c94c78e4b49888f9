package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/freeeve/commander-clash/api/internal/auth"
	"github.com/freeeve/commander-clash/api/internal/model"
	"github.com/freeeve/commander-clash/api/internal/service"
	"github.com/freeeve/commander-clash/api/pkg/battle"
)

// --- Mock Repositories ---

type mockCommanderRepo struct {
	mu         sync.Mutex
	commanders []model.Commander
}

func (m *mockCommanderRepo) List(_ context.Context) ([]model.Commander, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Commander(nil), m.commanders...), nil
}

func (m *mockCommanderRepo) FindByID(_ context.Context, id string) (*model.Commander, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.commanders {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, nil
}

func (m *mockCommanderRepo) bump(id string, win bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.commanders {
		if m.commanders[i].ID == id {
			if win {
				m.commanders[i].Wins++
			} else {
				m.commanders[i].Losses++
			}
		}
	}
}

func (m *mockCommanderRepo) RecordWin(_ context.Context, id string) error {
	m.bump(id, true)
	return nil
}

func (m *mockCommanderRepo) RecordLoss(_ context.Context, id string) error {
	m.bump(id, false)
	return nil
}

func (m *mockCommanderRepo) UnlockNext(_ context.Context) (*model.Commander, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.commanders {
		if m.commanders[i].Locked {
			m.commanders[i].Locked = false
			c := m.commanders[i]
			return &c, nil
		}
	}
	return nil, nil
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
	return nil, nil
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
	if b, ok := m.battles[upd.ID]; ok {
		b.Status = upd.Status
		b.Winner = upd.Winner
	}
	return nil
}

// --- Helpers ---

func reqWithPlayerID(method, path, body, playerID string) *http.Request {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	return req.WithContext(auth.WithPlayerID(req.Context(), playerID))
}

func newTestBattleService(window time.Duration) (*service.BattleService, *mockBattleRepo) {
	commanders := &mockCommanderRepo{commanders: []model.Commander{
		{ID: "c1", Ordinal: 0, Name: "Bertram", AIType: "drunk"},
		{ID: "c2", Ordinal: 1, Name: "Ysolde", AIType: "clockwise", Locked: true},
	}}
	battles := newMockBattleRepo()
	svc := service.NewBattleService(commanders, battles, nil, nil, battle.DefaultConfig(),
		service.EngineOptions{DecisionWindow: window, ResolveOnPick: true})
	return svc, battles
}

// --- Auth Handler Tests ---

func TestDevLogin(t *testing.T) {
	mgr := auth.NewJWTManager("test-secret")
	h := NewAuthHandler(mgr, true)

	req := httptest.NewRequest(http.MethodPost, "/auth/dev", strings.NewReader(`{"name":"Aldric"}`))
	rec := httptest.NewRecorder()
	h.DevLogin(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var tok auth.Token
	json.Unmarshal(rec.Body.Bytes(), &tok)
	if tok.PlayerID != "dev-aldric" {
		t.Errorf("expected dev-aldric, got %s", tok.PlayerID)
	}
	claims, err := mgr.ValidateToken(tok.AccessToken)
	if err != nil {
		t.Fatalf("validate issued token: %v", err)
	}
	if claims.PlayerID != "dev-aldric" {
		t.Errorf("expected claim dev-aldric, got %s", claims.PlayerID)
	}
}

func TestDevLoginRejects(t *testing.T) {
	tests := []struct {
		name    string
		devMode bool
		body    string
		want    int
	}{
		{"disabled", false, `{"name":"a"}`, http.StatusNotFound},
		{"bad json", true, `nope`, http.StatusBadRequest},
		{"empty name", true, `{"name":""}`, http.StatusBadRequest},
		{"bad chars", true, `{"name":"a b/c"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAuthHandler(auth.NewJWTManager("s"), tt.devMode)
			rec := httptest.NewRecorder()
			h.DevLogin(rec, httptest.NewRequest(http.MethodPost, "/auth/dev", strings.NewReader(tt.body)))
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

// --- Commander Handler Tests ---

func TestListCommanders(t *testing.T) {
	svc, _ := newTestBattleService(time.Millisecond)
	h := NewCommanderHandler(svc)

	rec := httptest.NewRecorder()
	h.ListCommanders(rec, reqWithPlayerID(http.MethodGet, "/commanders", "", "p1"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var cs []model.Commander
	json.Unmarshal(rec.Body.Bytes(), &cs)
	if len(cs) != 2 || !cs[1].Locked {
		t.Errorf("unexpected roster %+v", cs)
	}
}

// --- Battle Handler Tests ---

func TestStartBattleValidation(t *testing.T) {
	svc, _ := newTestBattleService(time.Millisecond)
	defer svc.Shutdown(context.Background())
	h := NewBattleHandler(svc)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"bad json", `{`, http.StatusBadRequest},
		{"missing commander", `{}`, http.StatusBadRequest},
		{"unknown commander", `{"commander_id":"nope"}`, http.StatusNotFound},
		{"locked commander", `{"commander_id":"c2"}`, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.StartBattle(rec, reqWithPlayerID(http.MethodPost, "/battles", tt.body, "p1"))
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestBattleFlow(t *testing.T) {
	svc, battles := newTestBattleService(time.Hour)
	defer svc.Shutdown(context.Background())
	h := NewBattleHandler(svc)

	rec := httptest.NewRecorder()
	h.StartBattle(rec, reqWithPlayerID(http.MethodPost, "/battles", `{"commander_id":"c1"}`, "p1"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var b model.Battle
	json.Unmarshal(rec.Body.Bytes(), &b)
	if b.ID == "" || b.PlayerID != "p1" {
		t.Fatalf("unexpected battle %+v", b)
	}

	pick := func(body, player string) int {
		req := reqWithPlayerID(http.MethodPost, "/battles/"+b.ID+"/pick", body, player)
		req.SetPathValue("id", b.ID)
		rec := httptest.NewRecorder()
		h.SubmitPick(rec, req)
		return rec.Code
	}
	if code := pick(`{"unit":"dragons"}`, "p1"); code != http.StatusBadRequest {
		t.Errorf("unknown unit: expected 400, got %d", code)
	}
	if code := pick(`{"unit":"mages"}`, "p2"); code != http.StatusNotFound {
		t.Errorf("other player: expected 404, got %d", code)
	}
	deadline := time.Now().Add(5 * time.Second)
	for pick(`{"unit":"mages"}`, "p1") != http.StatusAccepted {
		if time.Now().After(deadline) {
			t.Fatal("pick never accepted")
		}
		time.Sleep(2 * time.Millisecond)
	}

	for {
		rounds, _ := battles.ListRounds(context.Background(), b.ID)
		if len(rounds) == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("round 1 never recorded")
		}
		time.Sleep(2 * time.Millisecond)
	}

	req := reqWithPlayerID(http.MethodGet, "/battles/"+b.ID+"/rounds", "", "p1")
	req.SetPathValue("id", b.ID)
	rec = httptest.NewRecorder()
	h.ListRounds(rec, req)
	var rounds []model.Round
	json.Unmarshal(rec.Body.Bytes(), &rounds)
	if len(rounds) != 1 || rounds[0].HumanPick != "mages" || rounds[0].HumanFallback {
		t.Errorf("unexpected rounds %+v", rounds)
	}

	req = reqWithPlayerID(http.MethodGet, "/battles/"+b.ID, "", "p1")
	req.SetPathValue("id", b.ID)
	rec = httptest.NewRecorder()
	h.GetBattle(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", rec.Code)
	}
	var view struct {
		ID   string          `json:"id"`
		Live battle.Snapshot `json:"live"`
	}
	json.Unmarshal(rec.Body.Bytes(), &view)
	if view.ID != b.ID || len(view.Live.HumanPicks) != 1 {
		t.Errorf("unexpected view %s", rec.Body.String())
	}

	req = reqWithPlayerID(http.MethodDelete, "/battles/"+b.ID, "", "p1")
	req.SetPathValue("id", b.ID)
	rec = httptest.NewRecorder()
	h.AbortBattle(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("abort: expected 204, got %d", rec.Code)
	}
	got, _ := battles.FindByID(context.Background(), b.ID)
	if got.Status != model.BattleAborted {
		t.Errorf("expected aborted, got %s", got.Status)
	}

	rec = httptest.NewRecorder()
	h.AbortBattle(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second abort: expected 404, got %d", rec.Code)
	}
}

func TestGetBattleNotFound(t *testing.T) {
	svc, _ := newTestBattleService(time.Millisecond)
	h := NewBattleHandler(svc)

	req := reqWithPlayerID(http.MethodGet, "/battles/missing", "", "p1")
	req.SetPathValue("id", "missing")
	rec := httptest.NewRecorder()
	h.GetBattle(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}
