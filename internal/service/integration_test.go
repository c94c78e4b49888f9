//go:build integration

package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/freeeve/commander-clash/api/internal/model"
	"github.com/freeeve/commander-clash/api/internal/repository/postgres"
	redisrepo "github.com/freeeve/commander-clash/api/internal/repository/redis"
	"github.com/freeeve/commander-clash/api/internal/testutil"
	"github.com/freeeve/commander-clash/api/pkg/battle"
)

func TestIntegrationBattleLifecycle(t *testing.T) {
	db := testutil.SetupDB(t)
	rdb := testutil.SetupRedis(t)
	testutil.CleanupDB(t, db)
	testutil.CleanupRedis(t, rdb)

	commanders := postgres.NewCommanderRepo(db)
	battles := postgres.NewBattleRepo(db)
	cache := redisrepo.NewClientFromPool(rdb)
	bc := &mockBroadcaster{}
	svc := NewBattleService(commanders, battles, cache, bc, battle.DefaultConfig(),
		EngineOptions{DecisionWindow: 5 * time.Millisecond})

	ctx := context.Background()
	cid := testutil.FirstCommanderID(t, db)
	b, err := svc.StartBattle(ctx, "player-1", cid)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	waitFor(t, "a cached snapshot", func() bool {
		raw, _ := cache.GetBattleState(ctx, b.ID)
		var snap battle.Snapshot
		return raw != nil && json.Unmarshal(raw, &snap) == nil && len(snap.HumanPicks) > 0
	})
	waitFor(t, "battle to finish", func() bool {
		got, _ := battles.FindByID(ctx, b.ID)
		return got != nil && got.Status == model.BattleFinished
	})
	if err := svc.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	rounds, err := battles.ListRounds(ctx, b.ID)
	if err != nil {
		t.Fatalf("list rounds: %v", err)
	}
	if len(rounds) != 15 {
		t.Fatalf("expected 15 rounds, got %d", len(rounds))
	}
	if raw, _ := cache.GetBattleState(ctx, b.ID); raw != nil {
		t.Fatal("expected battle cache cleared")
	}

	got, _ := battles.FindByID(ctx, b.ID)
	c, _ := commanders.FindByID(ctx, cid)
	if got.Winner == "human" {
		if c.Wins != 1 {
			t.Fatalf("expected a win, got %+v", c)
		}
		roster, _ := commanders.List(ctx)
		if roster[1].Locked {
			t.Fatal("expected second commander unlocked")
		}
	} else if c.Losses != 1 {
		t.Fatalf("expected a loss, got %+v", c)
	}
}
