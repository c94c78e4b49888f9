//go:build integration

package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/freeeve/commander-clash/api/internal/testutil"
)

var testRDB *goredis.Client

func setup(t *testing.T) *Client {
	t.Helper()
	if testRDB == nil {
		testRDB = testutil.SetupRedis(t)
	}
	testutil.CleanupRedis(t, testRDB)
	return &Client{rdb: testRDB}
}

func TestBattleStateRoundTrip(t *testing.T) {
	c := setup(t)
	ctx := context.Background()

	state := json.RawMessage(`{"round":4,"max_rounds":15,"human_score":1,"ai_score":0}`)
	if err := c.SetBattleState(ctx, "b1", state); err != nil {
		t.Fatalf("set battle state: %v", err)
	}
	got, err := c.GetBattleState(ctx, "b1")
	if err != nil {
		t.Fatalf("get battle state: %v", err)
	}
	var fetched map[string]any
	if err := json.Unmarshal(got, &fetched); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if fetched["round"].(float64) != 4 {
		t.Fatalf("state round-trip failed: %s", string(got))
	}

	ttl := testRDB.TTL(ctx, stateKey("b1")).Val()
	if ttl <= 0 || ttl > defaultStateTTL {
		t.Fatalf("expected TTL within %v, got %v", defaultStateTTL, ttl)
	}
}

func TestBattleStateNotFound(t *testing.T) {
	c := setup(t)
	got, err := c.GetBattleState(context.Background(), "nonexistent")
	if err != nil {
		t.Fatalf("get missing state: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil, got %s", string(got))
	}
}

func TestDeadline(t *testing.T) {
	c := setup(t)
	ctx := context.Background()

	deadline := time.Now().Add(10 * time.Second).Truncate(time.Millisecond)
	if err := c.SetDeadline(ctx, "b1", deadline); err != nil {
		t.Fatalf("set deadline: %v", err)
	}
	got, err := c.GetDeadline(ctx, "b1")
	if err != nil {
		t.Fatalf("get deadline: %v", err)
	}
	if !got.Equal(deadline) {
		t.Fatalf("expected %v, got %v", deadline, got)
	}
	ttl := testRDB.TTL(ctx, deadlineKey("b1")).Val()
	if ttl < 10*time.Second || ttl > 10*time.Second+deadlineGracePeriod {
		t.Fatalf("unexpected TTL %v", ttl)
	}

	if err := c.ClearDeadline(ctx, "b1"); err != nil {
		t.Fatalf("clear deadline: %v", err)
	}
	got, _ = c.GetDeadline(ctx, "b1")
	if !got.IsZero() {
		t.Fatalf("expected zero deadline after clear, got %v", got)
	}
}

func TestPastDeadlineGetsShortTTL(t *testing.T) {
	c := setup(t)
	ctx := context.Background()
	if err := c.SetDeadline(ctx, "b1", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("set deadline: %v", err)
	}
	if ttl := testRDB.TTL(ctx, deadlineKey("b1")).Val(); ttl > time.Second {
		t.Fatalf("expected TTL of at most 1s, got %v", ttl)
	}
}

func TestDeleteBattleData(t *testing.T) {
	c := setup(t)
	ctx := context.Background()

	_ = c.SetBattleState(ctx, "b1", json.RawMessage(`{}`))
	_ = c.SetDeadline(ctx, "b1", time.Now().Add(time.Minute))
	if err := c.DeleteBattleData(ctx, "b1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n := testRDB.Exists(ctx, stateKey("b1"), deadlineKey("b1")).Val(); n != 0 {
		t.Fatalf("expected keys deleted, %d remain", n)
	}
}
