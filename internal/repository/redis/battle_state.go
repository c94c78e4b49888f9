package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Key patterns for live battle state.
func stateKey(battleID string) string    { return "battle:" + battleID + ":state" }
func deadlineKey(battleID string) string { return "battle:" + battleID + ":deadline" }

// deadlineGracePeriod keeps the deadline key around slightly past the
// displayed deadline so late readers still see it.
const deadlineGracePeriod = 2 * time.Second

// SetBattleState stores the latest battle snapshot JSON.
func (c *Client) SetBattleState(ctx context.Context, battleID string, state json.RawMessage) error {
	return c.rdb.Set(ctx, stateKey(battleID), []byte(state), c.stateTTL).Err()
}

// GetBattleState retrieves the latest battle snapshot JSON, or nil.
func (c *Client) GetBattleState(ctx context.Context, battleID string) (json.RawMessage, error) {
	data, err := c.rdb.Get(ctx, stateKey(battleID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get battle state: %w", err)
	}
	return json.RawMessage(data), nil
}

// SetDeadline records when the current decision window closes. The key
// expires on its own shortly after the deadline.
func (c *Client) SetDeadline(ctx context.Context, battleID string, deadline time.Time) error {
	ttl := time.Until(deadline) + deadlineGracePeriod
	if ttl <= 0 {
		ttl = time.Second
	}
	return c.rdb.Set(ctx, deadlineKey(battleID), deadline.UnixMilli(), ttl).Err()
}

// GetDeadline returns the current decision deadline, or the zero time when
// no window is open.
func (c *Client) GetDeadline(ctx context.Context, battleID string) (time.Time, error) {
	raw, err := c.rdb.Get(ctx, deadlineKey(battleID)).Result()
	if err == redis.Nil {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("get deadline: %w", err)
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse deadline: %w", err)
	}
	return time.UnixMilli(ms), nil
}

// ClearDeadline removes the decision deadline for a battle.
func (c *Client) ClearDeadline(ctx context.Context, battleID string) error {
	return c.rdb.Del(ctx, deadlineKey(battleID)).Err()
}

// DeleteBattleData removes all live keys for a finished battle.
func (c *Client) DeleteBattleData(ctx context.Context, battleID string) error {
	return c.rdb.Del(ctx, stateKey(battleID), deadlineKey(battleID)).Err()
}
