package bot

import (
	"math/rand"
	"sync"

	"github.com/freeeve/commander-clash/api/pkg/battle"
)

// botRng is the package-level random source used by all bot strategies.
// When nil, the functions below delegate to the global math/rand default.
// Use SeedBotRng to set a deterministic source for reproducible matches.
var (
	botRngMu sync.Mutex
	botRng   *rand.Rand
)

// SeedBotRng sets a deterministic random source for reproducible bot behavior.
func SeedBotRng(seed int64) {
	botRngMu.Lock()
	defer botRngMu.Unlock()
	botRng = rand.New(rand.NewSource(seed))
}

// ResetBotRng reverts to the default (non-deterministic) global random source.
func ResetBotRng() {
	botRngMu.Lock()
	defer botRngMu.Unlock()
	botRng = nil
}

func botIntn(n int) int {
	botRngMu.Lock()
	defer botRngMu.Unlock()
	if botRng != nil {
		return botRng.Intn(n)
	}
	return rand.Intn(n)
}

// botRand adapts the package source to battle.Rand.
type botRand struct{}

func (botRand) Intn(n int) int { return botIntn(n) }

// Rand returns the bot random source as a battle.Rand, so the engine's
// fallback picks follow the same seed as the strategies.
func Rand() battle.Rand { return botRand{} }
