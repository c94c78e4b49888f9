package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/commander-clash/api/internal/bot"
	"github.com/freeeve/commander-clash/api/internal/config"
	"github.com/freeeve/commander-clash/api/internal/repository"
	"github.com/freeeve/commander-clash/api/internal/repository/postgres"
)

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	var (
		matchup   string
		all       bool
		numGames  int
		workers   int
		dbURL     string
		configDir string
		dryRun    bool
		jsonOut   bool
	)

	flag.StringVar(&matchup, "matchup", "", "Challenger-vs-defender (e.g. smart_human-vs-drunk)")
	flag.BoolVar(&all, "all", false, "Play every strategy against every other")
	flag.IntVar(&numGames, "n", 1, "Battles per pairing")
	flag.IntVar(&workers, "workers", 1, "Concurrency (parallel battles)")
	flag.StringVar(&dbURL, "db", "", "Database URL (or use DATABASE_URL env)")
	flag.StringVar(&configDir, "config", "", "Directory holding commander-clash.yaml")
	flag.BoolVar(&dryRun, "dry-run", false, "Skip database writes")
	flag.BoolVar(&jsonOut, "json", false, "Output results as JSON")

	flag.Parse()

	cfg, err := config.Load(configDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Config load failed")
	}
	battleCfg, err := cfg.Battle.BattleConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid battle settings")
	}

	pairings, err := resolvePairings(matchup, all)
	if err != nil {
		log.Fatal().Err(err).Msg("Bad matchup")
	}
	if workers < 1 {
		workers = 1
	}

	if dbURL == "" {
		dbURL = cfg.DatabaseURL
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info().Msg("Shutting down...")
		cancel()
	}()

	var battleRepo repository.BattleRepository
	commanderIDs := map[string]string{}
	if !dryRun {
		db, err := postgres.Connect(ctx, dbURL, postgres.DefaultPoolOptions())
		if err != nil {
			log.Fatal().Err(err).Msg("Database connection failed")
		}
		defer db.Close()
		battleRepo = postgres.NewBattleRepo(db)

		commanders, err := postgres.NewCommanderRepo(db).List(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Listing commanders failed")
		}
		for _, c := range commanders {
			commanderIDs[c.AIType] = c.ID
		}
	}

	total := len(pairings) * numGames
	results := make([]*bot.ArenaResult, 0, total)
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)
	errCount := 0

	for _, p := range pairings {
		for i := 0; i < numGames; i++ {
			if ctx.Err() != nil {
				break
			}
			wg.Add(1)
			sem <- struct{}{}

			go func(p pairing, idx int) {
				defer wg.Done()
				defer func() { <-sem }()

				result, err := bot.RunMatch(ctx, bot.ArenaConfig{
					Challenger:  p.challenger,
					Defender:    p.defender,
					Battle:      battleCfg,
					CommanderID: commanderIDs[string(p.defender)],
					DryRun:      dryRun,
				}, battleRepo)
				if err != nil {
					log.Error().Err(err).Str("matchup", p.String()).Int("battle", idx+1).Msg("Battle failed")
					mu.Lock()
					errCount++
					mu.Unlock()
					return
				}

				mu.Lock()
				results = append(results, result)
				mu.Unlock()

				log.Info().Str("matchup", p.String()).Int("battle", idx+1).
					Str("winner", string(result.Result.Winner)).
					Int("challengerScore", result.Result.HumanScore).
					Int("defenderScore", result.Result.AIScore).
					Msg("Battle completed")
			}(p, i)
		}
	}

	wg.Wait()

	if jsonOut {
		printJSON(results, total, errCount)
	} else {
		printSummary(results, errCount, dryRun)
	}
}

type pairing struct {
	challenger bot.AIType
	defender   bot.AIType
}

func (p pairing) String() string {
	return string(p.challenger) + " vs " + string(p.defender)
}

// resolvePairings expands the -matchup or -all flags into strategy pairs.
// A bare strategy name plays against itself.
func resolvePairings(matchup string, all bool) ([]pairing, error) {
	if all {
		var out []pairing
		for _, c := range bot.AllAITypes() {
			for _, d := range bot.AllAITypes() {
				if c != d {
					out = append(out, pairing{c, d})
				}
			}
		}
		return out, nil
	}
	if matchup == "" {
		matchup = string(bot.AISmartHuman) + "-vs-" + string(bot.AIDrunk)
	}

	parts := strings.SplitN(matchup, "-vs-", 2)
	if len(parts) == 1 {
		parts = append(parts, parts[0])
	}
	p := pairing{bot.AIType(parts[0]), bot.AIType(parts[1])}
	for _, t := range []bot.AIType{p.challenger, p.defender} {
		if _, err := bot.StrategyForType(t); err != nil {
			return nil, err
		}
	}
	return []pairing{p}, nil
}

func printSummary(results []*bot.ArenaResult, errCount int, dryRun bool) {
	tallies := make(map[string]*bot.Tally)
	for _, r := range results {
		t, ok := tallies[r.Key()]
		if !ok {
			t = &bot.Tally{}
			tallies[r.Key()] = t
		}
		t.Add(r.Result)
	}

	keys := make([]string, 0, len(tallies))
	for k := range tallies {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Printf("\nResults (%d battles):\n", len(results))
	if errCount > 0 {
		fmt.Printf("  (%d battles failed)\n", errCount)
	}
	for _, k := range keys {
		fmt.Printf("  %-36s %s\n", k, tallies[k])
	}

	if !dryRun && len(results) > 0 {
		fmt.Printf("\nBattles saved to database under player %q\n", bot.ArenaPlayerID)
	}
}

func printJSON(results []*bot.ArenaResult, total, errCount int) {
	out := struct {
		Total   int                `json:"total"`
		Errors  int                `json:"errors"`
		Results []*bot.ArenaResult `json:"results"`
	}{
		Total:   total,
		Errors:  errCount,
		Results: results,
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(out)
}
