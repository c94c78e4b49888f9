package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/commander-clash/api/internal/bot"
)

func main() {
	url := flag.String("url", "http://localhost:3009", "server base URL")
	name := flag.String("name", "bot", "dev login name")
	strategyName := flag.String("strategy", string(bot.AISmartHuman), "strategy used to pick the human side's units")
	opponent := flag.String("opponent", "", "commander ai_type to challenge (default: hardest unlocked)")
	battles := flag.Int("n", 1, "number of battles to play in sequence")
	timeout := flag.Duration("event-timeout", 2*time.Minute, "max wait for any server event")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info().Msg("Received shutdown signal")
		cancel()
	}()

	wins := 0
	for i := 0; i < *battles; i++ {
		strategy, err := bot.StrategyForType(bot.AIType(*strategyName))
		if err != nil {
			log.Fatal().Err(err).Msg("Unknown strategy")
		}
		orch := bot.NewOrchestrator(bot.NewClient(*name, *url), strategy, *opponent, *timeout)
		res, err := orch.Run(ctx)
		if err != nil {
			log.Fatal().Err(err).Int("battle", i+1).Msg("Bot battle failed")
		}
		if res.HumanWon() {
			wins++
		}
	}
	log.Info().Int("battles", *battles).Int("wins", wins).Msg("Bot run completed")
}
