package service

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const instrumentationName = "github.com/freeeve/commander-clash/api/internal/service"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// battleMetrics are the counters the battle engine and service report.
type battleMetrics struct {
	battlesStarted  metric.Int64Counter
	battlesFinished metric.Int64Counter
	battlesAborted  metric.Int64Counter
	roundsResolved  metric.Int64Counter
	fallbackPicks   metric.Int64Counter
}

var (
	metricsOnce sync.Once
	metricsInst *battleMetrics
)

func metrics() *battleMetrics {
	metricsOnce.Do(func() {
		m := meter()
		metricsInst = &battleMetrics{
			battlesStarted:  counter(m, "battles.started", "Battles started against a commander"),
			battlesFinished: counter(m, "battles.finished", "Battles that reached a result"),
			battlesAborted:  counter(m, "battles.aborted", "Battles cancelled before a result"),
			roundsResolved:  counter(m, "battles.rounds", "Rounds resolved"),
			fallbackPicks:   counter(m, "battles.fallback_picks", "Human picks substituted at random after the decision window"),
		}
	})
	return metricsInst
}

func counter(m metric.Meter, name, desc string) metric.Int64Counter {
	c, err := m.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		return noop.Int64Counter{}
	}
	return c
}
