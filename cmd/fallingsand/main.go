// Command fallingsand runs the particle simulation headless: load a config,
// optionally a particle-definitions file and a scene file, advance N ticks,
// and print final telemetry counters.
//
// Usage: go run ./cmd/fallingsand -ticks 1000
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/pthm-cable/fallingsand/config"
	"github.com/pthm-cable/fallingsand/sim"
	"github.com/pthm-cable/fallingsand/telemetry"
)

func main() {
	configPath := flag.String("config", "", "Config YAML file (empty = embedded defaults)")
	definitionsPath := flag.String("definitions", "", "Particle-definitions YAML file")
	scenePath := flag.String("scene", "", "Scene YAML file to spawn on startup")
	ticks := flag.Int("ticks", 1000, "Number of ticks to run")
	statsWindow := flag.Int("stats-window", 120, "Rolling window size for the summary log")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	s := sim.New(cfg)

	if *definitionsPath != "" {
		invalid, err := s.LoadDefinitions(*definitionsPath)
		if err != nil {
			log.Fatalf("loading definitions: %v", err)
		}
		for _, rec := range invalid {
			slog.Warn("rejected particle definition", "name", rec.Name, "reason", rec.Reason)
		}
	}

	if *scenePath != "" {
		if err := s.LoadScene(*scenePath); err != nil {
			log.Fatalf("loading scene: %v", err)
		}
	}

	om, err := telemetry.NewOutputManagerFromConfig(cfg)
	if err != nil {
		log.Fatalf("creating output manager: %v", err)
	}
	defer om.Close()

	collector := telemetry.NewCollector(*statsWindow)
	perf := telemetry.NewPerfCollector(*statsWindow)
	s.SetPerfCollector(perf)
	start := time.Now()

	for i := 0; i < *ticks; i++ {
		tickStart := telemetry.StartTick()
		s.Step()
		elapsed := time.Since(tickStart)

		if (i+1)%(*statsWindow) == 0 {
			if err := om.WritePerf(perf.Stats(), s.Tick()); err != nil {
				log.Fatalf("writing perf stats: %v", err)
			}
		}

		counts := s.Counts()
		stat := telemetry.TickStats{
			Tick:             s.Tick(),
			TickDurationUS:   elapsed.Microseconds(),
			TotalParticles:   counts.Total,
			DynamicParticles: counts.Dynamic,
			WallParticles:    counts.Wall,
			TotalChunks:      s.World.ChunkCount(),
			SimTimeSec:       time.Since(start).Seconds(),
		}
		for range s.IterActiveChunks() {
			stat.ActiveChunks++
		}
		collector.Record(stat)
		if err := om.WriteTick(stat); err != nil {
			log.Fatalf("writing tick stats: %v", err)
		}
	}

	collector.LogSummary()
	perf.Stats().LogStats()
	if err := om.WritePerf(perf.Stats(), s.Tick()); err != nil {
		log.Fatalf("writing perf stats: %v", err)
	}

	final := s.Counts()
	fmt.Printf("ran %d ticks in %s\n", *ticks, time.Since(start).Round(time.Millisecond))
	fmt.Printf("final counts: %s\n", final)
	if dir := om.Dir(); dir != "" {
		fmt.Printf("telemetry written to %s\n", dir)
	}

	if os.Getenv("FALLINGSAND_DEBUG") != "" {
		slog.Debug("run complete", "ticks", *ticks, "counts", final)
	}
}
