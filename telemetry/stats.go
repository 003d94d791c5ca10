// Package telemetry reports per-tick simulation counters: timing, particle
// and chunk counts, and reaction activity, following the teacher's
// telemetry package shape (rolling collector + CSV export) adapted from
// organism/ecosystem metrics to falling-sand metrics.
package telemetry

import (
	"log/slog"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// TickStats holds the counters gathered for a single simulation tick.
// Ignitions, BurningCount and Despawns are filled by the caller;
// cmd/fallingsand does not set them, so they stay zero in its output.
type TickStats struct {
	Tick             int64   `csv:"tick"`
	TickDurationUS   int64   `csv:"tick_duration_us"`
	TotalParticles   int     `csv:"total_particles"`
	DynamicParticles int     `csv:"dynamic_particles"`
	WallParticles    int     `csv:"wall_particles"`
	ActiveChunks     int     `csv:"active_chunks"`
	TotalChunks      int     `csv:"total_chunks"`
	Ignitions        int     `csv:"ignitions"`
	BurningCount     int     `csv:"burning_count"`
	Despawns         int     `csv:"despawns"`
	SimTimeSec       float64 `csv:"sim_time"`
}

// LogValue implements slog.LogValuer for structured logging.
func (s TickStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("tick", s.Tick),
		slog.Int64("tick_duration_us", s.TickDurationUS),
		slog.Int("total_particles", s.TotalParticles),
		slog.Int("dynamic_particles", s.DynamicParticles),
		slog.Int("wall_particles", s.WallParticles),
		slog.Int("active_chunks", s.ActiveChunks),
		slog.Int("total_chunks", s.TotalChunks),
		slog.Int("ignitions", s.Ignitions),
		slog.Int("burning_count", s.BurningCount),
		slog.Int("despawns", s.Despawns),
		slog.Float64("sim_time", s.SimTimeSec),
	)
}

// Collector accumulates TickStats over a rolling window and exposes
// percentile summaries of tick duration, the same "rolling window then
// percentile" shape as the teacher's PerfCollector.
type Collector struct {
	windowSize int
	samples    []TickStats
	writeIndex int
	count      int
}

// NewCollector creates a collector retaining the last windowSize ticks.
func NewCollector(windowSize int) *Collector {
	if windowSize < 1 {
		windowSize = 256
	}
	return &Collector{
		windowSize: windowSize,
		samples:    make([]TickStats, windowSize),
	}
}

// Record appends a tick's stats to the rolling window.
func (c *Collector) Record(s TickStats) {
	c.samples[c.writeIndex] = s
	c.writeIndex = (c.writeIndex + 1) % c.windowSize
	if c.count < c.windowSize {
		c.count++
	}
}

// WindowSummary aggregates the current window's tick-duration distribution.
type WindowSummary struct {
	Samples     int
	MeanTickUS  float64
	P50TickUS   float64
	P90TickUS   float64
	P99TickUS   float64
	MaxParticle int
}

// Summary computes the current window's statistics using gonum/stat
// quantiles over the sorted tick-duration samples.
func (c *Collector) Summary() WindowSummary {
	if c.count == 0 {
		return WindowSummary{}
	}

	durations := make([]float64, c.count)
	maxParticles := 0
	for i := 0; i < c.count; i++ {
		durations[i] = float64(c.samples[i].TickDurationUS)
		if c.samples[i].TotalParticles > maxParticles {
			maxParticles = c.samples[i].TotalParticles
		}
	}
	sort.Float64s(durations)

	return WindowSummary{
		Samples:     c.count,
		MeanTickUS:  stat.Mean(durations, nil),
		P50TickUS:   stat.Quantile(0.50, stat.Empirical, durations, nil),
		P90TickUS:   stat.Quantile(0.90, stat.Empirical, durations, nil),
		P99TickUS:   stat.Quantile(0.99, stat.Empirical, durations, nil),
		MaxParticle: maxParticles,
	}
}

// LogSummary logs the current window summary via slog.
func (c *Collector) LogSummary() {
	s := c.Summary()
	slog.Info("telemetry_summary",
		"samples", s.Samples,
		"mean_tick_us", int64(s.MeanTickUS),
		"p50_tick_us", int64(s.P50TickUS),
		"p90_tick_us", int64(s.P90TickUS),
		"p99_tick_us", int64(s.P99TickUS),
		"max_particles", s.MaxParticle,
	)
}

// StartTick returns a time.Time to pass to Since when the tick completes;
// kept as a thin wrapper so call sites read like the teacher's
// StartTick/EndTick pairing without needing a stateful timer object.
func StartTick() time.Time { return time.Now() }
