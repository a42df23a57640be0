// Package monitor runs the polling cycle: it resolves the symbol universe,
// analyses every symbol under a concurrency ceiling and routes signals through
// the signal memory to the notifier.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/rewired-gh/pumpsentry/internal/indicator"
	"github.com/rewired-gh/pumpsentry/internal/logger"
	"github.com/rewired-gh/pumpsentry/internal/models"
)

// ErrCycleInProgress is returned by RunCycle when the previous cycle has not finished.
var ErrCycleInProgress = errors.New("monitoring cycle already in progress")

var errNoCandles = errors.New("no candle data")

// CandleFetcher returns the recent candles for a symbol. An empty series means no data.
type CandleFetcher interface {
	FetchCandles(ctx context.Context, symbol, timeframe string) (models.CandleSeries, error)
}

// Notifier delivers signals.
type Notifier interface {
	NotifySignal(ctx context.Context, res models.IndicatorResult) error
	NotifyConfirmation(ctx context.Context, res models.IndicatorResult, previous int) error
}

// SettingsLoader returns the runtime analysis settings. It is called once per cycle.
type SettingsLoader interface {
	LoadAnalysisConfig(ctx context.Context) (models.AnalysisConfig, error)
}

// Recorder receives cycle instrumentation.
type Recorder interface {
	CycleFinished(result string, elapsed time.Duration)
	UniverseSize(n int)
	SymbolAnalyzed()
	SymbolFailed()
	SignalRouted(kind models.Kind, action string)
	NotifyFailed()
	InflightInc()
	InflightDec()
}

type nopRecorder struct{}

func (nopRecorder) CycleFinished(string, time.Duration) {}
func (nopRecorder) UniverseSize(int)                    {}
func (nopRecorder) SymbolAnalyzed()                     {}
func (nopRecorder) SymbolFailed()                       {}
func (nopRecorder) SignalRouted(models.Kind, string)    {}
func (nopRecorder) NotifyFailed()                       {}
func (nopRecorder) InflightInc()                        {}
func (nopRecorder) InflightDec()                        {}

// Cycle results reported to the Recorder.
const (
	ResultOK      = "ok"
	ResultIdle    = "idle"
	ResultError   = "error"
	ResultOverlap = "overlap"
)

type Config struct {
	Concurrency      int
	Throttle         time.Duration
	TickerTTL        time.Duration
	ExcludedKeywords []string
}

func DefaultConfig() Config {
	return Config{
		Concurrency:      25,
		Throttle:         100 * time.Millisecond,
		TickerTTL:        300 * time.Second,
		ExcludedKeywords: []string{"ALPHA", "WEB3", "AI", "BOT"},
	}
}

// Deps are the collaborators of a Monitor. Metrics, Cache and Memory are optional.
type Deps struct {
	Settings SettingsLoader
	Universe UniverseFetcher
	Candles  CandleFetcher
	Notifier Notifier
	Metrics  Recorder
	Cache    *TickerCache
	Memory   *SignalMemory
}

// CycleStats summarises one cycle. Total counts symbols that were analysed,
// Signals those that produced a signal regardless of delivery.
type CycleStats struct {
	ID       uuid.UUID
	Universe int
	Total    int
	Signals  int
	Idle     bool
	Duration time.Duration
}

type Monitor struct {
	config   Config
	settings SettingsLoader
	universe UniverseFetcher
	candles  CandleFetcher
	notifier Notifier
	metrics  Recorder
	cache    *TickerCache
	memory   *SignalMemory
	running  atomic.Bool
}

func New(config Config, deps Deps) *Monitor {
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	m := &Monitor{
		config:   config,
		settings: deps.Settings,
		universe: deps.Universe,
		candles:  deps.Candles,
		notifier: deps.Notifier,
		metrics:  deps.Metrics,
		cache:    deps.Cache,
		memory:   deps.Memory,
	}
	if m.metrics == nil {
		m.metrics = nopRecorder{}
	}
	if m.cache == nil {
		m.cache = NewTickerCache(config.TickerTTL, config.ExcludedKeywords)
	}
	if m.memory == nil {
		m.memory = NewSignalMemory()
	}
	return m
}

// Memory exposes the signal memory shared across cycles.
func (m *Monitor) Memory() *SignalMemory {
	return m.memory
}

// RunCycle performs one polling pass. Only one cycle runs at a time; an
// overlapping call returns ErrCycleInProgress without doing any work.
// Per-symbol failures are logged and excluded from the stats; the returned
// error is reserved for failures that abort the whole cycle.
func (m *Monitor) RunCycle(ctx context.Context) (CycleStats, error) {
	if !m.running.CompareAndSwap(false, true) {
		m.metrics.CycleFinished(ResultOverlap, 0)
		return CycleStats{}, ErrCycleInProgress
	}
	defer m.running.Store(false)

	start := time.Now()
	stats := CycleStats{ID: uuid.New()}
	finish := func(result string) {
		stats.Duration = time.Since(start)
		m.metrics.CycleFinished(result, stats.Duration)
	}

	cfg, err := m.settings.LoadAnalysisConfig(ctx)
	if err != nil {
		finish(ResultError)
		return stats, fmt.Errorf("failed to load analysis config: %w", err)
	}
	if !cfg.BotStatus {
		logger.Debug("Cycle %s skipped: monitoring is disabled", stats.ID)
		stats.Idle = true
		finish(ResultIdle)
		return stats, nil
	}

	symbols, err := m.cache.Universe(ctx, m.universe, cfg.VolumeFilter)
	if err != nil {
		finish(ResultError)
		return stats, err
	}
	stats.Universe = len(symbols)
	m.metrics.UniverseSize(len(symbols))
	if len(symbols) == 0 {
		logger.Warn("Cycle %s: no symbols to process", stats.ID)
		finish(ResultOK)
		return stats, nil
	}

	logger.Info("Cycle %s started: %d symbols, timeframe %s", stats.ID, len(symbols), cfg.Timeframe)

	var (
		wg      sync.WaitGroup
		total   atomic.Int64
		signals atomic.Int64
		gate    = semaphore.NewWeighted(int64(m.config.Concurrency))
	)

	for _, symbol := range symbols {
		if err := gate.Acquire(ctx, 1); err != nil {
			logger.Warn("Cycle %s interrupted: %v", stats.ID, err)
			break
		}
		symbol := symbol
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer gate.Release(1)
			m.metrics.InflightInc()
			defer m.metrics.InflightDec()

			signal, err := m.processSymbol(ctx, symbol, cfg)
			if err != nil {
				m.metrics.SymbolFailed()
				if errors.Is(err, errNoCandles) {
					logger.Warn("%s skipped: %v", symbol, err)
				} else {
					logger.Error("Failed to process %s: %v", symbol, err)
				}
				return
			}
			total.Add(1)
			m.metrics.SymbolAnalyzed()
			if signal {
				signals.Add(1)
			}
		}()
	}
	wg.Wait()

	stats.Total = int(total.Load())
	stats.Signals = int(signals.Load())
	finish(ResultOK)
	logger.Info("Cycle %s finished: %d symbols analysed, %d signals in %s",
		stats.ID, stats.Total, stats.Signals, stats.Duration.Round(time.Millisecond))

	return stats, nil
}

// processSymbol runs fetch, analysis and signal routing for one symbol.
// It reports whether the symbol produced a signal.
func (m *Monitor) processSymbol(ctx context.Context, symbol string, cfg models.AnalysisConfig) (signal bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	if m.config.Throttle > 0 {
		timer := time.NewTimer(m.config.Throttle)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false, ctx.Err()
		case <-timer.C:
		}
	}

	started := time.Now()
	series, err := m.candles.FetchCandles(ctx, symbol, cfg.Timeframe)
	if err != nil {
		return false, fmt.Errorf("failed to fetch candles: %w", err)
	}
	if len(series) == 0 {
		return false, errNoCandles
	}

	isSignal, res := indicator.Analyze(series, cfg, symbol)
	if !isSignal {
		logger.Debug("[%s] %s", symbol, res.Debug)
		logger.Debug("%s processed in %s", symbol, time.Since(started).Round(time.Millisecond))
		return false, nil
	}

	m.route(ctx, res)
	logger.Debug("%s processed in %s", symbol, time.Since(started).Round(time.Millisecond))
	return true, nil
}

// route asks the signal memory how to frame the signal and sends it.
// Delivery errors are logged only; the memory has already advanced.
func (m *Monitor) route(ctx context.Context, res models.IndicatorResult) {
	kind := res.Classification.Kind
	decision := m.memory.Decide(res.Symbol, res.CountTriggered)
	m.metrics.SignalRouted(kind, decision.Action.String())

	var err error
	switch decision.Action {
	case ActionNew:
		logger.Info("[%s] New %s signal: %d of %d indicators", res.Symbol, kind, res.CountTriggered, res.TotalIndicators)
		err = m.notifier.NotifySignal(ctx, res)
	default:
		logger.Info("[%s] %s confirmation: %d of %d indicators (previously %d)",
			res.Symbol, kind, res.CountTriggered, res.TotalIndicators, decision.Previous)
		err = m.notifier.NotifyConfirmation(ctx, res, decision.Previous)
	}

	if err != nil {
		m.metrics.NotifyFailed()
		logger.Error("Failed to deliver %s notification for %s: %v", decision.Action, res.Symbol, err)
	}
}
