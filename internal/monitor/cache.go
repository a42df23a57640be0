package monitor

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rewired-gh/pumpsentry/internal/logger"
	"github.com/rewired-gh/pumpsentry/internal/models"
)

// UniverseFetcher lists the tradable symbols with their 24h turnover.
type UniverseFetcher interface {
	FetchTickers(ctx context.Context) ([]models.Ticker, error)
}

// TickerCache holds the filtered symbol universe for ttl.
// The lock is held across a refresh so concurrent callers never fetch twice.
type TickerCache struct {
	mu        sync.Mutex
	ttl       time.Duration
	excluded  []string
	now       func() time.Time
	symbols   []string
	fetchedAt time.Time
	loaded    bool
}

func NewTickerCache(ttl time.Duration, excluded []string) *TickerCache {
	keywords := make([]string, 0, len(excluded))
	for _, k := range excluded {
		if k = strings.TrimSpace(k); k != "" {
			keywords = append(keywords, strings.ToUpper(k))
		}
	}
	return &TickerCache{
		ttl:      ttl,
		excluded: keywords,
		now:      time.Now,
	}
}

// Universe returns the cached symbols, refreshing them through fetcher when
// the entry is missing or at least ttl old. minVolume only applies on refresh.
// A failed refresh keeps the previous entry and returns the error.
func (c *TickerCache) Universe(ctx context.Context, fetcher UniverseFetcher, minVolume float64) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.loaded && now.Sub(c.fetchedAt) < c.ttl {
		logger.Debug("Using %d cached symbols (age %s)", len(c.symbols), now.Sub(c.fetchedAt).Round(time.Second))
		return append([]string(nil), c.symbols...), nil
	}

	tickers, err := fetcher.FetchTickers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh ticker universe: %w", err)
	}

	symbols := c.filter(tickers, minVolume)
	c.symbols = symbols
	c.fetchedAt = now
	c.loaded = true
	logger.Info("Ticker cache refreshed: %d of %d symbols kept", len(symbols), len(tickers))

	return append([]string(nil), symbols...), nil
}

func (c *TickerCache) filter(tickers []models.Ticker, minVolume float64) []string {
	seen := make(map[string]bool, len(tickers))
	var symbols []string
	for _, t := range tickers {
		if t.Symbol == "" || seen[t.Symbol] {
			continue
		}
		if t.Turnover24h < minVolume {
			continue
		}
		if c.isExcluded(t.Symbol) {
			continue
		}
		seen[t.Symbol] = true
		symbols = append(symbols, t.Symbol)
	}
	sort.Strings(symbols)
	return symbols
}

func (c *TickerCache) isExcluded(symbol string) bool {
	upper := strings.ToUpper(symbol)
	for _, k := range c.excluded {
		if strings.Contains(upper, k) {
			return true
		}
	}
	return false
}
