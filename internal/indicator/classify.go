package indicator

import (
	"math"

	"github.com/rewired-gh/pumpsentry/internal/models"
)

// Policy is the part of AnalysisConfig the classifier depends on.
type Policy struct {
	RequiredIndicators   []models.IndicatorName
	MinIndicators        int
	PriceChangeThreshold float64
}

// PolicyFrom extracts the classification policy from a settings snapshot.
func PolicyFrom(cfg models.AnalysisConfig) Policy {
	return Policy{
		RequiredIndicators:   cfg.RequiredIndicators,
		MinIndicators:        cfg.MinIndicators,
		PriceChangeThreshold: cfg.PriceChangeThreshold,
	}
}

// Classify applies the required/min-indicator policy and the pump/dump price
// threshold. It is pure and total: NaN or infinite inputs resolve to no direction.
func Classify(triggered map[models.IndicatorName]bool, count int, priceChange float64, p Policy) models.Classification {
	if count < 0 {
		count = 0
	}
	if count < p.MinIndicators {
		return models.Classification{}
	}
	for _, name := range p.RequiredIndicators {
		if !triggered[name] {
			return models.Classification{}
		}
	}

	c := models.Classification{Qualified: true}
	th := p.PriceChangeThreshold
	if math.IsNaN(priceChange) || math.IsInf(priceChange, 0) || math.IsNaN(th) {
		return c
	}
	switch {
	case priceChange > th:
		c.Kind = models.KindPump
	case priceChange < -th:
		c.Kind = models.KindDump
	}
	return c
}

// percentChange returns the change from prev to last in percent, NaN when prev is zero.
func percentChange(prev, last float64) float64 {
	if prev == 0 || anyNaN(prev, last) {
		return math.NaN()
	}
	return (last - prev) / prev * 100
}
