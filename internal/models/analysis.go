package models

import (
	"errors"
	"fmt"
)

// IndicatorName identifies one switchable indicator.
type IndicatorName string

const (
	IndicatorPriceChange    IndicatorName = "price_change"
	IndicatorRSI            IndicatorName = "rsi"
	IndicatorMACD           IndicatorName = "macd"
	IndicatorVolumeSurge    IndicatorName = "volume_surge"
	IndicatorBollinger      IndicatorName = "bollinger"
	IndicatorADX            IndicatorName = "adx"
	IndicatorDivergence     IndicatorName = "rsi_macd_divergence"
	IndicatorCandlePatterns IndicatorName = "candle_patterns"
	IndicatorVolumePreSurge IndicatorName = "volume_pre_surge"
	IndicatorEMACrossover   IndicatorName = "ema_crossover"
	IndicatorOBV            IndicatorName = "obv"
)

// AllIndicators lists every known indicator in display order.
var AllIndicators = []IndicatorName{
	IndicatorPriceChange,
	IndicatorRSI,
	IndicatorMACD,
	IndicatorVolumeSurge,
	IndicatorBollinger,
	IndicatorADX,
	IndicatorDivergence,
	IndicatorCandlePatterns,
	IndicatorVolumePreSurge,
	IndicatorEMACrossover,
	IndicatorOBV,
}

// IsKnownIndicator reports whether name is one of AllIndicators.
func IsKnownIndicator(name IndicatorName) bool {
	for _, n := range AllIndicators {
		if n == name {
			return true
		}
	}
	return false
}

// Timeframes maps the supported candle intervals to themselves for validation.
var Timeframes = map[string]bool{"1m": true, "5m": true, "15m": true, "1h": true}

// AnalysisConfig is the runtime settings snapshot used by one monitoring cycle.
// A cycle must treat it as immutable; use Clone before handing it to concurrent code.
type AnalysisConfig struct {
	BotStatus            bool                   `json:"bot_status"`
	Indicators           map[IndicatorName]bool `json:"indicators_enabled"`
	RequiredIndicators   []IndicatorName        `json:"required_indicators"`
	MinIndicators        int                    `json:"min_indicators"`
	PriceChangeThreshold float64                `json:"price_change_threshold"`
	Timeframe            string                 `json:"timeframe"`
	VolumeFilter         float64                `json:"volume_filter"`
}

// DefaultAnalysisConfig returns the settings a fresh installation starts with.
func DefaultAnalysisConfig() AnalysisConfig {
	indicators := make(map[IndicatorName]bool, len(AllIndicators))
	for _, name := range AllIndicators {
		indicators[name] = true
	}
	return AnalysisConfig{
		BotStatus:            false,
		Indicators:           indicators,
		MinIndicators:        1,
		PriceChangeThreshold: 1.0,
		Timeframe:            "1m",
		VolumeFilter:         5_000_000,
	}
}

// Enabled reports whether an indicator is switched on. Missing flags default to true.
func (c AnalysisConfig) Enabled(name IndicatorName) bool {
	enabled, ok := c.Indicators[name]
	return !ok || enabled
}

// EnabledCount is the number of known indicators currently switched on.
func (c AnalysisConfig) EnabledCount() int {
	n := 0
	for _, name := range AllIndicators {
		if c.Enabled(name) {
			n++
		}
	}
	return n
}

// Clone returns a deep copy so that the snapshot can be shared without aliasing.
func (c AnalysisConfig) Clone() AnalysisConfig {
	out := c
	out.Indicators = make(map[IndicatorName]bool, len(c.Indicators))
	for k, v := range c.Indicators {
		out.Indicators[k] = v
	}
	out.RequiredIndicators = append([]IndicatorName(nil), c.RequiredIndicators...)
	return out
}

// Validate checks the policy fields for values the engine cannot work with.
func (c AnalysisConfig) Validate() error {
	if c.MinIndicators < 0 {
		return errors.New("min indicators must not be negative")
	}
	if c.PriceChangeThreshold < 0 {
		return errors.New("price change threshold must not be negative")
	}
	if c.VolumeFilter < 0 {
		return errors.New("volume filter must not be negative")
	}
	if !Timeframes[c.Timeframe] {
		return fmt.Errorf("unsupported timeframe %q", c.Timeframe)
	}
	for _, name := range c.RequiredIndicators {
		if !IsKnownIndicator(name) {
			return fmt.Errorf("unknown required indicator %q", name)
		}
	}
	return nil
}
