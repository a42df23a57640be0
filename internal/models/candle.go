// Package models defines the core domain entities: candles, tickers, analysis settings and signal results.
package models

import (
	"errors"
	"fmt"
	"time"
)

// Candle is one OHLCV interval.
type Candle struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// CandleSeries is an ascending, gap-tolerant sequence of candles owned by a single analysis.
type CandleSeries []Candle

// Validate checks that the series is non-empty and strictly ascending in time.
func (s CandleSeries) Validate() error {
	if len(s) == 0 {
		return errors.New("candle series must not be empty")
	}
	for i := 1; i < len(s); i++ {
		if !s[i].Time.After(s[i-1].Time) {
			return fmt.Errorf("candle %d at %s is not after %s", i, s[i].Time.Format(time.RFC3339), s[i-1].Time.Format(time.RFC3339))
		}
	}
	return nil
}

// Opens returns a copy of the open prices.
func (s CandleSeries) Opens() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Open
	}
	return out
}

// Highs returns a copy of the high prices.
func (s CandleSeries) Highs() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.High
	}
	return out
}

// Lows returns a copy of the low prices.
func (s CandleSeries) Lows() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Low
	}
	return out
}

// Closes returns a copy of the close prices.
func (s CandleSeries) Closes() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Close
	}
	return out
}

// Volumes returns a copy of the traded volumes.
func (s CandleSeries) Volumes() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Volume
	}
	return out
}

// Ticker is one tradable symbol of the exchange universe, annotated with its 24h quote volume.
type Ticker struct {
	Symbol      string  `json:"symbol"`
	LastPrice   float64 `json:"last_price"`
	Turnover24h float64 `json:"turnover_24h"`
}
