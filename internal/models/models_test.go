package models

import (
	"testing"
	"time"
)

func TestCandleSeriesValidate(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		series  CandleSeries
		wantErr bool
	}{
		{
			name:    "empty",
			series:  CandleSeries{},
			wantErr: true,
		},
		{
			name:    "single candle",
			series:  CandleSeries{{Time: base, Close: 1}},
			wantErr: false,
		},
		{
			name: "ascending with gap",
			series: CandleSeries{
				{Time: base, Close: 1},
				{Time: base.Add(time.Minute), Close: 2},
				{Time: base.Add(5 * time.Minute), Close: 3},
			},
			wantErr: false,
		},
		{
			name: "duplicate timestamp",
			series: CandleSeries{
				{Time: base, Close: 1},
				{Time: base, Close: 2},
			},
			wantErr: true,
		},
		{
			name: "descending",
			series: CandleSeries{
				{Time: base.Add(time.Minute), Close: 1},
				{Time: base, Close: 2},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.series.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("CandleSeries.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAnalysisConfigEnabled(t *testing.T) {
	cfg := AnalysisConfig{Indicators: map[IndicatorName]bool{
		IndicatorRSI:  false,
		IndicatorMACD: true,
	}}

	if cfg.Enabled(IndicatorRSI) {
		t.Error("rsi is switched off but reported enabled")
	}
	if !cfg.Enabled(IndicatorMACD) {
		t.Error("macd is switched on but reported disabled")
	}
	if !cfg.Enabled(IndicatorOBV) {
		t.Error("missing flag must default to enabled")
	}
	if got, want := cfg.EnabledCount(), len(AllIndicators)-1; got != want {
		t.Errorf("EnabledCount() = %d, want %d", got, want)
	}
}

func TestAnalysisConfigClone(t *testing.T) {
	cfg := DefaultAnalysisConfig()
	cfg.RequiredIndicators = []IndicatorName{IndicatorADX}

	clone := cfg.Clone()
	clone.Indicators[IndicatorRSI] = false
	clone.RequiredIndicators[0] = IndicatorOBV

	if !cfg.Indicators[IndicatorRSI] {
		t.Error("mutating the clone changed the original indicator flags")
	}
	if cfg.RequiredIndicators[0] != IndicatorADX {
		t.Error("mutating the clone changed the original required indicators")
	}
}

func TestAnalysisConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*AnalysisConfig)
		wantErr bool
	}{
		{"defaults", func(*AnalysisConfig) {}, false},
		{"negative min", func(c *AnalysisConfig) { c.MinIndicators = -1 }, true},
		{"negative threshold", func(c *AnalysisConfig) { c.PriceChangeThreshold = -0.5 }, true},
		{"negative volume filter", func(c *AnalysisConfig) { c.VolumeFilter = -1 }, true},
		{"bad timeframe", func(c *AnalysisConfig) { c.Timeframe = "3d" }, true},
		{"unknown required", func(c *AnalysisConfig) { c.RequiredIndicators = []IndicatorName{"stoch"} }, true},
		{"known required", func(c *AnalysisConfig) { c.RequiredIndicators = []IndicatorName{IndicatorADX} }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultAnalysisConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("AnalysisConfig.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestClassificationIsSignal(t *testing.T) {
	tests := []struct {
		c    Classification
		want bool
	}{
		{Classification{Qualified: true, Kind: KindPump}, true},
		{Classification{Qualified: true, Kind: KindDump}, true},
		{Classification{Qualified: true, Kind: KindNone}, false},
		{Classification{Qualified: false, Kind: KindPump}, false},
	}
	for _, tt := range tests {
		if got := tt.c.IsSignal(); got != tt.want {
			t.Errorf("%+v.IsSignal() = %v, want %v", tt.c, got, tt.want)
		}
	}
}
