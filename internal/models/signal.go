package models

// Kind is the direction of a signal.
type Kind string

const (
	KindNone Kind = ""
	KindPump Kind = "pump"
	KindDump Kind = "dump"
)

// Direction describes crossovers and divergences.
type Direction string

const (
	DirectionNone    Direction = "none"
	DirectionBullish Direction = "bullish"
	DirectionBearish Direction = "bearish"
)

// BandPosition is where the last close sits relative to the Bollinger bands.
type BandPosition string

const (
	BandUnknown BandPosition = ""
	BandUpper   BandPosition = "upper"
	BandLower   BandPosition = "lower"
	BandInside  BandPosition = "inside"
)

// Classification is the policy verdict for one analysed symbol.
// Qualified means the required/min-indicator policy passed; Kind is the
// price-change direction, empty when neither threshold was crossed.
type Classification struct {
	Qualified bool `json:"qualified"`
	Kind      Kind `json:"kind"`
}

// IsSignal is true only for qualified results with a direction. Directionless
// results are never reported.
func (c Classification) IsSignal() bool {
	return c.Qualified && c.Kind != KindNone
}

// IndicatorResult is the per-symbol output of one analysis. Numeric fields are NaN when undefined.
type IndicatorResult struct {
	Symbol string `json:"symbol"`

	Triggered map[IndicatorName]bool   `json:"triggered"`
	Undefined map[IndicatorName]string `json:"undefined,omitempty"`

	RSI            float64      `json:"rsi"`
	MACDCross      Direction    `json:"macd_cross"`
	Bollinger      BandPosition `json:"bollinger"`
	VolumeRatio    float64      `json:"volume_ratio"`
	ADX            float64      `json:"adx"`
	Divergence     Direction    `json:"divergence"`
	BullishCandle  bool         `json:"bullish_candle"`
	BearishCandle  bool         `json:"bearish_candle"`
	VolumeChange   float64      `json:"volume_change"`
	VolumePreSurge bool         `json:"volume_pre_surge"`
	EMACross       Direction    `json:"ema_cross"`
	OBVDelta       float64      `json:"obv_delta"`

	LastClose   float64 `json:"last_close"`
	PriceChange float64 `json:"price_change"`

	Classification  Classification `json:"classification"`
	CountTriggered  int            `json:"count_triggered"`
	TotalIndicators int            `json:"total_indicators"`
	Comment         string         `json:"comment"`
	Debug           string         `json:"debug"`
}

// TriggeredNames returns the fired indicators in display order.
func (r IndicatorResult) TriggeredNames() []IndicatorName {
	var names []IndicatorName
	for _, name := range AllIndicators {
		if r.Triggered[name] {
			names = append(names, name)
		}
	}
	return names
}
