// Package indicator turns a candle series into triggered/untriggered technical
// indicator signals and classifies the result as a pump, a dump or nothing.
//
// Analyze is a pure function of its inputs: it copies what it needs out of the
// series, keeps no state between calls and never panics on short or malformed data.
package indicator

import (
	"fmt"
	"math"
	"strings"

	"github.com/rewired-gh/pumpsentry/internal/logger"
	"github.com/rewired-gh/pumpsentry/internal/models"
)

const (
	// MinCandles is the hard floor below which no analysis is attempted.
	MinCandles = 50
	// RecommendedCandles is the history length below which a warning is attached.
	RecommendedCandles = 200

	rsiPeriod = 14
	rsiUpper  = 70.0
	rsiLower  = 30.0

	macdFast   = 12
	macdSlow   = 26
	macdSignal = 9

	bollingerPeriod = 20
	bollingerK      = 2.0

	volumePeriod     = 20
	volumeSurgeRatio = 2.0

	adxPeriod    = 14
	adxThreshold = 25.0

	preSurgeMin = 0.20
	preSurgeMax = 0.50

	emaFast = 12
	emaSlow = 26
)

type evaluator struct {
	name models.IndicatorName
	eval func(*analysis) Outcome
}

// evaluators run in this order; price_change has no evaluator because it only
// drives the pump/dump direction.
var evaluators = []evaluator{
	{models.IndicatorRSI, (*analysis).evalRSI},
	{models.IndicatorMACD, (*analysis).evalMACD},
	{models.IndicatorVolumeSurge, (*analysis).evalVolumeSurge},
	{models.IndicatorBollinger, (*analysis).evalBollinger},
	{models.IndicatorADX, (*analysis).evalADX},
	{models.IndicatorDivergence, (*analysis).evalDivergence},
	{models.IndicatorCandlePatterns, (*analysis).evalCandlePatterns},
	{models.IndicatorVolumePreSurge, (*analysis).evalVolumePreSurge},
	{models.IndicatorEMACrossover, (*analysis).evalEMACrossover},
	{models.IndicatorOBV, (*analysis).evalOBV},
}

// Analyze computes every enabled indicator on series and classifies the result.
// The returned bool equals res.Classification.IsSignal().
func Analyze(series models.CandleSeries, cfg models.AnalysisConfig, symbol string) (bool, models.IndicatorResult) {
	res := newResult(symbol)
	res.TotalIndicators = cfg.EnabledCount()

	n := len(series)
	if n < MinCandles {
		res.Debug = fmt.Sprintf("only %d candles available for %s (fewer than %d)", n, symbol, MinCandles)
		res.Comment = "insufficient data"
		return false, res
	}
	if n < RecommendedCandles {
		res.Debug = fmt.Sprintf("warning: %d candles available for %s (fewer than %d recommended)", n, symbol, RecommendedCandles)
	}

	a := &analysis{
		symbol: symbol,
		c: ohlc{
			opens:  series.Opens(),
			highs:  series.Highs(),
			lows:   series.Lows(),
			closes: series.Closes(),
		},
		volumes: series.Volumes(),
		res:     &res,
	}

	for _, ev := range evaluators {
		if !cfg.Enabled(ev.name) {
			continue
		}
		out := a.run(ev)
		res.Triggered[ev.name] = out.State == Triggered
		switch out.State {
		case Triggered:
			res.CountTriggered++
		case Undefined:
			res.Undefined[ev.name] = out.Reason
		}
	}

	prev, last := lastTwo(a.c.closes)
	res.LastClose = last
	res.PriceChange = percentChange(prev, last)
	res.Classification = Classify(res.Triggered, res.CountTriggered, res.PriceChange, PolicyFrom(cfg))
	res.Comment = buildComment(&res, cfg)
	res.Debug = buildDebug(&res, cfg)

	return res.Classification.IsSignal(), res
}

func newResult(symbol string) models.IndicatorResult {
	nan := math.NaN()
	return models.IndicatorResult{
		Symbol:       symbol,
		Triggered:    make(map[models.IndicatorName]bool),
		Undefined:    make(map[models.IndicatorName]string),
		RSI:          nan,
		MACDCross:    models.DirectionNone,
		Bollinger:    models.BandUnknown,
		VolumeRatio:  nan,
		ADX:          nan,
		Divergence:   models.DirectionNone,
		VolumeChange: nan,
		EMACross:     models.DirectionNone,
		OBVDelta:     nan,
		LastClose:    nan,
		PriceChange:  nan,
	}
}

// analysis holds the per-call working set. Shared series are computed lazily once.
type analysis struct {
	symbol  string
	c       ohlc
	volumes []float64
	res     *models.IndicatorResult

	rsiValues  []float64
	macdValues []float64
	signalLine []float64
}

func (a *analysis) run(ev evaluator) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Indicator %s failed for %s: %v", ev.name, a.symbol, r)
			out = undefined("computation failed: %v", r)
		}
	}()
	out = ev.eval(a)
	if out.State == Undefined {
		logger.Debug("Indicator %s undefined for %s: %s", ev.name, a.symbol, out.Reason)
	}
	return out
}

func (a *analysis) rsi() []float64 {
	if a.rsiValues == nil {
		a.rsiValues = RSI(a.c.closes, rsiPeriod)
	}
	return a.rsiValues
}

func (a *analysis) macd() (macd, signal []float64) {
	if a.macdValues == nil {
		a.macdValues, a.signalLine = MACD(a.c.closes, macdFast, macdSlow, macdSignal)
	}
	return a.macdValues, a.signalLine
}

func (a *analysis) evalRSI() Outcome {
	_, v := lastTwo(a.rsi())
	if math.IsNaN(v) {
		return undefined("rsi(%d) not available", rsiPeriod)
	}
	a.res.RSI = v
	return triggeredIf(v > rsiUpper || v < rsiLower)
}

func (a *analysis) evalMACD() Outcome {
	m, s := a.macd()
	m0, m1 := lastTwo(m)
	s0, s1 := lastTwo(s)
	if anyNaN(m0, m1, s0, s1) {
		return undefined("macd(%d,%d,%d) not available", macdFast, macdSlow, macdSignal)
	}
	a.res.MACDCross = crossDirection(m0, m1, s0, s1)
	return triggeredIf(a.res.MACDCross != models.DirectionNone)
}

func (a *analysis) evalVolumeSurge() Outcome {
	n := len(a.volumes)
	if n < volumePeriod {
		return undefined("volume mean needs %d candles", volumePeriod)
	}
	var sum float64
	for _, v := range a.volumes[n-volumePeriod:] {
		sum += v
	}
	mean := sum / volumePeriod
	if mean == 0 {
		return undefined("mean volume is zero")
	}
	ratio := a.volumes[n-1] / mean
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return undefined("volume ratio not finite")
	}
	a.res.VolumeRatio = ratio
	return triggeredIf(ratio > volumeSurgeRatio)
}

func (a *analysis) evalBollinger() Outcome {
	upper, _, lower := Bollinger(a.c.closes, bollingerPeriod, bollingerK)
	_, u := lastTwo(upper)
	_, l := lastTwo(lower)
	_, c := lastTwo(a.c.closes)
	if anyNaN(u, l, c) {
		return undefined("bollinger(%d) not available", bollingerPeriod)
	}
	switch {
	case c > u:
		a.res.Bollinger = models.BandUpper
	case c < l:
		a.res.Bollinger = models.BandLower
	default:
		a.res.Bollinger = models.BandInside
	}
	return triggeredIf(a.res.Bollinger != models.BandInside)
}

func (a *analysis) evalADX() Outcome {
	_, v := lastTwo(ADX(a.c.highs, a.c.lows, a.c.closes, adxPeriod))
	if math.IsNaN(v) {
		return undefined("adx(%d) not available", adxPeriod)
	}
	a.res.ADX = v
	return triggeredIf(v > adxThreshold)
}

func (a *analysis) evalDivergence() Outcome {
	c0, c1 := lastTwo(a.c.closes)
	r0, r1 := lastTwo(a.rsi())
	m, _ := a.macd()
	m0, m1 := lastTwo(m)
	if anyNaN(c0, c1, r0, r1, m0, m1) {
		return undefined("divergence inputs not available")
	}
	switch {
	case c1 < c0 && r1 > r0 && m1 > m0:
		a.res.Divergence = models.DirectionBullish
	case c1 > c0 && r1 < r0 && m1 < m0:
		a.res.Divergence = models.DirectionBearish
	default:
		a.res.Divergence = models.DirectionNone
	}
	return triggeredIf(a.res.Divergence != models.DirectionNone)
}

func (a *analysis) evalCandlePatterns() Outcome {
	i := len(a.c.closes) - 1
	if !a.c.valid(i) {
		return undefined("candle patterns need %d candles", bodyShortPeriod+1)
	}
	a.res.BullishCandle = a.c.isHammer(i)
	a.res.BearishCandle = a.c.isShootingStar(i)
	return triggeredIf(a.res.BullishCandle || a.res.BearishCandle)
}

func (a *analysis) evalVolumePreSurge() Outcome {
	n := len(a.volumes)
	if n < 3 {
		return undefined("volume pre-surge needs 3 candles")
	}
	before, after := a.volumes[n-3], a.volumes[n-2]
	change := 0.0
	if before != 0 {
		change = (after - before) / before
	}
	if math.IsNaN(change) || math.IsInf(change, 0) {
		return undefined("volume change not finite")
	}
	a.res.VolumeChange = change
	a.res.VolumePreSurge = change >= preSurgeMin && change <= preSurgeMax
	return triggeredIf(a.res.VolumePreSurge)
}

func (a *analysis) evalEMACrossover() Outcome {
	f0, f1 := lastTwo(EMA(a.c.closes, emaFast))
	s0, s1 := lastTwo(EMA(a.c.closes, emaSlow))
	if anyNaN(f0, f1, s0, s1) {
		return undefined("ema(%d/%d) not available", emaFast, emaSlow)
	}
	a.res.EMACross = crossDirection(f0, f1, s0, s1)
	return triggeredIf(a.res.EMACross != models.DirectionNone)
}

func (a *analysis) evalOBV() Outcome {
	o0, o1 := lastTwo(OBV(a.c.closes, a.volumes))
	if anyNaN(o0, o1) {
		return undefined("obv not available")
	}
	a.res.OBVDelta = o1 - o0
	return triggeredIf(a.res.OBVDelta != 0)
}

// crossDirection reports whether line crossed ref between the previous and last bar.
func crossDirection(line0, line1, ref0, ref1 float64) models.Direction {
	switch {
	case line1 > ref1 && line0 <= ref0:
		return models.DirectionBullish
	case line1 < ref1 && line0 >= ref0:
		return models.DirectionBearish
	default:
		return models.DirectionNone
	}
}

func buildComment(res *models.IndicatorResult, cfg models.AnalysisConfig) string {
	var parts []string
	if cfg.Enabled(models.IndicatorRSI) {
		parts = append(parts, formatValue("RSI=%.1f", "RSI=NaN", res.RSI))
	}
	if cfg.Enabled(models.IndicatorMACD) {
		parts = append(parts, "MACD="+directionLabel(res.MACDCross, "neutral"))
	}
	if cfg.Enabled(models.IndicatorVolumeSurge) {
		parts = append(parts, formatValue("volume x%.2f", "volume=NaN", res.VolumeRatio))
	}
	if cfg.Enabled(models.IndicatorADX) {
		parts = append(parts, formatValue("ADX=%.1f", "ADX=NaN", res.ADX))
	}
	if cfg.Enabled(models.IndicatorDivergence) {
		parts = append(parts, "divergence="+directionLabel(res.Divergence, "none"))
	}
	if cfg.Enabled(models.IndicatorCandlePatterns) {
		pattern := "none"
		if res.BullishCandle {
			pattern = "Hammer"
		} else if res.BearishCandle {
			pattern = "Shooting Star"
		}
		parts = append(parts, "candle pattern="+pattern)
	}
	if cfg.Enabled(models.IndicatorVolumePreSurge) {
		label := "no"
		if res.VolumePreSurge {
			label = "yes"
		}
		parts = append(parts, "volume build-up="+label)
	}
	if cfg.Enabled(models.IndicatorEMACrossover) {
		parts = append(parts, "EMA crossover="+directionLabel(res.EMACross, "none"))
	}
	if cfg.Enabled(models.IndicatorOBV) {
		trend := "flat"
		switch {
		case res.OBVDelta > 0:
			trend = "rising"
		case res.OBVDelta < 0:
			trend = "falling"
		}
		parts = append(parts, "OBV="+trend)
	}
	if len(parts) == 0 {
		return "no active indicators"
	}
	return strings.Join(parts, ", ")
}

func buildDebug(res *models.IndicatorResult, cfg models.AnalysisConfig) string {
	if res.Classification.IsSignal() {
		return fmt.Sprintf("signal generated for %s: %s, %d of %d indicators triggered",
			res.Symbol, res.Classification.Kind, res.CountTriggered, res.TotalIndicators)
	}

	var reason string
	if res.Classification.Qualified {
		reason = fmt.Sprintf("no signal for %s: %d of %d indicators triggered but price change %.2f%% is within ±%.2f%%",
			res.Symbol, res.CountTriggered, res.TotalIndicators, res.PriceChange, cfg.PriceChangeThreshold)
	} else {
		reason = fmt.Sprintf("no signal for %s: %d of %d indicators triggered (min %d, required %v)",
			res.Symbol, res.CountTriggered, res.TotalIndicators, cfg.MinIndicators, cfg.RequiredIndicators)
	}
	if res.Debug != "" {
		return res.Debug + "; " + reason
	}
	return reason
}

func formatValue(format, missing string, v float64) string {
	if math.IsNaN(v) {
		return missing
	}
	return fmt.Sprintf(format, v)
}

func directionLabel(d models.Direction, neutral string) string {
	if d == models.DirectionNone || d == "" {
		return neutral
	}
	return string(d)
}
