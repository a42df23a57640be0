package indicator

import (
	"math"

	talib "github.com/markcheno/go-talib"
)

// go-talib leaves the lookback prefix of every output at zero and indexes past
// the end of inputs shorter than the lookback. The wrappers below guard the
// length and turn the prefix into NaN so callers can report it as undefined.

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// warmup marks the first lookback values as undefined.
func warmup(values []float64, lookback int) []float64 {
	for i := 0; i < lookback && i < len(values); i++ {
		values[i] = math.NaN()
	}
	return values
}

// SMA returns the simple moving average. Indices without a full window are NaN.
func SMA(values []float64, period int) []float64 {
	lookback := period - 1
	if period <= 0 || len(values) <= lookback {
		return nanSlice(len(values))
	}
	return warmup(talib.Sma(values, period), lookback)
}

// EMA returns the exponential moving average seeded with the SMA of the first
// period values.
func EMA(values []float64, period int) []float64 {
	lookback := period - 1
	if period <= 0 || len(values) <= lookback {
		return nanSlice(len(values))
	}
	return warmup(talib.Ema(values, period), lookback)
}

// RSI returns Wilder's relative strength index. The first value is at index period.
// A window without any price change is neutral (50).
func RSI(closes []float64, period int) []float64 {
	if period < 2 || len(closes) <= period {
		return nanSlice(len(closes))
	}
	out := warmup(talib.Rsi(closes, period), period)
	for i := period; i < len(out); i++ {
		if out[i] == 0 && flatWindow(closes[i-period:i+1]) {
			out[i] = 50
		}
	}
	return out
}

func flatWindow(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}

// MACD returns the MACD line (fast EMA minus slow EMA) and its signal line.
// Both are defined from index slow+signal-2.
func MACD(closes []float64, fast, slow, signal int) (macd, signalLine []float64) {
	lookback := slow + signal - 2
	if fast <= 0 || slow <= 0 || signal <= 0 || len(closes) <= lookback {
		return nanSlice(len(closes)), nanSlice(len(closes))
	}
	macd, signalLine, _ = talib.Macd(closes, fast, slow, signal)
	return warmup(macd, lookback), warmup(signalLine, lookback)
}

// Bollinger returns upper, middle and lower bands using the population standard deviation.
func Bollinger(closes []float64, period int, k float64) (upper, middle, lower []float64) {
	lookback := period - 1
	if period <= 0 || len(closes) <= lookback {
		return nanSlice(len(closes)), nanSlice(len(closes)), nanSlice(len(closes))
	}
	upper, middle, lower = talib.BBands(closes, period, k, k, talib.SMA)
	return warmup(upper, lookback), warmup(middle, lookback), warmup(lower, lookback)
}

// ADX returns Wilder's average directional index. The first value is at index 2*period-1.
func ADX(highs, lows, closes []float64, period int) []float64 {
	n := len(closes)
	lookback := 2*period - 1
	if period <= 0 || n <= lookback || len(highs) != n || len(lows) != n {
		return nanSlice(n)
	}
	return warmup(talib.Adx(highs, lows, closes, period), lookback)
}

// OBV returns on-balance volume starting from the first bar's volume.
func OBV(closes, volumes []float64) []float64 {
	if len(closes) == 0 || len(closes) != len(volumes) {
		return nanSlice(len(closes))
	}
	return talib.Obv(closes, volumes)
}

// lastTwo returns the previous and last values of a series.
func lastTwo(values []float64) (prev, last float64) {
	n := len(values)
	if n < 2 {
		return math.NaN(), math.NaN()
	}
	return values[n-2], values[n-1]
}

func anyNaN(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
