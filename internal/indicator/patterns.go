package indicator

import "math"

// Averaging windows and factors follow the usual candlestick settings:
// a short body is shorter than the average body of the previous 10 candles,
// a very short shadow is under 10% of the average range of the previous 10,
// and "near" means within 20% of the average range of the previous 5.
const (
	bodyShortPeriod       = 10
	shadowVeryShortPeriod = 10
	shadowVeryShortFactor = 0.1
	nearPeriod            = 5
	nearFactor            = 0.2
)

type ohlc struct {
	opens, highs, lows, closes []float64
}

func (c ohlc) body(i int) float64 {
	return math.Abs(c.closes[i] - c.opens[i])
}

func (c ohlc) upperShadow(i int) float64 {
	return c.highs[i] - math.Max(c.opens[i], c.closes[i])
}

func (c ohlc) lowerShadow(i int) float64 {
	return math.Min(c.opens[i], c.closes[i]) - c.lows[i]
}

// avgBody averages the real body of the period candles before i.
func (c ohlc) avgBody(i, period int) float64 {
	var sum float64
	for j := i - period; j < i; j++ {
		sum += c.body(j)
	}
	return sum / float64(period)
}

// avgRange averages the high-low range of the period candles before i.
func (c ohlc) avgRange(i, period int) float64 {
	var sum float64
	for j := i - period; j < i; j++ {
		sum += c.highs[j] - c.lows[j]
	}
	return sum / float64(period)
}

func (c ohlc) valid(i int) bool {
	n := len(c.closes)
	return len(c.opens) == n && len(c.highs) == n && len(c.lows) == n &&
		i < n && i >= bodyShortPeriod && i >= shadowVeryShortPeriod && i-1 >= nearPeriod
}

// isHammer: short body at the low end of the range, long lower shadow,
// almost no upper shadow, body near the previous candle's low.
func (c ohlc) isHammer(i int) bool {
	if !c.valid(i) {
		return false
	}
	body := c.body(i)
	return body < c.avgBody(i, bodyShortPeriod) &&
		c.lowerShadow(i) > body &&
		c.upperShadow(i) < shadowVeryShortFactor*c.avgRange(i, shadowVeryShortPeriod) &&
		math.Min(c.opens[i], c.closes[i]) <= c.lows[i-1]+nearFactor*c.avgRange(i-1, nearPeriod)
}

// isShootingStar: short body gapping up from the previous body, long upper
// shadow, almost no lower shadow.
func (c ohlc) isShootingStar(i int) bool {
	if !c.valid(i) {
		return false
	}
	body := c.body(i)
	return body < c.avgBody(i, bodyShortPeriod) &&
		c.upperShadow(i) > body &&
		c.lowerShadow(i) < shadowVeryShortFactor*c.avgRange(i, shadowVeryShortPeriod) &&
		math.Min(c.opens[i], c.closes[i]) > math.Max(c.opens[i-1], c.closes[i-1])
}
