package indicator

import (
	"math"
	"testing"
)

const eps = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < eps
}

func TestSMA(t *testing.T) {
	got := SMA([]float64{1, 2, 3, 4, 5}, 3)
	want := []float64{math.NaN(), math.NaN(), 2, 3, 4}
	for i := range want {
		if math.IsNaN(want[i]) {
			if !math.IsNaN(got[i]) {
				t.Errorf("SMA[%d] = %v, want NaN", i, got[i])
			}
			continue
		}
		if !almostEqual(got[i], want[i]) {
			t.Errorf("SMA[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestEMA_ConstantSeries(t *testing.T) {
	values := make([]float64, 40)
	for i := range values {
		values[i] = 42
	}
	got := EMA(values, 12)
	if !math.IsNaN(got[10]) {
		t.Errorf("EMA[10] = %v, want NaN before the seed", got[10])
	}
	for i := 11; i < len(values); i++ {
		if !almostEqual(got[i], 42) {
			t.Fatalf("EMA[%d] = %v, want 42", i, got[i])
		}
	}
}

func TestShortInputsAreUndefined(t *testing.T) {
	short := []float64{1, 2, 3, 4, 5}
	macd, signal := MACD(short, 12, 26, 9)
	upper, middle, lower := Bollinger(short, 20, 2)

	tests := []struct {
		name   string
		values []float64
	}{
		{"sma", SMA(short, 10)},
		{"ema", EMA(short, 12)},
		{"rsi", RSI(short, 14)},
		{"rsi at lookback", RSI(short, 5)},
		{"macd", macd},
		{"macd signal", signal},
		{"bollinger upper", upper},
		{"bollinger middle", middle},
		{"bollinger lower", lower},
		{"adx", ADX(short, short, short, 14)},
		{"obv mismatched", OBV(short, []float64{1})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if len(tt.values) != len(short) {
				t.Fatalf("len = %d, want %d", len(tt.values), len(short))
			}
			for i, v := range tt.values {
				if !math.IsNaN(v) {
					t.Errorf("%s[%d] = %v, want NaN", tt.name, i, v)
				}
			}
		})
	}

	if got := OBV(nil, nil); len(got) != 0 {
		t.Errorf("OBV(nil) = %v, want empty", got)
	}
}

func TestRSI(t *testing.T) {
	t.Run("rising series is 100", func(t *testing.T) {
		closes := make([]float64, 30)
		for i := range closes {
			closes[i] = float64(i + 1)
		}
		got := RSI(closes, 14)
		if !math.IsNaN(got[13]) {
			t.Errorf("RSI[13] = %v, want NaN", got[13])
		}
		if !almostEqual(got[29], 100) {
			t.Errorf("RSI = %v, want 100", got[29])
		}
	})

	t.Run("falling series is 0", func(t *testing.T) {
		closes := make([]float64, 30)
		for i := range closes {
			closes[i] = float64(100 - i)
		}
		got := RSI(closes, 14)
		if !almostEqual(got[29], 0) {
			t.Errorf("RSI = %v, want 0", got[29])
		}
	})

	t.Run("balanced moves are 50", func(t *testing.T) {
		got := RSI([]float64{1, 2, 1, 2, 1}, 4)
		if !almostEqual(got[4], 50) {
			t.Errorf("RSI = %v, want 50", got[4])
		}
	})

	t.Run("flat series is neutral", func(t *testing.T) {
		got := RSI([]float64{5, 5, 5, 5, 5, 5}, 4)
		if !almostEqual(got[4], 50) || !almostEqual(got[5], 50) {
			t.Errorf("RSI = %v/%v, want 50", got[4], got[5])
		}
	})

	t.Run("flat after a decline stays neutral", func(t *testing.T) {
		got := RSI([]float64{9, 8, 7, 7, 7, 7, 7}, 3)
		if !almostEqual(got[3], 0) {
			t.Errorf("RSI[3] = %v, want 0 while the decline is in the window", got[3])
		}
		if !almostEqual(got[6], 50) {
			t.Errorf("RSI[6] = %v, want 50 once the window is flat", got[6])
		}
	})

	t.Run("wilder smoothing", func(t *testing.T) {
		// seed over 2 deltas: gains 1, losses 0 -> avgGain 1, avgLoss 0
		// next delta -2: avgGain 0.5, avgLoss 1 -> RSI 33.33
		got := RSI([]float64{10, 11, 12, 10}, 2)
		if !almostEqual(got[2], 100) {
			t.Errorf("RSI[2] = %v, want 100", got[2])
		}
		if math.Abs(got[3]-100.0/3) > 1e-6 {
			t.Errorf("RSI[3] = %v, want 33.33", got[3])
		}
	})
}

func TestMACD_FlatIsZero(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 7
	}
	macd, signal := MACD(closes, 12, 26, 9)
	if !math.IsNaN(macd[32]) {
		t.Errorf("macd[32] = %v, want NaN", macd[32])
	}
	if !almostEqual(macd[33], 0) {
		t.Errorf("macd[33] = %v, want 0", macd[33])
	}
	if !math.IsNaN(signal[32]) {
		t.Errorf("signal[32] = %v, want NaN", signal[32])
	}
	if !almostEqual(signal[33], 0) {
		t.Errorf("signal[33] = %v, want 0", signal[33])
	}
}

func TestBollinger(t *testing.T) {
	closes := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	upper, middle, lower := Bollinger(closes, 8, 2)
	// mean 5, population sd 2
	if !almostEqual(middle[7], 5) || !almostEqual(upper[7], 9) || !almostEqual(lower[7], 1) {
		t.Errorf("bands = %v/%v/%v, want 9/5/1", upper[7], middle[7], lower[7])
	}
	if !math.IsNaN(upper[6]) {
		t.Errorf("upper[6] = %v, want NaN", upper[6])
	}
}

func TestADX(t *testing.T) {
	t.Run("one-sided trend is 100", func(t *testing.T) {
		n := 40
		highs, lows, closes := make([]float64, n), make([]float64, n), make([]float64, n)
		for i := 0; i < n; i++ {
			closes[i] = 100 + float64(i)
			highs[i] = closes[i] + 0.5
			lows[i] = closes[i] - 0.5
		}
		got := ADX(highs, lows, closes, 14)
		if !math.IsNaN(got[26]) {
			t.Errorf("ADX[26] = %v, want NaN", got[26])
		}
		if !almostEqual(got[27], 100) || !almostEqual(got[n-1], 100) {
			t.Errorf("ADX = %v/%v, want 100", got[27], got[n-1])
		}
	})

	t.Run("flat market is 0", func(t *testing.T) {
		n := 40
		highs, lows, closes := make([]float64, n), make([]float64, n), make([]float64, n)
		for i := 0; i < n; i++ {
			closes[i], highs[i], lows[i] = 10, 11, 9
		}
		got := ADX(highs, lows, closes, 14)
		if !almostEqual(got[n-1], 0) {
			t.Errorf("ADX = %v, want 0", got[n-1])
		}
	})

	t.Run("too short", func(t *testing.T) {
		got := ADX([]float64{1, 2}, []float64{0, 1}, []float64{1, 2}, 14)
		if !math.IsNaN(got[1]) {
			t.Errorf("ADX = %v, want NaN", got[1])
		}
	})
}

func TestOBV(t *testing.T) {
	got := OBV([]float64{10, 11, 11, 9}, []float64{100, 50, 70, 20})
	want := []float64{100, 150, 150, 130}
	for i := range want {
		if !almostEqual(got[i], want[i]) {
			t.Errorf("OBV[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func patternBase() ohlc {
	c := ohlc{}
	for i := 0; i < 11; i++ {
		c.opens = append(c.opens, 100)
		c.closes = append(c.closes, 101)
		c.highs = append(c.highs, 101.5)
		c.lows = append(c.lows, 99.5)
	}
	return c
}

func TestCandlePatterns(t *testing.T) {
	t.Run("hammer", func(t *testing.T) {
		c := patternBase()
		c.opens = append(c.opens, 99.6)
		c.closes = append(c.closes, 99.8)
		c.highs = append(c.highs, 99.81)
		c.lows = append(c.lows, 98.5)
		i := len(c.closes) - 1
		if !c.isHammer(i) {
			t.Error("expected hammer")
		}
		if c.isShootingStar(i) {
			t.Error("hammer must not be a shooting star")
		}
	})

	t.Run("shooting star", func(t *testing.T) {
		c := patternBase()
		c.opens = append(c.opens, 101.6)
		c.closes = append(c.closes, 101.8)
		c.highs = append(c.highs, 103)
		c.lows = append(c.lows, 101.59)
		i := len(c.closes) - 1
		if !c.isShootingStar(i) {
			t.Error("expected shooting star")
		}
		if c.isHammer(i) {
			t.Error("shooting star must not be a hammer")
		}
	})

	t.Run("long body is neither", func(t *testing.T) {
		c := patternBase()
		c.opens = append(c.opens, 100)
		c.closes = append(c.closes, 104)
		c.highs = append(c.highs, 104.1)
		c.lows = append(c.lows, 99)
		i := len(c.closes) - 1
		if c.isHammer(i) || c.isShootingStar(i) {
			t.Error("long-bodied candle matched a pattern")
		}
	})

	t.Run("not enough history", func(t *testing.T) {
		c := patternBase()
		if c.isHammer(5) || c.isShootingStar(5) {
			t.Error("pattern matched without enough history")
		}
	})
}
