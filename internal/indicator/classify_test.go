package indicator

import (
	"math"
	"testing"

	"github.com/rewired-gh/pumpsentry/internal/models"
)

func TestClassify(t *testing.T) {
	triggered := map[models.IndicatorName]bool{
		models.IndicatorRSI:  true,
		models.IndicatorMACD: true,
		models.IndicatorADX:  false,
	}

	tests := []struct {
		name        string
		count       int
		priceChange float64
		policy      Policy
		want        models.Classification
	}{
		{
			name:        "pump",
			count:       2,
			priceChange: 1.5,
			policy:      Policy{MinIndicators: 2, PriceChangeThreshold: 1.0},
			want:        models.Classification{Qualified: true, Kind: models.KindPump},
		},
		{
			name:        "dump",
			count:       2,
			priceChange: -1.5,
			policy:      Policy{MinIndicators: 2, PriceChangeThreshold: 1.0},
			want:        models.Classification{Qualified: true, Kind: models.KindDump},
		},
		{
			name:        "within threshold",
			count:       2,
			priceChange: 1.0,
			policy:      Policy{MinIndicators: 2, PriceChangeThreshold: 1.0},
			want:        models.Classification{Qualified: true},
		},
		{
			name:        "below min",
			count:       1,
			priceChange: 5,
			policy:      Policy{MinIndicators: 2, PriceChangeThreshold: 1.0},
			want:        models.Classification{},
		},
		{
			name:        "required present",
			count:       2,
			priceChange: 2,
			policy:      Policy{MinIndicators: 1, RequiredIndicators: []models.IndicatorName{models.IndicatorRSI, models.IndicatorMACD}, PriceChangeThreshold: 1},
			want:        models.Classification{Qualified: true, Kind: models.KindPump},
		},
		{
			name:        "required missing",
			count:       2,
			priceChange: 2,
			policy:      Policy{MinIndicators: 1, RequiredIndicators: []models.IndicatorName{models.IndicatorADX}, PriceChangeThreshold: 1},
			want:        models.Classification{},
		},
		{
			name:        "required unknown",
			count:       2,
			priceChange: 2,
			policy:      Policy{MinIndicators: 1, RequiredIndicators: []models.IndicatorName{"stoch"}, PriceChangeThreshold: 1},
			want:        models.Classification{},
		},
		{
			name:        "NaN price change",
			count:       3,
			priceChange: math.NaN(),
			policy:      Policy{MinIndicators: 1, PriceChangeThreshold: 1},
			want:        models.Classification{Qualified: true},
		},
		{
			name:        "infinite price change",
			count:       3,
			priceChange: math.Inf(1),
			policy:      Policy{MinIndicators: 1, PriceChangeThreshold: 1},
			want:        models.Classification{Qualified: true},
		},
		{
			name:        "NaN threshold",
			count:       3,
			priceChange: 4,
			policy:      Policy{MinIndicators: 1, PriceChangeThreshold: math.NaN()},
			want:        models.Classification{Qualified: true},
		},
		{
			name:        "negative count",
			count:       -4,
			priceChange: 4,
			policy:      Policy{MinIndicators: 0, PriceChangeThreshold: 1},
			want:        models.Classification{Qualified: true, Kind: models.KindPump},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(triggered, tt.count, tt.priceChange, tt.policy)
			if got != tt.want {
				t.Errorf("Classify() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestClassify_NilTriggeredSet(t *testing.T) {
	got := Classify(nil, 0, 3, Policy{MinIndicators: 0, PriceChangeThreshold: 1})
	if !got.IsSignal() {
		t.Errorf("Classify(nil) = %+v, want pump signal", got)
	}
	got = Classify(nil, 0, 3, Policy{RequiredIndicators: []models.IndicatorName{models.IndicatorRSI}})
	if got.Qualified {
		t.Error("required indicator cannot be satisfied by a nil set")
	}
}

func TestPercentChange(t *testing.T) {
	if got := percentChange(100, 101.5); math.Abs(got-1.5) > 1e-9 {
		t.Errorf("percentChange = %v, want 1.5", got)
	}
	if got := percentChange(0, 5); !math.IsNaN(got) {
		t.Errorf("percentChange from zero = %v, want NaN", got)
	}
}
