package telegram

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rewired-gh/pumpsentry/internal/models"
)

func kindLabel(kind models.Kind) (icon, label string) {
	switch kind {
	case models.KindPump:
		return "🚀", "PUMP"
	case models.KindDump:
		return "📉", "DUMP"
	default:
		return "⚪", "SIGNAL"
	}
}

func formatPrice(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatChange(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%+.2f%%", v)
}

func joinIndicators(names []models.IndicatorName) string {
	if len(names) == 0 {
		return "none"
	}
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = string(n)
	}
	return strings.Join(parts, ", ")
}

// formatSignal formats a new signal into a Telegram MarkdownV2 message.
func formatSignal(res models.IndicatorResult) string {
	icon, label := kindLabel(res.Classification.Kind)

	var b strings.Builder
	fmt.Fprintf(&b, "%s *%s* `%s`\n", icon, label, escapeMarkdownV2(res.Symbol))
	fmt.Fprintf(&b, "Triggered: *%d of %d* indicators\n", res.CountTriggered, res.TotalIndicators)
	fmt.Fprintf(&b, "Price: %s \\(%s\\)\n",
		escapeMarkdownV2(formatPrice(res.LastClose)), escapeMarkdownV2(formatChange(res.PriceChange)))
	fmt.Fprintf(&b, "Fired: %s\n", escapeMarkdownV2(joinIndicators(res.TriggeredNames())))
	if res.Comment != "" {
		fmt.Fprintf(&b, "\n%s", escapeMarkdownV2(res.Comment))
	}
	return b.String()
}

// formatConfirmation formats a non-escalating repeat of a signal.
func formatConfirmation(res models.IndicatorResult, previous int) string {
	icon, label := kindLabel(res.Classification.Kind)

	var b strings.Builder
	fmt.Fprintf(&b, "%s *%s confirmation* `%s`\n", icon, label, escapeMarkdownV2(res.Symbol))
	fmt.Fprintf(&b, "Now %d of %d indicators triggered \\(previously %d\\)\n",
		res.CountTriggered, res.TotalIndicators, previous)
	fmt.Fprintf(&b, "Price: %s \\(%s\\)\n",
		escapeMarkdownV2(formatPrice(res.LastClose)), escapeMarkdownV2(formatChange(res.PriceChange)))
	if res.Comment != "" {
		fmt.Fprintf(&b, "\n%s", escapeMarkdownV2(res.Comment))
	}
	return b.String()
}

// formatStatus renders the settings snapshot as plain text.
func formatStatus(cfg models.AnalysisConfig) string {
	state := "stopped"
	if cfg.BotStatus {
		state = "running"
	}

	var enabled, disabled []string
	for _, name := range models.AllIndicators {
		if cfg.Enabled(name) {
			enabled = append(enabled, string(name))
		} else {
			disabled = append(disabled, string(name))
		}
	}

	required := joinIndicators(cfg.RequiredIndicators)

	var b strings.Builder
	fmt.Fprintf(&b, "Monitoring: %s\n", state)
	fmt.Fprintf(&b, "Timeframe: %s\n", cfg.Timeframe)
	fmt.Fprintf(&b, "Min indicators: %d\n", cfg.MinIndicators)
	fmt.Fprintf(&b, "Required: %s\n", required)
	fmt.Fprintf(&b, "Price change threshold: %.2f%%\n", cfg.PriceChangeThreshold)
	fmt.Fprintf(&b, "Volume filter: %.0f\n", cfg.VolumeFilter)
	fmt.Fprintf(&b, "Enabled (%d): %s", len(enabled), strings.Join(enabled, ", "))
	if len(disabled) > 0 {
		fmt.Fprintf(&b, "\nDisabled: %s", strings.Join(disabled, ", "))
	}
	return b.String()
}
