package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rewired-gh/pumpsentry/internal/logger"
	"github.com/rewired-gh/pumpsentry/internal/models"
)

const togglePrefix = "toggle:"

const helpText = `Commands:
/start - start monitoring
/stop - stop monitoring
/status - show current settings
/indicators - enable or disable indicators
/min <n> - minimum triggered indicators
/threshold <pct> - price change threshold in percent
/timeframe <1m|5m|15m|1h> - candle interval
/required <names...|none> - indicators that must all trigger
/test - send a test message`

func (c *Client) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		c.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.IsCommand():
		c.handleCommand(ctx, update.Message)
	}
}

func (c *Client) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Chat == nil || msg.Chat.ID != c.chatID {
		logger.Warn("Ignoring /%s from unauthorised chat", msg.Command())
		return
	}

	switch msg.Command() {
	case "start":
		if err := c.settings.SetBotStatus(ctx, true); err != nil {
			c.replyError(msg.Chat.ID, "start monitoring", err)
			return
		}
		logger.Info("Monitoring started via Telegram")
		c.reply(msg.Chat.ID, "✅ Monitoring started")

	case "stop":
		if err := c.settings.SetBotStatus(ctx, false); err != nil {
			c.replyError(msg.Chat.ID, "stop monitoring", err)
			return
		}
		logger.Info("Monitoring stopped via Telegram")
		c.reply(msg.Chat.ID, "⏸ Monitoring stopped")

	case "status":
		cfg, err := c.settings.LoadAnalysisConfig(ctx)
		if err != nil {
			c.replyError(msg.Chat.ID, "load settings", err)
			return
		}
		c.reply(msg.Chat.ID, formatStatus(cfg))

	case "test":
		if err := c.sendMarkdownV2(ctx, "🧪 *Test message*\nNotifications are working\\."); err != nil {
			logger.Warn("Failed to send test message: %v", err)
		}

	case "indicators":
		cfg, err := c.settings.LoadAnalysisConfig(ctx)
		if err != nil {
			c.replyError(msg.Chat.ID, "load settings", err)
			return
		}
		reply := tgbotapi.NewMessage(msg.Chat.ID, "Tap an indicator to switch it on or off:")
		reply.ReplyMarkup = indicatorKeyboard(cfg)
		if _, err := c.bot.Send(reply); err != nil {
			logger.Warn("Failed to send indicator keyboard: %v", err)
		}

	case "min":
		n, err := strconv.Atoi(strings.TrimSpace(msg.CommandArguments()))
		if err != nil || n < 0 {
			c.reply(msg.Chat.ID, "Usage: /min <n>, n >= 0")
			return
		}
		if err := c.settings.SetMinIndicators(ctx, n); err != nil {
			c.replyError(msg.Chat.ID, "update min indicators", err)
			return
		}
		c.reply(msg.Chat.ID, fmt.Sprintf("Min indicators set to %d", n))

	case "threshold":
		pct, err := strconv.ParseFloat(strings.TrimSpace(msg.CommandArguments()), 64)
		if err != nil || pct < 0 {
			c.reply(msg.Chat.ID, "Usage: /threshold <pct>, pct >= 0")
			return
		}
		if err := c.settings.SetPriceChangeThreshold(ctx, pct); err != nil {
			c.replyError(msg.Chat.ID, "update threshold", err)
			return
		}
		c.reply(msg.Chat.ID, fmt.Sprintf("Price change threshold set to %.2f%%", pct))

	case "timeframe":
		tf := strings.TrimSpace(msg.CommandArguments())
		if !models.Timeframes[tf] {
			c.reply(msg.Chat.ID, "Usage: /timeframe <1m|5m|15m|1h>")
			return
		}
		if err := c.settings.SetTimeframe(ctx, tf); err != nil {
			c.replyError(msg.Chat.ID, "update timeframe", err)
			return
		}
		c.reply(msg.Chat.ID, "Timeframe set to "+tf)

	case "required":
		names, err := parseIndicators(msg.CommandArguments())
		if err != nil {
			c.reply(msg.Chat.ID, "❌ "+err.Error()+"\nUsage: /required <names...|none>")
			return
		}
		if err := c.settings.SetRequiredIndicators(ctx, names); err != nil {
			c.replyError(msg.Chat.ID, "update required indicators", err)
			return
		}
		c.reply(msg.Chat.ID, "Required indicators: "+joinIndicators(names))

	default:
		c.reply(msg.Chat.ID, helpText)
	}
}

// parseIndicators reads indicator names separated by spaces or commas.
// "none" or no argument clears the list.
func parseIndicators(args string) ([]models.IndicatorName, error) {
	fields := strings.FieldsFunc(strings.ToLower(args), func(r rune) bool {
		return r == ',' || r == ' '
	})
	if len(fields) == 1 && fields[0] == "none" {
		return []models.IndicatorName{}, nil
	}

	names := []models.IndicatorName{}
	seen := make(map[models.IndicatorName]bool)
	for _, f := range fields {
		name := models.IndicatorName(f)
		if !models.IsKnownIndicator(name) {
			return nil, fmt.Errorf("unknown indicator %q", f)
		}
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names, nil
}

func (c *Client) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil || cb.Message.Chat == nil || cb.Message.Chat.ID != c.chatID {
		logger.Warn("Ignoring callback from unauthorised chat")
		return
	}
	if !strings.HasPrefix(cb.Data, togglePrefix) {
		c.answer(cb.ID, "Unknown action")
		return
	}

	name := models.IndicatorName(strings.TrimPrefix(cb.Data, togglePrefix))
	enabled, err := c.settings.ToggleIndicator(ctx, name)
	if err != nil {
		logger.Warn("Failed to toggle indicator %s: %v", name, err)
		c.answer(cb.ID, "Could not update "+string(name))
		return
	}

	state := "off"
	if enabled {
		state = "on"
	}
	logger.Info("Indicator %s switched %s via Telegram", name, state)
	c.answer(cb.ID, fmt.Sprintf("%s is now %s", name, state))

	cfg, err := c.settings.LoadAnalysisConfig(ctx)
	if err != nil {
		logger.Warn("Failed to reload settings after toggle: %v", err)
		return
	}
	edit := tgbotapi.NewEditMessageReplyMarkup(cb.Message.Chat.ID, cb.Message.MessageID, indicatorKeyboard(cfg))
	if _, err := c.bot.Request(edit); err != nil {
		logger.Warn("Failed to refresh indicator keyboard: %v", err)
	}
}

func (c *Client) answer(callbackID, text string) {
	if _, err := c.bot.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		logger.Warn("Failed to answer callback: %v", err)
	}
}

func (c *Client) replyError(chatID int64, action string, err error) {
	logger.Error("Failed to %s: %v", action, err)
	c.reply(chatID, fmt.Sprintf("❌ Failed to %s", action))
}

// indicatorKeyboard renders one button per indicator, two per row.
func indicatorKeyboard(cfg models.AnalysisConfig) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, name := range models.AllIndicators {
		mark := "❌"
		if cfg.Enabled(name) {
			mark = "✅"
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(mark+" "+string(name), togglePrefix+string(name)))
		if len(row) == 2 {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(row...))
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(row...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
