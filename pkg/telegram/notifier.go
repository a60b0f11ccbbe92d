// Package telegram dispatches user notifications for job outcomes and budget
// alerts to a configured chat.
package telegram

import (
	"context"
	"fmt"

	"equity-research/config"
	"equity-research/pkg/logger"

	"golang.org/x/time/rate"
	"gopkg.in/telebot.v3"
)

type Notifier struct {
	cfg           *config.TelegramConfig
	log           *logger.Logger
	bot           *telebot.Bot
	globalLimiter *rate.Limiter
}

func NewNotifier(cfg *config.TelegramConfig, log *logger.Logger, bot *telebot.Bot) *Notifier {
	return &Notifier{
		cfg:           cfg,
		log:           log,
		bot:           bot,
		globalLimiter: rate.NewLimiter(rate.Limit(cfg.MaxGlobalRequestPerSecond), cfg.MaxGlobalRequestPerSecond),
	}
}

// NotifyJobCompleted announces a finished research job. Delivery is
// best-effort: failures are logged, never propagated to the job lifecycle.
func (n *Notifier) NotifyJobCompleted(ctx context.Context, jobID uint, provider string, costUSD *float64) {
	msg := fmt.Sprintf("Research job #%d completed (provider: %s)", jobID, provider)
	if costUSD != nil {
		msg += fmt.Sprintf(", cost $%.4f", *costUSD)
	}
	n.send(ctx, msg)
}

func (n *Notifier) NotifyJobFailed(ctx context.Context, jobID uint, provider string, errMsg string) {
	n.send(ctx, fmt.Sprintf("Research job #%d failed (provider: %s): %s", jobID, provider, errMsg))
}

func (n *Notifier) NotifyBudgetExceeded(ctx context.Context, monthTotal, budget float64) {
	n.send(ctx, fmt.Sprintf("Monthly research spend $%.2f has crossed the $%.2f budget", monthTotal, budget))
}

func (n *Notifier) send(ctx context.Context, message string) {
	if n.bot == nil || n.cfg.ChatID == 0 {
		n.log.DebugContext(ctx, "Telegram notifier not configured, dropping message",
			logger.StringField("message", message),
		)
		return
	}

	if err := n.globalLimiter.Wait(ctx); err != nil {
		n.log.WarnContext(ctx, "Notification rate limit wait cancelled", logger.ErrorField(err))
		return
	}

	if _, err := n.bot.Send(&telebot.User{ID: n.cfg.ChatID}, message); err != nil {
		n.log.ErrorContext(ctx, "Failed to send telegram notification",
			logger.ErrorField(err),
			logger.StringField("message", message),
		)
	}
}
