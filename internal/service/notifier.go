package service

import "context"

// Notifier dispatches user-facing notifications. Delivery is best-effort and
// must never influence job state.
type Notifier interface {
	NotifyJobCompleted(ctx context.Context, jobID uint, provider string, costUSD *float64)
	NotifyJobFailed(ctx context.Context, jobID uint, provider string, errMsg string)
	NotifyBudgetExceeded(ctx context.Context, monthTotal, budget float64)
}

// NoopNotifier drops all notifications. Used when no channel is configured
// and in tests.
type NoopNotifier struct{}

func (NoopNotifier) NotifyJobCompleted(context.Context, uint, string, *float64) {}
func (NoopNotifier) NotifyJobFailed(context.Context, uint, string, string)     {}
func (NoopNotifier) NotifyBudgetExceeded(context.Context, float64, float64)    {}
