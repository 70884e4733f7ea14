// Package notify delivers new-lead notifications to the business owner.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/m3rciful/leadbot/core/logger"
	"github.com/m3rciful/leadbot/internal/lead"
)

// Multi fans a notification out to every notifier. All notifiers are
// attempted; their errors are joined.
type Multi []lead.Notifier

// Notify implements lead.Notifier.
func (m Multi) Notify(ctx context.Context, text string) error {
	var errs []error
	for i, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, text); err != nil {
			logger.Warn(ctx, "notify", "notify.channel",
				slog.String("status", "fail"),
				slog.Int("channel", i),
				slog.String("err", err.Error()),
			)
			errs = append(errs, fmt.Errorf("notifier %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
