package telegram

import (
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/leadbot/core/config"

	tele "gopkg.in/telebot.v4"
)

const defaultLongPollTimeout = 10 * time.Second

// allowedUpdates lists the update kinds the bot consumes.
var allowedUpdates = []string{"message", "callback_query"}

// WebhookOptions declares webhook listener settings.
type WebhookOptions struct {
	Listen string
	Port   int
	URL    string
}

// PollerOptions configures BuildPoller.
type PollerOptions struct {
	RunMode                string
	LongPollTimeoutSeconds int
	Webhook                WebhookOptions
}

// PollerOptionsFrom maps core configuration onto PollerOptions.
func PollerOptionsFrom(cfg *coreconfig.Config) PollerOptions {
	return PollerOptions{
		RunMode:                cfg.Telegram.RunMode,
		LongPollTimeoutSeconds: cfg.Telegram.LongPollTimeoutSeconds,
		Webhook: WebhookOptions{
			Listen: cfg.Webhook.Listen,
			Port:   cfg.Webhook.Port,
			URL:    cfg.Webhook.URL,
		},
	}
}

// LongPollTimeout returns the effective long polling timeout.
func (o PollerOptions) LongPollTimeout() time.Duration {
	if o.LongPollTimeoutSeconds <= 0 {
		return defaultLongPollTimeout
	}
	return time.Duration(o.LongPollTimeoutSeconds) * time.Second
}

// BuildPoller returns a Telebot poller based on provided options.
func BuildPoller(opts PollerOptions) tele.Poller {
	if strings.EqualFold(strings.TrimSpace(opts.RunMode), coreconfig.RunModeWebhook) {
		return &tele.Webhook{
			Listen:         fmt.Sprintf("%s:%d", opts.Webhook.Listen, opts.Webhook.Port),
			AllowedUpdates: allowedUpdates,
			Endpoint:       &tele.WebhookEndpoint{PublicURL: opts.Webhook.URL},
		}
	}
	return &tele.LongPoller{
		Timeout:        opts.LongPollTimeout(),
		AllowedUpdates: allowedUpdates,
	}
}
