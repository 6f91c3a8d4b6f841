// Package adminbot is the Telegram command channel for the diary operator.
//
// A single configured chat may create, remove and list accounts. Every
// other sender gets a fixed refusal. The bot binds either through a
// webhook on the main router or through long polling, and gives up
// after a bounded number of launch attempts.
package adminbot

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/dom/star-diary/internal/logging"
	"github.com/dom/star-diary/internal/service"
	"github.com/dom/star-diary/internal/telegram"
	"github.com/sethvargo/go-retry"
)

const (
	DefaultMaxAttempts = 5
	DefaultRetryDelay  = 5 * time.Second
	DefaultPollTimeout = 30 // seconds, passed to getUpdates

	WebhookPathPrefix = "/telegram/webhook/"
)

type Options struct {
	AdminChatID   string
	WebhookDomain string
	MaxAttempts   int
	RetryDelay    time.Duration
	PollTimeout   int
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = DefaultRetryDelay
	}
	if o.PollTimeout <= 0 {
		o.PollTimeout = DefaultPollTimeout
	}
	o.WebhookDomain = webhookBase(o.WebhookDomain)
	return o
}

// webhookBase accepts a bare host ("diary.example.com") or a full origin
// and returns an origin with a scheme and no trailing slash.
func webhookBase(domain string) string {
	domain = strings.TrimRight(strings.TrimSpace(domain), "/")
	if domain == "" || strings.Contains(domain, "://") {
		return domain
	}
	return "https://" + domain
}

type Bot struct {
	client *telegram.Client
	creds  *service.CredentialService
	users  *service.UserService
	opts   Options
	secret string
	log    logging.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	stopped bool
}

func New(client *telegram.Client, token string, creds *service.CredentialService, users *service.UserService, opts Options, log logging.Logger) *Bot {
	return &Bot{
		client: client,
		creds:  creds,
		users:  users,
		opts:   opts.withDefaults(),
		secret: webhookSecret(token),
		log:    log.With("component", "adminbot"),
	}
}

// webhookSecret derives the unguessable webhook path segment from the
// bot token.
func webhookSecret(token string) string {
	if token == "" {
		return ""
	}
	sum := sha256.Sum256([]byte("webhook:" + token))
	return hex.EncodeToString(sum[:16])
}

func (b *Bot) Enabled() bool {
	return b != nil && b.client.Configured()
}

// WebhookPath is the route Telegram posts updates to in webhook mode.
func (b *Bot) WebhookPath() string {
	return WebhookPathPrefix + b.secret
}

func (b *Bot) webhookMode() bool {
	return b.opts.WebhookDomain != ""
}

// Launch binds the bot and, in polling mode, serves updates until ctx is
// cancelled or Stop is called. Binding is retried a fixed number of times;
// after that the bot stays off for the life of the process. Run it on its
// own goroutine after the HTTP server is listening.
func (b *Bot) Launch(ctx context.Context) error {
	if !b.Enabled() {
		b.log.Info(ctx, "telegram bot not configured, skipping")
		return nil
	}

	b.mu.Lock()
	if b.stopped || b.done != nil {
		b.mu.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.done = make(chan struct{})
	done := b.done
	b.mu.Unlock()

	defer close(done)
	defer cancel()

	if err := b.bindWithRetry(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		b.log.Error(ctx, "telegram bot failed to start after all retries, continuing without bot",
			"attempts", b.opts.MaxAttempts, "error", err)
		return err
	}

	if b.webhookMode() {
		b.log.Info(ctx, "telegram bot started", "mode", "webhook", "domain", b.opts.WebhookDomain)
		<-ctx.Done()
		return nil
	}

	b.log.Info(ctx, "telegram bot started", "mode", "polling")
	b.poll(ctx)
	return nil
}

func (b *Bot) bindWithRetry(ctx context.Context) error {
	attempt := 0
	backoff := retry.WithMaxRetries(uint64(b.opts.MaxAttempts-1), retry.NewConstant(b.opts.RetryDelay))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := b.bind(ctx); err != nil {
			b.log.Warn(ctx, "telegram bot launch attempt failed",
				"attempt", attempt, "max", b.opts.MaxAttempts, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
}

func (b *Bot) bind(ctx context.Context) error {
	me, err := b.client.GetMe(ctx)
	if err != nil {
		return err
	}
	b.log.Debug(ctx, "telegram bot identity", "username", me.Username)

	if b.webhookMode() {
		return b.client.SetWebhook(ctx, b.opts.WebhookDomain+b.WebhookPath(), b.secret)
	}
	return b.client.DeleteWebhook(ctx)
}

func (b *Bot) poll(ctx context.Context) {
	var offset int64
	for {
		updates, err := b.client.GetUpdates(ctx, offset, b.opts.PollTimeout)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			b.log.Warn(ctx, "telegram getUpdates failed", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(b.opts.RetryDelay):
			}
			continue
		}

		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			b.HandleUpdate(ctx, u)
		}
	}
}

// Stop ends polling (or the webhook wait) and waits for Launch to return.
func (b *Bot) Stop() {
	if b == nil {
		return
	}
	b.mu.Lock()
	b.stopped = true
	cancel, done := b.cancel, b.done
	b.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}
