package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/dom/star-diary/internal/domain"
	"github.com/dom/star-diary/internal/logging"
	"github.com/dom/star-diary/internal/telegram"
)

// TelegramSink posts events to a single chat as HTML messages.
type TelegramSink struct {
	client *telegram.Client
	chatID string
	log    logging.Logger
}

func NewTelegramSink(client *telegram.Client, chatID string, log logging.Logger) *TelegramSink {
	return &TelegramSink{
		client: client,
		chatID: chatID,
		log:    log.With("sink", "telegram"),
	}
}

func (s *TelegramSink) Name() string { return "telegram" }

// Configured needs both the bot token and the target chat.
func (s *TelegramSink) Configured() bool {
	return s.client.Configured() && s.chatID != ""
}

func (s *TelegramSink) Dispatch(ctx context.Context, ev domain.Event) bool {
	if !s.Configured() {
		return false
	}

	text, err := Render(ev)
	if err != nil {
		s.log.Error(ctx, "render notification", "kind", ev.Kind, "error", err)
		return false
	}

	_, err = s.client.SendMessage(ctx, telegram.SendMessageRequest{
		ChatID:                s.chatID,
		Text:                  text,
		ParseMode:             telegram.ParseModeHTML,
		DisableWebPagePreview: true,
	})
	if err != nil {
		s.log.Warn(ctx, "send telegram message", "kind", ev.Kind, "error", err)
		return false
	}
	return true
}

// Render builds the HTML message for ev. User-supplied text is escaped.
func Render(ev domain.Event) (string, error) {
	esc := telegram.EscapeHTML
	when := telegram.FormatTime(ev.OccurredAt)

	var b strings.Builder
	switch ev.Kind {
	case domain.EventEntryCreated:
		fmt.Fprintf(&b, "🌟 <b>New wish in the Shooting Star Garden</b> 🌟\n\n")
		fmt.Fprintf(&b, "👤 <b>Author:</b> %s\n", esc(ev.DisplayName))
		fmt.Fprintf(&b, "📅 <b>Time:</b> %s\n\n", when)
		fmt.Fprintf(&b, "💭 <b>Content:</b>\n<i>\"%s\"</i>", esc(ev.Content))
	case domain.EventRegistrationSucceeded:
		emoji := ev.Emoji
		if emoji == "" {
			emoji = domain.DefaultEmoji
		}
		fmt.Fprintf(&b, "🎉 <b>Welcome, princess!</b> 🎉\n\n")
		fmt.Fprintf(&b, "👸 <b>Name:</b> %s\n", esc(ev.DisplayName))
		fmt.Fprintf(&b, "🆔 <b>Username:</b> %s\n", esc(ev.Username))
		fmt.Fprintf(&b, "📅 <b>Joined:</b> %s\n\n", when)
		fmt.Fprintf(&b, "%s <i>A new member has joined the Shooting Star Garden!</i>", esc(emoji))
	case domain.EventLoginSucceeded:
		fmt.Fprintf(&b, "🔐 <b>Login successful</b>\n\n")
		fmt.Fprintf(&b, "👤 %s entered the Shooting Star Garden\n", esc(ev.DisplayName))
		fmt.Fprintf(&b, "🕐 %s", when)
	default:
		return "", fmt.Errorf("unknown event kind %q", ev.Kind)
	}
	return b.String(), nil
}
