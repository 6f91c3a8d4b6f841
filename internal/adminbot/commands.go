package adminbot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dom/star-diary/internal/service"
	"github.com/dom/star-diary/internal/telegram"
)

const (
	msgRefusal = "⛔ You are not allowed to use this bot."

	commandList = "/register <username> <password> - Create a user\n" +
		"/remove <username> - Delete a user\n" +
		"/list - Show users"

	msgWelcome = "✨ Welcome to the Shooting Star Garden bot! ✨\n\nCommands:\n" + commandList
	msgHelp    = "📖 How to use:\n\n" + commandList

	msgRegisterUsage = "❌ Usage: /register <username> <password>"
	msgRemoveUsage   = "❌ Usage: /remove <username>"
	msgRegisterError = "❌ Something went wrong while creating the user."
	msgRemoveError   = "❌ Something went wrong while deleting the user."
	msgListError     = "❌ Something went wrong while listing users."
	msgNoUsers       = "📋 No users yet."
)

// HandleUpdate processes one inbound update. Replies are best effort and
// errors are logged, never returned.
func (b *Bot) HandleUpdate(ctx context.Context, u telegram.Update) {
	msg := u.Message
	if msg == nil || msg.Text == "" {
		return
	}

	if msg.ChatID() != b.opts.AdminChatID {
		b.log.Warn(ctx, "telegram command from unauthorized chat", "chat_id", msg.ChatID())
		b.reply(ctx, msg, msgRefusal)
		return
	}

	command, args := parseCommand(msg.Text)
	var text string
	switch command {
	case "":
		return
	case "start":
		text = msgWelcome
	case "help":
		text = msgHelp
	case "register":
		text = b.register(ctx, args)
	case "remove":
		text = b.remove(ctx, args)
	case "list":
		text = b.list(ctx)
	default:
		return
	}
	b.reply(ctx, msg, text)
}

// parseCommand splits "/cmd@botname a b" into ("cmd", [a b]). Plain text
// yields an empty command.
func parseCommand(text string) (string, []string) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", nil
	}
	command := strings.TrimPrefix(fields[0], "/")
	if i := strings.IndexByte(command, '@'); i >= 0 {
		command = command[:i]
	}
	return strings.ToLower(command), fields[1:]
}

func (b *Bot) register(ctx context.Context, args []string) string {
	if len(args) < 2 {
		return msgRegisterUsage
	}
	username, password := args[0], args[1]

	if err := service.ValidateUsername(username); err != nil {
		return "❌ " + err.Error() + "."
	}
	if err := service.ValidatePassword(password); err != nil {
		return "❌ " + err.Error() + "."
	}

	user, err := b.creds.Create(ctx, service.CreateUserInput{
		Username: username,
		Password: password,
	})
	if errors.Is(err, service.ErrUsernameExists) {
		return fmt.Sprintf("❌ Username %q already exists.", username)
	}
	if err != nil {
		b.log.Error(ctx, "bot register failed", "username", username, "error", err)
		return msgRegisterError
	}

	b.log.Info(ctx, "user created via telegram bot", "username", user.Username)
	return fmt.Sprintf("✅ User created!\n\n👤 Username: %s\n🔑 Password: %s\n📅 Created: %s",
		user.Username, password, telegram.FormatTime(user.CreatedAt))
}

func (b *Bot) remove(ctx context.Context, args []string) string {
	if len(args) < 1 {
		return msgRemoveUsage
	}
	username := args[0]

	err := b.creds.RemoveByUsername(ctx, username)
	if errors.Is(err, service.ErrUserNotFound) {
		return fmt.Sprintf("❌ User %q not found.", username)
	}
	if err != nil {
		b.log.Error(ctx, "bot remove failed", "username", username, "error", err)
		return msgRemoveError
	}

	b.log.Info(ctx, "user removed via telegram bot", "username", username)
	return fmt.Sprintf("✅ User %q deleted.", username)
}

func (b *Bot) list(ctx context.Context) string {
	users, err := b.users.ListActive(ctx)
	if err != nil {
		b.log.Error(ctx, "bot list failed", "error", err)
		return msgListError
	}
	if len(users) == 0 {
		return msgNoUsers
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📋 Users (%d):", len(users))
	for i, u := range users {
		lastLogin := "never logged in"
		if u.LastLogin != nil {
			lastLogin = telegram.FormatTime(*u.LastLogin)
		}
		fmt.Fprintf(&sb, "\n\n%d. %s (%s)\n   └ Last login: %s", i+1, u.Username, u.DisplayName, lastLogin)
	}
	return sb.String()
}

func (b *Bot) reply(ctx context.Context, to *telegram.Message, text string) {
	_, err := b.client.SendMessage(ctx, telegram.SendMessageRequest{
		ChatID: to.ChatID(),
		Text:   text,
	})
	if err != nil {
		b.log.Warn(ctx, "telegram reply failed", "chat_id", to.ChatID(), "error", err)
	}
}
