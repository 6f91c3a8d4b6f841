package adminbot_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dom/star-diary/internal/adminbot"
	"github.com/dom/star-diary/internal/logging"
	"github.com/dom/star-diary/internal/service"
	"github.com/dom/star-diary/internal/telegram"
	"github.com/dom/star-diary/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	adminChat = "1001"
	token     = "TOKEN"
)

// fakeTelegram is a scripted Bot API.
type fakeTelegram struct {
	mu        sync.Mutex
	calls     map[string]int
	sent      []telegram.SendMessageRequest
	webhooks  []map[string]any
	failGetMe bool
	updates   chan []telegram.Update
}

func newFakeTelegram(t *testing.T) (*fakeTelegram, *httptest.Server) {
	t.Helper()
	f := &fakeTelegram{calls: map[string]int{}, updates: make(chan []telegram.Update, 4)}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeTelegram) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	method := strings.TrimPrefix(r.URL.Path, "/bot"+token+"/")
	f.mu.Lock()
	f.calls[method]++
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch method {
	case "getMe":
		if f.isGetMeFailing() {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"ok":false,"error_code":502,"description":"Bad Gateway"}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Star","username":"star_bot"}}`))
	case "sendMessage":
		var req telegram.SendMessageRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		f.sent = append(f.sent, req)
		f.mu.Unlock()
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"chat":{"id":1,"type":"private"}}}`))
	case "setWebhook":
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.webhooks = append(f.webhooks, body)
		f.mu.Unlock()
		_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
	case "getUpdates":
		select {
		case batch := <-f.updates:
			data, _ := json.Marshal(batch)
			_, _ = w.Write([]byte(`{"ok":true,"result":` + string(data) + `}`))
		case <-r.Context().Done():
		case <-time.After(50 * time.Millisecond):
			_, _ = w.Write([]byte(`{"ok":true,"result":[]}`))
		}
	default:
		_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
	}
}

func (f *fakeTelegram) isGetMeFailing() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failGetMe
}

func (f *fakeTelegram) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeTelegram) replies() []telegram.SendMessageRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]telegram.SendMessageRequest, len(f.sent))
	copy(out, f.sent)
	return out
}

type botFixture struct {
	bot   *adminbot.Bot
	api   *fakeTelegram
	users *testutil.MemoryUserRepository
	creds *service.CredentialService
}

func newBotFixture(t *testing.T, opts adminbot.Options) *botFixture {
	t.Helper()
	api, srv := newFakeTelegram(t)
	users := testutil.NewMemoryUserRepository()
	creds := service.NewCredentialService(users, bcrypt.MinCost)

	if opts.AdminChatID == "" {
		opts.AdminChatID = adminChat
	}
	if opts.RetryDelay == 0 {
		opts.RetryDelay = time.Millisecond
	}
	bot := adminbot.New(telegram.NewClient(srv.URL, token), token, creds, service.NewUserService(users), opts, logging.Discard())
	t.Cleanup(bot.Stop)

	return &botFixture{bot: bot, api: api, users: users, creds: creds}
}

func message(chatID int64, text string) telegram.Update {
	return telegram.Update{
		UpdateID: 1,
		Message: &telegram.Message{
			MessageID: 1,
			Chat:      telegram.Chat{ID: chatID, Type: "private"},
			Text:      text,
		},
	}
}

func TestBot_RefusesNonAdmin(t *testing.T) {
	f := newBotFixture(t, adminbot.Options{})

	for _, text := range []string{"/start", "/register evil hacker1", "/list", "hello"} {
		f.bot.HandleUpdate(context.Background(), message(666, text))
	}

	replies := f.api.replies()
	require.Len(t, replies, 4)
	for _, r := range replies {
		assert.Equal(t, "666", r.ChatID)
		assert.Equal(t, "⛔ You are not allowed to use this bot.", r.Text)
	}

	_, err := f.users.GetByUsername(context.Background(), "evil")
	assert.Error(t, err, "refused command must have no effect")
}

func TestBot_Commands(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(t *testing.T, f *botFixture)
		text      string
		wantReply string
		noReply   bool
		check     func(t *testing.T, f *botFixture)
	}{
		{name: "start", text: "/start", wantReply: "Welcome"},
		{name: "help", text: "/help", wantReply: "/register <username> <password>"},
		{name: "command with bot suffix", text: "/help@star_bot", wantReply: "How to use"},
		{name: "plain text ignored", text: "just chatting", noReply: true},
		{name: "unknown command ignored", text: "/dance", noReply: true},
		{
			name:      "register",
			text:      "/register star01 abc123",
			wantReply: "✅ User created!",
			check: func(t *testing.T, f *botFixture) {
				user, err := f.creds.Verify(context.Background(), "star01", "abc123")
				require.NoError(t, err)
				require.NotNil(t, user)
				assert.True(t, user.IsActive)
				assert.Equal(t, "star01", user.DisplayName)
			},
		},
		{name: "register missing password", text: "/register star01", wantReply: "Usage: /register"},
		{name: "register short username", text: "/register ab abc123", wantReply: "between 3 and 30"},
		{name: "register bad characters", text: "/register star-01 abc123", wantReply: "letters, numbers, and underscores"},
		{name: "register short password", text: "/register star01 abc", wantReply: "at least 6"},
		{
			name: "register duplicate",
			setup: func(t *testing.T, f *botFixture) {
				testutil.NewUserBuilder().WithUsername("taken").Build(t, f.users)
			},
			text:      "/register taken abc123",
			wantReply: `Username "taken" already exists`,
		},
		{
			name: "remove",
			setup: func(t *testing.T, f *botFixture) {
				testutil.NewUserBuilder().WithUsername("doomed").Build(t, f.users)
			},
			text:      "/remove doomed",
			wantReply: `User "doomed" deleted`,
			check: func(t *testing.T, f *botFixture) {
				_, err := f.users.GetByUsername(context.Background(), "doomed")
				assert.Error(t, err)
			},
		},
		{name: "remove unknown", text: "/remove ghost", wantReply: `User "ghost" not found`},
		{name: "remove missing arg", text: "/remove", wantReply: "Usage: /remove"},
		{name: "list empty", text: "/list", wantReply: "No users yet"},
		{
			name: "list active newest first",
			setup: func(t *testing.T, f *botFixture) {
				base := time.Now().Add(-time.Hour)
				testutil.NewUserBuilder().WithUsername("older").WithCreatedAt(base).Build(t, f.users)
				testutil.NewUserBuilder().WithUsername("hidden").Inactive().WithCreatedAt(base.Add(time.Minute)).Build(t, f.users)
				testutil.NewUserBuilder().WithUsername("newer").WithCreatedAt(base.Add(2*time.Minute)).Build(t, f.users)
			},
			text:      "/list",
			wantReply: "Users (2)",
			check: func(t *testing.T, f *botFixture) {
				text := f.api.replies()[0].Text
				assert.NotContains(t, text, "hidden")
				assert.Less(t, strings.Index(text, "newer"), strings.Index(text, "older"))
				assert.Contains(t, text, "never logged in")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newBotFixture(t, adminbot.Options{})
			if tt.setup != nil {
				tt.setup(t, f)
			}

			f.bot.HandleUpdate(context.Background(), message(1001, tt.text))

			replies := f.api.replies()
			if tt.noReply {
				assert.Empty(t, replies)
				return
			}
			require.Len(t, replies, 1)
			assert.Equal(t, adminChat, replies[0].ChatID)
			assert.Contains(t, replies[0].Text, tt.wantReply)
			if tt.check != nil {
				tt.check(t, f)
			}
		})
	}
}

func TestBot_LaunchDisabledWithoutToken(t *testing.T) {
	users := testutil.NewMemoryUserRepository()
	bot := adminbot.New(telegram.NewClient("", ""), "", service.NewCredentialService(users, bcrypt.MinCost),
		service.NewUserService(users), adminbot.Options{}, logging.Discard())

	assert.False(t, bot.Enabled())
	assert.NoError(t, bot.Launch(context.Background()))
	bot.Stop()
}

func TestBot_LaunchGivesUpAfterMaxAttempts(t *testing.T) {
	f := newBotFixture(t, adminbot.Options{})
	f.api.failGetMe = true

	err := f.bot.Launch(context.Background())
	require.Error(t, err)
	assert.Equal(t, adminbot.DefaultMaxAttempts, f.api.count("getMe"))
	assert.Zero(t, f.api.count("deleteWebhook"))
	assert.Zero(t, f.api.count("getUpdates"))
}

func TestBot_LaunchPollingHandlesUpdates(t *testing.T) {
	f := newBotFixture(t, adminbot.Options{PollTimeout: 1})

	errc := make(chan error, 1)
	go func() { errc <- f.bot.Launch(context.Background()) }()

	f.api.updates <- []telegram.Update{message(1001, "/register polled abc123")}

	require.Eventually(t, func() bool {
		return len(f.api.replies()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Contains(t, f.api.replies()[0].Text, "User created")
	assert.Equal(t, 1, f.api.count("deleteWebhook"))

	f.bot.Stop()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Launch did not return after Stop")
	}
}

func TestBot_LaunchWebhookMode(t *testing.T) {
	tests := []struct {
		name   string
		domain string
		want   string
	}{
		{name: "full origin", domain: "https://diary.example.com", want: "https://diary.example.com"},
		{name: "bare host", domain: "diary.example.com", want: "https://diary.example.com"},
		{name: "trailing slash", domain: "diary.example.com/", want: "https://diary.example.com"},
		{name: "explicit http", domain: "http://localhost:8443", want: "http://localhost:8443"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newBotFixture(t, adminbot.Options{WebhookDomain: tt.domain})

			errc := make(chan error, 1)
			go func() { errc <- f.bot.Launch(context.Background()) }()

			require.Eventually(t, func() bool { return f.api.count("setWebhook") == 1 }, 2*time.Second, 10*time.Millisecond)
			f.api.mu.Lock()
			hook := f.api.webhooks[0]
			f.api.mu.Unlock()
			assert.Equal(t, tt.want+f.bot.WebhookPath(), hook["url"])
			assert.Zero(t, f.api.count("getUpdates"))

			f.bot.Stop()
			assert.NoError(t, <-errc)
		})
	}
}

func TestBot_WebhookSecret(t *testing.T) {
	f := newBotFixture(t, adminbot.Options{})

	secret := strings.TrimPrefix(f.bot.WebhookPath(), adminbot.WebhookPathPrefix)
	sum := sha256.Sum256([]byte("webhook:" + token))
	assert.Len(t, secret, 32)
	assert.Equal(t, hex.EncodeToString(sum[:16]), secret)
}
