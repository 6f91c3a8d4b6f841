package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/dom/star-diary/internal/domain"
	"github.com/dom/star-diary/internal/repository"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
)

// UserBuilder creates test users with a builder pattern
type UserBuilder struct {
	username    string
	displayName string
	password    string
	admin       bool
	active      bool
	createdAt   time.Time
}

// NewUserBuilder creates a new UserBuilder with default values
func NewUserBuilder() *UserBuilder {
	return &UserBuilder{
		username:  fmt.Sprintf("user_%s", uuid.New().String()[:8]),
		password:  "testpassword123",
		active:    true,
		createdAt: time.Now(),
	}
}

func (b *UserBuilder) WithUsername(username string) *UserBuilder {
	b.username = username
	return b
}

func (b *UserBuilder) WithDisplayName(name string) *UserBuilder {
	b.displayName = name
	return b
}

func (b *UserBuilder) WithPassword(password string) *UserBuilder {
	b.password = password
	return b
}

func (b *UserBuilder) WithCreatedAt(at time.Time) *UserBuilder {
	b.createdAt = at
	return b
}

func (b *UserBuilder) Admin() *UserBuilder {
	b.admin = true
	return b
}

func (b *UserBuilder) Inactive() *UserBuilder {
	b.active = false
	return b
}

// User returns the record without persisting it.
func (b *UserBuilder) User(t *testing.T) *domain.User {
	t.Helper()

	hashed, err := bcrypt.GenerateFromPassword([]byte(b.password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	displayName := b.displayName
	if displayName == "" {
		displayName = b.username
	}

	return &domain.User{
		ID:           uuid.New(),
		Username:     b.username,
		PasswordHash: string(hashed),
		DisplayName:  displayName,
		Profile:      datatypes.NewJSONType(domain.DefaultProfile()),
		IsActive:     b.active,
		IsAdmin:      b.admin,
		CreatedAt:    b.createdAt,
		UpdatedAt:    b.createdAt,
	}
}

// Build persists the user and returns it with the raw password
func (b *UserBuilder) Build(t *testing.T, users repository.UserRepository) (*domain.User, string) {
	t.Helper()

	user := b.User(t)
	if err := users.Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user, b.password
}

// BuildAndAuthenticate stores the user directly and logs in through the API,
// returning the user and a bearer token.
func (b *UserBuilder) BuildAndAuthenticate(t *testing.T, ts *TestServer) (*domain.User, string) {
	t.Helper()

	user, password := b.Build(t, ts.Users)
	resp := PostJSON(t, ts.APIURL("/users/login"), "", map[string]string{
		"username": user.Username,
		"password": password,
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed for %s: status %d", user.Username, resp.StatusCode)
	}

	var env Envelope[AuthData]
	AssertJSONResponse(t, resp, &env)
	return user, env.Data.Token
}

// EntryBuilder creates diary entries for a given author.
type EntryBuilder struct {
	author    *domain.User
	content   string
	private   bool
	createdAt time.Time
}

func NewEntryBuilder(author *domain.User) *EntryBuilder {
	return &EntryBuilder{
		author:    author,
		content:   "a wish upon a star",
		private:   true,
		createdAt: time.Now(),
	}
}

func (b *EntryBuilder) WithContent(content string) *EntryBuilder {
	b.content = content
	return b
}

func (b *EntryBuilder) Public() *EntryBuilder {
	b.private = false
	return b
}

func (b *EntryBuilder) WithCreatedAt(at time.Time) *EntryBuilder {
	b.createdAt = at
	return b
}

func (b *EntryBuilder) Build(t *testing.T, entries repository.EntryRepository) *domain.Entry {
	t.Helper()

	entry := &domain.Entry{
		ID:        uuid.New(),
		Content:   b.content,
		Date:      b.createdAt,
		Seq:       b.createdAt.UnixMilli(),
		IsPrivate: b.private,
		CreatedAt: b.createdAt,
		UpdatedAt: b.createdAt,
	}
	if b.author != nil {
		id := b.author.ID
		entry.UserID = &id
	}

	if err := entries.Create(context.Background(), entry); err != nil {
		t.Fatalf("failed to create entry: %v", err)
	}
	return entry
}

// Envelope mirrors the API response wrapper.
type Envelope[T any] struct {
	Success    bool               `json:"success"`
	Message    string             `json:"message"`
	Data       T                  `json:"data"`
	Errors     []string           `json:"errors"`
	Pagination *domain.Pagination `json:"pagination"`
}

// AuthData is the payload of register and login responses.
type AuthData struct {
	User  UserJSON `json:"user"`
	Token string   `json:"token"`
}

// UserJSON decodes a serialized user into a map-free shape, while Raw keeps
// every field so tests can assert on what is absent.
type UserJSON struct {
	ID          string          `json:"_id"`
	Username    string          `json:"username"`
	DisplayName string          `json:"displayName"`
	Profile     domain.Profile  `json:"profile"`
	IsActive    bool            `json:"isActive"`
	IsAdmin     bool            `json:"isAdmin"`
	LastLogin   *time.Time      `json:"lastLogin"`
	Raw         json.RawMessage `json:"-"`
}

func (u *UserJSON) UnmarshalJSON(data []byte) error {
	type plain UserJSON
	if err := json.Unmarshal(data, (*plain)(u)); err != nil {
		return err
	}
	u.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// Fields returns the top-level keys of the serialized user.
func (u UserJSON) Fields(t *testing.T) map[string]json.RawMessage {
	t.Helper()
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(u.Raw, &fields); err != nil {
		t.Fatalf("failed to decode user fields: %v", err)
	}
	return fields
}

// EntryJSON is a serialized entry.
type EntryJSON struct {
	ID        string `json:"_id"`
	Content   string `json:"content"`
	Seq       int64  `json:"id"`
	IsPrivate bool   `json:"isPrivate"`
	UserID    *struct {
		ID          string `json:"_id"`
		Username    string `json:"username"`
		DisplayName string `json:"displayName"`
	} `json:"userId"`
}

// DoJSON sends body as JSON with an optional bearer token.
func DoJSON(t *testing.T, method, url, token string, body interface{}) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, url, err)
	}
	return resp
}

func PostJSON(t *testing.T, url, token string, body interface{}) *http.Response {
	t.Helper()
	return DoJSON(t, http.MethodPost, url, token, body)
}

func Get(t *testing.T, url, token string) *http.Response {
	t.Helper()
	return DoJSON(t, http.MethodGet, url, token, nil)
}
