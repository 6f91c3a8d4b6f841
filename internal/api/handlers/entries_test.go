package handlers_test

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/dom/star-diary/internal/domain"
	"github.com/dom/star-diary/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entryFixture struct {
	ts          *testutil.TestServer
	author      *domain.User
	authorToken string
	other       *domain.User
	otherToken  string
	adminToken  string

	public  *domain.Entry
	private *domain.Entry
	others  *domain.Entry
}

func newEntryFixture(t *testing.T) *entryFixture {
	t.Helper()
	ts := testutil.NewTestServer(t)

	f := &entryFixture{ts: ts}
	f.author, f.authorToken = testutil.NewUserBuilder().WithUsername("author").BuildAndAuthenticate(t, ts)
	f.other, f.otherToken = testutil.NewUserBuilder().WithUsername("other").BuildAndAuthenticate(t, ts)
	_, f.adminToken = testutil.NewUserBuilder().WithUsername("boss").Admin().BuildAndAuthenticate(t, ts)

	base := time.Now().Add(-time.Hour)
	f.public = testutil.NewEntryBuilder(f.author).WithContent("public wish").Public().WithCreatedAt(base).Build(t, ts.Entries)
	f.private = testutil.NewEntryBuilder(f.author).WithContent("private wish").WithCreatedAt(base.Add(time.Minute)).Build(t, ts.Entries)
	f.others = testutil.NewEntryBuilder(f.other).WithContent("other's secret").WithCreatedAt(base.Add(2*time.Minute)).Build(t, ts.Entries)
	return f
}

func contents(entries []testutil.EntryJSON) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Content
	}
	return out
}

func TestEntryHandler_Create(t *testing.T) {
	tests := []struct {
		name            string
		request         map[string]interface{}
		anonymous       bool
		expectedStatus  int
		expectedMessage string
		expectPrivate   bool
		expectNotify    bool
	}{
		{
			name:           "private by default",
			request:        map[string]interface{}{"content": "  make a wish  "},
			expectedStatus: http.StatusCreated,
			expectPrivate:  true,
		},
		{
			name:           "public entry notifies",
			request:        map[string]interface{}{"content": "make a wish", "isPrivate": false},
			expectedStatus: http.StatusCreated,
			expectNotify:   true,
		},
		{
			name:            "blank content",
			request:         map[string]interface{}{"content": "   "},
			expectedStatus:  http.StatusBadRequest,
			expectedMessage: "Validation failed",
		},
		{
			name:            "content too long",
			request:         map[string]interface{}{"content": strings.Repeat("★", domain.MaxEntryLength+1)},
			expectedStatus:  http.StatusBadRequest,
			expectedMessage: "Validation failed",
		},
		{
			name:            "anonymous",
			request:         map[string]interface{}{"content": "make a wish"},
			anonymous:       true,
			expectedStatus:  http.StatusUnauthorized,
			expectedMessage: "Access token is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := testutil.NewTestServer(t)
			user, token := testutil.NewUserBuilder().WithUsername("wisher").BuildAndAuthenticate(t, ts)
			if tt.anonymous {
				token = ""
			}

			resp := testutil.PostJSON(t, ts.APIURL("/entries"), token, tt.request)
			defer resp.Body.Close()

			if tt.expectedMessage != "" {
				testutil.AssertErrorResponse(t, resp, tt.expectedStatus, tt.expectedMessage)
				assert.NotContains(t, ts.Notifier.Kinds(), domain.EventEntryCreated)
				return
			}

			testutil.AssertStatusCode(t, resp, tt.expectedStatus)
			var env testutil.Envelope[testutil.EntryJSON]
			testutil.AssertJSONResponse(t, resp, &env)
			assert.Equal(t, "make a wish", env.Data.Content)
			assert.Equal(t, tt.expectPrivate, env.Data.IsPrivate)
			assert.NotZero(t, env.Data.Seq)
			require.NotNil(t, env.Data.UserID)
			assert.Equal(t, user.ID.String(), env.Data.UserID.ID)
			assert.Equal(t, "wisher", env.Data.UserID.Username)

			if tt.expectNotify {
				assert.Contains(t, ts.Notifier.Kinds(), domain.EventEntryCreated)
			} else {
				assert.NotContains(t, ts.Notifier.Kinds(), domain.EventEntryCreated)
			}
		})
	}
}

func TestEntryHandler_List(t *testing.T) {
	f := newEntryFixture(t)

	tests := []struct {
		name     string
		token    string
		query    string
		expected []string
	}{
		{name: "anonymous sees public only", expected: []string{"public wish"}},
		{name: "author sees own private", token: f.authorToken, expected: []string{"private wish", "public wish"}},
		{name: "other sees own private and public", token: f.otherToken, expected: []string{"other's secret", "public wish"}},
		{name: "invalid token is anonymous", token: "garbage", expected: []string{"public wish"}},
		{name: "filter by author", token: f.otherToken, query: "?userId=" + f.author.ID.String(), expected: []string{"public wish"}},
		{name: "paging", token: f.authorToken, query: "?limit=1&page=2", expected: []string{"public wish"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := testutil.Get(t, f.ts.APIURL("/entries"+tt.query), tt.token)
			defer resp.Body.Close()

			testutil.AssertStatusCode(t, resp, http.StatusOK)
			var env testutil.Envelope[[]testutil.EntryJSON]
			testutil.AssertJSONResponse(t, resp, &env)
			assert.Equal(t, tt.expected, contents(env.Data))
			require.NotNil(t, env.Pagination)
		})
	}

	t.Run("invalid userId", func(t *testing.T) {
		resp := testutil.Get(t, f.ts.APIURL("/entries?userId=nope"), "")
		defer resp.Body.Close()
		testutil.AssertErrorResponse(t, resp, http.StatusBadRequest, "Invalid ID format")
	})
}

func TestEntryHandler_ListByUser(t *testing.T) {
	f := newEntryFixture(t)

	resp := testutil.Get(t, f.ts.APIURL("/entries/user/"+f.author.ID.String()), f.authorToken)
	defer resp.Body.Close()

	testutil.AssertStatusCode(t, resp, http.StatusOK)
	var env testutil.Envelope[[]testutil.EntryJSON]
	testutil.AssertJSONResponse(t, resp, &env)
	assert.Equal(t, []string{"private wish", "public wish"}, contents(env.Data))
	assert.Equal(t, int64(2), env.Pagination.Total)
	assert.Equal(t, 1, env.Pagination.Pages)

	resp = testutil.Get(t, f.ts.APIURL("/entries/user/"+f.author.ID.String()), "")
	defer resp.Body.Close()
	var anon testutil.Envelope[[]testutil.EntryJSON]
	testutil.AssertJSONResponse(t, resp, &anon)
	assert.Equal(t, []string{"public wish"}, contents(anon.Data))
}

func TestEntryHandler_Get(t *testing.T) {
	f := newEntryFixture(t)

	tests := []struct {
		name            string
		id              string
		token           string
		expectedStatus  int
		expectedMessage string
	}{
		{name: "public to anyone", id: f.public.ID.String(), expectedStatus: http.StatusOK},
		{name: "private to owner", id: f.private.ID.String(), token: f.authorToken, expectedStatus: http.StatusOK},
		{name: "private to admin", id: f.private.ID.String(), token: f.adminToken, expectedStatus: http.StatusOK},
		{name: "private hidden from others", id: f.private.ID.String(), token: f.otherToken, expectedStatus: http.StatusNotFound, expectedMessage: "Entry not found"},
		{name: "private hidden from anonymous", id: f.private.ID.String(), expectedStatus: http.StatusNotFound, expectedMessage: "Entry not found"},
		{name: "missing", id: uuid.NewString(), expectedStatus: http.StatusNotFound, expectedMessage: "Entry not found"},
		{name: "malformed id", id: "not-a-uuid", expectedStatus: http.StatusBadRequest, expectedMessage: "Invalid ID format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := testutil.Get(t, f.ts.APIURL("/entries/"+tt.id), tt.token)
			defer resp.Body.Close()

			if tt.expectedMessage != "" {
				testutil.AssertErrorResponse(t, resp, tt.expectedStatus, tt.expectedMessage)
				return
			}
			testutil.AssertStatusCode(t, resp, tt.expectedStatus)
			var env testutil.Envelope[testutil.EntryJSON]
			testutil.AssertJSONResponse(t, resp, &env)
			assert.Equal(t, tt.id, env.Data.ID)
		})
	}
}

func TestEntryHandler_UpdateAndDelete(t *testing.T) {
	tests := []struct {
		name            string
		token           func(*entryFixture) string
		entry           func(*entryFixture) *domain.Entry
		expectedStatus  int
		expectedMessage string
	}{
		{
			name:           "owner",
			token:          func(f *entryFixture) string { return f.authorToken },
			entry:          func(f *entryFixture) *domain.Entry { return f.public },
			expectedStatus: http.StatusOK,
		},
		{
			name:           "admin",
			token:          func(f *entryFixture) string { return f.adminToken },
			entry:          func(f *entryFixture) *domain.Entry { return f.private },
			expectedStatus: http.StatusOK,
		},
		{
			name:            "stranger on public entry",
			token:           func(f *entryFixture) string { return f.otherToken },
			entry:           func(f *entryFixture) *domain.Entry { return f.public },
			expectedStatus:  http.StatusForbidden,
			expectedMessage: "You can only change your own entries",
		},
		{
			name:            "stranger on private entry",
			token:           func(f *entryFixture) string { return f.otherToken },
			entry:           func(f *entryFixture) *domain.Entry { return f.private },
			expectedStatus:  http.StatusNotFound,
			expectedMessage: "Entry not found",
		},
		{
			name:            "anonymous",
			token:           func(*entryFixture) string { return "" },
			entry:           func(f *entryFixture) *domain.Entry { return f.public },
			expectedStatus:  http.StatusUnauthorized,
			expectedMessage: "Access token is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newEntryFixture(t)
			entry := tt.entry(f)
			url := f.ts.APIURL("/entries/" + entry.ID.String())

			resp := testutil.DoJSON(t, http.MethodPut, url, tt.token(f), map[string]interface{}{
				"content":   "edited wish",
				"isPrivate": true,
			})
			if tt.expectedMessage != "" {
				testutil.AssertErrorResponse(t, resp, tt.expectedStatus, tt.expectedMessage)
			} else {
				testutil.AssertStatusCode(t, resp, tt.expectedStatus)
				var env testutil.Envelope[testutil.EntryJSON]
				testutil.AssertJSONResponse(t, resp, &env)
				assert.Equal(t, "edited wish", env.Data.Content)
				assert.True(t, env.Data.IsPrivate)
			}
			resp.Body.Close()

			resp = testutil.DoJSON(t, http.MethodDelete, url, tt.token(f), nil)
			defer resp.Body.Close()
			if tt.expectedMessage != "" {
				testutil.AssertErrorResponse(t, resp, tt.expectedStatus, tt.expectedMessage)
				return
			}
			testutil.AssertStatusCode(t, resp, http.StatusOK)

			get := testutil.Get(t, url, f.adminToken)
			defer get.Body.Close()
			testutil.AssertStatusCode(t, get, http.StatusNotFound)
		})
	}
}

func TestEntryHandler_UpdateRejectsBlankContent(t *testing.T) {
	f := newEntryFixture(t)

	resp := testutil.DoJSON(t, http.MethodPut, f.ts.APIURL("/entries/"+f.public.ID.String()), f.authorToken, map[string]string{
		"content": "  ",
	})
	defer resp.Body.Close()
	testutil.AssertErrorResponse(t, resp, http.StatusBadRequest, "Validation failed")
}

func TestEntryHandler_AuthorRemoved(t *testing.T) {
	f := newEntryFixture(t)
	require.NoError(t, f.ts.Users.Delete(context.Background(), f.author.ID))

	resp := testutil.Get(t, f.ts.APIURL("/entries/"+f.public.ID.String()), "")
	defer resp.Body.Close()

	testutil.AssertStatusCode(t, resp, http.StatusOK)
	var env testutil.Envelope[testutil.EntryJSON]
	testutil.AssertJSONResponse(t, resp, &env)
	assert.Nil(t, env.Data.UserID)
}
