package adminbot

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/dom/star-diary/internal/telegram"
	"github.com/go-chi/chi/v5"
)

const secretHeader = "X-Telegram-Bot-Api-Secret-Token"

// ServeHTTP receives webhook updates. It is mounted at
// /telegram/webhook/{secret}; a wrong path segment or secret header is
// answered with 404 so the route does not reveal itself.
func (b *Bot) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !b.Enabled() || !b.secretMatches(chi.URLParam(r, "secret"), r.Header.Get(secretHeader)) {
		http.NotFound(w, r)
		return
	}

	var update telegram.Update
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&update); err != nil {
		http.Error(w, "Invalid update", http.StatusBadRequest)
		return
	}

	b.HandleUpdate(r.Context(), update)
	w.WriteHeader(http.StatusOK)
}

func (b *Bot) secretMatches(path, header string) bool {
	want := []byte(b.secret)
	return subtle.ConstantTimeCompare([]byte(path), want) == 1 &&
		subtle.ConstantTimeCompare([]byte(header), want) == 1
}
