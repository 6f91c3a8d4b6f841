package domain

import "time"

type EventKind string

const (
	EventEntryCreated          EventKind = "entry.created"
	EventLoginSucceeded        EventKind = "login.succeeded"
	EventRegistrationSucceeded EventKind = "registration.succeeded"
)

// Event is a notification about something a user did. It carries only what
// is needed to render a message; it is never persisted.
type Event struct {
	Kind        EventKind `json:"kind"`
	DisplayName string    `json:"displayName"`
	Username    string    `json:"username"`
	Emoji       string    `json:"emoji,omitempty"`
	Content     string    `json:"content,omitempty"`
	IsPrivate   bool      `json:"isPrivate,omitempty"`
	OccurredAt  time.Time `json:"occurredAt"`
}

func NewLoginEvent(u *User, at time.Time) Event {
	return Event{
		Kind:        EventLoginSucceeded,
		DisplayName: u.Name(),
		Username:    u.Username,
		Emoji:       u.Emoji(),
		OccurredAt:  at,
	}
}

func NewRegistrationEvent(u *User) Event {
	return Event{
		Kind:        EventRegistrationSucceeded,
		DisplayName: u.Name(),
		Username:    u.Username,
		Emoji:       u.Emoji(),
		OccurredAt:  u.CreatedAt,
	}
}

func NewEntryEvent(e *Entry, author *User) Event {
	return Event{
		Kind:        EventEntryCreated,
		DisplayName: author.Name(),
		Username:    author.Username,
		Emoji:       author.Emoji(),
		Content:     e.Content,
		IsPrivate:   e.IsPrivate,
		OccurredAt:  e.CreatedAt,
	}
}
