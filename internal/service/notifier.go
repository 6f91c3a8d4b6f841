package service

import "github.com/dom/star-diary/internal/domain"

// Notifier receives events after an operation has succeeded. Notify must
// return immediately and must not fail the caller.
type Notifier interface {
	Notify(ev domain.Event)
}

type NopNotifier struct{}

func (NopNotifier) Notify(domain.Event) {}
