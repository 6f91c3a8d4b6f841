package notify

import (
	"context"

	"github.com/dom/star-diary/internal/domain"
	"github.com/dom/star-diary/internal/logging"
	"github.com/dom/star-diary/internal/websocket"
)

// Broadcaster is the part of the websocket hub the feed needs.
type Broadcaster interface {
	Broadcast(msg *websocket.Message) int
}

// FeedSink forwards events to admins watching the live feed.
type FeedSink struct {
	hub Broadcaster
	log logging.Logger
}

func NewFeedSink(hub Broadcaster, log logging.Logger) *FeedSink {
	return &FeedSink{hub: hub, log: log.With("sink", "feed")}
}

func (s *FeedSink) Name() string { return "feed" }

func (s *FeedSink) Configured() bool { return s.hub != nil }

func (s *FeedSink) Dispatch(ctx context.Context, ev domain.Event) bool {
	msg, err := websocket.NewMessage(websocket.MessageTypeEvent, ev)
	if err != nil {
		s.log.Error(ctx, "encode feed event", "kind", ev.Kind, "error", err)
		return false
	}
	n := s.hub.Broadcast(msg)
	s.log.Debug(ctx, "feed event broadcast", "kind", ev.Kind, "clients", n)
	return true
}
