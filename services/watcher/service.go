package watcher

import (
	"context"
	"log/slog"
	"sync"
	"time"
	"wabrowser/lib/scrapers/whatsapp"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/watcher")

// Event is a chat whose side pane entry changed since the last poll.
type Event struct {
	Chat      string `json:"chat"`
	Preview   string `json:"preview"`
	TimeLabel string `json:"time_label"`
	Unread    int    `json:"unread"`
}

// ChatSource yields the current chat list. Satisfied by
// *whatsapp.Client.
type ChatSource interface {
	Chats(ctx context.Context) ([]whatsapp.ChatSummary, error)
}

// SentTracker reports whether a preview is an echo of a message this
// process sent itself. Satisfied by *whatsapp.Client.
type SentTracker interface {
	SentRecently(text string) bool
}

type Options struct {
	// defaults to 3s
	Interval time.Duration
}

// Service polls the chat list and fans out an Event whenever a chat
// shows activity it has not reported before.
type Service struct {
	source ChatSource
	sent   SentTracker
	store  *SeenStore
	opts   Options

	// the first poll only records a baseline, activity that predates
	// the watcher is not news
	primed bool

	mu   sync.Mutex
	subs map[uuid.UUID]chan Event
}

func NewService(source ChatSource, sent SentTracker, store *SeenStore, opts Options) *Service {
	if opts.Interval <= 0 {
		opts.Interval = 3 * time.Second
	}
	return &Service{
		source: source,
		sent:   sent,
		store:  store,
		opts:   opts,
		subs:   map[uuid.UUID]chan Event{},
	}
}

// Subscribe registers a listener. The returned cancel func must be
// called to release it.
func (s *Service) Subscribe() (<-chan Event, func()) {
	id := uuid.New()
	ch := make(chan Event, 16)

	s.mu.Lock()
	s.subs[id] = ch
	s.mu.Unlock()

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if existing, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(existing)
		}
	}
}

func (s *Service) publish(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		// slow listeners lose events rather than stall the poll loop
		select {
		case ch <- ev:
		default:
		}
	}
}

// Run polls until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	slog.Info("watcher started", "interval", s.opts.Interval)
	for {
		select {
		case <-ctx.Done():
			slog.Info("watcher stopped")
			return ctx.Err()
		case <-ticker.C:
			err := s.Poll(ctx)
			if err != nil {
				slog.Warn("watcher poll failed", "err", err)
			}
		}
	}
}

// Poll runs a single scan of the chat list.
func (s *Service) Poll(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "watcher:Poll")
	defer span.End()

	chats, err := s.source.Chats(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetAttributes(attribute.Int("chats", len(chats)))

	baseline := !s.primed
	s.primed = true

	var emitted int
	for _, chat := range chats {
		seen, err := s.store.Seen(chat.Name, chat.Preview, chat.TimeLabel)
		if err != nil {
			span.RecordError(err)
			return err
		}
		if seen {
			continue
		}
		if err := s.store.Mark(chat.Name, chat.Preview, chat.TimeLabel); err != nil {
			span.RecordError(err)
			return err
		}
		if baseline {
			continue
		}
		if s.sent != nil && s.sent.SentRecently(chat.Preview) {
			// our own send echoing back through the side pane
			continue
		}

		s.publish(Event{
			Chat:      chat.Name,
			Preview:   chat.Preview,
			TimeLabel: chat.TimeLabel,
			Unread:    chat.Unread,
		})
		emitted++
		slog.Debug("new activity", "chat", chat.Name)
	}
	span.SetAttributes(attribute.Int("emitted", emitted))
	return nil
}
