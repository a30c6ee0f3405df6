package history

import (
	"context"
	"database/sql"
	"time"
	"wabrowser/lib/scrapers/whatsapp"
	"wabrowser/services/history/db"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/history")

// Service keeps every message the scraper has ever seen in sqlite.
// The browser only renders a window of each conversation, recording
// snapshots over time is what builds up the real archive.
type Service struct {
	db  *sql.DB
	qry *db.Queries
}

func NewService(database *sql.DB) Service {
	return Service{
		db:  database,
		qry: db.New(database),
	}
}

// Record stores a batch of scraped messages. Messages carry a content
// hash id, so re-recording an overlapping snapshot is a no-op for the
// rows already seen.
func (s Service) Record(ctx context.Context, messages []whatsapp.Message) error {
	ctx, span := tracer.Start(ctx, "history:Record")
	defer span.End()
	span.SetAttributes(attribute.Int("messages", len(messages)))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "begin tx")
		return err
	}
	defer tx.Rollback()
	txqry := s.qry.WithTx(tx)

	now := time.Now().Unix()
	for _, m := range messages {
		params := db.InsertMessageParams{
			ID:         m.ID,
			Chat:       m.Chat,
			Sender:     m.Sender,
			Body:       m.Text,
			TimeLabel:  m.TimeLabel,
			RecordedAt: now,
		}
		if !m.SentAt.IsZero() {
			params.SentAt = m.SentAt.Unix()
		}
		if m.Outgoing {
			params.Outgoing = 1
		}
		if m.Attachment != nil {
			params.AttachmentName = m.Attachment.Name
			params.AttachmentKind = m.Attachment.Kind
		}
		err := txqry.InsertMessage(ctx, params)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "insert message")
			return err
		}
	}
	return tx.Commit()
}

// Recent returns up to limit archived messages for a chat, oldest
// first so they read like the conversation pane.
func (s Service) Recent(ctx context.Context, chat string, limit int) ([]whatsapp.Message, error) {
	ctx, span := tracer.Start(ctx, "history:Recent")
	defer span.End()
	span.SetAttributes(attribute.String("chat", chat))

	if limit <= 0 {
		limit = 100
	}
	rows, err := s.qry.MessagesForChat(ctx, db.MessagesForChatParams{
		Chat:  chat,
		Limit: int64(limit),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	messages := make([]whatsapp.Message, len(rows))
	for i, r := range rows {
		msg := whatsapp.Message{
			ID:        r.ID,
			Chat:      r.Chat,
			Sender:    r.Sender,
			Text:      r.Body,
			TimeLabel: r.TimeLabel,
			Outgoing:  r.Outgoing != 0,
		}
		if r.SentAt != 0 {
			msg.SentAt = time.Unix(r.SentAt, 0)
		}
		if r.AttachmentName != "" || r.AttachmentKind != "" {
			msg.Attachment = &whatsapp.Attachment{
				Name: r.AttachmentName,
				Kind: r.AttachmentKind,
			}
		}
		// rows come back newest first
		messages[len(messages)-1-i] = msg
	}
	return messages, nil
}

type ChatStats struct {
	Chat       string
	Messages   int64
	LastSeenAt time.Time
}

// Chats lists every archived chat with message counts, most recently
// recorded first.
func (s Service) Chats(ctx context.Context) ([]ChatStats, error) {
	ctx, span := tracer.Start(ctx, "history:Chats")
	defer span.End()

	rows, err := s.qry.Chats(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	stats := make([]ChatStats, len(rows))
	for i, r := range rows {
		stats[i] = ChatStats{
			Chat:       r.Chat,
			Messages:   r.Messages,
			LastSeenAt: time.Unix(r.LastRecordedAt, 0),
		}
	}
	return stats, nil
}

// Prune drops archived rows recorded before the cutoff and reports
// how many were removed.
func (s Service) Prune(ctx context.Context, before time.Time) (int64, error) {
	ctx, span := tracer.Start(ctx, "history:Prune")
	defer span.End()

	n, err := s.qry.Prune(ctx, before.Unix())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}
	span.SetAttributes(attribute.Int64("pruned", n))
	return n, nil
}
