package db

import (
	"context"
)

const insertMessage = `
INSERT INTO message (
    id, chat, sender, body, time_label, sent_at, outgoing,
    attachment_name, attachment_kind, recorded_at
)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO NOTHING
`

type InsertMessageParams struct {
	ID             string
	Chat           string
	Sender         string
	Body           string
	TimeLabel      string
	SentAt         int64
	Outgoing       int64
	AttachmentName string
	AttachmentKind string
	RecordedAt     int64
}

func (q *Queries) InsertMessage(ctx context.Context, arg InsertMessageParams) error {
	_, err := q.db.ExecContext(ctx, insertMessage,
		arg.ID,
		arg.Chat,
		arg.Sender,
		arg.Body,
		arg.TimeLabel,
		arg.SentAt,
		arg.Outgoing,
		arg.AttachmentName,
		arg.AttachmentKind,
		arg.RecordedAt,
	)
	return err
}

const messagesForChat = `
SELECT id, chat, sender, body, time_label, sent_at, outgoing,
       attachment_name, attachment_kind, recorded_at
FROM message
WHERE chat = ?
ORDER BY recorded_at DESC, rowid DESC
LIMIT ?
`

type MessagesForChatParams struct {
	Chat  string
	Limit int64
}

func (q *Queries) MessagesForChat(ctx context.Context, arg MessagesForChatParams) ([]Message, error) {
	rows, err := q.db.QueryContext(ctx, messagesForChat, arg.Chat, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Message
	for rows.Next() {
		var i Message
		if err := rows.Scan(
			&i.ID,
			&i.Chat,
			&i.Sender,
			&i.Body,
			&i.TimeLabel,
			&i.SentAt,
			&i.Outgoing,
			&i.AttachmentName,
			&i.AttachmentKind,
			&i.RecordedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const chats = `
SELECT chat, COUNT(*) AS messages, MAX(recorded_at) AS last_recorded_at
FROM message
GROUP BY chat
ORDER BY last_recorded_at DESC
`

type ChatsRow struct {
	Chat           string
	Messages       int64
	LastRecordedAt int64
}

func (q *Queries) Chats(ctx context.Context) ([]ChatsRow, error) {
	rows, err := q.db.QueryContext(ctx, chats)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ChatsRow
	for rows.Next() {
		var i ChatsRow
		if err := rows.Scan(&i.Chat, &i.Messages, &i.LastRecordedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const prune = `
DELETE FROM message WHERE recorded_at < ?
`

func (q *Queries) Prune(ctx context.Context, recordedBefore int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, prune, recordedBefore)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
