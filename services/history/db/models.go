package db

type Message struct {
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
