package whatsapp

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Attachment is the metadata WhatsApp renders for a file message.
// The file itself is never downloaded.
type Attachment struct {
	Name string `json:"name"`
	// "PDF", "Image", "Document"... as rendered in the type badge
	Kind string `json:"kind"`
	Size string `json:"size,omitempty"`
	// free-form detail such as a page count
	Extra string `json:"extra,omitempty"`
}

// Message is a single scraped message row.
type Message struct {
	// content hash, stable across scrapes of the same row
	ID     string `json:"id"`
	Chat   string `json:"chat"`
	Sender string `json:"sender"`
	Text   string `json:"text"`
	// timestamp exactly as rendered, kept even when parsing fails
	TimeLabel string `json:"time_label"`
	// zero when the label could not be parsed
	SentAt     time.Time   `json:"sent_at"`
	Outgoing   bool        `json:"outgoing"`
	Attachment *Attachment `json:"attachment,omitempty"`
}

// ChatSummary is one entry of the side pane chat list.
type ChatSummary struct {
	Name      string `json:"name"`
	Preview   string `json:"preview"`
	TimeLabel string `json:"time_label"`
	Unread    int    `json:"unread"`

	// translateY of the row, the virtualized list renders rows out
	// of DOM order and this is the only ordering signal
	offset float64
}

// ComputeID stamps the message with a hash of its identifying
// fields. Scraping the same row twice yields the same id.
func (m *Message) ComputeID() {
	h := sha256.New()
	for _, part := range []string{m.Chat, m.Sender, m.TimeLabel, m.Text} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	m.ID = hex.EncodeToString(h.Sum(nil))[:16]
}
