package whatsapp

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"wabrowser/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// ParseMessages reads every message row out of a rendered snapshot of
// the #main conversation pane. Rows that carry neither text nor an
// attachment (day separators, system notices) are skipped and
// counted, one malformed row never fails the batch.
func ParseMessages(snapshot, chat string, loc *time.Location) (messages []Message, skipped int, err error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(snapshot))
	if err != nil {
		return nil, 0, err
	}

	doc.Find(selMessageRow).Each(func(_ int, row *goquery.Selection) {
		msg, ok := parseMessageRow(row, chat, loc)
		if !ok {
			skipped++
			return
		}
		messages = append(messages, msg)
	})
	return messages, skipped, nil
}

func parseMessageRow(row *goquery.Selection, chat string, loc *time.Location) (Message, bool) {
	msg := Message{Chat: chat}

	msg.Text = htmlutil.SelectionText(row.Find(selMessageText).First())

	meta := row.Find(selMessageMeta).First()
	if attr, exists := meta.Attr("data-pre-plain-text"); exists {
		if label, sender, ok := parsePrePlainText(attr); ok {
			msg.TimeLabel = label
			msg.Sender = sender
			msg.SentAt = parseTimeLabel(label, loc)
		}
	} else {
		// group chats render the sender and clock as separate spans
		msg.Sender = htmlutil.SelectionText(row.Find(selSenderFallback).First())
		msg.TimeLabel = htmlutil.SelectionText(row.Find(selTimeFallback).First())
		msg.SentAt = parseTimeLabel(msg.TimeLabel, loc)
	}

	if row.Find(selOutgoing).Length() > 0 {
		msg.Outgoing = true
		msg.Sender = "You"
	}

	msg.Attachment = parseAttachment(row)

	if msg.Text == "" && msg.Attachment == nil {
		return Message{}, false
	}
	msg.ComputeID()
	return msg, true
}

func parseAttachment(row *goquery.Selection) *Attachment {
	block := row.Find(selAttachment).First()
	if block.Length() == 0 {
		return nil
	}

	att := &Attachment{
		Name: htmlutil.SelectionText(block.Find(selAttachmentName).First()),
	}
	att.Kind, _ = row.Find(selAttachmentKind).First().Attr("title")
	att.Size, _ = row.Find(selAttachmentSize).First().Attr("title")
	att.Extra, _ = row.Find(selAttachmentPage).First().Attr("title")
	return att
}

// ParseChatList reads the side pane chat list out of a rendered
// snapshot of #pane-side. The list is virtualized, rows appear in
// arbitrary DOM order and are positioned with translateY transforms,
// so the result is sorted by that offset (topmost chat first).
func ParseChatList(snapshot string) ([]ChatSummary, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(snapshot))
	if err != nil {
		return nil, err
	}

	// the side pane wraps its rows in a labeled list; the search
	// results pane has no such wrapper, so fall back to the whole
	// snapshot there
	root := doc.Selection
	if pane := doc.Find(selChatList); pane.Length() > 0 {
		root = pane
	}

	var chats []ChatSummary
	root.Find(selListItem).Each(func(_ int, row *goquery.Selection) {
		summary, ok := parseChatRow(row)
		if !ok {
			return
		}
		chats = append(chats, summary)
	})

	sort.SliceStable(chats, func(i, j int) bool {
		return chats[i].offset < chats[j].offset
	})
	return chats, nil
}

func parseChatRow(row *goquery.Selection) (ChatSummary, bool) {
	summary := ChatSummary{
		Name:      htmlutil.SelectionText(row.Find(selChatRowName).First()),
		TimeLabel: htmlutil.SelectionText(row.Find(selChatRowTime).First()),
		Preview:   htmlutil.SelectionText(row.Find(selChatRowPreview).First()),
	}
	if summary.Name == "" {
		return ChatSummary{}, false
	}

	if badge := htmlutil.SelectionText(row.Find(selChatRowUnread).First()); badge != "" {
		n, err := strconv.Atoi(badge)
		if err == nil {
			summary.Unread = n
		}
	}

	summary.offset = rowOffset(row)
	return summary, true
}

var translateYRegex = regexp.MustCompile(`translateY\((-?\d+(?:\.\d+)?)px\)`)
var matrixRegex = regexp.MustCompile(`matrix\(([^)]*)\)`)

// rowOffset digs the vertical offset out of the row's inline style,
// checking the row itself and then its ancestors.
func rowOffset(row *goquery.Selection) float64 {
	for sel := row; sel.Length() > 0; sel = sel.Parent() {
		style, exists := sel.Attr("style")
		if !exists {
			continue
		}
		if match := translateYRegex.FindStringSubmatch(style); len(match) == 2 {
			v, err := strconv.ParseFloat(match[1], 64)
			if err == nil {
				return v
			}
		}
		if match := matrixRegex.FindStringSubmatch(style); len(match) == 2 {
			parts := strings.Split(match[1], ",")
			if len(parts) == 6 {
				v, err := strconv.ParseFloat(strings.TrimSpace(parts[5]), 64)
				if err == nil {
					return v
				}
			}
		}
	}
	return 0
}
