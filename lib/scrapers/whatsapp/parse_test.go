package whatsapp

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
)

const conversationFixture = `
<div id="main">
  <header><div><span dir="auto">Alice Smith</span></div></header>
  <div role="application">
    <div role="row"><div><span>24 April 2023</span></div></div>
    <div role="row">
      <div class="message-in">
        <div class="copyable-text" data-pre-plain-text="[12:48, 24/4/2023] Alice Smith: ">
          <span class="selectable-text copyable-text"><span>hello there</span></span>
        </div>
      </div>
    </div>
    <div role="row">
      <div class="message-out">
        <div class="copyable-text" data-pre-plain-text="[12:50, 24/4/2023] Bob: ">
          <span class="selectable-text copyable-text"><span>hi! how are you</span></span>
        </div>
      </div>
    </div>
    <div role="row">
      <div class="message-in">
        <div class="copyable-text" data-pre-plain-text="[09:15, 25/4/2023] Alice Smith: "></div>
        <div title="Download &quot;report.pdf&quot;">
          <span class="selectable-text">report.pdf</span>
        </div>
        <span title="PDF">PDF</span>
        <span title="128 kB">128 kB</span>
        <span title="3 pages">3 pages</span>
      </div>
    </div>
    <div role="row">
      <div class="message-in">
        <span class="_ahxt x1ypdohk">Carol</span>
        <span class="selectable-text copyable-text"><span>group hello</span></span>
        <span class="x1rg5ohu x16dsc37">13:05</span>
      </div>
    </div>
  </div>
</div>`

func TestParseMessages(t *testing.T) {
	messages, skipped, err := ParseMessages(conversationFixture, "Alice Smith", time.UTC)
	require.NoError(t, err)
	require.Len(t, messages, 4)
	require.Equal(t, 1, skipped, "the day separator row is skipped and counted")

	for i, m := range messages {
		require.NotEmpty(t, m.ID, "message %d should have an id", i)
		require.Equal(t, "Alice Smith", m.Chat)
	}

	first := messages[0]
	require.Equal(t, "Alice Smith", first.Sender)
	require.Equal(t, "hello there", first.Text)
	require.Equal(t, "12:48, 24/4/2023", first.TimeLabel)
	require.Equal(t, time.Date(2023, 4, 24, 12, 48, 0, 0, time.UTC), first.SentAt)
	require.False(t, first.Outgoing)
	require.Nil(t, first.Attachment)

	second := messages[1]
	require.True(t, second.Outgoing)
	require.Equal(t, "You", second.Sender)
	require.Equal(t, "hi! how are you", second.Text)

	third := messages[2]
	require.NotNil(t, third.Attachment)
	diff := cmp.Diff(&Attachment{
		Name:  "report.pdf",
		Kind:  "PDF",
		Size:  "128 kB",
		Extra: "3 pages",
	}, third.Attachment)
	require.Empty(t, diff)

	group := messages[3]
	require.Equal(t, "Carol", group.Sender)
	require.Equal(t, "13:05", group.TimeLabel)
	require.Equal(t, "group hello", group.Text)
	require.False(t, group.SentAt.IsZero(), "bare clock labels resolve to today")
}

func TestParseMessagesStableIDs(t *testing.T) {
	a, _, err := ParseMessages(conversationFixture, "Alice Smith", time.UTC)
	require.NoError(t, err)
	b, _, err := ParseMessages(conversationFixture, "Alice Smith", time.UTC)
	require.NoError(t, err)

	for i := range a {
		require.Equal(t, a[i].ID, b[i].ID)
	}
	require.NotEqual(t, a[0].ID, a[1].ID)
}

const chatListFixture = `
<div id="pane-side">
  <div aria-label="Chat list">
    <div role="listitem" style="z-index: 3; transform: translateY(144px);">
      <div class="_ak8q"><div><span dir="auto">Work Group</span></div></div>
      <div class="_ak8i">Yesterday</div>
      <div class="_ak8k"><span><span>see you tomorrow</span></span></div>
    </div>
    <div role="listitem" style="transform: translateY(0px);">
      <div class="_ak8q"><div><span dir="auto">Alice Smith</span></div></div>
      <div class="_ak8i">12:50</div>
      <div class="_ak8k"><span><span>hi! how are you</span></span></div>
      <span aria-label="2 unread messages">2</span>
    </div>
    <div role="listitem" style="transform: translateY(72px);">
      <div class="_ak8q"><div><span dir="auto">Bob Jones</span></div></div>
      <div class="_ak8i">09:15</div>
      <div class="_ak8k"><span><span>report.pdf</span></span></div>
    </div>
  </div>
</div>`

func TestParseChatList(t *testing.T) {
	chats, err := ParseChatList(chatListFixture)
	require.NoError(t, err)

	diff := cmp.Diff([]ChatSummary{
		{Name: "Alice Smith", Preview: "hi! how are you", TimeLabel: "12:50", Unread: 2},
		{Name: "Bob Jones", Preview: "report.pdf", TimeLabel: "09:15"},
		{Name: "Work Group", Preview: "see you tomorrow", TimeLabel: "Yesterday"},
	}, chats, cmpopts.IgnoreUnexported(ChatSummary{}))
	require.Empty(t, diff)
}

func TestParseChatListMatrixTransform(t *testing.T) {
	snapshot := `
<div id="pane-side"><div aria-label="Chat list">
  <div role="listitem" style="transform: matrix(1, 0, 0, 1, 0, 72);">
    <div class="_ak8q"><div><span dir="auto">Second</span></div></div>
  </div>
  <div role="listitem" style="transform: matrix(1, 0, 0, 1, 0, 0);">
    <div class="_ak8q"><div><span dir="auto">First</span></div></div>
  </div>
</div></div>`

	chats, err := ParseChatList(snapshot)
	require.NoError(t, err)
	require.Len(t, chats, 2)
	require.Equal(t, "First", chats[0].Name)
	require.Equal(t, "Second", chats[1].Name)
}

func TestParseChatListScopedToPane(t *testing.T) {
	snapshot := `
<div id="pane-side">
  <div role="listitem"><div class="_ak8q"><span dir="auto">Header Junk</span></div></div>
  <div aria-label="Chat list">
    <div role="listitem" style="transform: translateY(0px);">
      <div class="_ak8q"><div><span dir="auto">Alice Smith</span></div></div>
    </div>
  </div>
</div>`

	chats, err := ParseChatList(snapshot)
	require.NoError(t, err)
	require.Len(t, chats, 1, "rows outside the chat list are not chats")
	require.Equal(t, "Alice Smith", chats[0].Name)

	// search results have no chat list wrapper
	unwrapped := `
<div aria-label="Search results.">
  <div role="listitem" style="transform: translateY(0px);">
    <div class="_ak8q"><div><span dir="auto">Bob Jones</span></div></div>
  </div>
</div>`

	results, err := ParseChatList(unwrapped)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "Bob Jones", results[0].Name)
}

func TestParseMessagesSkipsEmptyRows(t *testing.T) {
	messages, skipped, err := ParseMessages(`<div id="main"><div role="row"><div>day marker</div></div></div>`, "x", time.UTC)
	require.NoError(t, err)
	require.Empty(t, messages)
	require.Equal(t, 1, skipped)
}
