package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"wabrowser/lib/htmlutil"

	"github.com/chromedp/chromedp/kb"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/whatsapp")

var (
	ErrNotLoggedIn  = errors.New("whatsapp web session is not logged in")
	ErrChatNotFound = errors.New("chat not found")
	ErrNoChats      = errors.New("chat list is empty")
)

// Page is the slice of the browser session the client drives. It is
// satisfied by *browser.Session.
type Page interface {
	Navigate(ctx context.Context, url string) error
	WaitVisible(ctx context.Context, selector string) error
	Click(ctx context.Context, selector string) error
	SendKeys(ctx context.Context, selector, text string) error
	TypeKeys(ctx context.Context, text string) error
	PressEnter(ctx context.Context) error
	ClearInput(ctx context.Context) error
	OuterHTML(ctx context.Context, selector string) (string, error)
	Text(ctx context.Context, selector string) (string, error)
	AttributeValue(ctx context.Context, selector, name string) (string, bool, error)
	Evaluate(ctx context.Context, expression string, out any) error
	Visible(ctx context.Context, selector string) (bool, error)
	Sleep(ctx context.Context, d time.Duration) error
	ScrollToBottom(ctx context.Context, selector string, settle time.Duration) error
	ScrollToTop(ctx context.Context, selector string, settle time.Duration) error
}

type ClientOptions struct {
	// timezone used when resolving rendered timestamp labels,
	// defaults to the local one
	Location *time.Location
}

// Client drives the WhatsApp Web front end through a browser page.
// UI actions are inherently sequential, methods must not be called
// concurrently.
type Client struct {
	page Page
	loc  *time.Location

	// texts sent through this client, consulted so the watcher can
	// tell its own messages apart from incoming ones
	sentMu   sync.Mutex
	sentRing []string
}

const sentRingCapacity = 20

func NewClient(page Page, opts ClientOptions) *Client {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	return &Client{page: page, loc: loc}
}

// Login navigates to WhatsApp Web and waits for the chat list to
// appear. With a fresh profile this blocks until the user scans the
// QR code, so the caller decides the deadline.
func (c *Client) Login(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "client:Login")
	defer span.End()

	err := c.page.Navigate(ctx, BaseURL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to navigate")
		return err
	}

	// a fresh profile renders a QR code instead of the chat list,
	// probe briefly so the operator knows a scan is expected
	qrCtx, cancelQR := context.WithTimeout(ctx, 3*time.Second)
	_, hasQR, qrErr := c.page.AttributeValue(qrCtx, selQRCode, "data-ref")
	cancelQR()
	if qrErr == nil && hasQR {
		slog.Info("QR code displayed, scan it from the phone app")
	} else {
		slog.Info("waiting for whatsapp chats to load")
	}

	err = c.page.WaitVisible(ctx, selChatListPane)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "chat list never appeared")
		return fmt.Errorf("%w: %w", ErrNotLoggedIn, err)
	}
	slog.Info("whatsapp chats loaded")
	return nil
}

// LoggedIn probes for the chat list without waiting on it.
func (c *Client) LoggedIn(ctx context.Context) (bool, error) {
	return c.page.Visible(ctx, selChatListPane)
}

// Logout walks the menu: Menu button, "Log out" item, then the
// confirm button inside the dialog.
func (c *Client) Logout(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "client:Logout")
	defer span.End()

	err := c.page.Click(ctx, selMenuButton)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "menu button")
		return fmt.Errorf("open menu: %w", err)
	}
	err = c.page.Click(ctx, selLogoutItem)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "logout item")
		return fmt.Errorf("click log out: %w", err)
	}
	if err := c.page.Sleep(ctx, 300*time.Millisecond); err != nil {
		return err
	}

	var confirmed bool
	err = c.page.Evaluate(ctx, confirmLogoutJS, &confirmed)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "confirm dialog")
		return fmt.Errorf("confirm log out: %w", err)
	}
	if !confirmed {
		err := errors.New("log out confirmation dialog not found")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

const confirmLogoutJS = `(() => {
	const dialog = document.querySelector('div[role="dialog"]');
	if (!dialog) return false;
	for (const b of dialog.querySelectorAll('button')) {
		if (b.textContent.trim().toLowerCase().startsWith('log out')) {
			b.click();
			return true;
		}
	}
	return false;
})()`

// search types a query into the side pane search box.
func (c *Client) search(ctx context.Context, query string) error {
	err := c.page.Click(ctx, selSearchBox)
	if err != nil {
		return fmt.Errorf("focus search box: %w", err)
	}
	if err := c.page.ClearInput(ctx); err != nil {
		return err
	}
	return c.page.SendKeys(ctx, selSearchBox, query)
}

// FindContact searches for a display-name prefix and returns the
// full name of the best matching chat, without opening it.
func (c *Client) FindContact(ctx context.Context, prefix string) (string, error) {
	ctx, span := tracer.Start(ctx, "client:FindContact")
	defer span.End()
	span.SetAttributes(attribute.String("prefix", prefix))

	err := c.search(ctx, prefix)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	if err := c.page.Sleep(ctx, time.Second); err != nil {
		return "", err
	}

	snapshot, err := c.page.OuterHTML(ctx, selSearchResults)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "no search results pane")
		return "", fmt.Errorf("%w: %q", ErrChatNotFound, prefix)
	}
	results, err := ParseChatList(snapshot)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	for _, r := range results {
		if strings.HasPrefix(strings.ToUpper(r.Name), strings.ToUpper(prefix)) {
			span.SetAttributes(attribute.String("found", r.Name))
			return r.Name, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrChatNotFound, prefix)
}

// OpenChat searches for the contact and opens the top hit, then
// verifies the opened conversation actually matches.
func (c *Client) OpenChat(ctx context.Context, name string) (string, error) {
	ctx, span := tracer.Start(ctx, "client:OpenChat")
	defer span.End()
	span.SetAttributes(attribute.String("name", name))

	err := c.search(ctx, name)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	if err := c.page.PressEnter(ctx); err != nil {
		return "", err
	}
	if err := c.page.WaitVisible(ctx, selMain); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "conversation pane never opened")
		return "", fmt.Errorf("%w: %q", ErrChatNotFound, name)
	}

	header, err := c.page.Text(ctx, selChatHeaderName)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "no chat header")
		return "", fmt.Errorf("%w: %q", ErrChatNotFound, name)
	}
	header = htmlutil.CleanText(header)
	if !strings.HasPrefix(strings.ToUpper(header), strings.ToUpper(name)) {
		span.SetStatus(codes.Error, "opened chat does not match")
		return "", fmt.Errorf("%w: searched %q, landed on %q", ErrChatNotFound, name, header)
	}

	slog.Debug("opened chat", "name", header)
	return header, nil
}

// OpenChatByPhone opens a conversation by phone number through the
// send URL, which works for contacts with no prior chat.
func (c *Client) OpenChatByPhone(ctx context.Context, phone string) error {
	ctx, span := tracer.Start(ctx, "client:OpenChatByPhone")
	defer span.End()

	err := c.page.Navigate(ctx, fmt.Sprintf(sendByPhoneURL, phone))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	err = c.page.WaitVisible(ctx, selMain)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "conversation pane never opened")
		return fmt.Errorf("%w: phone %q", ErrChatNotFound, phone)
	}
	return nil
}

// CloseChat closes the open conversation through its own menu
// (second Menu button on the page, two arrows down to "Close chat").
func (c *Client) CloseChat(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "client:CloseChat")
	defer span.End()

	var clicked bool
	err := c.page.Evaluate(ctx, clickChatMenuJS, &clicked)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if !clicked {
		// no chat open, nothing to close
		return nil
	}

	for _, key := range []string{kb.ArrowDown, kb.ArrowDown} {
		if err := c.page.TypeKeys(ctx, key); err != nil {
			return err
		}
	}
	return c.page.PressEnter(ctx)
}

const clickChatMenuJS = `(() => {
	const menus = document.querySelectorAll('div[aria-label="Menu"]');
	if (menus.length < 2) return false;
	menus[1].click();
	return true;
})()`

// Send types into the composer of the currently open conversation.
// The double Enter mirrors how the site occasionally swallows the
// first one while the composer settles.
func (c *Client) Send(ctx context.Context, text string) error {
	ctx, span := tracer.Start(ctx, "client:Send")
	defer span.End()

	err := c.page.Click(ctx, selComposer)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "composer not found")
		return fmt.Errorf("focus composer: %w", err)
	}
	if err := c.page.ClearInput(ctx); err != nil {
		return err
	}
	if err := c.page.TypeKeys(ctx, text); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "typing failed")
		return err
	}
	if err := c.page.PressEnter(ctx); err != nil {
		return err
	}
	if err := c.page.Sleep(ctx, 100*time.Millisecond); err != nil {
		return err
	}
	if err := c.page.PressEnter(ctx); err != nil {
		return err
	}

	c.recordSent(text)
	slog.Info("message sent", "chars", len(text))
	return nil
}

// SendTo opens the named chat and sends into it.
func (c *Client) SendTo(ctx context.Context, name, text string) error {
	ctx, span := tracer.Start(ctx, "client:SendTo")
	defer span.End()
	span.SetAttributes(attribute.String("name", name))

	opened, err := c.OpenChat(ctx, name)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	err = c.Send(ctx, text)
	if err != nil {
		return fmt.Errorf("send to %q: %w", opened, err)
	}
	return nil
}

// History scrapes the open conversation and returns its last n
// messages, oldest first. n <= 0 returns everything currently
// rendered.
func (c *Client) History(ctx context.Context, n int) ([]Message, error) {
	ctx, span := tracer.Start(ctx, "client:History")
	defer span.End()

	if err := c.page.WaitVisible(ctx, selMain); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "no open conversation")
		return nil, err
	}

	chat, err := c.page.Text(ctx, selChatHeaderName)
	if err != nil {
		chat = ""
	}
	chat = htmlutil.CleanText(chat)

	snapshot, err := c.page.OuterHTML(ctx, selMain)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "snapshot failed")
		return nil, err
	}

	messages, skipped, err := ParseMessages(snapshot, chat, c.loc)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("rows", len(messages)))
	if skipped > 0 {
		span.AddEvent("skipped unparseable rows")
		span.SetAttributes(attribute.Int("skipped_rows", skipped))
	}

	if n > 0 && len(messages) > n {
		messages = messages[len(messages)-n:]
	}
	return messages, nil
}

// HistoryOf opens the named chat and scrapes its last n messages.
func (c *Client) HistoryOf(ctx context.Context, name string, n int) ([]Message, error) {
	ctx, span := tracer.Start(ctx, "client:HistoryOf")
	defer span.End()
	span.SetAttributes(attribute.String("name", name), attribute.Int("n", n))

	_, err := c.OpenChat(ctx, name)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return c.History(ctx, n)
}

// LoadFullHistory pages the open conversation back to its beginning
// by scrolling the message pane to the top until it stops growing.
func (c *Client) LoadFullHistory(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "client:LoadFullHistory")
	defer span.End()
	return c.page.ScrollToTop(ctx, selMain, 100*time.Millisecond)
}

// LoadAllChats forces the virtualized side pane to render every chat.
func (c *Client) LoadAllChats(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "client:LoadAllChats")
	defer span.End()
	return c.page.ScrollToBottom(ctx, selChatListPane, 100*time.Millisecond)
}

// Chats scrapes the side pane chat list, most recent conversation
// first.
func (c *Client) Chats(ctx context.Context) ([]ChatSummary, error) {
	ctx, span := tracer.Start(ctx, "client:Chats")
	defer span.End()

	snapshot, err := c.page.OuterHTML(ctx, selChatListPane)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "snapshot failed")
		return nil, fmt.Errorf("%w: %w", ErrNotLoggedIn, err)
	}
	chats, err := ParseChatList(snapshot)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("chats", len(chats)))
	return chats, nil
}

// LatestChat returns the side pane entry with the newest activity.
func (c *Client) LatestChat(ctx context.Context) (ChatSummary, error) {
	chats, err := c.Chats(ctx)
	if err != nil {
		return ChatSummary{}, err
	}
	if len(chats) == 0 {
		return ChatSummary{}, ErrNoChats
	}
	return chats[0], nil
}

func (c *Client) recordSent(text string) {
	c.sentMu.Lock()
	defer c.sentMu.Unlock()
	if len(c.sentRing) >= sentRingCapacity {
		c.sentRing = c.sentRing[1:]
	}
	c.sentRing = append(c.sentRing, text)
}

// SentRecently reports whether this client sent the given text in
// its last few messages. The watcher uses it to skip echoes of our
// own sends showing up in the side pane.
func (c *Client) SentRecently(text string) bool {
	c.sentMu.Lock()
	defer c.sentMu.Unlock()
	for _, sent := range c.sentRing {
		if sent == text || strings.HasPrefix(sent, text) {
			return true
		}
	}
	return false
}
