// Package browser wraps a chromedp browser context behind a small
// session API. The profile is kept in a persistent user-data
// directory so logins survive restarts.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

var ErrNoSession = errors.New("browser session has not been launched")

type Options struct {
	// directory holding the browser profile, created if missing
	UserDataDir string
	Headless    bool
	// optional path to the browser binary
	ExecPath string
}

// Session is a single running browser with one page. Methods are not
// safe for concurrent use, the page is a shared mutable surface.
type Session struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
}

func Launch(ctx context.Context, opts Options) (*Session, error) {
	allocOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserDataDir(opts.UserDataDir),
		chromedp.Flag("headless", opts.Headless),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	// the session outlives the launch call, so it hangs off of
	// context.Background rather than the caller's context
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, cancel := chromedp.NewContext(allocCtx)

	s := &Session{
		ctx:         browserCtx,
		cancel:      cancel,
		allocCancel: allocCancel,
	}

	// force the browser process to start now so launch failures
	// surface here instead of on the first action
	if err := s.run(ctx, chromedp.ActionFunc(func(context.Context) error { return nil })); err != nil {
		s.Close()
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	slog.Info("browser launched", "user_data_dir", opts.UserDataDir, "headless", opts.Headless)
	return s, nil
}

func (s *Session) Close() error {
	if s == nil {
		return nil
	}
	s.cancel()
	s.allocCancel()
	return nil
}

// run executes actions on the browser context while honoring the
// caller's cancellation and deadline.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	if s == nil {
		return ErrNoSession
	}
	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	return s.run(ctx, chromedp.Navigate(url))
}

func (s *Session) WaitVisible(ctx context.Context, selector string) error {
	return s.run(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (s *Session) Click(ctx context.Context, selector string) error {
	return s.run(ctx, chromedp.Click(selector, chromedp.ByQuery))
}

// SendKeys focuses the element and types into it.
func (s *Session) SendKeys(ctx context.Context, selector, text string) error {
	return s.run(ctx, chromedp.SendKeys(selector, text, chromedp.ByQuery))
}

// TypeKeys synthesizes keystrokes against whatever currently holds
// focus.
func (s *Session) TypeKeys(ctx context.Context, text string) error {
	return s.run(ctx, chromedp.KeyEvent(text))
}

func (s *Session) PressEnter(ctx context.Context) error {
	return s.run(ctx, chromedp.KeyEvent(kb.Enter))
}

// ClearInput selects everything in the focused element and deletes
// it, the way a user would with Ctrl+A Backspace.
func (s *Session) ClearInput(ctx context.Context) error {
	return s.run(ctx,
		chromedp.KeyEvent("a", chromedp.KeyModifiers(input.ModifierCtrl)),
		chromedp.KeyEvent(kb.Backspace),
	)
}

// OuterHTML snapshots the rendered subtree at the selector. The
// scraping layer parses the snapshot with goquery instead of walking
// the live DOM node by node.
func (s *Session) OuterHTML(ctx context.Context, selector string) (string, error) {
	var out string
	err := s.run(ctx, chromedp.OuterHTML(selector, &out, chromedp.ByQuery))
	return out, err
}

func (s *Session) Text(ctx context.Context, selector string) (string, error) {
	var out string
	err := s.run(ctx, chromedp.Text(selector, &out, chromedp.ByQuery))
	return out, err
}

// AttributeValue reads a single attribute off the first element
// matching the selector. ok is false when the attribute is absent.
func (s *Session) AttributeValue(ctx context.Context, selector, name string) (value string, ok bool, err error) {
	err = s.run(ctx, chromedp.AttributeValue(selector, name, &value, &ok, chromedp.ByQuery))
	return value, ok, err
}

func (s *Session) Evaluate(ctx context.Context, expression string, out any) error {
	if out == nil {
		return s.run(ctx, chromedp.Evaluate(expression, nil))
	}
	return s.run(ctx, chromedp.Evaluate(expression, out))
}

func (s *Session) Sleep(ctx context.Context, d time.Duration) error {
	return s.run(ctx, chromedp.Sleep(d))
}

// Visible reports whether the selector currently matches at least one
// element, without waiting for it.
func (s *Session) Visible(ctx context.Context, selector string) (bool, error) {
	var count int
	err := s.Evaluate(ctx, fmt.Sprintf(
		`document.querySelectorAll(%q).length`, selector,
	), &count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ScrollToBottom keeps pushing the element's scrollTop to its
// scrollHeight until the height stops growing, which is how the
// virtualized chat list is coaxed into rendering everything.
func (s *Session) ScrollToBottom(ctx context.Context, selector string, settle time.Duration) error {
	previous := -1
	for {
		var height int
		err := s.Evaluate(ctx, fmt.Sprintf(
			`(() => { const el = document.querySelector(%q); if (!el) return -1; el.scrollTop = el.scrollHeight; return el.scrollHeight; })()`,
			selector,
		), &height)
		if err != nil {
			return err
		}
		if height < 0 {
			return fmt.Errorf("no element matching %q", selector)
		}
		if height == previous {
			return nil
		}
		previous = height

		if err := s.Sleep(ctx, settle); err != nil {
			return err
		}
	}
}

// ScrollToTop is the inverse loop, used to page older history into
// the message pane. It is done once the pane's height stops growing,
// meaning no more history is being loaded in.
func (s *Session) ScrollToTop(ctx context.Context, selector string, settle time.Duration) error {
	previous := -1
	for {
		var height int
		err := s.Evaluate(ctx, fmt.Sprintf(
			`(() => { const el = document.querySelector(%q); if (!el) return -1; el.scrollTop = 0; return el.scrollHeight; })()`,
			selector,
		), &height)
		if err != nil {
			return err
		}
		if height < 0 {
			return fmt.Errorf("no element matching %q", selector)
		}
		if height == previous {
			return nil
		}
		previous = height

		if err := s.Sleep(ctx, settle); err != nil {
			return err
		}
	}
}
