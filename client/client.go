package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"wabrowser/lib/scrapers/whatsapp"
	"wabrowser/lib/telemetry"
	"wabrowser/services/gateway"
	"wabrowser/services/watcher"

	"github.com/go-resty/resty/v2"
)

// Client talks to a wa-server instance.
type Client struct {
	http *resty.Client
}

func New(baseURL string) *Client {
	http := resty.New().SetBaseURL(strings.TrimRight(baseURL, "/"))
	telemetry.InstrumentResty(http, "client/gateway")
	return &Client{http: http}
}

type apiError struct {
	Error string `json:"error"`
}

func checkStatus(res *resty.Response) error {
	if res.IsSuccess() {
		return nil
	}
	var body apiError
	if err := json.Unmarshal(res.Body(), &body); err == nil && body.Error != "" {
		return fmt.Errorf("gateway: %s (%s)", body.Error, res.Status())
	}
	return fmt.Errorf("gateway: %s", res.Status())
}

func (c *Client) Ping(ctx context.Context) error {
	res, err := c.http.R().SetContext(ctx).Get("/ping")
	if err != nil {
		return err
	}
	return checkStatus(res)
}

func (c *Client) Status(ctx context.Context) (gateway.StatusResponse, error) {
	var status gateway.StatusResponse
	res, err := c.http.R().SetContext(ctx).SetResult(&status).Get("/status")
	if err != nil {
		return status, err
	}
	return status, checkStatus(res)
}

// Send delivers text to a chat by display name.
func (c *Client) Send(ctx context.Context, chat, text string) error {
	res, err := c.http.R().SetContext(ctx).
		SetBody(gateway.SendRequest{Chat: chat, Text: text}).
		Post("/send")
	if err != nil {
		return err
	}
	return checkStatus(res)
}

// SendToPhone delivers text to a phone number, prior chat or not.
func (c *Client) SendToPhone(ctx context.Context, phone, text string) error {
	res, err := c.http.R().SetContext(ctx).
		SetBody(gateway.SendRequest{Phone: phone, Text: text}).
		Post("/send")
	if err != nil {
		return err
	}
	return checkStatus(res)
}

func (c *Client) Logout(ctx context.Context) error {
	res, err := c.http.R().SetContext(ctx).Post("/logout")
	if err != nil {
		return err
	}
	return checkStatus(res)
}

func (c *Client) Chats(ctx context.Context) ([]whatsapp.ChatSummary, error) {
	var chats []whatsapp.ChatSummary
	res, err := c.http.R().SetContext(ctx).SetResult(&chats).Get("/chats")
	if err != nil {
		return nil, err
	}
	return chats, checkStatus(res)
}

// History scrapes the live conversation through the gateway.
func (c *Client) History(ctx context.Context, chat string, n int) ([]whatsapp.Message, error) {
	return c.messages(ctx, chat, "history", n)
}

// Archive reads previously recorded messages without driving the
// browser.
func (c *Client) Archive(ctx context.Context, chat string, n int) ([]whatsapp.Message, error) {
	return c.messages(ctx, chat, "archive", n)
}

func (c *Client) messages(ctx context.Context, chat, kind string, n int) ([]whatsapp.Message, error) {
	var messages []whatsapp.Message
	req := c.http.R().SetContext(ctx).SetResult(&messages).
		SetPathParam("name", chat)
	if n > 0 {
		req.SetQueryParam("n", strconv.Itoa(n))
	}
	res, err := req.Get("/chats/{name}/" + kind)
	if err != nil {
		return nil, err
	}
	return messages, checkStatus(res)
}

// Watch streams new-activity events, invoking fn for each one until
// the context is cancelled or the stream ends.
func (c *Client) Watch(ctx context.Context, fn func(watcher.Event)) error {
	res, err := c.http.R().SetContext(ctx).
		SetDoNotParseResponse(true).
		Get("/events")
	if err != nil {
		return err
	}
	body := res.RawBody()
	defer body.Close()
	if res.StatusCode() != 200 {
		return fmt.Errorf("gateway: %s", res.Status())
	}

	scanner := bufio.NewScanner(body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev watcher.Event
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
			continue
		}
		fn(ev)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return scanner.Err()
}
