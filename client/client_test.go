package client

import (
	"context"
	"net/http/httptest"
	"testing"
	"wabrowser/lib/scrapers/whatsapp"
	"wabrowser/lib/testutil"
	"wabrowser/services/gateway"

	"github.com/stretchr/testify/require"
)

type stubWhatsApp struct {
	sent  []string
	chats []whatsapp.ChatSummary
}

func (s *stubWhatsApp) LoggedIn(context.Context) (bool, error) { return true, nil }
func (s *stubWhatsApp) Logout(context.Context) error           { return nil }

func (s *stubWhatsApp) Send(_ context.Context, text string) error {
	s.sent = append(s.sent, text)
	return nil
}

func (s *stubWhatsApp) SendTo(_ context.Context, name, text string) error {
	s.sent = append(s.sent, name+": "+text)
	return nil
}

func (s *stubWhatsApp) OpenChatByPhone(context.Context, string) error { return nil }

func (s *stubWhatsApp) Chats(context.Context) ([]whatsapp.ChatSummary, error) {
	return s.chats, nil
}

func (s *stubWhatsApp) HistoryOf(_ context.Context, name string, n int) ([]whatsapp.Message, error) {
	msg := whatsapp.Message{Chat: name, Sender: name, Text: "hello"}
	msg.ComputeID()
	return []whatsapp.Message{msg}, nil
}

func setup(t *testing.T) (*stubWhatsApp, *Client) {
	_, cleanup := testutil.SetupService(t, testutil.ServiceParams{Name: "client"})
	t.Cleanup(cleanup)

	wa := &stubWhatsApp{}
	server := httptest.NewServer(gateway.NewService(wa, nil, nil).Router())
	t.Cleanup(server.Close)
	return wa, New(server.URL)
}

func TestClientAgainstGateway(t *testing.T) {
	wa, api := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, api.Ping(ctx))

	status, err := api.Status(ctx)
	require.NoError(t, err)
	require.True(t, status.LoggedIn)

	require.NoError(t, api.Send(ctx, "Alice Smith", "hello"))
	require.Equal(t, []string{"Alice Smith: hello"}, wa.sent)

	wa.chats = []whatsapp.ChatSummary{{Name: "Alice Smith", Preview: "hello"}}
	chats, err := api.Chats(ctx)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	require.Equal(t, "Alice Smith", chats[0].Name)

	messages, err := api.History(ctx, "Alice Smith", 5)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	require.Equal(t, "hello", messages[0].Text)

	require.NoError(t, api.Logout(ctx))
}

func TestClientArchiveDisabled(t *testing.T) {
	_, api := setup(t)
	_, err := api.Archive(context.Background(), "Alice Smith", 5)
	require.Error(t, err)
	require.Contains(t, err.Error(), "archive disabled")
}
