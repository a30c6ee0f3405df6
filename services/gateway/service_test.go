package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"wabrowser/lib/scrapers/whatsapp"
	"wabrowser/lib/testutil"
	"wabrowser/services/history"
	"wabrowser/services/history/db"

	"github.com/stretchr/testify/require"
)

type fakeWhatsApp struct {
	loggedIn   bool
	sent       []string
	openedByPh []string
	loggedOut  bool
	chats      []whatsapp.ChatSummary
	historyErr error
	messages   []whatsapp.Message
}

func (f *fakeWhatsApp) LoggedIn(context.Context) (bool, error) { return f.loggedIn, nil }

func (f *fakeWhatsApp) Logout(context.Context) error {
	f.loggedOut = true
	return nil
}

func (f *fakeWhatsApp) Send(_ context.Context, text string) error {
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeWhatsApp) SendTo(_ context.Context, name, text string) error {
	if name == "Nobody" {
		return fmt.Errorf("%w: %q", whatsapp.ErrChatNotFound, name)
	}
	f.sent = append(f.sent, name+": "+text)
	return nil
}

func (f *fakeWhatsApp) OpenChatByPhone(_ context.Context, phone string) error {
	f.openedByPh = append(f.openedByPh, phone)
	return nil
}

func (f *fakeWhatsApp) Chats(context.Context) ([]whatsapp.ChatSummary, error) {
	return f.chats, nil
}

func (f *fakeWhatsApp) HistoryOf(context.Context, string, int) ([]whatsapp.Message, error) {
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return f.messages, nil
}

func setup(t *testing.T) (*fakeWhatsApp, *history.Service, *httptest.Server) {
	res, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "gateway",
		DbSchema: db.Schema,
	})
	t.Cleanup(cleanup)

	archive := history.NewService(res.DB)
	wa := &fakeWhatsApp{loggedIn: true}
	server := httptest.NewServer(NewService(wa, &archive, nil).Router())
	t.Cleanup(server.Close)
	return wa, &archive, server
}

func TestPing(t *testing.T) {
	_, _, server := setup(t)
	resp, err := http.Get(server.URL + "/ping")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStatus(t *testing.T) {
	wa, _, server := setup(t)
	wa.loggedIn = false

	resp, err := http.Get(server.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	var status StatusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	require.False(t, status.LoggedIn)
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	return resp
}

func TestSendToChat(t *testing.T) {
	wa, _, server := setup(t)

	resp := postJSON(t, server.URL+"/send", SendRequest{Chat: "Alice Smith", Text: "hello"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, []string{"Alice Smith: hello"}, wa.sent)
}

func TestSendToPhone(t *testing.T) {
	wa, _, server := setup(t)

	resp := postJSON(t, server.URL+"/send", SendRequest{Phone: "15551234567", Text: "hello"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, []string{"15551234567"}, wa.openedByPh)
	require.Equal(t, []string{"hello"}, wa.sent)
}

func TestSendValidation(t *testing.T) {
	_, _, server := setup(t)

	resp := postJSON(t, server.URL+"/send", SendRequest{Text: "no target"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSendUnknownChat(t *testing.T) {
	_, _, server := setup(t)

	resp := postJSON(t, server.URL+"/send", SendRequest{Chat: "Nobody", Text: "hello"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLogout(t *testing.T) {
	wa, _, server := setup(t)

	resp := postJSON(t, server.URL+"/logout", nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, wa.loggedOut)
}

func TestChats(t *testing.T) {
	wa, _, server := setup(t)
	wa.chats = []whatsapp.ChatSummary{
		{Name: "Alice Smith", Preview: "hello", TimeLabel: "12:48", Unread: 2},
	}

	resp, err := http.Get(server.URL + "/chats")
	require.NoError(t, err)
	defer resp.Body.Close()

	var chats []whatsapp.ChatSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&chats))
	require.Len(t, chats, 1)
	require.Equal(t, "Alice Smith", chats[0].Name)
}

func TestHistoryArchivesScrape(t *testing.T) {
	wa, archive, server := setup(t)
	msg := whatsapp.Message{
		Chat:      "Alice Smith",
		Sender:    "Alice Smith",
		Text:      "hello there",
		TimeLabel: "12:48",
	}
	msg.ComputeID()
	wa.messages = []whatsapp.Message{msg}

	resp, err := http.Get(server.URL + "/chats/Alice%20Smith/history?n=5")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var live []whatsapp.Message
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&live))
	require.Len(t, live, 1)

	archived, err := archive.Recent(context.Background(), "Alice Smith", 10)
	require.NoError(t, err)
	require.Len(t, archived, 1)
	require.Equal(t, "hello there", archived[0].Text)
}

func TestArchiveEndpoint(t *testing.T) {
	_, archive, server := setup(t)
	msg := whatsapp.Message{Chat: "Bob Jones", Sender: "Bob Jones", Text: "archived"}
	msg.ComputeID()
	require.NoError(t, archive.Record(context.Background(), []whatsapp.Message{msg}))

	resp, err := http.Get(server.URL + "/chats/Bob%20Jones/archive")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var messages []whatsapp.Message
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&messages))
	require.Len(t, messages, 1)
	require.Equal(t, "archived", messages[0].Text)
}
