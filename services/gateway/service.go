package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"wabrowser/lib/scrapers/whatsapp"
	"wabrowser/services/history"
	"wabrowser/services/watcher"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// WhatsApp is the slice of the scraper client the gateway exposes.
type WhatsApp interface {
	LoggedIn(ctx context.Context) (bool, error)
	Logout(ctx context.Context) error
	Send(ctx context.Context, text string) error
	SendTo(ctx context.Context, name, text string) error
	OpenChatByPhone(ctx context.Context, phone string) error
	Chats(ctx context.Context) ([]whatsapp.ChatSummary, error)
	HistoryOf(ctx context.Context, name string, n int) ([]whatsapp.Message, error)
}

// EventSource is satisfied by *watcher.Service.
type EventSource interface {
	Subscribe() (<-chan watcher.Event, func())
}

// Service is the REST surface over a single browser session. The
// underlying page can only do one thing at a time, so every browser
// call is serialized behind a mutex.
type Service struct {
	mu      sync.Mutex
	wa      WhatsApp
	archive *history.Service
	events  EventSource
}

func NewService(wa WhatsApp, archive *history.Service, events EventSource) *Service {
	return &Service{wa: wa, archive: archive, events: events}
}

func (s *Service) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})
	r.Get("/status", s.handleStatus)
	r.Post("/send", s.handleSend)
	r.Post("/logout", s.handleLogout)
	r.Get("/chats", s.handleChats)
	r.Get("/chats/{name}/history", s.handleHistory)
	r.Get("/chats/{name}/archive", s.handleArchive)
	r.Get("/events", s.handleEvents)
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, whatsapp.ErrChatNotFound):
		status = http.StatusNotFound
	case errors.Is(err, whatsapp.ErrNotLoggedIn):
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

type StatusResponse struct {
	LoggedIn bool `json:"logged_in"`
}

func (s *Service) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	loggedIn, err := s.wa.LoggedIn(r.Context())
	s.mu.Unlock()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{LoggedIn: loggedIn})
}

type SendRequest struct {
	Chat  string `json:"chat,omitempty"`
	Phone string `json:"phone,omitempty"`
	Text  string `json:"text"`
}

func (s *Service) handleSend(w http.ResponseWriter, r *http.Request) {
	var req SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.Text == "" || (req.Chat == "" && req.Phone == "") {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "text and one of chat or phone are required",
		})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if req.Phone != "" {
		err = s.wa.OpenChatByPhone(r.Context(), req.Phone)
		if err == nil {
			err = s.wa.Send(r.Context(), req.Text)
		}
	} else {
		err = s.wa.SendTo(r.Context(), req.Chat, req.Text)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"sent": true})
}

func (s *Service) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	err := s.wa.Logout(r.Context())
	s.mu.Unlock()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"logged_out": true})
}

func (s *Service) handleChats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	chats, err := s.wa.Chats(r.Context())
	s.mu.Unlock()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chats)
}

func queryN(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("n"))
	if err != nil {
		return 0
	}
	return n
}

// handleHistory scrapes the live conversation pane. Results also land
// in the archive so restarts keep accumulating history.
func (s *Service) handleHistory(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	s.mu.Lock()
	messages, err := s.wa.HistoryOf(r.Context(), name, queryN(r))
	s.mu.Unlock()
	if err != nil {
		writeError(w, err)
		return
	}

	if s.archive != nil {
		if err := s.archive.Record(r.Context(), messages); err != nil {
			slog.Warn("failed to archive scraped history", "chat", name, "err", err)
		}
	}
	writeJSON(w, http.StatusOK, messages)
}

// handleArchive serves previously recorded messages without touching
// the browser.
func (s *Service) handleArchive(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "archive disabled"})
		return
	}
	messages, err := s.archive.Recent(r.Context(), chi.URLParam(r, "name"), queryN(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

// handleEvents streams watcher events as server-sent events until the
// client hangs up.
func (s *Service) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "watcher disabled"})
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
		return
	}

	events, cancel := s.events.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}
