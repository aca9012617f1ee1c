// Package api exposes the subscription operations over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"feed_notifier/internal/domain"
	"feed_notifier/internal/scheduler"
)

// Scheduler is the subset of scheduler operations the API drives.
type Scheduler interface {
	Subscribe(ctx context.Context, req scheduler.SubscribeRequest) (*domain.Notifier, error)
	Pause(ctx context.Context, id int64) error
	Resume(ctx context.Context, id int64) error
	UpdateInterval(ctx context.Context, id int64, interval int64) error
	Unsubscribe(ctx context.Context, id int64) error
}

type Server struct {
	scheduler Scheduler
	store     scheduler.NotifierStore
	logger    *slog.Logger
}

func NewServer(sched Scheduler, store scheduler.NotifierStore, logger *slog.Logger) *Server {
	return &Server{
		scheduler: sched,
		store:     store,
		logger:    logger.With("component", "api"),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/api/feeds", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Post("/", s.handleSubscribe)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGet)
			r.Delete("/", s.handleUnsubscribe)
			r.Post("/pause", s.handlePause)
			r.Post("/resume", s.handleResume)
			r.Put("/interval", s.handleUpdateInterval)
		})
	})

	return r
}

// response is the envelope every endpoint answers with: the HTTP status
// repeated in the body, the payload, and a human-readable error message.
type response struct {
	Status int     `json:"status"`
	Data   any     `json:"data"`
	Error  *string `json:"error"`
}

func (s *Server) writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response{Status: status, Data: data}); err != nil {
		s.logger.Error("write response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	msg := err.Error()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response{Status: status, Error: &msg}); err != nil {
		s.logger.Error("write response", "error", err)
	}
}

// statusFor maps domain error kinds onto HTTP status codes. Anything
// unclassified, fetch failures included, is a 500 to the caller.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInterval), errors.Is(err, domain.ErrInvalidURL):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

type subscribePayload struct {
	URL      string `json:"url"`
	Interval int64  `json:"interval"`
	Title    string `json:"title"`
	ID       *int64 `json:"id"`
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	var payload subscribePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}

	req := scheduler.SubscribeRequest{
		URL:      payload.URL,
		Interval: payload.Interval,
		Title:    payload.Title,
	}
	if payload.ID != nil {
		req.ID = *payload.ID
	}

	n, err := s.scheduler.Subscribe(r.Context(), req)
	if err != nil {
		s.logger.Warn("subscribe failed", "url", payload.URL, "error", err)
		s.writeError(w, statusFor(err), err)
		return
	}

	s.writeData(w, http.StatusOK, n)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	notifiers, err := s.store.List(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeData(w, http.StatusOK, notifiers)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := s.feedID(w, r)
	if !ok {
		return
	}

	n, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeData(w, http.StatusOK, n)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.simpleAction(w, r, s.scheduler.Pause)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.simpleAction(w, r, s.scheduler.Resume)
}

func (s *Server) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	s.simpleAction(w, r, s.scheduler.Unsubscribe)
}

type intervalPayload struct {
	Interval int64 `json:"interval"`
}

func (s *Server) handleUpdateInterval(w http.ResponseWriter, r *http.Request) {
	id, ok := s.feedID(w, r)
	if !ok {
		return
	}

	var payload intervalPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}

	if err := s.scheduler.UpdateInterval(r.Context(), id, payload.Interval); err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}

	n, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeData(w, http.StatusOK, n)
}

// simpleAction runs a scheduler operation that takes only the feed id and
// answers with the resulting record, or null for an unsubscribe.
func (s *Server) simpleAction(w http.ResponseWriter, r *http.Request, fn func(context.Context, int64) error) {
	id, ok := s.feedID(w, r)
	if !ok {
		return
	}

	if err := fn(r.Context(), id); err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}

	n, err := s.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Unsubscribed: there is nothing left to return.
			s.writeData(w, http.StatusOK, nil)
			return
		}
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeData(w, http.StatusOK, n)
}

func (s *Server) feedID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, errors.New("feed id must be an integer"))
		return 0, false
	}
	return id, true
}
