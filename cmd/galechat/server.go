package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/andreiPopCatalin/gale-chat/internal/constants"
	"github.com/andreiPopCatalin/gale-chat/internal/metrics"
	"github.com/andreiPopCatalin/gale-chat/internal/middleware"
	"github.com/andreiPopCatalin/gale-chat/internal/models"
	"github.com/andreiPopCatalin/gale-chat/internal/service"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Server exposes the conversation session over a local HTTP gateway:
// a JSON API for the conversation state plus a websocket that streams
// session events to the UI.
type Server struct {
	cfg     *models.Config
	router  *mux.Router
	logger  *logrus.Logger
	session *service.Session
	server  *http.Server
}

func NewServer(cfg *models.Config, session *service.Session, logger *logrus.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		router:  mux.NewRouter(),
		logger:  logger,
		session: session,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Observability(s.logger))

	s.router.HandleFunc("/health", s.handleHealth()).Methods(http.MethodGet)
	s.router.HandleFunc("/metrics", s.handleMetrics()).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/conversation", s.handleConversation()).Methods(http.MethodGet)
	api.HandleFunc("/conversation/more", s.handleLoadMore()).Methods(http.MethodPost)
	api.HandleFunc("/messages", s.handleSend()).Methods(http.MethodPost)
	api.HandleFunc("/messages/cancel", s.handleCancelReply()).Methods(http.MethodPost)

	s.router.HandleFunc("/ws", s.handleEvents())
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  constants.DefaultServerReadTimeoutSec * time.Second,
		WriteTimeout: constants.DefaultServerWriteTimeoutSec * time.Second,
		IdleTimeout:  constants.DefaultServerIdleTimeoutSec * time.Second,
	}

	s.logger.Infof("Starting server on port %d", s.cfg.Server.Port)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

func (s *Server) handleMetrics() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")

		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(metrics.GetAllMetrics()); err != nil {
			s.logger.WithError(err).Error("Failed to encode metrics response")
		}
	}
}

type conversationResponse struct {
	Sections          []models.Section `json:"sections"`
	Typing            bool             `json:"typing"`
	Presence          service.Presence `json:"presence"`
	HasMore           bool             `json:"hasMore"`
	UserHasInteracted bool             `json:"userHasInteracted"`
}

func (s *Server) handleConversation() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sections := s.session.Sections()
		now := time.Now()
		for i := range sections {
			sections[i].Title = service.DateLabel(sections[i].Title, now)
		}

		s.writeJSON(w, http.StatusOK, conversationResponse{
			Sections:          sections,
			Typing:            s.session.Typing(),
			Presence:          s.session.Presence(),
			HasMore:           s.session.HasMore(),
			UserHasInteracted: s.session.UserHasInteracted(),
		})
	}
}

type sendRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleSend() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req sendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		s.session.Send(r.Context(), req.Text)
		w.WriteHeader(http.StatusAccepted)
	}
}

func (s *Server) handleCancelReply() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.session.CancelReply()
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleLoadMore() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		more := s.session.LoadMore(r.Context())
		s.writeJSON(w, http.StatusOK, more)
	}
}

// handleEvents streams session events over a websocket. The session
// has a single event stream, so one UI consumer at a time is expected.
func (s *Server) handleEvents() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: []string{"localhost:*", "127.0.0.1:*"},
		})
		if err != nil {
			s.logger.WithError(err).Warn("Websocket accept failed")
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")

		s.logger.Info("Event stream connected")

		ctx := r.Context()
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-s.session.Events():
				if !ok {
					return
				}
				writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
				err := wsjson.Write(writeCtx, conn, evt)
				cancel()
				if err != nil {
					s.logger.WithError(err).Debug("Event stream write failed, closing")
					return
				}
			}
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}
