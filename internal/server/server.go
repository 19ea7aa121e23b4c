// Package server is the HTTP proxy that keeps the image search and play-history credentials
// away from the clients.
package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/varoOP/backlogdb/internal/domain"
	"github.com/varoOP/backlogdb/internal/xbox"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	log     zerolog.Logger
	search  domain.SearchProvider
	history domain.HistoryFetcher
	secret  []byte
	router  *mux.Router
}

type Option func(*Server)

// WithJWTSecret requires every proxied request to carry an HS256 bearer token signed with secret
func WithJWTSecret(secret string) Option {
	return func(s *Server) {
		if secret != "" {
			s.secret = []byte(secret)
		}
	}
}

func NewServer(log zerolog.Logger, search domain.SearchProvider, history domain.HistoryFetcher, opts ...Option) *Server {
	s := &Server{
		log:     log.With().Str("module", "server").Logger(),
		search:  search,
		history: history,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.requestID, s.logRequests, cors)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet, http.MethodOptions)

	r.Handle("/cover-proxy", s.authenticate(http.HandlerFunc(s.handleCoverProxy))).Methods(http.MethodGet, http.MethodOptions)
	r.Handle("/history-proxy", s.authenticate(http.HandlerFunc(s.handleHistoryProxy))).Methods(http.MethodGet, http.MethodOptions)

	r.MethodNotAllowedHandler = s.requestID(cors(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
	})))
	r.NotFoundHandler = s.requestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found", nil)
	}))

	return r
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Bool("auth", s.secret != nil).Msg("proxy server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "proxy server stopped")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	s.log.Info().Msg("shutting down proxy server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "could not shut down proxy server")
	}
	return nil
}

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	body := errorBody{Error: msg}
	if err != nil {
		body.Details = err.Error()
	}
	writeJSON(w, status, body)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCoverProxy(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		writeError(w, http.StatusBadRequest, "query is required", nil)
		return
	}
	if s.search == nil {
		writeError(w, http.StatusServiceUnavailable, "image search is not configured", nil)
		return
	}

	candidates, err := s.search.Search(r.Context(), query)
	if err != nil {
		s.log.Error().Err(err).Str("query", query).Str("request_id", RequestID(r.Context())).Msg("cover search failed")
		writeError(w, http.StatusInternalServerError, "cover search failed", err)
		return
	}
	if candidates == nil {
		candidates = []domain.Candidate{}
	}

	writeJSON(w, http.StatusOK, candidates)
}

func (s *Server) handleHistoryProxy(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	subject := q.Get("subjectId")
	if subject == "" {
		subject = q.Get("xuid")
	}
	if subject == "" {
		writeError(w, http.StatusBadRequest, "subjectId is required", nil)
		return
	}
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "history feed is not configured", nil)
		return
	}

	titles, err := s.history.FetchHistory(r.Context(), subject)
	if err != nil {
		s.log.Error().Err(err).Str("subject", subject).Str("request_id", RequestID(r.Context())).Msg("history fetch failed")
		writeError(w, http.StatusInternalServerError, "could not fetch history", err)
		return
	}
	if titles == nil {
		titles = []domain.Title{}
	}

	writeJSON(w, http.StatusOK, xbox.HistoryResponse{Titles: titles})
}
