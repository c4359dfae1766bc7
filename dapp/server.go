package dapp

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/ballotkit/voting-dapp/client"
	"github.com/ballotkit/voting-dapp/contract/voting"
	"github.com/ballotkit/voting-dapp/pkg/logger"
)

//go:embed templates/page.html
var templatesFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templatesFS, "templates/page.html"))

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
	// maxFormBytes bounds the size of a posted form.
	maxFormBytes = 64 << 10

	requestIDHeader = "X-Request-Id"
)

// ServerConfig configures the HTTP front-end.
type ServerConfig struct {
	// ListenAddr is the TCP address to listen on, e.g. ":8080".
	ListenAddr string
	// AllowedOrigins lists the origins allowed to post forms cross-origin. Empty allows none.
	AllowedOrigins []string
}

// Server serves the voting page over HTTP. Every request gets its own Form, so concurrent
// requests share only the page's read-only client.
type Server struct {
	lggr    logger.Logger
	page    *Page
	cfg     ServerConfig
	handler http.Handler
}

// NewServer returns a server for page.
func NewServer(lggr logger.Logger, page *Page, cfg ServerConfig) *Server {
	s := &Server{
		lggr: lggr.Named("http"),
		page: page,
		cfg:  cfg,
	}

	r := mux.NewRouter()
	r.Use(s.withLogging)
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/proposals", s.handleCreateProposal).Methods(http.MethodPost)
	r.HandleFunc("/votes", s.handleVote).Methods(http.MethodPost)
	r.HandleFunc("/proposals/lookup", s.handleGetProposal).Methods(http.MethodPost)

	corsOpts := cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
	}
	if len(cfg.AllowedOrigins) == 0 {
		// rs/cors treats an empty list as "*".
		corsOpts.AllowOriginFunc = func(string) bool { return false }
	}
	s.handler = cors.New(corsOpts).Handler(r)

	return s
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.lggr.Infow("Serving voting page", "addr", s.cfg.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server stopped: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// pageView is the data the page template renders.
type pageView struct {
	Contract string
	Chain    string
	Callable bool
	ReadOnly bool
	Values   map[string]string
	Status   string
	Failed   bool
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, NewForm(nil), "", false)
}

func (s *Server) handleCreateProposal(w http.ResponseWriter, r *http.Request) {
	form, ok := s.parseForm(w, r)
	if !ok {
		return
	}

	tx, err := s.page.CreateProposal(r.Context(), form)
	s.renderSubmission(w, form, "Proposal", tx, err)
}

func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	form, ok := s.parseForm(w, r)
	if !ok {
		return
	}

	tx, err := s.page.Vote(r.Context(), form)
	s.renderSubmission(w, form, "Vote", tx, err)
}

func (s *Server) handleGetProposal(w http.ResponseWriter, r *http.Request) {
	form, ok := s.parseForm(w, r)
	if !ok {
		return
	}

	if err := s.page.GetProposal(r.Context(), form); err != nil {
		s.lggr.Warnw("Proposal lookup failed", "err", err)
		s.render(w, statusCode(err), form, err.Error(), true)

		return
	}

	s.render(w, http.StatusOK, form, "", false)
}

func (s *Server) renderSubmission(w http.ResponseWriter, form *Form, what string, tx *types.Transaction, err error) {
	if err != nil {
		s.lggr.Warnw("Submission failed", "what", what, "err", err)
		s.render(w, statusCode(err), form, err.Error(), true)

		return
	}

	s.render(w, http.StatusOK, form, fmt.Sprintf("%s submitted in transaction %s", what, tx.Hash().Hex()), false)
}

// parseForm copies the posted input fields into a request-scoped Form.
func (s *Server) parseForm(w http.ResponseWriter, r *http.Request) (*Form, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		s.render(w, http.StatusBadRequest, NewForm(nil), "invalid form: "+err.Error(), true)

		return nil, false
	}

	values := make(map[string]string, len(InputFields))
	for _, id := range InputFields {
		values[id] = r.PostForm.Get(id)
	}

	return NewForm(values), true
}

func (s *Server) render(w http.ResponseWriter, code int, form *Form, status string, failed bool) {
	view := pageView{
		Contract: voting.Address.Hex(),
		Callable: s.page.Callable(),
		Values:   form.Values(),
		Status:   status,
		Failed:   failed,
	}
	if c := s.page.Client(); c != nil {
		view.Chain = c.Chain().String()
		view.ReadOnly = c.ReadOnly()
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	if err := pageTemplate.Execute(w, view); err != nil {
		s.lggr.Errorw("Failed to render page", "err", err)
	}
}

// statusCode maps a handler error to an HTTP status.
func statusCode(err error) int {
	switch {
	case errors.Is(err, voting.ErrInvalidIndex):
		return http.StatusUnprocessableEntity
	case errors.Is(err, client.ErrNoAccounts):
		return http.StatusForbidden
	case errors.Is(err, ErrNotCallable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

// withLogging tags every request with an id and logs it with its duration.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		next.ServeHTTP(w, r)
		s.lggr.Debugw("Request completed",
			"requestID", id, "method", r.Method, "path", r.URL.Path, "duration_ms", time.Since(start).Milliseconds())
	})
}
