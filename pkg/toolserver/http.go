package toolserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/g95g95/Consulting-Hive-mind-sub001/pkg/auth"
)

// LoginUpsert maps an external OAuth identity to a local one, creating
// the user on first login.
type LoginUpsert func(ctx context.Context, ext *auth.ExternalIdentity) (*auth.Identity, error)

// HTTPConfig wires the REST transport.
type HTTPConfig struct {
	Name     string
	Version  string
	Registry *Registry
	Executor *Executor
	Codec    *auth.Codec
	OAuth    *auth.OAuth
	Limiter  *auth.RateLimiter
	Login    LoginUpsert
}

// HTTPServer serves the tool catalog over REST. Unlike the stdio
// transport it holds no session state: identity is re-derived from the
// Authorization header on every request.
type HTTPServer struct {
	cfg    HTTPConfig
	extra  map[string]http.Handler
	logger *slog.Logger
}

// NewHTTPServer creates the REST transport over the shared registry and
// executor.
func NewHTTPServer(cfg HTTPConfig) *HTTPServer {
	return &HTTPServer{
		cfg:    cfg,
		extra:  make(map[string]http.Handler),
		logger: slog.Default(),
	}
}

// Handle mounts an additional route (e.g. a payment webhook) on the
// transport's mux. Must be called before Routes.
func (hs *HTTPServer) Handle(pattern string, h http.Handler) {
	hs.extra[pattern] = h
}

// Routes returns the configured handler.
func (hs *HTTPServer) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /tools", hs.handleToolsList)
	mux.HandleFunc("POST /tools/{name}", hs.handleToolCall)
	mux.HandleFunc("GET /auth/{provider}", hs.handleAuthRedirect)
	mux.HandleFunc("GET /auth/{provider}/callback", hs.handleAuthCallback)
	mux.HandleFunc("GET /health", hs.handleHealth)

	for pattern, h := range hs.extra {
		mux.Handle(pattern, h)
	}

	return hs.corsMiddleware(mux)
}

// ListenAndServe starts the REST server on addr.
func (hs *HTTPServer) ListenAndServe(addr string) error {
	hs.logger.Info("starting tool server (rest)", "addr", addr, "tools", hs.cfg.Registry.Len())
	return http.ListenAndServe(addr, hs.Routes())
}

func (hs *HTTPServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// bearerIdentity derives the caller's identity from the Authorization
// header, nil when absent or invalid.
func (hs *HTTPServer) bearerIdentity(r *http.Request) *auth.Identity {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return nil
	}
	id, ok := hs.cfg.Codec.Verify(strings.TrimPrefix(header, "Bearer "))
	if !ok {
		return nil
	}
	return id
}

func (hs *HTTPServer) handleToolsList(w http.ResponseWriter, r *http.Request) {
	hs.respond(w, http.StatusOK, &ToolsListResult{Tools: describe(hs.cfg.Registry.List())})
}

func (hs *HTTPServer) handleToolCall(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	id := hs.bearerIdentity(r)

	if hs.cfg.Limiter != nil && !hs.cfg.Limiter.Allow(rateKey(r, id)) {
		hs.respond(w, http.StatusTooManyRequests, Fail(CodeRateLimited, "rate limit exceeded"))
		return
	}

	// Empty body tolerated: a tool without inputs needs no JSON object.
	args := map[string]any{}
	if err := json.NewDecoder(r.Body).Decode(&args); err != nil && !errors.Is(err, io.EOF) {
		hs.respond(w, http.StatusBadRequest, Fail(CodeInvalidInput, "invalid request body"))
		return
	}

	if tool, ok := hs.cfg.Registry.Lookup(name); ok && tool.RequiresAuth && id == nil {
		hs.respond(w, http.StatusUnauthorized, Fail(CodeUnauthorized, "authentication required"))
		return
	}

	if err := hs.cfg.Executor.ValidateInput(name, args); err != nil {
		var te *ToolError
		if errors.As(err, &te) {
			hs.respond(w, statusFor(te.Code), Fail(te.Code, te.Message))
			return
		}
		hs.respond(w, http.StatusBadRequest, Fail(CodeInvalidInput, err.Error()))
		return
	}

	res := hs.cfg.Executor.Execute(r.Context(), name, args, id)
	status := http.StatusOK
	if !res.Success {
		status = statusFor(res.Code)
	}
	hs.respond(w, status, res)
}

// statusFor maps result codes to HTTP statuses.
func statusFor(code string) int {
	switch code {
	case CodeNotFound, CodeToolNotFound:
		return http.StatusNotFound
	case CodeForbidden:
		return http.StatusForbidden
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusBadRequest
	}
}

func (hs *HTTPServer) handleAuthRedirect(w http.ResponseWriter, r *http.Request) {
	provider := r.PathValue("provider")
	if hs.cfg.OAuth == nil || !hs.cfg.OAuth.Has(provider) {
		hs.respond(w, http.StatusNotFound, Fail(CodeNotFound, "unknown auth provider: "+provider))
		return
	}
	url, err := hs.cfg.OAuth.AuthorizeURL(provider)
	if err != nil {
		hs.respond(w, http.StatusBadRequest, Fail(CodeInvalidInput, err.Error()))
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

func (hs *HTTPServer) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	provider := r.PathValue("provider")
	code := r.URL.Query().Get("code")
	if code == "" {
		hs.respond(w, http.StatusBadRequest, Fail(CodeInvalidInput, "missing authorization code"))
		return
	}
	if hs.cfg.OAuth == nil || !hs.cfg.OAuth.Has(provider) {
		hs.respond(w, http.StatusNotFound, Fail(CodeNotFound, "unknown auth provider: "+provider))
		return
	}

	ext, err := hs.cfg.OAuth.Exchange(r.Context(), provider, code)
	if err != nil {
		hs.logger.Error("oauth exchange failed", "provider", provider, "error", err)
		hs.respond(w, http.StatusBadRequest, Fail(CodeInvalidInput, "authorization code exchange failed"))
		return
	}

	id, err := hs.cfg.Login(r.Context(), ext)
	if err != nil {
		hs.logger.Error("login upsert failed", "provider", provider, "error", err)
		hs.respond(w, http.StatusBadRequest, Fail(CodeExecution, "login failed"))
		return
	}

	token, err := hs.cfg.Codec.Issue(id)
	if err != nil {
		hs.logger.Error("token issue failed", "error", err)
		hs.respond(w, http.StatusBadRequest, Fail(CodeExecution, "token issue failed"))
		return
	}

	hs.respond(w, http.StatusOK, OK(map[string]any{
		"token": token,
		"user":  id,
	}))
}

func (hs *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	hs.respond(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
		"server":    hs.cfg.Name,
		"version":   hs.cfg.Version,
	})
}

func (hs *HTTPServer) respond(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		hs.logger.Error("encode response", "error", err)
	}
}

// rateKey buckets requests by authenticated subject, falling back to the
// caller's address for anonymous traffic.
func rateKey(r *http.Request, id *auth.Identity) string {
	if id != nil {
		return "user:" + id.Email
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return "addr:" + r.RemoteAddr
	}
	return "addr:" + host
}
