// Package webhook serves the HTTP endpoints that external systems call:
// the ingestion pipeline callback and the OAuth consent redirect.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/aganswers/drivesync/internal/core/domain"
	"github.com/aganswers/drivesync/internal/core/ports/driving"
	"github.com/aganswers/drivesync/internal/logger"
)

// Routes.
const (
	IngestCallbackPath = "/integrations/google/ingest-callback"
	OAuthCallbackPath  = "/integrations/google/oauth-callback"
	HealthPath         = "/healthz"
)

// maxCallbackBody bounds the pipeline callback payload.
const maxCallbackBody = 1 << 20

// callbackRequest is the pipeline's completion report. The blob key may
// arrive as s3_key or as the first element of s3_paths.
type callbackRequest struct {
	ProjectID        string   `json:"project_id"`
	ReadableFilename string   `json:"readable_filename"`
	S3Key            string   `json:"s3_key"`
	S3Paths          []string `json:"s3_paths"`
	Success          bool     `json:"success"`
	Error            string   `json:"error"`
}

type callbackResponse struct {
	Status   string `json:"status"`
	RecordID string `json:"record_id,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Server hosts the webhook endpoints.
type Server struct {
	mu       sync.Mutex
	addr     string
	tracker  driving.IngestionTracker
	tokens   driving.TokenManager
	server   *http.Server
	listener net.Listener
	errChan  chan error
}

// NewServer creates a server bound to addr. tokens may be nil, in which
// case the OAuth redirect route answers 503.
func NewServer(addr string, tracker driving.IngestionTracker, tokens driving.TokenManager) *Server {
	return &Server{
		addr:    addr,
		tracker: tracker,
		tokens:  tokens,
		errChan: make(chan error, 1),
	}
}

// Handler returns the route multiplexer.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+IngestCallbackPath, s.handleIngestCallback)
	mux.HandleFunc("GET "+OAuthCallbackPath, s.handleOAuthCallback)
	mux.HandleFunc("GET "+HealthPath, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, callbackResponse{Status: "ok"})
	})
	return mux
}

// Start listens and serves in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = listener
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case s.errChan <- err:
			default:
			}
		}
	}()

	logger.Info("webhook listening on %s", listener.Addr())
	return nil
}

// Addr returns the bound address, useful when listening on port 0.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Errors reports a fatal serve error.
func (s *Server) Errors() <-chan error {
	return s.errChan
}

// Stop shuts the server down gracefully.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleIngestCallback(w http.ResponseWriter, r *http.Request) {
	var req callbackRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxCallbackBody))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, callbackResponse{Status: "error", Message: "invalid JSON body"})
		return
	}
	if req.ProjectID == "" || req.ReadableFilename == "" {
		writeJSON(w, http.StatusBadRequest, callbackResponse{
			Status:  "error",
			Message: "project_id and readable_filename are required",
		})
		return
	}

	cb := domain.IngestionCallback{
		ProjectID:   req.ProjectID,
		DisplayName: req.ReadableFilename,
		BlobKey:     req.blobKey(),
		Success:     req.Success,
		Error:       req.Error,
	}
	rec, err := s.tracker.HandleCallback(r.Context(), cb)
	if err != nil {
		logger.Error("ingest callback for %s/%s: %v", cb.ProjectID, cb.DisplayName, err)
		writeJSON(w, http.StatusInternalServerError, callbackResponse{Status: "error", Message: "callback not applied"})
		return
	}
	if rec == nil {
		logger.Warn("ingest callback matched no record: project=%s file=%s key=%s",
			cb.ProjectID, cb.DisplayName, cb.BlobKey)
		writeJSON(w, http.StatusOK, callbackResponse{Status: "ignored", Message: "no matching record"})
		return
	}
	writeJSON(w, http.StatusOK, callbackResponse{Status: string(rec.Status), RecordID: rec.ID})
}

func (s *Server) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	if s.tokens == nil {
		http.Error(w, "oauth is not configured", http.StatusServiceUnavailable)
		return
	}

	q := r.URL.Query()
	w.Header().Set("Content-Type", "text/html")
	if errParam := q.Get("error"); errParam != "" {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, resultHTML("Authorization failed", errParam))
		return
	}

	state, code := q.Get("state"), q.Get("code")
	if state == "" || code == "" {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, resultHTML("Authorization failed", "missing code or state"))
		return
	}

	owner, err := s.tokens.OwnerFromState(state)
	if err != nil {
		logger.Warn("oauth callback with invalid state: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, resultHTML("Authorization failed", "invalid or expired state; request a new authorization URL"))
		return
	}

	ok, err := s.tokens.CompleteAuthorization(r.Context(), code, owner)
	switch {
	case err != nil:
		logger.Error("complete authorization for %s: %v", owner, err)
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, resultHTML("Authorization failed", "the token could not be stored"))
	case !ok:
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, resultHTML("Authorization failed", "Google rejected the authorization code"))
	default:
		fmt.Fprint(w, resultHTML("Authorization successful!", "You can close this window and return to the application."))
	}
}

func (r callbackRequest) blobKey() string {
	if r.S3Key != "" {
		return r.S3Key
	}
	if len(r.S3Paths) > 0 {
		return r.S3Paths[0]
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func resultHTML(title, message string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <title>drivesync</title>
    <style>
        body { font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; display: flex;
               justify-content: center; align-items: center; height: 100vh; margin: 0; background: #FAFAFA; }
        .container { text-align: center; background: white; padding: 48px 64px; border-radius: 16px;
                     border: 1px solid #C7C8CC; }
        h1 { color: #333F50; margin: 0 0 8px 0; font-size: 24px; }
        p { color: #7B8088; margin: 0; font-size: 16px; }
    </style>
</head>
<body>
    <div class="container">
        <h1>%s</h1>
        <p>%s</p>
    </div>
</body>
</html>`, html.EscapeString(title), html.EscapeString(message))
}
