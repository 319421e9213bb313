// Package webhook exposes the ingestion boundary over HTTP, for portals
// that push notifications when new attachments land. The signature check
// is optional: with no secret configured the endpoint accepts unsigned
// requests.
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/custodia-labs/noticeflow/internal/core/domain"
	"github.com/custodia-labs/noticeflow/internal/core/ports/driving"
	"github.com/custodia-labs/noticeflow/internal/logger"
)

// signatureHeader carries the hex HMAC-SHA256 of the request body.
const signatureHeader = "X-Notice-Signature"

// maxBodyBytes bounds webhook request bodies.
const maxBodyBytes = 1 << 20

// Server is the HTTP boundary around the ingestion service.
type Server struct {
	ingestor driving.Ingestor
	secret   []byte
	mux      *http.ServeMux
}

// New creates a webhook server. An empty secret disables signature checks.
func New(ingestor driving.Ingestor, secret string) *Server {
	s := &Server{
		ingestor: ingestor,
		mux:      http.NewServeMux(),
	}
	if secret != "" {
		s.secret = []byte(secret)
	}
	s.mux.HandleFunc("POST /webhook", s.handleWebhook)
	s.mux.HandleFunc("POST /upload", s.handleUpload)
	s.mux.HandleFunc("POST /process", s.handleProcess)
	s.mux.HandleFunc("GET /units/{id}", s.handleUnit)
	return s
}

// Handler returns the routing handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()
	logger.Info("Webhook server listening on %s", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

// webhookRequest is the body of POST /webhook and POST /upload.
type webhookRequest struct {
	FilePath string `json:"file_path"`
}

// ingestResponse is the body returned for a single ingested file.
type ingestResponse struct {
	Status    string `json:"status"`
	UnitID    string `json:"unit_id,omitempty"`
	Route     string `json:"route,omitempty"`
	FromCache bool   `json:"from_cache,omitempty"`
	Error     string `json:"error,omitempty"`
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading body")
		return
	}
	if !s.verifySignature(body, r.Header.Get(signatureHeader)) {
		writeError(w, http.StatusUnauthorized, "invalid signature")
		return
	}
	s.ingestBody(w, r, body)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading body")
		return
	}
	s.ingestBody(w, r, body)
}

func (s *Server) ingestBody(w http.ResponseWriter, r *http.Request, body []byte) {
	var req webhookRequest
	if err := json.Unmarshal(body, &req); err != nil || req.FilePath == "" {
		writeError(w, http.StatusBadRequest, "body must be JSON with a file_path field")
		return
	}

	result, err := s.ingestor.Upload(r.Context(), req.FilePath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := ingestResponse{
		UnitID:    result.UnitID,
		Route:     string(result.Route),
		FromCache: result.FromCache,
	}
	switch {
	case result.Quarantined:
		resp.Status = "quarantined"
		if result.Err != nil {
			resp.Error = result.Err.Error()
		}
	case result.UnitID == "":
		resp.Status = "skipped"
	default:
		resp.Status = "ok"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	summary, err := s.ingestor.ProcessNow(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleUnit(w http.ResponseWriter, r *http.Request) {
	manifest, err := s.ingestor.Status(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "unit not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(manifest) //nolint:errcheck // Nothing to do about a failed write
}

// verifySignature checks the hex HMAC-SHA256 of the body. A missing or
// malformed header fails closed when a secret is configured.
func (s *Server) verifySignature(body []byte, header string) bool {
	if len(s.secret) == 0 {
		return true
	}
	got, err := hex.DecodeString(header)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Warn("Writing response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
	if status >= http.StatusInternalServerError {
		logger.Warn("Webhook request failed: %s", message)
	}
}

// Sign computes the signature value a caller puts in the request header.
// Exposed so operators can script signed webhook calls.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return fmt.Sprintf("%x", mac.Sum(nil))
}
