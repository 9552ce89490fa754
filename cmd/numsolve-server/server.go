package main

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/njchilds90/numsolve"
)

const (
	contentTypeJSON = "application/json"
	contentTypeCBOR = "application/cbor"
)

type server struct {
	maxBodyBytes int64
	log          zerolog.Logger
}

// newHandler builds the tool server routes.
func newHandler(cfg *numsolve.Config, log zerolog.Logger) http.Handler {
	s := &server{maxBodyBytes: cfg.Server.MaxBodyBytes, log: log}

	mux := http.NewServeMux()
	mux.HandleFunc("/tool", s.handleTool)
	mux.HandleFunc("/schema", s.handleSchema)
	mux.HandleFunc("/health", s.handleHealth)
	return s.withRequestID(mux)
}

// withRequestID tags every request with an X-Request-ID (kept when the
// client sends one) and logs it on completion.
func (s *server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)

		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		s.log.Info().
			Str("request_id", id).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", sw.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// POST /tool: run one tool call.
func (s *server) handleTool(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			s.log.Error().
				Str("request_id", w.Header().Get("X-Request-ID")).
				Interface("panic", rec).
				Str("stack", string(debug.Stack())).
				Msg("panic in /tool")
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}
	}()

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	defer r.Body.Close()

	var req numsolve.ToolRequest
	if err := s.decode(r, &req); err != nil {
		s.write(w, r, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	resp := numsolve.HandleToolCall(req)
	if resp.Error != "" {
		s.log.Debug().
			Str("request_id", w.Header().Get("X-Request-ID")).
			Str("tool", req.Tool).
			Str("error", resp.Error).
			Msg("tool call failed")
	}
	s.write(w, r, http.StatusOK, resp)
}

// decode reads the JSON request body. Requests are always JSON; only
// responses are negotiated.
func (s *server) decode(r *http.Request, req *numsolve.ToolRequest) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(req); err != nil {
		return err
	}
	// Ensure there's no trailing junk.
	if dec.More() {
		return fmt.Errorf("invalid JSON: trailing data")
	}
	return nil
}

// GET /schema: tool schema for agent registration.
func (s *server) handleSchema(w http.ResponseWriter, r *http.Request) {
	if wantsCBOR(r) {
		var spec interface{}
		if err := json.Unmarshal([]byte(numsolve.ToolSpec()), &spec); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		s.write(w, r, http.StatusOK, spec)
		return
	}
	w.Header().Set("Content-Type", contentTypeJSON)
	fmt.Fprint(w, numsolve.ToolSpec())
}

// GET /health: liveness check.
func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.write(w, r, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// write encodes v as CBOR when the client accepts it, JSON otherwise. The body
// is encoded before the status is sent so an encoding failure becomes a 500.
func (s *server) write(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	contentType := contentTypeJSON
	var (
		b   []byte
		err error
	)
	if wantsCBOR(r) {
		contentType = contentTypeCBOR
		b, err = cbor.Marshal(v)
	} else {
		b, err = json.Marshal(v)
		b = append(b, '\n')
	}
	if err != nil {
		s.log.Error().
			Str("request_id", w.Header().Get("X-Request-ID")).
			Err(err).
			Msg("encode response")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

func wantsCBOR(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		if mediaType(part) == contentTypeCBOR {
			return true
		}
	}
	return false
}

func mediaType(v string) string {
	mt, _, err := mime.ParseMediaType(strings.TrimSpace(v))
	if err != nil {
		return ""
	}
	return mt
}
