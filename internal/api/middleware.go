package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"trainhub/internal/observe"
	"trainhub/internal/ratelimit"
)

type contextKey string

const requestIDContextKey contextKey = "request_id"

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := context.WithValue(r.Context(), requestIDContextKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDContextKey).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(b)
}

// Flush keeps streaming responses (MCP over SSE) working through the
// recorder.
func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

func accessLogMiddleware(obs *observe.Observer, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		durationMS := int(time.Since(start).Milliseconds())
		if status >= 500 {
			obs.Log().Warn().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Str("request_id", requestID(r.Context())).
				Int("duration_ms", durationMS).
				Msg("request")
			return
		}
		obs.Log().Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Str("request_id", requestID(r.Context())).
			Int("duration_ms", durationMS).
			Msg("request")
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		h.Set("Access-Control-Expose-Headers", "X-Request-ID, X-RateLimit-Limit, X-RateLimit-Remaining, X-RateLimit-Reset, Retry-After")
		h.Set("Access-Control-Max-Age", "86400")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// writeLimitMiddleware throttles mutating calls per client address. Reads
// pass through; every write becomes an upstream call.
func writeLimitMiddleware(limiter *ratelimit.Limiter, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		if !allowWrite(w, r, limiter) {
			return
		}
		next.ServeHTTP(w, r)
	})
}

// mcpWriteTools are the MCP tools that mutate upstream. They share the
// write budget with the REST endpoints.
var mcpWriteTools = map[string]bool{
	"trainhub_create_training": true,
	"trainhub_update_training": true,
	"trainhub_delete_training": true,
}

// mcpWriteLimitMiddleware charges tools/call requests for write tools
// against the write limiter. Session setup, listing and read tools are not
// charged.
func mcpWriteLimitMiddleware(limiter *ratelimit.Limiter, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.Body == nil {
			next.ServeHTTP(w, r)
			return
		}
		body, err := io.ReadAll(r.Body)
		_ = r.Body.Close()
		if err != nil {
			writeError(w, http.StatusBadRequest, "unreadable request body")
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		for i := countMCPWrites(body); i > 0; i-- {
			if !allowWrite(w, r, limiter) {
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

type jsonRPCCall struct {
	Method string `json:"method"`
	Params struct {
		Name string `json:"name"`
	} `json:"params"`
}

// countMCPWrites counts write tool calls in a JSON-RPC message or batch.
// Bodies that do not parse are left for the MCP handler to reject.
func countMCPWrites(body []byte) int {
	body = bytes.TrimSpace(body)
	var calls []jsonRPCCall
	if len(body) > 0 && body[0] == '[' {
		if err := json.Unmarshal(body, &calls); err != nil {
			return 0
		}
	} else {
		var one jsonRPCCall
		if err := json.Unmarshal(body, &one); err != nil {
			return 0
		}
		calls = append(calls, one)
	}
	n := 0
	for _, c := range calls {
		if c.Method == "tools/call" && mcpWriteTools[c.Params.Name] {
			n++
		}
	}
	return n
}

// allowWrite charges one write to the caller and sets the X-RateLimit
// headers. When the budget is spent it writes the 429 and returns false.
func allowWrite(w http.ResponseWriter, r *http.Request, limiter *ratelimit.Limiter) bool {
	now := time.Now().UTC()
	res := limiter.Allow(clientKey(r), now)
	if res.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
	}
	if res.Allowed {
		return true
	}
	retryAfter := int(res.ResetAt.Sub(now).Seconds())
	if retryAfter < 1 {
		retryAfter = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	writeError(w, http.StatusTooManyRequests, "rate limit exceeded: writes")
	return false
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
