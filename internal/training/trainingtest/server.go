// Package trainingtest runs an in-memory stand-in for the provider's
// training API on an httptest server.
package trainingtest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
)

// Request is one call the fake received.
type Request struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   []byte
}

type failure struct {
	status int
	body   string
}

type Server struct {
	*httptest.Server
	Token string

	mu       sync.Mutex
	records  map[string][]map[string]any
	requests []Request
	listFail map[string]failure
	failAll  *failure
	nextID   int
}

// NewServer starts the fake and closes it when the test ends.
func NewServer(t testing.TB, token string) *Server {
	t.Helper()
	s := &Server{
		Token:    token,
		records:  map[string][]map[string]any{},
		listFail: map[string]failure{},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /agent/{agentID}/trainings", s.list)
	mux.HandleFunc("POST /agent/{agentID}/trainings", s.create)
	mux.HandleFunc("PUT /training/{trainingID}", s.update)
	mux.HandleFunc("DELETE /training/{trainingID}", s.remove)
	s.Server = httptest.NewServer(s.record(mux))
	t.Cleanup(s.Close)
	return s
}

// Seed stores records for an upstream agent id. Each record needs at least
// "id" and "type".
func (s *Server) Seed(agentID string, recs ...map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[agentID] = append(s.records[agentID], recs...)
}

// FailList makes listings of one type answer with status and body.
func (s *Server) FailList(typ string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listFail[typ] = failure{status: status, body: body}
}

// FailAll makes every request answer with status and body.
func (s *Server) FailAll(status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failAll = &failure{status: status, body: body}
}

func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

func (s *Server) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Header: r.Header.Clone(),
			Body:   body,
		})
		fail := s.failAll
		s.mu.Unlock()

		if r.Header.Get("Authorization") != "Bearer "+s.Token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		if fail != nil {
			w.WriteHeader(fail.status)
			_, _ = io.WriteString(w, fail.body)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r)
	})
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	typ := r.URL.Query().Get("type")
	if typ == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "type is required"})
		return
	}
	s.mu.Lock()
	fail, failing := s.listFail[typ]
	out := []map[string]any{}
	for _, rec := range s.records[r.PathValue("agentID")] {
		if rec["type"] == typ {
			out = append(out, rec)
		}
	}
	s.mu.Unlock()
	if failing {
		w.WriteHeader(fail.status)
		_, _ = io.WriteString(w, fail.body)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	var in map[string]any
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if _, ok := in["text"]; !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "text is required"})
		return
	}
	s.mu.Lock()
	s.nextID++
	rec := map[string]any{
		"id":   "trn-" + strconv.Itoa(s.nextID),
		"type": in["type"],
		"text": in["text"],
	}
	if img, ok := in["image"]; ok {
		rec["image"] = img
	}
	agentID := r.PathValue("agentID")
	s.records[agentID] = append(s.records[agentID], rec)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	var in map[string]any
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	id := r.PathValue("trainingID")
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, recs := range s.records {
		for _, rec := range recs {
			if rec["id"] != id {
				continue
			}
			rec["type"] = in["type"]
			rec["text"] = in["text"]
			if img, ok := in["image"]; ok {
				rec["image"] = img
			} else {
				delete(rec, "image")
			}
			writeJSON(w, http.StatusOK, rec)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "training not found"})
}

func (s *Server) remove(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("trainingID")
	s.mu.Lock()
	defer s.mu.Unlock()
	for agentID, recs := range s.records {
		for i, rec := range recs {
			if rec["id"] != id {
				continue
			}
			s.records[agentID] = append(recs[:i:i], recs[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "id": id})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "training not found"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
