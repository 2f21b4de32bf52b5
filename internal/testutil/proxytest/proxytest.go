package proxytest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/hubgate/hubgate/internal/routes"
)

// Record is one stored route on the fake proxy.
type Record struct {
	Target string           `json:"target"`
	Data   routes.RouteData `json:"data"`
}

// Server is an in-memory stand-in for the external proxy's control API.
// It enforces bearer auth and counts mutations so tests can assert
// idempotence.
type Server struct {
	mu      sync.Mutex
	token   string
	records map[string]Record
	adds    int
	deletes int

	srv *httptest.Server
}

// Start launches a fake control API requiring the given bearer token.
func Start(t interface{ Cleanup(func()) }, token string) *Server {
	s := &Server{
		token:   token,
		records: make(map[string]Record),
	}
	s.srv = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.srv.Close)
	return s
}

// URL returns the control API base URL.
func (s *Server) URL() string {
	return s.srv.URL
}

// SetToken rotates the accepted bearer credential.
func (s *Server) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// Clear drops every stored route, as a relaunched proxy would.
func (s *Server) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]Record)
}

// Put seeds one route directly, bypassing the API (e.g. foreign routes).
func (s *Server) Put(path string, rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[path] = rec
}

// Lookup returns one stored route by control-API path.
func (s *Server) Lookup(path string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[path]
	return rec, ok
}

// Paths returns the stored control-API paths.
func (s *Server) Paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.records))
	for path := range s.records {
		out = append(out, path)
	}
	return out
}

// MutationCount reports total accepted add/delete operations.
func (s *Server) MutationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.adds + s.deletes
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	token := s.token
	s.mu.Unlock()
	if r.Header.Get("Authorization") != "Bearer "+token {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	if !strings.HasPrefix(r.URL.Path, "/api/routes") {
		http.NotFound(w, r)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/api/routes")
	if path == "" {
		path = "/"
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case r.Method == http.MethodGet && path == "/":
		_ = json.NewEncoder(w).Encode(s.records)
	case r.Method == http.MethodGet:
		rec, ok := s.records[path]
		if !ok {
			http.Error(w, "no such route", http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(rec)
	case r.Method == http.MethodPost:
		var rec Record
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.records[path] = rec
		s.adds++
		w.WriteHeader(http.StatusCreated)
	case r.Method == http.MethodDelete:
		if _, ok := s.records[path]; !ok {
			http.Error(w, "no such route", http.StatusNotFound)
			return
		}
		delete(s.records, path)
		s.deletes++
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
