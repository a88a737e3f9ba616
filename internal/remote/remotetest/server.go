// Package remotetest provides an in-memory uniguide backend for tests.
package remotetest

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ArnabNath1/ArnabUniGuide/internal/catalog"
	"github.com/ArnabNath1/ArnabUniGuide/internal/checklist"
	"github.com/ArnabNath1/ArnabUniGuide/internal/profile"
	"github.com/ArnabNath1/ArnabUniGuide/internal/session"
)

const maxRequestBodySize = 10 << 20

// Request is a request seen by the server.
type Request struct {
	Method    string
	Path      string
	RequestID string
}

type conversation struct {
	session.ChatSession
	email    string
	messages []session.Message
}

type failure struct {
	method, prefix string
	status         int
}

// Server is a fake backend. Canned answers are configured with the Set
// methods.
type Server struct {
	*httptest.Server

	mu            sync.Mutex
	reply         func(message string) string
	guidance      func(universities []string, country string) checklist.Checklist
	extracted     string
	universities  []catalog.University
	scholarships  []catalog.Scholarship
	profiles      map[string]profile.Profile
	conversations map[string]*conversation
	order         []string
	nextID        int
	failures      []failure
	requests      []Request
}

// New starts a server. A non-empty token is required as a bearer token on
// every request.
func New(token string) *Server {
	s := &Server{
		reply:         func(msg string) string { return "You asked: " + msg },
		guidance:      defaultGuidance,
		extracted:     `{}`,
		profiles:      make(map[string]profile.Profile),
		conversations: make(map[string]*conversation),
	}

	r := chi.NewRouter()
	r.Use(s.record)
	if token != "" {
		r.Use(bearerAuth(token))
	}
	r.Use(s.injectFailures)

	r.Get("/profile/{email}", s.handleGetProfile)
	r.Post("/profile/", s.handleSaveProfile)
	r.Delete("/profile/{email}", s.handleDeleteProfile)
	r.Post("/profile/parse-cv", s.handleParseCV)
	r.Post("/counsellor/chat", s.handleChat)
	r.Get("/counsellor/sessions/{email}", s.handleListSessions)
	r.Get("/counsellor/session/{id}", s.handleGetSession)
	r.Post("/counsellor/guidance", s.handleGuidance)
	r.Get("/universities/search", s.handleSearchUniversities)
	r.Get("/content/scholarships", s.handleSearchScholarships)

	s.Server = httptest.NewServer(r)
	return s
}

// FailNext makes the next len(statuses) requests whose method matches and
// whose path starts with prefix fail with the given statuses, in order.
func (s *Server) FailNext(method, prefix string, statuses ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range statuses {
		s.failures = append(s.failures, failure{method: method, prefix: prefix, status: st})
	}
}

// SetReply replaces the advisor's answer function.
func (s *Server) SetReply(fn func(message string) string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reply = fn
}

// SetGuidance replaces the checklist generator.
func (s *Server) SetGuidance(fn func(universities []string, country string) checklist.Checklist) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.guidance = fn
}

// SetExtracted sets the JSON document returned by the CV parser.
func (s *Server) SetExtracted(doc string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.extracted = doc
}

// SetUniversities sets the rows searched by the university search.
func (s *Server) SetUniversities(unis []catalog.University) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.universities = unis
}

// SetScholarships sets the rows searched by the scholarship search.
func (s *Server) SetScholarships(list []catalog.Scholarship) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scholarships = list
}

// PutProfile stores p as if it had been saved.
func (s *Server) PutProfile(p profile.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.Email] = p.Clone()
}

// Profile returns the stored profile of email.
func (s *Server) Profile(email string) (profile.Profile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[email]
	return p.Clone(), ok
}

// Requests returns the requests seen so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Count returns how many requests matched method and path prefix.
func (s *Server) Count(method, prefix string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Method == method && strings.HasPrefix(r.Path, prefix) {
			n++
		}
	}
	return n
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, Request{Method: r.Method, Path: r.URL.Path, RequestID: r.Header.Get("X-Request-ID")})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		status := 0
		for i, f := range s.failures {
			if f.method == r.Method && strings.HasPrefix(r.URL.Path, f.prefix) {
				status = f.status
				s.failures = append(s.failures[:i], s.failures[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
		if status != 0 {
			httpError(w, status, "injected failure")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			const prefix = "Bearer "
			if !strings.HasPrefix(auth, prefix) || subtle.ConstantTimeCompare([]byte(auth[len(prefix):]), []byte(token)) != 1 {
				httpError(w, http.StatusUnauthorized, "invalid or missing bearer token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	email := pathParam(r, "email")
	s.mu.Lock()
	p, ok := s.profiles[email]
	s.mu.Unlock()
	if !ok {
		// The real backend answers an unknown email with an empty object.
		writeJSON(w, map[string]any{})
		return
	}
	writeJSON(w, p)
}

func (s *Server) handleSaveProfile(w http.ResponseWriter, r *http.Request) {
	var p profile.Profile
	if !decodeBody(w, r, &p) {
		return
	}
	if p.Email == "" {
		httpError(w, http.StatusUnprocessableEntity, "email is required")
		return
	}
	s.mu.Lock()
	if prev, ok := s.profiles[p.Email]; ok {
		p.ID = prev.ID
	} else if p.ID == "" {
		s.nextID++
		p.ID = fmt.Sprint(s.nextID)
	}
	s.profiles[p.Email] = p.Clone()
	s.mu.Unlock()
	writeJSON(w, map[string]any{"message": "Profile updated successfully", "data": []profile.Profile{p}})
}

func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	email := pathParam(r, "email")
	s.mu.Lock()
	delete(s.profiles, email)
	kept := s.order[:0]
	for _, id := range s.order {
		if s.conversations[id].email == email {
			delete(s.conversations, id)
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
	s.mu.Unlock()
	writeJSON(w, map[string]string{"message": "Account deleted successfully"})
}

func (s *Server) handleParseCV(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	file, header, err := r.FormFile("file")
	if err != nil {
		httpError(w, http.StatusUnprocessableEntity, "file is required")
		return
	}
	defer file.Close()
	if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
		httpError(w, http.StatusBadRequest, "Only PDF files are supported")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	s.mu.Lock()
	body := s.extracted
	s.mu.Unlock()
	fmt.Fprint(w, body)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserEmail   string  `json:"user_email"`
		UserProfile string  `json:"user_profile"`
		Message     string  `json:"message"`
		SessionID   *string `json:"session_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	s.mu.Lock()
	reply := s.reply
	s.mu.Unlock()
	answer := reply(req.Message)
	turn := []session.Message{
		{Role: session.RoleUser, Content: req.Message},
		{Role: session.RoleAssistant, Content: answer},
	}

	s.mu.Lock()
	var id string
	if req.SessionID != nil {
		id = *req.SessionID
		if c, ok := s.conversations[id]; ok && c.email == req.UserEmail {
			c.messages = append(c.messages, turn...)
		}
	} else {
		s.nextID++
		id = fmt.Sprintf("sess-%d", s.nextID)
		title := req.Message
		if len([]rune(title)) > 40 {
			title = string([]rune(title)[:40]) + "..."
		}
		s.conversations[id] = &conversation{
			ChatSession: session.ChatSession{ID: id, Title: title, CreatedAt: time.Now().UTC()},
			email:       req.UserEmail,
			messages:    turn,
		}
		s.order = append(s.order, id)
	}
	s.mu.Unlock()

	writeJSON(w, map[string]string{"response": answer, "session_id": id})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	email := pathParam(r, "email")
	s.mu.Lock()
	list := []map[string]string{}
	for i := len(s.order) - 1; i >= 0; i-- {
		c := s.conversations[s.order[i]]
		if c.email != email {
			continue
		}
		list = append(list, map[string]string{
			"id":         c.ID,
			"title":      c.Title,
			"created_at": c.CreatedAt.Format(time.RFC3339Nano),
		})
	}
	s.mu.Unlock()
	writeJSON(w, list)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	s.mu.Lock()
	c, ok := s.conversations[id]
	var msgs []session.Message
	if ok {
		msgs = append(msgs, c.messages...)
	}
	s.mu.Unlock()
	if !ok {
		httpError(w, http.StatusNotFound, "Session not found or unauthorized")
		return
	}
	writeJSON(w, map[string]any{"id": id, "messages": msgs})
}

func (s *Server) handleGuidance(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Universities []string `json:"universities"`
		Country      string   `json:"country"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	s.mu.Lock()
	guidance := s.guidance
	s.mu.Unlock()
	writeJSON(w, guidance(req.Universities, req.Country))
}

func (s *Server) handleSearchUniversities(w http.ResponseWriter, r *http.Request) {
	q := strings.ToLower(r.URL.Query().Get("query"))
	found := []catalog.University{}
	s.mu.Lock()
	for _, u := range s.universities {
		if strings.Contains(strings.ToLower(u.Name), q) {
			found = append(found, u)
		}
	}
	s.mu.Unlock()
	writeJSON(w, found)
}

func (s *Server) handleSearchScholarships(w http.ResponseWriter, r *http.Request) {
	q := strings.ToLower(r.URL.Query().Get("query"))
	if q == "" {
		httpError(w, http.StatusUnprocessableEntity, "query is required")
		return
	}
	found := []catalog.Scholarship{}
	s.mu.Lock()
	for _, sch := range s.scholarships {
		if strings.Contains(strings.ToLower(sch.Title+" "+sch.Description), q) {
			found = append(found, sch)
		}
	}
	s.mu.Unlock()
	writeJSON(w, map[string]any{"scholarships": found})
}

func defaultGuidance(universities []string, _ string) checklist.Checklist {
	keys := append([]string(nil), universities...)
	groups := make(map[string][]checklist.Task, len(keys)+1)
	for _, u := range universities {
		groups[u] = []checklist.Task{
			{Label: "Write statement of purpose", Details: "Tailor it to " + u},
			{Label: "Request transcripts"},
		}
	}
	keys = append(keys, checklist.GeneralKey)
	groups[checklist.GeneralKey] = []checklist.Task{{Label: "Take language test"}}
	return checklist.New(keys, groups)
}

func pathParam(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if u, err := url.PathUnescape(v); err == nil {
		return u
	}
	return v
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httpError(w, http.StatusUnprocessableEntity, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
