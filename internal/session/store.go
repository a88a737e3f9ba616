// Package session holds the advisory chat transcript for one identity and
// keeps it consistent with the sessions saved by the store.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/ArnabNath1/ArnabUniGuide/internal/account"
	"github.com/ArnabNath1/ArnabUniGuide/internal/apperr"
)

// Greeting opens every new conversation.
const Greeting = "Hello! I am your AI Study Abroad Counsellor. How can I help you today? " +
	"I can guide you on dream universities, profile improvement, or scholarship opportunities."

// Fallback is appended in place of a reply when a send fails.
const Fallback = "Sorry, I'm having trouble connecting to the server. Please try again later."

// State describes where the conversation stands.
type State int

const (
	NoActiveSession State = iota
	PendingFirstReply
	Active
)

func (s State) String() string {
	switch s {
	case PendingFirstReply:
		return "pending-first-reply"
	case Active:
		return "active"
	default:
		return "no-active-session"
	}
}

// Remote is the chat half of the remote store. Implemented by remote.Client.
type Remote interface {
	Chat(ctx context.Context, req ChatRequest) (Reply, error)
	ListSessions(ctx context.Context, email string) ([]ChatSession, error)
	LoadSession(ctx context.Context, id string) ([]Message, error)
}

// Store is the transcript state machine. It is safe for concurrent use;
// no lock is held across a network call.
type Store struct {
	id       account.Identity
	remote   Remote
	greeting string
	logger   *slog.Logger
	lists    singleflight.Group

	mu         sync.Mutex
	transcript []Message
	activeID   string
	sending    bool
	epoch      uint64
	sessions   []ChatSession
}

// NewStore creates a Store showing a fresh conversation. An empty greeting
// selects Greeting.
func NewStore(id account.Identity, remote Remote, greeting string) *Store {
	if strings.TrimSpace(greeting) == "" {
		greeting = Greeting
	}
	s := &Store{id: id, remote: remote, greeting: greeting, logger: slog.Default()}
	s.StartNewChat()
	return s
}

// StartNewChat resets the transcript to the greeting and clears the active
// session. A send still in flight will not touch the new transcript.
func (s *Store) StartNewChat() {
	s.mu.Lock()
	s.transcript = []Message{{Role: RoleAssistant, Content: s.greeting}}
	s.activeID = ""
	s.epoch++
	s.mu.Unlock()
}

// Transcript returns a copy of the current transcript.
func (s *Store) Transcript() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.transcript...)
}

// ActiveID returns the active session id, "" for an unsaved conversation.
func (s *Store) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.activeID != "":
		return Active
	case s.sending:
		return PendingFirstReply
	default:
		return NoActiveSession
	}
}

// Sessions returns the session list from the last refresh.
func (s *Store) Sessions() []ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ChatSession(nil), s.sessions...)
}

// Send appends message to the transcript and asks the advisor for a reply,
// passing profileSummary as context. On failure the user message stays and
// Fallback is appended; the active session does not change.
func (s *Store) Send(ctx context.Context, message, profileSummary string) (Reply, error) {
	if strings.TrimSpace(message) == "" {
		return Reply{}, apperr.Invalid("message is empty")
	}

	s.mu.Lock()
	if s.sending {
		s.mu.Unlock()
		return Reply{}, fmt.Errorf("sending message: %w", apperr.ErrBusy)
	}
	s.sending = true
	s.transcript = append(s.transcript, Message{Role: RoleUser, Content: message})
	epoch, sessionID := s.epoch, s.activeID
	s.mu.Unlock()

	reply, err := s.remote.Chat(ctx, ChatRequest{
		UserEmail:   s.id.Email,
		UserProfile: profileSummary,
		Message:     message,
		SessionID:   sessionID,
	})

	s.mu.Lock()
	s.sending = false
	current := s.epoch == epoch
	if err != nil {
		if current {
			s.transcript = append(s.transcript, Message{Role: RoleAssistant, Content: Fallback})
		}
		s.mu.Unlock()
		s.logger.Warn("chat send failed", "email", s.id.Email, "session", sessionID, "error", err)
		return Reply{}, fmt.Errorf("sending message: %w", err)
	}
	created := sessionID == "" && reply.SessionID != ""
	if current {
		s.transcript = append(s.transcript, Message{Role: RoleAssistant, Content: reply.Response})
		if created {
			s.activeID = reply.SessionID
		}
	}
	s.mu.Unlock()

	if !current {
		s.logger.Debug("discarding reply for abandoned conversation", "session", reply.SessionID)
	}
	if created {
		if _, err := s.ListSessions(ctx); err != nil {
			s.logger.Warn("refreshing session list failed", "email", s.id.Email, "error", err)
		}
	}
	return reply, nil
}

// LoadSession replaces the transcript with the saved session id and makes
// it active. On failure nothing changes.
func (s *Store) LoadSession(ctx context.Context, id string) ([]Message, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperr.Invalid("session id is empty")
	}
	msgs, err := s.remote.LoadSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", id, err)
	}

	s.mu.Lock()
	s.transcript = append([]Message(nil), msgs...)
	s.activeID = id
	s.epoch++
	s.mu.Unlock()
	return append([]Message(nil), msgs...), nil
}

// ListSessions fetches the saved sessions, newest first. Concurrent calls
// share one request.
func (s *Store) ListSessions(ctx context.Context) ([]ChatSession, error) {
	v, err, _ := s.lists.Do(s.id.Email, func() (any, error) {
		list, err := s.remote.ListSessions(ctx, s.id.Email)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.sessions = list
		s.mu.Unlock()
		return list, nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing sessions for %s: %w", s.id.Email, err)
	}
	return append([]ChatSession(nil), v.([]ChatSession)...), nil
}
