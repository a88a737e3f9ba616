package session

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a transcript.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatSession is a saved conversation as listed by the store. The store
// assigns IDs and titles; the client never does.
type ChatSession struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// UnmarshalJSON tolerates numeric ids and timestamps the standard decoder
// would reject.
func (c *ChatSession) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID        json.RawMessage `json:"id"`
		Title     string          `json:"title"`
		CreatedAt string          `json:"created_at"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding chat session: %w", err)
	}
	*c = ChatSession{ID: idText(raw.ID), Title: raw.Title, CreatedAt: parseTime(raw.CreatedAt)}
	return nil
}

// ChatRequest is one chat turn sent to the advisor. An empty SessionID is
// sent as null and starts a new conversation.
type ChatRequest struct {
	UserEmail   string
	UserProfile string
	Message     string
	SessionID   string
}

func (r ChatRequest) MarshalJSON() ([]byte, error) {
	var sid *string
	if r.SessionID != "" {
		sid = &r.SessionID
	}
	return json.Marshal(struct {
		UserEmail   string  `json:"user_email"`
		UserProfile string  `json:"user_profile"`
		Message     string  `json:"message"`
		SessionID   *string `json:"session_id"`
	}{r.UserEmail, r.UserProfile, r.Message, sid})
}

// Reply is the advisor's answer to a ChatRequest.
type Reply struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
}

func (r *Reply) UnmarshalJSON(data []byte) error {
	var raw struct {
		Response  string          `json:"response"`
		SessionID json.RawMessage `json:"session_id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding chat reply: %w", err)
	}
	*r = Reply{Response: raw.Response, SessionID: idText(raw.SessionID)}
	return nil
}

func idText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05", "2006-01-02"}

func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
