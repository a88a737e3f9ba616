package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"

	"github.com/ArnabNath1/ArnabUniGuide/internal/apperr"
	"github.com/ArnabNath1/ArnabUniGuide/internal/catalog"
	"github.com/ArnabNath1/ArnabUniGuide/internal/checklist"
	"github.com/ArnabNath1/ArnabUniGuide/internal/profile"
	"github.com/ArnabNath1/ArnabUniGuide/internal/session"
)

// GetProfile fetches the profile stored for email. The backend answers an
// unknown email with 404 or an empty object; both map to apperr.ErrNotFound.
func (c *Client) GetProfile(ctx context.Context, email string) (profile.Profile, error) {
	const op = "get profile"
	data, err := c.send(ctx, request{op: op, method: http.MethodGet, path: "/profile/" + url.PathEscape(email)})
	if err != nil {
		return profile.Profile{}, err
	}
	if isEmptyBody(data) {
		return profile.Profile{}, fmt.Errorf("%s: %w", op, apperr.ErrNotFound)
	}
	var p profile.Profile
	if err := decode(op, data, &p); err != nil {
		return profile.Profile{}, err
	}
	if p.Email == "" {
		return profile.Profile{}, fmt.Errorf("%s: %w", op, apperr.ErrNotFound)
	}
	return p, nil
}

// SaveProfile overwrites the stored profile. The returned profile is the
// stored document when the backend echoes one, otherwise the zero value.
func (c *Client) SaveProfile(ctx context.Context, p profile.Profile) (profile.Profile, error) {
	const op = "save profile"
	r, err := jsonRequest(op, http.MethodPost, "/profile/", p)
	if err != nil {
		return profile.Profile{}, err
	}
	data, err := c.send(ctx, r)
	if err != nil {
		return profile.Profile{}, err
	}
	if isEmptyBody(data) {
		return profile.Profile{}, nil
	}

	var wrapped struct {
		Data []json.RawMessage `json:"data"`
	}
	if json.Unmarshal(data, &wrapped) == nil && wrapped.Data != nil {
		if len(wrapped.Data) == 0 {
			return profile.Profile{}, nil
		}
		data = wrapped.Data[0]
	}
	var saved profile.Profile
	if err := decode(op, data, &saved); err != nil {
		return profile.Profile{}, err
	}
	return saved, nil
}

// DeleteAccount removes the profile, sessions and checklist of email.
func (c *Client) DeleteAccount(ctx context.Context, email string) error {
	_, err := c.send(ctx, request{op: "delete account", method: http.MethodDelete, path: "/profile/" + url.PathEscape(email)})
	return err
}

// ParseDocument uploads a CV and returns the fields the backend extracted.
func (c *Client) ParseDocument(ctx context.Context, name string, r io.Reader) (profile.Extracted, error) {
	const op = "parse document"
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(name))
	if err != nil {
		return profile.Extracted{}, fmt.Errorf("%s: %w", op, err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return profile.Extracted{}, fmt.Errorf("%s: reading %s: %w", op, name, err)
	}
	if err := mw.Close(); err != nil {
		return profile.Extracted{}, fmt.Errorf("%s: %w", op, err)
	}

	data, err := c.send(ctx, request{
		op:          op,
		method:      http.MethodPost,
		path:        "/profile/parse-cv",
		body:        buf.Bytes(),
		contentType: mw.FormDataContentType(),
	})
	if err != nil {
		return profile.Extracted{}, err
	}
	var ex profile.Extracted
	if err := decode(op, data, &ex); err != nil {
		return profile.Extracted{}, err
	}
	return ex, nil
}

// Chat sends one chat turn.
func (c *Client) Chat(ctx context.Context, req session.ChatRequest) (session.Reply, error) {
	const op = "chat"
	r, err := jsonRequest(op, http.MethodPost, "/counsellor/chat", req)
	if err != nil {
		return session.Reply{}, err
	}
	data, err := c.send(ctx, r)
	if err != nil {
		return session.Reply{}, err
	}
	var reply session.Reply
	if err := decode(op, data, &reply); err != nil {
		return session.Reply{}, err
	}
	return reply, nil
}

// ListSessions returns the saved sessions of email, newest first.
func (c *Client) ListSessions(ctx context.Context, email string) ([]session.ChatSession, error) {
	const op = "list sessions"
	data, err := c.send(ctx, request{op: op, method: http.MethodGet, path: "/counsellor/sessions/" + url.PathEscape(email)})
	if err != nil {
		return nil, err
	}
	if isEmptyBody(data) {
		return []session.ChatSession{}, nil
	}
	var list []session.ChatSession
	if err := decode(op, data, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// LoadSession returns the transcript of session id.
func (c *Client) LoadSession(ctx context.Context, id string) ([]session.Message, error) {
	const op = "load session"
	data, err := c.send(ctx, request{op: op, method: http.MethodGet, path: "/counsellor/session/" + url.PathEscape(id)})
	if err != nil {
		return nil, err
	}
	var body struct {
		Messages []session.Message `json:"messages"`
	}
	if err := decode(op, data, &body); err != nil {
		return nil, err
	}
	if body.Messages == nil {
		body.Messages = []session.Message{}
	}
	return body.Messages, nil
}

// GenerateChecklist asks the advisor for application tasks per university.
func (c *Client) GenerateChecklist(ctx context.Context, universities []string, country string) (checklist.Checklist, error) {
	const op = "generate checklist"
	r, err := jsonRequest(op, http.MethodPost, "/counsellor/guidance", struct {
		Universities []string `json:"universities"`
		Country      string   `json:"country"`
	}{universities, country})
	if err != nil {
		return checklist.Checklist{}, err
	}
	data, err := c.send(ctx, r)
	if err != nil {
		return checklist.Checklist{}, err
	}
	var cl checklist.Checklist
	if err := decode(op, data, &cl); err != nil {
		return checklist.Checklist{}, err
	}
	return cl, nil
}

// SearchUniversities returns at most catalog.MaxUniversities matches.
func (c *Client) SearchUniversities(ctx context.Context, query string) ([]catalog.University, error) {
	const op = "search universities"
	path := "/universities/search?" + url.Values{"query": {query}}.Encode()
	data, err := c.send(ctx, request{op: op, method: http.MethodGet, path: path})
	if err != nil {
		return nil, err
	}
	var unis []catalog.University
	if err := decode(op, data, &unis); err != nil {
		return nil, err
	}
	if len(unis) > catalog.MaxUniversities {
		unis = unis[:catalog.MaxUniversities]
	}
	return unis, nil
}

// SearchScholarships returns scholarships matching query. A backend that
// reports an error alongside an empty list yields a SyncError.
func (c *Client) SearchScholarships(ctx context.Context, query string) ([]catalog.Scholarship, error) {
	const op = "search scholarships"
	path := "/content/scholarships?" + url.Values{"query": {query}}.Encode()
	data, err := c.send(ctx, request{op: op, method: http.MethodGet, path: path})
	if err != nil {
		return nil, err
	}
	var body struct {
		Scholarships []catalog.Scholarship `json:"scholarships"`
		Error        string                `json:"error"`
	}
	if err := decode(op, data, &body); err != nil {
		return nil, err
	}
	if body.Error != "" && len(body.Scholarships) == 0 {
		return nil, apperr.Sync(op, http.StatusOK, fmt.Errorf("%s", body.Error))
	}
	if body.Scholarships == nil {
		body.Scholarships = []catalog.Scholarship{}
	}
	return body.Scholarships, nil
}
