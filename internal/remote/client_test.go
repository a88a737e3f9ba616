package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ArnabNath1/ArnabUniGuide/internal/apperr"
	"github.com/ArnabNath1/ArnabUniGuide/internal/catalog"
	"github.com/ArnabNath1/ArnabUniGuide/internal/checklist"
	"github.com/ArnabNath1/ArnabUniGuide/internal/profile"
	"github.com/ArnabNath1/ArnabUniGuide/internal/remote/remotetest"
	"github.com/ArnabNath1/ArnabUniGuide/internal/session"
	"github.com/ArnabNath1/ArnabUniGuide/internal/shortlist"
)

const testToken = "test-token"

func newTestClient(t *testing.T) (*Client, *remotetest.Server) {
	t.Helper()
	srv := remotetest.New(testToken)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL, Token: testToken, Retries: 1, Backoff: time.Millisecond}), srv
}

func TestGetProfile_NotFound(t *testing.T) {
	c, _ := newTestClient(t)

	_, err := c.GetProfile(context.Background(), "nobody@example.com")
	if !apperr.IsNotFound(err) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestGetProfile_404(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	if _, err := c.GetProfile(context.Background(), "a@x.com"); !apperr.IsNotFound(err) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestSaveThenGetProfile(t *testing.T) {
	c, srv := newTestClient(t)
	ctx := context.Background()

	p := profile.Profile{
		Email:         "ada@example.com",
		Name:          "Ada",
		TargetCountry: "Germany",
		TestScores:    profile.TestScores{IELTS: "8"},
		Shortlist:     shortlist.Of("TU Munich"),
	}
	saved, err := c.SaveProfile(ctx, p)
	if err != nil {
		t.Fatal(err)
	}
	if saved.ID == "" {
		t.Error("saved profile carries no store id")
	}

	got, err := c.GetProfile(ctx, "ada@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(saved) {
		t.Errorf("GetProfile = %+v, want %+v", got, saved)
	}
	if srv.Count(http.MethodPost, "/profile/") != 1 {
		t.Errorf("expected one save request")
	}
}

func TestSaveProfile_BareDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": 9, "email": "a@x.com", "gpa": 3.9}`)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	saved, err := c.SaveProfile(context.Background(), profile.Profile{Email: "a@x.com"})
	if err != nil {
		t.Fatal(err)
	}
	if saved.ID != "9" || saved.GPA != "3.9" {
		t.Errorf("saved = %+v", saved)
	}
}

func TestAuthHeader(t *testing.T) {
	srv := remotetest.New(testToken)
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Token: "wrong"})
	_, err := c.GetProfile(context.Background(), "a@x.com")

	var se *apperr.SyncError
	if !errors.As(err, &se) || se.Status != http.StatusUnauthorized {
		t.Fatalf("got %v, want 401 SyncError", err)
	}
	if se.Temporary() {
		t.Error("401 must not be retried")
	}
	if srv.Count(http.MethodGet, "/profile/") != 1 {
		t.Error("non-transient failure was retried")
	}
}

func TestRetry_ReusesRequestID(t *testing.T) {
	c, srv := newTestClient(t)
	srv.FailNext(http.MethodPost, "/counsellor/chat", http.StatusServiceUnavailable)

	reply, err := c.Chat(context.Background(), session.ChatRequest{UserEmail: "a@x.com", Message: "Hi"})
	if err != nil {
		t.Fatal(err)
	}
	if reply.SessionID == "" || reply.Response != "You asked: Hi" {
		t.Errorf("reply = %+v", reply)
	}

	reqs := srv.Requests()
	if len(reqs) != 2 {
		t.Fatalf("requests = %d, want 2", len(reqs))
	}
	if reqs[0].RequestID == "" || reqs[0].RequestID != reqs[1].RequestID {
		t.Errorf("request ids = %q, %q; want one id reused", reqs[0].RequestID, reqs[1].RequestID)
	}
}

func TestRetry_ExhaustedIsSyncError(t *testing.T) {
	c, srv := newTestClient(t)
	srv.FailNext(http.MethodPost, "/profile/", http.StatusBadGateway, http.StatusBadGateway)

	_, err := c.SaveProfile(context.Background(), profile.Profile{Email: "a@x.com"})
	if !errors.Is(err, apperr.ErrSync) {
		t.Fatalf("got %v, want ErrSync", err)
	}
	if n := srv.Count(http.MethodPost, "/profile/"); n != 2 {
		t.Errorf("attempts = %d, want 2", n)
	}
}

func TestTimeoutPerAttempt(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
			return
		}
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond, Retries: 1, Backoff: time.Millisecond})
	list, err := c.ListSessions(context.Background(), "a@x.com")
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(list) != 0 || calls.Load() != 2 {
		t.Errorf("list = %v, calls = %d", list, calls.Load())
	}
}

func TestContextCancellationStopsRetry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c := New(Config{BaseURL: srv.URL, Retries: 3, Backoff: time.Hour})
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := c.ListSessions(ctx, "a@x.com")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}

func TestDeleteAccount(t *testing.T) {
	c, srv := newTestClient(t)
	ctx := context.Background()
	srv.PutProfile(profile.Profile{Email: "a@x.com", Name: "A"})

	if err := c.DeleteAccount(ctx, "a@x.com"); err != nil {
		t.Fatal(err)
	}
	if _, ok := srv.Profile("a@x.com"); ok {
		t.Error("profile still stored")
	}
}

func TestParseDocument(t *testing.T) {
	c, srv := newTestClient(t)
	srv.SetExtracted(`{"name": "Ada", "gpa": 3.7, "test_scores": {"ielts": 7.5}}`)

	ex, err := c.ParseDocument(context.Background(), "cv.pdf", strings.NewReader("%PDF-1.4"))
	if err != nil {
		t.Fatal(err)
	}
	if ex.Name.Value != "Ada" || ex.GPA.Value != "3.7" || ex.TestScores.IELTS.Value != "7.5" {
		t.Errorf("extracted = %+v", ex)
	}

	_, err = c.ParseDocument(context.Background(), "cv.docx", strings.NewReader("x"))
	if !apperr.IsValidation(err) {
		t.Errorf("got %v, want ValidationError for non-PDF", err)
	}
}

func TestSessions(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	first, err := c.Chat(ctx, session.ChatRequest{UserEmail: "a@x.com", Message: "What about Canada?"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Chat(ctx, session.ChatRequest{UserEmail: "a@x.com", Message: "And costs?", SessionID: first.SessionID}); err != nil {
		t.Fatal(err)
	}

	list, err := c.ListSessions(ctx, "a@x.com")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].ID != first.SessionID || list[0].Title != "What about Canada?" {
		t.Errorf("sessions = %+v", list)
	}

	msgs, err := c.LoadSession(ctx, first.SessionID)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 4 || msgs[2].Content != "And costs?" {
		t.Errorf("messages = %+v", msgs)
	}

	if _, err := c.LoadSession(ctx, "missing"); !apperr.IsNotFound(err) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestGenerateChecklist(t *testing.T) {
	c, _ := newTestClient(t)

	cl, err := c.GenerateChecklist(context.Background(), []string{"MIT", "Oxford"}, "USA")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"MIT", "Oxford", checklist.GeneralKey}
	if diff := cmp.Diff(want, cl.Keys()); diff != "" {
		t.Errorf("keys (-want +got):\n%s", diff)
	}
}

func TestSearchUniversities_Truncates(t *testing.T) {
	c, srv := newTestClient(t)
	var unis []catalog.University
	for i := range 60 {
		unis = append(unis, catalog.University{Name: fmt.Sprintf("Tech University %d", i)})
	}
	srv.SetUniversities(unis)

	got, err := c.SearchUniversities(context.Background(), "tech")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != catalog.MaxUniversities {
		t.Errorf("len = %d, want %d", len(got), catalog.MaxUniversities)
	}
}

func TestSearchScholarships(t *testing.T) {
	c, srv := newTestClient(t)
	srv.SetScholarships([]catalog.Scholarship{
		{Title: "DAAD Scholarship", Description: "Germany"},
		{Title: "Chevening", Description: "UK"},
	})

	got, err := c.SearchScholarships(context.Background(), "germany & co")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("query escaping broken: %+v", got)
	}

	got, err = c.SearchScholarships(context.Background(), "germany")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Title != "DAAD Scholarship" {
		t.Errorf("got %+v", got)
	}
}

func TestSearchScholarships_BackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error": "model overloaded", "scholarships": []}`)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	if _, err := c.SearchScholarships(context.Background(), "x"); !errors.Is(err, apperr.ErrSync) {
		t.Fatalf("got %v, want ErrSync", err)
	}
}
