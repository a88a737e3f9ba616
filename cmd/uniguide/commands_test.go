package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ArnabNath1/ArnabUniGuide/internal/account"
	"github.com/ArnabNath1/ArnabUniGuide/internal/apperr"
	"github.com/ArnabNath1/ArnabUniGuide/internal/catalog"
	"github.com/ArnabNath1/ArnabUniGuide/internal/checklist"
	"github.com/ArnabNath1/ArnabUniGuide/internal/profile"
	"github.com/ArnabNath1/ArnabUniGuide/internal/remote/remotetest"
	"github.com/ArnabNath1/ArnabUniGuide/internal/session"
)

const testEmail = "ada@example.com"

type testCLI struct {
	srv *remotetest.Server
}

// newTestCLI points the CLI at a fake backend and a private data and config
// directory.
func newTestCLI(t *testing.T) *testCLI {
	t.Helper()
	srv := remotetest.New("test-token")
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("UNIGUIDE_STORAGE_DATA_DIR", filepath.Join(dir, "data"))
	t.Setenv("UNIGUIDE_REMOTE_BASE_URL", srv.URL)
	t.Setenv("UNIGUIDE_REMOTE_TOKEN", "test-token")
	t.Setenv("UNIGUIDE_REMOTE_RETRIES", "0")
	t.Setenv("UNIGUIDE_LOG_LEVEL", "error")
	t.Setenv("UNIGUIDE_CHAT_GREETING", "")
	return &testCLI{srv: srv}
}

func (c *testCLI) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		resetFlags(rootCmd)
	}()

	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (c *testCLI) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := c.run(t, "", args...)
	if err != nil {
		t.Fatalf("uniguide %s: %v", strings.Join(args, " "), err)
	}
	return out
}

// onboard logs in and creates a complete profile.
func (c *testCLI) onboard(t *testing.T) {
	t.Helper()
	c.mustRun(t, "login", testEmail)
	c.mustRun(t, "profile", "onboard",
		"--set", "name=Ada",
		"--set", "current_degree=BSc Mathematics",
		"--set", "current_university=UCL",
		"--set", "target_country=UK",
		"--set", "target_degree=MSc Computer Science",
		"--set", "budget=30000 GBP",
	)
}

// resetFlags restores every flag to its default so commands do not leak
// state between tests.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			sv.Replace(nil)
		} else {
			f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func TestVersionCommand(t *testing.T) {
	c := newTestCLI(t)
	if out := c.mustRun(t, "version"); out != "uniguide dev\n" {
		t.Errorf("output = %q", out)
	}
}

func TestCommands_RequireLogin(t *testing.T) {
	c := newTestCLI(t)
	for _, args := range [][]string{
		{"shortlist"},
		{"checklist"},
		{"chat", "hi"},
		{"history"},
	} {
		if _, err := c.run(t, "", args...); !errors.Is(err, account.ErrNoIdentity) {
			t.Errorf("%v: got %v, want ErrNoIdentity", args, err)
		}
	}
}

func TestLogin_InvalidEmail(t *testing.T) {
	c := newTestCLI(t)
	if _, err := c.run(t, "", "login", "not-an-email"); err == nil {
		t.Fatal("expected error for invalid email")
	}
}

func TestOnboard(t *testing.T) {
	c := newTestCLI(t)
	c.mustRun(t, "login", testEmail)

	if _, err := c.run(t, "", "shortlist"); err == nil || !strings.Contains(err.Error(), "profile onboard") {
		t.Fatalf("expected onboarding hint, got %v", err)
	}

	_, err := c.run(t, "", "profile", "onboard", "--set", "name=Ada", "--set", "target_country=UK")
	if !apperr.IsValidation(err) {
		t.Fatalf("got %v, want ValidationError", err)
	}
	if n := c.srv.Count(http.MethodPost, "/profile/"); n != 0 {
		t.Fatalf("incomplete profile saved %d times", n)
	}

	if _, err := c.run(t, "", "profile", "onboard", "--set", "nickname=Ada"); err == nil || !strings.Contains(err.Error(), "unknown field") {
		t.Fatalf("expected unknown field error, got %v", err)
	}

	c.onboard(t)
	stored, ok := c.srv.Profile(testEmail)
	if !ok || stored.Name != "Ada" || stored.Budget != "30000 GBP" {
		t.Fatalf("stored profile = %+v, %v", stored, ok)
	}

	if _, err := c.run(t, "", "profile", "onboard"); err == nil {
		t.Fatal("second onboarding accepted")
	}

	out := c.mustRun(t, "profile", "show")
	for _, want := range []string{"Name: Ada", "Budget: 30000 GBP", "Target country: UK"} {
		if !strings.Contains(out, want) {
			t.Errorf("profile show missing %q:\n%s", want, out)
		}
	}

	var p profile.Profile
	if err := json.Unmarshal([]byte(c.mustRun(t, "profile", "show", "--json")), &p); err != nil {
		t.Fatalf("profile show --json: %v", err)
	}
	if p.Email != testEmail {
		t.Errorf("json email = %q", p.Email)
	}
}

func TestOnboard_FromCV(t *testing.T) {
	c := newTestCLI(t)
	c.mustRun(t, "login", testEmail)
	c.srv.SetExtracted(`{
		"email": "someone-else@example.com",
		"name": "Ada Lovelace",
		"current_degree": "BSc Mathematics",
		"current_university": "UCL",
		"test_scores": {"ielts": 8}
	}`)

	c.mustRun(t, "profile", "onboard",
		"--cv", filepath.Join("testdata", "cv.pdf"),
		"--set", "target_country=UK",
		"--set", "target_degree=MSc",
		"--set", "budget=30000 GBP",
	)

	stored, ok := c.srv.Profile(testEmail)
	if !ok {
		t.Fatal("profile not stored under the login email")
	}
	if stored.Name != "Ada Lovelace" || stored.TestScores.IELTS != "8" {
		t.Errorf("stored = %+v", stored)
	}
}

func TestProfileImport(t *testing.T) {
	c := newTestCLI(t)
	c.onboard(t)
	saves := c.srv.Count(http.MethodPost, "/profile/")
	c.srv.SetExtracted(`{"name": "", "gpa": 3.9}`)

	out := c.mustRun(t, "profile", "import", filepath.Join("testdata", "cv.pdf"), "--dry-run")
	if !strings.Contains(out, "GPA: - → 3.9") {
		t.Errorf("dry run output:\n%s", out)
	}
	if strings.Contains(out, "Name:") {
		t.Errorf("conservative import would clear the name:\n%s", out)
	}
	if n := c.srv.Count(http.MethodPost, "/profile/"); n != saves {
		t.Fatal("dry run saved the profile")
	}

	c.mustRun(t, "profile", "import", filepath.Join("testdata", "cv.pdf"))
	stored, _ := c.srv.Profile(testEmail)
	if stored.GPA != "3.9" || stored.Name != "Ada" {
		t.Errorf("stored = %+v", stored)
	}

	if _, err := c.run(t, "", "profile", "import", "cv.docx"); !apperr.IsValidation(err) {
		t.Errorf("got %v, want ValidationError for non-PDF", err)
	}
}

func TestProfileSet(t *testing.T) {
	c := newTestCLI(t)
	c.onboard(t)

	c.mustRun(t, "profile", "set", "test_scores.gre", "325")
	stored, _ := c.srv.Profile(testEmail)
	if stored.TestScores.GRE != "325" {
		t.Errorf("gre = %q", stored.TestScores.GRE)
	}

	if _, err := c.run(t, "", "profile", "set", "email", "x@y.com"); !apperr.IsValidation(err) {
		t.Errorf("got %v, want ValidationError for email", err)
	}
}

func TestShortlistAndChecklist(t *testing.T) {
	c := newTestCLI(t)
	c.onboard(t)

	if out := c.mustRun(t, "shortlist"); !strings.Contains(out, "No universities shortlisted") {
		t.Errorf("empty shortlist output:\n%s", out)
	}
	c.mustRun(t, "shortlist", "toggle", "ETH", "Zurich")
	if out := c.mustRun(t, "shortlist"); out != " 1. ETH Zurich\n" {
		t.Errorf("shortlist output = %q", out)
	}

	out := c.mustRun(t, "checklist", "generate")
	for _, want := range []string{"ETH Zurich", "Write statement of purpose", "Take language test", "(0/3 done)"} {
		if !strings.Contains(out, want) {
			t.Errorf("generate output missing %q:\n%s", want, out)
		}
	}

	c.mustRun(t, "checklist", "toggle", "ETH Zurich", "1")
	out = c.mustRun(t, "checklist")
	if !strings.Contains(out, "[x] Write statement of purpose") || !strings.Contains(out, "[ ] Request transcripts") {
		t.Errorf("checklist output:\n%s", out)
	}

	if _, err := c.run(t, "", "checklist", "toggle", "ETH Zurich", "0"); err == nil {
		t.Error("task number 0 accepted")
	}

	// Regeneration keeps the completed task.
	c.mustRun(t, "checklist", "generate")
	if out := c.mustRun(t, "checklist"); !strings.Contains(out, "(1/3 done)") {
		t.Errorf("completion lost on regenerate:\n%s", out)
	}

	out = c.mustRun(t, "history")
	for _, want := range []string{"shortlist", "checklist", "completed"} {
		if !strings.Contains(out, want) {
			t.Errorf("history missing %q:\n%s", want, out)
		}
	}
}

func TestChecklistGenerate_ExplicitTargets(t *testing.T) {
	c := newTestCLI(t)
	c.onboard(t)
	var (
		mu         sync.Mutex
		gotUnis    []string
		gotCountry string
	)
	c.srv.SetGuidance(func(unis []string, country string) checklist.Checklist {
		mu.Lock()
		gotUnis, gotCountry = unis, country
		mu.Unlock()
		return checklist.New([]string{"MIT"}, map[string][]checklist.Task{
			"MIT": {{Label: "Apply for a student visa", Details: "Check the " + country + " requirements"}},
		})
	})

	out := c.mustRun(t, "checklist", "generate", "--university", "MIT", "--university", "ETH Zurich", "--country", "Germany")
	mu.Lock()
	defer mu.Unlock()
	if diff := cmp.Diff([]string{"MIT", "ETH Zurich"}, gotUnis); diff != "" {
		t.Errorf("universities (-want +got):\n%s", diff)
	}
	if gotCountry != "Germany" {
		t.Errorf("country = %q", gotCountry)
	}
	for _, want := range []string{"Apply for a student visa", "Check the Germany requirements", "ETH Zurich", "(0/1 done)"} {
		if !strings.Contains(out, want) {
			t.Errorf("generate output missing %q:\n%s", want, out)
		}
	}
}

func TestChat_OneShotAndSessions(t *testing.T) {
	c := newTestCLI(t)
	c.mustRun(t, "login", testEmail)

	if out := c.mustRun(t, "chat", "Is", "Canada", "affordable?"); out != "You asked: Is Canada affordable?\n" {
		t.Errorf("chat output = %q", out)
	}

	out := c.mustRun(t, "sessions")
	if !strings.Contains(out, "sess-1") || !strings.Contains(out, "Is Canada affordable?") {
		t.Errorf("sessions output:\n%s", out)
	}

	c.mustRun(t, "chat", "--session", "sess-1", "And Germany?")
	out = c.mustRun(t, "sessions", "show", "sess-1")
	want := "you> Is Canada affordable?\n" +
		"counsellor> You asked: Is Canada affordable?\n" +
		"you> And Germany?\n" +
		"counsellor> You asked: And Germany?\n"
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("transcript (-want +got):\n%s", diff)
	}

	if _, err := c.run(t, "", "sessions", "show", "sess-99"); !apperr.IsNotFound(err) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestChat_Interactive(t *testing.T) {
	c := newTestCLI(t)
	c.mustRun(t, "login", testEmail)

	out, err := c.run(t, "Hi there\n/new\n/sessions\n/load sess-1\n/quit\nnever sent\n", "chat")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"counsellor> " + session.Greeting,
		"counsellor> You asked: Hi there",
		"sess-1",
		"you> Hi there",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "never sent") {
		t.Error("input after /quit was processed")
	}
	if n := c.srv.Count(http.MethodPost, "/counsellor/chat"); n != 1 {
		t.Errorf("chat requests = %d, want 1", n)
	}
}

func TestChat_FailureShowsFallback(t *testing.T) {
	c := newTestCLI(t)
	c.mustRun(t, "login", testEmail)
	c.srv.SetReply(func(msg string) string { return "Echo: " + strings.ToUpper(msg) })
	c.srv.FailNext(http.MethodPost, "/counsellor/chat", http.StatusInternalServerError)

	out, err := c.run(t, "Hello\nStill there?\n", "chat")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, session.Fallback) {
		t.Errorf("fallback not shown:\n%s", out)
	}
	if !strings.Contains(out, "Echo: STILL THERE?") {
		t.Errorf("retry after failure not answered:\n%s", out)
	}
}

func TestProfileDelete(t *testing.T) {
	c := newTestCLI(t)
	c.onboard(t)

	if _, err := c.run(t, "", "profile", "delete"); err == nil || !strings.Contains(err.Error(), "--yes") {
		t.Fatalf("expected --yes hint, got %v", err)
	}
	if _, ok := c.srv.Profile(testEmail); !ok {
		t.Fatal("profile deleted without confirmation")
	}

	c.mustRun(t, "profile", "delete", "--yes")
	if _, ok := c.srv.Profile(testEmail); ok {
		t.Error("profile still stored")
	}
	if _, err := c.run(t, "", "shortlist"); !errors.Is(err, account.ErrNoIdentity) {
		t.Errorf("got %v, want ErrNoIdentity after deletion", err)
	}
}

func TestUniversities(t *testing.T) {
	c := newTestCLI(t)
	c.mustRun(t, "login", testEmail)
	c.srv.SetUniversities([]catalog.University{
		{Name: "University of Oxford", Country: "United Kingdom", WebPages: []string{"https://www.ox.ac.uk/"}},
	})

	out := c.mustRun(t, "universities", "oxford")
	if !strings.Contains(out, "University of Oxford United Kingdom") || !strings.Contains(out, "https://www.ox.ac.uk/") {
		t.Errorf("output:\n%s", out)
	}
	if out := c.mustRun(t, "universities", "atlantis"); !strings.Contains(out, "No universities found") {
		t.Errorf("output:\n%s", out)
	}
}

func TestScholarships_Defaults(t *testing.T) {
	c := newTestCLI(t)
	c.mustRun(t, "login", testEmail)

	out := c.mustRun(t, "scholarships")
	for _, s := range catalog.DefaultScholarships() {
		if !strings.Contains(out, s.Title) {
			t.Errorf("missing %q", s.Title)
		}
	}
}

func TestConfigSetShow(t *testing.T) {
	c := newTestCLI(t)

	c.mustRun(t, "config", "set", "chat.greeting", "Welcome back!")
	out := c.mustRun(t, "config", "show")
	for _, want := range []string{"chat.greeting = Welcome back!", "remote.token = (set)", "remote.retries = 0"} {
		if !strings.Contains(out, want) {
			t.Errorf("config show missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "test-token") {
		t.Error("config show leaked the token")
	}

	if _, err := c.run(t, "", "config", "set", "remote.colour", "blue"); err == nil {
		t.Error("unknown key accepted")
	}
}

func TestApplySets(t *testing.T) {
	var p profile.Profile
	if err := applySets(&p, []string{"name=Ada", "test_scores.toefl=110", "budget=a=b"}); err != nil {
		t.Fatal(err)
	}
	if p.Name != "Ada" || p.TestScores.TOEFL != "110" || p.Budget != "a=b" {
		t.Errorf("p = %+v", p)
	}
	if err := applySets(&p, []string{"name"}); err == nil {
		t.Error("missing '=' accepted")
	}
}

func TestRenderNoColor(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()

	noColor = true
	if got := render(styles.Success, "done"); got != "done" {
		t.Errorf("render with noColor=true = %q", got)
	}
	if got := checkbox(true); got != "[x]" {
		t.Errorf("checkbox = %q", got)
	}
}
