package profile

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ArnabNath1/ArnabUniGuide/internal/apperr"
	"github.com/ArnabNath1/ArnabUniGuide/internal/checklist"
	"github.com/ArnabNath1/ArnabUniGuide/internal/shortlist"
)

func fullProfile() Profile {
	return Profile{
		ID:                "17",
		Email:             "ada@example.com",
		Name:              "Ada",
		CurrentDegree:     "BSc Computer Science",
		CurrentUniversity: "University of Dhaka",
		GPA:               "3.8",
		Skills:            "Go, SQL",
		TargetCountry:     "Germany",
		TargetDegree:      "MSc",
		Budget:            "20000 EUR",
		TestScores:        TestScores{IELTS: "7.5", GRE: "320"},
		Shortlist:         shortlist.Of("TU Munich", "ETH Zurich"),
		Checklist: checklist.New([]string{"TU Munich"}, map[string][]checklist.Task{
			"TU Munich": {{Label: "Write SOP", Completed: true}},
		}),
	}
}

func TestProfile_JSONRoundTrip(t *testing.T) {
	p := fullProfile()
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"shortlisted_universities":"TU Munich, ETH Zurich"`) {
		t.Errorf("shortlist not serialized as delimited string: %s", data)
	}

	var back Profile
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(p, back); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestProfile_LenientDecode(t *testing.T) {
	raw := `{
		"id": 42,
		"email": "ada@example.com",
		"gpa": 3.75,
		"skills": ["Go", "Python"],
		"projects": null,
		"budget": 20000,
		"test_scores": {"IELTS": 8, "gre": "330", "unknown": "x"},
		"shortlisted_universities": ["MIT", "Oxford"],
		"checklist": [],
		"created_at": "2024-01-01T00:00:00Z"
	}`
	var p Profile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatal(err)
	}

	checks := []struct{ name, got, want string }{
		{"id", p.ID, "42"},
		{"gpa", p.GPA, "3.75"},
		{"skills", p.Skills, "Go, Python"},
		{"projects", p.Projects, ""},
		{"budget", p.Budget, "20000"},
		{"ielts", p.TestScores.IELTS, "8"},
		{"gre", p.TestScores.GRE, "330"},
		{"shortlist", p.Shortlist.String(), "MIT, Oxford"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %q, want %q", c.name, c.got, c.want)
		}
	}
	if !p.Checklist.IsEmpty() {
		t.Errorf("empty array checklist should decode empty, got %v", p.Checklist.Keys())
	}
}

func TestTestScores_NonObject(t *testing.T) {
	var p Profile
	if err := json.Unmarshal([]byte(`{"email":"a@x.com","test_scores":"IELTS 7"}`), &p); err != nil {
		t.Fatal(err)
	}
	if !p.TestScores.IsZero() {
		t.Errorf("non-object test_scores should decode to zero, got %+v", p.TestScores)
	}
}

func TestSetByName(t *testing.T) {
	var p Profile
	for name, val := range map[string]string{
		"gpa":             "3.9",
		"Target_Country":  "Canada",
		"test_scores.gre": "325",
		"toefl":           "110",
	} {
		if !SetByName(&p, name, val) {
			t.Errorf("SetByName(%q) = false", name)
		}
	}
	if p.GPA != "3.9" || p.TargetCountry != "Canada" || p.TestScores.GRE != "325" || p.TestScores.TOEFL != "110" {
		t.Errorf("unexpected profile: %+v", p)
	}
	if SetByName(&p, "email", "x@y.z") {
		t.Error("email must not be settable by name")
	}
	if SetByName(&p, "nope", "v") {
		t.Error("unknown name accepted")
	}
}

func TestValidateOnboarding(t *testing.T) {
	if err := ValidateOnboarding(fullProfile()); err != nil {
		t.Fatalf("full profile rejected: %v", err)
	}

	p := fullProfile()
	p.Budget = "  "
	p.TargetCountry = ""
	p.Name = "" // optional
	err := ValidateOnboarding(p)

	if !apperr.IsValidation(err) {
		t.Fatalf("got %v, want ValidationError", err)
	}
	ve := err.(*apperr.ValidationError)
	if diff := cmp.Diff([]string{"target_country", "budget"}, ve.Fields); diff != "" {
		t.Errorf("missing fields (-want +got):\n%s", diff)
	}
}

func TestSummarize(t *testing.T) {
	if got := Summarize(nil); got != NoProfileSummary {
		t.Errorf("Summarize(nil) = %q", got)
	}

	p := fullProfile()
	got := Summarize(&p)
	for _, want := range []string{
		"Name: Ada",
		"Current Degree: BSc Computer Science",
		"Interests: MSc in Germany",
		"Shortlisted Universities: TU Munich, ETH Zurich",
		"Budget: 20000 EUR",
		"Work Exp: ",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("summary missing %q: %s", want, got)
		}
	}
	if strings.Contains(got, "IELTS") {
		t.Errorf("summary carries test scores: %s", got)
	}

	p.Projects = strings.Repeat("distributed systems ", 200)
	if got := Summarize(&p); !strings.HasSuffix(got, "Work Exp: "+p.WorkExperience) {
		t.Errorf("long summary lost trailing fields: ...%s", got[len(got)-60:])
	}
}

func TestChecklistTargets(t *testing.T) {
	tests := []struct {
		name        string
		p           Profile
		wantUnis    []string
		wantCountry string
	}{
		{"shortlist", Profile{Shortlist: shortlist.Of("MIT"), TargetCountry: "USA"}, []string{"MIT"}, "USA"},
		{"degree", Profile{TargetDegree: "MBA", TargetCountry: "UK"}, []string{"Top Universities for MBA"}, "UK"},
		{"defaults", Profile{}, []string{"Harvard University", "Stanford University"}, "USA"},
	}
	for _, tt := range tests {
		unis, country := ChecklistTargets(tt.p)
		if diff := cmp.Diff(tt.wantUnis, unis); diff != "" {
			t.Errorf("%s: universities (-want +got):\n%s", tt.name, diff)
		}
		if country != tt.wantCountry {
			t.Errorf("%s: country = %q, want %q", tt.name, country, tt.wantCountry)
		}
	}
}
