package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type mockSearcher struct {
	unis    []University
	grants  []Scholarship
	err     error
	queries []string
}

func (m *mockSearcher) SearchUniversities(_ context.Context, q string) ([]University, error) {
	m.queries = append(m.queries, q)
	return m.unis, m.err
}

func (m *mockSearcher) SearchScholarships(_ context.Context, q string) ([]Scholarship, error) {
	m.queries = append(m.queries, q)
	return m.grants, m.err
}

func TestUniversity_Domain(t *testing.T) {
	tests := []struct {
		pages []string
		want  string
	}{
		{[]string{"https://www.ox.ac.uk/"}, "ox.ac.uk"},
		{[]string{"http://web.mit.edu"}, "mit.edu"},
		{[]string{"", "www.ethz.ch"}, "ethz.ch"},
		{nil, ""},
	}
	for _, tt := range tests {
		u := University{Name: "x", WebPages: tt.pages}
		if got := u.Domain(); got != tt.want {
			t.Errorf("Domain(%v) = %q, want %q", tt.pages, got, tt.want)
		}
	}
}

func TestScholarship_Fallbacks(t *testing.T) {
	s := Scholarship{Title: "DAAD Scholarship"}
	if got := s.URL(); got != "https://www.google.com/search?q=DAAD+Scholarship" {
		t.Errorf("URL() = %q", got)
	}
	if s.Summary() != defaultDescription {
		t.Errorf("Summary() = %q", s.Summary())
	}

	s.Link = "https://daad.de"
	s.Description = "For graduates."
	if s.URL() != "https://daad.de" || s.Summary() != "For graduates." {
		t.Errorf("explicit values not used: %+v", s)
	}
}

func TestScholarship_LenientDecode(t *testing.T) {
	var s Scholarship
	if err := json.Unmarshal([]byte(`{"title":"Merit","amount":10000,"deadline":null}`), &s); err != nil {
		t.Fatal(err)
	}
	want := Scholarship{Title: "Merit", Amount: "10000"}
	if diff := cmp.Diff(want, s); diff != "" {
		t.Errorf("decode mismatch (-want +got):\n%s", diff)
	}
}

func TestUniversities_EmptyQueryIgnored(t *testing.T) {
	src := &mockSearcher{}
	c := New(src)

	got, err := c.Universities(context.Background(), "   ")
	if err != nil || got != nil {
		t.Fatalf("got %v, %v; want nil, nil", got, err)
	}
	if len(src.queries) != 0 {
		t.Errorf("empty query reached the store: %v", src.queries)
	}
}

func TestUniversities_Truncates(t *testing.T) {
	src := &mockSearcher{}
	for i := range 80 {
		src.unis = append(src.unis, University{Name: fmt.Sprintf("U%d", i)})
	}
	c := New(src)

	got, err := c.Universities(context.Background(), "tech")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != MaxUniversities {
		t.Errorf("len = %d, want %d", len(got), MaxUniversities)
	}
}

func TestScholarships_DefaultsAndErrors(t *testing.T) {
	src := &mockSearcher{err: errors.New("down")}
	c := New(src)

	got, err := c.Scholarships(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 8 || got[0].Title != "Fulbright Scholarship" {
		t.Errorf("defaults = %+v", got)
	}

	if _, err := c.Scholarships(context.Background(), "germany"); !errors.Is(err, src.err) {
		t.Errorf("got %v, want wrapped store error", err)
	}
}
