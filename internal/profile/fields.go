package profile

import "strings"

// Field is a typed accessor for one free-text profile field. Field names are
// the JSON names used on the wire.
type Field struct {
	Name  string
	Label string

	ptr       func(*Profile) *string
	extracted func(*Extracted) *Opt
}

// Get returns the field's value in p.
func (f Field) Get(p Profile) string { return *f.ptr(&p) }

// Set stores v into p.
func (f Field) Set(p *Profile, v string) { *f.ptr(p) = v }

var fields = []Field{
	{"email", "Email", func(p *Profile) *string { return &p.Email }, func(e *Extracted) *Opt { return &e.Email }},
	{"name", "Name", func(p *Profile) *string { return &p.Name }, func(e *Extracted) *Opt { return &e.Name }},
	{"current_degree", "Current degree", func(p *Profile) *string { return &p.CurrentDegree }, func(e *Extracted) *Opt { return &e.CurrentDegree }},
	{"current_university", "Current university", func(p *Profile) *string { return &p.CurrentUniversity }, func(e *Extracted) *Opt { return &e.CurrentUniversity }},
	{"gpa", "GPA", func(p *Profile) *string { return &p.GPA }, func(e *Extracted) *Opt { return &e.GPA }},
	{"work_experience", "Work experience", func(p *Profile) *string { return &p.WorkExperience }, func(e *Extracted) *Opt { return &e.WorkExperience }},
	{"research_experience", "Research experience", func(p *Profile) *string { return &p.ResearchExperience }, func(e *Extracted) *Opt { return &e.ResearchExperience }},
	{"skills", "Skills", func(p *Profile) *string { return &p.Skills }, func(e *Extracted) *Opt { return &e.Skills }},
	{"projects", "Projects", func(p *Profile) *string { return &p.Projects }, func(e *Extracted) *Opt { return &e.Projects }},
	{"target_country", "Target country", func(p *Profile) *string { return &p.TargetCountry }, func(e *Extracted) *Opt { return &e.TargetCountry }},
	{"target_degree", "Target degree", func(p *Profile) *string { return &p.TargetDegree }, func(e *Extracted) *Opt { return &e.TargetDegree }},
	{"budget", "Budget", func(p *Profile) *string { return &p.Budget }, func(e *Extracted) *Opt { return &e.Budget }},
}

// ScoreField is a typed accessor for one test score.
type ScoreField struct {
	Name  string
	Label string

	ptr       func(*TestScores) *string
	extracted func(*ExtractedScores) *Opt
}

var scoreFields = []ScoreField{
	{"ielts", "IELTS", func(s *TestScores) *string { return &s.IELTS }, func(e *ExtractedScores) *Opt { return &e.IELTS }},
	{"toefl", "TOEFL", func(s *TestScores) *string { return &s.TOEFL }, func(e *ExtractedScores) *Opt { return &e.TOEFL }},
	{"gre", "GRE", func(s *TestScores) *string { return &s.GRE }, func(e *ExtractedScores) *Opt { return &e.GRE }},
	{"gmat", "GMAT", func(s *TestScores) *string { return &s.GMAT }, func(e *ExtractedScores) *Opt { return &e.GMAT }},
	{"sat", "SAT", func(s *TestScores) *string { return &s.SAT }, func(e *ExtractedScores) *Opt { return &e.SAT }},
	{"act", "ACT", func(s *TestScores) *string { return &s.ACT }, func(e *ExtractedScores) *Opt { return &e.ACT }},
}

// Fields returns the scalar profile fields in display order.
func Fields() []Field {
	out := make([]Field, len(fields))
	copy(out, fields)
	return out
}

// ScoreFields returns the test score fields in display order.
func ScoreFields() []ScoreField {
	out := make([]ScoreField, len(scoreFields))
	copy(out, scoreFields)
	return out
}

// Get returns the score in s.
func (f ScoreField) Get(s TestScores) string { return *f.ptr(&s) }

func lookupScore(name string) (ScoreField, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, f := range scoreFields {
		if f.Name == name {
			return f, true
		}
	}
	return ScoreField{}, false
}

// SetByName sets a scalar field or a test score ("test_scores.gre" or "gre")
// by its JSON name. It reports false for unknown names. The email field is
// not settable this way.
func SetByName(p *Profile, name, value string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "email" {
		return false
	}
	for _, f := range fields {
		if f.Name == name {
			f.Set(p, value)
			return true
		}
	}
	if sf, ok := lookupScore(strings.TrimPrefix(name, "test_scores.")); ok {
		*sf.ptr(&p.TestScores) = value
		return true
	}
	return false
}

// SettableNames lists the names SetByName accepts.
func SettableNames() []string {
	var out []string
	for _, f := range fields {
		if f.Name != "email" {
			out = append(out, f.Name)
		}
	}
	for _, f := range scoreFields {
		out = append(out, "test_scores."+f.Name)
	}
	return out
}
