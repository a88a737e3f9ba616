package profile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ArnabNath1/ArnabUniGuide/internal/checklist"
	"github.com/ArnabNath1/ArnabUniGuide/internal/shortlist"
)

// Profile is the user's study-abroad profile, keyed by Email. Scalar fields
// are free text; the remote store owns the canonical copy.
type Profile struct {
	ID string // store-assigned row id, kept for round trips

	Email              string `validate:"present"`
	Name               string
	CurrentDegree      string `validate:"present"`
	CurrentUniversity  string `validate:"present"`
	GPA                string
	WorkExperience     string
	ResearchExperience string
	Skills             string
	Projects           string
	TargetCountry      string `validate:"present"`
	TargetDegree       string `validate:"present"`
	Budget             string `validate:"present"`

	TestScores TestScores
	Shortlist  shortlist.Set
	Checklist  checklist.Checklist
}

// TestScores holds standardized test results as free text.
type TestScores struct {
	IELTS string
	TOEFL string
	GRE   string
	GMAT  string
	SAT   string
	ACT   string
}

// IsZero reports whether no score is set.
func (s TestScores) IsZero() bool { return s == TestScores{} }

// Clone returns a deep copy of p.
func (p Profile) Clone() Profile {
	cp := p
	cp.Checklist = p.Checklist.Clone()
	return cp
}

// Equal reports whether two profiles hold the same content.
func (p Profile) Equal(o Profile) bool {
	return p.ID == o.ID &&
		p.scalarsEqual(o) &&
		p.TestScores == o.TestScores &&
		p.Shortlist.Equal(o.Shortlist) &&
		p.Checklist.Equal(o.Checklist)
}

func (p Profile) scalarsEqual(o Profile) bool {
	for _, f := range fields {
		if f.Get(p) != f.Get(o) {
			return false
		}
	}
	return true
}

// MarshalJSON writes the wire document: scalar fields by JSON name, the
// shortlist as its delimited string and the checklist as an ordered object.
func (p Profile) MarshalJSON() ([]byte, error) {
	doc := make(map[string]any, len(fields)+4)
	for _, f := range fields {
		doc[f.Name] = f.Get(p)
	}
	if p.ID != "" {
		doc["id"] = p.ID
	}
	doc["test_scores"] = p.TestScores
	doc["shortlisted_universities"] = p.Shortlist
	doc["checklist"] = p.Checklist
	return json.Marshal(doc)
}

// UnmarshalJSON reads the wire document. Scalars tolerate numbers, booleans,
// arrays (joined with ", ") and null, mirroring the store's own coercion.
// Unknown keys are ignored.
func (p *Profile) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var out Profile
	for _, f := range fields {
		v, ok := raw[f.Name]
		if !ok {
			continue
		}
		s, err := decodeText(v)
		if err != nil {
			return fmt.Errorf("profile field %s: %w", f.Name, err)
		}
		f.Set(&out, s)
	}
	if v, ok := raw["id"]; ok {
		id, err := decodeText(v)
		if err != nil {
			return fmt.Errorf("profile field id: %w", err)
		}
		out.ID = id
	}
	if v, ok := raw["test_scores"]; ok {
		if err := json.Unmarshal(v, &out.TestScores); err != nil {
			return fmt.Errorf("profile field test_scores: %w", err)
		}
	}
	if v, ok := raw["shortlisted_universities"]; ok {
		if err := json.Unmarshal(v, &out.Shortlist); err != nil {
			return fmt.Errorf("profile field shortlisted_universities: %w", err)
		}
	}
	if v, ok := raw["checklist"]; ok {
		if err := json.Unmarshal(v, &out.Checklist); err != nil {
			return fmt.Errorf("profile field checklist: %w", err)
		}
	}
	*p = out
	return nil
}

// MarshalJSON writes every score, empty ones included.
func (s TestScores) MarshalJSON() ([]byte, error) {
	doc := make(map[string]string, len(scoreFields))
	for _, f := range scoreFields {
		doc[f.Name] = *f.ptr(&s)
	}
	return json.Marshal(doc)
}

// UnmarshalJSON accepts an object of scores with lenient values; null and a
// non-object (the store sometimes sends a bare string) decode to no scores.
func (s *TestScores) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		*s = TestScores{}
		return nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var out TestScores
	for key, v := range raw {
		f, ok := lookupScore(key)
		if !ok {
			continue
		}
		text, err := decodeText(v)
		if err != nil {
			return fmt.Errorf("test score %s: %w", key, err)
		}
		*f.ptr(&out) = text
	}
	*s = out
	return nil
}

// decodeText renders a JSON scalar or array as free text.
func decodeText(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", nil
	}
	switch raw[0] {
	case 'n':
		return "", nil
	case '"':
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return "", err
		}
		parts := make([]string, 0, len(items))
		for _, it := range items {
			s, err := decodeText(it)
			if err != nil {
				return "", err
			}
			if s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", "), nil
	case '{':
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return "", err
		}
		return buf.String(), nil
	default:
		// numbers and booleans keep their literal spelling
		return string(raw), nil
	}
}
