package profile

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/ArnabNath1/ArnabUniGuide/internal/shortlist"
)

// MergeStrategy selects how extracted document fields combine with a profile.
type MergeStrategy int

const (
	// Conservative only lets non-empty extracted values through. Used when
	// editing an existing profile so a thin document never erases data.
	Conservative MergeStrategy = iota
	// Aggressive lets every present extracted field through, empty ones too.
	// Used during onboarding where the document is the primary source.
	Aggressive
)

func (s MergeStrategy) String() string {
	if s == Aggressive {
		return "aggressive"
	}
	return "conservative"
}

// Opt is a free-text value that remembers whether its key was present in
// the JSON it came from. null counts as present and empty.
type Opt struct {
	Present bool
	Value   string
}

// Some returns a present Opt holding v.
func Some(v string) Opt { return Opt{Present: true, Value: v} }

// UnmarshalJSON marks the value present and decodes it leniently.
func (o *Opt) UnmarshalJSON(data []byte) error {
	s, err := decodeText(data)
	if err != nil {
		return err
	}
	*o = Opt{Present: true, Value: s}
	return nil
}

// MarshalJSON writes the value, or null when absent.
func (o Opt) MarshalJSON() ([]byte, error) {
	if !o.Present {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// Extracted is the partial profile returned by the document parser.
type Extracted struct {
	Email              Opt `json:"email"`
	Name               Opt `json:"name"`
	CurrentDegree      Opt `json:"current_degree"`
	CurrentUniversity  Opt `json:"current_university"`
	GPA                Opt `json:"gpa"`
	WorkExperience     Opt `json:"work_experience"`
	ResearchExperience Opt `json:"research_experience"`
	Skills             Opt `json:"skills"`
	Projects           Opt `json:"projects"`
	TargetCountry      Opt `json:"target_country"`
	TargetDegree       Opt `json:"target_degree"`
	Budget             Opt `json:"budget"`

	TestScores ExtractedScores `json:"test_scores"`
	Shortlist  Opt             `json:"shortlisted_universities"`
}

// ExtractedScores holds the extracted test scores, each with presence.
type ExtractedScores struct {
	IELTS Opt `json:"ielts"`
	TOEFL Opt `json:"toefl"`
	GRE   Opt `json:"gre"`
	GMAT  Opt `json:"gmat"`
	SAT   Opt `json:"sat"`
	ACT   Opt `json:"act"`
}

// UnmarshalJSON tolerates null or a non-object test_scores value.
func (s *ExtractedScores) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		*s = ExtractedScores{}
		return nil
	}
	type plain ExtractedScores
	var out plain
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	*s = ExtractedScores(out)
	return nil
}

// PresentFields lists the JSON names of every present field, for reporting.
func (e Extracted) PresentFields() []string {
	var out []string
	for _, f := range fields {
		if f.extracted(&e).Present {
			out = append(out, f.Name)
		}
	}
	for _, f := range scoreFields {
		if f.extracted(&e.TestScores).Present {
			out = append(out, "test_scores."+f.Name)
		}
	}
	if e.Shortlist.Present {
		out = append(out, "shortlisted_universities")
	}
	return out
}

// MergeExtracted combines current with extracted under strategy and returns
// the result. Test scores merge score by score under either strategy, never
// as a whole. Neither input is modified and nothing is saved.
func MergeExtracted(current Profile, extracted Extracted, strategy MergeStrategy) Profile {
	out := current.Clone()
	for _, f := range fields {
		if o := *f.extracted(&extracted); accepts(o, strategy) {
			f.Set(&out, o.Value)
		}
	}
	for _, f := range scoreFields {
		if o := *f.extracted(&extracted.TestScores); accepts(o, strategy) {
			*f.ptr(&out.TestScores) = o.Value
		}
	}
	if accepts(extracted.Shortlist, strategy) {
		out.Shortlist = shortlist.Parse(extracted.Shortlist.Value)
	}
	return out
}

func accepts(o Opt, strategy MergeStrategy) bool {
	if !o.Present {
		return false
	}
	if strategy == Aggressive {
		return true
	}
	return strings.TrimSpace(o.Value) != ""
}
