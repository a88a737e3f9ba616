// Package catalog searches universities and scholarships through the remote
// store and supplies the defaults shown before any search.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// MaxUniversities caps a university search result.
const MaxUniversities = 50

// University is one row of a university search.
type University struct {
	Name         string   `json:"name"`
	Country      string   `json:"country"`
	WebPages     []string `json:"web_pages"`
	AlphaTwoCode string   `json:"alpha_two_code"`
}

// Website returns the first listed web page, or "".
func (u University) Website() string {
	for _, p := range u.WebPages {
		if p = strings.TrimSpace(p); p != "" {
			return p
		}
	}
	return ""
}

// Domain returns the registrable domain of the university's website
// ("ox.ac.uk" for "https://www.ox.ac.uk/"), or "" when none is known.
func (u University) Domain() string {
	site := u.Website()
	if site == "" {
		return ""
	}
	if !strings.Contains(site, "://") {
		site = "http://" + site
	}
	parsed, err := url.Parse(site)
	if err != nil || parsed.Hostname() == "" {
		return ""
	}
	host := strings.ToLower(parsed.Hostname())
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return domain
}

// Scholarship is one funding opportunity.
type Scholarship struct {
	Title       string `json:"title"`
	Amount      string `json:"amount"`
	Deadline    string `json:"deadline"`
	Description string `json:"description,omitempty"`
	Link        string `json:"link,omitempty"`
}

const defaultDescription = "Financial aid opportunity to support your studies."

// UnmarshalJSON accepts numbers and nulls wherever text is expected.
func (s *Scholarship) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding scholarship: %w", err)
	}
	*s = Scholarship{
		Title:       text(raw["title"]),
		Amount:      text(raw["amount"]),
		Deadline:    text(raw["deadline"]),
		Description: text(raw["description"]),
		Link:        text(raw["link"]),
	}
	return nil
}

// Summary returns the description, or a generic sentence when there is none.
func (s Scholarship) Summary() string {
	if d := strings.TrimSpace(s.Description); d != "" {
		return d
	}
	return defaultDescription
}

// URL returns the scholarship link, or a web search for its title.
func (s Scholarship) URL() string {
	if l := strings.TrimSpace(s.Link); l != "" {
		return l
	}
	return "https://www.google.com/search?q=" + url.QueryEscape(s.Title)
}

// DefaultScholarships is the list shown before the user searches.
func DefaultScholarships() []Scholarship {
	return []Scholarship{
		{Title: "Fulbright Scholarship", Amount: "Full Ride", Deadline: "2024-10-15"},
		{Title: "Chevening Scholarship", Amount: "Full Ride", Deadline: "2024-11-01"},
		{Title: "Rhodes Scholarship", Amount: "Full tuition + stipend", Deadline: "2024-10-02"},
		{Title: "Erasmus Mundus", Amount: "Full tuition + €1000/month", Deadline: "2024-02-15"},
		{Title: "Gates Cambridge Scholarship", Amount: "Full Cost", Deadline: "2024-12-05"},
		{Title: "Commonwealth Scholarship", Amount: "Full tuition + airfare", Deadline: "2024-09-10"},
		{Title: "Eiffel Excellence Scholarship", Amount: "€1,181 / month", Deadline: "2024-01-10"},
		{Title: "DAAD Scholarship", Amount: "€850 / month", Deadline: "2024-11-15"},
	}
}

// Searcher is the search half of the remote store. Implemented by remote.Client.
type Searcher interface {
	SearchUniversities(ctx context.Context, query string) ([]University, error)
	SearchScholarships(ctx context.Context, query string) ([]Scholarship, error)
}

// Catalog runs searches. Empty queries never reach the store.
type Catalog struct {
	src    Searcher
	logger *slog.Logger
}

func New(src Searcher) *Catalog {
	return &Catalog{src: src, logger: slog.Default()}
}

// Universities returns at most MaxUniversities matches; an empty query
// returns nothing.
func (c *Catalog) Universities(ctx context.Context, query string) ([]University, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	unis, err := c.src.SearchUniversities(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("searching universities for %q: %w", query, err)
	}
	if len(unis) > MaxUniversities {
		unis = unis[:MaxUniversities]
	}
	c.logger.Debug("university search", "query", query, "results", len(unis))
	return unis, nil
}

// Scholarships returns matches for query, or the default list when query is empty.
func (c *Catalog) Scholarships(ctx context.Context, query string) ([]Scholarship, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return DefaultScholarships(), nil
	}
	found, err := c.src.SearchScholarships(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("searching scholarships for %q: %w", query, err)
	}
	c.logger.Debug("scholarship search", "query", query, "results", len(found))
	return found, nil
}

func text(raw json.RawMessage) string {
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
