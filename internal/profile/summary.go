package profile

import (
	"fmt"
	"strings"
)

// NoProfileSummary is sent to the advisor when the user has no profile yet.
const NoProfileSummary = "No profile data available yet."

// Summarize flattens p into the one-line text sent with each chat turn.
// A nil profile yields NoProfileSummary.
func Summarize(p *Profile) string {
	if p == nil {
		return NoProfileSummary
	}
	return fmt.Sprintf(
		"Name: %s, Current Degree: %s, University: %s, GPA: %s, Interests: %s in %s, "+
			"Shortlisted Universities: %s, Skills: %s, Projects: %s, Budget: %s, Work Exp: %s",
		p.Name, p.CurrentDegree, p.CurrentUniversity, p.GPA, p.TargetDegree, p.TargetCountry,
		p.Shortlist.String(), p.Skills, p.Projects, p.Budget, p.WorkExperience,
	)
}

// ChecklistTargets returns the universities and country used when the user
// asks for a checklist without naming them: the shortlist, else a generic
// entry for the target degree, else two well-known defaults; the target
// country, else USA.
func ChecklistTargets(p Profile) ([]string, string) {
	country := strings.TrimSpace(p.TargetCountry)
	if country == "" {
		country = "USA"
	}
	if p.Shortlist.Len() > 0 {
		return p.Shortlist.Names(), country
	}
	if degree := strings.TrimSpace(p.TargetDegree); degree != "" {
		return []string{"Top Universities for " + degree}, country
	}
	return []string{"Harvard University", "Stanford University"}, country
}
