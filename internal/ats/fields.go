package ats

import (
	"strings"

	"github.com/applypilot/applypilot/pkg/models"
)

// fieldRule maps a set of label keywords to a profile value. First match
// wins, so specific labels ("first name") precede the broad ones ("name").
type fieldRule struct {
	keywords []string
	value    func(p *models.CandidateProfile) string
}

func fieldRules() []fieldRule {
	return []fieldRule{
		{[]string{"first name", "given name", "firstname", "first_name", "fname"},
			func(p *models.CandidateProfile) string { return p.FirstName() }},
		{[]string{"last name", "family name", "surname", "lastname", "last_name", "lname"},
			func(p *models.CandidateProfile) string { return p.LastName() }},
		{[]string{"full name", "your name", "fullname"},
			func(p *models.CandidateProfile) string { return p.User.Name }},
		{[]string{"email", "e-mail"},
			func(p *models.CandidateProfile) string { return p.User.Email }},
		{[]string{"phone", "mobile", "telephone", "tel"},
			func(p *models.CandidateProfile) string { return p.User.Phone }},
		{[]string{"city", "location", "address"},
			func(p *models.CandidateProfile) string { return p.User.Location }},
		{[]string{"linkedin", "linked in"},
			func(p *models.CandidateProfile) string { return p.User.LinkedInURL }},
		{[]string{"github"},
			func(p *models.CandidateProfile) string { return p.User.GitHubURL }},
		{[]string{"website", "portfolio"},
			func(p *models.CandidateProfile) string { return p.User.GitHubURL }},
		{[]string{"current title", "job title", "position", "current role"},
			func(p *models.CandidateProfile) string { return p.CurrentTitle() }},
		{[]string{"current company", "employer", "company name", "organization"},
			func(p *models.CandidateProfile) string { return p.CurrentCompany() }},
		{[]string{"school", "university", "college"},
			func(p *models.CandidateProfile) string { return p.School() }},
		{[]string{"degree"},
			func(p *models.CandidateProfile) string { return p.Degree() }},
		{[]string{"earliest", "start date", "available"},
			func(p *models.CandidateProfile) string { return "As soon as possible" }},
	}
}

// neverFill are labels whose values should stay blank even when a rule
// would match: compensation questions bind the candidate, and "name" alone
// is matched by the broader rules above.
var neverFill = []string{"salary", "compensation"}

// FieldValue maps a form label to a profile value, or "" when the field
// should be left alone.
func FieldValue(label string, p *models.CandidateProfile) string {
	lowered := strings.ToLower(strings.TrimSpace(label))
	if lowered == "" || SkipLabel(lowered) {
		return ""
	}
	for _, never := range neverFill {
		if strings.Contains(lowered, never) {
			return ""
		}
	}
	for _, rule := range fieldRules() {
		for _, kw := range rule.keywords {
			if strings.Contains(lowered, kw) {
				return rule.value(p)
			}
		}
	}
	return ""
}
