package ats

import (
	"regexp"
	"strings"

	"github.com/applypilot/applypilot/internal/config"
)

// defaultAnswerRules answer screening dropdowns by label keyword. Order
// matters: specific phrases must come before the generic words they contain,
// and "country" must stay last because many labels mention the country.
var defaultAnswerRules = []config.AnswerRule{
	{Match: "visa sponsorship", Answer: "No"},
	{Match: "visa sponsor", Answer: "No"},
	{Match: "require.*visa", Answer: "No"},
	{Match: "sponsorship", Answer: "No"},
	{Match: "visa", Answer: "No"},
	{Match: "interviewed before", Answer: "No"},
	{Match: "interviewed at", Answer: "No"},
	{Match: "authorized to work", Answer: "I am authorized to work in the country d"},
	{Match: "authorization to work", Answer: "I am authorized to work in the country d"},
	{Match: "legally authorized", Answer: "I am authorized to work in the country d"},
	{Match: "relocation", Answer: "Yes"},
	{Match: "in-person", Answer: "Yes"},
	{Match: "in person", Answer: "Yes"},
	{Match: "office", Answer: "Yes"},
	{Match: "hear about", Answer: "Job board"},
	{Match: "policy", Answer: "Yes"},
	{Match: "country", Answer: "Canada"},
}

// skipLabels are demographic survey fields that must never be answered.
var skipLabels = []string{"gender", "race", "ethnicity", "hispanic", "veteran", "disability", "pronouns"}

// Rules resolves screening question answers against the ordered rule table.
type Rules struct {
	rules []config.AnswerRule
}

// NewRules uses the built-in table, optionally prepending user overrides so
// they win over the defaults.
func NewRules(overrides []config.AnswerRule) *Rules {
	return &Rules{rules: append(append([]config.AnswerRule{}, overrides...), defaultAnswerRules...)}
}

// Answer returns the configured answer for a screening question label, or
// "" when no rule matches. Matches containing ".*" are treated as regular
// expressions; plain matches are case-insensitive substring checks.
func (r *Rules) Answer(label string) string {
	lowered := strings.ToLower(label)
	for _, rule := range r.rules {
		if strings.Contains(rule.Match, ".*") {
			if re, err := regexp.Compile(rule.Match); err == nil && re.MatchString(lowered) {
				return rule.Answer
			}
			continue
		}
		if strings.Contains(lowered, strings.ToLower(rule.Match)) {
			return rule.Answer
		}
	}
	return ""
}

// SkipLabel reports whether the field is a demographic survey question.
func SkipLabel(label string) bool {
	lowered := strings.ToLower(label)
	for _, skip := range skipLabels {
		if strings.Contains(lowered, skip) {
			return true
		}
	}
	return false
}
