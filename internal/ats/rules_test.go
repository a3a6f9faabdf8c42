package ats

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/applypilot/applypilot/internal/config"
)

func TestAnswerRuleOrdering(t *testing.T) {
	r := NewRules(nil)

	// "Does your visa status require sponsorship to work in the country?"
	// mentions both sponsorship and country. The sponsorship rule is earlier
	// in the table, so it must win over the country rule.
	assert.Equal(t, "No", r.Answer("Does your visa status require sponsorship to work in the country?"))
	assert.Equal(t, "No", r.Answer("Will you now or in the future require visa sponsorship?"))

	// A plain country question still gets the country answer.
	assert.Equal(t, "Canada", r.Answer("Which country do you live in?"))
}

func TestAnswerTable(t *testing.T) {
	r := NewRules(nil)
	tests := []struct {
		label string
		want  string
	}{
		{"Have you interviewed at Acme before?", "No"},
		{"Are you legally authorized to work in Canada?", "I am authorized to work in the country d"},
		{"Are you open to relocation?", "Yes"},
		{"Are you comfortable working in-person?", "Yes"},
		{"How did you hear about this role?", "Job board"},
		{"Do you agree to our privacy policy?", "Yes"},
		{"Do you require a visa?", "No"}, // regex rule: require.*visa
		{"What is your favourite colour?", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, r.Answer(tt.label), tt.label)
	}
}

func TestAnswerOverridesWin(t *testing.T) {
	r := NewRules([]config.AnswerRule{{Match: "relocation", Answer: "No"}})
	assert.Equal(t, "No", r.Answer("Are you open to relocation?"))
	// Defaults still apply to everything else.
	assert.Equal(t, "No", r.Answer("Do you need visa sponsorship?"))
}

func TestSkipLabel(t *testing.T) {
	for _, label := range []string{
		"Gender identity", "Race/Ethnicity", "Are you Hispanic or Latino?",
		"Veteran status", "Disability status", "Preferred pronouns",
	} {
		assert.True(t, SkipLabel(label), label)
	}
	assert.False(t, SkipLabel("First Name"))
	assert.False(t, SkipLabel("Country of residence"))
}
