// Package scoring ranks normalized listings against a candidate's resume
// and preferences on a 0-100 scale. The score is additive over six
// components, each individually capped, then clamped.
package scoring

import (
	"strings"

	"github.com/samber/lo"

	"github.com/applypilot/applypilot/pkg/models"
)

// coreSkills earn the higher per-skill weight; everything else on the
// resume earns the secondary weight.
var coreSkills = map[string]bool{
	"python": true, "django": true, "react": true, "typescript": true,
	"javascript": true, "next.js": true, "postgresql": true, "docker": true,
	"aws": true, "go": true, "golang": true, "claude": true, "anthropic": true,
	"llm": true, "ai": true, "machine learning": true, "drf": true,
	"rest api": true, "rest apis": true,
}

var aiTerms = []string{
	"ai", "artificial intelligence", "machine learning", "ml", "llm",
	"large language model", "claude", "anthropic", "openai", "gpt",
	"ai native", "ai-native", "generative ai", "gen ai",
	"natural language processing", "nlp", "deep learning",
}

// descQualityTech are the stack markers that raise description quality.
var descQualityTech = []string{"django", "react", "python", "typescript", "next.js", "postgresql", "go"}

// Weights are the per-component point values. Components and caps are
// fixed; the point values can be tuned from config.
type Weights struct {
	CoreSkill        int `mapstructure:"core_skill"`
	SecondarySkill   int `mapstructure:"secondary_skill"`
	KeywordInTitle   int `mapstructure:"keyword_in_title"`
	KeywordInDesc    int `mapstructure:"keyword_in_desc"`
	KeywordCap       int `mapstructure:"keyword_cap"`
	ExcludedPenalty  int `mapstructure:"excluded_penalty"`
	LocationExact    int `mapstructure:"location_exact"`
	LocationRemote   int `mapstructure:"location_remote"`
	LocationRemoteNo int `mapstructure:"location_remote_not_ok"`
	LocationCountry  int `mapstructure:"location_country"`
}

// DefaultWeights returns the stock point values.
func DefaultWeights() Weights {
	return Weights{
		CoreSkill:        5,
		SecondarySkill:   3,
		KeywordInTitle:   8,
		KeywordInDesc:    4,
		KeywordCap:       40,
		ExcludedPenalty:  20,
		LocationExact:    15,
		LocationRemote:   12,
		LocationRemoteNo: 5,
		LocationCountry:  8,
	}
}

// WeightsFromConfig overlays non-zero config values on the defaults.
func WeightsFromConfig(overrides map[string]int) Weights {
	w := DefaultWeights()
	apply := func(key string, dst *int) {
		if v, ok := overrides[key]; ok && v != 0 {
			*dst = v
		}
	}
	apply("core_skill", &w.CoreSkill)
	apply("secondary_skill", &w.SecondarySkill)
	apply("keyword_in_title", &w.KeywordInTitle)
	apply("keyword_in_desc", &w.KeywordInDesc)
	apply("keyword_cap", &w.KeywordCap)
	apply("excluded_penalty", &w.ExcludedPenalty)
	apply("location_exact", &w.LocationExact)
	apply("location_remote", &w.LocationRemote)
	apply("location_remote_not_ok", &w.LocationRemoteNo)
	apply("location_country", &w.LocationCountry)
	return w
}

// Result carries the final score with the per-component breakdown that the
// status view and the auto-apply threshold both read.
type Result struct {
	Score     int
	Breakdown map[string]int
	Matched   []string
}

// Scorer evaluates listings for one candidate profile.
type Scorer struct {
	weights Weights
}

func NewScorer(weights Weights) *Scorer {
	return &Scorer{weights: weights}
}

// Score evaluates one listing. Skills are matched case-insensitively
// against title+description; preference keywords count once, with title
// hits weighted above description hits.
func (s *Scorer) Score(job models.NormalizedJob, skills []string, prefs models.Preferences) Result {
	w := s.weights
	score := 0
	breakdown := map[string]int{}
	var matched []string

	title := strings.ToLower(job.Title)
	desc := strings.ToLower(job.Description)
	location := strings.ToLower(job.Location)
	combined := title + " " + desc

	// Skill and preference keyword match, capped.
	keywordPoints := 0
	for _, skill := range skills {
		skill = strings.ToLower(skill)
		if skill == "" || !strings.Contains(combined, skill) {
			continue
		}
		if coreSkills[skill] {
			keywordPoints += w.CoreSkill
		} else {
			keywordPoints += w.SecondarySkill
		}
		matched = append(matched, skill)
	}
	for _, kw := range prefs.Keywords {
		kwLower := strings.ToLower(kw)
		if lo.Contains(matched, kwLower) {
			continue
		}
		if strings.Contains(title, kwLower) {
			keywordPoints += w.KeywordInTitle
			matched = append(matched, kwLower)
		} else if strings.Contains(desc, kwLower) {
			keywordPoints += w.KeywordInDesc
			matched = append(matched, kwLower)
		}
	}
	keywordScore := min(w.KeywordCap, keywordPoints)
	score += keywordScore
	breakdown["keyword_match"] = keywordScore

	// AI relevance bonus.
	aiHits := 0
	for _, term := range aiTerms {
		if strings.Contains(combined, term) {
			aiHits++
		}
	}
	aiScore := 0
	switch {
	case aiHits >= 3:
		aiScore = 15
	case aiHits >= 2:
		aiScore = 10
	case aiHits >= 1:
		aiScore = 5
	}
	score += aiScore
	breakdown["ai_relevance"] = aiScore

	// Excluded keyword penalty, applied once.
	for _, excluded := range prefs.ExcludedKeywords {
		if excluded != "" && strings.Contains(combined, strings.ToLower(excluded)) {
			score -= w.ExcludedPenalty
			breakdown["excluded_penalty"] = -w.ExcludedPenalty
			break
		}
	}

	// Location match.
	prefLocation := strings.ToLower(prefs.Location)
	locationScore := 0
	switch {
	case prefLocation != "" && strings.Contains(location, prefLocation):
		locationScore = w.LocationExact
	case strings.Contains(location, "remote") || strings.Contains(location, "anywhere"):
		if prefs.RemoteOK {
			locationScore = w.LocationRemote
		} else {
			locationScore = w.LocationRemoteNo
		}
	case strings.Contains(location, "canada") || strings.Contains(location, "ontario"):
		locationScore = w.LocationCountry
	}
	score += locationScore
	breakdown["location_match"] = locationScore

	// Seniority fit, biased toward junior and entry roles.
	expScore := 10
	switch {
	case strings.Contains(title, "junior") || strings.Contains(title, "entry") || strings.Contains(title, "jr"):
		expScore = 15
	case strings.Contains(title, "intern"):
		expScore = 10
	case strings.Contains(title, "mid") || strings.Contains(combined, "3+") || strings.Contains(combined, "3 years"):
		expScore = 12
	case strings.Contains(title, "senior") || strings.Contains(combined, "5+") || strings.Contains(combined, "5 years"):
		expScore = 5
	case strings.Contains(title, "staff") || strings.Contains(title, "principal") || strings.Contains(title, "lead"):
		expScore = 3
	}
	score += expScore
	breakdown["experience_match"] = expScore

	// Description quality: substance plus recognizable stack.
	qualityScore := 0
	if len(job.Description) > 200 {
		qualityScore += 5
	}
	techHits := 0
	for _, tech := range descQualityTech {
		if strings.Contains(desc, tech) {
			techHits++
		}
	}
	qualityScore += min(10, techHits*3)
	score += qualityScore
	breakdown["description_quality"] = qualityScore

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return Result{Score: score, Breakdown: breakdown, Matched: matched}
}
