package models

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
	"time"
)

// User represents the candidate's profile information
type User struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	Location    string    `json:"location"`
	LinkedInURL string    `json:"linkedin_url"`
	GitHubURL   string    `json:"github_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Resume represents an uploaded resume and its extracted text
type Resume struct {
	ID          int       `json:"id"`
	UserID      int       `json:"user_id"`
	Name        string    `json:"name"`
	FilePath    string    `json:"file_path"`
	ContentText string    `json:"content_text"`
	IsPrimary   bool      `json:"is_primary"`
	CreatedAt   time.Time `json:"created_at"`
}

// Skill represents a candidate skill
type Skill struct {
	ID        int    `json:"id"`
	UserID    int    `json:"user_id"`
	SkillName string `json:"skill_name"`
	IsCore    bool   `json:"is_core"`
}

// Experience represents work experience, most recent first
type Experience struct {
	ID          int        `json:"id"`
	UserID      int        `json:"user_id"`
	Company     string     `json:"company"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	StartDate   time.Time  `json:"start_date"`
	EndDate     *time.Time `json:"end_date"` // nil for current positions
}

// Education represents a degree or program
type Education struct {
	ID     int    `json:"id"`
	UserID int    `json:"user_id"`
	School string `json:"school"`
	Degree string `json:"degree"`
	Dates  string `json:"dates"`
}

// CandidateProfile is the immutable snapshot of parsed resume data used by
// one application attempt. It is assembled from the profile store and
// referenced, never mutated, by the automation pipeline.
type CandidateProfile struct {
	User        *User
	Skills      []*Skill
	Experiences []*Experience
	Education   []*Education
	Resume      *Resume
}

// FirstName returns the leading token of the candidate's full name.
func (p *CandidateProfile) FirstName() string {
	parts := strings.Fields(p.User.Name)
	if len(parts) == 0 {
		return ""
	}
	return parts[0]
}

// LastName returns the trailing token of the candidate's full name, or empty
// when the name is a single token.
func (p *CandidateProfile) LastName() string {
	parts := strings.Fields(p.User.Name)
	if len(parts) < 2 {
		return ""
	}
	return parts[len(parts)-1]
}

// CurrentTitle returns the title of the most recent experience entry.
func (p *CandidateProfile) CurrentTitle() string {
	if len(p.Experiences) == 0 {
		return ""
	}
	return p.Experiences[0].Title
}

// CurrentCompany returns the company of the most recent experience entry.
func (p *CandidateProfile) CurrentCompany() string {
	if len(p.Experiences) == 0 {
		return ""
	}
	return p.Experiences[0].Company
}

// School returns the school of the first education entry.
func (p *CandidateProfile) School() string {
	if len(p.Education) == 0 {
		return ""
	}
	return p.Education[0].School
}

// Degree returns the degree of the first education entry.
func (p *CandidateProfile) Degree() string {
	if len(p.Education) == 0 {
		return ""
	}
	return p.Education[0].Degree
}

// SkillNames returns the skill names in stored order, core skills first.
func (p *CandidateProfile) SkillNames() []string {
	names := make([]string, 0, len(p.Skills))
	for _, s := range p.Skills {
		if s.IsCore {
			names = append(names, s.SkillName)
		}
	}
	for _, s := range p.Skills {
		if !s.IsCore {
			names = append(names, s.SkillName)
		}
	}
	return names
}

// Preferences represents search and auto-apply configuration. Mutable by the
// user, read-only to the pipeline during a run.
type Preferences struct {
	ID                   int      `json:"id"`
	UserID               int      `json:"user_id"`
	Keywords             []string `json:"keywords"`
	ExcludedKeywords     []string `json:"excluded_keywords"`
	Location             string   `json:"location"`
	RemoteOK             bool     `json:"remote_ok"`
	EnabledSources       []string `json:"enabled_sources"`
	AutoApplyEnabled     bool     `json:"auto_apply_enabled"`
	AutoApplyMinScore    int      `json:"auto_apply_min_score"`
	MaxDailyApplications int      `json:"max_daily_applications"`
}

// NormalizedJob is the source-agnostic posting every adapter produces.
// CanonicalURL is non-empty and stable across re-fetches of the same posting.
type NormalizedJob struct {
	Title        string     `json:"title"`
	Company      string     `json:"company"`
	Location     string     `json:"location"`
	CanonicalURL string     `json:"canonical_url"`
	Description  string     `json:"description"`
	SalaryMin    *float64   `json:"salary_min"`
	SalaryMax    *float64   `json:"salary_max"`
	JobType      string     `json:"job_type"`
	SourceName   string     `json:"source_name"`
	ExternalID   string     `json:"external_id"`
	PostedAt     *time.Time `json:"posted_at"`
}

// ScoredListing is a discovered job with a match score against the
// candidate. One row exists per (user, canonical URL); re-discovery is
// idempotent and never duplicates or rescores.
type ScoredListing struct {
	ID              int            `json:"id"`
	UserID          int            `json:"user_id"`
	Job             NormalizedJob  `json:"job"`
	MatchScore      int            `json:"match_score"`
	ScoreBreakdown  map[string]int `json:"score_breakdown"`
	MatchedKeywords []string       `json:"matched_keywords"`
	URLHash         string         `json:"url_hash"`
	Dismissed       bool           `json:"dismissed"`
	DiscoveredAt    time.Time      `json:"discovered_at"`
}

// Application statuses. An application is never deleted, only transitioned.
const (
	StatusQueued          = "queued"
	StatusGeneratingCover = "generating_cover"
	StatusApplying        = "applying"
	StatusApplied         = "applied"
	StatusFailed          = "failed"
)

// AutomationStep records one browser action taken during an application
// attempt, so a person can replay or finish the attempt manually.
type AutomationStep struct {
	Step      string    `json:"step"`
	Action    string    `json:"action"`
	Ref       string    `json:"ref,omitempty"`
	Result    string    `json:"result"`
	Timestamp time.Time `json:"timestamp"`
}

// Application tracks one attempt to apply to one ScoredListing
type Application struct {
	ID            int              `json:"id"`
	UserID        int              `json:"user_id"`
	ListingID     int              `json:"listing_id"`
	ResumeID      int              `json:"resume_id"`
	Status        string           `json:"status"`
	CoverLetter   string           `json:"cover_letter"`
	AppliedAt     *time.Time       `json:"applied_at"`
	AppliedVia    string           `json:"applied_via"`
	ErrorMessage  string           `json:"error_message"`
	RetryCount    int              `json:"retry_count"`
	AutomationLog []AutomationStep `json:"automation_log"`
	Notes         string           `json:"notes"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// DailySummary aggregates one day of automated search and application
// activity for a user.
type DailySummary struct {
	ID            int       `json:"id"`
	UserID        int       `json:"user_id"`
	Date          string    `json:"date"` // YYYY-MM-DD
	JobsFound     int       `json:"jobs_found"`
	Queued        int       `json:"queued"`
	Applied       int       `json:"applied"`
	Failed        int       `json:"failed"`
	HighScoreJobs int       `json:"high_score_jobs"`
	CreatedAt     time.Time `json:"created_at"`
}

// CanonicalURL normalizes a posting URL for deduplication: fragment and
// query are stripped, the host lowercased, trailing slashes removed.
// Unparseable input is returned trimmed so a hash can still be computed.
func CanonicalURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.TrimRight(raw, "/")
	}
	u.Fragment = ""
	u.RawQuery = ""
	u.Host = strings.ToLower(u.Host)
	return strings.TrimRight(u.String(), "/")
}

// URLHash returns the dedup key for a posting URL: the hex SHA-256 of its
// canonical form.
func URLHash(rawURL string) string {
	sum := sha256.Sum256([]byte(CanonicalURL(rawURL)))
	return hex.EncodeToString(sum[:])
}
