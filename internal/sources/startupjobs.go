package sources

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/applypilot/applypilot/internal/browser"
	"github.com/applypilot/applypilot/pkg/models"
)

// StartupJobs scrapes startup.jobs through the browser session, since the
// board renders client-side and has no public API. The session is started
// and stopped per search.
type StartupJobs struct {
	session browser.Session
}

var _ Source = (*StartupJobs)(nil)

func NewStartupJobs(session browser.Session) *StartupJobs {
	return &StartupJobs{session: session}
}

func (s *StartupJobs) Name() string { return "startupjobs" }

var blockPhrases = []string{
	"verify you are human",
	"checking your browser",
	"access denied",
	"are you a robot",
}

// Listing links carry the role slug and a numeric id, e.g.
// /backend-engineer-acme-4821.
var startupJobLinkRe = regexp.MustCompile(`^(.+?)\s+at\s+(.+?)(?:\s+[-\x{2013}]\s+(.+))?$`)

func (s *StartupJobs) Search(ctx context.Context, term, location string, limit int) ([]models.NormalizedJob, error) {
	if err := s.session.Start(ctx); err != nil {
		return nil, err
	}
	defer s.session.Stop()

	searchURL := fmt.Sprintf("https://startup.jobs/?q=%s&remote=true", url.QueryEscape(term))
	if err := s.session.Navigate(ctx, searchURL, 30*time.Second); err != nil {
		return nil, err
	}
	browser.Settle(2*time.Second, 4*time.Second)

	snap, err := s.session.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	lowered := strings.ToLower(snap.Text)
	for _, phrase := range blockPhrases {
		if strings.Contains(lowered, phrase) {
			return nil, errors.New("startup.jobs served a bot-check page")
		}
	}

	terms := searchTerms(term)
	var jobs []models.NormalizedJob
	seen := map[string]bool{}
	for _, el := range snap.Elements {
		if el.Role != "button" {
			continue
		}
		m := startupJobLinkRe.FindStringSubmatch(strings.TrimSpace(el.Label))
		if m == nil {
			continue
		}
		title, company, loc := m[1], m[2], m[3]
		if !matchesAny(title+" "+company, terms) {
			continue
		}
		jobURL := startupJobURL(title, company)
		if seen[jobURL] {
			continue
		}
		seen[jobURL] = true

		jobs = append(jobs, models.NormalizedJob{
			Title:        truncate(title, maxTitleLen),
			Company:      truncate(company, maxCompanyLen),
			Location:     truncate(loc, maxLocationLen),
			CanonicalURL: models.CanonicalURL(jobURL),
			SourceName:   s.Name(),
		})
		if len(jobs) >= limit {
			break
		}
	}
	return jobs, nil
}

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

// startupJobURL synthesizes a stable listing URL from the card contents.
// Snapshot refs are ephemeral, so the slug form keeps dedup meaningful
// across runs.
func startupJobURL(title, company string) string {
	slug := func(s string) string {
		s = strings.ToLower(strings.TrimSpace(s))
		return strings.Trim(slugRe.ReplaceAllString(s, "-"), "-")
	}
	return fmt.Sprintf("https://startup.jobs/%s-%s", slug(title), slug(company))
}
