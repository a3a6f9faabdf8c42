package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/applypilot/applypilot/pkg/models"
)

const (
	hnAlgoliaAPI  = "https://hn.algolia.com/api/v1/search"
	hnFirebaseAPI = "https://hacker-news.firebaseio.com/v0/item/%d.json"

	hnCommentsCacheKey = "comments"
	hnMaxComments      = 200
	hnCommentFetchers  = 10
	hnMinCommentLen    = 20
)

// HNHiring mines the latest monthly "Ask HN: Who is hiring" thread. The
// thread is found through Algolia search and its comments come from the
// Firebase item API; both are free and unauthenticated. Comments are cached
// so a multi-keyword discovery run fetches the thread once.
type HNHiring struct {
	http  HTTPClient
	cache *cache.Cache
}

var _ Source = (*HNHiring)(nil)

func NewHNHiring(httpClient HTTPClient) *HNHiring {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	return &HNHiring{
		http:  httpClient,
		cache: cache.New(sourceCacheTTL, sourceCacheTTL),
	}
}

func (h *HNHiring) Name() string { return "hnhiring" }

type hnItem struct {
	ID      int    `json:"id"`
	Text    string `json:"text"`
	Kids    []int  `json:"kids"`
	Deleted bool   `json:"deleted"`
	Dead    bool   `json:"dead"`
}

func (h *HNHiring) getJSON(ctx context.Context, rawURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", browserUA)
	resp, err := h.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("GET %s returned %d", rawURL, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (h *HNHiring) latestThreadID(ctx context.Context) (int, error) {
	params := url.Values{}
	params.Set("query", `"Ask HN: Who is hiring"`)
	params.Set("tags", "story")
	params.Set("hitsPerPage", "5")

	var result struct {
		Hits []struct {
			ObjectID  string `json:"objectID"`
			CreatedAt int64  `json:"created_at_i"`
		} `json:"hits"`
	}
	if err := h.getJSON(ctx, hnAlgoliaAPI+"?"+params.Encode(), &result); err != nil {
		return 0, errors.Wrap(err, "searching for hiring thread")
	}
	if len(result.Hits) == 0 {
		return 0, errors.New("no who-is-hiring thread found")
	}

	sort.Slice(result.Hits, func(i, j int) bool {
		return result.Hits[i].CreatedAt > result.Hits[j].CreatedAt
	})
	return strconv.Atoi(result.Hits[0].ObjectID)
}

// fetchComments pulls the top-level comments of the latest thread through a
// bounded worker pool. Deleted and dead comments are dropped.
func (h *HNHiring) fetchComments(ctx context.Context) ([]hnItem, error) {
	if cached, ok := h.cache.Get(hnCommentsCacheKey); ok {
		return cached.([]hnItem), nil
	}

	threadID, err := h.latestThreadID(ctx)
	if err != nil {
		return nil, err
	}

	var thread hnItem
	if err := h.getJSON(ctx, fmt.Sprintf(hnFirebaseAPI, threadID), &thread); err != nil {
		return nil, errors.Wrap(err, "fetching hiring thread")
	}
	if len(thread.Kids) == 0 {
		return nil, errors.New("hiring thread has no comments")
	}

	ids := thread.Kids
	if len(ids) > hnMaxComments {
		ids = ids[:hnMaxComments]
	}

	var (
		mu       sync.Mutex
		comments []hnItem
		wg       sync.WaitGroup
		workers  = make(chan struct{}, hnCommentFetchers)
	)
	for _, id := range ids {
		wg.Add(1)
		workers <- struct{}{}
		go func(id int) {
			defer wg.Done()
			defer func() { <-workers }()
			var item hnItem
			if err := h.getJSON(ctx, fmt.Sprintf(hnFirebaseAPI, id), &item); err != nil {
				return
			}
			if item.Deleted || item.Dead || item.Text == "" {
				return
			}
			mu.Lock()
			comments = append(comments, item)
			mu.Unlock()
		}(id)
	}
	wg.Wait()

	h.cache.Set(hnCommentsCacheKey, comments, cache.DefaultExpiration)
	return comments, nil
}

var (
	urlRe          = regexp.MustCompile(`https?://\S+`)
	salaryRangeRe  = regexp.MustCompile(`\$[\d,]+[kK]?\s*[-\x{2013}]\s*\$[\d,]+[kK]?`)
	salaryAmountRe = regexp.MustCompile(`\$(\d{2,3}),?(\d{3})?\s*[kK]?\s*(?:[-\x{2013}]|to)+\s*\$(\d{2,3}),?(\d{3})?\s*[kK]?`)
	locationHintRe = regexp.MustCompile(`(?i)(remote|onsite|hybrid|NYC|SF|Toronto|Canada|USA|EU|Berlin|London)`)
	stateCodeRe    = regexp.MustCompile(`\b[A-Z]{2}\b`)
	companyURLRe   = regexp.MustCompile(`\s*\(?\s*https?://\S+\s*\)?\s*`)
)

// parseSalaryRange reads "$120k-$180k" or "$120,000 - $180,000" style
// ranges. Bare two-or-three digit amounts are treated as thousands.
func parseSalaryRange(text string) (*float64, *float64) {
	m := salaryAmountRe.FindStringSubmatch(text)
	if m == nil {
		return nil, nil
	}
	min, _ := strconv.ParseFloat(m[1]+m[2], 64)
	max, _ := strconv.ParseFloat(m[3]+m[4], 64)
	if min < 1000 {
		min *= 1000
	}
	if max < 1000 {
		max *= 1000
	}
	return &min, &max
}

// parseHiringComment reads the conventional pipe-delimited first line:
//
//	Company Name | City, State (Remote) | Role Title | $Xk-$Yk | https://...
//
// Segments after the company are classified in order: URL, salary range,
// location hint, else the first unclaimed segment is the title. Comments too
// short to be a posting are discarded.
func parseHiringComment(item hnItem) (models.NormalizedJob, bool) {
	text := stripHTMLLines(item.Text)
	if len(text) < hnMinCommentLen {
		return models.NormalizedJob{}, false
	}

	lines := strings.Split(text, "\n")
	parts := lo.Map(strings.Split(lines[0], "|"), func(p string, _ int) string {
		return strings.TrimSpace(p)
	})

	var company, location, title, salary, jobURL string
	if len(parts) >= 2 {
		company = parts[0]
		for _, part := range parts[1:] {
			if m := urlRe.FindString(part); m != "" {
				jobURL = strings.TrimRight(m, ")")
				continue
			}
			if m := salaryRangeRe.FindString(part); m != "" {
				salary = m
				continue
			}
			if locationHintRe.MatchString(part) {
				location = part
				continue
			}
			if stateCodeRe.MatchString(part) && len(part) < 40 {
				location = part
				continue
			}
			if title == "" {
				title = part
			}
		}
	} else {
		company = truncate(lines[0], 100)
	}

	if jobURL == "" {
		if m := urlRe.FindString(text); m != "" {
			jobURL = strings.TrimRight(m, ")")
		}
	}
	// Postings often put their URL in the company segment.
	if m := companyURLRe.FindString(company); m != "" {
		if jobURL == "" {
			jobURL = strings.TrimRight(urlRe.FindString(m), ")")
		}
		company = strings.TrimSpace(companyURLRe.ReplaceAllString(company, " "))
	}
	if jobURL == "" {
		// Canonicalization strips query strings, so the id rides in the path.
		jobURL = fmt.Sprintf("https://news.ycombinator.com/item/%d", item.ID)
	}

	description := strings.TrimSpace(strings.Join(lines[1:], "\n"))
	if company == "" || (title == "" && description == "") {
		return models.NormalizedJob{}, false
	}
	if title == "" {
		title = "See Description"
	}

	salarySource := salary
	if salarySource == "" {
		salarySource = text
	}
	min, max := parseSalaryRange(salarySource)

	return models.NormalizedJob{
		Title:        truncate(title, maxTitleLen),
		Company:      truncate(company, maxCompanyLen),
		Location:     truncate(location, maxLocationLen),
		CanonicalURL: models.CanonicalURL(jobURL),
		Description:  truncate(description, maxDescriptionLen),
		SalaryMin:    min,
		SalaryMax:    max,
		SourceName:   "hnhiring",
		ExternalID:   strconv.Itoa(item.ID),
	}, true
}

// stripHTMLLines is stripHTML preserving paragraph breaks, which the
// first-line parser depends on.
func stripHTMLLines(html string) string {
	html = strings.ReplaceAll(html, "<p>", "\n")
	html = strings.ReplaceAll(html, "<br>", "\n")
	html = strings.ReplaceAll(html, "<br/>", "\n")
	text := tagRe.ReplaceAllString(html, " ")
	text = entities.Replace(text)
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(spaceRe.ReplaceAllString(line, " "))
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func (h *HNHiring) Search(ctx context.Context, term, location string, limit int) ([]models.NormalizedJob, error) {
	comments, err := h.fetchComments(ctx)
	if err != nil {
		return nil, err
	}

	terms := searchTerms(term)
	var jobs []models.NormalizedJob
	for _, item := range comments {
		job, ok := parseHiringComment(item)
		if !ok {
			continue
		}
		combined := job.Title + " " + job.Company + " " + job.Description
		if !matchesAny(combined, terms) {
			continue
		}
		if location != "" {
			loc := strings.ToLower(location)
			jobLoc := strings.ToLower(job.Location)
			jobDesc := strings.ToLower(job.Description)
			if !strings.Contains(jobLoc, loc) && !strings.Contains(jobDesc, loc) &&
				!strings.Contains(jobLoc, "remote") && !strings.Contains(jobDesc, "remote") {
				continue
			}
		}
		jobs = append(jobs, job)
		if len(jobs) >= limit {
			break
		}
	}
	return jobs, nil
}
