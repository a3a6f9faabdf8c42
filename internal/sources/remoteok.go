package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"

	"github.com/applypilot/applypilot/pkg/models"
)

const (
	remoteokAPI      = "https://remoteok.io/api"
	remoteokCacheKey = "dump"
	sourceCacheTTL   = 10 * time.Minute
)

// RemoteOK serves its whole board as one JSON dump, so the raw fetch is
// cached and every keyword search filters the cached dump.
type RemoteOK struct {
	http  HTTPClient
	cache *cache.Cache
}

var _ Source = (*RemoteOK)(nil)

func NewRemoteOK(httpClient HTTPClient) *RemoteOK {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	return &RemoteOK{
		http:  httpClient,
		cache: cache.New(sourceCacheTTL, sourceCacheTTL),
	}
}

func (r *RemoteOK) Name() string { return "remoteok" }

type remoteokJob struct {
	ID          json.Number `json:"id"`
	Position    string      `json:"position"`
	Company     string      `json:"company"`
	Location    string      `json:"location"`
	URL         string      `json:"url"`
	ApplyURL    string      `json:"apply_url"`
	Description string      `json:"description"`
	Tags        []string    `json:"tags"`
	SalaryMin   json.Number `json:"salary_min"`
	SalaryMax   json.Number `json:"salary_max"`
}

func (r *RemoteOK) fetchDump(ctx context.Context) ([]remoteokJob, error) {
	if cached, ok := r.cache.Get(remoteokCacheKey); ok {
		return cached.([]remoteokJob), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, remoteokAPI, nil)
	if err != nil {
		return nil, errors.Wrap(err, "building remoteok request")
	}
	req.Header.Set("User-Agent", browserUA)

	resp, err := r.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "fetching remoteok dump")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("remoteok returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading remoteok dump")
	}

	var raw []remoteokJob
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, errors.Wrap(err, "decoding remoteok dump")
	}

	// The first element is a legal notice, not a job.
	if len(raw) > 0 {
		raw = raw[1:]
	}
	r.cache.Set(remoteokCacheKey, raw, cache.DefaultExpiration)
	return raw, nil
}

func parseSalaryNumber(n json.Number) *float64 {
	s := strings.NewReplacer(",", "", "$", "").Replace(n.String())
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return nil
	}
	return &v
}

func (r *RemoteOK) Search(ctx context.Context, term, location string, limit int) ([]models.NormalizedJob, error) {
	dump, err := r.fetchDump(ctx)
	if err != nil {
		return nil, err
	}

	terms := searchTerms(term)
	var jobs []models.NormalizedJob
	for _, raw := range dump {
		searchable := strings.Join([]string{
			raw.Position,
			raw.Company,
			strings.Join(raw.Tags, " "),
			truncate(raw.Description, 500),
		}, " ")
		if !matchesAny(searchable, terms) {
			continue
		}

		url := raw.ApplyURL
		if url == "" {
			url = raw.URL
		}
		if url == "" {
			url = fmt.Sprintf("https://remoteok.io/remote-jobs/%s", raw.ID)
		}
		loc := raw.Location
		if loc == "" {
			loc = "Remote"
		}

		jobs = append(jobs, models.NormalizedJob{
			Title:        truncate(raw.Position, maxTitleLen),
			Company:      truncate(raw.Company, maxCompanyLen),
			Location:     truncate(loc, maxLocationLen),
			CanonicalURL: models.CanonicalURL(url),
			Description:  truncate(stripHTML(raw.Description), maxDescriptionLen),
			SalaryMin:    parseSalaryNumber(raw.SalaryMin),
			SalaryMax:    parseSalaryNumber(raw.SalaryMax),
			JobType:      "fulltime",
			SourceName:   r.Name(),
			ExternalID:   raw.ID.String(),
		})
		if len(jobs) >= limit {
			break
		}
	}
	return jobs, nil
}
