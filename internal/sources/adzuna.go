package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/applypilot/applypilot/pkg/models"
)

const (
	adzunaBaseURL  = "https://api.adzuna.com/v1/api/jobs"
	adzunaPageSize = 50
	adzunaMaxPages = 3
)

// Adzuna queries the Adzuna public search API. Missing credentials degrade
// to an empty result rather than an error so the board can stay in the
// enabled set without an account.
type Adzuna struct {
	appID   string
	appKey  string
	country string
	http    HTTPClient
}

var _ Source = (*Adzuna)(nil)

func NewAdzuna(appID, appKey, country string, httpClient HTTPClient) *Adzuna {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	if country == "" {
		country = "us"
	}
	return &Adzuna{appID: appID, appKey: appKey, country: country, http: httpClient}
}

func (a *Adzuna) Name() string { return "adzuna" }

type adzunaResponse struct {
	Results []struct {
		ID          string  `json:"id"`
		Title       string  `json:"title"`
		Description string  `json:"description"`
		SalaryMin   float64 `json:"salary_min"`
		SalaryMax   float64 `json:"salary_max"`
		RedirectURL string  `json:"redirect_url"`
		Created     string  `json:"created"`
		Company     struct {
			DisplayName string `json:"display_name"`
		} `json:"company"`
		Location struct {
			DisplayName string `json:"display_name"`
		} `json:"location"`
		ContractTime string `json:"contract_time"`
	} `json:"results"`
}

func (a *Adzuna) Search(ctx context.Context, term, location string, limit int) ([]models.NormalizedJob, error) {
	if a.appID == "" || a.appKey == "" {
		logrus.WithField("source", a.Name()).Debug("credentials not set, skipping")
		return nil, nil
	}

	var jobs []models.NormalizedJob
	for page := 1; page <= adzunaMaxPages && len(jobs) < limit; page++ {
		batch, err := a.fetchPage(ctx, term, location, page)
		if err != nil {
			return jobs, errors.Wrapf(err, "page %d", page)
		}
		if len(batch) == 0 {
			break
		}
		jobs = append(jobs, batch...)
		if len(batch) < adzunaPageSize {
			break
		}
	}
	if len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

func (a *Adzuna) fetchPage(ctx context.Context, term, location string, page int) ([]models.NormalizedJob, error) {
	params := url.Values{}
	params.Set("app_id", a.appID)
	params.Set("app_key", a.appKey)
	params.Set("results_per_page", strconv.Itoa(adzunaPageSize))
	params.Set("what", term)
	params.Set("where", location)
	params.Set("content-type", "application/json")
	params.Set("sort_by", "date")

	endpoint := fmt.Sprintf("%s/%s/search/%d?%s", adzunaBaseURL, a.country, page, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "adzuna request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("adzuna returned %d", resp.StatusCode)
	}

	var apiResp adzunaResponse
	if err := decodeJSON(resp.Body, &apiResp); err != nil {
		return nil, errors.Wrap(err, "decoding adzuna response")
	}

	jobs := make([]models.NormalizedJob, 0, len(apiResp.Results))
	for _, r := range apiResp.Results {
		job := models.NormalizedJob{
			Title:        truncate(r.Title, maxTitleLen),
			Company:      truncate(r.Company.DisplayName, maxCompanyLen),
			Location:     truncate(r.Location.DisplayName, maxLocationLen),
			CanonicalURL: models.CanonicalURL(r.RedirectURL),
			Description:  truncate(stripHTML(r.Description), maxDescriptionLen),
			JobType:      normalizeContractTime(r.ContractTime),
			SourceName:   a.Name(),
			ExternalID:   r.ID,
		}
		if r.SalaryMin > 0 {
			v := r.SalaryMin
			job.SalaryMin = &v
		}
		if r.SalaryMax > 0 {
			v := r.SalaryMax
			job.SalaryMax = &v
		}
		if t, err := time.Parse(time.RFC3339, r.Created); err == nil {
			job.PostedAt = &t
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func normalizeContractTime(ct string) string {
	switch strings.ToLower(ct) {
	case "full_time":
		return "fulltime"
	case "part_time":
		return "parttime"
	default:
		return ct
	}
}
