// Package sources aggregates job listings from external boards and APIs
// into the normalized listing shape. Each adapter owns its upstream quirks;
// the aggregator owns fan-out, rate limiting, and partial-failure handling.
package sources

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/applypilot/applypilot/internal/app"
	"github.com/applypilot/applypilot/internal/logger"
	"github.com/applypilot/applypilot/pkg/models"
)

const (
	requestTimeout = 20 * time.Second
	browserUA      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	maxTitleLen       = 500
	maxCompanyLen     = 300
	maxLocationLen    = 300
	maxDescriptionLen = 2000
)

// Source is one job board adapter. Search returns normalized listings
// matching the term; adapters never return partial results with an error.
type Source interface {
	Name() string
	Search(ctx context.Context, term, location string, limit int) ([]models.NormalizedJob, error)
}

// HTTPClient lets tests substitute the transport.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// searchTerms splits a query into lowercase tokens worth matching on.
// Tokens of one or two characters match everything and are dropped.
func searchTerms(term string) []string {
	var out []string
	for _, t := range strings.Fields(strings.ToLower(term)) {
		if len(t) > 2 {
			out = append(out, t)
		}
	}
	return out
}

func matchesAny(haystack string, terms []string) bool {
	haystack = strings.ToLower(haystack)
	for _, t := range terms {
		if strings.Contains(haystack, t) {
			return true
		}
	}
	return false
}

var (
	tagRe    = regexp.MustCompile(`<[^>]*>`)
	spaceRe  = regexp.MustCompile(`\s+`)
	entities = strings.NewReplacer(
		"&amp;", "&", "&lt;", "<", "&gt;", ">",
		"&quot;", `"`, "&#39;", "'", "&nbsp;", " ",
	)
)

// stripHTML flattens markup into plain text. Board descriptions arrive as
// HTML fragments, not documents, so tag removal plus entity decoding is
// enough.
func stripHTML(html string) string {
	text := tagRe.ReplaceAllString(html, " ")
	text = entities.Replace(text)
	return strings.TrimSpace(spaceRe.ReplaceAllString(text, " "))
}

func decodeJSON(r io.Reader, out interface{}) error {
	return json.NewDecoder(r).Decode(out)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

// Aggregator fans search terms across enabled sources through a bounded
// worker pool. One slow or broken board must never sink a discovery run, so
// failures are collected per source and returned alongside whatever the
// healthy boards produced.
type Aggregator struct {
	sources  []Source
	limiters map[string]*rate.Limiter
	log      *logrus.Entry
}

const maxConcurrentSearches = 10

// NewAggregator wires the enabled sources with a shared per-source rate
// limit. ratePerMinute <= 0 disables limiting.
func NewAggregator(srcs []Source, ratePerMinute int) *Aggregator {
	limiters := make(map[string]*rate.Limiter, len(srcs))
	for _, s := range srcs {
		if ratePerMinute > 0 {
			limiters[s.Name()] = rate.NewLimiter(rate.Every(time.Minute/time.Duration(ratePerMinute)), 1)
		}
	}
	return &Aggregator{
		sources:  srcs,
		limiters: limiters,
		log:      logrus.WithField("component", "aggregator"),
	}
}

// SearchAll runs every term against every source and merges the results.
// Returned SourceErrors identify which boards failed; the job slice is
// whatever succeeded.
func (a *Aggregator) SearchAll(ctx context.Context, terms []string, location string, limitPerSource int) ([]models.NormalizedJob, []*app.SourceError) {
	type task struct {
		src  Source
		term string
	}
	var tasks []task
	for _, s := range a.sources {
		for _, term := range terms {
			tasks = append(tasks, task{src: s, term: term})
		}
	}

	var (
		mu      sync.Mutex
		jobs    []models.NormalizedJob
		errs    []*app.SourceError
		wg      sync.WaitGroup
		workers = make(chan struct{}, maxConcurrentSearches)
	)

	for _, t := range tasks {
		wg.Add(1)
		workers <- struct{}{}
		go func(t task) {
			defer wg.Done()
			defer func() { <-workers }()

			if lim := a.limiters[t.src.Name()]; lim != nil {
				if err := lim.Wait(ctx); err != nil {
					mu.Lock()
					errs = append(errs, &app.SourceError{Source: t.src.Name(), Err: err})
					mu.Unlock()
					return
				}
			}

			found, err := t.src.Search(ctx, t.term, location, limitPerSource)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				a.log.WithFields(logrus.Fields{
					logger.ErrorTypeField: logger.ErrorTypeSource,
					"source":              t.src.Name(),
					"term":                t.term,
				}).WithError(err).Warn("source search failed")
				errs = append(errs, &app.SourceError{Source: t.src.Name(), Err: err})
				return
			}
			jobs = append(jobs, found...)
		}(t)
	}
	wg.Wait()

	a.log.WithFields(logrus.Fields{
		"jobs":    len(jobs),
		"errors":  len(errs),
		"sources": len(a.sources),
		"terms":   len(terms),
	}).Info("discovery fan-out complete")
	return jobs, errs
}
