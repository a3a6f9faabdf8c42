// Package orchestrator drives the full pipeline: discover listings, score
// them, queue applications, and work the queue through the browser.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/applypilot/applypilot/internal/app"
	"github.com/applypilot/applypilot/internal/ats"
	"github.com/applypilot/applypilot/internal/browser"
	"github.com/applypilot/applypilot/internal/config"
	"github.com/applypilot/applypilot/internal/database"
	"github.com/applypilot/applypilot/internal/logger"
	"github.com/applypilot/applypilot/internal/scoring"
	"github.com/applypilot/applypilot/internal/sources"
	"github.com/applypilot/applypilot/pkg/models"
)

// maxRetries bounds attempts per application before it is marked failed
// and left for manual followup.
const maxRetries = 2

// Searcher is what Discover needs from the source aggregator.
type Searcher interface {
	SearchAll(ctx context.Context, terms []string, location string, limitPerSource int) ([]models.NormalizedJob, []*app.SourceError)
}

// Applier is what ProcessQueue needs from the ATS engine.
type Applier interface {
	Apply(ctx context.Context, req ats.Request) (*ats.Result, error)
}

// CoverWriter generates a cover letter for one listing.
type CoverWriter interface {
	GenerateCoverLetter(ctx context.Context, profile *models.CandidateProfile, job models.NormalizedJob) (string, error)
}

// Orchestrator owns one user's pipeline. Applications are processed one at
// a time; the browser session does not survive concurrent use.
type Orchestrator struct {
	cfg      *config.Config
	searcher Searcher
	applier  Applier
	cover    CoverWriter
	scorer   *scoring.Scorer
	log      *logrus.Entry
}

func New(cfg *config.Config, searcher Searcher, applier Applier, cover CoverWriter) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		searcher: searcher,
		applier:  applier,
		cover:    cover,
		scorer:   scoring.NewScorer(scoring.WeightsFromConfig(cfg.ScoringWeights)),
		log:      logrus.WithField("component", "orchestrator"),
	}
}

// DiscoverResult summarizes one discovery pass.
type DiscoverResult struct {
	Found     int
	New       int
	HighScore int
	Queued    int
	Errors    []*app.SourceError
}

// Discover pulls fresh postings from every enabled board, scores them
// against the profile, and stores the new ones. When auto-apply is on,
// listings at or above the threshold are queued immediately.
func (o *Orchestrator) Discover(ctx context.Context) (*DiscoverResult, error) {
	profile, err := database.GetCandidateProfile()
	if err != nil {
		return nil, err
	}
	prefs, err := database.GetPreferences(profile.User.ID)
	if err != nil {
		return nil, err
	}
	if len(prefs.Keywords) == 0 {
		return nil, errors.Wrap(app.ErrInvalidArgument, "no search keywords configured")
	}

	jobs, srcErrs := o.searcher.SearchAll(ctx, prefs.Keywords, prefs.Location, 100)
	for _, e := range srcErrs {
		o.log.WithField("source", e.Source).Warn(e.Err)
	}

	res := &DiscoverResult{Found: len(jobs), Errors: srcErrs}
	skills := profile.SkillNames()

	for _, job := range jobs {
		scored := o.scorer.Score(job, skills, *prefs)
		listing := &models.ScoredListing{
			UserID:          profile.User.ID,
			Job:             job,
			MatchScore:      scored.Score,
			ScoreBreakdown:  scored.Breakdown,
			MatchedKeywords: scored.Matched,
		}

		created, err := database.UpsertListing(listing)
		if err != nil {
			o.log.WithField("url", job.CanonicalURL).Warn(err)
			continue
		}
		if !created {
			continue
		}

		res.New++
		if listing.MatchScore >= prefs.AutoApplyMinScore {
			res.HighScore++
			if prefs.AutoApplyEnabled {
				if err := o.Queue(profile.User.ID, listing.ID); err == nil {
					res.Queued++
				}
			}
		}
	}

	o.log.WithFields(logrus.Fields{
		"found": res.Found, "new": res.New, "queued": res.Queued,
	}).Info("discovery finished")
	return res, nil
}

// Queue creates a queued application for the listing. Queueing the same
// listing twice is a no-op.
func (o *Orchestrator) Queue(userID, listingID int) error {
	err := database.CreateApplication(&models.Application{
		UserID:    userID,
		ListingID: listingID,
	})
	if errors.Is(err, app.ErrDuplicateURL) {
		return nil
	}
	return err
}

// Retry re-queues a failed application, incrementing its retry count. Only
// failed applications can re-enter the queue this way.
func (o *Orchestrator) Retry(applicationID int) error {
	application, err := database.GetApplication(applicationID)
	if err != nil {
		return err
	}
	if application.Status != models.StatusFailed {
		return errors.Wrapf(app.ErrInvalidArgument, "application %d is %s, not failed", applicationID, application.Status)
	}
	if err := database.IncrementRetryCount(applicationID); err != nil {
		return err
	}
	return database.UpdateApplicationStatus(applicationID, models.StatusQueued, "")
}

// QueueResult summarizes one pass over the application queue.
type QueueResult struct {
	Processed int
	Applied   int
	Failed    int
	Requeued  int
}

// ProcessQueue works queued applications until the queue is empty or the
// daily cap is hit. Each application moves queued -> generating_cover ->
// applying -> applied or failed; a cover letter failure never blocks the
// application itself.
func (o *Orchestrator) ProcessQueue(ctx context.Context) (*QueueResult, error) {
	profile, err := database.GetCandidateProfile()
	if err != nil {
		return nil, err
	}
	prefs, err := database.GetPreferences(profile.User.ID)
	if err != nil {
		return nil, err
	}

	queued, err := database.ListApplicationsByStatus(profile.User.ID, models.StatusQueued)
	if err != nil {
		return nil, err
	}

	res := &QueueResult{}
	for _, application := range queued {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		capped, err := o.dailyCapReached(profile.User.ID, prefs.MaxDailyApplications)
		if err != nil {
			return res, err
		}
		if capped {
			o.log.WithField("cap", prefs.MaxDailyApplications).Info("daily application cap reached")
			return res, app.ErrDailyCapReached
		}

		res.Processed++
		switch o.processOne(ctx, profile, application) {
		case models.StatusApplied:
			res.Applied++
		case models.StatusFailed:
			res.Failed++
		default:
			res.Requeued++
		}
	}
	return res, nil
}

func (o *Orchestrator) dailyCapReached(userID, cap int) (bool, error) {
	if cap <= 0 {
		return false, nil
	}
	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	count, err := database.CountAppliedSince(userID, midnight)
	if err != nil {
		return false, err
	}
	return count >= cap, nil
}

// processOne runs the state machine for a single application and returns
// the status it ended in.
func (o *Orchestrator) processOne(ctx context.Context, profile *models.CandidateProfile, application *models.Application) (status string) {
	log := o.log.WithField("application_id", application.ID)

	// A panic inside the browser stack must not kill the queue. The form
	// may already have reached the employer, so the attempt is recorded as
	// applied via manual rather than failed: a false failure would invite
	// a duplicate submission to the same company.
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("unexpected automation failure: %v", r)
			_ = database.MarkAppliedManual(application.ID,
				fmt.Sprintf("automation stopped unexpectedly (%v) - confirm or finish manually", r), nil)
			status = models.StatusApplied
		}
	}()

	listing, err := database.GetListing(application.ListingID)
	if err != nil {
		_ = database.MarkFailed(application.ID, "listing missing: "+err.Error(), nil)
		return models.StatusFailed
	}

	coverLetter := o.generateCover(ctx, application, profile, listing)

	_ = database.UpdateApplicationStatus(application.ID, models.StatusApplying, "")

	req := ats.Request{
		JobURL:      listing.Job.CanonicalURL,
		Profile:     profile,
		CoverLetter: coverLetter,
	}
	if profile.Resume != nil {
		req.ResumePath = profile.Resume.FilePath
	}

	result, err := o.applier.Apply(ctx, req)
	if result == nil {
		result = &ats.Result{Method: "none"}
	}

	if result.Success {
		_ = database.MarkApplied(application.ID, result.Method, result.Log, result.Notes)
		log.WithField("method", result.Method).Info("applied")
		return models.StatusApplied
	}

	return o.recordFailure(application, result, err)
}

func (o *Orchestrator) generateCover(ctx context.Context, application *models.Application, profile *models.CandidateProfile, listing *models.ScoredListing) string {
	if application.CoverLetter != "" {
		return application.CoverLetter
	}
	if o.cover == nil {
		return ""
	}

	_ = database.UpdateApplicationStatus(application.ID, models.StatusGeneratingCover, "")
	letter, err := o.cover.GenerateCoverLetter(ctx, profile, listing.Job)
	if err != nil {
		o.log.WithField("application_id", application.ID).
			WithField(logger.ErrorTypeField, logger.ErrorTypeAiApi).Warn(err)
		return ""
	}
	_ = database.SaveCoverLetter(application.ID, letter)
	return letter
}

// recordFailure decides between retry and terminal failure. Login walls
// and unsupported vendors never retry; transient errors get one more run.
func (o *Orchestrator) recordFailure(application *models.Application, result *ats.Result, err error) string {
	msg := "application did not complete"
	if err != nil {
		msg = err.Error()
	}

	var unsupported *app.UnsupportedATSError
	terminal := errors.Is(err, app.ErrRequiresLogin) || errors.As(err, &unsupported)

	if !terminal && application.RetryCount+1 < maxRetries {
		_ = database.IncrementRetryCount(application.ID)
		_ = database.UpdateApplicationStatus(application.ID, models.StatusQueued, msg)
		return models.StatusQueued
	}

	_ = database.MarkFailed(application.ID, msg, result.Log)
	return models.StatusFailed
}

// RunDaily is one scheduled cycle: discover, work the queue, record the
// day's summary. The daily cap ends the queue pass without failing the
// cycle.
func (o *Orchestrator) RunDaily(ctx context.Context) (*models.DailySummary, error) {
	profile, err := database.GetCandidateProfile()
	if err != nil {
		return nil, err
	}

	discover, err := o.Discover(ctx)
	if err != nil {
		return nil, err
	}

	queue, err := o.ProcessQueue(ctx)
	if err != nil && !errors.Is(err, app.ErrDailyCapReached) {
		return nil, err
	}
	if queue == nil {
		queue = &QueueResult{}
	}

	summary := &models.DailySummary{
		UserID:        profile.User.ID,
		Date:          time.Now().Format("2006-01-02"),
		JobsFound:     discover.Found,
		Queued:        discover.Queued,
		Applied:       queue.Applied,
		Failed:        queue.Failed,
		HighScoreJobs: discover.HighScore,
	}
	if err := database.UpsertDailySummary(summary); err != nil {
		return nil, err
	}
	return summary, nil
}

// BuildSources assembles the enabled board adapters. An empty enabled list
// means all of them. A nil session skips boards that need a browser.
func BuildSources(cfg *config.Config, httpClient sources.HTTPClient, session browser.Session, enabled []string) []sources.Source {
	all := []sources.Source{
		sources.NewRemoteOK(httpClient),
		sources.NewHNHiring(httpClient),
		sources.NewAdzuna(cfg.AdzunaAppID, cfg.AdzunaAppKey, cfg.AdzunaCountry, httpClient),
	}
	if session != nil {
		all = append(all, sources.NewStartupJobs(session))
	}
	if len(enabled) == 0 {
		return all
	}
	return lo.Filter(all, func(s sources.Source, _ int) bool {
		return lo.Contains(enabled, s.Name())
	})
}
