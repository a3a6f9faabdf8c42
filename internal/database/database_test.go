package database

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/applypilot/applypilot/internal/app"
	"github.com/applypilot/applypilot/pkg/models"
)

func createTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	require.NoError(t, err)

	require.NoError(t, RunMigrations(db))
	return db
}

func setupTest(t *testing.T) {
	t.Helper()
	db := createTestDB(t)
	oldDB := DB
	DB = db
	t.Cleanup(func() {
		DB = oldDB
		db.Close()
	})
}

func createTestUser(t *testing.T) *models.User {
	t.Helper()
	user := &models.User{Name: "Ada Lovelace", Email: "ada@example.com", Location: "London"}
	require.NoError(t, CreateUser(user))
	return user
}

func testListing(userID int, url string, score int) *models.ScoredListing {
	return &models.ScoredListing{
		UserID: userID,
		Job: models.NormalizedJob{
			Title:        "Backend Engineer",
			Company:      "Acme",
			Location:     "Remote",
			CanonicalURL: models.CanonicalURL(url),
			SourceName:   "remoteok",
		},
		MatchScore: score,
	}
}

func TestCandidateProfileAssembly(t *testing.T) {
	setupTest(t)
	user := createTestUser(t)

	require.NoError(t, CreateSkill(&models.Skill{UserID: user.ID, SkillName: "SQL"}))
	require.NoError(t, CreateSkill(&models.Skill{UserID: user.ID, SkillName: "Go", IsCore: true}))
	require.NoError(t, CreateExperience(&models.Experience{
		UserID: user.ID, Company: "Analytical Engines", Title: "Engineer",
		StartDate: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, CreateEducation(&models.Education{
		UserID: user.ID, School: "University of London", Degree: "BSc Mathematics",
	}))
	require.NoError(t, CreateResume(&models.Resume{
		UserID: user.ID, Name: "main", FilePath: "/tmp/resume.pdf", IsPrimary: true,
	}))

	profile, err := GetCandidateProfile()
	require.NoError(t, err)

	assert.Equal(t, "Ada Lovelace", profile.User.Name)
	assert.Equal(t, []string{"Go", "SQL"}, profile.SkillNames())
	assert.Equal(t, "Analytical Engines", profile.CurrentCompany())
	assert.Equal(t, "University of London", profile.School())
	require.NotNil(t, profile.Resume)
	assert.Equal(t, "/tmp/resume.pdf", profile.Resume.FilePath)
}

func TestGetUserNoProfile(t *testing.T) {
	setupTest(t)

	_, err := GetUser()
	assert.ErrorIs(t, err, app.ErrNoProfile)
}

func TestPrimaryResumeExclusive(t *testing.T) {
	setupTest(t)
	user := createTestUser(t)

	first := &models.Resume{UserID: user.ID, Name: "old", FilePath: "/tmp/old.pdf", IsPrimary: true}
	require.NoError(t, CreateResume(first))
	second := &models.Resume{UserID: user.ID, Name: "new", FilePath: "/tmp/new.pdf", IsPrimary: true}
	require.NoError(t, CreateResume(second))

	primary, err := GetPrimaryResume(user.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, primary.ID)

	require.NoError(t, SetPrimaryResume(user.ID, first.ID))
	primary, err = GetPrimaryResume(user.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, primary.ID)
}

func TestUpsertListingDeduplicates(t *testing.T) {
	setupTest(t)
	user := createTestUser(t)

	first := testListing(user.ID, "https://example.com/jobs/123?utm_source=feed", 80)
	created, err := UpsertListing(first)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotZero(t, first.ID)

	// Same posting found again through a different source with a different
	// score. The original row and score must survive untouched.
	second := testListing(user.ID, "https://EXAMPLE.com/jobs/123#apply", 55)
	second.Job.SourceName = "hnhiring"
	created, err = UpsertListing(second)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 80, second.MatchScore)
	assert.Equal(t, "remoteok", second.Job.SourceName)

	listings, err := ListListings(user.ID, 0)
	require.NoError(t, err)
	assert.Len(t, listings, 1)
}

func TestListListingsFiltersAndOrders(t *testing.T) {
	setupTest(t)
	user := createTestUser(t)

	for i, score := range []int{40, 90, 75} {
		l := testListing(user.ID, fmt.Sprintf("https://example.com/jobs/%d", i), score)
		_, err := UpsertListing(l)
		require.NoError(t, err)
	}

	dismissed := testListing(user.ID, "https://example.com/jobs/dismissed", 95)
	_, err := UpsertListing(dismissed)
	require.NoError(t, err)
	require.NoError(t, DismissListing(dismissed.ID))

	listings, err := ListListings(user.ID, 70)
	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.Equal(t, 90, listings[0].MatchScore)
	assert.Equal(t, 75, listings[1].MatchScore)
}

func TestApplicationLifecycle(t *testing.T) {
	setupTest(t)
	user := createTestUser(t)

	listing := testListing(user.ID, "https://example.com/jobs/1", 85)
	_, err := UpsertListing(listing)
	require.NoError(t, err)

	application := &models.Application{UserID: user.ID, ListingID: listing.ID}
	require.NoError(t, CreateApplication(application))
	assert.Equal(t, models.StatusQueued, application.Status)

	// One application per listing.
	dup := &models.Application{UserID: user.ID, ListingID: listing.ID}
	assert.ErrorIs(t, CreateApplication(dup), app.ErrDuplicateURL)

	require.NoError(t, UpdateApplicationStatus(application.ID, models.StatusApplying, ""))

	steps := []models.AutomationStep{
		{Step: "fill_form", Action: "type", Ref: "e3", Result: "ok", Timestamp: time.Now()},
	}
	require.NoError(t, MarkApplied(application.ID, "greenhouse", steps, "submitted"))

	got, err := GetApplicationByListing(user.ID, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApplied, got.Status)
	assert.Equal(t, "greenhouse", got.AppliedVia)
	require.NotNil(t, got.AppliedAt)
	require.Len(t, got.AutomationLog, 1)
	assert.Equal(t, "fill_form", got.AutomationLog[0].Step)

	count, err := CountAppliedSince(user.ID, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMarkFailedKeepsLog(t *testing.T) {
	setupTest(t)
	user := createTestUser(t)

	listing := testListing(user.ID, "https://example.com/jobs/2", 85)
	_, err := UpsertListing(listing)
	require.NoError(t, err)

	application := &models.Application{UserID: user.ID, ListingID: listing.ID}
	require.NoError(t, CreateApplication(application))
	require.NoError(t, IncrementRetryCount(application.ID))

	steps := []models.AutomationStep{
		{Step: "submit", Action: "click", Result: "validation errors remained", Timestamp: time.Now()},
	}
	require.NoError(t, MarkFailed(application.ID, "required fields could not be filled", steps))

	got, err := GetApplication(application.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)
	assert.Equal(t, 1, got.RetryCount)
	assert.NotEmpty(t, got.ErrorMessage)
	assert.Len(t, got.AutomationLog, 1)
}

func TestDeleteUserCascades(t *testing.T) {
	setupTest(t)
	user := createTestUser(t)

	listing := testListing(user.ID, "https://example.com/jobs/3", 85)
	_, err := UpsertListing(listing)
	require.NoError(t, err)
	require.NoError(t, CreateApplication(&models.Application{UserID: user.ID, ListingID: listing.ID}))

	_, err = DB.Exec(`DELETE FROM users WHERE id=?`, user.ID)
	require.NoError(t, err)

	_, err = GetListing(listing.ID)
	assert.ErrorIs(t, err, app.ErrNotFound)
}

func TestPreferencesRoundTrip(t *testing.T) {
	setupTest(t)
	user := createTestUser(t)

	// Unset preferences fall back to defaults.
	prefs, err := GetPreferences(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 70, prefs.AutoApplyMinScore)
	assert.Equal(t, 10, prefs.MaxDailyApplications)
	assert.True(t, prefs.RemoteOK)

	prefs.Keywords = []string{"golang", "backend"}
	prefs.ExcludedKeywords = []string{"unpaid"}
	prefs.EnabledSources = []string{"remoteok", "hnhiring"}
	prefs.AutoApplyEnabled = true
	prefs.AutoApplyMinScore = 80
	require.NoError(t, SavePreferences(prefs))

	prefs.AutoApplyMinScore = 85
	require.NoError(t, SavePreferences(prefs))

	got, err := GetPreferences(user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"golang", "backend"}, got.Keywords)
	assert.Equal(t, []string{"unpaid"}, got.ExcludedKeywords)
	assert.True(t, got.AutoApplyEnabled)
	assert.Equal(t, 85, got.AutoApplyMinScore)
}

func TestDailySummaryAccumulates(t *testing.T) {
	setupTest(t)
	user := createTestUser(t)

	date := time.Now().Format("2006-01-02")
	require.NoError(t, UpsertDailySummary(&models.DailySummary{
		UserID: user.ID, Date: date, JobsFound: 12, Queued: 3, HighScoreJobs: 2,
	}))
	require.NoError(t, UpsertDailySummary(&models.DailySummary{
		UserID: user.ID, Date: date, JobsFound: 5, Applied: 2, Failed: 1,
	}))

	got, err := GetDailySummary(user.ID, date)
	require.NoError(t, err)
	assert.Equal(t, 17, got.JobsFound)
	assert.Equal(t, 3, got.Queued)
	assert.Equal(t, 2, got.Applied)
	assert.Equal(t, 1, got.Failed)
	assert.Equal(t, 2, got.HighScoreJobs)
}
