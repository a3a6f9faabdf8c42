package database

import (
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/applypilot/applypilot/internal/app"
	"github.com/applypilot/applypilot/pkg/models"
)

// User operations

func CreateUser(user *models.User) error {
	query := `INSERT INTO users (name, email, phone, location, linkedin_url, github_url)
			  VALUES (?, ?, ?, ?, ?, ?)`
	result, err := DB.Exec(query, user.Name, user.Email, user.Phone, user.Location,
		user.LinkedInURL, user.GitHubURL)
	if err != nil {
		return err
	}
	id, _ := result.LastInsertId()
	user.ID = int(id)
	return nil
}

func GetUser() (*models.User, error) {
	query := `SELECT id, name, email, phone, location, linkedin_url, github_url,
			  created_at, updated_at FROM users LIMIT 1`
	user := &models.User{}
	err := DB.QueryRow(query).Scan(&user.ID, &user.Name, &user.Email, &user.Phone,
		&user.Location, &user.LinkedInURL, &user.GitHubURL,
		&user.CreatedAt, &user.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, app.ErrNoProfile
	}
	return user, err
}

func UpdateUser(user *models.User) error {
	query := `UPDATE users SET name=?, email=?, phone=?, location=?, linkedin_url=?,
			  github_url=?, updated_at=? WHERE id=?`
	_, err := DB.Exec(query, user.Name, user.Email, user.Phone, user.Location,
		user.LinkedInURL, user.GitHubURL, time.Now(), user.ID)
	return err
}

// GetCandidateProfile assembles the full snapshot the automation pipeline
// consumes: user, skills, experiences, education, primary resume.
func GetCandidateProfile() (*models.CandidateProfile, error) {
	user, err := GetUser()
	if err != nil {
		return nil, err
	}

	skills, err := GetUserSkills(user.ID)
	if err != nil {
		return nil, err
	}
	experiences, err := GetUserExperiences(user.ID)
	if err != nil {
		return nil, err
	}
	education, err := GetUserEducation(user.ID)
	if err != nil {
		return nil, err
	}
	resume, err := GetPrimaryResume(user.ID)
	if err != nil && err != app.ErrNoPrimaryResume {
		return nil, err
	}

	return &models.CandidateProfile{
		User:        user,
		Skills:      skills,
		Experiences: experiences,
		Education:   education,
		Resume:      resume,
	}, nil
}

// Skill operations

func CreateSkill(skill *models.Skill) error {
	query := `INSERT INTO skills (user_id, skill_name, is_core) VALUES (?, ?, ?)`
	result, err := DB.Exec(query, skill.UserID, skill.SkillName, skill.IsCore)
	if err != nil {
		return err
	}
	id, _ := result.LastInsertId()
	skill.ID = int(id)
	return nil
}

func GetUserSkills(userID int) ([]*models.Skill, error) {
	query := `SELECT id, user_id, skill_name, is_core FROM skills WHERE user_id=? ORDER BY is_core DESC, id`
	rows, err := DB.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	skills := []*models.Skill{}
	for rows.Next() {
		skill := &models.Skill{}
		if err := rows.Scan(&skill.ID, &skill.UserID, &skill.SkillName, &skill.IsCore); err != nil {
			return nil, err
		}
		skills = append(skills, skill)
	}
	return skills, rows.Err()
}

func DeleteSkill(id int) error {
	_, err := DB.Exec(`DELETE FROM skills WHERE id=?`, id)
	return err
}

// Experience operations

func CreateExperience(exp *models.Experience) error {
	query := `INSERT INTO experiences (user_id, company, title, description, start_date, end_date)
			  VALUES (?, ?, ?, ?, ?, ?)`
	result, err := DB.Exec(query, exp.UserID, exp.Company, exp.Title, exp.Description,
		exp.StartDate, exp.EndDate)
	if err != nil {
		return err
	}
	id, _ := result.LastInsertId()
	exp.ID = int(id)
	return nil
}

func GetUserExperiences(userID int) ([]*models.Experience, error) {
	query := `SELECT id, user_id, company, title, description, start_date, end_date
			  FROM experiences WHERE user_id=? ORDER BY start_date DESC`
	rows, err := DB.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	experiences := []*models.Experience{}
	for rows.Next() {
		exp := &models.Experience{}
		if err := rows.Scan(&exp.ID, &exp.UserID, &exp.Company, &exp.Title, &exp.Description,
			&exp.StartDate, &exp.EndDate); err != nil {
			return nil, err
		}
		experiences = append(experiences, exp)
	}
	return experiences, rows.Err()
}

func DeleteExperience(id int) error {
	_, err := DB.Exec(`DELETE FROM experiences WHERE id=?`, id)
	return err
}

// Education operations

func CreateEducation(edu *models.Education) error {
	query := `INSERT INTO education (user_id, school, degree, dates) VALUES (?, ?, ?, ?)`
	result, err := DB.Exec(query, edu.UserID, edu.School, edu.Degree, edu.Dates)
	if err != nil {
		return err
	}
	id, _ := result.LastInsertId()
	edu.ID = int(id)
	return nil
}

func GetUserEducation(userID int) ([]*models.Education, error) {
	query := `SELECT id, user_id, school, degree, dates FROM education WHERE user_id=? ORDER BY id`
	rows, err := DB.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	education := []*models.Education{}
	for rows.Next() {
		edu := &models.Education{}
		if err := rows.Scan(&edu.ID, &edu.UserID, &edu.School, &edu.Degree, &edu.Dates); err != nil {
			return nil, err
		}
		education = append(education, edu)
	}
	return education, rows.Err()
}

// Resume operations

func CreateResume(resume *models.Resume) error {
	if resume.IsPrimary {
		_, _ = DB.Exec("UPDATE resumes SET is_primary=0 WHERE user_id=?", resume.UserID)
	}

	query := `INSERT INTO resumes (user_id, name, file_path, content_text, is_primary)
			  VALUES (?, ?, ?, ?, ?)`
	result, err := DB.Exec(query, resume.UserID, resume.Name, resume.FilePath,
		resume.ContentText, resume.IsPrimary)
	if err != nil {
		return err
	}
	id, _ := result.LastInsertId()
	resume.ID = int(id)
	return nil
}

func SetPrimaryResume(userID, resumeID int) error {
	if _, err := DB.Exec("UPDATE resumes SET is_primary=0 WHERE user_id=?", userID); err != nil {
		return err
	}
	_, err := DB.Exec("UPDATE resumes SET is_primary=1 WHERE id=? AND user_id=?", resumeID, userID)
	return err
}

func GetPrimaryResume(userID int) (*models.Resume, error) {
	query := `SELECT id, user_id, name, file_path, content_text, is_primary, created_at
			  FROM resumes WHERE user_id=? AND is_primary=1 LIMIT 1`
	resume := &models.Resume{}
	err := DB.QueryRow(query, userID).Scan(&resume.ID, &resume.UserID, &resume.Name,
		&resume.FilePath, &resume.ContentText, &resume.IsPrimary, &resume.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, app.ErrNoPrimaryResume
	}
	return resume, err
}

func GetAllResumes(userID int) ([]*models.Resume, error) {
	query := `SELECT id, user_id, name, file_path, content_text, is_primary, created_at
			  FROM resumes WHERE user_id=? ORDER BY created_at DESC`
	rows, err := DB.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	resumes := []*models.Resume{}
	for rows.Next() {
		resume := &models.Resume{}
		if err := rows.Scan(&resume.ID, &resume.UserID, &resume.Name, &resume.FilePath,
			&resume.ContentText, &resume.IsPrimary, &resume.CreatedAt); err != nil {
			return nil, err
		}
		resumes = append(resumes, resume)
	}
	return resumes, rows.Err()
}

// Preferences operations

func SavePreferences(prefs *models.Preferences) error {
	query := `INSERT INTO preferences (user_id, keywords, excluded_keywords, location, remote_ok,
			  enabled_sources, auto_apply_enabled, auto_apply_min_score, max_daily_applications)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			  ON CONFLICT(user_id) DO UPDATE SET
			  keywords=excluded.keywords,
			  excluded_keywords=excluded.excluded_keywords,
			  location=excluded.location,
			  remote_ok=excluded.remote_ok,
			  enabled_sources=excluded.enabled_sources,
			  auto_apply_enabled=excluded.auto_apply_enabled,
			  auto_apply_min_score=excluded.auto_apply_min_score,
			  max_daily_applications=excluded.max_daily_applications`
	_, err := DB.Exec(query, prefs.UserID,
		joinList(prefs.Keywords), joinList(prefs.ExcludedKeywords),
		prefs.Location, prefs.RemoteOK, joinList(prefs.EnabledSources),
		prefs.AutoApplyEnabled, prefs.AutoApplyMinScore, prefs.MaxDailyApplications)
	return err
}

func GetPreferences(userID int) (*models.Preferences, error) {
	query := `SELECT id, user_id, keywords, excluded_keywords, location, remote_ok,
			  enabled_sources, auto_apply_enabled, auto_apply_min_score, max_daily_applications
			  FROM preferences WHERE user_id=?`
	prefs := &models.Preferences{}
	var keywords, excluded, sources string
	err := DB.QueryRow(query, userID).Scan(&prefs.ID, &prefs.UserID, &keywords, &excluded,
		&prefs.Location, &prefs.RemoteOK, &sources,
		&prefs.AutoApplyEnabled, &prefs.AutoApplyMinScore, &prefs.MaxDailyApplications)
	if err == sql.ErrNoRows {
		return &models.Preferences{
			UserID:               userID,
			RemoteOK:             true,
			AutoApplyMinScore:    70,
			MaxDailyApplications: 10,
		}, nil
	}
	if err != nil {
		return nil, err
	}
	prefs.Keywords = splitList(keywords)
	prefs.ExcludedKeywords = splitList(excluded)
	prefs.EnabledSources = splitList(sources)
	return prefs, nil
}

func joinList(items []string) string {
	return strings.Join(items, ",")
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Listing operations

// UpsertListing inserts a scored listing unless one with the same canonical
// URL already exists for the user. Returns true when the row is new. An
// existing row keeps its original score; re-discovery never rescores.
func UpsertListing(listing *models.ScoredListing) (bool, error) {
	if listing.URLHash == "" {
		listing.URLHash = models.URLHash(listing.Job.CanonicalURL)
	}

	breakdown, _ := json.Marshal(listing.ScoreBreakdown)
	matched, _ := json.Marshal(listing.MatchedKeywords)

	query := `INSERT INTO listings (user_id, title, company, location, url, url_hash, description,
			  salary_min, salary_max, job_type, source, external_id, posted_at,
			  match_score, score_breakdown, matched_keywords)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			  ON CONFLICT(user_id, url_hash) DO NOTHING`
	result, err := DB.Exec(query, listing.UserID,
		listing.Job.Title, listing.Job.Company, listing.Job.Location,
		listing.Job.CanonicalURL, listing.URLHash, listing.Job.Description,
		listing.Job.SalaryMin, listing.Job.SalaryMax, listing.Job.JobType,
		listing.Job.SourceName, listing.Job.ExternalID, listing.Job.PostedAt,
		listing.MatchScore, string(breakdown), string(matched))
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		existing, err := GetListingByURL(listing.UserID, listing.Job.CanonicalURL)
		if err != nil {
			return false, err
		}
		*listing = *existing
		return false, nil
	}

	id, _ := result.LastInsertId()
	listing.ID = int(id)
	return true, nil
}

func scanListing(scan func(dest ...interface{}) error) (*models.ScoredListing, error) {
	l := &models.ScoredListing{}
	var salaryMin, salaryMax sql.NullFloat64
	var postedAt sql.NullTime
	var breakdown, matched sql.NullString

	err := scan(&l.ID, &l.UserID, &l.Job.Title, &l.Job.Company, &l.Job.Location,
		&l.Job.CanonicalURL, &l.URLHash, &l.Job.Description,
		&salaryMin, &salaryMax, &l.Job.JobType, &l.Job.SourceName, &l.Job.ExternalID,
		&postedAt, &l.MatchScore, &breakdown, &matched, &l.Dismissed, &l.DiscoveredAt)
	if err != nil {
		return nil, err
	}

	if salaryMin.Valid {
		l.Job.SalaryMin = &salaryMin.Float64
	}
	if salaryMax.Valid {
		l.Job.SalaryMax = &salaryMax.Float64
	}
	if postedAt.Valid {
		t := postedAt.Time
		l.Job.PostedAt = &t
	}
	if breakdown.Valid && breakdown.String != "" {
		_ = json.Unmarshal([]byte(breakdown.String), &l.ScoreBreakdown)
	}
	if matched.Valid && matched.String != "" {
		_ = json.Unmarshal([]byte(matched.String), &l.MatchedKeywords)
	}
	return l, nil
}

const listingColumns = `id, user_id, title, company, location, url, url_hash, description,
	salary_min, salary_max, job_type, source, external_id, posted_at,
	match_score, score_breakdown, matched_keywords, dismissed, discovered_at`

func GetListing(id int) (*models.ScoredListing, error) {
	row := DB.QueryRow(`SELECT `+listingColumns+` FROM listings WHERE id=?`, id)
	listing, err := scanListing(row.Scan)
	if err == sql.ErrNoRows {
		return nil, app.ErrNotFound
	}
	return listing, err
}

func GetListingByURL(userID int, url string) (*models.ScoredListing, error) {
	hash := models.URLHash(url)
	row := DB.QueryRow(`SELECT `+listingColumns+` FROM listings WHERE user_id=? AND url_hash=?`, userID, hash)
	listing, err := scanListing(row.Scan)
	if err == sql.ErrNoRows {
		return nil, app.ErrNotFound
	}
	return listing, err
}

// ListListings returns the user's non-dismissed listings scoring at or above
// minScore, best matches first.
func ListListings(userID, minScore int) ([]*models.ScoredListing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings
			  WHERE user_id=? AND dismissed=0 AND match_score>=?
			  ORDER BY match_score DESC, discovered_at DESC`
	rows, err := DB.Query(query, userID, minScore)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	listings := []*models.ScoredListing{}
	for rows.Next() {
		listing, err := scanListing(rows.Scan)
		if err != nil {
			return nil, err
		}
		listings = append(listings, listing)
	}
	return listings, rows.Err()
}

func DismissListing(id int) error {
	_, err := DB.Exec(`UPDATE listings SET dismissed=1 WHERE id=?`, id)
	return err
}

// Application operations

func CreateApplication(a *models.Application) error {
	if a.Status == "" {
		a.Status = models.StatusQueued
	}
	query := `INSERT INTO applications (user_id, listing_id, resume_id, status, cover_letter, notes)
			  VALUES (?, ?, ?, ?, ?, ?)`
	var resumeID interface{}
	if a.ResumeID != 0 {
		resumeID = a.ResumeID
	}
	result, err := DB.Exec(query, a.UserID, a.ListingID, resumeID, a.Status, a.CoverLetter, a.Notes)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return app.ErrDuplicateURL
		}
		return err
	}
	id, _ := result.LastInsertId()
	a.ID = int(id)
	return nil
}

func scanApplication(scan func(dest ...interface{}) error) (*models.Application, error) {
	a := &models.Application{}
	var resumeID sql.NullInt64
	var appliedAt sql.NullTime
	var automationLog sql.NullString

	err := scan(&a.ID, &a.UserID, &a.ListingID, &resumeID, &a.Status, &a.CoverLetter,
		&appliedAt, &a.AppliedVia, &a.ErrorMessage, &a.RetryCount, &automationLog,
		&a.Notes, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if resumeID.Valid {
		a.ResumeID = int(resumeID.Int64)
	}
	if appliedAt.Valid {
		t := appliedAt.Time
		a.AppliedAt = &t
	}
	if automationLog.Valid && automationLog.String != "" {
		_ = json.Unmarshal([]byte(automationLog.String), &a.AutomationLog)
	}
	return a, nil
}

const applicationColumns = `id, user_id, listing_id, resume_id, status, cover_letter,
	applied_at, applied_via, error_message, retry_count, automation_log,
	notes, created_at, updated_at`

func GetApplication(id int) (*models.Application, error) {
	row := DB.QueryRow(`SELECT `+applicationColumns+` FROM applications WHERE id=?`, id)
	a, err := scanApplication(row.Scan)
	if err == sql.ErrNoRows {
		return nil, app.ErrNotFound
	}
	return a, err
}

func GetApplicationByListing(userID, listingID int) (*models.Application, error) {
	row := DB.QueryRow(`SELECT `+applicationColumns+` FROM applications WHERE user_id=? AND listing_id=?`,
		userID, listingID)
	a, err := scanApplication(row.Scan)
	if err == sql.ErrNoRows {
		return nil, app.ErrNotFound
	}
	return a, err
}

func ListApplications(userID int) ([]*models.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE user_id=? ORDER BY created_at DESC`
	rows, err := DB.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	apps := []*models.Application{}
	for rows.Next() {
		a, err := scanApplication(rows.Scan)
		if err != nil {
			return nil, err
		}
		apps = append(apps, a)
	}
	return apps, rows.Err()
}

func ListApplicationsByStatus(userID int, status string) ([]*models.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE user_id=? AND status=? ORDER BY created_at`
	rows, err := DB.Query(query, userID, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	apps := []*models.Application{}
	for rows.Next() {
		a, err := scanApplication(rows.Scan)
		if err != nil {
			return nil, err
		}
		apps = append(apps, a)
	}
	return apps, rows.Err()
}

func UpdateApplicationStatus(id int, status, errorMessage string) error {
	query := `UPDATE applications SET status=?, error_message=?, updated_at=? WHERE id=?`
	_, err := DB.Exec(query, status, errorMessage, time.Now(), id)
	return err
}

func SaveCoverLetter(id int, coverLetter string) error {
	_, err := DB.Exec(`UPDATE applications SET cover_letter=?, updated_at=? WHERE id=?`,
		coverLetter, time.Now(), id)
	return err
}

// MarkApplied records a successful submission with the method used and the
// automation log of browser steps taken.
func MarkApplied(id int, via string, steps []models.AutomationStep, notes string) error {
	logJSON, _ := json.Marshal(steps)
	query := `UPDATE applications SET status=?, applied_at=?, applied_via=?,
			  automation_log=?, notes=?, error_message='', updated_at=? WHERE id=?`
	now := time.Now()
	_, err := DB.Exec(query, models.StatusApplied, now, via, string(logJSON), notes, now, id)
	return err
}

// MarkAppliedManual records an attempt that ended in an unknown state as
// applied pending human confirmation. The form may already have reached the
// employer, so failing it would invite a duplicate submission.
func MarkAppliedManual(id int, errorMessage string, steps []models.AutomationStep) error {
	logJSON, _ := json.Marshal(steps)
	query := `UPDATE applications SET status=?, applied_at=?, applied_via='manual',
			  error_message=?, automation_log=?, updated_at=? WHERE id=?`
	now := time.Now()
	_, err := DB.Exec(query, models.StatusApplied, now, errorMessage, string(logJSON), now, id)
	return err
}

// MarkFailed records a terminal failure, keeping the automation log for
// manual followup.
func MarkFailed(id int, errorMessage string, steps []models.AutomationStep) error {
	logJSON, _ := json.Marshal(steps)
	query := `UPDATE applications SET status=?, error_message=?, automation_log=?, updated_at=? WHERE id=?`
	_, err := DB.Exec(query, models.StatusFailed, errorMessage, string(logJSON), time.Now(), id)
	return err
}

func IncrementRetryCount(id int) error {
	_, err := DB.Exec(`UPDATE applications SET retry_count=retry_count+1, updated_at=? WHERE id=?`,
		time.Now(), id)
	return err
}

// CountAppliedSince counts submissions since the given time, for the daily
// application cap.
func CountAppliedSince(userID int, since time.Time) (int, error) {
	var count int
	err := DB.QueryRow(`SELECT COUNT(*) FROM applications WHERE user_id=? AND status=? AND applied_at>=?`,
		userID, models.StatusApplied, since).Scan(&count)
	return count, err
}

// Daily summary operations

func UpsertDailySummary(s *models.DailySummary) error {
	query := `INSERT INTO daily_summaries (user_id, date, jobs_found, queued, applied, failed, high_score_jobs)
			  VALUES (?, ?, ?, ?, ?, ?, ?)
			  ON CONFLICT(user_id, date) DO UPDATE SET
			  jobs_found=jobs_found+excluded.jobs_found,
			  queued=queued+excluded.queued,
			  applied=applied+excluded.applied,
			  failed=failed+excluded.failed,
			  high_score_jobs=high_score_jobs+excluded.high_score_jobs`
	_, err := DB.Exec(query, s.UserID, s.Date, s.JobsFound, s.Queued, s.Applied, s.Failed, s.HighScoreJobs)
	return err
}

func GetDailySummary(userID int, date string) (*models.DailySummary, error) {
	query := `SELECT id, user_id, date, jobs_found, queued, applied, failed, high_score_jobs, created_at
			  FROM daily_summaries WHERE user_id=? AND date=?`
	s := &models.DailySummary{}
	err := DB.QueryRow(query, userID, date).Scan(&s.ID, &s.UserID, &s.Date,
		&s.JobsFound, &s.Queued, &s.Applied, &s.Failed, &s.HighScoreJobs, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, app.ErrNotFound
	}
	return s, err
}
