package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

var DB *sql.DB

// Initialize creates and opens the SQLite database
func Initialize() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	dir := filepath.Join(homeDir, ".applypilot")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create applypilot directory: %w", err)
	}

	dbPath := filepath.Join(dir, "applypilot.db")

	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	DB = db

	if err := RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Close closes the database connection
func Close() error {
	if DB != nil {
		return DB.Close()
	}
	return nil
}

// RunMigrations creates all necessary tables
func RunMigrations(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		email TEXT,
		phone TEXT,
		location TEXT,
		linkedin_url TEXT,
		github_url TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS resumes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		file_path TEXT NOT NULL,
		content_text TEXT,
		is_primary BOOLEAN DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS skills (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		skill_name TEXT NOT NULL,
		is_core BOOLEAN DEFAULT 0,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS experiences (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		company TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT,
		start_date DATE NOT NULL,
		end_date DATE,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS education (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		school TEXT NOT NULL,
		degree TEXT,
		dates TEXT,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS preferences (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL UNIQUE,
		keywords TEXT,
		excluded_keywords TEXT,
		location TEXT,
		remote_ok BOOLEAN DEFAULT 1,
		enabled_sources TEXT,
		auto_apply_enabled BOOLEAN DEFAULT 0,
		auto_apply_min_score INTEGER DEFAULT 70,
		max_daily_applications INTEGER DEFAULT 10,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS listings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		title TEXT NOT NULL,
		company TEXT NOT NULL,
		location TEXT,
		url TEXT NOT NULL,
		url_hash TEXT NOT NULL,
		description TEXT,
		salary_min REAL,
		salary_max REAL,
		job_type TEXT,
		source TEXT NOT NULL,
		external_id TEXT,
		posted_at DATETIME,
		match_score INTEGER DEFAULT 0,
		score_breakdown TEXT,
		matched_keywords TEXT,
		dismissed BOOLEAN DEFAULT 0,
		discovered_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (user_id, url_hash),
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS applications (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		listing_id INTEGER NOT NULL,
		resume_id INTEGER,
		status TEXT NOT NULL DEFAULT 'queued',
		cover_letter TEXT DEFAULT '',
		applied_at DATETIME,
		applied_via TEXT DEFAULT '',
		error_message TEXT DEFAULT '',
		retry_count INTEGER DEFAULT 0,
		automation_log TEXT,
		notes TEXT DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (user_id, listing_id),
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
		FOREIGN KEY (listing_id) REFERENCES listings(id) ON DELETE CASCADE,
		FOREIGN KEY (resume_id) REFERENCES resumes(id) ON DELETE SET NULL
	);

	CREATE TABLE IF NOT EXISTS daily_summaries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		date TEXT NOT NULL,
		jobs_found INTEGER DEFAULT 0,
		queued INTEGER DEFAULT 0,
		applied INTEGER DEFAULT 0,
		failed INTEGER DEFAULT 0,
		high_score_jobs INTEGER DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (user_id, date),
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_listings_score ON listings(user_id, match_score);
	CREATE INDEX IF NOT EXISTS idx_listings_source ON listings(source);
	CREATE INDEX IF NOT EXISTS idx_applications_status ON applications(status);
	CREATE INDEX IF NOT EXISTS idx_applications_listing_id ON applications(listing_id);
	`

	_, err := db.Exec(schema)
	return err
}
