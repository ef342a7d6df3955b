package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

type DB struct {
	*sql.DB
}

func New(path string) (*DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &DB{db}, nil
}

func (db *DB) Migrate() error {
	migrations := []string{
		migrationCampaigns,
		migrationContacts,
		migrationStagedContacts,
		migrationCampaignRuns,
		migrationSavedViews,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

const migrationCampaigns = `
CREATE TABLE IF NOT EXISTS campaigns (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    name TEXT NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_campaigns_user ON campaigns(user_id);
`

const migrationContacts = `
CREATE TABLE IF NOT EXISTS contacts (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    campaign_id TEXT REFERENCES campaigns(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    company TEXT,
    email TEXT,
    email_confidence INTEGER DEFAULT 0,
    website_url TEXT,
    insert_text TEXT,
    insert_confidence INTEGER DEFAULT 0,
    email_status TEXT DEFAULT 'none',
    draft_id TEXT,
    pipeline_stage TEXT DEFAULT 'prospect',
    sent_at TIMESTAMP,
    custom JSON,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_contacts_user ON contacts(user_id);
CREATE INDEX IF NOT EXISTS idx_contacts_campaign ON contacts(campaign_id);
CREATE INDEX IF NOT EXISTS idx_contacts_stage ON contacts(pipeline_stage);
`

const migrationStagedContacts = `
CREATE TABLE IF NOT EXISTS staged_contacts (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    name TEXT NOT NULL,
    company TEXT,
    title TEXT,
    url TEXT,
    snippet TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_staged_contacts_user ON staged_contacts(user_id);
`

// stage_active marks a stage batch that is currently executing. The partial
// unique index is the single-flight guard: at most one active stage per user,
// enforced by the database rather than by the process that happened to check
// first.
const migrationCampaignRuns = `
CREATE TABLE IF NOT EXISTS campaign_runs (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    campaign_id TEXT NOT NULL REFERENCES campaigns(id) ON DELETE CASCADE,
    state TEXT NOT NULL DEFAULT 'idle',
    stage_active INTEGER NOT NULL DEFAULT 0,
    processed_count INTEGER DEFAULT 0,
    total_count INTEGER DEFAULT 0,
    errors JSON,
    started_at TIMESTAMP,
    completed_at TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_campaign_runs_user ON campaign_runs(user_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_campaign_runs_one_per_campaign ON campaign_runs(campaign_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_campaign_runs_active
    ON campaign_runs(user_id)
    WHERE stage_active = 1;
`

const migrationSavedViews = `
CREATE TABLE IF NOT EXISTS saved_views (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    name TEXT NOT NULL,
    filters JSON NOT NULL,
    sort TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(user_id, name)
);
`
