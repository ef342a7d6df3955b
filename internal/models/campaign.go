package models

import "time"

// Campaign groups a bounded batch of contacts for one outreach effort
type Campaign struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Name         string    `json:"name"`
	ContactCount int       `json:"contact_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Run states for a campaign pipeline run
const (
	RunStateIdle         = "idle"
	RunStateEmailFinding = "emailFindingRunning"
	RunStateInserts      = "insertsRunning"
	RunStateDrafts       = "draftsRunning"
	RunStateSending      = "sendingRunning"
	RunStateComplete     = "complete"
	RunStateFailed       = "failed"
)

// CampaignRun tracks one pipeline run for a campaign
type CampaignRun struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	CampaignID     string     `json:"campaign_id"`
	State          string     `json:"state"`
	StageActive    bool       `json:"stage_active"`
	ProcessedCount int        `json:"processed_count"`
	TotalCount     int        `json:"total_count"`
	Errors         []RunError `json:"errors"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// RunError records one contact's failure during a pipeline stage
type RunError struct {
	ContactID string `json:"contact_id"`
	Stage     string `json:"stage"`
	Error     string `json:"error"`
}
