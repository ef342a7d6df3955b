// Package pipeline implements the four-stage outreach pipeline: email
// finding, insert generation, draft composition and sending. A state machine
// serializes stage execution per user; each stage is a batch transform over
// a campaign's contacts with per-item error isolation.
package pipeline

// Stage names used in run error records
const (
	StageEmailFinding = "email_finding"
	StageInserts      = "insert_generation"
	StageDrafts       = "draft_creation"
	StageSending      = "sending"
)

// MaxCampaignContacts bounds the batch a pipeline run may process. Keeps one
// run inside the Hunter and Gmail rate-limit budget.
const MaxCampaignContacts = 30

// ProgressFunc is called after every contact, success or failure
type ProgressFunc func(processed, total int)

// StageError records one contact's failure inside a stage batch
type StageError struct {
	ContactID string `json:"contact_id"`
	Error     string `json:"error"`
}

// fireProgress invokes the callback so that a panicking observer can never
// abort the batch.
func fireProgress(fn ProgressFunc, processed, total int) {
	if fn == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	fn(processed, total)
}
