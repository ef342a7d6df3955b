package models

import "time"

// Email status values for a contact
const (
	EmailStatusNone    = "none"
	EmailStatusDrafted = "drafted"
	EmailStatusSent    = "sent"
)

// Pipeline stage values. Sending advances a contact to "emailed".
const (
	PipelineStageProspect  = "prospect"
	PipelineStageContacted = "contacted"
	PipelineStageEmailed   = "emailed"
	PipelineStageReplied   = "replied"
	PipelineStageCustomer  = "customer"
	PipelineStageClosed    = "closed"
)

// PipelineStages are the allowed values for a contact's pipeline_stage field
var PipelineStages = []string{
	PipelineStageProspect,
	PipelineStageContacted,
	PipelineStageEmailed,
	PipelineStageReplied,
	PipelineStageCustomer,
	PipelineStageClosed,
}

// ValidPipelineStage reports whether s is a known pipeline stage.
func ValidPipelineStage(s string) bool {
	for _, v := range PipelineStages {
		if v == s {
			return true
		}
	}
	return false
}

// Contact represents a committed CRM contact
type Contact struct {
	ID               string            `json:"id"`
	UserID           string            `json:"user_id"`
	CampaignID       string            `json:"campaign_id"`
	Name             string            `json:"name"`
	Company          string            `json:"company"`
	Email            string            `json:"email"`
	EmailConfidence  int               `json:"email_confidence"`
	WebsiteURL       string            `json:"website_url"`
	Insert           string            `json:"insert"` // personalized opener paragraph
	InsertConfidence int               `json:"insert_confidence"`
	EmailStatus      string            `json:"email_status"` // none, drafted, sent
	DraftID          string            `json:"draft_id"`
	PipelineStage    string            `json:"pipeline_stage"`
	SentAt           *time.Time        `json:"sent_at,omitempty"`
	Custom           map[string]string `json:"custom,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// Clone returns a deep copy of the contact. Stage executors return copies
// instead of mutating their input.
func (c Contact) Clone() Contact {
	out := c
	if c.SentAt != nil {
		t := *c.SentAt
		out.SentAt = &t
	}
	if c.Custom != nil {
		out.Custom = make(map[string]string, len(c.Custom))
		for k, v := range c.Custom {
			out.Custom[k] = v
		}
	}
	return out
}

// StagedContact is a discovered candidate pending approval. Distinct from a
// committed Contact: it has no campaign and no workflow fields.
type StagedContact struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Company   string    `json:"company"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Snippet   string    `json:"snippet"`
	CreatedAt time.Time `json:"created_at"`
}

// ContactFilter restricts contact queries
type ContactFilter struct {
	CampaignID    string
	PipelineStage string
	EmailStatus   string
	Company       string
	Limit         int
}
