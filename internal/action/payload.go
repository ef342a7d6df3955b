package action

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/foxzi/outreach/internal/models"
	"github.com/foxzi/outreach/internal/repository"
)

// Limits shared by payload validation. Discovery and bulk operations are
// bounded so a single agent request can never touch more than a small batch.
const (
	MaxResults    = 30
	MaxBatchSize  = 30
	MaxNameLength = 100
	MinQueryLen   = 3
)

// Violation is one field-level validation failure
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	return v.Field + ": " + v.Message
}

// JoinViolations renders violations as the single error string the executor
// returns to the caller.
func JoinViolations(vs []Violation) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.String()
	}
	return "invalid payload: " + strings.Join(parts, "; ")
}

// Request is what the agent submits for execution
type Request struct {
	Type          Type            `json:"type"`
	Payload       json.RawMessage `json:"payload"`
	UserConfirmed bool            `json:"userConfirmed,omitempty"`
}

// Payload types, one per action. Field names follow the agent-facing JSON
// contract, which uses camelCase.

type FindContactsPayload struct {
	Query      string `json:"query"`
	MaxResults int    `json:"maxResults,omitempty"`
}

type StagedContactInput struct {
	Name    string `json:"name"`
	Company string `json:"company,omitempty"`
	Title   string `json:"title,omitempty"`
	URL     string `json:"url,omitempty"`
	Snippet string `json:"snippet,omitempty"`
}

type StageContactsPayload struct {
	Contacts []StagedContactInput `json:"contacts"`
}

type GetStagedContactsPayload struct{}

type ApproveStagedContactsPayload struct {
	CampaignName   string   `json:"campaignName"`
	KeptContactIDs []string `json:"keptContactIds"`
}

type RunStagePayload struct {
	CampaignID string `json:"campaignId"`
}

type QueryContactsPayload struct {
	CampaignID    string `json:"campaignId,omitempty"`
	PipelineStage string `json:"pipelineStage,omitempty"`
	EmailStatus   string `json:"emailStatus,omitempty"`
	Company       string `json:"company,omitempty"`
	Limit         int    `json:"limit,omitempty"`
}

type MovePipelineStagePayload struct {
	ContactID string `json:"contactId"`
	Stage     string `json:"stage"`
}

type UpdateContactFieldPayload struct {
	ContactID string `json:"contactId"`
	Field     string `json:"field"`
	Value     string `json:"value"`
}

type BulkUpdateContactsPayload struct {
	ContactIDs []string `json:"contactIds"`
	Field      string   `json:"field"`
	Value      string   `json:"value"`
}

type DeleteContactsPayload struct {
	ContactIDs []string `json:"contactIds"`
}

type SaveContactViewPayload struct {
	Name    string            `json:"name"`
	Filters map[string]string `json:"filters"`
	Sort    string            `json:"sort,omitempty"`
}

// ParsePayload decodes and validates raw against the schema registered for t.
// It is pure: no side effects, no service calls. On success the returned
// value is the concrete payload struct for t.
func ParsePayload(t Type, raw json.RawMessage) (any, []Violation) {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}

	decode := func(dst any) []Violation {
		if err := json.Unmarshal(raw, dst); err != nil {
			return []Violation{{Field: "payload", Message: "malformed JSON: " + err.Error()}}
		}
		return nil
	}

	switch t {
	case TypeFindContacts:
		var p FindContactsPayload
		if vs := decode(&p); vs != nil {
			return nil, vs
		}
		vs := validateFindContacts(&p) // applies the maxResults default
		return p, vs

	case TypeStageContacts:
		var p StageContactsPayload
		if vs := decode(&p); vs != nil {
			return nil, vs
		}
		return p, validateStageContacts(&p)

	case TypeGetStagedContacts:
		var p GetStagedContactsPayload
		if vs := decode(&p); vs != nil {
			return nil, vs
		}
		return p, nil

	case TypeApproveStagedContacts:
		var p ApproveStagedContactsPayload
		if vs := decode(&p); vs != nil {
			return nil, vs
		}
		return p, validateApprove(&p)

	case TypeRunEmailFinding, TypeRunInsertGeneration, TypeRunDraftCreation, TypeSendEmails:
		var p RunStagePayload
		if vs := decode(&p); vs != nil {
			return nil, vs
		}
		return p, validateRunStage(&p)

	case TypeQueryContacts:
		var p QueryContactsPayload
		if vs := decode(&p); vs != nil {
			return nil, vs
		}
		return p, validateQueryContacts(&p)

	case TypeMovePipelineStage:
		var p MovePipelineStagePayload
		if vs := decode(&p); vs != nil {
			return nil, vs
		}
		return p, validateMoveStage(&p)

	case TypeUpdateContactField:
		var p UpdateContactFieldPayload
		if vs := decode(&p); vs != nil {
			return nil, vs
		}
		return p, validateUpdateField(&p)

	case TypeBulkUpdateContacts:
		var p BulkUpdateContactsPayload
		if vs := decode(&p); vs != nil {
			return nil, vs
		}
		return p, validateBulkUpdate(&p)

	case TypeDeleteContacts:
		var p DeleteContactsPayload
		if vs := decode(&p); vs != nil {
			return nil, vs
		}
		return p, validateDelete(&p)

	case TypeSaveContactView:
		var p SaveContactViewPayload
		if vs := decode(&p); vs != nil {
			return nil, vs
		}
		return p, validateSaveView(&p)
	}

	return nil, []Violation{{Field: "type", Message: fmt.Sprintf("unknown action type %q", t)}}
}

func validateFindContacts(p *FindContactsPayload) []Violation {
	var vs []Violation
	if len(strings.TrimSpace(p.Query)) < MinQueryLen {
		vs = append(vs, Violation{Field: "query", Message: fmt.Sprintf("must be at least %d characters", MinQueryLen)})
	}
	if p.MaxResults == 0 {
		p.MaxResults = MaxResults
	}
	if p.MaxResults < 1 || p.MaxResults > MaxResults {
		vs = append(vs, Violation{Field: "maxResults", Message: fmt.Sprintf("must be between 1 and %d", MaxResults)})
	}
	return vs
}

func validateStageContacts(p *StageContactsPayload) []Violation {
	var vs []Violation
	if len(p.Contacts) == 0 {
		vs = append(vs, Violation{Field: "contacts", Message: "must not be empty"})
	}
	if len(p.Contacts) > MaxBatchSize {
		vs = append(vs, Violation{Field: "contacts", Message: fmt.Sprintf("at most %d entries", MaxBatchSize)})
	}
	for i, c := range p.Contacts {
		if strings.TrimSpace(c.Name) == "" {
			vs = append(vs, Violation{Field: fmt.Sprintf("contacts[%d].name", i), Message: "must not be empty"})
		}
	}
	return vs
}

func validateApprove(p *ApproveStagedContactsPayload) []Violation {
	var vs []Violation
	vs = append(vs, validateName("campaignName", p.CampaignName)...)
	vs = append(vs, validateIDList("keptContactIds", p.KeptContactIDs)...)
	return vs
}

func validateRunStage(p *RunStagePayload) []Violation {
	if strings.TrimSpace(p.CampaignID) == "" {
		return []Violation{{Field: "campaignId", Message: "must not be empty"}}
	}
	return nil
}

func validateQueryContacts(p *QueryContactsPayload) []Violation {
	var vs []Violation
	if p.PipelineStage != "" && !models.ValidPipelineStage(p.PipelineStage) {
		vs = append(vs, Violation{Field: "pipelineStage", Message: fmt.Sprintf("unknown stage %q", p.PipelineStage)})
	}
	if p.EmailStatus != "" {
		switch p.EmailStatus {
		case models.EmailStatusNone, models.EmailStatusDrafted, models.EmailStatusSent:
		default:
			vs = append(vs, Violation{Field: "emailStatus", Message: fmt.Sprintf("unknown status %q", p.EmailStatus)})
		}
	}
	if p.Limit < 0 {
		vs = append(vs, Violation{Field: "limit", Message: "must not be negative"})
	}
	return vs
}

func validateMoveStage(p *MovePipelineStagePayload) []Violation {
	var vs []Violation
	if strings.TrimSpace(p.ContactID) == "" {
		vs = append(vs, Violation{Field: "contactId", Message: "must not be empty"})
	}
	if !models.ValidPipelineStage(p.Stage) {
		vs = append(vs, Violation{Field: "stage", Message: fmt.Sprintf("unknown stage %q", p.Stage)})
	}
	return vs
}

func validateUpdateField(p *UpdateContactFieldPayload) []Violation {
	var vs []Violation
	if strings.TrimSpace(p.ContactID) == "" {
		vs = append(vs, Violation{Field: "contactId", Message: "must not be empty"})
	}
	vs = append(vs, validateFieldValue(p.Field, p.Value)...)
	return vs
}

func validateBulkUpdate(p *BulkUpdateContactsPayload) []Violation {
	var vs []Violation
	vs = append(vs, validateIDList("contactIds", p.ContactIDs)...)
	vs = append(vs, validateFieldValue(p.Field, p.Value)...)
	return vs
}

func validateDelete(p *DeleteContactsPayload) []Violation {
	return validateIDList("contactIds", p.ContactIDs)
}

func validateSaveView(p *SaveContactViewPayload) []Violation {
	var vs []Violation
	vs = append(vs, validateName("name", p.Name)...)
	if len(p.Filters) == 0 {
		vs = append(vs, Violation{Field: "filters", Message: "must not be empty"})
	}
	return vs
}

func validateFieldValue(field, value string) []Violation {
	var vs []Violation
	if !repository.AllowedUpdateField(field) {
		vs = append(vs, Violation{Field: "field", Message: fmt.Sprintf("field %q is not updatable", field)})
	} else if field == "pipeline_stage" && !models.ValidPipelineStage(value) {
		vs = append(vs, Violation{Field: "value", Message: fmt.Sprintf("unknown stage %q", value)})
	}
	return vs
}

func validateName(field, name string) []Violation {
	var vs []Violation
	if strings.TrimSpace(name) == "" {
		vs = append(vs, Violation{Field: field, Message: "must not be empty"})
	}
	if len(name) > MaxNameLength {
		vs = append(vs, Violation{Field: field, Message: fmt.Sprintf("at most %d characters", MaxNameLength)})
	}
	return vs
}

func validateIDList(field string, ids []string) []Violation {
	var vs []Violation
	if len(ids) == 0 {
		vs = append(vs, Violation{Field: field, Message: "must not be empty"})
	}
	if len(ids) > MaxBatchSize {
		vs = append(vs, Violation{Field: field, Message: fmt.Sprintf("at most %d entries", MaxBatchSize)})
	}
	for i, id := range ids {
		if strings.TrimSpace(id) == "" {
			vs = append(vs, Violation{Field: fmt.Sprintf("%s[%d]", field, i), Message: "must not be empty"})
		}
	}
	return vs
}
