package action

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/foxzi/outreach/internal/models"
	"github.com/foxzi/outreach/internal/pipeline"
)

// Context identifies the calling session for one action
type Context struct {
	UserID string
	Mode   Mode
}

// SearchResult is one discovery hit from the search provider
type SearchResult struct {
	Title   string `json:"title"`
	Company string `json:"company"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// SearchProvider finds candidate contacts on the open web
type SearchProvider interface {
	Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error)
}

// StagingService persists candidate contacts pending approval
type StagingService interface {
	Stage(userID string, contacts []models.StagedContact) ([]models.StagedContact, error)
	ListByUser(userID string) ([]models.StagedContact, error)
}

// ApproveService converts kept staged contacts into a campaign
type ApproveService interface {
	Approve(ctx context.Context, userID, campaignName string, keptContactIDs []string) (*models.Campaign, error)
}

// ContactService mutates and queries committed contacts. All field names are
// allowlisted before reaching storage.
type ContactService interface {
	Query(userID string, f models.ContactFilter) ([]models.Contact, error)
	MoveStage(userID, contactID, stage string) error
	UpdateField(userID, contactID, field, value string) error
	BulkUpdate(userID string, contactIDs []string, field, value string) (int, error)
	Delete(userID string, contactIDs []string) (int, error)
}

// SavedViewService persists named filter views
type SavedViewService interface {
	Create(v *models.SavedView) error
}

// PipelineService triggers the four campaign stages
type PipelineService interface {
	RunEmailFinding(ctx context.Context, userID, campaignID string) (*pipeline.StageSummary, error)
	RunInsertGeneration(ctx context.Context, userID, campaignID string) (*pipeline.StageSummary, error)
	RunDraftCreation(ctx context.Context, userID, campaignID string) (*pipeline.StageSummary, error)
	RunSending(ctx context.Context, userID, campaignID string) (*pipeline.StageSummary, error)
}

// Services are the collaborators handlers depend on. Everything is injected
// so each handler can be exercised in isolation.
type Services struct {
	Search   SearchProvider
	Staging  StagingService
	Approve  ApproveService
	Contacts ContactService
	Views    SavedViewService
	Pipeline PipelineService
}

// Handlers holds one narrow handler per action type. Handlers re-validate
// their payloads: internal callers may invoke them directly, bypassing the
// executor.
type Handlers struct {
	svc    Services
	logger *slog.Logger
}

func NewHandlers(svc Services, logger *slog.Logger) *Handlers {
	return &Handlers{svc: svc, logger: logger.With("component", "handlers")}
}

// Dispatch routes a parsed payload to the handler for its action type. The
// switch is exhaustive over the catalog: adding a type without a case here
// fails the catalog completeness test.
func (h *Handlers) Dispatch(ctx context.Context, t Type, payload any, actx Context) Result {
	switch t {
	case TypeFindContacts:
		return h.FindContacts(ctx, payload.(FindContactsPayload), actx)
	case TypeStageContacts:
		return h.StageContacts(ctx, payload.(StageContactsPayload), actx)
	case TypeGetStagedContacts:
		return h.GetStagedContacts(ctx, actx)
	case TypeApproveStagedContacts:
		return h.ApproveStagedContacts(ctx, payload.(ApproveStagedContactsPayload), actx)
	case TypeRunEmailFinding:
		return h.RunEmailFinding(ctx, payload.(RunStagePayload), actx)
	case TypeRunInsertGeneration:
		return h.RunInsertGeneration(ctx, payload.(RunStagePayload), actx)
	case TypeRunDraftCreation:
		return h.RunDraftCreation(ctx, payload.(RunStagePayload), actx)
	case TypeSendEmails:
		return h.SendEmails(ctx, payload.(RunStagePayload), actx)
	case TypeQueryContacts:
		return h.QueryContacts(ctx, payload.(QueryContactsPayload), actx)
	case TypeMovePipelineStage:
		return h.MovePipelineStage(ctx, payload.(MovePipelineStagePayload), actx)
	case TypeUpdateContactField:
		return h.UpdateContactField(ctx, payload.(UpdateContactFieldPayload), actx)
	case TypeBulkUpdateContacts:
		return h.BulkUpdateContacts(ctx, payload.(BulkUpdateContactsPayload), actx)
	case TypeDeleteContacts:
		return h.DeleteContacts(ctx, payload.(DeleteContactsPayload), actx)
	case TypeSaveContactView:
		return h.SaveContactView(ctx, payload.(SaveContactViewPayload), actx)
	}
	return Fail(fmt.Sprintf("no handler registered for action %s", t))
}

// FindContacts searches the web for candidate contacts. Provider errors are
// surfaced verbatim: the agent decides whether to rephrase the query.
func (h *Handlers) FindContacts(ctx context.Context, p FindContactsPayload, actx Context) Result {
	if vs := validateFindContacts(&p); len(vs) > 0 {
		return Fail(JoinViolations(vs))
	}

	results, err := h.svc.Search.Search(ctx, p.Query, p.MaxResults)
	if err != nil {
		return Fail(err.Error())
	}
	return OK(map[string]any{"results": results, "count": len(results)})
}

// StageContacts persists discovered candidates for review
func (h *Handlers) StageContacts(ctx context.Context, p StageContactsPayload, actx Context) Result {
	if vs := validateStageContacts(&p); len(vs) > 0 {
		return Fail(JoinViolations(vs))
	}

	staged := make([]models.StagedContact, len(p.Contacts))
	for i, c := range p.Contacts {
		staged[i] = models.StagedContact{
			Name:    c.Name,
			Company: c.Company,
			Title:   c.Title,
			URL:     c.URL,
			Snippet: c.Snippet,
		}
	}

	out, err := h.svc.Staging.Stage(actx.UserID, staged)
	if err != nil {
		return Fail("failed to stage contacts: " + err.Error())
	}
	return OK(map[string]any{"staged": out, "count": len(out)})
}

// GetStagedContacts lists the user's pending candidates
func (h *Handlers) GetStagedContacts(ctx context.Context, actx Context) Result {
	list, err := h.svc.Staging.ListByUser(actx.UserID)
	if err != nil {
		return Fail("failed to list staged contacts: " + err.Error())
	}
	return OK(map[string]any{"staged": list, "count": len(list)})
}

// ApproveStagedContacts commits kept candidates into a new campaign
func (h *Handlers) ApproveStagedContacts(ctx context.Context, p ApproveStagedContactsPayload, actx Context) Result {
	if vs := validateApprove(&p); len(vs) > 0 {
		return Fail(JoinViolations(vs))
	}

	campaign, err := h.svc.Approve.Approve(ctx, actx.UserID, p.CampaignName, p.KeptContactIDs)
	if err != nil {
		return Fail("failed to approve contacts: " + err.Error())
	}
	return OK(map[string]any{"campaign": campaign})
}

// RunEmailFinding triggers the email-finding stage
func (h *Handlers) RunEmailFinding(ctx context.Context, p RunStagePayload, actx Context) Result {
	if vs := validateRunStage(&p); len(vs) > 0 {
		return Fail(JoinViolations(vs))
	}

	summary, err := h.svc.Pipeline.RunEmailFinding(ctx, actx.UserID, p.CampaignID)
	if err != nil {
		return Fail(err.Error())
	}
	return OK(summary)
}

// RunInsertGeneration triggers the insert-generation stage
func (h *Handlers) RunInsertGeneration(ctx context.Context, p RunStagePayload, actx Context) Result {
	if vs := validateRunStage(&p); len(vs) > 0 {
		return Fail(JoinViolations(vs))
	}

	summary, err := h.svc.Pipeline.RunInsertGeneration(ctx, actx.UserID, p.CampaignID)
	if err != nil {
		return Fail(err.Error())
	}
	return OK(summary)
}

// RunDraftCreation triggers the draft-composition stage
func (h *Handlers) RunDraftCreation(ctx context.Context, p RunStagePayload, actx Context) Result {
	if vs := validateRunStage(&p); len(vs) > 0 {
		return Fail(JoinViolations(vs))
	}

	summary, err := h.svc.Pipeline.RunDraftCreation(ctx, actx.UserID, p.CampaignID)
	if err != nil {
		return Fail(err.Error())
	}
	return OK(summary)
}

// SendEmails triggers the sending stage
func (h *Handlers) SendEmails(ctx context.Context, p RunStagePayload, actx Context) Result {
	if vs := validateRunStage(&p); len(vs) > 0 {
		return Fail(JoinViolations(vs))
	}

	summary, err := h.svc.Pipeline.RunSending(ctx, actx.UserID, p.CampaignID)
	if err != nil {
		return Fail(err.Error())
	}
	return OK(summary)
}

// QueryContacts reads contacts matching a filter
func (h *Handlers) QueryContacts(ctx context.Context, p QueryContactsPayload, actx Context) Result {
	if vs := validateQueryContacts(&p); len(vs) > 0 {
		return Fail(JoinViolations(vs))
	}

	contacts, err := h.svc.Contacts.Query(actx.UserID, models.ContactFilter{
		CampaignID:    p.CampaignID,
		PipelineStage: p.PipelineStage,
		EmailStatus:   p.EmailStatus,
		Company:       p.Company,
		Limit:         p.Limit,
	})
	if err != nil {
		return Fail("failed to query contacts: " + err.Error())
	}
	return OK(map[string]any{"contacts": contacts, "count": len(contacts)})
}

// MovePipelineStage moves one contact to a new pipeline stage
func (h *Handlers) MovePipelineStage(ctx context.Context, p MovePipelineStagePayload, actx Context) Result {
	if vs := validateMoveStage(&p); len(vs) > 0 {
		return Fail(JoinViolations(vs))
	}

	if err := h.svc.Contacts.MoveStage(actx.UserID, p.ContactID, p.Stage); err != nil {
		return Fail("failed to move stage: " + err.Error())
	}
	return OK(map[string]any{"contactId": p.ContactID, "stage": p.Stage})
}

// UpdateContactField updates a single allowlisted field on one contact
func (h *Handlers) UpdateContactField(ctx context.Context, p UpdateContactFieldPayload, actx Context) Result {
	if vs := validateUpdateField(&p); len(vs) > 0 {
		return Fail(JoinViolations(vs))
	}

	if err := h.svc.Contacts.UpdateField(actx.UserID, p.ContactID, p.Field, p.Value); err != nil {
		return Fail("failed to update contact: " + err.Error())
	}
	return OK(map[string]any{"contactId": p.ContactID, "field": p.Field})
}

// BulkUpdateContacts sets one field on up to 30 contacts
func (h *Handlers) BulkUpdateContacts(ctx context.Context, p BulkUpdateContactsPayload, actx Context) Result {
	if vs := validateBulkUpdate(&p); len(vs) > 0 {
		return Fail(JoinViolations(vs))
	}

	updated, err := h.svc.Contacts.BulkUpdate(actx.UserID, p.ContactIDs, p.Field, p.Value)
	if err != nil {
		return Fail("failed to bulk update: " + err.Error())
	}
	return OK(map[string]any{"updatedCount": updated})
}

// DeleteContacts irreversibly deletes up to 30 contacts
func (h *Handlers) DeleteContacts(ctx context.Context, p DeleteContactsPayload, actx Context) Result {
	if vs := validateDelete(&p); len(vs) > 0 {
		return Fail(JoinViolations(vs))
	}

	deleted, err := h.svc.Contacts.Delete(actx.UserID, p.ContactIDs)
	if err != nil {
		return Fail("failed to delete contacts: " + err.Error())
	}
	return OK(map[string]any{"deletedCount": deleted})
}

// SaveContactView persists a named filter view
func (h *Handlers) SaveContactView(ctx context.Context, p SaveContactViewPayload, actx Context) Result {
	if vs := validateSaveView(&p); len(vs) > 0 {
		return Fail(JoinViolations(vs))
	}

	filters, err := json.Marshal(p.Filters)
	if err != nil {
		return Fail("failed to encode filters: " + err.Error())
	}

	view := &models.SavedView{
		UserID:  actx.UserID,
		Name:    p.Name,
		Filters: string(filters),
		Sort:    p.Sort,
	}
	if err := h.svc.Views.Create(view); err != nil {
		return Fail("failed to save view: " + err.Error())
	}
	return OK(map[string]any{"view": view})
}
