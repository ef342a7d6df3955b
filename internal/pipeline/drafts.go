package pipeline

import (
	"context"

	"github.com/foxzi/outreach/internal/models"
)

// DraftContent is a composed outreach email
type DraftContent struct {
	Subject string
	Body    string
}

// DraftGenerator composes the outreach email for a contact, weaving in the
// previously generated personalized insert.
type DraftGenerator interface {
	GenerateDraft(ctx context.Context, contact models.Contact) (*DraftContent, error)
}

// MailProvider creates and sends drafts in the user's mailbox
type MailProvider interface {
	CreateDraft(ctx context.Context, to, subject, body string) (draftID string, err error)
	SendDraft(ctx context.Context, draftID string) error
}

// DraftCreationResult is the outcome of one draft-composition batch
type DraftCreationResult struct {
	Contacts []models.Contact
	Drafted  int
	Skipped  int
	Errors   []StageError
}

// ComposeDrafts runs the draft-composition stage over contacts. Contacts
// missing an email address or a personalized insert are skipped, as are
// contacts already drafted or sent.
func ComposeDrafts(ctx context.Context, generator DraftGenerator, mail MailProvider, contacts []models.Contact, onProgress ProgressFunc) DraftCreationResult {
	result := DraftCreationResult{
		Contacts: make([]models.Contact, 0, len(contacts)),
	}
	total := len(contacts)

	for i, contact := range contacts {
		c := contact.Clone()

		if c.Email == "" || c.Insert == "" || c.EmailStatus != models.EmailStatusNone {
			result.Skipped++
			result.Contacts = append(result.Contacts, c)
			fireProgress(onProgress, i+1, total)
			continue
		}

		draft, err := generator.GenerateDraft(ctx, c)
		if err != nil {
			result.Errors = append(result.Errors, StageError{
				ContactID: c.ID,
				Error:     SanitizeError(err),
			})
			result.Contacts = append(result.Contacts, c)
			fireProgress(onProgress, i+1, total)
			continue
		}

		draftID, err := mail.CreateDraft(ctx, c.Email, draft.Subject, draft.Body)
		if err != nil {
			result.Errors = append(result.Errors, StageError{
				ContactID: c.ID,
				Error:     SanitizeError(err),
			})
			result.Contacts = append(result.Contacts, c)
			fireProgress(onProgress, i+1, total)
			continue
		}

		c.DraftID = draftID
		c.EmailStatus = models.EmailStatusDrafted
		result.Drafted++

		result.Contacts = append(result.Contacts, c)
		fireProgress(onProgress, i+1, total)
	}

	return result
}
