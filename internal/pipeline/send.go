package pipeline

import (
	"context"
	"time"

	"github.com/foxzi/outreach/internal/models"
)

// SendingResult is the outcome of one sending batch
type SendingResult struct {
	Contacts []models.Contact
	Sent     int
	Skipped  int
	Errors   []StageError
}

// SendDrafts runs the sending stage over contacts. Contacts without a
// pending draft are skipped. On success the contact's status moves to sent,
// the send time is stamped and the pipeline stage advances to emailed.
func SendDrafts(ctx context.Context, mail MailProvider, contacts []models.Contact, onProgress ProgressFunc) SendingResult {
	result := SendingResult{
		Contacts: make([]models.Contact, 0, len(contacts)),
	}
	total := len(contacts)

	for i, contact := range contacts {
		c := contact.Clone()

		if c.DraftID == "" || c.EmailStatus != models.EmailStatusDrafted {
			result.Skipped++
			result.Contacts = append(result.Contacts, c)
			fireProgress(onProgress, i+1, total)
			continue
		}

		if err := mail.SendDraft(ctx, c.DraftID); err != nil {
			result.Errors = append(result.Errors, StageError{
				ContactID: c.ID,
				Error:     SanitizeError(err),
			})
			result.Contacts = append(result.Contacts, c)
			fireProgress(onProgress, i+1, total)
			continue
		}

		now := time.Now()
		c.EmailStatus = models.EmailStatusSent
		c.SentAt = &now
		c.PipelineStage = models.PipelineStageEmailed
		result.Sent++

		result.Contacts = append(result.Contacts, c)
		fireProgress(onProgress, i+1, total)
	}

	return result
}
