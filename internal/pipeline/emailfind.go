package pipeline

import (
	"context"

	"github.com/foxzi/outreach/internal/models"
)

// EmailResult is a successful provider lookup
type EmailResult struct {
	Email      string
	Confidence int
}

// EmailFinder looks up a work email for a person at a company. A nil result
// with nil error means the provider had no match, which is not a failure.
type EmailFinder interface {
	FindEmail(ctx context.Context, name, company string) (*EmailResult, error)
}

// EmailFindingResult is the outcome of one email-finding batch
type EmailFindingResult struct {
	Contacts []models.Contact
	Found    int
	Skipped  int
	Errors   []StageError
}

// FindEmails runs the email-finding stage over contacts. The input slice is
// never mutated; contacts are processed in order and one contact's failure
// never aborts the batch. Contacts without a company, that already carry an
// email, or that the provider has no match for are skipped without an error
// entry; every contact lands in exactly one of found, skipped or errors.
func FindEmails(ctx context.Context, finder EmailFinder, contacts []models.Contact, onProgress ProgressFunc) EmailFindingResult {
	result := EmailFindingResult{
		Contacts: make([]models.Contact, 0, len(contacts)),
	}
	total := len(contacts)

	for i, contact := range contacts {
		c := contact.Clone()

		if c.Company == "" || c.Email != "" {
			result.Skipped++
			result.Contacts = append(result.Contacts, c)
			fireProgress(onProgress, i+1, total)
			continue
		}

		found, err := finder.FindEmail(ctx, c.Name, c.Company)
		if err != nil {
			result.Errors = append(result.Errors, StageError{
				ContactID: c.ID,
				Error:     SanitizeError(err),
			})
			result.Contacts = append(result.Contacts, c)
			fireProgress(onProgress, i+1, total)
			continue
		}

		// No match is not an error: the contact passes through untouched
		// and counts as skipped so every contact lands in exactly one
		// bucket.
		if found == nil {
			result.Skipped++
		} else {
			c.Email = found.Email
			c.EmailConfidence = found.Confidence
			result.Found++
		}

		result.Contacts = append(result.Contacts, c)
		fireProgress(onProgress, i+1, total)
	}

	return result
}
