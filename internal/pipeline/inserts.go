package pipeline

import (
	"context"

	"github.com/foxzi/outreach/internal/models"
)

// Page is one fetched page of a contact's website
type Page struct {
	URL  string
	Text string
}

// PageFetcher retrieves pages from a contact's website for grounding the
// personalized insert. Individual fetches are bounded by the provider's
// timeout.
type PageFetcher interface {
	FetchPages(ctx context.Context, url string) ([]Page, error)
}

// InsertContent is a generated personalized insert
type InsertContent struct {
	Text       string
	Confidence int
}

// InsertGenerator produces a personalized insert from a contact and the
// pages fetched from their site.
type InsertGenerator interface {
	GenerateInsert(ctx context.Context, contact models.Contact, pages []Page) (*InsertContent, error)
}

// InsertGenerationResult is the outcome of one insert-generation batch
type InsertGenerationResult struct {
	Contacts  []models.Contact
	Generated int
	Skipped   int
	Errors    []StageError
}

// GenerateInserts runs the insert-generation stage over contacts. Contacts
// without a website URL, whose fetch returned zero pages, or that already
// carry an insert are skipped without an error entry.
func GenerateInserts(ctx context.Context, fetcher PageFetcher, generator InsertGenerator, contacts []models.Contact, onProgress ProgressFunc) InsertGenerationResult {
	result := InsertGenerationResult{
		Contacts: make([]models.Contact, 0, len(contacts)),
	}
	total := len(contacts)

	for i, contact := range contacts {
		c := contact.Clone()

		if c.WebsiteURL == "" || c.Insert != "" {
			result.Skipped++
			result.Contacts = append(result.Contacts, c)
			fireProgress(onProgress, i+1, total)
			continue
		}

		pages, err := fetcher.FetchPages(ctx, c.WebsiteURL)
		if err != nil {
			result.Errors = append(result.Errors, StageError{
				ContactID: c.ID,
				Error:     SanitizeError(err),
			})
			result.Contacts = append(result.Contacts, c)
			fireProgress(onProgress, i+1, total)
			continue
		}
		if len(pages) == 0 {
			result.Skipped++
			result.Contacts = append(result.Contacts, c)
			fireProgress(onProgress, i+1, total)
			continue
		}

		insert, err := generator.GenerateInsert(ctx, c, pages)
		if err != nil {
			result.Errors = append(result.Errors, StageError{
				ContactID: c.ID,
				Error:     SanitizeError(err),
			})
			result.Contacts = append(result.Contacts, c)
			fireProgress(onProgress, i+1, total)
			continue
		}

		c.Insert = insert.Text
		c.InsertConfidence = insert.Confidence
		result.Generated++

		result.Contacts = append(result.Contacts, c)
		fireProgress(onProgress, i+1, total)
	}

	return result
}
