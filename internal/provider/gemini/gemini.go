// Package gemini generates personalized inserts and email drafts using
// Google's Gemini API.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/foxzi/outreach/internal/models"
	"github.com/foxzi/outreach/internal/pipeline"
)

const defaultModel = "gemini-2.0-flash"

// Generator produces inserts and drafts. Both calls request strict JSON
// output so responses parse without prose stripping.
type Generator struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

func NewGenerator(ctx context.Context, apiKey, model string, logger *slog.Logger) (*Generator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = defaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &Generator{
		client: client,
		model:  model,
		logger: logger.With("component", "gemini"),
	}, nil
}

type insertOutput struct {
	Insert     string `json:"insert"`
	Confidence int    `json:"confidence"`
}

// GenerateInsert writes a short personalized opener grounded in the pages
// fetched from the contact's site.
func (g *Generator) GenerateInsert(ctx context.Context, contact models.Contact, pages []pipeline.Page) (*pipeline.InsertContent, error) {
	var site strings.Builder
	for _, p := range pages {
		site.WriteString(p.Text)
		site.WriteString("\n")
	}

	prompt := fmt.Sprintf(`You are writing the opening line of a cold outreach email.
Contact: %s at %s.
Their website says:
%s

Write one specific, non-generic sentence referencing something concrete from
their site. Respond as JSON: {"insert": "...", "confidence": 0-100} where
confidence reflects how specific the site content allowed you to be.`,
		contact.Name, contact.Company, site.String())

	var out insertOutput
	if err := g.generateJSON(ctx, prompt, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.Insert) == "" {
		return nil, fmt.Errorf("model returned empty insert")
	}
	return &pipeline.InsertContent{Text: out.Insert, Confidence: out.Confidence}, nil
}

type draftOutput struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// GenerateDraft composes the full outreach email, weaving in the contact's
// personalized insert as the opener.
func (g *Generator) GenerateDraft(ctx context.Context, contact models.Contact) (*pipeline.DraftContent, error) {
	prompt := fmt.Sprintf(`Compose a short cold outreach email.
Recipient: %s at %s.
Open with exactly this personalized line: %q
Keep the whole email under 120 words, plain text, no placeholders.
Respond as JSON: {"subject": "...", "body": "..."}`,
		contact.Name, contact.Company, contact.Insert)

	var out draftOutput
	if err := g.generateJSON(ctx, prompt, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.Subject) == "" || strings.TrimSpace(out.Body) == "" {
		return nil, fmt.Errorf("model returned incomplete draft")
	}
	return &pipeline.DraftContent{Subject: out.Subject, Body: out.Body}, nil
}

func (g *Generator) generateJSON(ctx context.Context, prompt string, dst any) error {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return fmt.Errorf("model returned empty response")
	}
	if err := json.Unmarshal([]byte(text), dst); err != nil {
		return fmt.Errorf("parsing model output: %w", err)
	}
	return nil
}
