// Package gmail creates and sends outreach drafts through the Gmail API.
package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// Provider implements draft creation and sending against the user's Gmail
// mailbox. Drafts stay visible in the mailbox between the composition and
// sending stages, so the user can review them.
type Provider struct {
	svc    *gmailapi.Service
	from   string
	logger *slog.Logger
}

// NewOAuthConfig builds the OAuth2 config for the Gmail scopes the provider
// needs. Compose covers both draft creation and sending.
func NewOAuthConfig(clientID, clientSecret string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  "http://localhost:8080/oauth/callback",
		Scopes: []string{
			gmailapi.GmailComposeScope,
		},
		Endpoint: google.Endpoint,
	}
}

// LoadToken reads a stored OAuth token from path
func LoadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to parse token file: %w", err)
	}
	return &token, nil
}

// NewProvider creates a Gmail provider sending as the given address
func NewProvider(ctx context.Context, cfg *oauth2.Config, token *oauth2.Token, from string, logger *slog.Logger) (*Provider, error) {
	if token == nil {
		return nil, fmt.Errorf("token cannot be nil")
	}

	client := cfg.Client(ctx, token)
	svc, err := gmailapi.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return &Provider{
		svc:    svc,
		from:   from,
		logger: logger.With("component", "gmail"),
	}, nil
}

// CreateDraft creates a draft in the mailbox and returns its ID
func (p *Provider) CreateDraft(ctx context.Context, to, subject, body string) (string, error) {
	raw := base64.URLEncoding.EncodeToString(buildMessage(p.from, to, subject, body))

	draft, err := p.svc.Users.Drafts.Create("me", &gmailapi.Draft{
		Message: &gmailapi.Message{Raw: raw},
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to create draft: %w", err)
	}

	p.logger.Debug("draft created", "draft_id", draft.Id, "to", to)
	return draft.Id, nil
}

// SendDraft sends a previously created draft
func (p *Provider) SendDraft(ctx context.Context, draftID string) error {
	_, err := p.svc.Users.Drafts.Send("me", &gmailapi.Draft{Id: draftID}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to send draft %s: %w", draftID, err)
	}

	p.logger.Debug("draft sent", "draft_id", draftID)
	return nil
}

// buildMessage assembles an RFC 2822 message. Subjects are Q-encoded so
// non-ASCII campaign copy survives transport.
func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
