// Package smtpmail is a MailProvider backed by an SMTP relay. Drafts are
// held in a local bbolt store until the sending stage submits them, which
// keeps them reviewable between stages without a mailbox API.
package smtpmail

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

var bucketDrafts = []byte("drafts")

// Config holds relay connection settings
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

type draft struct {
	To      string    `json:"to"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	Created time.Time `json:"created"`
}

// Provider creates drafts locally and sends them through the configured
// relay. An optional DKIM signer signs messages before handoff.
type Provider struct {
	cfg    Config
	store  *bolt.DB
	signer *Signer
	logger *slog.Logger
}

func NewProvider(cfg Config, storePath string, logger *slog.Logger) (*Provider, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	store, err := bolt.Open(storePath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open draft store: %w", err)
	}
	err = store.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketDrafts)
		return err
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to init draft store: %w", err)
	}

	return &Provider{
		cfg:    cfg,
		store:  store,
		logger: logger.With("component", "smtpmail"),
	}, nil
}

// SetSigner enables DKIM signing for outgoing messages
func (p *Provider) SetSigner(s *Signer) {
	p.signer = s
}

func (p *Provider) Close() error {
	return p.store.Close()
}

// CreateDraft stores the draft locally and returns its ID
func (p *Provider) CreateDraft(ctx context.Context, to, subject, body string) (string, error) {
	id := uuid.New().String()
	data, err := json.Marshal(draft{To: to, Subject: subject, Body: body, Created: time.Now()})
	if err != nil {
		return "", err
	}

	err = p.store.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketDrafts).Put([]byte(id), data)
	})
	if err != nil {
		return "", fmt.Errorf("failed to store draft: %w", err)
	}

	p.logger.Debug("draft stored", "draft_id", id, "to", to)
	return id, nil
}

// SendDraft submits a stored draft to the relay and removes it on success
func (p *Provider) SendDraft(ctx context.Context, draftID string) error {
	var d draft
	err := p.store.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketDrafts).Get([]byte(draftID))
		if data == nil {
			return fmt.Errorf("draft %s not found", draftID)
		}
		return json.Unmarshal(data, &d)
	})
	if err != nil {
		return err
	}

	msg := buildMessage(p.cfg.From, d.To, d.Subject, d.Body)
	if p.signer != nil {
		msg, err = p.signer.Sign(msg)
		if err != nil {
			return fmt.Errorf("failed to sign message: %w", err)
		}
	}

	if err := p.submit(ctx, d.To, msg); err != nil {
		return err
	}

	err = p.store.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketDrafts).Delete([]byte(draftID))
	})
	if err != nil {
		p.logger.Warn("failed to remove sent draft", "draft_id", draftID, "error", err)
	}
	return nil
}

func (p *Provider) submit(ctx context.Context, to string, msg []byte) error {
	addr := fmt.Sprintf("%s:%d", p.cfg.Host, p.cfg.Port)

	client, err := smtp.DialStartTLS(addr, &tls.Config{ServerName: p.cfg.Host})
	if err != nil {
		return fmt.Errorf("failed to connect to relay %s: %w", addr, err)
	}
	defer client.Close()
	client.CommandTimeout = p.cfg.Timeout
	client.SubmissionTimeout = p.cfg.Timeout

	if p.cfg.Username != "" {
		auth := sasl.NewPlainClient("", p.cfg.Username, p.cfg.Password)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("relay auth failed: %w", err)
		}
	}

	if err := client.SendMail(p.cfg.From, []string{to}, strings.NewReader(string(msg))); err != nil {
		return fmt.Errorf("failed to send to %s: %w", to, err)
	}

	p.logger.Info("message relayed", "to", to, "relay", addr)
	return client.Quit()
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", subject) + "\r\n")
	b.WriteString("Date: " + time.Now().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
