package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/foxzi/outreach/internal/models"
	"github.com/google/uuid"
)

// updateColumns maps externally addressable field names to contact columns.
// Anything not in this map is rejected before it reaches storage.
var updateColumns = map[string]string{
	"name":           "name",
	"company":        "company",
	"email":          "email",
	"website_url":    "website_url",
	"pipeline_stage": "pipeline_stage",
}

// AllowedUpdateField reports whether field may be written through the
// update/bulk-update actions.
func AllowedUpdateField(field string) bool {
	_, ok := updateColumns[field]
	return ok
}

type ContactRepository struct {
	db *sql.DB
}

func NewContactRepository(db *sql.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

// Create creates a new contact
func (r *ContactRepository) Create(c *models.Contact) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.EmailStatus == "" {
		c.EmailStatus = models.EmailStatusNone
	}
	if c.PipelineStage == "" {
		c.PipelineStage = models.PipelineStageProspect
	}
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt

	custom, err := marshalCustom(c.Custom)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(`
		INSERT INTO contacts (id, user_id, campaign_id, name, company, email, email_confidence,
			website_url, insert_text, insert_confidence, email_status, draft_id, pipeline_stage,
			sent_at, custom, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, nullable(c.CampaignID), c.Name, c.Company, c.Email, c.EmailConfidence,
		c.WebsiteURL, c.Insert, c.InsertConfidence, c.EmailStatus, c.DraftID, c.PipelineStage,
		c.SentAt, custom, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create contact: %w", err)
	}
	return nil
}

const contactColumns = `id, user_id, campaign_id, name, company, email, email_confidence,
	website_url, insert_text, insert_confidence, email_status, draft_id, pipeline_stage,
	sent_at, custom, created_at, updated_at`

// GetByID returns a contact by ID, or nil when not found
func (r *ContactRepository) GetByID(id string) (*models.Contact, error) {
	row := r.db.QueryRow(`SELECT `+contactColumns+` FROM contacts WHERE id = ?`, id)
	c, err := scanContact(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListByCampaign returns all contacts in a campaign in creation order
func (r *ContactRepository) ListByCampaign(campaignID string) ([]models.Contact, error) {
	rows, err := r.db.Query(`SELECT `+contactColumns+` FROM contacts WHERE campaign_id = ? ORDER BY created_at, id`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectContacts(rows)
}

// CountByCampaign returns the number of contacts in a campaign
func (r *ContactRepository) CountByCampaign(campaignID string) (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM contacts WHERE campaign_id = ?`, campaignID).Scan(&n)
	return n, err
}

// CountByCampaignWithEmail returns the number of campaign contacts that
// already carry an email address. Used by the insert-generation skip path.
func (r *ContactRepository) CountByCampaignWithEmail(campaignID string) (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM contacts WHERE campaign_id = ? AND email != ''`, campaignID).Scan(&n)
	return n, err
}

// Query returns contacts matching the filter, scoped to one user
func (r *ContactRepository) Query(userID string, f models.ContactFilter) ([]models.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE user_id = ?`
	args := []any{userID}

	if f.CampaignID != "" {
		query += " AND campaign_id = ?"
		args = append(args, f.CampaignID)
	}
	if f.PipelineStage != "" {
		query += " AND pipeline_stage = ?"
		args = append(args, f.PipelineStage)
	}
	if f.EmailStatus != "" {
		query += " AND email_status = ?"
		args = append(args, f.EmailStatus)
	}
	if f.Company != "" {
		query += " AND company LIKE ?"
		args = append(args, "%"+f.Company+"%")
	}

	query += " ORDER BY created_at, id"
	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	query += " LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectContacts(rows)
}

// UpdateField updates a single allowlisted field on one contact
func (r *ContactRepository) UpdateField(userID, contactID, field, value string) error {
	col, ok := updateColumns[field]
	if !ok {
		return fmt.Errorf("field %q is not updatable", field)
	}

	res, err := r.db.Exec(
		`UPDATE contacts SET `+col+` = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		value, time.Now(), contactID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update contact: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("contact %s not found", contactID)
	}
	return nil
}

// MoveStage moves one contact to a new pipeline stage
func (r *ContactRepository) MoveStage(userID, contactID, stage string) error {
	return r.UpdateField(userID, contactID, "pipeline_stage", stage)
}

// BulkUpdate sets one allowlisted field to the same value on a list of
// contacts and returns how many rows changed.
func (r *ContactRepository) BulkUpdate(userID string, contactIDs []string, field, value string) (int, error) {
	col, ok := updateColumns[field]
	if !ok {
		return 0, fmt.Errorf("field %q is not updatable", field)
	}
	if len(contactIDs) == 0 {
		return 0, nil
	}

	placeholders := strings.Repeat("?,", len(contactIDs))
	placeholders = placeholders[:len(placeholders)-1]
	args := []any{value, time.Now()}
	for _, id := range contactIDs {
		args = append(args, id)
	}
	args = append(args, userID)

	res, err := r.db.Exec(
		`UPDATE contacts SET `+col+` = ?, updated_at = ? WHERE id IN (`+placeholders+`) AND user_id = ?`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to bulk update contacts: %w", err)
	}
	affected, _ := res.RowsAffected()
	return int(affected), nil
}

// Delete removes contacts by id and returns how many rows were deleted
func (r *ContactRepository) Delete(userID string, contactIDs []string) (int, error) {
	if len(contactIDs) == 0 {
		return 0, nil
	}

	placeholders := strings.Repeat("?,", len(contactIDs))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, 0, len(contactIDs)+1)
	for _, id := range contactIDs {
		args = append(args, id)
	}
	args = append(args, userID)

	res, err := r.db.Exec(
		`DELETE FROM contacts WHERE id IN (`+placeholders+`) AND user_id = ?`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete contacts: %w", err)
	}
	affected, _ := res.RowsAffected()
	return int(affected), nil
}

// UpdateWorkflow persists the workflow fields a stage executor may have
// changed: email, insert, draft, send status and pipeline stage.
func (r *ContactRepository) UpdateWorkflow(c *models.Contact) error {
	_, err := r.db.Exec(`
		UPDATE contacts SET email = ?, email_confidence = ?, insert_text = ?, insert_confidence = ?,
			email_status = ?, draft_id = ?, pipeline_stage = ?, sent_at = ?, updated_at = ?
		WHERE id = ?`,
		c.Email, c.EmailConfidence, c.Insert, c.InsertConfidence,
		c.EmailStatus, c.DraftID, c.PipelineStage, c.SentAt, time.Now(), c.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update contact workflow: %w", err)
	}
	return nil
}

func scanContact(row interface{ Scan(...any) error }) (*models.Contact, error) {
	c := &models.Contact{}
	var campaignID, custom sql.NullString
	var sentAt sql.NullTime
	err := row.Scan(
		&c.ID, &c.UserID, &campaignID, &c.Name, &c.Company, &c.Email, &c.EmailConfidence,
		&c.WebsiteURL, &c.Insert, &c.InsertConfidence, &c.EmailStatus, &c.DraftID, &c.PipelineStage,
		&sentAt, &custom, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.CampaignID = campaignID.String
	if sentAt.Valid {
		t := sentAt.Time
		c.SentAt = &t
	}
	if custom.Valid && custom.String != "" {
		if err := json.Unmarshal([]byte(custom.String), &c.Custom); err != nil {
			return nil, fmt.Errorf("failed to parse custom fields: %w", err)
		}
	}
	return c, nil
}

func collectContacts(rows *sql.Rows) ([]models.Contact, error) {
	var contacts []models.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, *c)
	}
	return contacts, rows.Err()
}

func marshalCustom(custom map[string]string) (any, error) {
	if len(custom) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(custom)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal custom fields: %w", err)
	}
	return string(data), nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
