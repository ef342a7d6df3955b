package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/foxzi/outreach/internal/models"
	"github.com/google/uuid"
)

type CampaignRepository struct {
	db *sql.DB
}

func NewCampaignRepository(db *sql.DB) *CampaignRepository {
	return &CampaignRepository{db: db}
}

// Create creates a new campaign
func (r *CampaignRepository) Create(c *models.Campaign) error {
	c.ID = uuid.New().String()
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt

	_, err := r.db.Exec(`
		INSERT INTO campaigns (id, user_id, name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Name, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create campaign: %w", err)
	}
	return nil
}

// GetByID returns a campaign by ID, or nil when not found
func (r *CampaignRepository) GetByID(id string) (*models.Campaign, error) {
	c := &models.Campaign{}
	err := r.db.QueryRow(`
		SELECT c.id, c.user_id, c.name, c.created_at, c.updated_at,
			(SELECT COUNT(*) FROM contacts WHERE campaign_id = c.id)
		FROM campaigns c WHERE c.id = ?`, id,
	).Scan(&c.ID, &c.UserID, &c.Name, &c.CreatedAt, &c.UpdatedAt, &c.ContactCount)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListByUser returns a user's campaigns, newest first
func (r *CampaignRepository) ListByUser(userID string) ([]models.Campaign, error) {
	rows, err := r.db.Query(`
		SELECT c.id, c.user_id, c.name, c.created_at, c.updated_at,
			(SELECT COUNT(*) FROM contacts WHERE campaign_id = c.id)
		FROM campaigns c WHERE c.user_id = ? ORDER BY c.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Campaign
	for rows.Next() {
		var c models.Campaign
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.CreatedAt, &c.UpdatedAt, &c.ContactCount); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
