package repository

import (
	"database/sql"
	"testing"

	"github.com/foxzi/outreach/internal/db"
	"github.com/foxzi/outreach/internal/models"
	"github.com/google/uuid"
)

// setupTestDB creates an in-memory SQLite database with all migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	database, err := db.New(":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := database.Migrate(); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	return database.DB
}

// createTestCampaign inserts a campaign row for contact tests
func createTestCampaign(t *testing.T, sqlDB *sql.DB, userID string) *models.Campaign {
	t.Helper()

	campaigns := NewCampaignRepository(sqlDB)
	c := &models.Campaign{
		ID:     uuid.New().String(),
		UserID: userID,
		Name:   "Q3 SaaS founders",
	}
	if err := campaigns.Create(c); err != nil {
		t.Fatalf("failed to create test campaign: %v", err)
	}
	return c
}

// createTestContact inserts a contact into the campaign
func createTestContact(t *testing.T, sqlDB *sql.DB, userID, campaignID, name string) *models.Contact {
	t.Helper()

	contacts := NewContactRepository(sqlDB)
	c := &models.Contact{
		ID:         uuid.New().String(),
		UserID:     userID,
		CampaignID: campaignID,
		Name:       name,
		Company:    "Acme",
		WebsiteURL: "https://acme.example",
	}
	if err := contacts.Create(c); err != nil {
		t.Fatalf("failed to create test contact: %v", err)
	}
	return c
}
