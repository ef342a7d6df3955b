package pipeline

import (
	"database/sql"
	"io"
	"log/slog"
	"testing"

	"github.com/foxzi/outreach/internal/db"
	"github.com/foxzi/outreach/internal/models"
	"github.com/foxzi/outreach/internal/repository"
	"github.com/google/uuid"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testEnv struct {
	db        *sql.DB
	contacts  *repository.ContactRepository
	campaigns *repository.CampaignRepository
	runs      *repository.RunRepository
	manager   *Manager
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	database, err := db.New(":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := database.Migrate(); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	runs := repository.NewRunRepository(database.DB)
	contacts := repository.NewContactRepository(database.DB)
	return &testEnv{
		db:        database.DB,
		contacts:  contacts,
		campaigns: repository.NewCampaignRepository(database.DB),
		runs:      runs,
		manager:   NewManager(runs, contacts, testLogger()),
	}
}

// newCampaign creates a campaign with n prospect contacts
func (e *testEnv) newCampaign(t *testing.T, userID string, n int) *models.Campaign {
	t.Helper()

	c := &models.Campaign{UserID: userID, Name: "test campaign"}
	if err := e.campaigns.Create(c); err != nil {
		t.Fatalf("failed to create campaign: %v", err)
	}
	for i := 0; i < n; i++ {
		contact := &models.Contact{
			ID:         uuid.New().String(),
			UserID:     userID,
			CampaignID: c.ID,
			Name:       "Contact " + string(rune('A'+i)),
			Company:    "Acme",
			WebsiteURL: "https://acme.example",
		}
		if err := e.contacts.Create(contact); err != nil {
			t.Fatalf("failed to create contact: %v", err)
		}
	}
	return c
}
