package repository

import (
	"testing"

	"github.com/foxzi/outreach/internal/models"
)

func TestCampaignCreateAndGet(t *testing.T) {
	sqlDB := setupTestDB(t)
	repo := NewCampaignRepository(sqlDB)

	c := &models.Campaign{UserID: "u1", Name: "Q3 SaaS founders"}
	if err := repo.Create(c); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	createTestContact(t, sqlDB, "u1", c.ID, "Alice")
	createTestContact(t, sqlDB, "u1", c.ID, "Bob")

	got, err := repo.GetByID(c.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got == nil {
		t.Fatal("GetByID returned nil")
	}
	if got.Name != "Q3 SaaS founders" {
		t.Errorf("Name = %q", got.Name)
	}
	if got.ContactCount != 2 {
		t.Errorf("ContactCount = %d, want 2", got.ContactCount)
	}
}

func TestCampaignGetByIDNotFound(t *testing.T) {
	sqlDB := setupTestDB(t)
	repo := NewCampaignRepository(sqlDB)

	got, err := repo.GetByID("missing")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestCampaignListByUser(t *testing.T) {
	sqlDB := setupTestDB(t)
	repo := NewCampaignRepository(sqlDB)

	repo.Create(&models.Campaign{UserID: "u1", Name: "first"})
	repo.Create(&models.Campaign{UserID: "u1", Name: "second"})
	repo.Create(&models.Campaign{UserID: "u2", Name: "other"})

	list, err := repo.ListByUser("u1")
	if err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("ListByUser returned %d campaigns, want 2", len(list))
	}
}

func TestSavedViewUniqueName(t *testing.T) {
	sqlDB := setupTestDB(t)
	repo := NewSavedViewRepository(sqlDB)

	v := &models.SavedView{UserID: "u1", Name: "replied this week", Filters: `{"pipelineStage":"replied"}`}
	if err := repo.Create(v); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	dup := &models.SavedView{UserID: "u1", Name: "replied this week", Filters: `{}`}
	if err := repo.Create(dup); err == nil {
		t.Error("Create should reject a duplicate name for the same user")
	}

	// Same name under another user is fine
	other := &models.SavedView{UserID: "u2", Name: "replied this week", Filters: `{}`}
	if err := repo.Create(other); err != nil {
		t.Errorf("Create for other user failed: %v", err)
	}

	list, err := repo.ListByUser("u1")
	if err != nil || len(list) != 1 {
		t.Errorf("ListByUser = %d views, %v; want 1", len(list), err)
	}
}
