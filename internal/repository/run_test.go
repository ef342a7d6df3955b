package repository

import (
	"errors"
	"testing"

	"github.com/foxzi/outreach/internal/models"
)

func startTestRun(t *testing.T, repo *RunRepository, userID, campaignID string) *models.CampaignRun {
	t.Helper()

	run := &models.CampaignRun{
		UserID:     userID,
		CampaignID: campaignID,
		State:      models.RunStateEmailFinding,
		TotalCount: 5,
	}
	if err := repo.Start(run); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	return run
}

func TestRunStartAndGet(t *testing.T) {
	sqlDB := setupTestDB(t)
	campaign := createTestCampaign(t, sqlDB, "u1")
	repo := NewRunRepository(sqlDB)

	startTestRun(t, repo, "u1", campaign.ID)

	run, err := repo.GetByCampaign(campaign.ID)
	if err != nil {
		t.Fatalf("GetByCampaign failed: %v", err)
	}
	if run == nil {
		t.Fatal("GetByCampaign returned nil")
	}
	if run.State != models.RunStateEmailFinding || !run.StageActive {
		t.Errorf("run = %+v, want active emailFindingRunning", run)
	}

	active, err := repo.HasActive("u1")
	if err != nil || !active {
		t.Errorf("HasActive = %v, %v; want true", active, err)
	}
}

func TestRunSingleFlightPerUser(t *testing.T) {
	sqlDB := setupTestDB(t)
	first := createTestCampaign(t, sqlDB, "u1")
	second := createTestCampaign(t, sqlDB, "u1")
	repo := NewRunRepository(sqlDB)

	startTestRun(t, repo, "u1", first.ID)

	err := repo.Start(&models.CampaignRun{
		UserID:     "u1",
		CampaignID: second.ID,
		State:      models.RunStateEmailFinding,
	})
	if !errors.Is(err, ErrRunActive) {
		t.Errorf("second Start = %v, want ErrRunActive", err)
	}

	// A different user is unaffected
	other := createTestCampaign(t, sqlDB, "u2")
	if err := repo.Start(&models.CampaignRun{
		UserID:     "u2",
		CampaignID: other.ID,
		State:      models.RunStateEmailFinding,
	}); err != nil {
		t.Errorf("Start for other user failed: %v", err)
	}
}

func TestRunDeactivateReleasesSingleFlight(t *testing.T) {
	sqlDB := setupTestDB(t)
	first := createTestCampaign(t, sqlDB, "u1")
	second := createTestCampaign(t, sqlDB, "u1")
	repo := NewRunRepository(sqlDB)

	startTestRun(t, repo, "u1", first.ID)
	if err := repo.Deactivate(first.ID); err != nil {
		t.Fatalf("Deactivate failed: %v", err)
	}

	active, _ := repo.HasActive("u1")
	if active {
		t.Error("HasActive still true after Deactivate")
	}

	// State survives as the pipeline position
	run, _ := repo.GetByCampaign(first.ID)
	if run.State != models.RunStateEmailFinding {
		t.Errorf("state = %q after Deactivate, want unchanged", run.State)
	}

	if err := repo.Start(&models.CampaignRun{
		UserID:     "u1",
		CampaignID: second.ID,
		State:      models.RunStateEmailFinding,
	}); err != nil {
		t.Errorf("Start after Deactivate failed: %v", err)
	}
}

func TestRunAdvanceCAS(t *testing.T) {
	sqlDB := setupTestDB(t)
	campaign := createTestCampaign(t, sqlDB, "u1")
	repo := NewRunRepository(sqlDB)

	startTestRun(t, repo, "u1", campaign.ID)
	repo.Deactivate(campaign.ID)

	ok, err := repo.Advance(campaign.ID, models.RunStateEmailFinding, models.RunStateInserts, 4)
	if err != nil || !ok {
		t.Fatalf("Advance = %v, %v; want true", ok, err)
	}

	run, _ := repo.GetByCampaign(campaign.ID)
	if run.State != models.RunStateInserts || !run.StageActive {
		t.Errorf("run = %+v after Advance", run)
	}
	if run.ProcessedCount != 0 || run.TotalCount != 4 {
		t.Errorf("Advance should reset progress, got %+v", run)
	}

	// Wrong fromState must not match
	repo.Deactivate(campaign.ID)
	ok, err = repo.Advance(campaign.ID, models.RunStateEmailFinding, models.RunStateDrafts, 4)
	if err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if ok {
		t.Error("Advance matched a stale fromState")
	}
}

func TestRunTransitionState(t *testing.T) {
	sqlDB := setupTestDB(t)
	campaign := createTestCampaign(t, sqlDB, "u1")
	repo := NewRunRepository(sqlDB)

	run := startTestRun(t, repo, "u1", campaign.ID)
	run.State = models.RunStateSending
	repo.Deactivate(campaign.ID)
	ok, err := repo.Advance(campaign.ID, models.RunStateEmailFinding, models.RunStateSending, 5)
	if err != nil || !ok {
		t.Fatalf("Advance = %v, %v", ok, err)
	}

	ok, err = repo.TransitionState(campaign.ID, models.RunStateSending, models.RunStateComplete)
	if err != nil || !ok {
		t.Fatalf("TransitionState = %v, %v; want true", ok, err)
	}

	got, _ := repo.GetByCampaign(campaign.ID)
	if got.State != models.RunStateComplete || got.StageActive {
		t.Errorf("run = %+v, want inactive complete", got)
	}
	if got.CompletedAt == nil {
		t.Error("CompletedAt not stamped on completion")
	}

	// CAS with stale fromState
	ok, _ = repo.TransitionState(campaign.ID, models.RunStateSending, models.RunStateComplete)
	if ok {
		t.Error("TransitionState matched a stale fromState")
	}
}

func TestRunProgressAndErrors(t *testing.T) {
	sqlDB := setupTestDB(t)
	campaign := createTestCampaign(t, sqlDB, "u1")
	repo := NewRunRepository(sqlDB)

	startTestRun(t, repo, "u1", campaign.ID)

	if err := repo.UpdateProcessed(campaign.ID, 3); err != nil {
		t.Fatalf("UpdateProcessed failed: %v", err)
	}
	runErrors := []models.RunError{{ContactID: "c1", Stage: "email_finding", Error: "no match"}}
	if err := repo.UpdateProgress(campaign.ID, 5, runErrors); err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}

	run, _ := repo.GetByCampaign(campaign.ID)
	if run.ProcessedCount != 5 {
		t.Errorf("ProcessedCount = %d, want 5", run.ProcessedCount)
	}
	if len(run.Errors) != 1 || run.Errors[0].ContactID != "c1" {
		t.Errorf("Errors = %+v", run.Errors)
	}
}

func TestRunErrorsAccumulateAcrossStages(t *testing.T) {
	sqlDB := setupTestDB(t)
	campaign := createTestCampaign(t, sqlDB, "u1")
	repo := NewRunRepository(sqlDB)

	startTestRun(t, repo, "u1", campaign.ID)
	first := []models.RunError{{ContactID: "c1", Stage: "email_finding", Error: "no match"}}
	if err := repo.UpdateProgress(campaign.ID, 5, first); err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}
	repo.Deactivate(campaign.ID)

	ok, err := repo.Advance(campaign.ID, models.RunStateEmailFinding, models.RunStateInserts, 4)
	if err != nil || !ok {
		t.Fatalf("Advance = %v, %v; want true", ok, err)
	}
	second := []models.RunError{{ContactID: "c2", Stage: "inserts", Error: "generation failed"}}
	if err := repo.UpdateProgress(campaign.ID, 4, second); err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}

	run, _ := repo.GetByCampaign(campaign.ID)
	if len(run.Errors) != 2 {
		t.Fatalf("Errors = %+v, want entries from both stages", run.Errors)
	}
	if run.Errors[0].Stage != "email_finding" || run.Errors[1].Stage != "inserts" {
		t.Errorf("stage tags = %q, %q", run.Errors[0].Stage, run.Errors[1].Stage)
	}
}

func TestRunStartReplacesInactiveRow(t *testing.T) {
	sqlDB := setupTestDB(t)
	campaign := createTestCampaign(t, sqlDB, "u1")
	repo := NewRunRepository(sqlDB)

	startTestRun(t, repo, "u1", campaign.ID)
	repo.TransitionState(campaign.ID, models.RunStateEmailFinding, models.RunStateFailed)

	if err := repo.Start(&models.CampaignRun{
		UserID:     "u1",
		CampaignID: campaign.ID,
		State:      models.RunStateEmailFinding,
		TotalCount: 2,
	}); err != nil {
		t.Fatalf("restart failed: %v", err)
	}

	run, _ := repo.GetByCampaign(campaign.ID)
	if run.State != models.RunStateEmailFinding || !run.StageActive {
		t.Errorf("run = %+v after restart", run)
	}
	if run.TotalCount != 2 || run.CompletedAt != nil {
		t.Errorf("restart should reset the row, got %+v", run)
	}
}
