package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/foxzi/outreach/internal/models"
	"github.com/google/uuid"
)

// ErrRunActive is returned when the single-flight guard rejects a new stage.
// The partial unique index on campaign_runs(user_id) raises it even when two
// processes race past the in-process check.
var ErrRunActive = errors.New("another run is already active for this user")

type RunRepository struct {
	db *sql.DB
}

func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

const runColumns = `id, user_id, campaign_id, state, stage_active, processed_count, total_count, errors, started_at, completed_at`

// HasActive reports whether the user has a stage batch executing right now
func (r *RunRepository) HasActive(userID string) (bool, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM campaign_runs WHERE user_id = ? AND stage_active = 1`, userID).Scan(&n)
	return n > 0, err
}

// GetByCampaign returns the run row for a campaign, or nil
func (r *RunRepository) GetByCampaign(campaignID string) (*models.CampaignRun, error) {
	row := r.db.QueryRow(`SELECT `+runColumns+` FROM campaign_runs WHERE campaign_id = ?`, campaignID)
	return scanRun(row)
}

// Start writes a fresh, active run row for the campaign in the given running
// state. An existing inactive run row for the campaign is replaced. A
// concurrent active stage for the same user yields ErrRunActive via the
// partial unique index.
func (r *RunRepository) Start(run *models.CampaignRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	run.StartedAt = time.Now()
	run.CompletedAt = nil

	errorsJSON, err := marshalRunErrors(run.Errors)
	if err != nil {
		return err
	}

	// Replace a previous run for this campaign in place.
	res, err := r.db.Exec(`
		UPDATE campaign_runs
		SET state = ?, stage_active = 1, processed_count = ?, total_count = ?, errors = ?, started_at = ?, completed_at = NULL
		WHERE campaign_id = ? AND stage_active = 0`,
		run.State, run.ProcessedCount, run.TotalCount, errorsJSON, run.StartedAt, run.CampaignID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrRunActive
		}
		return fmt.Errorf("failed to restart run: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 1 {
		return nil
	}

	_, err = r.db.Exec(`
		INSERT INTO campaign_runs (id, user_id, campaign_id, state, stage_active, processed_count, total_count, errors, started_at)
		VALUES (?, ?, ?, ?, 1, ?, ?, ?, ?)`,
		run.ID, run.UserID, run.CampaignID, run.State, run.ProcessedCount, run.TotalCount, errorsJSON, run.StartedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrRunActive
		}
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// Advance moves the run from one state to the next and marks the new stage
// active, resetting per-stage progress. Accumulated errors survive: each
// carries its stage tag, so the run record covers the whole pipeline. The
// conditional WHERE makes it a compare-and-swap: false means the stored
// state diverged from the caller's view.
func (r *RunRepository) Advance(campaignID, fromState, toState string, totalCount int) (bool, error) {
	res, err := r.db.Exec(`
		UPDATE campaign_runs
		SET state = ?, stage_active = 1, processed_count = 0, total_count = ?, started_at = ?
		WHERE campaign_id = ? AND state = ? AND stage_active = 0`,
		toState, totalCount, time.Now(), campaignID, fromState,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return false, ErrRunActive
		}
		return false, fmt.Errorf("failed to advance run: %w", err)
	}
	affected, _ := res.RowsAffected()
	return affected == 1, nil
}

// TransitionState moves the run to a new state only if it currently holds
// fromState, deactivating any executing stage. completed_at is stamped only
// on the transition to complete.
func (r *RunRepository) TransitionState(campaignID, fromState, toState string) (bool, error) {
	var res sql.Result
	var err error
	if toState == models.RunStateComplete {
		res, err = r.db.Exec(`
			UPDATE campaign_runs SET state = ?, stage_active = 0, completed_at = ?
			WHERE campaign_id = ? AND state = ?`,
			toState, time.Now(), campaignID, fromState,
		)
	} else {
		res, err = r.db.Exec(`
			UPDATE campaign_runs SET state = ?, stage_active = 0
			WHERE campaign_id = ? AND state = ?`,
			toState, campaignID, fromState,
		)
	}
	if err != nil {
		return false, fmt.Errorf("failed to transition run: %w", err)
	}
	affected, _ := res.RowsAffected()
	return affected == 1, nil
}

// Deactivate marks the current stage batch as no longer executing. The run
// keeps its state as the campaign's pipeline position.
func (r *RunRepository) Deactivate(campaignID string) error {
	_, err := r.db.Exec(`UPDATE campaign_runs SET stage_active = 0 WHERE campaign_id = ?`, campaignID)
	if err != nil {
		return fmt.Errorf("failed to deactivate run: %w", err)
	}
	return nil
}

// UpdateProcessed persists only the processed counter, used by per-item
// progress callbacks.
func (r *RunRepository) UpdateProcessed(campaignID string, processed int) error {
	_, err := r.db.Exec(`UPDATE campaign_runs SET processed_count = ? WHERE campaign_id = ?`, processed, campaignID)
	if err != nil {
		return fmt.Errorf("failed to update processed count: %w", err)
	}
	return nil
}

// UpdateProgress persists the processed counter and appends the stage's
// errors to the run record. Errors accumulate across stages; only a fresh
// Start clears them. The active-stage guard in Advance guarantees a single
// writer, so read-then-write here does not race.
func (r *RunRepository) UpdateProgress(campaignID string, processed int, runErrors []models.RunError) error {
	var errorsJSON sql.NullString
	err := r.db.QueryRow(`SELECT errors FROM campaign_runs WHERE campaign_id = ?`, campaignID).Scan(&errorsJSON)
	if err == sql.ErrNoRows {
		return fmt.Errorf("no run for campaign %s", campaignID)
	}
	if err != nil {
		return fmt.Errorf("failed to read run errors: %w", err)
	}
	existing := []models.RunError{}
	if errorsJSON.Valid && errorsJSON.String != "" {
		if err := json.Unmarshal([]byte(errorsJSON.String), &existing); err != nil {
			return fmt.Errorf("failed to parse run errors: %w", err)
		}
	}
	combined, err := marshalRunErrors(append(existing, runErrors...))
	if err != nil {
		return err
	}
	_, err = r.db.Exec(`
		UPDATE campaign_runs SET processed_count = ?, errors = ?
		WHERE campaign_id = ?`,
		processed, combined, campaignID,
	)
	if err != nil {
		return fmt.Errorf("failed to update run progress: %w", err)
	}
	return nil
}

func scanRun(row *sql.Row) (*models.CampaignRun, error) {
	run := &models.CampaignRun{}
	var active int
	var errorsJSON sql.NullString
	var completedAt sql.NullTime
	err := row.Scan(
		&run.ID, &run.UserID, &run.CampaignID, &run.State, &active,
		&run.ProcessedCount, &run.TotalCount, &errorsJSON, &run.StartedAt, &completedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	run.StageActive = active == 1
	if completedAt.Valid {
		t := completedAt.Time
		run.CompletedAt = &t
	}
	run.Errors = []models.RunError{}
	if errorsJSON.Valid && errorsJSON.String != "" {
		if err := json.Unmarshal([]byte(errorsJSON.String), &run.Errors); err != nil {
			return nil, fmt.Errorf("failed to parse run errors: %w", err)
		}
	}
	return run, nil
}

func marshalRunErrors(runErrors []models.RunError) (string, error) {
	if runErrors == nil {
		runErrors = []models.RunError{}
	}
	data, err := json.Marshal(runErrors)
	if err != nil {
		return "", fmt.Errorf("failed to marshal run errors: %w", err)
	}
	return string(data), nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint")
}
