package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/foxzi/outreach/internal/models"
	"github.com/google/uuid"
)

type StagingRepository struct {
	db *sql.DB
}

func NewStagingRepository(db *sql.DB) *StagingRepository {
	return &StagingRepository{db: db}
}

// Stage inserts discovered candidates for later review
func (r *StagingRepository) Stage(userID string, contacts []models.StagedContact) ([]models.StagedContact, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	now := time.Now()
	out := make([]models.StagedContact, 0, len(contacts))
	for _, sc := range contacts {
		sc.ID = uuid.New().String()
		sc.UserID = userID
		sc.CreatedAt = now
		_, err := tx.Exec(`
			INSERT INTO staged_contacts (id, user_id, name, company, title, url, snippet, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			sc.ID, sc.UserID, sc.Name, sc.Company, sc.Title, sc.URL, sc.Snippet, sc.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to stage contact: %w", err)
		}
		out = append(out, sc)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListByUser returns all staged contacts for a user, oldest first
func (r *StagingRepository) ListByUser(userID string) ([]models.StagedContact, error) {
	rows, err := r.db.Query(`
		SELECT id, user_id, name, company, title, url, snippet, created_at
		FROM staged_contacts WHERE user_id = ? ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.StagedContact
	for rows.Next() {
		var sc models.StagedContact
		if err := rows.Scan(&sc.ID, &sc.UserID, &sc.Name, &sc.Company, &sc.Title, &sc.URL, &sc.Snippet, &sc.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

// GetByIDs returns the staged contacts matching ids, scoped to one user
func (r *StagingRepository) GetByIDs(userID string, ids []string) ([]models.StagedContact, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := []any{userID}
	for _, id := range ids {
		args = append(args, id)
	}

	rows, err := r.db.Query(`
		SELECT id, user_id, name, company, title, url, snippet, created_at
		FROM staged_contacts WHERE user_id = ? AND id IN (`+placeholders+`) ORDER BY created_at, id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.StagedContact
	for rows.Next() {
		var sc models.StagedContact
		if err := rows.Scan(&sc.ID, &sc.UserID, &sc.Name, &sc.Company, &sc.Title, &sc.URL, &sc.Snippet, &sc.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

// Delete removes one staged row
func (r *StagingRepository) Delete(userID, id string) error {
	res, err := r.db.Exec(`DELETE FROM staged_contacts WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete staged contact: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("staged contact %s not found", id)
	}
	return nil
}

// Clear removes all staged rows for a user (after approval)
func (r *StagingRepository) Clear(userID string) error {
	if _, err := r.db.Exec(`DELETE FROM staged_contacts WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to clear staged contacts: %w", err)
	}
	return nil
}
