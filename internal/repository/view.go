package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/foxzi/outreach/internal/models"
	"github.com/google/uuid"
)

type SavedViewRepository struct {
	db *sql.DB
}

func NewSavedViewRepository(db *sql.DB) *SavedViewRepository {
	return &SavedViewRepository{db: db}
}

// Create saves a named filter view
func (r *SavedViewRepository) Create(v *models.SavedView) error {
	v.ID = uuid.New().String()
	v.CreatedAt = time.Now()

	_, err := r.db.Exec(`
		INSERT INTO saved_views (id, user_id, name, filters, sort, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		v.ID, v.UserID, v.Name, v.Filters, v.Sort, v.CreatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return fmt.Errorf("view named %q already exists", v.Name)
		}
		return fmt.Errorf("failed to create saved view: %w", err)
	}
	return nil
}

// ListByUser returns a user's saved views, newest first
func (r *SavedViewRepository) ListByUser(userID string) ([]models.SavedView, error) {
	rows, err := r.db.Query(`
		SELECT id, user_id, name, filters, sort, created_at
		FROM saved_views WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.SavedView
	for rows.Next() {
		var v models.SavedView
		var sort sql.NullString
		if err := rows.Scan(&v.ID, &v.UserID, &v.Name, &v.Filters, &sort, &v.CreatedAt); err != nil {
			return nil, err
		}
		v.Sort = sort.String
		out = append(out, v)
	}
	return out, rows.Err()
}
