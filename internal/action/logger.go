package action

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketActionLog = []byte("action_log")

// LogEntry is one executed action in the audit record
type LogEntry struct {
	Type      Type      `json:"type"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Stats aggregates a user's action outcomes
type Stats struct {
	Total       int            `json:"total"`
	Succeeded   int            `json:"succeeded"`
	Failed      int            `json:"failed"`
	SuccessRate float64        `json:"success_rate"`
	ByType      map[string]int `json:"by_type"`
}

// Logger is an append-only per-user record of executed actions
type Logger struct {
	db *bolt.DB
}

// NewLogger opens (or creates) the action log store
func NewLogger(path string) (*Logger, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{
		Timeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open action log: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketActionLog)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Logger{db: db}, nil
}

// Close closes the underlying store
func (l *Logger) Close() error {
	return l.db.Close()
}

// Append records an executed action for a user
func (l *Logger) Append(userID string, entry LogEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	return l.db.Update(func(tx *bolt.Tx) error {
		root := tx.Bucket(bucketActionLog)
		userBucket, err := root.CreateBucketIfNotExists([]byte(userID))
		if err != nil {
			return fmt.Errorf("failed to create user bucket: %w", err)
		}

		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("failed to marshal log entry: %w", err)
		}

		// Monotonic sequence key keeps entries in append order
		seq, err := userBucket.NextSequence()
		if err != nil {
			return err
		}
		key := []byte(fmt.Sprintf("%016d", seq))
		return userBucket.Put(key, data)
	})
}

// Recent returns up to limit entries for a user, newest first
func (l *Logger) Recent(userID string, limit int) ([]LogEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	var entries []LogEntry
	err := l.db.View(func(tx *bolt.Tx) error {
		userBucket := tx.Bucket(bucketActionLog).Bucket([]byte(userID))
		if userBucket == nil {
			return nil
		}

		c := userBucket.Cursor()
		for k, v := c.Last(); k != nil && len(entries) < limit; k, v = c.Prev() {
			var e LogEntry
			if err := json.Unmarshal(v, &e); err != nil {
				continue
			}
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// GetStats returns aggregate success-rate statistics for a user
func (l *Logger) GetStats(userID string) (*Stats, error) {
	stats := &Stats{ByType: make(map[string]int)}

	err := l.db.View(func(tx *bolt.Tx) error {
		userBucket := tx.Bucket(bucketActionLog).Bucket([]byte(userID))
		if userBucket == nil {
			return nil
		}

		return userBucket.ForEach(func(k, v []byte) error {
			var e LogEntry
			if err := json.Unmarshal(v, &e); err != nil {
				return nil
			}
			stats.Total++
			if e.Success {
				stats.Succeeded++
			} else {
				stats.Failed++
			}
			stats.ByType[string(e.Type)]++
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	if stats.Total > 0 {
		stats.SuccessRate = float64(stats.Succeeded) / float64(stats.Total)
	}
	return stats, nil
}
