package store

import (
	"database/sql"
	"fmt"

	"github.com/serenia-app/serenia/internal/models"
)

// scanMoodRecord scans a MoodRecord from sql.Rows.
func scanMoodRecord(rows *sql.Rows) (models.MoodRecord, error) {
	var r models.MoodRecord
	var value int
	if err := rows.Scan(&r.ID, &r.RecordedAt, &value); err != nil {
		return r, fmt.Errorf("scan mood record failed: %w", err)
	}
	r.Value = models.MoodValue(value)
	return r, nil
}
