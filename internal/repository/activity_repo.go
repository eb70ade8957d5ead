package repository

import (
	"fmt"
	"time"

	"godlykids/internal/database"
	"godlykids/internal/models"
)

// ActivityRepository handles database operations for activity tracking
type ActivityRepository struct {
	db database.DBTX
}

// NewActivityRepository creates a new activity repository
func NewActivityRepository(db database.DBTX) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// RecordEvent stores one activity event
func (r *ActivityRepository) RecordEvent(profileID int64, kind, detail string) error {
	query := "INSERT INTO activity_events (profile_id, kind, detail) VALUES (?, ?, ?)"
	if _, err := r.db.Exec(query, profileID, kind, detail); err != nil {
		return fmt.Errorf("failed to record activity event: %w", err)
	}
	return nil
}

// GetRecentEvents retrieves a profile's events newest first
func (r *ActivityRepository) GetRecentEvents(profileID int64, limit int) ([]models.ActivityEvent, error) {
	query := `
		SELECT id, profile_id, kind, detail, created_at
		FROM activity_events
		WHERE profile_id = ?
		ORDER BY id DESC
		LIMIT ?
	`
	rows, err := r.db.Query(query, profileID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity events: %w", err)
	}
	defer rows.Close()

	var events []models.ActivityEvent
	for rows.Next() {
		var e models.ActivityEvent
		if err := rows.Scan(&e.ID, &e.ProfileID, &e.Kind, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// AggregateDay rolls raw events for one day up into activity_summaries.
// Re-running for the same day replaces that day's rows, so the hourly job
// stays idempotent.
func (r *ActivityRepository) AggregateDay(day time.Time) error {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	if _, err := r.db.Exec("DELETE FROM activity_summaries WHERE day = ?", dayStart); err != nil {
		return fmt.Errorf("failed to clear day summaries: %w", err)
	}

	query := `
		INSERT INTO activity_summaries (profile_id, day, kind, count)
		SELECT profile_id, ?, kind, COUNT(*)
		FROM activity_events
		WHERE created_at >= ? AND created_at < ?
		GROUP BY profile_id, kind
	`
	if _, err := r.db.Exec(query, dayStart, dayStart, dayEnd); err != nil {
		return fmt.Errorf("failed to aggregate day: %w", err)
	}
	return nil
}

// GetSummaries retrieves per-day aggregates for a profile within a range
func (r *ActivityRepository) GetSummaries(profileID int64, from, to time.Time) ([]models.ActivitySummary, error) {
	query := `
		SELECT profile_id, day, kind, count
		FROM activity_summaries
		WHERE profile_id = ? AND day >= ? AND day <= ?
		ORDER BY day ASC, kind ASC
	`
	rows, err := r.db.Query(query, profileID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity summaries: %w", err)
	}
	defer rows.Close()

	var summaries []models.ActivitySummary
	for rows.Next() {
		var s models.ActivitySummary
		if err := rows.Scan(&s.ProfileID, &s.Day, &s.Kind, &s.Count); err != nil {
			return nil, fmt.Errorf("failed to scan activity summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}
