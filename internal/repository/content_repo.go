package repository

import (
	"database/sql"
	"fmt"
	"time"

	"godlykids/internal/database"
	"godlykids/internal/models"
)

// ContentRepository handles database operations for comments and surveys
type ContentRepository struct {
	db database.DBTX
}

// NewContentRepository creates a new content repository
func NewContentRepository(db database.DBTX) *ContentRepository {
	return &ContentRepository{db: db}
}

// CreateComment stores a reflection comment. Generated comments belong to no
// profile and are stored with profileID 0, persisted as NULL.
func (r *ContentRepository) CreateComment(profileID int64, topic, body, source string) (*models.Comment, error) {
	var owner interface{}
	if profileID != 0 {
		owner = profileID
	}
	id, err := r.db.ExecReturningID(
		"INSERT INTO comments (profile_id, topic, body, source) VALUES (?, ?, ?, ?)",
		owner, topic, body, source,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	return &models.Comment{
		ID:        id,
		ProfileID: profileID,
		Topic:     topic,
		Body:      body,
		Source:    source,
		CreatedAt: time.Now(),
	}, nil
}

// GetCommentsByTopic retrieves comments for a topic, newest first
func (r *ContentRepository) GetCommentsByTopic(topic string, limit int) ([]models.Comment, error) {
	query := `
		SELECT id, profile_id, topic, body, source, created_at
		FROM comments
		WHERE topic = ?
		ORDER BY id DESC
		LIMIT ?
	`
	rows, err := r.db.Query(query, topic, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query comments: %w", err)
	}
	defer rows.Close()

	var comments []models.Comment
	for rows.Next() {
		var c models.Comment
		var owner sql.NullInt64
		if err := rows.Scan(&c.ID, &owner, &c.Topic, &c.Body, &c.Source, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		c.ProfileID = owner.Int64
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// CreateSurveyResponse stores a submitted survey
func (r *ContentRepository) CreateSurveyResponse(userID int64, survey, answers string) (*models.SurveyResponse, error) {
	id, err := r.db.ExecReturningID(
		"INSERT INTO surveys (user_id, survey, answers) VALUES (?, ?, ?)",
		userID, survey, answers,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create survey response: %w", err)
	}

	return &models.SurveyResponse{
		ID:          id,
		UserID:      userID,
		Survey:      survey,
		Answers:     answers,
		SubmittedAt: time.Now(),
	}, nil
}
