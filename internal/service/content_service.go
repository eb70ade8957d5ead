package service

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"

	"godlykids/internal/ai"
	"godlykids/internal/database"
	"godlykids/internal/models"
	"godlykids/internal/repository"
)

var (
	ErrCommentEmpty   = errors.New("comment is empty")
	ErrCommentTooLong = errors.New("comment is too long")
	ErrCommentBlocked = errors.New("comment contains blocked words")
	ErrInvalidSurvey  = errors.New("survey answers must be a JSON object")
)

const maxCommentLength = 500

// ContentService handles reflection comments and surveys. Comments pass a
// blocklist check before storage; threads with no comments yet can be seeded
// with an AI-written encouragement.
type ContentService struct {
	contentRepo *repository.ContentRepository
	db          *database.DB
	aiClient    ai.Client // nil when no provider is configured
}

// NewContentService creates a new content service
func NewContentService(contentRepo *repository.ContentRepository, db *database.DB, aiClient ai.Client) *ContentService {
	return &ContentService{
		contentRepo: contentRepo,
		db:          db,
		aiClient:    aiClient,
	}
}

// PostComment moderates and stores a comment from a profile
func (s *ContentService) PostComment(profileID int64, topic, body string) (*models.Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrCommentEmpty
	}
	if len(body) > maxCommentLength {
		return nil, ErrCommentTooLong
	}

	blocked, err := s.db.ContainsBlockedWord(body)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, ErrCommentBlocked
	}

	return s.contentRepo.CreateComment(profileID, topic, body, models.CommentSourceUser)
}

// GetComments returns the comments for a topic, newest first. An empty
// thread gets seeded with one generated encouragement when a provider is
// configured, so kids never open a dead page.
func (s *ContentService) GetComments(ctx context.Context, topic string, limit int) ([]models.Comment, error) {
	if limit <= 0 {
		limit = 50
	}

	comments, err := s.contentRepo.GetCommentsByTopic(topic, limit)
	if err != nil {
		return nil, err
	}
	if len(comments) > 0 || s.aiClient == nil {
		return comments, nil
	}

	body, err := ai.GenerateEncouragement(ctx, s.aiClient, topic)
	if err != nil {
		// seeding is best-effort, an empty thread is still a valid answer
		log.Printf("Warning: failed to seed comments for %q: %v", topic, err)
		return comments, nil
	}

	seeded, err := s.contentRepo.CreateComment(0, topic, body, models.CommentSourceGenerated)
	if err != nil {
		log.Printf("Warning: failed to store seeded comment for %q: %v", topic, err)
		return comments, nil
	}
	return []models.Comment{*seeded}, nil
}

// SubmitSurvey stores a parent's survey response. Answers must be a JSON
// object keyed by question ID.
func (s *ContentService) SubmitSurvey(userID int64, survey, answers string) (*models.SurveyResponse, error) {
	if strings.TrimSpace(survey) == "" {
		return nil, ErrInvalidSurvey
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(answers), &parsed); err != nil {
		return nil, ErrInvalidSurvey
	}

	return s.contentRepo.CreateSurveyResponse(userID, survey, answers)
}
