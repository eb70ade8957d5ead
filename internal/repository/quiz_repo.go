package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"godlykids/internal/database"
	"godlykids/internal/models"
)

// QuizRepository handles database operations for quizzes
type QuizRepository struct {
	db database.DBTX
}

// NewQuizRepository creates a new quiz repository
func NewQuizRepository(db database.DBTX) *QuizRepository {
	return &QuizRepository{db: db}
}

// CreateQuiz stores a quiz with its questions
func (r *QuizRepository) CreateQuiz(reference, title, source string, questions []models.QuizQuestion) (*models.Quiz, error) {
	quizID, err := r.db.ExecReturningID(
		"INSERT INTO quizzes (reference, title, source) VALUES (?, ?, ?)",
		reference, title, source,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create quiz: %w", err)
	}

	quiz := &models.Quiz{
		ID:        quizID,
		Reference: reference,
		Title:     title,
		Source:    source,
		CreatedAt: time.Now(),
	}

	for i, q := range questions {
		choices, err := json.Marshal(q.Choices)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal choices: %w", err)
		}
		questionID, err := r.db.ExecReturningID(
			"INSERT INTO quiz_questions (quiz_id, prompt, choices, answer, position) VALUES (?, ?, ?, ?, ?)",
			quizID, q.Prompt, string(choices), q.Answer, i,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create quiz question: %w", err)
		}
		q.ID = questionID
		q.QuizID = quizID
		q.Position = i
		quiz.Questions = append(quiz.Questions, q)
	}

	return quiz, nil
}

// GetQuizByID retrieves a quiz with its questions
func (r *QuizRepository) GetQuizByID(quizID int64) (*models.Quiz, error) {
	query := "SELECT id, reference, title, source, created_at FROM quizzes WHERE id = ?"
	quiz := &models.Quiz{}
	err := r.db.QueryRow(query, quizID).Scan(&quiz.ID, &quiz.Reference, &quiz.Title, &quiz.Source, &quiz.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	questions, err := r.getQuestions(quiz.ID)
	if err != nil {
		return nil, err
	}
	quiz.Questions = questions
	return quiz, nil
}

// GetQuizByReference retrieves the most recent quiz for a scripture
// reference or topic
func (r *QuizRepository) GetQuizByReference(reference string) (*models.Quiz, error) {
	query := "SELECT id, reference, title, source, created_at FROM quizzes WHERE reference = ? ORDER BY id DESC LIMIT 1"
	quiz := &models.Quiz{}
	err := r.db.QueryRow(query, reference).Scan(&quiz.ID, &quiz.Reference, &quiz.Title, &quiz.Source, &quiz.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz by reference: %w", err)
	}

	questions, err := r.getQuestions(quiz.ID)
	if err != nil {
		return nil, err
	}
	quiz.Questions = questions
	return quiz, nil
}

func (r *QuizRepository) getQuestions(quizID int64) ([]models.QuizQuestion, error) {
	query := `
		SELECT id, quiz_id, prompt, choices, answer, position
		FROM quiz_questions
		WHERE quiz_id = ?
		ORDER BY position ASC
	`
	rows, err := r.db.Query(query, quizID)
	if err != nil {
		return nil, fmt.Errorf("failed to query quiz questions: %w", err)
	}
	defer rows.Close()

	var questions []models.QuizQuestion
	for rows.Next() {
		var q models.QuizQuestion
		var choices string
		if err := rows.Scan(&q.ID, &q.QuizID, &q.Prompt, &choices, &q.Answer, &q.Position); err != nil {
			return nil, fmt.Errorf("failed to scan quiz question: %w", err)
		}
		if err := json.Unmarshal([]byte(choices), &q.Choices); err != nil {
			return nil, fmt.Errorf("failed to unmarshal choices: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// CreateResult stores a graded quiz submission
func (r *QuizRepository) CreateResult(quizID, profileID int64, total, correct, coinsAwarded int) (*models.QuizResult, error) {
	id, err := r.db.ExecReturningID(
		"INSERT INTO quiz_results (quiz_id, profile_id, total, correct, coins_awarded) VALUES (?, ?, ?, ?, ?)",
		quizID, profileID, total, correct, coinsAwarded,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create quiz result: %w", err)
	}

	return &models.QuizResult{
		ID:           id,
		QuizID:       quizID,
		ProfileID:    profileID,
		Total:        total,
		Correct:      correct,
		CoinsAwarded: coinsAwarded,
		SubmittedAt:  time.Now(),
	}, nil
}

// GetProfileResults retrieves a profile's quiz results, newest first
func (r *QuizRepository) GetProfileResults(profileID int64, limit int) ([]models.QuizResult, error) {
	query := `
		SELECT id, quiz_id, profile_id, total, correct, coins_awarded, submitted_at
		FROM quiz_results
		WHERE profile_id = ?
		ORDER BY id DESC
		LIMIT ?
	`
	rows, err := r.db.Query(query, profileID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query quiz results: %w", err)
	}
	defer rows.Close()

	var results []models.QuizResult
	for rows.Next() {
		var res models.QuizResult
		if err := rows.Scan(&res.ID, &res.QuizID, &res.ProfileID, &res.Total, &res.Correct, &res.CoinsAwarded, &res.SubmittedAt); err != nil {
			return nil, fmt.Errorf("failed to scan quiz result: %w", err)
		}
		results = append(results, res)
	}
	return results, rows.Err()
}
