package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"godlykids/internal/ai"
	"godlykids/internal/models"
	"godlykids/internal/repository"
	"godlykids/internal/state"
)

var (
	ErrQuizNotFound   = errors.New("quiz not found")
	ErrWrongAnswerSet = errors.New("answer count does not match question count")
)

// CoinsPerCorrectAnswer is the quiz reward rate
const CoinsPerCorrectAnswer = 10

// QuizService serves quizzes for scripture references, generating them
// on demand when no curated quiz exists, and grades submissions.
type QuizService struct {
	quizRepo  *repository.QuizRepository
	stateMgr  *state.Manager
	aiClient  ai.Client // nil when no provider is configured
	questions int       // questions per generated quiz
}

// NewQuizService creates a new quiz service
func NewQuizService(quizRepo *repository.QuizRepository, stateMgr *state.Manager, aiClient ai.Client) *QuizService {
	return &QuizService{
		quizRepo:  quizRepo,
		stateMgr:  stateMgr,
		aiClient:  aiClient,
		questions: 5,
	}
}

// GetQuiz retrieves a quiz by ID
func (s *QuizService) GetQuiz(quizID int64) (*models.Quiz, error) {
	quiz, err := s.quizRepo.GetQuizByID(quizID)
	if err != nil {
		return nil, err
	}
	if quiz == nil {
		return nil, ErrQuizNotFound
	}
	return quiz, nil
}

// GetOrGenerateQuiz returns the quiz for a scripture reference. With no
// stored quiz and a configured AI provider, one is generated and persisted
// so later requests hit the database instead of the model.
func (s *QuizService) GetOrGenerateQuiz(ctx context.Context, reference string) (*models.Quiz, error) {
	quiz, err := s.quizRepo.GetQuizByReference(reference)
	if err != nil {
		return nil, err
	}
	if quiz != nil {
		return quiz, nil
	}

	if s.aiClient == nil {
		return nil, ErrQuizNotFound
	}

	generated, err := ai.GenerateQuiz(ctx, s.aiClient, reference, s.questions)
	if err != nil {
		return nil, err
	}

	questions := make([]models.QuizQuestion, len(generated))
	for i, q := range generated {
		questions[i] = models.QuizQuestion{
			Prompt:  q.Prompt,
			Choices: q.Choices,
			Answer:  q.Answer,
		}
	}

	quiz, err = s.quizRepo.CreateQuiz(reference, reference, "generated", questions)
	if err != nil {
		return nil, err
	}
	log.Printf("Generated quiz for %q with %d questions (%s)", reference, len(questions), s.aiClient.Name())
	return quiz, nil
}

// SubmitAnswers grades a submission against the quiz, awards coins through
// the active profile's state, and records the result.
func (s *QuizService) SubmitAnswers(sessionID string, profileID, quizID int64, answers []int) (*models.QuizResult, error) {
	quiz, err := s.GetQuiz(quizID)
	if err != nil {
		return nil, err
	}
	if len(answers) != len(quiz.Questions) {
		return nil, ErrWrongAnswerSet
	}

	correct := 0
	for i, q := range quiz.Questions {
		if answers[i] == q.Answer {
			correct++
		}
	}

	coins := correct * CoinsPerCorrectAnswer
	if coins > 0 {
		reason := fmt.Sprintf("quiz: %s", quiz.Reference)
		if err := s.stateMgr.AddCoins(sessionID, coins, reason, "quiz"); err != nil {
			return nil, fmt.Errorf("failed to award quiz coins: %w", err)
		}
	}

	return s.quizRepo.CreateResult(quizID, profileID, len(quiz.Questions), correct, coins)
}

// GetResults retrieves a profile's recent quiz results
func (s *QuizService) GetResults(profileID int64, limit int) ([]models.QuizResult, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.quizRepo.GetProfileResults(profileID, limit)
}
