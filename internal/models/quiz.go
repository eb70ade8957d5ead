package models

import "time"

// Quiz is a set of questions for a scripture reference or topic
type Quiz struct {
	ID        int64          `json:"id"`
	Reference string         `json:"reference"` // e.g. "John 3:16" or a topic
	Title     string         `json:"title"`
	Source    string         `json:"source"` // 'curated' or 'generated'
	Questions []QuizQuestion `json:"questions"`
	CreatedAt time.Time      `json:"createdAt"`
}

// QuizQuestion is one multiple-choice question
type QuizQuestion struct {
	ID       int64    `json:"id"`
	QuizID   int64    `json:"quizId"`
	Prompt   string   `json:"prompt"`
	Choices  []string `json:"choices"`
	Answer   int      `json:"answer"` // index into Choices
	Position int      `json:"position"`
}

// QuizResult records a graded submission by one profile
type QuizResult struct {
	ID           int64     `json:"id"`
	QuizID       int64     `json:"quizId"`
	ProfileID    int64     `json:"profileId"`
	Total        int       `json:"total"`
	Correct      int       `json:"correct"`
	CoinsAwarded int       `json:"coinsAwarded"`
	SubmittedAt  time.Time `json:"submittedAt"`
}

// Accuracy returns the fraction of correct answers
func (r *QuizResult) Accuracy() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Correct) / float64(r.Total)
}
