// Package ai generates kid-safe quiz and encouragement content through an
// LLM provider. Gemini is the default, any OpenAI-compatible endpoint works
// as an alternative.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"godlykids/internal/config"
)

var ErrNotConfigured = errors.New("ai provider not configured")

// Client is a minimal text-completion interface over an LLM provider
type Client interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	Name() string
}

// NewFromConfig builds the configured provider. Returns ErrNotConfigured when
// no API key is set so callers can degrade to curated content.
func NewFromConfig(cfg *config.Config) (Client, error) {
	switch strings.ToLower(cfg.AIProvider) {
	case "gemini", "":
		if cfg.GeminiAPIKey == "" {
			return nil, ErrNotConfigured
		}
		return NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel)
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, ErrNotConfigured
		}
		return NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIURL, cfg.OpenAIModel), nil
	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.AIProvider)
	}
}

// GeneratedQuestion is one multiple-choice question as returned by the model
type GeneratedQuestion struct {
	Prompt  string   `json:"prompt"`
	Choices []string `json:"choices"`
	Answer  int      `json:"answer"`
}

const quizSystemPrompt = `You write Bible quizzes for children aged 5-10.
Questions must be simple, encouraging and factually grounded in the passage.
Respond with ONLY a JSON array, no prose, where each element is
{"prompt": string, "choices": [4 strings], "answer": index of correct choice}.`

// GenerateQuiz asks the model for multiple-choice questions about a Bible
// passage and validates the result before returning it.
func GenerateQuiz(ctx context.Context, client Client, reference string, count int) ([]GeneratedQuestion, error) {
	userPrompt := fmt.Sprintf("Write %d multiple-choice questions about %s.", count, reference)

	raw, err := client.Complete(ctx, quizSystemPrompt, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("quiz generation failed: %w", err)
	}

	questions, err := parseQuestions(raw)
	if err != nil {
		return nil, fmt.Errorf("quiz generation returned invalid content: %w", err)
	}
	return questions, nil
}

const encouragementSystemPrompt = `You write short, warm encouragements for children aged 5-10
in a faith-based app. One or two sentences, no emojis, no questions.`

// GenerateEncouragement asks the model for a short comment about a story or
// topic, used to seed discussion threads.
func GenerateEncouragement(ctx context.Context, client Client, topic string) (string, error) {
	raw, err := client.Complete(ctx, encouragementSystemPrompt,
		fmt.Sprintf("Write an encouragement about: %s", topic))
	if err != nil {
		return "", fmt.Errorf("encouragement generation failed: %w", err)
	}
	return strings.TrimSpace(raw), nil
}

// parseQuestions decodes and sanity-checks the model output. Models sometimes
// wrap JSON in markdown fences, so those are stripped first.
func parseQuestions(raw string) ([]GeneratedQuestion, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var questions []GeneratedQuestion
	if err := json.Unmarshal([]byte(raw), &questions); err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, errors.New("no questions returned")
	}

	for i, q := range questions {
		if strings.TrimSpace(q.Prompt) == "" {
			return nil, fmt.Errorf("question %d has an empty prompt", i)
		}
		if len(q.Choices) < 2 {
			return nil, fmt.Errorf("question %d has too few choices", i)
		}
		if q.Answer < 0 || q.Answer >= len(q.Choices) {
			return nil, fmt.Errorf("question %d has an out-of-range answer index", i)
		}
	}
	return questions, nil
}
