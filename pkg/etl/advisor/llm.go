package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	config "github.com/tigerroll/undertow/pkg/etl/core/config"
	model "github.com/tigerroll/undertow/pkg/etl/core/domain/model"
)

const systemPrompt = `You review the outcome of one data ingestion attempt.
Given its metrics and errors, respond with JSON only:
{"score": <0..1 quality confidence>, "improvements": [<short concrete suggestions>], "lesson": "<one reusable observation, or empty>"}`

// LLMAdvisor scores outcomes with an OpenAI-compatible chat model.
type LLMAdvisor struct {
	client llms.Model
}

// NewLLMAdvisor creates an advisor against the configured chat endpoint.
func NewLLMAdvisor(cfg config.AdvisorConfig) (*LLMAdvisor, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("advisor host is not configured")
	}
	client, err := openai.New(
		openai.WithBaseURL(cfg.Host),
		openai.WithToken("none"),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create advisor client: %w", err)
	}
	return &LLMAdvisor{client: client}, nil
}

// AssessQuality asks the model for a score, improvements, and a lesson.
func (a *LLMAdvisor) AssessQuality(ctx context.Context, pattern string, metrics model.ExecutionMetrics, errs []model.ETLError) (*Assessment, error) {
	content := []llms.MessageContent{
		{
			Role:  schema.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(systemPrompt)},
		},
		{
			Role:  schema.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(describeOutcome(pattern, metrics, errs))},
		},
	}

	response, err := a.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
	if err != nil {
		return nil, fmt.Errorf("advisor call failed: %w", err)
	}
	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("advisor returned no choices")
	}
	return parseAssessment(response.Choices[0].Content)
}

func describeOutcome(pattern string, metrics model.ExecutionMetrics, errs []model.ETLError) string {
	var b strings.Builder
	fmt.Fprintf(&b, "job: %s\nrecords processed: %d\nrecords failed: %d\nsuccess rate: %.3f\n",
		pattern, metrics.RecordsProcessed, metrics.RecordsFailed, metrics.SuccessRate())
	max := len(errs)
	if max > 10 {
		max = 10
	}
	for _, e := range errs[:max] {
		fmt.Fprintf(&b, "error [%s]: %s\n", e.Code, e.Message)
	}
	return b.String()
}

func parseAssessment(raw string) (*Assessment, error) {
	var parsed struct {
		Score        float64  `json:"score"`
		Improvements []string `json:"improvements"`
		Lesson       string   `json:"lesson"`
	}
	raw = strings.TrimSpace(raw)
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("advisor returned unparseable JSON: %w", err)
	}
	if parsed.Score < 0 {
		parsed.Score = 0
	}
	if parsed.Score > 1 {
		parsed.Score = 1
	}
	return &Assessment{
		Score:        parsed.Score,
		Improvements: parsed.Improvements,
		Lesson:       strings.TrimSpace(parsed.Lesson),
	}, nil
}

var _ Advisor = (*LLMAdvisor)(nil)
