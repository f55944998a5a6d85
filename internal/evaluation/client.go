package evaluation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/codegrade/backend/internal/infrastructure"
	"github.com/codegrade/backend/internal/scoring"
)

// maxResponseBytes bounds how much of the evaluator's reply is read
const maxResponseBytes = 1 << 20

var errMalformedResponse = errors.New("malformed evaluator response")

// Config holds the connection settings for the external grading API.
// The API is expected to speak the OpenAI chat-completions protocol.
type Config struct {
	BaseURL   string
	APIKey    string
	Model     string
	Timeout   time.Duration
	MaxTokens int
}

// Client grades task solutions through an external chat-completion API.
// It makes a single attempt per call with a bounded timeout: the grading is
// part of an interactive flow, so a fast degraded result beats a retried slow
// one.
type Client struct {
	config     Config
	httpClient *http.Client
	tracer     trace.Tracer
	logger     *zap.Logger
	metrics    *infrastructure.TelemetryMetrics
}

// NewClient creates a new evaluation client
func NewClient(
	config Config,
	tracer trace.Tracer,
	logger *zap.Logger,
	metrics *infrastructure.TelemetryMetrics,
) *Client {
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		tracer:  tracer,
		logger:  logger,
		metrics: metrics,
	}
}

// Evaluate grades one candidate solution against its reference solution and
// criteria. It never returns an error: any failure is logged and converted
// into the fallback outcome so the caller always receives a usable result.
func (c *Client) Evaluate(ctx context.Context, input Input) Outcome {
	ctx, span := c.tracer.Start(ctx, "EvaluationClient.Evaluate")
	defer span.End()

	span.SetAttributes(
		attribute.String("task.title", input.TaskTitle),
		attribute.String("submission.language", input.Language),
	)

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	start := time.Now()
	outcome, err := c.grade(ctx, input)
	duration := time.Since(start).Seconds()

	if c.metrics != nil {
		c.metrics.EvaluationDuration.Record(ctx, duration,
			metric.WithAttributes(attribute.Bool("evaluation.failed", err != nil)),
		)
	}

	if err != nil {
		span.SetAttributes(attribute.Bool("error", true))
		if c.metrics != nil {
			c.metrics.EvaluationFailures.Add(ctx, 1)
		}
		c.logger.Error("Evaluation call failed",
			zap.String("task", input.TaskTitle),
			zap.Error(err),
		)
		return Fallback(failureReason(err))
	}

	span.SetAttributes(attribute.Int("evaluation.score", outcome.Score))
	return outcome
}

// grade performs the actual API round trip and response normalization
func (c *Client) grade(ctx context.Context, input Input) (Outcome, error) {
	payload := chatRequest{
		Model:       c.config.Model,
		Temperature: 0,
		MaxTokens:   c.config.MaxTokens,
		ResponseFormat: &responseFormat{
			Type: "json_object",
		},
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildPrompt(input)},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to encode evaluation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.config.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to build evaluation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Outcome{}, fmt.Errorf("evaluation request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to read evaluator response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return Outcome{}, fmt.Errorf("evaluator returned status %d", resp.StatusCode)
	}

	var completion chatResponse
	if err := json.Unmarshal(raw, &completion); err != nil || len(completion.Choices) == 0 {
		return Outcome{}, errMalformedResponse
	}

	return normalize(completion.Choices[0].Message.Content)
}

// normalize parses the evaluator's JSON grade and fills in defaults for any
// missing field. The external structure never escapes this function.
func normalize(content string) (Outcome, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var grade struct {
		Score      *float64 `json:"score"`
		Feedback   string   `json:"feedback"`
		Strengths  []string `json:"strengths"`
		Weaknesses []string `json:"weaknesses"`
	}
	if err := json.Unmarshal([]byte(content), &grade); err != nil {
		return Outcome{}, errMalformedResponse
	}

	outcome := Outcome{
		Feedback:   grade.Feedback,
		Strengths:  grade.Strengths,
		Weaknesses: grade.Weaknesses,
	}

	if grade.Score != nil {
		outcome.Score = scoring.ClampScore(int(math.Round(*grade.Score)))
	}
	if outcome.Feedback == "" {
		outcome.Feedback = "No feedback provided"
	}
	if outcome.Strengths == nil {
		outcome.Strengths = []string{}
	}
	if outcome.Weaknesses == nil {
		outcome.Weaknesses = []string{}
	}

	return outcome, nil
}

// failureReason maps an internal error to the short explanation embedded in
// the fallback feedback
func failureReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "the evaluation service did not respond in time"
	case errors.Is(err, errMalformedResponse):
		return "the evaluation service returned an unreadable response"
	default:
		return "the evaluation service could not be reached"
	}
}

// chatRequest is the OpenAI-compatible completion request shape
type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// chatResponse is the subset of the completion response this client reads
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}
