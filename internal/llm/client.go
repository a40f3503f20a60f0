package llm

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hpungsan/notepad/internal/config"
	"github.com/hpungsan/notepad/internal/errors"
	"github.com/hpungsan/notepad/internal/logging"
)

// maxErrorBody caps how much of an upstream error body is echoed back.
const maxErrorBody = 2048

// ModelPlanner calls an OpenAI-compatible chat-completions endpoint.
type ModelPlanner struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	bounds      Bounds
	client      *http.Client
	log         zerolog.Logger
}

// chat-completions request/response structures
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

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewModelPlanner creates a planner from config.
func NewModelPlanner(cfg *config.Config) *ModelPlanner {
	return &ModelPlanner{
		apiKey:      cfg.LLMAPIKey,
		baseURL:     strings.TrimRight(cfg.LLMAPIBase, "/"),
		model:       cfg.LLMModel,
		temperature: cfg.Temperature(),
		maxTokens:   cfg.LLMMaxTokens,
		bounds:      BoundsFrom(cfg),
		client:      &http.Client{Timeout: cfg.LLMTimeout()},
		log:         logging.Component("llm"),
	}
}

// WithHTTPClient replaces the HTTP client (tests use httptest servers).
func (p *ModelPlanner) WithHTTPClient(c *http.Client) *ModelPlanner {
	p.client = c
	return p
}

// Name implements Planner.
func (p *ModelPlanner) Name() string { return "model" }

// Plan implements Planner.
func (p *ModelPlanner) Plan(ctx context.Context, req *PlanRequest) (*PlanResponse, error) {
	if err := ValidatePlanRequest(req); err != nil {
		return nil, err
	}
	content, err := p.complete(ctx, "plan", planSystemPrompt, planUserPrompt(req))
	if err != nil {
		return nil, err
	}
	var raw rawPlan
	if err := decodeContent(content, &raw, p.log); err != nil {
		return nil, err
	}
	return validatePlan(&raw, strings.TrimSpace(req.Idea), p.bounds)
}

// Refine implements Planner.
func (p *ModelPlanner) Refine(ctx context.Context, req *RefineRequest) (*RefineResponse, error) {
	if err := ValidateRefineRequest(req); err != nil {
		return nil, err
	}
	content, err := p.complete(ctx, "refine", refineSystemPrompt, refineUserPrompt(req))
	if err != nil {
		return nil, err
	}
	var raw rawRefine
	if err := decodeContent(content, &raw, p.log); err != nil {
		return nil, err
	}
	return validateRefine(&raw)
}

// complete sends one system/user exchange and returns the first choice's content.
func (p *ModelPlanner) complete(ctx context.Context, op, system, user string) (string, error) {
	if p.apiKey == "" {
		return "", errors.NewUpstream(fmt.Errorf("api key missing"))
	}

	body, err := json.Marshal(chatRequest{
		Model:          p.model,
		Temperature:    p.temperature,
		MaxTokens:      p.maxTokens,
		ResponseFormat: &responseFormat{Type: "json_object"},
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		return "", errors.NewInternal(fmt.Errorf("marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", errors.NewInternal(fmt.Errorf("create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	start := time.Now()
	resp, err := p.client.Do(httpReq)
	if err != nil {
		if stderrors.Is(ctx.Err(), context.Canceled) {
			return "", errors.NewCancelled(op)
		}
		return "", errors.NewUpstream(fmt.Errorf("send request: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.NewUpstream(fmt.Errorf("read response: %w", err))
	}

	p.log.Debug().
		Str("op", op).
		Str("model", p.model).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("chat completion")

	if resp.StatusCode != http.StatusOK {
		var errResp chatResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != nil && errResp.Error.Message != "" {
			return "", errors.NewUpstream(fmt.Errorf("upstream error %d: %s", resp.StatusCode, errResp.Error.Message))
		}
		text := string(respBody)
		if len(text) > maxErrorBody {
			text = text[:maxErrorBody]
		}
		return "", errors.NewUpstream(fmt.Errorf("upstream error %d: %s", resp.StatusCode, text))
	}

	var out chatResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", errors.NewUpstream(fmt.Errorf("unmarshal response: %w", err))
	}
	if len(out.Choices) == 0 {
		return "", errors.NewInvalidLLMOutput("model returned no choices")
	}
	return out.Choices[0].Message.Content, nil
}
