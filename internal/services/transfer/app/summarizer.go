package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/ThatGuyChandan/livekit-warm-transfer/internal/platform/errors"
	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/platform/timeouts"
)

const (
	defaultGroqCompletionsURL = "https://api.groq.com/openai/v1/chat/completions"
	defaultGroqModel          = "llama3-8b-8192"

	summarySystemPrompt = "You are a helpful assistant that summarizes call transcripts."
)

// Summarizer condenses a call transcript so agent B can be briefed quickly.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string) (string, error)
}

// GroqConfig configures the Groq chat completions endpoint and HTTP behavior.
type GroqConfig struct {
	APIKey         string
	Model          string
	CompletionsURL string
	HTTPClient     *http.Client
}

type groqSummarizer struct {
	cfg GroqConfig
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// NewGroqSummarizer builds a transcript summarizer backed by Groq's
// OpenAI-compatible chat completions API.
func NewGroqSummarizer(cfg GroqConfig) (Summarizer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("groq api key is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = defaultGroqModel
	}
	if strings.TrimSpace(cfg.CompletionsURL) == "" {
		cfg.CompletionsURL = defaultGroqCompletionsURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: timeouts.UpstreamRequest}
	}
	return &groqSummarizer{cfg: cfg}, nil
}

func (s *groqSummarizer) Summarize(ctx context.Context, transcript string) (string, error) {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return "", apperrors.New(apperrors.CodeInvalidArgument, "transcript is required")
	}

	requestBody, err := json.Marshal(chatCompletionRequest{
		Model: s.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: summarySystemPrompt},
			{Role: "user", Content: "Summarize the following call transcript:\n\n" + transcript},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.CompletionsURL, bytes.NewReader(requestBody))
	if err != nil {
		return "", fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	// Credential material goes only into the Authorization header, never
	// into errors or logs.
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

	res, err := s.cfg.HTTPClient.Do(req)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeUpstreamUnavailable, "summarization request failed", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return "", apperrors.New(apperrors.CodeUpstreamUnavailable,
			fmt.Sprintf("summarization status %d: %s", res.StatusCode, strings.TrimSpace(string(body))))
	}

	var payload chatCompletionResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return "", apperrors.Wrap(apperrors.CodeUpstreamUnavailable, "decode completion response", err)
	}
	if len(payload.Choices) == 0 {
		return "", apperrors.New(apperrors.CodeUpstreamUnavailable, "completion response has no choices")
	}
	return payload.Choices[0].Message.Content, nil
}
