package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/HartBrook/tokun/internal/errors"
	"github.com/HartBrook/tokun/internal/llm"
	"github.com/HartBrook/tokun/internal/tokens"
)

const (
	openAIBaseURL     = "https://api.openai.com/v1"
	perplexityBaseURL = "https://api.perplexity.ai"

	perplexityTemperature = 0.2
)

// ChatAdapter talks to an OpenAI-compatible chat-completions endpoint.
type ChatAdapter struct {
	provider     llm.Provider
	label        string
	defaultModel string
	temperature  *float64
	baseURL      string
	httpClient   *http.Client
	logger       *slog.Logger
}

// NewOpenAI creates the adapter for api.openai.com.
func NewOpenAI(opts ...Option) *ChatAdapter {
	o := buildOptions(openAIBaseURL, opts)
	return &ChatAdapter{
		provider:     llm.ProviderOpenAI,
		label:        "OpenAI",
		defaultModel: llm.DefaultModels[llm.ProviderOpenAI],
		baseURL:      strings.TrimSuffix(o.baseURL, "/"),
		httpClient:   o.httpClient,
		logger:       o.logger,
	}
}

// NewOther creates an OpenAI-compatible adapter for the "other" provider.
// It uses the OpenAI endpoint unless WithBaseURL is given.
func NewOther(opts ...Option) *ChatAdapter {
	o := buildOptions(openAIBaseURL, opts)
	return &ChatAdapter{
		provider:     llm.ProviderOther,
		label:        "Other",
		defaultModel: llm.DefaultModels[llm.ProviderOther],
		baseURL:      strings.TrimSuffix(o.baseURL, "/"),
		httpClient:   o.httpClient,
		logger:       o.logger,
	}
}

// NewPerplexity creates the adapter for api.perplexity.ai.
func NewPerplexity(opts ...Option) *ChatAdapter {
	o := buildOptions(perplexityBaseURL, opts)
	temperature := perplexityTemperature
	return &ChatAdapter{
		provider:     llm.ProviderPerplexity,
		label:        "Perplexity",
		defaultModel: llm.DefaultModels[llm.ProviderPerplexity],
		temperature:  &temperature,
		baseURL:      strings.TrimSuffix(o.baseURL, "/"),
		httpClient:   o.httpClient,
		logger:       o.logger,
	}
}

// Provider implements Adapter.
func (a *ChatAdapter) Provider() llm.Provider { return a.provider }

// DefaultModel implements Adapter.
func (a *ChatAdapter) DefaultModel() string { return a.defaultModel }

// Message is one chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// chatRequest is the chat-completions request body.
type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []Message      `json:"messages"`
	ResponseFormat responseFormat `json:"response_format"`
	Temperature    *float64       `json:"temperature,omitempty"`
	MaxTokens      int            `json:"max_tokens,omitempty"`
}

type chatChoice struct {
	Message Message `json:"message"`
}

// chatResponse is the part of the chat-completions envelope tokun reads.
// Usage is deliberately absent: counts are always recomputed locally.
type chatResponse struct {
	Choices []chatChoice    `json:"choices"`
	Error   json.RawMessage `json:"error,omitempty"`
}

// apiError is the error object most OpenAI-compatible backends return.
type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// structuredReply is the JSON object the system prompt asks for.
type structuredReply struct {
	OptimizedText *string  `json:"optimizedText"`
	Suggestions   []string `json:"suggestions"`
}

// Optimize implements Adapter.
func (a *ChatAdapter) Optimize(ctx context.Context, req Request) (*llm.Result, error) {
	maxTokens := maxTokensFor(req.Mode, req.Config)
	body := chatRequest{
		Model: req.Config.ModelOr(a.defaultModel),
		Messages: []Message{
			{Role: "system", Content: buildSystemPrompt(req.Mode, req.TargetTokens, maxTokens)},
			{Role: "user", Content: req.Text},
		},
		ResponseFormat: responseFormat{Type: "json_object"},
		Temperature:    a.temperature,
		MaxTokens:      maxTokens,
	}

	a.logger.Debug("sending optimize request",
		"provider", a.provider,
		"model", body.Model,
		"mode", req.Mode,
		"target_tokens", req.TargetTokens,
		"max_tokens", maxTokens,
	)

	resp, err := a.send(ctx, req.Config.APIKey, body)
	if err != nil {
		return nil, err
	}

	reply, err := a.parseReply(resp)
	if err != nil {
		return nil, err
	}

	// The provider may be "other" riding on this adapter; count with the configured provider.
	counted := tokens.Estimate(*reply.OptimizedText, req.Config.Provider)
	suggestions := reply.Suggestions
	if suggestions == nil {
		suggestions = []string{}
	}

	return &llm.Result{
		OptimizedText: *reply.OptimizedText,
		Tokens:        counted.Tokens,
		Words:         counted.Words,
		Suggestions:   suggestions,
	}, nil
}

// send posts the request and classifies transport and status failures.
func (a *ChatAdapter) send(ctx context.Context, apiKey string, req chatRequest) (*chatResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, errors.ProviderFailed("", fmt.Errorf("encode request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, errors.ProviderFailed("", fmt.Errorf("create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.ProviderFailed("", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.ProviderFailed("", fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		a.logger.Debug("provider returned error status", "provider", a.provider, "status", resp.StatusCode)
		return nil, errors.ProviderFailed(errorMessage(respBody), nil)
	}

	var envelope chatResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, errors.InvalidResponseFormat(a.label, err)
	}
	if len(envelope.Error) > 0 && string(envelope.Error) != "null" {
		return nil, errors.ProviderFailed(decodeAPIError(envelope.Error), nil)
	}

	return &envelope, nil
}

// parseReply extracts the structured object from the first choice.
func (a *ChatAdapter) parseReply(resp *chatResponse) (*structuredReply, error) {
	if len(resp.Choices) == 0 {
		return nil, errors.InvalidResponseFormat(a.label, fmt.Errorf("response has no choices"))
	}

	var reply structuredReply
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &reply); err != nil {
		return nil, errors.InvalidResponseFormat(a.label, err)
	}
	if reply.OptimizedText == nil || strings.TrimSpace(*reply.OptimizedText) == "" {
		return nil, errors.InvalidResponseFormat(a.label, fmt.Errorf("reply has no optimizedText"))
	}

	return &reply, nil
}

// errorMessage pulls error.message out of an error body, or returns "".
func errorMessage(body []byte) string {
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Error) == 0 {
		return ""
	}
	return decodeAPIError(envelope.Error)
}

// decodeAPIError accepts both {"message": "..."} and a bare string.
func decodeAPIError(raw json.RawMessage) string {
	var obj apiError
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Message
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}
