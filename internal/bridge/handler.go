// Package bridge serves the browser-extension message protocol over HTTP and
// WebSocket.
package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/HartBrook/tokun/internal/llm"
	"github.com/HartBrook/tokun/internal/logging"
	"github.com/HartBrook/tokun/internal/optimize"
	"github.com/HartBrook/tokun/internal/rewrite"
	"github.com/HartBrook/tokun/internal/tokens"
)

// Actions understood by the bridge.
const (
	ActionOptimizePrompt = "optimize_prompt"
	ActionCountTokens    = "count_tokens"
	ActionSuggest        = "suggest"
)

// Fallback decides what happens when a provider call fails.
type Fallback string

const (
	// FallbackNone reports the failure to the caller.
	FallbackNone Fallback = "none"
	// FallbackLocal answers with the filler-stripping rewrite instead.
	FallbackLocal Fallback = "local"
)

// ParseFallback converts user input into a Fallback. Empty input means none.
func ParseFallback(s string) (Fallback, error) {
	switch f := Fallback(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FallbackNone:
		return FallbackNone, nil
	case FallbackLocal:
		return FallbackLocal, nil
	default:
		return "", fmt.Errorf("unknown fallback %q (use none or local)", s)
	}
}

// Request is one extension message.
type Request struct {
	ID           string `json:"id,omitempty"`
	Action       string `json:"action"`
	Text         string `json:"text"`
	TargetTokens int    `json:"targetTokens,omitempty"`
	Mode         string `json:"mode,omitempty"`
}

// Response is the reply to one Request.
type Response struct {
	ID      string `json:"id,omitempty"`
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	// Fallback is set when Data came from the local rewriter after a provider failure.
	Fallback bool `json:"fallback,omitempty"`
}

// SuggestData is the payload of a suggest response.
type SuggestData struct {
	Suggestions []string `json:"suggestions"`
}

// Optimizer is the subset of optimize.Service the bridge needs.
type Optimizer interface {
	CountTokens(text string) tokens.Count
	OptimizePrompt(ctx context.Context, text string, opts optimize.Options) (*llm.Result, error)
	RewriteLocally(ctx context.Context, text string, strategy rewrite.Strategy) llm.Result
}

// Handler answers extension messages.
type Handler struct {
	svc      Optimizer
	fallback Fallback
	logger   *slog.Logger
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithFallback sets the provider failure policy.
func WithFallback(f Fallback) HandlerOption {
	return func(h *Handler) {
		h.fallback = f
	}
}

// WithLogger sets the handler logger.
func WithLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = logger
	}
}

// NewHandler creates a handler over svc.
func NewHandler(svc Optimizer, opts ...HandlerOption) *Handler {
	h := &Handler{
		svc:      svc,
		fallback: FallbackNone,
		logger:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle answers req. Failures are reported in the Response, never returned.
func (h *Handler) Handle(ctx context.Context, req Request) Response {
	resp := h.dispatch(ctx, req)
	resp.ID = req.ID
	return resp
}

func (h *Handler) dispatch(ctx context.Context, req Request) Response {
	switch req.Action {
	case ActionOptimizePrompt:
		if strings.TrimSpace(req.Text) == "" {
			return failure("no text provided")
		}
		return h.optimize(ctx, req)
	case ActionCountTokens:
		return Response{Success: true, Data: h.svc.CountTokens(req.Text)}
	case ActionSuggest:
		return Response{Success: true, Data: SuggestData{Suggestions: rewrite.Suggest(req.Text)}}
	default:
		return failure("unsupported action")
	}
}

func (h *Handler) optimize(ctx context.Context, req Request) Response {
	result, err := h.svc.OptimizePrompt(ctx, req.Text, optimize.Options{
		TargetTokens: req.TargetTokens,
		Mode:         llm.Mode(req.Mode),
	})
	if err == nil {
		return Response{Success: true, Data: result}
	}

	h.logger.Warn("optimize_prompt failed", "error", err, "fallback", h.fallback)
	if h.fallback != FallbackLocal {
		return failure(err.Error())
	}

	local := h.svc.RewriteLocally(ctx, req.Text, rewrite.StrategyStrip)
	return Response{Success: true, Data: local, Fallback: true}
}

func failure(msg string) Response {
	return Response{Success: false, Error: msg}
}
