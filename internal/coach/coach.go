// Package coach asks a chat-completions service for advice about a position.
// Failures never escape: callers always get a message to show.
package coach

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/cheese-trainer/internal/msgcat"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"
	maxTokens      = 500

	defaultSystemPrompt = "You are a chess coach. Analyze positions and provide helpful advice. Be very concise and specific."
	defaultApology      = "Sorry, I'm having trouble responding right now. Please try again."
	defaultAnalyze      = "Please analyze the current position."
)

// Evaluator scores a position in centipawns for the side to move.
type Evaluator interface {
	Evaluate(ctx context.Context, fen string) (int, error)
}

// OpeningNamer names the opening reached by a UCI move history.
type OpeningNamer interface {
	Name(history []string) (code, title string)
}

type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
	Retry   int
	// Optional.
	Evaluator Evaluator
	Openings  OpeningNamer
	Messages  *msgcat.Catalog
	Logger    *zap.Logger
	Dial      fasthttp.DialFunc
}

type Coach struct {
	http      *client
	model     string
	evaluator Evaluator
	openings  OpeningNamer
	messages  *msgcat.Catalog
	logger    *zap.Logger
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func New(cfg Config) *Coach {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	headers := func() map[string]string {
		if apiKey == "" {
			return nil
		}
		return map[string]string{"Authorization": "Bearer " + apiKey}
	}
	return &Coach{
		http: newClient(cfg.BaseURL,
			withTimeout(cfg.Timeout),
			withRetry(cfg.Retry),
			withHeaderProvider(headers),
			withDial(cfg.Dial),
		),
		model:     cfg.Model,
		evaluator: cfg.Evaluator,
		openings:  cfg.Openings,
		messages:  cfg.Messages,
		logger:    cfg.Logger,
	}
}

// Ask sends the position and the user's message to the coach.
func (c *Coach) Ask(ctx context.Context, fen, message string) string {
	reply, err := c.complete(ctx, fen, message)
	if err != nil {
		c.logger.Warn("coach request failed", zap.Error(err))
		return c.apology()
	}
	return reply
}

// AskAsync runs Ask on its own goroutine. The channel receives exactly one reply.
func (c *Coach) AskAsync(ctx context.Context, fen, message string) <-chan string {
	out := make(chan string, 1)
	go func() {
		out <- c.Ask(ctx, fen, message)
	}()
	return out
}

// Analyze asks for an assessment of the position, adding the engine score and
// the opening name when they are available.
func (c *Coach) Analyze(ctx context.Context, fen string, history []string) string {
	prompt := c.messages.Text("coach.analyze_prompt", nil, defaultAnalyze)
	if extra := c.analysisContext(ctx, fen, history); extra != "" {
		prompt += "\n" + extra
	}
	return c.Ask(ctx, fen, prompt)
}

func (c *Coach) analysisContext(ctx context.Context, fen string, history []string) string {
	if c.evaluator == nil {
		return ""
	}
	cp, err := c.evaluator.Evaluate(ctx, fen)
	if err != nil {
		c.logger.Debug("coach evaluation skipped", zap.Error(err))
		return ""
	}
	opening := ""
	if c.openings != nil && len(history) > 0 {
		code, title := c.openings.Name(history)
		if title != "" {
			opening = strings.TrimSpace(code + " " + title)
		}
	}
	return c.messages.Text("coach.analyze_context", map[string]any{"Eval": cp, "Opening": opening},
		fmt.Sprintf("Engine evaluation: %d centipawns for the side to move.", cp))
}

func (c *Coach) complete(ctx context.Context, fen, message string) (string, error) {
	user := c.messages.Text("coach.user_prompt", map[string]any{"FEN": fen, "Message": message},
		fmt.Sprintf("Current chess position (FEN): %s\nUser message: %s", fen, message))
	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: c.messages.Text("coach.system_prompt", nil, defaultSystemPrompt)},
			{Role: "user", Content: user},
		},
		MaxTokens: maxTokens,
	}
	var resp chatResponse
	if err := c.http.doJSON(ctx, fasthttp.MethodPost, "/chat/completions", req, &resp, true); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("coach api returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (c *Coach) apology() string {
	return c.messages.Text("coach.apology", nil, defaultApology)
}
