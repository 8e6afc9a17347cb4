// Package generate sends assembled prompts to a generative language model.
package generate

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// SystemPrompt frames every request as repository analysis.
const SystemPrompt = `You are an expert code analyzer specializing in repository analysis.
You have access to GitHub repository data and can provide detailed insights about code structure, architecture, and quality.

When analyzing code:
- Focus on structure and organization
- Identify key components and their relationships
- Highlight architectural patterns
- Suggest improvements
- Be specific and actionable
- Provide clear, well-formatted output`

// Provider is one generative model backend.
type Provider interface {
	Name() string
	Complete(ctx context.Context, system, user string) (string, error)
}

// Exchange is one successful prompt/response pair.
type Exchange struct {
	Prompt   string
	Response string
}

// Caller submits prompts to a Provider and keeps the history of its own
// successful exchanges.
type Caller struct {
	provider Provider
	logger   *zap.Logger

	mu      sync.Mutex
	history []Exchange
}

func NewCaller(provider Provider, logger *zap.Logger) *Caller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Caller{provider: provider, logger: logger}
}

// Generate asks the model to answer prompt under SystemPrompt.
// Quota and rate limit failures are returned as *QuotaExceededError.
func (c *Caller) Generate(ctx context.Context, prompt string) (string, error) {
	if c == nil || c.provider == nil {
		return "", errors.New("generate: no provider configured")
	}
	c.logger.Info("requesting analysis", zap.String("provider", c.provider.Name()), zap.Int("prompt_chars", len(prompt)))

	text, err := c.provider.Complete(ctx, SystemPrompt, prompt)
	if err != nil {
		c.logger.Error("analysis failed", zap.Error(err))
		return "", Classify(err)
	}

	c.mu.Lock()
	c.history = append(c.history, Exchange{Prompt: prompt, Response: text})
	c.mu.Unlock()
	return text, nil
}

// History returns a copy of the recorded exchanges, oldest first.
func (c *Caller) History() []Exchange {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Exchange(nil), c.history...)
}

func (c *Caller) ClearHistory() {
	c.mu.Lock()
	c.history = nil
	c.mu.Unlock()
}

// QuotaRemediation is shown to the user when the model refuses for quota reasons.
const QuotaRemediation = "API quota exceeded. Please wait a moment and try again, or check your API key at https://makersuite.google.com/app/apikey"

// QuotaExceededError reports a quota or rate limit refusal from the provider.
type QuotaExceededError struct {
	Err error
}

func (e *QuotaExceededError) Error() string { return QuotaRemediation }

func (e *QuotaExceededError) Unwrap() error { return e.Err }

// Classify maps provider failures onto the errors the CLI reports. Anything
// it does not recognize is returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var quota *QuotaExceededError
	if errors.As(err, &quota) {
		return err
	}
	if isQuotaStatus(err) {
		return &QuotaExceededError{Err: err}
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "quota") || strings.Contains(msg, "rate limit") {
		return &QuotaExceededError{Err: err}
	}
	return err
}
