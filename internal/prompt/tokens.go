package prompt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

const defaultEncodingName = "cl100k_base"

// TokenCounter estimates how many tokens a prompt will cost.
type TokenCounter interface {
	Name() string
	CountString(input string) (int, error)
}

type tiktokenCounter struct {
	encoding *tiktoken.Tiktoken
	name     string
}

func (c tiktokenCounter) Name() string { return c.name }

func (c tiktokenCounter) CountString(input string) (int, error) {
	if c.encoding == nil {
		return 0, errors.New("nil tiktoken encoder")
	}
	return len(c.encoding.Encode(input, nil, nil)), nil
}

// NewTokenCounter returns a tiktoken counter for model, falling back to the
// cl100k_base encoding for models tiktoken does not know (Gemini among them).
// The estimate is approximate for non-OpenAI models.
func NewTokenCounter(model string) (TokenCounter, error) {
	lower := strings.ToLower(strings.TrimSpace(model))
	if lower != "" {
		if enc, err := tiktoken.EncodingForModel(lower); err == nil && enc != nil {
			return tiktokenCounter{encoding: enc, name: lower}, nil
		}
	}
	enc, err := tiktoken.GetEncoding(defaultEncodingName)
	if err != nil {
		return nil, fmt.Errorf("initialize tokenizer: %w", err)
	}
	return tiktokenCounter{encoding: enc, name: defaultEncodingName}, nil
}
