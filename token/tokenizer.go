// Package token counts and truncates text against a model's token budget.
//
// [Tokenizer] counts exactly with the model's BPE encoding when one can be
// resolved, falling back to [FallbackEncoding] and finally to the
// character [Estimate]. Counting never fails. [Truncate] shortens text to
// fit a budget, preferring whole lines.
package token

import (
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// FallbackEncoding is used when a model has no known encoding.
const FallbackEncoding = "cl100k_base"

// CharsPerToken is the ratio used by the character estimate.
const CharsPerToken = 4

// Counter counts the tokens a model would see for a piece of text.
type Counter interface {
	Count(text, model string) int
}

// encoder is satisfied by *tiktoken.Tiktoken.
type encoder interface {
	Encode(text string, allowedSpecial, disallowedSpecial []string) []int
}

// Tokenizer counts tokens with tiktoken encodings, cached per model.
// It is safe for concurrent use.
type Tokenizer struct {
	mu       sync.Mutex
	encoders map[string]encoder // nil entry: resolution failed, estimate

	forModel func(model string) (encoder, error)
	byName   func(name string) (encoder, error)
}

// NewTokenizer creates a Tokenizer backed by tiktoken.
func NewTokenizer() *Tokenizer {
	return &Tokenizer{
		encoders: make(map[string]encoder),
		forModel: func(model string) (encoder, error) {
			return tiktoken.EncodingForModel(model)
		},
		byName: func(name string) (encoder, error) {
			return tiktoken.GetEncoding(name)
		},
	}
}

// Count returns the number of tokens in text for model.
func (t *Tokenizer) Count(text, model string) (n int) {
	if text == "" {
		return 0
	}

	enc := t.encoderFor(model)
	if enc == nil {
		return Estimate(text)
	}

	defer func() {
		if recover() != nil {
			n = Estimate(text)
		}
	}()
	return len(enc.Encode(text, nil, nil))
}

func (t *Tokenizer) encoderFor(model string) encoder {
	t.mu.Lock()
	defer t.mu.Unlock()

	if enc, ok := t.encoders[model]; ok {
		return enc
	}

	var enc encoder
	if model != "" {
		if e, err := t.forModel(model); err == nil {
			enc = e
		}
	}
	if enc == nil {
		if e, err := t.byName(FallbackEncoding); err == nil {
			enc = e
		}
	}
	t.encoders[model] = enc
	return enc
}

// Estimator counts tokens with the character estimate only.
type Estimator struct{}

// Count implements Counter.
func (Estimator) Count(text, _ string) int {
	return Estimate(text)
}

// Estimate approximates a token count as one token per CharsPerToken
// characters, rounded up. Non-empty text is at least one token.
func Estimate(text string) int {
	runes := utf8.RuneCountInString(text)
	if runes == 0 {
		return 0
	}
	return (runes + CharsPerToken - 1) / CharsPerToken
}
