package openai

import (
	"errors"

	"github.com/openai/openai-go"
	"github.com/spetersoncode/relay/internal/provider/apierr"
)

// wrapError categorizes an OpenAI SDK error, keeping any Retry-After hint.
// Errors that are not API errors are returned as-is for the retry
// heuristics to classify.
func wrapError(err error) error {
	var apiErr *openai.Error
	if err == nil || !errors.As(err, &apiErr) {
		return err
	}
	return apierr.Wrap(err, apiErr.StatusCode, apierr.RetryAfter(apiErr.Response))
}
