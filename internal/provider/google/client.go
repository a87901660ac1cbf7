// Package google implements chat.Backend on the Gemini API.
package google

import (
	"context"
	"errors"
	"iter"

	ai "github.com/spetersoncode/relay"
	"github.com/spetersoncode/relay/chat"
	"github.com/spetersoncode/relay/event"
	"github.com/spetersoncode/relay/internal/provider/apierr"
	"google.golang.org/genai"
)

// DefaultModel is used when neither the client nor the request names one.
const DefaultModel = "gemini-2.5-flash"

// Client wraps the Google GenAI SDK to implement chat.Backend.
type Client struct {
	client *genai.Client
	model  string
}

// ClientOption configures the Google client.
type ClientOption func(*clientConfig)

type clientConfig struct {
	model   string
	baseURL string
}

// WithModel sets the default model for requests.
func WithModel(model string) ClientOption {
	return func(c *clientConfig) {
		c.model = model
	}
}

// WithBaseURL overrides the API endpoint.
func WithBaseURL(url string) ClientOption {
	return func(c *clientConfig) {
		c.baseURL = url
	}
}

// New creates a new Gemini client with the given API key.
func New(ctx context.Context, apiKey string, opts ...ClientOption) (*Client, error) {
	cfg := clientConfig{model: DefaultModel}
	for _, opt := range opts {
		opt(&cfg)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.baseURL},
	})
	if err != nil {
		return nil, err
	}
	return &Client{client: client, model: cfg.model}, nil
}

func (c *Client) request(messages []ai.Message, tools []ai.Tool, options *ai.Options) (string, []*genai.Content, *genai.GenerateContentConfig) {
	model := c.model
	if options.Model != "" {
		model = options.Model
	}

	contents, system := contentsOf(messages)
	config := &genai.GenerateContentConfig{SystemInstruction: system}
	if options.MaxTokens > 0 {
		config.MaxOutputTokens = int32(options.MaxTokens)
	}
	if options.Temperature != nil {
		temp := float32(*options.Temperature)
		config.Temperature = &temp
	}
	if len(tools) > 0 {
		config.Tools = declarations(tools)
	}
	return model, contents, config
}

// Submit sends a conversation and returns its event stream.
// Gemini delivers each function call whole, so tool calls arrive as
// single fragments.
func (c *Client) Submit(ctx context.Context, messages []ai.Message, tools []ai.Tool, opts ...ai.Option) (<-chan event.Event, error) {
	options := ai.ApplyOptions(opts...)
	model, contents, config := c.request(messages, tools, options)

	if !options.Stream {
		resp, err := c.client.Models.GenerateContent(ctx, model, contents, config)
		if err != nil {
			return nil, wrapError(err)
		}
		var st streamState
		st.add(resp)
		if st.err != nil {
			return nil, st.err
		}
		return chat.Replay(ctx, &chat.Response{
			Content:      st.text,
			ToolCalls:    st.calls,
			FinishReason: st.finish,
			Usage:        st.usage,
		}), nil
	}

	next, stop := iter.Pull2(c.client.Models.GenerateContentStream(ctx, model, contents, config))
	first, err, ok := next()
	if !ok {
		stop()
		return nil, chat.ErrStreamTruncated
	}
	if err != nil {
		stop()
		return nil, wrapError(err)
	}

	ch := event.NewChannel()
	go func() {
		defer close(ch)
		defer stop()

		var st streamState
		resp := first
		for {
			for _, e := range st.add(resp) {
				if !event.Send(ctx, ch, e) {
					return
				}
			}
			if st.err != nil {
				event.Send(ctx, ch, event.NewError(st.err))
				return
			}

			var ok bool
			resp, err, ok = next()
			if !ok {
				break
			}
			if err != nil {
				event.Send(ctx, ch, event.NewError(wrapError(err)))
				return
			}
		}
		event.Send(ctx, ch, event.NewCompletion(st.finish, &st.usage))
	}()
	return ch, nil
}

// Close implements chat.Backend.
func (c *Client) Close() error { return nil }

// streamState folds Gemini responses into events and the final summary.
type streamState struct {
	text   string
	calls  []ai.ToolCall
	finish string
	usage  ai.Usage
	err    error
}

func (s *streamState) add(resp *genai.GenerateContentResponse) []event.Event {
	if resp == nil {
		return nil
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		s.err = &BlockedError{Reason: string(resp.PromptFeedback.BlockReason)}
		return nil
	}
	if resp.UsageMetadata != nil {
		s.usage = ai.Usage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	if len(resp.Candidates) == 0 {
		return nil
	}

	cand := resp.Candidates[0]
	if cand.FinishReason != "" {
		s.finish = string(cand.FinishReason)
	}
	if cand.Content == nil {
		return nil
	}

	var events []event.Event
	for _, part := range cand.Content.Parts {
		if part.Text != "" && !part.Thought {
			s.text += part.Text
			events = append(events, event.NewTextDelta(part.Text))
		}
		if part.FunctionCall != nil {
			call := toolCallOf(part.FunctionCall)
			s.calls = append(s.calls, call)
			events = append(events, event.NewToolCallDelta(call.ID, call.Name, call.Arguments))
		}
	}
	return events
}

// BlockedError indicates the request was blocked by content filtering.
type BlockedError struct {
	Reason string
}

func (e *BlockedError) Error() string {
	return "request blocked: " + e.Reason
}

// wrapError categorizes a GenAI API error. The SDK does not expose
// response headers, so no Retry-After hint is available.
func wrapError(err error) error {
	var apiErr genai.APIError
	if err == nil || !errors.As(err, &apiErr) {
		return err
	}
	return apierr.Wrap(err, apiErr.Code, 0)
}

var _ chat.Backend = (*Client)(nil)
