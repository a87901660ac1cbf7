// Package openai implements chat.Backend on the OpenAI chat completions
// API. Any OpenAI-compatible endpoint, such as OpenRouter, works through
// WithBaseURL.
package openai

import (
	"context"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	ai "github.com/spetersoncode/relay"
	"github.com/spetersoncode/relay/chat"
	"github.com/spetersoncode/relay/event"
)

// DefaultModel is used when neither the client nor the request names one.
const DefaultModel = "gpt-4o"

// Client wraps the OpenAI SDK to implement chat.Backend.
type Client struct {
	client *openai.Client
	model  string
}

// ClientOption configures the OpenAI client.
type ClientOption func(*clientConfig)

type clientConfig struct {
	model   string
	baseURL string
	headers map[string]string
}

// WithModel sets the default model for requests.
func WithModel(model string) ClientOption {
	return func(c *clientConfig) {
		c.model = model
	}
}

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(url string) ClientOption {
	return func(c *clientConfig) {
		c.baseURL = url
	}
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) ClientOption {
	return func(c *clientConfig) {
		if c.headers == nil {
			c.headers = make(map[string]string)
		}
		c.headers[key] = value
	}
}

// New creates a new OpenAI client with the given API key.
func New(apiKey string, opts ...ClientOption) *Client {
	cfg := clientConfig{model: DefaultModel}
	for _, opt := range opts {
		opt(&cfg)
	}

	// Retries are handled above the backend.
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	for k, v := range cfg.headers {
		reqOpts = append(reqOpts, option.WithHeader(k, v))
	}

	client := openai.NewClient(reqOpts...)
	return &Client{client: &client, model: cfg.model}
}

func (c *Client) params(messages []ai.Message, tools []ai.Tool, options *ai.Options) openai.ChatCompletionNewParams {
	model := c.model
	if options.Model != "" {
		model = options.Model
	}

	params := openai.ChatCompletionNewParams{
		Model:    model,
		Messages: chatMessages(messages),
	}
	if options.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(options.MaxTokens))
	}
	if options.Temperature != nil {
		params.Temperature = openai.Float(*options.Temperature)
	}
	if len(tools) > 0 {
		params.Tools = functionTools(tools)
	}
	return params
}

// Submit sends a conversation and returns its event stream.
func (c *Client) Submit(ctx context.Context, messages []ai.Message, tools []ai.Tool, opts ...ai.Option) (<-chan event.Event, error) {
	options := ai.ApplyOptions(opts...)
	params := c.params(messages, tools, options)

	if !options.Stream {
		resp, err := c.client.Chat.Completions.New(ctx, params)
		if err != nil {
			return nil, wrapError(err)
		}
		if len(resp.Choices) == 0 {
			return nil, &chat.ProtocolError{Reason: "response has no choices"}
		}
		choice := resp.Choices[0]
		return chat.Replay(ctx, &chat.Response{
			Content:      choice.Message.Content,
			ToolCalls:    callsOf(choice.Message),
			FinishReason: string(choice.FinishReason),
			Usage: ai.Usage{
				InputTokens:  int(resp.Usage.PromptTokens),
				OutputTokens: int(resp.Usage.CompletionTokens),
			},
		}), nil
	}

	params.StreamOptions = openai.ChatCompletionStreamOptionsParam{
		IncludeUsage: openai.Bool(true),
	}
	stream := c.client.Chat.Completions.NewStreaming(ctx, params)

	// Pull the first chunk here so that request failures are returned
	// directly and can be retried.
	if !stream.Next() {
		err := stream.Err()
		stream.Close()
		if err != nil {
			return nil, wrapError(err)
		}
		return nil, chat.ErrStreamTruncated
	}

	ch := event.NewChannel()
	go func() {
		defer close(ch)
		defer stream.Close()

		var st streamState
		for {
			for _, e := range st.chunk(stream.Current()) {
				if !event.Send(ctx, ch, e) {
					return
				}
			}
			if !stream.Next() {
				break
			}
		}

		if err := stream.Err(); err != nil {
			event.Send(ctx, ch, event.NewError(wrapError(err)))
			return
		}
		event.Send(ctx, ch, event.NewCompletion(st.finish, &st.usage))
	}()
	return ch, nil
}

// Close implements chat.Backend.
func (c *Client) Close() error { return nil }

// streamState maps streamed tool call indexes to their ids.
type streamState struct {
	ids    map[int64]string
	finish string
	usage  ai.Usage
}

func (s *streamState) chunk(chunk openai.ChatCompletionChunk) []event.Event {
	if chunk.Usage.TotalTokens > 0 {
		s.usage = ai.Usage{
			InputTokens:  int(chunk.Usage.PromptTokens),
			OutputTokens: int(chunk.Usage.CompletionTokens),
		}
	}
	if len(chunk.Choices) == 0 {
		return nil
	}

	choice := chunk.Choices[0]
	if choice.FinishReason != "" {
		s.finish = string(choice.FinishReason)
	}

	var events []event.Event
	if choice.Delta.Content != "" {
		events = append(events, event.NewTextDelta(choice.Delta.Content))
	}
	for _, tc := range choice.Delta.ToolCalls {
		if s.ids == nil {
			s.ids = make(map[int64]string)
		}
		id, ok := s.ids[tc.Index]
		if !ok {
			id = tc.ID
			if id == "" {
				id = ai.GenerateMessageID()
			}
			s.ids[tc.Index] = id
		}
		events = append(events, event.NewToolCallDelta(id, tc.Function.Name, tc.Function.Arguments))
	}
	return events
}

var _ chat.Backend = (*Client)(nil)
