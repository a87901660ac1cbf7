// Package anthropic implements chat.Backend on the Anthropic Messages API.
package anthropic

import (
	"context"
	"errors"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	ai "github.com/spetersoncode/relay"
	"github.com/spetersoncode/relay/chat"
	"github.com/spetersoncode/relay/event"
	"github.com/spetersoncode/relay/internal/provider/apierr"
)

// DefaultModel is used when neither the client nor the request names one.
const DefaultModel = "claude-sonnet-4-5"

// defaultMaxTokens is sent when the request sets no limit; the API requires one.
const defaultMaxTokens = 4096

// Client wraps the Anthropic SDK to implement chat.Backend.
type Client struct {
	client *anthropic.Client
	model  string
}

// ClientOption configures the Anthropic client.
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

// New creates a new Anthropic client with the given API key.
func New(apiKey string, opts ...ClientOption) *Client {
	cfg := clientConfig{model: DefaultModel}
	for _, opt := range opts {
		opt(&cfg)
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	client := anthropic.NewClient(reqOpts...)
	return &Client{client: &client, model: cfg.model}
}

func (c *Client) params(messages []ai.Message, tools []ai.Tool, options *ai.Options) anthropic.MessageNewParams {
	model := c.model
	if options.Model != "" {
		model = options.Model
	}
	maxTokens := int64(defaultMaxTokens)
	if options.MaxTokens > 0 {
		maxTokens = int64(options.MaxTokens)
	}

	msgs, system := splitSystem(messages)
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		Messages:  msgs,
	}
	if len(system) > 0 {
		params.System = system
	}
	if options.Temperature != nil {
		params.Temperature = anthropic.Float(*options.Temperature)
	}
	if len(tools) > 0 {
		params.Tools = toolParams(tools)
	}
	return params
}

// Submit sends a conversation and returns its event stream.
//
// Text streams as it arrives. Tool calls are emitted whole once the
// message is complete, since their input is only valid JSON at that point.
func (c *Client) Submit(ctx context.Context, messages []ai.Message, tools []ai.Tool, opts ...ai.Option) (<-chan event.Event, error) {
	options := ai.ApplyOptions(opts...)
	params := c.params(messages, tools, options)

	if !options.Stream {
		resp, err := c.client.Messages.New(ctx, params)
		if err != nil {
			return nil, wrapError(err)
		}
		return chat.Replay(ctx, responseOf(resp)), nil
	}

	stream := c.client.Messages.NewStreaming(ctx, params)
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

		var acc anthropic.Message
		for {
			ev := stream.Current()
			if err := acc.Accumulate(ev); err != nil {
				event.Send(ctx, ch, event.NewError(&chat.ProtocolError{Reason: err.Error()}))
				return
			}
			if ev.Type == "content_block_delta" {
				delta := ev.AsContentBlockDelta()
				if text := delta.Delta.AsTextDelta(); text.Type == "text_delta" && text.Text != "" {
					if !event.Send(ctx, ch, event.NewTextDelta(text.Text)) {
						return
					}
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

		resp := responseOf(&acc)
		for _, call := range resp.ToolCalls {
			if !event.Send(ctx, ch, event.NewToolCallDelta(call.ID, call.Name, call.Arguments)) {
				return
			}
		}
		event.Send(ctx, ch, event.NewCompletion(resp.FinishReason, &resp.Usage))
	}()
	return ch, nil
}

// Close implements chat.Backend.
func (c *Client) Close() error { return nil }

func responseOf(msg *anthropic.Message) *chat.Response {
	resp := &chat.Response{
		ToolCalls:    toolUses(msg.Content),
		FinishReason: string(msg.StopReason),
		Usage: ai.Usage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
		},
	}
	for _, block := range msg.Content {
		if block.Type == "text" {
			resp.Content += block.Text
		}
	}
	return resp
}

// wrapError categorizes an Anthropic SDK error, keeping any Retry-After hint.
func wrapError(err error) error {
	var apiErr *anthropic.Error
	if err == nil || !errors.As(err, &apiErr) {
		return err
	}
	return apierr.Wrap(err, apiErr.StatusCode, apierr.RetryAfter(apiErr.Response))
}

var _ chat.Backend = (*Client)(nil)
