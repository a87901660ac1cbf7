// Package client builds a chat.Backend for a configured provider.
//
// The returned Client wraps the provider backend with:
//
//   - Default options, overridden per request
//   - Automatic retries with exponential backoff for transient errors
//   - Event emission: observable operations via channel
//
// # Basic Usage
//
//	c, err := client.New(ctx, client.Config{
//	    Provider: relay.ProviderOpenRouter,
//	    APIKey:   os.Getenv("OPEN_ROUTER_API_KEY"),
//	    Model:    "openai/gpt-4o-mini",
//	})
//	if err != nil {
//	    return err
//	}
//	defer c.Close()
//
//	stream, err := c.Submit(ctx, []relay.Message{relay.NewUserMessage("Hello!")}, nil)
//
// # Retries
//
// Only stream establishment is retried. Once a stream has produced its
// first event, a failure arrives as an Error event and is not retried.
// Server Retry-After hints extend the backoff delay.
package client
