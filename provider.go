package relay

import "slices"

// Provider names a model vendor.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
	ProviderGoogle    Provider = "google"
	// ProviderOpenRouter speaks the OpenAI wire format against the
	// OpenRouter endpoint.
	ProviderOpenRouter Provider = "openrouter"
)

// Providers lists every supported provider.
var Providers = []Provider{ProviderOpenRouter, ProviderOpenAI, ProviderAnthropic, ProviderGoogle}

func (p Provider) String() string { return string(p) }

// Valid reports whether p is one of Providers.
func (p Provider) Valid() bool { return slices.Contains(Providers, p) }
