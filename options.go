package relay

// Options are the per-submission settings a backend honors.
type Options struct {
	// Model overrides the backend's default model.
	Model string
	// MaxTokens caps the reply length. Zero leaves it to the backend.
	MaxTokens int
	// Temperature is nil unless set, so backends can tell 0 from unset.
	Temperature *float64
	// Stream requests incremental delivery. A backend told not to stream
	// still emits the same event shapes, all at once.
	Stream bool
}

// Option adjusts Options.
type Option func(*Options)

func WithModel(model string) Option { return func(o *Options) { o.Model = model } }

func WithMaxTokens(n int) Option { return func(o *Options) { o.MaxTokens = n } }

// WithTemperature sets the sampling temperature, usually between 0 and 2.
func WithTemperature(t float64) Option { return func(o *Options) { o.Temperature = &t } }

func WithStream(enabled bool) Option { return func(o *Options) { o.Stream = enabled } }

// ApplyOptions folds opts over the defaults, which stream.
// Later options win.
func ApplyOptions(opts ...Option) *Options {
	o := &Options{Stream: true}
	for _, apply := range opts {
		apply(o)
	}
	return o
}
