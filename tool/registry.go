package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	ai "github.com/spetersoncode/relay"
)

// registeredTool combines a tool definition with its handler and the
// compiled form of its parameter schema.
type registeredTool struct {
	tool      ai.Tool
	handler   Handler
	validator *validator
	schemaErr error // set when the parameter schema failed to compile
}

// Registry manages registered tools and their handlers. Tools keep the
// order in which they were first registered.
// It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	order  []string
	tools  map[string]registeredTool
	logger *slog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger used for registration and invocation events.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry creates an empty tool registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		tools:  make(map[string]registeredTool),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a tool with its handler to the registry. Registering a
// name twice replaces the earlier tool in place and logs a warning.
//
// A parameter schema that does not compile does not prevent registration;
// every invocation of that tool then yields an internal error result.
func (r *Registry) Register(t ai.Tool, handler Handler) {
	v, err := compileSchema(t.Parameters)
	if err != nil {
		r.logger.Warn("tool parameter schema does not compile", "tool", t.Name, "error", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[t.Name]; exists {
		r.logger.Warn("overwriting existing tool", "tool", t.Name)
	} else {
		r.order = append(r.order, t.Name)
	}
	r.tools[t.Name] = registeredTool{
		tool:      t,
		handler:   handler,
		validator: v,
		schemaErr: err,
	}
	r.logger.Debug("registered tool", "tool", t.Name)
}

// Unregister removes a tool from the registry and reports whether it was present.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tools[name]; !ok {
		return false
	}
	delete(r.tools, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Get retrieves a handler by tool name.
func (r *Registry) Get(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rt, ok := r.tools[name]
	if !ok {
		return nil, false
	}
	return rt.handler, true
}

// GetTool retrieves a tool definition by name.
func (r *Registry) GetTool(name string) (ai.Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rt, ok := r.tools[name]
	if !ok {
		return ai.Tool{}, false
	}
	return rt.tool, true
}

// Schemas returns all tool definitions in registration order.
// This is what gets advertised to the model.
func (r *Registry) Schemas() []ai.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]ai.Tool, 0, len(r.order))
	for _, name := range r.order {
		tools = append(tools, r.tools[name].tool)
	}
	return tools
}

// Names returns the names of all registered tools in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]string(nil), r.order...)
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Invoke validates params against the named tool's schema and runs it.
//
// Invoke never panics and never returns a Go error: unknown tools,
// invalid parameters, handler errors and handler panics are all reported
// as error results the model can read.
func (r *Registry) Invoke(ctx context.Context, name string, params map[string]any, env Env) ai.ToolResult {
	return r.invoke(ctx, name, params, nil, env)
}

// invoke runs the named tool. When args is set it is the JSON text params
// was decoded from and is handed to the tool as is.
func (r *Registry) invoke(ctx context.Context, name string, params map[string]any, args json.RawMessage, env Env) ai.ToolResult {
	r.mu.RLock()
	rt, ok := r.tools[name]
	r.mu.RUnlock()

	if !ok {
		return unknownTool(name)
	}
	if rt.schemaErr != nil {
		return internalError(name, fmt.Errorf("parameter schema: %w", rt.schemaErr))
	}
	if params == nil {
		params = map[string]any{}
	}

	if args == nil {
		var err error
		if args, err = json.Marshal(params); err != nil {
			return invalidParameters(name, []string{err.Error()})
		}
	}
	// Validate the JSON form so that Go-typed params behave like decoded ones.
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(args))
	if err != nil {
		return invalidParameters(name, []string{err.Error()})
	}
	obj, _ := doc.(map[string]any)
	if problems := rt.validator.validate(obj); len(problems) > 0 {
		return invalidParameters(name, problems)
	}

	return r.run(ctx, rt, Invocation{
		Env:       env,
		Name:      name,
		Params:    params,
		Arguments: args,
	})
}

// Execute decodes the arguments of a model-issued tool call and invokes it.
// Arguments that are not a JSON object yield an invalid parameters result.
func (r *Registry) Execute(ctx context.Context, call ai.ToolCall, env Env) ai.ToolResult {
	if env.CallID == "" {
		env.CallID = call.ID
	}

	params, err := call.Params()
	if err != nil {
		if !r.has(call.Name) {
			return unknownTool(call.Name)
		}
		return invalidParameters(call.Name, []string{"arguments are not a JSON object: " + err.Error()})
	}
	// Keep the model's text so typed handlers see integers beyond float64
	// precision unchanged.
	var args json.RawMessage
	if trimmed := bytes.TrimSpace([]byte(call.Arguments)); len(trimmed) > 0 && trimmed[0] == '{' {
		args = trimmed
	}
	return r.invoke(ctx, call.Name, params, args, env)
}

func (r *Registry) has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

func (r *Registry) run(ctx context.Context, rt registeredTool, inv Invocation) (result ai.ToolResult) {
	defer func() {
		if v := recover(); v != nil {
			err := &PanicError{Value: v}
			r.logger.Error("tool panicked", "tool", inv.Name, "error", err)
			result = internalError(inv.Name, err)
		}
	}()

	if rt.handler == nil {
		return internalError(inv.Name, fmt.Errorf("tool %q has no handler", inv.Name))
	}

	result, err := rt.handler(ctx, inv)
	if err != nil {
		r.logger.Error("tool failed", "tool", inv.Name, "error", err)
		return internalError(inv.Name, err)
	}
	if result.Status == "" {
		result.Status = ai.StatusOK
	}
	return result
}

// Registration holds a tool and its handler for fluent registration.
type Registration struct {
	Tool    ai.Tool
	Handler Handler
}

// Func creates a Registration with automatic schema generation from the typed handler.
// Panics if schema generation fails.
//
// Example:
//
//	registry := tool.NewRegistry().Add(
//	    tool.Func("weather", "Get weather", func(ctx context.Context, args WeatherArgs) (string, error) {
//	        return getWeather(args.Location), nil
//	    }),
//	)
func Func[T any](name, description string, fn TypedHandler[T]) Registration {
	return Registration{
		Tool: ai.Tool{
			Name:        name,
			Description: description,
			Parameters:  ai.MustSchemaFor[T](),
		},
		Handler: Typed(fn),
	}
}

// WithHandler creates a Registration from a Handler and schema.
func WithHandler(name, description string, schema json.RawMessage, h Handler) Registration {
	return Registration{
		Tool: ai.Tool{
			Name:        name,
			Description: description,
			Parameters:  schema,
		},
		Handler: h,
	}
}

// WithTool creates a Registration from an existing Tool and Handler.
func WithTool(t ai.Tool, h Handler) Registration {
	return Registration{Tool: t, Handler: h}
}

// Add registers one or more tools and returns the registry for chaining.
func (r *Registry) Add(regs ...Registration) *Registry {
	for _, reg := range regs {
		r.Register(reg.Tool, reg.Handler)
	}
	return r
}

// RegisterFunc is Func for callers that want a schema error instead of
// a panic.
func RegisterFunc[T any](r *Registry, name, description string, fn TypedHandler[T]) error {
	schema, err := ai.SchemaFor[T]()
	if err != nil {
		return fmt.Errorf("tool %s: %w", name, err)
	}
	r.Register(ai.Tool{Name: name, Description: description, Parameters: schema}, Typed(fn))
	return nil
}
