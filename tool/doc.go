// Package tool registers the tools an agent can call and invokes them safely.
//
// A [Registry] maps names to a tool definition and a [Handler]. Each
// definition carries a JSON schema for its parameters; [Registry.Invoke]
// validates parameters against it before calling the handler. Invoke
// never fails: unknown tools, invalid parameters, handler errors and
// panics all come back as error results for the model to read.
//
// # Basic Usage
//
// Define tool arguments as a struct with tags, then register with Func:
//
//	type WeatherArgs struct {
//	    Location string `json:"location" desc:"City name" required:"true"`
//	    Unit     string `json:"unit" desc:"Temperature unit" enum:"celsius,fahrenheit"`
//	}
//
//	registry := tool.NewRegistry().Add(
//	    tool.Func("get_weather", "Get current weather",
//	        func(ctx context.Context, args WeatherArgs) (string, error) {
//	            return fmt.Sprintf(`{"temp": 72, "location": %q}`, args.Location), nil
//	        }),
//	)
//
// # Supported Struct Tags
//
//	json:"name"      - Property name
//	desc:"text"      - Description for the model
//	required:"true"  - Mark field as required
//	enum:"a,b,c"     - Allowed values (comma-separated)
//
// # Built-in Tools
//
// [FileTools] provides read_file, list_directory and search_files, plus
// write_file when [WithWrite] is set. [DefaultRegistry] registers them.
// Relative paths resolve against [WithBasePath] or, failing that, the
// invocation's [Env.WorkDir].
package tool
