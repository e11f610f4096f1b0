package agent

// Config holds the generation and loop bounds owned by one Agent. It is
// immutable after construction.
type Config struct {
	// Temperature is the sampling temperature passed to the backend.
	Temperature float64
	// MaxTokens bounds the completion budget of a single backend call.
	MaxTokens int
	// MaxCycles bounds the think/act/observe loop. One cycle is one backend
	// call plus at most one tool execution; inner tool failures count against
	// this same bound rather than retrying independently.
	MaxCycles int
}

// Defaults applied when a field is absent.
const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 1024
	DefaultMaxCycles   = 5

	// Delegation chains need more cycles than flat tool use.
	DefaultManagerMaxCycles = 10
)

// DefaultConfig returns the baseline agent configuration.
func DefaultConfig() Config {
	return Config{
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
		MaxCycles:   DefaultMaxCycles,
	}
}
