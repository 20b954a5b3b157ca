package llm

// CallOption is a function that configures a single provider call.
type CallOption func(*CallOptions)

// CallOptions is the set of per-call parameters understood by providers.
type CallOptions struct {
	// Model overrides the provider's default model.
	Model string

	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature is the sampling temperature, between 0 and 1.
	Temperature    float64
	temperatureSet bool

	// Tools is the list of function definitions offered to the model.
	Tools []FunctionDefinition
}

// ApplyOptions folds the given options into a CallOptions value.
func ApplyOptions(options ...CallOption) *CallOptions {
	o := &CallOptions{}
	for _, opt := range options {
		opt(o)
	}
	return o
}

// HasTemperature reports whether a temperature was explicitly set.
func (o *CallOptions) HasTemperature() bool {
	return o.temperatureSet
}

// WithModel overrides the model for one call.
func WithModel(model string) CallOption {
	return func(o *CallOptions) {
		o.Model = model
	}
}

// WithMaxTokens limits the generated output length.
func WithMaxTokens(maxTokens int) CallOption {
	return func(o *CallOptions) {
		o.MaxTokens = maxTokens
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(temperature float64) CallOption {
	return func(o *CallOptions) {
		o.Temperature = temperature
		o.temperatureSet = true
	}
}

// WithTools offers the given function definitions to the model.
func WithTools(tools []FunctionDefinition) CallOption {
	return func(o *CallOptions) {
		o.Tools = tools
	}
}
