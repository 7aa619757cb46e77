package operation

import (
	"fmt"
)

// Input holds the raw string values for an operation's fields, keyed by
// field name. Missing fields read as "".
type Input map[string]string

// PayloadFunc builds the JSON request body from the current input.
type PayloadFunc func(in Input) map[string]any

// Definition describes one remote operation. Definitions are immutable once
// registered.
type Definition struct {
	// Name is the operation identifier, e.g. "analyze"
	Name string

	// Path is the endpoint path relative to the service base URL
	Path string

	// Fields are the input field names in prompt/positional order
	Fields []string

	// Description is a one-line summary for help output
	Description string

	// ErrorMessage is the fixed user-facing message stored on failure
	ErrorMessage string

	// Payload builds the request body. Default: FieldsPayload(Fields...)
	Payload PayloadFunc
}

// HasField reports whether field is one of the definition's input fields.
func (d *Definition) HasField(field string) bool {
	for _, f := range d.Fields {
		if f == field {
			return true
		}
	}
	return false
}

// BuildPayload returns the request body for in.
func (d *Definition) BuildPayload(in Input) map[string]any {
	if d.Payload != nil {
		return d.Payload(in)
	}
	return FieldsPayload(d.Fields...)(in)
}

// FieldsPayload returns a PayloadFunc that copies exactly the named fields
// from the input into the body, using "" for missing values.
func FieldsPayload(fields ...string) PayloadFunc {
	return func(in Input) map[string]any {
		body := make(map[string]any, len(fields))
		for _, f := range fields {
			body[f] = in[f]
		}
		return body
	}
}

// Built-in operation names.
const (
	Analyze         = "analyze"
	Recommend       = "recommend"
	Sentiment       = "sentiment"
	GenerateContent = "generate-content"
)

// builtinDefinitions is the fixed set of operations the service exposes.
var builtinDefinitions = []Definition{
	{
		Name:         Analyze,
		Path:         "/analyze",
		Fields:       []string{"data"},
		Description:  "Analyze data and return insights",
		ErrorMessage: "Error analyzing data",
	},
	{
		Name:         Recommend,
		Path:         "/recommend",
		Fields:       []string{"user"},
		Description:  "Get a personalized recommendation for user data",
		ErrorMessage: "Error getting recommendation",
	},
	{
		Name:         Sentiment,
		Path:         "/sentiment",
		Fields:       []string{"text"},
		Description:  "Analyze the sentiment of a text",
		ErrorMessage: "Error analyzing sentiment",
	},
	{
		Name:         GenerateContent,
		Path:         "/generate-content",
		Fields:       []string{"topic", "content_type"},
		Description:  "Generate content of a given type about a topic",
		ErrorMessage: "Error generating content",
	},
}

// Registry maps operation names to definitions. It is immutable after
// construction and safe for concurrent use.
type Registry struct {
	defs  map[string]*Definition
	order []string
}

// NewRegistry creates a registry from defs. It panics on an empty or
// duplicate name, since that can only come from a programming error.
func NewRegistry(defs ...Definition) *Registry {
	r := &Registry{
		defs:  make(map[string]*Definition, len(defs)),
		order: make([]string, 0, len(defs)),
	}

	for _, def := range defs {
		if def.Name == "" {
			panic("operation: definition with empty name")
		}
		if _, exists := r.defs[def.Name]; exists {
			panic(fmt.Sprintf("operation: duplicate definition %q", def.Name))
		}

		d := def
		d.Fields = append([]string(nil), def.Fields...)
		if d.Payload == nil {
			d.Payload = FieldsPayload(d.Fields...)
		}
		r.defs[d.Name] = &d
		r.order = append(r.order, d.Name)
	}

	return r
}

// DefaultRegistry returns a registry with the built-in operations.
func DefaultRegistry() *Registry {
	return NewRegistry(builtinDefinitions...)
}

// Resolve returns the definition for name, or *UnknownOperationError.
func (r *Registry) Resolve(name string) (*Definition, error) {
	def, ok := r.defs[name]
	if !ok {
		return nil, &UnknownOperationError{Name: name, Known: r.Names()}
	}
	return def, nil
}

// Names returns the registered operation names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Definitions returns the registered definitions in registration order.
func (r *Registry) Definitions() []*Definition {
	defs := make([]*Definition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.defs[name])
	}
	return defs
}
