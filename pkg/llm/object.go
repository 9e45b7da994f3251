package llm

import (
	"context"
	"io"

	llmerrors "github.com/llmwire/llmwire/pkg/provider/errors"
	"github.com/llmwire/llmwire/pkg/provider/types"
	"github.com/llmwire/llmwire/pkg/schema"
)

// StructuredOutputToolName is the synthetic tool wrapped around the
// caller's schema for structured generation.
const StructuredOutputToolName = "structured_output"

// structuredOutputTool wraps a schema as the synthetic tool.
func structuredOutputTool(s *schema.Schema) types.Tool {
	return types.Tool{
		Name:        StructuredOutputToolName,
		Description: "Return data that conforms to the schema.",
		Parameters:  s,
	}
}

// GenerateObject generates a structured object conforming to the given
// schema. The schema is wrapped as a synthetic tool the model is forced
// to call; the decoded arguments are validated and coerced before the
// response is returned. Access the object with Object.
func GenerateObject(ctx context.Context, model interface{}, prompt interface{}, s *schema.Schema, options ...Option) (*Response, error) {
	if err := validateObjectSchema(s); err != nil {
		return nil, err
	}

	options = append(options,
		WithTools(structuredOutputTool(s)),
		WithToolChoice(types.SpecificToolChoice(StructuredOutputToolName)),
	)

	resp, err := GenerateText(ctx, model, prompt, options...)
	if err != nil {
		return nil, err
	}
	resp.objectSchema = s

	object, err := extractObject(resp, s)
	if err != nil {
		return nil, err
	}
	resp.object = object
	return resp, nil
}

// StreamObject is the streaming variant of GenerateObject. The object
// materializes from accumulated tool-call arguments once the stream
// terminates; consume it with ObjectStream.
func StreamObject(ctx context.Context, model interface{}, prompt interface{}, s *schema.Schema, options ...Option) (*Response, error) {
	if err := validateObjectSchema(s); err != nil {
		return nil, err
	}

	options = append(options,
		WithTools(structuredOutputTool(s)),
		WithToolChoice(types.SpecificToolChoice(StructuredOutputToolName)),
	)

	resp, err := StreamText(ctx, model, prompt, options...)
	if err != nil {
		return nil, err
	}
	resp.objectSchema = s
	return resp, nil
}

func validateObjectSchema(s *schema.Schema) error {
	if s == nil {
		return &llmerrors.ValidationError{Reason: "schema is required"}
	}
	if err := s.ValidateShape(); err != nil {
		return &llmerrors.ValidationError{Reason: "invalid schema", Cause: err}
	}
	return nil
}

// extractObject locates the structured_output tool call on the response
// message, parses its arguments, and validates them against the schema.
func extractObject(resp *Response, s *schema.Schema) (map[string]interface{}, error) {
	for _, tc := range resp.ToolCalls() {
		if tc.Name != StructuredOutputToolName {
			continue
		}
		args, err := tc.Args()
		if err != nil {
			return nil, &llmerrors.ProtocolError{Reason: "structured output arguments are not valid JSON", Cause: err}
		}
		coerced, err := s.Coerce(args)
		if err != nil {
			return nil, toSchemaValidationError(err)
		}
		return coerced, nil
	}
	return nil, &llmerrors.SchemaValidationError{
		Messages: []string{"model returned no structured_output tool call"},
	}
}

func toSchemaValidationError(err error) error {
	if verr, ok := err.(*schema.ValidationError); ok {
		out := &llmerrors.SchemaValidationError{Cause: verr}
		for _, issue := range verr.Issues {
			out.Paths = append(out.Paths, issue.Path)
			out.Messages = append(out.Messages, issue.Message)
		}
		return out
	}
	return err
}

// Object returns the validated structured object of a GenerateObject
// response, or nil for other responses.
func (r *Response) Object() map[string]interface{} {
	return r.object
}

// ObjectStream is a lazy sequence of progressively materialized objects
// from a StreamObject response. The minimum conformant behavior is a
// single element: the final object parsed after terminal accumulation.
type ObjectStream struct {
	resp *Response
	done bool
}

// ObjectStream returns the object sequence for a StreamObject response.
func (r *Response) ObjectStream() *ObjectStream {
	return &ObjectStream{resp: r}
}

// Next returns the next materialized object, or io.EOF when the sequence
// is exhausted.
func (o *ObjectStream) Next() (map[string]interface{}, error) {
	if o.done {
		return nil, io.EOF
	}
	o.done = true

	if o.resp.Stream != nil {
		// Drain to terminal so accumulated tool-call arguments finalize.
		for {
			if _, err := o.resp.Stream.Next(); err != nil {
				if err == io.EOF {
					break
				}
				return nil, err
			}
		}
		o.resp.Finalize()
	}

	object, err := extractObject(o.resp, o.resp.objectSchema)
	if err != nil {
		return nil, err
	}
	o.resp.object = object
	return object, nil
}

// Collect drains the sequence and returns all materialized objects.
func (o *ObjectStream) Collect() ([]map[string]interface{}, error) {
	var out []map[string]interface{}
	for {
		obj, err := o.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, obj)
	}
}
