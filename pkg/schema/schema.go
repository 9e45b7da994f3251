// Package schema implements the declarative property-list schema used for
// tool parameters and structured output. A Schema compiles to a JSON
// Schema object for the wire, and validates decoded argument maps via
// github.com/santhosh-tekuri/jsonschema.
package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// FieldType enumerates the property types of the schema DSL.
type FieldType string

const (
	// TypeString is a JSON string
	TypeString FieldType = "string"
	// TypeInteger is a JSON integer
	TypeInteger FieldType = "integer"
	// TypePosInteger is a JSON integer strictly greater than zero
	TypePosInteger FieldType = "pos_integer"
	// TypeFloat is a JSON number with a fractional part allowed
	TypeFloat FieldType = "float"
	// TypeNumber is any JSON number
	TypeNumber FieldType = "number"
	// TypeBoolean is a JSON boolean
	TypeBoolean FieldType = "boolean"
	// TypeList is a JSON array of a homogeneous item type
	TypeList FieldType = "list"
	// TypeMap is a JSON object with arbitrary keys
	TypeMap FieldType = "map"
)

// Property describes one named field of a schema, in declaration order.
type Property struct {
	// Name of the field
	Name string `json:"name"`

	// Type of the field
	Type FieldType `json:"type"`

	// Required marks the field as mandatory
	Required bool `json:"required,omitempty"`

	// Default value applied when the field is absent
	Default interface{} `json:"default,omitempty"`

	// Doc is a human-readable description emitted into the JSON Schema
	Doc string `json:"doc,omitempty"`

	// Items is the item type for list fields
	Items *Property `json:"items,omitempty"`
}

// Schema is an ordered list of properties.
type Schema struct {
	Properties []Property `json:"properties"`
}

// New creates a Schema from the given properties, preserving order.
func New(props ...Property) *Schema {
	return &Schema{Properties: props}
}

// Str declares a string property.
func Str(name string, opts ...PropOption) Property { return prop(name, TypeString, opts) }

// Int declares an integer property.
func Int(name string, opts ...PropOption) Property { return prop(name, TypeInteger, opts) }

// PosInt declares a positive-integer property.
func PosInt(name string, opts ...PropOption) Property { return prop(name, TypePosInteger, opts) }

// Float declares a float property.
func Float(name string, opts ...PropOption) Property { return prop(name, TypeFloat, opts) }

// Number declares a number property.
func Number(name string, opts ...PropOption) Property { return prop(name, TypeNumber, opts) }

// Bool declares a boolean property.
func Bool(name string, opts ...PropOption) Property { return prop(name, TypeBoolean, opts) }

// List declares a list property with the given item type.
func List(name string, item Property, opts ...PropOption) Property {
	p := prop(name, TypeList, opts)
	p.Items = &item
	return p
}

// Map declares a free-form object property.
func Map(name string, opts ...PropOption) Property { return prop(name, TypeMap, opts) }

// Item declares an anonymous property used as a list item type.
func Item(t FieldType) Property { return Property{Type: t} }

// PropOption customizes a declared property.
type PropOption func(*Property)

// Required marks the property as mandatory.
func Required() PropOption { return func(p *Property) { p.Required = true } }

// Default sets the property default.
func Default(v interface{}) PropOption { return func(p *Property) { p.Default = v } }

// Doc sets the property description.
func Doc(doc string) PropOption { return func(p *Property) { p.Doc = doc } }

func prop(name string, t FieldType, opts []PropOption) Property {
	p := Property{Name: name, Type: t}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

var fieldNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ValidateShape checks that the schema declaration itself is well-formed:
// valid field names, known types, item types on lists.
func (s *Schema) ValidateShape() error {
	seen := map[string]bool{}
	for _, p := range s.Properties {
		if !fieldNamePattern.MatchString(p.Name) {
			return fmt.Errorf("invalid field name %q", p.Name)
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate field %q", p.Name)
		}
		seen[p.Name] = true
		if err := validatePropShape(p); err != nil {
			return err
		}
	}
	return nil
}

func validatePropShape(p Property) error {
	switch p.Type {
	case TypeString, TypeInteger, TypePosInteger, TypeFloat, TypeNumber, TypeBoolean, TypeMap:
		return nil
	case TypeList:
		if p.Items == nil {
			return fmt.Errorf("list field %q has no item type", p.Name)
		}
		return validatePropShape(*p.Items)
	default:
		return fmt.Errorf("field %q has unknown type %q", p.Name, p.Type)
	}
}

// JSONSchema renders the schema as a JSON Schema object suitable for
// vendor tool definitions.
func (s *Schema) JSONSchema() map[string]interface{} {
	properties := map[string]interface{}{}
	var required []string
	for _, p := range s.Properties {
		properties[p.Name] = propJSONSchema(p)
		if p.Required {
			required = append(required, p.Name)
		}
	}
	out := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}

func propJSONSchema(p Property) map[string]interface{} {
	out := map[string]interface{}{}
	switch p.Type {
	case TypeString:
		out["type"] = "string"
	case TypeInteger:
		out["type"] = "integer"
	case TypePosInteger:
		out["type"] = "integer"
		out["exclusiveMinimum"] = 0
	case TypeFloat, TypeNumber:
		out["type"] = "number"
	case TypeBoolean:
		out["type"] = "boolean"
	case TypeMap:
		out["type"] = "object"
	case TypeList:
		out["type"] = "array"
		if p.Items != nil {
			out["items"] = propJSONSchema(*p.Items)
		}
	}
	if p.Doc != "" {
		out["description"] = p.Doc
	}
	if p.Default != nil {
		out["default"] = p.Default
	}
	return out
}

// ValidationIssue is one offending path with its message.
type ValidationIssue struct {
	// Path to the offending value, "/"-joined from the object root
	Path string

	// Message describing the violation
	Message string
}

// ValidationError reports a failed object validation with every offending
// path collected.
type ValidationError struct {
	Issues []ValidationIssue
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "schema validation failed"
	}
	parts := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		parts[i] = fmt.Sprintf("%s: %s", issue.Path, issue.Message)
	}
	return "schema validation failed: " + strings.Join(parts, "; ")
}

// Validate checks a decoded object against the schema using the compiled
// JSON Schema. Returns *ValidationError listing all offending paths.
func (s *Schema) Validate(value map[string]interface{}) error {
	compiled, err := s.compile()
	if err != nil {
		return err
	}
	// Round-trip through JSON so the instance uses the plain decoded
	// shapes the validator expects.
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshaling instance: %w", err)
	}
	var instance interface{}
	if err := json.Unmarshal(raw, &instance); err != nil {
		return fmt.Errorf("reparsing instance: %w", err)
	}
	if err := compiled.Validate(instance); err != nil {
		var verr *jsonschema.ValidationError
		if ok := asValidationError(err, &verr); ok {
			return &ValidationError{Issues: collectIssues(verr)}
		}
		return err
	}
	return nil
}

func (s *Schema) compile() (*jsonschema.Schema, error) {
	raw, err := json.Marshal(s.JSONSchema())
	if err != nil {
		return nil, fmt.Errorf("marshaling schema: %w", err)
	}
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parsing schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", doc); err != nil {
		return nil, fmt.Errorf("adding schema resource: %w", err)
	}
	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compiling schema: %w", err)
	}
	return compiled, nil
}

func asValidationError(err error, target **jsonschema.ValidationError) bool {
	verr, ok := err.(*jsonschema.ValidationError)
	if ok {
		*target = verr
	}
	return ok
}

func collectIssues(verr *jsonschema.ValidationError) []ValidationIssue {
	var issues []ValidationIssue
	if len(verr.Causes) == 0 {
		issues = append(issues, ValidationIssue{
			Path:    "/" + strings.Join(verr.InstanceLocation, "/"),
			Message: verr.Error(),
		})
		return issues
	}
	for _, cause := range verr.Causes {
		issues = append(issues, collectIssues(cause)...)
	}
	return issues
}

// Coerce validates the object and applies the DSL coercions the JSON
// Schema cannot express: defaults for absent optional fields, float64
// integers narrowed to int64, and recursive list item coercion. Returns a
// new map; the input is not modified.
func (s *Schema) Coerce(value map[string]interface{}) (map[string]interface{}, error) {
	if err := s.Validate(value); err != nil {
		return nil, err
	}
	out := make(map[string]interface{}, len(value))
	for k, v := range value {
		out[k] = v
	}
	for _, p := range s.Properties {
		v, present := out[p.Name]
		if !present {
			if p.Default != nil {
				out[p.Name] = p.Default
			}
			continue
		}
		coerced, err := coerceValue(p, v)
		if err != nil {
			return nil, err
		}
		out[p.Name] = coerced
	}
	return out, nil
}

func coerceValue(p Property, v interface{}) (interface{}, error) {
	switch p.Type {
	case TypeInteger, TypePosInteger:
		f, ok := v.(float64)
		if !ok {
			if i, isInt := v.(int64); isInt {
				return i, nil
			}
			return v, nil
		}
		if f != math.Trunc(f) {
			return nil, &ValidationError{Issues: []ValidationIssue{{
				Path:    "/" + p.Name,
				Message: fmt.Sprintf("expected integer, got %v", f),
			}}}
		}
		return int64(f), nil
	case TypeList:
		items, ok := v.([]interface{})
		if !ok || p.Items == nil {
			return v, nil
		}
		out := make([]interface{}, len(items))
		for i, item := range items {
			coerced, err := coerceValue(*p.Items, item)
			if err != nil {
				return nil, err
			}
			out[i] = coerced
		}
		return out, nil
	default:
		return v, nil
	}
}
