// Package validator checks tool arguments against their operation descriptor.
package validator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/ageborn-dev/vapi-mcp-server/catalog"
)

// ArgumentsField names the whole argument object in a FieldError.
const ArgumentsField = "arguments"

type FieldError struct {
	Field  string
	Reason string
}

type ValidationError struct {
	Tool   string
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Reason)
	}
	return fmt.Sprintf("invalid arguments for %s: %s", e.Tool, strings.Join(parts, "; "))
}

// FieldNames lists the offending fields in report order.
func (e *ValidationError) FieldNames() []string {
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, f.Field)
	}
	return names
}

// Arguments is a decoded argument object. Values stay raw so free-form
// payloads are forwarded byte for byte.
type Arguments map[string]json.RawMessage

// Decode parses raw into Arguments. Empty input and null are an empty object.
func Decode(tool string, raw json.RawMessage) (Arguments, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Arguments{}, nil
	}
	if trimmed[0] != '{' {
		return nil, &ValidationError{Tool: tool, Fields: []FieldError{{Field: ArgumentsField, Reason: "must be an object"}}}
	}
	var args Arguments
	if err := json.Unmarshal(trimmed, &args); err != nil {
		return nil, &ValidationError{Tool: tool, Fields: []FieldError{{Field: ArgumentsField, Reason: "invalid JSON: " + err.Error()}}}
	}
	if args == nil {
		args = Arguments{}
	}
	return args, nil
}

// ValidateArguments checks every declared field of op against args and
// rejects undeclared ones. Null counts as absent. All problems are reported
// together, declared fields first in catalog order.
func ValidateArguments(op *catalog.Operation, args Arguments) error {
	var problems []FieldError

	for _, f := range op.Fields {
		raw, present := args[f.Name]
		if !present || isNull(raw) {
			if f.Required {
				problems = append(problems, FieldError{Field: f.Name, Reason: "required"})
			}
			continue
		}
		if got := jsonKind(raw); got != f.Type {
			problems = append(problems, FieldError{Field: f.Name, Reason: fmt.Sprintf("must be %s, got %s", article(f.Type), got)})
			continue
		}
		if f.Type == catalog.TypeArray {
			problems = append(problems, arrayElementProblems(f.Name, raw)...)
			continue
		}
		if f.Type == catalog.TypeString && op.IsPathParam(f.Name) {
			var s string
			if err := json.Unmarshal(raw, &s); err == nil && strings.TrimSpace(s) == "" {
				problems = append(problems, FieldError{Field: f.Name, Reason: "must not be empty"})
			}
		}
	}

	var unknown []string
	for name := range args {
		if op.GetField(name) == nil {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	for _, name := range unknown {
		problems = append(problems, FieldError{Field: name, Reason: "unknown field"})
	}

	if len(problems) > 0 {
		return &ValidationError{Tool: op.Name, Fields: problems}
	}
	return nil
}

// String returns the string value of name, or "" when absent or not a string.
func (a Arguments) String(name string) string {
	raw, ok := a[name]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// arrayElementProblems reports every element of an array field that is not
// an object.
func arrayElementProblems(name string, raw json.RawMessage) []FieldError {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return []FieldError{{Field: name, Reason: fmt.Sprintf("must be an array: %v", err)}}
	}
	var problems []FieldError
	for i, elem := range elems {
		if got := jsonKind(elem); got != catalog.TypeObject {
			problems = append(problems, FieldError{
				Field:  fmt.Sprintf("%s[%d]", name, i),
				Reason: fmt.Sprintf("must be an object, got %s", got),
			})
		}
	}
	return problems
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// jsonKind names the JSON type of raw using the catalog's type vocabulary.
func jsonKind(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "nothing"
	}
	switch trimmed[0] {
	case '"':
		return catalog.TypeString
	case '{':
		return catalog.TypeObject
	case '[':
		return catalog.TypeArray
	case 't', 'f':
		return "boolean"
	case 'n':
		return "null"
	default:
		return "number"
	}
}

func article(kind string) string {
	switch kind {
	case catalog.TypeObject, catalog.TypeArray:
		return "an " + kind
	default:
		return "a " + kind
	}
}
