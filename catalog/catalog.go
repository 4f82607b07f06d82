// Package catalog loads the embedded YAML operation catalog that maps tool
// names onto Vapi REST endpoints.
package catalog

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed operations/*.yaml
var operationsFS embed.FS

// Field types accepted in a descriptor.
const (
	TypeString = "string"
	TypeObject = "object"
	TypeArray  = "array"
)

// BodyMode selects how validated arguments become the request body.
type BodyMode string

const (
	// BodyNone sends no body; arguments only fill path parameters.
	BodyNone BodyMode = "none"
	// BodyFields sends every non-path argument as a JSON object.
	BodyFields BodyMode = "fields"
	// BodyData sends the "data" argument itself as the body.
	BodyData BodyMode = "data"
)

// DataField is the argument unwrapped into the body in BodyData mode.
const DataField = "data"

var pathParamPattern = regexp.MustCompile(`\{([A-Za-z][A-Za-z0-9_]*)\}`)

type CatalogError struct {
	Message string
}

func (e *CatalogError) Error() string {
	return e.Message
}

type Field struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Required    bool   `yaml:"required"`
	Description string `yaml:"description"`
}

// Operation describes one tool and the endpoint it calls.
type Operation struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Method      string   `yaml:"method"`
	Path        string   `yaml:"path"`
	Body        BodyMode `yaml:"body"`
	Fields      []Field  `yaml:"fields"`
}

type catalogFile struct {
	Resource   string       `yaml:"resource"`
	Operations []*Operation `yaml:"operations"`
}

func (o *Operation) GetField(name string) *Field {
	for i := range o.Fields {
		if o.Fields[i].Name == name {
			return &o.Fields[i]
		}
	}
	return nil
}

// PathParams returns the {param} names in the path template, in order.
func (o *Operation) PathParams() []string {
	matches := pathParamPattern.FindAllStringSubmatch(o.Path, -1)
	params := make([]string, 0, len(matches))
	for _, m := range matches {
		params = append(params, m[1])
	}
	return params
}

// IsPathParam reports whether name is substituted into the path.
func (o *Operation) IsPathParam(name string) bool {
	return slices.Contains(o.PathParams(), name)
}

// ResolvePath substitutes path parameters from values, escaping each one.
func (o *Operation) ResolvePath(values map[string]string) (string, error) {
	var missing []string
	resolved := pathParamPattern.ReplaceAllStringFunc(o.Path, func(m string) string {
		name := m[1 : len(m)-1]
		v, ok := values[name]
		if !ok || v == "" {
			missing = append(missing, name)
			return m
		}
		return url.PathEscape(v)
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("operation %s: missing path parameter(s): %s", o.Name, strings.Join(missing, ", "))
	}
	return resolved, nil
}

func (o *Operation) ReadOnly() bool {
	return o.Method == http.MethodGet
}

func (o *Operation) Destructive() bool {
	return o.Method == http.MethodDelete
}

// InputSchema builds the JSON Schema advertised for the tool's arguments.
func (o *Operation) InputSchema() *jsonschema.Schema {
	schema := &jsonschema.Schema{
		Type:                 "object",
		Properties:           make(map[string]*jsonschema.Schema, len(o.Fields)),
		AdditionalProperties: &jsonschema.Schema{Not: &jsonschema.Schema{}},
	}
	for _, f := range o.Fields {
		prop := &jsonschema.Schema{Type: f.Type, Description: f.Description}
		if f.Type == TypeArray {
			prop.Items = &jsonschema.Schema{Type: TypeObject}
		}
		schema.Properties[f.Name] = prop
		if f.Required {
			schema.Required = append(schema.Required, f.Name)
		}
	}
	return schema
}

func LoadEmbedded() (map[string]*Operation, error) {
	return loadFromFS(operationsFS, "operations")
}

// LoadDir loads every catalog file under dir, including subdirectories.
func LoadDir(dir string) (map[string]*Operation, error) {
	registry, err := loadFromFS(os.DirFS(dir), ".")
	if err != nil {
		return nil, fmt.Errorf("walk catalog directory %s: %w", dir, err)
	}
	return registry, nil
}

// Merge returns base with overlay applied; overlay wins on name collisions.
func Merge(base, overlay map[string]*Operation) map[string]*Operation {
	merged := make(map[string]*Operation, len(base)+len(overlay))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range overlay {
		merged[k] = v
	}
	return merged
}

// Names returns the registry keys in sorted order.
func Names(registry map[string]*Operation) []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// loadFromFS walks root within fsys, loading every catalog file into one
// registry. Skips directories, non-.yaml files, and files prefixed with "_".
func loadFromFS(fsys fs.FS, root string) (map[string]*Operation, error) {
	registry := make(map[string]*Operation)

	err := fs.WalkDir(fsys, root, func(filePath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if path.Ext(filePath) != ".yaml" {
			return nil
		}
		if strings.HasPrefix(path.Base(filePath), "_") {
			return nil
		}

		b, readErr := fs.ReadFile(fsys, filePath)
		if readErr != nil {
			return fmt.Errorf("read catalog %s: %w", filePath, readErr)
		}

		ops, parseErr := parseFile(b, filePath)
		if parseErr != nil {
			return parseErr
		}
		for _, op := range ops {
			if _, dup := registry[op.Name]; dup {
				return &CatalogError{Message: fmt.Sprintf("catalog %s: duplicate operation %q", filePath, op.Name)}
			}
			registry[op.Name] = op
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return registry, nil
}

func parseFile(b []byte, filePath string) ([]*Operation, error) {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	var file catalogFile
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, &CatalogError{Message: fmt.Sprintf("invalid YAML in %s: %v", filePath, err)}
	}

	for _, op := range file.Operations {
		if op == nil {
			return nil, &CatalogError{Message: fmt.Sprintf("catalog %s: empty operation entry", filePath)}
		}
		if op.Body == "" {
			op.Body = BodyNone
		}
		if err := Validate(op); err != nil {
			return nil, &CatalogError{Message: fmt.Sprintf("catalog %s: %v", filePath, err)}
		}
	}
	return file.Operations, nil
}

// Validate checks that op is well formed.
func Validate(op *Operation) error {
	if op.Name == "" {
		return errors.New("operation missing 'name'")
	}
	switch op.Method {
	case http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete:
	default:
		return fmt.Errorf("operation %s: unsupported method %q", op.Name, op.Method)
	}
	if !strings.HasPrefix(op.Path, "/") {
		return fmt.Errorf("operation %s: path %q must start with /", op.Name, op.Path)
	}

	seen := make(map[string]bool, len(op.Fields))
	for _, f := range op.Fields {
		if f.Name == "" {
			return fmt.Errorf("operation %s: field missing 'name'", op.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("operation %s: duplicate field %q", op.Name, f.Name)
		}
		seen[f.Name] = true
		switch f.Type {
		case TypeString, TypeObject, TypeArray:
		default:
			return fmt.Errorf("operation %s: field %s has unsupported type %q", op.Name, f.Name, f.Type)
		}
	}

	for _, p := range op.PathParams() {
		f := op.GetField(p)
		if f == nil || !f.Required || f.Type != TypeString {
			return fmt.Errorf("operation %s: path parameter %q must be a required string field", op.Name, p)
		}
	}

	switch op.Body {
	case BodyNone:
	case BodyFields:
		if op.Method == http.MethodGet || op.Method == http.MethodDelete {
			return fmt.Errorf("operation %s: %s cannot carry a body", op.Name, op.Method)
		}
	case BodyData:
		if op.Method == http.MethodGet || op.Method == http.MethodDelete {
			return fmt.Errorf("operation %s: %s cannot carry a body", op.Name, op.Method)
		}
		f := op.GetField(DataField)
		if f == nil || !f.Required || f.Type != TypeObject {
			return fmt.Errorf("operation %s: body mode data needs a required object field %q", op.Name, DataField)
		}
	default:
		return fmt.Errorf("operation %s: unsupported body mode %q", op.Name, op.Body)
	}
	return nil
}
