package validator

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/ageborn-dev/vapi-mcp-server/catalog"
)

func createCallOp() *catalog.Operation {
	return &catalog.Operation{
		Name:   "vapi_create_call",
		Method: "POST",
		Path:   "/call",
		Body:   catalog.BodyFields,
		Fields: []catalog.Field{
			{Name: "assistantId", Type: catalog.TypeString, Required: true},
			{Name: "phoneNumberId", Type: catalog.TypeString},
			{Name: "customer", Type: catalog.TypeObject},
		},
	}
}

func getCallOp() *catalog.Operation {
	return &catalog.Operation{
		Name:   "vapi_get_call",
		Method: "GET",
		Path:   "/call/{id}",
		Body:   catalog.BodyNone,
		Fields: []catalog.Field{{Name: "id", Type: catalog.TypeString, Required: true}},
	}
}

func mustDecode(t *testing.T, raw string) Arguments {
	t.Helper()
	args, err := Decode("test", json.RawMessage(raw))
	if err != nil {
		t.Fatalf("Decode(%s) error = %v", raw, err)
	}
	return args
}

func fieldsOf(t *testing.T, err error) []string {
	t.Helper()
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
	return vErr.FieldNames()
}

func TestDecodeEmptyAndNull(t *testing.T) {
	for _, raw := range []string{"", "  ", "null", "{}"} {
		args := mustDecode(t, raw)
		if len(args) != 0 {
			t.Fatalf("Decode(%q) = %v, want empty", raw, args)
		}
	}
}

func TestDecodeRejectsNonObject(t *testing.T) {
	for _, raw := range []string{`[]`, `"x"`, `42`, `{bad`} {
		_, err := Decode("vapi_get_call", json.RawMessage(raw))
		if got := fieldsOf(t, err); !reflect.DeepEqual(got, []string{ArgumentsField}) {
			t.Fatalf("Decode(%s) fields = %v, want [arguments]", raw, got)
		}
	}
}

func TestValidateArgumentsValid(t *testing.T) {
	tests := []string{
		`{"assistantId":"a1"}`,
		`{"assistantId":"a1","phoneNumberId":"p1"}`,
		`{"assistantId":"a1","customer":{"number":"+15550100","nested":{"x":[1,2]}}}`,
		`{"assistantId":"a1","customer":null}`,
	}
	for _, raw := range tests {
		if err := ValidateArguments(createCallOp(), mustDecode(t, raw)); err != nil {
			t.Fatalf("ValidateArguments(%s) error = %v", raw, err)
		}
	}
}

func TestValidateArgumentsMissingRequired(t *testing.T) {
	err := ValidateArguments(getCallOp(), mustDecode(t, `{}`))
	if got := fieldsOf(t, err); !reflect.DeepEqual(got, []string{"id"}) {
		t.Fatalf("fields = %v, want [id]", got)
	}
	if want := "invalid arguments for vapi_get_call: id: required"; err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestValidateArgumentsNullRequired(t *testing.T) {
	err := ValidateArguments(getCallOp(), mustDecode(t, `{"id":null}`))
	if got := fieldsOf(t, err); !reflect.DeepEqual(got, []string{"id"}) {
		t.Fatalf("fields = %v, want [id]", got)
	}
}

func TestValidateArgumentsEmptyPathParam(t *testing.T) {
	err := ValidateArguments(getCallOp(), mustDecode(t, `{"id":"  "}`))
	if err == nil || !strings.Contains(err.Error(), "must not be empty") {
		t.Fatalf("error = %v, want empty path parameter rejection", err)
	}
}

func TestValidateArgumentsWrongTypes(t *testing.T) {
	tests := []struct {
		raw    string
		fields []string
		reason string
	}{
		{`{"assistantId":42}`, []string{"assistantId"}, "must be a string, got number"},
		{`{"assistantId":"a1","customer":"bob"}`, []string{"customer"}, "must be an object, got string"},
		{`{"assistantId":true,"customer":[]}`, []string{"assistantId", "customer"}, "got boolean"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			err := ValidateArguments(createCallOp(), mustDecode(t, tt.raw))
			if got := fieldsOf(t, err); !reflect.DeepEqual(got, tt.fields) {
				t.Fatalf("fields = %v, want %v", got, tt.fields)
			}
			if !strings.Contains(err.Error(), tt.reason) {
				t.Fatalf("Error() = %q, want substring %q", err.Error(), tt.reason)
			}
		})
	}
}

func TestValidateArgumentsUnknownFields(t *testing.T) {
	err := ValidateArguments(createCallOp(), mustDecode(t, `{"zeta":1,"assistantId":"a1","alpha":2}`))
	if got, want := fieldsOf(t, err), []string{"alpha", "zeta"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("fields = %v, want %v", got, want)
	}
}

func TestValidateArgumentsReportsAll(t *testing.T) {
	err := ValidateArguments(createCallOp(), mustDecode(t, `{"customer":1,"extra":true}`))
	if got, want := fieldsOf(t, err), []string{"assistantId", "customer", "extra"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("fields = %v, want %v", got, want)
	}
}

func TestArgumentsString(t *testing.T) {
	args := mustDecode(t, `{"id":"c1","n":3}`)
	if got := args.String("id"); got != "c1" {
		t.Fatalf("String(id) = %q, want c1", got)
	}
	if got := args.String("n"); got != "" {
		t.Fatalf("String(n) = %q, want empty", got)
	}
	if got := args.String("missing"); got != "" {
		t.Fatalf("String(missing) = %q, want empty", got)
	}
}

func createSquadOp() *catalog.Operation {
	return &catalog.Operation{
		Name:   "vapi_create_squad",
		Method: "POST",
		Path:   "/squad",
		Body:   catalog.BodyFields,
		Fields: []catalog.Field{
			{Name: "name", Type: catalog.TypeString},
			{Name: "members", Type: catalog.TypeArray, Required: true},
		},
	}
}

func TestValidateArgumentsArrayElements(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		fields []string
		reason string
	}{
		{"objects", `{"members":[{"assistantId":"a1"},{}]}`, nil, ""},
		{"empty", `{"members":[]}`, nil, ""},
		{"number", `{"members":[{"assistantId":"a1"},7]}`, []string{"members[1]"}, "members[1]: must be an object, got number"},
		{"mixed", `{"members":[1,"x",null]}`, []string{"members[0]", "members[1]", "members[2]"}, "members[2]: must be an object, got null"},
		{"nested array", `{"members":[[{}]]}`, []string{"members[0]"}, "must be an object, got array"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateArguments(createSquadOp(), mustDecode(t, tt.raw))
			if tt.fields == nil {
				if err != nil {
					t.Fatalf("ValidateArguments(%s) error = %v", tt.raw, err)
				}
				return
			}
			if got := fieldsOf(t, err); !reflect.DeepEqual(got, tt.fields) {
				t.Fatalf("fields = %v, want %v", got, tt.fields)
			}
			if !strings.Contains(err.Error(), tt.reason) {
				t.Fatalf("Error() = %q, want substring %q", err.Error(), tt.reason)
			}
		})
	}
}
