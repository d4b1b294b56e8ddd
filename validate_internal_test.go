package polyquery

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/polyquery/polyquery/schema"
)

func usersCollection() *schema.Collection {
	return &schema.Collection{
		Name: "users",
		Fields: []*schema.Field{
			schema.String("name").Required(),
			schema.Number("age"),
			schema.Enum("status", "active", "banned"),
		},
	}
}

func TestValidateFilterFields_UnknownField(t *testing.T) {
	c := usersCollection()
	failures := validateFilterFields(Filter{"nickname": "bob"}, c)
	assert.Len(t, failures, 1)
	assert.Equal(t, "nickname", failures[0].Field)
}

func TestValidateFilterFields_OperatorKeysIgnored(t *testing.T) {
	c := usersCollection()
	failures := validateFilterFields(Filter{"age": OpBag{OpGTE: 18}}, c)
	assert.Empty(t, failures)
}

func TestValidateFilterFields_RecursesLogicalKeys(t *testing.T) {
	c := usersCollection()
	f := Filter{KeyAnd: []Filter{
		{"name": "bob"},
		{KeyOr: []Filter{{"bogus": 1}}},
	}}
	failures := validateFilterFields(f, c)
	assert.Len(t, failures, 1)
	assert.Equal(t, "bogus", failures[0].Field)
}

func TestValidateDocument_MissingRequiredField(t *testing.T) {
	c := usersCollection()
	failures := validateDocument(map[string]any{"age": 30}, c)
	assert.Len(t, failures, 1)
	assert.Equal(t, "name", failures[0].Field)
	assert.Equal(t, "missing", failures[0].Received)
}

func TestValidateDocument_TypeMismatch(t *testing.T) {
	c := usersCollection()
	failures := validateDocument(map[string]any{"name": "bob", "age": "thirty"}, c)
	assert.Len(t, failures, 1)
	assert.Equal(t, "age", failures[0].Field)
}

func TestValidateDocument_EnumValueNotAllowed(t *testing.T) {
	c := usersCollection()
	failures := validateDocument(map[string]any{"name": "bob", "status": "pending"}, c)
	assert.Len(t, failures, 1)
	assert.Equal(t, "status", failures[0].Field)
}

func TestValidateDocument_UndeclaredFieldsIgnored(t *testing.T) {
	c := usersCollection()
	failures := validateDocument(map[string]any{"name": "bob", "extra": "whatever"}, c)
	assert.Empty(t, failures)
}

func TestValidateDocument_Valid(t *testing.T) {
	c := usersCollection()
	failures := validateDocument(map[string]any{"name": "bob", "age": 30, "status": "active"}, c)
	assert.Empty(t, failures)
}

func TestValidationResult_Valid(t *testing.T) {
	assert.True(t, ValidationResult{}.Valid())
	assert.False(t, ValidationResult{Failures: []ValidationFailure{{Field: "x"}}}.Valid())
}

func TestRouter_Validate_NoRegisteredSchema(t *testing.T) {
	r := &Router{registry: schema.NewRegistry()}
	result := r.Validate("ghosts", Filter{}, nil)
	assert.False(t, result.Valid())
	assert.Len(t, result.Failures, 1)
}

func TestRouter_Validate_FilterAndDocumentTogether(t *testing.T) {
	reg := schema.NewRegistry()
	reg.Register(usersCollection())
	r := &Router{registry: reg}

	result := r.Validate("users", Filter{"bogus": 1}, map[string]any{"age": "not a number"})
	assert.False(t, result.Valid())

	var fields []string
	for _, f := range result.Failures {
		fields = append(fields, f.Field)
	}
	assert.Contains(t, fields, "bogus")
	assert.Contains(t, fields, "name") // required, missing from the document
	assert.Contains(t, fields, "age")  // wrong type
}
