package infra

import (
	"strings"
	"testing"

	"contact-gateway/contact/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldsOf(errs []domain.FieldError) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Field)
	}
	return out
}

func TestSchemaValidator_AcceptsValidSubmission(t *testing.T) {
	v := NewSchemaValidator()

	sub, errs := v.Validate([]byte(`{"name":"Mary-Jane Watson","email":"mj@example.com","message":"Hello there"}`))
	require.Empty(t, errs)
	assert.Equal(t, domain.Submission{Name: "Mary-Jane Watson", Email: "mj@example.com", Message: "Hello there"}, sub)
}

func TestSchemaValidator_NameCharacters(t *testing.T) {
	v := NewSchemaValidator()
	for _, name := range []string{"Jane2", "O'Brien", "José", "Jane_Doe", "<b>x</b>"} {
		body := `{"name":"` + name + `","email":"a@example.com","message":"hi"}`
		_, errs := v.Validate([]byte(body))
		assert.Equal(t, []string{"name"}, fieldsOf(errs), "name %q", name)
	}
}

func TestSchemaValidator_NameErrorRegardlessOfOtherFields(t *testing.T) {
	v := NewSchemaValidator()

	_, errs := v.Validate([]byte(`{"name":"x1","email":"bad","message":""}`))
	assert.Contains(t, fieldsOf(errs), "name")
}

func TestSchemaValidator_Lengths(t *testing.T) {
	v := NewSchemaValidator()

	cases := []struct {
		desc  string
		body  string
		field string
	}{
		{"empty message", `{"name":"Jane","email":"a@example.com","message":""}`, "message"},
		{"message 1001", `{"name":"Jane","email":"a@example.com","message":"` + strings.Repeat("a", 1001) + `"}`, "message"},
		{"name 101", `{"name":"` + strings.Repeat("a", 101) + `","email":"a@example.com","message":"hi"}`, "name"},
		{"empty name", `{"name":"","email":"a@example.com","message":"hi"}`, "name"},
		{"email 255", `{"name":"Jane","email":"` + strings.Repeat("a", 64) + "@" + strings.Repeat("b", 186) + `.com","message":"hi"}`, "email"},
	}
	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			_, errs := v.Validate([]byte(tc.body))
			assert.Equal(t, []string{tc.field}, fieldsOf(errs))
		})
	}
}

func TestSchemaValidator_BoundariesPass(t *testing.T) {
	v := NewSchemaValidator()
	body := `{"name":"` + strings.Repeat("a", 100) + `","email":"a@example.com","message":"` + strings.Repeat("m", 1000) + `"}`

	_, errs := v.Validate([]byte(body))
	assert.Empty(t, errs)
}

func TestSchemaValidator_LengthCountsUTF16Units(t *testing.T) {
	v := NewSchemaValidator()

	// 😀 ocupa 2 unidades UTF-16: 500 cabem, 501 não
	ok := `{"name":"Jane","email":"a@example.com","message":"` + strings.Repeat("😀", 500) + `"}`
	_, errs := v.Validate([]byte(ok))
	assert.Empty(t, errs)

	tooLong := `{"name":"Jane","email":"a@example.com","message":"` + strings.Repeat("😀", 501) + `"}`
	_, errs = v.Validate([]byte(tooLong))
	assert.Equal(t, []domain.FieldError{{Field: "message", Message: "Message must be less than 1000 characters"}}, errs)

	// acentos do BMP contam 1
	accents := `{"name":"Jane","email":"a@example.com","message":"` + strings.Repeat("é", 1000) + `"}`
	_, errs = v.Validate([]byte(accents))
	assert.Empty(t, errs)
}

func TestUTF16Len(t *testing.T) {
	assert.Equal(t, 0, utf16Len(""))
	assert.Equal(t, 3, utf16Len("abc"))
	assert.Equal(t, 2, utf16Len("😀"))
	assert.Equal(t, 4, utf16Len("é😀a"))
}

func TestSchemaValidator_Messages(t *testing.T) {
	v := NewSchemaValidator()

	_, errs := v.Validate([]byte(`{}`))
	assert.Equal(t, []domain.FieldError{
		{Field: "name", Message: "Name is required"},
		{Field: "email", Message: "Valid email is required"},
		{Field: "message", Message: "Message is required"},
	}, errs)
}

func TestSchemaValidator_WrongTypes(t *testing.T) {
	v := NewSchemaValidator()

	_, errs := v.Validate([]byte(`{"name":42,"email":"a@example.com","message":["hi"]}`))
	assert.Equal(t, []domain.FieldError{
		{Field: "name", Message: "Expected string"},
		{Field: "message", Message: "Expected string"},
	}, errs)
}

func TestSchemaValidator_MalformedBody(t *testing.T) {
	v := NewSchemaValidator()
	for _, body := range []string{``, `{`, `[]`, `"str"`, `null`} {
		_, errs := v.Validate([]byte(body))
		assert.Equal(t, []string{"body"}, fieldsOf(errs), "body %q", body)
	}
}
