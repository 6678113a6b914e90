package infra

import (
	"encoding/json"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf16"

	"contact-gateway/contact/domain"

	"github.com/go-playground/validator/v10"
)

var personNameRegex = regexp.MustCompile(`^[a-zA-Z\s-]+$`)

type contactForm struct {
	Name    string `json:"name" validate:"required,maxutf16=100,personname"`
	Email   string `json:"email" validate:"required,email,maxutf16=254"`
	Message string `json:"message" validate:"required,maxutf16=1000"`
}

// mensagens por campo/tag; as mesmas que o formulário mostra
var fieldMessages = map[string]map[string]string{
	"name": {
		"required":   "Name is required",
		"maxutf16":   "Name must be less than 100 characters",
		"personname": "Name can only contain letters, spaces, and hyphens",
	},
	"email": {
		"required": "Valid email is required",
		"email":    "Valid email is required",
		"maxutf16": "Email must be less than 254 characters",
	},
	"message": {
		"required": "Message is required",
		"maxutf16": "Message must be less than 1000 characters",
	},
}

// SchemaValidator valida o corpo JSON do formulário de contato.
// Seguro para uso concorrente.
type SchemaValidator struct {
	validate *validator.Validate
}

func NewSchemaValidator() *SchemaValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	// erros reportam o nome JSON do campo
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("personname", func(fl validator.FieldLevel) bool {
		return personNameRegex.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("maxutf16", func(fl validator.FieldLevel) bool {
		limit, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return utf16Len(fl.Field().String()) <= limit
	})
	return &SchemaValidator{validate: v}
}

// utf16Len conta unidades UTF-16, como o limite do formulário no navegador:
// emoji fora do BMP valem 2.
func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		if utf16.RuneLen(r) == 2 {
			n += 2
		} else {
			n++
		}
	}
	return n
}

// Validate implementa domain.Validator. Todos os campos inválidos são
// reportados, na ordem name, email, message.
func (sv *SchemaValidator) Validate(raw []byte) (domain.Submission, []domain.FieldError) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return domain.Submission{}, []domain.FieldError{{Field: "body", Message: "Invalid JSON body"}}
	}

	var (
		form     contactForm
		errs     []domain.FieldError
		badTypes = map[string]bool{}
	)
	for field, dst := range map[string]*string{"name": &form.Name, "email": &form.Email, "message": &form.Message} {
		v, ok := obj[field]
		if !ok || string(v) == "null" {
			continue
		}
		if err := json.Unmarshal(v, dst); err != nil {
			badTypes[field] = true
		}
	}

	verrs := map[string]string{}
	if err := sv.validate.Struct(form); err != nil {
		if ves, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range ves {
				verrs[fe.Field()] = messageFor(fe.Field(), fe.Tag())
			}
		} else {
			return domain.Submission{}, []domain.FieldError{{Field: "body", Message: err.Error()}}
		}
	}

	for _, field := range []string{"name", "email", "message"} {
		switch {
		case badTypes[field]:
			errs = append(errs, domain.FieldError{Field: field, Message: "Expected string"})
		case verrs[field] != "":
			errs = append(errs, domain.FieldError{Field: field, Message: verrs[field]})
		}
	}
	if len(errs) > 0 {
		return domain.Submission{}, errs
	}
	return domain.Submission{Name: form.Name, Email: form.Email, Message: form.Message}, nil
}

func messageFor(field, tag string) string {
	if msg, ok := fieldMessages[field][tag]; ok {
		return msg
	}
	return "Invalid value"
}
