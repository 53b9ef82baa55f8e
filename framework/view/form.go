package view

import (
	"strings"
)

// Form gives templates access to submitted values and per-field errors.
//
//	form := view.NewForm(map[string]any{"email": "a@b.c"}, map[string]string{"email": "taken"})
//	{{ .form.Get "email" }} {{ if .form.HasError "email" }}{{ .form.Error "email" }}{{ end }}
type Form struct {
	data   map[string]any
	errors map[string]string
}

// NewForm creates a Form. Field names are matched case-insensitively.
func NewForm(data map[string]any, errors map[string]string) *Form {
	f := &Form{
		data:   make(map[string]any, len(data)),
		errors: make(map[string]string, len(errors)),
	}
	for k, v := range data {
		f.data[strings.ToLower(k)] = v
	}
	for k, v := range errors {
		f.errors[strings.ToLower(k)] = v
	}
	return f
}

// Get returns the submitted value of name, or nil.
func (f *Form) Get(name string) any {
	return f.data[strings.ToLower(name)]
}

// Error returns the error message of name, or "".
func (f *Form) Error(name string) string {
	return f.errors[strings.ToLower(name)]
}

// HasError returns true if name has an error message.
func (f *Form) HasError(name string) bool {
	return f.Error(name) != ""
}

// Valid returns true if no field has an error.
func (f *Form) Valid() bool {
	return len(f.errors) == 0
}
