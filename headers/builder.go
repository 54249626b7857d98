package headers

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/net/http/httpguts"
)

var (
	ErrInvalidName  = errors.New("invalid header field name")
	ErrInvalidValue = errors.New("invalid header field value")
)

// Field is a single outgoing header.
type Field struct {
	Name  string
	Value string
}

// Fields is the immutable header set produced by Builder.Build.
type Fields []Field

// Get returns the value of the named field, matched case-insensitively.
func (f Fields) Get(name string) string {
	for _, fld := range f {
		if strings.EqualFold(fld.Name, name) {
			return fld.Value
		}
	}
	return ""
}

// Has reports whether the named field is present.
func (f Fields) Has(name string) bool {
	return slices.ContainsFunc(f, func(fld Field) bool {
		return strings.EqualFold(fld.Name, name)
	})
}

// Builder accumulates request headers across the injection steps of an
// exchange without touching the caller's map. Names keep the caller's
// casing but are matched case-insensitively.
type Builder struct {
	fields []Field
}

// NewBuilder seeds a Builder from src. Keys are taken in sorted order so
// the resulting header order is stable. Empty values are treated as unset
// and dropped.
func NewBuilder(src map[string]string) *Builder {
	b := &Builder{fields: make([]Field, 0, len(src))}

	names := make([]string, 0, len(src))
	for k := range src {
		names = append(names, k)
	}
	slices.Sort(names)

	for _, name := range names {
		if src[name] == "" {
			continue
		}
		b.Set(name, src[name])
	}

	return b
}

// Set replaces any existing field with the same name, or appends a new one.
func (b *Builder) Set(name, value string) {
	for i := range b.fields {
		if strings.EqualFold(b.fields[i].Name, name) {
			b.fields[i].Value = value
			return
		}
	}
	b.fields = append(b.fields, Field{Name: name, Value: value})
}

// Get returns the current value for name.
func (b *Builder) Get(name string) string {
	return Fields(b.fields).Get(name)
}

// Del removes the named field.
func (b *Builder) Del(name string) {
	b.fields = slices.DeleteFunc(b.fields, func(f Field) bool {
		return strings.EqualFold(f.Name, name)
	})
}

// Keys returns the current field names. It lets a Builder act as an
// otel propagation.TextMapCarrier.
func (b *Builder) Keys() []string {
	keys := make([]string, len(b.fields))
	for i, f := range b.fields {
		keys[i] = f.Name
	}
	return keys
}

// Build validates every field and returns a copy of the header set.
// Values are not echoed in errors since they may carry credentials.
func (b *Builder) Build() (Fields, error) {
	for _, f := range b.fields {
		if !httpguts.ValidHeaderFieldName(f.Name) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidName, f.Name)
		}
		if !httpguts.ValidHeaderFieldValue(f.Value) {
			return nil, fmt.Errorf("%w for %q", ErrInvalidValue, f.Name)
		}
	}

	return slices.Clone(Fields(b.fields)), nil
}
