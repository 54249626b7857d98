package transport

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"
	"reflect"
	"strings"
)

// FormData is a multipart/form-data body. The boundary and Content-Type
// are chosen by the transport when the body is sent.
type FormData struct {
	parts []formPart
}

type formPart struct {
	name     string
	value    string
	filename string
	content  io.Reader
}

// NewFormData returns an empty FormData.
func NewFormData() *FormData {
	return &FormData{}
}

// Append adds a plain field.
func (f *FormData) Append(name, value string) *FormData {
	f.parts = append(f.parts, formPart{name: name, value: value})
	return f
}

// AppendFile adds a file part read from content when the body is sent.
func (f *FormData) AppendFile(name, filename string, content io.Reader) *FormData {
	f.parts = append(f.parts, formPart{name: name, filename: filename, content: content})
	return f
}

// Len returns the number of parts.
func (f *FormData) Len() int { return len(f.parts) }

// IsFormData reports whether body is sent as multipart/form-data.
func IsFormData(body any) bool {
	_, ok := body.(*FormData)
	return ok
}

func (f *FormData) encode() (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, p := range f.parts {
		if p.content == nil {
			if err := w.WriteField(p.name, p.value); err != nil {
				return nil, "", fmt.Errorf("writing field %q: %w", p.name, err)
			}
			continue
		}

		fw, err := w.CreateFormFile(p.name, p.filename)
		if err != nil {
			return nil, "", fmt.Errorf("creating file part %q: %w", p.name, err)
		}
		if _, err := io.Copy(fw, p.content); err != nil {
			return nil, "", fmt.Errorf("copying file part %q: %w", p.name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart writer: %w", err)
	}

	return &buf, w.FormDataContentType(), nil
}

// payload is an encoded request body. length is -1 when unknown.
type payload struct {
	r           io.Reader
	contentType string
	length      int64
}

// IsEmptyBody reports whether body sends no bytes: nil, a zero-length
// string or []byte, or a nil *FormData or reader.
func IsEmptyBody(body any) bool {
	switch b := body.(type) {
	case nil:
		return true
	case string:
		return b == ""
	case []byte:
		return len(b) == 0
	case *FormData:
		return b == nil
	case io.Reader:
		return isNil(b)
	default:
		return false
	}
}

func isNil(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}

func encodeBody(body any) (payload, error) {
	if IsEmptyBody(body) {
		return payload{}, nil
	}

	switch b := body.(type) {
	case string:
		return payload{r: strings.NewReader(b), contentType: "text/plain;charset=UTF-8", length: int64(len(b))}, nil
	case []byte:
		return payload{r: bytes.NewReader(b), length: int64(len(b))}, nil
	case url.Values:
		enc := b.Encode()
		return payload{r: strings.NewReader(enc), contentType: "application/x-www-form-urlencoded;charset=UTF-8", length: int64(len(enc))}, nil
	case *FormData:
		buf, ct, err := b.encode()
		if err != nil {
			return payload{}, fmt.Errorf("encoding form data: %w", err)
		}
		return payload{r: buf, contentType: ct, length: int64(buf.Len())}, nil
	case io.Reader:
		return payload{r: b, length: -1}, nil
	default:
		return payload{}, fmt.Errorf("%w: %T", ErrUnsupportedBody, body)
	}
}
