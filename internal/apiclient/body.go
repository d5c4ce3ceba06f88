package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
)

// Body is a request payload. It is encoded once so the same bytes can be
// resent when a request is retried after a token refresh.
type Body interface {
	encode() (payload []byte, contentType string, err error)
}

type jsonBody struct {
	value any
}

// JSON returns a body serialized as application/json.
func JSON(v any) Body {
	return jsonBody{value: v}
}

func (b jsonBody) encode() ([]byte, string, error) {
	payload, err := json.Marshal(b.value)
	if err != nil {
		return nil, "", fmt.Errorf("encode json body: %w", err)
	}
	return payload, "application/json", nil
}

// FormData is a multipart form payload, used for file uploads. It is sent
// as-is with its own boundary content type.
type FormData struct {
	buf    bytes.Buffer
	writer *multipart.Writer
	closed bool
	err    error
}

// NewForm returns an empty multipart form.
func NewForm() *FormData {
	f := &FormData{}
	f.writer = multipart.NewWriter(&f.buf)
	return f
}

// Field adds a plain form field.
func (f *FormData) Field(name, value string) *FormData {
	if f.err != nil || f.closed {
		return f
	}
	f.err = f.writer.WriteField(name, value)
	return f
}

// File adds a file part read from r.
func (f *FormData) File(field, filename string, r io.Reader) *FormData {
	if f.err != nil || f.closed {
		return f
	}
	part, err := f.writer.CreateFormFile(field, filename)
	if err != nil {
		f.err = err
		return f
	}
	_, f.err = io.Copy(part, r)
	return f
}

func (f *FormData) encode() ([]byte, string, error) {
	if f.err != nil {
		return nil, "", fmt.Errorf("build form body: %w", f.err)
	}
	if !f.closed {
		if err := f.writer.Close(); err != nil {
			return nil, "", fmt.Errorf("close form body: %w", err)
		}
		f.closed = true
	}
	return f.buf.Bytes(), f.writer.FormDataContentType(), nil
}
