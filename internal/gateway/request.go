package gateway

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/felixgeelhaar/twcadmin/internal/errors"
)

// Request describes one logical API call. It is a value: the gateway builds a
// fresh *http.Request from it for every attempt, so a retry never reuses a
// consumed body or a stale Authorization header.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	// Body is encoded as JSON when non-nil.
	Body any
	// File, when set, sends a multipart/form-data body instead of Body.
	File   *File
	Header http.Header
	// Anonymous requests carry no bearer and never trigger a refresh.
	// Token issue calls are anonymous.
	Anonymous bool
}

// File is a single multipart upload part.
type File struct {
	Field       string
	Name        string
	ContentType string
	Content     []byte
}

// Get is shorthand for a GET request.
func Get(path string, query url.Values) Request {
	return Request{Method: http.MethodGet, Path: path, Query: query}
}

// Post is shorthand for a POST request with a JSON body.
func Post(path string, body any) Request {
	return Request{Method: http.MethodPost, Path: path, Body: body}
}

// Put is shorthand for a PUT request with a JSON body.
func Put(path string, body any) Request {
	return Request{Method: http.MethodPut, Path: path, Body: body}
}

// Delete is shorthand for a DELETE request.
func Delete(path string, query url.Values) Request {
	return Request{Method: http.MethodDelete, Path: path, Query: query}
}

func (r Request) encodeBody() (io.Reader, string, error) {
	if r.File != nil {
		return r.File.encode()
	}
	if r.Body == nil {
		return nil, "", nil
	}
	data, err := json.Marshal(r.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal request body: %w", err)
	}
	return bytes.NewReader(data), "application/json", nil
}

func (f *File) encode() (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	field := f.Field
	if field == "" {
		field = "file"
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, f.Name))
	if f.ContentType != "" {
		h.Set("Content-Type", f.ContentType)
	} else {
		h.Set("Content-Type", "application/octet-stream")
	}

	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create multipart part: %w", err)
	}
	if _, err := part.Write(f.Content); err != nil {
		return nil, "", fmt.Errorf("failed to write multipart part: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish multipart body: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

// Response is a fully read API response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	RequestID  string
}

// Decode unmarshals the JSON body into target.
func (r *Response) Decode(target any) error {
	if target == nil || len(r.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, target); err != nil {
		return errors.Wrap(errors.ErrCodeDecode, "failed to decode response", err)
	}
	return nil
}

// Pagination holds the WordPress collection headers.
type Pagination struct {
	Total      int
	TotalPages int
	// Known is false when the server omitted X-WP-Total.
	Known bool
}

// Pagination reads X-WP-Total and X-WP-TotalPages.
func (r *Response) Pagination() Pagination {
	var p Pagination
	if v := r.Header.Get("X-WP-Total"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			p.Total = n
			p.Known = true
		}
	}
	if v := r.Header.Get("X-WP-TotalPages"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			p.TotalPages = n
		}
	}
	return p
}

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	RequestID  string
	Body       []byte
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	if e.Message != "" {
		return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api error %d", e.StatusCode)
}

// UserMessage returns the response's message field.
func (e *APIError) UserMessage() string {
	return e.Message
}

func newAPIError(resp *Response) *APIError {
	e := &APIError{
		StatusCode: resp.StatusCode,
		RequestID:  resp.RequestID,
		Body:       resp.Body,
	}
	if gjson.ValidBytes(resp.Body) {
		e.Message = gjson.GetBytes(resp.Body, "message").String()
		e.Code = gjson.GetBytes(resp.Body, "code").String()
	}
	return e
}

// StatusOf returns the HTTP status of the first APIError in err's chain, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
