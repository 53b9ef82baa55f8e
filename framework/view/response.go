package view

import (
	"encoding/json"
	"net/http"
)

// Response writes JSON bodies and redirects.
type Response struct {
	w http.ResponseWriter
}

// NewResponse wraps a ResponseWriter.
func NewResponse(w http.ResponseWriter) *Response {
	return &Response{w: w}
}

// Raw returns the underlying ResponseWriter.
func (res *Response) Raw() http.ResponseWriter { return res.w }

// JSON writes data as JSON with status.
func (res *Response) JSON(status int, data any) error {
	res.w.Header().Set("Content-Type", "application/json")
	res.w.WriteHeader(status)
	return json.NewEncoder(res.w).Encode(data)
}

// Success sends 200 {"data": v}.
func (res *Response) Success(v any) error {
	return res.JSON(http.StatusOK, map[string]any{"data": v})
}

// Created sends 201 {"data": v}.
func (res *Response) Created(v any) error {
	return res.JSON(http.StatusCreated, map[string]any{"data": v})
}

// NoContent sends 204 with no body.
func (res *Response) NoContent() {
	res.w.WriteHeader(http.StatusNoContent)
}

// Error sends {"message": message} with status. An empty message uses the
// standard status text.
func (res *Response) Error(status int, message string) error {
	if message == "" {
		message = http.StatusText(status)
	}
	return res.JSON(status, map[string]any{"message": message})
}

// NotFound sends 404.
func (res *Response) NotFound(message string) error {
	return res.Error(http.StatusNotFound, message)
}

// Redirect sends a redirect to url; status defaults to 302.
func (res *Response) Redirect(url string, status int) {
	if status == 0 {
		status = http.StatusFound
	}
	res.w.Header().Set("Location", url)
	res.w.WriteHeader(status)
}
