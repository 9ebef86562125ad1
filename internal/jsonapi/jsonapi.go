// Package jsonapi holds the JSON:API envelope types shared by the product
// service client (response decoding) and the REST boundary (error rendering).
package jsonapi

import "encoding/json"

// Document is a JSON:API top-level document. A document carries either Data or
// Errors, never both.
type Document struct {
	Data   *Resource `json:"data,omitempty"`
	Errors []Error   `json:"errors,omitempty"`
	Meta   any       `json:"meta,omitempty"`
}

// Resource is a single JSON:API resource object. Attributes are kept raw so
// callers can decode them into a narrow, typed schema and fail fast on any
// deviation.
type Resource struct {
	Type       string          `json:"type,omitempty"`
	ID         string          `json:"id"`
	Attributes json.RawMessage `json:"attributes"`
}

// Error is a single JSON:API error object.
type Error struct {
	Status string `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail,omitempty"`
}

// NewErrorDocument builds a document carrying a single error.
func NewErrorDocument(status, title, detail string) *Document {
	return &Document{
		Errors: []Error{{Status: status, Title: title, Detail: detail}},
	}
}
