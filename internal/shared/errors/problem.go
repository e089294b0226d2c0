// Package errors provides RFC 7807 Problem Details for HTTP APIs.
package errors

import (
	"fmt"
	"net/http"
)

// ProblemDetail represents an RFC 7807 Problem Details response.
// See: https://www.rfc-editor.org/rfc/rfc7807
type ProblemDetail struct {
	// Type is a URI reference that identifies the problem type.
	Type string `json:"type"`
	// Title is a short, human-readable summary of the problem type.
	Title string `json:"title"`
	// Status is the HTTP status code for this occurrence.
	Status int `json:"status"`
	// Detail is a human-readable explanation specific to this occurrence.
	Detail string `json:"detail,omitempty"`
	// Instance is a URI reference that identifies the specific occurrence.
	Instance string `json:"instance,omitempty"`
	// Extensions holds additional problem-specific properties.
	Extensions map[string]any `json:"extensions,omitempty"`
}

// Error implements the error interface.
func (p ProblemDetail) Error() string {
	if p.Detail != "" {
		return fmt.Sprintf("%s: %s", p.Title, p.Detail)
	}
	return p.Title
}

// WithDetail returns a copy with the given detail message.
func (p ProblemDetail) WithDetail(detail string) ProblemDetail {
	p.Detail = detail
	return p
}

// WithExtension returns a copy with an additional extension property.
func (p ProblemDetail) WithExtension(key string, value any) ProblemDetail {
	extensions := make(map[string]any, len(p.Extensions)+1)
	for k, v := range p.Extensions {
		extensions[k] = v
	}
	extensions[key] = value
	p.Extensions = extensions
	return p
}

// Problem types raised by the engine callback API.
const (
	TypeBadRequest        = "/problems/bad-request"
	TypeMalformedEnvelope = "/problems/malformed-envelope"
	TypeUnknownHandler    = "/problems/unknown-handler"
	TypeUnauthorized      = "/problems/unauthorized"
	TypeInternal          = "/problems/internal-error"
)

var (
	// ErrBadRequest indicates a malformed route parameter or query.
	ErrBadRequest = ProblemDetail{
		Type:   TypeBadRequest,
		Title:  "Bad Request",
		Status: http.StatusBadRequest,
	}

	// ErrMalformedEnvelope indicates the request body is not a valid engine envelope.
	ErrMalformedEnvelope = ProblemDetail{
		Type:   TypeMalformedEnvelope,
		Title:  "Malformed Envelope",
		Status: http.StatusBadRequest,
	}

	// ErrUnknownHandler indicates no processor or criterion is registered under the name.
	ErrUnknownHandler = ProblemDetail{
		Type:   TypeUnknownHandler,
		Title:  "Unknown Handler",
		Status: http.StatusNotFound,
	}

	ErrUnauthorized = ProblemDetail{
		Type:   TypeUnauthorized,
		Title:  "Unauthorized",
		Status: http.StatusUnauthorized,
	}

	ErrInternal = ProblemDetail{
		Type:   TypeInternal,
		Title:  "Internal Server Error",
		Status: http.StatusInternalServerError,
	}
)

// NewUnknownHandlerProblem reports a missing processor or criterion.
func NewUnknownHandlerProblem(kind, name string) ProblemDetail {
	return ErrUnknownHandler.
		WithDetail(fmt.Sprintf("no %s registered under '%s'", kind, name)).
		WithExtension("kind", kind).
		WithExtension("name", name)
}
