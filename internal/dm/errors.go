// Package dm is an HTTP client for the APS Data Management and OSS APIs:
// hubs, projects, folders, items, versions and storage objects. Metadata
// calls carry a bearer token; signed-URL transfers do not.
package dm

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for HTTP status code classification.
// Use errors.Is(err, dm.ErrNotFound) to check.
var (
	ErrBadRequest   = errors.New("dm: bad request")
	ErrUnauthorized = errors.New("dm: unauthorized")
	ErrForbidden    = errors.New("dm: forbidden")
	ErrNotFound     = errors.New("dm: not found")
	ErrConflict     = errors.New("dm: conflict")
	ErrGone         = errors.New("dm: resource gone")
	ErrThrottled    = errors.New("dm: throttled")
	ErrServerError  = errors.New("dm: server error")
)

// APIError wraps a sentinel error with HTTP status code, request ID,
// and the API error message for debugging.
type APIError struct {
	StatusCode int
	RequestID  string
	Message    string
	Err        error // sentinel, for errors.Is()
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("dm: HTTP %d (request-id: %s): %s", e.StatusCode, e.RequestID, e.Message)
	}

	return fmt.Sprintf("dm: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status code to a sentinel error.
// Returns nil for codes without a sentinel.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusGone:
		return ErrGone
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}

// errorsDocument is the JSON:API error envelope. OSS uses "reason" instead.
type errorsDocument struct {
	Errors []struct {
		Code   string `json:"code"`
		Title  string `json:"title"`
		Detail string `json:"detail"`
	} `json:"errors"`
	Reason string `json:"reason"`
}

// errorMessage extracts a readable message from an error body, falling back
// to the raw body.
func errorMessage(body []byte) string {
	var doc errorsDocument
	if err := json.Unmarshal(body, &doc); err == nil {
		if len(doc.Errors) > 0 {
			e := doc.Errors[0]
			if e.Detail != "" {
				return e.Detail
			}

			if e.Title != "" {
				return e.Title
			}
		}

		if doc.Reason != "" {
			return doc.Reason
		}
	}

	return string(body)
}

// newAPIError builds an APIError from a non-2xx response body.
func newAPIError(resp *http.Response, body []byte) *APIError {
	return &APIError{
		StatusCode: resp.StatusCode,
		RequestID:  resp.Header.Get(requestIDHeader),
		Message:    errorMessage(body),
		Err:        classifyStatus(resp.StatusCode),
	}
}
