// Package api defines the command/response envelope the tool surface uses
// to drive the engine (spec.md 6) and wires the core components
// (internal/store, internal/flowconfig, internal/transition,
// internal/cascade, internal/executor, internal/batchwrite,
// internal/depgraph) behind that surface.
//
// Grounded on the teacher's internal/cli/commands request/response shaping
// and internal/status/errors.go's error-code taxonomy, generalized to the
// spec's closed apierr.Kind set and the {success, message, data, error}
// envelope shape.
package api

import (
	"errors"

	"github.com/jwwelbor/taskflow/internal/apierr"
)

// ErrorInfo is the machine-readable half of a failed Response (spec.md 6).
type ErrorInfo struct {
	Code    string                 `json:"code"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Response is the consistent envelope every command produces (spec.md 6).
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

func ok(message string, data interface{}) *Response {
	return &Response{Success: true, Message: message, Data: data}
}

func fail(err error) *Response {
	var apiErr *apierr.Error
	if errors.As(err, &apiErr) {
		return &Response{
			Success: false,
			Message: apiErr.Error(),
			Error:   &ErrorInfo{Code: string(apiErr.Kind), Details: apiErr.Details},
		}
	}
	return &Response{
		Success: false,
		Message: err.Error(),
		Error:   &ErrorInfo{Code: "InternalError"},
	}
}
