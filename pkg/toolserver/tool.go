// Package toolserver exposes a catalog of named business operations over
// two transports: an MCP-style stdio JSON-RPC protocol and a REST surface.
// Both delegate to a single registry and executor so that callers cannot
// distinguish transport failures from business failures except via the
// result code.
//
// Input validation is shallow by contract: ValidateInput checks only the
// presence of required fields, never the types of their values.
package toolserver

import (
	"context"
	"fmt"

	"github.com/g95g95/Consulting-Hive-mind-sub001/pkg/auth"
)

// Handler is the business-logic function bound to a tool. It returns the
// data payload for the result envelope, or an error. A *ToolError keeps
// its machine code; any other error becomes EXECUTION_ERROR.
type Handler func(ctx context.Context, args map[string]any, id *auth.Identity) (any, error)

// Tool describes one named operation. Tools are registered once at
// startup and never mutated afterwards.
type Tool struct {
	Name         string
	Description  string
	Category     string
	RequiresAuth bool
	InputSchema  map[string]any
	Handler      Handler
}

// Machine-readable result codes.
const (
	CodeToolNotFound  = "TOOL_NOT_FOUND"
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeForbidden     = "FORBIDDEN"
	CodeNotFound      = "NOT_FOUND"
	CodeInvalidInput  = "INVALID_INPUT"
	CodeInvalidStatus = "INVALID_STATUS"
	CodeAlreadyExists = "ALREADY_EXISTS"
	CodeExecution     = "EXECUTION_ERROR"
	CodeRateLimited   = "RATE_LIMITED"
)

// ToolError is a structured handler failure carrying a result code.
// Handlers return these for expected business-rule violations; actual
// panics are reserved for unreachable states and caught by the executor.
type ToolError struct {
	Code    string
	Message string
}

func (e *ToolError) Error() string { return e.Message }

// Errf creates a ToolError with a formatted message.
func Errf(code, format string, args ...any) *ToolError {
	return &ToolError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ObjectSchema builds a JSON-Schema-like input declaration from property
// descriptions and a list of required field names.
func ObjectSchema(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// Prop describes a primitive schema property.
func Prop(typ, description string) map[string]any {
	return map[string]any{"type": typ, "description": description}
}
