package toolserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/g95g95/Consulting-Hive-mind-sub001/pkg/auth"
)

// Executor resolves tool calls against the registry, gates on the auth
// requirement, and normalizes every outcome into a ToolResult. Execute
// never panics and never lets a handler failure escape to a transport.
type Executor struct {
	registry *Registry
	logger   *slog.Logger
}

// NewExecutor creates an executor over the given registry.
func NewExecutor(registry *Registry) *Executor {
	return &Executor{registry: registry, logger: slog.Default()}
}

// Execute looks up and runs a tool. Failure precedence: unknown name,
// then missing identity on an auth-required tool (the handler is never
// invoked), then handler outcome.
func (e *Executor) Execute(ctx context.Context, name string, args map[string]any, id *auth.Identity) (res *ToolResult) {
	tool, ok := e.registry.Lookup(name)
	if !ok {
		return Fail(CodeToolNotFound, fmt.Sprintf("unknown tool: %s", name))
	}
	if tool.RequiresAuth && id == nil {
		return Fail(CodeUnauthorized, "authentication required")
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("tool handler panicked", "tool", name, "panic", r)
			res = Fail(CodeExecution, fmt.Sprintf("%v", r))
		}
	}()

	data, err := tool.Handler(ctx, args, id)
	if err != nil {
		var te *ToolError
		if errors.As(err, &te) {
			return Fail(te.Code, te.Message)
		}
		e.logger.Error("tool execution failed", "tool", name, "error", err)
		return Fail(CodeExecution, err.Error())
	}
	return OK(data)
}

// ValidateInput performs shallow presence-checking of the fields the
// tool's schema marks required. Value types are deliberately not checked;
// deeper validation is the handlers' concern.
func (e *Executor) ValidateInput(name string, args map[string]any) error {
	tool, ok := e.registry.Lookup(name)
	if !ok {
		return Errf(CodeToolNotFound, "unknown tool: %s", name)
	}
	required, _ := tool.InputSchema["required"].([]string)
	if required == nil {
		// Schemas decoded from JSON carry []any instead.
		if anyList, ok := tool.InputSchema["required"].([]any); ok {
			for _, f := range anyList {
				if s, ok := f.(string); ok {
					required = append(required, s)
				}
			}
		}
	}
	for _, field := range required {
		if _, present := args[field]; !present {
			return Errf(CodeInvalidInput, "missing required field: %s", field)
		}
	}
	return nil
}
