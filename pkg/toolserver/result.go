package toolserver

// ToolResult is the uniform envelope produced by every handler
// invocation, transport response, and failure path. Success is never
// ambiguous: exactly one of OK/Fail constructs each value.
type ToolResult struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

// OK wraps a data payload in a successful envelope.
func OK(data any) *ToolResult {
	return &ToolResult{Success: true, Data: data}
}

// Fail builds a failure envelope with a machine code and message.
func Fail(code, message string) *ToolResult {
	return &ToolResult{Success: false, Error: message, Code: code}
}
