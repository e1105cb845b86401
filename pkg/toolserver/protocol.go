package toolserver

import "encoding/json"

// JSON-RPC 2.0 protocol types for the stdio transport.

// JSONRPCRequest represents a JSON-RPC 2.0 request.
type JSONRPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      any    `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// JSONRPCResponse represents a JSON-RPC 2.0 response.
type JSONRPCResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id,omitempty"`
	Result  any       `json:"result,omitempty"`
	Error   *RPCError `json:"error,omitempty"`
}

// RPCError represents a JSON-RPC 2.0 error.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// InitializeResult is the response to an initialize request.
type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	ServerInfo      ServerInfo         `json:"serverInfo"`
}

// ServerCapabilities describes the server's supported features.
type ServerCapabilities struct {
	Tools ToolsCapability `json:"tools"`
}

// ToolsCapability describes the tools capability.
type ToolsCapability struct {
	ListChanged bool `json:"listChanged"`
}

// ServerInfo describes the server.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ToolDescriptor is the listing view of a tool: name, description and
// declared input schema.
type ToolDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Category    string         `json:"category,omitempty"`
	InputSchema map[string]any `json:"inputSchema"`
}

// ToolsListResult is the result of a tools/list request.
type ToolsListResult struct {
	Tools []ToolDescriptor `json:"tools"`
}

// CallContent is a single block of tool-call output.
type CallContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// CallResult wraps a serialized ToolResult in the protocol's content
// framing: always exactly one text block.
type CallResult struct {
	Content []CallContent `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

// wrapResult serializes a ToolResult envelope into a CallResult.
func wrapResult(res *ToolResult) *CallResult {
	text, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		// Data payloads are always JSON-serializable structs or maps;
		// reaching this means a programming error in a handler.
		return &CallResult{
			Content: []CallContent{{Type: "text", Text: `{"success":false,"error":"unserializable result","code":"EXECUTION_ERROR"}`}},
			IsError: true,
		}
	}
	return &CallResult{
		Content: []CallContent{{Type: "text", Text: string(text)}},
		IsError: !res.Success,
	}
}

// describe converts registered tools into their listing form.
func describe(tools []Tool) []ToolDescriptor {
	out := make([]ToolDescriptor, 0, len(tools))
	for _, t := range tools {
		out = append(out, ToolDescriptor{
			Name:        t.Name,
			Description: t.Description,
			Category:    t.Category,
			InputSchema: t.InputSchema,
		})
	}
	return out
}
