package toolserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/g95g95/Consulting-Hive-mind-sub001/pkg/auth"
)

// DefaultAuthTool is the tool whose successful result authenticates a
// stdio session.
const DefaultAuthTool = "authenticate"

// IdentityCarrier is implemented by auth-tool payloads that expose the
// authenticated identity for stdio session caching.
type IdentityCarrier interface {
	SessionIdentity() *auth.Identity
}

// StdioServer serves the tool catalog over stdin/stdout using JSON-RPC
// 2.0. One server instance owns exactly one connection; the cached
// session identity is connection state, never process state, so
// concurrent connections cannot cross-contaminate.
//
// Session identity moves Anonymous -> Authenticated on a verified token
// argument or a successful authenticate call, and never back;
// re-authentication overwrites the cached identity. This is a deliberate
// affordance for a protocol with no native per-call headers.
type StdioServer struct {
	name            string
	version         string
	protocolVersion string
	registry        *Registry
	executor        *Executor
	codec           *auth.Codec
	authTool        string
	identity        *auth.Identity
	logger          *slog.Logger
}

// NewStdioServer creates a stdio transport over the shared registry and
// executor. codec verifies raw tokens supplied in tool arguments.
func NewStdioServer(name, version string, registry *Registry, executor *Executor, codec *auth.Codec) *StdioServer {
	return &StdioServer{
		name:            name,
		version:         version,
		protocolVersion: "2024-11-05",
		registry:        registry,
		executor:        executor,
		codec:           codec,
		authTool:        DefaultAuthTool,
		logger:          slog.Default(),
	}
}

// Identity returns the cached session identity, nil while anonymous.
func (s *StdioServer) Identity() *auth.Identity { return s.identity }

// Run serves the connection on stdin/stdout until EOF.
func (s *StdioServer) Run() error {
	s.logger.Info("starting tool server (stdio)", "name", s.name, "version", s.version, "tools", s.registry.Len())
	return s.Serve(os.Stdin, os.Stdout)
}

// Serve reads JSON-RPC requests from r and writes responses to w until
// EOF. Exposed separately from Run for tests.
func (s *StdioServer) Serve(r io.Reader, w io.Writer) error {
	decoder := json.NewDecoder(r)
	encoder := json.NewEncoder(w)

	for {
		var req JSONRPCRequest
		if err := decoder.Decode(&req); err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("decode request: %w", err)
		}

		resp := s.HandleRequest(&req)
		if resp == nil {
			continue // notification, no response needed
		}

		if err := encoder.Encode(resp); err != nil {
			return fmt.Errorf("encode response: %w", err)
		}
	}
}

// HandleRequest processes a single JSON-RPC request.
func (s *StdioServer) HandleRequest(req *JSONRPCRequest) *JSONRPCResponse {
	resp := &JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
	}

	switch req.Method {
	case "initialize":
		resp.Result = &InitializeResult{
			ProtocolVersion: s.protocolVersion,
			Capabilities: ServerCapabilities{
				Tools: ToolsCapability{ListChanged: false},
			},
			ServerInfo: ServerInfo{Name: s.name, Version: s.version},
		}
	case "notifications/initialized":
		s.logger.Info("client initialized")
		return nil
	case "tools/list":
		resp.Result = &ToolsListResult{Tools: describe(s.registry.List())}
	case "tools/call":
		resp.Result = s.handleToolCall(req.Params)
	default:
		resp.Error = &RPCError{
			Code:    -32601,
			Message: fmt.Sprintf("Method not found: %s", req.Method),
		}
	}

	return resp
}

func (s *StdioServer) handleToolCall(params any) *CallResult {
	paramsBytes, err := json.Marshal(params)
	if err != nil {
		return wrapResult(Fail(CodeInvalidInput, fmt.Sprintf("parse params: %v", err)))
	}

	var call struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	}
	if err := json.Unmarshal(paramsBytes, &call); err != nil {
		return wrapResult(Fail(CodeInvalidInput, fmt.Sprintf("unmarshal params: %v", err)))
	}
	if call.Arguments == nil {
		call.Arguments = map[string]any{}
	}

	// Identity gate: an auth-required tool on an anonymous connection
	// may still carry a raw token argument. Verify and cache it; if the
	// connection stays anonymous the executor is never invoked.
	if tool, ok := s.registry.Lookup(call.Name); ok && tool.RequiresAuth && s.identity == nil {
		if raw, ok := call.Arguments["token"].(string); ok && raw != "" && s.codec != nil {
			if id, valid := s.codec.Verify(raw); valid {
				s.identity = id
			}
		}
		if s.identity == nil {
			return wrapResult(Fail(CodeUnauthorized, "authentication required"))
		}
	}

	if err := s.executor.ValidateInput(call.Name, call.Arguments); err != nil {
		var te *ToolError
		if errors.As(err, &te) {
			return wrapResult(Fail(te.Code, te.Message))
		}
		return wrapResult(Fail(CodeInvalidInput, err.Error()))
	}

	res := s.executor.Execute(context.Background(), call.Name, call.Arguments, s.identity)

	// A successful authenticate call authenticates the rest of the
	// connection.
	if call.Name == s.authTool && res.Success {
		if carrier, ok := res.Data.(IdentityCarrier); ok {
			if id := carrier.SessionIdentity(); id != nil {
				s.identity = id
			}
		}
	}

	return wrapResult(res)
}
