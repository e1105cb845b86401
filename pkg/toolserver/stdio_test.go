package toolserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/g95g95/Consulting-Hive-mind-sub001/pkg/auth"
	"github.com/g95g95/Consulting-Hive-mind-sub001/pkg/toolserver"
)

// authPayload mimics the authenticate tool's result data.
type authPayload struct {
	Token string         `json:"token"`
	User  *auth.Identity `json:"user"`
}

func (p authPayload) SessionIdentity() *auth.Identity { return p.User }

func newStdioFixture(t *testing.T) (*toolserver.StdioServer, *auth.Codec) {
	t.Helper()
	codec := auth.NewCodec("stdio-test-secret", "1h")

	reg := toolserver.NewRegistry()
	reg.Register(toolserver.Tool{
		Name:        "authenticate",
		Description: "exchange credentials for a session",
		Handler: func(ctx context.Context, args map[string]any, id *auth.Identity) (any, error) {
			user := &auth.Identity{UserID: 1, Email: "alice@example.com", Role: auth.RoleClient}
			token, err := codec.Issue(user)
			if err != nil {
				return nil, err
			}
			return authPayload{Token: token, User: user}, nil
		},
	})
	reg.Register(toolserver.Tool{
		Name:         "whoami",
		Description:  "returns the caller's email",
		RequiresAuth: true,
		Handler: func(ctx context.Context, args map[string]any, id *auth.Identity) (any, error) {
			return map[string]any{"email": id.Email}, nil
		},
	})

	exec := toolserver.NewExecutor(reg)
	return toolserver.NewStdioServer("hive-test", "0.0.1", reg, exec, codec), codec
}

func callTool(t *testing.T, s *toolserver.StdioServer, name string, args map[string]any) *toolserver.ToolResult {
	t.Helper()
	resp := s.HandleRequest(&toolserver.JSONRPCRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params: map[string]any{
			"name":      name,
			"arguments": args,
		},
	})
	if resp == nil || resp.Error != nil {
		t.Fatalf("unexpected rpc failure: %+v", resp)
	}
	call, ok := resp.Result.(*toolserver.CallResult)
	if !ok {
		t.Fatalf("expected CallResult, got %T", resp.Result)
	}
	if len(call.Content) != 1 || call.Content[0].Type != "text" {
		t.Fatalf("expected exactly one text block, got %+v", call.Content)
	}
	var res toolserver.ToolResult
	if err := json.Unmarshal([]byte(call.Content[0].Text), &res); err != nil {
		t.Fatalf("result block is not a ToolResult: %v", err)
	}
	return &res
}

func TestStdio_Initialize(t *testing.T) {
	s, _ := newStdioFixture(t)
	resp := s.HandleRequest(&toolserver.JSONRPCRequest{JSONRPC: "2.0", ID: 1, Method: "initialize"})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error)
	}
	init, ok := resp.Result.(*toolserver.InitializeResult)
	if !ok {
		t.Fatal("expected InitializeResult")
	}
	if init.ServerInfo.Name != "hive-test" {
		t.Fatalf("unexpected server name %q", init.ServerInfo.Name)
	}
}

func TestStdio_ToolsList(t *testing.T) {
	s, _ := newStdioFixture(t)
	resp := s.HandleRequest(&toolserver.JSONRPCRequest{JSONRPC: "2.0", ID: 2, Method: "tools/list"})
	list, ok := resp.Result.(*toolserver.ToolsListResult)
	if !ok {
		t.Fatal("expected ToolsListResult")
	}
	if len(list.Tools) != 2 {
		t.Fatalf("expected 2 tools, got %d", len(list.Tools))
	}
	if list.Tools[0].Name != "authenticate" {
		t.Fatalf("expected registration order, got %q first", list.Tools[0].Name)
	}
}

func TestStdio_AnonymousRejected(t *testing.T) {
	s, _ := newStdioFixture(t)
	res := callTool(t, s, "whoami", nil)
	if res.Success || res.Code != toolserver.CodeUnauthorized {
		t.Fatalf("expected UNAUTHORIZED, got %+v", res)
	}
}

func TestStdio_TokenArgumentAuthenticatesSession(t *testing.T) {
	s, codec := newStdioFixture(t)
	token, err := codec.Issue(&auth.Identity{UserID: 5, Email: "bob@example.com", Role: auth.RoleConsultant})
	if err != nil {
		t.Fatal(err)
	}

	res := callTool(t, s, "whoami", map[string]any{"token": token})
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}

	// Identity stays cached for the connection; no token needed now.
	res = callTool(t, s, "whoami", nil)
	if !res.Success {
		t.Fatalf("expected cached identity to carry over, got %+v", res)
	}
}

func TestStdio_InvalidTokenArgumentRejected(t *testing.T) {
	s, _ := newStdioFixture(t)
	res := callTool(t, s, "whoami", map[string]any{"token": "garbage"})
	if res.Success || res.Code != toolserver.CodeUnauthorized {
		t.Fatalf("expected UNAUTHORIZED, got %+v", res)
	}
}

func TestStdio_AuthenticateToolCachesIdentity(t *testing.T) {
	s, _ := newStdioFixture(t)

	res := callTool(t, s, "authenticate", map[string]any{})
	if !res.Success {
		t.Fatalf("authenticate failed: %+v", res)
	}

	res = callTool(t, s, "whoami", nil)
	if !res.Success {
		t.Fatalf("expected session identity after authenticate, got %+v", res)
	}

	// A second, independent connection stays anonymous.
	other, _ := newStdioFixture(t)
	res = callTool(t, other, "whoami", nil)
	if res.Success || res.Code != toolserver.CodeUnauthorized {
		t.Fatalf("expected fresh connection to be anonymous, got %+v", res)
	}
}

func TestStdio_ServeLoop(t *testing.T) {
	s, _ := newStdioFixture(t)

	var in bytes.Buffer
	enc := json.NewEncoder(&in)
	for _, req := range []toolserver.JSONRPCRequest{
		{JSONRPC: "2.0", ID: 1, Method: "initialize"},
		{JSONRPC: "2.0", Method: "notifications/initialized"},
		{JSONRPC: "2.0", ID: 2, Method: "tools/list"},
	} {
		if err := enc.Encode(req); err != nil {
			t.Fatal(err)
		}
	}

	var out bytes.Buffer
	if err := s.Serve(&in, &out); err != nil {
		t.Fatalf("serve: %v", err)
	}

	// Two responses: the notification produces none.
	lines := strings.Count(strings.TrimSpace(out.String()), "\n") + 1
	if lines != 2 {
		t.Fatalf("expected 2 responses, got %d: %s", lines, out.String())
	}
}

func TestStdio_UnknownMethod(t *testing.T) {
	s, _ := newStdioFixture(t)
	resp := s.HandleRequest(&toolserver.JSONRPCRequest{JSONRPC: "2.0", ID: 9, Method: "bogus/method"})
	if resp.Error == nil || resp.Error.Code != -32601 {
		t.Fatalf("expected -32601, got %+v", resp.Error)
	}
}
