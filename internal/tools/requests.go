package tools

import (
	"context"

	"github.com/g95g95/Consulting-Hive-mind-sub001/internal/hive"
	"github.com/g95g95/Consulting-Hive-mind-sub001/pkg/auth"
	"github.com/g95g95/Consulting-Hive-mind-sub001/pkg/toolserver"
)

func (ts *Toolset) registerRequests(reg *toolserver.Registry) {
	reg.Register(toolserver.Tool{
		Name:         "create_request",
		Description:  "Post a new consulting request",
		Category:     "requests",
		RequiresAuth: true,
		InputSchema: toolserver.ObjectSchema(map[string]any{
			"title":        toolserver.Prop("string", "Short title"),
			"details":      toolserver.Prop("string", "What the client needs"),
			"budget_cents": toolserver.Prop("integer", "Budget in cents"),
		}, "title", "details"),
		Handler: ts.handleCreateRequest,
	})

	reg.Register(toolserver.Tool{
		Name:         "refine_request",
		Description:  "Summarize a request and surface clarifying questions",
		Category:     "requests",
		RequiresAuth: true,
		InputSchema: toolserver.ObjectSchema(map[string]any{
			"request_id": toolserver.Prop("integer", "Request to refine"),
		}, "request_id"),
		Handler: ts.handleRefineRequest,
	})

	reg.Register(toolserver.Tool{
		Name:         "list_requests",
		Description:  "List the caller's requests, or open requests for consultants",
		Category:     "requests",
		RequiresAuth: true,
		InputSchema:  toolserver.ObjectSchema(map[string]any{}),
		Handler:      ts.handleListRequests,
	})

	reg.Register(toolserver.Tool{
		Name:         "get_request",
		Description:  "Fetch a single request",
		Category:     "requests",
		RequiresAuth: true,
		InputSchema: toolserver.ObjectSchema(map[string]any{
			"request_id": toolserver.Prop("integer", "Request id"),
		}, "request_id"),
		Handler: ts.handleGetRequest,
	})

	reg.Register(toolserver.Tool{
		Name:         "match_consultants",
		Description:  "Rank available consultants for a request",
		Category:     "requests",
		RequiresAuth: true,
		InputSchema: toolserver.ObjectSchema(map[string]any{
			"request_id": toolserver.Prop("integer", "Request to match against"),
		}, "request_id"),
		Handler: ts.handleMatchConsultants,
	})
}

func (ts *Toolset) handleCreateRequest(ctx context.Context, args map[string]any, id *auth.Identity) (any, error) {
	title := stringArg(args, "title")
	details := stringArg(args, "details")
	if title == "" || details == "" {
		return nil, toolserver.Errf(toolserver.CodeInvalidInput, "title and details must not be empty")
	}

	reqID, err := ts.Store.CreateRequest(ctx, id.UserID, title, "", details, int64Arg(args, "budget_cents"))
	if err != nil {
		return nil, err
	}
	req, err := ts.Store.GetRequest(ctx, reqID)
	if err != nil {
		return nil, err
	}
	ts.Logger.Info("request created", "request", reqID, "client", id.UserID)
	return req, nil
}

func (ts *Toolset) handleRefineRequest(ctx context.Context, args map[string]any, id *auth.Identity) (any, error) {
	req, err := ts.ownRequest(ctx, args, id)
	if err != nil {
		return nil, err
	}

	refined, err := ts.Agents.RefineIntake(ctx, req)
	if err != nil {
		return nil, err
	}
	if refined.Summary != "" && refined.Summary != req.Summary {
		if err := ts.Store.UpdateRequestSummary(ctx, req.ID, refined.Summary); err != nil {
			return nil, err
		}
		req.Summary = refined.Summary
	}
	return map[string]any{"request": req, "refinement": refined}, nil
}

func (ts *Toolset) handleListRequests(ctx context.Context, args map[string]any, id *auth.Identity) (any, error) {
	if id.Role == auth.RoleConsultant {
		reqs, err := ts.Store.ListOpenRequests(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{"requests": reqs}, nil
	}
	reqs, err := ts.Store.ListRequestsByClient(ctx, id.UserID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"requests": reqs}, nil
}

func (ts *Toolset) handleGetRequest(ctx context.Context, args map[string]any, id *auth.Identity) (any, error) {
	req, err := ts.Store.GetRequest(ctx, int64Arg(args, "request_id"))
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, toolserver.Errf(toolserver.CodeNotFound, "request not found")
	}
	// Owners always see their request; others only while it is open.
	if req.ClientID != id.UserID && id.Role != auth.RoleAdmin && req.Status != hive.RequestOpen {
		return nil, toolserver.Errf(toolserver.CodeForbidden, "not your request")
	}
	return req, nil
}

func (ts *Toolset) handleMatchConsultants(ctx context.Context, args map[string]any, id *auth.Identity) (any, error) {
	req, err := ts.ownRequest(ctx, args, id)
	if err != nil {
		return nil, err
	}

	roster, err := ts.Store.ListAvailableConsultants(ctx)
	if err != nil {
		return nil, err
	}
	matches, err := ts.Agents.MatchConsultants(ctx, req, roster)
	if err != nil {
		return nil, err
	}
	return map[string]any{"matches": matches}, nil
}

// ownRequest loads a request and checks the caller owns it.
func (ts *Toolset) ownRequest(ctx context.Context, args map[string]any, id *auth.Identity) (*hive.Request, error) {
	req, err := ts.Store.GetRequest(ctx, int64Arg(args, "request_id"))
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, toolserver.Errf(toolserver.CodeNotFound, "request not found")
	}
	if req.ClientID != id.UserID && id.Role != auth.RoleAdmin {
		return nil, toolserver.Errf(toolserver.CodeForbidden, "not your request")
	}
	return req, nil
}
