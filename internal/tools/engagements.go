package tools

import (
	"context"

	"github.com/g95g95/Consulting-Hive-mind-sub001/internal/hive"
	"github.com/g95g95/Consulting-Hive-mind-sub001/pkg/auth"
	"github.com/g95g95/Consulting-Hive-mind-sub001/pkg/toolserver"
)

func (ts *Toolset) registerEngagements(reg *toolserver.Registry) {
	engagementID := map[string]any{
		"engagement_id": toolserver.Prop("string", "Engagement id"),
	}

	reg.Register(toolserver.Tool{
		Name:         "get_engagement",
		Description:  "Fetch an engagement the caller participates in",
		Category:     "engagements",
		RequiresAuth: true,
		InputSchema:  toolserver.ObjectSchema(engagementID, "engagement_id"),
		Handler: func(ctx context.Context, args map[string]any, id *auth.Identity) (any, error) {
			eng, err := ts.memberEngagement(ctx, args, id)
			if err != nil {
				return nil, err
			}
			return eng, nil
		},
	})

	reg.Register(toolserver.Tool{
		Name:         "post_message",
		Description:  "Post a chat message on an engagement",
		Category:     "engagements",
		RequiresAuth: true,
		InputSchema: toolserver.ObjectSchema(map[string]any{
			"engagement_id": toolserver.Prop("string", "Engagement id"),
			"body":          toolserver.Prop("string", "Message text"),
		}, "engagement_id", "body"),
		Handler: ts.handlePostMessage,
	})

	reg.Register(toolserver.Tool{
		Name:         "list_messages",
		Description:  "List an engagement's chat",
		Category:     "engagements",
		RequiresAuth: true,
		InputSchema:  toolserver.ObjectSchema(engagementID, "engagement_id"),
		Handler: func(ctx context.Context, args map[string]any, id *auth.Identity) (any, error) {
			eng, err := ts.memberEngagement(ctx, args, id)
			if err != nil {
				return nil, err
			}
			msgs, err := ts.Store.ListMessages(ctx, eng.ID)
			if err != nil {
				return nil, err
			}
			return map[string]any{"messages": msgs}, nil
		},
	})

	reg.Register(toolserver.Tool{
		Name:         "add_note",
		Description:  "Attach a working note to an engagement",
		Category:     "engagements",
		RequiresAuth: true,
		InputSchema: toolserver.ObjectSchema(map[string]any{
			"engagement_id": toolserver.Prop("string", "Engagement id"),
			"body":          toolserver.Prop("string", "Note text"),
		}, "engagement_id", "body"),
		Handler: ts.handleAddNote,
	})

	reg.Register(toolserver.Tool{
		Name:         "list_notes",
		Description:  "List an engagement's notes",
		Category:     "engagements",
		RequiresAuth: true,
		InputSchema:  toolserver.ObjectSchema(engagementID, "engagement_id"),
		Handler: func(ctx context.Context, args map[string]any, id *auth.Identity) (any, error) {
			eng, err := ts.memberEngagement(ctx, args, id)
			if err != nil {
				return nil, err
			}
			notes, err := ts.Store.ListNotes(ctx, eng.ID)
			if err != nil {
				return nil, err
			}
			return map[string]any{"notes": notes}, nil
		},
	})

	reg.Register(toolserver.Tool{
		Name:         "add_checklist_item",
		Description:  "Add an item to an engagement's checklist",
		Category:     "engagements",
		RequiresAuth: true,
		InputSchema: toolserver.ObjectSchema(map[string]any{
			"engagement_id": toolserver.Prop("string", "Engagement id"),
			"title":         toolserver.Prop("string", "Item title"),
		}, "engagement_id", "title"),
		Handler: ts.handleAddChecklistItem,
	})

	reg.Register(toolserver.Tool{
		Name:         "toggle_checklist_item",
		Description:  "Toggle a checklist item's done state",
		Category:     "engagements",
		RequiresAuth: true,
		InputSchema: toolserver.ObjectSchema(map[string]any{
			"engagement_id": toolserver.Prop("string", "Engagement id"),
			"item_id":       toolserver.Prop("integer", "Checklist item id"),
		}, "engagement_id", "item_id"),
		Handler: ts.handleToggleChecklistItem,
	})
}

func (ts *Toolset) handlePostMessage(ctx context.Context, args map[string]any, id *auth.Identity) (any, error) {
	eng, err := ts.memberEngagement(ctx, args, id)
	if err != nil {
		return nil, err
	}
	body := stringArg(args, "body")
	if body == "" {
		return nil, toolserver.Errf(toolserver.CodeInvalidInput, "message body must not be empty")
	}
	msgID, err := ts.Store.AddMessage(ctx, eng.ID, id.UserID, body)
	if err != nil {
		return nil, err
	}
	return map[string]any{"message_id": msgID}, nil
}

func (ts *Toolset) handleAddNote(ctx context.Context, args map[string]any, id *auth.Identity) (any, error) {
	eng, err := ts.memberEngagement(ctx, args, id)
	if err != nil {
		return nil, err
	}
	body := stringArg(args, "body")
	if body == "" {
		return nil, toolserver.Errf(toolserver.CodeInvalidInput, "note body must not be empty")
	}
	noteID, err := ts.Store.AddNote(ctx, eng.ID, id.UserID, body)
	if err != nil {
		return nil, err
	}
	return map[string]any{"note_id": noteID}, nil
}

func (ts *Toolset) handleAddChecklistItem(ctx context.Context, args map[string]any, id *auth.Identity) (any, error) {
	eng, err := ts.memberEngagement(ctx, args, id)
	if err != nil {
		return nil, err
	}
	title := stringArg(args, "title")
	if title == "" {
		return nil, toolserver.Errf(toolserver.CodeInvalidInput, "title must not be empty")
	}
	itemID, err := ts.Store.AddChecklistItem(ctx, eng.ID, title)
	if err != nil {
		return nil, err
	}
	items, err := ts.Store.ListChecklist(ctx, eng.ID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"item_id": itemID, "checklist": items}, nil
}

func (ts *Toolset) handleToggleChecklistItem(ctx context.Context, args map[string]any, id *auth.Identity) (any, error) {
	eng, err := ts.memberEngagement(ctx, args, id)
	if err != nil {
		return nil, err
	}
	item, err := ts.Store.ToggleChecklistItem(ctx, eng.ID, int64Arg(args, "item_id"))
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, toolserver.Errf(toolserver.CodeNotFound, "checklist item not found")
	}
	return item, nil
}

// memberEngagement loads an engagement and checks the caller belongs
// to it. Admins pass.
func (ts *Toolset) memberEngagement(ctx context.Context, args map[string]any, id *auth.Identity) (*hive.Engagement, error) {
	eng, err := ts.Store.GetEngagement(ctx, stringArg(args, "engagement_id"))
	if err != nil {
		return nil, err
	}
	if eng == nil {
		return nil, toolserver.Errf(toolserver.CodeNotFound, "engagement not found")
	}
	if !eng.IsParticipant(id.UserID) && id.Role != auth.RoleAdmin {
		return nil, toolserver.Errf(toolserver.CodeForbidden, "not a participant of this engagement")
	}
	return eng, nil
}
