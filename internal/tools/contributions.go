package tools

import (
	"context"

	"github.com/g95g95/Consulting-Hive-mind-sub001/internal/agents"
	"github.com/g95g95/Consulting-Hive-mind-sub001/internal/hive"
	"github.com/g95g95/Consulting-Hive-mind-sub001/pkg/auth"
	"github.com/g95g95/Consulting-Hive-mind-sub001/pkg/toolserver"
)

func (ts *Toolset) registerContributions(reg *toolserver.Registry) {
	reg.Register(toolserver.Tool{
		Name:         "submit_contribution",
		Description:  "Submit consultant output, redacted before it is stored",
		Category:     "contributions",
		RequiresAuth: true,
		InputSchema: toolserver.ObjectSchema(map[string]any{
			"engagement_id": toolserver.Prop("string", "Engagement id"),
			"text":          toolserver.Prop("string", "Raw contribution text"),
		}, "engagement_id", "text"),
		Handler: ts.handleSubmitContribution,
	})

	reg.Register(toolserver.Tool{
		Name:         "refine_contribution",
		Description:  "Polish a redacted contribution with the model",
		Category:     "contributions",
		RequiresAuth: true,
		InputSchema: toolserver.ObjectSchema(map[string]any{
			"engagement_id": toolserver.Prop("string", "Engagement id"),
			"text":          toolserver.Prop("string", "Text to refine"),
			"instructions":  toolserver.Prop("string", "Optional refinement instructions"),
		}, "engagement_id", "text"),
		Handler: ts.handleRefineContribution,
	})

	reg.Register(toolserver.Tool{
		Name:         "get_redaction_job",
		Description:  "Inspect a redaction job's state and findings",
		Category:     "contributions",
		RequiresAuth: true,
		InputSchema: toolserver.ObjectSchema(map[string]any{
			"job_id": toolserver.Prop("string", "Redaction job id"),
		}, "job_id"),
		Handler: ts.handleGetRedactionJob,
	})

	reg.Register(toolserver.Tool{
		Name:         "generate_transfer_pack",
		Description:  "Synthesize the engagement's handover document",
		Category:     "contributions",
		RequiresAuth: true,
		InputSchema: toolserver.ObjectSchema(map[string]any{
			"engagement_id": toolserver.Prop("string", "Engagement id"),
		}, "engagement_id"),
		Handler: ts.handleGenerateTransferPack,
	})

	reg.Register(toolserver.Tool{
		Name:         "get_transfer_pack",
		Description:  "Fetch the latest transfer pack for an engagement",
		Category:     "contributions",
		RequiresAuth: true,
		InputSchema: toolserver.ObjectSchema(map[string]any{
			"engagement_id": toolserver.Prop("string", "Engagement id"),
		}, "engagement_id"),
		Handler: ts.handleGetTransferPack,
	})

	reg.Register(toolserver.Tool{
		Name:         "create_checkout_session",
		Description:  "Start a Stripe checkout for an engagement",
		Category:     "billing",
		RequiresAuth: true,
		InputSchema: toolserver.ObjectSchema(map[string]any{
			"engagement_id": toolserver.Prop("string", "Engagement id"),
		}, "engagement_id"),
		Handler: ts.handleCreateCheckoutSession,
	})
}

func (ts *Toolset) handleSubmitContribution(ctx context.Context, args map[string]any, id *auth.Identity) (any, error) {
	eng, err := ts.memberEngagement(ctx, args, id)
	if err != nil {
		return nil, err
	}
	if eng.ConsultantID != id.UserID && id.Role != auth.RoleAdmin {
		return nil, toolserver.Errf(toolserver.CodeForbidden, "only the engaged consultant can contribute")
	}
	if eng.Status != hive.EngagementActive {
		return nil, toolserver.Errf(toolserver.CodeInvalidStatus, "engagement is %s, not active", eng.Status)
	}
	text := stringArg(args, "text")
	if text == "" {
		return nil, toolserver.Errf(toolserver.CodeInvalidInput, "text must not be empty")
	}

	job, err := ts.Store.CreateRedactionJob(ctx, eng.ID, id.UserID, text)
	if err != nil {
		return nil, err
	}
	job, err = ts.Agents.RedactContribution(ctx, job)
	if err != nil {
		return nil, err
	}

	contribID, err := ts.Store.AddContribution(ctx, eng.ID, id.UserID, job.RedactedText, job.ID)
	if err != nil {
		return nil, err
	}
	ts.Logger.Info("contribution stored", "engagement", eng.ID, "contribution", contribID,
		"job", job.ID, "manual_review", job.RequiresManualReview)
	return map[string]any{"contribution_id": contribID, "redaction_job": job}, nil
}

func (ts *Toolset) handleRefineContribution(ctx context.Context, args map[string]any, id *auth.Identity) (any, error) {
	if _, err := ts.memberEngagement(ctx, args, id); err != nil {
		return nil, err
	}
	text := stringArg(args, "text")
	if text == "" {
		return nil, toolserver.Errf(toolserver.CodeInvalidInput, "text must not be empty")
	}
	refined, err := ts.Agents.RefineContribution(ctx, text, stringArg(args, "instructions"))
	if err != nil {
		return nil, err
	}
	return map[string]any{"text": refined}, nil
}

func (ts *Toolset) handleGetRedactionJob(ctx context.Context, args map[string]any, id *auth.Identity) (any, error) {
	job, err := ts.Store.GetRedactionJob(ctx, stringArg(args, "job_id"))
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, toolserver.Errf(toolserver.CodeNotFound, "redaction job not found")
	}
	eng, err := ts.Store.GetEngagement(ctx, job.EngagementID)
	if err != nil {
		return nil, err
	}
	if eng == nil || (!eng.IsParticipant(id.UserID) && id.Role != auth.RoleAdmin) {
		return nil, toolserver.Errf(toolserver.CodeForbidden, "not a participant of this engagement")
	}
	return job, nil
}

func (ts *Toolset) handleGenerateTransferPack(ctx context.Context, args map[string]any, id *auth.Identity) (any, error) {
	eng, err := ts.memberEngagement(ctx, args, id)
	if err != nil {
		return nil, err
	}

	req, err := ts.Store.GetRequest(ctx, eng.RequestID)
	if err != nil {
		return nil, err
	}
	msgs, err := ts.Store.ListMessages(ctx, eng.ID)
	if err != nil {
		return nil, err
	}
	notes, err := ts.Store.ListNotes(ctx, eng.ID)
	if err != nil {
		return nil, err
	}
	checklist, err := ts.Store.ListChecklist(ctx, eng.ID)
	if err != nil {
		return nil, err
	}
	contribs, err := ts.Store.ListContributions(ctx, eng.ID)
	if err != nil {
		return nil, err
	}

	summary, content, err := ts.Agents.BuildTransferPack(ctx, agents.PackInput{
		Request:       req,
		Engagement:    eng,
		Messages:      msgs,
		Notes:         notes,
		Checklist:     checklist,
		Contributions: contribs,
	})
	if err != nil {
		return nil, err
	}

	packID, err := ts.Store.SaveTransferPack(ctx, eng.ID, summary, content)
	if err != nil {
		return nil, err
	}

	// Producing the handover marks the engagement delivered.
	if hive.CanEngagementTransition(eng.Status, hive.EngagementDelivered) {
		if err := ts.Store.UpdateEngagementStatus(ctx, eng.ID, hive.EngagementDelivered); err != nil {
			return nil, err
		}
		eng.Status = hive.EngagementDelivered
	}

	if client, err := ts.Store.GetUserByID(ctx, eng.ClientID); err == nil && client != nil {
		ts.Notifier.TransferPackReady(ctx, client, eng)
	}
	ts.Logger.Info("transfer pack generated", "engagement", eng.ID, "pack", packID)
	return map[string]any{
		"pack_id":           packID,
		"summary":           summary,
		"engagement_status": eng.Status,
	}, nil
}

func (ts *Toolset) handleGetTransferPack(ctx context.Context, args map[string]any, id *auth.Identity) (any, error) {
	eng, err := ts.memberEngagement(ctx, args, id)
	if err != nil {
		return nil, err
	}
	pack, err := ts.Store.GetTransferPack(ctx, eng.ID)
	if err != nil {
		return nil, err
	}
	if pack == nil {
		return nil, toolserver.Errf(toolserver.CodeNotFound, "no transfer pack generated yet")
	}
	return pack, nil
}

func (ts *Toolset) handleCreateCheckoutSession(ctx context.Context, args map[string]any, id *auth.Identity) (any, error) {
	eng, err := ts.memberEngagement(ctx, args, id)
	if err != nil {
		return nil, err
	}
	if eng.ClientID != id.UserID && id.Role != auth.RoleAdmin {
		return nil, toolserver.Errf(toolserver.CodeForbidden, "only the client pays for an engagement")
	}
	if eng.Paid {
		return nil, toolserver.Errf(toolserver.CodeInvalidStatus, "engagement is already paid")
	}
	if ts.Billing == nil || !ts.Billing.Enabled() {
		return nil, toolserver.Errf(toolserver.CodeExecution, "billing is not configured")
	}

	url, err := ts.Billing.CreateCheckoutSession(ctx, eng, id.Email)
	if err != nil {
		return nil, err
	}
	return map[string]any{"checkout_url": url}, nil
}
