package tools

import (
	"context"
	"errors"

	"github.com/g95g95/Consulting-Hive-mind-sub001/internal/hive"
	"github.com/g95g95/Consulting-Hive-mind-sub001/pkg/auth"
	"github.com/g95g95/Consulting-Hive-mind-sub001/pkg/toolserver"
)

func (ts *Toolset) registerOffers(reg *toolserver.Registry) {
	reg.Register(toolserver.Tool{
		Name:         "create_offer",
		Description:  "Offer to take on an open request",
		Category:     "offers",
		RequiresAuth: true,
		InputSchema: toolserver.ObjectSchema(map[string]any{
			"request_id":   toolserver.Prop("integer", "Request to offer on"),
			"message":      toolserver.Prop("string", "Pitch to the client"),
			"amount_cents": toolserver.Prop("integer", "Proposed total in cents"),
		}, "request_id", "amount_cents"),
		Handler: ts.handleCreateOffer,
	})

	reg.Register(toolserver.Tool{
		Name:         "list_offers",
		Description:  "List offers on a request",
		Category:     "offers",
		RequiresAuth: true,
		InputSchema: toolserver.ObjectSchema(map[string]any{
			"request_id": toolserver.Prop("integer", "Request id"),
		}, "request_id"),
		Handler: ts.handleListOffers,
	})

	reg.Register(toolserver.Tool{
		Name:         "accept_offer",
		Description:  "Accept an offer, creating an engagement",
		Category:     "offers",
		RequiresAuth: true,
		InputSchema: toolserver.ObjectSchema(map[string]any{
			"offer_id": toolserver.Prop("integer", "Offer to accept"),
		}, "offer_id"),
		Handler: ts.handleAcceptOffer,
	})

	reg.Register(toolserver.Tool{
		Name:         "decline_offer",
		Description:  "Decline an offer, or withdraw your own",
		Category:     "offers",
		RequiresAuth: true,
		InputSchema: toolserver.ObjectSchema(map[string]any{
			"offer_id": toolserver.Prop("integer", "Offer to decline"),
		}, "offer_id"),
		Handler: ts.handleDeclineOffer,
	})
}

func (ts *Toolset) handleCreateOffer(ctx context.Context, args map[string]any, id *auth.Identity) (any, error) {
	user, err := ts.Store.GetUserByID(ctx, id.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil || (user.Role != auth.RoleConsultant && user.Role != auth.RoleAdmin) {
		return nil, toolserver.Errf(toolserver.CodeForbidden, "only consultants can make offers")
	}

	req, err := ts.Store.GetRequest(ctx, int64Arg(args, "request_id"))
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, toolserver.Errf(toolserver.CodeNotFound, "request not found")
	}
	if req.Status != hive.RequestOpen {
		return nil, toolserver.Errf(toolserver.CodeInvalidStatus, "request is %s, not open", req.Status)
	}
	if req.ClientID == id.UserID {
		return nil, toolserver.Errf(toolserver.CodeForbidden, "cannot offer on your own request")
	}

	amount := int64Arg(args, "amount_cents")
	if amount <= 0 {
		return nil, toolserver.Errf(toolserver.CodeInvalidInput, "amount_cents must be positive")
	}

	offerID, err := ts.Store.CreateOffer(ctx, req.ID, id.UserID, stringArg(args, "message"), amount)
	if err != nil {
		if errors.Is(err, hive.ErrDuplicateOffer) {
			return nil, toolserver.Errf(toolserver.CodeAlreadyExists, "you already offered on this request")
		}
		return nil, err
	}
	offer, err := ts.Store.GetOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}

	if client, err := ts.Store.GetUserByID(ctx, req.ClientID); err == nil && client != nil {
		ts.Notifier.OfferReceived(ctx, client, req, offer)
	}
	ts.Logger.Info("offer created", "offer", offerID, "request", req.ID, "consultant", id.UserID)
	return offer, nil
}

func (ts *Toolset) handleListOffers(ctx context.Context, args map[string]any, id *auth.Identity) (any, error) {
	req, err := ts.Store.GetRequest(ctx, int64Arg(args, "request_id"))
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, toolserver.Errf(toolserver.CodeNotFound, "request not found")
	}

	offers, err := ts.Store.ListOffersByRequest(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if req.ClientID == id.UserID || id.Role == auth.RoleAdmin {
		return map[string]any{"offers": offers}, nil
	}
	// Consultants only see their own offers on someone else's request.
	var own []hive.Offer
	for _, o := range offers {
		if o.ConsultantID == id.UserID {
			own = append(own, o)
		}
	}
	return map[string]any{"offers": own}, nil
}

func (ts *Toolset) handleAcceptOffer(ctx context.Context, args map[string]any, id *auth.Identity) (any, error) {
	offer, req, err := ts.offerWithRequest(ctx, args)
	if err != nil {
		return nil, err
	}
	if req.ClientID != id.UserID && id.Role != auth.RoleAdmin {
		return nil, toolserver.Errf(toolserver.CodeForbidden, "only the request owner can accept offers")
	}
	if offer.Status != hive.OfferPending {
		return nil, toolserver.Errf(toolserver.CodeInvalidStatus, "offer is %s, not pending", offer.Status)
	}

	eng, err := ts.Store.AcceptOffer(ctx, offer, req.ClientID)
	if err != nil {
		return nil, err
	}

	if consultant, err := ts.Store.GetUserByID(ctx, offer.ConsultantID); err == nil && consultant != nil {
		ts.Notifier.OfferAccepted(ctx, consultant, req, eng)
	}
	ts.Logger.Info("offer accepted", "offer", offer.ID, "engagement", eng.ID)
	return eng, nil
}

func (ts *Toolset) handleDeclineOffer(ctx context.Context, args map[string]any, id *auth.Identity) (any, error) {
	offer, req, err := ts.offerWithRequest(ctx, args)
	if err != nil {
		return nil, err
	}

	var target string
	switch {
	case req.ClientID == id.UserID || id.Role == auth.RoleAdmin:
		target = hive.OfferDeclined
	case offer.ConsultantID == id.UserID:
		target = hive.OfferWithdrawn
	default:
		return nil, toolserver.Errf(toolserver.CodeForbidden, "not your offer")
	}
	if offer.Status != hive.OfferPending {
		return nil, toolserver.Errf(toolserver.CodeInvalidStatus, "offer is %s, not pending", offer.Status)
	}

	if err := ts.Store.UpdateOfferStatus(ctx, offer.ID, target); err != nil {
		return nil, err
	}
	offer.Status = target
	return offer, nil
}

func (ts *Toolset) offerWithRequest(ctx context.Context, args map[string]any) (*hive.Offer, *hive.Request, error) {
	offer, err := ts.Store.GetOffer(ctx, int64Arg(args, "offer_id"))
	if err != nil {
		return nil, nil, err
	}
	if offer == nil {
		return nil, nil, toolserver.Errf(toolserver.CodeNotFound, "offer not found")
	}
	req, err := ts.Store.GetRequest(ctx, offer.RequestID)
	if err != nil {
		return nil, nil, err
	}
	if req == nil {
		return nil, nil, toolserver.Errf(toolserver.CodeNotFound, "request not found")
	}
	return offer, req, nil
}
