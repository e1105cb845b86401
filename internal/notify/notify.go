// Package notify emails marketplace participants about lifecycle
// events. Delivery is best effort: failures are logged and never
// propagate into the operation that triggered them.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/g95g95/Consulting-Hive-mind-sub001/internal/hive"
)

// Mailer sends a single message to one recipient.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Notifier formats and dispatches event mail. A nil mailer disables
// delivery entirely, which is the default in development.
type Notifier struct {
	mailer Mailer
	logger *slog.Logger
}

// New creates a notifier. Pass nil to disable delivery.
func New(mailer Mailer) *Notifier {
	return &Notifier{
		mailer: mailer,
		logger: slog.Default().With("component", "notify"),
	}
}

func (n *Notifier) send(ctx context.Context, to, subject, body string) {
	if n.mailer == nil || to == "" {
		return
	}
	if err := n.mailer.Send(ctx, to, subject, body); err != nil {
		n.logger.Error("notification failed", "to", to, "subject", subject, "error", err)
		return
	}
	n.logger.Info("notification sent", "to", to, "subject", subject)
}

// OfferReceived tells a client a consultant responded to their request.
func (n *Notifier) OfferReceived(ctx context.Context, client *hive.User, req *hive.Request, offer *hive.Offer) {
	n.send(ctx, client.Email,
		fmt.Sprintf("New offer on %q", req.Title),
		fmt.Sprintf("A consultant offered to take on %q for $%.2f.\n\n%s\n",
			req.Title, float64(offer.AmountCents)/100, offer.Message))
}

// OfferAccepted tells a consultant their offer was accepted.
func (n *Notifier) OfferAccepted(ctx context.Context, consultant *hive.User, req *hive.Request, eng *hive.Engagement) {
	n.send(ctx, consultant.Email,
		fmt.Sprintf("Your offer on %q was accepted", req.Title),
		fmt.Sprintf("The client accepted your offer. Engagement %s is now active at $%.2f.\n",
			eng.ID, float64(eng.AmountCents)/100))
}

// TransferPackReady tells a client the handover document was generated.
func (n *Notifier) TransferPackReady(ctx context.Context, client *hive.User, eng *hive.Engagement) {
	n.send(ctx, client.Email,
		"Your transfer pack is ready",
		fmt.Sprintf("The handover document for engagement %s has been generated.\n", eng.ID))
}

// EngagementPaid tells a consultant the client completed payment.
func (n *Notifier) EngagementPaid(ctx context.Context, consultant *hive.User, eng *hive.Engagement) {
	n.send(ctx, consultant.Email,
		"Engagement paid",
		fmt.Sprintf("Payment of $%.2f for engagement %s has cleared.\n",
			float64(eng.AmountCents)/100, eng.ID))
}
