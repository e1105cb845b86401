// Package billing integrates Stripe Checkout for engagement payments.
package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/checkout/session"
	"github.com/stripe/stripe-go/v81/webhook"

	"github.com/g95g95/Consulting-Hive-mind-sub001/internal/hive"
	"github.com/g95g95/Consulting-Hive-mind-sub001/internal/notify"
)

// Config holds the Stripe keys and redirect base.
type Config struct {
	SecretKey     string `yaml:"secret_key" json:"-" env:"STRIPE_SECRET_KEY"`
	WebhookSecret string `yaml:"webhook_secret" json:"-" env:"STRIPE_WEBHOOK_SECRET"`
	FrontendURL   string `yaml:"frontend_url" json:"frontend_url" env:"FRONTEND_URL"`
}

// Billing creates checkout sessions and processes webhook events.
type Billing struct {
	cfg      Config
	store    *hive.Store
	notifier *notify.Notifier
	logger   *slog.Logger
}

// New configures the global Stripe key and returns the billing layer.
func New(cfg Config, store *hive.Store, notifier *notify.Notifier) *Billing {
	stripe.Key = cfg.SecretKey
	if cfg.FrontendURL == "" {
		cfg.FrontendURL = "http://localhost:3000"
	}
	if notifier == nil {
		notifier = notify.New(nil)
	}
	return &Billing{
		cfg:      cfg,
		store:    store,
		notifier: notifier,
		logger:   slog.Default().With("component", "billing"),
	}
}

// Enabled reports whether a Stripe key is configured.
func (b *Billing) Enabled() bool {
	return b.cfg.SecretKey != ""
}

// CreateCheckoutSession starts a one-time payment for an engagement and
// returns the hosted checkout URL. The engagement id rides along as the
// client reference so the webhook can find it again.
func (b *Billing) CreateCheckoutSession(ctx context.Context, eng *hive.Engagement, customerEmail string) (string, error) {
	if !b.Enabled() {
		return "", fmt.Errorf("stripe is not configured")
	}
	if eng.AmountCents <= 0 {
		return "", fmt.Errorf("engagement %s has no amount to charge", eng.ID)
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		CustomerEmail:     stripe.String(customerEmail),
		ClientReferenceID: stripe.String(eng.ID),
		SuccessURL:        stripe.String(b.cfg.FrontendURL + "/engagements/" + eng.ID + "?checkout=success"),
		CancelURL:         stripe.String(b.cfg.FrontendURL + "/engagements/" + eng.ID + "?checkout=cancel"),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(string(stripe.CurrencyUSD)),
					UnitAmount: stripe.Int64(eng.AmountCents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String("Consulting engagement " + eng.ID),
					},
				},
			},
		},
	}
	params.Context = ctx

	sess, err := session.New(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return sess.URL, nil
}

// WebhookHandler verifies and processes Stripe events. Mounted on the
// REST server as POST /webhooks/stripe.
func (b *Billing) WebhookHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const maxBodyBytes = int64(65536)
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		payload, err := io.ReadAll(r.Body)
		if err != nil {
			b.logger.Error("read webhook body", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		event, err := webhook.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), b.cfg.WebhookSecret)
		if err != nil {
			b.logger.Error("verify webhook signature", "error", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		if event.Type == "checkout.session.completed" {
			var sess stripe.CheckoutSession
			if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
				b.logger.Error("parse webhook payload", "error", err)
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			b.handleCheckoutCompleted(r.Context(), &sess)
		}

		w.WriteHeader(http.StatusOK)
	}
}

func (b *Billing) handleCheckoutCompleted(ctx context.Context, sess *stripe.CheckoutSession) {
	engagementID := sess.ClientReferenceID
	if engagementID == "" {
		b.logger.Error("checkout session without engagement reference", "session", sess.ID)
		return
	}

	eng, err := b.store.GetEngagement(ctx, engagementID)
	if err != nil || eng == nil {
		b.logger.Error("engagement not found for checkout", "engagement", engagementID, "error", err)
		return
	}

	if err := b.store.MarkEngagementPaid(ctx, eng.ID); err != nil {
		b.logger.Error("mark engagement paid", "engagement", eng.ID, "error", err)
		return
	}

	// Remember the Stripe customer for future checkouts.
	if sess.Customer != nil && sess.Customer.ID != "" {
		if err := b.store.SetStripeCustomer(ctx, eng.ClientID, sess.Customer.ID); err != nil {
			b.logger.Error("record stripe customer", "user", eng.ClientID, "error", err)
		}
	}

	if consultant, err := b.store.GetUserByID(ctx, eng.ConsultantID); err == nil && consultant != nil {
		b.notifier.EngagementPaid(ctx, consultant, eng)
	}

	b.logger.Info("engagement paid", "engagement", eng.ID, "amount_cents", eng.AmountCents)
}
