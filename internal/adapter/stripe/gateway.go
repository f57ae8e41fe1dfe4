package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	stripeapi "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"priceactiontalk/internal/domain"
)

const metadataUserID = "user_id"
const metadataPlan = "plan"

// Gateway implements domain.BillingGateway on top of the Stripe API
type Gateway struct {
	api           *client.API
	webhookSecret string
}

// NewGateway creates a Stripe gateway. With an empty secret key every call returns ErrBillingDisabled.
func NewGateway(secretKey, webhookSecret string) domain.BillingGateway {
	g := &Gateway{webhookSecret: webhookSecret}
	if secretKey != "" {
		g.api = &client.API{}
		g.api.Init(secretKey, nil)
	}
	return g
}

func (g *Gateway) enabled() error {
	if g.api == nil {
		return domain.ErrBillingDisabled
	}
	return nil
}

// EnsureCustomer returns existingID, or creates a customer tagged with the user ID
func (g *Gateway) EnsureCustomer(ctx context.Context, existingID, email string, userID uuid.UUID) (string, error) {
	if err := g.enabled(); err != nil {
		return "", err
	}
	if existingID != "" {
		return existingID, nil
	}

	params := &stripeapi.CustomerParams{Email: stripeapi.String(email)}
	params.Context = ctx
	params.AddMetadata(metadataUserID, userID.String())

	customer, err := g.api.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create customer: %w", err)
	}
	return customer.ID, nil
}

// CreateCheckout opens a subscription checkout session
func (g *Gateway) CreateCheckout(ctx context.Context, req domain.CheckoutRequest) (*domain.CheckoutSession, error) {
	if err := g.enabled(); err != nil {
		return nil, err
	}

	lineItem := &stripeapi.CheckoutSessionLineItemParams{Quantity: stripeapi.Int64(1)}
	if req.PriceID != "" {
		lineItem.Price = stripeapi.String(req.PriceID)
	} else {
		plan, ok := domain.Plans[req.Plan]
		if !ok {
			return nil, domain.ErrUnknownPlan
		}
		lineItem.PriceData = &stripeapi.CheckoutSessionLineItemPriceDataParams{
			Currency: stripeapi.String(plan.Currency),
			ProductData: &stripeapi.CheckoutSessionLineItemPriceDataProductDataParams{
				Name:        stripeapi.String(plan.Name),
				Description: stripeapi.String(plan.Description),
			},
			UnitAmount: stripeapi.Int64(plan.Amount),
			Recurring: &stripeapi.CheckoutSessionLineItemPriceDataRecurringParams{
				Interval: stripeapi.String(plan.Interval),
			},
		}
	}

	metadata := map[string]string{metadataUserID: req.UserID.String()}
	if req.Plan != "" {
		metadata[metadataPlan] = req.Plan
	}

	params := &stripeapi.CheckoutSessionParams{
		Mode:               stripeapi.String(string(stripeapi.CheckoutSessionModeSubscription)),
		PaymentMethodTypes: stripeapi.StringSlice([]string{"card"}),
		LineItems:          []*stripeapi.CheckoutSessionLineItemParams{lineItem},
		SuccessURL:         stripeapi.String(req.SuccessURL),
		CancelURL:          stripeapi.String(req.CancelURL),
		SubscriptionData: &stripeapi.CheckoutSessionSubscriptionDataParams{
			Metadata: metadata,
		},
	}
	if req.CustomerID != "" {
		params.Customer = stripeapi.String(req.CustomerID)
	} else {
		params.CustomerEmail = stripeapi.String(req.Email)
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	session, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}
	return toCheckoutSession(session), nil
}

// GetCheckout retrieves a checkout session
func (g *Gateway) GetCheckout(ctx context.Context, sessionID string) (*domain.CheckoutSession, error) {
	if err := g.enabled(); err != nil {
		return nil, err
	}

	params := &stripeapi.CheckoutSessionParams{}
	params.Context = ctx
	session, err := g.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve checkout session: %w", err)
	}
	return toCheckoutSession(session), nil
}

// GetSubscription retrieves a subscription
func (g *Gateway) GetSubscription(ctx context.Context, subscriptionID string) (*domain.BillingSubscription, error) {
	if err := g.enabled(); err != nil {
		return nil, err
	}

	params := &stripeapi.SubscriptionParams{}
	params.Context = ctx
	sub, err := g.api.Subscriptions.Get(subscriptionID, params)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve subscription: %w", err)
	}
	return toBillingSubscription(sub), nil
}

// CancelAtPeriodEnd schedules the subscription to end with its current period
func (g *Gateway) CancelAtPeriodEnd(ctx context.Context, subscriptionID string) (*domain.BillingSubscription, error) {
	if err := g.enabled(); err != nil {
		return nil, err
	}

	params := &stripeapi.SubscriptionParams{CancelAtPeriodEnd: stripeapi.Bool(true)}
	params.Context = ctx
	sub, err := g.api.Subscriptions.Update(subscriptionID, params)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel subscription: %w", err)
	}
	return toBillingSubscription(sub), nil
}

// ParseWebhook verifies the signature and decodes the event object
func (g *Gateway) ParseWebhook(payload []byte, signature string) (*domain.BillingEvent, error) {
	if g.webhookSecret == "" {
		return nil, domain.ErrBillingDisabled
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
	}

	out := &domain.BillingEvent{ID: event.ID, Type: string(event.Type)}

	switch out.Type {
	case domain.EventCheckoutCompleted:
		var session stripeapi.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return nil, fmt.Errorf("failed to decode checkout session: %w", err)
		}
		out.Session = toCheckoutSession(&session)

	case domain.EventSubscriptionCreated, domain.EventSubscriptionUpdated, domain.EventSubscriptionDeleted:
		var sub stripeapi.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("failed to decode subscription: %w", err)
		}
		out.Subscription = toBillingSubscription(&sub)

	case domain.EventInvoicePaymentSucceeded, domain.EventInvoicePaymentFailed:
		var invoice stripeapi.Invoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			return nil, fmt.Errorf("failed to decode invoice: %w", err)
		}
		if invoice.Subscription != nil {
			out.SubscriptionID = invoice.Subscription.ID
		}
	}

	return out, nil
}

func toCheckoutSession(s *stripeapi.CheckoutSession) *domain.CheckoutSession {
	out := &domain.CheckoutSession{
		ID:       s.ID,
		URL:      s.URL,
		Paid:     s.PaymentStatus == stripeapi.CheckoutSessionPaymentStatusPaid,
		Metadata: s.Metadata,
	}
	if s.Customer != nil {
		out.CustomerID = s.Customer.ID
	}
	if s.Subscription != nil {
		out.SubscriptionID = s.Subscription.ID
	}
	if s.PaymentIntent != nil {
		out.PaymentIntentID = s.PaymentIntent.ID
	}
	return out
}

func toBillingSubscription(s *stripeapi.Subscription) *domain.BillingSubscription {
	out := &domain.BillingSubscription{
		ID:                s.ID,
		Status:            string(s.Status),
		CancelAtPeriodEnd: s.CancelAtPeriodEnd,
		Metadata:          s.Metadata,
	}
	if s.Customer != nil {
		out.CustomerID = s.Customer.ID
	}
	if s.CurrentPeriodStart > 0 {
		out.CurrentPeriodStart = time.Unix(s.CurrentPeriodStart, 0).UTC()
	}
	if s.CurrentPeriodEnd > 0 {
		out.CurrentPeriodEnd = time.Unix(s.CurrentPeriodEnd, 0).UTC()
	}
	if s.Items != nil && len(s.Items.Data) > 0 && s.Items.Data[0].Price != nil {
		out.PriceID = s.Items.Data[0].Price.ID
	}
	return out
}
