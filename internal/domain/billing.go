package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Subscription statuses, mirroring the billing provider
const (
	SubscriptionPending   = "pending"
	SubscriptionActive    = "active"
	SubscriptionTrialing  = "trialing"
	SubscriptionPastDue   = "past_due"
	SubscriptionCancelled = "cancelled"
	SubscriptionCanceled  = "canceled"
)

// Payment session statuses
const (
	SessionPending   = "pending"
	SessionCompleted = "completed"
)

// Subscription is the local mirror of a provider subscription
type Subscription struct {
	ID                   uuid.UUID  `json:"id"`
	UserID               uuid.UUID  `json:"user_id"`
	StripeSubscriptionID string     `json:"stripe_subscription_id"`
	StripeCustomerID     *string    `json:"stripe_customer_id"`
	PlanType             string     `json:"plan_type"`
	Status               string     `json:"status"`
	CurrentPeriodStart   *time.Time `json:"current_period_start"`
	CurrentPeriodEnd     *time.Time `json:"current_period_end"`
	CancelAtPeriodEnd    bool       `json:"cancel_at_period_end"`
	CancelledAt          *time.Time `json:"cancelled_at"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// IsEntitled reports whether the status grants the paid tier
func (s *Subscription) IsEntitled() bool {
	return s.Status == SubscriptionActive || s.Status == SubscriptionTrialing
}

// PaymentSession records a checkout attempt
type PaymentSession struct {
	ID                    uuid.UUID `json:"id"`
	UserID                uuid.UUID `json:"user_id"`
	SessionID             string    `json:"session_id"`
	PlanType              string    `json:"plan_type"`
	Amount                int64     `json:"amount"`
	Status                string    `json:"status"`
	StripePaymentIntentID *string   `json:"stripe_payment_intent_id"`
	CreatedAt             time.Time `json:"created_at"`
}

// Plan is a purchasable tier
type Plan struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Amount      int64    `json:"amount"` // cents
	Currency    string   `json:"currency"`
	Interval    string   `json:"interval"`
	Features    []string `json:"features"`
}

// Plans is the public catalog
var Plans = map[string]Plan{
	TierBasic: {
		ID:          TierBasic,
		Name:        "Basic Plan",
		Description: "Essential trading tools and education",
		Amount:      2900,
		Currency:    "usd",
		Interval:    "month",
		Features: []string{
			"Trading journal with analytics",
			"Basic learning paths",
			"Community forum access",
			"Demo trading account",
			"Email support",
		},
	},
	TierPremium: {
		ID:          TierPremium,
		Name:        "Premium Plan",
		Description: "Advanced tools and personalized coaching",
		Amount:      7900,
		Currency:    "usd",
		Interval:    "month",
		Features: []string{
			"Everything in Basic",
			"Advanced learning paths",
			"Macro bias dashboard",
			"Trading challenges",
			"Advanced risk management",
			"Priority support",
		},
	},
}

// CheckoutRequest describes a subscription checkout to open with the provider
type CheckoutRequest struct {
	UserID     uuid.UUID
	Email      string
	CustomerID string // optional, preferred over Email
	Plan       string
	PriceID    string // optional; inline price data from Plans is used when empty
	SuccessURL string
	CancelURL  string
}

// CheckoutSession is the provider's view of a checkout
type CheckoutSession struct {
	ID              string
	URL             string
	Paid            bool
	CustomerID      string
	SubscriptionID  string
	PaymentIntentID string
	Metadata        map[string]string
}

// BillingSubscription is the provider's view of a subscription
type BillingSubscription struct {
	ID                 string
	CustomerID         string
	Status             string
	PriceID            string
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	CancelAtPeriodEnd  bool
	Metadata           map[string]string
}

// Billing event types handled by the webhook processor
const (
	EventCheckoutCompleted       = "checkout.session.completed"
	EventSubscriptionCreated     = "customer.subscription.created"
	EventSubscriptionUpdated     = "customer.subscription.updated"
	EventSubscriptionDeleted     = "customer.subscription.deleted"
	EventInvoicePaymentSucceeded = "invoice.payment_succeeded"
	EventInvoicePaymentFailed    = "invoice.payment_failed"
)

// BillingEvent is a verified webhook event
type BillingEvent struct {
	ID           string
	Type         string
	Session      *CheckoutSession
	Subscription *BillingSubscription
	// SubscriptionID is set for invoice events
	SubscriptionID string
}

// BillingGateway is the payment provider boundary
type BillingGateway interface {
	EnsureCustomer(ctx context.Context, existingID, email string, userID uuid.UUID) (string, error)
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	GetCheckout(ctx context.Context, sessionID string) (*CheckoutSession, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*BillingSubscription, error)
	CancelAtPeriodEnd(ctx context.Context, subscriptionID string) (*BillingSubscription, error)
	ParseWebhook(payload []byte, signature string) (*BillingEvent, error)
}
