package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"priceactiontalk/internal/domain"
)

// DefaultBillingPeriod is assumed when the provider reports no period
const DefaultBillingPeriod = 30 * 24 * time.Hour

// Metadata keys attached to checkout sessions and subscriptions
const (
	MetadataUserID = "user_id"
	MetadataPlan   = "plan"
)

// LiveSubscription is the local subscription enriched with the provider's current view
type LiveSubscription struct {
	*domain.Subscription
	Live *domain.BillingSubscription `json:"live,omitempty"`
}

// BillingService handles plans, checkout, activation, cancellation and webhooks
type BillingService struct {
	gateway  domain.BillingGateway
	subs     domain.SubscriptionRepository
	users    domain.UserRepository
	priceIDs map[string]string // plan -> configured provider price ID
	now      func() time.Time
}

// NewBillingService creates a new BillingService
func NewBillingService(
	gateway domain.BillingGateway,
	subs domain.SubscriptionRepository,
	users domain.UserRepository,
	basicPriceID string,
	premiumPriceID string,
) *BillingService {
	return &BillingService{
		gateway: gateway,
		subs:    subs,
		users:   users,
		priceIDs: map[string]string{
			domain.TierBasic:   basicPriceID,
			domain.TierPremium: premiumPriceID,
		},
		now: time.Now,
	}
}

// Plans returns the public catalog, cheapest first
func (s *BillingService) Plans() []domain.Plan {
	return []domain.Plan{domain.Plans[domain.TierBasic], domain.Plans[domain.TierPremium]}
}

// PlanForPrice maps a configured provider price ID back to a plan, or "" when unknown
func (s *BillingService) PlanForPrice(priceID string) string {
	if priceID == "" {
		return ""
	}
	for plan, id := range s.priceIDs {
		if id == priceID {
			return plan
		}
	}
	return ""
}

// CurrentSubscription returns the user's latest subscription, or nil when there is none
func (s *BillingService) CurrentSubscription(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error) {
	sub, err := s.subs.LatestForUser(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return sub, err
}

// LiveSubscription returns the active subscription with the provider's live state when reachable
func (s *BillingService) LiveSubscription(ctx context.Context, userID uuid.UUID) (*LiveSubscription, error) {
	sub, err := s.subs.ActiveForUser(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	view := &LiveSubscription{Subscription: sub}
	live, err := s.gateway.GetSubscription(ctx, sub.StripeSubscriptionID)
	if err != nil {
		zlog.Warn().Err(err).Str("subscription", sub.StripeSubscriptionID).Msg("Live subscription lookup failed")
		return view, nil
	}
	view.Live = live
	return view, nil
}

// CreateSubscriptionCheckout opens a checkout for a catalog plan and records the pending session
func (s *BillingService) CreateSubscriptionCheckout(ctx context.Context, userID uuid.UUID, plan, successURL, cancelURL string) (*domain.CheckoutSession, error) {
	p, ok := domain.Plans[plan]
	if !ok {
		return nil, domain.ErrUnknownPlan
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	req := domain.CheckoutRequest{
		UserID:     userID,
		Email:      user.Email,
		Plan:       plan,
		SuccessURL: successURL,
		CancelURL:  cancelURL,
	}
	if user.StripeCustomerID != nil {
		req.CustomerID = *user.StripeCustomerID
	}

	session, err := s.gateway.CreateCheckout(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := s.subs.CreatePaymentSession(ctx, &domain.PaymentSession{
		UserID:    userID,
		SessionID: session.ID,
		PlanType:  plan,
		Amount:    p.Amount,
		Status:    domain.SessionPending,
	}); err != nil {
		return nil, err
	}

	zlog.Info().Str("user_id", userID.String()).Str("plan", plan).Str("session", session.ID).Msg("Checkout session created")
	return session, nil
}

// CreateCheckoutSession opens a checkout for a provider price, creating the customer on first use
func (s *BillingService) CreateCheckoutSession(ctx context.Context, userID uuid.UUID, priceID, successURL, cancelURL string) (*domain.CheckoutSession, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	existing := ""
	if user.StripeCustomerID != nil {
		existing = *user.StripeCustomerID
	}

	customerID, err := s.gateway.EnsureCustomer(ctx, existing, user.Email, userID)
	if err != nil {
		return nil, err
	}
	if customerID != existing {
		if err := s.users.SetStripeCustomerID(ctx, userID, customerID); err != nil {
			return nil, err
		}
	}

	plan := s.PlanForPrice(priceID)
	session, err := s.gateway.CreateCheckout(ctx, domain.CheckoutRequest{
		UserID:     userID,
		Email:      user.Email,
		CustomerID: customerID,
		Plan:       plan,
		PriceID:    priceID,
		SuccessURL: successURL,
		CancelURL:  cancelURL,
	})
	if err != nil {
		return nil, err
	}

	if p, ok := domain.Plans[plan]; ok {
		if err := s.subs.CreatePaymentSession(ctx, &domain.PaymentSession{
			UserID:    userID,
			SessionID: session.ID,
			PlanType:  plan,
			Amount:    p.Amount,
			Status:    domain.SessionPending,
		}); err != nil {
			return nil, err
		}
	}
	return session, nil
}

// ConfirmSubscription activates the plan bought in a paid checkout session
func (s *BillingService) ConfirmSubscription(ctx context.Context, userID uuid.UUID, sessionID string) (*domain.Subscription, error) {
	record, err := s.subs.GetPaymentSession(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}

	session, err := s.gateway.GetCheckout(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.Paid {
		return nil, domain.ErrPaymentIncomplete
	}

	start := s.now()
	end := start.Add(DefaultBillingPeriod)
	status := domain.SubscriptionActive
	subscriptionID := session.SubscriptionID

	if subscriptionID != "" {
		live, err := s.gateway.GetSubscription(ctx, subscriptionID)
		if err != nil {
			return nil, err
		}
		if !live.CurrentPeriodStart.IsZero() && !live.CurrentPeriodEnd.IsZero() {
			start, end = live.CurrentPeriodStart, live.CurrentPeriodEnd
		}
	} else {
		subscriptionID = session.ID
	}

	err = s.subs.Sync(ctx, domain.SubscriptionSync{
		UserID:               &userID,
		StripeSubscriptionID: subscriptionID,
		CustomerID:           session.CustomerID,
		Plan:                 record.PlanType,
		Status:               status,
		PeriodStart:          &start,
		PeriodEnd:            &end,
		SessionID:            session.ID,
		PaymentIntentID:      session.PaymentIntentID,
	})
	if err != nil {
		return nil, err
	}

	zlog.Info().Str("user_id", userID.String()).Str("plan", record.PlanType).Msg("Subscription activated")
	return s.subs.LatestForUser(ctx, userID)
}

// CancelSubscription schedules the active subscription to end with the current period
func (s *BillingService) CancelSubscription(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error) {
	sub, err := s.subs.ActiveForUser(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrNoSubscription
	}
	if err != nil {
		return nil, err
	}

	if _, err := s.gateway.CancelAtPeriodEnd(ctx, sub.StripeSubscriptionID); err != nil {
		return nil, err
	}
	if err := s.subs.MarkCancelled(ctx, sub.StripeSubscriptionID); err != nil {
		return nil, err
	}

	now := s.now()
	sub.Status = domain.SubscriptionCancelled
	sub.CancelAtPeriodEnd = true
	sub.CancelledAt = &now
	return sub, nil
}

// ProcessWebhook verifies and applies a provider event.
// Events that cannot be attributed to a user are logged and acknowledged.
func (s *BillingService) ProcessWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		return err
	}

	logger := zlog.With().Str("event_id", event.ID).Str("event_type", event.Type).Logger()

	switch event.Type {
	case domain.EventCheckoutCompleted:
		err = s.handleCheckoutCompleted(ctx, event.Session)
	case domain.EventSubscriptionCreated, domain.EventSubscriptionUpdated, domain.EventSubscriptionDeleted:
		err = s.handleSubscriptionChange(ctx, event.Subscription)
	case domain.EventInvoicePaymentSucceeded:
		logger.Info().Str("subscription", event.SubscriptionID).Msg("Invoice payment succeeded")
	case domain.EventInvoicePaymentFailed:
		if event.SubscriptionID != "" {
			err = s.subs.SetStatus(ctx, event.SubscriptionID, domain.SubscriptionPastDue)
		}
	default:
		logger.Debug().Msg("Unhandled webhook event")
	}

	if errors.Is(err, domain.ErrNotFound) {
		logger.Warn().Msg("Webhook event references an unknown user or subscription")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to process %s: %w", event.Type, err)
	}
	return nil
}

func (s *BillingService) handleCheckoutCompleted(ctx context.Context, session *domain.CheckoutSession) error {
	if session == nil || session.SubscriptionID == "" {
		return nil
	}

	sub, err := s.gateway.GetSubscription(ctx, session.SubscriptionID)
	if err != nil {
		return err
	}

	plan := session.Metadata[MetadataPlan]
	if plan == "" {
		plan = s.resolvePlan(sub)
	}
	if plan == "" {
		plan = domain.TierBasic
	}

	customerID := session.CustomerID
	if customerID == "" {
		customerID = sub.CustomerID
	}

	return s.subs.Sync(ctx, s.syncFor(sub, metadataUserID(session.Metadata), customerID, plan, session.ID, session.PaymentIntentID))
}

func (s *BillingService) handleSubscriptionChange(ctx context.Context, sub *domain.BillingSubscription) error {
	if sub == nil {
		return nil
	}
	return s.subs.Sync(ctx, s.syncFor(sub, metadataUserID(sub.Metadata), sub.CustomerID, s.resolvePlan(sub), "", ""))
}

func (s *BillingService) resolvePlan(sub *domain.BillingSubscription) string {
	if plan, ok := sub.Metadata[MetadataPlan]; ok && plan != "" {
		return plan
	}
	return s.PlanForPrice(sub.PriceID)
}

func (s *BillingService) syncFor(sub *domain.BillingSubscription, userID *uuid.UUID, customerID, plan, sessionID, paymentIntentID string) domain.SubscriptionSync {
	sync := domain.SubscriptionSync{
		UserID:               userID,
		StripeSubscriptionID: sub.ID,
		CustomerID:           customerID,
		Plan:                 plan,
		Status:               sub.Status,
		CancelAtPeriodEnd:    sub.CancelAtPeriodEnd,
		SessionID:            sessionID,
		PaymentIntentID:      paymentIntentID,
	}
	if !sub.CurrentPeriodStart.IsZero() {
		start := sub.CurrentPeriodStart
		sync.PeriodStart = &start
	}
	if !sub.CurrentPeriodEnd.IsZero() {
		end := sub.CurrentPeriodEnd
		sync.PeriodEnd = &end
	}
	return sync
}

func metadataUserID(metadata map[string]string) *uuid.UUID {
	id, err := uuid.Parse(metadata[MetadataUserID])
	if err != nil {
		return nil
	}
	return &id
}
