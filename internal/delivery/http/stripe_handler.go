package http

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"priceactiontalk/internal/delivery/http/dto"
	"priceactiontalk/internal/middleware"
	"priceactiontalk/internal/usecase"
)

// StripeHandler handles checkout by provider price ID
type StripeHandler struct {
	billing *usecase.BillingService
}

// NewStripeHandler creates a new StripeHandler
func NewStripeHandler(billing *usecase.BillingService) *StripeHandler {
	return &StripeHandler{
		billing: billing,
	}
}

// CreateCheckoutSession opens a checkout for a price, creating the customer on first use
// POST /api/stripe/create-checkout-session
func (h *StripeHandler) CreateCheckoutSession(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	var req dto.CreateCheckoutSessionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	session, err := h.billing.CreateCheckoutSession(ctx, userID, req.PriceID, req.SuccessURL, req.CancelURL)
	if err != nil {
		return err
	}

	return SuccessResponse(c, dto.CheckoutSessionResponse{SessionID: session.ID, URL: session.URL})
}

// GetSubscription returns the active subscription with live provider data
// GET /api/stripe/subscription
func (h *StripeHandler) GetSubscription(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	sub, err := h.billing.LiveSubscription(ctx, userID)
	if err != nil {
		return err
	}

	return SuccessResponse(c, sub)
}

// CancelSubscription schedules the active subscription to end
// POST /api/stripe/cancel-subscription
func (h *StripeHandler) CancelSubscription(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	sub, err := h.billing.CancelSubscription(ctx, userID)
	if err != nil {
		return err
	}

	return SuccessMessageResponse(c, "Subscription will be cancelled at the end of the current period", sub)
}

// Webhook applies a signed provider event
// POST /api/stripe/webhook
func (h *StripeHandler) Webhook(c echo.Context) error {
	return processWebhook(c, h.billing)
}
