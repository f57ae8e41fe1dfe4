package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"priceactiontalk/internal/delivery/http/dto"
	"priceactiontalk/internal/domain"
	"priceactiontalk/internal/middleware"
	"priceactiontalk/internal/usecase"
)

// PaymentHandler handles plan checkout and subscription management
type PaymentHandler struct {
	billing *usecase.BillingService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(billing *usecase.BillingService) *PaymentHandler {
	return &PaymentHandler{
		billing: billing,
	}
}

// GetPlans returns the public plan catalog
// GET /api/payments/plans
func (h *PaymentHandler) GetPlans(c echo.Context) error {
	return SuccessResponse(c, h.billing.Plans())
}

// GetSubscription returns the latest subscription or null
// GET /api/payments/subscription
func (h *PaymentHandler) GetSubscription(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	sub, err := h.billing.CurrentSubscription(ctx, userID)
	if err != nil {
		return err
	}

	return SuccessResponse(c, sub)
}

// CreateSubscription opens a checkout for a plan
// POST /api/payments/create-subscription
func (h *PaymentHandler) CreateSubscription(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	var req dto.CreateSubscriptionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	session, err := h.billing.CreateSubscriptionCheckout(ctx, userID, req.Plan, req.SuccessURL, req.CancelURL)
	if err != nil {
		return err
	}

	return SuccessResponse(c, dto.CheckoutResponse{SessionID: session.ID, URL: session.URL})
}

// SubscriptionSuccess activates the plan of a paid checkout
// POST /api/payments/subscription-success
func (h *PaymentHandler) SubscriptionSuccess(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	var req dto.SubscriptionSuccessRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	sub, err := h.billing.ConfirmSubscription(ctx, userID, req.SessionID)
	if err != nil {
		return err
	}

	return SuccessMessageResponse(c, "Subscription activated successfully", sub)
}

// CancelSubscription schedules the active subscription to end
// POST /api/payments/cancel-subscription
func (h *PaymentHandler) CancelSubscription(c echo.Context) error {
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
// POST /api/payments/webhook
func (h *PaymentHandler) Webhook(c echo.Context) error {
	return processWebhook(c, h.billing)
}

// processWebhook reads the raw body and hands it to the billing service.
// Bad signatures are answered with 400 and processing failures with 500 so the provider retries.
func processWebhook(c echo.Context, billing *usecase.BillingService) error {
	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return ErrInvalidPayload
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	err = billing.ProcessWebhook(ctx, payload, c.Request().Header.Get("Stripe-Signature"))
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrInvalidSignature), errors.Is(err, domain.ErrBillingDisabled):
		return err
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "Webhook handler failed").SetInternal(err)
	}

	return c.JSON(http.StatusOK, map[string]bool{"received": true})
}
