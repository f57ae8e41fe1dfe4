package dto

// CreateSubscriptionRequest starts a checkout for a catalog plan
type CreateSubscriptionRequest struct {
	Plan       string `json:"plan" validate:"required,oneof=basic premium"`
	SuccessURL string `json:"success_url" validate:"required,url"`
	CancelURL  string `json:"cancel_url" validate:"required,url"`
}

// SubscriptionSuccessRequest confirms a paid checkout
type SubscriptionSuccessRequest struct {
	SessionID string `json:"session_id" validate:"required"`
}

// CheckoutResponse is returned after opening a catalog checkout
type CheckoutResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// CreateCheckoutSessionRequest starts a checkout for a provider price
type CreateCheckoutSessionRequest struct {
	PriceID    string `json:"priceId" validate:"required"`
	SuccessURL string `json:"successUrl" validate:"required"`
	CancelURL  string `json:"cancelUrl" validate:"required"`
}

// CheckoutSessionResponse is returned by the provider-price checkout route
type CheckoutSessionResponse struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}
