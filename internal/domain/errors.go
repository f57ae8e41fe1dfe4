package domain

import "errors"

// Sentinel errors returned by repositories and use cases.
// The HTTP layer maps each of them to a status code and client message.
var (
	ErrNotFound            = errors.New("resource not found")
	ErrUserExists          = errors.New("user with this email or username already exists")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrAccountDeactivated  = errors.New("account is deactivated")
	ErrWrongPassword       = errors.New("current password is incorrect")
	ErrNoFieldsToUpdate    = errors.New("no valid fields to update")
	ErrDemoAccountExists   = errors.New("demo account already exists")
	ErrDemoAccountNotFound = errors.New("demo account not found")
	ErrDemoTradeNotFound   = errors.New("trade not found or already closed")
	ErrInsufficientMargin  = errors.New("insufficient margin")
	ErrTradingDisabled     = errors.New("trading is disabled")
	ErrMaxOpenTrades       = errors.New("maximum number of open trades reached")
	ErrUnknownInstrument   = errors.New("unknown instrument")
	ErrInvalidPair         = errors.New("invalid currency pair")
	ErrMissingBiasData     = errors.New("insufficient bias data for pair")
	ErrInvalidTransition   = errors.New("invalid progress transition")
	ErrAlreadyJoined       = errors.New("already joined this challenge")
	ErrChallengeNotActive  = errors.New("challenge not found or not active")
	ErrChallengeFull       = errors.New("challenge is full")
	ErrPaymentIncomplete   = errors.New("payment not completed")
	ErrNoSubscription      = errors.New("no active subscription found")
	ErrUnknownPlan         = errors.New("invalid plan selected")
	ErrBillingDisabled     = errors.New("billing is not configured")
	ErrInvalidSignature    = errors.New("invalid webhook signature")
)
