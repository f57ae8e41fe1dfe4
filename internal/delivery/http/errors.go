package http

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/labstack/echo/v4"
	zlog "github.com/rs/zerolog/log"

	"priceactiontalk/internal/domain"
)

// ErrInvalidPayload is returned when the request body cannot be decoded
var ErrInvalidPayload = echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")

type errorMapping struct {
	status  int
	message string
}

// domainErrors maps use case sentinels to their HTTP status and client message
var domainErrors = []struct {
	err error
	errorMapping
}{
	{domain.ErrNotFound, errorMapping{http.StatusNotFound, "Resource not found"}},
	{domain.ErrUserExists, errorMapping{http.StatusBadRequest, "User with this email or username already exists"}},
	{domain.ErrInvalidCredentials, errorMapping{http.StatusUnauthorized, "Invalid email or password"}},
	{domain.ErrAccountDeactivated, errorMapping{http.StatusUnauthorized, "Account is deactivated"}},
	{domain.ErrWrongPassword, errorMapping{http.StatusBadRequest, "Current password is incorrect"}},
	{domain.ErrNoFieldsToUpdate, errorMapping{http.StatusBadRequest, "No valid fields to update"}},
	{domain.ErrDemoAccountExists, errorMapping{http.StatusBadRequest, "Demo account already exists"}},
	{domain.ErrDemoAccountNotFound, errorMapping{http.StatusNotFound, "Demo account not found"}},
	{domain.ErrDemoTradeNotFound, errorMapping{http.StatusNotFound, "Trade not found or already closed"}},
	{domain.ErrInsufficientMargin, errorMapping{http.StatusBadRequest, "Insufficient margin"}},
	{domain.ErrTradingDisabled, errorMapping{http.StatusForbidden, "Trading is disabled"}},
	{domain.ErrMaxOpenTrades, errorMapping{http.StatusBadRequest, "Maximum number of open trades reached"}},
	{domain.ErrUnknownInstrument, errorMapping{http.StatusBadRequest, "Unknown instrument"}},
	{domain.ErrInvalidPair, errorMapping{http.StatusBadRequest, "Invalid currency pair format"}},
	{domain.ErrMissingBiasData, errorMapping{http.StatusNotFound, "Insufficient bias data for pair analysis"}},
	{domain.ErrInvalidTransition, errorMapping{http.StatusBadRequest, "Invalid progress transition"}},
	{domain.ErrAlreadyJoined, errorMapping{http.StatusBadRequest, "Already joined this challenge"}},
	{domain.ErrChallengeNotActive, errorMapping{http.StatusNotFound, "Challenge not found or not active"}},
	{domain.ErrChallengeFull, errorMapping{http.StatusBadRequest, "Challenge is full"}},
	{domain.ErrPaymentIncomplete, errorMapping{http.StatusBadRequest, "Payment not completed"}},
	{domain.ErrNoSubscription, errorMapping{http.StatusNotFound, "No active subscription found"}},
	{domain.ErrUnknownPlan, errorMapping{http.StatusBadRequest, "Invalid plan selected"}},
	{domain.ErrBillingDisabled, errorMapping{http.StatusServiceUnavailable, "Billing is not configured"}},
	{domain.ErrInvalidSignature, errorMapping{http.StatusBadRequest, "Invalid webhook signature"}},
}

// Postgres error codes surfaced to clients
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// NewHTTPErrorHandler builds the central echo error handler.
// Outside production, 500 responses carry the error chain in detail.
func NewHTTPErrorHandler(production bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := mapError(err)
		if status >= http.StatusInternalServerError {
			zlog.Error().Err(err).
				Str("method", c.Request().Method).
				Str("path", c.Path()).
				Msg("Request failed")
			if !production && status == http.StatusInternalServerError {
				body.Detail = err.Error()
			}
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(status)
		} else {
			writeErr = c.JSON(status, body)
		}
		if writeErr != nil {
			zlog.Error().Err(writeErr).Msg("Failed to write error response")
		}
	}
}

func mapError(err error) (int, ErrorBody) {
	body := ErrorBody{Success: false}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		body.Error = "Validation error"
		body.Details = validationDetails(verrs)
		return http.StatusBadRequest, body
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		switch {
		case he == echo.ErrNotFound:
			body.Error = "Route not found"
		case he.Code == http.StatusBadRequest && he.Internal != nil:
			// bind failures from echo carry the decoder error internally
			body.Error = "Invalid request payload"
		default:
			body.Error = fmt.Sprint(he.Message)
		}
		return he.Code, body
	}

	for _, m := range domainErrors {
		if errors.Is(err, m.err) {
			body.Error = m.message
			return m.status, body
		}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			body.Error = "Duplicate entry"
			return http.StatusBadRequest, body
		case pgForeignKeyViolation:
			body.Error = "Referenced record not found"
			return http.StatusBadRequest, body
		}
	}

	body.Error = "Internal server error"
	return http.StatusInternalServerError, body
}

func validationDetails(verrs validator.ValidationErrors) []FieldDetail {
	details := make([]FieldDetail, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, FieldDetail{
			Field:   fe.Field(),
			Message: validationMessage(fe),
		})
	}
	return details
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email", fe.Field())
	case "min", "gte":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max", "lte":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	case "len":
		return fmt.Sprintf("%s must be %s characters long", fe.Field(), fe.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", fe.Field())
	case "uuid":
		return fmt.Sprintf("%s must be a valid UUID", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
