package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"priceactiontalk/internal/domain"
)

// Response represents a standardized success response
type Response struct {
	Success    bool               `json:"success"`
	Data       interface{}        `json:"data"`
	Message    string             `json:"message,omitempty"`
	Pagination *domain.Pagination `json:"pagination,omitempty"`
}

// ErrorBody represents a standardized error response
type ErrorBody struct {
	Success bool          `json:"success"`
	Error   string        `json:"error"`
	Details []FieldDetail `json:"details,omitempty"`
	Detail  string        `json:"detail,omitempty"`
}

// FieldDetail describes one failed validation rule
type FieldDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// SuccessResponse sends a success response
func SuccessResponse(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

// SuccessMessageResponse sends a success response with a message
func SuccessMessageResponse(c echo.Context, message string, data interface{}) error {
	return c.JSON(http.StatusOK, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// CreatedResponse sends a 201 Created response
func CreatedResponse(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    data,
	})
}

// PaginatedResponse sends a page of results with its pagination metadata
func PaginatedResponse(c echo.Context, data interface{}, page domain.Page, total int) error {
	return c.JSON(http.StatusOK, Response{
		Success:    true,
		Data:       data,
		Pagination: page.Paginate(total),
	})
}

// ErrorResponse sends an error response
func ErrorResponse(c echo.Context, statusCode int, message string) error {
	return c.JSON(statusCode, ErrorBody{
		Success: false,
		Error:   message,
	})
}
