package util

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// DomainError standardizes application errors. Persistence and internal
// failures carry a correlation id instead of the raw underlying error text;
// the wrapped error is only ever logged server-side.
type DomainError struct {
	Code          string
	Message       string
	HTTPStatus    int
	Details       map[string]any
	CorrelationID string
	Err           error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthenticated(message string) error {
	return NewDomainError("UNAUTHENTICATED", message, http.StatusUnauthorized, nil)
}

func NewAccountInactive() error {
	return NewDomainError("ACCOUNT_INACTIVE", "account is deactivated", http.StatusForbidden, nil)
}

// NewForbidden names the roles actually required so a caller can self-correct.
func NewForbidden(message string, requiredRoles []string) error {
	var details map[string]any
	if len(requiredRoles) > 0 {
		details = map[string]any{"required_roles": requiredRoles}
	}
	return NewDomainError("FORBIDDEN", message, http.StatusForbidden, details)
}

func NewInvalidTransition(current string, requested string, allowed []string) error {
	return NewDomainError("INVALID_TRANSITION",
		fmt.Sprintf("cannot transition from %s to %s", current, requested),
		http.StatusUnprocessableEntity,
		map[string]any{
			"current_status":   current,
			"requested_status": requested,
			"allowed_statuses": allowed,
		})
}

func NewTerminalState(current string) error {
	return NewDomainError("TERMINAL_STATE",
		fmt.Sprintf("shipment is in terminal state %s", current),
		http.StatusUnprocessableEntity,
		map[string]any{"current_status": current})
}

func NewNotAssigned(shipmentID string) error {
	return NewDomainError("NOT_ASSIGNED",
		"caller is not the assigned driver for this shipment",
		http.StatusForbidden,
		map[string]any{"shipment_id": shipmentID})
}

func NewInvalidCoordinates(latitude, longitude float64) error {
	return NewDomainError("INVALID_COORDINATES",
		"latitude must be within [-90, 90] and longitude within [-180, 180]",
		http.StatusBadRequest,
		map[string]any{"latitude": latitude, "longitude": longitude})
}

func NewDriverUnavailable(driverID string) error {
	return NewDomainError("DRIVER_UNAVAILABLE",
		"target driver is inactive or not a driver",
		http.StatusConflict,
		map[string]any{"driver_id": driverID})
}

func NewConsumerNotFound(consumerID string) error {
	return NewDomainError("CONSUMER_NOT_FOUND",
		"consumer reference does not resolve to an active consumer",
		http.StatusNotFound,
		map[string]any{"consumer_id": consumerID})
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError("CONFLICT", message, http.StatusConflict, details)
}

func NewTimeout(err error) error {
	return &DomainError{
		Code:          "TIMEOUT",
		Message:       "persistence operation timed out",
		HTTPStatus:    http.StatusGatewayTimeout,
		CorrelationID: uuid.NewString(),
		Err:           err,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:          "INTERNAL_ERROR",
		Message:       "internal server error",
		HTTPStatus:    http.StatusInternalServerError,
		CorrelationID: uuid.NewString(),
		Err:           err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		if de, ok := NewNotFound("resource", nil).(*DomainError); ok {
			return de
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		if de, ok := NewTimeout(err).(*DomainError); ok {
			return de
		}
	}
	if de, ok := NewInternalError(err).(*DomainError); ok {
		return de
	}
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// MapError converts generic errors for return to callers.
func MapError(err error) error {
	return ToDomainError(err)
}
