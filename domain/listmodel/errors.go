package listmodel

import (
	"errors"
	"fmt"
)

// Common errors for the list model
var (
	// ErrMissingEnvironment occurs when a list has no GUID for the active environment
	ErrMissingEnvironment = errors.New("no list GUID for environment")
	// ErrFieldNotFound occurs when a field name has no definition on the list
	ErrFieldNotFound = errors.New("field definition not found")
	// ErrItemHasID occurs when creating an item that already carries a server id
	ErrItemHasID = errors.New("new list item must not have an id")
	// ErrItemNotFound occurs when a saved item cannot be located in the decoded response
	ErrItemNotFound = errors.New("list item not found in response")
	// ErrInvalidEntity occurs when an entity without a positive id is cached
	ErrInvalidEntity = errors.New("invalid list item")
	// ErrQuotaExceeded is returned by Storage implementations when a write does not fit
	ErrQuotaExceeded = errors.New("storage quota exceeded")
	// ErrQueryNotFound occurs when executing a query that was never registered
	ErrQueryNotFound = errors.New("query not registered")
	// ErrNoModel occurs when an item without a model back-reference is saved
	ErrNoModel = errors.New("list item is not attached to a model")
)

// DecodeError reports a wire value that could not be converted for its field.
type DecodeError struct {
	Field string
	Value string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode field %s value %q: %v", e.Field, e.Value, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ServiceError is a SOAP fault or a failed batch result returned by SharePoint.
type ServiceError struct {
	Operation string
	Code      string
	Message   string
}

func (e *ServiceError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s failed (%s): %s", e.Operation, e.Code, e.Message)
	}
	return fmt.Sprintf("%s failed: %s", e.Operation, e.Message)
}

func missingEnvironment(list, environment string) error {
	return fmt.Errorf("list %s: %w %q", list, ErrMissingEnvironment, environment)
}

func fieldNotFound(list, field string) error {
	return fmt.Errorf("list %s: %w: %s", list, ErrFieldNotFound, field)
}
