// Package apperr defines the error kinds used across the exchange
// simulator core, grounded on the original implementation's
// src/common/exceptions.py hierarchy: NotEnoughBalance and NotFoundOrder
// are both InvalidOrder, so callers that only check for InvalidOrder still
// catch the more specific cases.
package apperr

import "errors"

// InvalidOrder signals that an order could not be admitted or transitioned:
// unknown portfolio, a netting violation, or a cancel of a non-ACTIVE order.
// It maps to HTTP 400 at the API boundary.
type InvalidOrder struct {
	Msg string
}

func (e *InvalidOrder) Error() string { return e.Msg }

// NewInvalidOrder builds an InvalidOrder with the given message.
func NewInvalidOrder(msg string) *InvalidOrder { return &InvalidOrder{Msg: msg} }

// NotEnoughBalance is an InvalidOrder raised when check_available_qty fails.
type NotEnoughBalance struct {
	InvalidOrder
}

func NewNotEnoughBalance(msg string) *NotEnoughBalance {
	return &NotEnoughBalance{InvalidOrder{Msg: msg}}
}

// NotFoundOrder is an InvalidOrder raised when cancelling an unknown order id.
type NotFoundOrder struct {
	InvalidOrder
}

func NewNotFoundOrder(msg string) *NotFoundOrder {
	return &NotFoundOrder{InvalidOrder{Msg: msg}}
}

// APIError signals a failure in an external collaborator (the price oracle).
// Engines log it and continue the next tick rather than propagating it.
type APIError struct {
	Msg string
	Err error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *APIError) Unwrap() error { return e.Err }

// NewAPIError wraps err with a message describing the failed collaborator call.
func NewAPIError(msg string, err error) *APIError {
	return &APIError{Msg: msg, Err: err}
}

// IsInvalidOrder reports whether err is an InvalidOrder or one of its
// subtypes (NotEnoughBalance, NotFoundOrder).
func IsInvalidOrder(err error) bool {
	var invalid *InvalidOrder
	var notEnough *NotEnoughBalance
	var notFound *NotFoundOrder
	return errors.As(err, &invalid) || errors.As(err, &notEnough) || errors.As(err, &notFound)
}
