package models

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error kinds. Every error returned by the services wraps exactly one of
// these so the HTTP layer can pick a status code with errors.Is.
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrUnavailable       = errors.New("service temporarily unavailable")
)

var (
	ErrUserNotFound      error = &Error{Kind: ErrNotFound, Message: "user not found"}
	ErrProductNotFound   error = &Error{Kind: ErrNotFound, Message: "product not found"}
	ErrCategoryNotFound  error = &Error{Kind: ErrNotFound, Message: "category not found"}
	ErrCartNotFound      error = &Error{Kind: ErrNotFound, Message: "cart not found"}
	ErrCartItemNotFound  error = &Error{Kind: ErrNotFound, Message: "product not found in cart"}
	ErrOrderNotFound     error = &Error{Kind: ErrNotFound, Message: "order not found"}
	ErrEmailTaken        error = &Error{Kind: ErrConflict, Message: "email already registered"}
	ErrDuplicateCategory error = &Error{Kind: ErrConflict, Message: "category already exists"}
	ErrCategoryInUse     error = &Error{Kind: ErrConflict, Message: "category still has products"}
	ErrDuplicateReview   error = &Error{Kind: ErrConflict, Message: "you have already reviewed this product"}
	ErrNotPurchased      error = &Error{Kind: ErrForbidden, Message: "you can only review products you have purchased"}
	ErrBadCredentials    error = &Error{Kind: ErrUnauthorized, Message: "invalid email or password"}
	ErrInvalidToken      error = &Error{Kind: ErrUnauthorized, Message: "invalid or expired token"}
	ErrTokenUsed         error = &Error{Kind: ErrUnauthorized, Message: "reset token has already been used"}
)

// Error is a client-facing message classified under one of the error kinds.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

// Errorf builds an *Error of the given kind.
func Errorf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Invalid is shorthand for a validation error.
func Invalid(format string, args ...any) error {
	return Errorf(ErrValidation, format, args...)
}

// StockError reports the line item that could not be satisfied.
type StockError struct {
	ProductID primitive.ObjectID
	Name      string
	Requested int
	Available int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d", e.Name, e.Requested, e.Available)
}

func (e *StockError) Unwrap() error { return ErrInsufficientStock }
