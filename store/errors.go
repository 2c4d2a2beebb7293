package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"go-storefront/models"
)

type ErrorClass int

const (
	ErrorClassPermanent ErrorClass = iota
	ErrorClassTransient
	ErrorClassUnavailable
	ErrorClassDuplicate
)

const (
	labelTransientTransaction = "TransientTransactionError"
	labelUnknownCommitResult  = "UnknownTransactionCommitResult"
	codeWriteConflict         = 112
)

// ClassifyError sorts driver errors into the classes the transaction helper
// and the HTTP layer care about.
func ClassifyError(err error) ErrorClass {
	if err == nil {
		return ErrorClassPermanent
	}

	if mongo.IsDuplicateKeyError(err) {
		return ErrorClassDuplicate
	}

	var se mongo.ServerError
	if errors.As(err, &se) {
		if se.HasErrorLabel(labelTransientTransaction) || se.HasErrorCode(codeWriteConflict) {
			return ErrorClassTransient
		}
	}

	if mongo.IsTimeout(err) || mongo.IsNetworkError(err) || errors.Is(err, context.DeadlineExceeded) {
		return ErrorClassUnavailable
	}

	return ErrorClassPermanent
}

func IsRetryable(err error) bool {
	return ClassifyError(err) == ErrorClassTransient
}

// wrap annotates a driver error with the operation. Timeouts and network
// failures additionally match models.ErrUnavailable.
func wrap(op string, err error) error {
	if ClassifyError(err) == ErrorClassUnavailable {
		return fmt.Errorf("%s: %w: %w", op, models.ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
