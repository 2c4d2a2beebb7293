package services

import (
	"errors"

	"go-storefront/models"
)

// isClientError reports whether err describes bad input rather than a
// backend failure.
func isClientError(err error) bool {
	return errors.Is(err, models.ErrValidation) ||
		errors.Is(err, models.ErrNotFound) ||
		errors.Is(err, models.ErrConflict)
}
