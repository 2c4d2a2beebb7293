package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"go-storefront/middleware"
	"go-storefront/models"
	"go-storefront/utils"
)

const maxBodyBytes = 1 << 20

// base carries what every controller needs: a logger and the per-request
// deadline for store calls.
type base struct {
	logger  *slog.Logger
	timeout time.Duration
}

func (b base) ctx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), b.timeout)
}

func (b base) fail(w http.ResponseWriter, r *http.Request, err error) {
	utils.RespondError(w, r, b.logger, err)
}

// decodeJSON reads a single JSON object into dst. Unknown fields are
// ignored; an empty body is allowed when allowEmpty is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) && allowEmpty {
			return nil
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return models.Invalid("request body too large")
		}
		return models.Invalid("invalid request body")
	}
	return nil
}

func pathID(r *http.Request, key string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(mux.Vars(r)[key])
	if err != nil {
		return primitive.NilObjectID, models.Invalid("invalid %s", key)
	}
	return id, nil
}

func currentUser(r *http.Request) (primitive.ObjectID, error) {
	id, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		return primitive.NilObjectID, models.Errorf(models.ErrUnauthorized, "authentication required")
	}
	return id, nil
}

// objectID parses an optional hex id from a request body field.
func objectID(field, hex string) (primitive.ObjectID, error) {
	if hex == "" {
		return primitive.NilObjectID, nil
	}
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, models.Invalid("invalid %s", field)
	}
	return id, nil
}
