package store

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"go-storefront/models"
)

const maxCommitAttempts = 3

type TxOptions struct {
	MaxRetries int
}

func DefaultTxOptions() TxOptions {
	return TxOptions{MaxRetries: 3}
}

// WithTransaction runs fn in a multi-document transaction and retries the
// whole attempt on transient errors such as write conflicts, with jittered
// exponential backoff. Errors from fn that are not transient abort and are
// returned unchanged.
func (m *Mongo) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	sess, err := m.client.StartSession()
	if err != nil {
		return wrap("start session", err)
	}
	defer sess.EndSession(context.WithoutCancel(ctx))

	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	var lastErr error
	backoff := 50 * time.Millisecond

	for attempt := 0; attempt <= m.tx.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return wrap("transaction", err)
		}

		err := mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
			if err := sc.StartTransaction(txnOpts); err != nil {
				return fmt.Errorf("start transaction: %w", err)
			}
			if err := fn(sc); err != nil {
				_ = sc.AbortTransaction(context.WithoutCancel(sc))
				return err
			}
			return commit(sc)
		})
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return err
		}
		lastErr = err

		jitter := time.Duration(rand.Int63n(int64(backoff / 4)))
		select {
		case <-time.After(backoff + jitter):
		case <-ctx.Done():
			return wrap("transaction", ctx.Err())
		}
		backoff *= 2
	}

	return fmt.Errorf("max retries (%d) exceeded: %w: %w", m.tx.MaxRetries, models.ErrUnavailable, lastErr)
}

func commit(sc mongo.SessionContext) error {
	var err error
	for attempt := 0; attempt < maxCommitAttempts; attempt++ {
		err = sc.CommitTransaction(sc)
		if err == nil {
			return nil
		}
		var se mongo.ServerError
		if !errors.As(err, &se) || !se.HasErrorLabel(labelUnknownCommitResult) {
			break
		}
	}
	return fmt.Errorf("commit transaction: %w", err)
}
