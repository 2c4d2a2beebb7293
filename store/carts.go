package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"go-storefront/models"
)

// upsertAttempts bounds the loop when two requests race to create the same
// cart or line.
const upsertAttempts = 3

// CartStore applies every mutation as a single-document atomic update, so
// concurrent requests on one cart never lose a write.
type CartStore struct {
	coll *mongo.Collection
}

func (s *CartStore) FindByUser(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	var cart models.Cart
	if err := s.coll.FindOne(ctx, bson.M{"user_id": userID}).Decode(&cart); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrCartNotFound
		}
		return nil, wrap("find cart", err)
	}
	return &cart, nil
}

func (s *CartStore) AddItem(ctx context.Context, userID, productID primitive.ObjectID, qty int) (*models.Cart, error) {
	for attempt := 0; ; attempt++ {
		t := now()

		// Merge into an existing line.
		res, err := s.coll.UpdateOne(ctx,
			bson.M{"user_id": userID, "items.product_id": productID},
			bson.M{"$inc": bson.M{"items.$.quantity": qty}, "$set": bson.M{"updated_at": t}},
		)
		if err != nil {
			return nil, wrap("merge cart item", err)
		}
		if res.MatchedCount > 0 {
			return s.FindByUser(ctx, userID)
		}

		// Append a new line, creating the cart on first add. If the product
		// appeared meanwhile the filter misses and the upsert collides with
		// the unique user index, so the next attempt merges instead.
		_, err = s.coll.UpdateOne(ctx,
			bson.M{"user_id": userID, "items.product_id": bson.M{"$ne": productID}},
			bson.M{
				"$push":        bson.M{"items": models.CartItem{ProductID: productID, Quantity: qty, AddedAt: t}},
				"$set":         bson.M{"updated_at": t},
				"$setOnInsert": bson.M{"created_at": t},
			},
			options.Update().SetUpsert(true),
		)
		if err == nil {
			return s.FindByUser(ctx, userID)
		}
		if !mongo.IsDuplicateKeyError(err) || attempt+1 >= upsertAttempts {
			return nil, wrap("add cart item", err)
		}
	}
}

func (s *CartStore) SetQuantity(ctx context.Context, userID, productID primitive.ObjectID, qty int) (*models.Cart, error) {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"user_id": userID, "items.product_id": productID},
		bson.M{"$set": bson.M{"items.$.quantity": qty, "updated_at": now()}},
	)
	if err != nil {
		return nil, wrap("update cart item", err)
	}
	if res.MatchedCount == 0 {
		return nil, s.missing(ctx, userID)
	}
	return s.FindByUser(ctx, userID)
}

func (s *CartStore) RemoveItem(ctx context.Context, userID, productID primitive.ObjectID) (*models.Cart, error) {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"user_id": userID, "items.product_id": productID},
		bson.M{
			"$pull": bson.M{"items": bson.M{"product_id": productID}},
			"$set":  bson.M{"updated_at": now()},
		},
	)
	if err != nil {
		return nil, wrap("remove cart item", err)
	}
	if res.MatchedCount == 0 {
		return nil, s.missing(ctx, userID)
	}
	return s.FindByUser(ctx, userID)
}

// missing tells an absent cart apart from an absent line.
func (s *CartStore) missing(ctx context.Context, userID primitive.ObjectID) error {
	n, err := s.coll.CountDocuments(ctx, bson.M{"user_id": userID})
	if err != nil {
		return wrap("count carts", err)
	}
	if n == 0 {
		return models.ErrCartNotFound
	}
	return models.ErrCartItemNotFound
}

func (s *CartStore) DeleteByUser(ctx context.Context, userID primitive.ObjectID) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"user_id": userID}); err != nil {
		return wrap("delete cart", err)
	}
	return nil
}
