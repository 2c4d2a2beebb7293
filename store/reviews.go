package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"go-storefront/models"
)

type ReviewStore struct {
	coll *mongo.Collection
}

func (s *ReviewStore) Create(ctx context.Context, review *models.Review) error {
	if review.ID.IsZero() {
		review.ID = primitive.NewObjectID()
	}
	t := now()
	review.CreatedAt, review.UpdatedAt = t, t

	if _, err := s.coll.InsertOne(ctx, review); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.ErrDuplicateReview
		}
		return wrap("insert review", err)
	}
	return nil
}

func (s *ReviewStore) ListByProduct(ctx context.Context, productID primitive.ObjectID) ([]models.Review, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := s.coll.Find(ctx, bson.M{"product_id": productID}, opts)
	if err != nil {
		return nil, wrap("find reviews", err)
	}
	defer cursor.Close(ctx)

	reviews := []models.Review{}
	if err := cursor.All(ctx, &reviews); err != nil {
		return nil, wrap("decode reviews", err)
	}
	return reviews, nil
}

func (s *ReviewStore) Exists(ctx context.Context, userID, productID primitive.ObjectID) (bool, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{"user_id": userID, "product_id": productID}, options.Count().SetLimit(1))
	if err != nil {
		return false, wrap("count reviews", err)
	}
	return n > 0, nil
}
