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

type CategoryStore struct {
	coll *mongo.Collection
}

func (s *CategoryStore) Create(ctx context.Context, category *models.Category) error {
	if category.ID.IsZero() {
		category.ID = primitive.NewObjectID()
	}
	t := now()
	category.CreatedAt, category.UpdatedAt = t, t

	if _, err := s.coll.InsertOne(ctx, category); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.ErrDuplicateCategory
		}
		return wrap("insert category", err)
	}
	return nil
}

func (s *CategoryStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Category, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *CategoryStore) FindBySlug(ctx context.Context, slug string) (*models.Category, error) {
	return s.findOne(ctx, bson.M{"slug": slug})
}

func (s *CategoryStore) findOne(ctx context.Context, filter bson.M) (*models.Category, error) {
	var category models.Category
	if err := s.coll.FindOne(ctx, filter).Decode(&category); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrCategoryNotFound
		}
		return nil, wrap("find category", err)
	}
	return &category, nil
}

func (s *CategoryStore) List(ctx context.Context) ([]models.Category, error) {
	cursor, err := s.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, wrap("find categories", err)
	}
	defer cursor.Close(ctx)

	categories := []models.Category{}
	if err := cursor.All(ctx, &categories); err != nil {
		return nil, wrap("decode categories", err)
	}
	return categories, nil
}

func (s *CategoryStore) Update(ctx context.Context, category *models.Category) error {
	category.UpdatedAt = now()
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": category.ID}, bson.M{
		"$set": bson.M{
			"name":        category.Name,
			"slug":        category.Slug,
			"description": category.Description,
			"updated_at":  category.UpdatedAt,
		},
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.ErrDuplicateCategory
		}
		return wrap("update category", err)
	}
	if res.MatchedCount == 0 {
		return models.ErrCategoryNotFound
	}
	return nil
}

func (s *CategoryStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return wrap("delete category", err)
	}
	if res.DeletedCount == 0 {
		return models.ErrCategoryNotFound
	}
	return nil
}
