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

type ProductStore struct {
	coll *mongo.Collection
}

func (s *ProductStore) Create(ctx context.Context, product *models.Product) error {
	if product.ID.IsZero() {
		product.ID = primitive.NewObjectID()
	}
	t := now()
	product.CreatedAt, product.UpdatedAt = t, t
	if product.Images == nil {
		product.Images = []string{}
	}

	if _, err := s.coll.InsertOne(ctx, product); err != nil {
		return wrap("insert product", err)
	}
	return nil
}

func (s *ProductStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	var product models.Product
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&product); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrProductNotFound
		}
		return nil, wrap("find product", err)
	}
	return &product, nil
}

// List returns one page of products, newest first, and the total match count.
func (s *ProductStore) List(ctx context.Context, filter models.ProductFilter) ([]models.Product, int64, error) {
	query := bson.M{}
	if filter.CategoryID != nil {
		query["category_id"] = *filter.CategoryID
	}

	total, err := s.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, wrap("count products", err)
	}

	skip := int64(filter.Page-1) * int64(filter.PageSize)
	if skip < 0 {
		return []models.Product{}, total, nil
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(skip).
		SetLimit(int64(filter.PageSize))

	products, err := s.find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (s *ProductStore) All(ctx context.Context) ([]models.Product, error) {
	return s.find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
}

func (s *ProductStore) find(ctx context.Context, query bson.M, opts *options.FindOptions) ([]models.Product, error) {
	cursor, err := s.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, wrap("find products", err)
	}
	defer cursor.Close(ctx)

	products := []models.Product{}
	if err := cursor.All(ctx, &products); err != nil {
		return nil, wrap("decode products", err)
	}
	return products, nil
}

func (s *ProductStore) Update(ctx context.Context, id primitive.ObjectID, patch models.ProductPatch) (*models.Product, error) {
	set := bson.M{"updated_at": now()}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Price != nil {
		set["price"] = models.NewMoney(*patch.Price)
	}
	if patch.Stock != nil {
		set["stock"] = *patch.Stock
	}
	if patch.CategoryID != nil {
		set["category_id"] = *patch.CategoryID
	}
	if patch.Images != nil {
		set["images"] = patch.Images
	}

	var product models.Product
	err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&product)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrProductNotFound
		}
		return nil, wrap("update product", err)
	}
	return &product, nil
}

func (s *ProductStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return wrap("delete product", err)
	}
	if res.DeletedCount == 0 {
		return models.ErrProductNotFound
	}
	return nil
}

func (s *ProductStore) CountByCategory(ctx context.Context, categoryID primitive.ObjectID) (int64, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{"category_id": categoryID})
	if err != nil {
		return 0, wrap("count products by category", err)
	}
	return n, nil
}

// DecrementStock is a conditional update: it only matches while enough stock
// remains, so stock can never go negative.
func (s *ProductStore) DecrementStock(ctx context.Context, id primitive.ObjectID, qty int) error {
	if qty <= 0 {
		return models.Invalid("stock decrement must be positive, got %d", qty)
	}
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id, "stock": bson.M{"$gte": qty}},
		bson.M{"$inc": bson.M{"stock": -qty}, "$set": bson.M{"updated_at": now()}},
	)
	if err != nil {
		return wrap("decrement stock", err)
	}
	if res.MatchedCount == 0 {
		if _, err := s.FindByID(ctx, id); err != nil {
			return err
		}
		return models.ErrInsufficientStock
	}
	return nil
}

func (s *ProductStore) IncrementStock(ctx context.Context, id primitive.ObjectID, qty int) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$inc": bson.M{"stock": qty}, "$set": bson.M{"updated_at": now()}},
	)
	if err != nil {
		return wrap("increment stock", err)
	}
	if res.MatchedCount == 0 {
		return models.ErrProductNotFound
	}
	return nil
}

func (s *ProductStore) SetRating(ctx context.Context, id primitive.ObjectID, rating float64, totalReviews int) error {
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"rating": rating, "total_reviews": totalReviews, "updated_at": now()},
	})
	if err != nil {
		return wrap("set rating", err)
	}
	if res.MatchedCount == 0 {
		return models.ErrProductNotFound
	}
	return nil
}
