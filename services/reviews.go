package services

import (
	"context"
	"math"
	"strings"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"go-storefront/models"
)

const maxCommentLen = 500

type ReviewInput struct {
	ProductID primitive.ObjectID `json:"productId"`
	Rating    int                `json:"rating"`
	Comment   string             `json:"comment"`
}

// ReviewService records one review per user and product, for buyers only,
// and keeps the product's rating aggregate in step.
type ReviewService struct {
	tx       Transactor
	reviews  ReviewRepository
	products ProductRepository
	orders   OrderRepository
}

func NewReviewService(tx Transactor, reviews ReviewRepository, products ProductRepository, orders OrderRepository) *ReviewService {
	return &ReviewService{tx: tx, reviews: reviews, products: products, orders: orders}
}

func (s *ReviewService) CreateReview(ctx context.Context, userID primitive.ObjectID, in ReviewInput) (*models.Review, error) {
	if in.ProductID.IsZero() || in.Rating == 0 {
		return nil, models.Invalid("product ID and rating are required")
	}
	if in.Rating < 1 || in.Rating > 5 {
		return nil, models.Invalid("rating must be between 1 and 5")
	}
	comment := strings.TrimSpace(in.Comment)
	if utf8.RuneCountInString(comment) > maxCommentLen {
		return nil, models.Invalid("comment cannot exceed %d characters", maxCommentLen)
	}

	var review *models.Review
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.products.FindByID(ctx, in.ProductID); err != nil {
			return err
		}
		bought, err := s.orders.HasPurchased(ctx, userID, in.ProductID)
		if err != nil {
			return err
		}
		if !bought {
			return models.ErrNotPurchased
		}
		exists, err := s.reviews.Exists(ctx, userID, in.ProductID)
		if err != nil {
			return err
		}
		if exists {
			return models.ErrDuplicateReview
		}

		r := &models.Review{UserID: userID, ProductID: in.ProductID, Rating: in.Rating, Comment: comment}
		if err := s.reviews.Create(ctx, r); err != nil {
			return err
		}

		all, err := s.reviews.ListByProduct(ctx, in.ProductID)
		if err != nil {
			return err
		}
		if err := s.products.SetRating(ctx, in.ProductID, averageRating(all), len(all)); err != nil {
			return err
		}
		review = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return review, nil
}

// ListProductReviews returns the product's reviews, newest first, with the
// count and average.
func (s *ReviewService) ListProductReviews(ctx context.Context, productID primitive.ObjectID) (*models.ReviewSummary, error) {
	if _, err := s.products.FindByID(ctx, productID); err != nil {
		return nil, err
	}
	reviews, err := s.reviews.ListByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	return &models.ReviewSummary{
		Count:         len(reviews),
		AverageRating: averageRating(reviews),
		Reviews:       reviews,
	}, nil
}

// averageRating is rounded to one decimal place; zero reviews average 0.
func averageRating(reviews []models.Review) float64 {
	if len(reviews) == 0 {
		return 0
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	return math.Round(float64(sum)/float64(len(reviews))*10) / 10
}
