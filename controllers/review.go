package controllers

import (
	"log/slog"
	"net/http"
	"time"

	"go-storefront/services"
	"go-storefront/utils"
)

type ReviewController struct {
	base
	reviews *services.ReviewService
}

func NewReviewController(reviews *services.ReviewService, logger *slog.Logger, timeout time.Duration) *ReviewController {
	return &ReviewController{base: base{logger: logger, timeout: timeout}, reviews: reviews}
}

func (rc *ReviewController) CreateReview(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		rc.fail(w, r, err)
		return
	}
	var body struct {
		ProductID string `json:"productId"`
		Rating    int    `json:"rating"`
		Comment   string `json:"comment"`
	}
	if err := decodeJSON(w, r, &body, false); err != nil {
		rc.fail(w, r, err)
		return
	}
	productID, err := objectID("productId", body.ProductID)
	if err != nil {
		rc.fail(w, r, err)
		return
	}

	ctx, cancel := rc.ctx(r)
	defer cancel()
	review, err := rc.reviews.CreateReview(ctx, userID, services.ReviewInput{
		ProductID: productID,
		Rating:    body.Rating,
		Comment:   body.Comment,
	})
	if err != nil {
		rc.fail(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, "review added", map[string]any{"review": review})
}

func (rc *ReviewController) GetProductReviews(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r, "productId")
	if err != nil {
		rc.fail(w, r, err)
		return
	}

	ctx, cancel := rc.ctx(r)
	defer cancel()
	summary, err := rc.reviews.ListProductReviews(ctx, productID)
	if err != nil {
		rc.fail(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, "", map[string]any{
		"reviews":       summary.Reviews,
		"count":         summary.Count,
		"averageRating": summary.AverageRating,
	})
}
