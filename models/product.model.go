package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Product struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Description  string             `bson:"description" json:"description"`
	Price        Money              `bson:"price" json:"price"`
	Stock        int                `bson:"stock" json:"stock"`
	CategoryID   primitive.ObjectID `bson:"category_id" json:"categoryId"`
	Images       []string           `bson:"images" json:"images"`
	Rating       float64            `bson:"rating" json:"rating"`
	TotalReviews int                `bson:"total_reviews" json:"totalReviews"`
	CreatedAt    time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updatedAt"`
}

// ProductPatch lists the admin-editable fields; nil means unchanged.
type ProductPatch struct {
	Name        *string             `json:"name"`
	Description *string             `json:"description"`
	Price       *decimal.Decimal    `json:"price"`
	Stock       *int                `json:"stock"`
	CategoryID  *primitive.ObjectID `json:"categoryId"`
	Images      []string            `json:"images"`
}

// Apply copies the set fields of the patch onto p.
func (pp ProductPatch) Apply(p *Product) {
	if pp.Name != nil {
		p.Name = *pp.Name
	}
	if pp.Description != nil {
		p.Description = *pp.Description
	}
	if pp.Price != nil {
		p.Price = NewMoney(*pp.Price)
	}
	if pp.Stock != nil {
		p.Stock = *pp.Stock
	}
	if pp.CategoryID != nil {
		p.CategoryID = *pp.CategoryID
	}
	if pp.Images != nil {
		p.Images = pp.Images
	}
}

type ProductFilter struct {
	CategoryID *primitive.ObjectID
	Page       int
	PageSize   int
}

// OffsetPage is one page of a listing ordered newest first.
type OffsetPage[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalPages int   `json:"totalPages"`
}

func NewOffsetPage[T any](items []T, total int64, page, pageSize int) *OffsetPage[T] {
	if items == nil {
		items = []T{}
	}
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	return &OffsetPage[T]{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}
