package services

import (
	"context"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"go-storefront/models"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type ProductInput struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Price       decimal.Decimal    `json:"price"`
	Stock       int                `json:"stock"`
	CategoryID  primitive.ObjectID `json:"categoryId"`
	Images      []string           `json:"images"`
}

type CategoryInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// ImportResult reports how a bulk product import went, row by row.
type ImportResult struct {
	Created int         `json:"created"`
	Skipped []SkipEntry `json:"skipped"`
}

type SkipEntry struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// CatalogService owns products and categories.
type CatalogService struct {
	tx         Transactor
	products   ProductRepository
	categories CategoryRepository
}

func NewCatalogService(tx Transactor, products ProductRepository, categories CategoryRepository) *CatalogService {
	return &CatalogService{tx: tx, products: products, categories: categories}
}

func validateProductName(name string) error {
	if n := utf8.RuneCountInString(name); n < 2 || n > 100 {
		return models.Invalid("product name must be between 2 and 100 characters")
	}
	return nil
}

func validatePrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return models.Invalid("price cannot be negative")
	}
	return nil
}

func validateStock(stock int) error {
	if stock < 0 {
		return models.Invalid("stock cannot be negative")
	}
	return nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	name := strings.TrimSpace(in.Name)
	if err := validateProductName(name); err != nil {
		return nil, err
	}
	if err := validatePrice(in.Price); err != nil {
		return nil, err
	}
	if err := validateStock(in.Stock); err != nil {
		return nil, err
	}
	if in.CategoryID.IsZero() {
		return nil, models.Invalid("categoryId is required")
	}
	if _, err := s.categories.FindByID(ctx, in.CategoryID); err != nil {
		return nil, err
	}

	images := in.Images
	if images == nil {
		images = []string{}
	}
	product := &models.Product{
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Price:       models.NewMoney(in.Price),
		Stock:       in.Stock,
		CategoryID:  in.CategoryID,
		Images:      images,
	}
	if err := s.products.Create(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *CatalogService) UpdateProduct(ctx context.Context, id primitive.ObjectID, patch models.ProductPatch) (*models.Product, error) {
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if err := validateProductName(name); err != nil {
			return nil, err
		}
		patch.Name = &name
	}
	if patch.Price != nil {
		if err := validatePrice(*patch.Price); err != nil {
			return nil, err
		}
	}
	if patch.Stock != nil {
		if err := validateStock(*patch.Stock); err != nil {
			return nil, err
		}
	}
	if patch.CategoryID != nil {
		if _, err := s.categories.FindByID(ctx, *patch.CategoryID); err != nil {
			return nil, err
		}
	}
	return s.products.Update(ctx, id, patch)
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id primitive.ObjectID) error {
	return s.products.Delete(ctx, id)
}

func (s *CatalogService) GetProduct(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	return s.products.FindByID(ctx, id)
}

// ListProducts returns one page, newest first. Page and page size below 1
// or a page size above MaxPageSize are clamped; a page whose offset would
// not fit in 32 bits is a validation error.
func (s *CatalogService) ListProducts(ctx context.Context, filter models.ProductFilter) (*models.OffsetPage[models.Product], error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = DefaultPageSize
	}
	if filter.PageSize > MaxPageSize {
		filter.PageSize = MaxPageSize
	}
	if filter.Page > math.MaxInt32/filter.PageSize {
		return nil, models.Invalid("page must be at most %d", math.MaxInt32/filter.PageSize)
	}

	items, total, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return models.NewOffsetPage(items, total, filter.Page, filter.PageSize), nil
}

// ExportProducts returns every product, sorted by name.
func (s *CatalogService) ExportProducts(ctx context.Context) ([]models.Product, error) {
	return s.products.All(ctx)
}

// ImportRow is one data row of an uploaded workbook. ParseErr is set when
// the row could not be turned into a ProductInput.
type ImportRow struct {
	Line     int
	Product  ProductInput
	ParseErr error
}

// ImportProducts creates each valid row and records why the others were
// skipped. A backend failure stops the import; rows created before it stay.
func (s *CatalogService) ImportProducts(ctx context.Context, rows []ImportRow) (*ImportResult, error) {
	result := &ImportResult{Skipped: []SkipEntry{}}
	for _, row := range rows {
		if row.ParseErr != nil {
			result.Skipped = append(result.Skipped, SkipEntry{Row: row.Line, Reason: row.ParseErr.Error()})
			continue
		}
		if _, err := s.CreateProduct(ctx, row.Product); err != nil {
			if !isClientError(err) {
				return result, err
			}
			result.Skipped = append(result.Skipped, SkipEntry{Row: row.Line, Reason: err.Error()})
			continue
		}
		result.Created++
	}
	return result, nil
}

func (s *CatalogService) CreateCategory(ctx context.Context, name, description string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if err := validateCategoryName(name); err != nil {
		return nil, err
	}
	category := &models.Category{
		Name:        name,
		Slug:        slug.Make(name),
		Description: strings.TrimSpace(description),
	}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

func validateCategoryName(name string) error {
	if n := utf8.RuneCountInString(name); n < 2 || n > 50 {
		return models.Invalid("category name must be between 2 and 50 characters")
	}
	if slug.Make(name) == "" {
		return models.Invalid("category name must contain letters or digits")
	}
	return nil
}

// UpdateCategory applies a partial update; renaming re-derives the slug.
func (s *CatalogService) UpdateCategory(ctx context.Context, id primitive.ObjectID, in CategoryInput) (*models.Category, error) {
	category, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if err := validateCategoryName(name); err != nil {
			return nil, err
		}
		category.Name = name
		category.Slug = slug.Make(name)
	}
	if in.Description != nil {
		category.Description = strings.TrimSpace(*in.Description)
	}
	if err := s.categories.Update(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.categories.List(ctx)
}

func (s *CatalogService) GetCategoryBySlug(ctx context.Context, slugValue string) (*models.Category, error) {
	return s.categories.FindBySlug(ctx, slugValue)
}

// DeleteCategory refuses while any product still references the category.
func (s *CatalogService) DeleteCategory(ctx context.Context, id primitive.ObjectID) error {
	return s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.categories.FindByID(ctx, id); err != nil {
			return err
		}
		n, err := s.products.CountByCategory(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return models.ErrCategoryInUse
		}
		return s.categories.Delete(ctx, id)
	})
}
