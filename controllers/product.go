package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"go-storefront/models"
	"go-storefront/services"
	"go-storefront/utils"
)

const maxImportBytes = 10 << 20

// ProductController handles product-related requests
type ProductController struct {
	base
	catalog *services.CatalogService
}

func NewProductController(catalog *services.CatalogService, logger *slog.Logger, timeout time.Duration) *ProductController {
	return &ProductController{base: base{logger: logger, timeout: timeout}, catalog: catalog}
}

type productRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock"`
	CategoryID  *string          `json:"categoryId"`
	Images      []string         `json:"images"`
}

func (req productRequest) input() (services.ProductInput, error) {
	in := services.ProductInput{Images: req.Images}
	if req.Name == nil || req.Price == nil || req.CategoryID == nil {
		return in, models.Invalid("name, price and categoryId are required")
	}
	categoryID, err := objectID("categoryId", *req.CategoryID)
	if err != nil {
		return in, err
	}
	in.Name, in.Price, in.CategoryID = *req.Name, *req.Price, categoryID
	if req.Description != nil {
		in.Description = *req.Description
	}
	if req.Stock != nil {
		in.Stock = *req.Stock
	}
	return in, nil
}

func (req productRequest) patch() (models.ProductPatch, error) {
	patch := models.ProductPatch{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Images:      req.Images,
	}
	if req.CategoryID != nil {
		id, err := objectID("categoryId", *req.CategoryID)
		if err != nil {
			return patch, err
		}
		if id.IsZero() {
			return patch, models.Invalid("categoryId cannot be empty")
		}
		patch.CategoryID = &id
	}
	return patch, nil
}

// CreateProduct handles adding a new product (Admin only)
func (pc *ProductController) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		pc.fail(w, r, err)
		return
	}
	in, err := req.input()
	if err != nil {
		pc.fail(w, r, err)
		return
	}

	ctx, cancel := pc.ctx(r)
	defer cancel()
	product, err := pc.catalog.CreateProduct(ctx, in)
	if err != nil {
		pc.fail(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, "product created", map[string]any{"product": product})
}

// GetProducts lists one page of products. The category filter accepts an
// id or a slug.
func (pc *ProductController) GetProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := queryInt(q.Get("page"), "page")
	if err != nil {
		pc.fail(w, r, err)
		return
	}
	pageSize, err := queryInt(q.Get("page_size"), "page_size")
	if err != nil {
		pc.fail(w, r, err)
		return
	}

	ctx, cancel := pc.ctx(r)
	defer cancel()

	filter := models.ProductFilter{Page: page, PageSize: pageSize}
	if category := q.Get("category"); category != "" {
		id, err := primitive.ObjectIDFromHex(category)
		if err != nil {
			c, err := pc.catalog.GetCategoryBySlug(ctx, category)
			if err != nil {
				pc.fail(w, r, err)
				return
			}
			id = c.ID
		}
		filter.CategoryID = &id
	}

	result, err := pc.catalog.ListProducts(ctx, filter)
	if err != nil {
		pc.fail(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, "", map[string]any{
		"products":   result.Items,
		"total":      result.Total,
		"page":       result.Page,
		"pageSize":   result.PageSize,
		"totalPages": result.TotalPages,
	})
}

func queryInt(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, models.Invalid("%s must be an integer", name)
	}
	return v, nil
}

// GetProductByID retrieves a single product by ID
func (pc *ProductController) GetProductByID(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		pc.fail(w, r, err)
		return
	}

	ctx, cancel := pc.ctx(r)
	defer cancel()
	product, err := pc.catalog.GetProduct(ctx, id)
	if err != nil {
		pc.fail(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, "", map[string]any{"product": product})
}

// UpdateProduct applies a partial update (Admin only)
func (pc *ProductController) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		pc.fail(w, r, err)
		return
	}
	var req productRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		pc.fail(w, r, err)
		return
	}
	patch, err := req.patch()
	if err != nil {
		pc.fail(w, r, err)
		return
	}

	ctx, cancel := pc.ctx(r)
	defer cancel()
	product, err := pc.catalog.UpdateProduct(ctx, id, patch)
	if err != nil {
		pc.fail(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, "product updated", map[string]any{"product": product})
}

// DeleteProduct handles deleting a product (Admin only)
func (pc *ProductController) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		pc.fail(w, r, err)
		return
	}

	ctx, cancel := pc.ctx(r)
	defer cancel()
	if err := pc.catalog.DeleteProduct(ctx, id); err != nil {
		pc.fail(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, "product deleted", nil)
}

// ExportProducts streams every product as an xlsx workbook (Admin only)
func (pc *ProductController) ExportProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := pc.ctx(r)
	defer cancel()
	products, err := pc.catalog.ExportProducts(ctx)
	if err != nil {
		pc.fail(w, r, err)
		return
	}

	file, err := productWorkbook(products)
	if err != nil {
		pc.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Disposition", "attachment; filename=products.xlsx")
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := file.Write(w); err != nil {
		// Headers are already sent.
		pc.logger.ErrorContext(r.Context(), "write product workbook", "error", err)
	}
}

// ImportProducts creates products from an uploaded xlsx workbook (Admin only)
func (pc *ProductController) ImportProducts(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			pc.fail(w, r, models.Invalid("workbook too large"))
			return
		}
		pc.fail(w, r, models.Invalid("an xlsx file is required in the \"file\" field"))
		return
	}
	defer file.Close()

	rows, err := readProductRows(file, header.Size)
	if err != nil {
		pc.fail(w, r, err)
		return
	}

	ctx, cancel := pc.ctx(r)
	defer cancel()
	result, err := pc.catalog.ImportProducts(ctx, rows)
	if err != nil {
		pc.fail(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, "import completed", map[string]any{
		"created": result.Created,
		"skipped": result.Skipped,
	})
}
