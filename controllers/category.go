package controllers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"go-storefront/services"
	"go-storefront/utils"
)

type CategoryController struct {
	base
	catalog *services.CatalogService
}

func NewCategoryController(catalog *services.CatalogService, logger *slog.Logger, timeout time.Duration) *CategoryController {
	return &CategoryController{base: base{logger: logger, timeout: timeout}, catalog: catalog}
}

func (cc *CategoryController) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := decodeJSON(w, r, &body, false); err != nil {
		cc.fail(w, r, err)
		return
	}

	ctx, cancel := cc.ctx(r)
	defer cancel()
	category, err := cc.catalog.CreateCategory(ctx, body.Name, body.Description)
	if err != nil {
		cc.fail(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, "category created", map[string]any{"category": category})
}

func (cc *CategoryController) GetCategories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := cc.ctx(r)
	defer cancel()
	categories, err := cc.catalog.ListCategories(ctx)
	if err != nil {
		cc.fail(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, "", map[string]any{"categories": categories, "count": len(categories)})
}

func (cc *CategoryController) GetCategoryBySlug(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := cc.ctx(r)
	defer cancel()
	category, err := cc.catalog.GetCategoryBySlug(ctx, mux.Vars(r)["slug"])
	if err != nil {
		cc.fail(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, "", map[string]any{"category": category})
}

func (cc *CategoryController) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		cc.fail(w, r, err)
		return
	}
	var in services.CategoryInput
	if err := decodeJSON(w, r, &in, false); err != nil {
		cc.fail(w, r, err)
		return
	}

	ctx, cancel := cc.ctx(r)
	defer cancel()
	category, err := cc.catalog.UpdateCategory(ctx, id, in)
	if err != nil {
		cc.fail(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, "category updated", map[string]any{"category": category})
}

func (cc *CategoryController) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		cc.fail(w, r, err)
		return
	}

	ctx, cancel := cc.ctx(r)
	defer cancel()
	if err := cc.catalog.DeleteCategory(ctx, id); err != nil {
		cc.fail(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, "category deleted", nil)
}
