package http

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/japintos/KairosMarket-sub001/internal/apperr"
	"github.com/japintos/KairosMarket-sub001/internal/auth"
	"github.com/japintos/KairosMarket-sub001/internal/domain"
	"github.com/japintos/KairosMarket-sub001/internal/service"
)

type CatalogHandler struct {
	catalog CatalogService
}

func NewCatalogHandler(catalog CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

type stockRequest struct {
	Stock *decimal.Decimal `json:"stock"`
}

type adjustStockRequest struct {
	Delta *decimal.Decimal `json:"delta"`
}

type reorderRequest struct {
	Positions []domain.CategoryPosition `json:"positions"`
}

func productFilter(r *http.Request) (domain.ProductFilter, error) {
	var f domain.ProductFilter
	var err error
	if f.CategoryID, err = queryInt64(r, "category_id"); err != nil {
		return f, err
	}
	if f.Featured, err = queryBool(r, "featured"); err != nil {
		return f, err
	}
	if f.Limit, f.Offset, err = paging(r); err != nil {
		return f, err
	}
	f.Search = strings.TrimSpace(r.URL.Query().Get("search"))
	return f, nil
}

// GET /api/products
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) error {
	f, err := productFilter(r)
	if err != nil {
		return err
	}
	f.ActiveOnly = true

	products, err := h.catalog.ListProducts(r.Context(), f)
	if err != nil {
		return err
	}
	respondData(w, http.StatusOK, products)
	return nil
}

// GET /api/admin/products
func (h *CatalogHandler) ListAllProducts(w http.ResponseWriter, r *http.Request) error {
	f, err := productFilter(r)
	if err != nil {
		return err
	}
	active, err := queryBool(r, "active")
	if err != nil {
		return err
	}
	f.ActiveOnly = active != nil && *active

	products, err := h.catalog.ListProducts(r.Context(), f)
	if err != nil {
		return err
	}
	respondData(w, http.StatusOK, products)
	return nil
}

// GET /api/products/{id}
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}
	p, err := h.catalog.GetProduct(r.Context(), id)
	if err != nil {
		return err
	}
	// deactivated products are only visible to staff
	if !p.Active {
		if caller, ok := auth.FromContext(r.Context()); !ok || !caller.IsStaff() {
			return apperr.NotFound("product not found")
		}
	}
	respondData(w, http.StatusOK, p)
	return nil
}

// GET /api/products/low-stock
func (h *CatalogHandler) LowStock(w http.ResponseWriter, r *http.Request) error {
	products, err := h.catalog.LowStock(r.Context())
	if err != nil {
		return err
	}
	respondData(w, http.StatusOK, products)
	return nil
}

// POST /api/products
func (h *CatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) error {
	var in service.ProductInput
	if err := decodeJSON(r, &in); err != nil {
		return err
	}
	p, err := h.catalog.CreateProduct(r.Context(), in)
	if err != nil {
		return err
	}
	respondData(w, http.StatusCreated, p)
	return nil
}

// PUT /api/products/{id}
func (h *CatalogHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}
	var in service.ProductInput
	if err := decodeJSON(r, &in); err != nil {
		return err
	}
	p, err := h.catalog.UpdateProduct(r.Context(), id, in)
	if err != nil {
		return err
	}
	respondData(w, http.StatusOK, p)
	return nil
}

// DELETE /api/products/{id}
func (h *CatalogHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}
	if err := h.catalog.DeleteProduct(r.Context(), id); err != nil {
		return err
	}
	respondMessage(w, http.StatusOK, "product deactivated")
	return nil
}

// PUT /api/products/{id}/stock
func (h *CatalogHandler) SetStock(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}
	var req stockRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	if req.Stock == nil {
		return apperr.Validation("validation failed", apperr.FieldError{Field: "stock", Message: "is required"})
	}
	p, err := h.catalog.SetStock(r.Context(), id, *req.Stock)
	if err != nil {
		return err
	}
	respondData(w, http.StatusOK, p)
	return nil
}

// PATCH /api/products/{id}/stock
func (h *CatalogHandler) AdjustStock(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}
	var req adjustStockRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	if req.Delta == nil {
		return apperr.Validation("validation failed", apperr.FieldError{Field: "delta", Message: "is required"})
	}
	p, err := h.catalog.AdjustStock(r.Context(), id, *req.Delta)
	if err != nil {
		return err
	}
	respondData(w, http.StatusOK, p)
	return nil
}

// GET /api/categories
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) error {
	categories, err := h.catalog.ListCategories(r.Context(), true)
	if err != nil {
		return err
	}
	respondData(w, http.StatusOK, categories)
	return nil
}

// GET /api/admin/categories
func (h *CatalogHandler) ListAllCategories(w http.ResponseWriter, r *http.Request) error {
	categories, err := h.catalog.ListCategories(r.Context(), false)
	if err != nil {
		return err
	}
	respondData(w, http.StatusOK, categories)
	return nil
}

// POST /api/categories
func (h *CatalogHandler) CreateCategory(w http.ResponseWriter, r *http.Request) error {
	var in service.CategoryInput
	if err := decodeJSON(r, &in); err != nil {
		return err
	}
	c, err := h.catalog.CreateCategory(r.Context(), in)
	if err != nil {
		return err
	}
	respondData(w, http.StatusCreated, c)
	return nil
}

// PUT /api/categories/{id}
func (h *CatalogHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}
	var in service.CategoryInput
	if err := decodeJSON(r, &in); err != nil {
		return err
	}
	c, err := h.catalog.UpdateCategory(r.Context(), id, in)
	if err != nil {
		return err
	}
	respondData(w, http.StatusOK, c)
	return nil
}

// DELETE /api/categories/{id}
func (h *CatalogHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}
	if err := h.catalog.DeleteCategory(r.Context(), id); err != nil {
		return err
	}
	respondMessage(w, http.StatusOK, "category deleted")
	return nil
}

// PUT /api/categories/order
func (h *CatalogHandler) ReorderCategories(w http.ResponseWriter, r *http.Request) error {
	var req reorderRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	if err := h.catalog.ReorderCategories(r.Context(), req.Positions); err != nil {
		return err
	}
	respondMessage(w, http.StatusOK, "categories reordered")
	return nil
}
