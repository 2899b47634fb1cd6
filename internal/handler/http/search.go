// Package http exposes the search service over HTTP.
package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/velora/search-service/internal/domain"
	"github.com/velora/search-service/internal/service"
	"github.com/velora/search-service/pkg/httputil"
	"github.com/velora/search-service/pkg/pagination"
	"github.com/velora/search-service/pkg/validator"
)

// SearchHandler handles HTTP requests for search endpoints.
type SearchHandler struct {
	search *service.SearchService
	index  *service.IndexService
	logger *slog.Logger
}

// NewSearchHandler creates a search HTTP handler.
func NewSearchHandler(search *service.SearchService, index *service.IndexService, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{
		search: search,
		index:  index,
		logger: logger,
	}
}

// IndexProductRequest is the JSON request body for indexing a product.
type IndexProductRequest struct {
	ID           string           `json:"id" validate:"required"`
	Name         string           `json:"name" validate:"required,min=1"`
	Slug         string           `json:"slug"`
	Description  string           `json:"description"`
	CategoryID   string           `json:"category_id"`
	CategoryName string           `json:"category_name"`
	BrandID      string           `json:"brand_id"`
	BrandName    string           `json:"brand_name"`
	Price        int64            `json:"price" validate:"gte=0"`
	Currency     string           `json:"currency"`
	Stock        int              `json:"stock"`
	Rating       float64          `json:"rating" validate:"gte=0,lte=5"`
	Featured     bool             `json:"featured"`
	Status       string           `json:"status"`
	ImageURL     string           `json:"image_url"`
	Tags         []string         `json:"tags"`
	Variants     []domain.Variant `json:"variants"`
}

// BulkIndexRequest is the JSON request body for bulk indexing products.
type BulkIndexRequest struct {
	Products []IndexProductRequest `json:"products" validate:"required,min=1,max=500,dive"`
}

// Search handles GET /api/v1/search
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	query, ok := h.parseQuery(w, r)
	if !ok {
		return
	}

	resp, err := h.search.Search(r.Context(), query)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: resp})
}

// parseQuery builds the filter context from query parameters. On a client
// error it writes the response itself and returns false.
func (h *SearchHandler) parseQuery(w http.ResponseWriter, r *http.Request) (*domain.SearchQuery, bool) {
	params := r.URL.Query()
	page := pagination.FromRequest(r)

	query := &domain.SearchQuery{
		Query:       strings.TrimSpace(params.Get("q")),
		CategoryIDs: splitCSV(params.Get("category_ids")),
		BrandIDs:    splitCSV(params.Get("brand_ids")),
		Colors:      splitCSV(params.Get("colors")),
		Sizes:       splitCSV(params.Get("sizes")),
		SortBy:      params.Get("sort"),
		Page:        page.Page,
		PerPage:     page.PerPage,
		Locale:      params.Get("locale"),
	}

	if query.SortBy != "" && !domain.IsValidSort(query.SortBy) {
		writeParamError(w, "sort must be one of: "+strings.Join(domain.ValidSortOptions(), ", "))
		return nil, false
	}

	for _, bound := range []struct {
		name string
		dst  **int64
	}{
		{"min_price", &query.MinPrice},
		{"max_price", &query.MaxPrice},
	} {
		v := params.Get(bound.name)
		if v == "" {
			continue
		}
		price, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeParamError(w, bound.name+" must be a valid number")
			return nil, false
		}
		if price < 0 {
			writeParamError(w, bound.name+" must not be negative")
			return nil, false
		}
		*bound.dst = &price
	}
	if query.MinPrice != nil && query.MaxPrice != nil && *query.MinPrice > *query.MaxPrice {
		writeParamError(w, "min_price must not exceed max_price")
		return nil, false
	}

	// Personalization identity: header wins over the query parameter.
	query.UserID = strings.TrimSpace(r.Header.Get("X-User-ID"))
	if query.UserID == "" {
		query.UserID = strings.TrimSpace(params.Get("user_id"))
	}

	return query, true
}

// Suggest handles GET /api/v1/search/suggest
func (h *SearchHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	prefix := strings.TrimSpace(r.URL.Query().Get("q"))
	if prefix == "" {
		httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]any{"suggestions": []domain.Suggestion{}}})
		return
	}

	limit := 5
	if v := r.URL.Query().Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil && l > 0 && l <= 20 {
			limit = l
		}
	}

	suggestions, err := h.search.Suggest(r.Context(), prefix, limit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]any{"suggestions": suggestions}})
}

// IndexProduct handles POST /api/v1/search/index
func (h *SearchHandler) IndexProduct(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req IndexProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if err := h.index.IndexProduct(r.Context(), req.toDomain()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{"id": req.ID, "status": "indexed"}})
}

// BulkIndex handles POST /api/v1/search/bulk
func (h *SearchHandler) BulkIndex(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20) // 10MB limit for bulk endpoint

	var req BulkIndexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	products := make([]domain.Product, 0, len(req.Products))
	for _, p := range req.Products {
		products = append(products, *p.toDomain())
	}

	if err := h.index.BulkIndex(r.Context(), products); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]any{"indexed": len(products), "status": "ok"}})
}

// DeleteProduct handles DELETE /api/v1/search/{id}
func (h *SearchHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.index.DeleteProduct(r.Context(), id.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{"id": id.String(), "status": "deleted"}})
}

func (req *IndexProductRequest) toDomain() *domain.Product {
	return &domain.Product{
		ID:           req.ID,
		Name:         req.Name,
		Slug:         req.Slug,
		Description:  req.Description,
		CategoryID:   req.CategoryID,
		CategoryName: req.CategoryName,
		BrandID:      req.BrandID,
		BrandName:    req.BrandName,
		Price:        req.Price,
		Currency:     req.Currency,
		Stock:        req.Stock,
		Rating:       req.Rating,
		Featured:     req.Featured,
		Status:       req.Status,
		ImageURL:     req.ImageURL,
		Tags:         req.Tags,
		Variants:     req.Variants,
	}
}

func writeParamError(w http.ResponseWriter, msg string) {
	httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
		Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: msg},
	})
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
