package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/jewel_catalog/internal/service"
	"github.com/GTDGit/jewel_catalog/internal/utils"
)

// CatalogHandler serves the public catalog read endpoints.
type CatalogHandler struct {
	query  *service.CatalogQueryService
	images *service.ImageService
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(query *service.CatalogQueryService, images *service.ImageService) *CatalogHandler {
	return &CatalogHandler{query: query, images: images}
}

// SearchProducts handles GET /v1/catalog/products
func (h *CatalogHandler) SearchProducts(c *gin.Context) {
	params := service.SearchParams{
		Query: c.Query("q"),
		Filters: service.CatalogFilters{
			Category:    c.Query("category"),
			Subcategory: c.Query("subcategory"),
			Collection:  c.Query("collection"),
			Gender:      c.Query("gender"),
			ProductType: c.Query("productType"),
		},
		Status:   c.Query("status"),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "pageSize", service.DefaultPageSize),
		Sort:     c.DefaultQuery("sort", service.SortDesignNo),
	}

	result := h.query.Search(c.Request.Context(), params)
	utils.Success(c, 200, "Products retrieved", result)
}

// GetProduct handles GET /v1/catalog/products/:designNo
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	product, err := h.query.ProductByDesign(c.Request.Context(), c.Param("designNo"))
	if err != nil {
		utils.Error(c, 404, "PRODUCT_NOT_FOUND", "Product not found")
		return
	}
	utils.Success(c, 200, "Product retrieved", product)
}

// GetJob handles GET /v1/catalog/jobs/:jobNo
func (h *CatalogHandler) GetJob(c *gin.Context) {
	job, err := h.query.JobByNumber(c.Request.Context(), c.Param("jobNo"))
	if err != nil {
		utils.Error(c, 404, "JOB_NOT_FOUND", "Job not found")
		return
	}
	utils.Success(c, 200, "Job retrieved", job)
}

// GetFilterOptions handles GET /v1/catalog/filters
func (h *CatalogHandler) GetFilterOptions(c *gin.Context) {
	opts, err := h.query.FilterOptions(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to load filter options")
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to load filter options")
		return
	}
	utils.Success(c, 200, "Filter options retrieved", opts)
}

// GetImage handles GET /v1/catalog/products/:designNo/images/:file
// Only designs visible in the catalog get a redirect.
func (h *CatalogHandler) GetImage(c *gin.Context) {
	designNo := c.Param("designNo")
	if _, err := h.query.ProductByDesign(c.Request.Context(), designNo); err != nil {
		utils.Error(c, 404, "PRODUCT_NOT_FOUND", "Product not found")
		return
	}

	url, err := h.images.ImageURL(c.Request.Context(), designNo, c.Param("file"))
	if err != nil {
		if errors.Is(err, utils.ErrValidation) {
			utils.Error(c, 400, "INVALID_REQUEST", "Invalid image path")
			return
		}
		utils.Error(c, 502, "IMAGE_UNAVAILABLE", "Failed to resolve image URL")
		return
	}
	c.Redirect(http.StatusFound, url)
}

// queryInt parses an integer query parameter, falling back to def when absent or malformed.
func queryInt(c *gin.Context, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
