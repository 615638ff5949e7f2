package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"storefront/internal/catalog"
	"storefront/internal/domain"
	"storefront/internal/paging"
)

const paginationHeader = "Pagination"

type productParams struct {
	OrderBy    string `form:"orderBy"`
	Sort       string `form:"sort"`
	SearchTerm string `form:"searchTerm"`
	Brands     string `form:"brands"`
	Types      string `form:"types"`
	paging.Params
}

func (p productParams) query() catalog.Query {
	orderBy := p.OrderBy
	if orderBy == "" {
		orderBy = p.Sort
	}
	return catalog.NewQuery(orderBy, p.SearchTerm, p.Brands, p.Types)
}

func (h *handler) listProducts(c *gin.Context) {
	var params productParams
	if err := bind(func() error { return c.ShouldBindQuery(&params) }); err != nil {
		_ = c.Error(err)
		return
	}
	list, err := h.Catalog.ListProducts(c.Request.Context(), params.query(), params.Params)
	if err != nil {
		_ = c.Error(err)
		return
	}
	setPagination(c, list.MetaData)
	c.JSON(http.StatusOK, list.Items)
}

func setPagination(c *gin.Context, md paging.MetaData) {
	raw, err := json.Marshal(md)
	if err != nil {
		return
	}
	c.Header(paginationHeader, string(raw))
}

func (h *handler) productFilters(c *gin.Context) {
	f, err := h.Catalog.Filters(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, f)
}

func (h *handler) getProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		_ = c.Error(domain.NewNotFoundError("product", c.Param("id")))
		return
	}
	p, err := h.Catalog.GetProduct(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, p)
}
