package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
	"storefront/internal/dto"
)

type createOrderRequest struct {
	ShippingAddress domain.Address `json:"shippingAddress" binding:"required"`
	SaveAddress     bool           `json:"saveAddress"`
}

func (h *handler) listOrders(c *gin.Context) {
	orders, err := h.Orders.List(c.Request.Context(), identityName(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.MapOrders(orders))
}

func (h *handler) getOrder(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		_ = c.Error(domain.NewNotFoundError("order", c.Param("id")))
		return
	}
	o, err := h.Orders.Get(c.Request.Context(), identityName(c), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.MapOrder(o))
}

func (h *handler) createOrder(c *gin.Context) {
	var req createOrderRequest
	if err := bind(func() error { return c.ShouldBindJSON(&req) }); err != nil {
		_ = c.Error(err)
		return
	}
	id, err := h.Orders.Create(c.Request.Context(), identityName(c), req.ShippingAddress, req.SaveAddress)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.Header("Location", "/api/orders/"+strconv.FormatInt(id, 10))
	c.JSON(http.StatusCreated, id)
}
