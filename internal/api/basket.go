package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
	"storefront/internal/dto"
	"storefront/internal/service"
)

type basketItemParams struct {
	ProductID int64 `form:"productId" binding:"required"`
	Quantity  int   `form:"quantity" binding:"required,min=1"`
}

// removeItemParams defaults a missing quantity to one.
type removeItemParams struct {
	ProductID int64 `form:"productId" binding:"required"`
	Quantity  int   `form:"quantity" binding:"omitempty,min=1"`
}

func (h *handler) getBasket(c *gin.Context) {
	buyerID := h.Buyers.BuyerID(c)
	if buyerID == "" {
		h.Buyers.Forget(c)
		_ = c.Error(domain.NewNotFoundError("basket", ""))
		return
	}
	b, err := h.Baskets.Get(c.Request.Context(), buyerID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.MapBasket(b))
}

func (h *handler) addBasketItem(c *gin.Context) {
	var p basketItemParams
	if err := bind(func() error { return c.ShouldBindQuery(&p) }); err != nil {
		_ = c.Error(err)
		return
	}
	buyer := service.BuyerRef{
		ID:   h.Buyers.BuyerID(c),
		Mint: func() string { return h.Buyers.Mint(c) },
	}
	b, err := h.Baskets.AddItem(c.Request.Context(), buyer, p.ProductID, p.Quantity)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if b.BuyerID != buyer.ID {
		h.Buyers.Remember(c, b.BuyerID)
	}
	c.Header("Location", "/api/basket")
	c.JSON(http.StatusCreated, dto.MapBasket(b))
}

func (h *handler) removeBasketItem(c *gin.Context) {
	var p removeItemParams
	if err := bind(func() error { return c.ShouldBindQuery(&p) }); err != nil {
		_ = c.Error(err)
		return
	}
	if p.Quantity == 0 {
		p.Quantity = 1
	}
	if err := h.Baskets.RemoveItem(c.Request.Context(), h.Buyers.BuyerID(c), p.ProductID, p.Quantity); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusOK)
}
