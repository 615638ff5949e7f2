package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/dto"
	"storefront/internal/service"
)

type loginRequest struct {
	UserName string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func userDTO(s service.Session) dto.UserDTO {
	out := dto.UserDTO{Email: s.User.Email, Token: s.Token}
	if s.Basket != nil {
		b := dto.MapBasket(*s.Basket)
		out.Basket = &b
	}
	return out
}

func (h *handler) login(c *gin.Context) {
	var req loginRequest
	if err := bind(func() error { return c.ShouldBindJSON(&req) }); err != nil {
		_ = c.Error(err)
		return
	}
	sess, err := h.Accounts.Login(c.Request.Context(), req.UserName, req.Password, h.Buyers.AnonymousID(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	if sess.ForgetAnonymous {
		h.Buyers.Forget(c)
	}
	c.JSON(http.StatusOK, userDTO(sess))
}

func (h *handler) register(c *gin.Context) {
	var req service.Registration
	if err := bind(func() error { return c.ShouldBindJSON(&req) }); err != nil {
		_ = c.Error(err)
		return
	}
	if _, err := h.Accounts.Register(c.Request.Context(), req); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusCreated)
}

func (h *handler) currentUser(c *gin.Context) {
	sess, err := h.Accounts.CurrentUser(c.Request.Context(), identityName(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, userDTO(sess))
}

func (h *handler) savedAddress(c *gin.Context) {
	addr, err := h.Accounts.SavedAddress(c.Request.Context(), identityName(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, addr)
}
