// Package api is the JSON HTTP surface, mounted under /api.
package api

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"storefront/internal/auth"
	"storefront/internal/identity"
	"storefront/internal/service"
	"storefront/internal/store"
)

type Deps struct {
	Catalog  *service.CatalogService
	Baskets  *service.BasketService
	Orders   *service.OrderService
	Payments *service.PaymentService
	Accounts *service.AccountService

	Tokens *auth.TokenService
	Buyers *identity.Resolver
	Store  store.Store
	Log    *slog.Logger

	AllowedOrigins []string
	Development    bool
}

type handler struct {
	Deps
}

var validatorOnce sync.Once

func NewRouter(d Deps) *gin.Engine {
	if d.Log == nil {
		d.Log = slog.Default()
	}
	if len(d.AllowedOrigins) == 0 {
		d.AllowedOrigins = []string{"http://localhost:3000"}
	}
	validatorOnce.Do(useJSONFieldNames)
	h := &handler{Deps: d}

	r := gin.New()
	r.Use(requestLogger(d.Log))
	r.Use(recovery(d.Log))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     d.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{paginationHeader, "Location"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(errorHandler(d.Log, d.Development))
	r.Use(auth.Authenticate(d.Tokens))

	api := r.Group("/api")
	api.GET("/healthz", h.health)

	api.GET("/products", h.listProducts)
	api.GET("/products/filters", h.productFilters)
	api.GET("/products/:id", h.getProduct)

	api.GET("/basket", h.getBasket)
	api.POST("/basket", h.addBasketItem)
	api.DELETE("/basket", h.removeBasketItem)

	api.POST("/payments/webhook", h.stripeWebhook)

	api.POST("/account/login", h.login)
	api.POST("/account/register", h.register)

	authed := api.Group("", auth.RequireAuth)
	{
		authed.GET("/orders", h.listOrders)
		authed.GET("/orders/:id", h.getOrder)
		authed.POST("/orders", h.createOrder)

		authed.POST("/payments", h.createPaymentIntent)

		authed.GET("/account/currentUser", h.currentUser)
		authed.GET("/account/savedAddress", h.savedAddress)
	}

	r.NoRoute(func(c *gin.Context) {
		writeProblem(c, Problem{Title: "Not Found", Status: http.StatusNotFound})
	})
	return r
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "error", c.Errors.Last().Error())
		}
		log.Info("request", attrs...)
	}
}

func (h *handler) health(c *gin.Context) {
	if err := h.Store.Ping(c.Request.Context()); err != nil {
		h.Log.Warn("health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// identityName returns the authenticated user's name. Only valid behind
// auth.RequireAuth.
func identityName(c *gin.Context) string {
	id, _ := auth.FromContext(c)
	return id.UserName
}
