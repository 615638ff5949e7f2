package api

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/auth"
	"storefront/internal/checkout"
	"storefront/internal/domain"
	"storefront/internal/dto"
	"storefront/internal/identity"
	"storefront/internal/paging"
	"storefront/internal/payment"
	"storefront/internal/service"
	"storefront/internal/store"
	"storefront/internal/store/memory"
	"storefront/internal/store/seed"
)

const webhookSecret = "whsec_api_test"

func init() { gin.SetMode(gin.TestMode) }

type testServer struct {
	t      *testing.T
	r      *gin.Engine
	st     *memory.Store
	tokens *auth.TokenService
}

func newServer(t *testing.T) *testServer {
	t.Helper()
	return newServerWithBaskets(t, nil)
}

// newServerWithBaskets lets a test put a wrapper between the basket service
// and the store.
func newServerWithBaskets(t *testing.T, wrap func(store.Store) store.Store) *testServer {
	t.Helper()
	st := memory.New()
	require.NoError(t, seed.Run(context.Background(), st, nil))

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens := auth.NewTokenService("test-secret", time.Hour, "storefront")
	fees := checkout.DefaultFeePolicy()
	var baskets store.Store = st
	if wrap != nil {
		baskets = wrap(st)
	}
	r := NewRouter(Deps{
		Catalog:        service.NewCatalogService(st, log),
		Baskets:        service.NewBasketService(baskets, log),
		Orders:         service.NewOrderService(st, fees, log),
		Payments:       service.NewPaymentService(st, payment.LocalProcessor{}, payment.NewWebhookVerifier(webhookSecret), fees, log),
		Accounts:       service.NewAccountService(st, tokens, log),
		Tokens:         tokens,
		Buyers:         identity.NewResolver(identity.CookieConfig{}),
		Store:          st,
		Log:            log,
		AllowedOrigins: []string{"http://localhost:3000"},
		Development:    true,
	})
	return &testServer{t: t, r: r, st: st, tokens: tokens}
}

type reqOpt func(*http.Request)

func withCookie(v string) reqOpt {
	return func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "buyerId", Value: v}) }
}

func (s *testServer) as(user string) reqOpt {
	token, err := s.tokens.Issue(domain.User{UserName: user, Email: user + "@test.com"})
	require.NoError(s.t, err)
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func (s *testServer) do(method, path, body string, opts ...reqOpt) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, o := range opts {
		o(req)
	}
	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func cookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

const address = `{"fullName":"Bob Smith","address1":"1 Main St","city":"Springfield","state":"IL","zip":"62701","country":"US"}`

func TestListProducts(t *testing.T) {
	s := newServer(t)

	t.Run("paged and sorted", func(t *testing.T) {
		w := s.do(http.MethodGet, "/api/products?orderBy=price&pageNumber=2&pageSize=5", "")
		require.Equal(t, http.StatusOK, w.Code)

		md := paging.MetaData{}
		require.NoError(t, json.Unmarshal([]byte(w.Header().Get("Pagination")), &md))
		assert.Equal(t, paging.MetaData{CurrentPage: 2, TotalPages: 4, PageSize: 5, TotalCount: 18}, md)

		items := decode[[]domain.Product](t, w)
		require.Len(t, items, 5)
		for i := 1; i < len(items); i++ {
			assert.LessOrEqual(t, items[i-1].Price, items[i].Price)
		}
	})

	t.Run("facets", func(t *testing.T) {
		w := s.do(http.MethodGet, "/api/products?brands=angular&types=Boots", "")
		require.Equal(t, http.StatusOK, w.Code)
		items := decode[[]domain.Product](t, w)
		require.Len(t, items, 2)
		assert.Equal(t, "Angular Blue Boots", items[0].Name)
		assert.Equal(t, "Angular Purple Boots", items[1].Name)
	})

	t.Run("sort alias and search", func(t *testing.T) {
		w := s.do(http.MethodGet, "/api/products?sort=priceDesc&searchTerm=BOARD", "")
		require.Equal(t, http.StatusOK, w.Code)
		items := decode[[]domain.Product](t, w)
		require.Len(t, items, 6)
		assert.Equal(t, "Net Core Super Board", items[0].Name)
	})

	t.Run("past the end", func(t *testing.T) {
		w := s.do(http.MethodGet, "/api/products?pageNumber=10", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, "[]", w.Body.String())
		assert.Contains(t, w.Header().Get("Pagination"), `"totalPages":3`)
	})

	t.Run("page size capped", func(t *testing.T) {
		w := s.do(http.MethodGet, "/api/products?pageSize=500", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Pagination"), `"pageSize":50`)
	})

	t.Run("malformed paging", func(t *testing.T) {
		w := s.do(http.MethodGet, "/api/products?pageNumber=abc", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, problemContentType, w.Header().Get("Content-Type"))
	})
}

func TestGetProduct(t *testing.T) {
	s := newServer(t)

	w := s.do(http.MethodGet, "/api/products/3", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Core Board Speed Rush 3", decode[domain.Product](t, w).Name)

	for _, path := range []string{"/api/products/999", "/api/products/abc"} {
		w := s.do(http.MethodGet, path, "")
		assert.Equal(t, http.StatusNotFound, w.Code, path)
		assert.Equal(t, "Not Found", decode[Problem](t, w).Title)
	}
}

func TestProductFilters(t *testing.T) {
	s := newServer(t)
	w := s.do(http.MethodGet, "/api/products/filters", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"brands": ["Angular", "NetCore", "React", "Redis", "TypeScript", "VS Code"],
		"types": ["Boards", "Boots", "Gloves", "Hats"]
	}`, w.Body.String())
}

func TestAnonymousBasket(t *testing.T) {
	s := newServer(t)

	w := s.do(http.MethodGet, "/api/basket", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	if c := cookie(w, "buyerId"); assert.NotNil(t, c) {
		assert.Less(t, c.MaxAge, 0, "stale cookie is cleared")
	}

	w = s.do(http.MethodPost, "/api/basket?productId=1&quantity=2", "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	c := cookie(w, "buyerId")
	require.NotNil(t, c)
	assert.Equal(t, 30*24*60*60, c.MaxAge)
	b := decode[dto.BasketDTO](t, w)
	assert.Equal(t, c.Value, b.BuyerID)

	w = s.do(http.MethodPost, "/api/basket?productId=1&quantity=1", "", withCookie(c.Value))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Nil(t, cookie(w, "buyerId"), "existing buyer keeps the cookie")
	b = decode[dto.BasketDTO](t, w)
	require.Len(t, b.Items, 1)
	assert.Equal(t, 3, b.Items[0].Quantity)
	assert.Equal(t, "Angular Speedster Board 2000", b.Items[0].Name)

	w = s.do(http.MethodDelete, "/api/basket?productId=1&quantity=3", "", withCookie(c.Value))
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/api/basket", "", withCookie(c.Value))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[dto.BasketDTO](t, w).Items)

	w = s.do(http.MethodDelete, "/api/basket?productId=1&quantity=1", "", withCookie(c.Value))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAddBasketItem_Invalid(t *testing.T) {
	s := newServer(t)

	w := s.do(http.MethodPost, "/api/basket?productId=999&quantity=1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Nil(t, cookie(w, "buyerId"), "no cookie for a failed add")

	w = s.do(http.MethodPost, "/api/basket?productId=1&quantity=0", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	p := decode[Problem](t, w)
	assert.Contains(t, p.Errors, "quantity")
}

func TestRemoveBasketItem_DefaultQuantity(t *testing.T) {
	s := newServer(t)

	w := s.do(http.MethodPost, "/api/basket?productId=1&quantity=2", "")
	require.Equal(t, http.StatusCreated, w.Code)
	c := cookie(w, "buyerId")
	require.NotNil(t, c)

	w = s.do(http.MethodDelete, "/api/basket?productId=1", "", withCookie(c.Value))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/api/basket", "", withCookie(c.Value))
	b := decode[dto.BasketDTO](t, w)
	require.Len(t, b.Items, 1)
	assert.Equal(t, 1, b.Items[0].Quantity)

	w = s.do(http.MethodDelete, "/api/basket?productId=1&quantity=-1", "", withCookie(c.Value))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type conflictingBaskets struct {
	store.Store
}

func (conflictingBaskets) SaveBasket(context.Context, *domain.Basket) error {
	return domain.NewConflictError("basket no longer exists")
}

func TestAddBasketItem_NoCookieWhenSaveFails(t *testing.T) {
	s := newServerWithBaskets(t, func(st store.Store) store.Store { return conflictingBaskets{st} })

	w := s.do(http.MethodPost, "/api/basket?productId=1&quantity=1", "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Problem saving item to basket", decode[Problem](t, w).Title)
	assert.Nil(t, cookie(w, "buyerId"))
}

func TestLogin(t *testing.T) {
	s := newServer(t)

	w := s.do(http.MethodPost, "/api/basket?productId=7&quantity=1", "")
	require.Equal(t, http.StatusCreated, w.Code)
	anon := cookie(w, "buyerId").Value

	w = s.do(http.MethodPost, "/api/account/login", `{"username":"bob","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/api/account/login", `{"username":"bob","password":"Pa$$w0rd"}`, withCookie(anon))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	u := decode[dto.UserDTO](t, w)
	assert.Equal(t, "bob@test.com", u.Email)
	require.NotNil(t, u.Basket)
	assert.Equal(t, "bob", u.Basket.BuyerID)
	if c := cookie(w, "buyerId"); assert.NotNil(t, c) {
		assert.Empty(t, c.Value)
	}

	bearer := func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+u.Token) }
	w = s.do(http.MethodGet, "/api/basket", "", bearer)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[dto.BasketDTO](t, w).Items, 1)

	w = s.do(http.MethodGet, "/api/account/currentUser", "", bearer)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "bob@test.com", decode[dto.UserDTO](t, w).Email)
}

func TestRegister(t *testing.T) {
	s := newServer(t)

	w := s.do(http.MethodPost, "/api/account/register", `{"username":"carol","email":"carol@test.com","password":"Pa$$w0rd"}`)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"duplicate name", `{"username":"bob","email":"new@test.com","password":"Pa$$w0rd"}`, "DuplicateUserName"},
		{"bad email", `{"username":"dave","email":"nope","password":"Pa$$w0rd"}`, "email"},
		{"missing password", `{"username":"dave","email":"dave@test.com"}`, "password"},
		{"weak password", `{"username":"dave","email":"dave@test.com","password":"abc"}`, "PasswordTooShort"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(http.MethodPost, "/api/account/register", tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, decode[Problem](t, w).Errors, tt.field)
		})
	}
}

func TestOrders(t *testing.T) {
	s := newServer(t)
	bob := s.as("bob")

	w := s.do(http.MethodGet, "/api/orders", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/api/orders", `{"shippingAddress":`+address+`}`, bob)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Could not locate basket", decode[Problem](t, w).Title)

	w = s.do(http.MethodPost, "/api/basket?productId=7&quantity=1", "", bob)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Nil(t, cookie(w, "buyerId"), "signed-in buyers need no cookie")

	w = s.do(http.MethodPost, "/api/orders", `{"shippingAddress":{"fullName":"Bob"}}`, bob)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[Problem](t, w).Errors, "address1")

	w = s.do(http.MethodPost, "/api/orders", `{"shippingAddress":`+address+`,"saveAddress":true}`, bob)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := decode[int64](t, w)
	assert.Equal(t, fmt.Sprintf("/api/orders/%d", id), w.Header().Get("Location"))

	w = s.do(http.MethodGet, fmt.Sprintf("/api/orders/%d", id), "", bob)
	require.Equal(t, http.StatusOK, w.Code)
	o := decode[dto.OrderDTO](t, w)
	assert.Equal(t, int64(1000), o.Subtotal)
	assert.Equal(t, int64(500), o.DeliveryFee)
	assert.Equal(t, int64(1500), o.Total)
	assert.Equal(t, "Pending", o.OrderStatus)
	require.Len(t, o.OrderItems, 1)
	assert.Equal(t, "Core Blue Hat", o.OrderItems[0].Name)

	w = s.do(http.MethodGet, fmt.Sprintf("/api/orders/%d", id), "", s.as("alice"))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, "/api/orders", "", bob)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]dto.OrderDTO](t, w), 1)

	w = s.do(http.MethodGet, "/api/account/savedAddress", "", bob)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Springfield", decode[domain.Address](t, w).City)

	p, err := s.st.GetProduct(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 99, p.QuantityInStock)
}

func sign(payload string) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestPaymentsAndWebhook(t *testing.T) {
	s := newServer(t)
	bob := s.as("bob")

	w := s.do(http.MethodPost, "/api/payments", "", bob)
	assert.Equal(t, http.StatusNotFound, w.Code)

	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/basket?productId=1&quantity=1", "", bob).Code)

	w = s.do(http.MethodPost, "/api/payments", "", bob)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	b := decode[dto.BasketDTO](t, w)
	require.True(t, strings.HasPrefix(b.PaymentIntentID, "pi_local_"))
	assert.NotEmpty(t, b.ClientSecret)

	w = s.do(http.MethodPost, "/api/orders", `{"shippingAddress":`+address+`}`, bob)
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[int64](t, w)

	payload := fmt.Sprintf(`{"id":"evt_1","object":"event","type":"charge.succeeded","data":{"object":{"id":"ch_1","object":"charge","payment_intent":%q}}}`, b.PaymentIntentID)

	w = s.do(http.MethodPost, "/api/payments/webhook", payload, func(r *http.Request) {
		r.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/payments/webhook", payload, func(r *http.Request) {
		r.Header.Set("Stripe-Signature", sign(payload))
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodGet, fmt.Sprintf("/api/orders/%d", id), "", bob)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "PaymentReceived", decode[dto.OrderDTO](t, w).OrderStatus)
}

func TestHealthAndRecovery(t *testing.T) {
	s := newServer(t)

	w := s.do(http.MethodGet, "/api/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)

	s.r.GET("/api/boom", func(*gin.Context) { panic("kaboom") })
	w = s.do(http.MethodGet, "/api/boom", "")
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Server Error", decode[Problem](t, w).Title)

	w = s.do(http.MethodGet, "/api/nowhere", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, "/api/products", "", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer junk")
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCORSExposesPagination(t *testing.T) {
	s := newServer(t)
	w := s.do(http.MethodGet, "/api/products", "", func(r *http.Request) {
		r.Header.Set("Origin", "http://localhost:3000")
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "Pagination")
}

func TestProblemFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{domain.NewNotFoundError("order", "1"), http.StatusNotFound},
		{domain.NewValidationError("bad").Add("f", "m"), http.StatusBadRequest},
		{domain.NewBadRequestError("Could not locate basket"), http.StatusBadRequest},
		{domain.NewConflictError("Problem creating order"), http.StatusConflict},
		{domain.NewUnauthorizedError(""), http.StatusUnauthorized},
		{fmt.Errorf("wrapped: %w", domain.NewNotFoundError("x", "")), http.StatusNotFound},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.status, problemFor(tt.err, false).Status)
		})
	}
	assert.Empty(t, problemFor(io.ErrUnexpectedEOF, false).Detail)
	assert.NotEmpty(t, problemFor(io.ErrUnexpectedEOF, true).Detail)
}
