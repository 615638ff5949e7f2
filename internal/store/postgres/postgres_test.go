package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/catalog"
	"storefront/internal/domain"
	"storefront/internal/paging"
)

var productCols = []string{"id", "name", "description", "price", "picture_url", "type", "brand", "quantity_in_stock"}

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, nil), mock
}

func q(sql string) string { return regexp.QuoteMeta(sql) }

func TestGetProduct(t *testing.T) {
	s, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectQuery(q(`FROM products WHERE id = $1`)).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(productCols).
			AddRow(int64(3), "Core Board Speed Rush 3", "desc", int64(18000), "/images/products/sb-core1.png", "Boards", "NetCore", 100))
	mock.ExpectQuery(q(`FROM products WHERE id = $1`)).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows(productCols))

	p, err := s.GetProduct(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "NetCore", p.Brand)
	assert.Equal(t, int64(18000), p.Price)

	_, err = s.GetProduct(ctx, 99)
	assert.True(t, domain.IsNotFound(err))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryProducts_PagesFilteredQuery(t *testing.T) {
	s, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectQuery(q(`SELECT COUNT(*) FROM products WHERE LOWER(name) LIKE '%' || $1 || '%' AND LOWER(brand) = ANY($2)`)).
		WithArgs("board", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(q(`AND LOWER(brand) = ANY($2) ORDER BY price DESC, id ASC LIMIT $3 OFFSET $4`)).
		WithArgs("board", sqlmock.AnyArg(), 2, 2).
		WillReturnRows(sqlmock.NewRows(productCols).
			AddRow(int64(2), "Green Angular Board 3000", "", int64(15000), "", "Boards", "Angular", 100))

	src := s.QueryProducts(ctx, catalog.NewQuery("priceDesc", "Board", "angular", ""))
	page, err := paging.ToPagedList(ctx, src, 2, 2)
	require.NoError(t, err)

	assert.Equal(t, paging.MetaData{CurrentPage: 2, TotalPages: 2, PageSize: 2, TotalCount: 3}, page.MetaData)
	require.Len(t, page.Items, 1)
	assert.Equal(t, int64(2), page.Items[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildProductWhere(t *testing.T) {
	where, args := buildProductWhere(catalog.Query{})
	assert.Empty(t, where)
	assert.Empty(t, args)

	where, args = buildProductWhere(catalog.Query{SearchTerm: "50%_off", Types: []string{"Hats"}})
	assert.Equal(t, ` WHERE LOWER(name) LIKE '%' || $1 || '%' AND LOWER(type) = ANY($2)`, where)
	require.Len(t, args, 2)
	assert.Equal(t, `50\%\_off`, args[0])
	assert.Equal(t, pq.Array([]string{"hats"}), args[1])

	assert.Equal(t, "ORDER BY name ASC, id ASC", buildProductOrderBy("whatever"))
	assert.Equal(t, "ORDER BY price ASC, id ASC", buildProductOrderBy(catalog.SortPrice))
}

func TestAdjustStock_UnknownProduct(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectExec(q(`UPDATE products SET quantity_in_stock = quantity_in_stock + $2 WHERE id = $1`)).
		WithArgs(int64(5), -2).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.AdjustStock(context.Background(), 5, -2)
	assert.True(t, domain.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveBasket_InsertsHeaderAndLines(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery(q(`INSERT INTO baskets (buyer_id, payment_intent_id, client_secret)`)).
		WithArgs("buyer-1", "", "").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))
	mock.ExpectExec(q(`INSERT INTO basket_items (basket_id, product_id, quantity, position)`)).
		WithArgs(int64(11), int64(1), 2, 0).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(q(`INSERT INTO basket_items (basket_id, product_id, quantity, position)`)).
		WithArgs(int64(11), int64(4), 1, 1).
		WillReturnResult(sqlmock.NewResult(2, 1))

	b := &domain.Basket{BuyerID: "buyer-1"}
	b.AddItem(domain.Product{ID: 1}, 2)
	b.AddItem(domain.Product{ID: 4}, 1)

	require.NoError(t, s.SaveBasket(context.Background(), b))
	assert.Equal(t, int64(11), b.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveBasket_VanishedBasketIsConflict(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectExec(q(`UPDATE baskets`)).
		WithArgs(int64(8), "bob", "pi_1", "secret").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.SaveBasket(context.Background(), &domain.Basket{ID: 8, BuyerID: "bob", PaymentIntentID: "pi_1", ClientSecret: "secret"})
	assert.True(t, domain.IsConflict(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetBasket_HydratesProducts(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery(q(`FROM baskets`)).
		WithArgs("bob").
		WillReturnRows(sqlmock.NewRows([]string{"id", "buyer_id", "payment_intent_id", "client_secret"}).
			AddRow(int64(4), "bob", "pi_9", "sec_9"))
	mock.ExpectQuery(q(`FROM basket_items bi`)).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows(append(append([]string{}, productCols...), "quantity")).
			AddRow(int64(7), "Core Blue Hat", "", int64(1000), "/hat.png", "Hats", "NetCore", 100, 3))

	b, err := s.GetBasket(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, "pi_9", b.PaymentIntentID)
	require.Len(t, b.Items, 1)
	assert.Equal(t, "Core Blue Hat", b.Items[0].Product.Name)
	assert.Equal(t, 3, b.Items[0].Quantity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetBasket_EmptyBuyerSkipsQuery(t *testing.T) {
	s, mock := newMock(t)
	_, err := s.GetBasket(context.Background(), "")
	assert.True(t, domain.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTx(t *testing.T) {
	t.Run("commit", func(t *testing.T) {
		s, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(q(`DELETE FROM baskets WHERE id = $1`)).
			WithArgs(int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := s.WithinTx(context.Background(), func(ctx context.Context) error {
			return s.DeleteBasket(ctx, 1)
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rollback", func(t *testing.T) {
		s, mock := newMock(t)
		boom := errors.New("boom")
		mock.ExpectBegin()
		mock.ExpectRollback()

		err := s.WithinTx(context.Background(), func(ctx context.Context) error {
			// nested unit joins the outer transaction
			return s.WithinTx(ctx, func(context.Context) error { return boom })
		})
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCreateOrder(t *testing.T) {
	s, mock := newMock(t)
	when := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	addr := domain.Address{FullName: "Bob", Address1: "1 Main", City: "X", State: "Y", Zip: "1", Country: "US"}

	mock.ExpectQuery(q(`INSERT INTO orders`)).
		WithArgs("bob", when, "Bob", "1 Main", "", "X", "Y", "1", "US", int64(3000), int64(500), "Pending", "pi_1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(21)))
	mock.ExpectQuery(q(`INSERT INTO order_items`)).
		WithArgs(int64(21), int64(1), "A", "/a.png", int64(3000), 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(31)))

	o := &domain.Order{
		BuyerID: "bob", OrderDate: when, ShippingAddress: addr,
		Subtotal: 3000, DeliveryFee: 500, PaymentIntentID: "pi_1",
		Items: []domain.OrderItem{{
			ItemOrdered: domain.ProductItemOrdered{ProductID: 1, Name: "A", PictureURL: "/a.png"},
			Price:       3000, Quantity: 1,
		}},
	}
	require.NoError(t, s.CreateOrder(context.Background(), o))
	assert.Equal(t, int64(21), o.ID)
	assert.Equal(t, int64(31), o.Items[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrder_LoadsItemsAndStatus(t *testing.T) {
	s, mock := newMock(t)
	when := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(q(`FROM orders WHERE id = $1 AND buyer_id = $2`)).
		WithArgs(int64(21), "bob").
		WillReturnRows(sqlmock.NewRows([]string{"id", "buyer_id", "order_date",
			"ship_full_name", "ship_address1", "ship_address2", "ship_city", "ship_state", "ship_zip", "ship_country",
			"subtotal", "delivery_fee", "order_status", "payment_intent_id"}).
			AddRow(int64(21), "bob", when, "Bob", "1 Main", "", "X", "Y", "1", "US", int64(3000), int64(500), "PaymentReceived", "pi_1"))
	mock.ExpectQuery(q(`FROM order_items`)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "product_id", "name", "picture_url", "price", "quantity"}).
			AddRow(int64(31), int64(21), int64(1), "A", "/a.png", int64(3000), 1))

	o, err := s.GetOrder(context.Background(), "bob", 21)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPaymentReceived, o.Status)
	assert.Equal(t, int64(3500), o.Total())
	require.Len(t, o.Items, 1)
	assert.Equal(t, "A", o.Items[0].ItemOrdered.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser_Duplicate(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery(q(`INSERT INTO users`)).
		WithArgs("bob", "bob@test.com", "hash", sqlmock.AnyArg()).
		WillReturnError(&pq.Error{Code: "23505"})

	err := s.CreateUser(context.Background(), &domain.User{UserName: "bob", Email: "bob@test.com", PasswordHash: "hash", Roles: []string{"Member"}})
	assert.ErrorIs(t, err, domain.ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveAddress_UnknownUser(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectExec(q(`UPDATE users`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.SaveAddress(context.Background(), "ghost", domain.Address{FullName: "G"})
	assert.True(t, domain.IsNotFound(err))
}
