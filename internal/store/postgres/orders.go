package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/lib/pq"

	"storefront/internal/domain"
)

const orderColumns = `id, buyer_id, order_date,
  ship_full_name, ship_address1, ship_address2, ship_city, ship_state, ship_zip, ship_country,
  subtotal, delivery_fee, order_status, COALESCE(payment_intent_id, '')`

func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		o      domain.Order
		status string
		a      = &o.ShippingAddress
	)
	err := row.Scan(&o.ID, &o.BuyerID, &o.OrderDate,
		&a.FullName, &a.Address1, &a.Address2, &a.City, &a.State, &a.Zip, &a.Country,
		&o.Subtotal, &o.DeliveryFee, &status, &o.PaymentIntentID)
	if err != nil {
		return domain.Order{}, err
	}
	if o.Status, err = domain.ParseOrderStatus(status); err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

func (s *Store) CreateOrder(ctx context.Context, o *domain.Order) error {
	run := s.run(ctx)
	a := o.ShippingAddress

	err := run.QueryRowContext(ctx, `
INSERT INTO orders (buyer_id, order_date,
  ship_full_name, ship_address1, ship_address2, ship_city, ship_state, ship_zip, ship_country,
  subtotal, delivery_fee, order_status, payment_intent_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NULLIF($13, ''))
RETURNING id`,
		o.BuyerID, o.OrderDate,
		a.FullName, a.Address1, a.Address2, a.City, a.State, a.Zip, a.Country,
		o.Subtotal, o.DeliveryFee, o.Status.String(), o.PaymentIntentID,
	).Scan(&o.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NewConflictError("order was not created")
	}
	if err != nil {
		return fmt.Errorf("postgres: insert order: %w", err)
	}

	for i := range o.Items {
		it := &o.Items[i]
		err := run.QueryRowContext(ctx, `
INSERT INTO order_items (order_id, product_id, name, picture_url, price, quantity)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id`,
			o.ID, it.ItemOrdered.ProductID, it.ItemOrdered.Name, it.ItemOrdered.PictureURL, it.Price, it.Quantity,
		).Scan(&it.ID)
		if err != nil {
			return fmt.Errorf("postgres: insert order item: %w", err)
		}
	}
	return nil
}

func (s *Store) ListOrders(ctx context.Context, buyerID string) ([]domain.Order, error) {
	rows, err := s.run(ctx).QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE buyer_id = $1 ORDER BY id`, buyerID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list orders: %w", err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := s.loadOrderItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *Store) GetOrder(ctx context.Context, buyerID string, id int64) (domain.Order, error) {
	row := s.run(ctx).QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 AND buyer_id = $2`, id, buyerID)
	return s.oneOrder(ctx, row, strconv.FormatInt(id, 10))
}

func (s *Store) GetOrderByPaymentIntent(ctx context.Context, paymentIntentID string) (domain.Order, error) {
	row := s.run(ctx).QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE payment_intent_id = $1 ORDER BY id DESC LIMIT 1`, paymentIntentID)
	return s.oneOrder(ctx, row, paymentIntentID)
}

func (s *Store) oneOrder(ctx context.Context, row *sql.Row, key string) (domain.Order, error) {
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Order{}, domain.NewNotFoundError("order", key)
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("postgres: get order: %w", err)
	}
	orders := []domain.Order{o}
	if err := s.loadOrderItems(ctx, orders); err != nil {
		return domain.Order{}, err
	}
	return orders[0], nil
}

func (s *Store) loadOrderItems(ctx context.Context, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]int64, len(orders))
	index := make(map[int64]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
		orders[i].Items = []domain.OrderItem{}
	}

	rows, err := s.run(ctx).QueryContext(ctx, `
SELECT id, order_id, product_id, name, picture_url, price, quantity
FROM order_items
WHERE order_id = ANY($1)
ORDER BY id`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("postgres: list order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			it      domain.OrderItem
			orderID int64
		)
		err := rows.Scan(&it.ID, &orderID, &it.ItemOrdered.ProductID, &it.ItemOrdered.Name,
			&it.ItemOrdered.PictureURL, &it.Price, &it.Quantity)
		if err != nil {
			return fmt.Errorf("postgres: scan order item: %w", err)
		}
		if i, ok := index[orderID]; ok {
			orders[i].Items = append(orders[i].Items, it)
		}
	}
	return rows.Err()
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id int64, status domain.OrderStatus) error {
	res, err := s.run(ctx).ExecContext(ctx,
		`UPDATE orders SET order_status = $2 WHERE id = $1`, id, status.String())
	if err != nil {
		return fmt.Errorf("postgres: update order status: %w", err)
	}
	if affected(res) == 0 {
		return domain.NewNotFoundError("order", strconv.FormatInt(id, 10))
	}
	return nil
}
