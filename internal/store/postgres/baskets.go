package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"storefront/internal/domain"
)

func (s *Store) GetBasket(ctx context.Context, buyerID string) (domain.Basket, error) {
	if buyerID == "" {
		return domain.Basket{}, domain.NewNotFoundError("basket", "")
	}
	run := s.run(ctx)

	var b domain.Basket
	err := run.QueryRowContext(ctx, `
SELECT id, buyer_id, COALESCE(payment_intent_id, ''), COALESCE(client_secret, '')
FROM baskets
WHERE buyer_id = $1`, buyerID).Scan(&b.ID, &b.BuyerID, &b.PaymentIntentID, &b.ClientSecret)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Basket{}, domain.NewNotFoundError("basket", buyerID)
	}
	if err != nil {
		return domain.Basket{}, fmt.Errorf("postgres: get basket: %w", err)
	}

	rows, err := run.QueryContext(ctx, `
SELECT p.id, p.name, p.description, p.price, p.picture_url, p.type, p.brand, p.quantity_in_stock, bi.quantity
FROM basket_items bi
JOIN products p ON p.id = bi.product_id
WHERE bi.basket_id = $1
ORDER BY bi.position, bi.id`, b.ID)
	if err != nil {
		return domain.Basket{}, fmt.Errorf("postgres: get basket items: %w", err)
	}
	defer rows.Close()

	b.Items = []domain.BasketItem{}
	for rows.Next() {
		var qty int
		p, err := scanProduct(rows, &qty)
		if err != nil {
			return domain.Basket{}, fmt.Errorf("postgres: scan basket item: %w", err)
		}
		b.Items = append(b.Items, domain.BasketItem{Product: p, Quantity: qty})
	}
	if err := rows.Err(); err != nil {
		return domain.Basket{}, err
	}
	return b, nil
}

// SaveBasket writes the header then replaces every line. Callers run it
// inside WithinTx so the replacement is atomic.
func (s *Store) SaveBasket(ctx context.Context, b *domain.Basket) error {
	run := s.run(ctx)

	if b.ID == 0 {
		err := run.QueryRowContext(ctx, `
INSERT INTO baskets (buyer_id, payment_intent_id, client_secret)
VALUES ($1, NULLIF($2, ''), NULLIF($3, ''))
RETURNING id`, b.BuyerID, b.PaymentIntentID, b.ClientSecret).Scan(&b.ID)
		switch {
		case isUniqueViolation(err):
			return domain.ErrDuplicate
		case errors.Is(err, sql.ErrNoRows):
			return domain.NewConflictError("basket was not created")
		case err != nil:
			return fmt.Errorf("postgres: insert basket: %w", err)
		}
	} else {
		res, err := run.ExecContext(ctx, `
UPDATE baskets
SET buyer_id = $2, payment_intent_id = NULLIF($3, ''), client_secret = NULLIF($4, '')
WHERE id = $1`, b.ID, b.BuyerID, b.PaymentIntentID, b.ClientSecret)
		if err != nil {
			return fmt.Errorf("postgres: update basket: %w", err)
		}
		if affected(res) == 0 {
			return domain.NewConflictError("basket no longer exists")
		}
		if _, err := run.ExecContext(ctx, `DELETE FROM basket_items WHERE basket_id = $1`, b.ID); err != nil {
			return fmt.Errorf("postgres: clear basket items: %w", err)
		}
	}

	for i, it := range b.Items {
		_, err := run.ExecContext(ctx, `
INSERT INTO basket_items (basket_id, product_id, quantity, position)
VALUES ($1, $2, $3, $4)`, b.ID, it.ProductID(), it.Quantity, i)
		if err != nil {
			return fmt.Errorf("postgres: insert basket item: %w", err)
		}
	}
	return nil
}

func (s *Store) DeleteBasket(ctx context.Context, id int64) error {
	res, err := s.run(ctx).ExecContext(ctx, `DELETE FROM baskets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete basket: %w", err)
	}
	if affected(res) == 0 {
		return domain.NewNotFoundError("basket", strconv.FormatInt(id, 10))
	}
	return nil
}
