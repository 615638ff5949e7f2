// Package checkout turns a basket into an order: price snapshots, subtotal,
// delivery fee and the stock movements the order implies.
package checkout

import (
	"strconv"
	"time"

	"storefront/internal/domain"
)

// Default fee schedule, in minor units.
const (
	DefaultFreeDeliveryThreshold int64 = 10000
	DefaultDeliveryFee           int64 = 500
)

// FeePolicy charges DeliveryFee unless the subtotal exceeds FreeDeliveryThreshold.
type FeePolicy struct {
	FreeDeliveryThreshold int64
	DeliveryFee           int64
}

func DefaultFeePolicy() FeePolicy {
	return FeePolicy{
		FreeDeliveryThreshold: DefaultFreeDeliveryThreshold,
		DeliveryFee:           DefaultDeliveryFee,
	}
}

// Fee returns the delivery fee for subtotal.
func (p FeePolicy) Fee(subtotal int64) int64 {
	if subtotal > p.FreeDeliveryThreshold {
		return 0
	}
	return p.DeliveryFee
}

// Total is subtotal plus its delivery fee.
func (p FeePolicy) Total(subtotal int64) int64 {
	return subtotal + p.Fee(subtotal)
}

// StockChange is a signed adjustment to a product's quantity in stock.
type StockChange struct {
	ProductID int64
	Delta     int
	// Remaining is the stock left after the change, computed from the
	// product as it was read. It may be negative.
	Remaining int
}

// Draft is an order ready to persist together with its stock changes.
type Draft struct {
	Order domain.Order
	Stock []StockChange
}

// Oversold lists the changes that leave stock below zero.
func (d Draft) Oversold() []StockChange {
	var out []StockChange
	for _, c := range d.Stock {
		if c.Remaining < 0 {
			out = append(out, c)
		}
	}
	return out
}

// Subtotal sums price × quantity over items.
func Subtotal(items []domain.OrderItem) int64 {
	var total int64
	for _, it := range items {
		total += it.Price * int64(it.Quantity)
	}
	return total
}

// BuildOrder snapshots each basket line against the current product, taking
// the product's price at this moment rather than the one loaded with the
// basket. products must hold every product referenced by basket.
func BuildOrder(buyerID string, basket domain.Basket, products map[int64]domain.Product,
	shipTo domain.Address, fees FeePolicy, now time.Time) (Draft, error) {

	items := make([]domain.OrderItem, 0, len(basket.Items))
	stock := make([]StockChange, 0, len(basket.Items))
	for _, line := range basket.Items {
		p, ok := products[line.ProductID()]
		if !ok {
			return Draft{}, domain.NewNotFoundError("product", strconv.FormatInt(line.ProductID(), 10))
		}
		items = append(items, domain.OrderItem{
			ItemOrdered: domain.ProductItemOrdered{
				ProductID:  p.ID,
				Name:       p.Name,
				PictureURL: p.PictureURL,
			},
			Price:    p.Price,
			Quantity: line.Quantity,
		})
		stock = append(stock, StockChange{
			ProductID: p.ID,
			Delta:     -line.Quantity,
			Remaining: p.QuantityInStock - line.Quantity,
		})
	}

	subtotal := Subtotal(items)
	return Draft{
		Order: domain.Order{
			BuyerID:         buyerID,
			OrderDate:       now.UTC(),
			ShippingAddress: shipTo,
			Items:           items,
			Subtotal:        subtotal,
			DeliveryFee:     fees.Fee(subtotal),
			Status:          domain.OrderPending,
			PaymentIntentID: basket.PaymentIntentID,
		},
		Stock: stock,
	}, nil
}
