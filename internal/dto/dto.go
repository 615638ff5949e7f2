// Package dto shapes domain values for the JSON API.
package dto

import (
	"time"

	"storefront/internal/domain"
)

type BasketItemDTO struct {
	ProductID  int64  `json:"productId"`
	Name       string `json:"name"`
	Price      int64  `json:"price"`
	PictureURL string `json:"pictureUrl"`
	Brand      string `json:"brand"`
	Type       string `json:"type"`
	Quantity   int    `json:"quantity"`
}

type BasketDTO struct {
	ID              int64           `json:"id"`
	BuyerID         string          `json:"buyerId"`
	Items           []BasketItemDTO `json:"items"`
	PaymentIntentID string          `json:"paymentIntentId,omitempty"`
	ClientSecret    string          `json:"clientSecret,omitempty"`
}

func MapBasket(b domain.Basket) BasketDTO {
	out := BasketDTO{
		ID:              b.ID,
		BuyerID:         b.BuyerID,
		PaymentIntentID: b.PaymentIntentID,
		ClientSecret:    b.ClientSecret,
		Items:           make([]BasketItemDTO, 0, len(b.Items)),
	}
	for _, it := range b.Items {
		out.Items = append(out.Items, BasketItemDTO{
			ProductID:  it.Product.ID,
			Name:       it.Product.Name,
			Price:      it.Product.Price,
			PictureURL: it.Product.PictureURL,
			Brand:      it.Product.Brand,
			Type:       it.Product.Type,
			Quantity:   it.Quantity,
		})
	}
	return out
}

type OrderItemDTO struct {
	ProductID  int64  `json:"productId"`
	Name       string `json:"name"`
	PictureURL string `json:"pictureUrl"`
	Price      int64  `json:"price"`
	Quantity   int    `json:"quantity"`
}

type OrderDTO struct {
	ID              int64          `json:"id"`
	BuyerID         string         `json:"buyerId"`
	OrderDate       time.Time      `json:"orderDate"`
	ShippingAddress domain.Address `json:"shippingAddress"`
	OrderItems      []OrderItemDTO `json:"orderItems"`
	Subtotal        int64          `json:"subtotal"`
	DeliveryFee     int64          `json:"deliveryFee"`
	OrderStatus     string         `json:"orderStatus"`
	Total           int64          `json:"total"`
}

// MapOrder reads item display fields from the order's own snapshot, never
// from the live product.
func MapOrder(o domain.Order) OrderDTO {
	out := OrderDTO{
		ID:              o.ID,
		BuyerID:         o.BuyerID,
		OrderDate:       o.OrderDate,
		ShippingAddress: o.ShippingAddress,
		Subtotal:        o.Subtotal,
		DeliveryFee:     o.DeliveryFee,
		OrderStatus:     o.Status.String(),
		Total:           o.Total(),
		OrderItems:      make([]OrderItemDTO, 0, len(o.Items)),
	}
	for _, it := range o.Items {
		out.OrderItems = append(out.OrderItems, OrderItemDTO{
			ProductID:  it.ItemOrdered.ProductID,
			Name:       it.ItemOrdered.Name,
			PictureURL: it.ItemOrdered.PictureURL,
			Price:      it.Price,
			Quantity:   it.Quantity,
		})
	}
	return out
}

func MapOrders(orders []domain.Order) []OrderDTO {
	out := make([]OrderDTO, 0, len(orders))
	for _, o := range orders {
		out = append(out, MapOrder(o))
	}
	return out
}

// UserDTO is returned by login and currentUser.
type UserDTO struct {
	Email  string     `json:"email"`
	Token  string     `json:"token"`
	Basket *BasketDTO `json:"basket,omitempty"`
}
