package domain

import (
	"fmt"
	"strings"
	"time"
)

// OrderStatus tracks payment progress of an order.
type OrderStatus int

const (
	OrderPending OrderStatus = iota
	OrderPaymentReceived
	OrderPaymentFailed
)

var orderStatusNames = [...]string{"Pending", "PaymentReceived", "PaymentFailed"}

func (s OrderStatus) String() string {
	if s < 0 || int(s) >= len(orderStatusNames) {
		return fmt.Sprintf("OrderStatus(%d)", int(s))
	}
	return orderStatusNames[s]
}

// ParseOrderStatus is the inverse of String, case-insensitive.
func ParseOrderStatus(s string) (OrderStatus, error) {
	for i, name := range orderStatusNames {
		if strings.EqualFold(name, s) {
			return OrderStatus(i), nil
		}
	}
	return 0, fmt.Errorf("unknown order status %q", s)
}

// Address is a shipping or saved-to-profile address. Address2 is optional.
type Address struct {
	FullName string `bson:"fullName" json:"fullName" binding:"required"`
	Address1 string `bson:"address1" json:"address1" binding:"required"`
	Address2 string `bson:"address2,omitempty" json:"address2,omitempty"`
	City     string `bson:"city" json:"city" binding:"required"`
	State    string `bson:"state" json:"state" binding:"required"`
	Zip      string `bson:"zip" json:"zip" binding:"required"`
	Country  string `bson:"country" json:"country" binding:"required"`
}

// ProductItemOrdered is the product snapshot taken when the order is placed.
type ProductItemOrdered struct {
	ProductID  int64  `bson:"productId" json:"productId"`
	Name       string `bson:"name" json:"name"`
	PictureURL string `bson:"pictureUrl" json:"pictureUrl"`
}

// OrderItem is immutable once the order exists.
type OrderItem struct {
	ID          int64              `bson:"id" json:"id"`
	ItemOrdered ProductItemOrdered `bson:"itemOrdered" json:"itemOrdered"`
	Price       int64              `bson:"price" json:"price"`
	Quantity    int                `bson:"quantity" json:"quantity"`
}

type Order struct {
	ID              int64       `bson:"_id" json:"id"`
	BuyerID         string      `bson:"buyerId" json:"buyerId"`
	OrderDate       time.Time   `bson:"orderDate" json:"orderDate"`
	ShippingAddress Address     `bson:"shippingAddress" json:"shippingAddress"`
	Items           []OrderItem `bson:"orderItems" json:"orderItems"`
	Subtotal        int64       `bson:"subtotal" json:"subtotal"`
	DeliveryFee     int64       `bson:"deliveryFee" json:"deliveryFee"`
	Status          OrderStatus `bson:"orderStatus" json:"orderStatus"`
	PaymentIntentID string      `bson:"paymentIntentId,omitempty" json:"paymentIntentId,omitempty"`
}

// Total is subtotal plus delivery fee.
func (o Order) Total() int64 { return o.Subtotal + o.DeliveryFee }
