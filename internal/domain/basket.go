package domain

// BasketItem is one product line in a basket. Product is hydrated by the store
// on load; only its ID and the quantity are persisted.
type BasketItem struct {
	Product  Product
	Quantity int
}

// ProductID returns the ID of the line's product.
func (i BasketItem) ProductID() int64 { return i.Product.ID }

// Basket is owned by a buyer key: the user name or the anonymous cookie token.
type Basket struct {
	ID              int64
	BuyerID         string
	Items           []BasketItem
	PaymentIntentID string
	ClientSecret    string
}

// AddItem increments the line for product, or appends a new one.
func (b *Basket) AddItem(product Product, quantity int) {
	if i := b.indexOf(product.ID); i >= 0 {
		b.Items[i].Quantity += quantity
		b.Items[i].Product = product
		return
	}
	b.Items = append(b.Items, BasketItem{Product: product, Quantity: quantity})
}

// RemoveItem decrements the line for productID and drops it once the quantity
// reaches zero. It reports false when the basket holds no such line.
func (b *Basket) RemoveItem(productID int64, quantity int) bool {
	i := b.indexOf(productID)
	if i < 0 {
		return false
	}
	b.Items[i].Quantity -= quantity
	if b.Items[i].Quantity <= 0 {
		b.Items = append(b.Items[:i], b.Items[i+1:]...)
	}
	return true
}

// Item returns the line for productID.
func (b *Basket) Item(productID int64) (BasketItem, bool) {
	if i := b.indexOf(productID); i >= 0 {
		return b.Items[i], true
	}
	return BasketItem{}, false
}

// Subtotal sums price × quantity using the products loaded with the basket.
func (b *Basket) Subtotal() int64 {
	var total int64
	for _, it := range b.Items {
		total += it.Product.Price * int64(it.Quantity)
	}
	return total
}

// ProductIDs lists the product of every line in basket order.
func (b *Basket) ProductIDs() []int64 {
	ids := make([]int64, 0, len(b.Items))
	for _, it := range b.Items {
		ids = append(ids, it.ProductID())
	}
	return ids
}

func (b *Basket) indexOf(productID int64) int {
	for i, it := range b.Items {
		if it.ProductID() == productID {
			return i
		}
	}
	return -1
}
