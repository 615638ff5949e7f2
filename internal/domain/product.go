// Package domain holds the storefront entities and the errors shared across layers.
package domain

// Product is a catalog entry. Price is in minor currency units.
type Product struct {
	ID              int64  `bson:"_id" json:"id"`
	Name            string `bson:"name" json:"name"`
	Description     string `bson:"description" json:"description"`
	Price           int64  `bson:"price" json:"price"`
	PictureURL      string `bson:"pictureUrl" json:"pictureUrl"`
	Type            string `bson:"type" json:"type"`
	Brand           string `bson:"brand" json:"brand"`
	QuantityInStock int    `bson:"quantityInStock" json:"quantityInStock"`
}
