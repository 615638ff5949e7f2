package mongodb

import (
	"context"
	"fmt"
	"strconv"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"storefront/internal/domain"
)

type basketDoc struct {
	ID              int64        `bson:"_id"`
	BuyerID         string       `bson:"buyerId"`
	Items           []basketLine `bson:"items"`
	PaymentIntentID string       `bson:"paymentIntentId,omitempty"`
	ClientSecret    string       `bson:"clientSecret,omitempty"`
}

type basketLine struct {
	ProductID int64 `bson:"productId"`
	Quantity  int   `bson:"quantity"`
}

func toBasketDoc(b *domain.Basket) basketDoc {
	doc := basketDoc{
		ID:              b.ID,
		BuyerID:         b.BuyerID,
		Items:           make([]basketLine, 0, len(b.Items)),
		PaymentIntentID: b.PaymentIntentID,
		ClientSecret:    b.ClientSecret,
	}
	for _, it := range b.Items {
		doc.Items = append(doc.Items, basketLine{ProductID: it.ProductID(), Quantity: it.Quantity})
	}
	return doc
}

func (s *Store) baskets() *mongo.Collection { return s.db.Collection(colBaskets) }

func (s *Store) GetBasket(ctx context.Context, buyerID string) (domain.Basket, error) {
	if buyerID == "" {
		return domain.Basket{}, domain.NewNotFoundError("basket", "")
	}
	var doc basketDoc
	err := s.baskets().FindOne(ctx, bson.M{"buyerId": buyerID}).Decode(&doc)
	if notFound(err) {
		return domain.Basket{}, domain.NewNotFoundError("basket", buyerID)
	}
	if err != nil {
		return domain.Basket{}, fmt.Errorf("mongo: get basket: %w", err)
	}

	ids := make([]int64, 0, len(doc.Items))
	for _, l := range doc.Items {
		ids = append(ids, l.ProductID)
	}
	products, err := s.GetProducts(ctx, ids)
	if err != nil {
		return domain.Basket{}, err
	}

	b := domain.Basket{
		ID:              doc.ID,
		BuyerID:         doc.BuyerID,
		PaymentIntentID: doc.PaymentIntentID,
		ClientSecret:    doc.ClientSecret,
		Items:           make([]domain.BasketItem, 0, len(doc.Items)),
	}
	for _, l := range doc.Items {
		p, ok := products[l.ProductID]
		if !ok {
			// product deleted since it was added
			continue
		}
		b.Items = append(b.Items, domain.BasketItem{Product: p, Quantity: l.Quantity})
	}
	return b, nil
}

func (s *Store) SaveBasket(ctx context.Context, b *domain.Basket) error {
	if b.ID == 0 {
		id, err := s.nextID(ctx, colBaskets)
		if err != nil {
			return err
		}
		b.ID = id
		if _, err := s.baskets().InsertOne(ctx, toBasketDoc(b)); err != nil {
			b.ID = 0
			if mongo.IsDuplicateKeyError(err) {
				return domain.ErrDuplicate
			}
			return fmt.Errorf("mongo: insert basket: %w", err)
		}
		return nil
	}
	res, err := s.baskets().ReplaceOne(ctx, bson.M{"_id": b.ID}, toBasketDoc(b))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("mongo: replace basket: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.NewConflictError("basket no longer exists")
	}
	return nil
}

func (s *Store) DeleteBasket(ctx context.Context, id int64) error {
	res, err := s.baskets().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("mongo: delete basket: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.NewNotFoundError("basket", strconv.FormatInt(id, 10))
	}
	return nil
}
