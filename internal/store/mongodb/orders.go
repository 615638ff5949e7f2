package mongodb

import (
	"context"
	"fmt"
	"strconv"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/domain"
)

func (s *Store) orders() *mongo.Collection { return s.db.Collection(colOrders) }

func (s *Store) CreateOrder(ctx context.Context, o *domain.Order) error {
	id, err := s.nextID(ctx, colOrders)
	if err != nil {
		return err
	}
	for i := range o.Items {
		if o.Items[i].ID, err = s.nextID(ctx, "orderItems"); err != nil {
			return err
		}
	}
	o.ID = id
	if o.Items == nil {
		o.Items = []domain.OrderItem{}
	}
	res, err := s.orders().InsertOne(ctx, o)
	if err != nil {
		return fmt.Errorf("mongo: insert order: %w", err)
	}
	if res.InsertedID == nil {
		return domain.NewConflictError("order was not created")
	}
	return nil
}

func (s *Store) ListOrders(ctx context.Context, buyerID string) ([]domain.Order, error) {
	cur, err := s.orders().Find(ctx, bson.M{"buyerId": buyerID},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("mongo: list orders: %w", err)
	}
	out := []domain.Order{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("mongo: decode orders: %w", err)
	}
	return out, nil
}

func (s *Store) GetOrder(ctx context.Context, buyerID string, id int64) (domain.Order, error) {
	return s.findOrder(ctx, bson.M{"_id": id, "buyerId": buyerID}, nil, strconv.FormatInt(id, 10))
}

func (s *Store) GetOrderByPaymentIntent(ctx context.Context, paymentIntentID string) (domain.Order, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "_id", Value: -1}})
	return s.findOrder(ctx, bson.M{"paymentIntentId": paymentIntentID}, opts, paymentIntentID)
}

func (s *Store) findOrder(ctx context.Context, filter bson.M, opts *options.FindOneOptions, key string) (domain.Order, error) {
	var o domain.Order
	var err error
	if opts != nil {
		err = s.orders().FindOne(ctx, filter, opts).Decode(&o)
	} else {
		err = s.orders().FindOne(ctx, filter).Decode(&o)
	}
	if notFound(err) {
		return domain.Order{}, domain.NewNotFoundError("order", key)
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("mongo: get order: %w", err)
	}
	return o, nil
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id int64, status domain.OrderStatus) error {
	res, err := s.orders().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"orderStatus": status}})
	if err != nil {
		return fmt.Errorf("mongo: update order status: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.NewNotFoundError("order", strconv.FormatInt(id, 10))
	}
	return nil
}
