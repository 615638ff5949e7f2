// Package mongodb implements store.Store on MongoDB. Numeric ids come from a
// counters collection so both backends expose the same identities.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"storefront/internal/store"
)

const (
	colProducts = "products"
	colBaskets  = "baskets"
	colOrders   = "orders"
	colUsers    = "users"
	colCounters = "counters"
)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
	log    *slog.Logger

	// transactions needs a replica set; standalone servers run units of
	// work without atomicity.
	transactions bool
}

var _ store.Store = (*Store)(nil)

// Options configure Open.
type Options struct {
	URI          string
	Database     string
	Transactions bool
}

// Open connects and pings the primary.
func Open(ctx context.Context, opts Options, log *slog.Logger) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(opts.URI))
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}
	return New(client, client.Database(opts.Database), opts.Transactions, log), nil
}

// New wraps an existing database handle.
func New(client *mongo.Client, db *mongo.Database, transactions bool, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{client: client, db: db, transactions: transactions, log: log}
}

func (s *Store) Ping(ctx context.Context) error { return s.client.Ping(ctx, readpref.Primary()) }

func (s *Store) Close(ctx context.Context) error { return s.client.Disconnect(ctx) }

// Migrate creates the unique indexes the repositories rely on.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		colBaskets: {
			{Keys: bson.D{{Key: "buyerId", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		colOrders: {
			{Keys: bson.D{{Key: "buyerId", Value: 1}, {Key: "_id", Value: 1}}},
			{Keys: bson.D{{Key: "paymentIntentId", Value: 1}}},
		},
		colUsers: {
			{Keys: bson.D{{Key: "userNameKey", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "emailKey", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		colProducts: {
			{Keys: bson.D{{Key: "name", Value: 1}}},
			{Keys: bson.D{{Key: "price", Value: 1}}},
		},
	}
	for col, models := range indexes {
		if _, err := s.db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("mongo: indexes on %s: %w", col, err)
		}
	}
	// Collections cannot be created implicitly inside a transaction on older servers.
	names, err := s.db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("mongo: list collections: %w", err)
	}
	have := map[string]bool{}
	for _, n := range names {
		have[n] = true
	}
	if !have[colCounters] {
		if err := s.db.CreateCollection(ctx, colCounters); err != nil {
			return fmt.Errorf("mongo: create counters: %w", err)
		}
	}
	return nil
}

// WithinTx runs fn inside a session transaction when transactions are
// enabled. The session travels in ctx, so repository calls join it.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if !s.transactions || mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}
	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("mongo: start session: %w", err)
	}
	defer sess.EndSession(context.Background())

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// nextID increments and returns the named counter.
func (s *Store) nextID(ctx context.Context, name string) (int64, error) {
	var doc struct {
		Seq int64 `bson:"seq"`
	}
	err := s.db.Collection(colCounters).FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("mongo: next %s id: %w", name, err)
	}
	return doc.Seq, nil
}

func notFound(err error) bool { return errors.Is(err, mongo.ErrNoDocuments) }
