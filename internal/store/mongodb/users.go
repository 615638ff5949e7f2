package mongodb

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"storefront/internal/domain"
)

// userDoc adds lower-cased keys backing the case-insensitive unique indexes.
type userDoc struct {
	domain.User `bson:",inline"`
	UserNameKey string `bson:"userNameKey"`
	EmailKey    string `bson:"emailKey"`
}

func (s *Store) users() *mongo.Collection { return s.db.Collection(colUsers) }

func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	id, err := s.nextID(ctx, colUsers)
	if err != nil {
		return err
	}
	u.ID = id
	doc := userDoc{User: *u, UserNameKey: strings.ToLower(u.UserName), EmailKey: strings.ToLower(u.Email)}
	if _, err := s.users().InsertOne(ctx, doc); err != nil {
		u.ID = 0
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("mongo: insert user: %w", err)
	}
	return nil
}

func (s *Store) GetUserByName(ctx context.Context, userName string) (domain.User, error) {
	var doc userDoc
	err := s.users().FindOne(ctx, bson.M{"userNameKey": strings.ToLower(userName)}).Decode(&doc)
	if notFound(err) {
		return domain.User{}, domain.NewNotFoundError("user", userName)
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("mongo: get user: %w", err)
	}
	return doc.User, nil
}

func (s *Store) SaveAddress(ctx context.Context, userName string, addr domain.Address) error {
	res, err := s.users().UpdateOne(ctx,
		bson.M{"userNameKey": strings.ToLower(userName)},
		bson.M{"$set": bson.M{"address": addr}})
	if err != nil {
		return fmt.Errorf("mongo: save address: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.NewNotFoundError("user", userName)
	}
	return nil
}
