package mongodb

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/catalog"
	"storefront/internal/domain"
	"storefront/internal/paging"
)

func (s *Store) products() *mongo.Collection { return s.db.Collection(colProducts) }

func (s *Store) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	var p domain.Product
	err := s.products().FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if notFound(err) {
		return domain.Product{}, domain.NewNotFoundError("product", strconv.FormatInt(id, 10))
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("mongo: get product: %w", err)
	}
	return p, nil
}

func (s *Store) GetProducts(ctx context.Context, ids []int64) (map[int64]domain.Product, error) {
	out := make(map[int64]domain.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.products().Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("mongo: get products: %w", err)
	}
	var found []domain.Product
	if err := cur.All(ctx, &found); err != nil {
		return nil, fmt.Errorf("mongo: decode products: %w", err)
	}
	for _, p := range found {
		out[p.ID] = p
	}
	return out, nil
}

type productSource struct {
	s      *Store
	filter bson.M
	sort   bson.D
}

func (s *Store) QueryProducts(_ context.Context, q catalog.Query) paging.Source[domain.Product] {
	return &productSource{s: s, filter: productFilter(q), sort: productSort(q.OrderBy)}
}

func (ps *productSource) Count(ctx context.Context) (int, error) {
	n, err := ps.s.products().CountDocuments(ctx, ps.filter)
	if err != nil {
		return 0, fmt.Errorf("mongo: count products: %w", err)
	}
	return int(n), nil
}

func (ps *productSource) Slice(ctx context.Context, offset, limit int) ([]domain.Product, error) {
	opts := options.Find().SetSort(ps.sort).SetSkip(int64(offset)).SetLimit(int64(limit))
	cur, err := ps.s.products().Find(ctx, ps.filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: query products: %w", err)
	}
	out := []domain.Product{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("mongo: decode products: %w", err)
	}
	return out, nil
}

// productFilter mirrors catalog.Query.Match: name regex plus case-insensitive
// facet membership through $toLower.
func productFilter(q catalog.Query) bson.M {
	q = q.Normalized()
	f := bson.M{}
	if q.SearchTerm != "" {
		f["name"] = bson.M{"$regex": regexp.QuoteMeta(q.SearchTerm), "$options": "i"}
	}
	var exprs bson.A
	if len(q.Brands) > 0 {
		exprs = append(exprs, bson.M{"$in": bson.A{bson.M{"$toLower": "$brand"}, q.Brands}})
	}
	if len(q.Types) > 0 {
		exprs = append(exprs, bson.M{"$in": bson.A{bson.M{"$toLower": "$type"}, q.Types}})
	}
	switch len(exprs) {
	case 0:
	case 1:
		f["$expr"] = exprs[0]
	default:
		f["$expr"] = bson.M{"$and": exprs}
	}
	return f
}

func productSort(s catalog.Sort) bson.D {
	switch catalog.ParseSort(string(s)) {
	case catalog.SortPrice:
		return bson.D{{Key: "price", Value: 1}, {Key: "_id", Value: 1}}
	case catalog.SortPriceDesc:
		return bson.D{{Key: "price", Value: -1}, {Key: "_id", Value: 1}}
	default:
		return bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}
	}
}

func (s *Store) ProductFacets(ctx context.Context) (catalog.Facets, error) {
	brands, err := s.distinct(ctx, "brand")
	if err != nil {
		return catalog.Facets{}, err
	}
	types, err := s.distinct(ctx, "type")
	if err != nil {
		return catalog.Facets{}, err
	}
	return catalog.Facets{Brands: brands, Types: types}, nil
}

func (s *Store) distinct(ctx context.Context, field string) ([]string, error) {
	vals, err := s.products().Distinct(ctx, field, bson.M{field: bson.M{"$ne": ""}})
	if err != nil {
		return nil, fmt.Errorf("mongo: distinct %s: %w", field, err)
	}
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if str, ok := v.(string); ok {
			out = append(out, str)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) AdjustStock(ctx context.Context, id int64, delta int) error {
	res, err := s.products().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"quantityInStock": delta}})
	if err != nil {
		return fmt.Errorf("mongo: adjust stock: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.NewNotFoundError("product", strconv.FormatInt(id, 10))
	}
	return nil
}

func (s *Store) SaveProduct(ctx context.Context, p *domain.Product) error {
	if p.ID == 0 {
		id, err := s.nextID(ctx, colProducts)
		if err != nil {
			return err
		}
		p.ID = id
		if _, err := s.products().InsertOne(ctx, p); err != nil {
			return fmt.Errorf("mongo: insert product: %w", err)
		}
		return nil
	}
	res, err := s.products().ReplaceOne(ctx, bson.M{"_id": p.ID}, p)
	if err != nil {
		return fmt.Errorf("mongo: replace product: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.NewNotFoundError("product", strconv.FormatInt(p.ID, 10))
	}
	return nil
}
