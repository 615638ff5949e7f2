package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"storefront/internal/catalog"
	"storefront/internal/domain"
	"storefront/internal/paging"
)

const productColumns = `id, name, description, price, picture_url, type, brand, quantity_in_stock`

func scanProduct(row rowScanner, extra ...any) (domain.Product, error) {
	var p domain.Product
	dest := append([]any{&p.ID, &p.Name, &p.Description, &p.Price, &p.PictureURL, &p.Type, &p.Brand, &p.QuantityInStock}, extra...)
	if err := row.Scan(dest...); err != nil {
		return domain.Product{}, err
	}
	return p, nil
}

func (s *Store) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	row := s.run(ctx).QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, domain.NewNotFoundError("product", strconv.FormatInt(id, 10))
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("postgres: get product: %w", err)
	}
	return p, nil
}

func (s *Store) GetProducts(ctx context.Context, ids []int64) (map[int64]domain.Product, error) {
	out := make(map[int64]domain.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.run(ctx).QueryContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("postgres: get products: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan product: %w", err)
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

// productSource pages a filtered product query with COUNT and LIMIT/OFFSET.
type productSource struct {
	s       *Store
	where   string
	args    []any
	orderBy string
}

func (s *Store) QueryProducts(_ context.Context, q catalog.Query) paging.Source[domain.Product] {
	where, args := buildProductWhere(q)
	return &productSource{s: s, where: where, args: args, orderBy: buildProductOrderBy(q.OrderBy)}
}

func (ps *productSource) Count(ctx context.Context) (int, error) {
	var n int
	err := ps.s.run(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM products`+ps.where, ps.args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("postgres: count products: %w", err)
	}
	return n, nil
}

func (ps *productSource) Slice(ctx context.Context, offset, limit int) ([]domain.Product, error) {
	q := fmt.Sprintf(`SELECT %s FROM products%s %s LIMIT $%d OFFSET $%d`,
		productColumns, ps.where, ps.orderBy, len(ps.args)+1, len(ps.args)+2)
	args := append(append([]any{}, ps.args...), limit, offset)

	rows, err := ps.s.run(ctx).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: query products: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Product, 0, limit)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// buildProductWhere returns a " WHERE ..." clause (or "") and its arguments.
func buildProductWhere(q catalog.Query) (string, []any) {
	q = q.Normalized()
	var where []string
	var args []any
	add := func(exprFmt string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(exprFmt, len(args)))
	}
	if q.SearchTerm != "" {
		add(`LOWER(name) LIKE '%%' || $%d || '%%'`, escapeLike(q.SearchTerm))
	}
	if len(q.Brands) > 0 {
		add(`LOWER(brand) = ANY($%d)`, pq.Array(q.Brands))
	}
	if len(q.Types) > 0 {
		add(`LOWER(type) = ANY($%d)`, pq.Array(q.Types))
	}
	if len(where) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

func buildProductOrderBy(s catalog.Sort) string {
	switch catalog.ParseSort(string(s)) {
	case catalog.SortPrice:
		return "ORDER BY price ASC, id ASC"
	case catalog.SortPriceDesc:
		return "ORDER BY price DESC, id ASC"
	default:
		return "ORDER BY name ASC, id ASC"
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

func (s *Store) ProductFacets(ctx context.Context) (catalog.Facets, error) {
	brands, err := s.distinct(ctx, `SELECT DISTINCT brand FROM products WHERE brand <> '' ORDER BY brand`)
	if err != nil {
		return catalog.Facets{}, err
	}
	types, err := s.distinct(ctx, `SELECT DISTINCT type FROM products WHERE type <> '' ORDER BY type`)
	if err != nil {
		return catalog.Facets{}, err
	}
	return catalog.Facets{Brands: brands, Types: types}, nil
}

func (s *Store) distinct(ctx context.Context, q string) ([]string, error) {
	rows, err := s.run(ctx).QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("postgres: facets: %w", err)
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("postgres: facets: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) AdjustStock(ctx context.Context, id int64, delta int) error {
	res, err := s.run(ctx).ExecContext(ctx,
		`UPDATE products SET quantity_in_stock = quantity_in_stock + $2 WHERE id = $1`, id, delta)
	if err != nil {
		return fmt.Errorf("postgres: adjust stock: %w", err)
	}
	if affected(res) == 0 {
		return domain.NewNotFoundError("product", strconv.FormatInt(id, 10))
	}
	return nil
}

func (s *Store) SaveProduct(ctx context.Context, p *domain.Product) error {
	if p.ID == 0 {
		err := s.run(ctx).QueryRowContext(ctx, `
INSERT INTO products (name, description, price, picture_url, type, brand, quantity_in_stock)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id`,
			p.Name, p.Description, p.Price, p.PictureURL, p.Type, p.Brand, p.QuantityInStock,
		).Scan(&p.ID)
		if err != nil {
			return fmt.Errorf("postgres: insert product: %w", err)
		}
		return nil
	}
	res, err := s.run(ctx).ExecContext(ctx, `
UPDATE products
SET name = $2, description = $3, price = $4, picture_url = $5, type = $6, brand = $7, quantity_in_stock = $8
WHERE id = $1`,
		p.ID, p.Name, p.Description, p.Price, p.PictureURL, p.Type, p.Brand, p.QuantityInStock)
	if err != nil {
		return fmt.Errorf("postgres: update product: %w", err)
	}
	if affected(res) == 0 {
		return domain.NewNotFoundError("product", strconv.FormatInt(p.ID, 10))
	}
	return nil
}
