// Package memory is a mutex-guarded store.Store for tests and local runs.
package memory

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"storefront/internal/catalog"
	"storefront/internal/domain"
	"storefront/internal/paging"
	"storefront/internal/store"
)

type basketRow struct {
	id              int64
	buyerID         string
	lines           []lineRow
	paymentIntentID string
	clientSecret    string
}

type lineRow struct {
	productID int64
	quantity  int
}

type state struct {
	products map[int64]domain.Product
	baskets  map[string]basketRow
	orders   map[int64]domain.Order
	users    map[string]domain.User
	seq      int64
}

func (s *state) clone() *state {
	c := &state{
		products: make(map[int64]domain.Product, len(s.products)),
		baskets:  make(map[string]basketRow, len(s.baskets)),
		orders:   make(map[int64]domain.Order, len(s.orders)),
		users:    make(map[string]domain.User, len(s.users)),
		seq:      s.seq,
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.baskets {
		v.lines = append([]lineRow(nil), v.lines...)
		c.baskets[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = cloneOrder(v)
	}
	for k, v := range s.users {
		c.users[k] = cloneUser(v)
	}
	return c
}

// Store keeps everything in maps. Transactions are serialized with each
// other and roll back by restoring a snapshot.
type Store struct {
	mu   sync.RWMutex
	data *state

	txMu sync.Mutex
}

type txKey struct{}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{data: &state{
		products: map[int64]domain.Product{},
		baskets:  map[string]basketRow{},
		orders:   map[int64]domain.Order{},
		users:    map[string]domain.User{},
	}}
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.data.clone()
	s.mu.RUnlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) Close(context.Context) error { return nil }

func (s *Store) nextID() int64 {
	s.data.seq++
	return s.data.seq
}

// ---- products ----

func (s *Store) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return domain.Product{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.data.products[id]
	if !ok {
		return domain.Product{}, domain.NewNotFoundError("product", strconv.FormatInt(id, 10))
	}
	return p, nil
}

func (s *Store) GetProducts(ctx context.Context, ids []int64) (map[int64]domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[int64]domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := s.data.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (s *Store) QueryProducts(ctx context.Context, q catalog.Query) paging.Source[domain.Product] {
	s.mu.RLock()
	all := make([]domain.Product, 0, len(s.data.products))
	for _, p := range s.data.products {
		all = append(all, p)
	}
	s.mu.RUnlock()
	return paging.SliceSource[domain.Product](q.Apply(all))
}

func (s *Store) ProductFacets(ctx context.Context) (catalog.Facets, error) {
	if err := ctx.Err(); err != nil {
		return catalog.Facets{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]domain.Product, 0, len(s.data.products))
	for _, p := range s.data.products {
		all = append(all, p)
	}
	return catalog.CollectFacets(all), nil
}

func (s *Store) AdjustStock(ctx context.Context, id int64, delta int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.data.products[id]
	if !ok {
		return domain.NewNotFoundError("product", strconv.FormatInt(id, 10))
	}
	p.QuantityInStock += delta
	s.data.products[id] = p
	return nil
}

func (s *Store) SaveProduct(ctx context.Context, p *domain.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == 0 {
		p.ID = s.nextID()
	} else if p.ID > s.data.seq {
		s.data.seq = p.ID
	}
	s.data.products[p.ID] = *p
	return nil
}

// ---- baskets ----

func (s *Store) GetBasket(ctx context.Context, buyerID string) (domain.Basket, error) {
	if err := ctx.Err(); err != nil {
		return domain.Basket{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.data.baskets[buyerID]
	if !ok || buyerID == "" {
		return domain.Basket{}, domain.NewNotFoundError("basket", buyerID)
	}
	b := domain.Basket{
		ID:              row.id,
		BuyerID:         row.buyerID,
		PaymentIntentID: row.paymentIntentID,
		ClientSecret:    row.clientSecret,
		Items:           make([]domain.BasketItem, 0, len(row.lines)),
	}
	for _, l := range row.lines {
		p, ok := s.data.products[l.productID]
		if !ok {
			continue
		}
		b.Items = append(b.Items, domain.BasketItem{Product: p, Quantity: l.quantity})
	}
	return b, nil
}

func (s *Store) SaveBasket(ctx context.Context, b *domain.Basket) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if b.ID == 0 {
		if _, exists := s.data.baskets[b.BuyerID]; exists {
			return domain.ErrDuplicate
		}
		b.ID = s.nextID()
	} else if s.basketByID(b.ID) == "" {
		return domain.NewConflictError("basket no longer exists")
	}
	// buyer may have changed (anonymous basket moved to a user)
	if prev := s.basketByID(b.ID); prev != "" && prev != b.BuyerID {
		delete(s.data.baskets, prev)
	}
	row := basketRow{
		id:              b.ID,
		buyerID:         b.BuyerID,
		paymentIntentID: b.PaymentIntentID,
		clientSecret:    b.ClientSecret,
	}
	for _, it := range b.Items {
		row.lines = append(row.lines, lineRow{productID: it.ProductID(), quantity: it.Quantity})
	}
	s.data.baskets[b.BuyerID] = row
	return nil
}

func (s *Store) DeleteBasket(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	buyer := s.basketByID(id)
	if buyer == "" {
		return domain.NewNotFoundError("basket", strconv.FormatInt(id, 10))
	}
	delete(s.data.baskets, buyer)
	return nil
}

func (s *Store) basketByID(id int64) string {
	for buyer, row := range s.data.baskets {
		if row.id == id {
			return buyer
		}
	}
	return ""
}

// ---- orders ----

func (s *Store) CreateOrder(ctx context.Context, o *domain.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	o.ID = s.nextID()
	for i := range o.Items {
		o.Items[i].ID = s.nextID()
	}
	s.data.orders[o.ID] = cloneOrder(*o)
	return nil
}

func (s *Store) ListOrders(ctx context.Context, buyerID string) ([]domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.Order{}
	for _, o := range s.data.orders {
		if o.BuyerID == buyerID {
			out = append(out, cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetOrder(ctx context.Context, buyerID string, id int64) (domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return domain.Order{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.data.orders[id]
	if !ok || o.BuyerID != buyerID {
		return domain.Order{}, domain.NewNotFoundError("order", strconv.FormatInt(id, 10))
	}
	return cloneOrder(o), nil
}

func (s *Store) GetOrderByPaymentIntent(ctx context.Context, paymentIntentID string) (domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return domain.Order{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, o := range s.data.orders {
		if paymentIntentID != "" && o.PaymentIntentID == paymentIntentID {
			return cloneOrder(o), nil
		}
	}
	return domain.Order{}, domain.NewNotFoundError("order", paymentIntentID)
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id int64, status domain.OrderStatus) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.data.orders[id]
	if !ok {
		return domain.NewNotFoundError("order", strconv.FormatInt(id, 10))
	}
	o.Status = status
	s.data.orders[id] = o
	return nil
}

// ---- users ----

func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.data.users {
		if strings.EqualFold(existing.UserName, u.UserName) || strings.EqualFold(existing.Email, u.Email) {
			return domain.ErrDuplicate
		}
	}
	u.ID = s.nextID()
	s.data.users[strings.ToLower(u.UserName)] = cloneUser(*u)
	return nil
}

func (s *Store) GetUserByName(ctx context.Context, userName string) (domain.User, error) {
	if err := ctx.Err(); err != nil {
		return domain.User{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.data.users[strings.ToLower(userName)]
	if !ok {
		return domain.User{}, domain.NewNotFoundError("user", userName)
	}
	return cloneUser(u), nil
}

func (s *Store) SaveAddress(ctx context.Context, userName string, addr domain.Address) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(userName)
	u, ok := s.data.users[key]
	if !ok {
		return domain.NewNotFoundError("user", userName)
	}
	u.Address = &addr
	s.data.users[key] = u
	return nil
}

func cloneOrder(o domain.Order) domain.Order {
	o.Items = append([]domain.OrderItem(nil), o.Items...)
	return o
}

func cloneUser(u domain.User) domain.User {
	u.Roles = append([]string(nil), u.Roles...)
	if u.Address != nil {
		a := *u.Address
		u.Address = &a
	}
	return u
}
