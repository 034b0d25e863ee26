package database

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/matthieukhl/luxe/internal/models"
	"github.com/matthieukhl/luxe/internal/shop"
	"github.com/shopspring/decimal"
)

// memState holds every table as a map of bare rows. Relations are attached
// on read and never stored.
type memState struct {
	users      map[uint]models.User
	categories map[uint]models.Category
	products   map[uint]models.Product
	images     map[uint]models.ProductImage
	carts      map[uint]models.Cart
	cartItems  map[uint]models.CartItem
	orders     map[uint]models.Order
	orderItems map[uint]models.OrderItem
	seq        map[string]uint
}

func newMemState() *memState {
	return &memState{
		users:      map[uint]models.User{},
		categories: map[uint]models.Category{},
		products:   map[uint]models.Product{},
		images:     map[uint]models.ProductImage{},
		carts:      map[uint]models.Cart{},
		cartItems:  map[uint]models.CartItem{},
		orders:     map[uint]models.Order{},
		orderItems: map[uint]models.OrderItem{},
		seq:        map[string]uint{},
	}
}

func (st *memState) clone() *memState {
	return &memState{
		users:      maps.Clone(st.users),
		categories: maps.Clone(st.categories),
		products:   maps.Clone(st.products),
		images:     maps.Clone(st.images),
		carts:      maps.Clone(st.carts),
		cartItems:  maps.Clone(st.cartItems),
		orders:     maps.Clone(st.orders),
		orderItems: maps.Clone(st.orderItems),
		seq:        maps.Clone(st.seq),
	}
}

func (st *memState) next(table string) uint {
	st.seq[table]++
	return st.seq[table]
}

type memDB struct {
	mu    sync.Mutex
	state *memState
}

// MemoryStore is an in-process shop.Store. Transactions run one at a time
// against a private copy of the data that replaces the shared copy on commit.
type MemoryStore struct {
	db  *memDB
	tx  *memState
	now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		db:  &memDB{state: newMemState()},
		now: func() time.Time { return time.Now().UTC() },
	}
}

var _ shop.Store = (*MemoryStore)(nil)

// HealthCheck reports whether the store can serve requests.
func (s *MemoryStore) HealthCheck(ctx context.Context) error {
	return ctx.Err()
}

func (s *MemoryStore) Atomic(ctx context.Context, fn func(tx shop.Store) error) error {
	if s.tx != nil {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	work := s.db.state.clone()
	if err := fn(&MemoryStore{db: s.db, tx: work, now: s.now}); err != nil {
		return err
	}
	s.db.state = work
	return nil
}

// with runs fn against the transaction state, or against the shared state
// under the lock when called outside a transaction.
func (s *MemoryStore) with(fn func(st *memState) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return fn(s.db.state)
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// hydration

func (st *memState) product(p models.Product) models.Product {
	p.Category = nil
	if p.CategoryID != nil {
		if c, ok := st.categories[*p.CategoryID]; ok {
			p.Category = &c
		}
	}
	p.Images = []models.ProductImage{}
	for _, img := range st.images {
		if img.ProductID == p.ID {
			p.Images = append(p.Images, img)
		}
	}
	slices.SortFunc(p.Images, func(a, b models.ProductImage) int {
		return cmp.Or(cmp.Compare(a.Position, b.Position), cmp.Compare(a.ID, b.ID))
	})
	return p
}

func (st *memState) cartItem(item models.CartItem) models.CartItem {
	item.Product = nil
	if p, ok := st.products[item.ProductID]; ok {
		hydrated := st.product(p)
		item.Product = &hydrated
	}
	return item
}

func (st *memState) order(o models.Order) models.Order {
	o.User = nil
	if u, ok := st.users[o.UserID]; ok {
		o.User = &u
	}
	o.Items = []models.OrderItem{}
	for _, it := range st.orderItems {
		if it.OrderID == o.ID {
			it.Product = nil
			o.Items = append(o.Items, it)
		}
	}
	slices.SortFunc(o.Items, func(a, b models.OrderItem) int { return cmp.Compare(a.ID, b.ID) })
	return o
}

func bareProduct(p models.Product) models.Product {
	p.Category = nil
	p.Images = nil
	return p
}

// products

func (s *MemoryStore) GetProduct(_ context.Context, id uint) (*models.Product, error) {
	var out models.Product
	err := s.with(func(st *memState) error {
		p, ok := st.products[id]
		if !ok {
			return shop.NotFound("Product")
		}
		out = st.product(p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *MemoryStore) ListProducts(_ context.Context, f shop.ProductFilter) ([]models.Product, error) {
	out := []models.Product{}
	err := s.with(func(st *memState) error {
		var categoryID *uint
		if f.CategorySlug != "" {
			for _, c := range st.categories {
				if c.Slug == f.CategorySlug {
					id := c.ID
					categoryID = &id
				}
			}
			if categoryID == nil {
				return nil
			}
		}

		for _, p := range st.products {
			if !f.IncludeUnavailable && !p.IsAvailable {
				continue
			}
			if f.Search != "" && !containsFold(p.Name, f.Search) && !containsFold(p.Description, f.Search) {
				continue
			}
			if categoryID != nil && (p.CategoryID == nil || *p.CategoryID != *categoryID) {
				continue
			}
			if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
				continue
			}
			if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
				continue
			}
			out = append(out, st.product(p))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	order, ok := shop.ProductOrderings[f.Ordering]
	if !ok {
		order = shop.ProductOrderings["-created_at"]
	}
	column, direction, _ := strings.Cut(order, " ")
	slices.SortFunc(out, func(a, b models.Product) int {
		var c int
		switch column {
		case "price":
			c = a.Price.Cmp(b.Price)
		case "name":
			c = cmp.Compare(a.Name, b.Name)
		default:
			c = a.CreatedAt.Compare(b.CreatedAt)
		}
		if direction == "DESC" {
			c = -c
		}
		return cmp.Or(c, cmp.Compare(b.ID, a.ID))
	})
	return out, nil
}

func (s *MemoryStore) CreateProduct(_ context.Context, p *models.Product) error {
	return s.with(func(st *memState) error {
		if p.CategoryID != nil {
			if _, ok := st.categories[*p.CategoryID]; !ok {
				return shop.NotFound("Category")
			}
		}
		now := s.now()
		p.ID = st.next("products")
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		p.UpdatedAt = now
		st.products[p.ID] = bareProduct(*p)

		for i := range p.Images {
			p.Images[i].ID = st.next("images")
			p.Images[i].ProductID = p.ID
			st.images[p.Images[i].ID] = p.Images[i]
		}
		return nil
	})
}

func (s *MemoryStore) UpdateProduct(_ context.Context, p *models.Product) error {
	return s.with(func(st *memState) error {
		cur, ok := st.products[p.ID]
		if !ok {
			return shop.NotFound("Product")
		}
		if p.CategoryID != nil {
			if _, ok := st.categories[*p.CategoryID]; !ok {
				return shop.NotFound("Category")
			}
		}
		p.CreatedAt = cur.CreatedAt
		p.UpdatedAt = s.now()
		st.products[p.ID] = bareProduct(*p)
		return nil
	})
}

func (s *MemoryStore) ReplaceProductImages(_ context.Context, productID uint, urls []string) error {
	return s.with(func(st *memState) error {
		if _, ok := st.products[productID]; !ok {
			return shop.NotFound("Product")
		}
		for id, img := range st.images {
			if img.ProductID == productID {
				delete(st.images, id)
			}
		}
		for i, url := range urls {
			id := st.next("images")
			st.images[id] = models.ProductImage{ID: id, ProductID: productID, URL: url, Position: i}
		}
		return nil
	})
}

func (s *MemoryStore) DeleteProduct(_ context.Context, id uint) error {
	return s.with(func(st *memState) error {
		if _, ok := st.products[id]; !ok {
			return shop.NotFound("Product")
		}
		delete(st.products, id)
		for imgID, img := range st.images {
			if img.ProductID == id {
				delete(st.images, imgID)
			}
		}
		for itemID, item := range st.cartItems {
			if item.ProductID == id {
				delete(st.cartItems, itemID)
			}
		}
		for itemID, item := range st.orderItems {
			if item.ProductID != nil && *item.ProductID == id {
				item.ProductID = nil
				st.orderItems[itemID] = item
			}
		}
		return nil
	})
}

func (s *MemoryStore) ReserveStock(_ context.Context, productID uint, qty int) (bool, error) {
	reserved := false
	err := s.with(func(st *memState) error {
		p, ok := st.products[productID]
		if !ok || !p.IsAvailable || p.Stock < qty {
			return nil
		}
		p.Stock -= qty
		p.SyncAvailability()
		p.UpdatedAt = s.now()
		st.products[productID] = p
		reserved = true
		return nil
	})
	return reserved, err
}

// categories

func (s *MemoryStore) ListCategories(_ context.Context) ([]models.Category, error) {
	out := []models.Category{}
	err := s.with(func(st *memState) error {
		out = slices.AppendSeq(out, maps.Values(st.categories))
		return nil
	})
	slices.SortFunc(out, func(a, b models.Category) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	return out, err
}

func (s *MemoryStore) GetCategory(_ context.Context, id uint) (*models.Category, error) {
	var out models.Category
	err := s.with(func(st *memState) error {
		c, ok := st.categories[id]
		if !ok {
			return shop.NotFound("Category")
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *MemoryStore) GetCategoryByName(_ context.Context, name string) (*models.Category, error) {
	var out *models.Category
	err := s.with(func(st *memState) error {
		for _, c := range st.categories {
			if c.Name == name {
				out = &c
				return nil
			}
		}
		return shop.NotFound("Category")
	})
	return out, err
}

func (s *MemoryStore) CreateCategory(_ context.Context, c *models.Category) error {
	return s.with(func(st *memState) error {
		for _, other := range st.categories {
			if other.Name == c.Name || other.Slug == c.Slug {
				return shop.Conflict("Category already exists.")
			}
		}
		c.ID = st.next("categories")
		st.categories[c.ID] = *c
		return nil
	})
}

func (s *MemoryStore) DeleteCategory(_ context.Context, id uint) error {
	return s.with(func(st *memState) error {
		if _, ok := st.categories[id]; !ok {
			return shop.NotFound("Category")
		}
		delete(st.categories, id)
		for pid, p := range st.products {
			if p.CategoryID != nil && *p.CategoryID == id {
				p.CategoryID = nil
				st.products[pid] = p
			}
		}
		return nil
	})
}

// users

func (s *MemoryStore) CreateUser(_ context.Context, u *models.User) error {
	return s.with(func(st *memState) error {
		for _, other := range st.users {
			if other.Username == u.Username {
				return shop.Conflict("User already exists.")
			}
		}
		now := s.now()
		u.ID = st.next("users")
		if u.CreatedAt.IsZero() {
			u.CreatedAt = now
		}
		u.UpdatedAt = now
		st.users[u.ID] = *u
		return nil
	})
}

func (s *MemoryStore) GetUser(_ context.Context, id uint) (*models.User, error) {
	var out models.User
	err := s.with(func(st *memState) error {
		u, ok := st.users[id]
		if !ok {
			return shop.NotFound("User")
		}
		out = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *MemoryStore) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	var out *models.User
	err := s.with(func(st *memState) error {
		for _, u := range st.users {
			if u.Username == username {
				out = &u
				return nil
			}
		}
		return shop.NotFound("User")
	})
	return out, err
}

func (s *MemoryStore) ListUsers(_ context.Context, search string) ([]models.User, error) {
	out := []models.User{}
	err := s.with(func(st *memState) error {
		for _, u := range st.users {
			if search != "" && !containsFold(u.Username, search) &&
				!containsFold(u.Email, search) && !containsFold(u.FullName, search) {
				continue
			}
			out = append(out, u)
		}
		return nil
	})
	slices.SortFunc(out, func(a, b models.User) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(b.ID, a.ID))
	})
	return out, err
}

func (s *MemoryStore) UpdateUser(_ context.Context, u *models.User) error {
	return s.with(func(st *memState) error {
		cur, ok := st.users[u.ID]
		if !ok {
			return shop.NotFound("User")
		}
		for _, other := range st.users {
			if other.ID != u.ID && other.Username == u.Username {
				return shop.Conflict("User already exists.")
			}
		}
		u.CreatedAt = cur.CreatedAt
		u.UpdatedAt = s.now()
		st.users[u.ID] = *u
		return nil
	})
}

func (s *MemoryStore) DeleteUser(_ context.Context, id uint) error {
	return s.with(func(st *memState) error {
		if _, ok := st.users[id]; !ok {
			return shop.NotFound("User")
		}
		delete(st.users, id)
		for cartID, c := range st.carts {
			if c.UserID != id {
				continue
			}
			delete(st.carts, cartID)
			for itemID, item := range st.cartItems {
				if item.CartID == cartID {
					delete(st.cartItems, itemID)
				}
			}
		}
		for orderID, o := range st.orders {
			if o.UserID != id {
				continue
			}
			delete(st.orders, orderID)
			for itemID, item := range st.orderItems {
				if item.OrderID == orderID {
					delete(st.orderItems, itemID)
				}
			}
		}
		return nil
	})
}

// carts

func (st *memState) cartFor(userID uint) (models.Cart, bool) {
	for _, c := range st.carts {
		if c.UserID == userID {
			return c, true
		}
	}
	return models.Cart{}, false
}

func (s *MemoryStore) FindCart(_ context.Context, userID uint) (*models.Cart, error) {
	var out models.Cart
	err := s.with(func(st *memState) error {
		c, ok := st.cartFor(userID)
		if !ok {
			return shop.NotFound("Cart")
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *MemoryStore) GetOrCreateCart(_ context.Context, userID uint) (*models.Cart, error) {
	var out models.Cart
	err := s.with(func(st *memState) error {
		if c, ok := st.cartFor(userID); ok {
			out = c
			return nil
		}
		if _, ok := st.users[userID]; !ok {
			return shop.NotFound("User")
		}
		now := s.now()
		out = models.Cart{ID: st.next("carts"), UserID: userID, CreatedAt: now, UpdatedAt: now}
		st.carts[out.ID] = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *MemoryStore) ListCartItems(_ context.Context, cartID uint) ([]models.CartItem, error) {
	out := []models.CartItem{}
	err := s.with(func(st *memState) error {
		for _, item := range st.cartItems {
			if item.CartID == cartID {
				out = append(out, st.cartItem(item))
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b models.CartItem) int { return cmp.Compare(a.ID, b.ID) })
	return out, err
}

func (s *MemoryStore) GetCartItem(_ context.Context, cartID, itemID uint) (*models.CartItem, error) {
	var out models.CartItem
	err := s.with(func(st *memState) error {
		item, ok := st.cartItems[itemID]
		if !ok || item.CartID != cartID {
			return shop.NotFound("Cart item")
		}
		out = st.cartItem(item)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *MemoryStore) FindCartItemByProduct(_ context.Context, cartID, productID uint) (*models.CartItem, error) {
	var out models.CartItem
	err := s.with(func(st *memState) error {
		for _, item := range st.cartItems {
			if item.CartID == cartID && item.ProductID == productID {
				out = item
				return nil
			}
		}
		return shop.NotFound("Cart item")
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *MemoryStore) SaveCartItem(_ context.Context, item *models.CartItem) error {
	return s.with(func(st *memState) error {
		if _, ok := st.carts[item.CartID]; !ok {
			return shop.NotFound("Cart")
		}
		if _, ok := st.products[item.ProductID]; !ok {
			return shop.NotFound("Product")
		}
		for _, other := range st.cartItems {
			if other.ID != item.ID && other.CartID == item.CartID && other.ProductID == item.ProductID {
				return shop.Conflict("Cart item already exists.")
			}
		}
		if item.ID == 0 {
			item.ID = st.next("cart_items")
		} else if _, ok := st.cartItems[item.ID]; !ok {
			return shop.NotFound("Cart item")
		}
		if item.AddedAt.IsZero() {
			item.AddedAt = s.now()
		}
		row := *item
		row.Product = nil
		st.cartItems[row.ID] = row
		return nil
	})
}

func (s *MemoryStore) DeleteCartItems(_ context.Context, cartID uint, ids []uint) (int64, error) {
	var n int64
	err := s.with(func(st *memState) error {
		for id, item := range st.cartItems {
			if item.CartID != cartID {
				continue
			}
			if ids != nil && !slices.Contains(ids, id) {
				continue
			}
			delete(st.cartItems, id)
			n++
		}
		return nil
	})
	return n, err
}

// orders

func (s *MemoryStore) CreateOrder(_ context.Context, o *models.Order) error {
	return s.with(func(st *memState) error {
		if _, ok := st.users[o.UserID]; !ok {
			return shop.NotFound("User")
		}
		now := s.now()
		o.ID = st.next("orders")
		if o.CreatedAt.IsZero() {
			o.CreatedAt = now
		}
		o.UpdatedAt = now

		row := *o
		row.User = nil
		row.Items = nil
		st.orders[o.ID] = row

		for i := range o.Items {
			o.Items[i].ID = st.next("order_items")
			o.Items[i].OrderID = o.ID
			item := o.Items[i]
			item.Product = nil
			st.orderItems[item.ID] = item
		}
		return nil
	})
}

func (s *MemoryStore) GetOrder(_ context.Context, id uint) (*models.Order, error) {
	var out models.Order
	err := s.with(func(st *memState) error {
		o, ok := st.orders[id]
		if !ok {
			return shop.NotFound("Order")
		}
		out = st.order(o)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *MemoryStore) ListOrders(_ context.Context, f shop.OrderFilter) ([]models.Order, error) {
	out := []models.Order{}
	err := s.with(func(st *memState) error {
		for _, o := range st.orders {
			if f.UserID != 0 && o.UserID != f.UserID {
				continue
			}
			if f.Status != "" && o.Status != f.Status {
				continue
			}
			if f.From != nil && o.CreatedAt.Before(*f.From) {
				continue
			}
			if f.To != nil && !o.CreatedAt.Before(*f.To) {
				continue
			}
			owner := st.users[o.UserID]
			if f.User != "" && !containsFold(owner.Username, f.User) {
				continue
			}
			if f.Search != "" && !containsFold(owner.Username, f.Search) && !containsFold(owner.Email, f.Search) {
				continue
			}
			out = append(out, st.order(o))
		}
		return nil
	})
	slices.SortFunc(out, func(a, b models.Order) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(b.ID, a.ID))
	})
	return out, err
}

func (s *MemoryStore) UpdateOrderStatus(_ context.Context, id uint, status models.OrderStatus) error {
	return s.with(func(st *memState) error {
		o, ok := st.orders[id]
		if !ok {
			return shop.NotFound("Order")
		}
		o.Status = status
		o.UpdatedAt = s.now()
		st.orders[id] = o
		return nil
	})
}

func (s *MemoryStore) Stats(_ context.Context) (*shop.Stats, error) {
	stats := &shop.Stats{TotalRevenue: decimal.Zero}
	err := s.with(func(st *memState) error {
		stats.TotalUsers = int64(len(st.users))
		stats.TotalProducts = int64(len(st.products))
		stats.TotalOrders = int64(len(st.orders))
		for _, o := range st.orders {
			if slices.Contains(models.RevenueStatuses, o.Status) {
				stats.TotalRevenue = stats.TotalRevenue.Add(o.Total)
			}
		}
		return nil
	})
	return stats, err
}
