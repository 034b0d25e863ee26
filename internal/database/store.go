package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/matthieukhl/luxe/internal/models"
	"github.com/matthieukhl/luxe/internal/shop"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const mysqlDuplicateEntry = 1062

// Store implements shop.Store on top of gorm.
type Store struct {
	db   *gorm.DB
	inTx bool
}

func NewStore(db *DB) *Store {
	return &Store{db: db.DB}
}

var _ shop.Store = (*Store)(nil)

func (s *Store) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func (s *Store) Atomic(ctx context.Context, fn func(tx shop.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, inTx: true})
	})
}

// translate maps driver errors onto shop error kinds.
func translate(err error, entity string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shop.NotFound(entity)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return shop.Conflict("%s already exists.", entity)
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
		return shop.Conflict("%s already exists.", entity)
	}
	return fmt.Errorf("failed to access %s: %w", strings.ToLower(entity), err)
}

func likePattern(s string) string {
	return "%" + strings.ToLower(s) + "%"
}

func preloadProduct(db *gorm.DB, prefix string) *gorm.DB {
	return db.
		Preload(prefix+"Category").
		Preload(prefix+"Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		})
}

// products

func (s *Store) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	var p models.Product
	if err := preloadProduct(s.conn(ctx), "").First(&p, id).Error; err != nil {
		return nil, translate(err, "Product")
	}
	return &p, nil
}

func (s *Store) ListProducts(ctx context.Context, f shop.ProductFilter) ([]models.Product, error) {
	q := preloadProduct(s.conn(ctx).Model(&models.Product{}), "")

	if !f.IncludeUnavailable {
		q = q.Where("is_available = ?", true)
	}
	if f.Search != "" {
		like := likePattern(f.Search)
		q = q.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}
	if f.CategorySlug != "" {
		q = q.Where("category_id IN (?)",
			s.conn(ctx).Model(&models.Category{}).Select("id").Where("slug = ?", f.CategorySlug))
	}
	if f.MinPrice != nil {
		q = q.Where("price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("price <= ?", *f.MaxPrice)
	}

	order, ok := shop.ProductOrderings[f.Ordering]
	if !ok {
		order = shop.ProductOrderings["-created_at"]
	}

	var products []models.Product
	if err := q.Order(order).Order("id DESC").Find(&products).Error; err != nil {
		return nil, translate(err, "Product")
	}
	return products, nil
}

func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	return translate(s.conn(ctx).Omit("Category").Create(p).Error, "Product")
}

func (s *Store) UpdateProduct(ctx context.Context, p *models.Product) error {
	res := s.conn(ctx).Omit(clause.Associations).Save(p)
	return translate(res.Error, "Product")
}

func (s *Store) ReplaceProductImages(ctx context.Context, productID uint, urls []string) error {
	db := s.conn(ctx)
	if err := db.Where("product_id = ?", productID).Delete(&models.ProductImage{}).Error; err != nil {
		return translate(err, "Product image")
	}
	if len(urls) == 0 {
		return nil
	}
	images := make([]models.ProductImage, len(urls))
	for i, url := range urls {
		images[i] = models.ProductImage{ProductID: productID, URL: url, Position: i}
	}
	return translate(db.Create(&images).Error, "Product image")
}

func (s *Store) DeleteProduct(ctx context.Context, id uint) error {
	res := s.conn(ctx).Delete(&models.Product{}, id)
	if res.Error != nil {
		return translate(res.Error, "Product")
	}
	if res.RowsAffected == 0 {
		return shop.NotFound("Product")
	}
	return nil
}

// ReserveStock is a compare-and-decrement: the guard in the WHERE clause is
// re-evaluated under the row lock, so concurrent reservations serialise.
func (s *Store) ReserveStock(ctx context.Context, productID uint, qty int) (bool, error) {
	db := s.conn(ctx)
	res := db.Model(&models.Product{}).
		Where("id = ? AND is_available = ? AND stock >= ?", productID, true, qty).
		Update("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return false, translate(res.Error, "Product")
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	err := db.Model(&models.Product{}).
		Where("id = ? AND stock = 0", productID).
		Update("is_available", false).Error
	if err != nil {
		return false, translate(err, "Product")
	}
	return true, nil
}

// categories

func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	var cats []models.Category
	if err := s.conn(ctx).Order("name ASC").Find(&cats).Error; err != nil {
		return nil, translate(err, "Category")
	}
	return cats, nil
}

func (s *Store) GetCategory(ctx context.Context, id uint) (*models.Category, error) {
	var c models.Category
	if err := s.conn(ctx).First(&c, id).Error; err != nil {
		return nil, translate(err, "Category")
	}
	return &c, nil
}

func (s *Store) GetCategoryByName(ctx context.Context, name string) (*models.Category, error) {
	var c models.Category
	if err := s.conn(ctx).Where("name = ?", name).First(&c).Error; err != nil {
		return nil, translate(err, "Category")
	}
	return &c, nil
}

func (s *Store) CreateCategory(ctx context.Context, c *models.Category) error {
	return translate(s.conn(ctx).Create(c).Error, "Category")
}

func (s *Store) DeleteCategory(ctx context.Context, id uint) error {
	res := s.conn(ctx).Delete(&models.Category{}, id)
	if res.Error != nil {
		return translate(res.Error, "Category")
	}
	if res.RowsAffected == 0 {
		return shop.NotFound("Category")
	}
	return nil
}

// users

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	return translate(s.conn(ctx).Create(u).Error, "User")
}

func (s *Store) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.conn(ctx).First(&u, id).Error; err != nil {
		return nil, translate(err, "User")
	}
	return &u, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	if err := s.conn(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return nil, translate(err, "User")
	}
	return &u, nil
}

func (s *Store) ListUsers(ctx context.Context, search string) ([]models.User, error) {
	q := s.conn(ctx).Model(&models.User{})
	if search != "" {
		like := likePattern(search)
		q = q.Where("LOWER(username) LIKE ? OR LOWER(email) LIKE ? OR LOWER(full_name) LIKE ?", like, like, like)
	}
	var users []models.User
	if err := q.Order("created_at DESC").Order("id DESC").Find(&users).Error; err != nil {
		return nil, translate(err, "User")
	}
	return users, nil
}

func (s *Store) UpdateUser(ctx context.Context, u *models.User) error {
	return translate(s.conn(ctx).Save(u).Error, "User")
}

func (s *Store) DeleteUser(ctx context.Context, id uint) error {
	res := s.conn(ctx).Delete(&models.User{}, id)
	if res.Error != nil {
		return translate(res.Error, "User")
	}
	if res.RowsAffected == 0 {
		return shop.NotFound("User")
	}
	return nil
}

// carts

func (s *Store) FindCart(ctx context.Context, userID uint) (*models.Cart, error) {
	var c models.Cart
	if err := s.conn(ctx).Where("user_id = ?", userID).First(&c).Error; err != nil {
		return nil, translate(err, "Cart")
	}
	return &c, nil
}

func (s *Store) GetOrCreateCart(ctx context.Context, userID uint) (*models.Cart, error) {
	db := s.conn(ctx)
	err := db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Cart{UserID: userID}).Error
	if err != nil {
		return nil, translate(err, "Cart")
	}

	var c models.Cart
	q := db.Where("user_id = ?", userID)
	if s.inTx {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := q.First(&c).Error; err != nil {
		return nil, translate(err, "Cart")
	}
	return &c, nil
}

func (s *Store) ListCartItems(ctx context.Context, cartID uint) ([]models.CartItem, error) {
	var items []models.CartItem
	err := preloadProduct(s.conn(ctx), "Product.").
		Preload("Product").
		Where("cart_id = ?", cartID).
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, translate(err, "Cart item")
	}
	return items, nil
}

func (s *Store) GetCartItem(ctx context.Context, cartID, itemID uint) (*models.CartItem, error) {
	var item models.CartItem
	err := s.conn(ctx).
		Preload("Product").
		Where("id = ? AND cart_id = ?", itemID, cartID).
		First(&item).Error
	if err != nil {
		return nil, translate(err, "Cart item")
	}
	return &item, nil
}

func (s *Store) FindCartItemByProduct(ctx context.Context, cartID, productID uint) (*models.CartItem, error) {
	var item models.CartItem
	err := s.conn(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		First(&item).Error
	if err != nil {
		return nil, translate(err, "Cart item")
	}
	return &item, nil
}

func (s *Store) SaveCartItem(ctx context.Context, item *models.CartItem) error {
	return translate(s.conn(ctx).Omit(clause.Associations).Save(item).Error, "Cart item")
}

func (s *Store) DeleteCartItems(ctx context.Context, cartID uint, ids []uint) (int64, error) {
	q := s.conn(ctx).Where("cart_id = ?", cartID)
	if ids != nil {
		if len(ids) == 0 {
			return 0, nil
		}
		q = q.Where("id IN ?", ids)
	}
	res := q.Delete(&models.CartItem{})
	if res.Error != nil {
		return 0, translate(res.Error, "Cart item")
	}
	return res.RowsAffected, nil
}

// orders

func (s *Store) CreateOrder(ctx context.Context, o *models.Order) error {
	return translate(s.conn(ctx).Omit("User", "Items.Product").Create(o).Error, "Order")
}

func (s *Store) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	var o models.Order
	err := s.conn(ctx).
		Preload("User").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&o, id).Error
	if err != nil {
		return nil, translate(err, "Order")
	}
	return &o, nil
}

func (s *Store) ListOrders(ctx context.Context, f shop.OrderFilter) ([]models.Order, error) {
	db := s.conn(ctx)
	q := db.Model(&models.Order{}).
		Preload("User").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") })

	if f.UserID != 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.User != "" {
		q = q.Where("user_id IN (?)",
			db.Model(&models.User{}).Select("id").Where("LOWER(username) LIKE ?", likePattern(f.User)))
	}
	if f.Search != "" {
		like := likePattern(f.Search)
		q = q.Where("user_id IN (?)",
			db.Model(&models.User{}).Select("id").Where("LOWER(username) LIKE ? OR LOWER(email) LIKE ?", like, like))
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at < ?", *f.To)
	}

	var orders []models.Order
	if err := q.Order("created_at DESC").Order("id DESC").Find(&orders).Error; err != nil {
		return nil, translate(err, "Order")
	}
	return orders, nil
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id uint, status models.OrderStatus) error {
	res := s.conn(ctx).Model(&models.Order{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return translate(res.Error, "Order")
	}
	if res.RowsAffected == 0 {
		// MySQL reports zero affected rows when the status is unchanged.
		if _, err := s.GetOrder(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Stats(ctx context.Context) (*shop.Stats, error) {
	db := s.conn(ctx)
	stats := &shop.Stats{}

	if err := db.Model(&models.User{}).Count(&stats.TotalUsers).Error; err != nil {
		return nil, translate(err, "User")
	}
	if err := db.Model(&models.Product{}).Count(&stats.TotalProducts).Error; err != nil {
		return nil, translate(err, "Product")
	}
	if err := db.Model(&models.Order{}).Count(&stats.TotalOrders).Error; err != nil {
		return nil, translate(err, "Order")
	}

	row := db.Model(&models.Order{}).
		Select("COALESCE(SUM(total), 0)").
		Where("status IN ?", models.RevenueStatuses).
		Row()
	if err := row.Scan(&stats.TotalRevenue); err != nil {
		return nil, translate(err, "Order")
	}
	return stats, nil
}
