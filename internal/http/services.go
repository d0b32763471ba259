package http

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/japintos/KairosMarket-sub001/internal/domain"
	"github.com/japintos/KairosMarket-sub001/internal/service"
)

type CatalogService interface {
	ListProducts(ctx context.Context, f domain.ProductFilter) ([]domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	CreateProduct(ctx context.Context, in service.ProductInput) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id int64, in service.ProductInput) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	SetStock(ctx context.Context, id int64, stock decimal.Decimal) (*domain.Product, error)
	AdjustStock(ctx context.Context, id int64, delta decimal.Decimal) (*domain.Product, error)
	LowStock(ctx context.Context) ([]domain.Product, error)
	ListCategories(ctx context.Context, activeOnly bool) ([]domain.Category, error)
	CreateCategory(ctx context.Context, in service.CategoryInput) (*domain.Category, error)
	UpdateCategory(ctx context.Context, id int64, in service.CategoryInput) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
	ReorderCategories(ctx context.Context, positions []domain.CategoryPosition) error
}

type OrderService interface {
	Create(ctx context.Context, in service.CreateOrderInput, actorID *int64) (*domain.Order, error)
	CreateForCustomer(ctx context.Context, in service.CreateOrderInput, customerID int64, actorID *int64) (*domain.Order, error)
	Get(ctx context.Context, id int64) (*domain.Order, error)
	List(ctx context.Context, f domain.OrderFilter) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id int64, next domain.OrderStatus, actorID *int64) (*domain.Order, error)
}

type CustomerService interface {
	List(ctx context.Context, f domain.CustomerFilter) ([]domain.Customer, error)
	Get(ctx context.Context, id int64) (*domain.Customer, error)
	Create(ctx context.Context, in service.CustomerInput) (*domain.Customer, error)
	Update(ctx context.Context, id int64, in service.CustomerInput) (*domain.Customer, error)
	Delete(ctx context.Context, id int64) error
	Orders(ctx context.Context, customerID int64, limit, offset int) ([]domain.Order, error)
	Favorites(ctx context.Context, customerID int64) (*domain.Favorites, error)
	AddFavorite(ctx context.Context, customerID, productID int64) (*domain.Favorites, error)
	RemoveFavorite(ctx context.Context, customerID, productID int64) (*domain.Favorites, error)
}

type PaymentService interface {
	CreatePreference(ctx context.Context, in service.PreferenceInput) (*service.PreferenceResult, error)
	Reconcile(ctx context.Context, n service.Notification) (service.Outcome, error)
}

type CashService interface {
	Create(ctx context.Context, in service.CashEntryInput, actorID *int64) (*domain.CashEntry, error)
	List(ctx context.Context, f domain.CashFilter) ([]domain.CashEntry, error)
}

type ContactService interface {
	Submit(ctx context.Context, in service.ContactInput) (*domain.ContactMessage, error)
	List(ctx context.Context, unreadOnly bool, limit, offset int) ([]domain.ContactMessage, error)
	MarkRead(ctx context.Context, id int64) error
}

type SettingsService interface {
	ListCoupons(ctx context.Context) ([]domain.Coupon, error)
	CreateCoupon(ctx context.Context, in service.CouponInput) (*domain.Coupon, error)
	DeactivateCoupon(ctx context.Context, id int64) error
	ValidateCoupon(ctx context.Context, code string) (*domain.Coupon, error)
	ListConfig(ctx context.Context) ([]domain.ConfigEntry, error)
	GetConfig(ctx context.Context, key string) (*domain.ConfigEntry, error)
	PutConfig(ctx context.Context, key string, in service.ConfigInput) (*domain.ConfigEntry, error)
}

// HealthChecker reports whether a backing store is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}
