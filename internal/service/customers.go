package service

import (
	"context"
	"errors"
	"strings"

	"github.com/japintos/KairosMarket-sub001/internal/apperr"
	"github.com/japintos/KairosMarket-sub001/internal/domain"
	"github.com/japintos/KairosMarket-sub001/internal/repository"
)

type CustomerInput struct {
	Name       string `json:"name" validate:"required,max=100"`
	Surname    string `json:"surname" validate:"required,max=100"`
	Email      string `json:"email" validate:"required,email,max=255"`
	Phone      string `json:"phone" validate:"max=50"`
	Address    string `json:"address" validate:"max=255"`
	City       string `json:"city" validate:"max=100"`
	Province   string `json:"province" validate:"max=100"`
	PostalCode string `json:"postal_code" validate:"max=20"`
}

func (in CustomerInput) toCustomer() *domain.Customer {
	return &domain.Customer{
		Name:       strings.TrimSpace(in.Name),
		Surname:    strings.TrimSpace(in.Surname),
		Email:      normalizeEmail(in.Email),
		Phone:      strings.TrimSpace(in.Phone),
		Address:    in.Address,
		City:       in.City,
		Province:   in.Province,
		PostalCode: in.PostalCode,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type CustomerService struct {
	store     Store
	favorites FavoritesStore
}

func NewCustomerService(store Store, favorites FavoritesStore) *CustomerService {
	return &CustomerService{store: store, favorites: favorites}
}

func (s *CustomerService) List(ctx context.Context, f domain.CustomerFilter) ([]domain.Customer, error) {
	var customers []domain.Customer
	err := s.store.Do(ctx, func(q *repository.Queries) error {
		var err error
		customers, err = q.ListCustomers(ctx, f)
		return err
	})
	return customers, err
}

func (s *CustomerService) Get(ctx context.Context, id int64) (*domain.Customer, error) {
	var c *domain.Customer
	err := s.store.Do(ctx, func(q *repository.Queries) error {
		var err error
		c, err = q.GetCustomer(ctx, id)
		return err
	})
	return c, err
}

// Create registers a customer explicitly. The email must not be in use.
func (s *CustomerService) Create(ctx context.Context, in CustomerInput) (*domain.Customer, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	c := in.toCustomer()
	c.Registered = true
	c.Active = true
	err := s.store.Do(ctx, func(q *repository.Queries) error {
		return q.CreateCustomer(ctx, c)
	})
	if errors.Is(err, domain.ErrDuplicate) {
		return nil, apperr.Conflict("a customer with that email already exists")
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CustomerService) Update(ctx context.Context, id int64, in CustomerInput) (*domain.Customer, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	c := in.toCustomer()
	c.ID = id
	err := s.store.Do(ctx, func(q *repository.Queries) error {
		if err := q.UpdateCustomer(ctx, c); err != nil {
			return err
		}
		updated, err := q.GetCustomer(ctx, id)
		if err != nil {
			return err
		}
		c = updated
		return nil
	})
	if errors.Is(err, domain.ErrDuplicate) {
		return nil, apperr.Conflict("a customer with that email already exists")
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Delete deactivates the customer; orders keep pointing at the row.
func (s *CustomerService) Delete(ctx context.Context, id int64) error {
	return s.store.Do(ctx, func(q *repository.Queries) error {
		return q.DeactivateCustomer(ctx, id)
	})
}

func (s *CustomerService) Orders(ctx context.Context, customerID int64, limit, offset int) ([]domain.Order, error) {
	var orders []domain.Order
	err := s.store.Do(ctx, func(q *repository.Queries) error {
		if _, err := q.GetCustomer(ctx, customerID); err != nil {
			return err
		}
		var err error
		orders, err = q.ListOrders(ctx, domain.OrderFilter{CustomerID: &customerID, Limit: limit, Offset: offset})
		return err
	})
	return orders, err
}

func (s *CustomerService) Favorites(ctx context.Context, customerID int64) (*domain.Favorites, error) {
	if err := s.customerExists(ctx, customerID); err != nil {
		return nil, err
	}
	return s.favorites.Get(ctx, customerID)
}

func (s *CustomerService) AddFavorite(ctx context.Context, customerID, productID int64) (*domain.Favorites, error) {
	err := s.store.Do(ctx, func(q *repository.Queries) error {
		if _, err := q.GetCustomer(ctx, customerID); err != nil {
			return err
		}
		p, err := q.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		if !p.Active {
			return apperr.NotFoundEntity("product")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.favorites.Add(ctx, customerID, productID); err != nil {
		return nil, err
	}
	return s.favorites.Get(ctx, customerID)
}

func (s *CustomerService) RemoveFavorite(ctx context.Context, customerID, productID int64) (*domain.Favorites, error) {
	if err := s.customerExists(ctx, customerID); err != nil {
		return nil, err
	}
	if err := s.favorites.Remove(ctx, customerID, productID); err != nil {
		return nil, err
	}
	return s.favorites.Get(ctx, customerID)
}

func (s *CustomerService) customerExists(ctx context.Context, id int64) error {
	return s.store.Do(ctx, func(q *repository.Queries) error {
		_, err := q.GetCustomer(ctx, id)
		return err
	})
}
