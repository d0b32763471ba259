package domain

import "time"

type Customer struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Surname    string    `json:"surname"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	Address    string    `json:"address"`
	City       string    `json:"city"`
	Province   string    `json:"province"`
	PostalCode string    `json:"postal_code"`
	Registered bool      `json:"registered"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type CustomerFilter struct {
	Search     string
	ActiveOnly bool
	Limit      int
	Offset     int
}

// Favorites is the list of products a customer has starred.
type Favorites struct {
	CustomerID int64     `json:"customer_id" bson:"customer_id"`
	ProductIDs []int64   `json:"product_ids" bson:"product_ids"`
	UpdatedAt  time.Time `json:"updated_at" bson:"updated_at"`
}
