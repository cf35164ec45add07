package cart

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidProduct   = errors.New("invalid product")
	ErrInvalidQuantity  = errors.New("invalid quantity")
	ErrNilCart          = errors.New("cart cannot be nil")
	ErrInvalidTaxRate   = errors.New("tax rate must be between 0 and 1")
	ErrNegativeSubtotal = errors.New("subtotal cannot be negative")
)

type Product struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

func NewProduct(name string, price decimal.Decimal) (Product, error) {
	if strings.TrimSpace(name) == "" {
		return Product{}, fmt.Errorf("%w: name cannot be empty", ErrInvalidProduct)
	}
	if price.IsNegative() {
		return Product{}, fmt.Errorf("%w: price cannot be negative", ErrInvalidProduct)
	}
	return Product{Name: name, Price: price}, nil
}

func (p Product) validate() error {
	_, err := NewProduct(p.Name, p.Price)
	return err
}

type Item struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

func NewItem(p Product, quantity int) (Item, error) {
	it := Item{Product: p, Quantity: quantity}
	if err := it.validate(); err != nil {
		return Item{}, err
	}
	return it, nil
}

// Total is price times quantity, unrounded.
func (it Item) Total() decimal.Decimal {
	return it.Product.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

func (it Item) validate() error {
	if err := it.Product.validate(); err != nil {
		return err
	}
	if it.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive, got %d", ErrInvalidQuantity, it.Quantity)
	}
	return nil
}

// Cart is a value; Service.AddItem returns a new Cart instead of mutating.
type Cart struct {
	ID        string
	UserID    string
	UpdatedAt time.Time

	items []Item
}

func NewCart(id, userID string, items ...Item) *Cart {
	return &Cart{
		ID:     id,
		UserID: userID,
		items:  append([]Item(nil), items...),
	}
}

func (c *Cart) Items() []Item {
	return append([]Item(nil), c.items...)
}

func (c *Cart) Len() int {
	return len(c.items)
}

func (c *Cart) IsEmpty() bool {
	return len(c.items) == 0
}

type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}
