package cart

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// moneyPlaces is the precision every reported amount is rounded up to.
const moneyPlaces = 2

// Service prices carts. Amounts are rounded towards +infinity at two
// decimal places: first the subtotal, then tax on the rounded subtotal,
// then their sum.
type Service struct {
	taxRate decimal.Decimal
	logger  *zap.Logger
}

func NewService(taxRate decimal.Decimal, logger *zap.Logger) (*Service, error) {
	if taxRate.IsNegative() || taxRate.GreaterThan(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("%w, got %s", ErrInvalidTaxRate, taxRate)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("cart")
	logger.Info("cart service initialized", zap.Stringer("taxRate", taxRate))
	return &Service{taxRate: taxRate, logger: logger}, nil
}

// ParseTaxRate parses a rate such as "0.125".
func ParseTaxRate(v string) (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(v))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q is not a number", ErrInvalidTaxRate, v)
	}
	return rate, nil
}

func (s *Service) TaxRate() decimal.Decimal {
	return s.taxRate
}

func (s *Service) AddItem(c *Cart, it Item) (*Cart, error) {
	if c == nil {
		s.logger.Error("attempted to add item to nil cart")
		return nil, ErrNilCart
	}
	if err := it.validate(); err != nil {
		s.logger.Error("attempted to add invalid item to cart", zap.Error(err))
		return nil, err
	}

	items := make([]Item, 0, len(c.items)+1)
	items = append(items, c.items...)
	items = append(items, it)

	s.logger.Debug("added item to cart",
		zap.String("product", it.Product.Name),
		zap.Int("quantity", it.Quantity))

	return &Cart{
		ID:        c.ID,
		UserID:    c.UserID,
		UpdatedAt: time.Now().UTC(),
		items:     items,
	}, nil
}

func (s *Service) LineTotal(it Item) decimal.Decimal {
	return it.Total()
}

func (s *Service) Subtotal(c *Cart) (decimal.Decimal, error) {
	if c == nil {
		return decimal.Zero, ErrNilCart
	}
	subtotal := decimal.Zero
	for _, it := range c.items {
		subtotal = subtotal.Add(s.LineTotal(it))
	}
	s.logger.Debug("calculated subtotal",
		zap.Stringer("subtotal", subtotal),
		zap.Int("items", c.Len()))
	return subtotal, nil
}

func (s *Service) Tax(subtotal decimal.Decimal) (decimal.Decimal, error) {
	if subtotal.IsNegative() {
		return decimal.Zero, ErrNegativeSubtotal
	}
	return subtotal.Mul(s.taxRate).RoundCeil(moneyPlaces), nil
}

func (s *Service) Totals(c *Cart) (Totals, error) {
	subtotal, err := s.Subtotal(c)
	if err != nil {
		return Totals{}, err
	}
	return s.totalsFor(subtotal)
}

func (s *Service) totalsFor(subtotal decimal.Decimal) (Totals, error) {
	rounded := subtotal.RoundCeil(moneyPlaces)
	tax, err := s.Tax(rounded)
	if err != nil {
		return Totals{}, err
	}

	totals := Totals{
		Subtotal: rounded,
		Tax:      tax,
		Total:    rounded.Add(tax).RoundCeil(moneyPlaces),
	}

	s.logger.Info("calculated cart totals",
		zap.Stringer("subtotal", totals.Subtotal),
		zap.Stringer("tax", totals.Tax),
		zap.Stringer("total", totals.Total))

	return totals, nil
}
