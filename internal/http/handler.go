package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/shopping-cart-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/shopping-cart-go/internal/correlation"
	"github.com/andreasstove999/ecommerce-system/shopping-cart-go/internal/events"
	"github.com/andreasstove999/ecommerce-system/shopping-cart-go/internal/pricing"
)

var (
	errEmptyCart = errors.New("cart is empty")
	errPricing   = errors.New("price cart")
	errPublish   = errors.New("publish cart checked out")
)

type CartEventsPublisher interface {
	PublishCartCheckedOut(ctx context.Context, c *cart.Cart, totals cart.Totals, meta events.PublishMeta) error
}

type Handler struct {
	carts     cart.Repository
	svc       *cart.Service
	prices    pricing.Fetcher
	publisher CartEventsPublisher
	logger    *zap.Logger
}

// NewHandler wires the HTTP layer. publisher may be nil, in which case
// checkout clears the cart without emitting an event.
func NewHandler(carts cart.Repository, svc *cart.Service, prices pricing.Fetcher, publisher CartEventsPublisher, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		carts:     carts,
		svc:       svc,
		prices:    prices,
		publisher: publisher,
		logger:    logger.Named("http"),
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "cart-service"})
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if strings.TrimSpace(name) == "" {
		writeError(w, http.StatusBadRequest, "product is required")
		return
	}

	p, err := h.prices.Fetch(r.Context(), name)
	if err != nil {
		h.writeLookupError(w, name, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(p))
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if strings.TrimSpace(userID) == "" {
		writeError(w, http.StatusBadRequest, "missing userId")
		return
	}

	c, err := h.carts.Get(r.Context(), userID)
	if err != nil {
		if errors.Is(err, cart.ErrNotFound) {
			writeError(w, http.StatusNotFound, "cart not found")
			return
		}
		h.logger.Error("load cart", zap.String("userId", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load cart")
		return
	}

	totals, err := h.svc.Totals(c)
	if err != nil {
		h.logger.Error("price cart", zap.String("userId", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to price cart")
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c, totals))
}

// AddItem prices the product from the catalogue and appends it as a new
// line; adding the same product twice yields two lines.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if strings.TrimSpace(userID) == "" {
		writeError(w, http.StatusBadRequest, "missing userId")
		return
	}

	var body lineRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if msg := validateLine(body); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	ctx := r.Context()
	product, err := h.prices.Fetch(ctx, body.Product)
	if err != nil {
		h.writeLookupError(w, body.Product, err)
		return
	}

	item, err := cart.NewItem(product, body.Quantity)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.carts.Append(ctx, userID, item)
	if err != nil {
		h.logger.Error("save cart", zap.String("userId", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to save cart")
		return
	}

	totals, err := h.svc.Totals(updated)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to price cart")
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(updated, totals))
}

// Checkout publishes while the repository holds the cart lock; the cart is
// deleted only once the event is out.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if strings.TrimSpace(userID) == "" {
		writeError(w, http.StatusBadRequest, "missing userId")
		return
	}

	ctx := r.Context()
	var (
		cartID string
		totals cart.Totals
	)
	err := h.carts.Checkout(ctx, userID, func(c *cart.Cart) error {
		if c.IsEmpty() {
			return errEmptyCart
		}
		t, err := h.svc.Totals(c)
		if err != nil {
			return fmt.Errorf("%w: %w", errPricing, err)
		}

		if h.publisher != nil {
			meta := events.PublishMeta{
				CorrelationID: correlation.FromContext(ctx),
				CausationID:   middleware.GetReqID(ctx),
			}
			if err := h.publisher.PublishCartCheckedOut(ctx, c, t, meta); err != nil {
				return fmt.Errorf("%w: %w", errPublish, err)
			}
		} else {
			h.logger.Warn("event publishing disabled, checkout not announced", zap.String("cartId", c.ID))
		}

		cartID, totals = c.ID, t
		return nil
	})
	switch {
	case err == nil:
	case errors.Is(err, cart.ErrNotFound):
		writeError(w, http.StatusNotFound, "cart not found")
		return
	case errors.Is(err, errEmptyCart):
		writeError(w, http.StatusBadRequest, "cart is empty")
		return
	case errors.Is(err, errPricing):
		writeError(w, http.StatusInternalServerError, "failed to price cart")
		return
	case errors.Is(err, errPublish):
		h.logger.Error("publish cart checked out", zap.String("userId", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to publish cart checked out event")
		return
	default:
		h.logger.Error("clear cart", zap.String("userId", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to clear cart")
		return
	}

	writeJSON(w, http.StatusOK, checkoutResponse{
		Status:         "checkout completed",
		CartID:         cartID,
		totalsResponse: toTotalsResponse(totals),
	})
}

// Quote prices an ad-hoc basket without touching storage.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	var body quoteRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if len(body.Items) == 0 {
		writeError(w, http.StatusBadRequest, "items are required")
		return
	}

	names := make([]string, len(body.Items))
	for i, line := range body.Items {
		if msg := validateLine(line); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}
		names[i] = line.Product
	}

	products, err := pricing.FetchAll(r.Context(), h.prices, names...)
	if err != nil {
		h.writeLookupError(w, strings.Join(names, ","), err)
		return
	}

	c := cart.NewCart("", "")
	for i, p := range products {
		item, err := cart.NewItem(p, body.Items[i].Quantity)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if c, err = h.svc.AddItem(c, item); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	totals, err := h.svc.Totals(c)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to price cart")
		return
	}
	writeJSON(w, http.StatusOK, quoteResponse{
		Items:          toItemResponses(c.Items()),
		totalsResponse: toTotalsResponse(totals),
	})
}

func validateLine(l lineRequest) string {
	if strings.TrimSpace(l.Product) == "" {
		return "product is required"
	}
	if l.Quantity <= 0 {
		return "quantity must be positive"
	}
	return ""
}

func (h *Handler) writeLookupError(w http.ResponseWriter, name string, err error) {
	var fe *pricing.FetchError
	if errors.As(err, &fe) && fe.NotFound() {
		writeError(w, http.StatusNotFound, "product not found: "+fe.Product)
		return
	}
	h.logger.Error("price lookup failed", zap.String("product", name), zap.Error(err))
	writeError(w, http.StatusBadGateway, "failed to look up product price")
}
