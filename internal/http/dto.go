package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/shopping-cart-go/internal/cart"
)

const maxBodyBytes = 1 << 20

type lineRequest struct {
	Product  string `json:"product"`
	Quantity int    `json:"quantity"`
}

type quoteRequest struct {
	Items []lineRequest `json:"items"`
}

type productResponse struct {
	Name  string `json:"name"`
	Price string `json:"price"`
}

type itemResponse struct {
	Product   string `json:"product"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unitPrice"`
	LineTotal string `json:"lineTotal"`
}

type totalsResponse struct {
	Subtotal string `json:"subtotal"`
	Tax      string `json:"tax"`
	Total    string `json:"total"`
}

type cartResponse struct {
	ID        string         `json:"id"`
	UserID    string         `json:"userId"`
	UpdatedAt time.Time      `json:"updatedAt"`
	Items     []itemResponse `json:"items"`
	totalsResponse
}

type quoteResponse struct {
	Items []itemResponse `json:"items"`
	totalsResponse
}

type checkoutResponse struct {
	Status string `json:"status"`
	CartID string `json:"cartId"`
	totalsResponse
}

// Totals are already rounded up to cents; unit prices keep catalogue precision.
func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func toProductResponse(p cart.Product) productResponse {
	return productResponse{Name: p.Name, Price: p.Price.String()}
}

func toItemResponses(items []cart.Item) []itemResponse {
	out := make([]itemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, itemResponse{
			Product:   it.Product.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.Product.Price.String(),
			LineTotal: it.Total().String(),
		})
	}
	return out
}

func toTotalsResponse(t cart.Totals) totalsResponse {
	return totalsResponse{Subtotal: money(t.Subtotal), Tax: money(t.Tax), Total: money(t.Total)}
}

func toCartResponse(c *cart.Cart, t cart.Totals) cartResponse {
	return cartResponse{
		ID:             c.ID,
		UserID:         c.UserID,
		UpdatedAt:      c.UpdatedAt,
		Items:          toItemResponses(c.Items()),
		totalsResponse: toTotalsResponse(t),
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{
		"error": msg,
	})
}
