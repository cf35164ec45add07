package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/andreasstove999/ecommerce-system/shopping-cart-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/shopping-cart-go/internal/correlation"
)

const jsonExtension = ".json"

// ErrProductFetch matches every error returned by Client.Fetch.
var ErrProductFetch = errors.New("product fetch failed")

type FetchError struct {
	Product    string
	StatusCode int
	URL        string
	Msg        string
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool { return target == ErrProductFetch }

// NotFound reports whether the catalogue answered 404 for the product.
func (e *FetchError) NotFound() bool { return e.StatusCode == http.StatusNotFound }

type Fetcher interface {
	Fetch(ctx context.Context, name string) (cart.Product, error)
}

// Client looks products up in the pricing catalogue, one JSON document
// per product at <baseURL><lower-cased name>.json.
type Client struct {
	http    *http.Client
	baseURL string
	logger  *zap.Logger
}

func NewClient(httpClient *http.Client, baseURL string, logger *zap.Logger) (*Client, error) {
	if httpClient == nil {
		return nil, errors.New("http client cannot be nil")
	}
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("base url cannot be blank")
	}
	if !strings.HasSuffix(baseURL, "/") {
		return nil, fmt.Errorf("base url must end with /, got %q", baseURL)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("pricing")
	logger.Info("pricing client initialized", zap.String("baseURL", baseURL))
	return &Client{http: httpClient, baseURL: baseURL, logger: logger}, nil
}

func (c *Client) ProductURL(name string) string {
	return c.baseURL + url.PathEscape(strings.ToLower(name)) + jsonExtension
}

func (c *Client) Fetch(ctx context.Context, name string) (cart.Product, error) {
	if strings.TrimSpace(name) == "" {
		c.logger.Error("attempted to fetch product with blank name")
		return cart.Product{}, &FetchError{Product: name, Msg: "product name cannot be null or blank"}
	}

	u := c.ProductURL(name)
	c.logger.Debug("fetching product", zap.String("url", u))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return cart.Product{}, &FetchError{Product: name, URL: u, Msg: "failed to build request for product: " + name, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	correlation.Propagate(ctx, req)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("unexpected error fetching product", zap.String("product", name), zap.Error(err))
		return cart.Product{}, &FetchError{Product: name, URL: u, Msg: "failed to fetch product: " + name, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("failed to fetch product",
			zap.String("product", name),
			zap.Int("status", resp.StatusCode),
			zap.String("url", u))
		return cart.Product{}, &FetchError{
			Product:    name,
			StatusCode: resp.StatusCode,
			URL:        u,
			Msg:        fmt.Sprintf("failed to fetch product: %s, status: %d, url: %s", name, resp.StatusCode, u),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return cart.Product{}, &FetchError{Product: name, StatusCode: resp.StatusCode, URL: u, Msg: "failed to read pricing response", Err: err}
	}

	p, err := parseProduct(body)
	if err != nil {
		c.logger.Error("failed to parse product JSON", zap.ByteString("body", body), zap.Error(err))
		var fe *FetchError
		if errors.As(err, &fe) {
			fe.Product, fe.StatusCode, fe.URL = name, resp.StatusCode, u
			return cart.Product{}, fe
		}
		return cart.Product{}, &FetchError{Product: name, StatusCode: resp.StatusCode, URL: u, Msg: "failed to parse product JSON", Err: err}
	}

	c.logger.Info("fetched product", zap.String("product", p.Name), zap.Stringer("price", p.Price))
	return p, nil
}

// FetchAll looks the names up concurrently. Results keep the order of
// names; the first failure cancels the rest.
func FetchAll(ctx context.Context, f Fetcher, names ...string) ([]cart.Product, error) {
	products := make([]cart.Product, len(names))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		g.Go(func() error {
			p, err := f.Fetch(gctx, name)
			if err != nil {
				return err
			}
			products[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return products, nil
}

type productDocument struct {
	Title *string          `json:"title"`
	Price *decimal.Decimal `json:"price"`
}

func parseProduct(body []byte) (cart.Product, error) {
	if strings.TrimSpace(string(body)) == "" {
		return cart.Product{}, &FetchError{Msg: "received empty response from pricing service"}
	}

	var doc productDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return cart.Product{}, err
	}
	if doc.Title == nil {
		return cart.Product{}, errors.New("missing title")
	}
	if doc.Price == nil {
		return cart.Product{}, errors.New("missing price")
	}

	return cart.NewProduct(*doc.Title, *doc.Price)
}
