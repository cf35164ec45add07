package pricing

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreasstove999/ecommerce-system/shopping-cart-go/internal/cart"
)

type fetcherMock struct {
	FetchFunc func(ctx context.Context, name string) (cart.Product, error)
	calls     int
}

func (m *fetcherMock) Fetch(ctx context.Context, name string) (cart.Product, error) {
	m.calls++
	return m.FetchFunc(ctx, name)
}

type memoryCache struct {
	entries map[string]cart.Product
	getErr  error
	setErr  error
}

func (c *memoryCache) Get(_ context.Context, name string) (cart.Product, bool, error) {
	if c.getErr != nil {
		return cart.Product{}, false, c.getErr
	}
	p, ok := c.entries[name]
	return p, ok, nil
}

func (c *memoryCache) Set(_ context.Context, name string, p cart.Product) error {
	if c.setErr != nil {
		return c.setErr
	}
	c.entries[name] = p
	return nil
}

func TestCachingFetcher(t *testing.T) {
	ctx := context.Background()
	cheerios := cart.Product{Name: "Cheerios", Price: decimal.RequireFromString("8.43")}

	t.Run("miss then hit", func(t *testing.T) {
		next := &fetcherMock{FetchFunc: func(context.Context, string) (cart.Product, error) { return cheerios, nil }}
		cache := &memoryCache{entries: map[string]cart.Product{}}
		f := NewCachingFetcher(next, cache, nil)

		for range 3 {
			p, err := f.Fetch(ctx, "cheerios")
			require.NoError(t, err)
			assert.Equal(t, "Cheerios", p.Name)
		}
		assert.Equal(t, 1, next.calls)
		assert.Contains(t, cache.entries, "cheerios")
	})

	t.Run("fetch error is not cached", func(t *testing.T) {
		boom := &FetchError{Msg: "failed to fetch product: x, status: 404", StatusCode: 404}
		next := &fetcherMock{FetchFunc: func(context.Context, string) (cart.Product, error) { return cart.Product{}, boom }}
		cache := &memoryCache{entries: map[string]cart.Product{}}
		f := NewCachingFetcher(next, cache, nil)

		_, err := f.Fetch(ctx, "x")
		assert.ErrorIs(t, err, ErrProductFetch)
		assert.Empty(t, cache.entries)
	})

	t.Run("cache failures fall through", func(t *testing.T) {
		next := &fetcherMock{FetchFunc: func(context.Context, string) (cart.Product, error) { return cheerios, nil }}
		cache := &memoryCache{getErr: errors.New("redis down"), setErr: errors.New("redis down")}
		f := NewCachingFetcher(next, cache, nil)

		p, err := f.Fetch(ctx, "cheerios")
		require.NoError(t, err)
		assert.Equal(t, cheerios, p)
		assert.Equal(t, 1, next.calls)
	})
}

func TestRedisCacheKey(t *testing.T) {
	c := NewRedisCache(nil, 0)
	assert.Equal(t, "price:cornflakes", c.Key("CornFlakes"))
}
