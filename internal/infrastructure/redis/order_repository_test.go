package redis

import (
	"context"
	"testing"

	"github.com/Zhima-Mochi/orderpay/internal/domain/money"
	domain "github.com/Zhima-Mochi/orderpay/internal/domain/order"
	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPrefix = "orderpay:"

func setupTestRepo(t *testing.T) (*OrderRepository, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewOrderRepository(rdb, testPrefix), srv
}

func pendingOrder(t *testing.T, id string) *domain.Order {
	t.Helper()
	o := domain.New(id, "customer_123")
	require.NoError(t, o.AddLine("p1", "Product 1", money.MustNew(decimal.RequireFromString("19.99"), "USD"), 3))
	return o
}

func TestOrderRepository_Key(t *testing.T) {
	assert.Equal(t, "orderpay:order:abc", NewOrderRepository(nil, "orderpay:").key("abc"))
	assert.Equal(t, "order:abc", NewOrderRepository(nil, "").key("abc"))
}

func TestEncodeDecode_KeepsAggregate(t *testing.T) {
	o := domain.New("order-1", "customer_123")
	require.NoError(t, o.AddLine("p1", "Product 1", money.MustNew(decimal.RequireFromString("19.99"), "USD"), 3))
	require.NoError(t, o.Pay())

	raw, err := encode(o)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"price":"19.99"`)

	got, err := decode(raw)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, got.Status())
	assert.True(t, got.Total().Equal(o.Total()))
}

func TestDecode_RejectsBrokenSnapshot(t *testing.T) {
	testCases := map[string]string{
		"should reject invalid json":    `{`,
		"should reject missing id":      `{"status":"pending"}`,
		"should reject unknown status":  `{"id":"o","status":"shipped"}`,
		"should reject paid empty":      `{"id":"o","status":"paid","lines":[]}`,
		"should reject zero quantities": `{"id":"o","status":"pending","lines":[{"product_id":"p","price":"1","currency":"USD","quantity":0}]}`,
		"should reject mixed currency":  `{"id":"o","status":"paid","lines":[{"product_id":"a","price":"1","currency":"USD","quantity":1},{"product_id":"b","price":"1","currency":"EUR","quantity":1}]}`,
	}

	for name, raw := range testCases {
		t.Run(name, func(t *testing.T) {
			o, err := decode([]byte(raw))
			assert.Error(t, err)
			assert.Nil(t, o)
		})
	}
}

func TestOrderRepository_FindByID_Unknown(t *testing.T) {
	repo, _ := setupTestRepo(t)

	o, err := repo.FindByID(context.Background(), "missing")

	assert.Nil(t, o)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOrderRepository_SaveAndFind(t *testing.T) {
	ctx := context.Background()
	repo, srv := setupTestRepo(t)
	o := pendingOrder(t, "order-1")

	require.NoError(t, repo.Save(ctx, o))

	assert.True(t, srv.Exists(testPrefix+"order:order-1"))
	assert.Zero(t, srv.TTL(testPrefix+"order:order-1"))

	got, err := repo.FindByID(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, "customer_123", got.CustomerID)
	assert.Equal(t, domain.StatusPending, got.Status())
	require.Len(t, got.Lines(), 1)
	assert.True(t, got.Total().Equal(o.Total()))
}

func TestOrderRepository_SaveOverwrites(t *testing.T) {
	ctx := context.Background()
	repo, srv := setupTestRepo(t)
	o := pendingOrder(t, "order-1")
	require.NoError(t, repo.Save(ctx, o))

	require.NoError(t, o.Pay())
	require.NoError(t, repo.Save(ctx, o))

	got, err := repo.FindByID(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, got.Status())
	assert.Len(t, srv.Keys(), 1)
}

func TestOrderRepository_SaveRequiresID(t *testing.T) {
	repo, srv := setupTestRepo(t)

	assert.Error(t, repo.Save(context.Background(), nil))
	assert.Error(t, repo.Save(context.Background(), &domain.Order{}))
	assert.Empty(t, srv.Keys())
}

func TestOrderRepository_TransportErrors(t *testing.T) {
	ctx := context.Background()
	repo, srv := setupTestRepo(t)
	srv.SetError("ERR injected failure")

	_, err := repo.FindByID(ctx, "order-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, err.Error(), "redis: get order order-1")

	err = repo.Save(ctx, pendingOrder(t, "order-1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis: set order order-1")
}

func TestOrderRepository_FindByID_CorruptValue(t *testing.T) {
	repo, srv := setupTestRepo(t)
	require.NoError(t, srv.Set(testPrefix+"order:order-1", "{"))

	o, err := repo.FindByID(context.Background(), "order-1")

	assert.Nil(t, o)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}
