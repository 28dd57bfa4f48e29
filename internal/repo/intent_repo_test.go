package repo

import (
	"context"
	"testing"
	"time"

	"github.com/bookstore/storefront/internal/db"
	"github.com/bookstore/storefront/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *db.DB {
	database, err := db.Connect(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	// Run migrations
	require.NoError(t, db.RunMigrations(database))
	return database
}

func newTestRepo(t *testing.T) *IntentRepository {
	return NewIntentRepository(setupTestDB(t), logger.NewLogger("test", "error"))
}

func TestEnqueueDeduplicatesPending(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first, created, err := repo.Enqueue(ctx, &db.PendingIntent{Type: db.IntentAddToCart, BookID: 10, Quantity: 2, BookTitle: "Dune"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "addToCart:10:2", first.IdempotencyKey)

	dup, created, err := repo.Enqueue(ctx, &db.PendingIntent{Type: db.IntentAddToCart, BookID: 10, Quantity: 2})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, dup.ID)

	_, created, err = repo.Enqueue(ctx, &db.PendingIntent{Type: db.IntentAddToCart, BookID: 10, Quantity: 3})
	require.NoError(t, err)
	assert.True(t, created, "different quantity is a different intent")

	pending, err := repo.ListPending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestEnqueueReopensAfterApplied(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first, _, err := repo.Enqueue(ctx, &db.PendingIntent{Type: db.IntentAddToWishlist, BookID: 4})
	require.NoError(t, err)
	require.NoError(t, repo.MarkApplied(ctx, first.ID))

	second, created, err := repo.Enqueue(ctx, &db.PendingIntent{Type: db.IntentAddToWishlist, BookID: 4})
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestListPendingOrder(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i, bookID := range []int64{3, 1, 2} {
		_, _, err := repo.Enqueue(ctx, &db.PendingIntent{
			Type:      db.IntentAddToCart,
			BookID:    bookID,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	pending, err := repo.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, []int64{3, 1, 2}, []int64{pending[0].BookID, pending[1].BookID, pending[2].BookID})
}

func TestMarkAppliedAndFailed(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	a, _, err := repo.Enqueue(ctx, &db.PendingIntent{Type: db.IntentAddToCart, BookID: 1})
	require.NoError(t, err)
	b, _, err := repo.Enqueue(ctx, &db.PendingIntent{Type: db.IntentAddToCart, BookID: 2})
	require.NoError(t, err)

	require.NoError(t, repo.MarkApplied(ctx, a.ID))
	require.NoError(t, repo.MarkFailed(ctx, b.ID, "out of stock"))

	assert.ErrorIs(t, repo.MarkApplied(ctx, a.ID), ErrIntentClosed)
	assert.ErrorIs(t, repo.MarkFailed(ctx, 999, "x"), ErrIntentNotFound)

	failed, err := repo.List(ctx, db.IntentFailed, 0)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "out of stock", failed[0].Error)

	applied, err := repo.List(ctx, db.IntentApplied, 0)
	require.NoError(t, err)
	require.Len(t, applied, 1)
	assert.NotNil(t, applied[0].AppliedAt)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, IntentStats{Pending: 0, Applied: 1, Failed: 1}, stats)
}

func TestPurgeApplied(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	old, _, err := repo.Enqueue(ctx, &db.PendingIntent{Type: db.IntentAddToCart, BookID: 1, CreatedAt: time.Now().Add(-48 * time.Hour)})
	require.NoError(t, err)
	require.NoError(t, repo.MarkApplied(ctx, old.ID))
	_, _, err = repo.Enqueue(ctx, &db.PendingIntent{Type: db.IntentAddToCart, BookID: 2, CreatedAt: time.Now().Add(-48 * time.Hour)})
	require.NoError(t, err)

	n, err := repo.PurgeApplied(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Pending)
	assert.Equal(t, int64(0), stats.Applied)
}

func TestSessionValues(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, ok, err := repo.GetValue(ctx, db.KeyRedirectAfterLogin)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.SetValue(ctx, db.KeyRedirectAfterLogin, "/cart"))
	require.NoError(t, repo.SetValue(ctx, db.KeyRedirectAfterLogin, "/wishlist"))

	v, ok, err := repo.GetValue(ctx, db.KeyRedirectAfterLogin)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/wishlist", v)

	require.NoError(t, repo.DeleteValue(ctx, db.KeyRedirectAfterLogin))
	require.NoError(t, repo.DeleteValue(ctx, db.KeyRedirectAfterLogin))
	_, ok, err = repo.GetValue(ctx, db.KeyRedirectAfterLogin)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEnqueueKeysEntryIntentsByItem(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	removal, created, err := repo.Enqueue(ctx, &db.PendingIntent{Type: db.IntentRemoveFromCart, ItemID: 42, BookID: 7})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "removeFromCart:42:1", removal.IdempotencyKey)

	_, created, err = repo.Enqueue(ctx, &db.PendingIntent{Type: db.IntentRemoveFromCart, ItemID: 42})
	require.NoError(t, err)
	assert.False(t, created)
}
