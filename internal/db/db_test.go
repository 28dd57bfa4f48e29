package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectSqliteAndMigrate(t *testing.T) {
	database, err := Connect("sqlite://:memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	assert.Equal(t, "sqlite", database.Driver())
	require.NoError(t, RunMigrations(database))
	require.NoError(t, RunMigrations(database), "migrations are idempotent")
	assert.NoError(t, database.Ping())

	assert.True(t, database.Migrator().HasTable(&PendingIntent{}))
	assert.True(t, database.Migrator().HasTable("session_values"))
}

func TestConnectRejectsUnknownDSN(t *testing.T) {
	_, err := Connect("mysql://localhost/state")
	assert.ErrorIs(t, err, ErrUnsupportedDSN)
}

func TestPendingIntentDefaults(t *testing.T) {
	database, err := Connect(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	require.NoError(t, RunMigrations(database))

	intent := &PendingIntent{IdempotencyKey: "addToCart:1:0", Type: IntentAddToCart, BookID: 1}
	require.NoError(t, database.Create(intent).Error)
	assert.Equal(t, IntentPending, intent.Status)
	assert.Equal(t, 1, intent.Quantity)
	assert.False(t, intent.CreatedAt.IsZero())
}
