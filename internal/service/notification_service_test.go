package service

import (
	"context"
	"errors"
	"testing"

	"shop-service/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRestockSubscriptionLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	notifier := NewNotificationService(f.records, f.shop, f.events)

	_, err := notifier.Subscribe(ctx, "santal", "client@example.com")
	assert.True(t, apperr.IsValidation(err), "in-stock products take no subscription")

	_, err = f.shop.UpdateProduct(ctx, "santal", update("Bougie Santal", 22.9, 0))
	require.NoError(t, err)

	email, err := notifier.Subscribe(ctx, "santal", " Client@Example.COM ")
	require.NoError(t, err)
	assert.Equal(t, "client@example.com", email)

	// a second subscription replaces the first
	_, err = notifier.Subscribe(ctx, "santal", "other@example.com")
	require.NoError(t, err)

	_, err = f.shop.UpdateProduct(ctx, "santal", update("Bougie Santal", 22.9, 4))
	require.NoError(t, err)
	require.Len(t, f.events.productUpdated, 2)

	require.NoError(t, notifier.HandleProductUpdated(ctx, f.events.productUpdated[1]))
	require.Len(t, f.events.restockNotified, 1)
	assert.Equal(t, "other@example.com", f.events.restockNotified[0].Email)
	assert.Equal(t, 4, f.events.restockNotified[0].Stock)

	_, ok, err := notifier.Subscriber(ctx, "santal")
	require.NoError(t, err)
	assert.False(t, ok)

	// replaying the same event notifies nobody
	require.NoError(t, notifier.HandleProductUpdated(ctx, f.events.productUpdated[1]))
	assert.Len(t, f.events.restockNotified, 1)
}

func TestSubscribeRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	notifier := NewNotificationService(f.records, f.shop, f.events)

	_, err := notifier.Subscribe(ctx, "ghost", "client@example.com")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	_, err = f.shop.UpdateProduct(ctx, "figue", update("Bougie Figue", 20, 0))
	require.NoError(t, err)

	_, err = notifier.Subscribe(ctx, "figue", "not-an-email")
	assert.True(t, apperr.IsValidation(err))
}

func TestHandleProductUpdatedIgnoresStockDrops(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	notifier := NewNotificationService(f.records, f.shop, f.events)

	_, err := f.shop.UpdateProduct(ctx, "figue", update("Bougie Figue", 20, 0))
	require.NoError(t, err)
	_, err = notifier.Subscribe(ctx, "figue", "client@example.com")
	require.NoError(t, err)

	require.NoError(t, notifier.HandleProductUpdated(ctx, f.events.productUpdated[0]))
	assert.Empty(t, f.events.restockNotified)

	email, ok, err := notifier.Subscriber(ctx, "figue")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "client@example.com", email)
}

func TestHandleProductUpdatedKeepsSubscriptionOnPublishFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	notifier := NewNotificationService(f.records, f.shop, f.events)

	_, err := f.shop.UpdateProduct(ctx, "figue", update("Bougie Figue", 20, 0))
	require.NoError(t, err)
	_, err = notifier.Subscribe(ctx, "figue", "client@example.com")
	require.NoError(t, err)
	_, err = f.shop.UpdateProduct(ctx, "figue", update("Bougie Figue", 20, 3))
	require.NoError(t, err)

	f.events.failRestockNotify = true
	assert.Error(t, notifier.HandleProductUpdated(ctx, f.events.productUpdated[1]))

	_, ok, err := notifier.Subscriber(ctx, "figue")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUnsubscribe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	notifier := NewNotificationService(f.records, f.shop, f.events)

	require.NoError(t, notifier.Unsubscribe(ctx, "figue"))

	_, err := f.shop.UpdateProduct(ctx, "figue", update("Bougie Figue", 20, 0))
	require.NoError(t, err)
	_, err = notifier.Subscribe(ctx, "figue", "client@example.com")
	require.NoError(t, err)

	require.NoError(t, notifier.Unsubscribe(ctx, "figue"))
	_, ok, err := notifier.Subscriber(ctx, "figue")
	require.NoError(t, err)
	assert.False(t, ok)
}
