package worker

import (
	"context"
	"errors"
	"testing"

	"shop-service/internal/catalog"
	"shop-service/internal/models"
	"shop-service/internal/service"
	"shop-service/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEvents struct {
	productUpdated  int
	restockNotified []*models.RestockNotificationEvent
	err             error
}

func (s *stubEvents) PublishProductUpdated(context.Context, *models.ProductUpdatedEvent) error {
	s.productUpdated++
	return s.err
}

func (s *stubEvents) PublishCatalogReset(context.Context, *models.CatalogResetEvent) error {
	return nil
}

func (s *stubEvents) PublishBundleCommitted(context.Context, *models.BundleCommittedEvent) error {
	return nil
}

func (s *stubEvents) PublishGiftCertificateAdded(context.Context, *models.GiftCertificateAddedEvent) error {
	return nil
}

func (s *stubEvents) PublishRestockNotification(_ context.Context, event *models.RestockNotificationEvent) error {
	s.restockNotified = append(s.restockNotified, event)
	return nil
}

func TestInlinePublisherDeliversRestock(t *testing.T) {
	ctx := context.Background()
	records := store.NewRecords(store.NewMemoryBackend())
	base := &stubEvents{}
	events := NewInlinePublisher(base)

	shop, err := service.NewShopService(ctx, records, catalog.DefaultProducts(), events, nil)
	require.NoError(t, err)
	notifier := service.NewNotificationService(records, shop, events)
	events.Bind(notifier.HandleProductUpdated)

	upd := catalog.ProductUpdate{Name: "Bougie Figue", Price: 20, Stock: 0}
	_, err = shop.UpdateProduct(ctx, "figue", upd)
	require.NoError(t, err)
	_, err = notifier.Subscribe(ctx, "figue", "client@example.com")
	require.NoError(t, err)

	upd.Stock = 6
	_, err = shop.UpdateProduct(ctx, "figue", upd)
	require.NoError(t, err)

	assert.Equal(t, 2, base.productUpdated)
	require.Len(t, base.restockNotified, 1)
	assert.Equal(t, "figue", base.restockNotified[0].ProductID)
	assert.Equal(t, "client@example.com", base.restockNotified[0].Email)
}

func TestInlinePublisherWithoutHandler(t *testing.T) {
	base := &stubEvents{err: errors.New("down")}
	events := NewInlinePublisher(base)

	err := events.PublishProductUpdated(context.Background(), &models.ProductUpdatedEvent{ProductID: "figue"})
	assert.Error(t, err)
	assert.Equal(t, 1, base.productUpdated)
}

func TestRestockWorkerIntegration(t *testing.T) {
	t.Skip("Integration test - requires Kafka")
}
