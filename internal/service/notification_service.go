package service

import (
	"context"
	"fmt"
	"sync"

	"shop-service/internal/apperr"
	"shop-service/internal/broker"
	"shop-service/internal/models"
	"shop-service/internal/store"
	"shop-service/internal/util"

	"go.uber.org/zap"
)

// ProductLookup resolves catalog products
type ProductLookup interface {
	Lookup(id string) (models.Product, bool)
}

// NotificationService keeps one restock subscriber email per product
type NotificationService struct {
	mu       sync.Mutex
	records  *store.Records
	products ProductLookup
	events   EventPublisher
	logger   *zap.Logger
}

// NewNotificationService creates a new notification service
func NewNotificationService(records *store.Records, products ProductLookup, events EventPublisher) *NotificationService {
	return &NotificationService{
		records:  records,
		products: products,
		events:   events,
		logger:   util.GetLogger(),
	}
}

// Subscribe registers an email to hear when an out-of-stock product is back
func (s *NotificationService) Subscribe(ctx context.Context, productID, email string) (string, error) {
	ctx, span := util.StartSpan(ctx, "NotificationService.Subscribe", util.ProductAttr(productID))
	defer span.End()

	p, ok := s.products.Lookup(productID)
	if !ok {
		return "", apperr.NotFoundf("product %s", productID)
	}
	if p.Stock > 0 {
		return "", apperr.NewValidation("product", "is in stock")
	}
	normalized, ok := util.NormalizeEmail(email)
	if !ok {
		return "", apperr.NewValidation("email", "must be a valid email")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	subs, err := s.records.LoadNotify(ctx)
	if err != nil {
		return "", err
	}
	subs[productID] = normalized
	if err := s.records.SaveNotify(ctx, subs); err != nil {
		return "", err
	}

	s.logger.Info("Restock subscription saved", zap.String("product_id", productID))
	return normalized, nil
}

// Unsubscribe removes the subscription of a product
func (s *NotificationService) Unsubscribe(ctx context.Context, productID string) error {
	ctx, span := util.StartSpan(ctx, "NotificationService.Unsubscribe")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	subs, err := s.records.LoadNotify(ctx)
	if err != nil {
		return err
	}
	if _, ok := subs[productID]; !ok {
		return nil
	}
	delete(subs, productID)
	return s.records.SaveNotify(ctx, subs)
}

// Subscriber returns the email subscribed to a product, if any
func (s *NotificationService) Subscriber(ctx context.Context, productID string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	subs, err := s.records.LoadNotify(ctx)
	if err != nil {
		return "", false, err
	}
	email, ok := subs[productID]
	return email, ok, nil
}

// HandleProductUpdated notifies the subscriber of a product that came back
// in stock and clears the subscription.
func (s *NotificationService) HandleProductUpdated(ctx context.Context, event *models.ProductUpdatedEvent) error {
	ctx, span := util.StartSpan(ctx, "NotificationService.HandleProductUpdated", util.ProductAttr(event.ProductID))
	defer span.End()

	if event.PreviousStock > 0 || event.Stock <= 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	subs, err := s.records.LoadNotify(ctx)
	if err != nil {
		return fmt.Errorf("failed to load subscriptions: %w", err)
	}
	email, ok := subs[event.ProductID]
	if !ok {
		return nil
	}

	notification := &models.RestockNotificationEvent{
		BaseEvent: broker.NewBaseEvent(models.EventTypeRestockNotification),
		ProductID: event.ProductID,
		Email:     email,
		Stock:     event.Stock,
	}
	if err := s.events.PublishRestockNotification(ctx, notification); err != nil {
		return fmt.Errorf("failed to publish restock notification: %w", err)
	}
	util.RestockNotificationsTotal.Inc()

	delete(subs, event.ProductID)
	if err := s.records.SaveNotify(ctx, subs); err != nil {
		return fmt.Errorf("failed to clear subscription: %w", err)
	}

	s.logger.Info("Restock notification sent",
		zap.String("product_id", event.ProductID),
		zap.Int("stock", event.Stock))
	return nil
}
