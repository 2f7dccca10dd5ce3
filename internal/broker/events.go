package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"shop-service/internal/models"
	"shop-service/internal/util"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// NewBaseEvent stamps a new event of the given type
func NewBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
	}
}

// EventPublisher handles publishing domain events
type EventPublisher struct {
	writer EventWriter
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(writer EventWriter) *EventPublisher {
	return &EventPublisher{writer: writer}
}

// PublishProductUpdated publishes ProductUpdated event
func (ep *EventPublisher) PublishProductUpdated(ctx context.Context, event *models.ProductUpdatedEvent) error {
	return ep.publish(ctx, "product-"+event.ProductID, event.EventType, event)
}

// PublishCatalogReset publishes CatalogReset event
func (ep *EventPublisher) PublishCatalogReset(ctx context.Context, event *models.CatalogResetEvent) error {
	return ep.publish(ctx, "catalog", event.EventType, event)
}

// PublishBundleCommitted publishes BundleCommitted event
func (ep *EventPublisher) PublishBundleCommitted(ctx context.Context, event *models.BundleCommittedEvent) error {
	return ep.publish(ctx, "session-"+event.SessionID, event.EventType, event)
}

// PublishGiftCertificateAdded publishes GiftCertificateAdded event
func (ep *EventPublisher) PublishGiftCertificateAdded(ctx context.Context, event *models.GiftCertificateAddedEvent) error {
	return ep.publish(ctx, "session-"+event.SessionID, event.EventType, event)
}

// PublishRestockNotification publishes RestockNotification event
func (ep *EventPublisher) PublishRestockNotification(ctx context.Context, event *models.RestockNotificationEvent) error {
	return ep.publish(ctx, "product-"+event.ProductID, event.EventType, event)
}

func (ep *EventPublisher) publish(ctx context.Context, key, eventType string, event interface{}) error {
	if err := ep.writer.PublishEvent(ctx, key, event); err != nil {
		util.EventsPublishedTotal.WithLabelValues(eventType, "failed").Inc()
		return err
	}
	util.EventsPublishedTotal.WithLabelValues(eventType, "ok").Inc()
	return nil
}

// EventHandler handles incoming events
type EventHandler struct {
	onProductUpdated func(context.Context, *models.ProductUpdatedEvent) error
	logger           *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnProductUpdated registers a handler for ProductUpdated events
func (eh *EventHandler) OnProductUpdated(handler func(context.Context, *models.ProductUpdatedEvent) error) {
	eh.onProductUpdated = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	if t, ok := headerValue(msg, EventTypeHeader); ok && t != models.EventTypeProductUpdated {
		return nil
	}

	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	eh.logger.Debug("Handling event",
		zap.String("type", baseEvent.EventType),
		zap.String("event_id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeProductUpdated:
		if eh.onProductUpdated != nil {
			var event models.ProductUpdatedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal ProductUpdated event: %w", err)
			}
			return eh.onProductUpdated(ctx, &event)
		}

	default:
		// other shop events share the topic
	}

	return nil
}
