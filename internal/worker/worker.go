package worker

import (
	"context"

	"shop-service/internal/broker"
	"shop-service/internal/models"
	"shop-service/internal/service"
	"shop-service/internal/util"

	"go.uber.org/zap"
)

// RestockHandler reacts to a saved product edit
type RestockHandler func(ctx context.Context, event *models.ProductUpdatedEvent) error

// RestockWorker consumes product updates and sends restock notifications
type RestockWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

// NewRestockWorker creates a new restock worker
func NewRestockWorker(consumer *broker.Consumer, handler RestockHandler) *RestockWorker {
	eventHandler := broker.NewEventHandler()
	eventHandler.OnProductUpdated(handler)

	return &RestockWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
		logger:       util.GetLogger(),
	}
}

// Start starts the worker
func (w *RestockWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting restock worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *RestockWorker) Stop() error {
	w.logger.Info("Stopping restock worker")
	return w.consumer.Close()
}

// InlinePublisher hands product updates straight to a restock handler after
// publishing them. It stands in for RestockWorker when no broker is running.
type InlinePublisher struct {
	service.EventPublisher
	handler RestockHandler
	logger  *zap.Logger
}

// NewInlinePublisher wraps a publisher. Bind must be called before product
// updates are published for them to reach a handler.
func NewInlinePublisher(events service.EventPublisher) *InlinePublisher {
	return &InlinePublisher{
		EventPublisher: events,
		logger:         util.GetLogger(),
	}
}

// Bind sets the handler that receives product updates
func (p *InlinePublisher) Bind(handler RestockHandler) {
	p.handler = handler
}

// PublishProductUpdated publishes the event, then runs the handler on it
func (p *InlinePublisher) PublishProductUpdated(ctx context.Context, event *models.ProductUpdatedEvent) error {
	err := p.EventPublisher.PublishProductUpdated(ctx, event)

	if p.handler != nil {
		if herr := p.handler(ctx, event); herr != nil {
			p.logger.Error("Restock handler failed",
				zap.String("product_id", event.ProductID),
				zap.Error(herr))
		}
	}
	return err
}
