package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"shop-service/internal/apperr"
	"shop-service/internal/broker"
	"shop-service/internal/bundle"
	"shop-service/internal/cart"
	"shop-service/internal/catalog"
	"shop-service/internal/models"
	"shop-service/internal/store"
	"shop-service/internal/util"

	"go.uber.org/zap"
)

const bundleCommitTTL = 24 * time.Hour

// EventPublisher publishes shop domain events
type EventPublisher interface {
	PublishProductUpdated(ctx context.Context, event *models.ProductUpdatedEvent) error
	PublishCatalogReset(ctx context.Context, event *models.CatalogResetEvent) error
	PublishBundleCommitted(ctx context.Context, event *models.BundleCommittedEvent) error
	PublishGiftCertificateAdded(ctx context.Context, event *models.GiftCertificateAddedEvent) error
	PublishRestockNotification(ctx context.Context, event *models.RestockNotificationEvent) error
}

// IdempotencyStore remembers the outcome of keyed requests
type IdempotencyStore interface {
	GetIdempotencyKey(ctx context.Context, key string) ([]byte, bool, error)
	SetIdempotencyKey(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Session is the state owned by one shopper: a cart and its bundle builder
type Session struct {
	Cart    *cart.Cart
	Builder *bundle.Builder
}

// ProductView is a catalog product with its live availability
type ProductView struct {
	models.Product
	Availability models.Availability `json:"availability"`
}

// ShopService runs every catalog and session operation one at a time
type ShopService struct {
	mu          sync.Mutex
	catalog     *catalog.Catalog
	seeds       []models.Product
	records     *store.Records
	sessions    map[string]*Session
	events      EventPublisher
	idempotency IdempotencyStore
	logger      *zap.Logger
}

// NewShopService loads the catalog and creates a new shop service.
// idempotency may be nil, in which case commits are never replayed.
func NewShopService(
	ctx context.Context,
	records *store.Records,
	seeds []models.Product,
	events EventPublisher,
	idempotency IdempotencyStore,
) (*ShopService, error) {
	products, err := records.LoadCatalog(ctx, seeds)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	return &ShopService{
		catalog:     catalog.New(products),
		seeds:       seeds,
		records:     records,
		sessions:    make(map[string]*Session),
		events:      events,
		idempotency: idempotency,
		logger:      util.GetLogger(),
	}, nil
}

// Lookup returns a catalog product by id
func (s *ShopService) Lookup(id string) (models.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.Lookup(id)
}

// session returns the loaded session or restores it from its record.
// Callers hold s.mu.
func (s *ShopService) session(ctx context.Context, sessionID string) (*Session, error) {
	if sess, ok := s.sessions[sessionID]; ok {
		return sess, nil
	}

	rec, err := s.records.LoadCart(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	c := cart.Restore(s.catalog, rec)
	if dropped := c.DroppedBundles(); len(dropped) > 0 {
		logger := util.SessionLogger(sessionID)
		for _, b := range dropped {
			util.BundlesDroppedTotal.Inc()
			logger.Warn("Dropping pack that no longer fits stock",
				zap.String("bundle_id", b.ID),
				zap.Int("units", b.Units()))
		}
		if err := s.saveCart(ctx, sessionID, c); err != nil {
			return nil, err
		}
	}

	sess := &Session{Cart: c, Builder: bundle.NewBuilder(s.catalog, c)}
	s.sessions[sessionID] = sess
	return sess, nil
}

// Products returns the catalog with availability as seen by a session
func (s *ShopService) Products(ctx context.Context, sessionID string) ([]ProductView, error) {
	ctx, span := util.StartSpan(ctx, "ShopService.Products")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	products := s.catalog.Products()
	views := make([]ProductView, 0, len(products))
	for _, p := range products {
		views = append(views, ProductView{Product: p, Availability: sess.Builder.Availability(p.ID)})
	}
	return views, nil
}

// Availability returns the ledger view of one product for a session
func (s *ShopService) Availability(ctx context.Context, sessionID, productID string) (models.Availability, error) {
	ctx, span := util.StartSpan(ctx, "ShopService.Availability", util.SessionAttr(sessionID), util.ProductAttr(productID))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.catalog.Get(productID); err != nil {
		return models.Availability{}, err
	}
	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return models.Availability{}, err
	}
	return sess.Builder.Availability(productID), nil
}

// Cart returns the priced cart of a session
func (s *ShopService) Cart(ctx context.Context, sessionID string) (models.CartSnapshot, error) {
	ctx, span := util.StartSpan(ctx, "ShopService.Cart", util.SessionAttr(sessionID))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return models.CartSnapshot{}, err
	}
	return sess.Cart.Snapshot(), nil
}

// ClearCart drops every line of a session cart
func (s *ShopService) ClearCart(ctx context.Context, sessionID string) (models.CartSnapshot, error) {
	return s.mutateCart(ctx, sessionID, "clear", func(c *cart.Cart) error {
		c.Clear()
		return nil
	})
}

// AddSingle adds units of a product to a session cart
func (s *ShopService) AddSingle(ctx context.Context, sessionID, productID string, quantity int) (models.CartSnapshot, error) {
	return s.mutateCart(ctx, sessionID, "add_single", func(c *cart.Cart) error {
		return c.AddSingle(productID, quantity)
	})
}

// SetSingleQuantity sets the single quantity of a product
func (s *ShopService) SetSingleQuantity(ctx context.Context, sessionID, productID string, quantity int) (models.CartSnapshot, error) {
	return s.mutateCart(ctx, sessionID, "set_single", func(c *cart.Cart) error {
		return c.SetSingleQuantity(productID, quantity)
	})
}

// RemoveBundle deletes a committed bundle
func (s *ShopService) RemoveBundle(ctx context.Context, sessionID, bundleID string) (models.CartSnapshot, error) {
	return s.mutateCart(ctx, sessionID, "remove_bundle", func(c *cart.Cart) error {
		return c.RemoveBundle(bundleID)
	})
}

// AddGiftCertificate adds a gift certificate to a session cart
func (s *ShopService) AddGiftCertificate(ctx context.Context, sessionID string, in cart.GiftCertificateInput) (models.CartSnapshot, error) {
	var added *models.GiftCertificate
	snap, err := s.mutateCart(ctx, sessionID, "add_gift_certificate", func(c *cart.Cart) error {
		gc, err := c.AddGiftCertificate(in)
		added = gc
		return err
	})
	if err != nil {
		return snap, err
	}

	util.GiftCertificatesAddedTotal.Inc()
	event := &models.GiftCertificateAddedEvent{
		BaseEvent:         broker.NewBaseEvent(models.EventTypeGiftCertificateAdded),
		SessionID:         sessionID,
		GiftCertificateID: added.ID,
		Amount:            added.Amount,
		SendDate:          added.SendDate,
	}
	if err := s.events.PublishGiftCertificateAdded(ctx, event); err != nil {
		s.logger.Error("Failed to publish GiftCertificateAdded event", zap.Error(err))
	}
	return snap, nil
}

// RemoveGiftCertificate deletes a gift certificate
func (s *ShopService) RemoveGiftCertificate(ctx context.Context, sessionID, id string) (models.CartSnapshot, error) {
	return s.mutateCart(ctx, sessionID, "remove_gift_certificate", func(c *cart.Cart) error {
		return c.RemoveGiftCertificate(id)
	})
}

// mutateCart applies one cart mutation and persists the result
func (s *ShopService) mutateCart(ctx context.Context, sessionID, op string, mutate func(*cart.Cart) error) (models.CartSnapshot, error) {
	ctx, span := util.StartSpan(ctx, "ShopService."+op, util.SessionAttr(sessionID))
	defer span.End()

	start := time.Now()
	defer func() {
		util.CartMutationLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return models.CartSnapshot{}, err
	}

	if err := mutate(sess.Cart); err != nil {
		util.RecordSpanError(span, err)
		s.observeRejection(op, sessionID, err)
		return models.CartSnapshot{}, err
	}

	if err := s.saveCart(ctx, sessionID, sess.Cart); err != nil {
		util.RecordSpanError(span, err)
		return models.CartSnapshot{}, err
	}

	util.CartMutationsTotal.WithLabelValues(op).Inc()
	return sess.Cart.Snapshot(), nil
}

func (s *ShopService) saveCart(ctx context.Context, sessionID string, c *cart.Cart) error {
	if err := s.records.SaveCart(ctx, sessionID, c.Record()); err != nil {
		util.SessionLogger(sessionID).Error("Failed to save cart", zap.Error(err))
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

func (s *ShopService) observeRejection(op, sessionID string, err error) {
	var sc *apperr.StockConflictError
	if errors.As(err, &sc) {
		util.StockConflictsTotal.WithLabelValues(op).Inc()
		util.SessionLogger(sessionID).Info("Stock conflict",
			zap.String("operation", op),
			zap.String("product_id", sc.ProductID),
			zap.Int("requested", sc.Requested),
			zap.Int("available", sc.Available))
	}
}

// Bundle returns the bundle workflow view of a session
func (s *ShopService) Bundle(ctx context.Context, sessionID string) (bundle.Snapshot, error) {
	return s.stepBundle(ctx, sessionID, "bundle", func(*bundle.Builder) error { return nil })
}

// ChooseBundleSize selects the pack size
func (s *ShopService) ChooseBundleSize(ctx context.Context, sessionID string, size int) (bundle.Snapshot, error) {
	return s.stepBundle(ctx, sessionID, "choose_size", func(b *bundle.Builder) error {
		return b.ChooseSize(size)
	})
}

// ComposeBundle moves the workflow to composition
func (s *ShopService) ComposeBundle(ctx context.Context, sessionID string) (bundle.Snapshot, error) {
	return s.stepBundle(ctx, sessionID, "compose", func(b *bundle.Builder) error {
		return b.EnterComposing()
	})
}

// IncrementBundleItem adds one unit to the selection
func (s *ShopService) IncrementBundleItem(ctx context.Context, sessionID, productID string) (bundle.Snapshot, error) {
	return s.stepBundle(ctx, sessionID, "increment", func(b *bundle.Builder) error {
		return b.Increment(productID)
	})
}

// DecrementBundleItem removes one unit from the selection
func (s *ShopService) DecrementBundleItem(ctx context.Context, sessionID, productID string) (bundle.Snapshot, error) {
	return s.stepBundle(ctx, sessionID, "decrement", func(b *bundle.Builder) error {
		return b.Decrement(productID)
	})
}

// ResetBundle clears the selection
func (s *ShopService) ResetBundle(ctx context.Context, sessionID string) (bundle.Snapshot, error) {
	return s.stepBundle(ctx, sessionID, "reset", func(b *bundle.Builder) error {
		return b.Reset()
	})
}

// BackBundle returns to size selection keeping the selection
func (s *ShopService) BackBundle(ctx context.Context, sessionID string) (bundle.Snapshot, error) {
	return s.stepBundle(ctx, sessionID, "back", func(b *bundle.Builder) error {
		return b.Back()
	})
}

// AbandonBundle discards the workflow
func (s *ShopService) AbandonBundle(ctx context.Context, sessionID string) (bundle.Snapshot, error) {
	return s.stepBundle(ctx, sessionID, "abandon", func(b *bundle.Builder) error {
		b.Abandon()
		return nil
	})
}

func (s *ShopService) stepBundle(ctx context.Context, sessionID, op string, step func(*bundle.Builder) error) (bundle.Snapshot, error) {
	ctx, span := util.StartSpan(ctx, "ShopService.bundle."+op, util.SessionAttr(sessionID))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return bundle.Snapshot{}, err
	}

	if err := step(sess.Builder); err != nil {
		util.RecordSpanError(span, err)
		s.observeRejection("bundle_"+op, sessionID, err)
		return sess.Builder.Snapshot(), err
	}
	return sess.Builder.Snapshot(), nil
}

// CommitBundle commits the session's selection into its cart. A repeated
// idempotency key returns the bundle committed the first time.
func (s *ShopService) CommitBundle(ctx context.Context, sessionID, idempotencyKey string) (*models.Bundle, error) {
	ctx, span := util.StartSpan(ctx, "ShopService.CommitBundle", util.SessionAttr(sessionID))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	replayKey := ""
	if idempotencyKey != "" && s.idempotency != nil {
		replayKey = "bundle-commit:" + sessionID + ":" + idempotencyKey
		if previous, ok := s.replayedCommit(ctx, replayKey); ok {
			util.BundleCommitsReplayedTotal.Inc()
			s.logger.Info("Duplicate bundle commit detected",
				zap.String("idempotency_key", idempotencyKey),
				zap.String("bundle_id", previous.ID))
			return previous, nil
		}
	}

	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	committed, err := sess.Builder.Commit()
	if err != nil {
		util.RecordSpanError(span, err)
		s.observeRejection("bundle_commit", sessionID, err)
		return nil, err
	}

	if err := s.saveCart(ctx, sessionID, sess.Cart); err != nil {
		return nil, err
	}

	util.BundlesCommittedTotal.WithLabelValues(strconv.Itoa(committed.Size)).Inc()
	util.CartMutationsTotal.WithLabelValues("commit_bundle").Inc()
	util.SessionLogger(sessionID).Info("Bundle committed",
		zap.String("bundle_id", committed.ID),
		zap.Int64("net_total", committed.NetTotal))

	if replayKey != "" {
		if data, err := json.Marshal(committed); err == nil {
			if err := s.idempotency.SetIdempotencyKey(ctx, replayKey, data, bundleCommitTTL); err != nil {
				s.logger.Warn("Failed to store idempotency key", zap.Error(err))
			}
		}
	}

	event := &models.BundleCommittedEvent{
		BaseEvent: broker.NewBaseEvent(models.EventTypeBundleCommitted),
		SessionID: sessionID,
		BundleID:  committed.ID,
		Size:      committed.Size,
		Lines:     committed.Lines,
		NetTotal:  committed.NetTotal,
	}
	if err := s.events.PublishBundleCommitted(ctx, event); err != nil {
		s.logger.Error("Failed to publish BundleCommitted event", zap.Error(err))
	}

	return committed, nil
}

func (s *ShopService) replayedCommit(ctx context.Context, key string) (*models.Bundle, bool) {
	data, found, err := s.idempotency.GetIdempotencyKey(ctx, key)
	if err != nil {
		s.logger.Warn("Failed to check idempotency key", zap.Error(err))
		return nil, false
	}
	if !found {
		return nil, false
	}

	var previous models.Bundle
	if err := json.Unmarshal(data, &previous); err != nil {
		s.logger.Warn("Ignoring unreadable idempotency record", zap.Error(err))
		return nil, false
	}
	return &previous, true
}
