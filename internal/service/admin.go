package service

import (
	"context"
	"fmt"

	"shop-service/internal/apperr"
	"shop-service/internal/broker"
	"shop-service/internal/cart"
	"shop-service/internal/catalog"
	"shop-service/internal/models"
	"shop-service/internal/util"

	"go.uber.org/zap"
)

// UpdateProduct applies an admin edit, then clamps single quantities in every
// loaded session to the new ceiling. Stock may not drop below the units
// already committed to packs in any cart, loaded or persisted.
func (s *ShopService) UpdateProduct(ctx context.Context, productID string, upd catalog.ProductUpdate) (models.Product, error) {
	ctx, span := util.StartSpan(ctx, "ShopService.UpdateProduct", util.ProductAttr(productID))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, known := s.catalog.Lookup(productID); known && upd.Validate() == nil {
		held, err := s.bundledUnits(ctx, productID)
		if err != nil {
			util.RecordSpanError(span, err)
			return models.Product{}, err
		}
		if upd.StockUnits() < held {
			return models.Product{}, apperr.NewValidation("stock",
				fmt.Sprintf("must be at least %d, the units held in packs", held))
		}
	}

	previous, updated, err := s.catalog.Update(productID, upd)
	if err != nil {
		util.RecordSpanError(span, err)
		return models.Product{}, err
	}

	if err := s.records.SaveCatalog(ctx, s.catalog.Products()); err != nil {
		s.catalog.Set(previous)
		return models.Product{}, fmt.Errorf("failed to save catalog: %w", err)
	}

	s.logger.Info("Product updated",
		zap.String("product_id", productID),
		zap.Int("previous_stock", previous.Stock),
		zap.Int("stock", updated.Stock),
		zap.Int64("price", updated.Price))

	for sessionID, sess := range s.sessions {
		qty, changed := sess.Cart.ClampSingle(productID)
		sess.Cart.Refresh()
		if !changed {
			continue
		}

		util.SinglesClampedTotal.Inc()
		s.logger.Info("Single quantity clamped",
			zap.String("session_id", sessionID),
			zap.String("product_id", productID),
			zap.Int("quantity", qty))
		if err := s.saveCart(ctx, sessionID, sess.Cart); err != nil {
			s.logger.Error("Failed to persist clamped cart", zap.String("session_id", sessionID), zap.Error(err))
		}
	}

	event := &models.ProductUpdatedEvent{
		BaseEvent:     broker.NewBaseEvent(models.EventTypeProductUpdated),
		ProductID:     updated.ID,
		Name:          updated.Name,
		Price:         updated.Price,
		PreviousStock: previous.Stock,
		Stock:         updated.Stock,
	}
	if err := s.events.PublishProductUpdated(ctx, event); err != nil {
		s.logger.Error("Failed to publish ProductUpdated event", zap.Error(err))
	}

	return updated, nil
}

// bundledUnits returns the largest number of units of a product held by
// packs in any one cart. Persisted carts that are not loaded are restored
// against the current catalog, so packs they would drop are not counted.
// Callers hold s.mu.
func (s *ShopService) bundledUnits(ctx context.Context, productID string) (int, error) {
	held := 0
	for _, sess := range s.sessions {
		if n := sess.Cart.Ledger().BundledQty(productID); n > held {
			held = n
		}
	}

	ids, err := s.records.CartSessions(ctx)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		if _, loaded := s.sessions[id]; loaded {
			continue
		}
		rec, err := s.records.LoadCart(ctx, id)
		if err != nil {
			return 0, fmt.Errorf("failed to load cart: %w", err)
		}
		if n := cart.Restore(s.catalog, rec).Ledger().BundledQty(productID); n > held {
			held = n
		}
	}
	return held, nil
}

// ResetCatalog restores the seed catalog, empties every loaded cart and
// bundle workflow and deletes every persisted cart.
func (s *ShopService) ResetCatalog(ctx context.Context) error {
	ctx, span := util.StartSpan(ctx, "ShopService.ResetCatalog")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.records.SaveCatalog(ctx, s.seeds); err != nil {
		return fmt.Errorf("failed to save catalog: %w", err)
	}
	s.catalog.Replace(s.seeds)

	for _, sess := range s.sessions {
		sess.Cart.Clear()
		sess.Builder.Abandon()
	}

	ids, err := s.records.CartSessions(ctx)
	if err != nil {
		s.logger.Error("Failed to list persisted carts", zap.Error(err))
		ids = ids[:0]
		for sessionID := range s.sessions {
			ids = append(ids, sessionID)
		}
	}
	for _, sessionID := range ids {
		if err := s.records.DeleteCart(ctx, sessionID); err != nil {
			s.logger.Error("Failed to delete cart", zap.String("session_id", sessionID), zap.Error(err))
		}
	}

	s.logger.Info("Catalog reset",
		zap.Int("products", s.catalog.Len()),
		zap.Int("sessions", len(s.sessions)),
		zap.Int("carts_deleted", len(ids)))

	event := &models.CatalogResetEvent{
		BaseEvent:    broker.NewBaseEvent(models.EventTypeCatalogReset),
		ProductCount: s.catalog.Len(),
	}
	if err := s.events.PublishCatalogReset(ctx, event); err != nil {
		s.logger.Error("Failed to publish CatalogReset event", zap.Error(err))
	}
	return nil
}
