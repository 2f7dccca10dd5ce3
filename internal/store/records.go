package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"shop-service/internal/models"
	"shop-service/internal/util"

	"go.uber.org/zap"
)

// Record keys
const (
	KeyCatalog    = "catalog"
	KeyNotify     = "notify"
	KeyReviews    = "reviews"
	KeyNewsletter = "newsletter"
	cartKeyPrefix = "cart:"
)

var errMalformed = errors.New("malformed record")

// CartKey returns the record key of a session cart
func CartKey(sessionID string) string {
	return cartKeyPrefix + sessionID
}

// Records reads and writes the typed shop records. A record that cannot be
// decoded is replaced by its default, logged and counted; only backend
// failures are returned as errors.
type Records struct {
	backend Backend
	logger  *zap.Logger
}

// NewRecords creates typed record access over a backend
func NewRecords(backend Backend) *Records {
	return &Records{
		backend: backend,
		logger:  util.GetLogger(),
	}
}

// LoadCatalog returns the persisted catalog, or seeds when absent or
// malformed.
func (r *Records) LoadCatalog(ctx context.Context, seeds []models.Product) ([]models.Product, error) {
	var products []models.Product
	ok, err := r.load(ctx, KeyCatalog, &products, func() error {
		if len(products) == 0 {
			return fmt.Errorf("empty catalog: %w", errMalformed)
		}
		seen := make(map[string]bool, len(products))
		for _, p := range products {
			if p.ID == "" || seen[p.ID] || p.Price < 0 || p.Stock < 0 {
				return fmt.Errorf("invalid product %q: %w", p.ID, errMalformed)
			}
			seen[p.ID] = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return copyProducts(seeds), nil
	}
	return products, nil
}

// SaveCatalog persists the catalog
func (r *Records) SaveCatalog(ctx context.Context, products []models.Product) error {
	return r.save(ctx, KeyCatalog, products)
}

// LoadCart returns a session cart, or an empty cart when absent or malformed
func (r *Records) LoadCart(ctx context.Context, sessionID string) (*models.CartRecord, error) {
	rec := models.NewCartRecord()
	ok, err := r.load(ctx, CartKey(sessionID), rec, func() error {
		for i, b := range rec.Bundles {
			if b.ID == "" || len(b.Lines) == 0 {
				return fmt.Errorf("invalid bundle at %d: %w", i, errMalformed)
			}
		}
		for i, gc := range rec.GiftCertificates {
			if gc.ID == "" || gc.Amount <= 0 {
				return fmt.Errorf("invalid gift certificate at %d: %w", i, errMalformed)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return models.NewCartRecord(), nil
	}

	if rec.Singles == nil {
		rec.Singles = map[string]int{}
	}
	if rec.Bundles == nil {
		rec.Bundles = []models.Bundle{}
	}
	if rec.GiftCertificates == nil {
		rec.GiftCertificates = []models.GiftCertificate{}
	}
	return rec, nil
}

// SaveCart persists a session cart
func (r *Records) SaveCart(ctx context.Context, sessionID string, rec *models.CartRecord) error {
	return r.save(ctx, CartKey(sessionID), rec)
}

// DeleteCart removes a session cart
func (r *Records) DeleteCart(ctx context.Context, sessionID string) error {
	return r.backend.DeleteRecord(ctx, CartKey(sessionID))
}

// CartSessions returns the session ids of every persisted cart
func (r *Records) CartSessions(ctx context.Context) ([]string, error) {
	keys, err := r.backend.ListKeys(ctx, cartKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list carts: %w", err)
	}
	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		ids = append(ids, strings.TrimPrefix(key, cartKeyPrefix))
	}
	return ids, nil
}

// LoadNotify returns the restock subscriptions keyed by product id
func (r *Records) LoadNotify(ctx context.Context) (map[string]string, error) {
	subs := map[string]string{}
	ok, err := r.load(ctx, KeyNotify, &subs, nil)
	if err != nil {
		return nil, err
	}
	if !ok || subs == nil {
		return map[string]string{}, nil
	}
	return subs, nil
}

// SaveNotify persists the restock subscriptions
func (r *Records) SaveNotify(ctx context.Context, subs map[string]string) error {
	return r.save(ctx, KeyNotify, subs)
}

// LoadReviews returns the reviews keyed by product id
func (r *Records) LoadReviews(ctx context.Context) (map[string][]models.Review, error) {
	reviews := map[string][]models.Review{}
	ok, err := r.load(ctx, KeyReviews, &reviews, func() error {
		for id, list := range reviews {
			for _, rv := range list {
				if rv.Rating < 1 || rv.Rating > 5 {
					return fmt.Errorf("invalid rating for %s: %w", id, errMalformed)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !ok || reviews == nil {
		return map[string][]models.Review{}, nil
	}
	return reviews, nil
}

// SaveReviews persists the reviews
func (r *Records) SaveReviews(ctx context.Context, reviews map[string][]models.Review) error {
	return r.save(ctx, KeyReviews, reviews)
}

// LoadNewsletter returns the newsletter subscribers
func (r *Records) LoadNewsletter(ctx context.Context) ([]string, error) {
	var emails []string
	ok, err := r.load(ctx, KeyNewsletter, &emails, nil)
	if err != nil {
		return nil, err
	}
	if !ok || emails == nil {
		return []string{}, nil
	}
	return emails, nil
}

// SaveNewsletter persists the newsletter subscribers
func (r *Records) SaveNewsletter(ctx context.Context, emails []string) error {
	return r.save(ctx, KeyNewsletter, emails)
}

// load decodes a record into dst and runs validate. It reports false when the
// record is absent or had to be discarded.
func (r *Records) load(ctx context.Context, key string, dst interface{}, validate func() error) (bool, error) {
	data, err := r.backend.GetRecord(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to load %s: %w", key, err)
	}
	if data == nil {
		return false, nil
	}

	err = json.Unmarshal(data, dst)
	if err == nil && validate != nil {
		err = validate()
	}
	if err != nil {
		r.logger.Warn("Discarding malformed record",
			zap.String("key", key),
			zap.Error(err))
		util.PersistedRecordsRecovered.WithLabelValues(recordName(key)).Inc()
		return false, nil
	}
	return true, nil
}

func (r *Records) save(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := r.backend.PutRecord(ctx, key, data); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

func recordName(key string) string {
	if strings.HasPrefix(key, cartKeyPrefix) {
		return "cart"
	}
	return key
}

func copyProducts(products []models.Product) []models.Product {
	out := make([]models.Product, len(products))
	copy(out, products)
	return out
}
