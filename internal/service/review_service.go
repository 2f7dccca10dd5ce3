package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"shop-service/internal/apperr"
	"shop-service/internal/models"
	"shop-service/internal/store"
	"shop-service/internal/util"
)

// ReviewInput is a review as submitted by a shopper
type ReviewInput struct {
	Name   string `json:"name"`
	Rating int    `json:"rating"`
	Text   string `json:"text"`
}

// ReviewService stores product reviews, newest first
type ReviewService struct {
	mu       sync.Mutex
	records  *store.Records
	products ProductLookup
	now      func() time.Time
}

// NewReviewService creates a new review service
func NewReviewService(records *store.Records, products ProductLookup) *ReviewService {
	return &ReviewService{records: records, products: products, now: time.Now}
}

// Add validates and stores a review
func (s *ReviewService) Add(ctx context.Context, productID string, in ReviewInput) (models.Review, error) {
	ctx, span := util.StartSpan(ctx, "ReviewService.Add")
	defer span.End()

	if _, ok := s.products.Lookup(productID); !ok {
		return models.Review{}, apperr.NotFoundf("product %s", productID)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return models.Review{}, apperr.NewValidation("name", "must not be empty")
	}
	if in.Rating < 1 || in.Rating > 5 {
		return models.Review{}, apperr.NewValidation("rating", "must be between 1 and 5")
	}

	review := models.Review{
		Name:      name,
		Rating:    in.Rating,
		Text:      strings.TrimSpace(in.Text),
		Timestamp: s.now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	reviews, err := s.records.LoadReviews(ctx)
	if err != nil {
		return models.Review{}, err
	}
	reviews[productID] = append([]models.Review{review}, reviews[productID]...)
	if err := s.records.SaveReviews(ctx, reviews); err != nil {
		return models.Review{}, err
	}
	return review, nil
}

// List returns the reviews of a product and their summary
func (s *ReviewService) List(ctx context.Context, productID string) ([]models.Review, models.RatingSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reviews, err := s.records.LoadReviews(ctx)
	if err != nil {
		return nil, models.RatingSummary{}, err
	}

	list := reviews[productID]
	if list == nil {
		list = []models.Review{}
	}
	return list, summarize(productID, list), nil
}

// Delete removes the review at index, 0 being the newest
func (s *ReviewService) Delete(ctx context.Context, productID string, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	reviews, err := s.records.LoadReviews(ctx)
	if err != nil {
		return err
	}
	list := reviews[productID]
	if index < 0 || index >= len(list) {
		return apperr.NotFoundf("review %d of product %s", index, productID)
	}

	reviews[productID] = append(list[:index], list[index+1:]...)
	return s.records.SaveReviews(ctx, reviews)
}

// Clear removes every review of a product
func (s *ReviewService) Clear(ctx context.Context, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	reviews, err := s.records.LoadReviews(ctx)
	if err != nil {
		return err
	}
	delete(reviews, productID)
	return s.records.SaveReviews(ctx, reviews)
}

func summarize(productID string, list []models.Review) models.RatingSummary {
	summary := models.RatingSummary{ProductID: productID, Count: len(list)}
	if len(list) == 0 {
		return summary
	}
	sum := 0
	for _, r := range list {
		sum += r.Rating
	}
	summary.Average = float64(sum) / float64(len(list))
	return summary
}
