package service

import (
	"context"
	"sync"

	"shop-service/internal/apperr"
	"shop-service/internal/store"
	"shop-service/internal/util"

	"go.uber.org/zap"
)

// NewsletterService collects newsletter signups
type NewsletterService struct {
	mu      sync.Mutex
	records *store.Records
	logger  *zap.Logger
}

// NewNewsletterService creates a new newsletter service
func NewNewsletterService(records *store.Records) *NewsletterService {
	return &NewsletterService{records: records, logger: util.GetLogger()}
}

// Subscribe adds an email once. It reports whether the email was new.
func (s *NewsletterService) Subscribe(ctx context.Context, email string) (bool, error) {
	ctx, span := util.StartSpan(ctx, "NewsletterService.Subscribe")
	defer span.End()

	normalized, ok := util.NormalizeEmail(email)
	if !ok {
		return false, apperr.NewValidation("email", "must be a valid email")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	emails, err := s.records.LoadNewsletter(ctx)
	if err != nil {
		return false, err
	}
	for _, e := range emails {
		if e == normalized {
			return false, nil
		}
	}

	if err := s.records.SaveNewsletter(ctx, append(emails, normalized)); err != nil {
		return false, err
	}
	s.logger.Info("Newsletter signup", zap.Int("subscribers", len(emails)+1))
	return true, nil
}
