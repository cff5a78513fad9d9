package users

import (
	"context"
	"errors"
	"time"

	"github.com/gogotex/siteauth/internal/models"
)

// ErrMissingSubject is returned for claims without a sub.
var ErrMissingSubject = errors.New("claims have no subject")

// Service encapsulates user-related business logic
type Service struct {
	repo UserRepository
	now  func() time.Time
}

func NewService(r UserRepository) *Service {
	return &Service{repo: r, now: time.Now}
}

// RecordLogin upserts the directory entry for a freshly verified identity.
func (s *Service) RecordLogin(ctx context.Context, u *models.User) (*Record, error) {
	if u == nil || u.Sub == "" {
		return nil, ErrMissingSubject
	}
	return s.repo.UpsertLogin(ctx, u, s.now().UTC())
}
