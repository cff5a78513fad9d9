package sessions

import (
	"context"
	"time"

	"github.com/gogotex/siteauth/internal/tokens"
	"github.com/gogotex/siteauth/pkg/logger"
)

// Outcome tells the cookie layer what Commit did.
type Outcome int

const (
	Untouched Outcome = iota // nothing persisted, cookie left alone
	Saved                    // record written, cookie must be (re)issued
	Destroyed                // record removed, cookie must be cleared
)

// Service wraps repository operations with cookie signing and lifetime rules
type Service struct {
	repo   Repository
	secret string
	maxAge time.Duration
	now    func() time.Time
}

func NewService(r Repository, secret string, maxAge time.Duration) *Service {
	return &Service{repo: r, secret: secret, maxAge: maxAge, now: time.Now}
}

// Repository exposes the backing store, e.g. for readiness checks.
func (s *Service) Repository() Repository { return s.repo }

// Fresh returns a new anonymous session. It is not stored until modified.
func (s *Service) Fresh() (*Handle, error) {
	id, err := tokens.RandomToken(32)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	sess := &Session{ID: id, CreatedAt: now, ExpiresAt: now.Add(s.maxAge)}
	return &Handle{sess: sess, isNew: true}, nil
}

// Resolve returns the session referenced by a cookie value. Absent, forged,
// expired or unknown cookies yield a fresh anonymous session; only store
// failures are reported as errors.
func (s *Service) Resolve(ctx context.Context, cookie string) (*Handle, error) {
	if cookie == "" {
		return s.Fresh()
	}
	id, err := tokens.ParseSessionID(s.secret, cookie)
	if err != nil {
		logger.Debugf("sessions: ignoring cookie: %v", err)
		return s.Fresh()
	}
	sess, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess == nil || sess.Expired(s.now().UTC()) {
		return s.Fresh()
	}
	return &Handle{sess: sess}, nil
}

// Commit persists the changes recorded on h.
func (s *Service) Commit(ctx context.Context, h *Handle) (Outcome, error) {
	switch {
	case h.destroyed:
		if h.isNew {
			// never stored, nothing to remove
			return Destroyed, nil
		}
		if err := s.repo.Destroy(ctx, h.sess.ID); err != nil {
			return Untouched, err
		}
		return Destroyed, nil
	case h.modified:
		if err := s.repo.Set(ctx, h.sess.clone()); err != nil {
			return Untouched, err
		}
		return Saved, nil
	default:
		return Untouched, nil
	}
}

// CookieValue signs the session id for the Set-Cookie header and returns
// the remaining lifetime for Max-Age.
func (s *Service) CookieValue(h *Handle) (string, time.Duration, error) {
	v, err := tokens.SignSessionID(s.secret, h.sess.ID, h.sess.ExpiresAt)
	if err != nil {
		return "", 0, err
	}
	return v, h.sess.ExpiresAt.Sub(s.now().UTC()), nil
}
