package sessions

import (
	"time"

	"github.com/gogotex/siteauth/internal/models"
)

// Session is the server-side record behind a browser's session cookie.
// User is non-nil only after a completed login.
type Session struct {
	ID        string       `bson:"_id" json:"id"`
	User      *models.User `bson:"user,omitempty" json:"user,omitempty"`
	State     string       `bson:"state,omitempty" json:"state,omitempty"` // pending OAuth state, consumed by the callback
	CreatedAt time.Time    `bson:"createdAt" json:"createdAt"`
	ExpiresAt time.Time    `bson:"expiresAt" json:"expiresAt"`
}

// Expired reports whether the fixed lifetime window has passed.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

func (s *Session) clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.User = s.User.Clone()
	return &c
}
