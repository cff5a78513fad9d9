package sessions

import "github.com/gogotex/siteauth/internal/models"

// Handle is the mutable view of a session for the lifetime of one request.
// It records what changed so the middleware knows whether to persist,
// destroy or leave the record alone. Not safe for concurrent use.
type Handle struct {
	sess      *Session
	isNew     bool
	modified  bool
	destroyed bool
}

func (h *Handle) ID() string { return h.sess.ID }

// IsNew reports whether the session was created for this request.
func (h *Handle) IsNew() bool { return h.isNew }

// User returns a copy of the identity claims, or nil for anonymous sessions.
func (h *Handle) User() *models.User {
	if h.destroyed {
		return nil
	}
	return h.sess.User.Clone()
}

// SetUser marks the session as authenticated.
func (h *Handle) SetUser(u *models.User) {
	if h.destroyed {
		return
	}
	h.sess.User = u.Clone()
	h.modified = true
}

// SetState remembers the OAuth state issued by the login redirect.
func (h *Handle) SetState(state string) {
	if h.destroyed {
		return
	}
	h.sess.State = state
	h.modified = true
}

// TakeState returns the pending OAuth state and clears it, so each state
// value can be redeemed once.
func (h *Handle) TakeState() string {
	st := h.sess.State
	if st != "" && !h.destroyed {
		h.sess.State = ""
		h.modified = true
	}
	return st
}

// Destroy drops the whole record, user included.
func (h *Handle) Destroy() {
	h.destroyed = true
}

func (h *Handle) Destroyed() bool { return h.destroyed }
func (h *Handle) Modified() bool  { return h.modified }
