package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gogotex/siteauth/internal/sessions"
	"github.com/gogotex/siteauth/pkg/logger"
	"github.com/gogotex/siteauth/pkg/metrics"
)

const sessionKey = "session"

// SessionOptions are the cookie attributes of the session cookie. HttpOnly
// and SameSite=Lax are always set.
type SessionOptions struct {
	CookieName string
	Secure     bool
}

// CurrentSession returns the session attached by Sessions, or nil when the
// route is not behind the middleware.
func CurrentSession(c *gin.Context) *sessions.Handle {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	h, _ := v.(*sessions.Handle)
	return h
}

// Sessions resolves the request's session from its cookie and commits any
// change before the response headers are written, (re)issuing or clearing
// the cookie as needed.
func Sessions(svc *sessions.Service, opts SessionOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		raw, _ := c.Cookie(opts.CookieName)
		h, err := svc.Resolve(ctx, raw)
		if err != nil {
			logger.Warnf("session load failed, continuing anonymous: %v", err)
			metrics.SessionStoreErrors.WithLabelValues("get").Inc()
			if h, err = svc.Fresh(); err != nil {
				logger.Errorf("session create failed: %v", err)
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
		}
		c.Set(sessionKey, h)

		sw := &sessionWriter{ResponseWriter: c.Writer}
		sw.commit = func() { commitSession(c, sw.ResponseWriter, svc, h, opts) }
		c.Writer = sw
		c.Next()
		sw.commitOnce()
		c.Writer = sw.ResponseWriter
	}
}

func commitSession(c *gin.Context, w gin.ResponseWriter, svc *sessions.Service, h *sessions.Handle, opts SessionOptions) {
	out, err := svc.Commit(c.Request.Context(), h)
	if err != nil {
		logger.Errorf("session commit failed (id=%s…): %v", shortID(h.ID()), err)
		metrics.SessionStoreErrors.WithLabelValues("commit").Inc()
		return
	}
	switch out {
	case sessions.Saved:
		value, ttl, err := svc.CookieValue(h)
		if err != nil {
			logger.Errorf("session cookie signing failed: %v", err)
			return
		}
		if h.IsNew() {
			metrics.SessionsCreated.Inc()
		}
		http.SetCookie(w, sessionCookie(opts, value, ttl))
	case sessions.Destroyed:
		ck := sessionCookie(opts, "", 0)
		ck.MaxAge = -1
		ck.Expires = time.Unix(0, 0)
		http.SetCookie(w, ck)
	}
}

func sessionCookie(opts SessionOptions, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     opts.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		Expires:  time.Now().Add(ttl),
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// sessionWriter commits the session the first time the handler touches the
// response, while headers can still be added.
type sessionWriter struct {
	gin.ResponseWriter
	once   sync.Once
	commit func()
}

func (w *sessionWriter) commitOnce() { w.once.Do(w.commit) }

func (w *sessionWriter) WriteHeader(code int) {
	w.commitOnce()
	w.ResponseWriter.WriteHeader(code)
}

func (w *sessionWriter) WriteHeaderNow() {
	w.commitOnce()
	w.ResponseWriter.WriteHeaderNow()
}

func (w *sessionWriter) Write(b []byte) (int, error) {
	w.commitOnce()
	return w.ResponseWriter.Write(b)
}

func (w *sessionWriter) WriteString(s string) (int, error) {
	w.commitOnce()
	return w.ResponseWriter.WriteString(s)
}

func (w *sessionWriter) Flush() {
	w.commitOnce()
	w.ResponseWriter.Flush()
}
