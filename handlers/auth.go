package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/gogotex/siteauth/internal/config"
	"github.com/gogotex/siteauth/internal/models"
	"github.com/gogotex/siteauth/internal/oidc"
	"github.com/gogotex/siteauth/internal/tokens"
	"github.com/gogotex/siteauth/internal/users"
	"github.com/gogotex/siteauth/pkg/logger"
	"github.com/gogotex/siteauth/pkg/metrics"
	"github.com/gogotex/siteauth/pkg/middleware"
)

// Error reasons carried back to the site in the ?error= query parameter.
const (
	ReasonMissingCode = "missing_code"
	ReasonAuthFailed  = "auth_failed"
)

var errStateMismatch = errors.New("oauth state missing or mismatched")

// AuthHandler holds dependencies
type AuthHandler struct {
	cfg      *config.Config
	provider oidc.Provider
	usersSvc *users.Service // optional login directory
}

func NewAuthHandler(cfg *config.Config, p oidc.Provider, u *users.Service) *AuthHandler {
	return &AuthHandler{cfg: cfg, provider: p, usersSvc: u}
}

// Register routes under /auth. The group must run middleware.Sessions.
func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	a := rg.Group("/auth")
	a.GET("/login", h.Login)
	a.GET("/callback", h.Callback)
	a.GET("/logout", h.Logout)
	a.GET("/user", h.User)
}

// Login starts the authorization-code flow.
func (h *AuthHandler) Login(c *gin.Context) {
	sess := middleware.CurrentSession(c)
	state, err := tokens.RandomToken(16)
	if err != nil {
		logger.Errorf("login: state generation failed: %v", err)
		c.Redirect(http.StatusFound, errorRedirect(ReasonAuthFailed))
		return
	}
	sess.SetState(state)
	metrics.AuthEvents.WithLabelValues("login").Inc()
	c.Redirect(http.StatusFound, h.provider.AuthCodeURL(state))
}

// Callback completes the flow: provider error, code presence, state, code
// exchange, ID token verification, then the claims land in the session.
func (h *AuthHandler) Callback(c *gin.Context) {
	sess := middleware.CurrentSession(c)
	// always consume the pending state so it cannot be replayed
	pending := sess.TakeState()

	if reason := c.Query("error"); reason != "" {
		logger.Warnf("oauth callback: provider returned error=%q description=%q", reason, c.Query("error_description"))
		metrics.AuthEvents.WithLabelValues("provider_error").Inc()
		c.Redirect(http.StatusFound, errorRedirect(reason))
		return
	}

	codes := c.QueryArray("code")
	if len(codes) != 1 || codes[0] == "" {
		logger.Warnf("oauth callback: expected one code, got %d", len(codes))
		metrics.AuthEvents.WithLabelValues(ReasonMissingCode).Inc()
		c.Redirect(http.StatusFound, errorRedirect(ReasonMissingCode))
		return
	}

	if h.cfg.OAuth.EnforceState && (pending == "" || c.Query("state") != pending) {
		h.fail(c, errStateMismatch)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.OAuth.ExchangeTimeout)
	defer cancel()
	user, err := h.authenticate(ctx, codes[0])
	if err != nil {
		h.fail(c, err)
		return
	}

	sess.SetUser(user)
	h.recordLogin(c.Request.Context(), user)
	logger.Infof("oauth callback: signed in sub=%s", user.Sub)
	metrics.AuthEvents.WithLabelValues("success").Inc()
	c.Redirect(http.StatusFound, "/")
}

func (h *AuthHandler) authenticate(ctx context.Context, code string) (*models.User, error) {
	tok, err := h.provider.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("code exchange: %w", err)
	}
	if tok.IDToken == "" {
		return nil, oidc.ErrMissingIDToken
	}
	u, err := h.provider.Verify(ctx, tok.IDToken)
	if err != nil {
		return nil, fmt.Errorf("id token verification: %w", err)
	}
	return u, nil
}

// recordLogin never fails the sign-in; the directory is informational.
func (h *AuthHandler) recordLogin(ctx context.Context, u *models.User) {
	if h.usersSvc == nil {
		return
	}
	if _, err := h.usersSvc.RecordLogin(ctx, u); err != nil {
		logger.Warnf("login directory upsert failed (sub=%s): %v", u.Sub, err)
	}
}

func (h *AuthHandler) fail(c *gin.Context, err error) {
	logger.Errorf("oauth callback failed: %v", err)
	metrics.AuthEvents.WithLabelValues(ReasonAuthFailed).Inc()
	c.Redirect(http.StatusFound, errorRedirect(ReasonAuthFailed))
}

// Logout destroys the whole session, identity included.
func (h *AuthHandler) Logout(c *gin.Context) {
	middleware.CurrentSession(c).Destroy()
	metrics.AuthEvents.WithLabelValues("logout").Inc()
	c.Redirect(http.StatusFound, "/")
}

// User returns the signed-in identity, or 401 with a JSON null body.
func (h *AuthHandler) User(c *gin.Context) {
	u := middleware.CurrentSession(c).User()
	if u == nil {
		c.JSON(http.StatusUnauthorized, nil)
		return
	}
	c.JSON(http.StatusOK, u)
}

func errorRedirect(reason string) string {
	return "/?error=" + url.QueryEscape(reason)
}
