package site

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gogotex/siteauth/pkg/logger"
)

// IndexName is served for paths that match no file so the front-end router
// can take over.
const IndexName = "index.html"

// Static serves GET/HEAD requests from src with range and conditional-request
// support. Unknown paths fall back to the site's index page.
func Static(src Source) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			c.Header("Allow", "GET, HEAD")
			c.AbortWithStatus(http.StatusMethodNotAllowed)
			return
		}
		ctx := c.Request.Context()
		asset, err := src.Open(ctx, c.Request.URL.Path)
		if errors.Is(err, ErrNotFound) {
			asset, err = src.Open(ctx, IndexName)
		}
		if errors.Is(err, ErrNotFound) {
			c.String(http.StatusNotFound, "not found")
			return
		}
		if err != nil {
			logger.Errorf("static: open %s: %v", c.Request.URL.Path, err)
			c.String(http.StatusInternalServerError, "internal error")
			return
		}
		defer asset.Body.Close()
		http.ServeContent(c.Writer, c.Request, asset.Name, asset.ModTime, asset.Body)
	}
}
