package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gogotex/siteauth/internal/config"
)

// RegisterSiteConfig serves /site-config.js, an ES module the site imports
// for its page metadata and the contact details on the legal pages.
func RegisterSiteConfig(r gin.IRoutes, sc config.SiteConfig) {
	body := siteConfigModule(sc)
	r.GET("/site-config.js", func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Data(http.StatusOK, "application/javascript; charset=utf-8", body)
	})
}

func siteConfigModule(sc config.SiteConfig) []byte {
	pages := sc.Pages
	if pages == nil {
		pages = config.DefaultPages
	}
	exports := []struct {
		name  string
		value interface{}
	}{
		{"SITE_TITLE", sc.Title},
		{"SITE_FOOTER", sc.Footer},
		{"PAGES", pages},
		{"PRIVACY_EMAIL", sc.PrivacyEmail},
		{"SUPPORT_EMAIL", sc.SupportEmail},
		{"BUSINESS_ADDRESS", sc.BusinessAddress},
		{"BUSINESS_CITY", sc.BusinessCity},
		{"BUSINESS_COUNTRY", sc.BusinessCountry},
		{"BUSINESS_NAME", sc.BusinessName},
	}
	var b strings.Builder
	names := make([]string, 0, len(exports))
	for _, e := range exports {
		// json.Marshal escapes <, > and & so the values are safe inline
		v, err := json.Marshal(e.value)
		if err != nil {
			v = []byte("null")
		}
		fmt.Fprintf(&b, "const %s = %s;\n", e.name, v)
		names = append(names, e.name)
	}
	fmt.Fprintf(&b, "\nexport {\n    %s\n};\n", strings.Join(names, ",\n    "))
	return []byte(b.String())
}
