package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the server.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg gin.IRoutes) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(swaggerHTML))
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>siteauth - Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "siteauth", "version": "v0.1.0" },
  "components": {
    "schemas": {
      "User": {
        "type": "object",
        "properties": {
          "sub": {"type":"string"},
          "name": {"type":"string"},
          "email": {"type":"string"},
          "email_verified": {"type":"boolean"},
          "picture": {"type":"string"},
          "hd": {"type":"string","nullable":true}
        }
      }
    }
  },
  "paths": {
    "/auth/login": {
      "get": { "summary": "Start Google sign-in", "responses": { "302": { "description": "redirect to the Google consent screen" } } }
    },
    "/auth/callback": {
      "get": {
        "summary": "OAuth redirect target",
        "parameters": [
          {"name":"code","in":"query","schema":{"type":"string"}},
          {"name":"state","in":"query","schema":{"type":"string"}},
          {"name":"error","in":"query","schema":{"type":"string"}}
        ],
        "responses": { "302": { "description": "redirect to / on success, /?error=<reason> otherwise (provider error, missing_code, auth_failed)" } }
      }
    },
    "/auth/logout": {
      "get": { "summary": "Destroy the session", "responses": { "302": { "description": "redirect to /" } } }
    },
    "/auth/user": {
      "get": { "summary": "Signed-in identity", "responses": {
        "200": { "description": "claims", "content": { "application/json": { "schema": {"$ref":"#/components/schemas/User"} } } },
        "401": { "description": "not signed in, body is null" } } }
    },
    "/site-config.js": { "get": { "summary": "Site metadata as an ES module", "responses": { "200": { "description": "javascript" } } } },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "text exposition" } } } }
  }
}`
