package site

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSite(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"index.html":       "<h1>home</h1>",
		"tos.html":         "<h1>terms</h1>",
		"guide/index.html": "<h1>guide</h1>",
		"_app/main.js":     "console.log('app')",
	}
	for name, body := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
	return root
}

func TestCandidates(t *testing.T) {
	assert.Equal(t, []string{"index.html"}, Candidates("/"))
	assert.Equal(t, []string{"index.html"}, Candidates(""))
	assert.Equal(t, []string{"_app/main.js"}, Candidates("/_app/main.js"))
	assert.Equal(t, []string{"tos", "tos.html", "tos/index.html"}, Candidates("/tos"))
	assert.Equal(t, []string{"guide/index.html"}, Candidates("/guide/"))
	// traversal is cleaned away
	assert.Equal(t, []string{"etc/passwd", "etc/passwd.html", "etc/passwd/index.html"}, Candidates("/../../etc/passwd"))
}

func TestDirSource_Open(t *testing.T) {
	src := DirSource{Root: writeSite(t)}
	ctx := context.Background()

	a, err := src.Open(ctx, "/tos")
	require.NoError(t, err)
	b, _ := io.ReadAll(a.Body)
	_ = a.Body.Close()
	assert.Equal(t, "tos.html", a.Name)
	assert.Equal(t, "<h1>terms</h1>", string(b))

	a, err = src.Open(ctx, "/guide")
	require.NoError(t, err)
	_ = a.Body.Close()
	assert.Equal(t, "guide/index.html", a.Name)

	_, err = src.Open(ctx, "/missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStatic_ServesFilesAndFallsBack(t *testing.T) {
	g := gin.New()
	g.NoRoute(Static(DirSource{Root: writeSite(t)}))

	cases := []struct {
		path, body, ctype string
	}{
		{"/", "<h1>home</h1>", "text/html"},
		{"/tos", "<h1>terms</h1>", "text/html"},
		{"/_app/main.js", "console.log('app')", "javascript"},
		{"/profile", "<h1>home</h1>", "text/html"}, // client-side route
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		g.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tc.path, nil))
		require.Equal(t, http.StatusOK, w.Code, tc.path)
		assert.Equal(t, tc.body, w.Body.String(), tc.path)
		assert.Contains(t, w.Header().Get("Content-Type"), tc.ctype, tc.path)
	}

	w := httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/tos", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestStatic_FileUsedAsDirectoryFallsBack(t *testing.T) {
	g := gin.New()
	g.NoRoute(Static(DirSource{Root: writeSite(t)}))

	w := httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tos.html/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "<h1>home</h1>", w.Body.String())

	_, err := DirSource{Root: writeSite(t)}.Open(context.Background(), "/tos.html/extra")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStatic_NoIndex(t *testing.T) {
	g := gin.New()
	g.NoRoute(Static(DirSource{Root: t.TempDir()}))
	w := httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/anything", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// proxyFront serves DevProxy(target) on a real listener; the reverse proxy
// needs a connection-backed writer for close notification and hijacking.
func proxyFront(t *testing.T, target string) *httptest.Server {
	t.Helper()
	h, err := DevProxy(target)
	require.NoError(t, err)
	g := gin.New()
	g.NoRoute(h)
	front := httptest.NewServer(g)
	t.Cleanup(front.Close)
	return front
}

func TestDevProxy_ForwardsWithTargetHost(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Upstream-Host", r.Host)
		_, _ = io.WriteString(w, "dev:"+r.URL.Path+"?"+r.URL.RawQuery)
	}))
	defer upstream.Close()

	front := proxyFront(t, upstream.URL)
	resp, err := http.Get(front.URL + "/profile?x=1")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "dev:/profile?x=1", string(body))
	assert.Equal(t, upstream.Listener.Addr().String(), resp.Header.Get("X-Upstream-Host"))
}

func TestDevProxy_UpgradesConnection(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
			http.Error(w, "upgrade required", http.StatusUpgradeRequired)
			return
		}
		conn, rw, err := w.(http.Hijacker).Hijack()
		if err != nil {
			return
		}
		defer conn.Close()
		_, _ = rw.WriteString("HTTP/1.1 101 Switching Protocols\r\nUpgrade: websocket\r\nConnection: Upgrade\r\n\r\n")
		_ = rw.Flush()
		// echo one line back over the upgraded stream
		line, err := rw.ReadString('\n')
		if err != nil {
			return
		}
		_, _ = rw.WriteString("echo:" + line)
		_ = rw.Flush()
	}))
	defer upstream.Close()

	front := proxyFront(t, upstream.URL)
	conn, err := net.Dial("tcp", front.Listener.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

	_, err = io.WriteString(conn, "GET /_hmr HTTP/1.1\r\nHost: docs.example.com\r\nConnection: Upgrade\r\nUpgrade: websocket\r\n\r\n")
	require.NoError(t, err)

	br := bufio.NewReader(conn)
	resp, err := http.ReadResponse(br, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	assert.Equal(t, "websocket", strings.ToLower(resp.Header.Get("Upgrade")))

	_, err = io.WriteString(conn, "ping\n")
	require.NoError(t, err)
	line, err := br.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "echo:ping\n", line)
}

func TestDevProxy_UpstreamDown(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	addr := upstream.URL
	upstream.Close()

	front := proxyFront(t, addr)
	resp, err := http.Get(front.URL + "/")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestDevProxy_InvalidTarget(t *testing.T) {
	_, err := DevProxy("localhost")
	assert.Error(t, err)
}
