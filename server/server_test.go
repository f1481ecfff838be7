package server

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, liveReload bool) (*Server, *httptest.Server) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "js"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte("<html><body><h1>app</h1></body></html>"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "js", "script.js"), []byte("console.log('app')"), 0644))

	s := New(Config{Root: root, Host: "localhost", Port: 8000, LiveReload: liveReload}, log.NewLogger())
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		s.hub.close()
		ts.Close()
	})
	return s, ts
}

func get(t *testing.T, url string) (*http.Response, string) {
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, resp.Body.Close())
	}()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestServer_InjectsLiveReloadIntoHTML(t *testing.T) {
	_, ts := newTestServer(t, true)

	for _, pth := range []string{"/", "/index.html"} {
		t.Run(pth, func(t *testing.T) {
			resp, body := get(t, ts.URL+pth)

			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))
			assert.Equal(t, "<html><body><h1>app</h1>"+liveReloadScript+"</body></html>", body)
		})
	}
}

func TestServer_ServesOtherFilesUnchanged(t *testing.T) {
	_, ts := newTestServer(t, true)

	resp, body := get(t, ts.URL+"/js/script.js")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "console.log('app')", body)
}

func TestServer_WithoutLiveReload(t *testing.T) {
	_, ts := newTestServer(t, false)

	_, body := get(t, ts.URL+"/")
	assert.NotContains(t, body, LiveReloadPath)

	resp, _ := get(t, ts.URL+LiveReloadPath)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_BroadcastsReload(t *testing.T) {
	s, ts := newTestServer(t, true)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+LiveReloadPath, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, ": connected\n", line)

	s.Reload()

	var lines []string
	for len(lines) < 3 {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if strings.TrimSpace(line) == "" && len(lines) == 0 {
			continue
		}
		lines = append(lines, line)
	}
	assert.Equal(t, []string{"event: reload\n", "data: reload\n", "\n"}, lines)
}

func TestInjectLiveReload(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "before closing body", content: "<body>x</body>", want: "<body>x" + liveReloadScript + "</body>"},
		{name: "upper case body", content: "<BODY>x</BODY>", want: "<BODY>x" + liveReloadScript + "</BODY>"},
		{name: "no body", content: "<p>x</p>", want: "<p>x</p>" + liveReloadScript},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(injectLiveReload([]byte(tt.content))))
		})
	}
}

func TestServer_URL(t *testing.T) {
	s := New(Config{Host: "localhost", Port: 8000}, log.NewLogger())
	assert.Equal(t, "http://localhost:8000/", s.URL())
}
