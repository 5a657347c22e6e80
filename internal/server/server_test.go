package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/torn-open/docsmith/internal/search"
)

func newSiteDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "guide"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"),
		[]byte("<html><body>home</body></html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "guide", "index.html"),
		[]byte("<html><body>guide</body></html>"), 0o644))
	return dir
}

func TestServer_ServesSiteFiles(t *testing.T) {
	srv := New(Options{SiteDir: newSiteDir(t)})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/guide/")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body strings.Builder
	_, err = bufio.NewReader(resp.Body).WriteTo(&body)
	require.NoError(t, err)
	require.Contains(t, body.String(), "guide")
}

func TestServer_GzipNegotiated(t *testing.T) {
	// gziphandler only compresses bodies above its minimum size.
	dir := t.TempDir()
	page := "<html><body>" + strings.Repeat("<p>documentation paragraph</p>\n", 100) + "</body></html>"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte(page), 0o644))

	srv := New(Options{SiteDir: dir})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/", nil)
	require.NoError(t, err)
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := http.DefaultTransport.RoundTrip(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "gzip", resp.Header.Get("Content-Encoding"))
}

func TestServer_Health(t *testing.T) {
	srv := New(Options{SiteDir: newSiteDir(t)})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "ok", body["status"])
}

func TestServer_SearchEndpoint(t *testing.T) {
	store, err := search.NewStore(":memory:")
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Rebuild(context.Background(), []search.Document{
		{Location: "/guide/", Title: "Guide", Text: "install instructions"},
	}))

	srv := New(Options{SiteDir: newSiteDir(t), SearchStore: store})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/search?q=install")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var results []search.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&results))
	require.Len(t, results, 1)
	require.Equal(t, "/guide/", results[0].Location)
}

func TestServer_SearchMissingQueryRejected(t *testing.T) {
	store, err := search.NewStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	srv := New(Options{SiteDir: newSiteDir(t), SearchStore: store})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/search")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_SearchMalformedQueryRejected(t *testing.T) {
	store, err := search.NewStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	srv := New(Options{SiteDir: newSiteDir(t), SearchStore: store})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/search?q=AND")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_SearchDisabledWithoutStore(t *testing.T) {
	srv := New(Options{SiteDir: newSiteDir(t)})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/search?q=x")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLiveReload_BroadcastReachesClient(t *testing.T) {
	hub := NewLiveReloadHub(nil)
	defer hub.Close()

	srv := New(Options{SiteDir: newSiteDir(t), LiveReload: hub})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/livereload")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.Contains(t, line, "connected")

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	hub.Broadcast("abc123")

	deadline := time.After(2 * time.Second)
	got := make(chan string, 1)
	go func() {
		for {
			l, err := reader.ReadString('\n')
			if err != nil {
				return
			}
			if strings.HasPrefix(l, "data:") {
				got <- l
				return
			}
		}
	}()
	select {
	case l := <-got:
		require.Contains(t, l, "abc123")
	case <-deadline:
		t.Fatal("broadcast not received")
	}
}

func TestLiveReload_ScriptServed(t *testing.T) {
	hub := NewLiveReloadHub(nil)
	defer hub.Close()

	srv := New(Options{SiteDir: newSiteDir(t), LiveReload: hub})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/livereload.js")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Type"), "javascript")
}
