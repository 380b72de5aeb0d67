package session

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ulogscraper-go/core/event"
	"ulogscraper-go/infrastructure/browser"
	"ulogscraper-go/infrastructure/httpfetch"
)

func TestExtractLogLinks(t *testing.T) {
	body := []byte(`<html><body>
		<a href="/files/a.log">a</a>
		<a href="b.log?token=1">b</a>
		<a href="https://cdn.example.com/c.log">c</a>
		<a href="/files/a.log">a again</a>
		<a href="/files/readme.txt">not a log</a>
		<a>no href</a>
	</body></html>`)

	links, err := ExtractLogLinks(body, "https://suite.example.com/logs/")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://suite.example.com/files/a.log",
		"https://suite.example.com/logs/b.log?token=1",
		"https://cdn.example.com/c.log",
	}, links)
}

func TestExtractLogLinks_None(t *testing.T) {
	links, err := ExtractLogLinks([]byte(`<p>nothing here</p>`), "https://suite.example.com/logs")
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestFileNameFor(t *testing.T) {
	tests := map[string]string{
		"https://h/files/flight-01.log":         "flight-01.log",
		"https://h/files/flight-02.log?sig=abc": "flight-02.log",
		"https://h/a/b/c.ulg.log#frag":          "c.ulg.log",
		"https://h/":                            "",
		"https://h":                             "",
	}
	for in, want := range tests {
		assert.Equal(t, want, FileNameFor(in), in)
	}
}

// logServer serves a logs page listing the given files and the files themselves.
// Requests without the session cookie are rejected.
func logServer(t *testing.T, files map[string]string, listing string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/logs", func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("session"); err != nil || c.Value != "abc" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, listing)
	})
	mux.HandleFunc("/files/", func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie("session"); err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		body, ok := files[filepath.Base(r.URL.Path)]
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, body)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func retrievalSession(t *testing.T, baseURL, logDir string, bus *recordingBus) *Session {
	t.Helper()
	d := newFakeDriver()
	d.cookies = []browser.Cookie{{Name: "session", Value: "abc"}}
	s := New(&Config{
		ID:       "fetch",
		Driver:   d,
		EventBus: bus,
		BaseURL:  baseURL,
		LogDir:   logDir,
		Timings:  Timings{PageTimeout: 100 * time.Millisecond},
	})
	require.NoError(t, s.Start(context.Background()))
	return s
}

func TestRetriever_FetchLogs(t *testing.T) {
	files := map[string]string{
		"one.log": "first flight log",
		"two.log": "second\x00binary\xffbody",
	}
	listing := `<a href="/files/one.log">one</a>
		<a href="/files/two.log?x=1">two</a>
		<a href="/files/one.log">dup</a>`
	srv := logServer(t, files, listing)

	dir := t.TempDir()
	bus := &recordingBus{}
	s := retrievalSession(t, srv.URL, dir, bus)

	r := NewRetriever(s, httpfetch.NewClient(httpfetch.ClientConfig{}), nil)
	saved, err := r.FetchLogs(context.Background())
	require.NoError(t, err)
	require.Len(t, saved, 2)

	assert.Equal(t, "one.log", saved[0].Filename)
	assert.Equal(t, filepath.Join(dir, DownloadDir, "one.log"), saved[0].Path)
	assert.Equal(t, srv.URL+"/files/one.log", saved[0].URL)
	assert.Equal(t, int64(len(files["one.log"])), saved[0].SizeBytes)

	assert.Equal(t, "two.log", saved[1].Filename)
	assert.Equal(t, int64(len(files["two.log"])), saved[1].SizeBytes)

	data, err := os.ReadFile(saved[1].Path)
	require.NoError(t, err)
	assert.Equal(t, files["two.log"], string(data))

	assert.Equal(t, 2, bus.count("LogSaved"))
	for _, e := range bus.events {
		if ls, ok := e.(*event.LogSaved); ok {
			assert.Positive(t, ls.SizeBytes)
		}
	}
}

func TestRetriever_NoLinks(t *testing.T) {
	srv := logServer(t, nil, `<p>No logs yet</p>`)
	s := retrievalSession(t, srv.URL, t.TempDir(), &recordingBus{})

	saved, err := NewRetriever(s, httpfetch.NewClient(httpfetch.ClientConfig{}), nil).FetchLogs(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, saved)
	assert.Empty(t, saved)
}

func TestRetriever_SkipsFailedDownload(t *testing.T) {
	files := map[string]string{"ok.log": "data"}
	listing := `<a href="/files/missing.log">x</a><a href="/files/ok.log">y</a>`
	srv := logServer(t, files, listing)
	s := retrievalSession(t, srv.URL, t.TempDir(), &recordingBus{})

	saved, err := NewRetriever(s, httpfetch.NewClient(httpfetch.ClientConfig{}), nil).FetchLogs(context.Background())
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, "ok.log", saved[0].Filename)
}

func TestRetriever_PageFetchFails(t *testing.T) {
	srv := logServer(t, nil, "")
	s := retrievalSession(t, srv.URL, t.TempDir(), &recordingBus{})
	s.driver.(*fakeDriver).cookies = nil

	_, err := NewRetriever(s, httpfetch.NewClient(httpfetch.ClientConfig{}), nil).FetchLogs(context.Background())
	require.Error(t, err)

	var fe *httpfetch.Error
	assert.ErrorAs(t, err, &fe)
}

func TestRetriever_OffSiteLinkRejected(t *testing.T) {
	listing := `<a href="https://elsewhere.example.org/evil.log">x</a>`
	srv := logServer(t, nil, listing)
	s := retrievalSession(t, srv.URL, t.TempDir(), &recordingBus{})

	client := httpfetch.NewClient(httpfetch.ClientConfig{AllowedHosts: []string{"127.0.0.1"}})
	saved, err := NewRetriever(s, client, nil).FetchLogs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, saved)
}

func TestRetriever_TruncatedDownloadLeavesNoFile(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/logs", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<a href="/files/cut.log">cut</a><a href="/files/big.log">big</a>`)
	})
	mux.HandleFunc("/files/cut.log", func(w http.ResponseWriter, r *http.Request) {
		// Announce more bytes than are sent so the body read fails.
		w.Header().Set("Content-Length", "1000")
		fmt.Fprint(w, "partial")
	})
	big := strings.Repeat("0123456789abcdef", 1<<16)
	mux.HandleFunc("/files/big.log", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, big)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	s := retrievalSession(t, srv.URL, dir, &recordingBus{})

	saved, err := NewRetriever(s, httpfetch.NewClient(httpfetch.ClientConfig{}), nil).FetchLogs(context.Background())
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, "big.log", saved[0].Filename)
	assert.Equal(t, int64(len(big)), saved[0].SizeBytes)

	entries, err := os.ReadDir(filepath.Join(dir, DownloadDir))
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"big.log"}, names)
}
