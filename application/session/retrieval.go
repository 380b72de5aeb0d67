package session

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"ulogscraper-go/core/event"
	"ulogscraper-go/domain/run"
	"ulogscraper-go/infrastructure/httpfetch"
)

// LogsPath is the log listing page of the dashboard.
const LogsPath = "/logs"

// DownloadDir is the subdirectory of the log directory downloads are written to.
const DownloadDir = "downloaded"

// logLinkSelector matches anchors pointing at log files.
const logLinkSelector = `a[href*=".log"]`

// Fetcher performs cookie-authenticated GET requests. Download streams the
// body into w instead of returning it.
type Fetcher interface {
	Get(ctx context.Context, rawURL string, cookies map[string]string) (*httpfetch.Response, error)
	Download(ctx context.Context, rawURL string, cookies map[string]string, w io.Writer) (*httpfetch.Response, error)
}

// Retriever downloads the log files listed on the logs page over HTTP,
// reusing the cookies of the authenticated browser session.
type Retriever struct {
	session *Session
	fetcher Fetcher
	limiter *rate.Limiter
	dir     string
}

// NewRetriever creates a retriever writing into <log dir>/downloaded.
// A nil limiter does not pace downloads.
func NewRetriever(s *Session, fetcher Fetcher, limiter *rate.Limiter) *Retriever {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &Retriever{
		session: s,
		fetcher: fetcher,
		limiter: limiter,
		dir:     filepath.Join(s.logDir, DownloadDir),
	}
}

// Dir returns the directory files are written to.
func (r *Retriever) Dir() string {
	return r.dir
}

// FetchLogs opens the logs page in the browser, fetches the same page over
// HTTP and downloads every distinct .log link found on it. A page without
// links yields an empty result. A link that fails to download is logged and
// skipped.
func (r *Retriever) FetchLogs(ctx context.Context) ([]run.SavedFile, error) {
	s := r.session
	ctrl := s.browserCtrl

	cookies, err := s.CookieMap(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Collected session cookies", "count", len(cookies))

	if began := s.beginNavigation(); began {
		defer s.endNavigation()
	}

	if err := ctrl.Navigate(ctx, s.URL(LogsPath)); err != nil {
		return nil, fmt.Errorf("open logs page: %w", err)
	}
	if err := ctrl.WaitReady(ctx, s.timings.PageTimeout); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Warn("Logs page did not report ready", "error", err)
	}
	if err := ctrl.Settle(ctx, s.timings.Logs); err != nil {
		return nil, err
	}
	s.Screenshot(ctx, "logs_page")

	pageURL, err := ctrl.CurrentURL(ctx)
	if err != nil || pageURL == "" {
		pageURL = s.URL(LogsPath)
	}
	s.logger.Info("Fetching logs page", "url", pageURL)

	page, err := r.fetcher.Get(ctx, pageURL, cookies)
	if err != nil {
		return nil, fmt.Errorf("fetch logs page: %w", err)
	}

	links, err := ExtractLogLinks(page.Body, page.URL)
	if err != nil {
		return nil, err
	}
	if len(links) == 0 {
		s.logger.Warn("No log links found on logs page", "url", page.URL)
		return []run.SavedFile{}, nil
	}
	s.logger.Info("Found log files", "count", len(links))

	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create download directory: %w", err)
	}

	saved := make([]run.SavedFile, 0, len(links))
	for _, link := range links {
		if err := r.limiter.Wait(ctx); err != nil {
			return saved, err
		}

		file, err := r.download(ctx, link, cookies)
		if err != nil {
			if ctx.Err() != nil {
				return saved, ctx.Err()
			}
			s.logger.Error("Failed to download log file", "url", link, "error", err)
			continue
		}

		saved = append(saved, *file)
		s.publishEvent(event.NewLogSaved(s.id, file.Filename, file.Path, file.URL, file.SizeBytes))
		s.logger.Info("Saved log file", "filename", file.Filename, "size", file.SizeBytes)
	}

	return saved, nil
}

// download streams link into a temporary file in the download directory and
// renames it once complete, so a failed transfer never leaves a partial file
// under the final name.
func (r *Retriever) download(ctx context.Context, link string, cookies map[string]string) (*run.SavedFile, error) {
	tmp, err := os.CreateTemp(r.dir, ".part-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary file: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	resp, err := r.fetcher.Download(ctx, link, cookies, tmp)
	if err != nil {
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", tmp.Name(), err)
	}

	name := FileNameFor(resp.URL)
	if name == "" {
		name = FileNameFor(link)
	}
	if name == "" {
		return nil, fmt.Errorf("no file name in URL %s", link)
	}

	dest := filepath.Join(r.dir, name)
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", dest, err)
	}
	committed = true

	return &run.SavedFile{
		Filename:  name,
		Path:      dest,
		URL:       link,
		SizeBytes: resp.Size,
	}, nil
}

// ExtractLogLinks returns the distinct absolute URLs of the anchors in body
// whose href contains ".log", in document order. Relative hrefs are resolved
// against pageURL.
func ExtractLogLinks(body []byte, pageURL string) ([]string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page URL %s: %w", pageURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse logs page: %w", err)
	}

	seen := make(map[string]bool)
	var links []string
	doc.Find(logLinkSelector).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		href = strings.TrimSpace(href)
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref).String()
		if seen[abs] {
			return
		}
		seen[abs] = true
		links = append(links, abs)
	})
	return links, nil
}

// FileNameFor returns the last path segment of rawURL, ignoring any query
// string, or "" when the URL has none.
func FileNameFor(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	name := path.Base(u.Path)
	switch name {
	case ".", "/", "..":
		return ""
	}
	return name
}
