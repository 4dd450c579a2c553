package source

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"PubmedLoader/internal/domain"
	"PubmedLoader/internal/ports"
)

const (
	userAgent     = "PubmedLoader/1.0"
	dialTimeout   = 30 * time.Second
	headerTimeout = time.Minute
	idleTimeout   = 2 * time.Minute
)

// HTTPSource reads archives from a web server exposing directory index pages, such as the
// NCBI mirror at https://ftp.ncbi.nlm.nih.gov/pubmed.
type HTTPSource struct {
	client *http.Client
	base   *url.URL
}

var _ ports.FileSource = (*HTTPSource)(nil)

// NewHTTPSource wires an HTTP client. The default client has no overall timeout since
// archives can take minutes to download; a stalled transfer is cut by idleTimeout instead.
func NewHTTPSource(baseURL string, client *http.Client) (*HTTPSource, error) {
	base, err := url.Parse(strings.TrimSuffix(baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("parse corpus url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("corpus url %s must be http or https", baseURL)
	}
	if client == nil {
		client = newDownloadClient(headerTimeout, idleTimeout)
	}
	return &HTTPSource{client: client, base: base}, nil
}

// List scrapes the class index page for archive links.
func (s *HTTPSource) List(ctx context.Context, class domain.FileClass) ([]string, error) {
	indexURL := s.base.JoinPath(string(class)).String() + "/"

	doc, err := s.fetchDocument(ctx, indexURL)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", class, err)
	}

	seen := map[string]struct{}{}
	names := make([]string, 0)
	doc.Find(`a[href$="xml.gz"]`).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		name := path.Base(ref.Path)
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		names = append(names, string(class)+"/"+name)
	})

	return names, nil
}

// Fetch downloads path relative to the base URL. The caller closes the body.
func (s *HTTPSource) Fetch(ctx context.Context, p string) (io.ReadCloser, error) {
	resp, err := s.get(ctx, s.base.JoinPath(p).String())
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", p, err)
	}
	return resp.Body, nil
}

func newDownloadClient(header, idle time.Duration) *http.Client {
	dialer := &net.Dialer{Timeout: dialTimeout, KeepAlive: 30 * time.Second}
	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				conn, err := dialer.DialContext(ctx, network, addr)
				if err != nil {
					return nil, err
				}
				return &idleConn{Conn: conn, timeout: idle}, nil
			},
			TLSHandshakeTimeout:   dialTimeout,
			ResponseHeaderTimeout: header,
			IdleConnTimeout:       90 * time.Second,
		},
	}
}

// idleConn fails a read or write that makes no progress within timeout.
type idleConn struct {
	net.Conn
	timeout time.Duration
}

func (c *idleConn) Read(p []byte) (int, error) {
	if err := c.Conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Read(p)
}

func (c *idleConn) Write(p []byte) (int, error) {
	if err := c.Conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Write(p)
}

func (s *HTTPSource) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	resp, err := s.get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse index: %w", err)
	}

	return doc, nil
}

func (s *HTTPSource) get(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", target, err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%s returned %s", target, resp.Status)
	}

	return resp, nil
}
