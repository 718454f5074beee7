// Package kiwix queries an offline encyclopedia mirror served by kiwix-serve
package kiwix

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Oxbian/NAI/pkg/wire"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client
	logger     *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(k *Client) {
		if c != nil {
			k.httpClient = c
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(k *Client) {
		if l != nil {
			k.logger = l
		}
	}
}

// NewClient targets the ZIM collection named collection on the mirror at
// baseURL.
func NewClient(baseURL, collection string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: http.DefaultClient,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search returns the titles of the articles matching query, in the order the
// mirror lists them.
func (c *Client) Search(ctx context.Context, query string) ([]string, error) {
	target := fmt.Sprintf("%s/search?books.name=%s&pattern=%s",
		c.baseURL, url.QueryEscape(c.collection), EncodeQuery(query))

	body, err := c.get(ctx, target)
	if err != nil {
		return nil, err
	}

	titles, err := ParseResults(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	c.logger.Debug("Searched mirror", zap.String("query", query), zap.Int("titles", len(titles)))
	return titles, nil
}

// Article fetches the HTML page of the article with the given title.
func (c *Client) Article(ctx context.Context, title string) (string, error) {
	target := fmt.Sprintf("%s/content/%s/A/%s",
		c.baseURL, url.PathEscape(c.collection), url.PathEscape(SanitizeTitle(title)))

	body, err := c.get(ctx, target)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (c *Client) get(ctx context.Context, target string) ([]byte, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &wire.NetworkError{URL: target, Err: err}
	}
	req.Header.Set("Accept", "text/html")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &wire.NetworkError{URL: target, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &wire.NetworkError{URL: target, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &wire.UpstreamError{URL: target, Status: resp.StatusCode}
	}

	c.logger.Debug("Fetched mirror page",
		zap.String("url", target),
		zap.Int("bytes", len(body)),
		zap.Duration("elapsed", time.Since(start)))
	return body, nil
}

// EncodeQuery percent-encodes every byte that is not an ASCII letter or digit.
func EncodeQuery(query string) string {
	var sb strings.Builder
	for i := 0; i < len(query); i++ {
		b := query[i]
		if ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z') || ('0' <= b && b <= '9') {
			sb.WriteByte(b)
			continue
		}
		fmt.Fprintf(&sb, "%%%02X", b)
	}
	return sb.String()
}

// SanitizeTitle turns a title chosen by the model into an article path: the
// markdown emphasis stars go, spaces become underscores.
func SanitizeTitle(title string) string {
	title = strings.TrimSpace(title)
	title = strings.ReplaceAll(title, "*", "")
	return strings.ReplaceAll(title, " ", "_")
}

// ParseResults collects the anchor texts of the first element whose class
// list contains "results".
func ParseResults(r io.Reader) ([]string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, &wire.ProtocolError{Reason: "unreadable search page", Err: err}
	}

	container := find(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && hasClass(n, "results")
	})
	if container == nil {
		return nil, &wire.ProtocolError{Reason: "search page has no results container"}
	}

	titles := []string{}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			titles = append(titles, strings.TrimSpace(textContent(n)))
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(container)
	return titles, nil
}

func find(n *html.Node, match func(*html.Node) bool) *html.Node {
	if match(n) {
		return n
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := find(child, match); found != nil {
			return found
		}
	}
	return nil
}

func hasClass(n *html.Node, class string) bool {
	for _, attr := range n.Attr {
		if attr.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(attr.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return sb.String()
}
