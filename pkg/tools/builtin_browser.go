package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-rod/rod"
	"golang.org/x/net/html"
)

// BrowserPool renders JS pages via a headless Chromium instance. Grounded
// on vanducng-goclaw's go-rod wiring; kept as a narrow interface here so
// the registry has no hard dependency on a live browser in tests.
type BrowserPool interface {
	RenderHTML(ctx context.Context, url string) (string, error)
}

// RodBrowserPool is the concrete go-rod-backed BrowserPool.
type RodBrowserPool struct {
	browser *rod.Browser
}

// NewRodBrowserPool launches (or connects to) a headless Chromium browser.
func NewRodBrowserPool() (*RodBrowserPool, error) {
	browser := rod.New()
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect headless browser: %w", err)
	}
	return &RodBrowserPool{browser: browser}, nil
}

// Close shuts down the underlying browser process.
func (p *RodBrowserPool) Close() error { return p.browser.Close() }

// RenderHTML navigates to url, waits for load, and returns the rendered DOM.
func (p *RodBrowserPool) RenderHTML(ctx context.Context, url string) (string, error) {
	page, err := p.browser.Context(ctx).Page(rod.PageInfo{})
	if err != nil {
		return "", fmt.Errorf("open page: %w", err)
	}
	defer page.Close()

	if err := page.Navigate(url); err != nil {
		return "", fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return "", fmt.Errorf("wait load %s: %w", url, err)
	}
	return page.HTML()
}

// textExtractElements are the semantic elements get_page_text_content
// extracts from, in document order — spec.md §4.1.
var textExtractElements = map[string]bool{
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"p": true, "li": true, "td": true, "th": true, "figcaption": true,
}

// extractTextContent walks the parsed HTML collecting text of the
// semantic elements, collapsing whitespace and newline-joining them.
func extractTextContent(htmlSrc string) (string, error) {
	doc, err := html.Parse(strings.NewReader(htmlSrc))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	var lines []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && textExtractElements[n.Data] {
			text := collectText(n)
			text = collapseWhitespace(text)
			if text != "" {
				lines = append(lines, text)
			}
			// Don't descend further — nested semantic elements (e.g. li > p)
			// would otherwise duplicate the same text.
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return strings.Join(lines, "\n"), nil
}

func collectText(n *html.Node) string {
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// GetPageHTMLContent is the get_page_html_content tool contract.
func GetPageHTMLContent(pool BrowserPool) Fn {
	return func(ctx context.Context, args map[string]any) (any, error) {
		url, _ := args["url"].(string)
		if url == "" {
			return nil, fmt.Errorf("url is required")
		}
		return pool.RenderHTML(ctx, url)
	}
}

// GetPageTextContent is the get_page_text_content tool contract.
func GetPageTextContent(pool BrowserPool) Fn {
	return func(ctx context.Context, args map[string]any) (any, error) {
		url, _ := args["url"].(string)
		if url == "" {
			return nil, fmt.Errorf("url is required")
		}
		raw, err := pool.RenderHTML(ctx, url)
		if err != nil {
			return nil, err
		}
		return extractTextContent(raw)
	}
}
