package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/markusmobius/go-trafilatura"

	"github.com/xxxsen/papergen/internal/model"
)

const (
	webUserAgent    = "papergen/1.0 (academic source collector)"
	maxWebBodyBytes = 10 << 20
)

type webExtractor struct {
	client *http.Client
}

func newWebExtractor(client *http.Client) IExtractor {
	return &webExtractor{client: client}
}

func (e *webExtractor) Kind() model.SourceKind {
	return model.SourceKindWeb
}

func (e *webExtractor) Extract(ctx context.Context, in Input) (*Result, error) {
	rawURL := strings.TrimSpace(in.URL)
	if rawURL == "" {
		return nil, fmt.Errorf("url is required")
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("only http and https urls are supported, got %q", parsed.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", webUserAgent)
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch url: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch url: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxWebBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	result, err := trafilatura.Extract(bytes.NewReader(body), trafilatura.Options{OriginalURL: parsed})
	if err != nil {
		return nil, fmt.Errorf("extract content: %w", err)
	}
	if result == nil || strings.TrimSpace(result.ContentText) == "" {
		return nil, fmt.Errorf("no readable content at %s", rawURL)
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = strings.TrimSpace(result.Metadata.Title)
	}
	if title == "" {
		title = parsed.Host
	}
	out := &Result{
		Title: title,
		Text:  strings.TrimSpace(result.ContentText),
		URL:   rawURL,
	}
	if author := strings.TrimSpace(result.Metadata.Author); author != "" {
		for _, part := range strings.Split(author, ";") {
			if part = strings.TrimSpace(part); part != "" {
				out.Authors = append(out.Authors, part)
			}
		}
	}
	if !result.Metadata.Date.IsZero() {
		out.Year = strconv.Itoa(result.Metadata.Date.Year())
	}
	return out, nil
}
