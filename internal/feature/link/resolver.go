package link

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"

	"tg_link_relay_bot/internal/domain"
	"tg_link_relay_bot/internal/logging"
)

const (
	// DefaultTitle is used when the viewer page has no usable <title>.
	DefaultTitle = "No title found"

	userAgent    = "Mozilla/5.0 (compatible; LinkRelayBot/1.0)"
	maxPageBytes = 2 << 20
)

// ResolveError reports a non-2xx answer from the viewer page.
type ResolveError struct {
	StatusCode int
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("viewer page returned status %d", e.StatusCode)
}

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Resolver fetches the viewer page for a resource code and extracts its title
// and og:image thumbnail.
type Resolver struct {
	client   httpDoer
	template string
	logger   *logrus.Entry
}

// NewResolver constructs a Resolver. template must contain a single %s that is
// replaced by the resource code.
func NewResolver(client httpDoer, template string, logger *logrus.Entry) *Resolver {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = logging.Logger()
	}

	return &Resolver{
		client:   client,
		template: template,
		logger:   logger,
	}
}

// CanonicalURL embeds code into the viewer URL template.
func (r *Resolver) CanonicalURL(code string) string {
	return fmt.Sprintf(r.template, code)
}

// Resolve fetches the viewer page for code. A non-2xx answer yields a
// *ResolveError; network and read failures are returned wrapped. Nothing is
// retried.
func (r *Resolver) Resolve(ctx context.Context, code string) (domain.Resource, error) {
	if r == nil || r.client == nil {
		return domain.Resource{}, errors.New("resolver is not initialized")
	}
	if ctx == nil {
		return domain.Resource{}, errors.New("context is required")
	}
	if strings.TrimSpace(code) == "" {
		return domain.Resource{}, errors.New("resource code is required")
	}

	canonical := r.CanonicalURL(code)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, canonical, nil)
	if err != nil {
		return domain.Resource{}, fmt.Errorf("build viewer request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	started := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		return domain.Resource{}, fmt.Errorf("fetch viewer page: %w", err)
	}
	defer resp.Body.Close()

	fields := logging.Fields{
		"event":       "viewer_fetch",
		"code":        code,
		"http_status": resp.StatusCode,
		"duration_ms": time.Since(started).Milliseconds(),
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		r.logger.WithFields(fields).Warn("viewer page returned non-success status")
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxPageBytes))
		return domain.Resource{}, &ResolveError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return domain.Resource{}, fmt.Errorf("read viewer page: %w", err)
	}

	title, thumbnail := ParseMetadata(bytes.NewReader(body))

	fields["has_thumbnail"] = thumbnail != ""
	r.logger.WithFields(fields).Debug("resolved viewer metadata")

	return domain.Resource{
		Code:         code,
		CanonicalURL: canonical,
		Title:        title,
		ThumbnailURL: thumbnail,
	}, nil
}

// ParseMetadata extracts the first <title> text (trimmed, DefaultTitle when
// absent or blank) and the content of the first <meta property="og:image">.
func ParseMetadata(page io.Reader) (title string, thumbnail string) {
	tokenizer := html.NewTokenizer(page)
	titleSeen := false

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return finalTitle(title), thumbnail

		case html.StartTagToken, html.SelfClosingTagToken:
			tn, hasAttr := tokenizer.TagName()
			tagName := string(tn)

			if tagName == "title" && !titleSeen && tt == html.StartTagToken {
				titleSeen = true
				if tokenizer.Next() == html.TextToken {
					title = strings.TrimSpace(string(tokenizer.Text()))
				}
				continue
			}

			if tagName != "meta" || !hasAttr || thumbnail != "" {
				continue
			}

			var property, content string
			for {
				key, val, more := tokenizer.TagAttr()
				switch strings.ToLower(string(key)) {
				case "property":
					property = strings.TrimSpace(string(val))
				case "content":
					content = strings.TrimSpace(string(val))
				}
				if !more {
					break
				}
			}

			if property == "og:image" && content != "" {
				thumbnail = content
			}
		}

		if titleSeen && thumbnail != "" {
			return finalTitle(title), thumbnail
		}
	}
}

func finalTitle(title string) string {
	if title == "" {
		return DefaultTitle
	}
	return title
}
