package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
)

// maxBodySize caps how much of a response is read
const maxBodySize = 1 << 20

// Client is an HTTP client for the session API.
// It keeps the backend's session cookie in a jar; it never sees credentials
// beyond the request that carries them.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	jar        http.CookieJar
	logger     *slog.Logger
}

// NewClient creates a new API client
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	cfg = cfg.withDefaults()

	base, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid base url %q: scheme must be http or https", cfg.BaseURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	return &Client{
		baseURL: base,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Jar:     jar,
		},
		jar:    jar,
		logger: logger,
	}, nil
}

// Cookies returns the cookies the backend has set for the base URL
func (c *Client) Cookies() []*http.Cookie {
	return c.jar.Cookies(c.baseURL)
}

// SetCookies restores previously exported cookies
func (c *Client) SetCookies(cookies []*http.Cookie) {
	c.jar.SetCookies(c.baseURL, cookies)
}

// ClearCookies drops every cookie for the base URL
func (c *Client) ClearCookies() {
	expired := make([]*http.Cookie, 0)
	for _, ck := range c.jar.Cookies(c.baseURL) {
		expired = append(expired, &http.Cookie{Name: ck.Name, Value: "", Path: "/", MaxAge: -1})
	}
	c.jar.SetCookies(c.baseURL, expired)
}

// Do performs an HTTP request and decodes the structured response into result.
// It returns the HTTP status alongside a *Failure for transport and protocol errors;
// a decoded response is returned whatever its status so callers can read the
// backend's own success flag and message.
func (c *Client) Do(ctx context.Context, method, path string, body, result any) (int, error) {
	u := c.baseURL.String() + path

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, newProtocolFailure(0, "request encoding", fmt.Errorf("failed to marshal request: %w", err))
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return 0, newNetworkFailure(fmt.Errorf("failed to create request: %w", err))
	}

	requestID := uuid.NewString()
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	logger := c.logger.With(
		slog.String("request_id", requestID),
		slog.String("method", method),
		slog.String("path", path),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Info("backend unreachable", slog.Any("error", err))
		return 0, newNetworkFailure(err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		logger.Info("failed to read response", slog.Any("error", err))
		return resp.StatusCode, newNetworkFailure(err)
	}

	if !isStructured(resp.Header.Get("Content-Type")) {
		diag := describeUnstructured(resp.Header.Get("Content-Type"), respBody)
		logger.Warn("backend returned unstructured response",
			slog.Int("status", resp.StatusCode),
			slog.String("content_type", resp.Header.Get("Content-Type")),
			slog.String("diagnostic", diag))
		return resp.StatusCode, newProtocolFailure(resp.StatusCode, diag, errors.New("response is not JSON"))
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			logger.Warn("backend returned malformed JSON",
				slog.Int("status", resp.StatusCode),
				slog.Any("error", err))
			return resp.StatusCode, newProtocolFailure(resp.StatusCode, "malformed JSON", err)
		}
	}

	logger.Debug("backend call complete", slog.Int("status", resp.StatusCode))
	return resp.StatusCode, nil
}

// Get performs a GET request
func (c *Client) Get(ctx context.Context, path string, result any) (int, error) {
	return c.Do(ctx, http.MethodGet, path, nil, result)
}

// Post performs a POST request
func (c *Client) Post(ctx context.Context, path string, body, result any) (int, error) {
	return c.Do(ctx, http.MethodPost, path, body, result)
}

// isStructured reports whether a Content-Type declares JSON
func isStructured(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// describeUnstructured summarises a non-JSON body for diagnostics.
// HTML error pages are reduced to their title or first heading.
func describeUnstructured(contentType string, body []byte) string {
	if strings.Contains(contentType, "html") || bytes.HasPrefix(bytes.TrimSpace(body), []byte("<")) {
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err == nil {
			if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
				return "html: " + title
			}
			if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" {
				return "html: " + h1
			}
		}
		return "html page"
	}

	text := strings.TrimSpace(string(body))
	if len(text) > 120 {
		text = text[:120] + "..."
	}
	if text == "" {
		return "empty body"
	}
	return text
}
