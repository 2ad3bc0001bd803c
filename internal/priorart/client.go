package priorart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// NotAvailable is what callers see for a reference the lookup service
// could not resolve under any candidate format.
const NotAvailable = "not available"

// Reference is the bibliographic data consumed from the lookup service.
type Reference struct {
	Identifier      string `json:"identifier"`
	Title           string `json:"title"`
	Abstract        string `json:"abstract"`
	PublicationDate string `json:"publication_date"`
	Assignee        string `json:"assignee"`
}

type ClientConfig struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// Client talks to the external patent bibliography service. Auth is a
// short-lived session token exchanged for the API key; lookups run in two
// steps, a query by number that returns a query key, then a bibliography
// fetch by that key.
type Client struct {
	cfg ClientConfig

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

func NewClient(cfg ClientConfig) (*Client, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.APIKey == "" {
		return nil, errors.New("prior-art lookup API key not configured")
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("prior-art lookup base URL not configured")
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{cfg: cfg}, nil
}

type sessionResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

type queryResponse struct {
	QueryKey string `json:"query_key"`
	Hits     int    `json:"hits"`
}

type bibliographyResponse struct {
	Title           string `json:"title"`
	Abstract        string `json:"abstract"`
	PublicationDate string `json:"publication_date"`
	Assignee        string `json:"assignee"`
}

func (c *Client) sessionToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.cfg.BaseURL, "/")+"/auth/session", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("X-Api-Key", c.cfg.APIKey)
	res, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	b, _ := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status code: %d body=%s", res.StatusCode, string(b))
	}
	var session sessionResponse
	if err := json.Unmarshal(b, &session); err != nil {
		return "", err
	}
	if session.Token == "" {
		return "", errors.New("session response missing token")
	}
	ttl := time.Duration(session.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	c.token = session.Token
	c.tokenExpiry = time.Now().Add(ttl - 30*time.Second)
	return c.token, nil
}

func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

// LookupByNumber resolves one candidate format. A zero-hit query returns
// ErrNoResult so callers can move on to the next candidate.
func (c *Client) LookupByNumber(ctx context.Context, number string) (*Reference, error) {
	var query queryResponse
	queryURL := "/query?number=" + url.QueryEscape(number)
	if err := c.getJSON(ctx, queryURL, &query); err != nil {
		return nil, err
	}
	if query.Hits == 0 || query.QueryKey == "" {
		return nil, ErrNoResult
	}

	var bib bibliographyResponse
	bibURL := "/bibliography?query_key=" + url.QueryEscape(query.QueryKey)
	if err := c.getJSON(ctx, bibURL, &bib); err != nil {
		return nil, err
	}
	if strings.TrimSpace(bib.Title) == "" {
		return nil, ErrNoResult
	}
	return &Reference{
		Identifier:      number,
		Title:           strings.TrimSpace(bib.Title),
		Abstract:        strings.TrimSpace(bib.Abstract),
		PublicationDate: strings.TrimSpace(bib.PublicationDate),
		Assignee:        strings.TrimSpace(bib.Assignee),
	}, nil
}

// ErrNoResult means the service answered but had nothing for this format.
var ErrNoResult = errors.New("no result for reference format")

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	var lastErr error
	for attempt := 1; attempt <= 4; attempt++ {
		code, retryAfter, err := c.getOnce(ctx, path, out)
		if err == nil {
			return nil
		}
		lastErr = err

		switch {
		case code == http.StatusUnauthorized:
			// Stale session token; refresh once per call.
			c.invalidateToken()
			if attempt >= 2 {
				return err
			}
			continue
		case code == http.StatusBadRequest || code == http.StatusNotFound:
			return ErrNoResult
		case code == http.StatusTooManyRequests:
			if attempt == 4 {
				return lastErr
			}
			sleep := retryAfter
			if sleep <= 0 {
				sleep = backoffDelay(attempt)
			}
			if err := sleepCtx(ctx, sleep); err != nil {
				return err
			}
		case code >= 500 || code == 0:
			if attempt == 4 {
				return lastErr
			}
			if err := sleepCtx(ctx, backoffDelay(attempt)); err != nil {
				return err
			}
		default:
			return err
		}
	}
	return lastErr
}

func (c *Client) getOnce(ctx context.Context, path string, out any) (int, time.Duration, error) {
	token, err := c.sessionToken(ctx)
	if err != nil {
		return 0, 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(c.cfg.BaseURL, "/")+path, nil)
	if err != nil {
		return 0, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	res, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer res.Body.Close()
	b, _ := io.ReadAll(io.LimitReader(res.Body, 1<<20))

	retryAfter := parseRetryAfter(res.Header.Get("Retry-After"))
	if res.StatusCode != http.StatusOK {
		return res.StatusCode, retryAfter, fmt.Errorf("status code: %d body=%s", res.StatusCode, string(b))
	}
	if err := json.Unmarshal(b, out); err != nil {
		return res.StatusCode, retryAfter, err
	}
	return res.StatusCode, retryAfter, nil
}

func parseRetryAfter(v string) time.Duration {
	if strings.TrimSpace(v) == "" {
		return 0
	}
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err == nil {
		return time.Duration(secs) * time.Second
	}
	return 0
}

func backoffDelay(attempt int) time.Duration {
	switch attempt {
	case 1:
		return time.Second
	case 2:
		return 2 * time.Second
	default:
		return 4 * time.Second
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
