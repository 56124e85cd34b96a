// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package zenodo is a thin client for Zenodo-compatible (InvenioRDM) record
// APIs. It issues requests against a base URL with a fixed header set,
// normalizes record and file-entry shapes, and walks paginated collections.
package zenodo

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/zenodo-sync/internal/httputil"
	"github.com/pdiddy/zenodo-sync/pkg/types"
)

// DefaultBaseURL is the public Zenodo API root.
const DefaultBaseURL = "https://zenodo.org/api"

// MediaType is sent as Accept and Content-Type on every API request.
const MediaType = "application/vnd.inveniordm.v1+json"

const defaultUserAgent = "zenodo-sync/0.1"

// Client talks to a single Zenodo-compatible API.
type Client struct {
	http      *http.Client
	baseURL   string
	token     string
	userAgent string
	pageSize  int
	log       *zap.Logger
}

// New returns a client for cfg.BaseURL. A missing or malformed base URL is a
// setup error. A missing access token only limits access to public records.
func New(httpClient *http.Client, cfg types.ZenodoConfig, log *zap.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("base URL for the Zenodo API is not defined")
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", cfg.BaseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if log == nil {
		log = zap.NewNop()
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	size := cfg.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}

	if cfg.AccessToken == "" {
		log.Warn("no access token provided; API access is limited to public records")
	}
	log.Info("zenodo client initialized",
		zap.String("base_url", base),
		zap.Bool("authenticated", cfg.AccessToken != ""))

	return &Client{
		http:      httpClient,
		baseURL:   base,
		token:     cfg.AccessToken,
		userAgent: ua,
		pageSize:  size,
		log:       log,
	}, nil
}

// BaseURL returns the normalized API root.
func (c *Client) BaseURL() string { return c.baseURL }

// Get requests path relative to the base URL and returns the JSON body.
func (c *Client) Get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, query, nil)
}

// Post sends body (may be nil) to path and returns the JSON body.
func (c *Client) Post(ctx context.Context, path string, body []byte) ([]byte, error) {
	return c.do(ctx, http.MethodPost, path, nil, body)
}

// Put sends body to path and returns the JSON body.
func (c *Client) Put(ctx context.Context, path string, body []byte) ([]byte, error) {
	return c.do(ctx, http.MethodPut, path, nil, body)
}

// Delete removes the resource at path. The response body is usually empty.
func (c *Client) Delete(ctx context.Context, path string) ([]byte, error) {
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte) ([]byte, error) {
	endpoint := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, rd)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", MediaType)
	req.Header.Set("Content-Type", MediaType)
	c.authorize(req)

	c.log.Debug("api request", zap.String("method", method), zap.String("url", endpoint))
	resp, err := httputil.Do(c.http, req)
	if err != nil {
		return nil, err
	}
	return httputil.ReadJSON(resp)
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// SearchRecords returns one page of records belonging to communityID.
func (c *Client) SearchRecords(ctx context.Context, communityID string, page, size int) ([]types.Record, error) {
	query := url.Values{
		"communities": {communityID},
		"page":        {strconv.Itoa(page)},
		"size":        {strconv.Itoa(size)},
	}
	data, err := c.Get(ctx, "records", query)
	if err != nil {
		return nil, fmt.Errorf("fetching records of community %s (page %d): %w", communityID, page, err)
	}
	return parseHits(data), nil
}

// Record fetches the full detail of a single record or version.
func (c *Client) Record(ctx context.Context, id string) (types.Record, error) {
	data, err := c.Get(ctx, recordPath(id), nil)
	if err != nil {
		return types.Record{}, fmt.Errorf("fetching record %s: %w", id, err)
	}
	if data == nil {
		return types.Record{}, fmt.Errorf("fetching record %s: empty response", id)
	}
	return parseRecord(data), nil
}

// Versions lists the version history of record id, requesting pages of the
// configured size until a short page. An empty slice means the server
// reported no versions.
func (c *Client) Versions(ctx context.Context, id string) ([]types.Version, error) {
	versions := []types.Version{}
	for page := 1; ; page++ {
		query := url.Values{
			"page": {strconv.Itoa(page)},
			"size": {strconv.Itoa(c.pageSize)},
		}
		data, err := c.Get(ctx, recordPath(id)+"/versions", query)
		if err != nil {
			return nil, fmt.Errorf("fetching versions of record %s (page %d): %w", id, page, err)
		}
		hits := parseHits(data)
		for _, r := range hits {
			versions = append(versions, r.AsVersion())
		}
		if len(hits) < c.pageSize {
			return versions, nil
		}
	}
}

// UpdateRecord replaces the record's metadata with body and returns the
// server's view of the updated record.
func (c *Client) UpdateRecord(ctx context.Context, id string, body []byte) (types.Record, error) {
	data, err := c.Put(ctx, recordPath(id), body)
	if err != nil {
		return types.Record{}, fmt.Errorf("updating record %s: %w", id, err)
	}
	c.log.Info("record updated", zap.String("record_id", id))
	return parseRecord(data), nil
}

// PublishRecord publishes a draft record.
func (c *Client) PublishRecord(ctx context.Context, id string) (types.Record, error) {
	data, err := c.Post(ctx, recordPath(id)+"/actions/publish", nil)
	if err != nil {
		return types.Record{}, fmt.Errorf("publishing record %s: %w", id, err)
	}
	c.log.Info("record published", zap.String("record_id", id))
	return parseRecord(data), nil
}

// DeleteRecord deletes a record.
func (c *Client) DeleteRecord(ctx context.Context, id string) error {
	if _, err := c.Delete(ctx, recordPath(id)); err != nil {
		return fmt.Errorf("deleting record %s: %w", id, err)
	}
	c.log.Info("record deleted", zap.String("record_id", id))
	return nil
}

// Download streams the content at rawURL into w in fixed-size chunks.
func (c *Client) Download(ctx context.Context, rawURL string, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	c.authorize(req)

	resp, err := httputil.Do(c.http, req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	n, err := httputil.CopyChunked(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("streaming %s: %w", rawURL, err)
	}
	return n, nil
}

// Ping checks that the base URL answers at all. Any HTTP response counts as
// reachable; only transport failures are reported.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	c.authorize(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("base URL %s is unreachable: %w", c.baseURL, err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return nil
}

func recordPath(id string) string {
	return "records/" + url.PathEscape(id)
}
