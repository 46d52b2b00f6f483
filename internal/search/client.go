package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
)

// Defaults sent with every query unless the caller overrides them.
const (
	DefaultQueryType      = "hybrid"
	DefaultLimit          = 10
	DefaultScoreThreshold = 0.7
)

// Request is the query forwarded to the search backend.
type Request struct {
	Query          string         `json:"query"`
	UserID         string         `json:"user_id"`
	GroupID        string         `json:"group_id,omitempty"`
	QueryType      string         `json:"query_type"`
	Filters        map[string]any `json:"filters,omitempty"`
	Limit          int            `json:"limit"`
	ScoreThreshold float64        `json:"score_threshold"`
	Rerank         bool           `json:"rerank"`
	EnableFusion   bool           `json:"enable_fusion"`
}

// Source is one retrieved passage backing an answer.
type Source struct {
	DocumentID string  `json:"document_id,omitempty"`
	Title      string  `json:"title,omitempty"`
	Content    string  `json:"content,omitempty"`
	Score      float64 `json:"score,omitempty"`
	Page       int     `json:"page,omitempty"`
}

// Response is the search backend's answer.
type Response struct {
	Answer         string         `json:"answer"`
	Sources        []Source       `json:"sources,omitempty"`
	SearchMetadata map[string]any `json:"search_metadata,omitempty"`
	ContextInfo    map[string]any `json:"context_info,omitempty"`
}

// Client talks to the external search backend over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a search client. A nil httpClient gets a 30 second
// timeout default; queries run a retrieval pipeline and can be slow.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Search runs a query scoped to the given user. Zero-valued tuning fields
// get the defaults before the request goes out.
func (c *Client) Search(ctx context.Context, req Request) (*Response, error) {
	if req.QueryType == "" {
		req.QueryType = DefaultQueryType
	}
	if req.Limit == 0 {
		req.Limit = DefaultLimit
	}
	if req.ScoreThreshold == 0 {
		req.ScoreThreshold = DefaultScoreThreshold
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to encode search request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search-advanced", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to build search request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "search backend unreachable")
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "failed to read search response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New(
			fmt.Sprintf("search backend returned status %d", resp.StatusCode),
			errors.CategoryOperation,
		).WithMetadata(map[string]any{
			"status": resp.StatusCode,
		})
	}

	var out Response
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "invalid search response")
	}

	return &out, nil
}

// Health probes the backend's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to build health request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "search backend unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.New(
			fmt.Sprintf("search backend unhealthy: status %d", resp.StatusCode),
			errors.CategoryOperation,
		)
	}

	return nil
}
