package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"callrounded-manager/internal/config"
	"callrounded-manager/pkg/metrics"
)

const defaultTimeout = 15 * time.Second

var (
	ErrNotConfigured = errors.New("platform: client not configured")
	ErrNotFound      = errors.New("platform: not found")
)

// StatusError is a non-2xx answer from the platform.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("platform: unexpected status %d: %s", e.Code, e.Body)
}

// Provider is the voice platform surface the rest of the service uses.
type Provider interface {
	Enabled() bool
	GetAgent(ctx context.Context, id string) (*Agent, error)
	ListAgents(ctx context.Context) ([]Agent, error)
	CreateAgent(ctx context.Context, in AgentCreate) (*Agent, error)
	UpdateAgent(ctx context.Context, id string, in AgentUpdate) (*Agent, error)
	ListCalls(ctx context.Context, limit, page int) (*CallPage, error)
	GetCall(ctx context.Context, id string) (*Call, error)
	ListPhoneNumbers(ctx context.Context, limit int) ([]PhoneNumber, error)
	GetKnowledgeBase(ctx context.Context, id string) (*KnowledgeBase, error)
}

// Client talks to the voice platform REST API with an X-Api-Key header.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	agentID    string
}

func NewClient(cfg config.PlatformConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		agentID:    strings.TrimSpace(cfg.AgentID),
	}
}

func (c *Client) Enabled() bool { return c != nil && c.baseURL != "" && c.apiKey != "" }

func (c *Client) GetAgent(ctx context.Context, id string) (*Agent, error) {
	var out Agent
	if err := c.do(ctx, "get_agent", http.MethodGet, "/agents/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListAgents returns the configured agent. The platform has no list endpoint.
func (c *Client) ListAgents(ctx context.Context) ([]Agent, error) {
	if c.agentID == "" {
		return []Agent{}, nil
	}
	a, err := c.GetAgent(ctx, c.agentID)
	if errors.Is(err, ErrNotFound) {
		return []Agent{}, nil
	}
	if err != nil {
		return nil, err
	}
	return []Agent{*a}, nil
}

func (c *Client) CreateAgent(ctx context.Context, in AgentCreate) (*Agent, error) {
	if in.Language == "" {
		in.Language = "fr-FR"
	}
	var out Agent
	if err := c.do(ctx, "create_agent", http.MethodPost, "/agents", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateAgent(ctx context.Context, id string, in AgentUpdate) (*Agent, error) {
	var out Agent
	if err := c.do(ctx, "update_agent", http.MethodPatch, "/agents/"+url.PathEscape(id), nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListCalls fetches one page of calls; page is 1-based.
func (c *Client) ListCalls(ctx context.Context, limit, page int) (*CallPage, error) {
	if limit <= 0 {
		limit = 50
	}
	if page <= 0 {
		page = 1
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("page", strconv.Itoa(page))
	q.Set("use_cursor", "false")

	var out CallPage
	if err := c.do(ctx, "list_calls", http.MethodGet, "/calls", q, nil, &out); err != nil {
		return nil, err
	}
	if out.Data == nil {
		out.Data = []Call{}
	}
	return &out, nil
}

func (c *Client) GetCall(ctx context.Context, id string) (*Call, error) {
	var out Call
	if err := c.do(ctx, "get_call", http.MethodGet, "/calls/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListPhoneNumbers(ctx context.Context, limit int) ([]PhoneNumber, error) {
	if limit <= 0 {
		limit = 50
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	out := []PhoneNumber{}
	if err := c.do(ctx, "list_phone_numbers", http.MethodGet, "/phone-numbers", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetKnowledgeBase(ctx context.Context, id string) (*KnowledgeBase, error) {
	var out KnowledgeBase
	if err := c.do(ctx, "get_knowledge_base", http.MethodGet, "/knowledge-bases/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, endpoint, method, path string, q url.Values, in, out any) (err error) {
	defer func() {
		outcome := "ok"
		switch {
		case errors.Is(err, ErrNotFound):
			outcome = "not_found"
		case err != nil:
			outcome = "error"
		}
		metrics.PlatformRequestsTotal.WithLabelValues(endpoint, outcome).Inc()
	}()
	if !c.Enabled() {
		return ErrNotConfigured
	}

	var body io.Reader
	if in != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(in); err != nil {
			return fmt.Errorf("platform: encode %s: %w", endpoint, err)
		}
		body = buf
	}
	target := c.baseURL + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("platform: build %s: %w", endpoint, err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("platform: %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return fmt.Errorf("platform: read %s: %w", endpoint, err)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(unwrap(raw, out), out); err != nil {
		return fmt.Errorf("platform: decode %s: %w", endpoint, err)
	}
	return nil
}

// unwrap strips the {"data": ...} envelope unless out wants the envelope itself.
func unwrap(raw []byte, out any) []byte {
	if _, ok := out.(*CallPage); ok {
		return raw
	}
	var env map[string]json.RawMessage
	if err := json.Unmarshal(raw, &env); err != nil {
		return raw
	}
	if data, ok := env["data"]; ok {
		return data
	}
	return raw
}
