package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a lightweight REST client for the retrieval-index service.
// All requests carry the configured timeout; remote calls fail visibly
// rather than hang.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a client for the service at baseURL. apiKey may be
// empty for unauthenticated local deployments.
func NewClient(baseURL, apiKey string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid index service URL %q", baseURL)
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Ping probes the service.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/api/ping", nil, "")
	if err != nil {
		return err
	}
	defer closeBody(resp)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: ping returned %d", ErrServiceUnavailable, resp.StatusCode)
	}
	return nil
}

// GetWorkspace fetches a workspace by slug.
// Returns ErrWorkspaceNotFound when it does not exist.
func (c *Client) GetWorkspace(ctx context.Context, slug string) (*Workspace, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/workspace/"+url.PathEscape(slug), nil, "")
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrWorkspaceNotFound, slug)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.statusErr("get workspace", resp)
	}

	var payload struct {
		Workspace *Workspace `json:"workspace"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding workspace response: %w", err)
	}
	if payload.Workspace == nil || payload.Workspace.Slug == "" {
		return nil, fmt.Errorf("%w: %s", ErrWorkspaceNotFound, slug)
	}
	return payload.Workspace, nil
}

// CreateWorkspace creates a workspace with the given slug and display name.
func (c *Client) CreateWorkspace(ctx context.Context, slug, name string) (*Workspace, error) {
	body, err := json.Marshal(map[string]string{"name": name, "slug": slug})
	if err != nil {
		return nil, fmt.Errorf("encoding workspace request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/api/workspace/new", bytes.NewReader(body), "application/json")
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, c.statusErr("create workspace", resp)
	}

	var payload struct {
		Workspace *Workspace `json:"workspace"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding workspace response: %w", err)
	}
	if payload.Workspace == nil {
		return &Workspace{Slug: slug, Name: name}, nil
	}
	return payload.Workspace, nil
}

// UploadDocument uploads one file (multipart) with optional metadata and
// returns the service-side document location used by UpdateEmbeddings.
func (c *Client) UploadDocument(ctx context.Context, filename string, content []byte, metadata map[string]any) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("building upload form: %w", err)
	}
	if _, err := fw.Write(content); err != nil {
		return "", fmt.Errorf("writing upload content: %w", err)
	}
	if metadata != nil {
		metaJSON, err := json.Marshal(metadata)
		if err != nil {
			return "", fmt.Errorf("encoding upload metadata: %w", err)
		}
		if err := mw.WriteField("metadata", string(metaJSON)); err != nil {
			return "", fmt.Errorf("writing upload metadata: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("closing upload form: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/api/document/upload", &buf, mw.FormDataContentType())
	if err != nil {
		return "", err
	}
	defer closeBody(resp)

	if resp.StatusCode != http.StatusOK {
		return "", c.statusErr("upload document", resp)
	}

	var payload struct {
		Document struct {
			Location string `json:"location"`
		} `json:"document"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decoding upload response: %w", err)
	}
	if payload.Document.Location == "" {
		return "", fmt.Errorf("upload response carried no document location")
	}
	return payload.Document.Location, nil
}

// UpdateEmbeddings adds and/or removes documents from a workspace's
// embedding set.
func (c *Client) UpdateEmbeddings(ctx context.Context, slug string, adds, deletes []string) error {
	body, err := json.Marshal(map[string][]string{"adds": adds, "deletes": deletes})
	if err != nil {
		return fmt.Errorf("encoding embeddings request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost,
		"/api/workspace/"+url.PathEscape(slug)+"/update-embeddings",
		bytes.NewReader(body), "application/json")
	if err != nil {
		return err
	}
	defer closeBody(resp)

	if resp.StatusCode != http.StatusOK {
		return c.statusErr("update embeddings", resp)
	}
	return nil
}

// queryRequest matches the service's query endpoint payload.
type queryRequest struct {
	Message string `json:"message"`
	Mode    string `json:"mode"`
	TopK    int    `json:"topK"`
}

type queryResponse struct {
	TextResponse string   `json:"textResponse"`
	Sources      []Source `json:"sources"`
}

// Query runs a retrieval query ("query" mode, never mutating index state).
func (c *Client) Query(ctx context.Context, slug, message string, topK int) (*queryResponse, error) {
	body, err := json.Marshal(queryRequest{Message: message, Mode: "query", TopK: topK})
	if err != nil {
		return nil, fmt.Errorf("encoding query: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost,
		"/api/workspace/"+url.PathEscape(slug)+"/query",
		bytes.NewReader(body), "application/json")
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrWorkspaceNotFound, slug)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.statusErr("query", resp)
	}

	var payload queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding query response: %w", err)
	}
	return &payload, nil
}

// do builds and executes one request. Transport-level failures map to
// ErrServiceUnavailable.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	return resp, nil
}

// statusErr drains a short error body for context and maps server-side
// failures to ErrServiceUnavailable.
func (c *Client) statusErr(op string, resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: %s returned %d: %s", ErrServiceUnavailable, op, resp.StatusCode, snippet)
	}
	return fmt.Errorf("%s returned %d: %s", op, resp.StatusCode, snippet)
}

func closeBody(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
