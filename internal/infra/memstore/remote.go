package memstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"tooldeck/internal/domain"
)

// Remote talks to the hosted memory API over JSON REST with token auth.
type Remote struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *zap.Logger
}

func NewRemote(cfg domain.MemoryConfig, logger *zap.Logger) *Remote {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Remote{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		// Hard client-side bound independent of the dispatch timeout, since
		// an abandoned background call still holds this connection.
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger.Named("memory"),
	}
}

type addRequest struct {
	Content string   `json:"content"`
	Tags    []string `json:"tags,omitempty"`
}

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

type deleteRequest struct {
	IDs []string `json:"ids"`
}

type memoryEnvelope struct {
	Memory Memory `json:"memory"`
}

type listEnvelope struct {
	Memories []Memory `json:"memories"`
}

type deleteEnvelope struct {
	Deleted int `json:"deleted"`
}

func (r *Remote) Add(ctx context.Context, content string, tags []string) (Memory, error) {
	var out memoryEnvelope
	err := r.do(ctx, http.MethodPost, "/memories", nil, addRequest{Content: content, Tags: tags}, &out)
	if err != nil {
		return Memory{}, err
	}
	return out.Memory, nil
}

func (r *Remote) Search(ctx context.Context, query string, limit int) ([]Memory, error) {
	var out listEnvelope
	err := r.do(ctx, http.MethodPost, "/memories/search", nil, searchRequest{Query: query, Limit: limit}, &out)
	if err != nil {
		return nil, err
	}
	return out.Memories, nil
}

func (r *Remote) List(ctx context.Context, limit int) ([]Memory, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var out listEnvelope
	if err := r.do(ctx, http.MethodGet, "/memories", query, nil, &out); err != nil {
		return nil, err
	}
	return out.Memories, nil
}

func (r *Remote) Delete(ctx context.Context, ids []string) (int, error) {
	var out deleteEnvelope
	err := r.do(ctx, http.MethodDelete, "/memories", nil, deleteRequest{IDs: ids}, &out)
	if err != nil {
		return 0, err
	}
	return out.Deleted, nil
}

func (r *Remote) Close() error { return nil }

func (r *Remote) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	r.logger.Debug("memory API call", zap.String("method", method), zap.String("path", path))

	var payload io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return domain.E(domain.CodeInternal, "memstore.Remote", "encode request", err)
		}
		payload = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, payload)
	if err != nil {
		return domain.E(domain.CodeInternal, "memstore.Remote", "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Token "+r.apiKey)
	if len(query) > 0 {
		req.URL.RawQuery = query.Encode()
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return domain.E(domain.CodeInternal, "memstore.Remote", "memory API unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return r.statusError(resp)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return domain.E(domain.CodeInternal, "memstore.Remote", "decode response", err)
		}
	}
	return nil
}

func (r *Remote) statusError(resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	detail := strings.TrimSpace(string(snippet))
	if detail == "" {
		detail = resp.Status
	}
	message := fmt.Sprintf("memory API returned %d: %s", resp.StatusCode, detail)

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.E(domain.CodeAuthFailure, "memstore.Remote", message, nil)
	case http.StatusNotFound:
		return domain.E(domain.CodeNotFound, "memstore.Remote", message, nil)
	case http.StatusTooManyRequests:
		return domain.E(domain.CodeRateLimited, "memstore.Remote", message, nil)
	default:
		return domain.E(domain.CodeInternal, "memstore.Remote", message, nil)
	}
}
