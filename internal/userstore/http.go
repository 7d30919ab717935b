package userstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kalambet/solace/internal/profile"
)

// HTTP speaks the /api/users contract to a server that owns the store.
type HTTP struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHTTP returns an HTTP backend for baseURL. A nil client gets a 30s
// timeout default.
func NewHTTP(baseURL, token string, client *http.Client) *HTTP {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTP{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: client,
	}
}

// statusError is a non-2xx response.
type statusError struct {
	Status  int
	Message string
}

func (e *statusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

func (h *HTTP) do(ctx context.Context, method, path string, body, out any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshalling request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, bodyReader)
	if err != nil {
		return err
	}
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(raw, &e) != nil {
			e.Error = strings.TrimSpace(string(raw))
		}
		return &statusError{Status: resp.StatusCode, Message: e.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", method, path, err)
	}
	return nil
}

func (h *HTTP) Get(ctx context.Context, username string) (profile.Record, error) {
	var r profile.Record
	err := h.do(ctx, http.MethodGet, "/api/users?username="+url.QueryEscape(username), nil, &r)
	if se, ok := err.(*statusError); ok && se.Status == http.StatusNotFound {
		return profile.Record{}, ErrNotFound
	}
	if err != nil {
		return profile.Record{}, err
	}
	r.Normalize()
	return r, nil
}

func (h *HTTP) Put(ctx context.Context, username string, r profile.Record) error {
	r.Username = username
	r.Normalize()
	body := struct {
		Username string         `json:"username"`
		UserData profile.Record `json:"userData"`
	}{username, r}
	return h.do(ctx, http.MethodPost, "/api/users", body, nil)
}

// Patch sends a partial update. The server refuses to patch an unknown
// user, so that case comes back as a status error.
func (h *HTTP) Patch(ctx context.Context, username string, p profile.Patch) error {
	body := struct {
		Username string        `json:"username"`
		Updates  profile.Patch `json:"updates"`
	}{username, p}
	return h.do(ctx, http.MethodPut, "/api/users", body, nil)
}

// Update is a Get followed by a Patch carrying every field. The /api/users
// contract has no conditional write, so a concurrent writer between the
// two requests can be overwritten.
func (h *HTTP) Update(ctx context.Context, username string, fn func(*profile.Record) error) error {
	r, err := h.Get(ctx, username)
	if err != nil {
		return err
	}
	if err := fn(&r); err != nil {
		return err
	}
	r.Username = username
	if err := r.Validate(); err != nil {
		return err
	}
	return h.Patch(ctx, username, profile.Patch{
		ChatHistory:    &r.ChatHistory,
		Suggestions:    &r.Suggestions,
		DashboardData:  &r.DashboardData,
		Taglines:       &r.Taglines,
		CompletedItems: &r.CompletedItems,
	})
}

// Exists is a Get that returned a record.
func (h *HTTP) Exists(ctx context.Context, username string) (bool, error) {
	_, err := h.Get(ctx, username)
	if err == ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

func (h *HTTP) Create(ctx context.Context, username string) error {
	body := struct {
		Username string `json:"username"`
	}{username}
	return h.do(ctx, http.MethodPost, "/api/users", body, nil)
}
