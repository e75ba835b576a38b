// Package vaultwarden wraps the Vaultwarden HTTP API endpoints the rotation
// scheduler needs: cipher listing, account profile lookup, recipient
// resolution and the password pass-through update. Authentication uses the
// OAuth client_credentials flow with an in-memory token cache.
package vaultwarden

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	vwerrors "github.com/keeperops/vaultward/internal/errors"
	"github.com/keeperops/vaultward/internal/rotation"
	"github.com/keeperops/vaultward/internal/secure"
)

// DefaultTimeout bounds every request when the config does not set one.
const DefaultTimeout = 10 * time.Second

// Config holds the connection details for the Vaultwarden HTTP API.
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret *secure.Buffer
	Timeout      time.Duration
	Audience     string
}

// Profile is the subset of the account profile the scheduler uses.
type Profile struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	OrganizationID string `json:"organizationId"`
}

// Client talks to a single Vaultwarden instance. Safe for concurrent use.
type Client struct {
	config     Config
	httpClient *http.Client
	baseURL    string
	tokens     tokenCache

	mu         sync.Mutex
	profile    *Profile
	emailCache map[string]string
}

// Option is a functional option for configuring the client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client (for testing).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a Vaultwarden API client.
func NewClient(config Config, opts ...Option) *Client {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	c := &Client{
		config:     config,
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		emailCache: make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: timeout}
	}
	return c
}

// BaseURL returns the normalized base URL the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// token returns a valid bearer token, obtaining a fresh one when the cached
// token is absent or close to expiry.
func (c *Client) token(ctx context.Context) (string, error) {
	if token, ok := c.tokens.Get(); ok {
		return token, nil
	}

	form := url.Values{
		"grant_type":       {"client_credentials"},
		"scope":            {"api"},
		"client_id":        {c.config.ClientID},
		"deviceIdentifier": {uuid.NewString()},
		"deviceType":       {"7"},
		"deviceName":       {"rotation-scheduler"},
	}
	if c.config.Audience != "" {
		form.Set("audience", c.config.Audience)
	}
	if err := c.config.ClientSecret.Reveal(func(secret string) error {
		form.Set("client_secret", secret)
		return nil
	}); err != nil {
		return "", vwerrors.SourceError{Op: "token", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/identity/connect/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", vwerrors.SourceError{Op: "token", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", vwerrors.SourceError{Op: "token", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", vwerrors.SourceError{
			Op:         "token",
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s", strings.TrimSpace(string(body))),
		}
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", vwerrors.SourceError{Op: "token", Err: err}
	}
	if payload.AccessToken == "" {
		return "", vwerrors.SourceError{Op: "token", Err: fmt.Errorf("empty access token in response")}
	}

	ttl := time.Duration(payload.ExpiresIn) * time.Second
	if ttl == 0 {
		ttl = time.Hour
	}
	c.tokens.Set(payload.AccessToken, ttl)
	return payload.AccessToken, nil
}

// doJSON performs an authenticated request and returns the response body.
func (c *Client) doJSON(ctx context.Context, op, method, path string, body io.Reader) ([]byte, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, vwerrors.SourceError{Op: op, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, vwerrors.SourceError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, vwerrors.SourceError{Op: op, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, vwerrors.SourceError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s", strings.TrimSpace(string(data))),
		}
	}
	return data, nil
}

// ListCiphers fetches every cipher visible to the API credentials. The
// endpoint has returned both a {"data": [...]} envelope and a bare array
// across server versions; both are accepted.
func (c *Client) ListCiphers(ctx context.Context) ([]rotation.ItemRecord, error) {
	data, err := c.doJSON(ctx, "list_ciphers", http.MethodGet, "/api/ciphers", nil)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var records []rotation.ItemRecord
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, vwerrors.SourceError{Op: "list_ciphers", Err: err}
		}
		return records, nil
	}

	var envelope struct {
		Data []rotation.ItemRecord `json:"data"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, vwerrors.SourceError{Op: "list_ciphers", Err: err}
	}
	if envelope.Data == nil {
		return nil, vwerrors.SourceError{
			Op:  "list_ciphers",
			Err: fmt.Errorf("unexpected response shape from /api/ciphers"),
		}
	}
	return envelope.Data, nil
}

// Profile fetches the account profile, caching it for the client's lifetime.
func (c *Client) Profile(ctx context.Context) (*Profile, error) {
	c.mu.Lock()
	cached := c.profile
	c.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	data, err := c.doJSON(ctx, "profile", http.MethodGet, "/api/accounts/profile", nil)
	if err != nil {
		return nil, err
	}

	var profile Profile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, vwerrors.SourceError{Op: "profile", Err: err}
	}

	c.mu.Lock()
	c.profile = &profile
	c.mu.Unlock()
	return &profile, nil
}

// ResolveRecipient maps a vault user id to an email address. An empty user
// id resolves to the account owner's email. Organization members are looked
// up through the org users endpoint when the profile carries an organization;
// as a final fallback the profile email is returned so notifications are not
// dropped entirely.
func (c *Client) ResolveRecipient(ctx context.Context, userID string) (string, error) {
	profile, err := c.Profile(ctx)
	if err != nil {
		return "", err
	}
	if userID == "" {
		return profile.Email, nil
	}

	c.mu.Lock()
	email, ok := c.emailCache[userID]
	c.mu.Unlock()
	if ok {
		return email, nil
	}

	if profile.OrganizationID != "" {
		if email := c.lookupOrgMemberEmail(ctx, profile.OrganizationID, userID); email != "" {
			c.mu.Lock()
			c.emailCache[userID] = email
			c.mu.Unlock()
			return email, nil
		}
	}
	return profile.Email, nil
}

// lookupOrgMemberEmail scans the organization member list for the user.
// Lookup failures degrade to "" so the caller can fall back; they only
// affect routing, not correctness of the due-set.
func (c *Client) lookupOrgMemberEmail(ctx context.Context, orgID, userID string) string {
	data, err := c.doJSON(ctx, "org_users", http.MethodGet, "/api/organizations/"+orgID+"/users", nil)
	if err != nil {
		return ""
	}

	var envelope struct {
		Data []struct {
			ID    string `json:"id"`
			Email string `json:"email"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return ""
	}
	for _, entry := range envelope.Data {
		if entry.ID == userID {
			return entry.Email
		}
	}
	return ""
}

// UpdateCipherPassword sets a new password on a cipher. The scheduler never
// writes passwords itself; this is a pass-through for callers that rotate
// and then record the rotation.
func (c *Client) UpdateCipherPassword(ctx context.Context, cipherID, newPassword string) (rotation.ItemRecord, error) {
	payload, err := json.Marshal(map[string]string{"password": newPassword})
	if err != nil {
		return rotation.ItemRecord{}, vwerrors.SourceError{Op: "update_password", Err: err}
	}

	data, err := c.doJSON(ctx, "update_password", http.MethodPut,
		"/api/ciphers/"+cipherID+"/password", bytes.NewReader(payload))
	if err != nil {
		return rotation.ItemRecord{}, err
	}

	var record rotation.ItemRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return rotation.ItemRecord{}, vwerrors.SourceError{Op: "update_password", Err: err}
	}
	return record, nil
}
