package secretshandler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ruteri/barnyard/api"
	"github.com/ruteri/barnyard/interfaces"
	"github.com/ruteri/barnyard/secrets"
)

// Client talks to a barnyard server's secrets API.
type Client struct {
	BaseURL  string
	Identity interfaces.Identity
	Client   *http.Client
}

// NewClient creates a client for baseURL acting as identity.
func NewClient(baseURL string, identity interfaces.Identity) *Client {
	return &Client{
		BaseURL:  strings.TrimSuffix(baseURL, "/"),
		Identity: identity,
		Client:   http.DefaultClient,
	}
}

// Store uploads plaintext as secret name and returns the granted resource path.
func (c *Client) Store(ctx context.Context, name string, plaintext []byte) (string, error) {
	body, err := c.do(ctx, http.MethodPut, "/api/secrets/"+url.PathEscape(name), plaintext)
	if err != nil {
		return "", err
	}

	var resp api.StoreSecretResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("could not parse store response: %w", err)
	}
	return resp.Resource, nil
}

// Load downloads the plaintext of secret name.
func (c *Client) Load(ctx context.Context, name string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, "/api/secrets/"+url.PathEscape(name), nil)
}

// Names lists the stored secret names.
func (c *Client) Names(ctx context.Context) ([]string, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/secrets", nil)
	if err != nil {
		return nil, err
	}

	var resp api.ListSecretsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("could not parse list response: %w", err)
	}
	return resp.Names, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("could not initialize request: %w", err)
	}
	if c.Identity != "" {
		req.Header.Set(api.IdentityHeader, string(c.Identity))
	}

	httpClient := c.Client
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not request barnyard: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read barnyard response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errorFromResponse(resp.StatusCode, body)
	}
	return body, nil
}

// errorFromResponse turns a non-200 response back into a sentinel error so
// callers can use errors.Is on both sides of the wire.
func errorFromResponse(status int, body []byte) error {
	var errResp api.ErrorResponse
	msg := string(body)
	if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
		msg = errResp.Error
	}

	var sentinel error
	switch status {
	case http.StatusUnauthorized:
		sentinel = ErrMissingIdentity
	case http.StatusForbidden:
		sentinel = interfaces.ErrAccessDenied
	case http.StatusNotFound:
		sentinel = interfaces.ErrSecretNotFound
	case http.StatusBadRequest:
		sentinel = secrets.ErrInvalidName
	default:
		return fmt.Errorf("barnyard returned %d: %s", status, msg)
	}
	return errors.Join(sentinel, fmt.Errorf("barnyard returned %d: %s", status, msg))
}
