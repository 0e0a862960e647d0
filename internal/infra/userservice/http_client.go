package userservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"aegis/config"
	"aegis/internal/domain/entity"
	domainerrors "aegis/internal/domain/errors"
	"aegis/internal/domain/service"

	"github.com/pkg/errors"
)

const defaultHTTPTimeout = 10 * time.Second

// httpClient implements service.UserService against a remote user service.
type httpClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *slog.Logger
}

// NewHTTPClient is the constructor for httpClient.
func NewHTTPClient(cfg *config.UserServiceConfig, logger *slog.Logger) service.UserService {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}

	return &httpClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// GetUser fetches the profile for a user identifier.
func (c *httpClient) GetUser(ctx context.Context, tenantID, identifier string) (*entity.UserProfile, error) {
	endpoint := fmt.Sprintf("%s/tenants/%s/users/%s",
		c.baseURL, url.PathEscape(tenantID), url.PathEscape(identifier))

	body, status, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	switch {
	case status == http.StatusNotFound:
		return nil, domainerrors.ErrUserNotFound
	case status < 200 || status >= 300:
		return nil, errors.Errorf("user service returned status %d", status)
	}

	return decodeProfile(body)
}

// Authenticate verifies a factor secret for the user. The remote service
// answers 401 on a wrong secret, which maps to the credential-mismatch error
// that feeds the brute-force counter.
func (c *httpClient) Authenticate(ctx context.Context, tenantID, identifier string, factor entity.AuthMethod, secret string) (*entity.UserProfile, error) {
	endpoint := fmt.Sprintf("%s/tenants/%s/users/%s/verify",
		c.baseURL, url.PathEscape(tenantID), url.PathEscape(identifier))

	payload, err := json.Marshal(map[string]string{
		"factor": string(factor),
		"secret": secret,
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	body, status, err := c.do(ctx, http.MethodPost, endpoint, payload)
	if err != nil {
		return nil, err
	}

	switch {
	case status == http.StatusUnauthorized:
		return nil, domainerrors.ErrInvalidCredentials
	case status == http.StatusNotFound:
		return nil, domainerrors.ErrUserNotFound
	case status < 200 || status >= 300:
		return nil, errors.Errorf("user service returned status %d", status)
	}

	return decodeProfile(body)
}

// UpdateUser enrolls or rotates a factor secret on the user record.
func (c *httpClient) UpdateUser(ctx context.Context, tenantID, userID string, update *entity.UserUpdate) (*entity.UserProfile, error) {
	endpoint := fmt.Sprintf("%s/tenants/%s/users/%s",
		c.baseURL, url.PathEscape(tenantID), url.PathEscape(userID))

	payload, err := json.Marshal(map[string]string{
		"factor": string(update.Factor),
		"secret": update.Secret,
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	body, status, err := c.do(ctx, http.MethodPatch, endpoint, payload)
	if err != nil {
		return nil, err
	}

	switch {
	case status == http.StatusNotFound:
		return nil, domainerrors.ErrUserNotFound
	case status < 200 || status >= 300:
		return nil, errors.Errorf("user service returned status %d", status)
	}

	return decodeProfile(body)
}

func (c *httpClient) do(ctx context.Context, method, endpoint string, payload []byte) ([]byte, int, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, errors.Wrap(err, "user service request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to read user service response")
	}

	return body, resp.StatusCode, nil
}

// decodeProfile keeps the raw document so claim paths can reach fields this
// service does not model.
func decodeProfile(body []byte) (*entity.UserProfile, error) {
	var profile entity.UserProfile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, errors.Wrap(err, "failed to decode user profile")
	}
	profile.Raw = json.RawMessage(body)

	return &profile, nil
}
