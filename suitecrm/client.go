// Package suitecrm implements the SuiteCRM API access layer: an
// authenticated request engine with silent token refresh, and the reminder,
// alert/notification and federated search resolvers built on top of it.
package suitecrm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/julien-nc/integration-suitecrm/store"
)

const (
	apiPathPrefix    = "/Api/index.php/V8/"
	tokenEndpoint    = "/Api/access_token"
	userAgent        = "Nextcloud SuiteCRM integration"
	defaultTimeout   = 30 * time.Second
	maxErrorBodySize = 200
)

// Client talks to a SuiteCRM instance on behalf of host users. Credentials
// are borrowed from the store per call and written back only on successful
// refresh. Safe for concurrent use.
type Client struct {
	store      store.Store
	httpClient *http.Client
	logger     *zap.Logger
	now        func() time.Time

	mu        sync.Mutex
	userLocks map[string]*sync.Mutex
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithClock overrides the wall clock, used in tests.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates a new SuiteCRM API client.
func NewClient(st store.Store, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		store: st,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger:    logger,
		now:       time.Now,
		userLocks: make(map[string]*sync.Mutex),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// credential loads a per-call snapshot for userID.
func (c *Client) credential(ctx context.Context, userID string) (Credential, error) {
	instanceURL, err := c.store.GetAppValue(ctx, store.KeyOauthInstanceURL, "")
	if err != nil {
		return Credential{}, fmt.Errorf("failed to read instance url: %w", err)
	}

	if instanceURL == "" {
		return Credential{}, newAPIError(ErrConfig, 0, "no instance URL configured", nil)
	}

	clientID, err := c.store.GetAppValue(ctx, store.KeyClientID, "")
	if err != nil {
		return Credential{}, fmt.Errorf("failed to read client id: %w", err)
	}

	clientSecret, err := c.store.GetAppValue(ctx, store.KeyClientSecret, "")
	if err != nil {
		return Credential{}, fmt.Errorf("failed to read client secret: %w", err)
	}

	accessToken, err := c.store.GetUserValue(ctx, userID, store.KeyToken, "")
	if err != nil {
		return Credential{}, fmt.Errorf("failed to read access token: %w", err)
	}

	refreshToken, err := c.store.GetUserValue(ctx, userID, store.KeyRefreshToken, "")
	if err != nil {
		return Credential{}, fmt.Errorf("failed to read refresh token: %w", err)
	}

	crmUserID, err := c.store.GetUserValue(ctx, userID, store.KeyUserID, "")
	if err != nil {
		return Credential{}, fmt.Errorf("failed to read crm user id: %w", err)
	}

	return Credential{
		InstanceURL:  strings.TrimRight(instanceURL, "/"),
		ClientID:     clientID,
		ClientSecret: clientSecret,
		UserID:       userID,
		CRMUserID:    crmUserID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// Request performs an authenticated API call for userID. On a 401 it
// attempts exactly one silent token refresh and retries the call once with
// the new access token; a second 401 is surfaced as an auth error.
// Successful bodies are validated as JSON.
func (c *Client) Request(ctx context.Context, userID, endPoint string, params []Param, method string) ([]byte, error) {
	cred, err := c.credential(ctx, userID)
	if err != nil {
		return nil, err
	}

	if cred.AccessToken == "" {
		return nil, newAPIError(ErrAuth, 0, "user is not connected", nil)
	}

	status, body, err := c.apiCall(ctx, cred, endPoint, params, method)
	if err != nil {
		return nil, newAPIError(ErrTransport, 0, err.Error(), err)
	}

	if status == http.StatusUnauthorized {
		c.logger.Info("trying to refresh the access token", zap.String("user", userID))

		newToken, refreshErr := c.refreshTokensOnce(ctx, cred)
		if refreshErr != nil {
			return nil, newAPIError(ErrAuth, status, "token refresh failed: "+refreshErr.Error(), refreshErr)
		}

		cred.AccessToken = newToken

		status, body, err = c.apiCall(ctx, cred, endPoint, params, method)
		if err != nil {
			return nil, newAPIError(ErrTransport, 0, err.Error(), err)
		}

		if status == http.StatusUnauthorized {
			return nil, newAPIError(ErrAuth, status, "request rejected after token refresh", nil)
		}
	}

	if status >= http.StatusBadRequest {
		return nil, newAPIError(ErrUpstream, status, errorBodySnippet(body), nil)
	}

	if !json.Valid(body) {
		return nil, newAPIError(ErrDecode, status, "response body is not valid JSON", nil)
	}

	return body, nil
}

// apiCall issues a single HTTP call, no retry logic.
func (c *Client) apiCall(ctx context.Context, cred Credential, endPoint string, params []Param, method string) (int, []byte, error) {
	reqURL := cred.InstanceURL + apiPathPrefix + endPoint

	var reqBody io.Reader

	if len(params) > 0 {
		encoded := encodeParams(params)

		if method == http.MethodGet {
			sep := "?"
			if strings.Contains(reqURL, "?") {
				sep = "&"
			}

			reqURL += sep + encoded
		} else {
			reqBody = bytes.NewBufferString(encoded)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+cred.AccessToken)
	req.Header.Set("User-Agent", userAgent)

	if reqBody != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to execute request: %w", err)
	}

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return resp.StatusCode, body, nil
}

// refreshTokensOnce serializes refreshes per user so that two concurrent
// 401s consume the stored refresh token only once. The caller that loses the
// race reuses the token persisted by the winner.
func (c *Client) refreshTokensOnce(ctx context.Context, cred Credential) (string, error) {
	lock := c.userLock(cred.UserID)
	lock.Lock()
	defer lock.Unlock()

	// another caller may have refreshed while we were waiting
	storedToken, err := c.store.GetUserValue(ctx, cred.UserID, store.KeyToken, "")
	if err != nil {
		return "", fmt.Errorf("failed to re-read access token: %w", err)
	}

	if storedToken != "" && storedToken != cred.AccessToken {
		return storedToken, nil
	}

	if cred.ClientID == "" || cred.ClientSecret == "" {
		return "", newAPIError(ErrConfig, 0, "no OAuth client configured", nil)
	}

	storedRefresh, err := c.store.GetUserValue(ctx, cred.UserID, store.KeyRefreshToken, "")
	if err != nil {
		return "", fmt.Errorf("failed to re-read refresh token: %w", err)
	}

	if storedRefresh == "" {
		return "", newAPIError(ErrAuth, 0, "no refresh token stored", nil)
	}

	pair, err := c.RequestOAuthToken(ctx, cred.InstanceURL, []Param{
		{Key: "client_id", Value: cred.ClientID},
		{Key: "client_secret", Value: cred.ClientSecret},
		{Key: "grant_type", Value: "refresh_token"},
		{Key: "refresh_token", Value: storedRefresh},
	})
	if err != nil {
		return "", err
	}

	if err := c.saveTokenPair(ctx, cred.UserID, pair); err != nil {
		return "", err
	}

	return pair.AccessToken, nil
}

// saveTokenPair persists a freshly exchanged token pair.
func (c *Client) saveTokenPair(ctx context.Context, userID string, pair TokenPair) error {
	if err := c.store.SetUserValue(ctx, userID, store.KeyToken, pair.AccessToken); err != nil {
		return fmt.Errorf("failed to store access token: %w", err)
	}

	if err := c.store.SetUserValue(ctx, userID, store.KeyRefreshToken, pair.RefreshToken); err != nil {
		return fmt.Errorf("failed to store refresh token: %w", err)
	}

	return nil
}

func (c *Client) userLock(userID string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()

	lock, ok := c.userLocks[userID]
	if !ok {
		lock = &sync.Mutex{}
		c.userLocks[userID] = lock
	}

	return lock
}

// getList fetches an endpoint returning a JSON:API data array.
func (c *Client) getList(ctx context.Context, userID, endPoint string) ([]RemoteRecord, error) {
	body, err := c.Request(ctx, userID, endPoint, nil, http.MethodGet)
	if err != nil {
		return nil, err
	}

	var list recordList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, newAPIError(ErrDecode, 0, "failed to decode record list: "+err.Error(), err)
	}

	return list.Data, nil
}

// getRecord fetches a single record of the given module.
func (c *Client) getRecord(ctx context.Context, userID, module, id string) (RemoteRecord, error) {
	body, err := c.Request(ctx, userID, "module/"+module+"/"+id, nil, http.MethodGet)
	if err != nil {
		return RemoteRecord{}, err
	}

	var single singleRecord
	if err := json.Unmarshal(body, &single); err != nil {
		return RemoteRecord{}, newAPIError(ErrDecode, 0, "failed to decode record: "+err.Error(), err)
	}

	return single.Data, nil
}

func errorBodySnippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBodySize {
		s = s[:maxErrorBodySize]
	}

	if s == "" {
		return "bad credentials"
	}

	return s
}
