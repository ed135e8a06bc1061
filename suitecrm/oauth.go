package suitecrm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/julien-nc/integration-suitecrm/store"
)

const redactedSecret = "********"

// RequestOAuthToken POSTs a grant request to the provider token endpoint.
// Used with grant_type=refresh_token for silent refresh and
// grant_type=password once at connect time. Secrets present in params never
// appear verbatim in returned errors or logs.
func (c *Client) RequestOAuthToken(ctx context.Context, instanceURL string, params []Param) (TokenPair, error) {
	reqURL := strings.TrimRight(instanceURL, "/") + tokenEndpoint
	body := strings.NewReader(encodeParams(params))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, body)
	if err != nil {
		return TokenPair{}, newAPIError(ErrTransport, 0, redactParams(err.Error(), params), err)
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		msg := redactParams(err.Error(), params)
		c.logger.Warn("SuiteCRM OAuth error", zap.String("error", msg))

		return TokenPair{}, newAPIError(ErrTransport, 0, msg, nil)
	}

	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return TokenPair{}, newAPIError(ErrTransport, 0, "failed to read token response: "+err.Error(), err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		c.logger.Warn("OAuth access token refused", zap.Int("status", resp.StatusCode))

		return TokenPair{}, newAPIError(ErrAuth, resp.StatusCode, "OAuth access token refused", nil)
	}

	var pair TokenPair
	if err := json.Unmarshal(respBody, &pair); err != nil {
		return TokenPair{}, newAPIError(ErrDecode, resp.StatusCode, "failed to decode token response: "+err.Error(), err)
	}

	// a refresh that does not yield both tokens is a failed refresh
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		return TokenPair{}, newAPIError(ErrAuth, resp.StatusCode, "token response missing access or refresh token", nil)
	}

	return pair, nil
}

// Connect performs the interactive password grant, persists the token pair
// and resolves the CRM user id and display name for the given login.
// It is never retried automatically.
func (c *Client) Connect(ctx context.Context, userID, login, password string) (string, error) {
	instanceURL, err := c.store.GetAppValue(ctx, store.KeyOauthInstanceURL, "")
	if err != nil {
		return "", fmt.Errorf("failed to read instance url: %w", err)
	}

	clientID, err := c.store.GetAppValue(ctx, store.KeyClientID, "")
	if err != nil {
		return "", fmt.Errorf("failed to read client id: %w", err)
	}

	clientSecret, err := c.store.GetAppValue(ctx, store.KeyClientSecret, "")
	if err != nil {
		return "", fmt.Errorf("failed to read client secret: %w", err)
	}

	if instanceURL == "" || clientID == "" || clientSecret == "" {
		return "", newAPIError(ErrConfig, 0, "OAuth client is not configured", nil)
	}

	pair, err := c.RequestOAuthToken(ctx, instanceURL, []Param{
		{Key: "client_id", Value: clientID},
		{Key: "client_secret", Value: clientSecret},
		{Key: "username", Value: login},
		{Key: "password", Value: password},
		{Key: "grant_type", Value: "password"},
	})
	if err != nil {
		if ErrorKindOf(err) == ErrAuth {
			return "", newAPIError(ErrAuth, 0, "invalid login/password", err)
		}

		return "", err
	}

	if err := c.saveTokenPair(ctx, userID, pair); err != nil {
		return "", err
	}

	userName, crmUserID := c.lookupConnectedUser(ctx, userID, login)

	if err := c.store.SetUserValue(ctx, userID, store.KeyUserName, userName); err != nil {
		return "", fmt.Errorf("failed to store user name: %w", err)
	}

	if err := c.store.SetUserValue(ctx, userID, store.KeyUserID, crmUserID); err != nil {
		return "", fmt.Errorf("failed to store crm user id: %w", err)
	}

	return userName, nil
}

// lookupConnectedUser resolves the CRM user record matching login. A failed
// lookup falls back to the login itself so the connect flow still succeeds.
func (c *Client) lookupConnectedUser(ctx context.Context, userID, login string) (userName, crmUserID string) {
	userName = login

	endPoint := "module/Users?" + encodeParams([]Param{
		{Key: "filter[user_name][eq]", Value: login},
	})

	records, err := c.getList(ctx, userID, endPoint)
	if err != nil {
		c.logger.Warn("failed to look up connected CRM user", zap.String("user", userID), zap.Error(err))

		return userName, ""
	}

	for _, rec := range records {
		if attrString(rec.Attributes, "user_name") == login {
			if fullName := attrString(rec.Attributes, "full_name"); fullName != "" {
				userName = fullName
			}

			return userName, rec.ID
		}
	}

	return userName, ""
}

// Disconnect logs the user out remotely and clears every stored per-user
// value tied to the connection.
func (c *Client) Disconnect(ctx context.Context, userID string) error {
	if _, err := c.Request(ctx, userID, "logout", nil, http.MethodPost); err != nil {
		// the local state is cleared regardless
		c.logger.Warn("remote logout failed", zap.String("user", userID), zap.Error(err))
	}

	keys := []string{
		store.KeyUserID,
		store.KeyUserName,
		store.KeyToken,
		store.KeyRefreshToken,
		store.KeyLastReminderCheck,
		store.KeyLastOpenCheck,
	}

	for _, key := range keys {
		if err := c.store.SetUserValue(ctx, userID, key, ""); err != nil {
			return fmt.Errorf("failed to clear %s: %w", key, err)
		}
	}

	return nil
}

// redactParams masks secret parameter values inside msg.
func redactParams(msg string, params []Param) string {
	for _, p := range params {
		if p.Key != "password" && p.Key != "client_secret" && p.Key != "refresh_token" {
			continue
		}

		if p.Value != "" {
			msg = strings.ReplaceAll(msg, p.Value, redactedSecret)
		}
	}

	return msg
}
