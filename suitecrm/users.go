package suitecrm

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// GetAvatar fetches the profile photo of a CRM user as raw bytes. The
// download entry point sits outside the versioned API path, so the request
// engine is bypassed and no refresh is attempted.
func (c *Client) GetAvatar(ctx context.Context, userID, crmUserID string) ([]byte, error) {
	cred, err := c.credential(ctx, userID)
	if err != nil {
		return nil, err
	}

	if cred.AccessToken == "" {
		return nil, newAPIError(ErrAuth, 0, "user is not connected", nil)
	}

	reqURL := cred.InstanceURL + "/index.php?entryPoint=download&id=" + url.QueryEscape(crmUserID) + "_photo&type=Users"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+cred.AccessToken)
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, newAPIError(ErrTransport, 0, err.Error(), err)
	}

	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, newAPIError(ErrUpstream, resp.StatusCode, "avatar request failed", nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newAPIError(ErrTransport, 0, "failed to read avatar body: "+err.Error(), err)
	}

	return body, nil
}
