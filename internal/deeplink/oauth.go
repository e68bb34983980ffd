package deeplink

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPExchanger posts the authorization code to the token endpoint.
type HTTPExchanger struct {
	endpoint string
	client   *http.Client
}

// NewHTTPExchanger constructs an exchanger for the given token endpoint.
func NewHTTPExchanger(endpoint string) *HTTPExchanger {
	return &HTTPExchanger{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Exchange posts code and state as a form body. The caller treats failures
// as non-fatal; this only reports them.
func (e *HTTPExchanger) Exchange(ctx context.Context, code, state string) error {
	form := url.Values{"code": {code}, "state": {state}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := e.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("oauth exchange: status %d", resp.StatusCode)
	}
	return nil
}
