package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"checkoutsdk/internal/origin"
	"checkoutsdk/pkg/types"
)

// Credentials locate one purchase on the status API.
type Credentials struct {
	BaseURL    string
	ResourceID string
	Token      string
}

// Client fetches purchase status from the host API.
type Client struct {
	httpClient *http.Client
	reqTimeout time.Duration
}

// NewClient wraps httpClient, or builds one with its own transport when
// nil. Requests carry context-based timeouts rather than Client.Timeout.
func NewClient(httpClient *http.Client, reqTimeout time.Duration) *Client {
	if httpClient == nil {
		tr := &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		}
		httpClient = &http.Client{Transport: tr}
	}
	return &Client{httpClient: httpClient, reqTimeout: reqTimeout}
}

// PurchaseURL is GET {base}/host-api/purchase/{id}?secret={token}.
func PurchaseURL(c Credentials) string {
	return origin.Concat(c.BaseURL, "host-api/purchase/"+url.PathEscape(c.ResourceID)) +
		"?secret=" + url.QueryEscape(c.Token)
}

// FetchPurchase issues one status request. Any transport failure, non-2xx
// status or undecodable body is an error.
func (c *Client) FetchPurchase(ctx context.Context, cred Credentials) (types.Purchase, error) {
	if c.reqTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.reqTimeout)
		defer cancel()
	}
	var p types.Purchase
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, PurchaseURL(cred), nil)
	if err != nil {
		return p, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return p, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return p, fmt.Errorf("request for purchase #%s failed: %s", cred.ResourceID, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return p, fmt.Errorf("decode purchase #%s: %w", cred.ResourceID, err)
	}
	return p, nil
}
