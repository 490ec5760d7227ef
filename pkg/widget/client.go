package widget

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/matst80/slask-facets/pkg/common/jsoncompat"
	"github.com/matst80/slask-facets/pkg/types"
)

// HTTPClient talks to the filter service. It fetches a nonce for the widget
// on demand and renews it shortly before it expires.
type HTTPClient struct {
	BaseURL string
	Client  *http.Client

	mu      sync.Mutex
	nonce   string
	expires time.Time
}

func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type nonceResponse struct {
	Nonce   string    `json:"nonce"`
	Expires time.Time `json:"expires"`
}

func (c *HTTPClient) getNonce(ctx context.Context, widgetId string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.nonce != "" && time.Until(c.expires) > 5*time.Second {
		return c.nonce, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/nonce?widget="+url.QueryEscape(widgetId), nil)
	if err != nil {
		return "", err
	}
	res, err := c.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		// nonces disabled on the server
		return "", nil
	}
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("nonce request failed with status %d", res.StatusCode)
	}
	nr := nonceResponse{}
	if err = jsoncompat.NewDecoder(res.Body).Decode(&nr); err != nil {
		return "", err
	}
	c.nonce = nr.Nonce
	c.expires = nr.Expires
	return c.nonce, nil
}

func (c *HTTPClient) forgetNonce() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nonce = ""
}

// Fetch posts the request as JSON. A response with success=false is returned
// as is, transport and decoding problems are returned as errors.
func (c *HTTPClient) Fetch(ctx context.Context, fr *types.FilterRequest) (*types.FilterResponse, error) {
	nonce, err := c.getNonce(ctx, fr.WidgetId)
	if err != nil {
		return nil, err
	}
	body := *fr
	body.Nonce = nonce
	data, err := jsoncompat.Marshal(&body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/filter", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusForbidden {
		c.forgetNonce()
	}
	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	ret := &types.FilterResponse{}
	if err = jsoncompat.Unmarshal(raw, ret); err != nil {
		return nil, fmt.Errorf("status %d: %w", res.StatusCode, err)
	}
	return ret, nil
}
