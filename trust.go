package blockpress

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/gems-gallery/blockpress.go/pkg/constants"
)

// trustRoot caches the network's root-trust material. Local and test
// networks have a throwaway root, so it is fetched from the deployment once
// per Factory and shared by every handle the factory builds; production
// trusts the baked-in root and never fetches.
type trustRoot struct {
	mu  sync.Mutex
	key []byte
}

type statusResponse struct {
	RootKey string `json:"root_key"`
}

// material returns the cached root key, fetching it on first use. Fetch
// failures are not cached; the next call retries.
func (t *trustRoot) material(ctx context.Context, baseURL string) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.key != nil {
		return t.key, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/status", nil)
	if err != nil {
		return nil, err
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching root trust material: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching root trust material: unexpected status %d", res.StatusCode)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("fetching root trust material: %w", err)
	}

	var status statusResponse
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("decoding status response: %w", err)
	}

	key, err := base64.StdEncoding.DecodeString(status.RootKey)
	if err != nil || len(key) == 0 {
		return nil, fmt.Errorf("status response carries no usable root key")
	}

	t.key = key
	return t.key, nil
}

// httpBaseURL maps the websocket endpoint to the http endpoint serving the
// deployment status.
func httpBaseURL(u *url.URL) string {
	scheme := u.Scheme
	switch scheme {
	case constants.WebsocketScheme:
		scheme = constants.HTTPScheme
	case constants.SecureWebsocketScheme:
		scheme = constants.HTTPSecureScheme
	}
	return fmt.Sprintf("%s://%s", scheme, u.Host)
}
