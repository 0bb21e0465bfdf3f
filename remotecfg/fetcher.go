// HTTP fetcher for the remote configuration document.

package remotecfg

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// TokenSource supplies a bearer token for the configuration endpoint.
type TokenSource func(ctx context.Context) (string, error)

// HTTPFetcher retrieves the configuration document over HTTP. The
// document follows the remote-config shape: parameter groups, each
// holding parameters with a value type and default value.
type HTTPFetcher struct {
	url    string
	tokens TokenSource
	client *http.Client
}

// NewHTTPFetcher creates a fetcher for the given endpoint. tokens may
// be nil when the endpoint requires no authorization.
func NewHTTPFetcher(url string, tokens TokenSource) *HTTPFetcher {
	return &HTTPFetcher{
		url:    url,
		tokens: tokens,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

type remoteDocument struct {
	ParameterGroups map[string]struct {
		Parameters map[string]struct {
			ValueType    string `json:"valueType"`
			DefaultValue struct {
				Value string `json:"value"`
			} `json:"defaultValue"`
		} `json:"parameters"`
	} `json:"parameterGroups"`
}

// Fetch downloads and flattens the configuration document.
func (f *HTTPFetcher) Fetch(ctx context.Context) (map[string]Value, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build config request: %w", err)
	}
	if f.tokens != nil {
		token, err := f.tokens(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to obtain config token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("config fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("config fetch returned %d: %s", resp.StatusCode, body)
	}

	var doc remoteDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode config document: %w", err)
	}

	return flatten(doc), nil
}

func flatten(doc remoteDocument) map[string]Value {
	values := make(map[string]Value)
	for groupName, group := range doc.ParameterGroups {
		for key, param := range group.Parameters {
			value := Value{String: param.DefaultValue.Value}
			if param.ValueType == "JSON" {
				var object map[string]any
				if err := json.Unmarshal([]byte(param.DefaultValue.Value), &object); err == nil {
					value.Object = object
				}
			}
			values[groupName+":"+key] = value
		}
	}
	return values
}

// Verify HTTPFetcher implements Fetcher
var _ Fetcher = (*HTTPFetcher)(nil)
