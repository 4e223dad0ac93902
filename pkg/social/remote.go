package social

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"sparkchat/pkg/models"
)

// RemoteClient implements Directory over the social-graph service HTTP API.
type RemoteClient struct {
	base  string
	httpc *http.Client
}

// NewRemoteClient returns a client bound to the directory base URL.
func NewRemoteClient(base string, timeout time.Duration) *RemoteClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &RemoteClient{base: base, httpc: &http.Client{Timeout: timeout}}
}

func (r *RemoteClient) User(ctx context.Context, id string) (models.UserRef, error) {
	u := fmt.Sprintf("%s/users/%s", r.base, url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return models.UserRef{}, err
	}
	resp, err := r.httpc.Do(req)
	if err != nil {
		return models.UserRef{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return models.UserRef{}, ErrUnknownUser
	}
	if resp.StatusCode != http.StatusOK {
		return models.UserRef{}, fmt.Errorf("directory status %d", resp.StatusCode)
	}
	var out models.UserRef
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return models.UserRef{}, err
	}
	return out, nil
}

func (r *RemoteClient) MutualFollow(ctx context.Context, a, b string) (bool, error) {
	u := fmt.Sprintf("%s/follows/mutual?a=%s&b=%s", r.base, url.QueryEscape(a), url.QueryEscape(b))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, err
	}
	resp, err := r.httpc.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("directory status %d", resp.StatusCode)
	}
	var out struct {
		Mutual bool `json:"mutual"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, err
	}
	return out.Mutual, nil
}
