// Package registry implements the RegistryClient port against a
// module-proxy-shaped HTTP registry.
package registry

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/Masterminds/semver/v3"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/aretw0/caravel/pkg/domain"
	"github.com/aretw0/caravel/pkg/ports"
)

// Client answers publication lookups over HTTP. Lookups are cached: the
// engine asks about the same (package, version) pair from several
// components within one run, and a published version never becomes
// unpublished.
type Client struct {
	baseURL string
	http    *http.Client
	cache   *lru.Cache[string, bool]
}

var _ ports.RegistryClient = (*Client)(nil)

// New creates a registry client for the given base URL.
func New(baseURL string, httpClient *http.Client) (*Client, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	cache, err := lru.New[string, bool](256)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		cache:   cache,
	}, nil
}

// IsPublished reports whether the exact version exists in the registry.
// Only positive answers are cached; a 404 now may be a 200 after publish.
func (c *Client) IsPublished(ctx context.Context, pkg string, v *semver.Version) (bool, error) {
	key := pkg + "@" + v.String()
	if published, ok := c.cache.Get(key); ok {
		return published, nil
	}

	url := fmt.Sprintf("%s/%s/@v/v%s.info", c.baseURL, pkg, v)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("registry lookup %s: %w", key, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		c.cache.Add(key, true)
		return true, nil
	case http.StatusNotFound, http.StatusGone:
		return false, nil
	default:
		return false, fmt.Errorf("registry lookup %s: status %d", key, resp.StatusCode)
	}
}

// Publish uploads the package at its manifest version.
func (c *Client) Publish(ctx context.Context, pkg domain.Package) error {
	url := fmt.Sprintf("%s/%s/@v/v%s/publish", c.baseURL, pkg.Name, pkg.Version)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("publish %s v%s: %w", pkg.Name, pkg.Version, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("publish %s v%s: status %d", pkg.Name, pkg.Version, resp.StatusCode)
	}
	c.cache.Add(pkg.Name+"@"+pkg.Version.String(), true)
	return nil
}
