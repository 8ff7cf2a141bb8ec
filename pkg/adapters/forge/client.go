// Package forge implements the HostingClient port against a
// GitHub-compatible REST API.
package forge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aretw0/caravel/pkg/domain"
	"github.com/aretw0/caravel/pkg/ports"
)

// Client talks to one repository on the hosting platform.
type Client struct {
	apiURL  string
	htmlURL string
	owner   string
	repo    string
	token   string
	base    string
	http    *http.Client
}

var _ ports.HostingClient = (*Client)(nil)

// Option configures the client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client; callers use this to
// install timeouts.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithBaseBranch sets the branch release requests target (default "main").
func WithBaseBranch(branch string) Option {
	return func(c *Client) { c.base = branch }
}

// New creates a forge client. apiURL is the REST endpoint, htmlURL the
// browse endpoint used only for rendering compare/tag links.
func New(apiURL, htmlURL, owner, repo, token string, opts ...Option) *Client {
	c := &Client{
		apiURL:  strings.TrimRight(apiURL, "/"),
		htmlURL: strings.TrimRight(htmlURL, "/"),
		owner:   owner,
		repo:    repo,
		token:   token,
		base:    "main",
		http:    http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type pullResponse struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	Body    string `json:"body"`
	HTMLURL string `json:"html_url"`
	State   string `json:"state"`
	Head    struct {
		Ref string `json:"ref"`
	} `json:"head"`
	Labels []struct {
		Name string `json:"name"`
	} `json:"labels"`
}

func (p pullResponse) toDomain() *domain.OutgoingRequest {
	req := &domain.OutgoingRequest{
		Number:  p.Number,
		Branch:  p.Head.Ref,
		Title:   p.Title,
		Body:    p.Body,
		HTMLURL: p.HTMLURL,
		Open:    p.State == "open",
	}
	for _, l := range p.Labels {
		req.Labels = append(req.Labels, l.Name)
	}
	return req
}

func (c *Client) do(ctx context.Context, method, path string, payload, result any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("forge %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("forge %s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func (c *Client) repoPath(suffix string) string {
	return fmt.Sprintf("/repos/%s/%s%s", c.owner, c.repo, suffix)
}

// FindOpenReleaseRequest scans the open requests for one whose head branch
// carries the release branch prefix.
func (c *Client) FindOpenReleaseRequest(ctx context.Context, branchPrefix string) (*domain.OutgoingRequest, error) {
	var pulls []pullResponse
	if err := c.do(ctx, http.MethodGet, c.repoPath("/pulls?state=open&per_page=100"), nil, &pulls); err != nil {
		return nil, err
	}
	for _, p := range pulls {
		if strings.HasPrefix(p.Head.Ref, branchPrefix) {
			return p.toDomain(), nil
		}
	}
	return nil, nil
}

func (c *Client) CreateRequest(ctx context.Context, title, body, branch string, labels []string) (*domain.OutgoingRequest, error) {
	payload := map[string]any{
		"title": title,
		"body":  body,
		"head":  branch,
		"base":  c.base,
	}
	var created pullResponse
	if err := c.do(ctx, http.MethodPost, c.repoPath("/pulls"), payload, &created); err != nil {
		return nil, err
	}
	if len(labels) > 0 {
		if err := c.setLabels(ctx, created.Number, labels); err != nil {
			return nil, err
		}
	}
	req := created.toDomain()
	req.Labels = labels
	return req, nil
}

func (c *Client) UpdateRequest(ctx context.Context, number int, title, body string, labels []string) error {
	payload := map[string]any{"title": title, "body": body}
	if err := c.do(ctx, http.MethodPatch, c.repoPath(fmt.Sprintf("/pulls/%d", number)), payload, nil); err != nil {
		return err
	}
	return c.setLabels(ctx, number, labels)
}

func (c *Client) setLabels(ctx context.Context, number int, labels []string) error {
	payload := map[string]any{"labels": labels}
	return c.do(ctx, http.MethodPut, c.repoPath(fmt.Sprintf("/issues/%d/labels", number)), payload, nil)
}

// EnsureLabelsExist creates any label the repository does not have yet. A
// rejection from the platform is reported per label.
func (c *Client) EnsureLabelsExist(ctx context.Context, names []string) error {
	var existing []struct {
		Name string `json:"name"`
	}
	if err := c.do(ctx, http.MethodGet, c.repoPath("/labels?per_page=100"), nil, &existing); err != nil {
		return err
	}
	have := make(map[string]bool, len(existing))
	for _, l := range existing {
		have[l.Name] = true
	}
	for _, name := range names {
		if have[name] {
			continue
		}
		payload := map[string]any{"name": name}
		if err := c.do(ctx, http.MethodPost, c.repoPath("/labels"), payload, nil); err != nil {
			return &domain.LabelError{Label: name, Reason: err.Error()}
		}
	}
	return nil
}

func (c *Client) CreateRelease(ctx context.Context, tag, name, body string) error {
	payload := map[string]any{
		"tag_name": tag,
		"name":     name,
		"body":     body,
	}
	return c.do(ctx, http.MethodPost, c.repoPath("/releases"), payload, nil)
}

func (c *Client) CompareURL(prevTag, nextTag string) string {
	return fmt.Sprintf("%s/%s/%s/compare/%s...%s", c.htmlURL, c.owner, c.repo, prevTag, nextTag)
}

func (c *Client) TagURL(tag string) string {
	return fmt.Sprintf("%s/%s/%s/releases/tag/%s", c.htmlURL, c.owner, c.repo, tag)
}
