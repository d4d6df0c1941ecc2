// Package wordpress is a small REST client for creating draft posts. The
// endpoint path varies with how the site routes the REST API, so it is probed
// once and cached; searches and creates authenticate with an application
// password.
package wordpress

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/paperchase/relay/internal/config"
	"github.com/paperchase/relay/internal/errors"
)

const (
	requestTimeout = 30 * time.Second
	probeTimeout   = 10 * time.Second

	searchPageSize = 5
)

// Client talks to one WordPress site.
type Client struct {
	http *http.Client
	cfg  config.WordPressConfig
	log  *zap.SugaredLogger

	mu       sync.Mutex
	postsURL string
}

func New(cfg config.WordPressConfig, log *zap.SugaredLogger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("wordpress base URL not configured")
	}
	if cfg.Username == "" || cfg.AppPassword == "" {
		return nil, errors.New("wordpress credentials not configured")
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		http: &http.Client{Timeout: requestTimeout},
		cfg:  cfg,
		log:  log,
	}, nil
}

// endpoint returns the posts collection URL, probing the known routing
// variants on first use. A 401 still identifies the route; bad credentials
// surface on the first real call instead.
func (c *Client) endpoint(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.postsURL != "" {
		return c.postsURL, nil
	}

	candidates := []string{
		c.cfg.BaseURL + "/wp-json/wp/v2/posts",
		c.cfg.BaseURL + "/index.php/wp-json/wp/v2/posts",
		c.cfg.BaseURL + "/?rest_route=/wp/v2/posts",
	}
	for _, u := range candidates {
		probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
		status, err := c.probe(probeCtx, u)
		cancel()
		if err != nil {
			continue
		}
		if status == http.StatusOK || status == http.StatusUnauthorized {
			c.log.Debugw("wordpress endpoint detected", "url", u)
			c.postsURL = u
			return u, nil
		}
	}
	return "", errors.Wrapf(errors.ErrFetch, "no wordpress REST endpoint reachable under %s", c.cfg.BaseURL)
}

func (c *Client) probe(ctx context.Context, u string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, err
	}
	req.SetBasicAuth(c.cfg.Username, c.cfg.AppPassword)
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}

type post struct {
	ID    int `json:"id"`
	Title struct {
		Rendered string `json:"rendered"`
	} `json:"title"`
}

type postPayload struct {
	Title         string `json:"title"`
	Content       string `json:"content"`
	Status        string `json:"status"`
	Categories    []int  `json:"categories,omitempty"`
	Tags          []int  `json:"tags,omitempty"`
	FeaturedMedia int    `json:"featured_media,omitempty"`
}

// FindPostByTitle looks for a post whose rendered title matches exactly, any
// status. Returns 0 when none exists.
func (c *Client) FindPostByTitle(ctx context.Context, title string) (int, error) {
	posts, err := c.search(ctx, title)
	if err != nil {
		return 0, err
	}
	for _, p := range posts {
		if p.Title.Rendered == title {
			return p.ID, nil
		}
	}
	return 0, nil
}

func (c *Client) search(ctx context.Context, title string) ([]post, error) {
	base, err := c.endpoint(ctx)
	if err != nil {
		return nil, err
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, errors.Wrapf(err, "parse endpoint %s", base)
	}
	q := u.Query()
	q.Set("search", title)
	q.Set("per_page", fmt.Sprint(searchPageSize))
	q.Set("status", "any")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "build search request")
	}
	req.SetBasicAuth(c.cfg.Username, c.cfg.AppPassword)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, wrapTransport(err, "search posts")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrapf(errors.ErrFetch, "search posts: status %d: %s", resp.StatusCode, apiError(resp.Body))
	}

	var posts []post
	if err := json.NewDecoder(resp.Body).Decode(&posts); err != nil {
		return nil, errors.Wrap(err, "decode search response")
	}
	return posts, nil
}

// CreateDraft posts title and rendered HTML as a new draft and returns the
// post ID. Category, tag and featured-media IDs come from config when set.
func (c *Client) CreateDraft(ctx context.Context, title, html string) (int, error) {
	base, err := c.endpoint(ctx)
	if err != nil {
		return 0, err
	}

	payload := postPayload{
		Title:         title,
		Content:       html,
		Status:        "draft",
		Categories:    c.cfg.CategoryIDs,
		Tags:          c.cfg.TagIDs,
		FeaturedMedia: c.cfg.FeaturedMediaID,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, errors.Wrap(err, "encode post")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base, bytes.NewReader(body))
	if err != nil {
		return 0, errors.Wrap(err, "build create request")
	}
	req.SetBasicAuth(c.cfg.Username, c.cfg.AppPassword)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, wrapTransport(err, "create post")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return 0, errors.Wrapf(errors.ErrFetch, "create post: status %d: %s", resp.StatusCode, apiError(resp.Body))
	}

	var created post
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return 0, errors.Wrap(err, "decode create response")
	}
	if created.ID == 0 {
		return 0, errors.New("create post: response carries no ID")
	}
	c.log.Infow("wordpress draft created", "post_id", created.ID, "title", title)
	return created.ID, nil
}

// apiError extracts the code/message pair WordPress returns on failure, or
// the first bytes of the body when it is not the usual JSON shape.
func apiError(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(raw) == 0 {
		return "no response body"
	}
	var e struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &e) == nil && e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return strings.TrimSpace(string(raw))
}

func wrapTransport(err error, op string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Wrapf(errors.ErrTimeout, "%s: %v", op, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errors.Wrapf(errors.ErrTimeout, "%s: %v", op, err)
	}
	return errors.Wrapf(errors.ErrFetch, "%s: %v", op, err)
}
