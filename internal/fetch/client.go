// Package fetch is the one HTTP surface for content sources. It bounds every
// read, pins a browser User-Agent (several of the watched sites reject the Go
// default), and maps transport failures onto the pipeline error taxonomy.
package fetch

import (
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/paperchase/relay/internal/errors"
)

const (
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	// maxBodyBytes bounds in-memory page and feed reads.
	maxBodyBytes int64 = 10 << 20
	// maxDownloadBytes bounds document downloads (PDFs run large).
	maxDownloadBytes int64 = 100 << 20

	maxRedirects = 10
)

type Client struct {
	http      *http.Client
	userAgent string
}

// NewClient builds a fetcher whose requests are additionally bounded by
// timeout, independent of the caller's context deadline.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		http: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return errors.Newf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		userAgent: defaultUserAgent,
	}
}

// Get retrieves url into memory, capped at maxBodyBytes. Failures come back
// as ErrFetch, or ErrTimeout when the deadline expired.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.do(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, wrapTransport(err, url)
	}
	if int64(len(body)) > maxBodyBytes {
		return nil, errors.Wrapf(errors.ErrFetch, "get %s: body exceeds %d bytes", url, maxBodyBytes)
	}
	return body, nil
}

// Download streams url into a temp file in dir and returns its path. The
// caller owns the file and removes it when done; on error nothing is left
// behind.
func (c *Client) Download(ctx context.Context, url, dir, pattern string) (string, error) {
	resp, err := c.do(ctx, url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	tmp, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", errors.Wrapf(err, "create download file for %s", url)
	}

	_, err = io.Copy(tmp, io.LimitReader(resp.Body, maxDownloadBytes))
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return "", wrapTransport(err, url)
	}
	return tmp.Name(), nil
}

func (c *Client) do(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrFetch, "build request for %s: %v", url, err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, wrapTransport(err, url)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, errors.Wrapf(errors.ErrFetch, "get %s: status %d", url, resp.StatusCode)
	}
	return resp, nil
}

func wrapTransport(err error, url string) error {
	if isTimeout(err) {
		return errors.Wrapf(errors.ErrTimeout, "get %s: %v", url, err)
	}
	return errors.Wrapf(errors.ErrFetch, "get %s: %v", url, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
