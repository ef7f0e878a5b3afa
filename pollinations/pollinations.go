// Package pollinations is a mural Generator backed by the pollinations.ai
// image endpoint: a GET of /prompt/<text> that answers with image bytes.
package pollinations

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/phanxgames/mural"
)

const defaultBaseURL = "https://image.pollinations.ai"

// Options configures a Client. The zero value is usable.
type Options struct {
	// BaseURL overrides the service endpoint (useful for tests).
	BaseURL string
	// Model selects the generation model; the service default when empty.
	Model string
	// Size is the requested square image size in pixels; defaults to 768.
	Size int
	// Timeout bounds one generation call so a dead peer can't leave a
	// placeholder loading forever. Defaults to 2 minutes.
	Timeout time.Duration
}

// Client implements mural.Generator over HTTP. Safe for concurrent use.
type Client struct {
	opts Options
	http *http.Client

	mu  sync.Mutex
	rng *rand.Rand
}

// New builds a client.
func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.Size <= 0 {
		opts.Size = 768
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Minute
	}
	return &Client{
		opts: opts,
		http: &http.Client{Timeout: opts.Timeout},
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Generate fetches one image for the prompt plus style modifier. A reference
// image, when present, is forwarded as a data URL so the service runs in
// image-to-image mode. Failures come back as a Failure result; transport
// errors come back as errors. The orchestrator treats both identically.
func (c *Client) Generate(ctx context.Context, req mural.Request) (mural.Result, error) {
	prompt := req.Prompt
	if req.Style != "" {
		prompt += ", " + req.Style
	}

	c.mu.Lock()
	seed := c.rng.Int63n(1 << 31)
	c.mu.Unlock()

	q := url.Values{}
	q.Set("width", fmt.Sprint(c.opts.Size))
	q.Set("height", fmt.Sprint(c.opts.Size))
	q.Set("seed", fmt.Sprint(seed))
	q.Set("nologo", "true")
	if c.opts.Model != "" {
		q.Set("model", c.opts.Model)
	}
	if len(req.Reference) > 0 {
		q.Set("image", "data:image/png;base64,"+base64.StdEncoding.EncodeToString(req.Reference))
	}

	u := c.opts.BaseURL + "/prompt/" + url.PathEscape(prompt) + "?" + q.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return mural.Result{}, fmt.Errorf("pollinations: build request: %w", err)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return mural.Result{}, fmt.Errorf("pollinations: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return mural.Result{Failure: fmt.Sprintf("status %d", resp.StatusCode)}, nil
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		return mural.Result{Failure: "non-image response: " + ct}, nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return mural.Result{}, fmt.Errorf("pollinations: read body: %w", err)
	}
	if len(data) == 0 {
		return mural.Result{Failure: "empty response"}, nil
	}
	return mural.Result{Image: data}, nil
}
