// Package client executes idgames requests: cache lookup, HTTP fetch,
// parsing and storing, each run as a cancellable Task.
package client

import (
	"context"
	"net/http"
	"sync"

	"github.com/pders01/idgames/internal/cache"
	"github.com/pders01/idgames/internal/config"
	"github.com/pders01/idgames/internal/debuglog"
	"github.com/pders01/idgames/internal/idgames"
	"github.com/pders01/idgames/internal/metrics"
)

// ResponseListener is notified of every response fetched from the network
// and successfully parsed. Cached responses are not reported again.
type ResponseListener interface {
	OnResponse(req *idgames.Request, resp *idgames.Response)
}

// Option configures a Client.
type Option func(*Client)

// WithCache enables the response cache. Without it every request goes to
// the network and nothing is stored.
func WithCache(c *cache.Cache) Option {
	return func(cl *Client) { cl.cache = c }
}

// WithHTTPClient replaces the HTTP client used by the fetcher.
func WithHTTPClient(hc *http.Client) Option {
	return func(cl *Client) { cl.fetcher.client = hc }
}

// WithListener registers a response listener.
func WithListener(l ResponseListener) Option {
	return func(cl *Client) { cl.listeners = append(cl.listeners, l) }
}

type Client struct {
	cfg     *config.Config
	fetcher *Fetcher
	cache   *cache.Cache

	mu        sync.RWMutex
	listeners []ResponseListener

	// afterParse runs between parsing and storing; tests use it to cancel
	// at that point.
	afterParse func(*Task)
}

func New(cfg *config.Config, opts ...Option) *Client {
	if cfg == nil {
		cfg = config.Default()
	}
	c := &Client{
		cfg:     cfg,
		fetcher: NewFetcher(cfg),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Cache returns the configured cache, or nil.
func (c *Client) Cache() *cache.Cache {
	return c.cache
}

// Config returns the client's configuration.
func (c *Client) Config() *config.Config {
	return c.cfg
}

// AddListener registers l for future responses.
func (c *Client) AddListener(l ResponseListener) {
	c.mu.Lock()
	c.listeners = append(c.listeners, l)
	c.mu.Unlock()
}

// Submit starts executing req in the background and returns its task. The
// request is copied; later changes by the caller do not affect the task.
func (c *Client) Submit(req *idgames.Request, opts ...TaskOption) *Task {
	r := *req
	if r.BaseURL == "" {
		r.BaseURL = c.cfg.API.BaseURL
	}

	t := newTask(&r, opts...)
	t.state.Store(int32(StateRunning))
	go c.run(t)
	return t
}

// Do executes req and waits for the response.
func (c *Client) Do(ctx context.Context, req *idgames.Request) *idgames.Response {
	return c.Submit(req, WithContext(ctx)).Wait()
}

func (c *Client) run(t *Task) {
	log := debuglog.WithFields(map[string]any{"task": t.id, "action": t.req.Action.String()})

	resp := c.execute(t, log)

	switch {
	case resp.Cancelled():
		log.Debugf("cancelled")
		metrics.RecordTask(metrics.OutcomeCancelled)
	case resp.HasError():
		log.Infof("finished with error: %s: %s", resp.ErrorType, resp.ErrorMessage)
		metrics.RecordTask(metrics.OutcomeError)
	default:
		metrics.RecordTask(metrics.OutcomeCompleted)
	}

	t.finish(resp)
}

func (c *Client) execute(t *Task, log *debuglog.FieldLogger) *idgames.Response {
	req := t.req

	if t.cancelled() {
		return idgames.NewCancelledResponse()
	}

	if c.cache != nil {
		if resp, ok := c.cache.Get(req, req.MaxAge); ok {
			log.Debugf("served from cache")
			t.fromCache = true
			return resp
		}
	}

	url := req.URL()
	log.Debugf("fetching %s", url)

	httpResp, err := c.fetcher.Fetch(t.ctx, url)
	if err != nil {
		if t.cancelled() {
			return idgames.NewCancelledResponse()
		}
		log.Warnf("fetch failed: %v", err)
		return idgames.NewErrorResponse(idgames.ErrorTypeException, err.Error())
	}
	defer httpResp.Body.Close()

	parser := idgames.NewParser()
	parser.SingleFile = req.SingleFile()
	resp, err := parser.Parse(httpResp.Body)
	if t.cancelled() {
		return idgames.NewCancelledResponse()
	}
	if err != nil {
		log.Warnf("parse failed: %v", err)
		return idgames.NewErrorResponse(idgames.ErrorTypeParse, err.Error())
	}

	if c.afterParse != nil {
		c.afterParse(t)
	}
	if t.cancelled() {
		return idgames.NewCancelledResponse()
	}

	if c.cache != nil {
		if err := c.cache.Put(req, resp); err != nil {
			log.Errorf("storing response: %v", err)
			t.cacheErr = err
		}
	}

	c.notify(req, resp)
	return resp
}

func (c *Client) notify(req *idgames.Request, resp *idgames.Response) {
	c.mu.RLock()
	listeners := append([]ResponseListener(nil), c.listeners...)
	c.mu.RUnlock()

	for _, l := range listeners {
		l.OnResponse(req, resp)
	}
}

// ContentsRequest lists dir using the configured browse max age.
func (c *Client) ContentsRequest(dir string) *idgames.Request {
	r := idgames.NewContentsRequest(dir)
	r.MaxAge = c.cfg.MaxAge.Browse
	return r
}

func (c *Client) LatestFilesRequest() *idgames.Request {
	r := idgames.NewLatestFilesRequest(c.cfg.Limits.NewFiles)
	r.MaxAge = c.cfg.MaxAge.NewFiles
	return r
}

func (c *Client) LatestVotesRequest() *idgames.Request {
	r := idgames.NewLatestVotesRequest(c.cfg.Limits.NewVotes)
	r.MaxAge = c.cfg.MaxAge.NewVotes
	return r
}

func (c *Client) FileRequest(id int) *idgames.Request {
	r := idgames.NewFileRequest(id)
	r.MaxAge = c.cfg.MaxAge.Details
	return r
}

func (c *Client) SearchRequest(query string, category idgames.Category) *idgames.Request {
	r := idgames.NewSearchRequest(query, category)
	r.MaxAge = c.cfg.MaxAge.Search
	return r
}
