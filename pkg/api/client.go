// Package api is a generic typed client for one REST resource. It unifies
// fetch-one, fetch-all and write calls behind a single type and handles
// session expiry uniformly.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sigtrail/sigtrail/pkg/metrics"
	"github.com/sigtrail/sigtrail/pkg/session"
	"github.com/sigtrail/sigtrail/pkg/webservice"
	"github.com/tidwall/gjson"
)

const (
	defaultTimeout = 30 * time.Second
	// maxResults bounds the per-request result history.
	maxResults = 64
)

// SessionExpiredHandler is told when an unauthorized response has cleared
// the session. It owns whatever re-initialisation the application needs.
type SessionExpiredHandler interface {
	OnExpired(ctx context.Context)
}

// ExpiredFunc adapts a function to SessionExpiredHandler.
type ExpiredFunc func(ctx context.Context)

func (f ExpiredFunc) OnExpired(ctx context.Context) { f(ctx) }

// Transport is the subset of webservice.WebService the client uses.
type Transport interface {
	Get(ctx context.Context) (*webservice.Response, error)
	Post(ctx context.Context, body string) (*webservice.Response, error)
}

// TransportFactory builds a Transport for one call.
type TransportFactory func(cfg webservice.Config) Transport

func defaultTransport(cfg webservice.Config) Transport {
	return webservice.New(cfg)
}

type options struct {
	tokenRequired bool
	trustedHost   bool
	timeout       time.Duration
	expired       SessionExpiredHandler
	log           Logger
	metrics       *metrics.ClientMetrics
	transport     TransportFactory
}

// Option configures a Client.
type Option func(*options)

// WithoutToken lets calls go out without a session token.
func WithoutToken() Option {
	return func(o *options) { o.tokenRequired = false }
}

// WithTrustedHost only attaches the token to targets under the registrable
// domain of the session address.
func WithTrustedHost() Option {
	return func(o *options) { o.trustedHost = true }
}

func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

func WithExpiredHandler(h SessionExpiredHandler) Option {
	return func(o *options) { o.expired = h }
}

func WithLogger(l Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

func WithMetrics(m *metrics.ClientMetrics) Option {
	return func(o *options) { o.metrics = m }
}

func WithTransport(f TransportFactory) Option {
	return func(o *options) {
		if f != nil {
			o.transport = f
		}
	}
}

// Client accesses the resource rooted at basePath. T is the type written,
// RT the type read back.
type Client[T any, RT any] struct {
	basePath string
	auth     session.AuthContext
	opts     options

	mu       sync.Mutex
	inFlight int
	state    State[RT]
	results  map[uuid.UUID]Result[RT]
	order    []uuid.UUID
}

func New[T any, RT any](basePath string, auth session.AuthContext, opts ...Option) *Client[T, RT] {
	o := options{
		tokenRequired: true,
		timeout:       defaultTimeout,
		log:           nopLogger{},
		transport:     defaultTransport,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Client[T, RT]{
		basePath: strings.TrimRight(basePath, "/"),
		auth:     auth,
		opts:     o,
		results:  make(map[uuid.UUID]Result[RT]),
	}
}

func (c *Client[T, RT]) BasePath() string { return c.basePath }

// State returns a copy of the aggregate state.
func (c *Client[T, RT]) State() State[RT] {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state
	s.Loading = c.inFlight > 0
	s.Entities = append([]RT(nil), c.state.Entities...)
	return s
}

func (c *Client[T, RT]) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight > 0
}

// Result returns a completed result by request id.
func (c *Client[T, RT]) Result(id uuid.UUID) (Result[RT], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.results[id]
	return r, ok
}

// FetchAll reads the whole collection at the base path.
func (c *Client[T, RT]) FetchAll(ctx context.Context) Result[RT] {
	return c.read(ctx, OpFetchAll, c.basePath)
}

// Fetch reads the resource at {basePath}/{id}.
func (c *Client[T, RT]) Fetch(ctx context.Context, id any) Result[RT] {
	return c.read(ctx, OpFetch, c.resourcePath(id))
}

// FetchAsync runs Fetch in the background. The caller may stop listening at
// any time; the channel is buffered so the call never blocks on delivery.
func (c *Client[T, RT]) FetchAsync(ctx context.Context, id any) <-chan Result[RT] {
	ch := make(chan Result[RT], 1)
	go func() {
		ch <- c.Fetch(ctx, id)
	}()
	return ch
}

// Submit writes entity with the session token. It reports true for any 2xx
// response, an empty body included, and false for a non-2xx response even
// when its body is JSON, or when the entity cannot be encoded.
func (c *Client[T, RT]) Submit(ctx context.Context, entity T) bool {
	return c.Write(ctx, entity, SessionToken()).OK()
}

// SubmitWithToken writes entity with an explicit token and returns the
// parsed response. It returns nil on the failures Submit reports as false,
// and for a 2xx response without a body.
func (c *Client[T, RT]) SubmitWithToken(ctx context.Context, entity T, token string) *RT {
	res := c.Write(ctx, entity, ExplicitToken(token))
	if !res.OK() {
		return nil
	}
	return res.Entity
}

// Write posts entity as JSON to the base path.
func (c *Client[T, RT]) Write(ctx context.Context, entity T, src TokenSource) Result[RT] {
	res, done := c.begin(OpWrite, c.basePath)

	body, err := json.Marshal(entity)
	if err != nil {
		res.Err = &TransportError{Op: "encode", Cause: err}
		c.finish(ctx, res, done, nil)
		return res
	}

	ws := c.opts.transport(c.transportConfig(res.Target, c.writeToken(src)))
	callCtx, cancel := context.WithTimeout(ctx, c.opts.timeout)
	resp, err := ws.Post(callCtx, string(body))
	cancel()

	if err != nil {
		res.Err = classify("post", err)
		c.finish(ctx, res, done, nil)
		return res
	}

	res.setResponse(resp)
	if len(bytes.TrimSpace(resp.Body)) > 0 {
		var out RT
		if err := json.Unmarshal(resp.Body, &out); err != nil {
			res.Err = &TransportError{Op: "decode", Cause: err}
			c.finish(ctx, res, done, nil)
			return res
		}
		res.Entity = &out
	}

	c.finish(ctx, res, done, func(s *State[RT]) {
		s.Err = nil
		s.Status = res.Status
		s.StatusText = res.StatusText
		s.Entity = res.Entity
	})
	return res
}

func (c *Client[T, RT]) read(ctx context.Context, op Op, target string) Result[RT] {
	res, done := c.begin(op, target)

	ws := c.opts.transport(c.transportConfig(target, c.auth.Token()))
	callCtx, cancel := context.WithTimeout(ctx, c.opts.timeout)
	resp, err := ws.Get(callCtx)
	cancel()

	if err != nil {
		res.Err = classify("get", err)
		c.finish(ctx, res, done, nil)
		return res
	}

	res.setResponse(resp)
	if err := decodeCollection(resp.Body, &res); err != nil {
		res.Err = &TransportError{Op: "decode", Cause: err}
		c.finish(ctx, res, done, nil)
		return res
	}

	// Entity is left as it was.
	c.finish(ctx, res, done, func(s *State[RT]) {
		s.Data = res.Data
		s.Entities = res.Entities
	})
	return res
}

func (c *Client[T, RT]) begin(op Op, target string) (Result[RT], func(string)) {
	c.mu.Lock()
	c.inFlight++
	c.mu.Unlock()

	c.opts.log.Debugf("%s %s", op, target)
	return Result[RT]{
		RequestID: uuid.New(),
		Op:        op,
		Target:    target,
		StartedAt: time.Now(),
	}, c.opts.metrics.Start(string(op))
}

// finish records res, merges it into the aggregate state and clears the
// loading flag. A nil merge records only the error.
func (c *Client[T, RT]) finish(ctx context.Context, res Result[RT], done func(string), merge func(*State[RT])) {
	res.FinishedAt = time.Now()

	if res.Err != nil {
		if IsUnauthorized(res.Err) {
			c.expireSession(ctx)
		} else {
			c.opts.log.Warnf("%s %s failed: %v", res.Op, res.Target, res.Err)
		}
	}

	c.mu.Lock()
	if merge != nil {
		merge(&c.state)
	} else {
		c.state.Err = res.Err
	}
	c.remember(res)
	c.inFlight--
	c.mu.Unlock()

	done(KindOf(res.Err))
}

func (c *Client[T, RT]) remember(res Result[RT]) {
	c.results[res.RequestID] = res
	c.order = append(c.order, res.RequestID)
	if len(c.order) > maxResults {
		delete(c.results, c.order[0])
		c.order = c.order[1:]
	}
}

// expireSession clears the stored address and token, then hands control to
// the expiry handler.
func (c *Client[T, RT]) expireSession(ctx context.Context) {
	c.opts.log.Warnf("Session expired, clearing stored credentials")
	c.opts.metrics.SessionExpired()

	if err := c.auth.RemoveAddress(); err != nil {
		c.opts.log.Errorf("Could not clear session address: %v", err)
	}
	if err := c.auth.RemoveToken(); err != nil {
		c.opts.log.Errorf("Could not clear session token: %v", err)
	}
	if c.opts.expired != nil {
		c.opts.expired.OnExpired(context.WithoutCancel(ctx))
	}
}

func (c *Client[T, RT]) writeToken(src TokenSource) string {
	if !c.opts.tokenRequired {
		return ""
	}
	if src.explicit && src.token != "" {
		return src.token
	}
	return c.auth.Token()
}

func (c *Client[T, RT]) transportConfig(target, token string) webservice.Config {
	cfg := webservice.Config{
		TargetPath:    target,
		Token:         token,
		TokenRequired: c.opts.tokenRequired,
	}
	if c.opts.trustedHost {
		cfg.TrustedHost = c.auth.Address()
	}
	return cfg
}

func (c *Client[T, RT]) resourcePath(id any) string {
	return c.basePath + "/" + url.PathEscape(fmt.Sprint(id))
}

func (r *Result[RT]) setResponse(resp *webservice.Response) {
	r.Status = resp.StatusCode
	r.StatusText = resp.Status
	r.Data = json.RawMessage(resp.Body)
}

// decodeCollection fills Entities from a JSON array, or from a single
// object, which also becomes the call's Entity.
func decodeCollection[RT any](body []byte, res *Result[RT]) error {
	if len(bytes.TrimSpace(body)) == 0 {
		res.Entities = []RT{}
		return nil
	}
	if !gjson.ValidBytes(body) {
		return fmt.Errorf("invalid JSON response")
	}
	parsed := gjson.ParseBytes(body)
	if parsed.Type == gjson.Null {
		res.Entities = []RT{}
		return nil
	}
	if parsed.IsArray() {
		var list []RT
		if err := json.Unmarshal(body, &list); err != nil {
			return err
		}
		if list == nil {
			list = []RT{}
		}
		res.Entities = list
		return nil
	}

	var one RT
	if err := json.Unmarshal(body, &one); err != nil {
		return err
	}
	res.Entity = &one
	res.Entities = []RT{one}
	return nil
}
