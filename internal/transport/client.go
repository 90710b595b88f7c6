// Package transport executes JSON requests against the Guardian API with a
// per-attempt timeout, bounded exponential backoff, Retry-After handling and
// bearer-token refresh shared across concurrent requests.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/blndgs/guardian/guarderr"
)

const (
	DefaultMaxRetries     = 3
	DefaultBaseDelay      = time.Second
	DefaultRequestTimeout = 30 * time.Second

	// RefreshPath is the token refresh endpoint.
	RefreshPath = "/v1/auth/refresh"

	maxBodyBytes = 4 << 20
)

// Config tunes a Client.
type Config struct {
	BaseURL        string
	APIKey         string
	MaxRetries     int
	BaseDelay      time.Duration
	RequestTimeout time.Duration
	HTTPClient     *http.Client
	Logger         zerolog.Logger
	Debug          bool // log redacted request and response bodies
}

// Client is safe for concurrent use. The only state shared between requests
// is the session and the in-flight refresh.
type Client struct {
	baseURL        *url.URL
	apiKey         string
	maxRetries     int
	baseDelay      time.Duration
	requestTimeout time.Duration
	http           *http.Client
	log            zerolog.Logger
	debug          bool

	session *Session
	refresh singleflight.Group

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// New returns a Client for cfg. session may be nil when bearer auth is not
// used.
func New(cfg Config, session *Session) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, guarderr.InvalidInputf("transport.New", "api url must be an absolute http or https URL")
	}
	if cfg.MaxRetries < 0 {
		return nil, guarderr.InvalidInputf("transport.New", "max retries cannot be negative")
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultBaseDelay
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if session == nil {
		session = NewSession("", "")
	}

	return &Client{
		baseURL:        base,
		apiKey:         cfg.APIKey,
		maxRetries:     cfg.MaxRetries,
		baseDelay:      cfg.BaseDelay,
		requestTimeout: cfg.RequestTimeout,
		http:           cfg.HTTPClient,
		log:            cfg.Logger,
		debug:          cfg.Debug,
		session:        session,
		sleep:          sleepContext,
		now:            time.Now,
	}, nil
}

// Session returns the token session used by the client.
func (c *Client) Session() *Session {
	return c.session
}

// attemptResult is the outcome of one HTTP attempt.
type attemptResult struct {
	status     int
	body       []byte
	retryAfter string
	err        error // transport-level failure, no response
}

// Do sends one logical request. in is encoded as the JSON body when non-nil;
// a 2xx JSON response is decoded into out when out is non-nil. path may carry
// a query string.
//
// Transient failures (429, 408, 5xx, network errors, attempt timeouts) are
// retried up to MaxRetries times. A 401 triggers at most one token refresh
// for this request. Any other 4xx fails immediately.
func (c *Client) Do(ctx context.Context, method, path string, in, out any) error {
	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return guarderr.Wrap(guarderr.InvalidInput, method+" "+path, err, "failed to encode request")
		}
	}

	op := method + " " + pathOnly(path)
	requestID := uuid.NewString()
	log := c.log.With().Str("request_id", requestID).Str("method", method).Str("path", pathOnly(path)).Logger()

	exp := newBackOff(c.baseDelay)
	refreshed := false

	for attempt := 0; ; attempt++ {
		sentToken := c.session.AccessToken()
		res := c.attempt(ctx, method, path, payload, requestID, sentToken, log)
		attemptsTotal.WithLabelValues(method, statusClass(res.status)).Inc()

		if ctx.Err() != nil {
			return guarderr.Wrap(guarderr.Network, op, ctx.Err(), "request cancelled")
		}

		switch {
		case res.err == nil && res.status >= 200 && res.status < 300:
			return c.decode(op, res.body, out)

		case res.status == http.StatusUnauthorized:
			_, refreshToken := c.session.Tokens()
			if refreshed || refreshToken == "" {
				return c.apiError(op, path, res)
			}
			if err := c.refreshOnce(ctx, sentToken, log); err != nil {
				return err
			}
			refreshed = true
			continue

		case res.err == nil && !retryable(res.status):
			return c.apiError(op, path, res)
		}

		// transient
		wait := exp.NextBackOff() + jitter(c.baseDelay)
		if ra, ok := parseRetryAfter(res.retryAfter, c.now()); ok && ra > wait {
			wait = ra
		}
		if attempt >= c.maxRetries {
			log.Warn().Int("attempts", attempt+1).Int("status", res.status).Msg("giving up after retries")
			return c.lastError(op, path, res)
		}

		reason := statusClass(res.status)
		if res.status == http.StatusTooManyRequests {
			reason = "429"
		}
		retriesTotal.WithLabelValues(reason).Inc()
		log.Debug().Int("attempt", attempt+1).Int("status", res.status).Dur("wait", wait).Msg("retrying")

		if err := c.sleep(ctx, wait); err != nil {
			return guarderr.Wrap(guarderr.Network, op, err, "request cancelled")
		}
	}
}

func (c *Client) attempt(ctx context.Context, method, path string, payload []byte, requestID, token string, log zerolog.Logger) attemptResult {
	actx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(actx, method, c.baseURL.String()+path, body)
	if err != nil {
		return attemptResult{err: err}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", requestID)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	if c.debug {
		log.Debug().Str("body", Redact(payload)).Msg("HTTP request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return attemptResult{err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return attemptResult{err: err}
	}

	if c.debug {
		log.Debug().Int("status_code", resp.StatusCode).Str("body", Redact(respBody)).Msg("HTTP response")
	}

	return attemptResult{
		status:     resp.StatusCode,
		body:       respBody,
		retryAfter: resp.Header.Get("Retry-After"),
	}
}

// refreshOnce exchanges the refresh token for a new pair. Concurrent callers
// share one in-flight refresh; a caller whose 401 was caused by a token that
// has since been replaced skips the network call entirely.
func (c *Client) refreshOnce(ctx context.Context, staleToken string, log zerolog.Logger) error {
	ch := c.refresh.DoChan("refresh", func() (any, error) {
		if current := c.session.AccessToken(); current != "" && current != staleToken {
			return nil, nil
		}
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.requestTimeout)
		defer cancel()
		return nil, c.doRefresh(rctx, log)
	})

	select {
	case <-ctx.Done():
		return guarderr.Wrap(guarderr.Network, "refresh", ctx.Err(), "request cancelled")
	case res := <-ch:
		return res.Err
	}
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

func (c *Client) doRefresh(ctx context.Context, log zerolog.Logger) error {
	const op = "refresh"
	_, refreshToken := c.session.Tokens()
	if refreshToken == "" {
		return guarderr.Authf(op, "no refresh token")
	}

	payload, err := json.Marshal(refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return guarderr.Wrap(guarderr.Auth, op, err, "failed to encode refresh request")
	}
	res := c.attempt(ctx, http.MethodPost, RefreshPath, payload, uuid.NewString(), "", log)

	fail := func(err error) error {
		refreshesTotal.WithLabelValues("failure").Inc()
		c.session.Clear()
		log.Warn().Int("status", res.status).Msg("token refresh failed; session cleared")
		return err
	}

	if res.err != nil {
		return fail(guarderr.Wrap(guarderr.Auth, op, res.err, "token refresh failed"))
	}
	if res.status < 200 || res.status >= 300 {
		return fail(guarderr.HTTP(guarderr.Auth, op, res.status, RefreshPath, "token refresh rejected"))
	}

	var tokens refreshResponse
	if err := json.Unmarshal(res.body, &tokens); err != nil || tokens.AccessToken == "" {
		return fail(guarderr.Authf(op, "token refresh returned no access token"))
	}
	if tokens.RefreshToken == "" {
		tokens.RefreshToken = refreshToken
	}
	c.session.Set(tokens.AccessToken, tokens.RefreshToken)
	refreshesTotal.WithLabelValues("success").Inc()
	log.Debug().Msg("access token refreshed")
	return nil
}

func (c *Client) decode(op string, body []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return guarderr.Wrap(guarderr.API, op, err, "malformed response body")
	}
	return nil
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func (c *Client) apiError(op, path string, res attemptResult) error {
	var eb errorBody
	_ = json.Unmarshal(res.body, &eb)
	msg := eb.Message
	if msg == "" {
		msg = eb.Error
	}
	if msg == "" {
		msg = http.StatusText(res.status)
	}

	kind := guarderr.API
	if res.status == http.StatusUnauthorized || res.status == http.StatusForbidden {
		kind = guarderr.Auth
	}
	return guarderr.HTTP(kind, op, res.status, pathOnly(path), msg)
}

func (c *Client) lastError(op, path string, res attemptResult) error {
	if res.err != nil {
		msg := "request failed"
		if errors.Is(res.err, context.DeadlineExceeded) {
			msg = fmt.Sprintf("request timed out after %s", c.requestTimeout)
		}
		return guarderr.Wrap(guarderr.Network, op, res.err, "%s", msg)
	}
	return c.apiError(op, path, res)
}

func pathOnly(path string) string {
	p, _, _ := strings.Cut(path, "?")
	return p
}
