// Package authclient is a session-aware client for the identity API. It
// attaches the stored access token to every request and, when the API
// answers 401, exchanges the refresh token once and replays the request.
package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/siapee/siapee/pkg/httputil"
)

// State is the coordinator's view of the session.
type State int32

const (
	NoSession State = iota
	Authenticated
	Refreshing
)

func (s State) String() string {
	switch s {
	case Authenticated:
		return "authenticated"
	case Refreshing:
		return "refreshing"
	default:
		return "no_session"
	}
}

var (
	// ErrNoSession is returned when an operation needs tokens the store does not hold.
	ErrNoSession = errors.New("authclient: no session")
	// ErrRefreshFailed is returned when the refresh token could not be exchanged.
	ErrRefreshFailed = errors.New("authclient: token refresh failed")
)

// StatusError is a non-2xx answer from the identity API.
type StatusError struct {
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("identity api: status %d", e.StatusCode)
	if e.Code != "" {
		msg += fmt.Sprintf(" %s: %s", e.Code, e.Message)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// Doer sends a request. *httpclient.Client and *httpclient.CircuitBreakerClient
// both satisfy it.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Client coordinates tokens for one session.
type Client struct {
	baseURL  string
	doer     Doer
	store    Store
	logger   *slog.Logger
	group    singleflight.Group
	inflight atomic.Int32
}

// New creates a client for the identity API at baseURL.
func New(baseURL string, doer Doer, store Store, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		doer:    doer,
		store:   store,
		logger:  logger,
	}
}

// State reports whether a session exists and whether an exchange is in flight.
func (c *Client) State(ctx context.Context) State {
	if c.inflight.Load() > 0 {
		return Refreshing
	}
	sess, err := c.store.Load(ctx)
	if err != nil || sess.Empty() {
		return NoSession
	}
	return Authenticated
}

// Session returns the stored session.
func (c *Client) Session(ctx context.Context) (Session, error) {
	return c.store.Load(ctx)
}

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         User   `json:"user"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	AccessToken string `json:"accessToken"`
}

// Login exchanges credentials for a token pair and stores the new session.
// login may be an email address or a user name.
func (c *Client) Login(ctx context.Context, login, password string) (*Session, error) {
	resp, err := c.postJSON(ctx, "/auth/login", loginRequest{Login: login, Password: password})
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, newStatusError(resp, nil)
	}
	defer drain(resp)

	var out loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode login response: %w", err)
	}

	sess := Session{AccessToken: out.AccessToken, RefreshToken: out.RefreshToken, User: &out.User}
	if err := c.store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return &sess, nil
}

// Logout revokes the refresh token server-side and clears the store. The
// local session is cleared even when the revoke call fails.
func (c *Client) Logout(ctx context.Context) error {
	sess, err := c.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	if sess.RefreshToken != "" {
		resp, err := c.postJSON(ctx, "/auth/logout", refreshRequest{RefreshToken: sess.RefreshToken})
		if err != nil {
			c.logger.WarnContext(ctx, "logout request failed", slog.String("error", err.Error()))
		} else {
			drain(resp)
		}
	}

	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// LoadUser fetches GET /users/me and caches the result. On failure only the
// cached user is dropped; the tokens stay.
func (c *Client) LoadUser(ctx context.Context) (*User, error) {
	sess, err := c.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if sess.AccessToken == "" {
		return nil, ErrNoSession
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/users/me", nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.Do(ctx, req)
	if err != nil {
		c.dropUser(ctx)
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		c.dropUser(ctx)
		return nil, newStatusError(resp, nil)
	}
	defer drain(resp)

	var u User
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		c.dropUser(ctx)
		return nil, fmt.Errorf("decode user: %w", err)
	}

	sess, err = c.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !sess.Empty() {
		sess.User = &u
		if err := c.store.Save(ctx, sess); err != nil {
			return nil, fmt.Errorf("save session: %w", err)
		}
	}
	return &u, nil
}

// Do sends req with the stored access token. On a 401 the refresh token is
// exchanged once and the request replayed once with the new access token;
// whatever the replay returns, 401 included, is handed back unchanged. If the
// exchange fails the session is cleared and the original 401 is returned as a
// *StatusError wrapping ErrRefreshFailed or ErrNoSession.
//
// A request with a body is only replayed when req.GetBody is set.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	sess, err := c.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	resp, err := c.send(ctx, req, sess.AccessToken)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized || !replayable(req) {
		return resp, nil
	}

	access, err := c.refresh(ctx, sess)
	if err != nil {
		return nil, newStatusError(resp, err)
	}
	drain(resp)

	return c.send(ctx, req, access)
}

func (c *Client) send(ctx context.Context, req *http.Request, accessToken string) (*http.Response, error) {
	r := req.Clone(ctx)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("rewind request body: %w", err)
		}
		r.Body = body
	}

	if accessToken != "" {
		r.Header.Set("Authorization", "Bearer "+accessToken)
	} else {
		r.Header.Del("Authorization")
	}
	return c.doer.Do(ctx, r)
}

// refresh returns an access token newer than the one sent. Requests that
// fail together share a single exchange per refresh token.
func (c *Client) refresh(ctx context.Context, sent Session) (string, error) {
	if sent.RefreshToken == "" {
		c.clear(ctx, "")
		return "", ErrNoSession
	}

	if cur, err := c.store.Load(ctx); err == nil && cur.AccessToken != "" && cur.AccessToken != sent.AccessToken {
		return cur.AccessToken, nil
	}

	ch := c.group.DoChan(sent.RefreshToken, func() (any, error) {
		c.inflight.Add(1)
		defer c.inflight.Add(-1)
		return c.exchange(context.WithoutCancel(ctx), sent.RefreshToken)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *Client) exchange(ctx context.Context, refreshToken string) (string, error) {
	resp, err := c.postJSON(ctx, "/auth/refresh", refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		c.clear(ctx, refreshToken)
		return "", fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		c.clear(ctx, refreshToken)
		return "", fmt.Errorf("%w: status %d", ErrRefreshFailed, resp.StatusCode)
	}

	var out refreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || out.AccessToken == "" {
		c.clear(ctx, refreshToken)
		return "", fmt.Errorf("%w: malformed response", ErrRefreshFailed)
	}

	sess, err := c.store.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("load session: %w", err)
	}
	// A concurrent logout or login replaced the session; leave it alone.
	if sess.RefreshToken == refreshToken {
		sess.AccessToken = out.AccessToken
		if err := c.store.Save(ctx, sess); err != nil {
			return "", fmt.Errorf("save session: %w", err)
		}
	}

	c.logger.DebugContext(ctx, "access token refreshed")
	return out.AccessToken, nil
}

// clear drops the session after a failed refresh, unless a concurrent login
// or logout already replaced the refresh token that failed.
func (c *Client) clear(ctx context.Context, refreshToken string) {
	sess, err := c.store.Load(ctx)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to load session", slog.String("error", err.Error()))
		return
	}
	if sess.RefreshToken != refreshToken {
		return
	}

	c.logger.InfoContext(ctx, "session cleared after failed refresh")
	if err := c.store.Clear(ctx); err != nil {
		c.logger.ErrorContext(ctx, "failed to clear session", slog.String("error", err.Error()))
	}
}

func (c *Client) dropUser(ctx context.Context) {
	sess, err := c.store.Load(ctx)
	if err != nil || sess.User == nil {
		return
	}
	sess.User = nil
	if err := c.store.Save(ctx, sess); err != nil {
		c.logger.ErrorContext(ctx, "failed to drop cached user", slog.String("error", err.Error()))
	}
}

func (c *Client) postJSON(ctx context.Context, path string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doer.Do(ctx, req)
}

func replayable(req *http.Request) bool {
	return req.Body == nil || req.Body == http.NoBody || req.GetBody != nil
}

func newStatusError(resp *http.Response, cause error) *StatusError {
	defer drain(resp)
	se := &StatusError{StatusCode: resp.StatusCode, Err: cause}
	var env httputil.ErrorEnvelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&env); err == nil && env.Error != nil {
		se.Code = env.Error.Code
		se.Message = env.Error.Message
	}
	return se
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	_ = resp.Body.Close()
}
