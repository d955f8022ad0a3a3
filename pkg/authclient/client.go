package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrSessionExpired reports that the session could not be renewed; the
// local session has been cleared and the user must sign in again.
var ErrSessionExpired = errors.New("authclient: session expired")

// APIError is any non-2xx response the pipeline does not recover from.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("authclient: api error %d: %s", e.Status, e.Message)
}

type Config struct {
	BaseURL string
	Store   *SessionStore
	// HTTPClient defaults to a 30s-timeout client.
	HTTPClient *http.Client
	// OnSessionExpired fires after the session was cleared because a
	// refresh failed or no refresh token was available. The UI layer uses
	// it to navigate to the unauthenticated entry point.
	OnSessionExpired func()
	Logger           *zap.Logger
}

// Client wraps the backend's /auth surface. Each call carries an explicit
// attempt count; on a 401 the pipeline silently rotates the credentials and
// replays the call at most once, so feature code never sees the rotation.
type Client struct {
	baseURL          string
	httpClient       *http.Client
	store            *SessionStore
	onSessionExpired func()
	logger           *zap.Logger
}

func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("authclient: BaseURL is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("authclient: Store is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:          strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:       httpClient,
		store:            cfg.Store,
		onSessionExpired: cfg.OnSessionExpired,
		logger:           logger,
	}, nil
}

func (c *Client) Store() *SessionStore {
	return c.store
}

type authPayload struct {
	User         *User  `json:"user"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

type refreshPayload struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// LoginWithGoogle exchanges a Google ID token for a backend session and
// persists it.
func (c *Client) LoginWithGoogle(ctx context.Context, idToken string) (Session, error) {
	var payload authPayload
	if err := c.do(ctx, http.MethodPost, "/auth/google", map[string]string{"idToken": idToken}, &payload, false); err != nil {
		return Session{}, err
	}
	return c.adoptSession(payload), nil
}

func (c *Client) Login(ctx context.Context, email, password string) (Session, error) {
	var payload authPayload
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &payload, false); err != nil {
		return Session{}, err
	}
	return c.adoptSession(payload), nil
}

type RegisterParams struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

func (c *Client) Register(ctx context.Context, params RegisterParams) (Session, error) {
	var payload authPayload
	if err := c.do(ctx, http.MethodPost, "/auth/register", params, &payload, false); err != nil {
		return Session{}, err
	}
	return c.adoptSession(payload), nil
}

// Me fetches the current profile and refreshes the cached user.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &user, true); err != nil {
		return nil, err
	}
	c.store.SetUser(&user)
	return &user, nil
}

func (c *Client) CompleteOnboarding(ctx context.Context) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodPatch, "/auth/onboarding", nil, &user, true); err != nil {
		return nil, err
	}
	c.store.SetUser(&user)
	return &user, nil
}

// Logout revokes the refresh credential server-side and clears the local
// session. The local clear happens even when the server call fails: logout
// must never strand the client in a half-authenticated state.
func (c *Client) Logout(ctx context.Context) error {
	refreshToken := c.store.Current().RefreshToken
	defer c.store.Clear()

	if refreshToken == "" {
		return nil
	}
	return c.do(ctx, http.MethodPost, "/auth/logout", map[string]string{"refreshToken": refreshToken}, nil, false)
}

// Do issues an authenticated request against an arbitrary backend path,
// running the same silent-refresh pipeline as the typed calls. out may be
// nil when the response body is irrelevant.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	return c.do(ctx, method, path, body, out, true)
}

// call is one logical request. Attempts is the structural guard for the
// at-most-once retry: it only ever moves 0 -> 1.
type call struct {
	method   string
	path     string
	body     []byte
	authed   bool
	attempts int
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any, authed bool) error {
	var body []byte
	if payload != nil {
		var err error
		if body, err = json.Marshal(payload); err != nil {
			return fmt.Errorf("authclient: marshal request: %w", err)
		}
	}

	cl := &call{method: method, path: path, body: body, authed: authed}
	for {
		status, data, err := c.send(ctx, cl)
		if err != nil {
			// transport failures pass through uninterpreted
			return err
		}

		if status == http.StatusUnauthorized && cl.authed {
			if cl.attempts > 0 {
				// second 401 after a successful refresh is a hard failure
				return apiError(status, data)
			}
			cl.attempts++

			refreshToken := c.store.Current().RefreshToken
			if refreshToken == "" {
				c.expireSession()
				return ErrSessionExpired
			}
			if err := c.refreshSession(ctx, refreshToken); err != nil {
				c.logger.Warn("silent refresh failed", zap.Error(err))
				c.expireSession()
				return ErrSessionExpired
			}
			c.logger.Debug("silent refresh succeeded, replaying request", zap.String("path", cl.path))
			continue
		}

		if status < 200 || status > 299 {
			return apiError(status, data)
		}
		return unwrap(data, out)
	}
}

func (c *Client) send(ctx context.Context, cl *call) (int, []byte, error) {
	var reader io.Reader
	if cl.body != nil {
		reader = bytes.NewReader(cl.body)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, c.baseURL+cl.path, reader)
	if err != nil {
		return 0, nil, err
	}
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.store.Current().AccessToken; token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, data, nil
}

// refreshSession redeems the refresh credential. Rotation means the old
// token is dead either way: on success both credentials are replaced.
func (c *Client) refreshSession(ctx context.Context, refreshToken string) error {
	cl := &call{
		method: http.MethodPost,
		path:   "/auth/refresh",
		body:   mustMarshal(map[string]string{"refreshToken": refreshToken}),
	}
	status, data, err := c.send(ctx, cl)
	if err != nil {
		return err
	}
	if status < 200 || status > 299 {
		return apiError(status, data)
	}

	var payload refreshPayload
	if err := unwrap(data, &payload); err != nil {
		return err
	}
	c.store.SetTokens(payload.AccessToken, payload.RefreshToken)
	return nil
}

func (c *Client) adoptSession(payload authPayload) Session {
	c.store.Set(Session{
		User:         payload.User,
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
	})
	return c.store.Current()
}

func (c *Client) expireSession() {
	c.store.Clear()
	if c.onSessionExpired != nil {
		c.onSessionExpired()
	}
}

// unwrap strips the {data, success, timestamp} envelope. Bodies without the
// envelope decode as-is, so the client also works against plain endpoints.
func unwrap(data []byte, out any) error {
	if out == nil || len(data) == 0 {
		return nil
	}

	var env struct {
		Data    json.RawMessage `json:"data"`
		Success *bool           `json:"success"`
	}
	if err := json.Unmarshal(data, &env); err == nil && env.Success != nil {
		return json.Unmarshal(env.Data, out)
	}
	return json.Unmarshal(data, out)
}

func apiError(status int, data []byte) error {
	var body struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(data, &body)
	if body.Error == "" {
		body.Error = http.StatusText(status)
	}
	return &APIError{Status: status, Message: body.Error}
}

func mustMarshal(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
