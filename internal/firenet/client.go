package firenet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"stovelink/internal/logger"
	"stovelink/internal/models"
)

const (
	loginPath    = "/web/login"
	summaryPath  = "/web/summary"
	statusPath   = "/api/client/%s/status"
	controlsPath = "/api/client/%s/controls"

	// The login endpoint returns 200 with an error page on bad credentials;
	// a logout link is the only reliable success marker.
	loggedInMarker = "/logout"
	okMarker       = "OK"

	sessionCookieName = "connect.sid"

	maxStateAttempts   = 3
	maxControlAttempts = 3

	defaultStateRetryPause   = 2 * time.Second
	defaultControlRetryPause = 5 * time.Second
	defaultRequestTimeout    = 15 * time.Second
)

// Domain errors surfaced by the client.
var (
	ErrAuthenticationFailed = errors.New("rika firenet authentication failed")
	ErrCommandFailed        = errors.New("stove controls update failed after all attempts")
)

// Config carries the vendor endpoint and credentials. The retry pauses are
// tunable so tests don't have to sit through real backoffs; zero values mean
// the production defaults.
type Config struct {
	BaseURL           string
	Email             string
	Password          string
	StateRetryPause   time.Duration
	ControlRetryPause time.Duration
}

// Client owns the single authenticated session against the Rika Firenet
// cloud. It is driven by one goroutine at a time (the coordinator sweep);
// only the failure counter is safe for concurrent reads.
type Client struct {
	baseURL           string
	email             string
	password          string
	http              *http.Client
	log               *logger.Logger
	stateRetryPause   time.Duration
	controlRetryPause time.Duration
	failCount         atomic.Int64
}

func NewClient(cfg Config, log *logger.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("firenet base URL is empty")
	}
	if cfg.Email == "" || cfg.Password == "" {
		return nil, fmt.Errorf("firenet credentials are empty")
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	statePause := cfg.StateRetryPause
	if statePause == 0 {
		statePause = defaultStateRetryPause
	}
	controlPause := cfg.ControlRetryPause
	if controlPause == 0 {
		controlPause = defaultControlRetryPause
	}

	return &Client{
		baseURL:  base,
		email:    cfg.Email,
		password: cfg.Password,
		http: &http.Client{
			Jar:     jar,
			Timeout: defaultRequestTimeout,
		},
		log:               log,
		stateRetryPause:   statePause,
		controlRetryPause: controlPause,
	}, nil
}

// IsAuthenticated reports whether the session cookie is still usable. The
// cookie jar prunes expired cookies on read, so presence implies validity.
func (c *Client) IsAuthenticated() bool {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return false
	}
	for _, cookie := range c.http.Jar.Cookies(u) {
		if cookie.Name == sessionCookieName {
			return true
		}
	}
	return false
}

// Connect logs in if the session cookie is missing or expired. It is an
// idempotent no-op when already authenticated.
func (c *Client) Connect(ctx context.Context) error {
	if c.IsAuthenticated() {
		return nil
	}

	form := url.Values{
		"email":    {c.email},
		"password": {c.password},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+loginPath, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("login request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read login response: %w", err)
	}
	if !strings.Contains(string(body), loggedInMarker) {
		return ErrAuthenticationFailed
	}
	c.log.Infow("connected to rika firenet")
	return nil
}

// TestCredentials checks a credential pair against the vendor using a
// throwaway session, without touching an existing client.
func TestCredentials(ctx context.Context, baseURL, email, password string) error {
	log := logger.Get(logger.InfoLevel)
	client, err := NewClient(Config{BaseURL: baseURL, Email: email, Password: password}, log)
	if err != nil {
		return err
	}
	return client.Connect(ctx)
}

// FailureCount returns the number of failed control submissions since startup.
func (c *Client) FailureCount() int {
	return int(c.failCount.Load())
}

// GetStoveState fetches a fresh snapshot for one stove, retrying transient
// failures a bounded number of times.
func (c *Client) GetStoveState(ctx context.Context, stoveID string) (*models.StoveState, error) {
	var lastErr error
	for attempt := 1; attempt <= maxStateAttempts; attempt++ {
		st, err := c.fetchState(ctx, stoveID)
		if err == nil {
			return st, nil
		}
		lastErr = err
		c.log.Warnw("get_stove_state_failed", "stove", stoveID, "attempt", attempt, "max", maxStateAttempts, "err", err)
		if attempt < maxStateAttempts {
			if err := sleepCtx(ctx, c.stateRetryPause); err != nil {
				return nil, err
			}
		}
	}
	return nil, fmt.Errorf("get state for stove %s: %w", stoveID, lastErr)
}

func (c *Client) fetchState(ctx context.Context, stoveID string) (*models.StoveState, error) {
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}

	// nocache defeats the vendor-side response cache
	endpoint := fmt.Sprintf(c.baseURL+statusPath, url.PathEscape(stoveID)) +
		fmt.Sprintf("?nocache=%d", time.Now().Unix())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build status request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("status request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("status request: http %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read status response: %w", err)
	}

	st, warnings, err := models.DecodeStoveState(body)
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		c.log.Warnw("stove_state_field_invalid", "stove", stoveID, "field", w)
	}
	return st, nil
}

// sleepCtx waits for d or until ctx is canceled, so retry backoffs don't
// outlive a shutdown.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
