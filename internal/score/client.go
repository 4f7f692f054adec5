// Package score talks to the remote game backend: score submission with a
// server-side additive increment, session freshness checks, and the public
// leaderboard.
package score

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/vovakirdan/undersea/internal/storage"
)

// DefaultAPIBase is the local development backend.
const DefaultAPIBase = "http://127.0.0.1:5000/api"

// sessionCookie is the backend's session cookie name.
const sessionCookie = "connect.sid"

// ErrNeedsLogin means the cached session is absent or no longer valid. The
// caller must re-authenticate; the invalid user record has already been
// cleared.
var ErrNeedsLogin = errors.New("score: session expired, login required")

// Client submits score deltas and reads the leaderboard.
// Concurrent submissions are joined into a single network call.
type Client struct {
	baseURL string
	http    *http.Client
	store   *storage.Store
	logger  *log.Logger
	group   singleflight.Group
}

// NewClient creates a client for the backend at baseURL. The store holds the
// cached user record and session; a nil logger uses the default.
func NewClient(baseURL string, store *storage.Store, logger *log.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIBase
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		store:   store,
		logger:  logger,
	}
}

// Profile is the authenticated user as reported by the backend.
type Profile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Score    int    `json:"score"`
	Avatar   string `json:"avatar"`
}

// SubmitResult reports an acknowledged submission.
type SubmitResult struct {
	Added    int `json:"added"`
	NewTotal int `json:"score"`
}

// LeaderboardEntry is one leaderboard row. The email arrives masked.
type LeaderboardEntry struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Score    int    `json:"score"`
	Avatar   string `json:"avatar"`
}

// Me checks session freshness against the backend. A rejected or missing
// session clears the cached user and returns ErrNeedsLogin.
func (c *Client) Me(ctx context.Context) (Profile, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/auth/me", nil)
	if err != nil {
		return Profile{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Profile{}, fmt.Errorf("score: session check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.dropUser()
		return Profile{}, ErrNeedsLogin
	}
	if resp.StatusCode != http.StatusOK {
		return Profile{}, fmt.Errorf("score: session check returned %d", resp.StatusCode)
	}

	var p Profile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return Profile{}, fmt.Errorf("score: cannot decode session check response: %w", err)
	}
	return p, nil
}

// SubmitDelta sends the unsubmitted score increment to the backend. A
// non-positive delta is a no-op. Concurrent calls share one network call and
// one result. Failures are reported, never retried here; the caller decides
// whether to try again.
func (c *Client) SubmitDelta(ctx context.Context, delta int) (SubmitResult, error) {
	if delta <= 0 {
		return SubmitResult{}, nil
	}

	v, err, shared := c.group.Do("submit", func() (any, error) {
		return c.submit(ctx, delta)
	})
	if shared {
		c.logger.Debug("joined in-flight score submission")
	}
	if err != nil {
		return SubmitResult{}, err
	}
	return v.(SubmitResult), nil
}

func (c *Client) submit(ctx context.Context, delta int) (SubmitResult, error) {
	// The session may have expired since login; check before mutating
	// server state.
	if _, err := c.Me(ctx); err != nil {
		return SubmitResult{}, err
	}

	body, err := json.Marshal(map[string]int{"score": delta})
	if err != nil {
		return SubmitResult{}, fmt.Errorf("score: cannot encode submission: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/game/score", bytes.NewReader(body))
	if err != nil {
		return SubmitResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("score: submission failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.dropUser()
		return SubmitResult{}, ErrNeedsLogin
	}
	if resp.StatusCode != http.StatusOK {
		return SubmitResult{}, fmt.Errorf("score: submission rejected: %s", errorMessage(resp))
	}

	var result SubmitResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return SubmitResult{}, fmt.Errorf("score: cannot decode submission response: %w", err)
	}

	c.updateCachedTotal(result.NewTotal)
	c.logger.Info("score submitted", "added", result.Added, "total", result.NewTotal)
	return result, nil
}

// Leaderboard fetches all players sorted by score descending, then username
// ascending. The backend already sorts; the order is re-applied locally so a
// misbehaving backend cannot scramble the display.
func (c *Client) Leaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/game/leaderboard", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("score: leaderboard fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("score: leaderboard fetch returned %d", resp.StatusCode)
	}

	var entries []LeaderboardEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("score: cannot decode leaderboard: %w", err)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Username < entries[j].Username
	})
	return entries, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("score: cannot build request: %w", err)
	}
	if c.store != nil {
		if user, err := c.store.LoadUser(); err == nil && user.Session != "" {
			req.AddCookie(&http.Cookie{Name: sessionCookie, Value: user.Session})
		}
	}
	return req, nil
}

func (c *Client) dropUser() {
	if c.store == nil {
		return
	}
	if err := c.store.ClearUser(); err != nil {
		c.logger.Warn("cannot clear cached user", "error", err)
	}
}

func (c *Client) updateCachedTotal(total int) {
	if c.store == nil {
		return
	}
	user, err := c.store.LoadUser()
	if err != nil {
		return
	}
	user.Score = total
	if err := c.store.SaveUser(user); err != nil {
		c.logger.Warn("cannot update cached user total", "error", err)
	}
}

func errorMessage(resp *http.Response) string {
	var payload struct {
		Msg string `json:"msg"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil || payload.Msg == "" {
		return fmt.Sprintf("status %d", resp.StatusCode)
	}
	return fmt.Sprintf("%s (status %d)", payload.Msg, resp.StatusCode)
}
