package firenet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"stovelink/internal/models"
)

// SetStoveControls posts a control diff for one stove. The vendor rejects
// writes carrying a stale revision token, so each retry first refreshes the
// revision from a fresh state read. On success the caller gets a freshly
// fetched snapshot, which is the only way to observe the server-assigned new
// revision. After the attempt budget is exhausted the pending change stays
// with the caller for the next poll cycle.
func (c *Client) SetStoveControls(ctx context.Context, stoveID string, controls models.Controls) (*models.StoveState, error) {
	if controls.Revision == nil {
		if st, err := c.GetStoveState(ctx, stoveID); err == nil && st.Controls.Revision != nil {
			controls.Revision = st.Controls.Revision
		} else {
			// The write may still be accepted; send without it.
			c.log.Warnw("revision_unavailable", "stove", stoveID)
		}
	}

	for attempt := 1; attempt <= maxControlAttempts; attempt++ {
		c.log.Infow("updating stove controls", "stove", stoveID, "attempt", attempt, "max", maxControlAttempts)

		err := c.postControls(ctx, stoveID, controls)
		if err == nil {
			c.failCount.Store(0)
			return c.GetStoveState(ctx, stoveID)
		}
		c.log.Warnw("stove_controls_attempt_failed", "stove", stoveID, "attempt", attempt, "err", err)
		c.failCount.Add(1)

		if attempt == maxControlAttempts {
			break
		}
		if err := sleepCtx(ctx, c.controlRetryPause); err != nil {
			return nil, err
		}
		if st, err := c.GetStoveState(ctx, stoveID); err == nil && st.Controls.Revision != nil {
			controls.Revision = st.Controls.Revision
		} else {
			c.log.Warnw("revision_refresh_failed", "stove", stoveID)
		}
	}

	return nil, fmt.Errorf("stove %s: %w", stoveID, ErrCommandFailed)
}

func (c *Client) postControls(ctx context.Context, stoveID string, controls models.Controls) error {
	if err := c.Connect(ctx); err != nil {
		return err
	}

	payload, err := json.Marshal(controls)
	if err != nil {
		return fmt.Errorf("marshal controls: %w", err)
	}

	endpoint := fmt.Sprintf(c.baseURL+controlsPath, url.PathEscape(stoveID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build controls request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("controls request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read controls response: %w", err)
	}
	// Like login, success is signalled in the body, not the status code.
	if !strings.Contains(string(body), okMarker) {
		return fmt.Errorf("controls update rejected: http %d body %q", resp.StatusCode, truncate(string(body), 200))
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
