package firenet

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DiscoveredStove is one entry from the account's stove listing.
type DiscoveredStove struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DiscoverStoves scrapes the web summary page for the stoves registered to
// the account. The listing is an unordered list of anchors; the stable stove
// id is the trailing path segment of each link, the display name is the link
// text. Entries without a parsable id are skipped. Listing order is preserved.
func (c *Client) DiscoverStoves(ctx context.Context) ([]DiscoveredStove, error) {
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+summaryPath, nil)
	if err != nil {
		return nil, fmt.Errorf("build summary request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("summary request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("summary request: http %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse summary page: %w", err)
	}

	var stoves []DiscoveredStove
	doc.Find("ul#stoveList li a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		id := href[strings.LastIndex(href, "/")+1:]
		if id == "" {
			c.log.Warnw("stove_link_without_id", "href", href)
			return
		}
		stoves = append(stoves, DiscoveredStove{
			ID:   id,
			Name: strings.TrimSpace(sel.Text()),
		})
	})

	c.log.Infow("discovered stoves", "count", len(stoves))
	return stoves, nil
}
