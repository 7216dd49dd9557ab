package confluence

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// ResolvePageURL turns a Confluence page URL into a page ID. It
// understands the two URL shapes the server produces: viewpage.action
// with a pageId query parameter, and pretty /display/SPACE/Title paths
// (which need a title lookup against the server).
func ResolvePageURL(ctx context.Context, lookup PageLookup, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse page URL %q: %w", rawURL, err)
	}

	if strings.HasSuffix(u.Path, "/viewpage.action") {
		id := u.Query().Get("pageId")
		if id == "" {
			return "", fmt.Errorf("page URL %q has no pageId parameter", rawURL)
		}
		return id, nil
	}

	// Work on the still-encoded path: u.Path is already percent-decoded
	// and QueryUnescape over it would decode a second time.
	if idx := strings.Index(u.EscapedPath(), "/display/"); idx >= 0 {
		rest := u.EscapedPath()[idx+len("/display/"):]
		parts := strings.SplitN(rest, "/", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return "", fmt.Errorf("page URL %q has no space and title", rawURL)
		}
		title, err := url.QueryUnescape(parts[1])
		if err != nil {
			title = parts[1]
		}
		id, err := lookup.PageIDByTitle(ctx, parts[0], title)
		if err != nil {
			return "", fmt.Errorf("failed to resolve page URL %q: %w", rawURL, err)
		}
		return id, nil
	}

	return "", fmt.Errorf("unrecognized page URL %q", rawURL)
}
