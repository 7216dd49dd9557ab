package markdown

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// breadcrumbs renders the ancestor chain as a linked trail. An ancestor
// that fails to resolve is skipped, not fatal.
func (c *Converter) breadcrumbs(ctx context.Context) string {
	if c.opts.Lookup == nil || len(c.page.Ancestors) == 0 {
		return ""
	}

	base := strings.TrimRight(c.opts.BaseURL, "/")
	var parts []string
	for _, ancestorID := range c.page.Ancestors {
		_, title, err := c.opts.Lookup.PageMetadata(ctx, ancestorID)
		if err != nil {
			log.Printf("markdown: page %s: skipping unresolvable ancestor %s: %v",
				c.page.ID, ancestorID, err)
			continue
		}
		url := fmt.Sprintf("%s/pages/viewpage.action?pageId=%s", base, ancestorID)
		parts = append(parts, fmt.Sprintf("[%s](%s)", title, url))
	}

	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, " > ") + "\n"
}
