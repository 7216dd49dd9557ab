package markdown

import (
	"context"
	"fmt"
	"log"

	"golang.org/x/net/html"
)

// convertJiraTable maps a jira macro encountered in the body view to its
// positional counterpart in the export view, where the interactive
// markup has been replaced by a static table, and renders that.
//
// A missing counterpart (the export list is shorter than the body list)
// is a per-table error: the conversion continues and the table is
// replaced by an explicit marker, never silently dropped.
func (c *Converter) convertJiraTable(ctx context.Context, n *html.Node) string {
	index := -1
	for i, el := range c.bodyJiraTables {
		if el == n {
			index = i
			break
		}
	}

	if index < 0 || index >= len(c.exportJiraTables) {
		log.Printf("markdown: page %s: jira table %d has no counterpart in export rendering (%d captured)",
			c.page.ID, index, len(c.exportJiraTables))
		return fmt.Sprintf("\n<!-- Jira table %d: no matching table in export rendering -->\n\n", index)
	}

	export := c.exportJiraTables[index]
	if table := firstElement(export, "table"); table != nil {
		return c.convertTable(ctx, table)
	}
	// Error-message variant carries no table, just text.
	return c.renderChildren(ctx, export, nil)
}

func firstElement(root *html.Node, tag string) *html.Node {
	var found *html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode && n.Data == tag {
			found = n
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)
	return found
}
