package markdown

import (
	"context"
	"strings"

	"golang.org/x/net/html"
)

// convertTable renders a generic table. Rows are padded to a rectangle,
// the first row becomes a header only when every cell in it is a <th>,
// and the separator is always one triple-dash per column with no
// width-based alignment.
func (c *Converter) convertTable(ctx context.Context, table *html.Node) string {
	trs := collectElements(table, func(n *html.Node) bool { return n.Data == "tr" })

	var rows [][]*html.Node
	for _, tr := range trs {
		cells := collectElements(tr, func(n *html.Node) bool {
			return n.Data == "td" || n.Data == "th"
		})
		if len(cells) > 0 {
			rows = append(rows, cells)
		}
	}
	if len(rows) == 0 {
		return ""
	}

	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}

	converted := make([][]string, len(rows))
	for i, row := range rows {
		converted[i] = make([]string, width)
		for j := 0; j < width; j++ {
			if j < len(row) {
				converted[i][j] = c.renderCell(ctx, row[j])
			}
		}
	}

	hasHeader := true
	for _, cell := range rows[0] {
		if cell.Data != "th" {
			hasHeader = false
			break
		}
	}

	var header []string
	var data [][]string
	if hasHeader {
		header, data = converted[0], converted[1:]
	} else {
		header = make([]string, width)
		data = converted
	}

	dashes := make([]string, width)
	for i := range dashes {
		dashes[i] = "---"
	}
	sep := "| " + strings.Join(dashes, " | ") + " |"
	lines := []string{
		"| " + strings.Join(header, " | ") + " |",
		sep,
	}
	for _, row := range data {
		lines = append(lines, "| "+strings.Join(row, " | ")+" |")
	}

	return "\n" + strings.Join(lines, "\n") + "\n\n"
}

// renderCell converts a cell's content and flattens it to one line.
func (c *Converter) renderCell(ctx context.Context, cell *html.Node) string {
	text := c.renderChildren(ctx, cell, []string{"table"})
	text = strings.ReplaceAll(text, "\n", " ")
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
}

// collectElements gathers matching descendant elements without
// descending into nested tables, so inner tables stay inside their cell.
func collectElements(root *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if child.Type == html.ElementNode {
				if match(child) {
					out = append(out, child)
					continue
				}
				if child.Data == "table" {
					continue
				}
			}
			walk(child)
		}
	}
	walk(root)
	return out
}
