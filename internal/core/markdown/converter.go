package markdown

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/smtools/confgraph/internal/core/model"
)

// AttachmentFetcher retrieves raw attachment bytes. A nil response with
// no error means the content is unavailable.
type AttachmentFetcher interface {
	AttachmentContent(ctx context.Context, att model.Attachment) ([]byte, error)
}

// PageLookup resolves a page ID to its space and title. Used for
// breadcrumbs; failures skip the ancestor.
type PageLookup interface {
	PageMetadata(ctx context.Context, pageID string) (space, title string, err error)
}

// IncludeExpander resolves !include directives in PlantUML source.
type IncludeExpander interface {
	ExpandIncludes(content string) string
}

// Options carries the collaborators the converter needs beyond the page
// itself. Any of them may be nil; the corresponding output degrades to a
// placeholder instead of failing.
type Options struct {
	BaseURL     string
	Lookup      PageLookup
	Attachments AttachmentFetcher
	Expander    IncludeExpander
}

// Converter turns one page's parallel renderings into a Markdown
// document. It holds per-conversion state only (the inline-diagram
// counter and the two jira-table correlation lists), so conversions of
// different pages can run in parallel.
type Converter struct {
	page *model.Page
	opts Options

	bodyDoc   *goquery.Document
	exportDoc *goquery.Document
	editorDoc *goquery.Document

	// Same-order element lists captured from the two renderings. The
	// interactive jira markup in the body view is replaced by a static
	// table only in the export view, so the Nth body macro maps to the
	// Nth export table.
	bodyJiraTables   []*html.Node
	exportJiraTables []*html.Node

	plantumlCounter int
}

func NewConverter(page *model.Page, opts Options) (*Converter, error) {
	bodyDoc, err := goquery.NewDocumentFromReader(strings.NewReader(page.BodyView))
	if err != nil {
		return nil, fmt.Errorf("failed to parse body view: %w", err)
	}
	exportDoc, err := goquery.NewDocumentFromReader(strings.NewReader(page.BodyExport))
	if err != nil {
		return nil, fmt.Errorf("failed to parse export view: %w", err)
	}
	// The editor rendering is an XML fragment without a root element.
	// Macro tables are renamed before parsing: the HTML5 algorithm would
	// otherwise foster-parent the <pre> holding the diagram source out
	// of its <table> container.
	editorDoc, err := goquery.NewDocumentFromReader(strings.NewReader("<root>" + neutralizeEditorTables(page.Editor) + "</root>"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse editor rendering: %w", err)
	}

	c := &Converter{
		page:      page,
		opts:      opts,
		bodyDoc:   bodyDoc,
		exportDoc: exportDoc,
		editorDoc: editorDoc,
	}

	bodyDoc.Find(`div[data-macro-name="jira"]`).Each(func(_ int, s *goquery.Selection) {
		c.bodyJiraTables = append(c.bodyJiraTables, s.Get(0))
	})
	exportDoc.Find("div.jira-table, div.jim-error-message-table").Each(func(_ int, s *goquery.Selection) {
		c.exportJiraTables = append(c.exportJiraTables, s.Get(0))
	})

	return c, nil
}

// Markdown renders the whole document: breadcrumbs, title heading, body.
func (c *Converter) Markdown(ctx context.Context) string {
	var b strings.Builder

	if crumbs := c.breadcrumbs(ctx); crumbs != "" {
		b.WriteString(crumbs)
	}
	if c.page.Title != "" {
		b.WriteString("# " + c.page.Title + "\n")
	}

	body := c.bodyDoc.Find("body")
	for _, n := range body.Nodes {
		b.WriteString(c.renderChildren(ctx, n, nil))
	}

	return normalize(b.String())
}

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	newlineRun    = regexp.MustCompile(`\n{3,}`)

	editorTableTags = strings.NewReplacer("<table", "<macro-table", "</table>", "</macro-table>")
)

func neutralizeEditorTables(editor string) string {
	return editorTableTags.Replace(editor)
}

// normalize collapses runs of blank lines so every block is separated by
// exactly one.
func normalize(md string) string {
	md = newlineRun.ReplaceAllString(md, "\n\n")
	return strings.TrimLeft(md, "\n")
}

func (c *Converter) renderChildren(ctx context.Context, n *html.Node, parents []string) string {
	var b strings.Builder
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		b.WriteString(c.renderNode(ctx, child, parents))
	}
	return b.String()
}

func (c *Converter) renderNode(ctx context.Context, n *html.Node, parents []string) string {
	switch n.Type {
	case html.TextNode:
		if hasParent(parents, "pre") {
			return n.Data
		}
		return whitespaceRun.ReplaceAllString(n.Data, " ")
	case html.ElementNode:
		return c.renderElement(ctx, n, parents)
	default:
		return ""
	}
}

func (c *Converter) renderElement(ctx context.Context, n *html.Node, parents []string) string {
	// Macro containers dispatch before generic tag handling.
	switch attr(n, "data-macro-name") {
	case "drawio":
		return c.convertDrawio(ctx, n)
	case "plantuml":
		return c.convertPlantUML()
	case "jira":
		if n.Data == "div" {
			return c.convertJiraTable(ctx, n)
		}
		// Inline jira issue macro: keep its rendered text.
		return c.renderChildren(ctx, n, parents)
	}

	inner := func() string {
		return c.renderChildren(ctx, n, append(parents, n.Data))
	}

	switch n.Data {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		level := int(n.Data[1] - '0')
		text := strings.TrimSpace(inner())
		if text == "" {
			return ""
		}
		return "\n" + strings.Repeat("#", level) + " " + text + "\n\n"

	case "p":
		text := strings.TrimSpace(inner())
		if text == "" {
			return ""
		}
		return "\n" + text + "\n\n"

	case "br":
		return "\n"

	case "hr":
		return "\n---\n\n"

	case "strong", "b":
		if text := strings.TrimSpace(inner()); text != "" {
			return "**" + text + "**"
		}
		return ""

	case "em", "i":
		if text := strings.TrimSpace(inner()); text != "" {
			return "*" + text + "*"
		}
		return ""

	case "code":
		if hasParent(parents, "pre") {
			return inner()
		}
		return "`" + strings.TrimSpace(inner()) + "`"

	case "pre":
		text := strings.Trim(c.renderChildren(ctx, n, append(parents, "pre")), "\n")
		return "\n```\n" + text + "\n```\n\n"

	case "a":
		return c.convertAnchor(ctx, n, parents)

	case "img":
		return "![" + attr(n, "alt") + "](" + NormalizeHref(attr(n, "src")) + ")"

	case "ul", "ol":
		return "\n" + inner() + "\n"

	case "li":
		return c.convertListItem(ctx, n, parents)

	case "blockquote":
		text := strings.TrimSpace(inner())
		if text == "" {
			return ""
		}
		var quoted []string
		for _, line := range strings.Split(text, "\n") {
			quoted = append(quoted, "> "+line)
		}
		return "\n" + strings.Join(quoted, "\n") + "\n\n"

	case "table":
		return c.convertTable(ctx, n)

	case "script", "style", "head", "title":
		return ""

	default:
		// div, span, section, tbody and anything unrecognized are
		// transparent containers.
		return inner()
	}
}

func (c *Converter) convertAnchor(ctx context.Context, n *html.Node, parents []string) string {
	text := strings.TrimSpace(c.renderChildren(ctx, n, append(parents, "a")))
	href := NormalizeHref(attr(n, "href"))
	if href == "" {
		return text
	}
	if text == "" {
		text = href
	}
	return "[" + text + "](" + href + ")"
}

func (c *Converter) convertListItem(ctx context.Context, n *html.Node, parents []string) string {
	depth := 0
	for _, p := range parents {
		if p == "ul" || p == "ol" {
			depth++
		}
	}
	if depth > 0 {
		depth--
	}
	indent := strings.Repeat("  ", depth)

	marker := "- "
	if n.Parent != nil && n.Parent.Data == "ol" {
		pos := 1
		for sib := n.Parent.FirstChild; sib != nil && sib != n; sib = sib.NextSibling {
			if sib.Type == html.ElementNode && sib.Data == "li" {
				pos++
			}
		}
		marker = fmt.Sprintf("%d. ", pos)
	}

	text := strings.TrimSpace(c.renderChildren(ctx, n, append(parents, "li")))
	return indent + marker + text + "\n"
}

// NormalizeHref forces forward slashes in emitted paths regardless of
// the host operating system.
func NormalizeHref(href string) string {
	return strings.ReplaceAll(href, "\\", "/")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasParent(parents []string, tag string) bool {
	for _, p := range parents {
		if p == tag {
			return true
		}
	}
	return false
}
