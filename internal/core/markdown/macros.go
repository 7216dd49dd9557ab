package markdown

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/smtools/confgraph/internal/core/drawio"
	"github.com/smtools/confgraph/internal/core/model"
)

// convertPlantUML extracts the literal diagram source for the Nth
// plantuml macro from the editor rendering, which is the only rendering
// carrying it, expands includes and wraps the result in a code fence.
// The occurrence counter advances only when a macro is found, matching
// encounter order between the two renderings.
func (c *Converter) convertPlantUML() string {
	macros := c.editorDoc.Find(`macro-table[data-macro-name="plantuml"]`)

	if c.plantumlCounter >= macros.Length() {
		log.Printf("markdown: page %s: plantuml macro %d not found in editor rendering",
			c.page.ID, c.plantumlCounter)
		return "\n<!-- PlantUML diagram (not found in editor rendering) -->\n\n"
	}

	macro := macros.Eq(c.plantumlCounter)
	c.plantumlCounter++

	pre := macro.Find("pre").First()
	if pre.Length() == 0 {
		log.Printf("markdown: page %s: plantuml macro %s has no plain-text body",
			c.page.ID, macro.AttrOr("data-macro-id", "unknown"))
		return "\n<!-- PlantUML diagram (no content found) -->\n\n"
	}

	content := strings.TrimSpace(pre.Text())
	if content == "" {
		return "\n<!-- PlantUML diagram (empty content) -->\n\n"
	}

	if c.opts.Expander != nil {
		content = c.opts.Expander.ExpandIncludes(content)
	}
	return "\n```plantuml\n" + content + "\n```\n\n"
}

// convertDrawio resolves the macro's attachment by ID or title and
// inlines its XML as a fenced block. Unresolved diagrams degrade to an
// HTML comment naming what was missing.
func (c *Converter) convertDrawio(ctx context.Context, n *html.Node) string {
	payload := drawio.ParseMacroData(goquery.NewDocumentFromNode(n).Selection)

	var attachment *model.Attachment
	if payload.AttachmentID != "" {
		attachment = c.page.GetAttachmentByID(payload.AttachmentID)
	}
	if attachment == nil && payload.DiagramName != "" {
		if matches := c.page.GetAttachmentsByTitle(payload.DiagramName); len(matches) > 0 {
			attachment = &matches[0]
		}
	}

	name := payload.DiagramName
	if name == "" {
		name = payload.AttachmentID
	}
	if name == "" {
		name = "unknown"
	}

	if attachment == nil {
		return fmt.Sprintf("\n<!-- Drawio diagram `%s` not found -->\n\n", name)
	}

	if c.opts.Attachments == nil {
		return fmt.Sprintf("\n<!-- Drawio diagram `%s` content unavailable -->\n\n", name)
	}
	content, err := c.opts.Attachments.AttachmentContent(ctx, *attachment)
	if err != nil || content == nil {
		if err != nil {
			log.Printf("markdown: page %s: failed to fetch drawio attachment %s: %v",
				c.page.ID, attachment.ID, err)
		}
		return fmt.Sprintf("\n<!-- Drawio diagram `%s` content unavailable -->\n\n", name)
	}

	return drawio.ContentToMarkdown(content)
}
