package drawio

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/smtools/confgraph/internal/core/model"
)

// macroDataIDPrefix marks the hidden div carrying the base64 JSON payload
// in the body.view rendering.
const macroDataIDPrefix = "drawio-macro-data-"

var diagramNamePattern = regexp.MustCompile(`\|diagramName=(.+?)\|`)

// ParseMacroData extracts the attachment ID and diagram name from a
// draw.io macro element. It tries the hidden base64 JSON div first and
// falls back to the legacy |diagramName=...| parameter string found in
// the editor/older format. Both fields empty is a valid outcome.
func ParseMacroData(el *goquery.Selection) model.MacroPayload {
	var payload model.MacroPayload

	el.Find("div").EachWithBreak(func(_ int, div *goquery.Selection) bool {
		id, ok := div.Attr("id")
		if !ok || !strings.HasPrefix(id, macroDataIDPrefix) {
			return true
		}
		if raw := strings.TrimSpace(div.Text()); raw != "" {
			payload = decodePayload(raw)
		}
		return false
	})

	if payload.DiagramName == "" {
		if html, err := goquery.OuterHtml(el); err == nil {
			if m := diagramNamePattern.FindStringSubmatch(html); m != nil {
				payload.DiagramName = m[1]
			}
		}
	}

	return payload
}

func decodePayload(raw string) model.MacroPayload {
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		log.Printf("drawio: macro data is not valid base64: %v", err)
		return model.MacroPayload{}
	}

	// attId shows up both as a string and as a number depending on the
	// Confluence version, so decode loosely.
	var data map[string]any
	if err := json.Unmarshal(decoded, &data); err != nil {
		log.Printf("drawio: macro data is not valid JSON: %v", err)
		return model.MacroPayload{}
	}

	return model.MacroPayload{
		AttachmentID: stringField(data, "attId"),
		DiagramName:  stringField(data, "diagramName"),
	}
}

func stringField(data map[string]any, key string) string {
	switch v := data[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

// ContentToMarkdown wraps draw.io attachment bytes in an xml code fence.
// Invalid UTF-8 bytes are replaced rather than rejected.
func ContentToMarkdown(content []byte) string {
	xml := strings.ToValidUTF8(string(content), "�")
	return "\n```xml\n" + strings.TrimSpace(xml) + "\n```\n\n"
}

// ReferencedAttachments reports which of the page's attachments the page
// content actually uses: either a draw.io macro payload names them (by
// attachment ID or diagram name), or the export rendering embeds their
// escaped file name. Attachments outside this set are stale uploads.
func ReferencedAttachments(page *model.Page) []model.Attachment {
	ids := make(map[string]bool)
	names := make(map[string]bool)

	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.BodyView)); err == nil {
		doc.Find(`div[data-macro-name="drawio"]`).Each(func(_ int, el *goquery.Selection) {
			payload := ParseMacroData(el)
			if payload.AttachmentID != "" {
				ids[payload.AttachmentID] = true
			}
			if payload.DiagramName != "" {
				names[payload.DiagramName] = true
			}
		})
	}

	var out []model.Attachment
	for _, att := range page.Attachments {
		switch {
		case ids[att.ID], names[att.Title]:
			out = append(out, att)
		case att.Title != "" && strings.Contains(page.BodyExport,
			strings.ReplaceAll(att.Title, " ", "%20")):
			out = append(out, att)
		}
	}
	return out
}
