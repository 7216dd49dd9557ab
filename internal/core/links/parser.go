package links

import (
	"crypto/md5"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/smtools/confgraph/internal/core/model"
)

const (
	blockOutsidePanel = "[outside panel]"
	blockUntitled     = "[untitled block]"
	emptyText         = "[empty text]"
)

// Parser extracts a link graph from the HTML of a page's viewinfo
// rendering, where incoming and outgoing references are grouped in
// titled panel containers.
type Parser struct {
	baseURL      string
	internalHost string
}

func NewParser(baseURL string) *Parser {
	baseURL = strings.TrimRight(baseURL, "/")
	host := ""
	if u, err := url.Parse(baseURL); err == nil {
		host = strings.ToLower(u.Host)
	}
	return &Parser{baseURL: baseURL, internalHost: host}
}

// Parse scans every anchor in the viewinfo HTML, resolves hrefs against
// currentURL, classifies each anchor by its panel title and splits the
// result into incoming and outgoing lists. Anchors outside the incoming
// and outgoing panels are dropped.
func (p *Parser) Parse(htmlContent, currentURL string) (*model.LinkGraph, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse viewinfo HTML: %w", err)
	}

	base, err := url.Parse(currentURL)
	if err != nil {
		return nil, fmt.Errorf("invalid current URL %q: %w", currentURL, err)
	}

	var raw []model.RawLink
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref).String()

		text := strings.TrimSpace(a.Text())
		if text == "" {
			text = emptyText
		}

		raw = append(raw, model.RawLink{
			Block: p.panelTitle(a),
			Text:  text,
			Href:  abs,
		})
	})

	return p.classify(raw), nil
}

// panelTitle walks up to the nearest panel container and reads its title.
func (p *Parser) panelTitle(a *goquery.Selection) string {
	panel := a.ParentsFiltered("div.basicPanelContainer").First()
	if panel.Length() == 0 {
		return blockOutsidePanel
	}
	title := panel.Find("div.basicPanelTitle").First()
	if title.Length() == 0 {
		return blockUntitled
	}
	return strings.TrimSpace(title.Text())
}

func (p *Parser) classify(raw []model.RawLink) *model.LinkGraph {
	graph := &model.LinkGraph{}

	for _, link := range raw {
		block := strings.ToLower(link.Block)

		var direction model.Direction
		switch {
		case strings.Contains(block, "incoming links"):
			direction = model.DirectionIncoming
		case strings.Contains(block, "outgoing links"):
			direction = model.DirectionOutgoingInternal
			if u, err := url.Parse(link.Href); err != nil ||
				!strings.Contains(strings.ToLower(u.Host), p.internalHost) {
				direction = model.DirectionOutgoingExternal
			}
		default:
			// Not a link panel we care about.
			continue
		}

		out := parseURLMetadata(link.Href, link.Text)
		out.Href = link.Href
		out.Direction = direction

		if direction == model.DirectionOutgoingExternal {
			// External pages have no internal identity; give them a
			// stable synthetic one so the sink can deduplicate.
			out.PageID = ExternalID(link.Href)
			out.Space = model.SpaceExternal
		}

		if direction == model.DirectionIncoming {
			graph.Incoming = append(graph.Incoming, out)
		} else {
			graph.Outgoing = append(graph.Outgoing, out)
		}
	}

	return graph
}

// parseURLMetadata extracts page identity from the href shape. Three
// shapes are recognized: viewpage.action?pageId=N, /display/SPACE/TITLE,
// and everything else (anchor text only).
func parseURLMetadata(href, text string) model.Link {
	link := model.Link{Title: text}

	u, err := url.Parse(href)
	if err != nil {
		return link
	}

	switch {
	case strings.HasSuffix(u.Path, "/viewpage.action"):
		if id := u.Query().Get("pageId"); id != "" {
			link.PageID = id
		}

	case strings.Contains(u.EscapedPath(), "/display/"):
		// u.Path is already percent-decoded; extracting from it would
		// decode twice and turn an encoded plus into a space.
		esc := u.EscapedPath()
		rest := esc[strings.Index(esc, "/display/")+len("/display/"):]
		parts := strings.SplitN(rest, "/", 2)
		link.Space = parts[0]
		if len(parts) > 1 {
			// QueryUnescape resolves %XX escapes and folds '+' into a
			// space, so a literal plus encoded as %2B survives.
			if title, err := url.QueryUnescape(parts[1]); err == nil {
				link.Title = title
			} else {
				link.Title = parts[1]
			}
		}
	}

	return link
}

// ExternalID derives the deterministic synthetic identifier assigned to
// external links: the md5 hex digest of the href. Stable across runs so
// re-linking stays idempotent.
func ExternalID(href string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(href)))
}
