package links

import (
	"context"
	"log"

	"github.com/smtools/confgraph/internal/core/model"
)

// PageLookup is the collaborator used to fill in missing link identity.
// Both calls are best-effort: an error means the link keeps whatever
// identity extraction already found.
type PageLookup interface {
	PageMetadata(ctx context.Context, pageID string) (space, title string, err error)
	PageIDByTitle(ctx context.Context, space, title string) (string, error)
}

// Enrich fills the missing side of internal link identity via the lookup
// collaborator: a pageId gains space/title, a space+title gains the
// pageId. Lookup failures are logged and swallowed; the graph is always
// left in a usable state.
func Enrich(ctx context.Context, lookup PageLookup, graph *model.LinkGraph) {
	if lookup == nil {
		return
	}
	enrichList(ctx, lookup, graph.Incoming)
	enrichList(ctx, lookup, graph.Outgoing)
}

func enrichList(ctx context.Context, lookup PageLookup, list []model.Link) {
	for i := range list {
		link := &list[i]
		if link.Direction == model.DirectionOutgoingExternal {
			continue
		}

		if link.PageID != "" && (link.Space == "" || link.Title == "") {
			space, title, err := lookup.PageMetadata(ctx, link.PageID)
			if err != nil {
				log.Printf("links: metadata lookup for page %s failed: %v", link.PageID, err)
				continue
			}
			if link.Space == "" {
				link.Space = space
			}
			if link.Title == "" {
				link.Title = title
			}
			continue
		}

		if link.PageID == "" && link.Space != "" && link.Title != "" {
			id, err := lookup.PageIDByTitle(ctx, link.Space, link.Title)
			if err != nil {
				log.Printf("links: id lookup for %s/%s failed: %v", link.Space, link.Title, err)
				continue
			}
			link.PageID = id
		}
	}
}
