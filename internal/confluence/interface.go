package confluence

import (
	"context"

	"github.com/smtools/confgraph/internal/core/model"
)

// PageFetcher retrieves the full page representation needed for
// conversion. Not-found and access-denied conditions yield a degraded
// placeholder page, not an error, so batch processing keeps going.
type PageFetcher interface {
	GetPage(ctx context.Context, pageID string) (*model.Page, error)
}

// LinkInfoFetcher retrieves the viewinfo rendering that groups a page's
// incoming and outgoing references, plus the URL it was fetched from for
// resolving relative hrefs.
type LinkInfoFetcher interface {
	GetLinkInfo(ctx context.Context, pageID string) (html string, fetchedURL string, err error)
}

// PageLookup is the best-effort identity lookup used for link
// enrichment and breadcrumb resolution.
type PageLookup interface {
	PageMetadata(ctx context.Context, pageID string) (space, title string, err error)
	PageIDByTitle(ctx context.Context, space, title string) (string, error)
}

// AttachmentFetcher downloads raw attachment bytes.
type AttachmentFetcher interface {
	AttachmentContent(ctx context.Context, att model.Attachment) ([]byte, error)
}
