package model

// Direction classifies a link relative to the page it was extracted from.
type Direction string

const (
	DirectionIncoming         Direction = "incoming"
	DirectionOutgoingInternal Direction = "outgoing_internal"
	DirectionOutgoingExternal Direction = "outgoing_external"
)

// SpaceExternal is the sentinel space assigned to external links, which
// have no internal identity.
const SpaceExternal = "outgoing_external"

// RawLink is an anchor as captured from the viewinfo HTML before
// classification: the title of the panel it sits in, its visible text
// and its absolute href.
type RawLink struct {
	Block string
	Text  string
	Href  string
}

// Link is a classified reference to or from a page. For internal links
// at least one of PageID or Space+Title is populated after extraction;
// external links carry a synthetic PageID (md5 of the href) and the
// SpaceExternal sentinel.
type Link struct {
	PageID    string    `json:"page_id,omitempty"`
	Space     string    `json:"space,omitempty"`
	Title     string    `json:"title,omitempty"`
	Href      string    `json:"href"`
	Direction Direction `json:"direction"`
}

// LinkGraph is the result of link extraction for one page. Outgoing
// merges internal and external links; Direction on each entry keeps
// them distinguishable.
type LinkGraph struct {
	Incoming []Link `json:"incoming"`
	Outgoing []Link `json:"outgoing"`
}
