package model

import "time"

// Page bundles the parallel renderings of one Confluence page plus the
// metadata conversion needs. BodyView carries interactive markup,
// BodyExport the static export markup, and Editor the literal macro
// source (an XML fragment without a root element).
type Page struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	SpaceKey    string       `json:"space_key"`
	BodyView    string       `json:"body_view"`
	BodyExport  string       `json:"body_export"`
	Editor      string       `json:"editor"`
	Labels      []string     `json:"labels,omitempty"`
	Ancestors   []string     `json:"ancestors"` // ancestor page IDs, root first
	Attachments []Attachment `json:"attachments"`
	FetchedAt   time.Time    `json:"fetched_at"`

	// Degraded marks a minimal placeholder returned when the upstream
	// fetch failed with not-found or access-denied.
	Degraded bool `json:"degraded,omitempty"`
}

type Attachment struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	FileName     string `json:"file_name"`
	MediaType    string `json:"media_type"`
	Size         int64  `json:"size"`
	DownloadLink string `json:"download_link"`
}

// GetAttachmentByID returns the attachment with the given ID, or nil.
func (p *Page) GetAttachmentByID(id string) *Attachment {
	for i := range p.Attachments {
		if p.Attachments[i].ID == id {
			return &p.Attachments[i]
		}
	}
	return nil
}

// GetAttachmentsByTitle returns all attachments whose title matches exactly.
func (p *Page) GetAttachmentsByTitle(title string) []Attachment {
	var out []Attachment
	for _, a := range p.Attachments {
		if a.Title == title {
			out = append(out, a)
		}
	}
	return out
}
