package markdown

import (
	"context"
	"errors"

	"github.com/smtools/confgraph/internal/core/model"
)

type mockLookup struct {
	titles map[string]string // pageID -> title
}

func (m *mockLookup) PageMetadata(_ context.Context, pageID string) (string, string, error) {
	title, ok := m.titles[pageID]
	if !ok {
		return "", "", errors.New("page not accessible")
	}
	return "DEV", title, nil
}

type mockAttachments struct {
	content map[string][]byte // attachment ID -> bytes
	err     error
}

func (m *mockAttachments) AttachmentContent(_ context.Context, att model.Attachment) ([]byte, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.content[att.ID], nil
}

// mockExpander records the source it saw and substitutes fixed text.
type mockExpander struct {
	seen     []string
	expanded string
}

func (m *mockExpander) ExpandIncludes(content string) string {
	m.seen = append(m.seen, content)
	if m.expanded != "" {
		return m.expanded
	}
	return content
}
