package core

import (
	"context"
	"sync"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/smtools/confgraph/internal/core/model"
)

type executedQuery struct {
	Query  string
	Params map[string]interface{}
}

type MockDriver struct {
	mu             sync.Mutex
	Executed       []executedQuery
	MockResult     neo4j.EagerResult
	ResultsByQuery map[string]neo4j.EagerResult
	Err            error
}

func (m *MockDriver) ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	m.mu.Lock()
	m.Executed = append(m.Executed, executedQuery{Query: query, Params: params})
	m.mu.Unlock()
	if m.Err != nil {
		return neo4j.EagerResult{}, m.Err
	}
	if res, ok := m.ResultsByQuery[query]; ok {
		return res, nil
	}
	return m.MockResult, nil
}

func (m *MockDriver) BuildIndices(ctx context.Context) error {
	return nil
}

func (m *MockDriver) Close(ctx context.Context) error {
	return nil
}

func (m *MockDriver) queries() []string {
	var out []string
	for _, e := range m.Executed {
		out = append(out, e.Query)
	}
	return out
}

type MockPages struct {
	mu      sync.Mutex
	Pages   map[string]*model.Page
	Err     error
	Fetched []string
}

func (m *MockPages) GetPage(ctx context.Context, pageID string) (*model.Page, error) {
	m.mu.Lock()
	m.Fetched = append(m.Fetched, pageID)
	m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if p, ok := m.Pages[pageID]; ok {
		return p, nil
	}
	return &model.Page{ID: pageID, Title: "Page not accessible", Degraded: true}, nil
}

type MockLinkInfo struct {
	HTML string
	URL  string
	Err  error
}

func (m *MockLinkInfo) GetLinkInfo(ctx context.Context, pageID string) (string, string, error) {
	if m.Err != nil {
		return "", "", m.Err
	}
	return m.HTML, m.URL, nil
}

type MockLookup struct {
	Titles map[string][2]string // pageID -> {space, title}
	IDs    map[string]string    // space/title -> pageID
}

func (m *MockLookup) PageMetadata(ctx context.Context, pageID string) (string, string, error) {
	if st, ok := m.Titles[pageID]; ok {
		return st[0], st[1], nil
	}
	return "", "", context.Canceled
}

func (m *MockLookup) PageIDByTitle(ctx context.Context, space, title string) (string, error) {
	if id, ok := m.IDs[space+"/"+title]; ok {
		return id, nil
	}
	return "", context.Canceled
}

type MockAttachments struct {
	Content map[string][]byte // attachment ID -> bytes
}

func (m *MockAttachments) AttachmentContent(ctx context.Context, att model.Attachment) ([]byte, error) {
	return m.Content[att.ID], nil
}
