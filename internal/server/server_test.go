package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smtools/confgraph/internal/core"
	"github.com/smtools/confgraph/internal/core/links"
	"github.com/smtools/confgraph/internal/core/model"
	"github.com/smtools/confgraph/internal/core/pagecache"
)

type stubDriver struct{}

func (stubDriver) ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	return neo4j.EagerResult{}, nil
}
func (stubDriver) BuildIndices(ctx context.Context) error { return nil }
func (stubDriver) Close(ctx context.Context) error        { return nil }

type stubPages struct{}

func (stubPages) GetPage(ctx context.Context, pageID string) (*model.Page, error) {
	return &model.Page{ID: pageID, Title: "Stub Page", SpaceKey: "OPS", BodyView: "<p>body</p>"}, nil
}

type stubLinkInfo struct{}

func (stubLinkInfo) GetLinkInfo(ctx context.Context, pageID string) (string, string, error) {
	return "<div></div>", "https://wiki.example.com", nil
}

type stubLookup struct{}

func (stubLookup) PageMetadata(ctx context.Context, pageID string) (string, string, error) {
	return "OPS", "Stub", nil
}
func (stubLookup) PageIDByTitle(ctx context.Context, space, title string) (string, error) {
	return "1", nil
}

type stubAttachments struct{}

func (stubAttachments) AttachmentContent(ctx context.Context, att model.Attachment) ([]byte, error) {
	return nil, nil
}

func newTestServer() *Server {
	gin.SetMode(gin.TestMode)
	return &Server{
		Exporter: &core.Exporter{
			Driver:      stubDriver{},
			Pages:       stubPages{},
			LinkInfo:    stubLinkInfo{},
			Lookup:      stubLookup{},
			Attachments: stubAttachments{},
			Parser:      links.NewParser("https://wiki.example.com"),
			Cache:       pagecache.New(8),
			BaseURL:     "https://wiki.example.com",
		},
		Workers:     2,
		PageTimeout: time.Second,
	}
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestServer().SetupRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestProcessPageEndpoint(t *testing.T) {
	router := newTestServer().SetupRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/pages/123/process", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var result core.PageResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "123", result.PageID)
	assert.Equal(t, "Stub Page", result.Title)
	assert.Contains(t, result.Markdown, "# Stub Page")
}

func TestBatchEndpoint(t *testing.T) {
	router := newTestServer().SetupRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/batch",
		strings.NewReader(`{"page_ids": ["1", "2"]}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var stats core.BatchStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.Processed)
	assert.Equal(t, 0, stats.Failed)
}

func TestBatchEndpointRejectsEmpty(t *testing.T) {
	router := newTestServer().SetupRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/batch", strings.NewReader(`{"page_ids": []}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetAttachmentsEndpoint(t *testing.T) {
	router := newTestServer().SetupRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/pages/123/attachments", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"page_id":"123"`)
}

func TestGetMarkdownNotFound(t *testing.T) {
	router := newTestServer().SetupRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/pages/404/markdown", nil)
	router.ServeHTTP(w, req)

	// The stub driver returns no records, so the page is unknown.
	assert.Equal(t, http.StatusNotFound, w.Code)
}
