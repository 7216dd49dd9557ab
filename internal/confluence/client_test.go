package confluence

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smtools/confgraph/internal/core/model"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := NewClient(ClientConfig{
		BaseURL:   server.URL,
		Token:     "test-token",
		Timeout:   5 * time.Second,
		VerifySSL: true,
	})
	return client, server
}

func TestGetPagePopulatesRenderings(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/api/content/123", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.Write([]byte(`{
			"id": "123",
			"title": "Architecture Overview",
			"space": {"key": "DOCS"},
			"body": {
				"view": {"value": "<p>view</p>"},
				"export_view": {"value": "<p>export</p>"},
				"editor": {"value": "<p>editor</p>"}
			},
			"ancestors": [{"id": "1"}, {"id": "10"}, {"id": "11"}],
			"metadata": {"labels": {"results": [{"name": "design"}]}}
		}`))
	})
	mux.HandleFunc("/rest/api/content/123/child/attachment", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results": [{
			"id": "att1",
			"title": "diagram.drawio",
			"metadata": {"mediaType": "application/octet-stream"},
			"extensions": {"fileSize": 512},
			"_links": {"download": "/download/attachments/123/diagram.drawio"}
		}]}`))
	})

	client, _ := newTestClient(t, mux)
	page, err := client.GetPage(context.Background(), "123")
	require.NoError(t, err)

	assert.Equal(t, "123", page.ID)
	assert.Equal(t, "Architecture Overview", page.Title)
	assert.Equal(t, "DOCS", page.SpaceKey)
	assert.Equal(t, "<p>view</p>", page.BodyView)
	assert.Equal(t, "<p>export</p>", page.BodyExport)
	assert.Equal(t, "<p>editor</p>", page.Editor)
	assert.Equal(t, []string{"design"}, page.Labels)
	// Space root ancestor is dropped.
	assert.Equal(t, []string{"10", "11"}, page.Ancestors)
	assert.False(t, page.Degraded)

	require.Len(t, page.Attachments, 1)
	assert.Equal(t, "att1", page.Attachments[0].ID)
	assert.Equal(t, int64(512), page.Attachments[0].Size)
}

func TestGetPageDegradedOnNotFound(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	page, err := client.GetPage(context.Background(), "999")
	require.NoError(t, err)
	assert.True(t, page.Degraded)
	assert.Equal(t, "999", page.ID)
	assert.Equal(t, "Page not accessible", page.Title)
}

func TestGetPageDegradedOnForbidden(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))

	page, err := client.GetPage(context.Background(), "42")
	require.NoError(t, err)
	assert.True(t, page.Degraded)
}

func TestGetPageServerErrorIsFatal(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := client.GetPage(context.Background(), "42")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 500")
}

func TestGetLinkInfo(t *testing.T) {
	client, server := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pages/viewinfo.action", r.URL.Path)
		assert.Equal(t, "123", r.URL.Query().Get("pageId"))
		w.Write([]byte("<html>panels</html>"))
	}))

	html, fetchedURL, err := client.GetLinkInfo(context.Background(), "123")
	require.NoError(t, err)
	assert.Equal(t, "<html>panels</html>", html)
	assert.Equal(t, server.URL+"/pages/viewinfo.action?pageId=123", fetchedURL)
}

func TestPageMetadata(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": "55", "title": "Target", "space": {"key": "OPS"}}`))
	}))

	space, title, err := client.PageMetadata(context.Background(), "55")
	require.NoError(t, err)
	assert.Equal(t, "OPS", space)
	assert.Equal(t, "Target", title)
}

func TestPageIDByTitle(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "OPS", r.URL.Query().Get("spaceKey"))
		assert.Equal(t, "My Page", r.URL.Query().Get("title"))
		w.Write([]byte(`{"results": [{"id": "77"}]}`))
	}))

	id, err := client.PageIDByTitle(context.Background(), "OPS", "My Page")
	require.NoError(t, err)
	assert.Equal(t, "77", id)
}

func TestPageIDByTitleNoMatch(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results": []}`))
	}))

	_, err := client.PageIDByTitle(context.Background(), "OPS", "Missing")
	require.Error(t, err)
}

func TestAttachmentContent(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/download/attachments/123/file.xml", r.URL.Path)
		w.Write([]byte("<mxfile/>"))
	}))

	data, err := client.AttachmentContent(context.Background(), model.Attachment{
		ID:           "att1",
		DownloadLink: "/download/attachments/123/file.xml",
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("<mxfile/>"), data)
}

func TestAttachmentContentUnavailable(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	data, err := client.AttachmentContent(context.Background(), model.Attachment{
		ID:           "att1",
		DownloadLink: "/download/attachments/123/file.xml",
	})
	require.NoError(t, err)
	assert.Nil(t, data)
}

type staticLookup struct {
	id         string
	err        error
	seenSpace  string
	seenTitle  string
}

func (s *staticLookup) PageMetadata(ctx context.Context, pageID string) (string, string, error) {
	return "", "", nil
}

func (s *staticLookup) PageIDByTitle(ctx context.Context, space, title string) (string, error) {
	s.seenSpace = space
	s.seenTitle = title
	return s.id, s.err
}

func TestResolvePageURLByID(t *testing.T) {
	id, err := ResolvePageURL(context.Background(), &staticLookup{},
		"https://wiki.example.com/pages/viewpage.action?pageId=123")
	require.NoError(t, err)
	assert.Equal(t, "123", id)
}

func TestResolvePageURLByDisplayPath(t *testing.T) {
	lookup := &staticLookup{id: "88"}
	id, err := ResolvePageURL(context.Background(), lookup,
		"https://wiki.example.com/display/OPS/My+Page")
	require.NoError(t, err)
	assert.Equal(t, "88", id)
}

func TestResolvePageURLDecodesTitleOnce(t *testing.T) {
	// An encoded plus must survive as a literal plus in the looked-up
	// title; only the bare + folds to a space.
	lookup := &staticLookup{id: "91"}
	id, err := ResolvePageURL(context.Background(), lookup,
		"https://wiki.example.com/display/DEV/My%2BPage")
	require.NoError(t, err)
	assert.Equal(t, "91", id)
	assert.Equal(t, "DEV", lookup.seenSpace)
	assert.Equal(t, "My+Page", lookup.seenTitle)

	lookup = &staticLookup{id: "92"}
	_, err = ResolvePageURL(context.Background(), lookup,
		"https://wiki.example.com/display/DEV/Name%2520x")
	require.NoError(t, err)
	assert.Equal(t, "Name%20x", lookup.seenTitle)
}

func TestResolvePageURLUnrecognized(t *testing.T) {
	_, err := ResolvePageURL(context.Background(), &staticLookup{},
		"https://wiki.example.com/whatever")
	require.Error(t, err)
}
