package confluence

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/smtools/confgraph/internal/core/model"
)

// Client talks to a Confluence server over its REST API using a
// personal access token. It implements PageFetcher, LinkInfoFetcher,
// PageLookup and AttachmentFetcher.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	limiter *rate.Limiter
}

type ClientConfig struct {
	BaseURL   string
	Token     string
	Timeout   time.Duration
	VerifySSL bool
	// RateLimit caps requests per second against the server; zero means
	// no limiting.
	RateLimit float64
}

func NewClient(cfg ClientConfig) *Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	if !cfg.VerifySSL {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), int(cfg.RateLimit)*2)
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		limiter: limiter,
	}
}

// BaseURL returns the configured server root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type contentResponse struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Space struct {
		Key string `json:"key"`
	} `json:"space"`
	Body struct {
		View       struct{ Value string } `json:"view"`
		ExportView struct{ Value string } `json:"export_view"`
		Editor     struct{ Value string } `json:"editor"`
	} `json:"body"`
	Ancestors []struct {
		ID string `json:"id"`
	} `json:"ancestors"`
	Metadata struct {
		Labels struct {
			Results []struct {
				Name string `json:"name"`
			} `json:"results"`
		} `json:"labels"`
	} `json:"metadata"`
}

type attachmentResponse struct {
	Results []struct {
		ID       string `json:"id"`
		Title    string `json:"title"`
		Metadata struct {
			MediaType string `json:"mediaType"`
		} `json:"metadata"`
		Extensions struct {
			FileSize int64 `json:"fileSize"`
		} `json:"extensions"`
		Links struct {
			Download string `json:"download"`
		} `json:"_links"`
	} `json:"results"`
}

// GetPage fetches all renderings and metadata of one page. A not-found
// or access-denied response produces a degraded placeholder page so the
// caller can record the failure and move on.
func (c *Client) GetPage(ctx context.Context, pageID string) (*model.Page, error) {
	endpoint := fmt.Sprintf(
		"%s/rest/api/content/%s?expand=body.view,body.export_view,body.editor,metadata.labels,ancestors,space",
		c.baseURL, url.PathEscape(pageID))

	body, status, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page %s: %w", pageID, err)
	}
	if status == http.StatusNotFound || status == http.StatusForbidden || status == http.StatusUnauthorized {
		log.Printf("confluence: could not access page %s (status %d)", pageID, status)
		return degradedPage(pageID), nil
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch page %s: unexpected status %d", pageID, status)
	}

	var resp contentResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode page %s: %w", pageID, err)
	}

	page := &model.Page{
		ID:         resp.ID,
		Title:      resp.Title,
		SpaceKey:   resp.Space.Key,
		BodyView:   resp.Body.View.Value,
		BodyExport: resp.Body.ExportView.Value,
		Editor:     resp.Body.Editor.Value,
		FetchedAt:  time.Now().UTC(),
	}
	for _, l := range resp.Metadata.Labels.Results {
		page.Labels = append(page.Labels, l.Name)
	}
	// The first ancestor is the space root, which breadcrumbs omit.
	for i, a := range resp.Ancestors {
		if i == 0 {
			continue
		}
		page.Ancestors = append(page.Ancestors, a.ID)
	}

	page.Attachments = c.fetchAttachmentList(ctx, pageID)
	return page, nil
}

func degradedPage(pageID string) *model.Page {
	return &model.Page{
		ID:        pageID,
		Title:     "Page not accessible",
		Degraded:  true,
		FetchedAt: time.Now().UTC(),
	}
}

func (c *Client) fetchAttachmentList(ctx context.Context, pageID string) []model.Attachment {
	endpoint := fmt.Sprintf("%s/rest/api/content/%s/child/attachment?limit=200", c.baseURL, url.PathEscape(pageID))

	body, status, err := c.get(ctx, endpoint)
	if err != nil || status != http.StatusOK {
		log.Printf("confluence: could not list attachments for page %s: status=%d err=%v", pageID, status, err)
		return nil
	}

	var resp attachmentResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		log.Printf("confluence: could not decode attachments for page %s: %v", pageID, err)
		return nil
	}

	var out []model.Attachment
	for _, a := range resp.Results {
		out = append(out, model.Attachment{
			ID:           a.ID,
			Title:        a.Title,
			FileName:     a.Title,
			MediaType:    a.Metadata.MediaType,
			Size:         a.Extensions.FileSize,
			DownloadLink: a.Links.Download,
		})
	}
	return out
}

// GetLinkInfo fetches the viewinfo rendering holding the page's link panels.
func (c *Client) GetLinkInfo(ctx context.Context, pageID string) (string, string, error) {
	endpoint := fmt.Sprintf("%s/pages/viewinfo.action?pageId=%s", c.baseURL, url.QueryEscape(pageID))

	body, status, err := c.get(ctx, endpoint)
	if err != nil {
		return "", "", fmt.Errorf("failed to fetch viewinfo for page %s: %w", pageID, err)
	}
	if status != http.StatusOK {
		return "", "", fmt.Errorf("failed to fetch viewinfo for page %s: unexpected status %d", pageID, status)
	}
	return string(body), endpoint, nil
}

// PageMetadata resolves a page ID to its space key and title.
func (c *Client) PageMetadata(ctx context.Context, pageID string) (string, string, error) {
	endpoint := fmt.Sprintf("%s/rest/api/content/%s?expand=space", c.baseURL, url.PathEscape(pageID))

	body, status, err := c.get(ctx, endpoint)
	if err != nil {
		return "", "", err
	}
	if status != http.StatusOK {
		return "", "", fmt.Errorf("unexpected status %d for page %s", status, pageID)
	}

	var resp contentResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", "", err
	}
	return resp.Space.Key, resp.Title, nil
}

// PageIDByTitle resolves a space key and title to a page ID.
func (c *Client) PageIDByTitle(ctx context.Context, space, title string) (string, error) {
	endpoint := fmt.Sprintf("%s/rest/api/content?spaceKey=%s&title=%s&limit=1",
		c.baseURL, url.QueryEscape(space), url.QueryEscape(title))

	body, status, err := c.get(ctx, endpoint)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d for %s/%s", status, space, title)
	}

	var resp struct {
		Results []struct {
			ID string `json:"id"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", err
	}
	if len(resp.Results) == 0 {
		return "", fmt.Errorf("no page titled %q in space %s", title, space)
	}
	return resp.Results[0].ID, nil
}

// AttachmentContent downloads raw attachment bytes. A nil slice with nil
// error means the server reported the attachment unavailable.
func (c *Client) AttachmentContent(ctx context.Context, att model.Attachment) ([]byte, error) {
	if att.DownloadLink == "" {
		return nil, nil
	}
	body, status, err := c.get(ctx, c.baseURL+att.DownloadLink)
	if err != nil {
		return nil, fmt.Errorf("failed to download attachment %s: %w", att.ID, err)
	}
	if status != http.StatusOK {
		log.Printf("confluence: attachment %s unavailable (status %d)", att.ID, status)
		return nil, nil
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, int, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, 0, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json, text/html;q=0.9, */*;q=0.8")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}
